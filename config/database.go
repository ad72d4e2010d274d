package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/nuttroadm/backendnuttro/models"
	"github.com/nuttroadm/backendnuttro/utils"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormConfig is shared by the postgres connection and the sqlite test databases.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
		Logger:         logger.Default.LogMode(logger.Warn),
	}
}

func OpenDB(cfg *Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), GormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxConns)
	sqlDB.SetMaxIdleConns(cfg.DBMinConns)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("AutoMigrate failed: %w", err)
	}
	return nil
}

// SeedAdmin creates the fallback nutricionista account and hands it every orphaned patient.
func SeedAdmin(db *gorm.DB, cfg *Config, log zerolog.Logger) (*models.Nutricionista, error) {
	var admin models.Nutricionista
	err := db.Where("email = ?", cfg.AdminEmail).First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		hash, err := utils.HashPassword(cfg.AdminPassword)
		if err != nil {
			return nil, err
		}
		admin = models.Nutricionista{
			Email:          cfg.AdminEmail,
			Nome:           "Administrador Nuttro",
			SenhaHash:      hash,
			Plano:          "enterprise",
			Ativo:          true,
			Especialidades: models.NewStringList(nil),
		}
		if err := db.Create(&admin).Error; err != nil {
			return nil, fmt.Errorf("create admin: %w", err)
		}
		log.Info().Str("email", admin.Email).Msg("admin nutricionista created")
	} else if err != nil {
		return nil, err
	}

	res := db.Model(&models.Paciente{}).
		Where("nutricionista_id NOT IN (?)", db.Model(&models.Nutricionista{}).Select("id")).
		Update("nutricionista_id", admin.ID)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected > 0 {
		log.Info().Int64("pacientes", res.RowsAffected).Msg("orphaned pacientes reassigned to admin")
	}
	return &admin, nil
}
