package config

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/nuttroadm/backendnuttro/models"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?_pragma=foreign_keys(1)"), GormConfig())
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := Migrate(db); err != nil {
		t.Fatal(err)
	}
	return db
}

func TestMigratedSchemaKeepsExplicitFalseFlags(t *testing.T) {
	db := openTestDB(t)

	n := &models.Nutricionista{Email: "inativa@test.com", Nome: "Inativa", Ativo: false, Especialidades: models.NewStringList(nil)}
	if err := db.Create(n).Error; err != nil {
		t.Fatal(err)
	}
	p := &models.Paciente{NutricionistaID: n.ID, CPF: "52998224725", Nome: "Ana", LembretesAtivos: false}
	if err := db.Create(p).Error; err != nil {
		t.Fatal(err)
	}
	st := &models.StatusPersonalizado{NutricionistaID: n.ID, Nome: "Arquivado", Ativo: false}
	if err := db.Create(st).Error; err != nil {
		t.Fatal(err)
	}
	dev := &models.PacienteDevice{PacienteID: p.ID, Platform: "android", Enabled: false}
	if err := db.Create(dev).Error; err != nil {
		t.Fatal(err)
	}

	var gotN models.Nutricionista
	var gotP models.Paciente
	var gotSt models.StatusPersonalizado
	var gotDev models.PacienteDevice
	db.First(&gotN, "id = ?", n.ID)
	db.First(&gotP, "id = ?", p.ID)
	db.First(&gotSt, "id = ?", st.ID)
	db.First(&gotDev, "id = ?", dev.ID)
	if gotN.Ativo || gotP.LembretesAtivos || gotSt.Ativo || gotDev.Enabled {
		t.Fatalf("false flags stored as true: nutri=%v paciente=%v status=%v device=%v",
			gotN.Ativo, gotP.LembretesAtivos, gotSt.Ativo, gotDev.Enabled)
	}
}

func TestSeedAdminIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	cfg := &Config{AdminEmail: "admin@nuttro.com", AdminPassword: "admin123"}

	admin, err := SeedAdmin(db, cfg, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if !admin.Ativo || admin.Plano != "enterprise" {
		t.Fatalf("admin = %+v", admin)
	}

	again, err := SeedAdmin(db, cfg, zerolog.Nop())
	if err != nil || again.ID != admin.ID {
		t.Fatalf("second seed: id=%v err=%v", again, err)
	}
	var count int64
	db.Model(&models.Nutricionista{}).Count(&count)
	if count != 1 {
		t.Fatalf("nutricionistas = %d", count)
	}
}
