package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awssns "github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"
	"github.com/nuttroadm/backendnuttro/models"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// PushNotifier delivers mobile notifications to a patient's devices.
type PushNotifier interface {
	PushToPaciente(ctx context.Context, pacienteID uuid.UUID, title, body string, data map[string]string)
}

// snsAPI is the subset of the SNS client used here.
type snsAPI interface {
	CreatePlatformEndpoint(ctx context.Context, in *awssns.CreatePlatformEndpointInput, optFns ...func(*awssns.Options)) (*awssns.CreatePlatformEndpointOutput, error)
	Publish(ctx context.Context, in *awssns.PublishInput, optFns ...func(*awssns.Options)) (*awssns.PublishOutput, error)
}

type PushService struct {
	db             *gorm.DB
	sns            snsAPI
	fcmPlatformArn string
	log            zerolog.Logger
}

func NewPushService(ctx context.Context, db *gorm.DB, region, fcmArn string, log zerolog.Logger) (*PushService, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &PushService{db: db, sns: awssns.NewFromConfig(cfg), fcmPlatformArn: fcmArn, log: log}, nil
}

type RegisterDeviceReq struct {
	Platform string `json:"platform" binding:"required"` // "android" | "ios"
	Token    string `json:"token" binding:"required"`
}

func tokenHash(tok string) string {
	h := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(h[:])
}

func (p *PushService) platformArn(platform string) (string, error) {
	switch strings.ToLower(platform) {
	case "android", "ios":
		if p.fcmPlatformArn == "" {
			return "", ErrNotConfigured
		}
		return p.fcmPlatformArn, nil
	default:
		return "", invalid("plataforma desconhecida")
	}
}

func (p *PushService) RegisterDevice(ctx context.Context, pacienteID uuid.UUID, platform, token string) (*models.PacienteDevice, error) {
	appArn, err := p.platformArn(platform)
	if err != nil {
		return nil, err
	}

	out, err := p.sns.CreatePlatformEndpoint(ctx, &awssns.CreatePlatformEndpointInput{
		PlatformApplicationArn: aws.String(appArn),
		Token:                  aws.String(token),
	})
	if err != nil {
		return nil, errors.Join(ErrGateway, err)
	}

	hash := tokenHash(token)
	var dev models.PacienteDevice
	err = p.db.WithContext(ctx).Where("paciente_id = ? AND token_hash = ?", pacienteID, hash).First(&dev).Error
	switch {
	case err == nil:
		dev.EndpointARN = aws.ToString(out.EndpointArn)
		dev.Platform = strings.ToLower(platform)
		dev.Enabled = true
		err = p.db.WithContext(ctx).Save(&dev).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		dev = models.PacienteDevice{
			PacienteID:  pacienteID,
			Platform:    strings.ToLower(platform),
			TokenHash:   hash,
			EndpointARN: aws.ToString(out.EndpointArn),
			Enabled:     true,
		}
		err = p.db.WithContext(ctx).Create(&dev).Error
	}
	if err != nil {
		return nil, err
	}
	return &dev, nil
}

// SetEnabled toggles notifications on every device of the patient.
func (p *PushService) SetEnabled(ctx context.Context, pacienteID uuid.UUID, enabled bool) error {
	return SetDevicesEnabled(ctx, p.db, pacienteID, enabled)
}

func SetDevicesEnabled(ctx context.Context, db *gorm.DB, pacienteID uuid.UUID, enabled bool) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.PacienteDevice{}).
			Where("paciente_id = ?", pacienteID).
			Update("enabled", enabled).Error; err != nil {
			return err
		}
		return tx.Model(&models.Paciente{}).Where("id = ?", pacienteID).Update("lembretes_ativos", enabled).Error
	})
}

func (p *PushService) PushToPaciente(ctx context.Context, pacienteID uuid.UUID, title, body string, data map[string]string) {
	var endpoints []models.PacienteDevice
	if err := p.db.WithContext(ctx).Where("paciente_id = ? AND enabled = ?", pacienteID, true).Find(&endpoints).Error; err != nil {
		p.log.Error().Err(err).Msg("load devices")
		return
	}
	if len(endpoints) == 0 {
		return
	}

	gcm, _ := json.Marshal(map[string]any{
		"notification": map[string]string{"title": title, "body": body},
		"data":         data,
	})
	raw, _ := json.Marshal(map[string]string{"default": body, "GCM": string(gcm)})

	for _, d := range endpoints {
		if _, err := p.sns.Publish(ctx, &awssns.PublishInput{
			MessageStructure: aws.String("json"),
			Message:          aws.String(string(raw)),
			TargetArn:        aws.String(d.EndpointARN),
		}); err != nil {
			p.log.Warn().Err(err).Str("device_id", d.ID.String()).Msg("sns publish failed")
		}
	}
}
