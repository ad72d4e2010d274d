package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/nuttroadm/backendnuttro/models"
	"github.com/nuttroadm/backendnuttro/utils"
	"gorm.io/gorm"
)

// ImageUploader stores a base64 image and returns its public URL.
type ImageUploader interface {
	UploadBase64Image(ctx context.Context, data, keyPrefix string) (string, error)
}

type ProfileInput struct {
	Nome           *string   `json:"nome"`
	Telefone       *string   `json:"telefone"`
	Bio            *string   `json:"bio"`
	CRN            *string   `json:"crn"`
	Especialidades *[]string `json:"especialidades"`
	FotoBase64     string    `json:"foto_base64"`
}

type NutricionistaService struct {
	db       *gorm.DB
	uploader ImageUploader
}

func NewNutricionistaService(db *gorm.DB, uploader ImageUploader) *NutricionistaService {
	return &NutricionistaService{db: db, uploader: uploader}
}

func (s *NutricionistaService) UpdateProfile(ctx context.Context, n *models.Nutricionista, in ProfileInput) (*models.NutricionistaView, error) {
	updates := map[string]any{}
	if in.Nome != nil {
		if strings.TrimSpace(*in.Nome) == "" {
			return nil, invalid("Nome não pode ser vazio")
		}
		updates["nome"] = strings.TrimSpace(*in.Nome)
	}
	if in.Telefone != nil {
		updates["telefone"] = *in.Telefone
	}
	if in.Bio != nil {
		updates["bio"] = *in.Bio
	}
	if in.CRN != nil {
		if crn := strings.TrimSpace(*in.CRN); crn == "" {
			updates["crn"] = nil
		} else {
			updates["crn"] = crn
		}
	}
	if in.Especialidades != nil {
		updates["especialidades"] = models.NewStringList(*in.Especialidades)
	}
	if in.FotoBase64 != "" {
		if s.uploader == nil {
			return nil, ErrNotConfigured
		}
		url, err := s.uploader.UploadBase64Image(ctx, in.FotoBase64, "nutricionistas/"+n.ID.String())
		if err != nil {
			return nil, err
		}
		updates["foto_url"] = url
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(n).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, &ConflictError{Kind: ErrDuplicateEmail, Message: "CRN já cadastrado"}
			}
			return nil, err
		}
	}
	if err := s.db.WithContext(ctx).First(n, "id = ?", n.ID).Error; err != nil {
		return nil, err
	}
	v, err := utils.ToNutricionistaView(n)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ownedPaciente loads a patient only when it belongs to nutriID.
func ownedPaciente(ctx context.Context, db *gorm.DB, nutriID, pacienteID uuid.UUID) (*models.Paciente, error) {
	var p models.Paciente
	err := db.WithContext(ctx).Where("id = ? AND nutricionista_id = ?", pacienteID, nutriID).First(&p).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}
