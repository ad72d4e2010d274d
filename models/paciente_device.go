package models

import "github.com/google/uuid"

type PacienteDevice struct {
	Base
	PacienteID  uuid.UUID `gorm:"type:uuid;not null;index" json:"paciente_id"`
	Platform    string    `gorm:"size:16" json:"platform"` // "android" | "ios"
	TokenHash   string    `gorm:"size:64;index" json:"-"`
	EndpointARN string    `gorm:"size:256" json:"endpoint_arn"`
	Enabled     bool      `json:"enabled"`
}

func (PacienteDevice) TableName() string { return "paciente_devices" }
