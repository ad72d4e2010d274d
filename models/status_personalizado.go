package models

import "github.com/google/uuid"

type StatusPersonalizado struct {
	Base
	NutricionistaID uuid.UUID `gorm:"type:uuid;not null;index" json:"nutricionista_id"`
	Nome            string    `gorm:"size:100;not null" json:"nome"`
	Cor             string    `gorm:"size:20" json:"cor"`
	Icone           string    `gorm:"size:50" json:"icone"`
	Ordem           int       `gorm:"default:0" json:"ordem"`
	Ativo           bool      `json:"ativo"`
}

func (StatusPersonalizado) TableName() string { return "status_personalizados" }
