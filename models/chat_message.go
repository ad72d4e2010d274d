package models

import "github.com/google/uuid"

type ChatMessage struct {
	Base
	PacienteID uuid.UUID `gorm:"type:uuid;not null;index" json:"paciente_id"`
	Role       string    `gorm:"size:20;not null" json:"role"` // user | assistant | system
	Content    string    `gorm:"type:text;not null" json:"content"`
}

func (ChatMessage) TableName() string { return "chat_messages" }
