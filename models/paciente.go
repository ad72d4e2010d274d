package models

import (
	"time"

	"github.com/google/uuid"
)

type Paciente struct {
	Base
	NutricionistaID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"nutricionista_id"`
	CPF                   string     `gorm:"column:cpf;size:11;uniqueIndex;not null" json:"cpf"`
	Email                 *string    `gorm:"size:255;uniqueIndex" json:"email"`
	SenhaHash             string     `gorm:"size:255" json:"-"`
	Nome                  string     `gorm:"size:255;not null" json:"nome"`
	Telefone              string     `gorm:"size:20;index" json:"telefone"`
	DataNascimento        *time.Time `json:"data_nascimento"`
	Sexo                  string     `gorm:"size:20" json:"sexo"`
	Endereco              string     `gorm:"type:text" json:"endereco"`
	FotoURL               string     `gorm:"type:text" json:"foto_url"`
	Objetivo              string     `gorm:"size:100" json:"objetivo"`
	AlturaCM              *float64   `gorm:"column:altura_cm" json:"altura_cm"`
	PesoAtualKG           *float64   `gorm:"column:peso_atual_kg" json:"peso_atual_kg"`
	PesoMetaKG            *float64   `gorm:"column:peso_meta_kg" json:"peso_meta_kg"`
	RestricoesAlimentares StringList `json:"restricoes_alimentares"`
	Alergias              StringList `json:"alergias"`
	Status                string     `gorm:"size:20;default:ativo;index" json:"status"` // ativo | inativo | pausado | novo
	NivelAdesao           string     `gorm:"size:20;default:media" json:"nivel_adesao"`  // alta | media | baixa
	KanbanStatus          string     `gorm:"size:50;default:novo" json:"kanban_status"`
	DiasJornada           int        `gorm:"default:0" json:"dias_jornada"`
	LembretesAtivos       bool       `json:"lembretes_ativos"`
	Observacoes           string     `gorm:"type:text" json:"observacoes"`
	LastLoginAt           *time.Time `json:"last_login_at"`
	LastCheckinAt         *time.Time `json:"last_checkin_at"`

	CheckIns          []CheckIn        `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Refeicoes         []Refeicao       `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Metas             []Meta           `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	PlanosAlimentares []PlanoAlimentar `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Consultas         []Consulta       `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ChatMessages      []ChatMessage    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Devices           []PacienteDevice `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Alertas           []Alert          `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Agendamentos      []Agendamento    `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	Conversas         []Conversa       `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	Mensagens         []Mensagem       `gorm:"constraint:OnDelete:SET NULL" json:"-"`
}

func (Paciente) TableName() string { return "pacientes" }

// KanbanInicial is the board column new patients land in, whoever creates them.
const KanbanInicial = "novo"

// PacienteView is what both consoles get back; the password hash never leaves the service layer.
type PacienteView struct {
	ID                    uuid.UUID  `json:"id"`
	NutricionistaID       uuid.UUID  `json:"nutricionista_id"`
	CPF                   string     `json:"cpf"`
	Email                 *string    `json:"email"`
	Nome                  string     `json:"nome"`
	Telefone              string     `json:"telefone"`
	DataNascimento        *time.Time `json:"data_nascimento"`
	Sexo                  string     `json:"sexo"`
	Endereco              string     `json:"endereco"`
	FotoURL               string     `json:"foto_url"`
	Objetivo              string     `json:"objetivo"`
	AlturaCM              *float64   `json:"altura_cm"`
	PesoAtualKG           *float64   `json:"peso_atual_kg"`
	PesoMetaKG            *float64   `json:"peso_meta_kg"`
	RestricoesAlimentares []string   `json:"restricoes_alimentares"`
	Alergias              []string   `json:"alergias"`
	Status                string     `json:"status"`
	NivelAdesao           string     `json:"nivel_adesao"`
	KanbanStatus          string     `json:"kanban_status"`
	DiasJornada           int        `json:"dias_jornada"`
	LembretesAtivos       bool       `json:"lembretes_ativos"`
	Observacoes           string     `json:"observacoes"`
	LastCheckinAt         *time.Time `json:"last_checkin_at"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}
