package services

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/nuttroadm/backendnuttro/config"
	"github.com/nuttroadm/backendnuttro/models"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?_pragma=foreign_keys(1)"), config.GormConfig())
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	// one connection, one in-memory database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := config.Migrate(db); err != nil {
		t.Fatal(err)
	}
	return db
}

func seedNutricionista(t *testing.T, db *gorm.DB, email string) *models.Nutricionista {
	t.Helper()
	n := &models.Nutricionista{
		Email:          email,
		Nome:           "Nutri " + email,
		Ativo:          true,
		Plano:          "basic",
		Especialidades: models.NewStringList(nil),
	}
	if err := db.Create(n).Error; err != nil {
		t.Fatal(err)
	}
	return n
}

func seedPaciente(t *testing.T, db *gorm.DB, nutriID uuid.UUID, cpf, telefone string) *models.Paciente {
	t.Helper()
	p := &models.Paciente{
		NutricionistaID:       nutriID,
		CPF:                   cpf,
		Nome:                  "Paciente " + cpf,
		Telefone:              telefone,
		Status:                "ativo",
		NivelAdesao:           "media",
		KanbanStatus:          models.KanbanInicial,
		LembretesAtivos:       true,
		RestricoesAlimentares: models.NewStringList(nil),
		Alergias:              models.NewStringList(nil),
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatal(err)
	}
	return p
}

type publishedEvent struct {
	Room  string
	Event string
	Data  any
}

type recordingPublisher struct {
	events []publishedEvent
}

func (r *recordingPublisher) Publish(room, event string, data any) {
	r.events = append(r.events, publishedEvent{room, event, data})
}

type recordedPush struct {
	PacienteID  uuid.UUID
	Title, Body string
}

type fakePush struct {
	sent []recordedPush
}

func (f *fakePush) PushToPaciente(_ context.Context, pacienteID uuid.UUID, title, body string, _ map[string]string) {
	f.sent = append(f.sent, recordedPush{pacienteID, title, body})
}

type fakeMailer struct {
	to []string
}

func (f *fakeMailer) SendEmail(_ context.Context, to, _, _ string) error {
	f.to = append(f.to, to)
	return nil
}

type fakeUploader struct {
	err    error
	prefix string
	calls  int
}

func (f *fakeUploader) UploadBase64Image(_ context.Context, _, keyPrefix string) (string, error) {
	f.calls++
	f.prefix = keyPrefix
	if f.err != nil {
		return "", f.err
	}
	return "https://cdn.test/" + keyPrefix + ".jpg", nil
}
