package services

import (
	"context"
	"fmt"
	"time"

	"github.com/nuttroadm/backendnuttro/models"
	"github.com/nuttroadm/backendnuttro/utils"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const reminderWindow = 24 * time.Hour

// Brazil has had no daylight saving since 2019.
var horarioBrasilia = time.FixedZone("BRT", -3*60*60)

// EmailSender is satisfied by utils.Mailer.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// ReminderService sends one reminder per upcoming appointment over every channel the patient has.
type ReminderService struct {
	db   *gorm.DB
	evo  *EvolutionClient
	push PushNotifier
	mail EmailSender
	log  zerolog.Logger
	cron *cron.Cron
}

func NewReminderService(db *gorm.DB, evo *EvolutionClient, push PushNotifier, mail EmailSender, log zerolog.Logger) *ReminderService {
	return &ReminderService{db: db, evo: evo, push: push, mail: mail, log: log}
}

// Start schedules Run with a standard five-field cron expression.
func (s *ReminderService) Start(schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		n, err := s.Run(ctx, time.Now())
		if err != nil {
			s.log.Error().Err(err).Msg("reminder run failed")
			return
		}
		s.log.Info().Int("sent", n).Msg("reminder run finished")
	})
	if err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", schedule, err)
	}
	s.cron = c
	c.Start()
	return nil
}

// Stop waits for a running job to finish.
func (s *ReminderService) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

type reminderRow struct {
	models.Agendamento
	PacienteNomeRow   string  `gorm:"column:paciente_nome"`
	PacienteTelefone  string  `gorm:"column:paciente_telefone"`
	PacienteEmail     *string `gorm:"column:paciente_email"`
	LembretesAtivos   bool    `gorm:"column:lembretes_ativos"`
	NutricionistaNome string  `gorm:"column:nutricionista_nome"`
}

// Run reminds every appointment due within the next 24h that has not been reminded yet and
// returns how many were marked.
func (s *ReminderService) Run(ctx context.Context, now time.Time) (int, error) {
	var rows []reminderRow
	err := s.db.WithContext(ctx).Table("agendamentos").
		Select("agendamentos.*, pacientes.nome AS paciente_nome, pacientes.telefone AS paciente_telefone, "+
			"pacientes.email AS paciente_email, pacientes.lembretes_ativos, nutricionistas.nome AS nutricionista_nome").
		Joins("JOIN pacientes ON pacientes.id = agendamentos.paciente_id").
		Joins("JOIN nutricionistas ON nutricionistas.id = agendamentos.nutricionista_id").
		Where("agendamentos.status IN ?", []string{"agendado", "confirmado"}).
		Where("agendamentos.lembrete_enviado = ?", false).
		Where("agendamentos.data_hora > ? AND agendamentos.data_hora <= ?", now.UTC(), now.UTC().Add(reminderWindow)).
		Order("agendamentos.data_hora ASC").
		Scan(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("load due appointments: %w", err)
	}

	sent := 0
	for i := range rows {
		r := &rows[i]
		s.remind(ctx, r)
		res := s.db.WithContext(ctx).Model(&models.Agendamento{}).
			Where("id = ? AND lembrete_enviado = ?", r.ID, false).
			Update("lembrete_enviado", true)
		if res.Error != nil {
			s.log.Error().Err(res.Error).Str("agendamento_id", r.ID.String()).Msg("reminder flag not stored")
			continue
		}
		sent += int(res.RowsAffected)
	}
	return sent, nil
}

func (s *ReminderService) remind(ctx context.Context, r *reminderRow) {
	quando := r.DataHora.In(horarioBrasilia).Format("02/01/2006 às 15:04")
	text := fmt.Sprintf("Olá, %s! Lembrete da sua consulta com %s em %s.", r.PacienteNomeRow, r.NutricionistaNome, quando)
	l := s.log.With().Str("agendamento_id", r.ID.String()).Logger()

	if r.PacienteTelefone != "" && s.whatsAppConnected(ctx, r) {
		name := InstanceName(r.NutricionistaID)
		if _, err := s.evo.SendText(ctx, name, utils.FormatPhoneBR(r.PacienteTelefone), text); err != nil {
			l.Warn().Err(err).Msg("whatsapp reminder failed")
		}
	}

	// push and email follow the patient's opt-out; WhatsApp is the nutritionist's channel
	if !r.LembretesAtivos {
		return
	}

	if s.push != nil && r.PacienteID != nil {
		s.push.PushToPaciente(ctx, *r.PacienteID, "Lembrete de consulta", text, map[string]string{
			"tipo":           "lembrete_consulta",
			"agendamento_id": r.ID.String(),
		})
	}

	if s.mail != nil && r.PacienteEmail != nil && *r.PacienteEmail != "" {
		subject, body := utils.LembreteConsultaEmail(r.PacienteNomeRow, r.NutricionistaNome, quando)
		if err := s.mail.SendEmail(ctx, *r.PacienteEmail, subject, body); err != nil {
			l.Warn().Err(err).Msg("email reminder failed")
		}
	}
}

func (s *ReminderService) whatsAppConnected(ctx context.Context, r *reminderRow) bool {
	if !s.evo.Enabled() {
		return false
	}
	var n int64
	err := s.db.WithContext(ctx).Model(&models.WhatsAppSession{}).
		Where("nutricionista_id = ? AND status = ?", r.NutricionistaID, "connected").Count(&n).Error
	return err == nil && n > 0
}
