package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/nuttroadm/backendnuttro/models"
	"github.com/nuttroadm/backendnuttro/utils"
	"github.com/rs/zerolog"
	"github.com/tealeg/xlsx"
	"gorm.io/gorm"
)

var (
	pacienteStatuses = map[string]bool{"ativo": true, "inativo": true, "pausado": true, "novo": true}
	niveisAdesao     = map[string]bool{"alta": true, "media": true, "baixa": true}
)

type PacienteInput struct {
	CPF                   string   `json:"cpf" binding:"required"`
	Nome                  string   `json:"nome" binding:"required"`
	Email                 *string  `json:"email"`
	Senha                 string   `json:"senha"`
	Telefone              string   `json:"telefone"`
	DataNascimento        string   `json:"data_nascimento"`
	Sexo                  string   `json:"sexo"`
	Endereco              string   `json:"endereco"`
	Objetivo              string   `json:"objetivo"`
	AlturaCM              *float64 `json:"altura_cm"`
	PesoAtualKG           *float64 `json:"peso_atual_kg"`
	PesoMetaKG            *float64 `json:"peso_meta_kg"`
	RestricoesAlimentares []string `json:"restricoes_alimentares"`
	Alergias              []string `json:"alergias"`
	Status                string   `json:"status"`
	NivelAdesao           string   `json:"nivel_adesao"`
	KanbanStatus          string   `json:"kanban_status"`
	Observacoes           string   `json:"observacoes"`
}

// PacienteUpdate is a partial update; nil fields are left alone.
type PacienteUpdate struct {
	CPF                   *string   `json:"cpf"`
	Nome                  *string   `json:"nome"`
	Email                 *string   `json:"email"`
	Senha                 *string   `json:"senha"`
	Telefone              *string   `json:"telefone"`
	DataNascimento        *string   `json:"data_nascimento"`
	Sexo                  *string   `json:"sexo"`
	Endereco              *string   `json:"endereco"`
	Objetivo              *string   `json:"objetivo"`
	AlturaCM              *float64  `json:"altura_cm"`
	PesoAtualKG           *float64  `json:"peso_atual_kg"`
	PesoMetaKG            *float64  `json:"peso_meta_kg"`
	RestricoesAlimentares *[]string `json:"restricoes_alimentares"`
	Alergias              *[]string `json:"alergias"`
	Status                *string   `json:"status"`
	NivelAdesao           *string   `json:"nivel_adesao"`
	KanbanStatus          *string   `json:"kanban_status"`
	DiasJornada           *int      `json:"dias_jornada"`
	LembretesAtivos       *bool     `json:"lembretes_ativos"`
	Observacoes           *string   `json:"observacoes"`
	FotoBase64            string    `json:"foto_base64"`
}

type PacienteFilter struct {
	Status      string `form:"status"`
	Objetivo    string `form:"objetivo"`
	NivelAdesao string `form:"nivel_adesao"`
	Busca       string `form:"busca"`
}

type ImportRowError struct {
	Linha int    `json:"linha"`
	Erro  string `json:"erro"`
}

type ImportResult struct {
	Criados int              `json:"criados"`
	Erros   []ImportRowError `json:"erros"`
}

type PacienteService struct {
	db       *gorm.DB
	uploader ImageUploader
	log      zerolog.Logger
}

func NewPacienteService(db *gorm.DB, uploader ImageUploader, log zerolog.Logger) *PacienteService {
	return &PacienteService{db: db, uploader: uploader, log: log}
}

// createPaciente checks CPF and email uniqueness and inserts inside one transaction,
// so a rejected patient never leaves a row behind.
func createPaciente(ctx context.Context, db *gorm.DB, p *models.Paciente) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkUnique(tx, p.CPF, p.Email, uuid.Nil); err != nil {
			return err
		}
		if err := tx.Create(p).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return &ConflictError{Kind: ErrDuplicateCPF, Message: "CPF ou email já cadastrado"}
			}
			return err
		}
		return nil
	})
}

func checkUnique(tx *gorm.DB, cpf string, email *string, except uuid.UUID) error {
	var count int64
	if cpf != "" {
		q := tx.Model(&models.Paciente{}).Where("cpf = ?", cpf)
		if except != uuid.Nil {
			q = q.Where("id <> ?", except)
		}
		if err := q.Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return &ConflictError{Kind: ErrDuplicateCPF, Message: "CPF já cadastrado"}
		}
	}
	if email != nil {
		q := tx.Model(&models.Paciente{}).Where("email = ?", *email)
		if except != uuid.Nil {
			q = q.Where("id <> ?", except)
		}
		if err := q.Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return &ConflictError{Kind: ErrDuplicateEmail, Message: "Email já cadastrado"}
		}
	}
	return nil
}

func (s *PacienteService) Create(ctx context.Context, nutriID uuid.UUID, in PacienteInput) (*models.PacienteView, error) {
	cpf := utils.NormalizeCPF(in.CPF)
	if !utils.ValidateCPF(cpf) {
		return nil, ErrInvalidCPF
	}
	if strings.TrimSpace(in.Nome) == "" {
		return nil, invalid("Nome é obrigatório")
	}

	p := &models.Paciente{
		NutricionistaID:       nutriID,
		CPF:                   cpf,
		Email:                 normalizeEmail(in.Email),
		Nome:                  strings.TrimSpace(in.Nome),
		Telefone:              in.Telefone,
		Sexo:                  in.Sexo,
		Endereco:              in.Endereco,
		Objetivo:              in.Objetivo,
		AlturaCM:              in.AlturaCM,
		PesoAtualKG:           in.PesoAtualKG,
		PesoMetaKG:            in.PesoMetaKG,
		RestricoesAlimentares: models.NewStringList(in.RestricoesAlimentares),
		Alergias:              models.NewStringList(in.Alergias),
		Status:                orDefault(in.Status, "ativo"),
		NivelAdesao:           orDefault(in.NivelAdesao, "media"),
		KanbanStatus:          orDefault(in.KanbanStatus, models.KanbanInicial),
		LembretesAtivos:       true,
		Observacoes:           in.Observacoes,
	}
	if !pacienteStatuses[p.Status] {
		return nil, invalid("Status inválido")
	}
	if !niveisAdesao[p.NivelAdesao] {
		return nil, invalid("Nível de adesão inválido")
	}
	if in.DataNascimento != "" {
		d, err := utils.ParseDataFlex(in.DataNascimento)
		if err != nil {
			return nil, invalid("Data de nascimento inválida. Use DD/MM/AAAA")
		}
		p.DataNascimento = &d
	}
	if in.Senha != "" {
		hash, err := utils.HashPassword(in.Senha)
		if err != nil {
			return nil, err
		}
		p.SenhaHash = hash
	}

	if err := createPaciente(ctx, s.db, p); err != nil {
		return nil, err
	}
	v, err := utils.ToPacienteView(p)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *PacienteService) List(ctx context.Context, nutriID uuid.UUID, f PacienteFilter) ([]models.PacienteView, error) {
	q := s.db.WithContext(ctx).Where("nutricionista_id = ?", nutriID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Objetivo != "" {
		q = q.Where("objetivo = ?", f.Objetivo)
	}
	if f.NivelAdesao != "" {
		q = q.Where("nivel_adesao = ?", f.NivelAdesao)
	}
	if f.Busca != "" {
		like := "%" + strings.ToLower(f.Busca) + "%"
		q = q.Where("LOWER(nome) LIKE ? OR cpf LIKE ?", like, like)
	}

	var list []models.Paciente
	if err := q.Order("nome ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return utils.ToPacienteViews(list)
}

func (s *PacienteService) Get(ctx context.Context, nutriID, id uuid.UUID) (*models.PacienteView, error) {
	p, err := ownedPaciente(ctx, s.db, nutriID, id)
	if err != nil {
		return nil, err
	}
	v, err := utils.ToPacienteView(p)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Update applies a partial update. A body carrying only kanban_status or only status
// is written with a single owner-scoped UPDATE and answered with {id, field, updated}.
func (s *PacienteService) Update(ctx context.Context, nutriID, id uuid.UUID, raw map[string]any) (any, error) {
	if len(raw) == 1 {
		for _, field := range []string{"kanban_status", "status"} {
			if v, ok := raw[field]; ok {
				return s.updateField(ctx, nutriID, id, field, v)
			}
		}
	}

	body, err := json.Marshal(raw)
	if err != nil {
		return nil, invalid("Dados inválidos")
	}
	var in PacienteUpdate
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, invalid("Dados inválidos")
	}

	p, err := ownedPaciente(ctx, s.db, nutriID, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, p, in); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkUnique(tx, p.CPF, p.Email, p.ID); err != nil {
			return err
		}
		return tx.Save(p).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &ConflictError{Kind: ErrDuplicateCPF, Message: "CPF ou email já cadastrado"}
		}
		return nil, err
	}
	v, err := utils.ToPacienteView(p)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *PacienteService) updateField(ctx context.Context, nutriID, id uuid.UUID, field string, v any) (map[string]any, error) {
	val, ok := v.(string)
	if !ok || strings.TrimSpace(val) == "" {
		return nil, invalid(fmt.Sprintf("%s inválido", field))
	}
	if field == "status" && !pacienteStatuses[val] {
		return nil, invalid("Status inválido")
	}

	res := s.db.WithContext(ctx).Model(&models.Paciente{}).
		Where("id = ? AND nutricionista_id = ?", id, nutriID).
		Update(field, val)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return map[string]any{"id": id, field: val, "updated": true}, nil
}

func (s *PacienteService) apply(ctx context.Context, p *models.Paciente, in PacienteUpdate) error {
	if in.CPF != nil {
		cpf := utils.NormalizeCPF(*in.CPF)
		if !utils.ValidateCPF(cpf) {
			return ErrInvalidCPF
		}
		p.CPF = cpf
	}
	if in.Nome != nil {
		if strings.TrimSpace(*in.Nome) == "" {
			return invalid("Nome é obrigatório")
		}
		p.Nome = strings.TrimSpace(*in.Nome)
	}
	if in.Email != nil {
		p.Email = normalizeEmail(in.Email)
	}
	if in.Senha != nil && *in.Senha != "" {
		hash, err := utils.HashPassword(*in.Senha)
		if err != nil {
			return err
		}
		p.SenhaHash = hash
	}
	if in.DataNascimento != nil {
		if *in.DataNascimento == "" {
			p.DataNascimento = nil
		} else {
			d, err := utils.ParseDataFlex(*in.DataNascimento)
			if err != nil {
				return invalid("Data de nascimento inválida. Use DD/MM/AAAA")
			}
			p.DataNascimento = &d
		}
	}
	if in.Status != nil {
		if !pacienteStatuses[*in.Status] {
			return invalid("Status inválido")
		}
		p.Status = *in.Status
	}
	if in.NivelAdesao != nil {
		if !niveisAdesao[*in.NivelAdesao] {
			return invalid("Nível de adesão inválido")
		}
		p.NivelAdesao = *in.NivelAdesao
	}
	setIf(&p.Telefone, in.Telefone)
	setIf(&p.Sexo, in.Sexo)
	setIf(&p.Endereco, in.Endereco)
	setIf(&p.Objetivo, in.Objetivo)
	setIf(&p.KanbanStatus, in.KanbanStatus)
	setIf(&p.Observacoes, in.Observacoes)
	setIf(&p.DiasJornada, in.DiasJornada)
	setIf(&p.LembretesAtivos, in.LembretesAtivos)
	if in.AlturaCM != nil {
		p.AlturaCM = in.AlturaCM
	}
	if in.PesoAtualKG != nil {
		p.PesoAtualKG = in.PesoAtualKG
	}
	if in.PesoMetaKG != nil {
		p.PesoMetaKG = in.PesoMetaKG
	}
	if in.RestricoesAlimentares != nil {
		p.RestricoesAlimentares = models.NewStringList(*in.RestricoesAlimentares)
	}
	if in.Alergias != nil {
		p.Alergias = models.NewStringList(*in.Alergias)
	}
	if in.FotoBase64 != "" {
		if s.uploader == nil {
			return ErrNotConfigured
		}
		url, err := s.uploader.UploadBase64Image(ctx, in.FotoBase64, "pacientes/"+p.ID.String())
		if err != nil {
			return err
		}
		p.FotoURL = url
	}
	return nil
}

// Delete removes the patient; the database cascades to everything it owns.
func (s *PacienteService) Delete(ctx context.Context, nutriID, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Where("id = ? AND nutricionista_id = ?", id, nutriID).Delete(&models.Paciente{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

const (
	colNome           = "nome"
	colCPF            = "cpf"
	colEmail          = "email"
	colTelefone       = "telefone"
	colDataNascimento = "data_nascimento"
	colObjetivo       = "objetivo"
)

// Import reads the first sheet of an xlsx workbook. Rows that fail are reported, the rest are created.
func (s *PacienteService) Import(ctx context.Context, nutriID uuid.UUID, data []byte) (*ImportResult, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, invalid("Arquivo xlsx inválido")
	}
	if len(f.Sheets) == 0 || len(f.Sheets[0].Rows) == 0 {
		return nil, invalid("Planilha vazia")
	}

	sheet := f.Sheets[0]
	headers, missing := utils.CheckHeadersExcelRow(sheet.Rows[0], colNome, colCPF)
	if len(missing) > 0 {
		return nil, invalid("Colunas obrigatórias ausentes: " + strings.Join(missing, ", "))
	}

	result := &ImportResult{Erros: []ImportRowError{}}
	for i, row := range sheet.Rows[1:] {
		line := i + 2
		if row == nil || utils.IsEmptyExcelRow(row) {
			continue
		}
		in := PacienteInput{
			Nome:     utils.GetString(row, headers, colNome),
			CPF:      utils.GetString(row, headers, colCPF),
			Telefone: utils.GetString(row, headers, colTelefone),
			Objetivo: utils.GetString(row, headers, colObjetivo),
		}
		if email := utils.GetString(row, headers, colEmail); email != "" {
			in.Email = &email
		}
		nasc, err := utils.GetDate(row, headers, colDataNascimento)
		if err != nil {
			result.Erros = append(result.Erros, ImportRowError{Linha: line, Erro: "Data de nascimento inválida"})
			continue
		}
		if nasc != nil {
			in.DataNascimento = nasc.Format("2006-01-02")
		}

		if _, err := s.Create(ctx, nutriID, in); err != nil {
			if !isUserError(err) {
				return nil, err
			}
			result.Erros = append(result.Erros, ImportRowError{Linha: line, Erro: err.Error()})
			continue
		}
		result.Criados++
	}
	s.log.Info().Str("nutricionista_id", nutriID.String()).Int("criados", result.Criados).Int("erros", len(result.Erros)).Msg("pacientes import")
	return result, nil
}

func (s *PacienteService) Export(ctx context.Context, nutriID uuid.UUID, w io.Writer) error {
	var list []models.Paciente
	if err := s.db.WithContext(ctx).Where("nutricionista_id = ?", nutriID).Order("nome ASC").Find(&list).Error; err != nil {
		return err
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Pacientes")
	if err != nil {
		return err
	}
	utils.AddStringRow(sheet, colNome, colCPF, colEmail, colTelefone, colDataNascimento, colObjetivo, "status", "nivel_adesao")
	for _, p := range list {
		email, nasc := "", ""
		if p.Email != nil {
			email = *p.Email
		}
		if p.DataNascimento != nil {
			nasc = p.DataNascimento.Format("02/01/2006")
		}
		utils.AddStringRow(sheet, p.Nome, p.CPF, email, p.Telefone, nasc, p.Objetivo, p.Status, p.NivelAdesao)
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return err
	}
	_, err = w.Write(buf.Bytes())
	return err
}

func isUserError(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrInvalidCPF) ||
		errors.Is(err, ErrDuplicateCPF) || errors.Is(err, ErrDuplicateEmail)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
