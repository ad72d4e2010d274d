package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nuttroadm/backendnuttro/models"
	"github.com/nuttroadm/backendnuttro/utils"
	"github.com/rs/zerolog"
	"google.golang.org/api/idtoken"
	"gorm.io/gorm"
)

// GoogleIdentity is the part of a verified Google ID token the backend uses.
type GoogleIdentity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

type GoogleVerifier interface {
	Verify(ctx context.Context, credential string) (*GoogleIdentity, error)
}

// IDTokenVerifier validates Google credentials against the configured client id.
type IDTokenVerifier struct {
	Audience string
}

func (v IDTokenVerifier) Verify(ctx context.Context, credential string) (*GoogleIdentity, error) {
	if v.Audience == "" {
		return nil, ErrNotConfigured
	}
	payload, err := idtoken.Validate(ctx, credential, v.Audience)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	claim := func(k string) string {
		s, _ := payload.Claims[k].(string)
		return s
	}
	return &GoogleIdentity{
		Subject: payload.Subject,
		Email:   claim("email"),
		Name:    claim("name"),
		Picture: claim("picture"),
	}, nil
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserType    string `json:"user_type"`
	User        any    `json:"user"`
}

type AuthService struct {
	db         *gorm.DB
	tokens     *utils.TokenIssuer
	google     GoogleVerifier
	adminEmail string
	log        zerolog.Logger
}

func NewAuthService(db *gorm.DB, tokens *utils.TokenIssuer, google GoogleVerifier, adminEmail string, log zerolog.Logger) *AuthService {
	return &AuthService{db: db, tokens: tokens, google: google, adminEmail: adminEmail, log: log}
}

type RegisterNutricionistaInput struct {
	Email string  `json:"email" binding:"required,email"`
	Nome  string  `json:"nome" binding:"required"`
	Senha string  `json:"senha" binding:"required"`
	CRN   *string `json:"crn"`
}

// LoginInput accepts both the web form names and the OAuth2 password-form names.
type LoginInput struct {
	Email    string `json:"email" form:"email"`
	Username string `json:"username" form:"username"`
	Senha    string `json:"senha" form:"senha"`
	Password string `json:"password" form:"password"`
}

func (in LoginInput) credentials() (string, string) {
	email := in.Email
	if email == "" {
		email = in.Username
	}
	senha := in.Senha
	if senha == "" {
		senha = in.Password
	}
	return strings.ToLower(strings.TrimSpace(email)), senha
}

type RegisterPacienteInput struct {
	CPF             string  `json:"cpf" binding:"required"`
	Nome            string  `json:"nome" binding:"required"`
	Email           *string `json:"email"`
	Senha           string  `json:"senha" binding:"required"`
	Telefone        string  `json:"telefone"`
	DataNascimento  string  `json:"data_nascimento"`
	Sexo            string  `json:"sexo"`
	Objetivo        string  `json:"objetivo"`
	NutricionistaID string  `json:"nutricionista_id"`
}

type PacienteLoginInput struct {
	CPF   string `json:"cpf" binding:"required"`
	Senha string `json:"senha" binding:"required"`
}

func (s *AuthService) issue(id uuid.UUID, principal string, user any) (*TokenResponse, error) {
	tok, err := s.tokens.Generate(id, principal)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &TokenResponse{AccessToken: tok, TokenType: "bearer", UserType: principal, User: user}, nil
}

func (s *AuthService) issueNutricionista(n *models.Nutricionista) (*TokenResponse, error) {
	v, err := utils.ToNutricionistaView(n)
	if err != nil {
		return nil, err
	}
	return s.issue(n.ID, utils.PrincipalNutricionista, v)
}

func (s *AuthService) issuePaciente(p *models.Paciente) (*TokenResponse, error) {
	v, err := utils.ToPacienteView(p)
	if err != nil {
		return nil, err
	}
	return s.issue(p.ID, utils.PrincipalPaciente, v)
}

func (s *AuthService) touchLogin(ctx context.Context, model any, id uuid.UUID) time.Time {
	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(model).Where("id = ?", id).Update("last_login_at", now).Error; err != nil {
		s.log.Warn().Err(err).Str("id", id.String()).Msg("update last_login_at")
	}
	return now
}

func (s *AuthService) RegisterNutricionista(ctx context.Context, in RegisterNutricionistaInput) (*TokenResponse, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Nutricionista{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, &ConflictError{Kind: ErrDuplicateEmail, Message: "Email já cadastrado"}
	}

	hash, err := utils.HashPassword(in.Senha)
	if err != nil {
		return nil, err
	}
	n := &models.Nutricionista{
		Email:          email,
		Nome:           strings.TrimSpace(in.Nome),
		SenhaHash:      hash,
		Especialidades: models.NewStringList(nil),
		Ativo:          true,
		Plano:          "free",
	}
	if in.CRN != nil && strings.TrimSpace(*in.CRN) != "" {
		crn := strings.TrimSpace(*in.CRN)
		n.CRN = &crn
	}
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &ConflictError{Kind: ErrDuplicateEmail, Message: "Email ou CRN já cadastrado"}
		}
		return nil, err
	}
	return s.issueNutricionista(n)
}

func (s *AuthService) LoginNutricionista(ctx context.Context, in LoginInput) (*TokenResponse, error) {
	email, senha := in.credentials()
	if email == "" || senha == "" {
		return nil, ErrInvalidCredentials
	}

	var n models.Nutricionista
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !n.Ativo || !utils.CheckPasswordHash(senha, n.SenhaHash) {
		return nil, ErrInvalidCredentials
	}

	now := s.touchLogin(ctx, &models.Nutricionista{}, n.ID)
	n.LastLoginAt = &now
	return s.issueNutricionista(&n)
}

// GoogleLogin signs in with a Google credential, linking an existing account by email
// or creating a new one.
func (s *AuthService) GoogleLogin(ctx context.Context, credential string) (*TokenResponse, error) {
	if s.google == nil {
		return nil, ErrNotConfigured
	}
	ident, err := s.google.Verify(ctx, credential)
	if err != nil {
		return nil, err
	}
	if ident.Email == "" {
		return nil, ErrInvalidCredentials
	}
	email := strings.ToLower(ident.Email)

	var n models.Nutricionista
	err = s.db.WithContext(ctx).Where("google_id = ?", ident.Subject).Or("email = ?", email).First(&n).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		nome := ident.Name
		if nome == "" {
			nome, _, _ = strings.Cut(email, "@")
		}
		sub := ident.Subject
		n = models.Nutricionista{
			Email:          email,
			Nome:           nome,
			GoogleID:       &sub,
			FotoURL:        ident.Picture,
			Especialidades: models.NewStringList(nil),
			Ativo:          true,
			Plano:          "free",
		}
		if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if !n.Ativo {
			return nil, ErrInvalidCredentials
		}
		updates := map[string]any{}
		if n.GoogleID == nil {
			updates["google_id"] = ident.Subject
		}
		if n.FotoURL == "" && ident.Picture != "" {
			updates["foto_url"] = ident.Picture
		}
		if len(updates) > 0 {
			if err := s.db.WithContext(ctx).Model(&n).Updates(updates).Error; err != nil {
				return nil, err
			}
		}
	}

	now := s.touchLogin(ctx, &models.Nutricionista{}, n.ID)
	n.LastLoginAt = &now
	return s.issueNutricionista(&n)
}

// resolveOwner picks the nutritionist a self-registered patient belongs to.
func (s *AuthService) resolveOwner(ctx context.Context, raw string) (uuid.UUID, error) {
	var n models.Nutricionista
	q := s.db.WithContext(ctx)
	if raw != "" {
		id, err := ParseID(raw)
		if err != nil {
			return uuid.Nil, err
		}
		q = q.Where("id = ?", id)
	} else {
		q = q.Where("email = ?", s.adminEmail)
	}
	if err := q.First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, invalid("Nutricionista não encontrado")
		}
		return uuid.Nil, err
	}
	return n.ID, nil
}

func (s *AuthService) RegisterPaciente(ctx context.Context, in RegisterPacienteInput) (*TokenResponse, error) {
	cpf := utils.NormalizeCPF(in.CPF)
	if !utils.ValidateCPF(cpf) {
		return nil, ErrInvalidCPF
	}
	owner, err := s.resolveOwner(ctx, in.NutricionistaID)
	if err != nil {
		return nil, err
	}

	p := &models.Paciente{
		NutricionistaID:       owner,
		CPF:                   cpf,
		Email:                 normalizeEmail(in.Email),
		Nome:                  strings.TrimSpace(in.Nome),
		Telefone:              in.Telefone,
		Sexo:                  in.Sexo,
		Objetivo:              in.Objetivo,
		RestricoesAlimentares: models.NewStringList(nil),
		Alergias:              models.NewStringList(nil),
		Status:                "novo",
		NivelAdesao:           "media",
		KanbanStatus:          models.KanbanInicial,
		LembretesAtivos:       true,
	}
	if in.DataNascimento != "" {
		d, err := utils.ParseDataFlex(in.DataNascimento)
		if err != nil {
			return nil, invalid("Data de nascimento inválida. Use DD/MM/AAAA")
		}
		p.DataNascimento = &d
	}
	if p.SenhaHash, err = utils.HashPassword(in.Senha); err != nil {
		return nil, err
	}

	if err := createPaciente(ctx, s.db, p); err != nil {
		return nil, err
	}
	return s.issuePaciente(p)
}

func (s *AuthService) LoginPaciente(ctx context.Context, in PacienteLoginInput) (*TokenResponse, error) {
	cpf := utils.NormalizeCPF(in.CPF)
	var p models.Paciente
	if err := s.db.WithContext(ctx).Where("cpf = ?", cpf).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !utils.CheckPasswordHash(in.Senha, p.SenhaHash) {
		return nil, ErrInvalidCredentials
	}

	now := s.touchLogin(ctx, &models.Paciente{}, p.ID)
	p.LastLoginAt = &now
	return s.issuePaciente(&p)
}

// Principal loaders used by the auth middleware.

func (s *AuthService) Nutricionista(ctx context.Context, id uuid.UUID) (*models.Nutricionista, error) {
	var n models.Nutricionista
	if err := s.db.WithContext(ctx).Where("id = ? AND ativo = ?", id, true).First(&n).Error; err != nil {
		return nil, notFound(err)
	}
	return &n, nil
}

func (s *AuthService) Paciente(ctx context.Context, id uuid.UUID) (*models.Paciente, error) {
	var p models.Paciente
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *AuthService) Tokens() *utils.TokenIssuer { return s.tokens }

func normalizeEmail(e *string) *string {
	if e == nil {
		return nil
	}
	v := strings.ToLower(strings.TrimSpace(*e))
	if v == "" {
		return nil
	}
	return &v
}
