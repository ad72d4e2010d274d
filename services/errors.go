package services

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidID          = errors.New("ID inválido")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCPF         = errors.New("CPF inválido")
	ErrDuplicateCPF       = errors.New("CPF já cadastrado")
	ErrDuplicateEmail     = errors.New("Email já cadastrado")
	ErrInvalidCredentials = errors.New("credenciais inválidas")
	ErrNoPhone            = errors.New("Paciente não possui telefone cadastrado")
	ErrGateway            = errors.New("upstream gateway error")
	ErrNotConfigured      = errors.New("integration not configured")
)

// ConflictError carries a user-facing duplicate message and matches ErrDuplicateCPF or ErrDuplicateEmail.
type ConflictError struct {
	Kind    error
	Message string
}

func (e *ConflictError) Error() string { return e.Message }
func (e *ConflictError) Unwrap() error { return e.Kind }

// InputError carries a user-facing validation message and matches ErrInvalidInput.
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }
func (e *InputError) Unwrap() error { return ErrInvalidInput }

func invalid(msg string) error { return &InputError{Message: msg} }

// ParseID turns a path parameter into a UUID or ErrInvalidID.
func ParseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, ErrInvalidID
	}
	return id, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
