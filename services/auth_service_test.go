package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nuttroadm/backendnuttro/models"
	"github.com/nuttroadm/backendnuttro/utils"
	"github.com/rs/zerolog"
)

type fakeGoogle struct {
	ident *GoogleIdentity
	err   error
}

func (f fakeGoogle) Verify(context.Context, string) (*GoogleIdentity, error) { return f.ident, f.err }

func newAuth(t *testing.T, google GoogleVerifier) (*AuthService, *utils.TokenIssuer) {
	t.Helper()
	tokens := utils.NewTokenIssuer("test-secret", time.Hour)
	return NewAuthService(newTestDB(t), tokens, google, "admin@nuttro.com", zerolog.Nop()), tokens
}

func TestAuthService_RegisterAndLoginNutricionista(t *testing.T) {
	auth, tokens := newAuth(t, nil)
	ctx := context.Background()

	res, err := auth.RegisterNutricionista(ctx, RegisterNutricionistaInput{Email: " Nutri@Test.com ", Nome: "Nutri", Senha: "s3nha"})
	if err != nil {
		t.Fatal(err)
	}
	if res.TokenType != "bearer" || res.UserType != utils.PrincipalNutricionista {
		t.Fatalf("res = %+v", res)
	}
	if _, typ, err := tokens.Parse(res.AccessToken); err != nil || typ != utils.PrincipalNutricionista {
		t.Fatalf("token: typ=%q err=%v", typ, err)
	}

	if _, err := auth.RegisterNutricionista(ctx, RegisterNutricionistaInput{Email: "nutri@test.com", Nome: "X", Senha: "y"}); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("duplicate: err = %v", err)
	}

	// OAuth2 password-form field names
	if _, err := auth.LoginNutricionista(ctx, LoginInput{Username: "NUTRI@test.com", Password: "s3nha"}); err != nil {
		t.Fatal(err)
	}
	if _, err := auth.LoginNutricionista(ctx, LoginInput{Email: "nutri@test.com", Senha: "errada"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: err = %v", err)
	}
	if _, err := auth.LoginNutricionista(ctx, LoginInput{Email: "ghost@test.com", Senha: "x"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: err = %v", err)
	}
}

func TestAuthService_PacienteSelfRegisterDefaultsToAdmin(t *testing.T) {
	auth, tokens := newAuth(t, nil)
	ctx := context.Background()

	if _, err := auth.RegisterPaciente(ctx, RegisterPacienteInput{CPF: cpfA, Nome: "Ana", Senha: "123"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("without admin: err = %v", err)
	}

	admin := seedNutricionista(t, auth.db, "admin@nuttro.com")
	res, err := auth.RegisterPaciente(ctx, RegisterPacienteInput{CPF: "529.982.247-25", Nome: "Ana", Senha: "123"})
	if err != nil {
		t.Fatal(err)
	}
	v := res.User.(models.PacienteView)
	if v.NutricionistaID != admin.ID || v.Status != "novo" || v.KanbanStatus != models.KanbanInicial {
		t.Fatalf("view = %+v", v)
	}

	login, err := auth.LoginPaciente(ctx, PacienteLoginInput{CPF: "529.982.247-25", Senha: "123"})
	if err != nil {
		t.Fatal(err)
	}
	if _, typ, _ := tokens.Parse(login.AccessToken); typ != utils.PrincipalPaciente {
		t.Fatalf("typ = %q", typ)
	}
	if _, err := auth.LoginPaciente(ctx, PacienteLoginInput{CPF: cpfA, Senha: "x"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: err = %v", err)
	}

	if _, err := auth.RegisterPaciente(ctx, RegisterPacienteInput{CPF: cpfA, Nome: "Dup", Senha: "1"}); !errors.Is(err, ErrDuplicateCPF) {
		t.Fatalf("duplicate cpf: err = %v", err)
	}
	if _, err := auth.RegisterPaciente(ctx, RegisterPacienteInput{CPF: cpfB, Nome: "B", Senha: "1", NutricionistaID: "x"}); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("bad owner id: err = %v", err)
	}
}

func TestAuthService_GoogleLoginLinksByEmail(t *testing.T) {
	auth, _ := newAuth(t, fakeGoogle{ident: &GoogleIdentity{Subject: "g-1", Email: "Nutri@Test.com", Picture: "https://pic"}})
	ctx := context.Background()
	existing := seedNutricionista(t, auth.db, "nutri@test.com")

	res, err := auth.GoogleLogin(ctx, "credential")
	if err != nil {
		t.Fatal(err)
	}
	if v := res.User.(models.NutricionistaView); v.ID != existing.ID {
		t.Fatalf("linked to %s, want %s", v.ID, existing.ID)
	}
	var n models.Nutricionista
	auth.db.First(&n, "id = ?", existing.ID)
	if n.GoogleID == nil || *n.GoogleID != "g-1" || n.FotoURL != "https://pic" {
		t.Fatalf("not linked: %+v", n)
	}

	fresh, _ := newAuth(t, fakeGoogle{ident: &GoogleIdentity{Subject: "g-2", Email: "novo@test.com"}})
	res, err = fresh.GoogleLogin(ctx, "credential")
	if err != nil {
		t.Fatal(err)
	}
	if v := res.User.(models.NutricionistaView); v.Nome != "novo" {
		t.Fatalf("new account nome = %q", v.Nome)
	}

	disabled, _ := newAuth(t, nil)
	if _, err := disabled.GoogleLogin(ctx, "x"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v", err)
	}
}
