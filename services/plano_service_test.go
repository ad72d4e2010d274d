package services

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/nuttroadm/backendnuttro/agents"
	"github.com/nuttroadm/backendnuttro/models"
	"github.com/rs/zerolog"
)

func TestPlanoService_OnlyOneActivePlano(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	n := seedNutricionista(t, db, "a@test.com")
	p := seedPaciente(t, db, n.ID, cpfA, "")
	svc := NewPlanoService(db, agents.New(nil, agents.Options{Logger: zerolog.Nop()}))

	first, err := svc.Create(ctx, n.ID, p.ID, PlanoInput{Titulo: "Plano 1"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Create(ctx, n.ID, p.ID, PlanoInput{Titulo: "Plano 2"})
	if err != nil {
		t.Fatal(err)
	}

	active, err := ActivePlano(ctx, db, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if active.ID != second.ID {
		t.Fatalf("active = %s, want %s", active.ID, second.ID)
	}
	reloaded, _ := svc.Get(ctx, n.ID, first.ID)
	if reloaded.Ativo {
		t.Fatal("first plan still active")
	}

	inactive := false
	if _, err := svc.Create(ctx, n.ID, p.ID, PlanoInput{Titulo: "Rascunho", Ativo: &inactive}); err != nil {
		t.Fatal(err)
	}
	if active, _ = ActivePlano(ctx, db, p.ID); active.ID != second.ID {
		t.Fatal("inactive draft replaced the active plan")
	}

	on := true
	if _, err := svc.Update(ctx, n.ID, first.ID, PlanoInput{Ativo: &on}); err != nil {
		t.Fatal(err)
	}
	if active, _ = ActivePlano(ctx, db, p.ID); active.ID != first.ID {
		t.Fatal("reactivated plan is not the active one")
	}
}

func TestPlanoService_OwnerChecks(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	n := seedNutricionista(t, db, "a@test.com")
	other := seedNutricionista(t, db, "b@test.com")
	p := seedPaciente(t, db, n.ID, cpfA, "")
	svc := NewPlanoService(db, agents.New(nil, agents.Options{Logger: zerolog.Nop()}))

	if _, err := svc.Create(ctx, other.ID, p.ID, PlanoInput{Titulo: "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign create: err = %v", err)
	}
	if _, err := svc.Create(ctx, n.ID, p.ID, PlanoInput{Titulo: " "}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank title: err = %v", err)
	}
	plano, err := svc.Create(ctx, n.ID, p.ID, PlanoInput{Titulo: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx, other.ID, plano.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign get: err = %v", err)
	}
	if err := svc.Delete(ctx, other.ID, plano.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign delete: err = %v", err)
	}
}

func TestPlanoService_GerarFallsBackAndActivates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	n := seedNutricionista(t, db, "a@test.com")
	p := seedPaciente(t, db, n.ID, cpfA, "")
	svc := NewPlanoService(db, agents.New(nil, agents.Options{Logger: zerolog.Nop()}))

	res, err := svc.Gerar(ctx, n.ID, p.ID, GerarPlanoInput{Objetivo: "emagrecimento"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Plano.GeradoPorIA || !res.Plano.Ativo || res.Plano.Objetivo != "emagrecimento" {
		t.Fatalf("plano = %+v", res.Plano)
	}
	if res.Plano.CaloriasDiarias == nil || *res.Plano.CaloriasDiarias != 1800 {
		t.Fatalf("calorias = %v", res.Plano.CaloriasDiarias)
	}

	if _, err := svc.Gerar(ctx, n.ID, p.ID, GerarPlanoInput{ConsultaID: "nope"}); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("bad consulta id: err = %v", err)
	}
}

func TestPlanoService_PDF(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	n := seedNutricionista(t, db, "a@test.com")
	p := seedPaciente(t, db, n.ID, cpfA, "")
	svc := NewPlanoService(db, agents.New(nil, agents.Options{Logger: zerolog.Nop()}))
	res, err := svc.Gerar(ctx, n.ID, p.ID, GerarPlanoInput{})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	name, err := svc.PDF(ctx, n, res.Plano.ID, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Fatal("output is not a PDF")
	}
	if name != "plano_"+res.Plano.ID.String()[:8]+".pdf" {
		t.Fatalf("name = %q", name)
	}
}

func TestStatusService_DefaultsAndOrdering(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	n := seedNutricionista(t, db, "a@test.com")
	svc := NewStatusService(db)

	nome := "Em negociação"
	st, err := svc.Create(ctx, n.ID, StatusInput{Nome: &nome})
	if err != nil {
		t.Fatal(err)
	}
	if st.Cor != defaultStatusCor || st.Ordem != 1 || !st.Ativo {
		t.Fatalf("status = %+v", st)
	}
	nome2 := "Fechado"
	st2, _ := svc.Create(ctx, n.ID, StatusInput{Nome: &nome2})
	if st2.Ordem != 2 {
		t.Fatalf("ordem = %d", st2.Ordem)
	}

	off := false
	if _, err := svc.Update(ctx, n.ID, st2.ID, StatusInput{Ativo: &off}); err != nil {
		t.Fatal(err)
	}
	list, err := svc.List(ctx, n.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != len(builtinStatuses)+1 || !list[0].Padrao || list[len(list)-1].Nome != nome {
		t.Fatalf("list = %+v", list)
	}

	empty := ""
	if _, err := svc.Create(ctx, n.ID, StatusInput{Nome: &empty}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank nome: err = %v", err)
	}
	if err := svc.Delete(ctx, seedNutricionista(t, db, "b@test.com").ID, st.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign delete: err = %v", err)
	}
	var count int64
	db.Model(&models.StatusPersonalizado{}).Count(&count)
	if count != 2 {
		t.Fatalf("count = %d", count)
	}
}
