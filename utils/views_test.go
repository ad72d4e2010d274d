package utils

import (
	"testing"

	"github.com/google/uuid"
	"github.com/nuttroadm/backendnuttro/models"
)

func TestToPacienteView(t *testing.T) {
	p := &models.Paciente{
		Base:                  models.Base{ID: uuid.New()},
		Nome:                  "Ana",
		SenhaHash:             "hash",
		Alergias:              models.NewStringList([]string{"amendoim"}),
		RestricoesAlimentares: models.NewStringList(nil),
		KanbanStatus:          models.KanbanInicial,
	}

	v, err := ToPacienteView(p)
	if err != nil {
		t.Fatal(err)
	}
	if v.ID != p.ID || v.Nome != "Ana" || v.KanbanStatus != models.KanbanInicial {
		t.Fatalf("view = %+v", v)
	}
	if len(v.Alergias) != 1 || v.Alergias[0] != "amendoim" {
		t.Fatalf("alergias = %v", v.Alergias)
	}
	if v.RestricoesAlimentares == nil {
		t.Fatal("empty list should not be nil")
	}
}

func TestToPacienteViewsEmpty(t *testing.T) {
	list, err := ToPacienteViews(nil)
	if err != nil {
		t.Fatal(err)
	}
	if list == nil || len(list) != 0 {
		t.Fatalf("list = %#v", list)
	}
}

func TestToNutricionistaView(t *testing.T) {
	crn := "CRN-3 12345"
	n := &models.Nutricionista{Base: models.Base{ID: uuid.New()}, Email: "a@test.com", CRN: &crn, SenhaHash: "hash"}
	v, err := ToNutricionistaView(n)
	if err != nil {
		t.Fatal(err)
	}
	if v.ID != n.ID || v.Email != "a@test.com" || v.CRN == nil || *v.CRN != crn {
		t.Fatalf("view = %+v", v)
	}
	if v.Especialidades == nil {
		t.Fatal("especialidades should be an empty list")
	}
}
