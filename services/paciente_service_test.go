package services

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nuttroadm/backendnuttro/models"
	"github.com/rs/zerolog"
	"github.com/tealeg/xlsx"
)

const (
	cpfA = "52998224725"
	cpfB = "11144477735"
)

func TestPacienteService_CreateRejectsDuplicateCPFWithoutRow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	n := seedNutricionista(t, db, "a@test.com")
	svc := NewPacienteService(db, nil, zerolog.Nop())

	v, err := svc.Create(ctx, n.ID, PacienteInput{CPF: "529.982.247-25", Nome: " Ana "})
	if err != nil {
		t.Fatal(err)
	}
	if v.CPF != cpfA || v.Nome != "Ana" || v.Status != "ativo" || !v.LembretesAtivos || v.KanbanStatus != models.KanbanInicial {
		t.Fatalf("unexpected view: %+v", v)
	}
	if v.RestricoesAlimentares == nil {
		t.Fatal("restricoes should be an empty list, not nil")
	}

	_, err = svc.Create(ctx, n.ID, PacienteInput{CPF: cpfA, Nome: "Outra"})
	if !errors.Is(err, ErrDuplicateCPF) {
		t.Fatalf("err = %v, want duplicate CPF", err)
	}

	var count int64
	db.Model(&models.Paciente{}).Count(&count)
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}

func TestPacienteService_CreateValidation(t *testing.T) {
	db := newTestDB(t)
	n := seedNutricionista(t, db, "a@test.com")
	svc := NewPacienteService(db, nil, zerolog.Nop())
	ctx := context.Background()

	if _, err := svc.Create(ctx, n.ID, PacienteInput{CPF: "123", Nome: "X"}); !errors.Is(err, ErrInvalidCPF) {
		t.Fatalf("bad cpf: err = %v", err)
	}
	if _, err := svc.Create(ctx, n.ID, PacienteInput{CPF: cpfA, Nome: "X", DataNascimento: "1990/01/01"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bad date: err = %v", err)
	}
	if _, err := svc.Create(ctx, n.ID, PacienteInput{CPF: cpfA, Nome: "X", Status: "sumido"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bad status: err = %v", err)
	}
	v, err := svc.Create(ctx, n.ID, PacienteInput{CPF: cpfA, Nome: "X", DataNascimento: "05/01/1990"})
	if err != nil {
		t.Fatal(err)
	}
	if v.DataNascimento == nil || v.DataNascimento.Year() != 1990 {
		t.Fatalf("data_nascimento = %v", v.DataNascimento)
	}
}

func TestPacienteService_FastPathUpdateIsOwnerScoped(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := seedNutricionista(t, db, "owner@test.com")
	other := seedNutricionista(t, db, "other@test.com")
	p := seedPaciente(t, db, owner.ID, cpfA, "")
	svc := NewPacienteService(db, nil, zerolog.Nop())

	out, err := svc.Update(ctx, owner.ID, p.ID, map[string]any{"kanban_status": "em_acompanhamento"})
	if err != nil {
		t.Fatal(err)
	}
	m, ok := out.(map[string]any)
	if !ok || m["updated"] != true || m["kanban_status"] != "em_acompanhamento" {
		t.Fatalf("fast path result = %#v", out)
	}

	if _, err := svc.Update(ctx, other.ID, p.ID, map[string]any{"kanban_status": "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign owner: err = %v", err)
	}
	if _, err := svc.Update(ctx, owner.ID, p.ID, map[string]any{"status": "sumido"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bad status: err = %v", err)
	}

	var got models.Paciente
	db.First(&got, "id = ?", p.ID)
	if got.KanbanStatus != "em_acompanhamento" {
		t.Fatalf("kanban_status = %q", got.KanbanStatus)
	}
}

func TestPacienteService_PartialUpdate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	n := seedNutricionista(t, db, "a@test.com")
	p := seedPaciente(t, db, n.ID, cpfA, "")
	seedPaciente(t, db, n.ID, cpfB, "")
	svc := NewPacienteService(db, nil, zerolog.Nop())

	out, err := svc.Update(ctx, n.ID, p.ID, map[string]any{
		"nome":             "Novo Nome",
		"lembretes_ativos": false,
		"alergias":         []any{"amendoim"},
	})
	if err != nil {
		t.Fatal(err)
	}
	v := out.(*models.PacienteView)
	if v.Nome != "Novo Nome" || v.LembretesAtivos || len(v.Alergias) != 1 {
		t.Fatalf("view = %+v", v)
	}

	_, err = svc.Update(ctx, n.ID, p.ID, map[string]any{"cpf": cpfB, "nome": "X"})
	if !errors.Is(err, ErrDuplicateCPF) {
		t.Fatalf("cpf collision: err = %v", err)
	}

	_, err = svc.Update(ctx, n.ID, p.ID, map[string]any{"foto_base64": "data:image/png;base64,AAAA", "nome": "Y"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("photo without uploader: err = %v", err)
	}
}

func TestPacienteService_DeleteCascades(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	n := seedNutricionista(t, db, "a@test.com")
	p := seedPaciente(t, db, n.ID, cpfA, "11987654321")
	now := time.Now().UTC()

	conversa := &models.Conversa{NutricionistaID: n.ID, PacienteID: &p.ID, Telefone: "5511987654321"}
	agendamento := &models.Agendamento{NutricionistaID: n.ID, PacienteID: &p.ID, DataHora: now.Add(time.Hour)}
	for _, row := range []any{
		&models.CheckIn{PacienteID: p.ID, Data: now},
		&models.Meta{PacienteID: p.ID, Titulo: "Beber água", Tipo: "hidratacao", Status: "ativa"},
		&models.Refeicao{PacienteID: p.ID, Tipo: "almoco", DataHora: now, Descricao: "arroz"},
		&models.Consulta{PacienteID: p.ID, NutricionistaID: n.ID, DataConsulta: now},
		&models.ChatMessage{PacienteID: p.ID, Role: "user", Content: "oi"},
		agendamento,
		conversa,
	} {
		if err := db.Create(row).Error; err != nil {
			t.Fatalf("seed %T: %v", row, err)
		}
	}
	mensagem := &models.Mensagem{ConversaID: conversa.ID, NutricionistaID: n.ID, PacienteID: &p.ID, Remetente: "paciente", Conteudo: "oi"}
	if err := db.Create(mensagem).Error; err != nil {
		t.Fatal(err)
	}
	svc := NewPacienteService(db, nil, zerolog.Nop())

	if err := svc.Delete(ctx, seedNutricionista(t, db, "b@test.com").ID, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign delete: err = %v", err)
	}
	if err := svc.Delete(ctx, n.ID, p.ID); err != nil {
		t.Fatal(err)
	}

	for _, m := range []any{&models.CheckIn{}, &models.Meta{}, &models.Refeicao{}, &models.Consulta{}, &models.ChatMessage{}} {
		var count int64
		db.Model(m).Count(&count)
		if count != 0 {
			t.Errorf("%T rows left behind: %d", m, count)
		}
	}

	// scheduling and messaging history stay, detached from the patient
	var ag models.Agendamento
	if err := db.First(&ag, "id = ?", agendamento.ID).Error; err != nil || ag.PacienteID != nil {
		t.Errorf("agendamento = %+v, err = %v", ag.PacienteID, err)
	}
	var conv models.Conversa
	if err := db.First(&conv, "id = ?", conversa.ID).Error; err != nil || conv.PacienteID != nil {
		t.Errorf("conversa = %+v, err = %v", conv.PacienteID, err)
	}
	var msg models.Mensagem
	if err := db.First(&msg, "id = ?", mensagem.ID).Error; err != nil || msg.PacienteID != nil {
		t.Errorf("mensagem = %+v, err = %v", msg.PacienteID, err)
	}
}

func TestNutricionistaDeleteCascades(t *testing.T) {
	db := newTestDB(t)
	n := seedNutricionista(t, db, "a@test.com")
	keep := seedNutricionista(t, db, "b@test.com")
	p := seedPaciente(t, db, n.ID, cpfA, "")
	kept := seedPaciente(t, db, keep.ID, cpfB, "")
	now := time.Now().UTC()

	for _, row := range []any{
		&models.Consulta{PacienteID: p.ID, NutricionistaID: n.ID, DataConsulta: now},
		&models.Agendamento{NutricionistaID: n.ID, PacienteID: &p.ID, DataHora: now},
		&models.Agendamento{NutricionistaID: n.ID, DataHora: now},
		&models.StatusPersonalizado{NutricionistaID: n.ID, Nome: "VIP", Ativo: true},
		&models.CheckIn{PacienteID: p.ID, Data: now},
		&models.Agendamento{NutricionistaID: keep.ID, PacienteID: &kept.ID, DataHora: now},
	} {
		if err := db.Create(row).Error; err != nil {
			t.Fatalf("seed %T: %v", row, err)
		}
	}

	if err := db.Delete(&models.Nutricionista{}, "id = ?", n.ID).Error; err != nil {
		t.Fatal(err)
	}

	checks := []struct {
		model any
		want  int64
	}{
		{&models.Paciente{}, 1},
		{&models.Consulta{}, 0},
		{&models.Agendamento{}, 1},
		{&models.StatusPersonalizado{}, 0},
		{&models.CheckIn{}, 0},
	}
	for _, c := range checks {
		var count int64
		db.Model(c.model).Count(&count)
		if count != c.want {
			t.Errorf("%T count = %d, want %d", c.model, count, c.want)
		}
	}
	var left models.Paciente
	if err := db.First(&left).Error; err != nil || left.ID != kept.ID {
		t.Fatalf("remaining paciente = %v, err = %v", left.ID, err)
	}
}

func TestPacienteService_ListFilters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	n := seedNutricionista(t, db, "a@test.com")
	other := seedNutricionista(t, db, "b@test.com")
	seedPaciente(t, db, n.ID, cpfA, "")
	seedPaciente(t, db, other.ID, cpfB, "")
	svc := NewPacienteService(db, nil, zerolog.Nop())

	list, err := svc.List(ctx, n.ID, PacienteFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].CPF != cpfA {
		t.Fatalf("list = %+v", list)
	}
	list, _ = svc.List(ctx, n.ID, PacienteFilter{Busca: "paciente " + cpfA[:4]})
	if len(list) != 1 {
		t.Fatalf("busca: %d results", len(list))
	}
	list, _ = svc.List(ctx, n.ID, PacienteFilter{Status: "inativo"})
	if len(list) != 0 {
		t.Fatalf("status filter: %d results", len(list))
	}
}

func buildWorkbook(t *testing.T, rows ...[]string) []byte {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Pacientes")
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range rows {
		row := sheet.AddRow()
		for _, v := range r {
			row.AddCell().SetString(v)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestPacienteService_ImportReportsRowErrors(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	n := seedNutricionista(t, db, "a@test.com")
	svc := NewPacienteService(db, nil, zerolog.Nop())

	data := buildWorkbook(t,
		[]string{"Nome", "CPF", "Email", "Data_Nascimento"},
		[]string{"Ana", "529.982.247-25", "ana@test.com", "05/01/1990"},
		[]string{"", "", "", ""},
		[]string{"Bruno", "123", "", ""},
		[]string{"Carla", cpfA, "", ""},
		[]string{"Davi", cpfB, "", "ontem"},
	)
	res, err := svc.Import(ctx, n.ID, data)
	if err != nil {
		t.Fatal(err)
	}
	if res.Criados != 1 {
		t.Fatalf("criados = %d", res.Criados)
	}
	if len(res.Erros) != 3 {
		t.Fatalf("erros = %+v", res.Erros)
	}
	if res.Erros[0].Linha != 4 {
		t.Fatalf("first error line = %d, want 4", res.Erros[0].Linha)
	}

	if _, err := svc.Import(ctx, n.ID, buildWorkbook(t, []string{"nome"})); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing cpf column: err = %v", err)
	}
	if _, err := svc.Import(ctx, n.ID, []byte("not a workbook")); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("garbage: err = %v", err)
	}
}

func TestPacienteService_ExportWritesHeaderAndRows(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	src := seedNutricionista(t, db, "a@test.com")
	seedPaciente(t, db, src.ID, cpfA, "11987654321")
	svc := NewPacienteService(db, nil, zerolog.Nop())

	var buf bytes.Buffer
	if err := svc.Export(ctx, src.ID, &buf); err != nil {
		t.Fatal(err)
	}
	f, err := xlsx.OpenBinary(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	rows := f.Sheets[0].Rows
	if len(rows) != 2 || rows[1].Cells[1].String() != cpfA {
		t.Fatalf("exported %d rows", len(rows))
	}
}
