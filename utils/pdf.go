package utils

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/nuttroadm/backendnuttro/models"
)

// RenderPlanoPDF writes a printable meal plan for the patient.
func RenderPlanoPDF(w io.Writer, plano *models.PlanoAlimentar, pacienteNome, nutricionistaNome string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetAutoPageBreak(true, 20)

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 10, tr(fmt.Sprintf("%s · gerado em %s", nutricionistaNome, time.Now().Format("02/01/2006"))), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 10, fmt.Sprintf("%d", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 10, tr(plano.Titulo), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 7, tr("Paciente: "+pacienteNome), "", 1, "L", false, 0, "")
	if plano.Objetivo != "" {
		pdf.CellFormat(0, 7, tr("Objetivo: "+plano.Objetivo), "", 1, "L", false, 0, "")
	}
	if plano.CaloriasDiarias != nil {
		pdf.CellFormat(0, 7, tr(fmt.Sprintf("Calorias diárias: %d kcal", *plano.CaloriasDiarias)), "", 1, "L", false, 0, "")
	}
	m := plano.MacrosAlvo.Data()
	pdf.CellFormat(0, 7, tr(fmt.Sprintf("Proteínas %.0fg · Carboidratos %.0fg · Gorduras %.0fg · Fibras %.0fg",
		m.ProteinasG, m.CarboidratosG, m.GordurasG, m.FibrasG)), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	for _, ref := range plano.Refeicoes.Data() {
		pdf.SetFont("Arial", "B", 13)
		title := ref.Tipo
		if ref.Horario != "" {
			title = ref.Horario + " · " + title
		}
		pdf.CellFormat(0, 8, tr(title), "B", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		for _, a := range ref.Alimentos {
			pdf.CellFormat(110, 6, tr(a.Nome), "", 0, "L", false, 0, "")
			pdf.CellFormat(45, 6, tr(a.Quantidade), "", 0, "L", false, 0, "")
			pdf.CellFormat(0, 6, fmt.Sprintf("%d kcal", a.Calorias), "", 1, "R", false, 0, "")
		}
		if ref.Observacoes != "" {
			pdf.SetFont("Arial", "I", 9)
			pdf.MultiCell(0, 5, tr(ref.Observacoes), "", "L", false)
		}
		pdf.Ln(3)
	}

	if orient := plano.Orientacoes.Data(); len(orient) > 0 {
		pdf.SetFont("Arial", "B", 13)
		pdf.CellFormat(0, 8, tr("Orientações"), "B", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		for _, o := range orient {
			pdf.MultiCell(0, 6, tr("- "+o), "", "L", false)
		}
	}
	if obs := strings.TrimSpace(plano.Observacoes); obs != "" {
		pdf.Ln(3)
		pdf.SetFont("Arial", "I", 10)
		pdf.MultiCell(0, 6, tr(obs), "", "L", false)
	}

	return pdf.Output(w)
}
