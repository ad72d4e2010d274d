package controllers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nuttroadm/backendnuttro/middlewares"
	"github.com/nuttroadm/backendnuttro/services"
	"github.com/nuttroadm/backendnuttro/utils"
)

const (
	msgPacienteNotFound = "Paciente não encontrado"
	maxImportSize       = 10 << 20
	xlsxContentType     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type PacienteController struct {
	Pacientes *services.PacienteService
	Dashboard *services.DashboardService
}

func NewPacienteController(ps *services.PacienteService, ds *services.DashboardService) *PacienteController {
	return &PacienteController{Pacientes: ps, Dashboard: ds}
}

func (pc *PacienteController) Create(c *gin.Context) {
	var input services.PacienteInput
	if !bindJSON(c, &input) {
		return
	}
	nutri := middlewares.CurrentNutricionista(c)
	p, err := pc.Pacientes.Create(c.Request.Context(), nutri.ID, input)
	if err != nil {
		respondError(c, err, msgPacienteNotFound)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (pc *PacienteController) List(c *gin.Context) {
	var f services.PacienteFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	list, err := pc.Pacientes.List(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, f)
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (pc *PacienteController) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := pc.Pacientes.Get(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, id)
	if err != nil {
		respondError(c, err, msgPacienteNotFound)
		return
	}
	c.JSON(http.StatusOK, p)
}

// PUT /api/pacientes/:id takes a raw body so a kanban move can skip full validation.
func (pc *PacienteController) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var raw map[string]any
	if !bindJSON(c, &raw) {
		return
	}
	out, err := pc.Pacientes.Update(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, id, raw)
	if err != nil {
		respondError(c, err, msgPacienteNotFound)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (pc *PacienteController) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := pc.Pacientes.Delete(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, id); err != nil {
		respondError(c, err, msgPacienteNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Paciente excluído com sucesso"})
}

// POST /api/pacientes/import (multipart field "file")
func (pc *PacienteController) Import(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Arquivo não enviado"})
		return
	}
	if fh.Size > maxImportSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Arquivo muito grande"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, err, "")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		respondError(c, err, "")
		return
	}

	res, err := pc.Pacientes.Import(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, data)
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /api/pacientes/export
func (pc *PacienteController) Export(c *gin.Context) {
	filename := "pacientes_" + time.Now().Format("20060102") + ".xlsx"
	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := pc.Pacientes.Export(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, c.Writer); err != nil {
		respondError(c, err, "")
	}
}

// GET /api/pacientes/:id/evolucao?from=YYYY-MM-DD&to=YYYY-MM-DD, last 30 days by default.
func (pc *PacienteController) Evolucao(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -30)
	if v := c.Query("from"); v != "" {
		t, err := utils.ParseISO(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Data inicial inválida"})
			return
		}
		from = t
	}
	if v := c.Query("to"); v != "" {
		t, err := utils.ParseISO(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Data final inválida"})
			return
		}
		to = t
	}

	ev, err := pc.Dashboard.Evolucao(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, id, from, to)
	if err != nil {
		respondError(c, err, msgPacienteNotFound)
		return
	}
	c.JSON(http.StatusOK, ev)
}
