package agents

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Call kinds stored in ia_historico.tipo.
const (
	KindAnaliseRefeicao = "analise_refeicao"
	KindVisaoRefeicao   = "visao_refeicao"
	KindChat            = "chat"
	KindCheckin         = "checkin_analysis"
	KindInsight         = "consulta_insight"
	KindPlano           = "plano_alimentar"
)

type Call struct {
	Kind            string
	PacienteID      *uuid.UUID
	NutricionistaID *uuid.UUID
	Input           any
	Output          string
	Model           string
	Tokens          int
	Latency         time.Duration
	Err             error
}

// Recorder persists Call records. Implementations must not block the caller on failure.
type Recorder interface {
	Record(ctx context.Context, call Call)
}

type scopeKey struct{}

type scope struct {
	pacienteID      *uuid.UUID
	nutricionistaID *uuid.UUID
}

// WithScope tags every call made with ctx with the owning paciente and nutricionista.
func WithScope(ctx context.Context, pacienteID, nutricionistaID *uuid.UUID) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope{pacienteID: pacienteID, nutricionistaID: nutricionistaID})
}

func scopeFrom(ctx context.Context) scope {
	s, _ := ctx.Value(scopeKey{}).(scope)
	return s
}
