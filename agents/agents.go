package agents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ImageLabeler returns coarse labels for a data-URI image.
type ImageLabeler interface {
	RecognizeLabels(ctx context.Context, dataURI string) ([]string, error)
}

// Agents bundles every assistant so handlers get them through one dependency.
type Agents struct {
	Meal    *MealAnalyzer
	Chat    *ChatAgent
	Checkin *CheckinAnalyzer
	Insight *InsightAgent
	Plan    *MealPlanAgent
}

type Options struct {
	Recorder Recorder
	Labeler  ImageLabeler
	Logger   zerolog.Logger
}

// New builds every agent around one completer. A nil completer means no API key:
// every agent answers with its fallback.
func New(llm Completer, opts Options) *Agents {
	r := &runner{llm: llm, rec: opts.Recorder, log: opts.Logger}
	return &Agents{
		Meal:    &MealAnalyzer{runner: r, labeler: opts.Labeler},
		Chat:    &ChatAgent{runner: r},
		Checkin: &CheckinAnalyzer{runner: r},
		Insight: &InsightAgent{runner: r},
		Plan:    &MealPlanAgent{runner: r},
	}
}

type runner struct {
	llm Completer
	rec Recorder
	log zerolog.Logger
}

func (r *runner) enabled() bool {
	return r != nil && r.llm != nil
}

func (r *runner) complete(ctx context.Context, kind string, req Request, input any) (Response, error) {
	return r.call(ctx, kind, req, input, nil)
}

// completeJSON decodes the reply into out. A reply that does not parse is recorded as a
// failed call, since the caller answers with its fallback.
func (r *runner) completeJSON(ctx context.Context, kind string, req Request, input, out any) error {
	_, err := r.call(ctx, kind, req, input, out)
	return err
}

func (r *runner) call(ctx context.Context, kind string, req Request, input, out any) (Response, error) {
	start := time.Now()
	resp, err := r.llm.Complete(ctx, req)
	if err == nil && resp.Content == "" {
		err = ErrEmptyCompletion
	}
	if err == nil && out != nil {
		if perr := decodeCompletion(resp.Content, out); perr != nil {
			err = fmt.Errorf("%w: %v", ErrUnparseableCompletion, perr)
		}
	}

	if r.rec != nil {
		s := scopeFrom(ctx)
		r.rec.Record(ctx, Call{
			Kind:            kind,
			PacienteID:      s.pacienteID,
			NutricionistaID: s.nutricionistaID,
			Input:           input,
			Output:          resp.Content,
			Model:           resp.Model,
			Tokens:          resp.TokensUsed,
			Latency:         time.Since(start),
			Err:             err,
		})
	}
	switch {
	case errors.Is(err, ErrUnparseableCompletion):
		r.log.Warn().Err(err).Str("kind", kind).Msg("unparseable completion")
	case err != nil:
		r.log.Error().Err(err).Str("kind", kind).Msg("llm call failed")
	}
	return resp, err
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
