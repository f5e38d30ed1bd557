package drawdown

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/domain"
	"github.com/rs/zerolog/log"
)

var (
	ErrNoMutator   = errors.New("stock mutation endpoint is not configured")
	ErrInvalidMode = errors.New("invalid submit mode")
)

// StockMutator is the external stock store. One call changes one SKU.
type StockMutator interface {
	Mutate(ctx context.Context, req domain.MutationRequest) (domain.MutationResponse, error)
}

type SubmitInput struct {
	BatchID string
	Actor   string
	// Mode defaults to simulate.
	Mode  domain.SubmitMode
	Lines []domain.MatchedLine
}

// Orchestrator walks matched lines in order and records one outcome per line.
type Orchestrator struct {
	mutator      StockMutator
	defaultActor string
	now          func() time.Time
}

type OrchestratorOption func(*Orchestrator)

func WithDefaultActor(actor string) OrchestratorOption {
	return func(o *Orchestrator) { o.defaultActor = actor }
}

func WithNow(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

// NewOrchestrator accepts a nil mutator; only apply mode needs one.
func NewOrchestrator(mutator StockMutator, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		mutator:      mutator,
		defaultActor: "sistema",
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CanApply reports whether apply mode is available.
func (o *Orchestrator) CanApply() bool {
	return o.mutator != nil
}

// IdempotencyKey identifies one line of one batch towards the mutation endpoint.
func IdempotencyKey(batchID string, index int) string {
	return fmt.Sprintf("%s:%d", batchID, index)
}

// Submit processes every line exactly once, sequentially. Simulate mode never
// calls the mutator. In apply mode a failed line does not stop the batch and
// nothing is rolled back. When ctx is cancelled the remaining lines are left
// out of the report and Interrupted is set.
func (o *Orchestrator) Submit(ctx context.Context, in SubmitInput) (domain.SubmissionReport, error) {
	mode := in.Mode
	if mode == "" {
		mode = domain.ModeSimulate
	}
	if mode != domain.ModeSimulate && mode != domain.ModeApply {
		return domain.SubmissionReport{}, fmt.Errorf("%w: %q", ErrInvalidMode, in.Mode)
	}
	if mode == domain.ModeApply && o.mutator == nil {
		return domain.SubmissionReport{}, ErrNoMutator
	}

	actor := strings.TrimSpace(in.Actor)
	if actor == "" {
		actor = o.defaultActor
	}

	report := domain.SubmissionReport{
		BatchID:   in.BatchID,
		Mode:      mode,
		Actor:     actor,
		StartedAt: o.now(),
		Outcomes:  make([]domain.SubmissionOutcome, 0, len(in.Lines)),
	}

	for i, line := range in.Lines {
		if err := ctx.Err(); err != nil {
			report.Interrupted = true
			log.Warn().
				Str("batch_id", in.BatchID).
				Int("processed", i).
				Int("total", len(in.Lines)).
				Err(err).
				Msg("drawdown: submission interrupted")
			break
		}

		var outcome domain.SubmissionOutcome
		if mode == domain.ModeSimulate {
			outcome = o.simulate(line, actor)
		} else {
			outcome = o.apply(ctx, line, actor, IdempotencyKey(in.BatchID, i))
		}

		if outcome.Success {
			report.SuccessCount++
		} else {
			report.ErrorCount++
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	report.FinishedAt = o.now()

	log.Info().
		Str("batch_id", in.BatchID).
		Str("mode", string(mode)).
		Str("actor", actor).
		Int("success", report.SuccessCount).
		Int("errors", report.ErrorCount).
		Bool("interrupted", report.Interrupted).
		Msg("drawdown: batch finished")

	return report, nil
}

func (o *Orchestrator) simulate(line domain.MatchedLine, actor string) domain.SubmissionOutcome {
	after := line.StockBefore - line.Quantity
	return domain.SubmissionOutcome{
		Code:           line.Code,
		Name:           line.Name,
		Quantity:       line.Quantity,
		StockBefore:    line.StockBefore,
		Success:        true,
		ResultingStock: &after,
		Timestamp:      o.now(),
		Actor:          actor,
	}
}

func (o *Orchestrator) apply(ctx context.Context, line domain.MatchedLine, actor, key string) domain.SubmissionOutcome {
	outcome := domain.SubmissionOutcome{
		Code:        line.Code,
		Name:        line.Name,
		Quantity:    line.Quantity,
		StockBefore: line.StockBefore,
		Actor:       actor,
	}

	resp, err := o.mutator.Mutate(ctx, domain.MutationRequest{
		Code:           line.Code,
		Quantity:       line.Quantity,
		Direction:      domain.DirectionOut,
		Actor:          actor,
		IdempotencyKey: key,
	})
	outcome.Timestamp = o.now()

	switch {
	case err != nil:
		outcome.Error = err.Error()
	case !resp.Success:
		outcome.Error = resp.Message
		if outcome.Error == "" {
			outcome.Error = "rejected by stock endpoint"
		}
	default:
		outcome.Success = true
		outcome.ResultingStock = resp.ResultingStock
	}

	if !outcome.Success {
		log.Warn().
			Str("sku", line.Code).
			Int("quantity", line.Quantity).
			Str("idempotency_key", key).
			Str("error", outcome.Error).
			Msg("drawdown: line failed")
	}
	return outcome
}
