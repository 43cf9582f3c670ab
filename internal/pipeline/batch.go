package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/boatrace-edge/internal/metrics"
	"github.com/yourusername/boatrace-edge/internal/models"
)

// RaceFailure records why a race was excluded from a batch.
type RaceFailure struct {
	RaceID string `json:"race_id"`
	Err    error  `json:"-"`
}

// BatchResult is the outcome of evaluating many races.
type BatchResult struct {
	RunID       uuid.UUID         `json:"run_id"`
	Evaluations []*RaceEvaluation `json:"evaluations"`
	Failures    []RaceFailure     `json:"failures"`
	Duration    time.Duration     `json:"duration"`
}

// EvaluateBatch evaluates races concurrently against one lane history
// snapshot taken at the start of the batch. A race that fails is excluded
// and recorded; the others proceed. Only cancellation of ctx aborts the batch.
func (e *Evaluator) EvaluateBatch(ctx context.Context, inputs []RaceInput) (*BatchResult, error) {
	start := time.Now()
	result := &BatchResult{RunID: uuid.New()}

	evaluations := make([]*RaceEvaluation, len(inputs))
	failures := make([]error, len(inputs))

	snap, snapErr := e.history.Snapshot(ctx)
	if snapErr != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		snapErr = fmt.Errorf("failed to load lane history: %w", snapErr)
	}

	g, gctx := errgroup.WithContext(ctx)
	limit := e.concurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, in := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if snapErr != nil {
				failures[i] = snapErr
				return nil
			}
			ev, err := e.evaluateWithSnapshot(gctx, in, snap)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				failures[i] = err
				return nil
			}
			evaluations[i] = ev
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, in := range inputs {
		if failures[i] != nil {
			raceID := ""
			if in.Race != nil {
				raceID = in.Race.ID
			}
			result.Failures = append(result.Failures, RaceFailure{RaceID: raceID, Err: failures[i]})
			e.pipeLogger.LogRaceExcluded(raceID, failures[i])
			metrics.RecordRaceExcluded(failureReason(failures[i]))
			continue
		}
		result.Evaluations = append(result.Evaluations, evaluations[i])
	}

	result.Duration = time.Since(start)
	e.pipeLogger.LogBatchCompleted(result.RunID.String(), len(result.Evaluations), len(result.Failures), result.Duration)
	return result, nil
}

func failureReason(err error) string {
	var structErr *models.RaceStructureError
	if errors.As(err, &structErr) {
		return "structure"
	}
	return "error"
}
