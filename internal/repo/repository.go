package repo

import (
	"context"
	"errors"
	"time"

	"go.uber.org/multierr"

	"github.com/hamed0406/siteprobe/internal/domain"
)

var ErrRunNotFound = errors.New("run not found")

// ResultSink receives terminal results as probe tasks complete.
// Implementations must be safe for concurrent use.
type ResultSink interface {
	Append(ctx context.Context, r *domain.ProbeResult) error
}

// RunStore persists runs and their results. Memory backs the API by default,
// sqlite keeps CLI history.
type RunStore interface {
	CreateRun(ctx context.Context, r *domain.Run) error
	FinishRun(ctx context.Context, id domain.RunID, status domain.RunStatus, at time.Time) error
	GetRun(ctx context.Context, id domain.RunID) (*domain.Run, error)
	ListRuns(ctx context.Context) ([]*domain.Run, error)
	AppendResult(ctx context.Context, id domain.RunID, r *domain.ProbeResult) error
	// Results returns the run's results in input order.
	Results(ctx context.Context, id domain.RunID) ([]domain.ProbeResult, error)
}

// RunSink binds a RunStore to one run.
type RunSink struct {
	Store RunStore
	RunID domain.RunID
}

func (s RunSink) Append(ctx context.Context, r *domain.ProbeResult) error {
	return s.Store.AppendResult(ctx, s.RunID, r)
}

// MultiSink fans a result out to every sink and combines their errors.
type MultiSink []ResultSink

func (m MultiSink) Append(ctx context.Context, r *domain.ProbeResult) error {
	var err error
	for _, s := range m {
		if s == nil {
			continue
		}
		err = multierr.Append(err, s.Append(ctx, r))
	}
	return err
}
