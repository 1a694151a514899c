package remediation

import (
	"context"
	"errors"
	"time"

	domain "remedy/internal/domain/remediation"
	"remedy/internal/errs"
	"remedy/internal/ports"
)

// Options carries the engine limits read from configuration.
type Options struct {
	// MaxBatchSize caps ids per bulk call; 0 disables the cap.
	MaxBatchSize    int
	SystemActors    []string
	DefaultPageSize int
	MaxPageSize     int
	// CacheTTL bounds cached job snapshots; 0 keeps them until overwritten.
	CacheTTL time.Duration
}

func DefaultOptions() Options {
	return Options{
		MaxBatchSize:    1000,
		SystemActors:    append([]string(nil), domain.DefaultSystemActors...),
		DefaultPageSize: 50,
		MaxPageSize:     500,
		CacheTTL:        10 * time.Minute,
	}
}

// Service owns the action lifecycle: bulk decisions, rollback, job progress and reporting.
type Service struct {
	stores ports.Stores
	uow    ports.UnitOfWork
	cache  ports.Cache
	ids    ports.IDGenerator
	clock  ports.Clock
	opts   Options
}

// NewService wires the engine. stores are used for read-only calls; every
// mutation goes through uow. cache may be nil.
func NewService(
	stores ports.Stores,
	uow ports.UnitOfWork,
	cache ports.Cache,
	ids ports.IDGenerator,
	clock ports.Clock,
	opts Options,
) *Service {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	defaults := DefaultOptions()
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = defaults.DefaultPageSize
	}
	if opts.MaxPageSize < opts.DefaultPageSize {
		opts.MaxPageSize = opts.DefaultPageSize
	}
	if opts.SystemActors == nil {
		opts.SystemActors = defaults.SystemActors
	}
	return &Service{
		stores: stores,
		uow:    uow,
		cache:  cache,
		ids:    ids,
		clock:  clock,
		opts:   opts,
	}
}

func (s *Service) checkWrite(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if s.uow == nil {
		return errors.New("remediation unit of work is required")
	}
	if s.ids == nil {
		return errors.New("remediation id generator is required")
	}
	return nil
}

func (s *Service) checkRead(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if s.stores.Actions == nil || s.stores.History == nil || s.stores.Jobs == nil {
		return errors.New("remediation stores are required")
	}
	return nil
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}

func (s *Service) pageSize(limit int) int {
	if limit <= 0 {
		return s.opts.DefaultPageSize
	}
	if limit > s.opts.MaxPageSize {
		return s.opts.MaxPageSize
	}
	return limit
}
