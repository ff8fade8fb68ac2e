package control

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/marketetl/internal/core/domain"
	"github.com/vietddude/marketetl/internal/etl"
	"github.com/vietddude/marketetl/internal/etl/metrics"
	redisclient "github.com/vietddude/marketetl/internal/infra/redis"
	"github.com/vietddude/marketetl/internal/logging"
)

// Registration binds a stage name to a factory. A fresh stage is built for
// every run so no state carries over between runs.
type Registration struct {
	Name    string
	Aliases []string
	New     func() etl.Stage
}

// Orchestrator runs registered stages in a fixed order and summarizes them.
type Orchestrator struct {
	regs   []Registration
	byName map[string]int
	log    logging.Logger
	locker Locker
	now    func() time.Time
	newID  func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLocker makes every run take l first.
func WithLocker(l Locker) Option {
	return func(o *Orchestrator) {
		o.locker = l
	}
}

// NewOrchestrator registers stages in run order.
func NewOrchestrator(regs []Registration, log logging.Logger, opts ...Option) *Orchestrator {
	if log == nil {
		log = logging.Nop()
	}
	o := &Orchestrator{
		regs:   regs,
		byName: make(map[string]int),
		log:    log,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for i, r := range regs {
		o.byName[strings.ToLower(r.Name)] = i
		for _, alias := range r.Aliases {
			o.byName[strings.ToLower(alias)] = i
		}
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Names returns the canonical stage names in run order.
func (o *Orchestrator) Names() []string {
	names := make([]string, len(o.regs))
	for i, r := range o.regs {
		names[i] = r.Name
	}
	return names
}

// RunAll runs every registered stage.
func (o *Orchestrator) RunAll(ctx context.Context) *domain.RunSummary {
	return o.run(ctx, o.regs)
}

// RunSubset runs the named stages in the order given. Unknown names are
// logged and skipped; repeats run once.
func (o *Orchestrator) RunSubset(ctx context.Context, names []string) *domain.RunSummary {
	regs, unknown := o.lookup(names)
	for _, name := range unknown {
		o.log.Warn("Unknown stage, skipping", "stage", name, "available", strings.Join(o.Names(), ", "))
	}
	return o.run(ctx, regs)
}

func (o *Orchestrator) lookup(names []string) ([]Registration, []string) {
	var (
		regs    []Registration
		unknown []string
		seen    = make(map[int]bool)
	)
	for _, name := range names {
		i, ok := o.byName[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		if seen[i] {
			continue
		}
		seen[i] = true
		regs = append(regs, o.regs[i])
	}
	return regs, unknown
}

func (o *Orchestrator) run(ctx context.Context, regs []Registration) *domain.RunSummary {
	summary := domain.NewRunSummary(o.newID(), o.now())
	log := o.log.With("run_id", summary.RunID)

	if o.locker != nil {
		release, err := o.locker.Acquire(ctx)
		switch {
		case errors.Is(err, redisclient.ErrLockHeld):
			log.Warn("Another run is in progress, skipping")
			summary.Skipped = true
			summary.FinishedAt = o.now()
			return summary
		case err != nil:
			log.Warn("Run lock unavailable, continuing without it", "error", err)
		default:
			defer release()
		}
	}

	if len(regs) == 0 {
		log.Warn("No known stages requested, nothing to run", "available", strings.Join(o.Names(), ", "))
	}
	log.Info("Starting ETL run", "stages", len(regs))
	for _, reg := range regs {
		if err := ctx.Err(); err != nil {
			summary.Record(domain.Failed(reg.Name, fmt.Errorf("not started: %w", err), 0))
			continue
		}
		summary.Record(o.runStage(ctx, reg, log))
	}
	summary.FinishedAt = o.now()

	metrics.LastRunTimestamp.SetToCurrentTime()
	o.report(summary, log)
	return summary
}

// runStage isolates one stage. Nothing it does can abort the run.
func (o *Orchestrator) runStage(ctx context.Context, reg Registration, log logging.Logger) (result domain.StageResult) {
	start := o.now()
	defer func() {
		if p := recover(); p != nil {
			log.Error("Stage panicked", "stage", reg.Name, "panic", p)
			result = domain.Failed(reg.Name, fmt.Errorf("panic: %v", p), o.now().Sub(start))
		}
	}()

	result, _ = etl.Execute(ctx, reg.New(), log)
	return result
}

func (o *Orchestrator) report(s *domain.RunSummary, log logging.Logger) {
	log.Info("ETL run summary", "duration", s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
	for _, r := range s.Results() {
		if r.OK() {
			log.Success(fmt.Sprintf("%s: %s", r.Stage(), r), "rows", r.Rows())
			continue
		}
		log.Error(fmt.Sprintf("%s: %s", r.Stage(), r))
	}

	msg := fmt.Sprintf("%d of %d stages succeeded", s.SuccessCount(), s.Len())
	if s.Len() > 0 && s.AllSucceeded() {
		log.Success(msg)
	} else {
		log.Warn(msg)
	}
}
