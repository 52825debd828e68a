package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"employers-engine/internal/domain"
	"employers-engine/internal/render"
)

// Policy decides which completed cycle may write the region when several
// are in flight.
type Policy string

const (
	// LatestTriggered applies only the result of the most recent trigger.
	// Starting a cycle cancels the one before it.
	LatestTriggered Policy = "latest_triggered"
	// LastResolved lets every successful cycle write, so the last one to
	// finish wins regardless of trigger order.
	LastResolved Policy = "last_resolved"
)

// ErrSuperseded is returned by Load when a newer trigger replaced the cycle
// before it could render.
var ErrSuperseded = errors.New("loader: superseded by a newer trigger")

type Source interface {
	Employers(ctx context.Context) (domain.EmployerCollection, error)
}

type Region interface {
	ReplaceHTML(markup string) error
}

type Trigger interface {
	AddListener(fn func())
}

type Renderer interface {
	Markup(list domain.EmployerCollection) string
}

// Result describes a cycle that wrote the region.
type Result struct {
	CycleID    string
	Generation uint64
	Count      int
	Markup     string
}

type Deps struct {
	Trigger  Trigger // needed by Bind only
	Region   Region
	Source   Source
	Renderer Renderer     // defaults to escaping render.Renderer
	Log      *slog.Logger // diagnostic channel; defaults to slog.Default()
	Policy   Policy       // defaults to LatestTriggered

	OnRendered func(Result)
	OnFailed   func(cycleID string, err error)
}

type Status struct {
	Policy     Policy `json:"policy"`
	Generation uint64 `json:"generation"`
	InFlight   int64  `json:"in_flight"`
	LastRunAt  string `json:"last_run_at"`
	LastOkAt   string `json:"last_ok_at"`
	LastError  string `json:"last_error"`
	LastCount  int    `json:"last_count"`
}

// Loader is the employer list loader: each trigger fetches the employer
// list, renders it and replaces the region. Failures go to the diagnostic
// log and leave the region as it was.
type Loader struct {
	d Deps

	base context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	inFlight atomic.Int64

	mu         sync.Mutex // guards gen, cancelPrev, status, closed and region writes
	closed     bool
	gen        uint64
	cancelPrev context.CancelFunc
	status     Status
}

func New(d Deps) (*Loader, error) {
	if d.Region == nil {
		return nil, errors.New("loader: region is required")
	}
	if d.Source == nil {
		return nil, errors.New("loader: source is required")
	}
	if d.Renderer == nil {
		d.Renderer = render.Renderer{Escape: true}
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	switch d.Policy {
	case "":
		d.Policy = LatestTriggered
	case LatestTriggered, LastResolved:
	default:
		return nil, fmt.Errorf("loader: unknown policy %q", d.Policy)
	}

	base, stop := context.WithCancel(context.Background())
	return &Loader{
		d:      d,
		base:   base,
		stop:   stop,
		status: Status{Policy: d.Policy},
	}, nil
}

// Bind attaches OnTrigger to the trigger element.
func (l *Loader) Bind() error {
	if l.d.Trigger == nil {
		return errors.New("loader: no trigger to bind")
	}
	l.d.Trigger.AddListener(l.OnTrigger)
	return nil
}

// OnTrigger starts one fetch-and-render cycle and returns without waiting
// for it. No timeout is applied beyond the HTTP client's own.
func (l *Loader) OnTrigger() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.wg.Add(1)
	l.mu.Unlock()

	gen, ctx, done := l.begin(l.base)
	go func() {
		defer l.wg.Done()
		defer done()
		_ = l.cycle(ctx, gen)
	}()
}

// Load runs one cycle synchronously and returns its error.
func (l *Loader) Load(ctx context.Context) error {
	gen, ctx, done := l.begin(ctx)
	defer done()
	return l.cycle(ctx, gen)
}

// Wait blocks until every cycle started by OnTrigger has finished.
func (l *Loader) Wait() { l.wg.Wait() }

// Close cancels in-flight cycles and waits for them.
func (l *Loader) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.stop()
	l.wg.Wait()
}

func (l *Loader) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := l.status
	st.Generation = l.gen
	st.InFlight = l.inFlight.Load()
	return st
}

func (l *Loader) begin(parent context.Context) (uint64, context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	l.mu.Lock()
	l.gen++
	gen := l.gen
	if l.d.Policy == LatestTriggered && l.cancelPrev != nil {
		l.cancelPrev()
	}
	l.cancelPrev = cancel
	l.status.LastRunAt = time.Now().Format(time.RFC3339)
	l.mu.Unlock()

	l.inFlight.Add(1)
	return gen, ctx, func() {
		cancel()
		l.inFlight.Add(-1)
	}
}

func (l *Loader) superseded(gen uint64) bool {
	return l.d.Policy == LatestTriggered && gen != l.gen
}

func (l *Loader) cycle(ctx context.Context, gen uint64) error {
	id := uuid.NewString()

	list, err := l.d.Source.Employers(ctx)
	if err != nil {
		l.mu.Lock()
		stale := l.superseded(gen)
		l.mu.Unlock()
		if stale {
			l.d.Log.Debug("employers fetch superseded", "cycle", id, "generation", gen, "err", err)
			return ErrSuperseded
		}
		if l.base.Err() != nil && errors.Is(err, context.Canceled) {
			l.d.Log.Debug("employers fetch cancelled on shutdown", "cycle", id, "generation", gen)
			return err
		}
		return l.fail(id, err)
	}

	markup := l.d.Renderer.Markup(list)

	l.mu.Lock()
	if l.superseded(gen) {
		l.mu.Unlock()
		l.d.Log.Debug("discarding stale employers", "cycle", id, "generation", gen, "count", len(list))
		return ErrSuperseded
	}
	if err := l.d.Region.ReplaceHTML(markup); err != nil {
		l.mu.Unlock()
		return l.fail(id, fmt.Errorf("render employers: %w", err))
	}
	l.status.LastOkAt = time.Now().Format(time.RFC3339)
	l.status.LastError = ""
	l.status.LastCount = len(list)
	l.mu.Unlock()

	l.d.Log.Info("employers rendered", "cycle", id, "generation", gen, "count", len(list))
	if l.d.OnRendered != nil {
		l.d.OnRendered(Result{CycleID: id, Generation: gen, Count: len(list), Markup: markup})
	}
	return nil
}

func (l *Loader) fail(id string, err error) error {
	l.mu.Lock()
	l.status.LastError = err.Error()
	l.mu.Unlock()

	l.d.Log.Error("Error fetching employers", "cycle", id, "error", err)
	if l.d.OnFailed != nil {
		l.d.OnFailed(id, err)
	}
	return err
}
