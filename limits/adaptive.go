package limits

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// LoadFunc reports an external load signal in [0, 1]. Typical sources
// are CPU pressure, queue depth ratio, or a downstream health score.
type LoadFunc func() float64

// AdaptiveConfig configures an Adaptive controller.
type AdaptiveConfig struct {
	// Min is the permit floor. The pool never shrinks below it.
	Min int

	// Max is the permit ceiling and the starting pool size.
	Max int

	// Load supplies the external load signal.
	Load LoadFunc

	// ShrinkAbove removes one permit per sample while load >= this
	// threshold. Must be greater than GrowBelow (hysteresis band).
	ShrinkAbove float64

	// GrowBelow restores one permit per sample while load <= this
	// threshold.
	GrowBelow float64

	// SampleInterval is how often the load signal is sampled.
	// Zero means one second.
	SampleInterval time.Duration

	// Logger is optional; nil means slog.Default().
	Logger *slog.Logger
}

// Adaptive is a Controller whose permit pool floats within [Min, Max]
// according to an external load signal. Shrinking reserves permits out
// of a Max-sized semaphore, so steps already running are never
// interrupted — the pool only tightens for new admissions.
type Adaptive struct {
	cfg     AdaptiveConfig
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	logger  *slog.Logger

	mu       sync.Mutex
	target   int
	reserved int

	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewAdaptive creates an adaptive controller. The pool starts at Max.
func NewAdaptive(cfg AdaptiveConfig) (*Adaptive, error) {
	if cfg.Min < 1 {
		return nil, fmt.Errorf("limits: min must be >= 1, got %d", cfg.Min)
	}
	if cfg.Max < cfg.Min {
		return nil, fmt.Errorf("limits: max %d must be >= min %d", cfg.Max, cfg.Min)
	}
	if cfg.Load == nil {
		return nil, fmt.Errorf("limits: load signal is required")
	}
	if cfg.GrowBelow >= cfg.ShrinkAbove {
		return nil, fmt.Errorf("limits: grow threshold %v must be below shrink threshold %v",
			cfg.GrowBelow, cfg.ShrinkAbove)
	}
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Adaptive{
		cfg:     cfg,
		sem:     semaphore.NewWeighted(int64(cfg.Max)),
		limiter: rate.NewLimiter(rate.Every(cfg.SampleInterval), 1),
		logger:  logger,
		target:  cfg.Max,
	}, nil
}

// Acquire blocks until a permit is available or ctx is done.
func (a *Adaptive) Acquire(ctx context.Context) error {
	return a.sem.Acquire(ctx, 1)
}

// Release returns a permit.
func (a *Adaptive) Release() {
	a.sem.Release(1)
}

// Target returns the current permit pool size.
func (a *Adaptive) Target() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.target
}

// Start launches the background sampler. It returns immediately.
func (a *Adaptive) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return
	}
	a.running = true

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.done = make(chan struct{})

	go a.sampleLoop(ctx)
}

// Stop halts the sampler and waits for it to exit. Reserved permits
// are returned so a stopped controller behaves like a Fixed(Max).
func (a *Adaptive) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	cancel, done := a.cancel, a.done
	a.mu.Unlock()

	cancel()
	<-done

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.reserved > 0 {
		a.sem.Release(int64(a.reserved))
		a.target += a.reserved
		a.reserved = 0
	}
}

func (a *Adaptive) sampleLoop(ctx context.Context) {
	defer close(a.done)
	for {
		if err := a.limiter.Wait(ctx); err != nil {
			return
		}
		a.sample()
	}
}

// sample reads the load signal once and moves the pool one permit
// toward the band. Hysteresis: no adjustment happens while the load
// sits between GrowBelow and ShrinkAbove.
func (a *Adaptive) sample() {
	load := a.cfg.Load()

	a.mu.Lock()
	defer a.mu.Unlock()

	switch {
	case load >= a.cfg.ShrinkAbove && a.target > a.cfg.Min:
		// TryAcquire so shrinking never blocks behind running steps;
		// the reservation lands once a permit frees up on a later sample.
		if a.sem.TryAcquire(1) {
			a.reserved++
			a.target--
			a.logger.Debug("concurrency shrunk",
				slog.Float64("load", load),
				slog.Int("target", a.target),
			)
		}
	case load <= a.cfg.GrowBelow && a.reserved > 0:
		a.sem.Release(1)
		a.reserved--
		a.target++
		a.logger.Debug("concurrency grown",
			slog.Float64("load", load),
			slog.Int("target", a.target),
		)
	}
}
