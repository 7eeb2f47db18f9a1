// Package scheduler wakes SCHEDULED executions once their wake time has passed.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultInterval is how often due executions are looked up.
const DefaultInterval = 10 * time.Second

var ErrAlreadyStarted = errors.New("poller already started")

// Waker resumes every execution due at or before now and reports how many it woke.
type Waker interface {
	WakeDue(ctx context.Context, now time.Time) (int, error)
}

// Poller runs WakeDue on a fixed interval. Overlapping runs are skipped, so a
// slow pass never stacks up behind itself.
type Poller struct {
	waker    Waker
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.Mutex
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

type Option func(*Poller)

func WithInterval(interval time.Duration) Option {
	return func(p *Poller) {
		if interval > 0 {
			p.interval = interval
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Poller) { p.now = now }
}

func NewPoller(waker Waker, logger *slog.Logger, opts ...Option) *Poller {
	p := &Poller{
		waker:    waker,
		interval: DefaultInterval,
		logger:   logger.With("module", "wake_poller"),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Start schedules the poll job. It returns immediately; Stop or cancelling ctx ends it.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cron != nil {
		return ErrAlreadyStarted
	}

	p.ctx, p.cancel = context.WithCancel(ctx)

	cronLogger := cronLogger{logger: p.logger}
	p.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cronLogger),
		cron.Recover(cronLogger),
	))

	p.cron.Schedule(cron.Every(p.interval), cron.FuncJob(p.run))
	p.cron.Start()

	p.logger.InfoContext(ctx, "Wake poller started", "interval", p.interval.String())

	go func(ctx context.Context) {
		<-ctx.Done()
		_ = p.Stop(context.Background())
	}(p.ctx)

	return nil
}

// Stop halts polling and waits for a running pass to finish or ctx to end.
func (p *Poller) Stop(ctx context.Context) error {
	p.mu.Lock()
	c := p.cron
	cancel := p.cancel
	p.cron = nil
	p.mu.Unlock()

	if c == nil {
		return nil
	}

	cancel()

	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	p.logger.Info("Wake poller stopped")

	return nil
}

// Poll runs a single pass.
func (p *Poller) Poll(ctx context.Context) (int, error) {
	woken, err := p.waker.WakeDue(ctx, p.now().UTC())
	if err != nil {
		return woken, err
	}

	if woken > 0 {
		p.logger.InfoContext(ctx, "Woke scheduled executions", "count", woken)
	}

	return woken, nil
}

func (p *Poller) run() {
	p.mu.Lock()
	ctx := p.ctx
	p.mu.Unlock()

	if ctx == nil || ctx.Err() != nil {
		return
	}

	_, err := p.Poll(ctx)
	if err != nil {
		p.logger.ErrorContext(ctx, "Wake pass failed", "error", err)
	}
}

// cronLogger routes cron's own messages through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
