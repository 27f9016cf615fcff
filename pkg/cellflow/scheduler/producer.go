package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// Perception is something a producer sensed and wants processed.
type Perception struct {
	// ID is optional; a UUID is assigned when empty.
	ID       string
	Payload  any
	CostHint float64
}

// Producer is an autonomous sensor. The scheduler calls Sense once per
// Interval and submits any non-nil perception to Tier with the producer's
// name as origin.
type Producer interface {
	Name() string
	Interval() time.Duration
	Tier() Tier
	Sense(ctx context.Context) (*Perception, error)
}

// SenseFunc is the sensing step of a producer built with NewProducer.
type SenseFunc func(ctx context.Context) (*Perception, error)

type funcProducer struct {
	name     string
	tier     Tier
	interval time.Duration
	sense    SenseFunc
}

// NewProducer builds a Producer from a sense function.
func NewProducer(name string, tier Tier, interval time.Duration, sense SenseFunc) Producer {
	return &funcProducer{name: name, tier: tier, interval: interval, sense: sense}
}

func (p *funcProducer) Name() string                                   { return p.name }
func (p *funcProducer) Tier() Tier                                     { return p.tier }
func (p *funcProducer) Interval() time.Duration                        { return p.interval }
func (p *funcProducer) Sense(ctx context.Context) (*Perception, error) { return p.sense(ctx) }

// runProducer polls p until ctx is cancelled. Sense errors are logged and
// the loop continues.
func (s *Scheduler) runProducer(ctx context.Context, p Producer) error {
	logger := s.logger.With(slog.String("producer", p.Name()))

	interval := p.Interval()
	if interval <= 0 {
		interval = time.Second
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)

	logger.Info("producer started",
		slog.Duration("interval", interval),
		slog.String("tier", p.Tier().Name()),
	)
	defer logger.Debug("producer stopped")

	for {
		if err := limiter.Wait(ctx); err != nil {
			return nil
		}

		perception, err := p.Sense(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			logger.Warn("producer sense failed", slog.String("error", err.Error()))
			continue
		}
		if perception == nil {
			continue
		}

		ok, err := s.Submit(perception.Payload,
			WithTier(p.Tier()),
			WithCostHint(perception.CostHint),
			WithOrigin(p.Name()),
			WithItemID(perception.ID),
		)
		switch {
		case errors.Is(err, ErrNotRunning):
			return nil
		case err != nil:
			logger.Error("producer submit rejected", slog.String("error", err.Error()))
		case !ok:
			logger.Debug("producer item dropped, queue full")
		}
	}
}
