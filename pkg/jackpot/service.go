// Package jackpot owns the shared jackpot pool: a single durable sat
// counter that every play contributes to and every win draws from.
// The service is the sole writer of the pool key; observers subscribe
// to value updates through Listen.
package jackpot

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/artdesignbySF/MadameSatoshi/pkg/providers"
)

const defaultBroadcastBuffer = 128

// Service encapsulates pool reads, clamped adjustments, startup
// seeding, and update broadcasting.
type Service struct {
	store   providers.LedgerStore
	key     string
	minSeed int64
	broad   *Broadcaster
	logger  zerolog.Logger
}

// NewService creates a new jackpot service.
func NewService(cfg ServiceConfig) *Service {
	key := cfg.Key
	if key == "" {
		key = DefaultKey
	}
	buffer := cfg.BroadcastBuffer
	if buffer <= 0 {
		buffer = defaultBroadcastBuffer
	}
	return &Service{
		store:   cfg.Store,
		key:     key,
		minSeed: cfg.MinSeed,
		broad:   NewBroadcaster(buffer),
		logger:  cfg.Logger.With().Str("component", "jackpot").Logger(),
	}
}

// Pool returns the current pool value. A missing key reads as 0.
func (s *Service) Pool(ctx context.Context) (int64, error) {
	v, _, err := s.store.GetInt64(ctx, s.key)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, nil
	}
	return v, nil
}

// MinSeed returns the configured minimum seed, used by the draw engine
// as the effective-pool floor.
func (s *Service) MinSeed() int64 {
	return s.minSeed
}

// Adjust applies a signed delta to the pool, floored at zero, persists
// the result, and broadcasts the new value to all observers. Returns
// the new pool value.
//
// Same read-modify-write caveat as the balance ledger: single-process
// only.
func (s *Service) Adjust(ctx context.Context, delta int64) (int64, error) {
	current, err := s.Pool(ctx)
	if err != nil {
		return 0, err
	}
	next := current + delta
	if next < 0 {
		s.logger.Warn().
			Int64("pool", current).
			Int64("delta", delta).
			Msg("Pool adjustment clamped to zero")
		next = 0
	}
	if err := s.store.SetInt64(ctx, s.key, next); err != nil {
		return 0, err
	}
	s.logger.Debug().
		Int64("from", current).
		Int64("delta", delta).
		Int64("to", next).
		Msg("Jackpot pool updated")

	s.broad.Send(Update{
		Type:      UpdateType,
		Amount:    next,
		Timestamp: time.Now(),
	})
	return next, nil
}

// EnsureSeeded seeds the pool to the minimum seed when it is empty.
// Called once at startup, not per request.
func (s *Service) EnsureSeeded(ctx context.Context) error {
	current, err := s.Pool(ctx)
	if err != nil {
		return err
	}
	if current > 0 {
		s.logger.Info().Int64("pool", current).Msg("Jackpot pool loaded")
		return nil
	}
	s.logger.Info().
		Int64("pool", current).
		Int64("seed", s.minSeed).
		Msg("Jackpot pool empty, seeding")
	_, err = s.Adjust(ctx, s.minSeed)
	return err
}

// Listen subscribes to pool updates. The returned channel closes when
// the context is cancelled.
func (s *Service) Listen(ctx context.Context) (<-chan Update, context.CancelFunc) {
	return s.broad.Listen(ctx)
}
