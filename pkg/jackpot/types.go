package jackpot

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/artdesignbySF/MadameSatoshi/pkg/providers"
)

// UpdateType is the event name observers receive on every pool
// mutation.
const UpdateType = "jackpotUpdate"

// Update represents a pool value notification pushed to observers.
type Update struct {
	Type      string    `json:"type"`
	Amount    int64     `json:"amount"`
	Timestamp time.Time `json:"-"`
}

// ServiceConfig configures the jackpot service.
type ServiceConfig struct {
	// Store persists the pool counter.
	Store providers.LedgerStore

	// Key is the ledger store key the pool lives under.
	Key string

	// MinSeed is the floor the pool is seeded to at startup when found
	// empty. It also acts as the effective-pool floor for win sizing.
	MinSeed int64

	// BroadcastBuffer sizes the observer channel. Zero means a sane
	// default.
	BroadcastBuffer int

	// Logger is optional; if zero value, a no-op logger is used.
	Logger zerolog.Logger
}

// DefaultKey is the ledger store key used when none is configured.
// Versioned so a layout change can migrate by key rename.
const DefaultKey = "currentJackpotPool_v1"
