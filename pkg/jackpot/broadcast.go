package jackpot

import (
	"context"
	"sync"
)

// Broadcaster fans pool updates out to every connected observer.
// Delivery is fire-and-forget: a slow observer's buffer fills and
// updates are dropped for it, never blocking settlement.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[chan Update]struct{}
	buffer int
}

// NewBroadcaster creates a broadcaster. buffer sizes each observer's
// channel.
func NewBroadcaster(buffer int) *Broadcaster {
	return &Broadcaster{
		subs:   make(map[chan Update]struct{}),
		buffer: buffer,
	}
}

// Send publishes an update to all observers (non-blocking with drop on
// full buffers).
func (b *Broadcaster) Send(update Update) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- update:
		default:
			// drop for this observer if it is slow; keep simple
		}
	}
}

// Listen subscribes an observer. The returned channel closes when the
// context is cancelled or the cancel function is called.
func (b *Broadcaster) Listen(ctx context.Context) (<-chan Update, context.CancelFunc) {
	listenerCtx, cancel := context.WithCancel(ctx)
	ch := make(chan Update, b.buffer)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-listenerCtx.Done()
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
		close(ch)
	}()

	return ch, cancel
}

// Observers returns the current subscriber count.
func (b *Broadcaster) Observers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
