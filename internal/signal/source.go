// Package signal supplies entry signals to the engine. Signal generation is
// external; the engine only consumes them.
package signal

import (
	"context"

	"github.com/schundi365/IndianTradingbot-sub006/models"
)

// Source delivers entry signals. Next blocks until a signal arrives, the
// source is exhausted (ok=false), or ctx is cancelled.
type Source interface {
	Next(ctx context.Context) (models.Signal, bool, error)
}

// Channel adapts a Go channel into a Source. Closing the channel ends the
// stream cleanly.
type Channel struct {
	C chan models.Signal
}

// NewChannel builds a buffered channel source.
func NewChannel(buffer int) *Channel {
	return &Channel{C: make(chan models.Signal, buffer)}
}

func (c *Channel) Next(ctx context.Context) (models.Signal, bool, error) {
	select {
	case sig, ok := <-c.C:
		if !ok {
			return models.Signal{}, false, nil
		}
		return sig, true, nil
	case <-ctx.Done():
		return models.Signal{}, false, ctx.Err()
	}
}

// Static replays a fixed list of signals, then ends the stream.
type Static struct {
	signals []models.Signal
	next    int
}

// NewStatic builds a source over a fixed signal list.
func NewStatic(signals ...models.Signal) *Static {
	return &Static{signals: signals}
}

func (s *Static) Next(ctx context.Context) (models.Signal, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.Signal{}, false, err
	}
	if s.next >= len(s.signals) {
		return models.Signal{}, false, nil
	}
	sig := s.signals[s.next]
	s.next++
	return sig, true, nil
}
