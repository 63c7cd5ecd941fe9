package processing

import (
	"context"
	"time"
)

// Scheduler paces the poll loop. Wait blocks until the next step may run.
type Scheduler interface {
	Wait(ctx context.Context) error
}

// TickerScheduler ticks once per display refresh.
type TickerScheduler struct {
	ticker *time.Ticker
}

func NewTickerScheduler(fps uint) *TickerScheduler {
	if fps == 0 {
		fps = 60
	}

	return &TickerScheduler{ticker: time.NewTicker(time.Second / time.Duration(fps))}
}

func (s *TickerScheduler) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ticker.C:
		return nil
	}
}

func (s *TickerScheduler) Stop() {
	s.ticker.Stop()
}
