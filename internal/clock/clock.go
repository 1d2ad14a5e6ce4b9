// Package clock supplies monotonic tick deltas to the timer engine.
package clock

import "time"

// Source delivers a stream of elapsed-time deltas. Consumers receive
// ticks over a channel so that all engine mutation stays serialized in
// the consumer's loop.
type Source interface {
	Ticks() <-chan time.Duration
	Stop()
}

// TickerSource emits a fixed delta per interval using the runtime's
// monotonic clock, so wall-clock adjustments never stretch or shrink a
// session.
type TickerSource struct {
	interval time.Duration
	ticks    chan time.Duration
	stopCh   chan struct{}
}

// NewTicker creates a running TickerSource.
func NewTicker(interval time.Duration) *TickerSource {
	if interval <= 0 {
		interval = time.Second
	}
	source := &TickerSource{
		interval: interval,
		ticks:    make(chan time.Duration, 1),
		stopCh:   make(chan struct{}),
	}
	go source.run()
	return source
}

// Ticks returns the channel tick deltas arrive on.
func (source *TickerSource) Ticks() <-chan time.Duration {
	return source.ticks
}

// Stop terminates the source and closes the tick channel.
func (source *TickerSource) Stop() {
	close(source.stopCh)
}

func (source *TickerSource) run() {
	ticker := time.NewTicker(source.interval)
	defer ticker.Stop()
	defer close(source.ticks)

	// When the consumer is busy (for example mid-save) the undelivered
	// interval carries over into the next delta, so no elapsed time is
	// lost to a slow receiver.
	var pending time.Duration
	for {
		select {
		case <-source.stopCh:
			return
		case <-ticker.C:
			delta := source.interval + pending
			select {
			case source.ticks <- delta:
				pending = 0
			default:
				pending = delta
			}
		}
	}
}
