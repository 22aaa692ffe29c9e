package audio

import (
	"context"
	"time"
)

// Debounce coalesces bursty volume events per node: within one window
// only the latest event for each node survives. A dragged volume slider
// emits dozens of absolute values; only the last one matters, so
// intermediate ones are collapsed rather than propagated one by one.
// The returned channel closes when in closes or ctx is cancelled.
func Debounce(ctx context.Context, in <-chan Event, window time.Duration) <-chan Event {
	out := make(chan Event, 64)
	if window <= 0 {
		// Pass-through, still decoupled so callers see one channel type.
		go func() {
			defer close(out)
			for {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-in:
					if !ok {
						return
					}
					select {
					case out <- ev:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
		return out
	}

	go func() {
		defer close(out)

		pending := make(map[string]Event)
		var order []string
		timer := time.NewTimer(window)
		if !timer.Stop() {
			<-timer.C
		}
		armed := false

		flush := func() {
			for _, name := range order {
				select {
				case out <- pending[name]:
				case <-ctx.Done():
					return
				}
			}
			pending = make(map[string]Event)
			order = order[:0]
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-in:
				if !ok {
					flush()
					return
				}
				if _, seen := pending[ev.NodeName]; !seen {
					order = append(order, ev.NodeName)
				}
				pending[ev.NodeName] = ev
				if !armed {
					timer.Reset(window)
					armed = true
				}
			case <-timer.C:
				armed = false
				flush()
			}
		}
	}()
	return out
}
