package generation

import (
	"sync"
	"time"
)

// Rotation cycles through loading messages on a fixed interval until stopped.
type Rotation struct {
	mu       sync.Mutex
	messages []string
	idx      int

	stop     chan struct{}
	done     chan struct{}
	once     sync.Once
	onChange func(string)
}

// StartRotation shows messages[0] immediately and advances one message per
// interval, calling onChange after each advance. A single message or a
// non-positive interval never advances.
func StartRotation(messages []string, interval time.Duration, onChange func(string)) *Rotation {
	r := &Rotation{
		messages: messages,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		onChange: onChange,
	}
	if len(messages) < 2 || interval <= 0 {
		close(r.done)
		return r
	}
	go r.loop(interval)
	return r
}

func (r *Rotation) loop(interval time.Duration) {
	defer close(r.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.mu.Lock()
			r.idx = (r.idx + 1) % len(r.messages)
			msg := r.messages[r.idx]
			r.mu.Unlock()
			if r.onChange != nil {
				r.onChange(msg)
			}
		}
	}
}

// Current returns the message on display, or "" when there are none.
func (r *Rotation) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return ""
	}
	return r.messages[r.idx]
}

// Stop halts the rotation and waits for the ticker goroutine. Safe to call more than once.
func (r *Rotation) Stop() {
	r.once.Do(func() { close(r.stop) })
	<-r.done
}
