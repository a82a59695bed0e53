package progress

import (
	"sync"
	"time"

	"github.com/socialstudio/ugc-collector/internal/models"
)

// Sink receives progress events from the stages of a run.
type Sink interface {
	Record(event models.ProgressEvent)
}

// historyLimit bounds the retained event history so a long poll loop cannot
// grow the tracker without bound.
const historyLimit = 50

// streamBuffer is the capacity of the event channel handed to consumers.
const streamBuffer = 64

// Tracker accumulates the progress events of a single collection run and
// derives an ETA from them. It is safe for concurrent use.
type Tracker struct {
	mu        sync.RWMutex
	startedAt time.Time
	history   []models.ProgressEvent
	stream    chan models.ProgressEvent

	// now is overridable for tests
	now func() time.Time
}

// NewTracker creates a tracker whose elapsed time starts now.
func NewTracker() *Tracker {
	t := &Tracker{
		stream: make(chan models.ProgressEvent, streamBuffer),
		now:    time.Now,
	}
	t.startedAt = t.now()
	return t
}

// Record appends an event. Percentages never regress: an event reporting a
// lower percentage than the latest recorded one is clamped up to it.
func (t *Tracker) Record(event models.ProgressEvent) {
	t.mu.Lock()

	if event.At.IsZero() {
		event.At = t.now()
	}
	if event.Percentage < 0 {
		event.Percentage = 0
	}
	if event.Percentage > 100 {
		event.Percentage = 100
	}
	if last, ok := t.latestLocked(); ok && event.Percentage < last.Percentage {
		event.Percentage = last.Percentage
	}

	t.history = append(t.history, event)
	if len(t.history) > historyLimit {
		t.history = t.history[len(t.history)-historyLimit:]
	}

	t.mu.Unlock()

	// Non-blocking send: a slow consumer never stalls the run.
	select {
	case t.stream <- event:
	default:
	}
}

// Current returns the latest recorded event.
func (t *Tracker) Current() (models.ProgressEvent, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.latestLocked()
}

// History returns a copy of the retained event history, oldest first.
func (t *Tracker) History() []models.ProgressEvent {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]models.ProgressEvent, len(t.history))
	copy(out, t.history)
	return out
}

// Events returns the stream of recorded events. Events recorded while the
// buffer is full are dropped from the stream but kept in History.
func (t *Tracker) Events() <-chan models.ProgressEvent {
	return t.stream
}

// ETA estimates the remaining run time by linear extrapolation of the latest
// percentage. It returns 0 when no event with a positive percentage exists.
func (t *Tracker) ETA() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	latest, ok := t.latestLocked()
	if !ok || latest.Percentage <= 0 {
		return 0
	}

	elapsed := t.now().Sub(t.startedAt)
	total := time.Duration(float64(elapsed) / float64(latest.Percentage) * 100)
	remaining := total - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (t *Tracker) latestLocked() (models.ProgressEvent, bool) {
	if len(t.history) == 0 {
		return models.ProgressEvent{}, false
	}
	return t.history[len(t.history)-1], true
}
