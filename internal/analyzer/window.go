package analyzer

import (
	"sync"

	"iot-shield/internal/model"
)

// DefaultWindowSize bounds how many recent events are kept per device
const DefaultWindowSize = 20

// Window is a fixed-capacity ring buffer of the most recent telemetry events
// for one device. The oldest event is evicted on overflow, so heuristics only
// ever see "recent" behavior and memory stays bounded.
type Window struct {
	events []model.TelemetryEvent
	head   int
	count  int
}

// NewWindow creates a window holding at most capacity events
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultWindowSize
	}
	return &Window{events: make([]model.TelemetryEvent, capacity)}
}

// Append adds an event, evicting the oldest when full
func (w *Window) Append(ev model.TelemetryEvent) {
	tail := (w.head + w.count) % len(w.events)
	w.events[tail] = ev
	if w.count < len(w.events) {
		w.count++
	} else {
		w.head = (w.head + 1) % len(w.events)
	}
}

// Len returns the number of buffered events
func (w *Window) Len() int {
	return w.count
}

// Events returns the buffered events in arrival order
func (w *Window) Events() []model.TelemetryEvent {
	out := make([]model.TelemetryEvent, 0, w.count)
	for i := 0; i < w.count; i++ {
		out = append(out, w.events[(w.head+i)%len(w.events)])
	}
	return out
}

// windowSet holds the per-device windows. Access is guarded so different
// devices can be analyzed from different goroutines.
type windowSet struct {
	mu       sync.Mutex
	capacity int
	windows  map[string]*Window
}

func newWindowSet(capacity int) *windowSet {
	return &windowSet{
		capacity: capacity,
		windows:  make(map[string]*Window),
	}
}

func (s *windowSet) get(deviceID string) *Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[deviceID]
	if !ok {
		w = NewWindow(s.capacity)
		s.windows[deviceID] = w
	}
	return w
}
