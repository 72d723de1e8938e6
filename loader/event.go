package loader

import (
	"log"
	"slices"
	"time"

	"github.com/dustin/go-humanize"
)

// EventType identifies the kind of Event.
type EventType string

const (
	// EventProgress is dispatched as archive bytes arrive.
	EventProgress EventType = "progress"
	// EventLoad is dispatched once the archive has been parsed.
	EventLoad EventType = "load"
	// EventError is dispatched if the archive could not be retrieved or parsed.
	EventError EventType = "error"
)

// Event is passed to every Listener.
type Event struct {
	Type EventType

	// Loaded and Total are the number of bytes retrieved so far and in total (-1 if unknown). EventProgress only.
	Loaded, Total int64

	// Elapsed is the time since Load started.
	Elapsed time.Duration

	// Err is the cause of an EventError.
	Err error

	// Target is the Loader dispatching the event.
	Target *Loader
}

// Listener is a callback registered with Loader.On.
type Listener func(Event)

// ListenerID identifies a registration returned by Loader.On.
type ListenerID uint64

type registration struct {
	id ListenerID
	fn Listener
}

// On registers fn for events of the given type and returns the id to pass to Off.
//
// Listeners are invoked in registration order on the goroutine that dispatches the event.
func (l *Loader) On(t EventType, fn Listener) ListenerID {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	l.listeners[t] = append(l.listeners[t], registration{id: l.nextID, fn: fn})
	return l.nextID
}

// Off removes the registration with the given id. Returns false if there was none.
//
// Off may be called from within a Listener; a dispatch that has already started still invokes every listener that
// was registered when it started, exactly once.
func (l *Loader) Off(t EventType, id ListenerID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	regs := l.listeners[t]
	i := slices.IndexFunc(regs, func(r registration) bool {
		return r.id == id
	})
	if i == -1 {
		return false
	}

	// never modify the backing array in place since a dispatch may be iterating over a snapshot of it.
	l.listeners[t] = slices.Concat(regs[:i], regs[i+1:])
	return true
}

func (l *Loader) dispatch(e Event) {
	e.Target = l

	for _, r := range l.snapshot(e.Type) {
		r.fn(e)
	}
}

// LogProgress returns a Listener that logs EventProgress and EventLoad events.
//
// For example: `downloaded 5.0 MiB / 12 MiB so far`. Register the listener for both event types to also get the
// final `loaded 12 MiB in 3s` line.
func LogProgress(logger *log.Logger) Listener {
	var loaded int64

	return func(e Event) {
		switch e.Type {
		case EventProgress:
			loaded = e.Loaded
			if e.Total < 0 {
				logger.Printf("downloaded %s so far", humanize.IBytes(uint64(e.Loaded)))
				return
			}

			logger.Printf("downloaded %s / %s so far", humanize.IBytes(uint64(e.Loaded)), humanize.IBytes(uint64(e.Total)))
		case EventLoad:
			logger.Printf("loaded %s in %s", humanize.IBytes(uint64(loaded)), e.Elapsed.Round(time.Millisecond))
		case EventError:
			logger.Printf("load error: %v", e.Err)
		}
	}
}
