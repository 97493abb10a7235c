package cast

// EventBus adapts the teacher's hooks.HookManager/executionPool
// (internal/rtmp/server/hooks/manager.go) from a fire-and-forget hook
// registry keyed by EventType to a typed listener list with per-listener
// type filters and copy-on-write snapshot semantics (spec §4.H).

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/alxayo/go-cast/internal/castmsg"
)

// EventType identifies the kind of Event fired on the bus. Values line up
// with the JSON discriminators of spec §4.C plus the synthetic connection
// lifecycle event.
type EventType string

const (
	EventConnected        EventType = "CONNECTED"
	EventClose             EventType = "CLOSE"
	EventReceiverStatus     EventType = "RECEIVER_STATUS"
	EventMediaStatus        EventType = "MEDIA_STATUS"
	EventLaunchError        EventType = "LAUNCH_ERROR"
	EventLoadFailed         EventType = "LOAD_FAILED"
	EventLoadCancelled      EventType = "LOAD_CANCELLED"
	EventInvalidRequest     EventType = "INVALID_REQUEST"
	EventMultizoneStatus    EventType = "MULTIZONE_STATUS"
	EventDeviceAdded        EventType = "DEVICE_ADDED"
	EventDeviceUpdated      EventType = "DEVICE_UPDATED"
	EventDeviceRemoved      EventType = "DEVICE_REMOVED"
	EventUnknown            EventType = "UNKNOWN"
)

// Event is delivered to listeners by the bus. Data carries the decoded
// payload for the event's Type — a bool for EventConnected, the remote
// source id string for EventClose, a typed struct (e.g.
// castmsg.ReceiverStatusResponse) for the status and error response kinds,
// and a castmsg.RawTree for EventMultizoneStatus, the EventDevice* kinds and
// EventUnknown.
type Event struct {
	Type EventType
	Data any
}

// Listener receives events from an EventBus. Implementations must return
// promptly; a listener that blocks under DispatchInline stalls the reader,
// and one that blocks under DispatchWorkerPool consumes a worker slot.
type Listener interface {
	HandleEvent(Event)
}

// ListenerFunc adapts a plain func to a Listener.
type ListenerFunc func(Event)

// HandleEvent implements Listener.
func (f ListenerFunc) HandleEvent(e Event) { f(e) }

type registration struct {
	listener Listener
	types    map[EventType]bool // nil/empty means "all types"
}

func (r registration) matches(t EventType) bool {
	if len(r.types) == 0 {
		return true
	}
	return r.types[t]
}

// EventBus is a listener list with inline or worker-pool dispatch,
// snapshot-on-fire semantics, and deep-copy isolation for UNKNOWN events.
type EventBus struct {
	mode EventDispatchMode
	pool *dispatchPool
	log  *slog.Logger

	mu   sync.Mutex     // guards regs during mutation (copy-on-write)
	regs atomic.Pointer[[]registration]
}

// NewEventBus creates a bus in the given mode. poolSize is only used for
// DispatchWorkerPool and defaults to DefaultEventWorkerPoolSize when <= 0.
func NewEventBus(mode EventDispatchMode, poolSize int, log *slog.Logger) *EventBus {
	if log == nil {
		log = slog.Default()
	}
	if poolSize <= 0 {
		poolSize = DefaultEventWorkerPoolSize
	}
	b := &EventBus{mode: mode, log: log}
	empty := []registration{}
	b.regs.Store(&empty)
	if mode == DispatchWorkerPool {
		b.pool = newDispatchPool(poolSize, log)
	}
	return b
}

// Add registers listener for the given types; an empty types list means
// "receive everything" (spec §4.H).
func (b *EventBus) Add(listener Listener, types ...EventType) {
	if listener == nil {
		return
	}
	var filter map[EventType]bool
	if len(types) > 0 {
		filter = make(map[EventType]bool, len(types))
		for _, t := range types {
			filter[t] = true
		}
	}
	b.mutate(func(cur []registration) []registration {
		return append(cur, registration{listener: listener, types: filter})
	})
}

// AddAll registers each of listeners with no type filter, one Add call per
// listener, so each receives every event — provided for API parity with
// spec §4.H's addAll.
func (b *EventBus) AddAll(listeners ...Listener) {
	for _, l := range listeners {
		b.Add(l)
	}
}

// Remove unregisters every registration for listener (identity comparison).
func (b *EventBus) Remove(listener Listener) {
	b.mutate(func(cur []registration) []registration {
		out := make([]registration, 0, len(cur))
		for _, r := range cur {
			if r.listener != listener {
				out = append(out, r)
			}
		}
		return out
	})
}

// RemoveAll unregisters every registration for each listener in listeners.
func (b *EventBus) RemoveAll(listeners ...Listener) {
	set := make(map[Listener]bool, len(listeners))
	for _, l := range listeners {
		set[l] = true
	}
	b.mutate(func(cur []registration) []registration {
		out := make([]registration, 0, len(cur))
		for _, r := range cur {
			if !set[r.listener] {
				out = append(out, r)
			}
		}
		return out
	})
}

// Clear removes every listener.
func (b *EventBus) Clear() {
	b.mutate(func([]registration) []registration { return []registration{} })
}

// mutate performs a copy-on-write update of the registration slice so Fire
// never needs to lock for iteration (spec §5: "Listener list mutations use
// a copy-on-write strategy").
func (b *EventBus) mutate(f func([]registration) []registration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cur := *b.regs.Load()
	next := f(cur)
	b.regs.Store(&next)
}

// Fire dispatches event to every listener whose filter matches. The
// listener snapshot is taken atomically so concurrent Add/Remove calls
// never affect this dispatch (spec §4.H snapshot semantics).
func (b *EventBus) Fire(event Event) {
	snapshot := *b.regs.Load()
	if len(snapshot) == 0 {
		return
	}
	for _, r := range snapshot {
		if !r.matches(event.Type) {
			continue
		}
		ev := event
		if tree, ok := event.Data.(castmsg.RawTree); ok {
			ev.Data = tree.DeepCopy()
		}
		listener := r.listener
		switch b.mode {
		case DispatchInline:
			b.invoke(listener, ev)
		default:
			b.pool.execute(listener, ev, b.invoke)
		}
	}
}

// invoke runs listener, recovering from and logging a panic so that one
// misbehaving listener never takes down the reader or the worker pool
// (spec §4.D: "Listener exceptions must be caught and logged; they must
// never abort the reader").
func (b *EventBus) invoke(listener Listener, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event listener panicked", "event_type", event.Type, "panic", r)
		}
	}()
	listener.HandleEvent(event)
}

// Close waits for in-flight worker-pool dispatches, if any, to finish. The
// bus stays usable afterwards: a later Fire dispatches as before, which is
// what a Channel reconnecting after Close relies on.
func (b *EventBus) Close() {
	if b.pool != nil {
		b.pool.close()
	}
}

// dispatchPool bounds concurrent listener invocations, mirroring the
// teacher's executionPool (internal/rtmp/server/hooks/manager.go): a
// buffered channel used as a counting semaphore, one goroutine per
// dispatch.
type dispatchPool struct {
	workers chan struct{}
	wg      sync.WaitGroup
	log     *slog.Logger
}

func newDispatchPool(size int, log *slog.Logger) *dispatchPool {
	return &dispatchPool{workers: make(chan struct{}, size), log: log}
}

// execute spawns the dispatch goroutine first and only then acquires the
// semaphore token from inside it, mirroring the teacher's
// executionPool.execute (internal/rtmp/server/hooks/manager.go): the
// caller — here, channel.go's reader goroutine via Fire — must never block
// on pool capacity (spec §4.H's "bounded unbounded-queue pool"). Acquiring
// the token before spawning would stall the reader once the pool
// saturates, which in turn stalls heartbeat staleness tracking.
func (p *dispatchPool) execute(listener Listener, event Event, invoke func(Listener, Event)) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.workers <- struct{}{}
		defer func() { <-p.workers }()
		invoke(listener, event)
	}()
}

func (p *dispatchPool) close() {
	p.wg.Wait()
}
