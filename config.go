package cast

import "time"

// EventDispatchMode selects how the event bus invokes listeners (spec §4.H).
type EventDispatchMode int

const (
	// DispatchWorkerPool invokes listeners on a bounded pool of worker
	// goroutines, decoupling listener latency from the reader. This is
	// the zero value so a caller-constructed zero Config lands on the
	// spec default without an explicit assignment.
	DispatchWorkerPool EventDispatchMode = iota
	// DispatchInline invokes listeners synchronously on the reader
	// goroutine. A slow or misbehaving listener stalls frame processing.
	DispatchInline
)

// Config holds the channel's tunable options (spec §6). Defaults match
// the device's own documented timings.
type Config struct {
	// RequestTimeout bounds how long send() waits for a response before
	// failing with a TimeoutError. Zero means DefaultRequestTimeout.
	RequestTimeout time.Duration
	// HeartbeatInterval is how often PING is sent on the platform
	// endpoint. Zero means DefaultHeartbeatInterval.
	HeartbeatInterval time.Duration
	// HeartbeatGraceWindow is the silence duration after which the
	// channel is considered lost. Zero means DefaultHeartbeatGraceWindow.
	HeartbeatGraceWindow time.Duration
	// DisableAutoReconnect turns off transparent reconnect on the next
	// send() that observes a disconnected channel. The spec default is
	// autoReconnect=true, so this is inverted: the zero value (false)
	// keeps autoreconnect on.
	DisableAutoReconnect bool
	// EventDispatchMode selects inline vs worker-pool listener dispatch.
	EventDispatchMode EventDispatchMode
	// EventWorkerPoolSize bounds concurrent listener invocations when
	// EventDispatchMode is DispatchWorkerPool. Zero means
	// DefaultEventWorkerPoolSize.
	EventWorkerPoolSize int
}

// Defaults matching spec §6.
const (
	DefaultRequestTimeout       = 30 * time.Second
	DefaultHeartbeatInterval    = 5 * time.Second
	DefaultHeartbeatGraceWindow = 30 * time.Second
	DefaultEventWorkerPoolSize  = 10
)

// DefaultConfig returns a Config with every option at its spec §6 default.
func DefaultConfig() Config {
	return Config{
		RequestTimeout:       DefaultRequestTimeout,
		HeartbeatInterval:    DefaultHeartbeatInterval,
		HeartbeatGraceWindow: DefaultHeartbeatGraceWindow,
		EventDispatchMode:    DispatchWorkerPool,
		EventWorkerPoolSize:  DefaultEventWorkerPoolSize,
	}
}

// withDefaults fills any zero-valued field of c with its spec default,
// mirroring the teacher's flags/defaults merge in cmd/rtmp-server/flags.go.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.RequestTimeout == 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = d.HeartbeatInterval
	}
	if c.HeartbeatGraceWindow == 0 {
		c.HeartbeatGraceWindow = d.HeartbeatGraceWindow
	}
	if c.EventWorkerPoolSize == 0 {
		c.EventWorkerPoolSize = d.EventWorkerPoolSize
	}
	return c
}

// autoReconnect reports whether reconnect-on-send is enabled.
func (c Config) autoReconnect() bool { return !c.DisableAutoReconnect }
