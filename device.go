package cast

// Device is the high-level facade over a Channel (spec §4.I): the entry
// point most callers use instead of driving Channel/Session directly. It
// adds the "no application running" precondition for media operations
// issued without a held Session, and the volume-ramp helper.

import (
	"context"
	"math"
	"time"

	"github.com/alxayo/go-cast/internal/castmsg"
)

// Device wraps a Channel. The zero value is not usable; construct with
// NewDevice.
type Device struct {
	channel *Channel
}

// NewDevice constructs a Device over a freshly created Channel.
func NewDevice(cfg Config) *Device {
	return &Device{channel: NewChannel(cfg)}
}

// Channel exposes the underlying Channel for callers that need
// Session-scoped operations (the Media API) or direct event subscription.
func (d *Device) Channel() *Channel { return d.channel }

// Events returns the device's event bus.
func (d *Device) Events() *EventBus { return d.channel.Events() }

// Connect dials the device (spec §4.D's Connect, delegated).
func (d *Device) Connect(ctx context.Context, host string, port int, senderID string) error {
	return d.channel.Connect(ctx, host, port, senderID)
}

// Close tears down the channel (spec §4.D's Close, delegated).
func (d *Device) Close() error { return d.channel.Close() }

// GetStatus returns the current ReceiverStatus.
func (d *Device) GetStatus(ctx context.Context, timeout time.Duration) (castmsg.ReceiverStatus, error) {
	return d.channel.GetReceiverStatus(ctx, timeout)
}

// Launch starts appId and returns the resulting ReceiverStatus.
func (d *Device) Launch(ctx context.Context, appID string, timeout time.Duration) (castmsg.ReceiverStatus, error) {
	return d.channel.Launch(ctx, appID, timeout)
}

// SetVolume changes the platform volume directly (no ramping).
func (d *Device) SetVolume(ctx context.Context, vol castmsg.Volume, timeout time.Duration) (castmsg.ReceiverStatus, error) {
	return d.channel.SetVolume(ctx, vol, timeout)
}

// volumeEpsilon is the tolerance used when comparing volume levels, so the
// ramp loop terminates exactly at the target instead of oscillating around
// it due to floating-point step accumulation (spec §9's historical
// setVolumeByIncrement quirk).
const volumeEpsilon = 1e-9

func floatsEqual(a, b float64) bool { return math.Abs(a-b) < volumeEpsilon }

// SetVolumeByIncrement ramps the platform volume toward target in steps of
// the device-reported stepInterval, issuing one SET_VOLUME per step (spec
// §4.G, end-to-end scenario 4). Fails with *InvalidOperationError if the
// device reports a non-positive step interval.
func (d *Device) SetVolumeByIncrement(ctx context.Context, target float64, timeout time.Duration) error {
	status, err := d.channel.GetReceiverStatus(ctx, timeout)
	if err != nil {
		return err
	}
	level := 0.0
	if status.Volume.Level != nil {
		level = *status.Volume.Level
	}
	step := status.Volume.StepInterval
	if step <= 0 {
		return &InvalidOperationError{Op: "SetVolumeByIncrement", Reason: "device reports a non-positive volume increment"}
	}

	for !floatsEqual(level, target) {
		next := level + step
		if target < level {
			next = level - step
		}
		if (target > level && next > target) || (target < level && next < target) {
			next = target
		}
		status, err = d.channel.SetVolume(ctx, castmsg.Volume{Level: &next}, timeout)
		if err != nil {
			return err
		}
		if status.Volume.Level != nil {
			level = *status.Volume.Level
		} else {
			level = next
		}
	}
	return nil
}

// ensureRunningApplication fetches ReceiverStatus and fails with
// *NoApplicationRunningError if nothing is running (spec §4.G: "media
// operations issued through the device facade ... first fetch
// ReceiverStatus; if applications is empty, fail with NoApplicationRunning
// rather than issuing the request").
func (d *Device) ensureRunningApplication(ctx context.Context, timeout time.Duration) (castmsg.Application, error) {
	status, err := d.channel.GetReceiverStatus(ctx, timeout)
	if err != nil {
		return castmsg.Application{}, err
	}
	app, ok := status.RunningApplication()
	if !ok {
		return castmsg.Application{}, &NoApplicationRunningError{}
	}
	return app, nil
}

// ensureSession resolves the running application and returns an open
// Session to its transport endpoint, starting one if needed.
func (d *Device) ensureSession(ctx context.Context, timeout time.Duration) (*Session, castmsg.Application, error) {
	app, err := d.ensureRunningApplication(ctx, timeout)
	if err != nil {
		return nil, castmsg.Application{}, err
	}
	sess, err := d.channel.StartSession(ctx, d.channel.senderIDOrDefault(), app.Destination())
	if err != nil {
		return nil, castmsg.Application{}, err
	}
	return sess, app, nil
}

// Load locates the running application, opens (or reuses) a session to it,
// and issues LOAD (spec §4.G's facade precondition).
func (d *Device) Load(ctx context.Context, media castmsg.Media, autoplay bool, currentTime float64, timeout time.Duration) (castmsg.MediaStatus, error) {
	sess, app, err := d.ensureSession(ctx, timeout)
	if err != nil {
		return castmsg.MediaStatus{}, err
	}
	return sess.Load(ctx, app.SessionID, media, autoplay, currentTime, timeout)
}

// Play resumes mediaSessionId on the running application.
func (d *Device) Play(ctx context.Context, mediaSessionID int, timeout time.Duration) (castmsg.MediaStatus, error) {
	sess, app, err := d.ensureSession(ctx, timeout)
	if err != nil {
		return castmsg.MediaStatus{}, err
	}
	return sess.Play(ctx, app.SessionID, mediaSessionID, timeout)
}

// Pause suspends mediaSessionId on the running application.
func (d *Device) Pause(ctx context.Context, mediaSessionID int, timeout time.Duration) (castmsg.MediaStatus, error) {
	sess, app, err := d.ensureSession(ctx, timeout)
	if err != nil {
		return castmsg.MediaStatus{}, err
	}
	return sess.Pause(ctx, app.SessionID, mediaSessionID, timeout)
}

// StopMedia ends mediaSessionId on the running application.
func (d *Device) StopMedia(ctx context.Context, mediaSessionID int, timeout time.Duration) (castmsg.MediaStatus, error) {
	sess, app, err := d.ensureSession(ctx, timeout)
	if err != nil {
		return castmsg.MediaStatus{}, err
	}
	return sess.StopMedia(ctx, app.SessionID, mediaSessionID, timeout)
}
