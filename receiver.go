package cast

// Receiver API: thin wrappers over Channel.send on the platform namespace
// (spec §4.F). Every operation allocates a request id, waits for the
// expected response kind(s), and maps the decoded payload (or a
// *_ERROR response) to the public return type.

import (
	"context"
	"time"

	"github.com/alxayo/go-cast/internal/castmsg"
)

// GetReceiverStatus requests the current ReceiverStatus (GET_STATUS on the
// receiver namespace).
func (c *Channel) GetReceiverStatus(ctx context.Context, timeout time.Duration) (castmsg.ReceiverStatus, error) {
	reqID := c.NextRequestID()
	req := castmsg.GetStatusRequest{Type: castmsg.TypeGetStatus, RequestID: reqID}
	raw, _, err := c.sendAwait(ctx, castmsg.NamespaceReceiver, platformDestination, req, reqID, timeout, castmsg.TypeReceiverStatus)
	if err != nil {
		return castmsg.ReceiverStatus{}, err
	}
	var resp castmsg.ReceiverStatusResponse
	if err := castmsg.Unmarshal(raw, &resp); err != nil {
		return castmsg.ReceiverStatus{}, &MalformedFrameError{Op: "GetReceiverStatus.decode", Err: err}
	}
	return resp.Status, nil
}

// Launch starts appId on the device (LAUNCH on the receiver namespace). A
// LAUNCH_ERROR response is reported as *LaunchError (spec §4.F).
func (c *Channel) Launch(ctx context.Context, appID string, timeout time.Duration) (castmsg.ReceiverStatus, error) {
	reqID := c.NextRequestID()
	req := castmsg.LaunchRequest{Type: castmsg.TypeLaunch, RequestID: reqID, AppID: appID}
	raw, disc, err := c.sendAwait(ctx, castmsg.NamespaceReceiver, platformDestination, req, reqID, timeout,
		castmsg.TypeReceiverStatus, castmsg.TypeLaunchError)
	if err != nil {
		return castmsg.ReceiverStatus{}, err
	}
	if disc.Kind() == castmsg.TypeLaunchError {
		var lerr castmsg.LaunchErrorResponse
		if decErr := castmsg.Unmarshal(raw, &lerr); decErr != nil {
			return castmsg.ReceiverStatus{}, &MalformedFrameError{Op: "Launch.decodeError", Err: decErr}
		}
		return castmsg.ReceiverStatus{}, &LaunchError{AppID: appID, Reason: lerr.Reason}
	}
	var resp castmsg.ReceiverStatusResponse
	if err := castmsg.Unmarshal(raw, &resp); err != nil {
		return castmsg.ReceiverStatus{}, &MalformedFrameError{Op: "Launch.decode", Err: err}
	}
	return resp.Status, nil
}

// Stop tears down the running application identified by sessionId (STOP on
// the receiver namespace).
func (c *Channel) Stop(ctx context.Context, sessionID string, timeout time.Duration) (castmsg.ReceiverStatus, error) {
	reqID := c.NextRequestID()
	req := castmsg.StopRequest{Type: castmsg.TypeStop, RequestID: reqID, SessionID: sessionID}
	raw, _, err := c.sendAwait(ctx, castmsg.NamespaceReceiver, platformDestination, req, reqID, timeout, castmsg.TypeReceiverStatus)
	if err != nil {
		return castmsg.ReceiverStatus{}, err
	}
	var resp castmsg.ReceiverStatusResponse
	if err := castmsg.Unmarshal(raw, &resp); err != nil {
		return castmsg.ReceiverStatus{}, &MalformedFrameError{Op: "Stop.decode", Err: err}
	}
	return resp.Status, nil
}

// SetVolume changes the platform (receiver-level) volume (SET_VOLUME on
// the receiver namespace).
func (c *Channel) SetVolume(ctx context.Context, vol castmsg.Volume, timeout time.Duration) (castmsg.ReceiverStatus, error) {
	reqID := c.NextRequestID()
	req := castmsg.SetVolumeRequest{Type: castmsg.TypeSetVolume, RequestID: reqID, Volume: vol}
	raw, _, err := c.sendAwait(ctx, castmsg.NamespaceReceiver, platformDestination, req, reqID, timeout, castmsg.TypeReceiverStatus)
	if err != nil {
		return castmsg.ReceiverStatus{}, err
	}
	var resp castmsg.ReceiverStatusResponse
	if err := castmsg.Unmarshal(raw, &resp); err != nil {
		return castmsg.ReceiverStatus{}, &MalformedFrameError{Op: "SetVolume.decode", Err: err}
	}
	return resp.Status, nil
}

// IsAppAvailable reports whether appId is available on the device
// (GET_APP_AVAILABILITY on the receiver namespace).
func (c *Channel) IsAppAvailable(ctx context.Context, appID string, timeout time.Duration) (bool, error) {
	reqID := c.NextRequestID()
	req := castmsg.GetAppAvailabilityRequest{Type: castmsg.TypeGetAppAvailability, RequestID: reqID, AppID: []string{appID}}
	raw, _, err := c.sendAwait(ctx, castmsg.NamespaceReceiver, platformDestination, req, reqID, timeout, castmsg.TypeGetAppAvailability)
	if err != nil {
		return false, err
	}
	var resp castmsg.GetAppAvailabilityResponse
	if err := castmsg.Unmarshal(raw, &resp); err != nil {
		return false, &MalformedFrameError{Op: "IsAppAvailable.decode", Err: err}
	}
	return resp.Availability[appID] == "APP_AVAILABLE", nil
}
