package cast

// Media API: Session-scoped operations on the media namespace (spec
// §4.G). Every call here requires an open Session to the application's
// transport id; the Device facade (device.go) layers the "no application
// running" precondition on top of these. Its volume-ramp helper uses the
// receiver API's platform SetVolume, not this file.

import (
	"context"
	"time"

	"github.com/alxayo/go-cast/internal/castmsg"
)

func (s *Session) nextRequestID() int64 { return s.channel.NextRequestID() }

// Load starts playback of media in this session (LOAD on the media
// namespace). A LOAD_FAILED response is reported as *LoadFailedError; a
// LOAD_CANCELLED response is reported as *LoadCancelledError (spec §4.G,
// §7).
func (s *Session) Load(ctx context.Context, appSessionID string, media castmsg.Media, autoplay bool, currentTime float64, timeout time.Duration) (castmsg.MediaStatus, error) {
	reqID := s.nextRequestID()
	req := castmsg.LoadRequest{
		Type:        castmsg.TypeLoad,
		RequestID:   reqID,
		SessionID:   appSessionID,
		Media:       media,
		Autoplay:    autoplay,
		CurrentTime: currentTime,
	}
	raw, disc, err := s.channel.sendAwaitAs(ctx, s.SourceID, castmsg.NamespaceMedia, s.DestinationID, req, reqID, timeout,
		castmsg.TypeMediaStatus, castmsg.TypeLoadFailed, castmsg.TypeLoadCancelled)
	if err != nil {
		return castmsg.MediaStatus{}, err
	}
	switch disc.Kind() {
	case castmsg.TypeLoadFailed:
		var lf castmsg.LoadFailedResponse
		if decErr := castmsg.Unmarshal(raw, &lf); decErr != nil {
			return castmsg.MediaStatus{}, &MalformedFrameError{Op: "Load.decodeFailed", Err: decErr}
		}
		return castmsg.MediaStatus{}, &LoadFailedError{ItemID: lf.ItemID, Reason: lf.Reason}
	case castmsg.TypeLoadCancelled:
		var lc castmsg.LoadCancelledResponse
		if decErr := castmsg.Unmarshal(raw, &lc); decErr != nil {
			return castmsg.MediaStatus{}, &MalformedFrameError{Op: "Load.decodeCancelled", Err: decErr}
		}
		itemID := -1
		if lc.ItemID != nil {
			itemID = *lc.ItemID
		}
		return castmsg.MediaStatus{}, &LoadCancelledError{ItemID: itemID}
	default:
		return s.decodeFirstMediaStatus(raw)
	}
}

// Play resumes playback of mediaSessionId (PLAY on the media namespace).
func (s *Session) Play(ctx context.Context, appSessionID string, mediaSessionID int, timeout time.Duration) (castmsg.MediaStatus, error) {
	return s.mediaCommand(ctx, castmsg.TypePlay, appSessionID, mediaSessionID, timeout, nil)
}

// Pause suspends playback of mediaSessionId (PAUSE on the media namespace).
func (s *Session) Pause(ctx context.Context, appSessionID string, mediaSessionID int, timeout time.Duration) (castmsg.MediaStatus, error) {
	return s.mediaCommand(ctx, castmsg.TypePause, appSessionID, mediaSessionID, timeout, nil)
}

// StopMedia ends playback of mediaSessionId (STOP on the media namespace —
// distinct from the receiver API's Stop, which tears down the application).
func (s *Session) StopMedia(ctx context.Context, appSessionID string, mediaSessionID int, timeout time.Duration) (castmsg.MediaStatus, error) {
	return s.mediaCommand(ctx, castmsg.TypeStop, appSessionID, mediaSessionID, timeout, nil)
}

// Seek moves playback of mediaSessionId to currentTime (SEEK on the media
// namespace).
func (s *Session) Seek(ctx context.Context, appSessionID string, mediaSessionID int, currentTime float64, timeout time.Duration) (castmsg.MediaStatus, error) {
	reqID := s.nextRequestID()
	req := castmsg.MediaCommandRequest{
		Type:           castmsg.TypeSeek,
		RequestID:      reqID,
		MediaSessionID: mediaSessionID,
		SessionID:      appSessionID,
		CurrentTime:    currentTime,
	}
	return s.awaitMediaStatus(ctx, reqID, req, timeout)
}

// SetMediaVolume changes the stream-level volume of mediaSessionId
// (SET_VOLUME on the media namespace — distinct from the receiver API's
// SetVolume, which changes the platform volume).
func (s *Session) SetMediaVolume(ctx context.Context, appSessionID string, mediaSessionID int, vol castmsg.Volume, timeout time.Duration) (castmsg.MediaStatus, error) {
	return s.mediaCommand(ctx, castmsg.TypeSetVolume, appSessionID, mediaSessionID, timeout, &vol)
}

func (s *Session) mediaCommand(ctx context.Context, typ, appSessionID string, mediaSessionID int, timeout time.Duration, vol *castmsg.Volume) (castmsg.MediaStatus, error) {
	reqID := s.nextRequestID()
	req := castmsg.MediaCommandRequest{
		Type:           typ,
		RequestID:      reqID,
		MediaSessionID: mediaSessionID,
		SessionID:      appSessionID,
		Volume:         vol,
	}
	return s.awaitMediaStatus(ctx, reqID, req, timeout)
}

// GetMediaStatus requests the MediaStatus list for this session (GET_STATUS
// on the media namespace).
func (s *Session) GetMediaStatus(ctx context.Context, mediaSessionID int, timeout time.Duration) ([]castmsg.MediaStatus, error) {
	reqID := s.nextRequestID()
	req := castmsg.GetStatusRequest{Type: castmsg.TypeGetStatus, RequestID: reqID, MediaSessionID: mediaSessionID}
	raw, _, err := s.channel.sendAwaitAs(ctx, s.SourceID, castmsg.NamespaceMedia, s.DestinationID, req, reqID, timeout, castmsg.TypeMediaStatus)
	if err != nil {
		return nil, err
	}
	var resp castmsg.MediaStatusResponse
	if err := castmsg.Unmarshal(raw, &resp); err != nil {
		return nil, &MalformedFrameError{Op: "GetMediaStatus.decode", Err: err}
	}
	return resp.Status, nil
}

// QueueLoad replaces the playback queue with items (QUEUE_LOAD on the media
// namespace).
func (s *Session) QueueLoad(ctx context.Context, appSessionID string, items []castmsg.QueueItem, startIndex int, repeatMode string, timeout time.Duration) (castmsg.MediaStatus, error) {
	reqID := s.nextRequestID()
	req := castmsg.QueueLoadRequest{
		Type:       castmsg.TypeQueueLoad,
		RequestID:  reqID,
		SessionID:  appSessionID,
		Items:      items,
		StartIndex: startIndex,
		RepeatMode: repeatMode,
	}
	return s.awaitMediaStatus(ctx, reqID, req, timeout)
}

// QueueUpdate modifies the playback queue in place (QUEUE_UPDATE on the
// media namespace).
func (s *Session) QueueUpdate(ctx context.Context, appSessionID string, jump, currentItemID int, items []castmsg.QueueItem, timeout time.Duration) (castmsg.MediaStatus, error) {
	reqID := s.nextRequestID()
	req := castmsg.QueueUpdateRequest{
		Type:          castmsg.TypeQueueUpdate,
		RequestID:     reqID,
		SessionID:     appSessionID,
		Jump:          jump,
		CurrentItemID: currentItemID,
		Items:         items,
	}
	return s.awaitMediaStatus(ctx, reqID, req, timeout)
}

func (s *Session) awaitMediaStatus(ctx context.Context, reqID int64, payload any, timeout time.Duration) (castmsg.MediaStatus, error) {
	raw, _, err := s.channel.sendAwaitAs(ctx, s.SourceID, castmsg.NamespaceMedia, s.DestinationID, payload, reqID, timeout, castmsg.TypeMediaStatus)
	if err != nil {
		return castmsg.MediaStatus{}, err
	}
	return s.decodeFirstMediaStatus(raw)
}

func (s *Session) decodeFirstMediaStatus(raw []byte) (castmsg.MediaStatus, error) {
	var resp castmsg.MediaStatusResponse
	if err := castmsg.Unmarshal(raw, &resp); err != nil {
		return castmsg.MediaStatus{}, &MalformedFrameError{Op: "decodeMediaStatus", Err: err}
	}
	if len(resp.Status) == 0 {
		return castmsg.MediaStatus{}, nil
	}
	return resp.Status[0], nil
}
