package castmsg

// Payload schemas are data carriers (spec §1: "only the fields and
// discriminants that the core interprets are specified"); this file models
// exactly those fields plus a handful the core happens to pass through.

// ConnectionEnvelope is the body of CONNECT/CLOSE on the connection
// namespace — no payload besides the discriminator (spec §4.C).
type ConnectionEnvelope struct {
	Type string `json:"type"`
}

// HeartbeatEnvelope is the body of PING/PONG.
type HeartbeatEnvelope struct {
	Type string `json:"type"`
}

// GetStatusRequest requests RECEIVER_STATUS or, on the media namespace, the
// MediaStatus list.
type GetStatusRequest struct {
	Type      string `json:"type"`
	RequestID int64  `json:"requestId"`
	MediaSessionID int `json:"mediaSessionId,omitempty"`
}

// LaunchRequest launches a receiver application.
type LaunchRequest struct {
	Type      string `json:"type"`
	RequestID int64  `json:"requestId"`
	AppID     string `json:"appId"`
}

// StopRequest stops a running application.
type StopRequest struct {
	Type      string `json:"type"`
	RequestID int64  `json:"requestId"`
	SessionID string `json:"sessionId"`
}

// SetVolumeRequest carries a platform-level (receiver) volume change.
type SetVolumeRequest struct {
	Type      string `json:"type"`
	RequestID int64  `json:"requestId"`
	Volume    Volume `json:"volume"`
}

// GetAppAvailabilityRequest asks whether one or more app ids can be launched.
type GetAppAvailabilityRequest struct {
	Type      string   `json:"type"`
	RequestID int64    `json:"requestId"`
	AppID     []string `json:"appId"`
}

// GetAppAvailabilityResponse maps each requested app id to its availability
// string; spec §4.F treats "APP_AVAILABLE" as the positive case.
type GetAppAvailabilityResponse struct {
	ResponseType string            `json:"responseType"`
	RequestID    int64             `json:"requestId"`
	Availability map[string]string `json:"availability"`
}

// Volume mirrors spec §3's Volume entity. Pointer fields preserve "null
// means not asserted" semantics (spec §9).
type Volume struct {
	Level        *float64 `json:"level,omitempty"`
	Muted        *bool    `json:"muted,omitempty"`
	ControlType  string   `json:"controlType,omitempty"`
	StepInterval float64  `json:"stepInterval,omitempty"`
}

// Application mirrors spec §3's Application entity.
type Application struct {
	AppID               string   `json:"appId"`
	SessionID           string   `json:"sessionId"`
	TransportID         string   `json:"transportId,omitempty"`
	DisplayName         string   `json:"displayName,omitempty"`
	StatusText          string   `json:"statusText,omitempty"`
	Namespaces          []NamespaceEntry `json:"namespaces,omitempty"`
	IsIdleScreen        bool     `json:"isIdleScreen,omitempty"`
	IsLaunchedFromCloud bool     `json:"isLaunchedFromCloud,omitempty"`
}

// NamespaceEntry is one element of Application.Namespaces.
type NamespaceEntry struct {
	Name string `json:"name"`
}

// Destination returns the endpoint media-namespace traffic for this
// application should address: transportId if present, otherwise sessionId
// (spec §9, preserved fallback precedence).
func (a Application) Destination() string {
	if a.TransportID != "" {
		return a.TransportID
	}
	return a.SessionID
}

// ReceiverStatusResponse is the RECEIVER_STATUS response body.
type ReceiverStatusResponse struct {
	ResponseType string `json:"responseType"`
	RequestID    int64  `json:"requestId"`
	Status       ReceiverStatus `json:"status"`
}

// ReceiverStatus mirrors spec §3's ReceiverStatus entity.
type ReceiverStatus struct {
	Volume        Volume        `json:"volume"`
	Applications  []Application `json:"applications"`
	IsActiveInput bool          `json:"isActiveInput"`
	IsStandBy     bool          `json:"isStandBy"`
}

// RunningApplication returns applications[0] (spec §3's convention for "the
// currently running application") and whether one exists.
func (s ReceiverStatus) RunningApplication() (Application, bool) {
	if len(s.Applications) == 0 {
		return Application{}, false
	}
	return s.Applications[0], true
}

// LaunchErrorResponse maps to cast.LaunchError (spec §7).
type LaunchErrorResponse struct {
	ResponseType string `json:"responseType"`
	RequestID    int64  `json:"requestId"`
	Reason       string `json:"reason"`
}

// InvalidRequestResponse maps to cast.InvalidRequestError (spec §7).
type InvalidRequestResponse struct {
	ResponseType string `json:"responseType"`
	RequestID    int64  `json:"requestId"`
	Reason       string `json:"reason"`
}

// Media mirrors the subset of the Media data carrier the core passes
// through verbatim in a LOAD request.
type Media struct {
	ContentID   string  `json:"contentId"`
	ContentType string  `json:"contentType"`
	StreamType  string  `json:"streamType"`
	Duration    float64 `json:"duration,omitempty"`
	CustomData  any     `json:"customData,omitempty"`
}

// LoadRequest is the media-namespace LOAD payload (spec §4.G).
type LoadRequest struct {
	Type            string   `json:"type"`
	RequestID       int64    `json:"requestId"`
	SessionID       string   `json:"sessionId"`
	Media           Media    `json:"media"`
	Autoplay        bool     `json:"autoplay"`
	CurrentTime     float64  `json:"currentTime"`
	ActiveTrackIDs  []int    `json:"activeTrackIds,omitempty"`
	PlaybackRate    float64  `json:"playbackRate,omitempty"`
	QueueData       any      `json:"queueData,omitempty"`
	CustomData      any      `json:"customData,omitempty"`
	LoadOptions     any      `json:"loadOptions,omitempty"`
	Credentials     string   `json:"credentials,omitempty"`
	CredentialsType string   `json:"credentialsType,omitempty"`
}

// MediaCommandRequest covers PLAY/PAUSE/STOP/SEEK/SET_VOLUME(media), all of
// which identify the target by mediaSessionId + sessionId (spec §4.G).
type MediaCommandRequest struct {
	Type           string  `json:"type"`
	RequestID      int64   `json:"requestId"`
	MediaSessionID int     `json:"mediaSessionId"`
	SessionID      string  `json:"sessionId"`
	CurrentTime    float64 `json:"currentTime,omitempty"`
	ResumeState    string  `json:"resumeState,omitempty"`
	Volume         *Volume `json:"volume,omitempty"`
}

// QueueLoadRequest is the media-namespace QUEUE_LOAD payload.
type QueueLoadRequest struct {
	Type       string       `json:"type"`
	RequestID  int64        `json:"requestId"`
	SessionID  string       `json:"sessionId"`
	Items      []QueueItem  `json:"items"`
	StartIndex int          `json:"startIndex"`
	RepeatMode string       `json:"repeatMode,omitempty"`
}

// QueueUpdateRequest is the media-namespace QUEUE_UPDATE payload.
type QueueUpdateRequest struct {
	Type      string      `json:"type"`
	RequestID int64       `json:"requestId"`
	SessionID string      `json:"sessionId"`
	Jump      int         `json:"jump,omitempty"`
	CurrentItemID int     `json:"currentItemId,omitempty"`
	Items     []QueueItem `json:"items,omitempty"`
}

// QueueItem mirrors spec §3's QueueItem entity (fields the core touches).
type QueueItem struct {
	ItemID      int     `json:"itemId,omitempty"`
	Media       Media   `json:"media"`
	Autoplay    bool    `json:"autoplay,omitempty"`
	StartTime   float64 `json:"startTime,omitempty"`
	PreloadTime float64 `json:"preloadTime,omitempty"`
}

// MediaStatusResponse is the MEDIA_STATUS response body.
type MediaStatusResponse struct {
	ResponseType string        `json:"responseType"`
	RequestID    int64         `json:"requestId"`
	Status       []MediaStatus `json:"status"`
}

// MediaStatus mirrors spec §3's MediaStatus entity.
type MediaStatus struct {
	MediaSessionID         int            `json:"mediaSessionId"`
	PlayerState            string         `json:"playerState"`
	IdleReason             string         `json:"idleReason,omitempty"`
	CurrentTime            float64        `json:"currentTime"`
	PlaybackRate           float64        `json:"playbackRate"`
	SupportedMediaCommands int            `json:"supportedMediaCommands"`
	RepeatMode             string         `json:"repeatMode,omitempty"`
	Items                  []QueueItem    `json:"items,omitempty"`
	CurrentItemID          int            `json:"currentItemId,omitempty"`
	LoadingItemID          int            `json:"loadingItemId,omitempty"`
	PreloadedItemID        int            `json:"preloadedItemId,omitempty"`
	Media                  *Media         `json:"media,omitempty"`
	Volume                 Volume         `json:"volume"`
	ActiveTrackIDs         []int          `json:"activeTrackIds,omitempty"`
	CustomData             any            `json:"customData,omitempty"`
}

// LoadFailedResponse maps to cast.LoadFailedError (spec §7).
type LoadFailedResponse struct {
	ResponseType string `json:"responseType"`
	RequestID    int64  `json:"requestId"`
	ItemID       int    `json:"itemId,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// LoadCancelledResponse maps to cast.LoadCancelledError (spec §7). ItemID
// is optional per spec §7 ("carries an optional item id").
type LoadCancelledResponse struct {
	ResponseType string `json:"responseType"`
	RequestID    int64  `json:"requestId"`
	ItemID       *int   `json:"itemId,omitempty"`
}
