// Package castmsg decodes and builds the JSON message envelopes carried
// inside CastMessage.payload_utf8 (spec §4.C). Requests are discriminated
// by a "type" field, responses by "responseType"; both are decoded with
// jsoniter's standard-library-compatible codec (grounded on
// rockstar-0000-aistore's cmn/cos/fs.go use of jsoniter.Marshal/Unmarshal),
// which — like encoding/json — ignores fields it doesn't model, satisfying
// the "tolerate unknown fields" requirement without extra configuration.
package castmsg

import (
	"bytes"
	"encoding/json"

	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Request/response type-string constants (spec §4.C).
const (
	TypeConnect             = "CONNECT"
	TypeClose               = "CLOSE"
	TypePing                = "PING"
	TypePong                = "PONG"
	TypeGetStatus           = "GET_STATUS"
	TypeLaunch              = "LAUNCH"
	TypeStop                = "STOP"
	TypeSetVolume           = "SET_VOLUME"
	TypeGetAppAvailability  = "GET_APP_AVAILABILITY"
	TypeLoad                = "LOAD"
	TypePlay                = "PLAY"
	TypePause               = "PAUSE"
	TypeSeek                = "SEEK"
	TypeQueueLoad           = "QUEUE_LOAD"
	TypeQueueUpdate         = "QUEUE_UPDATE"
	TypeReceiverStatus      = "RECEIVER_STATUS"
	TypeMediaStatus         = "MEDIA_STATUS"
	TypeInvalidRequest      = "INVALID_REQUEST"
	TypeLaunchError         = "LAUNCH_ERROR"
	TypeLoadFailed          = "LOAD_FAILED"
	TypeLoadCancelled       = "LOAD_CANCELLED"
	TypeMultizoneStatus     = "MULTIZONE_STATUS"
	TypeDeviceAdded         = "DEVICE_ADDED"
	TypeDeviceUpdated       = "DEVICE_UPDATED"
	TypeDeviceRemoved       = "DEVICE_REMOVED"
	TypeUnknown             = "UNKNOWN"
)

// Namespaces used by the core (spec §4.C, §6).
const (
	NamespaceReceiver   = "urn:x-cast:com.google.cast.receiver"
	NamespaceConnection = "urn:x-cast:com.google.cast.tp.connection"
	NamespaceHeartbeat  = "urn:x-cast:com.google.cast.tp.heartbeat"
	NamespaceMedia      = "urn:x-cast:com.google.cast.media"
	NamespaceDeviceAuth = "urn:x-cast:com.google.cast.tp.deviceauth"
)

// Discriminator is the minimal shape every inbound payload is first decoded
// into, so the reader can route before fully parsing the specific schema.
type Discriminator struct {
	Type         string `json:"type,omitempty"`
	ResponseType string `json:"responseType,omitempty"`
	RequestID    int64  `json:"requestId,omitempty"`
}

// PeekDiscriminator decodes just the type/responseType/requestId fields of
// a raw JSON payload. Unknown/extra fields are ignored by jsoniter's
// standard-library-compatible mode, same as plain encoding/json would.
func PeekDiscriminator(raw []byte) (Discriminator, error) {
	var d Discriminator
	if err := jsonAPI.Unmarshal(raw, &d); err != nil {
		return Discriminator{}, err
	}
	return d, nil
}

// Kind returns whichever of Type/ResponseType is set, preferring
// ResponseType (a frame is never both a request and a response).
func (d Discriminator) Kind() string {
	if d.ResponseType != "" {
		return d.ResponseType
	}
	return d.Type
}

// Marshal encodes v with the same jsoniter codec used for decoding.
func Marshal(v any) ([]byte, error) { return jsonAPI.Marshal(v) }

// Unmarshal decodes raw into v with the same jsoniter codec used elsewhere
// in this package.
func Unmarshal(raw []byte, v any) error { return jsonAPI.Unmarshal(raw, v) }

// RawTree holds an arbitrary decoded JSON object, used for UNKNOWN events
// (spec §4.D: "An unrecognized responseType produces an UNKNOWN event
// carrying the raw JSON tree; each listener receives a deep copy").
type RawTree map[string]any

// DeepCopy returns an independent copy of t so concurrent listeners never
// observe each other's mutations (spec §4.H).
func (t RawTree) DeepCopy() RawTree {
	if t == nil {
		return nil
	}
	out := make(RawTree, len(t))
	for k, v := range t {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, vv := range x {
			out[k] = deepCopyValue(vv)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, vv := range x {
			out[i] = deepCopyValue(vv)
		}
		return out
	default:
		return x
	}
}

// DecodeRawTree parses raw into a RawTree for UNKNOWN events.
func DecodeRawTree(raw []byte) (RawTree, error) {
	var tree RawTree
	// json.Number keeps int/float distinctions legible to callers inspecting
	// an UNKNOWN tree; jsoniter's compatible mode honors the same Decoder
	// options as encoding/json.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&tree); err != nil {
		return nil, err
	}
	return tree, nil
}
