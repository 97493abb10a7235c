// Package castpb hand-codes the two wire messages the Cast protocol needs
// at the transport layer: CastMessage (every frame) and the auth handshake's
// DeviceAuthMessage. Field numbers below are the real Cast Channel protobuf
// schema; encoding/decoding goes straight to protowire's tag/varint/bytes
// primitives rather than a protoc-generated struct, since no toolchain run
// is available to regenerate one.
package castpb

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// PayloadType mirrors CastMessage.PayloadType.
type PayloadType int32

const (
	PayloadTypeString PayloadType = 0
	PayloadTypeBinary PayloadType = 1
)

// ProtocolVersion mirrors CastMessage.ProtocolVersion. Only one value is
// defined by the wire protocol in active use.
type ProtocolVersion int32

const ProtocolVersionCastV2_1_0 ProtocolVersion = 0

const (
	fieldProtocolVersion = 1
	fieldSourceID        = 2
	fieldDestinationID   = 3
	fieldNamespace       = 4
	fieldPayloadType     = 5
	fieldPayloadUTF8     = 6
	fieldPayloadBinary   = 7
)

// CastMessage is the wire envelope carried by every frame (spec §3, §6).
type CastMessage struct {
	ProtocolVersion ProtocolVersion
	SourceID        string
	DestinationID   string
	Namespace       string
	PayloadType     PayloadType
	PayloadUTF8     string
	PayloadBinary   []byte
}

// Marshal serializes m using the protobuf wire format. Exactly one of
// PayloadUTF8 (PayloadTypeString) or PayloadBinary (PayloadTypeBinary) is
// emitted, matching the source PayloadType.
func (m *CastMessage) Marshal() ([]byte, error) {
	if m.Namespace == "" {
		return nil, fmt.Errorf("castpb: namespace must not be empty")
	}
	if m.SourceID == "" || m.DestinationID == "" {
		return nil, fmt.Errorf("castpb: source_id and destination_id must not be empty")
	}

	var b []byte
	b = protowire.AppendTag(b, fieldProtocolVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.ProtocolVersion))
	b = protowire.AppendTag(b, fieldSourceID, protowire.BytesType)
	b = protowire.AppendString(b, m.SourceID)
	b = protowire.AppendTag(b, fieldDestinationID, protowire.BytesType)
	b = protowire.AppendString(b, m.DestinationID)
	b = protowire.AppendTag(b, fieldNamespace, protowire.BytesType)
	b = protowire.AppendString(b, m.Namespace)
	b = protowire.AppendTag(b, fieldPayloadType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.PayloadType))

	switch m.PayloadType {
	case PayloadTypeString:
		b = protowire.AppendTag(b, fieldPayloadUTF8, protowire.BytesType)
		b = protowire.AppendString(b, m.PayloadUTF8)
	case PayloadTypeBinary:
		b = protowire.AppendTag(b, fieldPayloadBinary, protowire.BytesType)
		b = protowire.AppendBytes(b, m.PayloadBinary)
	default:
		return nil, fmt.Errorf("castpb: unknown payload type %d", m.PayloadType)
	}
	return b, nil
}

// Unmarshal parses b (the protobuf body of one frame, §4.A) into m.
// Unknown fields are skipped so that future protocol_version bumps adding
// fields don't break this client.
func Unmarshal(b []byte) (*CastMessage, error) {
	m := &CastMessage{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("castpb: malformed tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fieldProtocolVersion:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("castpb: malformed protocol_version: %w", protowire.ParseError(n))
			}
			m.ProtocolVersion = ProtocolVersion(v)
			b = b[n:]
		case fieldSourceID:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, fmt.Errorf("castpb: malformed source_id: %w", protowire.ParseError(n))
			}
			m.SourceID = v
			b = b[n:]
		case fieldDestinationID:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, fmt.Errorf("castpb: malformed destination_id: %w", protowire.ParseError(n))
			}
			m.DestinationID = v
			b = b[n:]
		case fieldNamespace:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, fmt.Errorf("castpb: malformed namespace: %w", protowire.ParseError(n))
			}
			m.Namespace = v
			b = b[n:]
		case fieldPayloadType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("castpb: malformed payload_type: %w", protowire.ParseError(n))
			}
			m.PayloadType = PayloadType(v)
			b = b[n:]
		case fieldPayloadUTF8:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, fmt.Errorf("castpb: malformed payload_utf8: %w", protowire.ParseError(n))
			}
			m.PayloadUTF8 = v
			b = b[n:]
		case fieldPayloadBinary:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("castpb: malformed payload_binary: %w", protowire.ParseError(n))
			}
			m.PayloadBinary = append([]byte(nil), v...)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("castpb: malformed unknown field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	if m.Namespace == "" {
		return nil, fmt.Errorf("castpb: decoded message missing namespace")
	}
	return m, nil
}

// DeviceAuthMessage wraps the single field this client ever sends or reads:
// an empty challenge at connect time (spec §4.C, §9 — "do not attempt to
// validate the device certificate chain within the auth message").
type DeviceAuthMessage struct {
	HasChallenge bool
}

const fieldChallenge = 1

// Marshal encodes the auth request: a present-but-empty DeviceAuthChallenge
// submessage (field 1, zero-length).
func (m *DeviceAuthMessage) Marshal() ([]byte, error) {
	var b []byte
	if m.HasChallenge {
		b = protowire.AppendTag(b, fieldChallenge, protowire.BytesType)
		b = protowire.AppendBytes(b, nil)
	}
	return b, nil
}

// UnmarshalDeviceAuthMessage parses an auth reply. The sender never
// inspects the device's response submessage contents (§9); it only
// confirms the frame parsed as a well-formed protobuf so that a garbled
// reply is surfaced as MalformedFrame rather than silently accepted.
func UnmarshalDeviceAuthMessage(b []byte) (*DeviceAuthMessage, error) {
	m := &DeviceAuthMessage{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("castpb: malformed auth tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		if num == fieldChallenge {
			m.HasChallenge = true
		}
		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return nil, fmt.Errorf("castpb: malformed auth field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return m, nil
}
