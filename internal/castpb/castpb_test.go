package castpb

import (
	"bytes"
	"testing"
)

func TestCastMessageRoundTripString(t *testing.T) {
	m := &CastMessage{
		ProtocolVersion: ProtocolVersionCastV2_1_0,
		SourceID:        "sender-0",
		DestinationID:   "receiver-0",
		Namespace:       "urn:x-cast:com.google.cast.receiver",
		PayloadType:     PayloadTypeString,
		PayloadUTF8:     `{"type":"GET_STATUS","requestId":1}`,
	}
	enc, err := m.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(enc)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.SourceID != m.SourceID || got.DestinationID != m.DestinationID {
		t.Fatalf("endpoint mismatch: got %+v", got)
	}
	if got.Namespace != m.Namespace {
		t.Fatalf("namespace mismatch: got %q want %q", got.Namespace, m.Namespace)
	}
	if got.PayloadType != PayloadTypeString || got.PayloadUTF8 != m.PayloadUTF8 {
		t.Fatalf("payload mismatch: got %+v", got)
	}
}

func TestCastMessageRoundTripBinary(t *testing.T) {
	m := &CastMessage{
		SourceID:      "sender-0",
		DestinationID: "receiver-0",
		Namespace:     "urn:x-cast:com.google.cast.tp.deviceauth",
		PayloadType:   PayloadTypeBinary,
		PayloadBinary: []byte{0x0a, 0x00},
	}
	enc, err := m.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(enc)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !bytes.Equal(got.PayloadBinary, m.PayloadBinary) {
		t.Fatalf("payload_binary mismatch: got %x want %x", got.PayloadBinary, m.PayloadBinary)
	}
	if got.PayloadType != PayloadTypeBinary {
		t.Fatalf("expected PayloadTypeBinary, got %d", got.PayloadType)
	}
}

func TestMarshalRejectsEmptyNamespace(t *testing.T) {
	m := &CastMessage{SourceID: "a", DestinationID: "b"}
	if _, err := m.Marshal(); err == nil {
		t.Fatalf("expected error for empty namespace")
	}
}

func TestMarshalRejectsEmptyEndpoints(t *testing.T) {
	m := &CastMessage{Namespace: "ns"}
	if _, err := m.Marshal(); err == nil {
		t.Fatalf("expected error for empty source/destination id")
	}
}

func TestUnmarshalSkipsUnknownFields(t *testing.T) {
	m := &CastMessage{
		SourceID:      "sender-0",
		DestinationID: "receiver-0",
		Namespace:     "urn:x-cast:com.google.cast.receiver",
		PayloadType:   PayloadTypeString,
		PayloadUTF8:   "{}",
	}
	enc, err := m.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	// Append a well-formed but unrecognized field (number 99, varint type).
	enc = append(enc, 0x98, 0x06, 0x01) // tag for field 99 varint, value 1
	got, err := Unmarshal(enc)
	if err != nil {
		t.Fatalf("Unmarshal with unknown trailing field: %v", err)
	}
	if got.SourceID != m.SourceID {
		t.Fatalf("unexpected SourceID after skipping unknown field: %q", got.SourceID)
	}
}

func TestUnmarshalRejectsMissingNamespace(t *testing.T) {
	m := &CastMessage{SourceID: "a", DestinationID: "b", Namespace: "x"}
	enc, _ := m.Marshal()
	// Truncate to drop the namespace field's bytes entirely is fragile; instead
	// build a message with no namespace field directly.
	_ = enc
	var raw []byte
	if _, err := Unmarshal(raw); err == nil {
		t.Fatalf("expected error for message missing namespace")
	}
}

func TestDeviceAuthMessageRoundTrip(t *testing.T) {
	m := &DeviceAuthMessage{HasChallenge: true}
	enc, err := m.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := UnmarshalDeviceAuthMessage(enc)
	if err != nil {
		t.Fatalf("UnmarshalDeviceAuthMessage: %v", err)
	}
	if !got.HasChallenge {
		t.Fatalf("expected HasChallenge true after round trip")
	}
}

func TestDeviceAuthMessageAcceptsArbitraryReply(t *testing.T) {
	// The device's reply submessage is never validated (spec §9); confirm any
	// well-formed protobuf, including one with fields this client doesn't
	// model, parses without error.
	var b []byte
	b = append(b, 0x12, 0x02, 0xAB, 0xCD) // field 2, bytes, 2-byte payload
	if _, err := UnmarshalDeviceAuthMessage(b); err != nil {
		t.Fatalf("expected unknown reply fields to be tolerated: %v", err)
	}
}
