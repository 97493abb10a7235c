package castmsg

import "testing"

func TestPeekDiscriminatorRequest(t *testing.T) {
	d, err := PeekDiscriminator([]byte(`{"type":"GET_STATUS","requestId":4}`))
	if err != nil {
		t.Fatalf("PeekDiscriminator: %v", err)
	}
	if d.Kind() != "GET_STATUS" || d.RequestID != 4 {
		t.Fatalf("unexpected discriminator: %+v", d)
	}
}

func TestPeekDiscriminatorResponse(t *testing.T) {
	d, err := PeekDiscriminator([]byte(`{"responseType":"RECEIVER_STATUS","requestId":4,"status":{}}`))
	if err != nil {
		t.Fatalf("PeekDiscriminator: %v", err)
	}
	if d.Kind() != "RECEIVER_STATUS" {
		t.Fatalf("expected Kind() to prefer responseType, got %q", d.Kind())
	}
}

func TestPeekDiscriminatorIgnoresUnknownFields(t *testing.T) {
	d, err := PeekDiscriminator([]byte(`{"type":"PING","somethingNew":{"a":1},"requestId":0}`))
	if err != nil {
		t.Fatalf("expected unknown fields to be tolerated, got error: %v", err)
	}
	if d.Kind() != "PING" {
		t.Fatalf("unexpected kind: %q", d.Kind())
	}
}

func TestReceiverStatusRoundTrip(t *testing.T) {
	raw := `{"responseType":"RECEIVER_STATUS","requestId":1,"status":{"volume":{"level":1.0,"muted":false,"controlType":"ATTENUATION","stepInterval":0.05},"applications":[],"isActiveInput":false,"isStandBy":true}}`
	var resp ReceiverStatusResponse
	if err := Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !resp.Status.IsStandBy || resp.Status.IsActiveInput {
		t.Fatalf("unexpected status flags: %+v", resp.Status)
	}
	if resp.Status.Volume.Level == nil || *resp.Status.Volume.Level != 1.0 {
		t.Fatalf("unexpected volume: %+v", resp.Status.Volume)
	}
	if len(resp.Status.Applications) != 0 {
		t.Fatalf("expected empty applications, got %d", len(resp.Status.Applications))
	}
}

func TestApplicationDestinationPrefersTransportID(t *testing.T) {
	a := Application{SessionID: "S1", TransportID: "T1"}
	if got := a.Destination(); got != "T1" {
		t.Fatalf("expected T1, got %q", got)
	}
}

func TestApplicationDestinationFallsBackToSessionID(t *testing.T) {
	a := Application{SessionID: "S1"}
	if got := a.Destination(); got != "S1" {
		t.Fatalf("expected fallback to S1, got %q", got)
	}
}

func TestLoadCancelledResponseOptionalItemID(t *testing.T) {
	var r LoadCancelledResponse
	if err := Unmarshal([]byte(`{"responseType":"LOAD_CANCELLED","requestId":2}`), &r); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if r.ItemID != nil {
		t.Fatalf("expected nil ItemID when absent, got %v", *r.ItemID)
	}
}

func TestRawTreeDeepCopyIsIndependent(t *testing.T) {
	tree, err := DecodeRawTree([]byte(`{"a":{"b":1},"c":[1,2,3]}`))
	if err != nil {
		t.Fatalf("DecodeRawTree: %v", err)
	}
	copy1 := tree.DeepCopy()
	nested, ok := copy1["a"].(map[string]any)
	if !ok {
		t.Fatalf("expected nested map, got %T", copy1["a"])
	}
	nested["b"] = 999

	original, ok := tree["a"].(map[string]any)
	if !ok {
		t.Fatalf("expected nested map in original, got %T", tree["a"])
	}
	if original["b"] == nested["b"] {
		t.Fatalf("mutating the copy affected the original tree")
	}
}

func TestGetAppAvailabilityResponseAvailable(t *testing.T) {
	var r GetAppAvailabilityResponse
	if err := Unmarshal([]byte(`{"responseType":"GET_APP_AVAILABILITY","requestId":5,"availability":{"CC1AD845":"APP_AVAILABLE"}}`), &r); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if r.Availability["CC1AD845"] != "APP_AVAILABLE" {
		t.Fatalf("unexpected availability map: %+v", r.Availability)
	}
}
