package capabilities

import "testing"

func TestDecodeIndividualBits(t *testing.T) {
	cases := []struct {
		name string
		bit  int
		get  func(Set) bool
	}{
		{"VideoOut", VideoOut, func(s Set) bool { return s.VideoOut }},
		{"VideoIn", VideoIn, func(s Set) bool { return s.VideoIn }},
		{"AudioOut", AudioOut, func(s Set) bool { return s.AudioOut }},
		{"AudioIn", AudioIn, func(s Set) bool { return s.AudioIn }},
		{"DevMode", DevMode, func(s Set) bool { return s.DevMode }},
		{"MultizoneGroup", MultizoneGroup, func(s Set) bool { return s.MultizoneGroup }},
		{"DynamicGroup", DynamicGroup, func(s Set) bool { return s.DynamicGroup }},
		{"MultiChannelGroup", MultiChannelGroup, func(s Set) bool { return s.MultiChannelGroup }},
		{"MultiChannelMember", MultiChannelMember, func(s Set) bool { return s.MultiChannelMember }},
		{"MasterOrFixedVolume", MasterOrFixedVolume, func(s Set) bool { return s.MasterOrFixedVolume }},
		{"AttenuationOrFixedVolume", AttenuationOrFixedVolume, func(s Set) bool { return s.AttenuationOrFixedVolume }},
		{"DynamicGroupingSupported", DynamicGroupingSupported, func(s Set) bool { return s.DynamicGroupingSupported }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := Decode(tc.bit)
			if !tc.get(s) {
				t.Fatalf("expected %s set for bitmap %d", tc.name, tc.bit)
			}
			if s.Raw() != tc.bit {
				t.Fatalf("expected Raw() == %d, got %d", tc.bit, s.Raw())
			}
		})
	}
}

func TestDecodeCombinedBitmap(t *testing.T) {
	// A typical audio-only group member: AUDIO_OUT | MULTIZONE_GROUP | MULTI_CHANNEL_MEMBER.
	s := Decode(AudioOut | MultizoneGroup | MultiChannelMember)
	if !s.AudioOut || !s.MultizoneGroup || !s.MultiChannelMember {
		t.Fatalf("unexpected decode: %+v", s)
	}
	if s.VideoOut || s.DevMode || s.DynamicGroupingSupported {
		t.Fatalf("unexpected bit set: %+v", s)
	}
}

func TestHasFixedVolume(t *testing.T) {
	if Decode(0).HasFixedVolume() {
		t.Fatalf("expected no fixed volume for empty bitmap")
	}
	if !Decode(MasterOrFixedVolume).HasFixedVolume() {
		t.Fatalf("expected fixed volume for MasterOrFixedVolume")
	}
	if !Decode(AttenuationOrFixedVolume).HasFixedVolume() {
		t.Fatalf("expected fixed volume for AttenuationOrFixedVolume")
	}
}

func TestDecodeZeroBitmapIsAllFalse(t *testing.T) {
	s := Decode(0)
	if s.VideoOut || s.VideoIn || s.AudioOut || s.AudioIn || s.DevMode || s.MultizoneGroup ||
		s.DynamicGroup || s.MultiChannelGroup || s.MultiChannelMember || s.MasterOrFixedVolume ||
		s.AttenuationOrFixedVolume || s.DynamicGroupingSupported {
		t.Fatalf("expected all-false decode for bitmap 0, got %+v", s)
	}
}
