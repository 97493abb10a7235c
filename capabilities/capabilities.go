// Package capabilities decodes the `ca` capability bitmap a discovery
// resolver reports alongside a device's host/port/uniqueId (spec §6), into
// named booleans rather than a raw integer callers have to mask by hand.
package capabilities

// Bit values for the `ca` bitmap, as published in mDNS TXT records.
const (
	VideoOut                 = 1 << 0
	VideoIn                  = 1 << 1
	AudioOut                 = 1 << 2
	AudioIn                  = 1 << 3
	DevMode                  = 1 << 4
	MultizoneGroup           = 1 << 5
	DynamicGroup             = 1 << 6
	MultiChannelGroup        = 1 << 7
	MultiChannelMember       = 1 << 8
	MasterOrFixedVolume      = 1 << 11
	AttenuationOrFixedVolume = 1 << 12
	DynamicGroupingSupported = 1 << 16
)

// Set is the decoded form of a device's `ca` bitmap.
type Set struct {
	VideoOut                 bool
	VideoIn                  bool
	AudioOut                 bool
	AudioIn                  bool
	DevMode                  bool
	MultizoneGroup           bool
	DynamicGroup             bool
	MultiChannelGroup        bool
	MultiChannelMember       bool
	MasterOrFixedVolume      bool
	AttenuationOrFixedVolume bool
	DynamicGroupingSupported bool

	// raw preserves the bitmap as reported, for callers that need bits
	// this decoder doesn't yet name.
	raw int
}

// Decode unpacks a raw `ca` bitmap into a Set.
func Decode(bitmap int) Set {
	return Set{
		VideoOut:                 bitmap&VideoOut != 0,
		VideoIn:                  bitmap&VideoIn != 0,
		AudioOut:                 bitmap&AudioOut != 0,
		AudioIn:                  bitmap&AudioIn != 0,
		DevMode:                  bitmap&DevMode != 0,
		MultizoneGroup:           bitmap&MultizoneGroup != 0,
		DynamicGroup:             bitmap&DynamicGroup != 0,
		MultiChannelGroup:        bitmap&MultiChannelGroup != 0,
		MultiChannelMember:       bitmap&MultiChannelMember != 0,
		MasterOrFixedVolume:      bitmap&MasterOrFixedVolume != 0,
		AttenuationOrFixedVolume: bitmap&AttenuationOrFixedVolume != 0,
		DynamicGroupingSupported: bitmap&DynamicGroupingSupported != 0,
		raw:                      bitmap,
	}
}

// Raw returns the bitmap Set was decoded from.
func (s Set) Raw() int { return s.raw }

// HasFixedVolume reports whether either of the two "fixed volume" bits is
// set — devices advertising one of these don't support a volume ramp and
// report any SET_VOLUME as a no-op.
func (s Set) HasFixedVolume() bool {
	return s.MasterOrFixedVolume || s.AttenuationOrFixedVolume
}
