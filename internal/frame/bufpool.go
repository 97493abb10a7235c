package frame

import "sync"

// writeBufSizeClasses are the size classes frame.Writer draws its
// length-prefix-plus-body buffer from. Unlike a generic byte-pool, these
// are sized directly off Cast Channel's own wire distribution rather than
// an RTMP chunk buffer's size classes: connection/heartbeat envelopes
// ({"type":"CONNECT"} and friends) are a few dozen bytes, receiver/media
// command and status JSON (LOAD, RECEIVER_STATUS, MEDIA_STATUS, queue
// payloads) commonly runs into the low thousands, and MaxFrameLength plus
// the 4-byte length prefix is the hard ceiling any single write can reach.
var writeBufSizeClasses = [...]int{64, 2048, 4 + MaxFrameLength}

// writeBufPool hands frame.Writer a reusable, size-classed buffer for its
// one-Write-call-per-frame body instead of allocating fresh on every
// outbound CastMessage. One pool is created per Writer; it is never shared
// across connections.
type writeBufPool struct {
	classes [len(writeBufSizeClasses)]sync.Pool
}

func newWriteBufPool() *writeBufPool {
	p := &writeBufPool{}
	for i, size := range writeBufSizeClasses {
		size := size
		p.classes[i].New = func() any { return make([]byte, size) }
	}
	return p
}

// get returns a slice of length size, backed by the smallest size class
// that fits, or a fresh unpooled allocation past the largest class.
func (p *writeBufPool) get(size int) []byte {
	for i, class := range writeBufSizeClasses {
		if size <= class {
			buf := p.classes[i].Get().([]byte)
			return buf[:size]
		}
	}
	return make([]byte, size)
}

// put returns buf to the class it was drawn from. A buffer whose capacity
// doesn't match a known class (because get fell through to a fresh
// allocation) is dropped for the GC to reclaim.
func (p *writeBufPool) put(buf []byte) {
	c := cap(buf)
	for i, class := range writeBufSizeClasses {
		if c == class {
			full := buf[:class]
			clear(full)
			p.classes[i].Put(full)
			return
		}
	}
}
