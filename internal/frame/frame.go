// Package frame implements the Cast Channel's length-prefixed frame codec
// (spec §4.A): a 4-byte big-endian length N followed by N bytes of a
// serialized CastMessage. It mirrors the teacher's chunk.Reader/chunk.Writer
// split (internal/rtmp/chunk) — one type per direction, header parsing kept
// tight against the wire, and a single Write call per frame so length and
// body are never interleaved with another writer's frame.
package frame

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/alxayo/go-cast/internal/castpb"
)

// MaxFrameLength is the device-enforced ceiling on a single frame body
// (spec §3: "N ≤ 65536 by the device's enforced limit").
const MaxFrameLength = 65536

// ErrClosed is returned by ReadFrame when end-of-stream is observed while
// consuming the length prefix or the frame body — the wire equivalent of a
// closed channel (spec §4.A).
var ErrClosed = io.EOF

// ParseError wraps a malformed length header or protobuf body (spec §4.A:
// "Fails with MalformedFrame if the header or protobuf parse fails").
type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("frame: %s: %v", e.Op, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// Reader reads length-prefixed CastMessage frames from a byte stream. Not
// safe for concurrent use; callers run one reader per channel, same as the
// teacher's chunk.Reader is single-reader-goroutine only.
type Reader struct {
	r       io.Reader
	lenBuf  [4]byte
	scratch []byte
}

// NewReader wraps r for frame-at-a-time reads.
func NewReader(r io.Reader) *Reader { return &Reader{r: r} }

// ReadFrame blocks until one complete CastMessage frame is read, or fails.
// EOF at any point during the 4-byte or N-byte read returns ErrClosed;
// a malformed length or protobuf body returns *ParseError.
func (r *Reader) ReadFrame() (*castpb.CastMessage, error) {
	if _, err := io.ReadFull(r.r, r.lenBuf[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, ErrClosed
		}
		return nil, err
	}
	n := binary.BigEndian.Uint32(r.lenBuf[:])
	if n == 0 || n > MaxFrameLength {
		return nil, &ParseError{Op: "readLength", Err: fmt.Errorf("length %d out of range (max %d)", n, MaxFrameLength)}
	}
	if uint32(cap(r.scratch)) < n {
		r.scratch = make([]byte, n)
	}
	buf := r.scratch[:n]
	if _, err := io.ReadFull(r.r, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, ErrClosed
		}
		return nil, err
	}
	msg, err := castpb.Unmarshal(buf)
	if err != nil {
		return nil, &ParseError{Op: "unmarshal", Err: err}
	}
	return msg, nil
}

// Writer emits length-prefixed CastMessage frames. Write is safe for
// concurrent use: each call builds its own header+body buffer, and the
// mutex guards the single underlying Write call, matching the teacher's
// writeChunk pattern
// of building one buffer and emitting it atomically (internal/rtmp/chunk
// writer.go).
type Writer struct {
	mu   sync.Mutex
	w    io.Writer
	bufs *writeBufPool
}

// NewWriter wraps w for frame-at-a-time, concurrency-safe writes.
func NewWriter(w io.Writer) *Writer { return &Writer{w: w, bufs: newWriteBufPool()} }

// WriteFrame serializes msg and writes the 4-byte length prefix plus body
// as a single Write call.
func (w *Writer) WriteFrame(msg *castpb.CastMessage) error {
	body, err := msg.Marshal()
	if err != nil {
		return &ParseError{Op: "marshal", Err: err}
	}
	if len(body) > MaxFrameLength {
		return &ParseError{Op: "marshal", Err: fmt.Errorf("frame length %d exceeds max %d", len(body), MaxFrameLength)}
	}
	buf := w.bufs.get(4 + len(body))
	defer w.bufs.put(buf)
	binary.BigEndian.PutUint32(buf[:4], uint32(len(body)))
	copy(buf[4:], body)

	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = w.w.Write(buf)
	return err
}
