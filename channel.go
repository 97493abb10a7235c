package cast

// Channel is the sender-side transport core (spec §4.D): it owns one TLS
// socket and supervises a reader goroutine, a heartbeat goroutine, the
// request-id correlation table, and the session table. Its read/write
// split and goroutine lifecycle mirror the teacher's conn.Connection
// (internal/rtmp/conn/conn.go): a writer side serialized through a single
// frame.Writer, a reader goroutine that loops until the context is
// cancelled or the transport errs, and Close() that cancels the context,
// closes the socket, and waits for both to exit.

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/alxayo/go-cast/internal/castmsg"
	"github.com/alxayo/go-cast/internal/castpb"
	"github.com/alxayo/go-cast/internal/frame"
	"github.com/alxayo/go-cast/internal/logger"
)

// DefaultPort is the device's default Cast Channel TCP port (spec §4.B).
const DefaultPort = 8009

const platformDestination = "receiver-0"

type channelState int32

const (
	stateDisconnected channelState = iota
	stateAuthenticating
	stateHandshaking
	stateConnected
	stateClosing
)

// knownEventKinds lists the responseType strings that get their own
// EventType (spec §4.C's "received response types"). RECEIVER_STATUS,
// MEDIA_STATUS, LAUNCH_ERROR, LOAD_FAILED, LOAD_CANCELLED and
// INVALID_REQUEST are decoded into typed Event.Data values; MULTIZONE_STATUS
// and DEVICE_ADDED/UPDATED/REMOVED carry a castmsg.RawTree. Any other kind
// becomes an EventUnknown carrying the raw JSON tree.
var knownEventKinds = map[string]EventType{
	castmsg.TypeReceiverStatus:  EventReceiverStatus,
	castmsg.TypeMediaStatus:     EventMediaStatus,
	castmsg.TypeLaunchError:     EventLaunchError,
	castmsg.TypeLoadFailed:      EventLoadFailed,
	castmsg.TypeLoadCancelled:   EventLoadCancelled,
	castmsg.TypeInvalidRequest:  EventInvalidRequest,
	castmsg.TypeMultizoneStatus: EventMultizoneStatus,
	castmsg.TypeDeviceAdded:     EventDeviceAdded,
	castmsg.TypeDeviceUpdated:   EventDeviceUpdated,
	castmsg.TypeDeviceRemoved:   EventDeviceRemoved,
}

type pendingRequest struct {
	done chan struct{}
	raw  []byte
	disc castmsg.Discriminator
	err  error
	once sync.Once
}

func (p *pendingRequest) complete(raw []byte, disc castmsg.Discriminator, err error) {
	p.once.Do(func() {
		p.raw, p.disc, p.err = raw, disc, err
		close(p.done)
	})
}

// Channel is safe for concurrent use by multiple goroutines once Connect
// has returned successfully.
type Channel struct {
	cfg Config
	log *slog.Logger
	bus *EventBus

	senderID string
	host     string
	port     int

	state atomic.Int32

	conn   net.Conn
	reader *frame.Reader
	writer *frame.Writer

	ctx    context.Context
	cancel context.CancelFunc
	eg     *errgroup.Group
	// closeOnce guards one connect/close cycle. Connect replaces it with a
	// fresh *sync.Once so that a reconnect after an automatic fault-close
	// (watchFault) gets its own idempotent Close, instead of a later
	// explicit Close silently no-opping against the previous cycle's Once
	// and leaking the reconnected reader/heartbeat goroutines.
	closeOnce atomic.Pointer[sync.Once]

	nextRequestID atomic.Int64
	pendingMu     sync.Mutex
	pending       map[int64]*pendingRequest

	sessions *sessionTable

	lastFrameNano atomic.Int64
}

// NewChannel constructs a Channel in the DISCONNECTED state. Pass
// DefaultConfig() (or a copy with overrides) for cfg.
func NewChannel(cfg Config) *Channel {
	cfg = cfg.withDefaults()
	c := &Channel{
		cfg:      cfg,
		log:      logger.Logger().With("component", "cast.Channel"),
		bus:      NewEventBus(cfg.EventDispatchMode, cfg.EventWorkerPoolSize, logger.Logger()),
		pending:  make(map[int64]*pendingRequest),
		sessions: newSessionTable(),
	}
	c.state.Store(int32(stateDisconnected))
	c.closeOnce.Store(&sync.Once{})
	return c
}

// Events returns the channel's event bus, for Add/Remove of listeners.
func (c *Channel) Events() *EventBus { return c.bus }

func (c *Channel) currentState() channelState { return channelState(c.state.Load()) }

// Connect dials (host, port), completes the binary auth handshake, opens
// the platform CONNECT session, and starts the reader and heartbeat
// goroutines (spec §4.D). A second call while already CONNECTED is a
// no-op. senderID, if empty, is generated as "sender-" + a 10-character
// token (spec §3).
func (c *Channel) Connect(ctx context.Context, host string, port int, senderID string) error {
	if c.currentState() == stateConnected {
		return nil
	}
	if !c.state.CompareAndSwap(int32(stateDisconnected), int32(stateAuthenticating)) {
		return &ChannelClosedError{Op: "Connect", Err: fmt.Errorf("invalid transition from state %d", c.currentState())}
	}
	if port == 0 {
		port = DefaultPort
	}
	if senderID == "" {
		senderID = "sender-" + randomToken()
	}
	c.host, c.port, c.senderID = host, port, senderID
	c.log = logger.WithChannel(c.log, senderID, fmt.Sprintf("%s:%d", host, port))

	conn, err := dialTLS(ctx, host, port)
	if err != nil {
		c.state.Store(int32(stateDisconnected))
		if isTLSErr(err) {
			return &TlsHandshakeFailedError{Op: "Connect", Err: err}
		}
		return &ConnectionFailedError{Op: "Connect", Err: err}
	}
	c.conn = conn
	c.reader = frame.NewReader(conn)
	c.writer = frame.NewWriter(conn)

	if err := c.performAuth(ctx); err != nil {
		_ = conn.Close()
		c.state.Store(int32(stateDisconnected))
		return err
	}

	c.state.Store(int32(stateHandshaking))
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.closeOnce.Store(&sync.Once{})
	c.lastFrameNano.Store(time.Now().UnixNano())

	if _, _, err := c.sessions.start(c, c.senderID, platformDestination); err != nil {
		_ = conn.Close()
		c.cancel()
		c.state.Store(int32(stateDisconnected))
		return err
	}
	logger.WithSession(c.log, c.senderID, platformDestination).Info("session opened")

	eg, egCtx := errgroup.WithContext(c.ctx)
	c.eg = eg
	eg.Go(func() error { return c.readLoop(egCtx) })
	eg.Go(func() error { return c.heartbeatLoop(egCtx) })
	go c.watchFault()

	c.state.Store(int32(stateConnected))
	c.bus.Fire(Event{Type: EventConnected, Data: true})
	c.log.Info("channel connected")
	return nil
}

// watchFault waits for the reader/heartbeat group to exit and tears the
// channel down in response. A frame-level error in the reader or a
// heartbeat-loss *TimeoutError from heartbeatLoop is fatal to the channel
// (spec §7): both are reported here by closing the channel, which
// transitions the state machine back to DISCONNECTED, fails every pending
// request with ChannelClosedError, and emits CONNECTED=false. An ordinary
// Close() call also unblocks eg.Wait() (by cancelling ctx and closing the
// socket), so this is equally the path an explicit Close() completes
// through; calling Close() again here is a no-op thanks to closeOnce.
func (c *Channel) watchFault() {
	if err := c.eg.Wait(); err != nil {
		c.log.Warn("channel fault detected, closing", "error", err)
	}
	_ = c.Close()
}

func randomToken() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:10]
}

func isTLSErr(err error) bool {
	_, ok := err.(*tls.CertificateVerificationError)
	if ok {
		return true
	}
	return strings.Contains(err.Error(), "tls:") || strings.Contains(err.Error(), "handshake")
}

func dialTLS(ctx context.Context, host string, port int) (net.Conn, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	cfg := &tls.Config{
		InsecureSkipVerify: true, // spec §4.B: device presents a self-signed chain
		MinVersion:         tls.VersionTLS12,
	}
	tlsDialer := tls.Dialer{NetDialer: dialer, Config: cfg}
	return tlsDialer.DialContext(ctx, "tcp", addr)
}

// performAuth completes the single binary exchange on the deviceauth
// namespace (spec §4.C, §6, §9): send a DeviceAuthMessage with an empty
// challenge, accept whatever comes back without validating it.
func (c *Channel) performAuth(ctx context.Context) error {
	req := &castpb.DeviceAuthMessage{HasChallenge: true}
	body, err := req.Marshal()
	if err != nil {
		return &MalformedFrameError{Op: "performAuth.marshal", Err: err}
	}
	msg := &castpb.CastMessage{
		SourceID:      c.senderIDOrDefault(),
		DestinationID: platformDestination,
		Namespace:     castmsg.NamespaceDeviceAuth,
		PayloadType:   castpb.PayloadTypeBinary,
		PayloadBinary: body,
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
	} else {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.RequestTimeout))
	}
	if err := c.writer.WriteFrame(msg); err != nil {
		return &ConnectionFailedError{Op: "performAuth.write", Err: err}
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.RequestTimeout))
	reply, err := c.reader.ReadFrame()
	if err != nil {
		if err == frame.ErrClosed {
			return &ChannelClosedError{Op: "performAuth.read", Err: err}
		}
		return &MalformedFrameError{Op: "performAuth.read", Err: err}
	}
	if _, err := castpb.UnmarshalDeviceAuthMessage(reply.PayloadBinary); err != nil {
		return &MalformedFrameError{Op: "performAuth.decode", Err: err}
	}
	_ = c.conn.SetReadDeadline(time.Time{})
	_ = c.conn.SetWriteDeadline(time.Time{})
	return nil
}

func (c *Channel) senderIDOrDefault() string {
	if c.senderID == "" {
		return "sender-0"
	}
	return c.senderID
}

// readLoop implements spec §4.D's reader algorithm.
func (c *Channel) readLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		msg, err := c.reader.ReadFrame()
		if err != nil {
			c.log.Warn("read loop terminating", "error", err)
			return err
		}
		c.lastFrameNano.Store(time.Now().UnixNano())

		switch msg.Namespace {
		case castmsg.NamespaceHeartbeat:
			c.handleHeartbeatFrame(msg)
			continue
		case castmsg.NamespaceConnection:
			c.handleConnectionFrame(msg)
			continue
		}

		raw := []byte(msg.PayloadUTF8)
		disc, err := castmsg.PeekDiscriminator(raw)
		if err != nil {
			c.log.Warn("dropping malformed JSON payload", "namespace", msg.Namespace, "error", err)
			continue
		}
		if disc.RequestID > 0 {
			if pr := c.takePending(disc.RequestID); pr != nil {
				pr.complete(raw, disc, nil)
				continue
			}
		}
		c.routeSpontaneous(disc, raw)
	}
}

func (c *Channel) handleHeartbeatFrame(msg *castpb.CastMessage) {
	disc, err := castmsg.PeekDiscriminator([]byte(msg.PayloadUTF8))
	if err != nil {
		return
	}
	if disc.Type == castmsg.TypePing {
		pong := castmsg.HeartbeatEnvelope{Type: castmsg.TypePong}
		_ = c.sendNoResponse(context.Background(), castmsg.NamespaceHeartbeat, msg.SourceID, pong)
	}
}

func (c *Channel) handleConnectionFrame(msg *castpb.CastMessage) {
	disc, err := castmsg.PeekDiscriminator([]byte(msg.PayloadUTF8))
	if err != nil {
		return
	}
	if disc.Type != castmsg.TypeClose {
		return
	}
	// The message's source/destination are from the remote's perspective;
	// our table is keyed (ourSourceID, theirDestinationID).
	if s := c.sessions.lookup(msg.DestinationID, msg.SourceID); s != nil {
		c.sessions.removeAndNotify(msg.DestinationID, msg.SourceID)
		logger.WithSession(c.log, msg.DestinationID, msg.SourceID).Info("session closed by remote")
		return
	}
	c.bus.Fire(Event{Type: EventClose, Data: msg.SourceID})
}

func (c *Channel) routeSpontaneous(disc castmsg.Discriminator, raw []byte) {
	kind := disc.Kind()
	if et, ok := knownEventKinds[kind]; ok {
		data, err := decodeKnownResponse(kind, raw)
		if err != nil {
			c.log.Warn("failed to decode known response kind, routing as unknown", "kind", kind, "error", err)
		} else {
			c.bus.Fire(Event{Type: et, Data: data})
			return
		}
	}
	tree, err := castmsg.DecodeRawTree(raw)
	if err != nil {
		c.log.Warn("failed to decode unknown event payload", "error", err)
		return
	}
	c.bus.Fire(Event{Type: EventUnknown, Data: tree})
}

func decodeKnownResponse(kind string, raw []byte) (any, error) {
	switch kind {
	case castmsg.TypeReceiverStatus:
		var v castmsg.ReceiverStatusResponse
		return v, castmsg.Unmarshal(raw, &v)
	case castmsg.TypeMediaStatus:
		var v castmsg.MediaStatusResponse
		return v, castmsg.Unmarshal(raw, &v)
	case castmsg.TypeLaunchError:
		var v castmsg.LaunchErrorResponse
		return v, castmsg.Unmarshal(raw, &v)
	case castmsg.TypeLoadFailed:
		var v castmsg.LoadFailedResponse
		return v, castmsg.Unmarshal(raw, &v)
	case castmsg.TypeLoadCancelled:
		var v castmsg.LoadCancelledResponse
		return v, castmsg.Unmarshal(raw, &v)
	case castmsg.TypeInvalidRequest:
		var v castmsg.InvalidRequestResponse
		return v, castmsg.Unmarshal(raw, &v)
	default:
		var v castmsg.RawTree
		return v, castmsg.Unmarshal(raw, &v)
	}
}

// heartbeatLoop implements spec §4.D's heartbeat: a PING every
// HeartbeatInterval, and loss detection at HeartbeatGraceWindow of silence.
func (c *Channel) heartbeatLoop(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()
	graceCheck := time.NewTicker(c.cfg.HeartbeatInterval)
	defer graceCheck.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			ping := castmsg.HeartbeatEnvelope{Type: castmsg.TypePing}
			if err := c.sendNoResponse(ctx, castmsg.NamespaceHeartbeat, platformDestination, ping); err != nil {
				return err
			}
		case <-graceCheck.C:
			last := time.Unix(0, c.lastFrameNano.Load())
			if time.Since(last) >= c.cfg.HeartbeatGraceWindow {
				// Closing the socket interrupts the reader's blocked ReadFrame,
				// so the group exits and watchFault tears the channel down.
				_ = c.conn.Close()
				return &TimeoutError{Op: "heartbeat", Duration: c.cfg.HeartbeatGraceWindow}
			}
		}
	}
}

func (c *Channel) takePending(requestID int64) *pendingRequest {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	pr := c.pending[requestID]
	delete(c.pending, requestID)
	return pr
}

func (c *Channel) registerPending(requestID int64) *pendingRequest {
	pr := &pendingRequest{done: make(chan struct{})}
	c.pendingMu.Lock()
	c.pending[requestID] = pr
	c.pendingMu.Unlock()
	return pr
}

func (c *Channel) forgetPending(requestID int64) {
	c.pendingMu.Lock()
	delete(c.pending, requestID)
	c.pendingMu.Unlock()
}

// NextRequestID allocates the next 63-bit request id (spec §3; zero is
// reserved for fire-and-forget messages, so the counter starts at 1).
func (c *Channel) NextRequestID() int64 {
	return c.nextRequestID.Add(1)
}

// writeEnvelope marshals payload and writes it as one STRING frame from
// the channel's own platform sender id.
func (c *Channel) writeEnvelope(namespace, destinationID string, payload any) error {
	return c.writeEnvelopeFrom(c.senderIDOrDefault(), namespace, destinationID, payload)
}

// writeEnvelopeFrom is writeEnvelope with an explicit source id, used for
// traffic on a virtual session whose source id differs from the channel's
// platform sender id.
func (c *Channel) writeEnvelopeFrom(sourceID, namespace, destinationID string, payload any) error {
	body, err := castmsg.Marshal(payload)
	if err != nil {
		return &MalformedFrameError{Op: "writeEnvelope.marshal", Err: err}
	}
	msg := &castpb.CastMessage{
		SourceID:      sourceID,
		DestinationID: destinationID,
		Namespace:     namespace,
		PayloadType:   castpb.PayloadTypeString,
		PayloadUTF8:   string(body),
	}
	if err := c.writer.WriteFrame(msg); err != nil {
		return &ChannelClosedError{Op: "writeEnvelope.write", Err: err}
	}
	return nil
}

// sendNoResponse emits a fire-and-forget message (requestId 0 or omitted).
// Its callers are the reader and heartbeat loops (PONG and PING), which run
// during the brief HANDSHAKING window before state flips to CONNECTED, so
// it checks only that a writer exists, not the channel state.
func (c *Channel) sendNoResponse(ctx context.Context, namespace, destinationID string, payload any) error {
	if c.writer == nil {
		return &ChannelClosedError{Op: "send", Err: fmt.Errorf("channel not connected")}
	}
	return c.writeEnvelope(namespace, destinationID, payload)
}

// sendAwait emits payload (already carrying requestID) and blocks until a
// response with the same requestId is delivered, the deadline elapses, or
// ctx is cancelled, or the channel closes (spec §4.D's send()). When
// wantKinds is non-empty, a response whose discriminant isn't one of them
// still completes the wait (so the caller doesn't hang) but is reported as
// UnexpectedResponseError; the decoded value is also dispatched as a
// spontaneous event (spec §4.G: "still dispatch the decoded value as an
// event").
func (c *Channel) sendAwait(ctx context.Context, namespace, destinationID string, payload any, requestID int64, timeout time.Duration, wantKinds ...string) ([]byte, castmsg.Discriminator, error) {
	return c.sendAwaitAs(ctx, c.senderIDOrDefault(), namespace, destinationID, payload, requestID, timeout, wantKinds...)
}

// sendAwaitAs is sendAwait with an explicit source id, for requests issued
// on a session whose source id differs from the channel's platform sender
// id (spec §4.G: media operations "take the session as context").
func (c *Channel) sendAwaitAs(ctx context.Context, sourceID, namespace, destinationID string, payload any, requestID int64, timeout time.Duration, wantKinds ...string) ([]byte, castmsg.Discriminator, error) {
	raw, disc, err := c.sendAwaitRaw(ctx, sourceID, namespace, destinationID, payload, requestID, timeout)
	if err != nil {
		return raw, disc, err
	}
	if len(wantKinds) == 0 {
		return raw, disc, nil
	}
	got := disc.Kind()
	for _, want := range wantKinds {
		if got == want {
			return raw, disc, nil
		}
	}
	c.routeSpontaneous(disc, raw)
	return raw, disc, &UnexpectedResponseError{Want: strings.Join(wantKinds, "|"), Got: got}
}

func (c *Channel) sendAwaitRaw(ctx context.Context, sourceID, namespace, destinationID string, payload any, requestID int64, timeout time.Duration) ([]byte, castmsg.Discriminator, error) {
	if c.currentState() != stateConnected {
		if c.cfg.autoReconnect() && c.currentState() == stateDisconnected {
			if err := c.Connect(ctx, c.host, c.port, c.senderID); err != nil {
				return nil, castmsg.Discriminator{}, err
			}
		} else {
			return nil, castmsg.Discriminator{}, &ChannelClosedError{Op: "send", Err: fmt.Errorf("channel not connected")}
		}
	}
	if timeout <= 0 {
		timeout = c.cfg.RequestTimeout
	}
	pr := c.registerPending(requestID)
	if err := c.writeEnvelopeFrom(sourceID, namespace, destinationID, payload); err != nil {
		c.forgetPending(requestID)
		return nil, castmsg.Discriminator{}, err
	}
	reqLog := logger.WithRequest(c.log, namespace, requestID, 0)
	reqLog.Debug("request sent", "destination", destinationID)

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-pr.done:
		if pr.err != nil {
			reqLog.Debug("request failed", "error", pr.err)
		} else {
			reqLog.Debug("response received", "kind", pr.disc.Kind())
		}
		return pr.raw, pr.disc, pr.err
	case <-timer.C:
		c.forgetPending(requestID)
		reqLog.Warn("request timed out", "timeout", timeout)
		return nil, castmsg.Discriminator{}, &TimeoutError{Op: "send", Duration: timeout}
	case <-ctx.Done():
		c.forgetPending(requestID)
		reqLog.Debug("request cancelled")
		return nil, castmsg.Discriminator{}, &CancelledError{Op: "send", Err: ctx.Err()}
	case <-c.closedSignal():
		c.forgetPending(requestID)
		reqLog.Debug("request aborted by channel close")
		return nil, castmsg.Discriminator{}, &ChannelClosedError{Op: "send"}
	}
}

func (c *Channel) closedSignal() <-chan struct{} {
	if c.ctx == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return c.ctx.Done()
}

// Close implements spec §4.D's close(): best-effort CLOSE to every open
// session, stop reader/heartbeat, close the transport, fail all pending
// requests, emit CONNECTED=false. Idempotent and safe to call more than
// once or concurrently within one connect/close cycle; a later Connect()
// starts a fresh cycle with its own idempotent Close.
func (c *Channel) Close() error {
	var result error
	c.closeOnce.Load().Do(func() {
		c.state.Store(int32(stateClosing))

		var merr *multierror.Error
		for _, s := range c.sessions.all() {
			if err := c.closeSessionBestEffort(s); err != nil {
				merr = multierror.Append(merr, err)
			}
		}

		if c.cancel != nil {
			c.cancel()
		}
		if c.conn != nil {
			_ = c.conn.Close()
		}
		if c.eg != nil {
			_ = c.eg.Wait()
		}

		c.pendingMu.Lock()
		for id, pr := range c.pending {
			pr.complete(nil, castmsg.Discriminator{}, &ChannelClosedError{Op: "Close"})
			delete(c.pending, id)
		}
		c.pendingMu.Unlock()

		c.bus.Fire(Event{Type: EventConnected, Data: false})
		c.bus.Close()
		c.state.Store(int32(stateDisconnected))
		if merr != nil {
			result = merr.ErrorOrNil()
		}
	})
	return result
}

func (c *Channel) closeSessionBestEffort(s *Session) error {
	env := castmsg.ConnectionEnvelope{Type: castmsg.TypeClose}
	err := c.writeEnvelopeFrom(s.SourceID, castmsg.NamespaceConnection, s.DestinationID, env)
	c.sessions.removeAndNotify(s.SourceID, s.DestinationID)
	return err
}
