package cast

// These tests exercise Channel against a real TCP+TLS listener playing the
// role of the device, the same way the teacher's conn_test.go drives a real
// net.Listen("tcp", ...) rather than an in-memory pipe (internal/rtmp/conn
// /conn_test.go's dialAndClientHandshake pattern).

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/alxayo/go-cast/internal/castmsg"
	"github.com/alxayo/go-cast/internal/castpb"
	"github.com/alxayo/go-cast/internal/frame"
)

func selfSignedCert(t *testing.T) tls.Certificate {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "cast-device-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
}

// fakeDevice is a minimal single-connection Cast receiver stand-in.
type fakeDevice struct {
	ln   net.Listener
	addr string
	port int
}

func startFakeDevice(t *testing.T) *fakeDevice {
	t.Helper()
	cert := selfSignedCert(t)
	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{Certificates: []tls.Certificate{cert}})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}
	return &fakeDevice{ln: ln, addr: host, port: port}
}

func (d *fakeDevice) accept(t *testing.T) (*frame.Reader, *frame.Writer, net.Conn) {
	t.Helper()
	conn, err := d.ln.Accept()
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	return frame.NewReader(conn), frame.NewWriter(conn), conn
}

// handshakeAsDevice reads the auth request and the platform CONNECT, and
// replies to auth, completing the Channel.Connect sequence from the device
// side.
func handshakeAsDevice(t *testing.T, r *frame.Reader, w *frame.Writer) {
	t.Helper()
	authReq, err := r.ReadFrame()
	if err != nil {
		t.Fatalf("read auth request: %v", err)
	}
	if authReq.Namespace != castmsg.NamespaceDeviceAuth {
		t.Fatalf("expected deviceauth namespace, got %s", authReq.Namespace)
	}
	reply := &castpb.CastMessage{
		SourceID:      "receiver-0",
		DestinationID: authReq.SourceID,
		Namespace:     castmsg.NamespaceDeviceAuth,
		PayloadType:   castpb.PayloadTypeBinary,
		PayloadBinary: []byte{},
	}
	if err := w.WriteFrame(reply); err != nil {
		t.Fatalf("write auth reply: %v", err)
	}
	connectMsg, err := r.ReadFrame()
	if err != nil {
		t.Fatalf("read CONNECT: %v", err)
	}
	if connectMsg.Namespace != castmsg.NamespaceConnection {
		t.Fatalf("expected connection namespace, got %s", connectMsg.Namespace)
	}
}

func connectedChannel(t *testing.T) (*Channel, *fakeDevice, *frame.Reader, *frame.Writer) {
	t.Helper()
	dev := startFakeDevice(t)

	type accepted struct {
		r *frame.Reader
		w *frame.Writer
	}
	acceptedCh := make(chan accepted, 1)
	go func() {
		r, w, _ := dev.accept(t)
		handshakeAsDevice(t, r, w)
		acceptedCh <- accepted{r, w}
	}()

	cfg := DefaultConfig()
	cfg.HeartbeatInterval = 50 * time.Millisecond
	cfg.HeartbeatGraceWindow = 500 * time.Millisecond
	cfg.RequestTimeout = 2 * time.Second
	c := NewChannel(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Connect(ctx, dev.addr, dev.port, "sender-test"); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	select {
	case a := <-acceptedCh:
		return c, dev, a.r, a.w
	case <-time.After(5 * time.Second):
		t.Fatalf("device never finished handshake")
		return nil, nil, nil, nil
	}
}

func TestConnectIsIdempotent(t *testing.T) {
	c, _, _, _ := connectedChannel(t)
	defer c.Close()

	if err := c.Connect(context.Background(), "ignored", 1234, "whatever"); err != nil {
		t.Fatalf("second Connect should be a no-op, got: %v", err)
	}
}

func TestConnectFiresConnectedEvent(t *testing.T) {
	dev := startFakeDevice(t)
	acceptedCh := make(chan struct{}, 1)
	go func() {
		r, w, _ := dev.accept(t)
		handshakeAsDevice(t, r, w)
		acceptedCh <- struct{}{}
	}()

	var gotConnected bool
	c := NewChannel(DefaultConfig())
	c.Events().Add(ListenerFunc(func(e Event) {
		if e.Type == EventConnected {
			gotConnected = e.Data.(bool)
		}
	}), EventConnected)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Connect(ctx, dev.addr, dev.port, ""); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	<-acceptedCh
	if !gotConnected {
		t.Fatalf("expected CONNECTED=true event")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestSendAwaitCorrelatesResponseByRequestID(t *testing.T) {
	c, _, r, w := connectedChannel(t)
	defer c.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		req, err := r.ReadFrame()
		if err != nil {
			t.Errorf("read request: %v", err)
			return
		}
		disc, err := castmsg.PeekDiscriminator([]byte(req.PayloadUTF8))
		if err != nil {
			t.Errorf("peek: %v", err)
			return
		}
		resp := castmsg.ReceiverStatusResponse{
			ResponseType: castmsg.TypeReceiverStatus,
			RequestID:    disc.RequestID,
		}
		reply := &castpb.CastMessage{
			SourceID:      "receiver-0",
			DestinationID: req.SourceID,
			Namespace:     castmsg.NamespaceReceiver,
			PayloadType:   castpb.PayloadTypeString,
			PayloadUTF8:   mustMarshal(t, resp),
		}
		if err := w.WriteFrame(reply); err != nil {
			t.Errorf("write reply: %v", err)
		}
	}()

	reqID := c.NextRequestID()
	req := castmsg.GetStatusRequest{Type: castmsg.TypeGetStatus, RequestID: reqID}
	raw, disc, err := c.sendAwait(context.Background(), castmsg.NamespaceReceiver, platformDestination, req, reqID, 0)
	if err != nil {
		t.Fatalf("sendAwait: %v", err)
	}
	if disc.Kind() != castmsg.TypeReceiverStatus {
		t.Fatalf("unexpected response kind: %s", disc.Kind())
	}
	var status castmsg.ReceiverStatusResponse
	if err := castmsg.Unmarshal(raw, &status); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	<-done
}

func TestSendAwaitTimesOut(t *testing.T) {
	c, _, _, _ := connectedChannel(t)
	defer c.Close()

	reqID := c.NextRequestID()
	req := castmsg.GetStatusRequest{Type: castmsg.TypeGetStatus, RequestID: reqID}
	_, _, err := c.sendAwait(context.Background(), castmsg.NamespaceReceiver, platformDestination, req, reqID, 100*time.Millisecond)
	if !IsTimeout(err) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestHeartbeatPingIsSent(t *testing.T) {
	c, _, r, _ := connectedChannel(t)
	defer c.Close()

	deadlineCh := make(chan error, 1)
	go func() {
		for i := 0; i < 10; i++ {
			msg, err := r.ReadFrame()
			if err != nil {
				deadlineCh <- err
				return
			}
			if msg.Namespace == castmsg.NamespaceHeartbeat {
				disc, _ := castmsg.PeekDiscriminator([]byte(msg.PayloadUTF8))
				if disc.Type == castmsg.TypePing {
					deadlineCh <- nil
					return
				}
			}
		}
		deadlineCh <- nil
	}()

	select {
	case err := <-deadlineCh:
		if err != nil {
			t.Fatalf("reading heartbeat: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("never observed a PING from the channel")
	}
}

func TestSpontaneousEventIsRoutedToEventBus(t *testing.T) {
	c, _, _, w := connectedChannel(t)
	defer c.Close()

	received := make(chan Event, 1)
	c.Events().Add(ListenerFunc(func(e Event) { received <- e }), EventReceiverStatus)

	resp := castmsg.ReceiverStatusResponse{ResponseType: castmsg.TypeReceiverStatus, RequestID: 0}
	msg := &castpb.CastMessage{
		SourceID:      "receiver-0",
		DestinationID: "sender-test",
		Namespace:     castmsg.NamespaceReceiver,
		PayloadType:   castpb.PayloadTypeString,
		PayloadUTF8:   mustMarshal(t, resp),
	}
	if err := w.WriteFrame(msg); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case e := <-received:
		if e.Type != EventReceiverStatus {
			t.Fatalf("unexpected event type: %s", e.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("spontaneous event never delivered")
	}
}

func TestCloseFailsPendingRequestsAndIsIdempotent(t *testing.T) {
	c, _, _, _ := connectedChannel(t)

	errCh := make(chan error, 1)
	go func() {
		reqID := c.NextRequestID()
		req := castmsg.GetStatusRequest{Type: castmsg.TypeGetStatus, RequestID: reqID}
		_, _, err := c.sendAwait(context.Background(), castmsg.NamespaceReceiver, platformDestination, req, reqID, 10*time.Second)
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond)
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got: %v", err)
	}

	select {
	case err := <-errCh:
		if !IsChannelClosed(err) {
			t.Fatalf("expected ChannelClosedError, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("pending request never resolved after Close")
	}
}

func mustMarshal(t *testing.T, v any) string {
	t.Helper()
	b, err := castmsg.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

// TestHeartbeatLossClosesChannelAndReconnects is spec §8 scenario 6: when
// the mock stops responding entirely, heartbeat loss must itself tear the
// channel down (CONNECTED=false, state back to DISCONNECTED) rather than
// wedging it forever, and a subsequent send with autoReconnect enabled
// (the default) must re-establish the channel against the same host:port.
func TestHeartbeatLossClosesChannelAndReconnects(t *testing.T) {
	c, dev, _, _ := connectedChannel(t)

	connectedEvents := make(chan bool, 4)
	c.Events().Add(ListenerFunc(func(e Event) {
		if e.Type == EventConnected {
			connectedEvents <- e.Data.(bool)
		}
	}), EventConnected)

	// CONNECTED=true fired inside Connect, before this listener existed, so
	// the starting point is checked through the state machine instead.
	if c.currentState() != stateConnected {
		t.Fatalf("expected CONNECTED before heartbeat loss, got state %d", c.currentState())
	}
	select {
	case v := <-connectedEvents:
		t.Fatalf("unexpected CONNECTED=%v event before heartbeat loss", v)
	default:
	}

	// The mock never reads or writes again from here, so no PONG and no
	// other frame arrives; lastFrameNano goes stale past the
	// HeartbeatGraceWindow connectedChannel configured (500ms).
	select {
	case v := <-connectedEvents:
		if v {
			t.Fatalf("expected CONNECTED=false after heartbeat loss")
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("heartbeat loss never closed the channel")
	}

	if c.currentState() != stateDisconnected {
		t.Fatalf("expected DISCONNECTED after heartbeat loss, got state %d", c.currentState())
	}

	reconnected := make(chan struct{})
	go func() {
		defer close(reconnected)
		r2, w2, _ := dev.accept(t)
		handshakeAsDevice(t, r2, w2)
		msg, disc := expectRequest(t, r2, castmsg.NamespaceReceiver, castmsg.TypeGetStatus)
		level := 1.0
		reply(t, w2, castmsg.NamespaceReceiver, msg, castmsg.ReceiverStatusResponse{
			ResponseType: castmsg.TypeReceiverStatus,
			RequestID:    disc.RequestID,
			Status: castmsg.ReceiverStatus{
				Volume:    castmsg.Volume{Level: &level, ControlType: "ATTENUATION", StepInterval: 0.05},
				IsStandBy: true,
			},
		})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	status, err := c.GetReceiverStatus(ctx, 2*time.Second)
	if err != nil {
		t.Fatalf("GetReceiverStatus after reconnect: %v", err)
	}
	if !status.IsStandBy {
		t.Fatalf("expected standby status from the reconnected device")
	}

	select {
	case <-reconnected:
	case <-time.After(2 * time.Second):
		t.Fatalf("device-side reconnect goroutine never completed")
	}

	_ = c.Close()
}
