package cast

import (
	"sync/atomic"
	"testing"
)

func TestSessionTableStartIsNoOpWhenAlreadyOpen(t *testing.T) {
	table := newSessionTable()
	// Populate directly to avoid needing a live Channel/writer for this
	// table-only invariant (spec §4.E: "startSession is a no-op if a
	// session for the pair is already open"). A nil Channel is enough:
	// start returns the existing entry before it would use the channel.
	existing := newSession("sender-0", "app-1")
	table.byKey[sessionKey{"sender-0", "app-1"}] = existing

	got, created, err := table.start(nil, "sender-0", "app-1")
	if err != nil || created || got != existing {
		t.Fatalf("expected start to return the pre-populated session unchanged, got %p created=%v err=%v", got, created, err)
	}
}

func TestSessionOnClosedFiresOnce(t *testing.T) {
	s := newSession("sender-0", "app-1")
	var calls atomic.Int32
	s.OnClosed(func(*Session) { calls.Add(1) })
	s.OnClosed(func(*Session) { calls.Add(1) })

	s.markClosed()
	s.markClosed() // second close must not re-fire listeners

	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 listener invocations (one per registration), got %d", got)
	}
	if !s.Closed() {
		t.Fatalf("expected session to report closed")
	}
}

func TestSessionOnClosedRunsImmediatelyIfAlreadyClosed(t *testing.T) {
	s := newSession("sender-0", "app-1")
	s.markClosed()

	var fired bool
	s.OnClosed(func(*Session) { fired = true })
	if !fired {
		t.Fatalf("expected OnClosed to fire immediately for an already-closed session")
	}
}

func TestSessionTableRemoveAndNotify(t *testing.T) {
	table := newSessionTable()
	s := newSession("sender-0", "app-1")
	table.byKey[sessionKey{"sender-0", "app-1"}] = s

	var closed bool
	s.OnClosed(func(*Session) { closed = true })

	table.removeAndNotify("sender-0", "app-1")

	if !closed {
		t.Fatalf("expected session close listener to fire")
	}
	if got := table.lookup("sender-0", "app-1"); got != nil {
		t.Fatalf("expected session removed from table")
	}
	// Removing an already-absent key is a no-op, not a panic.
	table.removeAndNotify("sender-0", "app-1")
}

func TestSessionTableAllReturnsSnapshot(t *testing.T) {
	table := newSessionTable()
	table.byKey[sessionKey{"a", "b"}] = newSession("a", "b")
	table.byKey[sessionKey{"c", "d"}] = newSession("c", "d")

	all := table.all()
	if len(all) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(all))
	}
}
