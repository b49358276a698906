package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/e1732a364fed/ss_relay/utils"
)

func TestClassify(t *testing.T) {
	opErr := &net.OpError{Op: "read", Net: "tcp", Err: errors.New("weird")}

	cases := []struct {
		err  error
		want ErrorKind
	}{
		{context.Canceled, KindCancelled},
		{context.DeadlineExceeded, KindCancelled},
		{fmt.Errorf("wrapped: %w", context.Canceled), KindCancelled},
		{io.ErrClosedPipe, KindTransport},
		{net.ErrClosed, KindTransport},
		{io.ErrUnexpectedEOF, KindTransport},
		{os.ErrDeadlineExceeded, KindTransport},
		{syscall.ECONNRESET, KindTransport},
		{syscall.EPIPE, KindTransport},
		{opErr, KindTransport},
		{utils.ErrInErr{ErrDesc: "x", ErrDetail: syscall.EPIPE}, KindTransport},
		{&Error{Kind: KindDialFailure}, KindDialFailure},
		{fmt.Errorf("outer: %w", &Error{Kind: KindAlreadyActive}), KindAlreadyActive},
		{errors.New("what"), KindUnclassified},
		{ErrUnclassified, KindUnclassified},
		{nil, KindUnclassified},
	}

	for i, c := range cases {
		if got := Classify(c.err); got != c.want {
			t.Log(i, c.err, "got", got, "want", c.want)
			t.Fail()
		}
	}
}

func TestErrorFormat(t *testing.T) {
	e := wrap(KindTransport, "client->server", io.ErrClosedPipe)
	if e.Error() != "relay Transport [client->server]: io: read/write on closed pipe" {
		t.Log(e.Error())
		t.FailNow()
	}
	if !errors.Is(e, ErrTransport) || errors.Is(e, ErrCancelled) {
		t.Log("kind based errors.Is broken")
		t.FailNow()
	}
	if !errors.Is(e, io.ErrClosedPipe) {
		t.Log("Unwrap broken")
		t.FailNow()
	}
}

func TestStateString(t *testing.T) {
	all := []State{StateIdle, StateConnecting, StateConnected, StateDisconnecting, StateDisconnected, StateFailed}
	seen := map[string]bool{}
	for _, s := range all {
		str := s.String()
		if str == "Unknown" || seen[str] {
			t.Log("bad name for", int(s), str)
			t.FailNow()
		}
		seen[str] = true
	}
	if State(99).String() != "Unknown" {
		t.FailNow()
	}

	//只有 Connecting/Connected/Disconnecting 占用 Engine
	for _, s := range all {
		want := s == StateConnecting || s == StateConnected || s == StateDisconnecting
		if s.active() != want {
			t.Log(s, "active", s.active())
			t.FailNow()
		}
	}
}
