package relay

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/e1732a364fed/ss_relay/netLayer"
)

// pipeEnd 是由两个 io.Pipe 组成的全双工 channel 的一端. 它实现了 CloseRead,
// 所以 Engine 可以打断其上阻塞的 Read.
type pipeEnd struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (p *pipeEnd) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *pipeEnd) Write(b []byte) (int, error) { return p.w.Write(b) }
func (p *pipeEnd) CloseWrite() error           { return p.w.Close() }
func (p *pipeEnd) CloseRead() error            { return p.r.Close() }

// newPipePair 返回 (engine 一端, 对端)
func newPipePair() (*pipeEnd, *pipeEnd) {
	r1, w1 := io.Pipe()
	r2, w2 := io.Pipe()
	return &pipeEnd{r: r1, w: w2}, &pipeEnd{r: r2, w: w1}
}

var testTarget = netLayer.Addr{Name: "example.com", Port: 443}

type testRig struct {
	e *Engine

	// 本地应用 和 远程服务器 各自持有的一端
	local, remote *pipeEnd

	// engine 持有的两端
	client, server *pipeEnd
}

func newRig(h Handshaker) *testRig {
	r := &testRig{e: New(h, &recordSink{})}
	r.client, r.local = newPipePair()
	r.server, r.remote = newPipePair()
	return r
}

func (r *testRig) connect(t *testing.T, ctx context.Context) {
	if err := r.e.Connect(ctx, testTarget, r.client, r.server); err != nil {
		t.Log("connect failed", err)
		t.FailNow()
	}
}

func waitDone(t *testing.T, e *Engine, d time.Duration) {
	select {
	case <-e.Done():
	case <-time.After(d):
		t.Log("session did not end in time, state", e.State())
		t.FailNow()
	}
}

func waitState(t *testing.T, e *Engine, want State, d time.Duration) {
	deadline := time.Now().Add(d)
	for e.State() != want {
		if time.Now().After(deadline) {
			t.Log("state", e.State(), "want", want)
			t.FailNow()
		}
		time.Sleep(time.Millisecond * 5)
	}
}

func readN(t *testing.T, r io.Reader, n int) string {
	bs := make([]byte, n)
	if _, err := io.ReadFull(r, bs); err != nil {
		t.Log("readN", err)
		t.FailNow()
	}
	return string(bs)
}

type logEntry struct {
	msg string
	err error
}

type recordSink struct {
	mu      sync.Mutex
	entries []logEntry
}

func (s *recordSink) Log(msg string, err error) {
	s.mu.Lock()
	s.entries = append(s.entries, logEntry{msg, err})
	s.mu.Unlock()
}

func (s *recordSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// fakeClock 可以手动拨动的时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
