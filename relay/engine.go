package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/e1732a364fed/ss_relay/netLayer"
	"github.com/e1732a364fed/ss_relay/utils"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

var closedChan = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

// session 是一次 Connect 到断开之间的全部状态.
type session struct {
	target netLayer.Addr

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	client DuplexChannel
	server DuplexChannel //握手后的 channel; Connecting 期间为 nil. 由 Engine.mu 保护写入

	closeOnce sync.Once
	explicit  atomic.Bool //由 Disconnect 主动结束

	abortErr error //HandleConnectionError 造成的中止, 由 Engine.mu 保护
}

func (s *session) closeWrites() {
	s.closeOnce.Do(func() {
		//写端可能已经在单方向EOF时关过了, 错误可以忽略
		if s.server != nil {
			s.server.CloseWrite()
		}
		s.client.CloseWrite()
	})
}

// Engine relays bytes between a client channel and a server channel.
//
// State transitions are serialized by an internal mutex; State, IsConnected
// and the byte counters can be read from any goroutine without blocking.
// A Disconnect issued while Connect is still handshaking aborts the handshake
// and waits for it to unwind.
type Engine struct {
	handshaker Handshaker
	sink       LogSink

	state atomic.Int32

	mu             sync.Mutex
	cur            *session
	connectedAt    time.Time
	disconnectedAt time.Time
	lastErr        error

	uploaded   atomic.Uint64 // client -> server
	downloaded atomic.Uint64 // server -> client

	//可选, 转发时同步累加, 如全局统计
	upTotal, downTotal *atomic.Uint64

	now func() time.Time
}

var _ Client = (*Engine)(nil)

// New 创建一个 Idle 状态的 Engine. h 为 nil 时使用 Direct, sink 为 nil 时丢弃所有日志.
func New(h Handshaker, sink LogSink) *Engine {
	if h == nil {
		h = Direct
	}
	return &Engine{
		handshaker: h,
		sink:       sink,
		now:        time.Now,
	}
}

func (e *Engine) State() State {
	return State(e.state.Load())
}

// 调用者需持有 e.mu
func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
}

func (e *Engine) IsConnected() bool {
	return e.State() == StateConnected
}

// ConnectionDuration 为 min(now, 断开时刻) - 连接时刻; 从未连上过时为0.
// 新会话连上之前, 返回的是上一次会话的时长.
func (e *Engine) ConnectionDuration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.connectedAt.IsZero() {
		return 0
	}
	end := e.now()
	if !e.disconnectedAt.IsZero() && e.disconnectedAt.Before(end) {
		end = e.disconnectedAt
	}
	d := end.Sub(e.connectedAt)
	if d < 0 {
		return 0
	}
	return d
}

// CountInto 让之后的转发 在写出的同时把字节数也加到 up/down 上. 任一可为nil. 需在 Connect 之前调用.
func (e *Engine) CountInto(up, down *atomic.Uint64) {
	e.mu.Lock()
	e.upTotal, e.downTotal = up, down
	e.mu.Unlock()
}

// Uploaded 返回本 Engine 累计从 client 转发到 server 的字节数
func (e *Engine) Uploaded() uint64 { return e.uploaded.Load() }

// Downloaded 返回本 Engine 累计从 server 转发到 client 的字节数
func (e *Engine) Downloaded() uint64 { return e.downloaded.Load() }

// Done 在当前会话完全结束后关闭. 没有会话时返回一个已关闭的 chan.
func (e *Engine) Done() <-chan struct{} {
	e.mu.Lock()
	s := e.cur
	e.mu.Unlock()

	if s == nil {
		return closedChan
	}
	return s.done
}

// Err 返回最近一次会话的结束原因. 正常结束 (双向EOF, 或主动 Disconnect) 时为 nil.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Connect 通过 Handshaker 让 server 准备好承载 destination 的流量, 成功后在后台开始双向转发并立即返回.
//
// ctx 管理整个会话: 握手期间取消则 Connect 以 KindCancelled 失败; 转发期间取消则会话结束, Err 为 KindCancelled.
// Engine 已有活动会话时返回 KindAlreadyActive, 不影响现有会话.
func (e *Engine) Connect(ctx context.Context, destination netLayer.Addr, client, server DuplexChannel) error {
	if client == nil || server == nil {
		return utils.ErrInErr{ErrDesc: "relay connect needs both client and server channel", ErrDetail: utils.ErrNilParameter}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	e.mu.Lock()
	if st := e.State(); st.active() {
		e.mu.Unlock()
		err := wrap(KindAlreadyActive, "connect", fmt.Errorf("engine is %s", st))
		e.Log("connect rejected", err)
		return err
	}

	sctx, cancel := context.WithCancel(ctx)
	s := &session{
		target: destination,
		ctx:    sctx,
		cancel: cancel,
		done:   make(chan struct{}),
		client: client,
	}
	e.cur = s
	e.setState(StateConnecting)
	e.mu.Unlock()

	e.Log("connecting to "+destination.String(), nil)

	ready, err := e.handshaker.Handshake(sctx, server, destination)
	if err == nil && ready == nil {
		err = utils.ErrInErr{ErrDesc: "handshaker returned no channel", ErrDetail: utils.ErrNilOrWrongParameter}
	}

	e.mu.Lock()
	if err == nil && sctx.Err() != nil {
		//握手成功了, 但期间已经被取消
		err = sctx.Err()
	}
	if err != nil {
		kind := KindDialFailure
		if sctx.Err() != nil {
			kind = KindCancelled
		}
		rerr := wrap(kind, "handshake", err)
		e.lastErr = rerr
		e.setState(StateFailed)
		e.mu.Unlock()

		if ready != nil {
			ready.CloseWrite()
		}
		cancel()
		close(s.done)

		e.report(rerr)
		return rerr
	}

	s.server = ready
	e.connectedAt = e.now()
	e.disconnectedAt = time.Time{}
	e.lastErr = nil
	e.setState(StateConnected)
	e.mu.Unlock()

	e.Log("connected to "+destination.String(), nil)

	go e.relay(s)
	return nil
}

// relay 运行两个独立的转发方向. 一个方向EOF只会半关闭对面的写端, 另一个方向继续;
// 任一方向出错, 或会话被取消, 就打断另一个方向.
func (e *Engine) relay(s *session) {
	e.mu.Lock()
	upTotal, downTotal := e.upTotal, e.downTotal
	e.mu.Unlock()

	//errgroup 先记下第一个错误再取消 ictx, 被打断一方的后续错误不会顶替它
	g, ictx := errgroup.WithContext(s.ctx)

	//Wait 返回时 ictx 也会被取消, 那时两个方向都已退出, 不能再去碰 channel
	var running atomic.Int32
	running.Store(2)

	g.Go(func() error {
		defer running.Dec()
		return e.pipe(s, "client->server", s.server, s.client, &e.uploaded, upTotal)
	})
	g.Go(func() error {
		defer running.Dec()
		return e.pipe(s, "server->client", s.client, s.server, &e.downloaded, downTotal)
	})

	stopInterrupt := context.AfterFunc(ictx, func() {
		if running.Load() == 0 {
			return
		}
		//关写端可以让阻塞中的 Write 返回, 打断Read则要靠 deadline 或 CloseRead
		s.closeWrites()
		if !netLayer.InterruptRead(s.client) {
			e.Log("client channel read can not be interrupted, waiting for peer", nil)
		}
		if !netLayer.InterruptRead(s.server) {
			e.Log("server channel read can not be interrupted, waiting for peer", nil)
		}
	})

	err := g.Wait()
	stopInterrupt()

	e.finish(s, err)
}

func (e *Engine) pipe(s *session, dir string, dst, src DuplexChannel, counter, total *atomic.Uint64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = wrap(KindUnclassified, dir, fmt.Errorf("panic: %v", r))
		}
	}()

	n, cerr := netLayer.CopyUntilEOF(dst, src, func(n int) {
		counter.Add(uint64(n))
		if total != nil {
			total.Add(uint64(n))
		}
	})
	if cerr != nil {
		if ctxErr := s.ctx.Err(); ctxErr != nil {
			return wrap(KindCancelled, dir, ctxErr)
		}
		return wrap(Classify(cerr), dir, cerr)
	}

	e.Log(fmt.Sprintf("%s reached EOF after %d bytes", dir, n), nil)
	dst.CloseWrite()
	return nil
}

func (e *Engine) finish(s *session, err error) {
	e.mu.Lock()
	e.setState(StateDisconnecting)
	e.mu.Unlock()

	s.closeWrites()

	e.mu.Lock()
	err = e.resolveSessionErr(s, err)
	e.disconnectedAt = e.now()
	e.lastErr = err
	e.setState(StateDisconnected)
	e.mu.Unlock()

	s.cancel()
	close(s.done)

	if err != nil {
		e.report(err)
	}
	e.Log("disconnected from "+s.target.String(), nil)
}

// 调用者需持有 e.mu
func (e *Engine) resolveSessionErr(s *session, err error) error {
	cancelledOrNil := err == nil || KindOf(err) == KindCancelled

	switch {
	case s.explicit.Load() && cancelledOrNil:
		return nil
	case s.abortErr != nil && cancelledOrNil:
		return s.abortErr
	case err == nil && s.ctx.Err() != nil:
		// 无法打断Read的 channel 在取消后也可能以EOF结束
		return wrap(KindCancelled, "relay", s.ctx.Err())
	}
	return err
}

// Disconnect 结束当前会话并等待两个转发方向退出. 幂等: Idle/Disconnected 时什么也不做.
// 只关闭两个 channel 的写端, 不 Close 它们.
func (e *Engine) Disconnect() error {
	e.mu.Lock()
	switch e.State() {
	case StateIdle, StateDisconnected:
		e.mu.Unlock()
		return nil
	case StateFailed:
		e.setState(StateDisconnected)
		e.mu.Unlock()
		return nil
	}

	s := e.cur
	s.explicit.Store(true)
	connected := s.server != nil
	e.mu.Unlock()

	s.cancel()
	if connected {
		s.closeWrites()
	}
	<-s.done

	e.mu.Lock()
	if e.cur == s && e.State() == StateFailed {
		//握手被中止
		e.setState(StateDisconnected)
	}
	e.mu.Unlock()

	return nil
}

// Log 把事件交给 LogSink. 永不 panic.
func (e *Engine) Log(msg string, err error) {
	if e.sink == nil {
		return
	}
	defer func() {
		recover()
	}()
	e.sink.Log(msg, err)
}

// HandleConnectionError 把 err 归类并记录, 返回 *Error.
// 当前会话处于 Connected 且错误对会话是致命的 (Transport, Cancelled, Unclassified) 时, 会中止该会话;
// 中止是异步的, 会话随后走正常的断开流程. 从不重连.
func (e *Engine) HandleConnectionError(err error) error {
	if err == nil {
		return nil
	}
	rerr := e.report(err)

	if rerr.Kind.fatalForSession() {
		e.mu.Lock()
		if s := e.cur; s != nil && e.State() == StateConnected {
			if s.abortErr == nil {
				s.abortErr = rerr
			}
			s.cancel()
		}
		e.mu.Unlock()
	}
	return rerr
}

// report 归类并记录, 不影响会话
func (e *Engine) report(err error) *Error {
	var rerr *Error
	if !errors.As(err, &rerr) {
		rerr = wrap(Classify(err), "", err)
	}

	switch rerr.Kind {
	case KindDialFailure:
		e.Log("dial failed", rerr)
	case KindAlreadyActive:
		e.Log("engine already active", rerr)
	case KindTransport:
		e.Log("transport error", rerr)
	case KindCancelled:
		e.Log("cancelled", rerr)
	default:
		e.Log("unexpected error", rerr)
	}
	return rerr
}
