package relay

import (
	"context"
	"io"
	"time"

	"github.com/e1732a364fed/ss_relay/netLayer"
)

// DuplexChannel 是一个读写两端可以分别关闭的字节流.
// *net.TCPConn 和 *net.UnixConn 都满足它.
//
// Engine 只在一次会话期间借用它, 会关闭其写端, 但从不调用 Close;
// 释放它是调用者的责任.
//
// 若它还实现了 SetReadDeadline 或 CloseRead, Engine 会在取消时用它们打断阻塞中的 Read;
// 两者都没有的话, 阻塞的 Read 只能等对端关闭后返回.
type DuplexChannel interface {
	io.Reader
	io.Writer
	CloseWrite() error
}

// Handshaker 把一个原始的、连向代理服务器的 channel 变为可以直接承载 target 流量的 channel.
// 例如 shadowsocks 会在其上包一层加密, 并写入目标地址头部.
//
// 它必须遵守 ctx 的取消; 失败时不应关闭 server, server 归调用者所有.
type Handshaker interface {
	Handshake(ctx context.Context, server DuplexChannel, target netLayer.Addr) (DuplexChannel, error)
}

// HandshakerFunc adapts a function to Handshaker.
type HandshakerFunc func(ctx context.Context, server DuplexChannel, target netLayer.Addr) (DuplexChannel, error)

func (f HandshakerFunc) Handshake(ctx context.Context, server DuplexChannel, target netLayer.Addr) (DuplexChannel, error) {
	return f(ctx, server, target)
}

// Direct 不做任何握手, 直接使用 server 本身.
var Direct Handshaker = HandshakerFunc(func(ctx context.Context, server DuplexChannel, _ netLayer.Addr) (DuplexChannel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return server, nil
})

// LogSink 接收 Engine 的诊断事件. err 可为 nil. 实现不应阻塞太久.
type LogSink interface {
	Log(msg string, err error)
}

// Client 是一个流式代理客户端的能力集合. *Engine 实现了它.
type Client interface {
	Connect(ctx context.Context, destination netLayer.Addr, client, server DuplexChannel) error
	Disconnect() error
	IsConnected() bool
	ConnectionDuration() time.Duration
	Log(msg string, err error)
	HandleConnectionError(err error) error
}
