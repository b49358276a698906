package shadowsocks

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/e1732a364fed/ss_relay/netLayer"
	"github.com/e1732a364fed/ss_relay/relay"
	"github.com/e1732a364fed/ss_relay/utils"
	"github.com/shadowsocks/go-shadowsocks2/core"
	"go.uber.org/zap"
)

// Handshaker 用 shadowsocks-go / go-shadowsocks2 的 cipher 包装 server channel.
// server channel 必须是 net.Conn, 因为这两个库的 cipher 只能包装 net.Conn.
type Handshaker struct {
	mp     MethodPass
	cipher core.Cipher
}

var _ relay.Handshaker = (*Handshaker)(nil)

func NewHandshaker(mp MethodPass) (*Handshaker, error) {
	c, err := initShadowCipher(mp)
	if err != nil {
		return nil, err
	}
	return &Handshaker{mp: mp, cipher: c}, nil
}

func (*Handshaker) Name() string {
	return Name
}

func (h *Handshaker) Handshake(ctx context.Context, server relay.DuplexChannel, target netLayer.Addr) (relay.DuplexChannel, error) {
	return h.HandshakeWithPayload(ctx, server, target, nil)
}

// HandshakeWithPayload 把 firstPayload 和地址头一起加密写出, 这样第一个包里就带有数据.
func (h *Handshaker) HandshakeWithPayload(ctx context.Context, server relay.DuplexChannel, target netLayer.Addr, firstPayload []byte) (relay.DuplexChannel, error) {
	underlay, ok := server.(net.Conn)
	if !ok {
		return nil, utils.ErrInErr{ErrDesc: "shadowsocks Handshaker needs a net.Conn server channel", ErrDetail: utils.ErrNilOrWrongParameter}
	}

	header := target.SocksAddr()
	if header == nil {
		return nil, utils.ErrInErr{ErrDesc: "shadowsocks can't encode target", ErrDetail: utils.ErrInvalidData, Data: target.String()}
	}

	conn := h.cipher.StreamConn(underlay)

	buf := utils.GetBuf()
	defer utils.PutBuf(buf)
	buf.Write(header)
	if len(firstPayload) > 0 {
		buf.Write(firstPayload)
	}

	if err := writeWithContext(ctx, underlay, conn, buf.Bytes()); err != nil {
		return nil, err
	}

	if ce := utils.CanLogDebug("shadowsocks handshake sent"); ce != nil {
		ce.Write(zap.String("target", target.String()), zap.String("method", h.mp.Method), zap.Int("firstPayload", len(firstPayload)))
	}

	return &streamConn{Conn: conn, underlay: server}, nil
}

// 取消 ctx 时 通过 write deadline 打断阻塞中的写.
func writeWithContext(ctx context.Context, underlay net.Conn, w io.Writer, bs []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() {
		underlay.SetWriteDeadline(time.Now())
	})

	_, err := w.Write(bs)

	if !stop() {
		//ctx 已触发, 握手失败, 这个连接也就不再使用了
		return ctx.Err()
	}
	return err
}

// streamConn 的读写经过加密, 半关闭则直接作用于原始 channel.
// SetReadDeadline 等方法由内嵌的 net.Conn 提供.
type streamConn struct {
	net.Conn
	underlay relay.DuplexChannel
}

func (c *streamConn) CloseWrite() error {
	return c.underlay.CloseWrite()
}

func (c *streamConn) CloseRead() error {
	if cr, ok := c.underlay.(netLayer.ReadHalfCloser); ok {
		return cr.CloseRead()
	}
	return utils.ErrNotImplemented
}
