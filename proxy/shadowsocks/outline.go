package shadowsocks

import (
	"context"
	"io"
	"net"
	"time"

	outline "github.com/Jigsaw-Code/outline-sdk/transport"
	outliness "github.com/Jigsaw-Code/outline-sdk/transport/shadowsocks"
	"github.com/e1732a364fed/ss_relay/netLayer"
	"github.com/e1732a364fed/ss_relay/relay"
	"github.com/e1732a364fed/ss_relay/utils"
	"go.uber.org/zap"
)

// OutlineHandshaker 用 outline-sdk 实现 shadowsocks AEAD 握手.
// 支持的 method: chacha20-ietf-poly1305, aes-256-gcm, aes-192-gcm, aes-128-gcm (及其 AEAD_ 开头的 IETF 名称).
type OutlineHandshaker struct {
	mp  MethodPass
	key *outliness.EncryptionKey
}

var _ relay.Handshaker = (*OutlineHandshaker)(nil)

func NewOutlineHandshaker(mp MethodPass) (*OutlineHandshaker, error) {
	if mp.Method == "" || mp.Password == "" {
		return nil, utils.ErrInErr{ErrDesc: "shadowsocks needs both method and password", ErrDetail: utils.ErrNilParameter}
	}
	key, err := outliness.NewEncryptionKey(mp.Method, mp.Password)
	if err != nil {
		return nil, utils.ErrInErr{ErrDesc: "outline shadowsocks unsupported method", ErrDetail: err, Data: mp.Method}
	}
	return &OutlineHandshaker{mp: mp, key: key}, nil
}

func (*OutlineHandshaker) Name() string {
	return Name + "(outline)"
}

func (h *OutlineHandshaker) Handshake(ctx context.Context, server relay.DuplexChannel, target netLayer.Addr) (relay.DuplexChannel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	header := target.SocksAddr()
	if header == nil {
		return nil, utils.ErrInErr{ErrDesc: "shadowsocks can't encode target", ErrDetail: utils.ErrInvalidData, Data: target.String()}
	}

	ssw := outliness.NewWriter(server, h.key)

	var err error
	if nc, ok := server.(net.Conn); ok {
		err = writeWithContext(ctx, nc, ssw, header)
	} else {
		_, err = ssw.Write(header)
	}
	if err != nil {
		return nil, err
	}

	if ce := utils.CanLogDebug("outline shadowsocks handshake sent"); ce != nil {
		ce.Write(zap.String("target", target.String()), zap.String("method", h.mp.Method))
	}

	ssr := outliness.NewReader(server, h.key)

	if sc, ok := server.(outline.StreamConn); ok {
		return outline.WrapConn(sc, ssr, ssw), nil
	}
	return &outlineChannel{underlay: server, r: ssr, w: ssw}, nil
}

// outlineChannel 用于不是 net.Conn 的 server channel.
// 读写经过加密, 半关闭和 deadline 转交给原始 channel.
type outlineChannel struct {
	underlay relay.DuplexChannel
	r        io.Reader
	w        io.Writer
}

func (c *outlineChannel) Read(p []byte) (int, error)  { return c.r.Read(p) }
func (c *outlineChannel) Write(p []byte) (int, error) { return c.w.Write(p) }
func (c *outlineChannel) CloseWrite() error           { return c.underlay.CloseWrite() }

func (c *outlineChannel) CloseRead() error {
	if cr, ok := c.underlay.(netLayer.ReadHalfCloser); ok {
		return cr.CloseRead()
	}
	return utils.ErrNotImplemented
}

func (c *outlineChannel) SetReadDeadline(t time.Time) error {
	if d, ok := c.underlay.(netLayer.ReadDeadliner); ok {
		return d.SetReadDeadline(t)
	}
	return utils.ErrNotImplemented
}
