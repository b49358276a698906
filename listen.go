package ss_relay

import (
	"context"
	"net"

	"github.com/e1732a364fed/ss_relay/config"
	"github.com/e1732a364fed/ss_relay/netLayer"
	"github.com/e1732a364fed/ss_relay/proxy/shadowsocks"
	"github.com/e1732a364fed/ss_relay/relay"
	"github.com/e1732a364fed/ss_relay/utils"
	"go.uber.org/zap"
)

// Outbound 是 shadowsocks 服务器一侧: 拨号到哪里, 以及拨通后如何握手.
type Outbound struct {
	Addr       netLayer.Addr
	Dialer     netLayer.Dialer
	Handshaker relay.Handshaker
}

// NewOutbound 按 dc.Impl 选择握手实现; dns 非空时, 服务器域名由该dns服务器解析.
func NewOutbound(dc *config.DialConf, dns *config.DnsConf) (*Outbound, error) {
	if dc == nil {
		return nil, utils.ErrInErr{ErrDesc: "NewOutbound needs dial conf", ErrDetail: utils.ErrNilParameter}
	}
	addr, err := netLayer.NewAddrByHostPort(dc.GetAddr())
	if err != nil {
		return nil, err
	}
	addr.Network = "tcp"

	o := &Outbound{
		Addr:   addr,
		Dialer: netLayer.Dialer{Timeout: dc.DialTimeout()},
	}

	switch dc.Impl {
	case config.ImplDefault:
		o.Handshaker, err = shadowsocks.NewHandshaker(dc.MethodPass())
	case config.ImplOutline:
		o.Handshaker, err = shadowsocks.NewOutlineHandshaker(dc.MethodPass())
	case config.ImplDirect:
		o.Handshaker = relay.Direct
	default:
		err = utils.ErrInErr{ErrDesc: "unknown dial impl", ErrDetail: utils.ErrWrongParameter, Data: dc.Impl}
	}
	if err != nil {
		return nil, err
	}

	if dns != nil && dns.Server != "" {
		sa, err := dns.ServerAddr()
		if err != nil {
			return nil, err
		}
		o.Dialer.Resolver = netLayer.NewResolver(sa)
	}
	return o, nil
}

// ListenSer 监听 lc, 每个被接受的连接 都经 out 转发到 lc.Target. 非阻塞.
// 关闭返回的 listener 即停止接受新连接; ctx 被取消时, 所有正在进行的转发也随之结束.
func ListenSer(ctx context.Context, lc *config.ListenConf, out *Outbound, gi *GlobalInfo) (net.Listener, error) {
	target, err := lc.TargetAddr()
	if err != nil {
		return nil, utils.ErrInErr{ErrDesc: "listen has bad target", ErrDetail: err, Data: lc.Target}
	}
	if gi == nil {
		gi = &GlobalInfo{}
	}

	handleFunc := func(conn net.Conn) {
		handleNewIncomeConnection(ctx, out, target, conn, gi)
	}

	l, err := netLayer.ListenAndAccept(lc.GetNetwork(), lc.GetAddr(), handleFunc)
	if err != nil {
		if ce := utils.CanLogErr("can not listen"); ce != nil {
			ce.Write(zap.String("addr", lc.GetAddr()), zap.Error(err))
		}
		return nil, err
	}

	if ce := utils.CanLogInfo("Listening"); ce != nil {
		ce.Write(
			zap.String("addr", l.Addr().String()),
			zap.String("target", target.String()),
			zap.String("server", out.Addr.String()),
		)
	}
	return l, nil
}

// handleNewIncomeConnection 拨号服务器, 然后用一个新的 relay.Engine 转发直到会话结束. 阻塞.
func handleNewIncomeConnection(ctx context.Context, out *Outbound, target netLayer.Addr, localConn net.Conn, gi *GlobalInfo) {
	defer localConn.Close()

	fields := []zap.Field{
		zap.String("from", fromStr(localConn)),
		zap.String("target", target.String()),
	}

	lc, ok := localConn.(relay.DuplexChannel)
	if !ok {
		if ce := utils.CanLogErr("local conn can't be half closed"); ce != nil {
			ce.Write(fields...)
		}
		return
	}

	gi.ActiveConnectionCount.Inc()
	defer gi.ActiveConnectionCount.Dec()

	rc, err := out.Dialer.Dial(ctx, out.Addr)
	if err != nil {
		if ce := utils.CanLogErr("failed in dial"); ce != nil {
			ce.Write(append(fields, zap.String("server", out.Addr.String()), zap.Error(err))...)
		}
		return
	}
	defer rc.Close()

	remote, ok := rc.(relay.DuplexChannel)
	if !ok {
		if ce := utils.CanLogErr("server conn can't be half closed"); ce != nil {
			ce.Write(fields...)
		}
		return
	}

	e := relay.New(out.Handshaker, relay.ZapSink{Fields: fields})
	e.CountInto(&gi.AllUploadBytesSinceStart, &gi.AllDownloadBytesSinceStart)
	if err := e.Connect(ctx, target, lc, remote); err != nil {
		return
	}
	<-e.Done()

	if ce := utils.CanLogInfo("relay finished"); ce != nil {
		ce.Write(append(fields,
			zap.Uint64("uploaded", e.Uploaded()),
			zap.Uint64("downloaded", e.Downloaded()),
			zap.Duration("duration", e.ConnectionDuration()),
			zap.NamedError("reason", e.Err()),
		)...)
	}
}

// fromStr 以url形式给出来源地址, 如 tcp://127.0.0.1:52000
func fromStr(c net.Conn) string {
	if ta, ok := c.RemoteAddr().(*net.TCPAddr); ok {
		return netLayer.NewAddrFromTCPAddr(ta).UrlString()
	}
	return c.RemoteAddr().String()
}
