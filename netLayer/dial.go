package netLayer

import (
	"context"
	"net"
	"time"

	"github.com/e1732a364fed/ss_relay/utils"
	"go.uber.org/zap"
)

const DefaultDialTimeout = time.Second * 8 //v2ray默认16秒，太长了

// Dialer 描述了如何拨号到一个 Addr. Resolver 非空时, 域名会先经它解析, 而不是交给系统.
type Dialer struct {
	Timeout  time.Duration
	Resolver *Resolver
}

// Dial 拨号到 addr; addr.Network 为空时视为 tcp. 拨号本身可被 ctx 取消.
func (d *Dialer) Dial(ctx context.Context, addr Addr) (net.Conn, error) {
	if addr.IsEmpty() {
		return nil, ErrEmptyAddr
	}

	network := addr.Network
	if network == "" {
		network = "tcp"
	}

	if network != "unix" && addr.IP == nil && addr.Name != "" && d.Resolver != nil {
		ip, err := d.Resolver.Lookup(ctx, addr.Name)
		if err != nil {
			return nil, utils.ErrInErr{ErrDesc: "resolve failed", ErrDetail: err, Data: addr.Name}
		}
		if ce := utils.CanLogDebug("resolved"); ce != nil {
			ce.Write(zap.String("name", addr.Name), zap.String("ip", ip.String()))
		}
		addr.IP = ip
	}

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	nd := net.Dialer{Timeout: timeout}

	return nd.DialContext(ctx, network, addr.String())
}
