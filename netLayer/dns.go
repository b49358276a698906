package netLayer

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/e1732a364fed/ss_relay/utils"
	"github.com/miekg/dns"
	"go.uber.org/zap"
)

var ErrRecursion = errors.New("multiple recursion not allowed")

const DefaultDNSTimeout = 5 * time.Second

type IPRecord struct {
	IP         net.IP
	TTL        uint32 //seconds
	RecordTime time.Time
}

func (r IPRecord) expired(now time.Time) bool {
	return now.Sub(r.RecordTime) > time.Duration(r.TTL)*time.Second
}

// Resolver 通过一个指定的dns服务器 (udp或tcp) 查询域名, 并按ttl缓存结果.
// 用于解析 shadowsocks 服务器的域名, 这样不依赖系统的dns设置.
type Resolver struct {
	Server  Addr
	Timeout time.Duration

	client *dns.Client

	mutex sync.RWMutex
	cache map[string]IPRecord //key 统一为 未经 Fqdn包装过的域名. 即尾部没有点号

	now func() time.Time
}

// NewResolver 的 server.Network 可以为 udp 或 tcp, 空值视为 udp
func NewResolver(server Addr) *Resolver {
	network := server.Network
	if network == "" {
		network = "udp"
	}
	return &Resolver{
		Server:  server,
		Timeout: DefaultDNSTimeout,
		client:  &dns.Client{Net: network, Timeout: DefaultDNSTimeout},
		cache:   make(map[string]IPRecord),
		now:     time.Now,
	}
}

// Lookup 先查 A 记录, 查不到再查 AAAA.
//
// 可能返回 os.ErrNotExist (查无此记录), dns.ErrRcode (Rcode 不是 RcodeSuccess), ErrRecursion,
// 其它错误都是与dns服务器通信时的错误.
func (r *Resolver) Lookup(ctx context.Context, domain string) (net.IP, error) {
	domain = strings.TrimSuffix(domain, ".")

	r.mutex.RLock()
	rec, ok := r.cache[domain]
	r.mutex.RUnlock()

	if ok && !rec.expired(r.now()) {
		return rec.IP, nil
	}

	ip, ttl, err := r.query(ctx, dns.Fqdn(domain), dns.TypeA, 0)
	if errors.Is(err, os.ErrNotExist) {
		ip, ttl, err = r.query(ctx, dns.Fqdn(domain), dns.TypeAAAA, 0)
	}
	if err != nil {
		return nil, err
	}

	r.mutex.Lock()
	r.cache[domain] = IPRecord{IP: ip, TTL: ttl, RecordTime: r.now()}
	r.mutex.Unlock()

	return ip, nil
}

// domain必须是 dns.Fqdn 包过的. recursionCount 用于遇到cname时进一步查询时防止无限递归.
func (r *Resolver) query(ctx context.Context, domain string, dnsType uint16, recursionCount int) (ip net.IP, ttl uint32, err error) {
	m := new(dns.Msg)
	m.SetQuestion(domain, dnsType)

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	var resp *dns.Msg
	resp, _, err = r.client.ExchangeContext(ctx, m, r.Server.String())
	if resp == nil {
		if ce := utils.CanLogErr("dns query read err"); ce != nil {
			ce.Write(zap.String("domain", domain), zap.Error(err))
		}
		if err == nil {
			err = os.ErrNotExist
		}
		return
	}
	err = nil

	if resp.Rcode != dns.RcodeSuccess {
		if ce := utils.CanLogDebug("dns query code err"); ce != nil {
			//dns查不到的情况是很有可能的，所以还是放在debug日志里
			ce.Write(zap.String("domain", domain), zap.Int("rcode", resp.Rcode))
		}
		if resp.Rcode == dns.RcodeNameError {
			err = os.ErrNotExist
		} else {
			err = dns.ErrRcode
		}
		return
	}

	for _, a := range resp.Answer {
		switch rr := a.(type) {
		case *dns.A:
			if dnsType == dns.TypeA {
				return rr.A, rr.Hdr.Ttl, nil
			}
		case *dns.AAAA:
			if dnsType == dns.TypeAAAA {
				return rr.AAAA, rr.Hdr.Ttl, nil
			}
		}
	}

	//没A和4A那就查cname在不在
	for _, a := range resp.Answer {
		if cname, ok := a.(*dns.CNAME); ok {
			if recursionCount > 2 {
				//不准循环递归, 有可能两个域名cname相互指向对方
				err = ErrRecursion
				return
			}
			if ce := utils.CanLogDebug("dns query got cname"); ce != nil {
				ce.Write(zap.String("query", domain), zap.String("target", cname.Target))
			}
			return r.query(ctx, dns.Fqdn(cname.Target), dnsType, recursionCount+1)
		}
	}

	err = os.ErrNotExist
	return
}
