package netLayer

import (
	"context"
	"errors"
	"net"
	"os"
	"sync/atomic"
	"testing"

	"github.com/miekg/dns"
)

// 在本地起一个 miekg/dns 服务器, 返回其地址和已收到的查询数
func startFakeDNS(t *testing.T) (Addr, *int32) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Log(err)
		t.FailNow()
	}

	var count int32
	started := make(chan struct{})

	srv := &dns.Server{
		PacketConn:        pc,
		NotifyStartedFunc: func() { close(started) },
		Handler: dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
			atomic.AddInt32(&count, 1)
			m := new(dns.Msg)
			m.SetReply(req)
			q := req.Question[0]

			switch {
			case q.Name == "myfake.com." && q.Qtype == dns.TypeA:
				rr, _ := dns.NewRR("myfake.com. 60 IN A 11.22.33.44")
				m.Answer = append(m.Answer, rr)
			case q.Name == "local.test." && q.Qtype == dns.TypeA:
				rr, _ := dns.NewRR("local.test. 60 IN A 127.0.0.1")
				m.Answer = append(m.Answer, rr)
			case q.Name == "alias.com.":
				rr, _ := dns.NewRR("alias.com. 60 IN CNAME myfake.com.")
				m.Answer = append(m.Answer, rr)
			case q.Name == "v6only.com." && q.Qtype == dns.TypeAAAA:
				rr, _ := dns.NewRR("v6only.com. 60 IN AAAA 2001:db8::1")
				m.Answer = append(m.Answer, rr)
			case q.Name == "v6only.com.":
			default:
				m.Rcode = dns.RcodeNameError
			}
			w.WriteMsg(m)
		}),
	}

	go srv.ActivateAndServe()
	<-started
	t.Cleanup(func() { srv.Shutdown() })

	return NewAddrFromUDPAddr(pc.LocalAddr().(*net.UDPAddr)), &count
}

func TestResolver(t *testing.T) {
	server, count := startFakeDNS(t)
	r := NewResolver(server)
	ctx := context.Background()

	ip, err := r.Lookup(ctx, "myfake.com")
	if err != nil || !ip.Equal(net.IPv4(11, 22, 33, 44)) {
		t.Log(ip, err)
		t.FailNow()
	}

	before := atomic.LoadInt32(count)
	ip, err = r.Lookup(ctx, "myfake.com.")
	if err != nil || !ip.Equal(net.IPv4(11, 22, 33, 44)) {
		t.Log(ip, err)
		t.FailNow()
	}
	if atomic.LoadInt32(count) != before {
		t.Log("second lookup should hit cache")
		t.FailNow()
	}

	ip, err = r.Lookup(ctx, "alias.com")
	if err != nil || !ip.Equal(net.IPv4(11, 22, 33, 44)) {
		t.Log("cname", ip, err)
		t.FailNow()
	}

	ip, err = r.Lookup(ctx, "v6only.com")
	if err != nil || !ip.Equal(net.ParseIP("2001:db8::1")) {
		t.Log("aaaa", ip, err)
		t.FailNow()
	}

	_, err = r.Lookup(ctx, "nothing.com")
	if !errors.Is(err, os.ErrNotExist) {
		t.Log("expect ErrNotExist, got", err)
		t.FailNow()
	}
}
