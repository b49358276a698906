/*
Package shadowsocks provides shadowsocks handshakes for relay.Engine.

Reference

https://github.com/shadowsocks/shadowsocks-org/wiki/Protocol

https://github.com/shadowsocks/shadowsocks-org/wiki/AEAD-Ciphers

一个 tcp 连接的开头是 目标地址 (socks5 地址格式: atyp + addr + port), 后面紧跟着数据, 整个流都经过加密.
服务端不会回复任何握手信息, 所以客户端写完地址头就可以开始转发了.

有两套实现:

Handshaker 使用 shadowsocks-go (旧的流式加密, 如 aes-128-cfb) 和 go-shadowsocks2 (AEAD 加密);
OutlineHandshaker 使用 outline-sdk, 只支持 AEAD 加密, 但不要求 server channel 是 net.Conn.

go-shadowsocks2 内部有一个全局的 salt 过滤器, 它会把客户端自己写出的 salt 也记下来,
所以无法在同一个进程里 用它同时当 AEAD 的客户端和服务端, 服务端会报 repeated salt detected.
*/
package shadowsocks

import (
	"net"
	"net/url"
	"strings"

	"github.com/e1732a364fed/ss_relay/utils"
	"github.com/shadowsocks/go-shadowsocks2/core"
	ss "github.com/shadowsocks/shadowsocks-go/shadowsocks"
	"go.uber.org/zap"
)

const Name = "shadowsocks"

// implements core.Cipher
type shadowCipher struct {
	cipher *ss.Cipher
}

func (c *shadowCipher) StreamConn(conn net.Conn) net.Conn {
	return ss.NewConn(conn, c.cipher.Copy())
}

func (c *shadowCipher) PacketConn(conn net.PacketConn) net.PacketConn {
	return ss.NewSecurePacketConn(conn, c.cipher.Copy())
}

// 先试 shadowsocks-go 的旧式加密, 不支持的话再交给 go-shadowsocks2 的 AEAD.
func initShadowCipher(info MethodPass) (core.Cipher, error) {
	var method, password = info.Method, info.Password

	if method == "" || password == "" {
		return nil, utils.ErrInErr{ErrDesc: "shadowsocks needs both method and password", ErrDetail: utils.ErrNilParameter}
	}

	cp, _ := ss.NewCipher(method, password)
	if cp != nil {
		return &shadowCipher{cipher: cp}, nil
	}

	cipher, err := core.PickCipher(strings.ToUpper(method), nil, password)
	if err != nil {
		if ce := utils.CanLogErr("ss initShadowCipher err"); ce != nil {
			ce.Write(zap.String("method", method), zap.Error(err))
		}
		return nil, utils.ErrInErr{ErrDesc: "shadowsocks unsupported method", ErrDetail: err, Data: method}
	}
	return cipher, nil
}

type MethodPass struct {
	Method, Password string
}

// 支持 SIP002 的 ss://method:pass@host:port 形式 (userinfo 不经 base64),
// 也支持 ss://host:port?method=xxx&pass=xxx . 两项都非空时返回 true.
func (ph *MethodPass) InitWithUrl(u *url.URL) bool {
	if u.User != nil {
		if p, set := u.User.Password(); set {
			ph.Method = u.User.Username()
			ph.Password = p
		}
	}
	if ph.Method == "" {
		ph.Method = u.Query().Get("method")
	}
	if ph.Password == "" {
		ph.Password = u.Query().Get("pass")
	}
	return len(ph.Method) > 0 && len(ph.Password) > 0
}

// str: "method:xxxx\npass:xxxx"
func (ph *MethodPass) InitWithStr(str string) (ok bool) {
	str = strings.TrimSuffix(str, "\n")
	strs := strings.SplitN(str, "\n", 2)
	if len(strs) != 2 {
		return
	}

	ustrs := strings.SplitN(strs[0], ":", 2)
	if len(ustrs) != 2 || ustrs[0] != "method" {
		return
	}
	pstrs := strings.SplitN(strs[1], ":", 2)
	if len(pstrs) != 2 || pstrs[0] != "pass" {
		return
	}

	if ustrs[1] == "" || pstrs[1] == "" {
		return
	}
	ph.Method = ustrs[1]
	ph.Password = pstrs[1]
	return true
}

func (ph MethodPass) String() string {
	return "method:" + ph.Method + "\npass:" + ph.Password
}
