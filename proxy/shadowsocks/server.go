package shadowsocks

import (
	"net"

	"github.com/e1732a364fed/ss_relay/netLayer"
	"github.com/e1732a364fed/ss_relay/utils"
	"github.com/shadowsocks/go-shadowsocks2/core"
	"github.com/shadowsocks/go-shadowsocks2/socks"
)

// Server 是 shadowsocks 的服务端一侧: 解密, 并读出客户端写来的目标地址.
type Server struct {
	cipher core.Cipher
}

func NewServer(mp MethodPass) (*Server, error) {
	c, err := initShadowCipher(mp)
	if err != nil {
		return nil, err
	}
	return &Server{cipher: c}, nil
}

func (*Server) Name() string {
	return Name
}

// Handshake 返回解密后的连接 以及 目标地址. 地址头之后的数据 (如 first payload) 留在 result 中, 不会被多读.
func (s *Server) Handshake(underlay net.Conn) (result net.Conn, targetAddr netLayer.Addr, returnErr error) {
	result = s.cipher.StreamConn(underlay)

	sa, err := socks.ReadAddr(result)
	if err != nil {
		returnErr = utils.ErrInErr{ErrDesc: "shadowsocks read target failed", ErrDetail: err}
		return
	}

	targetAddr, err = netLayer.NewAddrFromSocks(sa)
	if err != nil {
		returnErr = utils.ErrInErr{ErrDesc: "shadowsocks got bad target", ErrDetail: utils.ErrInvalidData, Data: sa.String()}
		return
	}
	if targetAddr.Port == 0 {
		returnErr = utils.ErrInErr{ErrDesc: "shadowsocks target port is zero, which is bad", ErrDetail: utils.ErrInvalidData}
	}
	return
}
