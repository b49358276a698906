package netLayer

import (
	"errors"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/e1732a364fed/ss_relay/utils"
	"github.com/shadowsocks/go-shadowsocks2/socks"
)

var ErrEmptyAddr = errors.New("empty addr")

// Addr represents an address that you want to access by proxy. Either Name or IP is used exclusively.
// Addr完整地表示了一个 传输层的目标，同时用 Network 字段 来记录网络层协议名;
// 在 relay 中它就是一次连接的 destination, 作为值传递, 传入后不再修改.
type Addr struct {
	Network string
	Name    string // domain name, or unix domain socket 的 文件路径
	IP      net.IP
	Port    int
}

func NewAddrFromUDPAddr(addr *net.UDPAddr) Addr {
	return Addr{
		IP:      addr.IP,
		Port:    addr.Port,
		Network: "udp",
	}
}

func NewAddrFromTCPAddr(addr *net.TCPAddr) Addr {
	return Addr{
		IP:      addr.IP,
		Port:    addr.Port,
		Network: "tcp",
	}
}

//addrStr格式一般为 host:port ；如果不含冒号，将直接认为该字符串是域名或文件名
func NewAddr(addrStr string) (Addr, error) {
	if addrStr == "" {
		return Addr{}, ErrEmptyAddr
	}
	if !strings.Contains(addrStr, ":") {
		//unix domain socket, or 域名默认端口的情况
		return Addr{Name: addrStr}, nil
	}

	return NewAddrByHostPort(addrStr)
}

//hostPortStr格式 必须为 host:port
func NewAddrByHostPort(hostPortStr string) (Addr, error) {
	host, portStr, err := net.SplitHostPort(hostPortStr)
	if err != nil {
		return Addr{}, err
	}
	if host == "" {
		host = "127.0.0.1"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Addr{}, err
	}
	if port < 0 || port > 65535 {
		return Addr{}, utils.ErrInErr{ErrDesc: "Invalid port", ErrDetail: utils.ErrInvalidData, Data: port}
	}

	a := Addr{Port: port}
	if ip := net.ParseIP(host); ip != nil {
		a.IP = ip
	} else {
		a.Name = host
	}
	return a, nil
}

// 如 tcp://127.0.0.1:443 , udp://1.1.1.1:53 ;
// 不支持unix domain socket
func NewAddrByURL(addrStr string) (Addr, error) {
	u, err := url.Parse(addrStr)
	if err != nil {
		return Addr{}, err
	}
	if u.Scheme == "unix" {
		return Addr{}, errors.New("parse unix domain socket by url is not supported")
	}
	if u.Host == "" {
		return Addr{}, utils.ErrInErr{ErrDesc: "url has no host", ErrDetail: ErrEmptyAddr, Data: addrStr}
	}

	a, err := NewAddrByHostPort(u.Host)
	if err != nil {
		return Addr{}, err
	}
	a.Network = u.Scheme

	return a, nil
}

// NewAddrFromSocks 把 socks5 地址格式 (shadowsocks 也使用它) 转换为 Addr
func NewAddrFromSocks(sa socks.Addr) (Addr, error) {
	if sa == nil {
		return Addr{}, ErrEmptyAddr
	}
	return NewAddrByHostPort(sa.String())
}

// Return host:port string. 若网络为unix，直接返回 a.Name.
// 若有Name而没有ip，则返回 a.Name:a.Port . 否则返回 a.IP: a.Port;
func (a Addr) String() string {
	if a.Network == "unix" {
		return a.Name
	}
	port := strconv.Itoa(a.Port)
	if a.IP == nil {
		return net.JoinHostPort(a.Name, port)
	}
	return net.JoinHostPort(a.IP.String(), port)
}

//返回以url表示的 地址. unix的话文件名若带斜杠则会被转义
func (a Addr) UrlString() string {
	if a.Network != "" {
		return a.Network + "://" + url.PathEscape(a.String())
	}
	return "tcp://" + a.String()
}

func (a Addr) IsEmpty() bool {
	return a.Name == "" && len(a.IP) == 0 && a.Network == "" && a.Port == 0
}

func (a Addr) IsIpv6() bool {
	return a.IP != nil && a.IP.To4() == nil
}

//a.Network == "udp", "udp4", "udp6"
func (a Addr) IsUDP() bool {
	return IsStrUDP_network(a.Network)
}

// SocksAddr 返回 socks5 标准的地址字节 (atyp + addr + port), shadowsocks 的目标地址头部就是这个格式.
// 域名过长(>255) 或 端口非法时返回nil
func (a Addr) SocksAddr() socks.Addr {
	if a.Network == "unix" {
		return nil
	}
	return socks.ParseAddr(a.String())
}

func IsStrUDP_network(s string) bool {
	switch s {
	case "udp", "udp4", "udp6":
		return true
	}
	return false
}
