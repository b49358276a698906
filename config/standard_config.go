package config

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/e1732a364fed/ss_relay/netLayer"
	"github.com/e1732a364fed/ss_relay/proxy/shadowsocks"
	"github.com/e1732a364fed/ss_relay/utils"
)

// dial.impl 的可选值
const (
	ImplDefault = ""        //shadowsocks-go / go-shadowsocks2
	ImplOutline = "outline" //outline-sdk
	ImplDirect  = "direct"  //不加密, 直接把本地流量转发给 dial 地址
)

//使用toml：https://toml.io/cn/v1.0.0
type AppConf struct {
	LogLevel *int   `toml:"loglevel"` //见 utils.Log_*; 为nil 时 使用命令行的默认值
	LogFile  string `toml:"logfile"`  //为空则只输出到 stdout
	BufLen   int    `toml:"buflen"`   //每次转发读取的最大长度, 见 utils.MaxBufLen
}

// ListenConf 是一个本地监听端口, 每个被接受的连接 都被转发到固定的 Target (dokodemo 式).
type ListenConf struct {
	Network string `toml:"network"` //tcp(默认) 或 unix
	Host    string `toml:"host"`    //ip 或 unix 的路径
	Port    int    `toml:"port"`
	Target  string `toml:"target"` //host:port
}

func (lc *ListenConf) GetAddr() string {
	if lc.Network == "unix" {
		return lc.Host
	}
	return net.JoinHostPort(lc.Host, strconv.Itoa(lc.Port))
}

func (lc *ListenConf) GetNetwork() string {
	if lc.Network == "" {
		return "tcp"
	}
	return lc.Network
}

func (lc *ListenConf) TargetAddr() (netLayer.Addr, error) {
	return netLayer.NewAddrByHostPort(lc.Target)
}

// DialConf 是 shadowsocks 服务器.
type DialConf struct {
	Host     string `toml:"host"` //ip 或域名. 是域名且给出了 [dns] 时, 用该dns服务器解析
	Port     int    `toml:"port"`
	Method   string `toml:"method"`
	Password string `toml:"password"`
	Impl     string `toml:"impl"`
	Timeout  int    `toml:"timeout"` //拨号超时, 秒. 0 为 netLayer.DefaultDialTimeout
}

func (dc *DialConf) GetAddr() string {
	return net.JoinHostPort(dc.Host, strconv.Itoa(dc.Port))
}

func (dc *DialConf) MethodPass() shadowsocks.MethodPass {
	return shadowsocks.MethodPass{Method: dc.Method, Password: dc.Password}
}

func (dc *DialConf) DialTimeout() time.Duration {
	if dc.Timeout <= 0 {
		return netLayer.DefaultDialTimeout
	}
	return time.Duration(dc.Timeout) * time.Second
}

type DnsConf struct {
	Server string `toml:"server"` //如 udp://1.1.1.1:53 , 或 1.1.1.1:53
}

type Standard struct {
	App    *AppConf      `toml:"app"`
	Listen []*ListenConf `toml:"listen"`
	Dial   *DialConf     `toml:"dial"`
	Dns    *DnsConf      `toml:"dns"`
}

func LoadTomlConfStr(str string) (c *Standard, err error) {
	c = &Standard{}
	if _, err = toml.Decode(str, c); err != nil {
		return nil, utils.ErrInErr{ErrDesc: "can not parse toml config", ErrDetail: err}
	}
	return
}

func LoadTomlConfFile(fileNamePath string) (*Standard, error) {
	bs, err := os.ReadFile(fileNamePath)
	if err != nil {
		return nil, utils.ErrInErr{ErrDesc: "can't open config file", ErrDetail: err, Data: fileNamePath}
	}
	return LoadTomlConfStr(string(bs))
}

// Validate 检查各项是否完整且合法, 并返回第一个问题.
func (c *Standard) Validate() error {
	if len(c.Listen) == 0 {
		return utils.ErrInErr{ErrDesc: "config has no listen", ErrDetail: utils.ErrNilParameter}
	}
	for i, lc := range c.Listen {
		if lc == nil {
			return utils.ErrInErr{ErrDesc: "config has empty listen", ErrDetail: utils.ErrNilParameter, Data: i}
		}
		switch lc.GetNetwork() {
		case "tcp", "tcp4", "tcp6":
			if lc.Port < 0 || lc.Port > 65535 {
				return utils.ErrInErr{ErrDesc: "listen port out of range", ErrDetail: utils.ErrWrongParameter, Data: lc.Port}
			}
		case "unix":
			if lc.Host == "" {
				return utils.ErrInErr{ErrDesc: "unix listen needs a path in host", ErrDetail: utils.ErrWrongParameter, Data: i}
			}
		default:
			return utils.ErrInErr{ErrDesc: "listen network not supported", ErrDetail: utils.ErrNotImplemented, Data: lc.Network}
		}
		if _, err := lc.TargetAddr(); err != nil {
			return utils.ErrInErr{ErrDesc: "listen has bad target", ErrDetail: err, Data: lc.Target}
		}
	}

	dc := c.Dial
	if dc == nil {
		return utils.ErrInErr{ErrDesc: "config has no dial", ErrDetail: utils.ErrNilParameter}
	}
	if dc.Host == "" || dc.Port <= 0 || dc.Port > 65535 {
		return utils.ErrInErr{ErrDesc: "dial needs host and a valid port", ErrDetail: utils.ErrWrongParameter, Data: dc.GetAddr()}
	}
	switch dc.Impl {
	case ImplDefault, ImplOutline:
		if dc.Method == "" || dc.Password == "" {
			return utils.ErrInErr{ErrDesc: "dial needs method and password", ErrDetail: utils.ErrNilParameter}
		}
	case ImplDirect:
	default:
		return utils.ErrInErr{ErrDesc: "unknown dial impl", ErrDetail: utils.ErrWrongParameter, Data: dc.Impl}
	}

	if c.Dns != nil && c.Dns.Server != "" {
		if _, err := c.Dns.ServerAddr(); err != nil {
			return utils.ErrInErr{ErrDesc: "bad dns server", ErrDetail: err, Data: c.Dns.Server}
		}
	}
	return nil
}

// ServerAddr 解析 Server, 没有 scheme 时视为 udp.
func (dc *DnsConf) ServerAddr() (netLayer.Addr, error) {
	if dc.Server == "" {
		return netLayer.Addr{}, netLayer.ErrEmptyAddr
	}
	if strings.Contains(dc.Server, "://") {
		return netLayer.NewAddrByURL(dc.Server)
	}
	a, err := netLayer.NewAddrByHostPort(dc.Server)
	if err != nil {
		return a, err
	}
	a.Network = "udp"
	return a, nil
}
