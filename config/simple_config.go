package config

import (
	"encoding/json"
	"net/url"
	"os"
	"strconv"

	"github.com/e1732a364fed/ss_relay/utils"
)

// Simple 是只用 url 描述的 json 配置, 如
//
//	{
//		"listen": "tcp://127.0.0.1:1080",
//		"target": "example.com:443",
//		"dial": "ss://aes-256-gcm:secret@ss.example.com:8388?impl=outline"
//	}
type Simple struct {
	Server_ThatListenPort_Url string `json:"listen"`
	Target                    string `json:"target"`
	Client_ThatDialRemote_Url string `json:"dial"`
	Dns                       string `json:"dns"`
}

func LoadSimpleConfigFile(fileNamePath string) (*Simple, error) {
	bs, err := os.ReadFile(fileNamePath)
	if err != nil {
		return nil, utils.ErrInErr{ErrDesc: "can't open config file", ErrDetail: err, Data: fileNamePath}
	}
	return LoadSimpleConfigFromStr(string(bs))
}

func LoadSimpleConfigFromStr(str string) (*Simple, error) {
	config := &Simple{}
	if err := json.Unmarshal([]byte(str), config); err != nil {
		return nil, utils.ErrInErr{ErrDesc: "can not parse simple config", ErrDetail: err}
	}
	return config, nil
}

// ToStandard 把 Simple 转为 Standard, 之后的流程就都一样了.
func (sc *Simple) ToStandard() (*Standard, error) {
	lu, err := url.Parse(sc.Server_ThatListenPort_Url)
	if err != nil {
		return nil, utils.ErrInErr{ErrDesc: "bad listen url", ErrDetail: err, Data: sc.Server_ThatListenPort_Url}
	}
	lc := &ListenConf{Network: lu.Scheme, Target: sc.Target}
	if lu.Scheme == "unix" {
		lc.Host = lu.Path
	} else {
		lc.Host = lu.Hostname()
		lc.Port, _ = strconv.Atoi(lu.Port())
	}

	du, err := url.Parse(sc.Client_ThatDialRemote_Url)
	if err != nil {
		return nil, utils.ErrInErr{ErrDesc: "bad dial url", ErrDetail: err, Data: sc.Client_ThatDialRemote_Url}
	}
	dc := &DialConf{
		Host: du.Hostname(),
		Impl: du.Query().Get("impl"),
	}
	dc.Port, _ = strconv.Atoi(du.Port())
	dc.Timeout, _ = strconv.Atoi(du.Query().Get("timeout"))

	switch du.Scheme {
	case "ss", "shadowsocks":
		mp := dc.MethodPass()
		mp.InitWithUrl(du)
		dc.Method, dc.Password = mp.Method, mp.Password
	case "direct", "tcp":
		dc.Impl = ImplDirect
	default:
		return nil, utils.ErrInErr{ErrDesc: "dial url scheme not supported", ErrDetail: utils.ErrNotImplemented, Data: du.Scheme}
	}

	c := &Standard{
		Listen: []*ListenConf{lc},
		Dial:   dc,
	}
	if sc.Dns != "" {
		c.Dns = &DnsConf{Server: sc.Dns}
	}
	return c, nil
}
