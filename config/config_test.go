package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/e1732a364fed/ss_relay/netLayer"
)

const testToml = `
[app]
loglevel = 0
logfile = "ssrelay.log"
buflen = 32768

[[listen]]
host = "127.0.0.1"
port = 1080
target = "example.com:443"

[[listen]]
network = "unix"
host = "/tmp/ssrelay.sock"
target = "1.2.3.4:80"

[dial]
host = "ss.example.com"
port = 8388
method = "aes-256-gcm"
password = "secret"
impl = "outline"
timeout = 3

[dns]
server = "udp://1.1.1.1:53"
`

func TestLoadTomlConf(t *testing.T) {
	c, err := LoadTomlConfStr(testToml)
	if err != nil {
		t.Log(err)
		t.FailNow()
	}
	if err := c.Validate(); err != nil {
		t.Log(err)
		t.FailNow()
	}

	if c.App == nil || c.App.LogLevel == nil || *c.App.LogLevel != 0 || c.App.BufLen != 32768 {
		t.Log("app", c.App)
		t.FailNow()
	}
	if len(c.Listen) != 2 || c.Listen[0].GetAddr() != "127.0.0.1:1080" || c.Listen[1].GetAddr() != "/tmp/ssrelay.sock" {
		t.Log("listen", c.Listen)
		t.FailNow()
	}
	if c.Listen[0].GetNetwork() != "tcp" {
		t.FailNow()
	}
	ta, _ := c.Listen[0].TargetAddr()
	if ta.Name != "example.com" || ta.Port != 443 {
		t.Log(ta)
		t.FailNow()
	}

	if c.Dial.GetAddr() != "ss.example.com:8388" || c.Dial.Impl != ImplOutline || c.Dial.DialTimeout() != 3*time.Second {
		t.Log("dial", c.Dial)
		t.FailNow()
	}
	if mp := c.Dial.MethodPass(); mp.Method != "aes-256-gcm" || mp.Password != "secret" {
		t.FailNow()
	}

	da, err := c.Dns.ServerAddr()
	if err != nil || da.Network != "udp" || da.Port != 53 {
		t.Log(da, err)
		t.FailNow()
	}
}

func TestLoadTomlConfFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "client.toml")
	if err := os.WriteFile(fn, []byte(testToml), 0644); err != nil {
		t.Log(err)
		t.FailNow()
	}
	c, err := LoadTomlConfFile(fn)
	if err != nil || len(c.Listen) != 2 {
		t.Log(err)
		t.FailNow()
	}

	if _, err := LoadTomlConfFile(fn + ".nope"); err == nil {
		t.FailNow()
	}
	if _, err := LoadTomlConfStr("[[listen]\nhost="); err == nil {
		t.FailNow()
	}
}

func TestValidate(t *testing.T) {
	base := func() *Standard {
		c, _ := LoadTomlConfStr(testToml)
		return c
	}

	cases := map[string]func(c *Standard){
		"no listen":     func(c *Standard) { c.Listen = nil },
		"bad target":    func(c *Standard) { c.Listen[0].Target = "example.com" },
		"bad network":   func(c *Standard) { c.Listen[0].Network = "udp" },
		"unix no path":  func(c *Standard) { c.Listen[1].Host = "" },
		"no dial":       func(c *Standard) { c.Dial = nil },
		"no dial port":  func(c *Standard) { c.Dial.Port = 0 },
		"no password":   func(c *Standard) { c.Dial.Password = "" },
		"unknown impl":  func(c *Standard) { c.Dial.Impl = "vmess" },
		"bad dns":       func(c *Standard) { c.Dns.Server = "1.1.1.1" },
		"port overflow": func(c *Standard) { c.Listen[0].Port = 70000 },
	}
	for name, f := range cases {
		c := base()
		f(c)
		if c.Validate() == nil {
			t.Log(name, "should not pass")
			t.Fail()
		}
	}

	c := base()
	c.Dial.Impl = ImplDirect
	c.Dial.Method, c.Dial.Password = "", ""
	c.Dns = nil
	if err := c.Validate(); err != nil {
		t.Log("direct doesn't need method", err)
		t.FailNow()
	}
}

func TestDnsServerAddr(t *testing.T) {
	a, err := (&DnsConf{Server: "8.8.8.8:53"}).ServerAddr()
	if err != nil || a.Network != "udp" || a.String() != "8.8.8.8:53" {
		t.Log(a, err)
		t.FailNow()
	}
	a, err = (&DnsConf{Server: "tcp://8.8.8.8:53"}).ServerAddr()
	if err != nil || a.Network != "tcp" {
		t.Log(a, err)
		t.FailNow()
	}
	if _, err = (&DnsConf{}).ServerAddr(); err != netLayer.ErrEmptyAddr {
		t.FailNow()
	}
}

func TestSimpleConfig(t *testing.T) {
	sc, err := LoadSimpleConfigFromStr(`{
	"listen": "tcp://127.0.0.1:1080",
	"target": "example.com:443",
	"dial": "ss://aes-256-gcm:secret@ss.example.com:8388?impl=outline&timeout=5",
	"dns": "udp://1.1.1.1:53"
}`)
	if err != nil {
		t.Log(err)
		t.FailNow()
	}
	c, err := sc.ToStandard()
	if err != nil {
		t.Log(err)
		t.FailNow()
	}
	if err := c.Validate(); err != nil {
		t.Log(err)
		t.FailNow()
	}
	if c.Listen[0].GetAddr() != "127.0.0.1:1080" || c.Dial.Method != "aes-256-gcm" || c.Dial.Password != "secret" || c.Dial.Impl != ImplOutline || c.Dial.Timeout != 5 {
		t.Log(c.Listen[0], c.Dial)
		t.FailNow()
	}

	sc.Client_ThatDialRemote_Url = "vmess://x@y:1"
	if _, err := sc.ToStandard(); err == nil || !strings.Contains(err.Error(), "not supported") {
		t.Log(err)
		t.FailNow()
	}

	if _, err := LoadSimpleConfigFromStr("{"); err == nil {
		t.FailNow()
	}
}

func TestExampleFiles(t *testing.T) {
	c, err := LoadTomlConfFile("../examples/client.toml")
	if err != nil {
		t.Log(err)
		t.FailNow()
	}
	if err := c.Validate(); err != nil {
		t.Log(err)
		t.FailNow()
	}

	sc, err := LoadSimpleConfigFile("../examples/client.json")
	if err != nil {
		t.Log(err)
		t.FailNow()
	}
	c, err = sc.ToStandard()
	if err != nil {
		t.Log(err)
		t.FailNow()
	}
	if err := c.Validate(); err != nil {
		t.Log(err)
		t.FailNow()
	}
}
