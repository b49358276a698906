/*
Package machine 定义一个 可以直接运行的机器；这个机器可以直接被可执行文件所使用.

machine把所有运行所需要的代码包装起来，对外像一个黑盒子: 载入配置, Start, Stop.

关键点是不使用任何静态变量，所有变量都放在machine中。
*/
package machine

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	ss_relay "github.com/e1732a364fed/ss_relay"
	"github.com/e1732a364fed/ss_relay/config"
	"github.com/e1732a364fed/ss_relay/utils"
	"go.uber.org/zap"
)

type M struct {
	ss_relay.GlobalInfo
	sync.RWMutex

	standardConf *config.Standard
	outbound     *ss_relay.Outbound

	cancel    context.CancelFunc
	listeners []net.Listener
	running   bool
}

func New() *M {
	return new(M)
}

func (m *M) IsRunning() bool {
	m.RLock()
	defer m.RUnlock()
	return m.running
}

func (m *M) HasProxyRunning() bool {
	m.RLock()
	defer m.RUnlock()
	return len(m.listeners) > 0
}

// Start 开始监听所有 listen. 任一监听失败时 已经开始的监听会被关闭, 并返回该错误.
func (m *M) Start() error {
	m.Lock()
	defer m.Unlock()

	if m.running {
		return nil
	}
	if m.standardConf == nil || m.outbound == nil {
		return utils.ErrInErr{ErrDesc: "machine has no config loaded", ErrDetail: utils.ErrNilParameter}
	}

	utils.Info("Starting...")

	ctx, cancel := context.WithCancel(context.Background())
	for _, lc := range m.standardConf.Listen {
		l, err := ss_relay.ListenSer(ctx, lc, m.outbound, &m.GlobalInfo)
		if err != nil {
			cancel()
			m.closeListeners()
			return err
		}
		m.listeners = append(m.listeners, l)
	}
	m.cancel = cancel
	m.running = true
	return nil
}

// Stop 关闭所有监听, 并结束所有正在进行的转发.
func (m *M) Stop() {
	m.Lock()
	defer m.Unlock()
	if !m.running {
		return
	}

	utils.Info("Stopping...")

	m.closeListeners()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.running = false
}

func (m *M) closeListeners() {
	for _, l := range m.listeners {
		if err := l.Close(); err != nil {
			if ce := utils.CanLogDebug("close listener"); ce != nil {
				ce.Write(zap.Error(err))
			}
		}
	}
	m.listeners = nil
}

// ListenAddrs 返回正在监听的地址, 端口为0的监听 可以由此得到实际端口.
func (m *M) ListenAddrs() (result []net.Addr) {
	m.RLock()
	defer m.RUnlock()
	for _, l := range m.listeners {
		result = append(result, l.Addr())
	}
	return
}

func (m *M) PrintAllState(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprintln(w, "activeConnectionCount", m.ActiveConnectionCount.Load())
	fmt.Fprintln(w, "allDownloadBytesSinceStart", m.AllDownloadBytesSinceStart.Load())
	fmt.Fprintln(w, "allUploadBytesSinceStart", m.AllUploadBytesSinceStart.Load())

	m.RLock()
	defer m.RUnlock()
	for i, l := range m.listeners {
		fmt.Fprintln(w, "listen", i, l.Addr().String())
	}
	if m.outbound != nil {
		fmt.Fprintln(w, "server", m.outbound.Addr.String())
	}
}
