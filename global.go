package ss_relay

import (
	"go.uber.org/atomic"
)

// GlobalInfo 是所有监听共享的 统计数据
type GlobalInfo struct {
	ActiveConnectionCount      atomic.Int32
	AllDownloadBytesSinceStart atomic.Uint64
	AllUploadBytesSinceStart   atomic.Uint64
}
