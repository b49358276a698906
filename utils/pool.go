package utils

import (
	"bytes"
	"flag"
	"sync"
)

var (
	// 专门储存 长度为 MaxBufLen 的 []byte, 供转发循环的每个方向使用
	packetPool sync.Pool

	// 储存 *bytes.Buffer, 用于拼接握手头部
	bufPool sync.Pool
)

// 转发时单次读写的最大长度. io.Copy 内部默认buffer大小为 32k, 我们用64k
var MaxBufLen = DefaultMaxBufLen

const DefaultMaxBufLen = 64 * 1024

// 过小的buf会让转发退化成大量小包
const MinBufLen = 1024

func init() {
	flag.IntVar(&MaxBufLen, "bl", DefaultMaxBufLen, "relay buf len")

	resetPacketPool()

	bufPool = sync.Pool{
		New: func() any {
			return &bytes.Buffer{}
		},
	}
}

func resetPacketPool() {
	l := MaxBufLen
	packetPool = sync.Pool{
		New: func() any {
			return make([]byte, l)
		},
	}
}

// 给了参数或配置调节buf大小后, 需要调用本函数更新pool. 应在开始转发之前调用
func AdjustBufSize(l int) {
	if l < MinBufLen {
		l = MinBufLen
	}
	MaxBufLen = l
	resetPacketPool()
}

//从Pool中获取一个 *bytes.Buffer
func GetBuf() *bytes.Buffer {
	return bufPool.Get().(*bytes.Buffer)
}

//将 buf 放回 Pool
func PutBuf(buf *bytes.Buffer) {
	buf.Reset()
	bufPool.Put(buf)
}

// GetPacket 获取一个长度为 MaxBufLen 的 []byte
func GetPacket() []byte {
	return packetPool.Get().([]byte)
}

// 放回用 GetPacket 获取的 []byte. 长度不对的直接丢弃, 这样 AdjustBufSize 之后旧的buf不会混进来
func PutPacket(bs []byte) {
	if cap(bs) != MaxBufLen {
		return
	}
	packetPool.Put(bs[:MaxBufLen])
}
