package netLayer

import (
	"errors"
	"io"
	"reflect"
	"time"

	"github.com/e1732a364fed/ss_relay/utils"
	"go.uber.org/zap"
)

var errInvalidWrite = errors.New("invalid write result")

// WriteHalfCloser 可以只关闭写端 (发送FIN). *net.TCPConn, *net.UnixConn 都实现了它
type WriteHalfCloser interface {
	CloseWrite() error
}

// ReadHalfCloser 可以只关闭读端, 见 outline-sdk 的 transport.StreamConn
type ReadHalfCloser interface {
	CloseRead() error
}

type ReadDeadliner interface {
	SetReadDeadline(t time.Time) error
}

// CopyUntilEOF 循环 从 readConn 读取数据并写入 writeConn, 直到 EOF 或错误发生。
// 读到EOF 时返回的 err 为 nil. 每次读写的长度不超过 utils.MaxBufLen.
//
// onWrite 非空时, 每次成功写入后都会以写入的字节数调用它.
func CopyUntilEOF(writeConn io.Writer, readConn io.Reader, onWrite func(n int)) (allnum int64, err error) {
	if ce := utils.CanLogDebug("CopyUntilEOF"); ce != nil {
		ce.Write(
			zap.String("from", reflect.TypeOf(readConn).String()),
			zap.String("->", reflect.TypeOf(writeConn).String()),
		)
	}

	bs := utils.GetPacket()
	defer utils.PutPacket(bs)

	for {
		nr, er := readConn.Read(bs)
		if nr > 0 {
			nw, ew := writeConn.Write(bs[:nr])
			if nw < 0 || nr < nw {
				nw = 0
				if ew == nil {
					ew = errInvalidWrite
				}
			}
			allnum += int64(nw)
			if nw > 0 && onWrite != nil {
				onWrite(nw)
			}
			if ew != nil {
				err = ew
				return
			}
			if nr != nw {
				err = io.ErrShortWrite
				return
			}
		}
		if er != nil {
			if er != io.EOF {
				err = er
			}
			return
		}
	}
}

// InterruptRead 试图让 r 上阻塞着的 Read 尽快返回。优先设置一个过去的 read deadline,
// 不支持的话再试 CloseRead. 两者都不支持时返回 false, 此时只能等对端关闭.
func InterruptRead(r any) bool {
	if d, ok := r.(ReadDeadliner); ok {
		if d.SetReadDeadline(time.Now()) == nil {
			return true
		}
	}
	if c, ok := r.(ReadHalfCloser); ok {
		c.CloseRead()
		return true
	}
	return false
}
