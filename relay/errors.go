package relay

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"syscall"
)

// ErrorKind is the closed set of failure kinds an Engine reports.
type ErrorKind int

const (
	KindUnclassified ErrorKind = iota
	KindDialFailure
	KindAlreadyActive
	KindTransport
	KindCancelled
)

func (k ErrorKind) String() string {
	switch k {
	case KindDialFailure:
		return "DialFailure"
	case KindAlreadyActive:
		return "AlreadyActive"
	case KindTransport:
		return "Transport"
	case KindCancelled:
		return "Cancelled"
	default:
		return "Unclassified"
	}
}

// 致命: 会结束当前会话
func (k ErrorKind) fatalForSession() bool {
	switch k {
	case KindTransport, KindCancelled, KindUnclassified:
		return true
	}
	return false
}

// Error 是 Engine 所有失败路径返回的错误类型. Op 为出错时所处的操作,
// 如 "connect", "handshake", "client->server".
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	s := "relay " + e.Kind.String()
	if e.Op != "" {
		s += " [" + e.Op + "]"
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 使 errors.Is(err, &Error{Kind: KindTransport}) 这样按种类的判断可用
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

// 用于 errors.Is 的哨兵值
var (
	ErrDialFailure   = &Error{Kind: KindDialFailure}
	ErrAlreadyActive = &Error{Kind: KindAlreadyActive}
	ErrTransport     = &Error{Kind: KindTransport}
	ErrCancelled     = &Error{Kind: KindCancelled}
	ErrUnclassified  = &Error{Kind: KindUnclassified}
)

// KindOf 返回 err 链上第一个 *Error 的种类; 没有的话按 Classify 的规则分类.
// nil 返回 KindUnclassified.
func KindOf(err error) ErrorKind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return Classify(err)
}

// Classify 把任意错误归入分类. 已经是 *Error 的保持原有种类.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnclassified
	}

	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}

	// context.DeadlineExceeded 也实现了 net.Error, 所以要先判断
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCancelled
	}

	switch {
	case errors.Is(err, io.ErrClosedPipe),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.ErrShortWrite),
		errors.Is(err, os.ErrDeadlineExceeded),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, syscall.ECONNABORTED):
		return KindTransport
	}

	var ne net.Error
	if errors.As(err, &ne) {
		return KindTransport
	}

	return KindUnclassified
}

func wrap(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}
