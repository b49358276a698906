package netLayer

import (
	"bytes"
	"errors"
	"io"
	"net"
	"os"
	"testing"
	"time"

	"github.com/e1732a364fed/ss_relay/utils"
)

type failWriter struct{ after int }

func (w *failWriter) Write(p []byte) (int, error) {
	if w.after <= 0 {
		return 0, io.ErrClosedPipe
	}
	w.after--
	return len(p), nil
}

func TestCopyUntilEOF(t *testing.T) {
	utils.AdjustBufSize(1024)
	defer utils.AdjustBufSize(utils.DefaultMaxBufLen)

	src := bytes.Repeat([]byte("0123456789"), 1000)
	var dst bytes.Buffer
	var counted int

	n, err := CopyUntilEOF(&dst, bytes.NewReader(src), func(n int) { counted += n })
	if err != nil {
		t.Log("EOF should not be reported", err)
		t.FailNow()
	}
	if n != int64(len(src)) || counted != len(src) || !bytes.Equal(dst.Bytes(), src) {
		t.Log("copied", n, counted)
		t.FailNow()
	}

	n, err = CopyUntilEOF(&failWriter{after: 2}, bytes.NewReader(src), nil)
	if !errors.Is(err, io.ErrClosedPipe) {
		t.Log("write err should be returned, got", err)
		t.FailNow()
	}
	if n != 2*1024 {
		t.Log("wrong count before failure", n)
		t.FailNow()
	}
}

func TestInterruptRead(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Log(err)
		t.FailNow()
	}
	defer ln.Close()

	go func() {
		c, e := ln.Accept()
		if e == nil {
			time.Sleep(time.Second * 2)
			c.Close()
		}
	}()

	c, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Log(err)
		t.FailNow()
	}
	defer c.Close()

	go func() {
		time.Sleep(time.Millisecond * 100)
		if !InterruptRead(c) {
			t.Error("tcp conn should be interruptible")
		}
	}()

	start := time.Now()
	_, err = c.Read(make([]byte, 10))
	if !errors.Is(err, os.ErrDeadlineExceeded) {
		t.Log("expect deadline err, got", err)
		t.FailNow()
	}
	if time.Since(start) > time.Second {
		t.Log("read was not interrupted promptly")
		t.FailNow()
	}

	if InterruptRead(bytes.NewReader(nil)) {
		t.Log("bytes.Reader can not be interrupted")
		t.FailNow()
	}
}
