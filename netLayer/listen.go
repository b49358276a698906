package netLayer

import (
	"errors"
	"net"
	"os"
	"strings"
	"time"

	"github.com/e1732a364fed/ss_relay/utils"
	"go.uber.org/zap"
)

func loopAccept(listener net.Listener, acceptFunc func(net.Conn)) {
	for {
		newc, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				if ce := utils.CanLogDebug("local listener closed"); ce != nil {
					ce.Write(zap.Error(err))
				}
				break
			}
			errStr := err.Error()
			if ce := utils.CanLogWarn("failed to accept connection"); ce != nil {
				ce.Write(zap.Error(err))
			}
			if strings.Contains(errStr, "too many") {
				if ce := utils.CanLogWarn("To many incoming conn! Will Sleep."); ce != nil {
					ce.Write(zap.String("err", errStr))
				}
				time.Sleep(time.Millisecond * 500)
			}
			continue
		}
		go acceptFunc(newc)
	}
}

// ListenAndAccept 监听 tcp 或 unix domain socket, 在自己的goroutine中循环Accept.
//
// 非阻塞. 关闭返回的 listener 即可停止.
func ListenAndAccept(network, addr string, acceptFunc func(net.Conn)) (net.Listener, error) {
	switch network {
	case "":
		network = "tcp"
	case "udp", "udp4", "udp6":
		return nil, utils.ErrInErr{ErrDesc: "relay listen only supports stream networks", ErrDetail: utils.ErrNotImplemented, Data: network}
	case "unix":
		// 监听 unix domain socket后会自动创建 相应文件, 程序退出后该文件不会被删除,
		// 再次启动时会报 “bind: address already in use”, 所以必须把原文件删掉.
		// RemoveAll函数千万不能用，Remove函数倒是没什么大事
		if utils.FileExist(addr) {
			if ce := utils.CanLogDebug("unix file exist"); ce != nil {
				ce.Write(zap.String("deleting", addr))
			}
			if err := os.Remove(addr); err != nil {
				return nil, utils.ErrInErr{ErrDesc: "Error when deleting previous unix socket file,", ErrDetail: err, Data: addr}
			}
		}
	}

	listener, err := net.Listen(network, addr)
	if err != nil {
		return nil, err
	}
	go loopAccept(listener, acceptFunc)
	return listener, nil
}
