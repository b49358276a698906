package relay

import (
	"github.com/e1732a364fed/ss_relay/utils"
	"go.uber.org/zap"
)

// ZapSink 把事件写到 utils.ZapLogger. 带 err 的事件记为 warn, 其余为 debug.
type ZapSink struct {
	// 附加到每条日志上的字段, 比如 目标地址
	Fields []zap.Field
}

func (s ZapSink) Log(msg string, err error) {
	if err != nil {
		if ce := utils.CanLogWarn(msg); ce != nil {
			fields := make([]zap.Field, 0, len(s.Fields)+1)
			fields = append(fields, s.Fields...)
			ce.Write(append(fields, zap.Error(err))...)
		}
		return
	}
	if ce := utils.CanLogDebug(msg); ce != nil {
		ce.Write(s.Fields...)
	}
}

// NopSink drops every event.
type NopSink struct{}

func (NopSink) Log(string, error) {}
