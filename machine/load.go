package machine

import (
	"github.com/e1732a364fed/ss_relay"
	"github.com/e1732a364fed/ss_relay/config"
	"github.com/e1732a364fed/ss_relay/utils"
	"go.uber.org/zap"
)

// LoadConf 检查配置并据此创建 Outbound. 运行中不能载入.
func (m *M) LoadConf(c *config.Standard) error {
	if c == nil {
		return utils.ErrNilParameter
	}
	if err := c.Validate(); err != nil {
		return err
	}
	out, err := ss_relay.NewOutbound(c.Dial, c.Dns)
	if err != nil {
		if ce := utils.CanLogErr("can not create outbound"); ce != nil {
			ce.Write(zap.Error(err))
		}
		return err
	}

	m.Lock()
	defer m.Unlock()
	if m.running {
		return utils.ErrInErr{ErrDesc: "can't load config while running", ErrDetail: utils.ErrWrongParameter}
	}
	m.standardConf = c
	m.outbound = out
	return nil
}

// SetupByAppConf 应用 [app] 中的日志与缓存设置. 命令行中明确给出的项优先.
func SetupByAppConf(ac *config.AppConf) {
	if ac == nil {
		return
	}
	if ac.LogLevel != nil && !utils.IsFlagGiven("ll") {
		utils.LogLevel = *ac.LogLevel
	}
	if ac.LogFile != "" && !utils.IsFlagGiven("lf") {
		utils.LogOutFileName = ac.LogFile
	}
	if ac.BufLen > 0 && !utils.IsFlagGiven("bl") {
		utils.AdjustBufSize(ac.BufLen)
	}
}
