package main

import (
	"flag"
	"log"
	"os"
	"runtime/debug"
	"strings"

	"github.com/e1732a364fed/ss_relay/config"
	"github.com/e1732a364fed/ss_relay/machine"
	"github.com/e1732a364fed/ss_relay/utils"
	"go.uber.org/zap"
)

var (
	configFileName string
	printConf      bool
	showVersion    bool
)

const (
	defaultConfFn = "client.toml"

	willExitStr = "No valid relay settings available. Exit now.\n"
)

func init() {
	flag.StringVar(&configFileName, "c", defaultConfFn, "config file name, toml; a .json file is loaded as simple config")
	flag.BoolVar(&printConf, "pc", false, "print the loaded config as toml and exit")
	flag.BoolVar(&showVersion, "v", false, "print version and exit")
}

func main() {
	os.Exit(mainFunc())
}

func loadConf(fn string) (*config.Standard, error) {
	if strings.HasSuffix(fn, ".json") {
		sc, err := config.LoadSimpleConfigFile(fn)
		if err != nil {
			return nil, err
		}
		return sc.ToStandard()
	}
	return config.LoadTomlConfFile(fn)
}

func mainFunc() (result int) {
	var m *machine.M

	defer func() {
		if r := recover(); r != nil {
			if ce := utils.CanLogErr("Captured panic!"); ce != nil {
				ce.Write(
					zap.Any("err:", r),
					zap.String("stacktrace", string(debug.Stack())),
				)
			}
			log.Println("panic captured!", r, "\n", string(debug.Stack()))

			result = -3
			if m != nil {
				m.Stop()
			}
		}
	}()

	utils.ParseFlags()

	printVersion(os.Stdout)
	if showVersion {
		return 0
	}

	fpath := utils.GetFilePath(configFileName)
	if !utils.FileExist(fpath) {
		if utils.GivenFlags["c"] == nil {
			log.Printf("No -c provided and default %q doesn't exist", defaultConfFn)
		} else {
			log.Printf("-c provided but %q doesn't exist", configFileName)
		}
		log.Print(willExitStr)
		return -1
	}

	conf, err := loadConf(fpath)
	if err != nil {
		log.Println("load config failed:", err)
		log.Print(willExitStr)
		return -1
	}

	if printConf {
		str, err := utils.GetPurgedTomlStr(conf)
		if err != nil {
			log.Println(err)
			return -1
		}
		os.Stdout.WriteString(str)
		return 0
	}

	if utils.GivenFlags["bl"] != nil {
		utils.AdjustBufSize(utils.MaxBufLen)
	}
	machine.SetupByAppConf(conf.App)

	utils.InitLog(utils.LogOutFileName)
	defer utils.Info("Program exited")

	if ce := utils.CanLogDebug("All Given Flags"); ce != nil {
		ce.Write(zap.Any("flags", utils.GivenFlags))
	}
	if ce := utils.CanLogInfo("Options"); ce != nil {
		ce.Write(
			zap.String("config", fpath),
			zap.Int("Log Level", utils.LogLevel),
			zap.Int("buflen", utils.MaxBufLen),
		)
	}

	m = machine.New()
	if err := m.LoadConf(conf); err != nil {
		if ce := utils.CanLogErr(willExitStr); ce != nil {
			ce.Write(zap.Error(err))
		}
		return -1
	}
	if err := m.Start(); err != nil {
		if ce := utils.CanLogErr(willExitStr); ce != nil {
			ce.Write(zap.Error(err))
		}
		return -1
	}
	defer m.Stop()

	<-utils.GetSystemKillChan()

	m.PrintAllState(os.Stdout)
	return 0
}
