// Package utils provides utilities that are used in all sub-packages of ss_relay
package utils

import (
	"flag"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	Log_debug = iota
	Log_info
	Log_warning
	Log_error //error一般用于输出一些 连接错误或者协议错误之类的, 但不致命
	Log_fatal

	DefaultLL = Log_info
)

// LogLevel 值越小越唠叨, 废话越多，值越大打印的越少，见log_开头的常量;
// 默认是 info级别.
var (
	LogLevel int

	// 日志文件名, 为空则只输出到 stdout
	LogOutFileName string

	// InitLog 调用之前为 Nop, 这样库代码和测试不会因为没初始化而panic
	ZapLogger = zap.NewNop()

	// 日志文件的轮转参数, 仅在 InitLog 给出文件名时使用
	LogMaxSizeMB  = 10
	LogMaxBackups = 5
	LogMaxAgeDays = 30
)

func init() {
	//我们的loglevel就是zap的loglevel+1
	flag.IntVar(&LogLevel, "ll", DefaultLL, "log level,0=debug, 1=info, 2=warning, 3=error, 4=fatal")
	flag.StringVar(&LogOutFileName, "lf", "", "output file for log; If empty, no log file will be used.")
}

// InitLog 初始化 ZapLogger. 总是输出到 stdout; 若 fileName 非空，还会以json格式
// 写入一个由 lumberjack 管理的滚动日志文件.
func InitLog(fileName string) {
	atomicLevel := zap.NewAtomicLevel()
	atomicLevel.SetLevel(zapcore.Level(LogLevel - 1))

	consoleCore := zapcore.NewCore(zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey:  "msg",
		LevelKey:    "level",
		TimeKey:     "time",
		FunctionKey: "func",
		EncodeLevel: zapcore.CapitalColorLevelEncoder,
		EncodeTime:  zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000"),
		EncodeName:  zapcore.FullNameEncoder,
		LineEnding:  zapcore.DefaultLineEnding,
	}), zapcore.AddSync(os.Stdout), atomicLevel)

	cores := []zapcore.Core{consoleCore}

	if fileName != "" {
		rotator := &lumberjack.Logger{
			Filename:   fileName,
			MaxSize:    LogMaxSizeMB,
			MaxBackups: LogMaxBackups,
			MaxAge:     LogMaxAgeDays,
			Compress:   true,
		}

		jsonConf := zap.NewProductionEncoderConfig()
		jsonConf.EncodeTime = zapcore.ISO8601TimeEncoder

		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(jsonConf), zapcore.AddSync(rotator), atomicLevel))
	}

	ZapLogger = zap.New(zapcore.NewTee(cores...))
	ZapLogger.Info("log 初始化成功", zap.String("file", fileName))
}

func canLogLevel(l zapcore.Level, msg string) *zapcore.CheckedEntry {
	return ZapLogger.Check(l, msg)
}

func CanLogErr(msg string) *zapcore.CheckedEntry {
	return canLogLevel(zap.ErrorLevel, msg)
}

func CanLogInfo(msg string) *zapcore.CheckedEntry {
	return canLogLevel(zap.InfoLevel, msg)
}

func CanLogWarn(msg string) *zapcore.CheckedEntry {
	return canLogLevel(zap.WarnLevel, msg)
}

func CanLogDebug(msg string) *zapcore.CheckedEntry {
	return canLogLevel(zap.DebugLevel, msg)
}

func Info(msg string) {
	if ce := CanLogInfo(msg); ce != nil {
		ce.Write()
	}
}

