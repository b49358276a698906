package utils

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestZaplog(t *testing.T) {
	ZapLogger = zap.NewNop()
	if ce := CanLogDebug("before init"); ce != nil {
		t.Log("nop logger should never return a checked entry")
		t.FailNow()
	}

	LogLevel = Log_info
	InitLog("")

	if ce := CanLogDebug("test1"); ce != nil {
		t.Log("debug entry should be filtered at info level")
		t.FailNow()
	}

	ce := CanLogInfo("test2")
	if ce == nil {
		t.Log("info entry should pass at info level")
		t.FailNow()
	}
	ce.Write(
		zap.Uint32("uid", 32),
		zap.Error(errors.New("asdfdsf")),
	)
}

func TestZaplogFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "relay.log")

	LogLevel = Log_debug
	InitLog(fn)
	defer func() {
		LogLevel = DefaultLL
		ZapLogger = zap.NewNop()
	}()

	if ce := CanLogDebug("to file"); ce != nil {
		ce.Write(zap.String("k", "v"))
	}
	ZapLogger.Sync()

	info, err := os.Stat(fn)
	if err != nil {
		t.Log("log file not created", err)
		t.FailNow()
	}
	if info.Size() == 0 {
		t.Log("log file is empty")
		t.FailNow()
	}
}
