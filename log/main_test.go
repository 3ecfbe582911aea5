package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/netrixframework/interop/config"
)

func TestDefaultLoggerLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "interop.log")
	prev := DefaultLogger
	t.Cleanup(func() { DefaultLogger = prev })

	Init(config.LogConfig{Format: "json", Level: "info", Path: path})
	With(LogParams{"step": 1}).Debug("hidden")
	SetLevel("debug")
	With(LogParams{"step": 2}).Debug("shown")
	Info("info line")
	SetLevel("not-a-level")
	Error("error line")
	Destroy()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %s", err)
	}
	out := string(data)
	if strings.Contains(out, "hidden") {
		t.Errorf("debug entry logged at info level: %s", out)
	}
	for _, want := range []string{`"msg":"shown"`, `"step":2`, "info line", "error line"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %s", want, out)
		}
	}
}
