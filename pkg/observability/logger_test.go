package observability

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gamelink/pkg/config"
)

func TestNewLoggerWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "node.log")
	logger, err := NewLogger(config.LogConfig{Level: "warn", Format: "json", Outputs: []string{path}})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info("dropped")
	logger.Warn("kept")
	_ = logger.Sync()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	out := string(b)
	if strings.Contains(out, "dropped") || !strings.Contains(out, `"msg":"kept"`) {
		t.Fatalf("unexpected log output: %s", out)
	}
}

func TestChooseFilename(t *testing.T) {
	c := config.LogConfig{Rotation: config.RotationConfig{Enable: true, Filename: "rot.log"}}
	if got := chooseFilename("out.log", c); got != "rot.log" {
		t.Fatalf("got %q", got)
	}
	c.Rotation.Enable = false
	if got := chooseFilename("out.log", c); got != "out.log" {
		t.Fatalf("got %q", got)
	}
}
