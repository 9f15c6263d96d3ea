package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestLevels verifies that messages below the logger level are dropped
func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, WarningLevel)

	l.Debugf("debug %d", 1)
	l.Infof("info %d", 2)
	l.Warningf("warning %d", 3)
	l.Errorf("error %d", 4)

	out := buf.String()
	if strings.Contains(out, "debug 1") || strings.Contains(out, "info 2") {
		t.Errorf("Messages below warning level were written: %q", out)
	}
	if !strings.Contains(out, "WARNING warning 3") || !strings.Contains(out, "ERROR error 4") {
		t.Errorf("Expected warning and error messages, got %q", out)
	}
}

// TestParseLevel checks level names
func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   DebugLevel,
		"":        InfoLevel,
		"INFO":    InfoLevel,
		"warn":    WarningLevel,
		"error":   ErrorLevel,
		"silent":  SilentLevel,
	}
	for s, want := range tests {
		got, err := ParseLevel(s)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", s, got, err, want)
		}
	}
	if _, err := ParseLevel("chatty"); err == nil {
		t.Errorf("Expected an error for an unknown level")
	}
}

// TestTimeLog checks that elapsed time is appended
func TestTimeLog(t *testing.T) {
	var buf bytes.Buffer
	tlog := NewTimeLog(New(&buf, DebugLevel))
	tlog.Infof("labeled %d zones", 12)

	out := buf.String()
	if !strings.Contains(out, "INFO labeled 12 zones: ") {
		t.Errorf("Unexpected timed message: %q", out)
	}
}

// TestRotatingFile writes through the lumberjack sink
func TestRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "radiomics.log")
	l, closer := NewFromConfig(FileConfig{Logfile: path, MaxSize: 1, MaxAge: 1}, InfoLevel)
	l.Infof("extracted %d features", 93)
	if err := closer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Log file was not written: %v", err)
	}
	if !strings.Contains(string(data), "extracted 93 features") {
		t.Errorf("Unexpected log file contents: %q", data)
	}
}

// TestStdoutAndNop checks the fallbacks
func TestStdoutAndNop(t *testing.T) {
	l, closer := NewFromConfig(FileConfig{}, SilentLevel)
	l.Errorf("not written")
	if err := closer.Close(); err != nil {
		t.Errorf("Closing the stdout logger failed: %v", err)
	}
	Nop().Errorf("discarded")
}
