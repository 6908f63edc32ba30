package logging

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetupLoggerLevels(t *testing.T) {
	tests := []struct {
		name      string
		level     LogLevel
		wantDebug bool
		wantInfo  bool
	}{
		{
			name:      "Debug level logs everything",
			level:     LevelDebug,
			wantDebug: true,
			wantInfo:  true,
		},
		{
			name:      "Info level suppresses debug",
			level:     LevelInfo,
			wantDebug: false,
			wantInfo:  true,
		},
		{
			name:      "Error level suppresses info",
			level:     LevelError,
			wantDebug: false,
			wantInfo:  false,
		},
		{
			name:      "Unknown level falls back to info",
			level:     LogLevel("bogus"),
			wantDebug: false,
			wantInfo:  true,
		},
	}

	// Restore the default logger after the test.
	defer SetupLogger(os.Stdout, LevelInfo)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			SetupLogger(&buf, tt.level)

			Debug("debug message")
			Info("info message")
			Error("error message")

			output := buf.String()
			assert.Equal(t, tt.wantDebug, strings.Contains(output, "debug message"))
			assert.Equal(t, tt.wantInfo, strings.Contains(output, "info message"))
			assert.Contains(t, output, "error message")
		})
	}
}

func TestLoggerIncludesAttributes(t *testing.T) {
	var buf bytes.Buffer
	SetupLogger(&buf, LevelInfo)
	defer SetupLogger(os.Stdout, LevelInfo)

	Info("synced item", "item", 42, "key", "PROJ-77")

	output := buf.String()
	assert.Contains(t, output, "item=42")
	assert.Contains(t, output, "key=PROJ-77")
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger())
}

func TestMaskSensitive(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{
			name:  "Empty value",
			value: "",
			want:  "<not set>",
		},
		{
			name:  "Short value",
			value: "abc",
			want:  "<set>",
		},
		{
			name:  "Long value keeps prefix only",
			value: "ghp_supersecrettoken",
			want:  "ghp_...***",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskSensitive(tt.value))
		})
	}
}
