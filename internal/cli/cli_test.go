package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/graphir/internal/ir"
)

func TestParse(t *testing.T) {
	t.Run("help", func(t *testing.T) {
		var out bytes.Buffer
		cfg, exit, err := Parse([]string{"-h"}, &out)
		require.NoError(t, err)
		assert.True(t, exit)
		assert.Nil(t, cfg)
		assert.Contains(t, out.String(), "born-inline [options] MODEL.onnx")
	})

	t.Run("no model prints usage", func(t *testing.T) {
		var out bytes.Buffer
		_, exit, err := Parse(nil, &out)
		require.NoError(t, err)
		assert.True(t, exit)
		assert.Contains(t, out.String(), "Usage:")
	})

	t.Run("defaults", func(t *testing.T) {
		cfg, exit, err := Parse([]string{"model.onnx"}, &bytes.Buffer{})
		require.NoError(t, err)
		assert.False(t, exit)
		assert.Equal(t, "model.onnx", cfg.ModelPath)
		assert.Equal(t, "model.inlined.onnx", cfg.Output())
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, "text", cfg.LogFormat)
		assert.Nil(t, cfg.Criteria())
	})

	t.Run("flags", func(t *testing.T) {
		cfg, _, err := Parse([]string{
			"-o", "out.onnx", "-log-level", "DEBUG", "-log-format", "json",
			"-only", "custom::A,custom::B:v2", "-keep", "custom::B:v2",
			"-journal", "-report-captures", "model.onnx",
		}, &bytes.Buffer{})
		require.NoError(t, err)
		assert.Equal(t, "out.onnx", cfg.OutputPath)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, "json", cfg.LogFormat)
		assert.Equal(t, []ir.OperatorIdentifier{
			{Domain: "custom", Name: "A"},
			{Domain: "custom", Name: "B", Overload: "v2"},
		}, cfg.Only)
		assert.Len(t, cfg.Keep, 1)
		assert.True(t, cfg.Journal)
		assert.True(t, cfg.ReportCaptures)
	})

	t.Run("flags override config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "born.hcl")
		require.NoError(t, os.WriteFile(path, []byte(`
log_level = "warn"
output    = "file.onnx"
inline {
  keep = ["custom::A"]
}
`), 0o600))

		cfg, _, err := Parse([]string{"-config", path, "-o", "flag.onnx", "model.onnx"}, &bytes.Buffer{})
		require.NoError(t, err)
		assert.Equal(t, "warn", cfg.LogLevel)
		assert.Equal(t, "flag.onnx", cfg.OutputPath)
		assert.Equal(t, []ir.OperatorIdentifier{{Domain: "custom", Name: "A"}}, cfg.Keep)
	})

	errorCases := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"-workers", "4", "model.onnx"}},
		{"bad log level", []string{"-log-level", "trace", "model.onnx"}},
		{"bad log format", []string{"-log-format", "xml", "model.onnx"}},
		{"bad identifier", []string{"-only", "custom::", "model.onnx"}},
		{"two models", []string{"a.onnx", "b.onnx"}},
		{"missing config", []string{"-config", "/nonexistent/born.hcl", "model.onnx"}},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			_, exit, err := Parse(tt.args, &bytes.Buffer{})
			assert.False(t, exit)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("warn", "json", &buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	newLogger("bogus", "text", &buf).Info("fallback")
	assert.Contains(t, buf.String(), "msg=fallback")
}
