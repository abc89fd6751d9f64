package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-set/v3"

	"github.com/born-ml/graphir/internal/ir"
)

var (
	// ErrInvalidLogLevel is returned for a log level other than debug, info, warn or error.
	ErrInvalidLogLevel = errors.New("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	// ErrInvalidLogFormat is returned for a log format other than text or json.
	ErrInvalidLogFormat = errors.New("invalid log-format: must be 'text' or 'json'")
	// ErrNoModel is returned when no input model was given.
	ErrNoModel = errors.New("ModelPath is a required configuration field and cannot be empty")
)

// Config holds everything a born-inline run needs.
type Config struct {
	ModelPath  string // input .onnx file
	OutputPath string // defaults to <model>.inlined.onnx

	LogLevel  string
	LogFormat string

	// Only, when non-empty, restricts inlining to these functions.
	Only []ir.OperatorIdentifier
	// Keep lists functions that are never inlined.
	Keep []ir.OperatorIdentifier

	Journal        bool // print a summary of recorded IR mutations
	ReportCaptures bool // print outer-scope values captured by subgraphs
}

// Default returns the configuration used when neither flags nor a file say otherwise.
func Default() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Validate normalizes the log settings and checks the required fields.
func (c *Config) Validate() error {
	if c.ModelPath == "" {
		return ErrNoModel
	}
	c.LogFormat = strings.ToLower(c.LogFormat)
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return ErrInvalidLogFormat
	}
	c.LogLevel = strings.ToLower(c.LogLevel)
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	return nil
}

// Output returns the path the inlined model is written to.
func (c *Config) Output() string {
	if c.OutputPath != "" {
		return c.OutputPath
	}
	return strings.TrimSuffix(c.ModelPath, ".onnx") + ".inlined.onnx"
}

// Criteria returns the function filter for the inline pass, or nil when every
// function is eligible.
func (c *Config) Criteria() func(*ir.Function) bool {
	if len(c.Only) == 0 && len(c.Keep) == 0 {
		return nil
	}
	only := set.From(c.Only)
	keep := set.From(c.Keep)
	return func(f *ir.Function) bool {
		id := f.Identifier()
		if keep.Contains(id) {
			return false
		}
		return only.Empty() || only.Contains(id)
	}
}

// ParseIdentifiers parses function identifiers in domain::name[:overload] form.
func ParseIdentifiers(list []string) ([]ir.OperatorIdentifier, error) {
	ids := make([]ir.OperatorIdentifier, 0, len(list))
	for _, s := range list {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		id, err := ir.ParseOperatorIdentifier(s)
		if err != nil {
			return nil, fmt.Errorf("parse function list: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
