package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// File is the decoded form of an HCL configuration file.
type File struct {
	LogLevel  string       `hcl:"log_level,optional"`
	LogFormat string       `hcl:"log_format,optional"`
	Output    string       `hcl:"output,optional"`
	Inline    *InlineBlock `hcl:"inline,block"`
}

// InlineBlock selects the functions the inline pass may touch.
type InlineBlock struct {
	Only []string `hcl:"only,optional"`
	Keep []string `hcl:"keep,optional"`
}

// LoadFile parses and decodes the HCL file at path.
func LoadFile(path string) (*File, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}
	return decode(hclFile, path)
}

// Parse decodes HCL source; filename is only used in diagnostics.
func Parse(src []byte, filename string) (*File, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	return decode(hclFile, filename)
}

func decode(hclFile *hcl.File, filename string) (*File, error) {
	var f File
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &f); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}
	return &f, nil
}

// ApplyTo copies every value set in the file into c.
func (f *File) ApplyTo(c *Config) error {
	if f.LogLevel != "" {
		c.LogLevel = f.LogLevel
	}
	if f.LogFormat != "" {
		c.LogFormat = f.LogFormat
	}
	if f.Output != "" {
		c.OutputPath = f.Output
	}
	if f.Inline == nil {
		return nil
	}
	only, err := ParseIdentifiers(f.Inline.Only)
	if err != nil {
		return fmt.Errorf("inline.only: %w", err)
	}
	keep, err := ParseIdentifiers(f.Inline.Keep)
	if err != nil {
		return fmt.Errorf("inline.keep: %w", err)
	}
	c.Only = only
	c.Keep = keep
	return nil
}
