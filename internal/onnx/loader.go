package onnx

import (
	"fmt"

	"github.com/born-ml/graphir/internal/ir"
)

// Load reads an ONNX file into the IR.
//
// Example:
//
//	model, err := onnx.Load("model.onnx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(model.NumFunctions(), "local functions")
func Load(path string) (*ir.Model, error) {
	mp, err := ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ONNX file: %w", err)
	}
	return Import(mp)
}

// LoadBytes decodes ONNX bytes into the IR.
func LoadBytes(data []byte) (*ir.Model, error) {
	mp, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ONNX data: %w", err)
	}
	return Import(mp)
}

// Encode converts m to ONNX bytes.
func Encode(m *ir.Model, opts ...ExportOptions) ([]byte, error) {
	mp, err := Export(m, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to export model: %w", err)
	}
	return Marshal(mp), nil
}

// Save writes m to path in the ONNX format.
func Save(path string, m *ir.Model, opts ...ExportOptions) error {
	mp, err := Export(m, opts...)
	if err != nil {
		return fmt.Errorf("failed to export model: %w", err)
	}
	return WriteFile(path, mp)
}
