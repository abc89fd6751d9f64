// Package onnx loads ONNX models, inlines their model-local functions and
// writes them back.
//
// # Supported Features
//
//   - ONNX format parsing and serialization (protobuf-based)
//   - Model-local functions (FunctionProto), including reference attributes
//   - Control-flow subgraphs that capture values of enclosing graphs
//   - Function inlining with cycle detection and unique renaming
//
// # Example Usage
//
//	model, err := onnx.Load("model.onnx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := onnx.Inline(model)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("inlined", res.Inlined, "call sites")
//
//	if err := onnx.Save("flat.onnx", model); err != nil {
//	    log.Fatal(err)
//	}
package onnx

import (
	internalonnx "github.com/born-ml/graphir/internal/onnx"
	"github.com/born-ml/graphir/internal/passes/inliner"
)

// ExportOptions configures ONNX serialization.
type ExportOptions = internalonnx.ExportOptions

// DefaultExportOptions returns the default options for writing ONNX models.
//
// Default configuration:
//   - ValueInfo: enabled (types and shapes of intermediate values are written)
func DefaultExportOptions() ExportOptions {
	return internalonnx.DefaultExportOptions()
}

// Load loads an ONNX model from a file path.
//
// Example:
//
//	model, err := onnx.Load("model.onnx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, f := range model.Functions() {
//	    fmt.Println("function:", f.Identifier())
//	}
func Load(path string) (*Model, error) {
	return internalonnx.Load(path)
}

// LoadFromBytes loads an ONNX model from raw bytes.
//
// This is useful when the model is embedded in the binary or loaded
// from a network source.
func LoadFromBytes(data []byte) (*Model, error) {
	return internalonnx.LoadBytes(data)
}

// Save writes m to path in the ONNX format.
func Save(path string, m *Model, opts ...ExportOptions) error {
	return internalonnx.Save(path, m, opts...)
}

// Encode serializes m to ONNX bytes.
func Encode(m *Model, opts ...ExportOptions) ([]byte, error) {
	return internalonnx.Encode(m, opts...)
}

// InlineOption configures Inline.
type InlineOption = inliner.Option

// InlineResult reports what Inline changed.
type InlineResult = inliner.Result

// WithCriteria restricts inlining to the functions for which keep returns true.
func WithCriteria(keep func(*Function) bool) InlineOption {
	return inliner.WithCriteria(keep)
}

// Inline replaces every call to a model-local function with a copy of its
// body and removes the functions that were inlined. The model is modified in
// place.
//
// Inline fails without touching the model when the functions call each other
// cyclically.
func Inline(m *Model, opts ...InlineOption) (*InlineResult, error) {
	return inliner.New(opts...).Inline(m)
}
