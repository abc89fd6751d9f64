package onnx

import (
	"slices"

	"github.com/born-ml/graphir/internal/ir"
)

// Model is a loaded ONNX model: the main graph plus its function table.
type Model = ir.Model

// Function is a model-local function.
type Function = ir.Function

// ModelInfo contains a summary of a model's structure.
//
// Use [GetModelInfo] to inspect a model before and after inlining.
type ModelInfo struct {
	ProducerName string
	IRVersion    int64
	OpsetVersion int64 // version of the default domain
	InputNames   []string
	OutputNames  []string
	Functions    []string // identifiers in table order
	Operators    []string // distinct domain::op_type, sorted, including subgraphs
	NumNodes     int      // including subgraphs
}

// GetModelInfo summarizes m.
//
// Example:
//
//	info := onnx.GetModelInfo(model)
//	fmt.Printf("Producer: %s\n", info.ProducerName)
//	fmt.Printf("Functions: %v\n", info.Functions)
//	fmt.Printf("Operators: %v\n", info.Operators)
func GetModelInfo(m *Model) *ModelInfo {
	info := &ModelInfo{
		ProducerName: m.ProducerName,
		IRVersion:    m.IRVersion,
		OpsetVersion: m.OpsetImports()[""],
	}
	for _, v := range m.Graph.Inputs() {
		info.InputNames = append(info.InputNames, v.Name())
	}
	for _, v := range m.Graph.Outputs() {
		info.OutputNames = append(info.OutputNames, v.Name())
	}
	for _, f := range m.Functions() {
		info.Functions = append(info.Functions, f.Identifier().String())
	}
	for n := range m.Graph.AllNodes() {
		info.NumNodes++
		op := ir.OperatorIdentifier{Domain: n.Domain, Name: n.OpType}.String()
		if !slices.Contains(info.Operators, op) {
			info.Operators = append(info.Operators, op)
		}
	}
	slices.Sort(info.Operators)
	return info
}
