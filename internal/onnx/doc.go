// Package onnx reads and writes ONNX models and converts them to and from the IR.
//
// Decoding uses a small hand-written protobuf reader; encoding uses
// google.golang.org/protobuf/encoding/protowire. Only the messages needed to
// carry graphs, model-local functions, attributes (including subgraph and
// reference attributes), tensors and value types are modeled.
//
// Key components:
//   - ModelProto, GraphProto, NodeProto, FunctionProto: wire messages
//   - Parse, Marshal: bytes to messages and back
//   - Import, Export: messages to ir.Model and back
//   - Load, Save: file helpers combining both
//
// Value names are resolved lexically on import: a subgraph may read any value
// of an enclosing graph defined before the node that owns the subgraph.
//
// Example usage:
//
//	model, err := onnx.Load("model.onnx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, f := range model.Functions() {
//	    fmt.Println("function:", f.Identifier())
//	}
//	if err := onnx.Save("copy.onnx", model); err != nil {
//	    log.Fatal(err)
//	}
package onnx
