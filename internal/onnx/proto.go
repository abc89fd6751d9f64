package onnx

// ONNX protobuf messages (hand-written). Only the fields this module reads
// or writes are declared; everything else is skipped on decode.

// ModelProto is the top-level ONNX container.
type ModelProto struct {
	IRVersion       int64               // 1
	ProducerName    string              // 2
	ProducerVersion string              // 3
	Domain          string              // 4
	ModelVersion    int64               // 5
	DocString       string              // 6
	Graph           *GraphProto         // 7
	OpsetImport     []OperatorSetID     // 8
	MetadataProps   []StringStringEntry // 14
	Functions       []FunctionProto     // 25
}

// GraphProto is a computation graph: the main graph or a subgraph attribute.
type GraphProto struct {
	Nodes         []NodeProto         // 1
	Name          string              // 2
	Initializers  []TensorProto       // 5
	DocString     string              // 10
	Inputs        []ValueInfoProto    // 11
	Outputs       []ValueInfoProto    // 12
	ValueInfo     []ValueInfoProto    // 13
	MetadataProps []StringStringEntry // 16
}

// NodeProto is one operator invocation. Inputs and outputs refer to values by
// name; an empty input name is an omitted optional input.
type NodeProto struct {
	Inputs        []string            // 1
	Outputs       []string            // 2
	Name          string              // 3
	OpType        string              // 4
	Attributes    []AttributeProto    // 5
	DocString     string              // 6
	Domain        string              // 7
	Overload      string              // 8
	MetadataProps []StringStringEntry // 9
}

// FunctionProto is a model-local function.
type FunctionProto struct {
	Name           string              // 1
	Inputs         []string            // 4
	Outputs        []string            // 5
	Attribute      []string            // 6, parameters without defaults
	Nodes          []NodeProto         // 7
	DocString      string              // 8
	OpsetImport    []OperatorSetID     // 9
	Domain         string              // 10
	AttributeProto []AttributeProto    // 11, parameters with defaults
	ValueInfo      []ValueInfoProto    // 12
	Overload       string              // 13
	MetadataProps  []StringStringEntry // 14
}

// TensorProto is a constant tensor. Numeric payloads arrive either in RawData
// or in one of the typed repeated fields.
type TensorProto struct {
	Dims       []int64   // 1
	DataType   int32     // 2
	FloatData  []float32 // 4
	Int32Data  []int32   // 5, also int8/int16/uint8/uint16/bool/float16/bfloat16
	StringData [][]byte  // 6
	Int64Data  []int64   // 7
	Name       string    // 8
	RawData    []byte    // 9
	DoubleData []float64 // 10
	Uint64Data []uint64  // 11, also uint32
	DocString  string    // 12
}

// ValueInfoProto names a value and describes its type.
type ValueInfoProto struct {
	Name          string              // 1
	Type          *TypeProto          // 2
	DocString     string              // 3
	MetadataProps []StringStringEntry // 4
}

// TypeProto is a value type. Only tensor types are modeled.
type TypeProto struct {
	TensorType *TensorTypeProto // 1
}

// TensorTypeProto is an element type plus an optional shape.
type TensorTypeProto struct {
	ElemType int32             // 1
	Shape    *TensorShapeProto // 2
}

// TensorShapeProto lists the dimensions of a tensor type.
type TensorShapeProto struct {
	Dims []DimensionProto // 1
}

// DimensionProto is either a static size or a symbolic name.
type DimensionProto struct {
	DimValue int64  // 1
	DimParam string // 2
}

// AttributeProto is a node attribute, or a function attribute parameter with
// its default. RefAttrName makes it a reference to a parameter of the
// enclosing function.
type AttributeProto struct {
	Name        string        // 1
	F           float32       // 2
	I           int64         // 3
	S           []byte        // 4
	T           *TensorProto  // 5
	G           *GraphProto   // 6
	Floats      []float32     // 7
	Ints        []int64       // 8
	Strings     [][]byte      // 9
	Tensors     []TensorProto // 10
	Graphs      []GraphProto  // 11
	DocString   string        // 13
	Type        int32         // 20
	RefAttrName string        // 21
}

// OperatorSetID pins a domain to an opset version.
type OperatorSetID struct {
	Domain  string // 1
	Version int64  // 2
}

// StringStringEntry is one metadata key-value pair.
type StringStringEntry struct {
	Key   string // 1
	Value string // 2
}

// ONNX attribute types (AttributeProto.Type).
const (
	AttributeProtoUndefined = 0
	AttributeProtoFloat     = 1
	AttributeProtoInt       = 2
	AttributeProtoString    = 3
	AttributeProtoTensor    = 4
	AttributeProtoGraph     = 5
	AttributeProtoFloats    = 6
	AttributeProtoInts      = 7
	AttributeProtoStrings   = 8
	AttributeProtoTensors   = 9
	AttributeProtoGraphs    = 10
)
