// Package ir is the in-memory graph representation that rewriting passes operate on.
//
// A Model owns one main Graph and a table of Functions. A Graph is an ordered
// sequence of Nodes (stored in topological order) together with its declared
// inputs, outputs and named initializers. Nodes consume and produce Values;
// every Value keeps a non-owning link to its producer and an ordered multiset
// of its consumers, so edges can be redirected without scanning the graph.
//
// Key types:
//   - Value: a data edge with optional name, type, shape and constant payload
//   - Node: an operator instance with inputs, outputs and Attributes
//   - Attr: a tagged attribute, either concrete or a reference to a function parameter
//   - Graph: the node sequence plus inputs, outputs, initializers and opset imports
//   - Function: a reusable, callable Graph identified by (domain, name, overload)
//   - Model: the main Graph plus the function table
//
// A nil *Value in a node input slot means "no input". Subgraphs are carried as
// Graph or Graphs attributes and may reference Values owned by an enclosing
// graph (closures); such references are relations, never copies.
//
// Mutations that passes want to audit are reported to an optional Observer
// passed explicitly by the caller; this package keeps no global state.
package ir
