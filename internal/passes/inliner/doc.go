// Package inliner replaces calls to model-local functions with copies of their bodies.
//
// The pass first rejects models whose functions call each other cyclically,
// since inlining such a chain would never terminate. It then walks the main
// graph and every function body that survives, replacing each eligible call
// node with a renamed clone of the callee's body. Calls nested in subgraph
// attributes (If branches, Loop bodies) are found and inlined too, and calls
// that appear inside an inlined body are inlined in the same sweep. Functions
// that were inlined are removed from the model at the end.
//
// Example:
//
//	pass := inliner.New(inliner.WithLogger(logger))
//	res, err := passes.Run(pass, model)
//	if err != nil {
//	    return err
//	}
//	fmt.Println("modified:", res.Modified)
package inliner
