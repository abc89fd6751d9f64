// Package passes defines the contract shared by model rewriting passes.
//
// A pass declares a precondition (Requires), performs its rewrite in place
// (Call) and may verify a postcondition (Ensures). Run enforces that order;
// Manager chains passes and can repeat the chain until nothing changes.
package passes
