// Package cli implements the born-inline command: argument parsing, logger
// construction and the load, inline, save sequence.
package cli
