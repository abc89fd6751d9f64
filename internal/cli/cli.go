package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/born-ml/graphir/internal/config"
)

// ExitError is an error that carries the process exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns the merged configuration,
// a boolean indicating if the program should exit cleanly, or an ExitError.
//
// Settings are layered: defaults, then the -config file, then flags that were
// given explicitly.
func Parse(args []string, output io.Writer) (*config.Config, bool, error) {
	flagSet := flag.NewFlagSet("born-inline", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
born-inline - Inline model-local functions of an ONNX model.

Usage:
  born-inline [options] MODEL.onnx

Arguments:
  MODEL.onnx
    Path to the ONNX model to rewrite.

Options:
`)
		flagSet.PrintDefaults()
	}

	outFlag := flagSet.String("o", "", "Output path. Defaults to MODEL.inlined.onnx.")
	configFlag := flagSet.String("config", "", "Path to an HCL configuration file.")
	onlyFlag := flagSet.String("only", "", "Comma-separated functions (domain::name[:overload]) eligible for inlining.")
	keepFlag := flagSet.String("keep", "", "Comma-separated functions that are never inlined.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	journalFlag := flagSet.Bool("journal", false, "Print a summary of the recorded graph mutations.")
	capturesFlag := flagSet.Bool("report-captures", false, "Print the outer-scope values captured by each subgraph.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if flagSet.NArg() == 0 {
		flagSet.Usage()
		return nil, true, nil
	}
	if flagSet.NArg() > 1 {
		return nil, false, &ExitError{Code: 2, Message: "expected exactly one model path"}
	}

	cfg := config.Default()
	cfg.ModelPath = flagSet.Arg(0)

	if *configFlag != "" {
		file, err := config.LoadFile(*configFlag)
		if err != nil {
			return nil, false, &ExitError{Code: 2, Message: err.Error()}
		}
		if err := file.ApplyTo(&cfg); err != nil {
			return nil, false, &ExitError{Code: 2, Message: err.Error()}
		}
	}

	var err error
	flagSet.Visit(func(f *flag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "o":
			cfg.OutputPath = *outFlag
		case "log-format":
			cfg.LogFormat = *logFormatFlag
		case "log-level":
			cfg.LogLevel = *logLevelFlag
		case "only":
			cfg.Only, err = config.ParseIdentifiers(strings.Split(*onlyFlag, ","))
		case "keep":
			cfg.Keep, err = config.ParseIdentifiers(strings.Split(*keepFlag, ","))
		}
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	cfg.Journal = *journalFlag
	cfg.ReportCaptures = *capturesFlag

	if err := cfg.Validate(); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	return &cfg, false, nil
}
