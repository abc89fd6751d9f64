package passes

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/born-ml/graphir/internal/ir"
)

// Result is the outcome of running a pass on a model.
type Result struct {
	Model    *ir.Model
	Modified bool
}

// Pass rewrites a model in place.
type Pass interface {
	Name() string
	// Requires fails when the model is not a valid input; it must not mutate the model.
	Requires(m *ir.Model) error
	Call(m *ir.Model) (*Result, error)
	Ensures(m *ir.Model) error
}

// Base provides no-op Requires and Ensures for passes to embed.
type Base struct{}

// Requires accepts every model.
func (Base) Requires(*ir.Model) error { return nil }

// Ensures accepts every model.
func (Base) Ensures(*ir.Model) error { return nil }

// PreconditionError reports a model rejected by a pass before any mutation.
type PreconditionError struct {
	Pass string
	Err  error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("pass %s: precondition failed: %v", e.Pass, e.Err)
}

func (e *PreconditionError) Unwrap() error { return e.Err }

// PostconditionError reports a model that a pass left in an invalid state.
type PostconditionError struct {
	Pass string
	Err  error
}

func (e *PostconditionError) Error() string {
	return fmt.Sprintf("pass %s: postcondition failed: %v", e.Pass, e.Err)
}

func (e *PostconditionError) Unwrap() error { return e.Err }

// Run executes p on m: Requires, then Call, then Ensures.
func Run(p Pass, m *ir.Model) (*Result, error) {
	if err := p.Requires(m); err != nil {
		var pre *PreconditionError
		if errors.As(err, &pre) {
			return nil, err
		}
		return nil, &PreconditionError{Pass: p.Name(), Err: err}
	}
	res, err := p.Call(m)
	if err != nil {
		return nil, fmt.Errorf("pass %s: %w", p.Name(), err)
	}
	if err := p.Ensures(m); err != nil {
		var post *PostconditionError
		if errors.As(err, &post) {
			return nil, err
		}
		return nil, &PostconditionError{Pass: p.Name(), Err: err}
	}
	return res, nil
}

// Manager runs a sequence of passes.
type Manager struct {
	passes []Pass
	steps  int
	logger *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithSteps repeats the whole sequence up to n times, stopping early after a
// round in which no pass modified the model. The default is one round.
func WithSteps(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.steps = n
		}
	}
}

// WithLogger sets the logger used to report pass progress.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a Manager over the given passes.
func NewManager(ps []Pass, opts ...ManagerOption) *Manager {
	m := &Manager{
		passes: ps,
		steps:  1,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run applies every pass in order, for up to the configured number of rounds.
func (mgr *Manager) Run(model *ir.Model) (*Result, error) {
	total := &Result{Model: model}
	for step := range mgr.steps {
		modified := false
		for _, p := range mgr.passes {
			mgr.logger.Debug("Running pass.", "pass", p.Name(), "step", step)
			res, err := Run(p, model)
			if err != nil {
				return nil, err
			}
			mgr.logger.Info("Pass finished.", "pass", p.Name(), "step", step, "modified", res.Modified)
			modified = modified || res.Modified
		}
		total.Modified = total.Modified || modified
		if !modified {
			break
		}
	}
	return total, nil
}
