// Package journal records the mutations reported by IR operations.
//
// A Journal implements ir.Observer. Pass it explicitly to the cloner or the
// inline pass; nothing is recorded unless a journal is wired in.
//
//	j := journal.New()
//	_, err := inliner.New(inliner.WithObserver(j)).Inline(model)
//	j.WriteTo(os.Stderr)
package journal

import (
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"
	"time"
)

const modulePath = "github.com/born-ml/graphir/internal/"

// Entry is one recorded operation.
type Entry struct {
	Time      time.Time
	Operation string
	Kind      string // type name of the object, e.g. "Node"
	Object    any
	Summary   string // String form of Object at record time
	Details   string
	Location  string // first caller outside the IR packages, "file:line"
}

func (e Entry) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s %s: %s", e.Time.Format("15:04:05.000000"), e.Operation, e.Kind, truncate(e.Summary))
	if e.Details != "" {
		fmt.Fprintf(&sb, " (%s)", truncate(e.Details))
	}
	if e.Location != "" {
		fmt.Fprintf(&sb, " at %s", e.Location)
	}
	return sb.String()
}

// Hook is called synchronously for every new entry.
type Hook func(Entry)

// Option configures a Journal.
type Option func(*Journal)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(j *Journal) { j.now = now }
}

// WithoutLocations disables caller lookup for every entry.
func WithoutLocations() Option {
	return func(j *Journal) { j.locations = false }
}

// Journal is an append-only log of IR operations. It is safe for concurrent use.
type Journal struct {
	mu        sync.Mutex
	entries   []Entry
	hooks     []Hook
	now       func() time.Time
	locations bool
}

// New creates an empty Journal.
func New(opts ...Option) *Journal {
	j := &Journal{now: time.Now, locations: true}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Record implements ir.Observer.
func (j *Journal) Record(obj any, operation, details string) {
	e := Entry{
		Time:      j.now(),
		Operation: operation,
		Kind:      kindOf(obj),
		Object:    obj,
		Details:   details,
	}
	if s, ok := obj.(fmt.Stringer); ok {
		e.Summary = s.String()
	}
	if j.locations {
		e.Location = callerLocation()
	}

	j.mu.Lock()
	j.entries = append(j.entries, e)
	hooks := append([]Hook(nil), j.hooks...)
	j.mu.Unlock()

	for _, h := range hooks {
		h(e)
	}
}

// Entries returns a copy of the recorded entries in order.
func (j *Journal) Entries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]Entry(nil), j.entries...)
}

// Len returns the number of entries.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}

// AddHook registers h for future entries.
func (j *Journal) AddHook(h Hook) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.hooks = append(j.hooks, h)
}

// ClearHooks removes every hook.
func (j *Journal) ClearHooks() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.hooks = nil
}

// Filter returns the entries matching operation and kind; an empty argument matches anything.
func (j *Journal) Filter(operation, kind string) []Entry {
	var out []Entry
	for _, e := range j.Entries() {
		if (operation == "" || e.Operation == operation) && (kind == "" || e.Kind == kind) {
			out = append(out, e)
		}
	}
	return out
}

// Counts returns the number of entries per operation.
func (j *Journal) Counts() map[string]int {
	counts := make(map[string]int)
	for _, e := range j.Entries() {
		counts[e.Operation]++
	}
	return counts
}

// WriteTo writes one line per entry.
func (j *Journal) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, e := range j.Entries() {
		n, err := fmt.Fprintln(w, e.String())
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func kindOf(obj any) string {
	if obj == nil {
		return "<nil>"
	}
	name := strings.TrimPrefix(fmt.Sprintf("%T", obj), "*")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// callerLocation reports the first frame above Record that is outside the
// IR and cloner packages. Pass packages count as callers.
func callerLocation() string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		f, more := frames.Next()
		if !internalFrame(f.Function) {
			return fmt.Sprintf("%s:%d", f.File, f.Line)
		}
		if !more {
			return ""
		}
	}
}

func internalFrame(fn string) bool {
	for _, pkg := range []string{"ir.", "cloner."} {
		if strings.HasPrefix(fn, modulePath+pkg) {
			return true
		}
	}
	return false
}

func truncate(s string) string {
	s = strings.ReplaceAll(s, "\n", `\n`)
	if len(s) > 100 {
		return s[:95] + "[...]"
	}
	return s
}
