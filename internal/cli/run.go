package cli

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/born-ml/graphir/internal/analysis"
	"github.com/born-ml/graphir/internal/config"
	"github.com/born-ml/graphir/internal/ir"
	"github.com/born-ml/graphir/internal/journal"
	"github.com/born-ml/graphir/internal/onnx"
	"github.com/born-ml/graphir/internal/passes/inliner"
)

// Run loads the model named by cfg, inlines its functions and writes the
// result. A summary is printed to outW.
func Run(outW io.Writer, cfg *config.Config) error {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Loading model.", "path", cfg.ModelPath)

	data, err := os.ReadFile(cfg.ModelPath)
	if err != nil {
		return fmt.Errorf("failed to read model: %w", err)
	}
	model, err := onnx.LoadBytes(data)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", cfg.ModelPath, err)
	}
	fmt.Fprintf(outW, "Loaded %s (%s, %d nodes, %d functions)\n",
		cfg.ModelPath, humanize.Bytes(uint64(len(data))), countNodes(model.Graph), model.NumFunctions())

	opts := []inliner.Option{inliner.WithLogger(logger)}
	if keep := cfg.Criteria(); keep != nil {
		opts = append(opts, inliner.WithCriteria(keep))
	}
	var j *journal.Journal
	if cfg.Journal {
		j = journal.New(journal.WithoutLocations())
		opts = append(opts, inliner.WithObserver(j))
	}

	res, err := inliner.New(opts...).Inline(model)
	if err != nil {
		return fmt.Errorf("inlining failed: %w", err)
	}

	out, err := onnx.Encode(model)
	if err != nil {
		return err
	}
	if err := os.WriteFile(cfg.Output(), out, 0o644); err != nil { //nolint:gosec // model files are not secrets.
		return fmt.Errorf("failed to write model: %w", err)
	}
	logger.Debug("Model written.", "path", cfg.Output())

	printSummary(outW, res)
	if j != nil {
		printJournal(outW, j)
	}
	if cfg.ReportCaptures {
		printCaptures(outW, model.Graph)
	}
	fmt.Fprintf(outW, "Wrote %s (%s, %d nodes, %d functions)\n",
		cfg.Output(), humanize.Bytes(uint64(len(out))), countNodes(model.Graph), model.NumFunctions())
	return nil
}

func printSummary(w io.Writer, res *inliner.Result) {
	fmt.Fprintf(w, "Inlined %s call sites, removed %d functions\n",
		humanize.Comma(int64(res.Inlined)), len(res.Removed))
	if len(res.CallCounts) == 0 {
		return
	}
	ids := slices.SortedFunc(maps.Keys(res.CallCounts), func(a, b ir.OperatorIdentifier) int {
		return strings.Compare(a.String(), b.String())
	})
	fmt.Fprintln(w, "Call sites:")
	for _, id := range ids {
		fmt.Fprintf(w, "  %-40s %s\n", id, humanize.Comma(int64(res.CallCounts[id])))
	}
}

func printJournal(w io.Writer, j *journal.Journal) {
	counts := j.Counts()
	fmt.Fprintf(w, "Journal: %s entries\n", humanize.Comma(int64(j.Len())))
	for _, op := range slices.Sorted(maps.Keys(counts)) {
		fmt.Fprintf(w, "  %-20s %s\n", op, humanize.Comma(int64(counts[op])))
	}
}

func printCaptures(w io.Writer, g *ir.Graph) {
	fmt.Fprintln(w, "Captures:")
	for n := range g.AllNodes() {
		for _, sub := range n.Subgraphs() {
			names := make([]string, 0)
			for _, v := range analysis.Captures(g, sub) {
				names = append(names, v.Name())
			}
			fmt.Fprintf(w, "  %s/%s: [%s]\n", n.Name(), sub.Name, strings.Join(names, ", "))
		}
	}
}

func countNodes(g *ir.Graph) int {
	n := 0
	for range g.AllNodes() {
		n++
	}
	return n
}
