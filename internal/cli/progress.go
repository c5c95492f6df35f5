package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/steeltroops-ai/omnicontext/internal/pipeline"
)

// CLIProgressReporter wraps a terminal spinner around a one-shot index
// run and prints the resulting Stats summary.
type CLIProgressReporter struct {
	quiet     bool
	bar       *progressbar.ProgressBar
	startTime time.Time
}

// NewCLIProgressReporter creates a new CLI progress reporter.
func NewCLIProgressReporter(quiet bool) *CLIProgressReporter {
	return &CLIProgressReporter{quiet: quiet, startTime: time.Now()}
}

// Start begins an indeterminate spinner while the full scan and
// per-file processing run (index() has no incremental progress hooks
// of its own; it returns one aggregated Stats value at the end).
func (c *CLIProgressReporter) Start() {
	if c.quiet {
		return
	}
	c.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Indexing"),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(65*time.Millisecond),
	)
}

// Finish stops the spinner and prints the final per-batch counts.
func (c *CLIProgressReporter) Finish(stats pipeline.Stats) {
	if c.bar != nil {
		_ = c.bar.Finish()
	}
	if c.quiet {
		fmt.Printf("Indexing complete: %d files, %d chunks in %.1fs\n",
			stats.FilesProcessed, stats.ChunksCreated, time.Since(c.startTime).Seconds())
		return
	}

	fmt.Println()
	fmt.Printf("✓ Indexing complete in %.1fs\n", time.Since(c.startTime).Seconds())
	fmt.Printf("  Files:      %s processed, %s failed\n", formatNumber(stats.FilesProcessed), formatNumber(stats.FilesFailed))
	fmt.Printf("  Chunks:     %s\n", formatNumber(stats.ChunksCreated))
	fmt.Printf("  Symbols:    %s\n", formatNumber(stats.SymbolsExtracted))
	fmt.Printf("  Embeddings: %s\n", formatNumber(stats.EmbeddingsGenerated))
}

// formatNumber adds thousands separators for readability in summaries.
func formatNumber(n int) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
