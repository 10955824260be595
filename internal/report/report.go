// Package report aggregates the outcome of a load run and renders progress
// lines and the final summary.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/gyeh/bolagsload/internal/model"
)

const rule = "============================================================"

// maxErrLen bounds error text in progress lines.
const maxErrLen = 100

// Outcome is the running aggregate for one run. It is append-only until
// Finalize; later mutations are ignored.
type Outcome struct {
	Mode string

	Candidates     int64 // rows read from the input
	Imported       int64
	Skipped        int64 // empty + malformed
	Malformed      int64
	DuplicateKeys  int64
	Batches        int
	ErroredBatches int

	// TableRows is the verification count read after a bulk copy; -1 when
	// not measured.
	TableRows int64

	Started  time.Time
	Duration time.Duration

	finalized bool
}

// New starts an outcome for the given load mode.
func New(mode string) *Outcome {
	return &Outcome{Mode: mode, TableRows: -1, Started: time.Now()}
}

// AddCandidate counts one row read from the input.
func (o *Outcome) AddCandidate() {
	if o.finalized {
		return
	}
	o.Candidates++
}

// AddSkipped counts a row that will not be imported.
func (o *Outcome) AddSkipped(malformed bool) {
	if o.finalized {
		return
	}
	o.Skipped++
	if malformed {
		o.Malformed++
	}
}

// AddImported counts n records accepted by the sink.
func (o *Outcome) AddImported(n int) {
	if o.finalized {
		return
	}
	o.Imported += int64(n)
}

// AddDuplicates counts records collapsed because their key repeated.
func (o *Outcome) AddDuplicates(n int) {
	if o.finalized {
		return
	}
	o.DuplicateKeys += int64(n)
}

// AddBatch counts one attempted batch.
func (o *Outcome) AddBatch(ok bool) {
	if o.finalized {
		return
	}
	o.Batches++
	if !ok {
		o.ErroredBatches++
	}
}

// SetTableRows records the post-load verification count.
func (o *Outcome) SetTableRows(n int64) {
	if o.finalized {
		return
	}
	o.TableRows = n
}

// Finalize stamps the duration and freezes the counters.
func (o *Outcome) Finalize() {
	if o.finalized {
		return
	}
	o.Duration = time.Since(o.Started)
	o.finalized = true
}

// Finalized reports whether Finalize has been called.
func (o *Outcome) Finalized() bool { return o.finalized }

// Percent is imported / candidates * 100, or 0 with no candidates.
func (o *Outcome) Percent() float64 {
	if o.Candidates == 0 {
		return 0
	}
	return float64(o.Imported) / float64(o.Candidates) * 100
}

// Progress renders the line for a batch that just finished. Counters must
// already include the batch.
func (o *Outcome) Progress(b model.LoadBatch, err error) string {
	head := fmt.Sprintf("Batch %d/%d: %d rows", b.Number, b.Total, len(b.Records))
	if err != nil {
		return head + " ✗ " + truncate(err.Error(), maxErrLen)
	}
	return fmt.Sprintf("%s ✓ (%s/%s = %.1f%%)", head,
		humanize.Comma(o.Imported), humanize.Comma(o.Candidates), o.Percent())
}

// WriteSummary writes the final report block.
func (o *Outcome) WriteSummary(w io.Writer) error {
	var b strings.Builder
	title := "IMPORT COMPLETE"
	if o.ErroredBatches > 0 {
		title = "IMPORT FINISHED WITH ERRORS"
	}
	if o.Mode != "" {
		title += " (" + o.Mode + ")"
	}

	b.WriteString(rule + "\n")
	b.WriteString(title + "\n")
	fmt.Fprintf(&b, "Imported:        %s companies\n", humanize.Comma(o.Imported))
	fmt.Fprintf(&b, "Candidates:      %s\n", humanize.Comma(o.Candidates))
	fmt.Fprintf(&b, "Skipped:         %s (malformed %s)\n", humanize.Comma(o.Skipped), humanize.Comma(o.Malformed))
	if o.Batches > 0 {
		fmt.Fprintf(&b, "Errored batches: %d of %d\n", o.ErroredBatches, o.Batches)
	}
	if o.DuplicateKeys > 0 {
		fmt.Fprintf(&b, "Duplicate keys:  %s\n", humanize.Comma(o.DuplicateKeys))
	}
	fmt.Fprintf(&b, "Imported share:  %.1f%%\n", o.Percent())
	if o.TableRows >= 0 {
		fmt.Fprintf(&b, "Table rows:      %s\n", humanize.Comma(o.TableRows))
	}
	fmt.Fprintf(&b, "Duration:        %s\n", o.Duration.Round(time.Millisecond))
	b.WriteString(rule + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
