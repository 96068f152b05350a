package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/customeros/mailmigrate/interfaces"
	"github.com/customeros/mailmigrate/internal/utils"
)

const barWidth = 30

// Bar renders a single-line terminal progress bar, redrawn in place with a
// carriage return. It tracks elapsed time and estimates the remaining time
// from the observed rate.
type Bar struct {
	mu          sync.Mutex
	out         io.Writer
	total       int
	current     int
	description string
	started     time.Time
	closed      bool
}

// NewBar opens a bar over a known total and draws the initial frame.
func NewBar(out io.Writer, total int, description string) *Bar {
	b := &Bar{
		out:         out,
		total:       total,
		description: description,
		started:     time.Now(),
	}
	b.render()
	return b
}

// NewReporter adapts NewBar to the factory signature used by the transfer
// engine, writing to w.
func NewReporter(w io.Writer) interfaces.ReporterFactory {
	return func(total int, description string) interfaces.ProgressReporter {
		return NewBar(w, total, description)
	}
}

// Advance moves the bar forward by n units.
func (b *Bar) Advance(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.current += n
	if b.current > b.total {
		b.current = b.total
	}
	b.render()
}

// Describe replaces the trailing status text, typically the size of the
// message in flight.
func (b *Bar) Describe(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.description = text
	b.render()
}

// Close finishes the line. Safe to call more than once.
func (b *Bar) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.render()
	fmt.Fprintln(b.out)
}

func (b *Bar) render() {
	filled := 0
	percent := 0.0
	if b.total > 0 {
		percent = float64(b.current) / float64(b.total)
		filled = int(percent * barWidth)
	}
	if filled > barWidth {
		filled = barWidth
	}

	bar := strings.Repeat("=", filled) + strings.Repeat(" ", barWidth-filled)

	elapsed := time.Since(b.started)
	eta := "--:--"
	if b.current > 0 && b.current < b.total {
		remaining := time.Duration(float64(elapsed) / float64(b.current) * float64(b.total-b.current))
		eta = formatDuration(remaining)
	}

	fmt.Fprintf(b.out, "\r[%s] %d/%d (%3.0f%%) %s elapsed, %s left  %s",
		bar, b.current, b.total, percent*100,
		formatDuration(elapsed), eta, b.description)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	if m >= 60 {
		return fmt.Sprintf("%d:%02d:%02d", m/60, m%60, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// Rate formats a transfer rate line for the end-of-run summary.
func Rate(bytes int64, d time.Duration) string {
	if d <= 0 {
		d = time.Second
	}
	perSecond := int64(float64(bytes) / d.Seconds())
	return utils.FormatSize(perSecond) + "/s"
}
