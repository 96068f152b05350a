package interfaces

// ProgressReporter receives per-folder transfer progress. Any implementation
// with this triple can be substituted for the terminal bar.
type ProgressReporter interface {
	Advance(n int)
	Describe(text string)
	Close()
}

// ReporterFactory opens a reporter over a known total.
type ReporterFactory func(total int, description string) ProgressReporter
