package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// ProgressDisplay renders a one-line progress bar for a batch of profiles
type ProgressDisplay struct {
	mu        sync.Mutex
	out       io.Writer
	total     int
	done      int
	failed    int
	records   int
	current   string
	startTime time.Time
	isDebug   bool
}

// NewProgressDisplay creates a display for total profiles
func NewProgressDisplay(out io.Writer, total int, debug bool) *ProgressDisplay {
	return &ProgressDisplay{
		out:       out,
		total:     total,
		startTime: time.Now(),
		isDebug:   debug,
	}
}

// Start marks a profile as being processed
func (p *ProgressDisplay) Start(profileID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = profileID
	if !p.isDebug {
		p.printProgress()
	}
}

// Complete records a finished profile and the number of records found
func (p *ProgressDisplay) Complete(profileID string, records int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	p.records += records
	p.clearCurrent(profileID)
	if p.isDebug {
		fmt.Fprintf(p.out, "%s %s • %d locations\n", Green("✓"), profileID, records)
		return
	}
	p.printProgress()
}

// Fail records a failed profile
func (p *ProgressDisplay) Fail(profileID string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	p.failed++
	p.clearCurrent(profileID)
	if p.isDebug {
		fmt.Fprintf(p.out, "%s %s - %v\n", Red("✗"), profileID, err)
		return
	}
	p.printProgress()
}

func (p *ProgressDisplay) clearCurrent(profileID string) {
	if p.current == profileID {
		p.current = ""
	}
}

// Finish prints the summary line
func (p *ProgressDisplay) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "\n%s Processed %d profiles, %d locations in %s\n",
		Green("✓"), p.done, p.records, formatDuration(time.Since(p.startTime)))
	if p.failed > 0 {
		fmt.Fprintf(p.out, "  %s %d profiles failed\n", Dim("•"), p.failed)
	}
}

// Line returns the current progress line without printing it
func (p *ProgressDisplay) Line() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.line()
}

func (p *ProgressDisplay) printProgress() {
	fmt.Fprintf(p.out, "\r%s\r%s", strings.Repeat(" ", 100), p.line())
}

func (p *ProgressDisplay) line() string {
	const barWidth = 20
	filled := 0
	if p.total > 0 {
		filled = p.done * barWidth / p.total
	}
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("━", filled) + strings.Repeat("─", barWidth-filled)

	line := fmt.Sprintf("[%s] %d/%d • %d locations", bar, p.done, p.total, p.records)
	if p.current != "" && p.done < p.total {
		line += fmt.Sprintf(" • %s", Cyan(p.current))
	}
	if p.failed > 0 {
		line += fmt.Sprintf(" • %s", Red(fmt.Sprintf("%d failed", p.failed)))
	}
	return line
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
