package cli

import (
	"io"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/meigma/courier"
)

// progressMode returns the configured progress mode: "auto", "tty", or "plain".
func progressMode() string {
	mode := viper.GetString("progress")
	switch mode {
	case "auto", "tty", "plain":
		return mode
	default:
		return "auto"
	}
}

// shouldShowProgress returns true if progress bars should be displayed.
func shouldShowProgress() bool {
	mode := progressMode()

	// Plain mode disables progress
	if mode == "plain" {
		return false
	}

	// TTY mode forces progress regardless of terminal detection
	if mode == "tty" {
		return true
	}

	// Auto mode: show progress only if connected to a TTY
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// newProgressBar creates a new progress bar for byte-based operations.
// A negative total renders a spinner.
func newProgressBar(out io.Writer, total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(
		total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(out),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionUseANSICodes(true),
	)
}

// transferProgress tracks one transfer direction. It always records the
// latest event and draws a bar only when progress output is enabled.
type transferProgress struct {
	out         io.Writer
	description string
	show        bool

	mu   sync.Mutex
	bar  *progressbar.ProgressBar
	last courier.ProgressEvent
}

// newUploadProgress creates a tracker for request bodies.
func newUploadProgress(out io.Writer) *transferProgress {
	return &transferProgress{out: out, description: "Uploading", show: shouldShowProgress()}
}

// newDownloadProgress creates a tracker for response bodies.
func newDownloadProgress(out io.Writer) *transferProgress {
	return &transferProgress{out: out, description: "Downloading", show: shouldShowProgress()}
}

// OnProgress implements courier.ProgressCallback.
func (p *transferProgress) OnProgress(event courier.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = event
	if !p.show {
		return
	}
	if p.bar == nil {
		p.bar = newProgressBar(p.out, event.TotalBytes, p.description)
	}
	//nolint:errcheck // progress bar errors are not critical
	p.bar.Set64(event.BytesWritten)
}

// Transferred returns the number of bytes reported so far.
func (p *transferProgress) Transferred() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last.BytesWritten
}

// Finish completes the bar, if one was drawn.
func (p *transferProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		//nolint:errcheck // progress bar errors are not critical
		p.bar.Finish()
	}
}
