package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Progress shows a spinner on w while a long-running step is in flight. A
// quiet Progress prints nothing.
type Progress struct {
	w       io.Writer
	spinner *spinner.Spinner
}

// NewProgress creates and starts a spinner with the given message.
func NewProgress(w io.Writer, quiet bool, message string) *Progress {
	p := &Progress{w: w}
	if quiet {
		return p
	}
	p.spinner = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	p.spinner.Suffix = " " + message
	p.spinner.Start()
	return p
}

// Update replaces the spinner message.
func (p *Progress) Update(message string) {
	if p.spinner == nil {
		return
	}
	p.spinner.Lock()
	p.spinner.Suffix = " " + message
	p.spinner.Unlock()
}

// Println stops the spinner, prints a line and restarts it.
func (p *Progress) Println(line string) {
	if p.spinner == nil {
		fmt.Fprintln(p.w, line)
		return
	}
	p.spinner.Stop()
	fmt.Fprintln(p.w, line)
	p.spinner.Start()
}

// Succeed stops the spinner and prints msg in green.
func (p *Progress) Succeed(msg string) {
	p.stop(FormatSuccess(msg))
}

// Fail stops the spinner and prints msg in red.
func (p *Progress) Fail(msg string) {
	p.stop(text.FgRed.Sprintf("✗ %s", msg))
}

// Stop stops the spinner without a final message.
func (p *Progress) Stop() {
	if p.spinner != nil {
		p.spinner.Stop()
	}
}

func (p *Progress) stop(final string) {
	if p.spinner == nil {
		return
	}
	p.spinner.Stop()
	fmt.Fprintln(p.w, final)
}
