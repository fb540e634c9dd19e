// Package plaintext implements the non-dashboard terminal sink: simple
// timestamped status/info/warning/error lines plus a single mpb progress
// bar for the whole scan, and the tab-separated stdout record format
// spec.md §6 specifies.
package plaintext

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/olekukonko/ts"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/snrtherock/subsearch/internal/dispatcher"
)

// Sink writes human-readable progress to an io.Writer (normally stdout)
// and maintains one mpb progress bar of scans issued out of the total.
// There is no per-scanner bar.
type Sink struct {
	out    io.Writer
	mu     sync.Mutex
	width  int
	progress *mpb.Progress
	bar    *mpb.Bar
	total  int
}

// New builds a plaintext sink writing to out, sized for total scans.
func New(out io.Writer, total int) *Sink {
	width := 80
	if size, err := ts.GetSize(); err == nil && size.Col() > 0 {
		width = size.Col()
	}

	p := mpb.New(mpb.WithOutput(out), mpb.WithWidth(40))
	bar := p.AddBar(int64(total),
		mpb.PrependDecorators(decor.Name("scan", decor.WC{W: 6})),
		mpb.AppendDecorators(
			decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
			decor.Percentage(decor.WCSyncSpace),
		),
	)

	return &Sink{out: out, width: width, progress: p, bar: bar, total: total}
}

func (s *Sink) timestamp() string {
	return time.Now().Format("15:04:05")
}

func (s *Sink) line(prefix, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "[%s] %s %s\n", s.timestamp(), prefix, msg)
}

func (s *Sink) PrintHeader(msg string)     { s.line("====", msg) }
func (s *Sink) PrintConfig(msg string)     { s.line("CONF", msg) }
func (s *Sink) PrintTarget(hostname string) { s.line("TRGT", hostname) }
func (s *Sink) PrintStatus(msg string)     { s.line("STAT", msg) }
func (s *Sink) PrintSuccess(msg string)    { s.line(" OK ", msg) }
func (s *Sink) PrintInfo(msg string)       { s.line("INFO", msg) }
func (s *Sink) PrintInfoDuringScan(msg string) { s.line("INFO", msg) }
func (s *Sink) PrintWarning(msg string)    { s.line("WARN", msg) }
func (s *Sink) PrintError(msg string)      { s.line("ERR ", msg) }
func (s *Sink) PrintErrorWithoutTime(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "ERR  %s\n", msg)
}
func (s *Sink) PrintTaskCompleted(msg string) { s.line(" OK ", msg) }
func (s *Sink) PrintTaskFailed(msg string)    { s.line("FAIL", msg) }

func (s *Sink) PrintLastScan(subdomain string, issued, total int) {
	s.mu.Lock()
	s.bar.SetCurrent(int64(min(issued, total)))
	s.mu.Unlock()
}

func (s *Sink) PrintRecords(records []dispatcher.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		fmt.Fprintf(s.out, "%s\t%s\t%s\n", r.Name, r.Type, r.Data)
	}
}

func (s *Sink) PrintRecordsDuringScan(records []dispatcher.Record) {
	s.PrintRecords(records)
}

func (s *Sink) PrintPausingThreads()      { s.line("PAUS", "Pausing scan threads...") }
func (s *Sink) PrintPauseOptions() {
	s.line("PAUS", "[r]esume, [q]uit, [p]riority <subdomain>")
}
func (s *Sink) PrintInvalidPauseOptions() { s.line("PAUS", "Invalid option.") }

// Flush is a no-op for the plaintext sink: writes are unbuffered, so
// there is nothing to drain.
func (s *Sink) Flush() <-chan struct{} {
	done := make(chan struct{})
	close(done)
	return done
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Stdout is a convenience constructor matching spec.md §6's "plain-text
// stdout-report" sink.
func Stdout(total int) *Sink { return New(os.Stdout, total) }
