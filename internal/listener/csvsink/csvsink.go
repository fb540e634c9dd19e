// Package csvsink implements the file-output sink: one row per surviving
// record, header "Subdomain,Type,Data", UTF-8, LF line endings.
//
// No third-party CSV writer appears anywhere in the retrieved corpus, so
// this sink is built on encoding/csv directly (see DESIGN.md).
package csvsink

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/snrtherock/subsearch/internal/dispatcher"
)

// Sink writes discovered records to a CSV file. Status/progress methods
// are no-ops: a report file carries only records, per spec.md §6.
type Sink struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
	done   chan struct{}
}

// New opens path for writing and emits the header row immediately.
func New(path string) (*Sink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csvsink: create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"Subdomain", "Type", "Data"}); err != nil {
		f.Close()
		return nil, fmt.Errorf("csvsink: write header: %w", err)
	}
	w.Flush()
	return &Sink{file: f, writer: w, done: make(chan struct{})}, nil
}

// NewFromWriter wraps an already-open writer, skipping file ownership.
// Useful for tests that want to inspect the buffer directly.
func NewFromWriter(w io.Writer) *Sink {
	cw := csv.NewWriter(w)
	cw.Write([]string{"Subdomain", "Type", "Data"})
	cw.Flush()
	return &Sink{writer: cw, done: make(chan struct{})}
}

func (s *Sink) PrintHeader(string)               {}
func (s *Sink) PrintConfig(string)                {}
func (s *Sink) PrintTarget(string)                {}
func (s *Sink) PrintStatus(string)                {}
func (s *Sink) PrintSuccess(string)               {}
func (s *Sink) PrintInfo(string)                  {}
func (s *Sink) PrintInfoDuringScan(string)        {}
func (s *Sink) PrintWarning(string)                {}
func (s *Sink) PrintError(string)                 {}
func (s *Sink) PrintErrorWithoutTime(string)      {}
func (s *Sink) PrintTaskCompleted(string)         {}
func (s *Sink) PrintTaskFailed(string)            {}
func (s *Sink) PrintLastScan(string, int, int)    {}
func (s *Sink) PrintPausingThreads()              {}
func (s *Sink) PrintPauseOptions()                {}
func (s *Sink) PrintInvalidPauseOptions()         {}

func (s *Sink) PrintRecords(records []dispatcher.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.writer.Write([]string{r.Name, string(r.Type), r.Data})
	}
	s.writer.Flush()
}

func (s *Sink) PrintRecordsDuringScan(records []dispatcher.Record) {
	s.PrintRecords(records)
}

// Flush closes the underlying file, if one was opened, and signals done.
func (s *Sink) Flush() <-chan struct{} {
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.writer.Flush()
		if s.file != nil {
			s.file.Close()
		}
		close(s.done)
	}()
	return s.done
}
