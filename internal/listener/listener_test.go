package listener

import (
	"testing"
	"time"

	"github.com/snrtherock/subsearch/internal/dispatcher"
)

type recordingSink struct {
	records []dispatcher.Record
}

func (s *recordingSink) PrintHeader(string)                           {}
func (s *recordingSink) PrintConfig(string)                           {}
func (s *recordingSink) PrintTarget(string)                           {}
func (s *recordingSink) PrintStatus(string)                           {}
func (s *recordingSink) PrintSuccess(string)                          {}
func (s *recordingSink) PrintInfo(string)                             {}
func (s *recordingSink) PrintInfoDuringScan(string)                   {}
func (s *recordingSink) PrintWarning(string)                          {}
func (s *recordingSink) PrintError(string)                            {}
func (s *recordingSink) PrintErrorWithoutTime(string)                 {}
func (s *recordingSink) PrintTaskCompleted(string)                    {}
func (s *recordingSink) PrintTaskFailed(string)                       {}
func (s *recordingSink) PrintLastScan(string, int, int)               {}
func (s *recordingSink) PrintPausingThreads()                         {}
func (s *recordingSink) PrintPauseOptions()                           {}
func (s *recordingSink) PrintInvalidPauseOptions()                    {}
func (s *recordingSink) Flush() <-chan struct{} {
	done := make(chan struct{})
	close(done)
	return done
}
func (s *recordingSink) PrintRecords(records []dispatcher.Record) {
	s.records = append(s.records, records...)
}
func (s *recordingSink) PrintRecordsDuringScan(records []dispatcher.Record) {
	s.PrintRecords(records)
}

func TestBusFiltersSOANSECRRSIG(t *testing.T) {
	sink := &recordingSink{}
	bus := NewBus(0, sink)

	bus.PrintRecords([]dispatcher.Record{
		{Name: "www.example.com", Type: dispatcher.TypeA, Data: "1.2.3.4"},
		{Name: "example.com", Type: dispatcher.TypeSOA, Data: "ns1.example.com"},
		{Name: "example.com", Type: dispatcher.TypeNSEC, Data: "next.example.com"},
		{Name: "example.com", Type: dispatcher.TypeRRSIG, Data: "A"},
	})

	if len(sink.records) != 1 {
		t.Fatalf("records = %d, want 1", len(sink.records))
	}
	if sink.records[0].Type != dispatcher.TypeA {
		t.Errorf("surviving record type = %v, want A", sink.records[0].Type)
	}
}

func TestBusDedupesByValue(t *testing.T) {
	sink := &recordingSink{}
	bus := NewBus(0, sink)

	rec := dispatcher.Record{Name: "www.example.com", Type: dispatcher.TypeA, Data: "1.2.3.4"}
	bus.PrintRecords([]dispatcher.Record{rec})
	bus.PrintRecords([]dispatcher.Record{rec})

	if len(sink.records) != 1 {
		t.Errorf("records = %d, want 1 (second call is a duplicate)", len(sink.records))
	}
}

func TestBusFansOutToMultipleSinks(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	bus := NewBus(0, a, b)

	rec := dispatcher.Record{Name: "www.example.com", Type: dispatcher.TypeA, Data: "1.2.3.4"}
	bus.PrintRecords([]dispatcher.Record{rec})

	if len(a.records) != 1 || len(b.records) != 1 {
		t.Errorf("records: a=%d b=%d, want 1, 1", len(a.records), len(b.records))
	}
}

func TestBusNoFalseNegativeAcrossBloomBoundary(t *testing.T) {
	sink := &recordingSink{}
	bus := NewBus(1, sink) // tiny estimate forces bloom collisions quickly

	var records []dispatcher.Record
	for i := 0; i < 200; i++ {
		records = append(records, dispatcher.Record{Name: "host", Type: dispatcher.TypeA, Data: string(rune('a' + i%26))})
	}
	bus.PrintRecords(records)

	seen := make(map[string]bool)
	for _, r := range sink.records {
		key := string(r.Type) + r.Data
		if seen[key] {
			t.Fatalf("duplicate forwarded: %+v", r)
		}
		seen[key] = true
	}
}

func TestWritingToFileFutureJoinsAllSinks(t *testing.T) {
	bus := NewBus(0, &recordingSink{}, &recordingSink{})
	select {
	case <-bus.WritingToFileFuture():
	case <-time.After(time.Second):
		t.Errorf("expected WritingToFileFuture to eventually close")
	}
}
