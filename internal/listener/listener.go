// Package listener implements the dispatcher's passive event sink: it
// receives progress, warnings, and records from the dispatcher and fans
// them out to the configured outputs (spec.md §4.5).
package listener

import (
	"fmt"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/snrtherock/subsearch/internal/dispatcher"
)

// Listener is the full event surface spec.md §4.5 names. Bus is the one
// production implementation; it satisfies dispatcher.Listener
// by construction because every method of that narrower interface is
// also a method here.
type Listener interface {
	PrintHeader(msg string)
	PrintConfig(msg string)
	PrintTarget(hostname string)
	PrintStatus(msg string)
	PrintSuccess(msg string)
	PrintInfo(msg string)
	PrintInfoDuringScan(msg string)
	PrintWarning(msg string)
	PrintError(msg string)
	PrintErrorWithoutTime(msg string)
	PrintTaskCompleted(msg string)
	PrintTaskFailed(msg string)
	PrintLastScan(subdomain string, issued, total int)
	PrintRecords(records []dispatcher.Record)
	PrintRecordsDuringScan(records []dispatcher.Record)
	PrintPausingThreads()
	PrintPauseOptions()
	PrintInvalidPauseOptions()
	WritingToFileFuture() <-chan struct{}
}

// Sink is one output configured on a Bus. Every method is best-effort:
// a sink that fails to write (closed file, broken pipe) must not panic
// and must not block the dispatcher.
type Sink interface {
	PrintHeader(msg string)
	PrintConfig(msg string)
	PrintTarget(hostname string)
	PrintStatus(msg string)
	PrintSuccess(msg string)
	PrintInfo(msg string)
	PrintInfoDuringScan(msg string)
	PrintWarning(msg string)
	PrintError(msg string)
	PrintErrorWithoutTime(msg string)
	PrintTaskCompleted(msg string)
	PrintTaskFailed(msg string)
	PrintLastScan(subdomain string, issued, total int)
	PrintRecords(records []dispatcher.Record)
	PrintRecordsDuringScan(records []dispatcher.Record)
	PrintPausingThreads()
	PrintPauseOptions()
	PrintInvalidPauseOptions()

	// Flush signals the sink to stop accepting work and returns a
	// channel that closes once its buffered writes have landed.
	Flush() <-chan struct{}
}

// filteredTypes are the record types that never reach output (spec.md
// §3, §8 invariant 5).
var filteredTypes = map[dispatcher.RecordType]struct{}{
	dispatcher.TypeNSEC:  {},
	dispatcher.TypeRRSIG: {},
	dispatcher.TypeSOA:   {},
}

// Bus is the fan-out Listener: it owns record filtering and dedup (the
// semantic both the terminal and file sinks share, per spec.md §4.5) and
// forwards the survivors to every configured Sink.
//
// Dedup uses a bloom filter as a cheap pre-filter ahead of an exact
// map[dispatcher.Record]struct{} guard. A bloom false positive only
// costs an extra map lookup; it can never cause a record to be wrongly
// forwarded twice, so invariant 6 (spec.md §8) holds exactly.
type Bus struct {
	mu        sync.Mutex
	sinks     []Sink
	seenBloom *bloom.BloomFilter
	seenExact map[dispatcher.Record]struct{}
}

// NewBus builds a fan-out listener over the given sinks. estimatedCount
// sizes the bloom pre-filter; it need not be exact.
func NewBus(estimatedCount uint, sinks ...Sink) *Bus {
	if estimatedCount == 0 {
		estimatedCount = 1024
	}
	return &Bus{
		sinks:     sinks,
		seenBloom: bloom.NewWithEstimates(estimatedCount, 0.01),
		seenExact: make(map[dispatcher.Record]struct{}),
	}
}

func recordKey(r dispatcher.Record) []byte {
	return []byte(fmt.Sprintf("%s|%s|%s", r.Name, r.Type, r.Data))
}

// filterAndDedup drops filtered record types, then already-seen records,
// unioning survivors into the seen set, order-preserving (spec.md §4.5).
func (b *Bus) filterAndDedup(records []dispatcher.Record) []dispatcher.Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	survivors := make([]dispatcher.Record, 0, len(records))
	for _, r := range records {
		if _, blocked := filteredTypes[r.Type]; blocked {
			continue
		}
		key := recordKey(r)
		if b.seenBloom.Test(key) {
			if _, exact := b.seenExact[r]; exact {
				continue
			}
		}
		b.seenBloom.Add(key)
		b.seenExact[r] = struct{}{}
		survivors = append(survivors, r)
	}
	return survivors
}

func (b *Bus) each(fn func(Sink)) {
	for _, s := range b.sinks {
		fn(s)
	}
}

func (b *Bus) PrintHeader(msg string)  { b.each(func(s Sink) { s.PrintHeader(msg) }) }
func (b *Bus) PrintConfig(msg string)  { b.each(func(s Sink) { s.PrintConfig(msg) }) }
func (b *Bus) PrintTarget(hostname string) {
	b.each(func(s Sink) { s.PrintTarget(hostname) })
}
func (b *Bus) PrintStatus(msg string)  { b.each(func(s Sink) { s.PrintStatus(msg) }) }
func (b *Bus) PrintSuccess(msg string) { b.each(func(s Sink) { s.PrintSuccess(msg) }) }
func (b *Bus) PrintInfo(msg string)    { b.each(func(s Sink) { s.PrintInfo(msg) }) }
func (b *Bus) PrintInfoDuringScan(msg string) {
	b.each(func(s Sink) { s.PrintInfoDuringScan(msg) })
}
func (b *Bus) PrintWarning(msg string) { b.each(func(s Sink) { s.PrintWarning(msg) }) }
func (b *Bus) PrintError(msg string)   { b.each(func(s Sink) { s.PrintError(msg) }) }
func (b *Bus) PrintErrorWithoutTime(msg string) {
	b.each(func(s Sink) { s.PrintErrorWithoutTime(msg) })
}
func (b *Bus) PrintTaskCompleted(msg string) {
	b.each(func(s Sink) { s.PrintTaskCompleted(msg) })
}
func (b *Bus) PrintTaskFailed(msg string) {
	b.each(func(s Sink) { s.PrintTaskFailed(msg) })
}
func (b *Bus) PrintLastScan(subdomain string, issued, total int) {
	b.each(func(s Sink) { s.PrintLastScan(subdomain, issued, total) })
}

func (b *Bus) PrintRecords(records []dispatcher.Record) {
	survivors := b.filterAndDedup(records)
	if len(survivors) == 0 {
		return
	}
	b.each(func(s Sink) { s.PrintRecords(survivors) })
}

func (b *Bus) PrintRecordsDuringScan(records []dispatcher.Record) {
	survivors := b.filterAndDedup(records)
	if len(survivors) == 0 {
		return
	}
	b.each(func(s Sink) { s.PrintRecordsDuringScan(survivors) })
}

func (b *Bus) PrintPausingThreads() { b.each(func(s Sink) { s.PrintPausingThreads() }) }
func (b *Bus) PrintPauseOptions()   { b.each(func(s Sink) { s.PrintPauseOptions() }) }
func (b *Bus) PrintInvalidPauseOptions() {
	b.each(func(s Sink) { s.PrintInvalidPauseOptions() })
}

// WritingToFileFuture joins every sink's Flush handle: it closes once
// all of them have closed.
func (b *Bus) WritingToFileFuture() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, s := range b.sinks {
			<-s.Flush()
		}
	}()
	return done
}
