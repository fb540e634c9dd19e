package dispatcher

import (
	"context"
	"sync"
	"testing"
	"time"
)

// scriptedScanner completes immediately unless scriptedTimeouts says the
// subdomain should time out on a given attempt number (1-indexed).
type scriptedScanner struct {
	mu               sync.Mutex
	calls            map[string]int
	timeoutAttempts  map[string]map[int]bool
}

func newScriptedScanner() *scriptedScanner {
	return &scriptedScanner{
		calls:           make(map[string]int),
		timeoutAttempts: make(map[string]map[int]bool),
	}
}

func (s *scriptedScanner) timeoutOnAttempt(subdomain string, attempt int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timeoutAttempts[subdomain] == nil {
		s.timeoutAttempts[subdomain] = make(map[int]bool)
	}
	s.timeoutAttempts[subdomain][attempt] = true
}

func (s *scriptedScanner) Scan(ctx context.Context, hostname, subdomain string, resolver Resolver, timeout time.Duration) ScanResult {
	s.mu.Lock()
	s.calls[subdomain]++
	attempt := s.calls[subdomain]
	shouldTimeout := s.timeoutAttempts[subdomain][attempt]
	s.mu.Unlock()

	if shouldTimeout {
		return ScanResult{Outcome: ScanTimedOut}
	}
	return ScanResult{Outcome: ScanCompleted, Records: []Record{{Name: subdomain, Type: TypeA, Data: "127.0.0.1"}}}
}

// blockingScanner completes a subdomain only once the test sends on its
// release channel, letting tests synchronize with in-flight scans. Each
// scan announces its subdomain on started (if set) before it blocks.
type blockingScanner struct {
	release map[string]chan struct{}
	started chan string
}

func (s *blockingScanner) Scan(ctx context.Context, hostname, subdomain string, resolver Resolver, timeout time.Duration) ScanResult {
	if s.started != nil {
		s.started <- subdomain
	}
	<-s.release[subdomain]
	return ScanResult{Outcome: ScanCompleted}
}

// fakeListener records every call it receives.
type fakeListener struct {
	mu       sync.Mutex
	warnings []string
	errors   []string
	failed   []string
	records  []Record
}

func (f *fakeListener) PrintInfoDuringScan(msg string) {}
func (f *fakeListener) PrintWarning(msg string) {
	f.mu.Lock()
	f.warnings = append(f.warnings, msg)
	f.mu.Unlock()
}
func (f *fakeListener) PrintError(msg string) {
	f.mu.Lock()
	f.errors = append(f.errors, msg)
	f.mu.Unlock()
}
func (f *fakeListener) PrintTaskFailed(msg string) {
	f.mu.Lock()
	f.failed = append(f.failed, msg)
	f.mu.Unlock()
}
func (f *fakeListener) PrintRecords(records []Record) {
	f.mu.Lock()
	f.records = append(f.records, records...)
	f.mu.Unlock()
}
func (f *fakeListener) PrintLastScan(subdomain string, issued, total int) {}
func (f *fakeListener) PrintPausingThreads()                             {}

func waitOutcome(t *testing.T, done <-chan Outcome) Outcome {
	t.Helper()
	select {
	case o := <-done:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completion")
		return Outcome{}
	}
}

func TestDispatcherHappyPath(t *testing.T) {
	scan := newScriptedScanner()
	listener := &fakeListener{}
	d := New("example.com", 2, []string{"www", "api", "mail"}, []string{"8.8.8.8:53", "1.1.1.1:53"}, listener, scan, DefaultInitialScanTimeout)

	done := d.NotifyOnCompletion()
	d.Start(context.Background())

	outcome := waitOutcome(t, done)
	if err := d.Wait(); err != nil {
		t.Fatalf("Wait() = %v", err)
	}

	if outcome.State != Completed {
		t.Errorf("State = %v, want Completed", outcome.State)
	}
	if outcome.ScansIssued != 3 {
		t.Errorf("ScansIssued = %d, want 3", outcome.ScansIssued)
	}
	if len(listener.records) != 3 {
		t.Errorf("records = %d, want 3", len(listener.records))
	}
}

func TestDispatcherTimeoutThenRecovery(t *testing.T) {
	scan := newScriptedScanner()
	scan.timeoutOnAttempt("flaky", 1)
	listener := &fakeListener{}
	d := New("example.com", 1, []string{"flaky"}, []string{"8.8.8.8:53", "1.1.1.1:53"}, listener, scan, DefaultInitialScanTimeout)

	done := d.NotifyOnCompletion()
	d.Start(context.Background())

	outcome := waitOutcome(t, done)
	d.Wait()

	if outcome.State != Completed {
		t.Fatalf("State = %v, want Completed", outcome.State)
	}
	if scan.calls["flaky"] != 2 {
		t.Errorf("calls[flaky] = %d, want 2 (one timeout, one recovery)", scan.calls["flaky"])
	}
}

func TestDispatcherAllResolversDead(t *testing.T) {
	scan := newScriptedScanner()
	scan.timeoutOnAttempt("dead", 1)
	scan.timeoutOnAttempt("dead", 2)
	scan.timeoutOnAttempt("dead", 3)
	listener := &fakeListener{}
	d := New("example.com", 1, []string{"dead"}, []string{"8.8.8.8:53"}, listener, scan, DefaultInitialScanTimeout)

	done := d.NotifyOnCompletion()
	d.Start(context.Background())

	outcome := waitOutcome(t, done)
	d.Wait()

	if outcome.State != Failed {
		t.Fatalf("State = %v, want Failed", outcome.State)
	}
	if len(listener.failed) == 0 {
		t.Errorf("expected PrintTaskFailed to have been called")
	}
}

func TestDispatcherZeroThreadsCompletesImmediately(t *testing.T) {
	scan := newScriptedScanner()
	listener := &fakeListener{}
	d := New("example.com", 0, []string{"www"}, []string{"8.8.8.8:53"}, listener, scan, DefaultInitialScanTimeout)

	done := d.NotifyOnCompletion()
	d.Start(context.Background())

	outcome := waitOutcome(t, done)
	d.Wait()

	if outcome.State != Completed {
		t.Errorf("State = %v, want Completed", outcome.State)
	}
	if outcome.ScansIssued != 0 {
		t.Errorf("ScansIssued = %d, want 0", outcome.ScansIssued)
	}
}

func TestDispatcherEmptyWordlistCompletesImmediately(t *testing.T) {
	scan := newScriptedScanner()
	listener := &fakeListener{}
	d := New("example.com", 4, nil, []string{"8.8.8.8:53"}, listener, scan, DefaultInitialScanTimeout)

	done := d.NotifyOnCompletion()
	d.Start(context.Background())

	outcome := waitOutcome(t, done)
	d.Wait()

	if outcome.State != Completed {
		t.Errorf("State = %v, want Completed", outcome.State)
	}
}

func TestDispatcherEmptyResolversFails(t *testing.T) {
	scan := newScriptedScanner()
	listener := &fakeListener{}
	d := New("example.com", 2, []string{"www"}, nil, listener, scan, DefaultInitialScanTimeout)

	done := d.NotifyOnCompletion()
	d.Start(context.Background())

	outcome := waitOutcome(t, done)
	d.Wait()

	if outcome.State != Failed {
		t.Errorf("State = %v, want Failed", outcome.State)
	}
}

func TestDispatcherPauseResume(t *testing.T) {
	scan := &blockingScanner{
		release: map[string]chan struct{}{
			"a": make(chan struct{}),
			"b": make(chan struct{}),
		},
		started: make(chan string, 2),
	}
	listener := &fakeListener{}
	d := New("example.com", 1, []string{"a", "b"}, []string{"8.8.8.8:53", "1.1.1.1:53"}, listener, scan, DefaultInitialScanTimeout)

	done := d.NotifyOnCompletion()
	d.Start(context.Background())

	// Pause mid-scan: wait until "a" is in flight before pausing.
	select {
	case <-scan.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first scan never started")
	}

	pauseReply := d.Pause()

	scan.release["a"] <- struct{}{}

	select {
	case <-pauseReply:
	case <-time.After(2 * time.Second):
		t.Fatal("pause never confirmed")
	}

	d.Resume()
	scan.release["b"] <- struct{}{}

	outcome := waitOutcome(t, done)
	d.Wait()

	if outcome.State != Completed {
		t.Errorf("State = %v, want Completed", outcome.State)
	}
	if outcome.ScansIssued != 2 {
		t.Errorf("ScansIssued = %d, want 2", outcome.ScansIssued)
	}
}

func TestDispatcherPriorityScan(t *testing.T) {
	scan := newScriptedScanner()
	listener := &fakeListener{}
	d := New("example.com", 1, []string{"a", "b", "c"}, []string{"8.8.8.8:53"}, listener, scan, DefaultInitialScanTimeout)

	done := d.NotifyOnCompletion()
	d.Start(context.Background())
	d.PriorityScan("urgent")

	outcome := waitOutcome(t, done)
	d.Wait()

	if outcome.State != Completed {
		t.Fatalf("State = %v, want Completed", outcome.State)
	}
	if _, ok := scan.calls["urgent"]; !ok {
		t.Errorf("expected urgent to have been scanned")
	}
}
