package dispatcher

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// State is the dispatcher's lifecycle state.
type State int

const (
	Running State = iota
	Paused
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome summarizes the finished scan for NotifyOnCompletion subscribers.
type Outcome struct {
	State       State
	ScansIssued int
	ScansTotal  int
}

// Listener is the narrow slice of the full event sink (spec.md §4.5) the
// dispatcher calls directly. Any full sink implementation satisfies this
// by construction, since it implements every print method the listener
// interface names.
type Listener interface {
	PrintInfoDuringScan(msg string)
	PrintWarning(msg string)
	PrintError(msg string)
	PrintTaskFailed(msg string)
	PrintRecords(records []Record)
	PrintLastScan(subdomain string, issued, total int)
	PrintPausingThreads()
}

// Dispatcher is the single coordinator owning the queues, the scanner
// pool, the pause state, and the completion condition. All state is
// mutated from exactly one goroutine (run); concurrency comes from
// scanner goroutines funnelling results through the commands channel.
//
// NotifyOnCompletion must be called before the scan reaches a terminal
// state (ordinarily right after New, before Start): once the dispatcher
// is Completed or Failed its run loop exits and commands sent afterward
// are never delivered, mirroring the actor semantics spec.md describes.
type Dispatcher struct {
	hostname          string
	threads           int
	configuredThreads int
	scan              Scanner
	listener          Listener

	pending        *SubdomainQueue
	resolvers      *ResolverPool
	inFlight       map[string]struct{}
	timeouts       map[string]time.Duration
	initialTimeout time.Duration
	scanners       map[*scannerHandle]struct{}
	nextScannerID  int

	paused      bool
	pausedCount int
	pauseReply  chan struct{}

	scansIssued int
	scansTotal  int

	completionSubs []chan Outcome

	commands chan Command
	state    State

	eg    *errgroup.Group
	egCtx context.Context
}

// New builds a dispatcher for one scan. threads is the configured worker
// pool size; subdomains and resolvers seed the queue and pool in order.
// initialTimeout is the per-scan timeout used before any subdomain has
// ever timed out; it then grows per nextTimeout up to maxScanTimeout.
func New(hostname string, threads int, subdomains []string, resolvers []string, listener Listener, scan Scanner, initialTimeout time.Duration) *Dispatcher {
	return &Dispatcher{
		hostname:          hostname,
		threads:           threads,
		configuredThreads: threads,
		scan:              scan,
		listener:          listener,
		pending:           NewSubdomainQueue(subdomains),
		resolvers:         NewResolverPool(resolvers),
		inFlight:          make(map[string]struct{}),
		timeouts:          make(map[string]time.Duration),
		initialTimeout:    initialTimeout,
		scanners:          make(map[*scannerHandle]struct{}),
		scansTotal:        len(subdomains),
		commands:          make(chan Command, 64),
		state:             Running,
	}
}

// Start launches the run loop and, unless one of the boundary cases of
// spec.md §8 applies (zero threads, empty wordlist, empty resolver
// pool), the configured number of scanners.
func (d *Dispatcher) Start(ctx context.Context) {
	eg, egCtx := errgroup.WithContext(ctx)
	d.eg = eg
	d.egCtx = egCtx

	// Scanners are registered before the run loop starts, so d.scanners
	// is never written from two goroutines at once.
	switch {
	case d.pending.Remaining() == 0 || d.threads == 0:
		d.commands <- cmdForceComplete{}
	case d.resolvers.Remaining() == 0:
		d.commands <- cmdForceFailed{reason: "Scan aborted as all resolvers are dead."}
	default:
		for i := 0; i < d.threads; i++ {
			d.spawnScanner(egCtx)
		}
	}

	eg.Go(func() error {
		d.run(egCtx)
		return nil
	})
}

func (d *Dispatcher) spawnScanner(ctx context.Context) {
	handle := &scannerHandle{id: d.nextScannerID, tasks: make(chan scanTask)}
	d.nextScannerID++
	d.scanners[handle] = struct{}{}
	d.eg.Go(func() error {
		runScanner(ctx, d, handle, d.scan)
		return nil
	})
}

// Wait blocks until the scan finishes (Completed or Failed) and every
// scanner goroutine has exited.
func (d *Dispatcher) Wait() error {
	return d.eg.Wait()
}

// Pause requests the dispatcher stop issuing new scans once in-flight
// work drains. The returned channel closes once every live scanner has
// reported paused-idle (immediately, if none are live).
func (d *Dispatcher) Pause() <-chan struct{} {
	reply := make(chan struct{})
	d.commands <- cmdPauseScanning{replyTo: reply}
	return reply
}

// Resume reverses a prior Pause.
func (d *Dispatcher) Resume() {
	d.commands <- cmdResumeScanning{}
}

// PriorityScan jumps a label to the front of the pending queue.
func (d *Dispatcher) PriorityScan(label string) {
	d.commands <- cmdPriorityScanSubdomain{label: label}
}

// NotifyOnCompletion registers a subscriber signalled once when the scan
// reaches Completed or Failed. See the Dispatcher doc comment for the
// ordering requirement.
func (d *Dispatcher) NotifyOnCompletion() <-chan Outcome {
	reply := make(chan Outcome, 1)
	d.commands <- cmdNotifyOnCompletion{replyTo: reply}
	return reply
}

// run is the single-consumer state machine loop. It owns every field on
// Dispatcher; nothing outside this function (aside from construction in
// New, and Start before it launches this loop) may touch them.
func (d *Dispatcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-d.commands:
			if d.handle(cmd) {
				return
			}
		}
	}
}

// handle processes one command and returns true once the dispatcher has
// reached a terminal state and the run loop should exit.
func (d *Dispatcher) handle(cmd Command) bool {
	switch c := cmd.(type) {
	case cmdAvailableForScan:
		d.assign(c.scanner)
	case cmdCompletedScan:
		delete(d.inFlight, c.subdomain)
		delete(d.timeouts, c.subdomain)
		d.resolvers.Recycle(c.resolver)
		if len(c.records) > 0 {
			d.listener.PrintRecords(c.records)
		}
		d.assign(c.scanner)
	case cmdTimedOut:
		delete(d.inFlight, c.subdomain)
		newTimeout := nextTimeout(d.timeoutFor(c.subdomain))
		d.timeouts[c.subdomain] = newTimeout
		d.pending.EnqueuePriority(c.subdomain)

		outcome, _ := d.resolvers.ReportTimeout(c.resolver)
		if outcome == ResolverBlacklisted {
			d.listener.PrintInfoDuringScan(fmt.Sprintf(
				"Lookup using %s timed out three times. Blacklisting resolver.", c.resolver.Address))
		} else {
			d.listener.PrintInfoDuringScan(fmt.Sprintf(
				"Lookup of %s using %s timed out. Increasing timeout to %d seconds.",
				c.subdomain, c.resolver.Address, int(newTimeout/time.Second)))
		}
		d.assign(c.scanner)
	case cmdFatalError:
		delete(d.inFlight, c.subdomain)
		d.resolvers.Recycle(c.resolver)
		d.pending.Requeue(c.subdomain)
		// The scanner that sent this is on its way out; it reports
		// Terminated next and is not reassigned here.
	case cmdPauseScanning:
		d.paused = true
		d.pausedCount = 0
		d.pauseReply = c.replyTo
		d.listener.PrintPausingThreads()
		if len(d.scanners) == 0 {
			close(d.pauseReply)
			d.pauseReply = nil
			d.state = Paused
		}
	case cmdResumeScanning:
		d.paused = false
		d.pausedCount = 0
		if d.state == Paused {
			d.state = Running
		}
		for handle := range d.scanners {
			d.assign(handle)
		}
	case cmdPriorityScanSubdomain:
		d.pending.EnqueuePriority(c.label)
	case cmdNotifyOnCompletion:
		if d.state == Completed || d.state == Failed {
			c.replyTo <- Outcome{State: d.state, ScansIssued: d.scansIssued, ScansTotal: d.scansTotal}
			close(c.replyTo)
			return false
		}
		d.completionSubs = append(d.completionSubs, c.replyTo)
	case cmdTerminated:
		delete(d.scanners, c.scanner)
		return d.onTerminated()
	case cmdForceComplete:
		d.state = Completed
		d.notifyCompletion()
		return true
	case cmdForceFailed:
		d.listener.PrintError(c.reason)
		d.listener.PrintTaskFailed(c.reason)
		d.state = Failed
		d.notifyCompletion()
		return true
	}
	return false
}

// timeoutFor returns the timeout currently in effect for a subdomain,
// defaulting to the initial timeout if it has never timed out before.
func (d *Dispatcher) timeoutFor(subdomain string) time.Duration {
	if t, ok := d.timeouts[subdomain]; ok {
		return t
	}
	return d.initialTimeout
}

// assign implements the assignment policy of spec.md §4.4 for
// AvailableForScan / CompletedScan / TimedOut / a post-Resume re-offer.
func (d *Dispatcher) assign(handle *scannerHandle) {
	if d.paused {
		d.pausedCount++
		if d.pauseReply != nil && d.pausedCount == len(d.scanners) {
			close(d.pauseReply)
			d.pauseReply = nil
		}
		return
	}

	if d.pending.Remaining() == 0 {
		d.stop(handle)
		return
	}

	resolver, ok := d.resolvers.Dequeue()
	if !ok {
		d.listener.PrintWarning("There aren't enough resolvers for each thread. Reducing thread count by 1.")
		d.stop(handle)
		return
	}

	subdomain, _ := d.pending.Dequeue()
	d.inFlight[subdomain] = struct{}{}
	d.scansIssued++

	handle.tasks <- scanTask{
		subdomain: subdomain,
		resolver:  resolver,
		timeout:   d.timeoutFor(subdomain),
	}

	d.listener.PrintLastScan(subdomain, d.scansIssued, d.scansTotal)
}

// stop tells a scanner goroutine to exit; it reports Terminated next.
func (d *Dispatcher) stop(handle *scannerHandle) {
	handle.tasks <- scanTask{stop: true}
}

// onTerminated implements the completion policy of spec.md §4.4.
func (d *Dispatcher) onTerminated() bool {
	if len(d.scanners) > 0 {
		return false
	}

	if d.pending.Remaining() == 0 && len(d.inFlight) == 0 {
		d.state = Completed
		d.notifyCompletion()
		return true
	}

	// Work remains but every scanner is gone: requeue in-flight work and
	// try to respawn up to the sustainable count.
	for subdomain := range d.inFlight {
		d.pending.Requeue(subdomain)
	}
	d.inFlight = make(map[string]struct{})

	k := min3(d.pending.Remaining(), d.resolvers.Remaining(), d.configuredThreads)
	if k <= 0 {
		d.listener.PrintError("Scan aborted as all resolvers are dead.")
		d.listener.PrintTaskFailed("Scan aborted as all resolvers are dead.")
		d.state = Failed
		d.notifyCompletion()
		return true
	}

	for i := 0; i < k; i++ {
		d.spawnScanner(d.egCtx)
	}
	return false
}

func (d *Dispatcher) notifyCompletion() {
	if len(d.completionSubs) == 0 {
		if d.state != Failed {
			d.listener.PrintError("The dispatcher doesn't know who to notify of completion! Terminating anyway.")
		}
		return
	}
	outcome := Outcome{State: d.state, ScansIssued: d.scansIssued, ScansTotal: d.scansTotal}
	for _, sub := range d.completionSubs {
		sub <- outcome
		close(sub)
	}
	d.completionSubs = nil
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
