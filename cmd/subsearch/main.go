package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/snrtherock/subsearch/internal/cliconfig"
	"github.com/snrtherock/subsearch/internal/csvutil"
	"github.com/snrtherock/subsearch/internal/dispatcher"
	"github.com/snrtherock/subsearch/internal/dnsclient"
	"github.com/snrtherock/subsearch/internal/listener"
	"github.com/snrtherock/subsearch/internal/listener/csvsink"
	"github.com/snrtherock/subsearch/internal/listener/dashboard"
	"github.com/snrtherock/subsearch/internal/listener/plaintext"
	"github.com/snrtherock/subsearch/internal/metrics"
	"github.com/snrtherock/subsearch/internal/prelude"
)

func main() {
	cfg, err := cliconfig.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	os.Exit(run(cfg))
}

func run(cfg *cliconfig.Config) int {
	subdomains, err := csvutil.ReadLines(cfg.WordlistFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: wordlist: %v\n", err)
		return 1
	}
	resolvers, err := csvutil.ReadLines(cfg.ResolverFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: resolvers: %v\n", err)
		return 1
	}

	csvOut, err := csvsink.New(cfg.OutputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	sinks := []listener.Sink{csvOut}

	var dash *dashboard.Dashboard
	if cfg.ShowDashboard {
		dash = dashboard.New()
		sinks = append(sinks, dashboard.NewSink(dash, len(subdomains)))
	} else {
		sinks = append(sinks, plaintext.Stdout(len(subdomains)))
	}

	var exporter *metrics.Exporter
	if cfg.MetricsAddr != "" {
		exporter = metrics.New()
		sinks = append(sinks, metrics.NewSink(exporter, len(subdomains)))
	}

	bus := listener.NewBus(uint(len(subdomains)*6), sinks...)
	bus.PrintHeader("subsearch")
	bus.PrintTarget(cfg.Hostname)
	bus.PrintConfig(fmt.Sprintf("%d threads, %d subdomains, %d resolvers", cfg.Threads, len(subdomains), len(resolvers)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	cancelled := false
	go func() {
		<-sigChan
		cancelled = true
		cancel()
	}()

	if cfg.RunPrelude && len(resolvers) > 0 {
		// The prelude adds port 53 itself, so it takes a bare host.
		bootstrap := resolvers[0]
		if host, _, err := net.SplitHostPort(bootstrap); err == nil {
			bootstrap = host
		}
		runPrelude(ctx, cfg.Hostname, bootstrap, &resolvers, bus)
	}

	d := dispatcher.New(cfg.Hostname, cfg.Threads, subdomains, resolvers, bus, dnsclient.New(), cfg.ScanTimeoutDuration)
	done := d.NotifyOnCompletion()

	if exporter != nil {
		go exporter.Serve(ctx, cfg.MetricsAddr)
	}

	d.Start(ctx)

	var outcome dispatcher.Outcome
	var code int

	if cfg.ShowDashboard {
		code = runWithDashboard(ctx, d, dash, done, &outcome)
	} else {
		code = runHeadless(ctx, d, done, &outcome)
	}

	flushed := bus.WritingToFileFuture()

	if cancelled {
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr)
		bus.PrintErrorWithoutTime("Cancelled by the user")
		select {
		case <-flushed:
		default:
			bus.PrintErrorWithoutTime("WARNING: Reports may not be complete due to unexpected exit.")
		}
		<-flushed
		return 130
	}
	<-flushed

	switch outcome.State {
	case dispatcher.Completed:
		return 0
	case dispatcher.Failed:
		return 1
	default:
		return code
	}
}

// runPrelude discovers hostname's nameservers via bootstrapResolver,
// appends their addresses to *resolvers for the dispatcher's pool, and
// attempts a zone transfer against each, feeding anything transferred
// straight to bus (bypassing the queue/pool entirely, since these records
// were never the product of a brute-force scan).
func runPrelude(ctx context.Context, hostname, bootstrapResolver string, resolvers *[]string, bus *listener.Bus) {
	nameservers, err := prelude.DiscoverNameServers(ctx, hostname, bootstrapResolver)
	if err != nil {
		bus.PrintWarning(fmt.Sprintf("Prelude: NS discovery failed: %v", err))
		return
	}
	for _, ns := range nameservers {
		*resolvers = append(*resolvers, ns.Address)
	}

	records := prelude.AttemptZoneTransfer(ctx, hostname, nameservers)
	if len(records) > 0 {
		bus.PrintRecords(records)
	}
}

func runHeadless(ctx context.Context, d *dispatcher.Dispatcher, done <-chan dispatcher.Outcome, outcome *dispatcher.Outcome) int {
	select {
	case o, ok := <-done:
		if ok {
			*outcome = o
		}
	case <-ctx.Done():
	}
	_ = d.Wait()
	return 0
}

func runWithDashboard(ctx context.Context, d *dispatcher.Dispatcher, dash *dashboard.Dashboard, done <-chan dispatcher.Outcome, outcome *dispatcher.Outcome) int {
	p := tea.NewProgram(dash, tea.WithAltScreen())

	go func() {
		select {
		case o, ok := <-done:
			if ok {
				*outcome = o
			}
		case <-ctx.Done():
		}
		p.Quit()
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		fmt.Fprintf(os.Stderr, "dashboard error: %v\n", err)
	}
	_ = d.Wait()
	return 0
}
