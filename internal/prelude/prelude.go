// Package prelude runs the pre-scan steps spec.md §9 describes as the
// NS-discovery/zone-transfer step ahead of the dispatcher: find the
// target's authoritative name servers and attempt a zone transfer
// against each, surfacing anything for free before brute force begins.
//
// Grounded on the hakaxfr example's zone-transfer pattern (AXFR against
// every discovered NS, in LookupNS/LookupName style) using miekg/dns
// directly.
package prelude

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/miekg/dns"

	"github.com/snrtherock/subsearch/internal/dispatcher"
)

// dnsPort is the conventional port for both UDP lookups and AXFR in this
// package; bootstrapResolver/nameserver addresses are bare hosts, not
// host:port pairs.
const dnsPort = "53"

var dnsClient = &dns.Client{}

// DiscoverNameServers queries bootstrapResolver for hostname's NS records,
// then resolves each returned name server's own A/AAAA records via the
// same bootstrap resolver, returning them as candidate Resolver values
// sorted by address for determinism. ctx bounds every query; a caller
// cancellation aborts the lookups still in flight instead of leaking
// them past the prelude.
func DiscoverNameServers(ctx context.Context, hostname, bootstrapResolver string) ([]dispatcher.Resolver, error) {
	names, err := lookupNS(ctx, hostname, bootstrapResolver)
	if err != nil {
		return nil, err
	}

	var resolvers []dispatcher.Resolver
	for _, name := range names {
		if ctx.Err() != nil {
			return resolvers, ctx.Err()
		}
		for _, addr := range lookupAddrs(ctx, name, bootstrapResolver) {
			resolvers = append(resolvers, dispatcher.Resolver{Address: net.JoinHostPort(addr, dnsPort)})
		}
	}
	sort.Slice(resolvers, func(i, j int) bool { return resolvers[i].Address < resolvers[j].Address })
	return resolvers, nil
}

func lookupNS(ctx context.Context, hostname, server string) ([]string, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(hostname), dns.TypeNS)

	in, _, err := dnsClient.ExchangeContext(ctx, m, net.JoinHostPort(server, dnsPort))
	if err != nil {
		return nil, fmt.Errorf("prelude: NS lookup for %s via %s: %w", hostname, server, err)
	}

	var names []string
	for _, a := range in.Answer {
		if ns, ok := a.(*dns.NS); ok {
			names = append(names, trimHostname(ns.Ns))
		}
	}
	sort.Strings(names)
	return names, nil
}

// lookupAddrs resolves name's own A and AAAA records via server. Failures
// on an individual name server are skipped rather than aborting the whole
// discovery, since one unreachable nameserver shouldn't cost the others.
func lookupAddrs(ctx context.Context, name, server string) []string {
	var addrs []string
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		m := new(dns.Msg)
		m.SetQuestion(dns.Fqdn(name), qtype)

		in, _, err := dnsClient.ExchangeContext(ctx, m, net.JoinHostPort(server, dnsPort))
		if err != nil {
			continue
		}
		for _, a := range in.Answer {
			switch rec := a.(type) {
			case *dns.A:
				addrs = append(addrs, rec.A.String())
			case *dns.AAAA:
				addrs = append(addrs, rec.AAAA.String())
			}
		}
	}
	return addrs
}

// AttemptZoneTransfer tries an AXFR against every discovered nameserver in
// turn. A refusal (the overwhelmingly common case against a correctly
// configured server) is not an error, just an empty contribution from
// that nameserver: a misconfigured server granting a stray transfer is
// the exception, not the rule. ctx bounds the dial and transfer for each
// nameserver, so a cancellation stops the sweep between servers instead
// of running it to completion regardless.
func AttemptZoneTransfer(ctx context.Context, hostname string, nameservers []dispatcher.Resolver) []dispatcher.Record {
	var records []dispatcher.Record
	for _, ns := range nameservers {
		if ctx.Err() != nil {
			return records
		}
		records = append(records, axfr(ctx, hostname, ns.Address)...)
	}
	return records
}

// axfr runs one AXFR against address (host:port), dialing through ctx so
// a cancellation closes the connection instead of leaving tr.In blocked
// on a read that will never complete.
func axfr(ctx context.Context, hostname, address string) []dispatcher.Record {
	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", address)
	if err != nil {
		return nil
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	m := new(dns.Msg)
	m.SetAxfr(dns.Fqdn(hostname))

	tr := &dns.Transfer{Conn: &dns.Conn{Conn: conn}}
	envelopes, err := tr.In(m, address)
	if err != nil {
		return nil
	}

	var records []dispatcher.Record
	for env := range envelopes {
		if env.Error != nil {
			return records
		}
		for _, rr := range env.RR {
			if rec, ok := recordFromRR(hostname, rr); ok {
				records = append(records, rec)
			}
		}
	}
	return records
}

func recordFromRR(hostname string, rr dns.RR) (dispatcher.Record, bool) {
	switch v := rr.(type) {
	case *dns.A:
		return dispatcher.Record{Name: trimHostname(v.Hdr.Name), Type: dispatcher.TypeA, Data: v.A.String()}, true
	case *dns.AAAA:
		return dispatcher.Record{Name: trimHostname(v.Hdr.Name), Type: dispatcher.TypeAAAA, Data: v.AAAA.String()}, true
	case *dns.CNAME:
		return dispatcher.Record{Name: trimHostname(v.Hdr.Name), Type: dispatcher.TypeCNAME, Data: strings.TrimSuffix(v.Target, ".")}, true
	case *dns.NS:
		return dispatcher.Record{Name: trimHostname(v.Hdr.Name), Type: dispatcher.TypeNS, Data: strings.TrimSuffix(v.Ns, ".")}, true
	case *dns.MX:
		return dispatcher.Record{Name: trimHostname(v.Hdr.Name), Type: dispatcher.TypeMX, Data: strings.TrimSuffix(v.Mx, ".")}, true
	case *dns.TXT:
		if len(v.Txt) == 0 {
			return dispatcher.Record{}, false
		}
		return dispatcher.Record{Name: trimHostname(v.Hdr.Name), Type: dispatcher.TypeTXT, Data: v.Txt[0]}, true
	default:
		return dispatcher.Record{}, false
	}
}

func trimHostname(name string) string {
	return strings.TrimSuffix(name, ".")
}
