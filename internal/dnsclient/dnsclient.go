// Package dnsclient implements dispatcher.Scanner against real DNS
// servers using miekg/dns, adapted from the teacher's resolver.go and
// dns.go (which query one record type per pass against a server list)
// into a single pass across A, AAAA, CNAME, MX, NS, and TXT for one
// subdomain against the single resolver the dispatcher assigned.
package dnsclient

import (
	"context"
	"fmt"
	"time"

	"github.com/miekg/dns"

	"github.com/snrtherock/subsearch/internal/dispatcher"
)

// queryTypes is the set of record types probed per subdomain (spec.md
// §4.3).
var queryTypes = []uint16{
	dns.TypeA,
	dns.TypeAAAA,
	dns.TypeCNAME,
	dns.TypeMX,
	dns.TypeNS,
	dns.TypeTXT,
}

// Client is the production dispatcher.Scanner: one miekg/dns.Client
// shared across all scan calls, since it holds no per-query state.
type Client struct {
	client *dns.Client
}

// New builds a dnsclient.Client. The per-call timeout is supplied by the
// dispatcher on every Scan call, not fixed here.
func New() *Client {
	return &Client{client: new(dns.Client)}
}

// Scan implements dispatcher.Scanner. It queries queryTypes in sequence
// against resolver for "<subdomain>.<hostname>", treating NXDOMAIN and
// empty answers as a completed scan with no records. A query that fails
// once the scan's deadline (or ctx) has expired ends the scan as a
// timeout; a query that fails for any other reason is skipped, so a scan
// whose every query fails that way completes with no records.
func (c *Client) Scan(ctx context.Context, hostname, subdomain string, resolver dispatcher.Resolver, timeout time.Duration) dispatcher.ScanResult {
	fqdn := dns.Fqdn(fmt.Sprintf("%s.%s", subdomain, hostname))

	scanCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var records []dispatcher.Record
	var timedOut bool

	for _, qtype := range queryTypes {
		msg := new(dns.Msg)
		msg.SetQuestion(fqdn, qtype)
		msg.RecursionDesired = true

		resp, _, err := c.client.ExchangeContext(scanCtx, msg, resolver.Address)
		if err != nil {
			if scanCtx.Err() != nil {
				timedOut = true
				break
			}
			// A single query type failing to reach the resolver (e.g.
			// connection refused) is not fatal to the whole scan; the
			// remaining query types still get a chance.
			continue
		}

		if resp.Rcode != dns.RcodeSuccess {
			continue
		}

		records = append(records, recordsFromAnswer(subdomain, hostname, resp.Answer)...)
	}

	if timedOut {
		return dispatcher.ScanResult{Outcome: dispatcher.ScanTimedOut}
	}

	return dispatcher.ScanResult{Outcome: dispatcher.ScanCompleted, Records: records}
}

func recordsFromAnswer(subdomain, hostname string, answers []dns.RR) []dispatcher.Record {
	name := fmt.Sprintf("%s.%s", subdomain, hostname)
	var out []dispatcher.Record

	for _, rr := range answers {
		switch rec := rr.(type) {
		case *dns.A:
			out = append(out, dispatcher.Record{Name: name, Type: dispatcher.TypeA, Data: rec.A.String()})
		case *dns.AAAA:
			out = append(out, dispatcher.Record{Name: name, Type: dispatcher.TypeAAAA, Data: rec.AAAA.String()})
		case *dns.CNAME:
			out = append(out, dispatcher.Record{Name: name, Type: dispatcher.TypeCNAME, Data: rec.Target})
		case *dns.MX:
			out = append(out, dispatcher.Record{Name: name, Type: dispatcher.TypeMX, Data: fmt.Sprintf("%d %s", rec.Preference, rec.Mx)})
		case *dns.NS:
			out = append(out, dispatcher.Record{Name: name, Type: dispatcher.TypeNS, Data: rec.Ns})
		case *dns.TXT:
			for _, s := range rec.Txt {
				out = append(out, dispatcher.Record{Name: name, Type: dispatcher.TypeTXT, Data: s})
			}
		case *dns.NSEC:
			out = append(out, dispatcher.Record{Name: name, Type: dispatcher.TypeNSEC, Data: rec.NextDomain})
		case *dns.RRSIG:
			out = append(out, dispatcher.Record{Name: name, Type: dispatcher.TypeRRSIG, Data: dns.TypeToString[rec.TypeCovered]})
		case *dns.SOA:
			out = append(out, dispatcher.Record{Name: name, Type: dispatcher.TypeSOA, Data: rec.Ns})
		}
	}
	return out
}
