// Package dispatcher implements the concurrent scan coordinator: it owns
// the pending-subdomain queue, the resolver pool, the live scanner pool,
// pause/resume state, and drives the scan to completion or failure.
package dispatcher

import "time"

// RecordType is a symbolic DNS record tag.
type RecordType string

// Record types the scanner is expected to decode. NSEC, RRSIG and SOA are
// valid answers but are filtered out downstream by the listener.
const (
	TypeA     RecordType = "A"
	TypeAAAA  RecordType = "AAAA"
	TypeCNAME RecordType = "CNAME"
	TypeMX    RecordType = "MX"
	TypeNS    RecordType = "NS"
	TypeTXT   RecordType = "TXT"
	TypeNSEC  RecordType = "NSEC"
	TypeRRSIG RecordType = "RRSIG"
	TypeSOA   RecordType = "SOA"
)

// Record is a single DNS record discovered for a subdomain.
type Record struct {
	Name string
	Type RecordType
	Data string
}

// Less orders records by name, then type, then data, matching the natural
// ordering spec.md assigns to records.
func (r Record) Less(other Record) bool {
	if r.Name != other.Name {
		return r.Name < other.Name
	}
	if r.Type != other.Type {
		return r.Type < other.Type
	}
	return r.Data < other.Data
}

// Resolver is a DNS server endpoint with its accumulated timeout count.
type Resolver struct {
	Address  string
	Timeouts int
}

// maxResolverTimeouts is the number of timeouts at which a resolver is
// permanently dropped from the pool.
const maxResolverTimeouts = 3

// Blacklisted reports whether the resolver has reached the timeout
// threshold and can no longer be dequeued.
func (r Resolver) Blacklisted() bool {
	return r.Timeouts >= maxResolverTimeouts
}

// adaptive scan timeout bounds, per spec.md §6. DefaultInitialScanTimeout
// mirrors cliconfig's --timeout default; callers that want a different
// starting timeout pass it to New directly instead.
const (
	DefaultInitialScanTimeout = 5 * time.Second
	maxScanTimeout            = 30 * time.Second
	timeoutStep               = 1 * time.Second
)

// nextTimeout returns the timeout to use for the next attempt at a
// subdomain after a prior timeout. The dispatcher keeps one timeout per
// subdomain, whichever resolver the attempt uses; it is not tracked
// separately per (subdomain, resolver) pair.
func nextTimeout(current time.Duration) time.Duration {
	next := current + timeoutStep
	if next > maxScanTimeout {
		return maxScanTimeout
	}
	return next
}
