package listener

import "fmt"

// Percentage renders LastScan(s, i, n) as spec.md §4.5 describes:
// pct = (i / n) * 100, with n = 0 yielding 0.00. Because scansIssued can
// exceed scansTotal under heavy retries (spec.md §9 open question), the
// displayed percentage is clamped at 100.00 rather than shown raw.
func Percentage(issued, total int) float64 {
	if total == 0 {
		return 0
	}
	pct := float64(issued) / float64(total) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}

// FormatLastScan renders the canonical progress line.
func FormatLastScan(subdomain string, issued, total int) string {
	return fmt.Sprintf("%.2f%% - Last request to: %s", Percentage(issued, total), subdomain)
}
