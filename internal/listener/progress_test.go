package listener

import "testing"

func TestPercentageClampsAt100(t *testing.T) {
	if got := Percentage(5, 3); got != 100 {
		t.Errorf("Percentage(5, 3) = %v, want 100", got)
	}
}

func TestPercentageZeroTotal(t *testing.T) {
	if got := Percentage(0, 0); got != 0 {
		t.Errorf("Percentage(0, 0) = %v, want 0", got)
	}
}

func TestPercentageHalfway(t *testing.T) {
	if got := Percentage(5, 10); got != 50 {
		t.Errorf("Percentage(5, 10) = %v, want 50", got)
	}
}

func TestFormatLastScan(t *testing.T) {
	got := FormatLastScan("www.example.com", 1, 2)
	want := "50.00% - Last request to: www.example.com"
	if got != want {
		t.Errorf("FormatLastScan = %q, want %q", got, want)
	}
}
