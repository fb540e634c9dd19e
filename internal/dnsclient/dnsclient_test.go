package dnsclient

import (
	"net"
	"testing"

	"github.com/miekg/dns"

	"github.com/snrtherock/subsearch/internal/dispatcher"
)

func TestRecordsFromAnswerDecodesKnownTypes(t *testing.T) {
	answers := []dns.RR{
		&dns.A{Hdr: dns.RR_Header{Name: "www.example.com."}, A: net.ParseIP("1.2.3.4")},
		&dns.CNAME{Hdr: dns.RR_Header{Name: "www.example.com."}, Target: "edge.example.net."},
		&dns.TXT{Hdr: dns.RR_Header{Name: "www.example.com."}, Txt: []string{"v=spf1 -all"}},
	}

	got := recordsFromAnswer("www", "example.com", answers)
	if len(got) != 3 {
		t.Fatalf("len(got) = %d, want 3", len(got))
	}

	want := []dispatcher.Record{
		{Name: "www.example.com", Type: dispatcher.TypeA, Data: "1.2.3.4"},
		{Name: "www.example.com", Type: dispatcher.TypeCNAME, Data: "edge.example.net."},
		{Name: "www.example.com", Type: dispatcher.TypeTXT, Data: "v=spf1 -all"},
	}
	for i, r := range want {
		if got[i] != r {
			t.Errorf("got[%d] = %+v, want %+v", i, got[i], r)
		}
	}
}

func TestRecordsFromAnswerSkipsUnknownTypes(t *testing.T) {
	answers := []dns.RR{
		&dns.HINFO{Hdr: dns.RR_Header{Name: "www.example.com."}, Cpu: "x", Os: "y"},
	}
	got := recordsFromAnswer("www", "example.com", answers)
	if len(got) != 0 {
		t.Errorf("len(got) = %d, want 0", len(got))
	}
}
