package datadog

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"metaexport/internal/metrics"
)

func TestNewBackend_RequiresAddr(t *testing.T) {
	t.Parallel()

	if b, err := NewBackend(Config{}); err == nil || b != nil {
		t.Fatalf("NewBackend(empty) = %v, %v; want nil, error", b, err)
	}
}

func TestLabelsToTags(t *testing.T) {
	t.Parallel()

	if got := labelsToTags(nil); got != nil {
		t.Fatalf("labelsToTags(nil) = %v", got)
	}
	got := labelsToTags(metrics.Labels{"step": "fetch", "job": "export", "status": "success"})
	want := []string{"job:export", "status:success", "step:fetch"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestBackend_SendsOverUDP(t *testing.T) {
	t.Parallel()

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("udp listen unavailable: %v", err)
	}
	defer conn.Close()

	b, err := NewBackend(Config{Addr: conn.LocalAddr().String(), GlobalTags: []string{"env:test"}})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	b.IncCounter(metrics.PagesTotal, 3, metrics.Labels{"job": "export"})
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 4096)
	n, _, err := conn.ReadFrom(buf)
	if err != nil {
		t.Fatalf("read packet: %v", err)
	}
	pkt := string(buf[:n])
	if !strings.Contains(pkt, "metaexport.export_pages_total:3|c") {
		t.Fatalf("packet %q missing namespaced count", pkt)
	}
	if !strings.Contains(pkt, "job:export") || !strings.Contains(pkt, "env:test") {
		t.Fatalf("packet %q missing tags", pkt)
	}
}

func TestBackend_ZeroValueIsSafe(t *testing.T) {
	t.Parallel()

	var b Backend
	b.IncCounter(metrics.RecordsTotal, 1, nil)
	b.ObserveHistogram(metrics.StepDurationSeconds, 1, nil)
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush on zero value: %v", err)
	}
}
