package telemetry

import "testing"

func TestSplitEndpoint(t *testing.T) {
	tests := []struct {
		in   string
		host string
		port int
	}{
		{"greptime.local:4001", "greptime.local", 4001},
		{"127.0.0.1:4001", "127.0.0.1", 4001},
		{"greptime.local", "greptime.local", 0},
		{"127.0.0.1", "127.0.0.1", 0},
		{"host:notaport", "host", 0},
	}
	for _, tt := range tests {
		host, port := splitEndpoint(tt.in)
		if host != tt.host || port != tt.port {
			t.Errorf("splitEndpoint(%q) = (%q, %d), want (%q, %d)", tt.in, host, port, tt.host, tt.port)
		}
	}
}
