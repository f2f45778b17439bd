package main

import "testing"

func TestLocalListenAddr(t *testing.T) {
	tests := []struct {
		addr   string
		want   string
		wantOK bool
	}{
		{"http://127.0.0.1:7466", "127.0.0.1:7466", true},
		{"http://localhost:8080", "localhost:8080", true},
		{"http://[::1]:7466", "[::1]:7466", true},
		{"https://pomo.example.com", "", false},
		{"http://10.0.0.5:7466", "", false},
		{"not a url", "", false},
	}

	for _, tt := range tests {
		got, ok := localListenAddr(tt.addr)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("localListenAddr(%q) = %q, %v; want %q, %v", tt.addr, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate short = %q", got)
	}
	if got := truncate("a rather long task title", 10); got != "a rathe..." {
		t.Errorf("truncate long = %q", got)
	}
	if got := truncate("番茄工作法任务标题很长", 8); got != "番茄工作法..." {
		t.Errorf("truncate CJK = %q", got)
	}
	if got := truncate("番茄工作法", 5); got != "番茄工作法" {
		t.Errorf("truncate CJK at limit = %q", got)
	}
	if got := truncateID("0123456789abcdef"); got != "01234567" {
		t.Errorf("truncateID = %q", got)
	}
}
