package track

import (
	"net/http/httptest"
	"testing"
)

func TestNormalizeIP(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "ipv6 loopback", input: "::1", want: "127.0.0.1"},
		{name: "localhost literal", input: "localhost", want: "127.0.0.1"},
		{name: "ipv4 loopback unchanged", input: "127.0.0.1", want: "127.0.0.1"},
		{name: "mapped prefix stripped", input: "::ffff:203.0.113.5", want: "203.0.113.5"},
		{name: "plain ipv4 unchanged", input: "203.0.113.5", want: "203.0.113.5"},
		{name: "ipv6 unchanged", input: "2001:db8::1", want: "2001:db8::1"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeIP(tt.input)
			if got != tt.want {
				t.Fatalf("NormalizeIP(%q) = %q, want %q", tt.input, got, tt.want)
			}
			// Normalization must be idempotent.
			if again := NormalizeIP(got); again != got {
				t.Fatalf("NormalizeIP not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestIsCreator(t *testing.T) {
	tests := []struct {
		name      string
		viewerIP  string
		creatorIP string
		want      bool
	}{
		{name: "exact match", viewerIP: "203.0.113.5", creatorIP: "203.0.113.5", want: true},
		{name: "different address", viewerIP: "198.51.100.9", creatorIP: "203.0.113.5", want: false},
		{name: "mapped viewer matches", viewerIP: "::ffff:203.0.113.5", creatorIP: "203.0.113.5", want: true},
		{name: "loopback spellings match", viewerIP: "::1", creatorIP: "127.0.0.1", want: true},
		{name: "localhost matches loopback", viewerIP: "localhost", creatorIP: "::1", want: true},
		{name: "unrecorded creator never matches", viewerIP: "203.0.113.5", creatorIP: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCreator(tt.viewerIP, tt.creatorIP); got != tt.want {
				t.Fatalf("IsCreator(%q, %q) = %v, want %v", tt.viewerIP, tt.creatorIP, got, tt.want)
			}
		})
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "forwarded-for wins",
			remoteAddr: "10.0.0.1:5500",
			headers: map[string]string{
				"X-Forwarded-For": "203.0.113.5, 10.0.0.1",
				"X-Real-Ip":       "198.51.100.9",
			},
			want: "203.0.113.5",
		},
		{
			name:       "real-ip second",
			remoteAddr: "10.0.0.1:5500",
			headers:    map[string]string{"X-Real-Ip": "198.51.100.9"},
			want:       "198.51.100.9",
		},
		{
			name:       "peer address last",
			remoteAddr: "192.0.2.7:41000",
			want:       "192.0.2.7",
		},
		{
			name:       "peer address normalized",
			remoteAddr: "[::ffff:192.0.2.7]:41000",
			want:       "192.0.2.7",
		},
		{
			name:       "forwarded-for normalized",
			remoteAddr: "10.0.0.1:5500",
			headers:    map[string]string{"X-Forwarded-For": "::1"},
			want:       "127.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/pixel/track/abc", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r); got != tt.want {
				t.Fatalf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := NewToken()
		if err != nil {
			t.Fatalf("NewToken() error = %v", err)
		}
		if len(token) != 32 {
			t.Fatalf("token length = %d, want 32 hex chars", len(token))
		}
		if seen[token] {
			t.Fatalf("duplicate token %q", token)
		}
		seen[token] = true
	}
}

func TestImage(t *testing.T) {
	img := Image()
	if len(img) == 0 {
		t.Fatal("empty tracking image")
	}
	if string(img[:6]) != "GIF89a" {
		t.Fatalf("unexpected image header %q", img[:6])
	}
}
