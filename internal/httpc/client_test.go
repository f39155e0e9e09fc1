package httpc

import (
	"net/http"
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		want    time.Duration
	}{
		{"explicit", 5 * time.Second, 5 * time.Second},
		{"zero uses default", 0, DefaultTimeout},
		{"negative uses default", -time.Second, DefaultTimeout},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := NewClient(tc.timeout)
			if c.Timeout != tc.want {
				t.Errorf("Timeout: got %v, want %v", c.Timeout, tc.want)
			}
			tr, ok := c.Transport.(*http.Transport)
			if !ok {
				t.Fatalf("Transport: got %T", c.Transport)
			}
			if tr.MaxIdleConnsPerHost != maxIdleConnsPerHost {
				t.Errorf("MaxIdleConnsPerHost: got %d", tr.MaxIdleConnsPerHost)
			}
		})
	}
}
