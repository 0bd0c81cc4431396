package smtp

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowlist_Allowed(t *testing.T) {
	tests := []struct {
		name    string
		entries []string
		addr    string
		want    bool
	}{
		{"empty allowlist permits everything", nil, "203.0.113.7", true},
		{"cidr match", []string{"10.0.0.0/8"}, "10.1.2.3", true},
		{"cidr mismatch", []string{"10.0.0.0/8"}, "192.168.1.1", false},
		{"single host match", []string{"192.168.1.1"}, "192.168.1.1", true},
		{"single host mismatch", []string{"192.168.1.1"}, "192.168.1.2", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAllowlist(tt.entries)
			assert.Equal(t, tt.want, a.Allowed(net.ParseIP(tt.addr)))
		})
	}
}
