package mailwright

import (
	"net"
	"testing"
)

func TestFormatIPv4Literal(t *testing.T) {
	tests := []struct {
		name string
		addr net.Addr
		want string
	}{
		{
			name: "IPv4 TCP address",
			addr: &net.TCPAddr{IP: net.ParseIP("192.0.2.10"), Port: 587},
			want: "[192.0.2.10]",
		},
		{
			name: "IPv4 loopback",
			addr: &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 25},
			want: "[127.0.0.1]",
		},
		{
			name: "IPv6 address",
			addr: &net.TCPAddr{IP: net.ParseIP("2001:db8::1"), Port: 25},
			want: "[IPv6:2001:db8::1]",
		},
		{
			name: "nil address falls back to loopback",
			addr: nil,
			want: "[127.0.0.1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatIPv4Literal(tt.addr); got != tt.want {
				t.Errorf("FormatIPv4Literal() = %q, want %q", got, tt.want)
			}
		})
	}
}
