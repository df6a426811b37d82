package util

import (
	"errors"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIPv4Prefix(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantAddr string
		wantBits int
		wantErr  bool
	}{
		{name: "valid /24", in: "192.168.1.100/24", wantAddr: "192.168.1.100", wantBits: 24},
		{name: "valid /30", in: "10.1.1.1/30", wantAddr: "10.1.1.1", wantBits: 30},
		{name: "valid /31", in: "10.1.1.0/31", wantAddr: "10.1.1.0", wantBits: 31},
		{name: "bare address is /32", in: "10.0.0.1", wantAddr: "10.0.0.1", wantBits: 32},
		{name: "surrounding space", in: " 10.0.0.1/8 ", wantAddr: "10.0.0.1", wantBits: 8},
		{name: "invalid - bad IP", in: "999.999.999.999/24", wantErr: true},
		{name: "invalid - bad mask", in: "10.0.0.1/33", wantErr: true},
		{name: "invalid - ipv6", in: "2001:db8::1/64", wantErr: true},
		{name: "invalid - empty", in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseIPv4Prefix(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidConfig))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAddr, p.Addr().String())
			assert.Equal(t, tt.wantBits, p.Bits())
		})
	}
}

func TestNetmask(t *testing.T) {
	tests := []struct {
		bits int
		want string
	}{
		{0, "0.0.0.0"},
		{8, "255.0.0.0"},
		{24, "255.255.255.0"},
		{30, "255.255.255.252"},
		{31, "255.255.255.254"},
		{32, "255.255.255.255"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Netmask(tt.bits).String(), "bits=%d", tt.bits)
	}
}

func TestBroadcastAddr(t *testing.T) {
	assert.Equal(t, "10.0.0.3", BroadcastAddr(netip.MustParsePrefix("10.0.0.1/30")).String())
	assert.Equal(t, "192.168.1.255", BroadcastAddr(netip.MustParsePrefix("192.168.1.77/24")).String())
}

func TestFirstHostExcept(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		want   string
		wantOK bool
	}{
		{name: "/30 first host", prefix: "10.1.1.1/30", want: "10.1.1.2", wantOK: true},
		{name: "/30 second host", prefix: "10.1.1.2/30", want: "10.1.1.1", wantOK: true},
		{name: "/31 even", prefix: "10.1.1.0/31", want: "10.1.1.1", wantOK: true},
		{name: "/31 odd", prefix: "10.1.1.1/31", want: "10.1.1.0", wantOK: true},
		{name: "/24 picks first non-self host", prefix: "192.168.1.50/24", want: "192.168.1.1", wantOK: true},
		{name: "/24 self is first host", prefix: "192.168.1.1/24", want: "192.168.1.2", wantOK: true},
		{name: "/32 has no hosts", prefix: "10.0.0.1/32", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := netip.MustParsePrefix(tt.prefix)
			got, ok := FirstHostExcept(p, p.Addr())
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got.String())
			}
		})
	}
}

func TestValidateASN(t *testing.T) {
	assert.NoError(t, ValidateASN(1))
	assert.NoError(t, ValidateASN(65000))
	assert.NoError(t, ValidateASN(4294967295))
	assert.Error(t, ValidateASN(0))
	assert.Error(t, ValidateASN(-1))
	assert.Error(t, ValidateASN(4294967296))
}

func TestIsPointToPoint(t *testing.T) {
	for bits, want := range map[int]bool{24: false, 29: false, 30: true, 31: true, 32: false} {
		assert.Equal(t, want, IsPointToPoint(bits), "/%d", bits)
	}
}
