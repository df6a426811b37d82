package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIOSPing(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		want    PingResult
		wantErr bool
	}{
		{
			name: "all replies",
			out: "Type escape sequence to abort.\r\n" +
				"Sending 5, 100-byte ICMP Echos to 10.0.0.2, timeout is 2 seconds:\r\n" +
				"!!!!!\r\n" +
				"Success rate is 100 percent (5/5), round-trip min/avg/max = 1/2/4 ms\r\nr1#",
			want: PingResult{ProbesSent: 5, PacketLoss: 0},
		},
		{
			name: "first probe lost to ARP",
			out:  ".!!!!\r\nSuccess rate is 80 percent (4/5), round-trip min/avg/max = 1/1/2 ms\r\n",
			want: PingResult{ProbesSent: 5, PacketLoss: 1},
		},
		{
			name: "no replies",
			out:  ".....\r\nSuccess rate is 0 percent (0/5)\r\n",
			want: PingResult{ProbesSent: 5, PacketLoss: 5},
		},
		{
			name:    "garbage",
			out:     "% Unrecognized host or address\r\n",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseIOSPing(tt.out)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseUnixPing(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		want    PingResult
		wantErr bool
	}{
		{
			name: "linux",
			out:  "--- 10.0.0.2 ping statistics ---\n5 packets transmitted, 5 received, 0% packet loss, time 4005ms\n",
			want: PingResult{ProbesSent: 5, PacketLoss: 0},
		},
		{
			name: "junos",
			out:  "--- 10.0.0.2 ping statistics ---\n5 packets transmitted, 3 packets received, 40% packet loss\n",
			want: PingResult{ProbesSent: 5, PacketLoss: 2},
		},
		{
			name: "linux with errors",
			out:  "5 packets transmitted, 0 received, +5 errors, 100% packet loss, time 4090ms\n",
			want: PingResult{ProbesSent: 5, PacketLoss: 5},
		},
		{
			name:    "no summary",
			out:     "ping: unknown host\n",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseUnixPing(tt.out)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDialectPrompts(t *testing.T) {
	tests := []struct {
		os   string
		out  string
		want bool
	}{
		{"ios", "\r\nr1#", true},
		{"ios", "\r\nr1(config-if)#", true},
		{"ios", "\r\nr1>", true},
		{"ios", "r1#", true},
		{"ios", "\r\n description uplink #2", false},
		{"ios", "Building configuration...\r\n", false},
		{"eos", "\r\nleaf1(config)# ", true},
		{"junos", "\r\nadmin@vmx1> ", true},
		{"junos", "\r\nadmin@vmx1# ", true},
		{"junos", "\r\n[edit]\r\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.os+"/"+tt.out, func(t *testing.T) {
			d, ok := LookupDialect(tt.os)
			require.True(t, ok)
			assert.Equal(t, tt.want, d.Prompt.MatchString(tt.out))
		})
	}
}

func TestLookupDialectUnknown(t *testing.T) {
	_, ok := LookupDialect("sonic")
	assert.False(t, ok)
}
