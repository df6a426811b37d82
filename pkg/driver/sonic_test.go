package driver

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newtron-network/newtboot/internal/testutil"
	"github.com/newtron-network/newtboot/pkg/util"
)

func attachMiniredis(t *testing.T, exec execFunc) (*SonicSession, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := NewSonicSession(Target{Hostname: "leaf1", Host: "192.0.2.10", OS: "sonic"}, Credentials{})
	require.NoError(t, s.attach(context.Background(), mr.Addr(), exec))
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestSonicCommit(t *testing.T) {
	ctx := context.Background()
	s, mr := attachMiniredis(t, nil)

	require.NoError(t, s.LoadMergeCandidate(ctx, `{
		"DEVICE_METADATA": {"localhost": {"hostname": "leaf1", "bgp_asn": 65001}},
		"INTERFACE": {"Ethernet0": {}, "Ethernet0|10.0.0.1/30": {}}
	}`))
	require.NoError(t, s.LoadMergeCandidate(ctx, `{
		"DEVICE_METADATA": {"localhost": {"type": "LeafRouter"}},
		"BGP_NEIGHBOR": {"10.0.0.2": {"asn": 4200000000, "admin_status": "up"}}
	}`))
	require.NoError(t, s.CommitConfig(ctx))

	db := mr.DB(configDB)
	assert.Equal(t, "leaf1", db.HGet("DEVICE_METADATA|localhost", "hostname"))
	assert.Equal(t, "65001", db.HGet("DEVICE_METADATA|localhost", "bgp_asn"))
	assert.Equal(t, "LeafRouter", db.HGet("DEVICE_METADATA|localhost", "type"))
	assert.Equal(t, "NULL", db.HGet("INTERFACE|Ethernet0|10.0.0.1/30", "NULL"))
	assert.Equal(t, "4200000000", db.HGet("BGP_NEIGHBOR|10.0.0.2", "asn"))
	assert.Equal(t, "up", db.HGet("BGP_NEIGHBOR|10.0.0.2", "admin_status"))

	// Nothing lands in the default DB
	assert.False(t, mr.DB(0).Exists("DEVICE_METADATA|localhost"))
}

func TestSonicConcatenatedDocuments(t *testing.T) {
	ctx := context.Background()
	s, mr := attachMiniredis(t, nil)

	// A base candidate is the hostname and interface renders joined by newlines
	require.NoError(t, s.LoadMergeCandidate(ctx, `{"DEVICE_METADATA": {"localhost": {"hostname": "leaf1"}}}
{"INTERFACE": {"Ethernet0|10.0.0.1/30": {}}, "DEVICE_METADATA": {"localhost": {"bgp_asn": "65001"}}}
`))
	require.NoError(t, s.CommitConfig(ctx))

	db := mr.DB(configDB)
	assert.Equal(t, "leaf1", db.HGet("DEVICE_METADATA|localhost", "hostname"))
	assert.Equal(t, "65001", db.HGet("DEVICE_METADATA|localhost", "bgp_asn"))
	assert.True(t, db.Exists("INTERFACE|Ethernet0|10.0.0.1/30"))
}

func TestSonicCandidateConsumed(t *testing.T) {
	ctx := context.Background()
	s, mr := attachMiniredis(t, nil)

	require.NoError(t, s.LoadMergeCandidate(ctx, `{"VLAN": {"Vlan100": {"vlanid": "100"}}}`))
	require.NoError(t, s.CommitConfig(ctx))
	mr.DB(configDB).Del("VLAN|Vlan100")

	require.NoError(t, s.CommitConfig(ctx))
	assert.False(t, mr.DB(configDB).Exists("VLAN|Vlan100"))
}

func TestSonicBadCandidate(t *testing.T) {
	ctx := context.Background()
	s, _ := attachMiniredis(t, nil)

	tests := []struct {
		name   string
		config string
	}{
		{"not json", "hostname leaf1\n"},
		{"wrong shape", `{"VLAN": ["Vlan100"]}`},
		{"nested field", `{"VLAN": {"Vlan100": {"members": ["Ethernet0"]}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.LoadMergeCandidate(ctx, tt.config)
			require.Error(t, err)
			assert.True(t, errors.Is(err, util.ErrCommit))
		})
	}

	// Whitespace-only output from an empty template is not an error
	assert.NoError(t, s.LoadMergeCandidate(ctx, "\n\n"))
}

func TestSonicPing(t *testing.T) {
	ctx := context.Background()

	t.Run("loss with non-zero exit", func(t *testing.T) {
		var got string
		s, _ := attachMiniredis(t, func(_ context.Context, cmd string) (string, error) {
			got = cmd
			return "--- 10.0.0.2 ping statistics ---\n5 packets transmitted, 0 received, 100% packet loss, time 4099ms\n",
				errors.New("Process exited with status 1")
		})
		res, err := s.Ping(ctx, "10.0.0.2")
		require.NoError(t, err)
		assert.Equal(t, "ping -c 5 -W 1 10.0.0.2", got)
		assert.Equal(t, PingResult{ProbesSent: 5, PacketLoss: 5}, res)
		assert.False(t, res.Success())
	})

	t.Run("exec failure", func(t *testing.T) {
		s, _ := attachMiniredis(t, func(context.Context, string) (string, error) {
			return "", errors.New("session closed")
		})
		_, err := s.Ping(ctx, "10.0.0.2")
		assert.ErrorContains(t, err, "session closed")
	})
}

func TestSonicNotOpen(t *testing.T) {
	ctx := context.Background()
	s := NewSonicSession(Target{Hostname: "leaf1", OS: "sonic"}, Credentials{})

	assert.True(t, errors.Is(s.LoadMergeCandidate(ctx, "{}"), util.ErrNotConnected))
	assert.True(t, errors.Is(s.CommitConfig(ctx), util.ErrNotConnected))
	_, err := s.Ping(ctx, "10.0.0.2")
	assert.True(t, errors.Is(err, util.ErrNotConnected))
	assert.NoError(t, s.Close())
}

func TestSonicCommitMergesExistingEntries(t *testing.T) {
	ctx := context.Background()
	s, mr := attachMiniredis(t, nil)
	testutil.SeedRedis(t, mr.Addr(), configDB, map[string]map[string]map[string]string{
		"PORT": {"Ethernet0": {"lanes": "25,26,27,28", "speed": "100000", "admin_status": "down"}},
	})

	require.NoError(t, s.LoadMergeCandidate(ctx, `{"PORT": {"Ethernet0": {"admin_status": "up", "description": "to r2"}}}`))
	require.NoError(t, s.CommitConfig(ctx))

	assert.Equal(t, map[string]string{
		"lanes":        "25,26,27,28",
		"speed":        "100000",
		"admin_status": "up",
		"description":  "to r2",
	}, testutil.ReadEntry(t, mr.Addr(), configDB, "PORT", "Ethernet0"))
}
