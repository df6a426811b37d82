package inventory

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newtron-network/newtboot/pkg/model"
	"github.com/newtron-network/newtboot/pkg/util"
)

const twoRouters = `
r2:
  mgmt: 192.168.100.12/24
  vendor: arista
  os: eos
  interfaces:
    Ethernet2:
      ipaddr: 10.0.0.2/30
      description: to r1
      state: up
    Ethernet1:
      ipaddr: 10.0.9.1/30
      description: unused
      state: down
  bgp:
    rid: 2.2.2.2
    asn: 65002
    neighbors:
      - ipaddr: 10.0.0.1
        remote_asn: 65001
r1:
  mgmt: 192.168.100.11
  vendor: cisco
  os: ios
  interfaces:
    GigabitEthernet0/1:
      ipaddr: 10.0.0.1/30
      description: to r2
      state: up
  bgp:
    rid: 1.1.1.1
    asn: 65001
    neighbors: []
`

func TestParsePreservesDocumentOrder(t *testing.T) {
	routers, err := Parse([]byte(twoRouters))
	require.NoError(t, err)
	require.Len(t, routers, 2)

	r2, r1 := routers[0], routers[1]
	assert.Equal(t, "r2", r2.Hostname)
	assert.Equal(t, "r1", r1.Hostname)

	require.Len(t, r2.Interfaces, 2)
	assert.Equal(t, "Ethernet2", r2.Interfaces[0].Name)
	assert.Equal(t, "Ethernet1", r2.Interfaces[1].Name)
	assert.Equal(t, model.StatusUp, r2.Interfaces[0].Status)
	assert.Equal(t, model.StatusDown, r2.Interfaces[1].Status)

	assert.Equal(t, "2.2.2.2", r2.BGP.RouterID.String())
	assert.Equal(t, uint32(65002), r2.BGP.ASN)
	require.Len(t, r2.BGP.Neighbors, 1)
	assert.Equal(t, "10.0.0.1", r2.BGP.Neighbors[0].Address.String())

	assert.Equal(t, "192.168.100.11/32", r1.MgmtIP.String())
	assert.Equal(t, "cisco", r1.Vendor)
	assert.Equal(t, "ios", r1.OS)
	assert.Empty(t, r1.BGP.Neighbors)
}

func TestParseOptionalBlocks(t *testing.T) {
	routers, err := Parse([]byte(`
edge:
  mgmt: 10.10.10.10
  vendor: sonic
  os: sonic
  interfaces:
  bgp:
    rid: 10.10.10.10
    asn: 65010
`))
	require.NoError(t, err)
	require.Len(t, routers, 1)
	assert.True(t, routers[0].InterfacesEmpty())
	assert.True(t, routers[0].HasBGP())
	assert.Empty(t, routers[0].BGP.Neighbors)
}

func TestParseMissingStateDefaultsDown(t *testing.T) {
	routers, err := Parse([]byte(`
r1:
  mgmt: 10.10.10.10
  vendor: cisco
  os: ios
  interfaces:
    Gi0/1:
      ipaddr: 10.0.0.1/30
  bgp: {rid: 1.1.1.1, asn: 65001}
`))
	require.NoError(t, err)
	assert.Equal(t, model.StatusDown, routers[0].Interfaces[0].Status)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantMsg string
	}{
		{
			name:    "empty document",
			doc:     "",
			wantMsg: "inventory is empty",
		},
		{
			name:    "not a mapping",
			doc:     "- r1\n- r2\n",
			wantMsg: "mapping of hostname",
		},
		{
			name:    "missing required fields",
			doc:     "r1:\n  vendor: cisco\n",
			wantMsg: "mgmt is required",
		},
		{
			name: "duplicate hostname",
			doc: `
r1: {mgmt: 10.0.0.1, vendor: cisco, os: ios}
r1: {mgmt: 10.0.0.2, vendor: cisco, os: ios}
`,
			wantMsg: "duplicate hostname",
		},
		{
			name: "bad interface address",
			doc: `
r1:
  mgmt: 10.0.0.1
  vendor: cisco
  os: ios
  interfaces:
    Gi0/1: {ipaddr: 10.0.0.300/30, state: up}
`,
			wantMsg: "Gi0/1",
		},
		{
			name: "bad state",
			doc: `
r1:
  mgmt: 10.0.0.1
  vendor: cisco
  os: ios
  interfaces:
    Gi0/1: {ipaddr: 10.0.0.1/30, state: flapping}
`,
			wantMsg: "flapping",
		},
		{
			name:    "missing bgp block",
			doc:     "r1: {mgmt: 10.0.0.1, vendor: cisco, os: ios}\n",
			wantMsg: "bgp is required",
		},
		{
			name: "bgp without asn",
			doc: `
r1:
  mgmt: 10.0.0.1
  vendor: cisco
  os: ios
  bgp: {rid: 1.1.1.1}
`,
			wantMsg: "AS number",
		},
		{
			name: "bgp without rid",
			doc: `
r1:
  mgmt: 10.0.0.1
  vendor: cisco
  os: ios
  bgp: {asn: 65001}
`,
			wantMsg: "bgp rid",
		},
		{
			name: "bad neighbor asn",
			doc: `
r1:
  mgmt: 10.0.0.1
  vendor: cisco
  os: ios
  bgp:
    rid: 1.1.1.1
    asn: 65001
    neighbors:
      - {ipaddr: 10.0.0.2, remote_asn: 0}
`,
			wantMsg: "AS number",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, util.ErrValidationFailed), "got %v", err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestParseReportsEveryDevice(t *testing.T) {
	_, err := Parse([]byte(`
r1: {vendor: cisco, os: ios}
r2: {mgmt: 10.0.0.2, vendor: cisco}
`))
	var ve *util.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Errors, 2)
}

func TestParseMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("r1: [unterminated"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "network.yml")
	require.NoError(t, os.WriteFile(path, []byte(twoRouters), 0644))

	routers, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, routers, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}
