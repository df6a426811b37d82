// Package testutil provides fixtures shared by package tests: inventories,
// template trees and CONFIG_DB seeding.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TwoRouterInventory describes two routers with one up /30 link between
// them and no BGP neighbors.
const TwoRouterInventory = `r1:
  mgmt: 192.0.2.1/24
  vendor: lab
  os: mock
  interfaces:
    eth1:
      ipaddr: 10.0.0.1/30
      description: to r2
      state: up
  bgp:
    rid: 1.1.1.1
    asn: 65001
    neighbors: []
r2:
  mgmt: 192.0.2.2/24
  vendor: lab
  os: mock
  interfaces:
    eth1:
      ipaddr: 10.0.0.2/30
      description: to r1
      state: up
  bgp:
    rid: 2.2.2.2
    asn: 65002
    neighbors: []
`

// MockTemplates is a minimal template set for the lab/mock vendor pair
var MockTemplates = map[string]string{
	"add_hostname": "hostname {{ .Hostname }}",
	"add_interface": `{{ range .Interfaces }}interface {{ .Name }}
 ip address {{ ip .Address }} {{ netmask .Address }}
{{ end }}`,
	"add_bgp_neighbor": `router bgp {{ .BGP.ASN }}
{{- range .BGP.Neighbors }}
 neighbor {{ .Address }} remote-as {{ .RemoteASN }}
{{- end }}`,
}

// WriteFile writes content to dir/rel, creating parent directories, and
// returns the full path.
func WriteFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

// WriteTemplates writes one <action>.txt per entry under
// root/<vendor>/<os>/ and returns root.
func WriteTemplates(t *testing.T, root, vendor, os string, templates map[string]string) string {
	t.Helper()
	for action, body := range templates {
		WriteFile(t, root, filepath.Join(vendor, os, action+".txt"), body)
	}
	return root
}

// Context returns a context with a reasonable timeout for tests.
// The cancel function is registered via t.Cleanup.
func Context(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}
