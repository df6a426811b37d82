// Package inventory loads the declarative network description into Router
// models.
//
// The input is a YAML mapping of hostname to device:
//
//	r1:
//	  mgmt: 192.168.100.11/24
//	  vendor: cisco
//	  os: ios
//	  interfaces:
//	    GigabitEthernet0/1:
//	      ipaddr: 10.0.0.1/30
//	      description: to r2
//	      state: up
//	  bgp:
//	    rid: 1.1.1.1
//	    asn: 65001
//	    neighbors:
//	      - ipaddr: 10.0.0.2
//	        remote_asn: 65002
//
// Hostnames and interfaces keep their document order.
package inventory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/newtron-network/newtboot/pkg/model"
	"github.com/newtron-network/newtboot/pkg/util"
)

type deviceDoc struct {
	Mgmt       string    `yaml:"mgmt"`
	Vendor     string    `yaml:"vendor"`
	OS         string    `yaml:"os"`
	Interfaces yaml.Node `yaml:"interfaces"`
	BGP        *bgpDoc   `yaml:"bgp"`
}

type interfaceDoc struct {
	IPAddr      string `yaml:"ipaddr"`
	Description string `yaml:"description"`
	State       string `yaml:"state"`
}

type bgpDoc struct {
	RID       string        `yaml:"rid"`
	ASN       int64         `yaml:"asn"`
	Neighbors []neighborDoc `yaml:"neighbors"`
}

type neighborDoc struct {
	IPAddr    string `yaml:"ipaddr"`
	RemoteASN int64  `yaml:"remote_asn"`
}

// Load reads and parses an inventory file
func Load(path string) ([]*model.Router, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading inventory file: %w", err)
	}
	routers, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return routers, nil
}

// Parse builds one Router per top-level entry. Every device is checked and
// all problems are reported together.
func Parse(data []byte) ([]*model.Router, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing inventory YAML: %w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, util.NewValidationError("inventory is empty")
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, util.NewValidationError("inventory must be a mapping of hostname to device")
	}

	var (
		v       util.ValidationBuilder
		routers []*model.Router
		seen    = make(map[string]bool)
	)
	for i := 0; i+1 < len(top.Content); i += 2 {
		hostname := top.Content[i].Value
		if seen[hostname] {
			v.AddErrorf("device %s: duplicate hostname (line %d)", hostname, top.Content[i].Line)
			continue
		}
		seen[hostname] = true

		r, errs := buildRouter(hostname, top.Content[i+1])
		for _, e := range errs {
			v.AddErrorf("device %s: %v", hostname, e)
		}
		if r != nil && len(errs) == 0 {
			routers = append(routers, r)
		}
	}
	if len(routers) == 0 && !v.HasErrors() {
		v.AddErrorf("inventory has no devices")
	}
	if err := v.Build(); err != nil {
		return nil, err
	}
	return routers, nil
}

func buildRouter(hostname string, node *yaml.Node) (*model.Router, []error) {
	var doc deviceDoc
	if err := node.Decode(&doc); err != nil {
		return nil, []error{err}
	}

	var errs []error
	if doc.Mgmt == "" {
		errs = append(errs, fmt.Errorf("mgmt is required"))
	}
	if doc.Vendor == "" {
		errs = append(errs, fmt.Errorf("vendor is required"))
	}
	if doc.OS == "" {
		errs = append(errs, fmt.Errorf("os is required"))
	}
	if len(errs) > 0 {
		return nil, errs
	}

	r, err := model.NewRouter(hostname, doc.Mgmt, doc.Vendor, doc.OS)
	if err != nil {
		return nil, []error{err}
	}

	ifaces, err := interfaceEntries(&doc.Interfaces)
	if err != nil {
		errs = append(errs, err)
	}
	for _, e := range ifaces {
		status, err := model.ParseStatus(e.doc.State)
		if err != nil {
			errs = append(errs, fmt.Errorf("interface %s: %w", e.name, err))
			continue
		}
		if err := r.AddInterface(e.name, e.doc.IPAddr, e.doc.Description, status); err != nil {
			errs = append(errs, err)
		}
	}

	if doc.BGP == nil {
		errs = append(errs, fmt.Errorf("bgp is required"))
	} else if err := addBGP(r, doc.BGP); err != nil {
		errs = append(errs, err)
	}
	return r, errs
}

type namedInterface struct {
	name string
	doc  interfaceDoc
}

// interfaceEntries walks the interfaces mapping in document order. An absent
// or null block yields no interfaces.
func interfaceEntries(node *yaml.Node) ([]namedInterface, error) {
	switch {
	case node.Kind == 0:
		return nil, nil
	case node.Kind == yaml.ScalarNode && node.Tag == "!!null":
		return nil, nil
	case node.Kind != yaml.MappingNode:
		return nil, fmt.Errorf("interfaces must be a mapping (line %d)", node.Line)
	}

	var out []namedInterface
	for i := 0; i+1 < len(node.Content); i += 2 {
		var d interfaceDoc
		if err := node.Content[i+1].Decode(&d); err != nil {
			return out, fmt.Errorf("interface %s: %w", node.Content[i].Value, err)
		}
		out = append(out, namedInterface{name: node.Content[i].Value, doc: d})
	}
	return out, nil
}

func addBGP(r *model.Router, b *bgpDoc) error {
	neighbors := make([]model.Neighbor, 0, len(b.Neighbors))
	for _, n := range b.Neighbors {
		nb, err := model.NewNeighbor(n.IPAddr, n.RemoteASN)
		if err != nil {
			return err
		}
		neighbors = append(neighbors, nb)
	}
	return r.AddBGP(b.RID, b.ASN, neighbors)
}
