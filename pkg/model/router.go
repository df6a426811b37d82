package model

import (
	"fmt"
	"net/netip"

	"github.com/newtron-network/newtboot/pkg/util"
)

// Router aggregates everything newtboot knows about one device. It owns its
// interfaces exclusively.
type Router struct {
	Hostname   string
	MgmtIP     netip.Prefix
	Vendor     string
	OS         string
	Interfaces []*Interface
	BGP        BGP
}

// BGP is the router's BGP block
type BGP struct {
	RouterID  netip.Addr
	ASN       uint32
	Neighbors []Neighbor
}

// Neighbor is one BGP peer
type Neighbor struct {
	Address   netip.Addr
	RemoteASN uint32
}

// NewNeighbor parses a neighbor address and validates the remote ASN
func NewNeighbor(address string, remoteASN int64) (Neighbor, error) {
	addr, err := util.ParseIPv4Addr(address)
	if err != nil {
		return Neighbor{}, fmt.Errorf("bgp neighbor: %w", err)
	}
	if err := util.ValidateASN(remoteASN); err != nil {
		return Neighbor{}, fmt.Errorf("bgp neighbor %s: %w", address, err)
	}
	return Neighbor{Address: addr, RemoteASN: uint32(remoteASN)}, nil
}

// NewRouter creates a router with no interfaces and an empty BGP block.
// mgmt may be a bare address or address/len.
func NewRouter(hostname, mgmt, vendor, os string) (*Router, error) {
	if hostname == "" {
		return nil, fmt.Errorf("%w: hostname is required", util.ErrInvalidConfig)
	}
	p, err := util.ParseIPv4Prefix(mgmt)
	if err != nil {
		return nil, fmt.Errorf("%s mgmt: %w", hostname, err)
	}
	return &Router{
		Hostname: hostname,
		MgmtIP:   p,
		Vendor:   vendor,
		OS:       os,
	}, nil
}

// AddInterface appends a new interface. Names are not checked for
// duplicates; a repeated name adds a second interface.
func (r *Router) AddInterface(name, address, description string, status Status) error {
	iface, err := NewInterface(name, address, description, status)
	if err != nil {
		return fmt.Errorf("%s: %w", r.Hostname, err)
	}
	r.Interfaces = append(r.Interfaces, iface)
	return nil
}

// InterfacesEmpty reports whether the router has no interfaces
func (r *Router) InterfacesEmpty() bool {
	return len(r.Interfaces) == 0
}

// UpInterfaces returns interfaces with status up, in order
func (r *Router) UpInterfaces() []*Interface {
	var up []*Interface
	for _, iface := range r.Interfaces {
		if iface.IsUp() {
			up = append(up, iface)
		}
	}
	return up
}

// AddBGP replaces the BGP block wholesale
func (r *Router) AddBGP(routerID string, asn int64, neighbors []Neighbor) error {
	rid, err := util.ParseIPv4Addr(routerID)
	if err != nil {
		return fmt.Errorf("%s bgp rid: %w", r.Hostname, err)
	}
	if err := util.ValidateASN(asn); err != nil {
		return fmt.Errorf("%s bgp: %w", r.Hostname, err)
	}
	r.BGP = BGP{
		RouterID:  rid,
		ASN:       uint32(asn),
		Neighbors: append([]Neighbor(nil), neighbors...),
	}
	return nil
}

// HasBGP reports whether AddBGP has been called
func (r *Router) HasBGP() bool {
	return r.BGP.ASN != 0
}

// MgmtHost returns the management address without prefix length
func (r *Router) MgmtHost() string {
	return r.MgmtIP.Addr().String()
}

// DeviceInfo returns a summary for logging and display
func (r *Router) DeviceInfo() string {
	return fmt.Sprintf("\nHostname: %s\nVendor: %s\nOS: %s\nMGMT IP: %s\n# of Interfaces: %d",
		r.Hostname, r.Vendor, r.OS, r.MgmtIP, len(r.Interfaces))
}
