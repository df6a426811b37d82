// Package model defines the in-memory device models built from the inventory.
package model

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"github.com/newtron-network/newtboot/pkg/util"
)

// ErrNoPeer is returned when an interface's subnet has no other usable host.
var ErrNoPeer = errors.New("no point-to-point peer in subnet")

// Status is the administrative state of an interface
type Status string

const (
	StatusUp   Status = "up"
	StatusDown Status = "down"
)

// ParseStatus maps an inventory state string to a Status. Empty means down.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return StatusDown, nil
	case "up":
		return StatusUp, nil
	case "down":
		return StatusDown, nil
	default:
		return "", fmt.Errorf("%w: interface state must be 'up' or 'down', got %q", util.ErrInvalidConfig, s)
	}
}

// Interface represents one routed interface on a router
type Interface struct {
	Name        string
	Address     netip.Prefix // host address + prefix length, not masked
	Description string
	Status      Status
}

// NewInterface creates an interface from "a.b.c.d/len". A zero status is down.
func NewInterface(name, address, description string, status Status) (*Interface, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: interface name is required", util.ErrInvalidConfig)
	}
	p, err := util.ParseIPv4Prefix(address)
	if err != nil {
		return nil, fmt.Errorf("interface %s: %w", name, err)
	}
	if status == "" {
		status = StatusDown
	}
	if status != StatusUp && status != StatusDown {
		return nil, fmt.Errorf("%w: interface %s: bad status %q", util.ErrInvalidConfig, name, status)
	}
	return &Interface{
		Name:        name,
		Address:     p,
		Description: description,
		Status:      status,
	}, nil
}

// IP returns the interface's host address
func (i *Interface) IP() netip.Addr {
	return i.Address.Addr()
}

// PrefixLen returns the prefix length
func (i *Interface) PrefixLen() int {
	return i.Address.Bits()
}

// Netmask returns the dotted netmask
func (i *Interface) Netmask() netip.Addr {
	return util.Netmask(i.Address.Bits())
}

// Network returns the interface's subnet
func (i *Interface) Network() netip.Prefix {
	return i.Address.Masked()
}

// IsUp reports whether the interface is administratively up
func (i *Interface) IsUp() bool {
	return i.Status == StatusUp
}

// SetAddress replaces the interface address
func (i *Interface) SetAddress(p netip.Prefix) {
	i.Address = p
}

// Show renders a human-readable summary
func (i *Interface) Show() string {
	return fmt.Sprintf("name: %s\nip: %s\ndescription: %s\nstatus: %s",
		i.Name, i.Address, i.Description, i.Status)
}

func (i *Interface) String() string {
	return i.Name + " " + i.Address.String()
}

// P2PPeer returns the far end of a point-to-point link: the first usable
// host of the subnet, in ascending order, that is not this interface's own
// address. On subnets wider than a /30 this is simply the lowest non-self
// host, which is not necessarily a real neighbor.
func (i *Interface) P2PPeer() (netip.Addr, error) {
	peer, ok := util.FirstHostExcept(i.Address, i.IP())
	if !ok {
		return netip.Addr{}, fmt.Errorf("%s %s: %w", i.Name, i.Address, ErrNoPeer)
	}
	return peer, nil
}
