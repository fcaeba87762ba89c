// Fiscus - Offline-First Financial Record Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fiscus

package connectivity

import "net"

// SystemFlag reports the OS-level notion of being connected. It is
// necessary but not sufficient: a true value still needs probe
// corroboration, while a false value is immediately trusted as offline.
type SystemFlag interface {
	Up() bool
}

// InterfaceFlag implements SystemFlag by checking for at least one
// non-loopback network interface that is up and has an address.
type InterfaceFlag struct{}

// Up reports whether any usable interface exists.
func (InterfaceFlag) Up() bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		// Can't enumerate interfaces; assume up and let probes decide.
		return true
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err == nil && len(addrs) > 0 {
			return true
		}
	}
	return false
}

// StaticFlag is a fixed SystemFlag for tests and embedding hosts that
// receive connectivity callbacks from their platform.
type StaticFlag bool

// Up returns the fixed value.
func (f StaticFlag) Up() bool { return bool(f) }
