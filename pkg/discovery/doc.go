// Package discovery advertises and locates Backbone Routers on the
// adjacent infrastructure link via mDNS/DNS-SD.
//
// A Backbone Router announces the "_meshbbr._udp" service with its
// registration port and service data (sequence number, re-registration
// delay, network name) in TXT records. Devices browse for the service to
// find the Primary and feed the result into the DUA manager's topology
// observers.
package discovery
