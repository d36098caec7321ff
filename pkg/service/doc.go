// Package service assembles the DUA building blocks into runnable
// processes.
//
// DeviceService wires a dua.Manager to persistent settings, the
// interface address table, a UDP transport endpoint and (optionally)
// mDNS discovery of the Backbone Router. BackboneService runs the other
// side: a registration server with a duplicate-detection registry and an
// mDNS announcement.
package service
