// Package backbone models the Backbone Router collaborators of the DUA
// manager: the Domain Prefix lifecycle and the Primary Backbone Router
// lifecycle, together with the observer interfaces through which those
// topology changes are delivered.
//
// Electing the Primary Backbone Router and distributing its service data
// are out of scope; this package only carries the decoded results.
//
// # Observers
//
// The notifier delivers topology changes through small, explicit observer
// interfaces. A component registers for exactly the notifications it
// handles; there is no privileged access between the notifier and its
// observers.
package backbone
