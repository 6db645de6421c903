// Package memory provides the low-level primitives for memory
// management and safe reclamation: a grace-period Domain that
// readers enter without locks, a Reclaimer that defers the release
// of retired objects until no reader can still observe them, and a
// typed Pool that released objects are returned to.
//
// The package has no third-party dependencies and forms the
// foundation for RCU-style reads in the kennel list.
package memory
