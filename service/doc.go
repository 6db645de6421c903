// Package service orchestrates the kennel's core components: the
// epoch-protected list, the reclaimer and the evictor.
//
// It provides the insert, evict and snapshot operations used by the
// adapters, decoupled from transports like gRPC.
package service
