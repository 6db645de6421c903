// Package kennel holds the domain entity (Dog) and the epoch-protected
// list that stores dogs in insertion order.
//
// The list is single-writer at a time and lock-free for readers, with
// removed dogs reclaimed through infra/memory once no reader can still
// observe them.
package kennel
