// Package listingengine implements the fixed-price listing and atomic
// exchange engine: a registry of active listings, ordered precondition
// guards over a live external asset registry, and a settlement protocol
// that swaps asset ownership and payment as a unit.
//
// The module keeps domain/application logic decoupled from runtime/platform
// concerns through ports and adapter composition.
package listingengine
