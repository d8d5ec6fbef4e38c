// Package orderbook implements the single-instrument matching core:
// orders and trades, the price-time ordered resting collections for
// each side, the matching algorithm and the trade ledger.
//
// The package is pure. It never logs, never spawns goroutines and
// never imports infrastructure. Concurrency policy lives in the
// service package; the only locks here are the list-local and
// ledger-local exclusion scopes that keep each collection consistent
// on its own.
package orderbook
