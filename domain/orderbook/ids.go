package orderbook

// IDGenerator hands out strictly increasing identifiers. Orders and trades
// draw their ids from an injected generator so independent engines (and
// tests) never share counter state.
type IDGenerator interface {
	Next() uint64
}
