package orderbook

import "strings"

// Instrument identifies a traded symbol. Instruments compare by value.
type Instrument struct {
	Symbol string
}

// NewInstrument validates symbol and returns the instrument for it.
func NewInstrument(symbol string) (Instrument, error) {
	if strings.TrimSpace(symbol) == "" {
		return Instrument{}, &ValidationError{Field: "instrument", Reason: "empty symbol"}
	}
	return Instrument{Symbol: symbol}, nil
}

// MustInstrument is NewInstrument for static symbols. It panics on error.
func MustInstrument(symbol string) Instrument {
	inst, err := NewInstrument(symbol)
	if err != nil {
		panic(err)
	}
	return inst
}

func (i Instrument) IsZero() bool   { return i.Symbol == "" }
func (i Instrument) String() string { return i.Symbol }
