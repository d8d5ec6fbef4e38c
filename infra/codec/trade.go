// Package codec is the binary trade encoding shared by the journal, the
// outbox and the Kafka sinks. It is the protobuf wire format of
//
//	message Trade {
//	  uint64 id         = 1;
//	  string symbol     = 2;
//	  uint64 quantity   = 3;
//	  string price      = 4;
//	  int64  created_at = 5; // unix nanos
//	}
//
// written directly with protowire.
package codec

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/encoding/protowire"

	"tierbook/domain/orderbook"
)

const (
	fieldID        protowire.Number = 1
	fieldSymbol    protowire.Number = 2
	fieldQuantity  protowire.Number = 3
	fieldPrice     protowire.Number = 4
	fieldCreatedAt protowire.Number = 5
)

// EncodeTrade appends the encoding of t to b.
func EncodeTrade(b []byte, t *orderbook.Trade) []byte {
	b = protowire.AppendTag(b, fieldID, protowire.VarintType)
	b = protowire.AppendVarint(b, t.ID)
	b = protowire.AppendTag(b, fieldSymbol, protowire.BytesType)
	b = protowire.AppendString(b, t.Instrument.Symbol)
	b = protowire.AppendTag(b, fieldQuantity, protowire.VarintType)
	b = protowire.AppendVarint(b, t.Quantity)
	b = protowire.AppendTag(b, fieldPrice, protowire.BytesType)
	b = protowire.AppendString(b, t.Price.String())
	b = protowire.AppendTag(b, fieldCreatedAt, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(t.CreatedAt.UnixNano()))
	return b
}

// DecodeTrade parses one encoded trade. Unknown fields are skipped.
func DecodeTrade(b []byte) (*orderbook.Trade, error) {
	t := &orderbook.Trade{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("codec: tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldID && typ == protowire.VarintType:
			t.ID, n = protowire.ConsumeVarint(b)
		case num == fieldQuantity && typ == protowire.VarintType:
			t.Quantity, n = protowire.ConsumeVarint(b)
		case num == fieldCreatedAt && typ == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(b)
			t.CreatedAt = time.Unix(0, int64(v))
		case num == fieldSymbol && typ == protowire.BytesType:
			var s string
			s, n = protowire.ConsumeString(b)
			t.Instrument = orderbook.Instrument{Symbol: s}
		case num == fieldPrice && typ == protowire.BytesType:
			var s string
			s, n = protowire.ConsumeString(b)
			if n >= 0 {
				p, err := decimal.NewFromString(s)
				if err != nil {
					return nil, fmt.Errorf("codec: price %q: %w", s, err)
				}
				t.Price = p
			}
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return nil, fmt.Errorf("codec: field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]
	}

	if t.Instrument.IsZero() {
		return nil, &orderbook.ValidationError{Field: "instrument", Reason: "missing"}
	}
	return t, nil
}

// TradeKey is the message key for t: its instrument symbol, so a hash
// partitioner keeps one instrument's trades on one partition, in order.
func TradeKey(t *orderbook.Trade) []byte {
	return []byte(t.Instrument.Symbol)
}
