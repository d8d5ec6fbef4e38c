package kafka_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tierbook/domain/orderbook"
	"tierbook/infra/codec"
	"tierbook/infra/kafka"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestProducerPublishesTrades(t *testing.T) {
	w := &fakeWriter{}
	p := kafka.NewProducerWithWriter(w)
	inst := orderbook.MustInstrument("MSFT")
	ledger := orderbook.NewTradeLedger(inst, p)

	require.NoError(t, ledger.AddTrade(&orderbook.Trade{
		ID: 11, Instrument: inst, Quantity: 3, Price: decimal.NewFromInt(42), CreatedAt: time.Now(),
	}))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "MSFT", string(w.msgs[0].Key))
	tr, err := codec.DecodeTrade(w.msgs[0].Value)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), tr.Quantity)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducerWrapsWriteError(t *testing.T) {
	boom := errors.New("leader not available")
	p := kafka.NewProducerWithWriter(&fakeWriter{err: boom})

	err := p.Add(&orderbook.Trade{ID: 1, Instrument: orderbook.MustInstrument("MSFT"), Quantity: 1, Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "trade 1")
}
