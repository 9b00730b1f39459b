package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFanoutContinuesPastFailures(t *testing.T) {
	boom := errors.New("boom")
	buf := NewBuffer(10)
	f := Fanout{
		SinkFunc(func(context.Context, Event) error { return boom }),
		nil,
		buf,
	}

	err := f.Emit(context.Background(), Event{Kind: KindSaleCompleted})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, buf.Events(), 1)
}

func TestBufferEvictsOldest(t *testing.T) {
	buf := NewBuffer(2)
	for i := 1; i <= 3; i++ {
		require.NoError(t, buf.Emit(context.Background(), Event{Kind: KindCustomerArrived, Day: i}))
	}
	events := buf.Events()
	require.Len(t, events, 2)
	assert.Equal(t, 2, events[0].Day)
	assert.Equal(t, 3, events[1].Day)
	assert.Len(t, buf.Of(KindCustomerArrived), 2)
	assert.Empty(t, buf.Of(KindSaleCompleted))
}

func TestLogSinkNeverFails(t *testing.T) {
	err := LogSink{}.Emit(context.Background(), Event{Kind: KindSaleCompleted, Amount: decimal.NewFromInt(3)})
	assert.NoError(t, err)
}

func TestEncodeMessage(t *testing.T) {
	msg, err := encodeMessage(Event{Kind: KindSaleCompleted, CustomerID: "c1", ItemID: "plushie_cat", Amount: decimal.NewFromInt(15)})
	require.NoError(t, err)
	assert.Equal(t, "c1", string(msg.Key))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "sale_completed", decoded["kind"])
	assert.Equal(t, "15", decoded["amount"])

	msg, err = encodeMessage(Event{Kind: KindShopOpened})
	require.NoError(t, err)
	assert.Equal(t, "shop_opened", string(msg.Key))
}
