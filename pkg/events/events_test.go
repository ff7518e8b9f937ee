package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEventKeyAndPayload(t *testing.T) {
	e := New(OrderViolated, 12, 3).WithAmount(decimal.RequireFromString("5.00"))
	require.Equal(t, "order-12", e.Key())

	raw, err := e.Marshal()
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, OrderViolated, decoded["type"])
	require.Equal(t, "5", decoded["amount"])

	require.Equal(t, "party-3", New(WithdrawalCompleted, 0, 3).Key())
}

func TestNewKafkaPublisherValidation(t *testing.T) {
	_, err := NewKafkaPublisher(nil, "ads")
	require.Error(t, err)
	_, err = NewKafkaPublisher([]string{"localhost:9092"}, "")
	require.Error(t, err)
}

func TestEmitRecords(t *testing.T) {
	var r Recorder
	Emit(context.Background(), &r, zap.NewNop(), New(OrderPaid, 1, 2))
	Emit(context.Background(), nil, zap.NewNop(), New(OrderPaid, 1, 2))
	require.Equal(t, []string{OrderPaid}, r.Types())
}
