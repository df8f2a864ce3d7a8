package main

import (
	"context"
	"errors"
	"sync"
	"testing"

	model "github.com/glkeru/loyalty/stamps/internal/models"
	services "github.com/glkeru/loyalty/stamps/internal/services"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type confirmCall struct {
	productID string
	success   bool
}

type failingQueue struct {
	mu    sync.Mutex
	calls []confirmCall
}

func (q *failingQueue) Processed(ctx context.Context, productID string, plan model.PlanID, success bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls = append(q.calls, confirmCall{productID, success})
	return errors.New("channel closed")
}

func TestPurchaseWorkerLogsFailedConfirm(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	// без валидатора подтверждение не проходит
	billing := services.NewBilling(nil, nil, nil, zap.NewNop())
	queue := &failingQueue{}

	msgs := make(chan amqp.Delivery, 1)
	msgs <- amqp.Delivery{Body: []byte(`{"productId":"fidelapp_pro_mensal","purchaseToken":"t1"}`)}
	close(msgs)

	wg := &sync.WaitGroup{}
	wg.Add(1)
	purchaseWorker(context.Background(), billing, wg, zap.New(core), msgs, queue)
	wg.Wait()

	require.Equal(t, []confirmCall{{"fidelapp_pro_mensal", false}}, queue.calls)
	entries := logs.FilterMessage("confirm publish").All()
	require.Len(t, entries, 1)
	require.Equal(t, "fidelapp_pro_mensal", entries[0].ContextMap()["product"])
}
