package stamps

import (
	"context"
	"encoding/json"

	conf "github.com/glkeru/loyalty/stamps/internal/config"
	model "github.com/glkeru/loyalty/stamps/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Подтверждения покупок из магазина приложений
type RabbitPurchases struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	Msg      <-chan amqp.Delivery
	chout    *amqp.Channel
	queueout string
}

func NewRabbitPurchases(cfg conf.RabbitConfig) (rabbit *RabbitPurchases, err error) {
	rabbitconn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	conn, err := amqp.Dial(rabbitconn)
	if err != nil {
		return nil, err
	}
	// канал для входящих
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	_, err = ch.QueueDeclare(
		cfg.PurchasesQueue, // name
		true,               // durable
		false,              // delete when unused
		false,              // exclusive
		false,              // no-wait
		nil,                // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	// канал для исходящих
	chout, err := conn.Channel()
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	_, err = chout.QueueDeclare(
		cfg.ConfirmsQueue, // name
		true,              // durable
		false,             // delete when unused
		false,             // exclusive
		false,             // no-wait
		nil,               // arguments
	)
	if err != nil {
		chout.Close()
		ch.Close()
		conn.Close()
		return nil, err
	}

	msg, err := ch.Consume(
		cfg.PurchasesQueue, // queue
		"",                 // consumer
		true,               // auto-ack
		false,              // exclusive
		false,              // no-local
		false,              // no-wait
		nil,                // args
	)
	if err != nil {
		chout.Close()
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &RabbitPurchases{conn, ch, msg, chout, cfg.ConfirmsQueue}, nil
}

func (r *RabbitPurchases) Close() {
	r.chout.Close()
	r.ch.Close()
	r.conn.Close()
}

// Тело сообщения покупки
func DecodePurchase(body []byte) (model.PurchaseConfirmation, error) {
	var p model.PurchaseConfirmation
	err := json.Unmarshal(body, &p)
	return p, err
}

type PurchaseConfirm struct {
	ProductID string       `json:"productId"`
	Plan      model.PlanID `json:"plan,omitempty"`
	Success   bool         `json:"success"`
}

// результат подтверждения покупки
func (r *RabbitPurchases) Processed(ctx context.Context, productID string, plan model.PlanID, success bool) error {
	msg, err := json.Marshal(&PurchaseConfirm{productID, plan, success})
	if err != nil {
		return err
	}
	return r.chout.PublishWithContext(ctx,
		"",         // exchange
		r.queueout, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        msg,
		})
}
