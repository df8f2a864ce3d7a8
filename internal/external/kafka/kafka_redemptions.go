package stamps

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	conf "github.com/glkeru/loyalty/stamps/internal/config"
	model "github.com/glkeru/loyalty/stamps/internal/models"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Поток вставок в таблицу redemptions (CDC)
type KafkaRedemptions struct {
	reader *kafka.Reader
	logger *zap.Logger
}

// событие CDC: {"type":"INSERT","table":"redemptions","record":{...}}
type changeEvent struct {
	Type   string          `json:"type"`
	Table  string          `json:"table"`
	Record json.RawMessage `json:"record"`
}

func NewKafkaRedemptions(cfg conf.KafkaConfig, logger *zap.Logger) (*KafkaRedemptions, error) {
	if cfg.Brokers == "" {
		return nil, fmt.Errorf("env KAFKA_REDEMPTIONS_URL is not set")
	}
	kafkaconfig := kafka.ReaderConfig{
		Brokers: strings.Split(cfg.Brokers, ","),
		Topic:   cfg.Topic,
		GroupID: cfg.GroupID,
	}
	return &KafkaRedemptions{kafka.NewReader(kafkaconfig), logger}, nil
}

// Next returns the next inserted row. Messages that are not row inserts are skipped.
func (k *KafkaRedemptions) Next(ctx context.Context) (model.RedemptionRow, error) {
	for {
		msg, err := k.reader.ReadMessage(ctx)
		if err != nil {
			return model.RedemptionRow{}, err
		}
		row, ok, err := DecodeRow(msg.Value)
		if err != nil {
			k.logger.Warn("redemption message skipped",
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			continue
		}
		if !ok {
			continue
		}
		return row, nil
	}
}

func (k *KafkaRedemptions) Close() error {
	return k.reader.Close()
}

// DecodeRow accepts a bare row or a change event. ok is false for
// updates, deletes and other tables.
func DecodeRow(data []byte) (row model.RedemptionRow, ok bool, err error) {
	var ev changeEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return row, false, fmt.Errorf("decode message: %w", err)
	}
	payload := data
	if len(ev.Record) > 0 {
		if ev.Table != "" && ev.Table != "redemptions" {
			return row, false, nil
		}
		if ev.Type != "" && !strings.EqualFold(ev.Type, "INSERT") {
			return row, false, nil
		}
		payload = ev.Record
	}
	if err := json.Unmarshal(payload, &row); err != nil {
		return row, false, fmt.Errorf("decode row: %w", err)
	}
	if row.ID == "" {
		return row, false, fmt.Errorf("row without id: %w", model.ErrUnknownRow)
	}
	return row, true, nil
}
