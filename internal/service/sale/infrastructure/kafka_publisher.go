package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"

	"nexuspos/internal/pkg/mq"
	"nexuspos/internal/service/sale/domain"
)

// KafkaSalePublisher 实现了 port.SalePublisher，以销售单 ID 作为消息 key。
type KafkaSalePublisher struct {
	writer mq.MessageWriter
}

func NewKafkaSalePublisher(writer mq.MessageWriter) *KafkaSalePublisher {
	return &KafkaSalePublisher{writer: writer}
}

func (p *KafkaSalePublisher) PublishSaleCompleted(ctx context.Context, ev *domain.SaleCompleted) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal sale completed event: %w", err)
	}
	// mq.ProduceMessage 会注入追踪上下文
	return mq.ProduceMessage(ctx, p.writer, []byte(ev.SaleID), value)
}

func (p *KafkaSalePublisher) Close() error {
	return p.writer.Close()
}
