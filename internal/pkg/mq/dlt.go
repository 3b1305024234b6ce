package mq

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"nexuspos/internal/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// 死信消息携带的原始位置与失败原因。
const (
	HeaderOriginalTopic     = "x-original-topic"
	HeaderOriginalPartition = "x-original-partition"
	HeaderOriginalOffset    = "x-original-offset"
	HeaderErrorType         = "x-error-type"
	HeaderErrorMessage      = "x-error-message"
	HeaderFailedAt          = "x-failed-at"
)

// DLTTopic 返回 topic 对应的死信 topic 名。
func DLTTopic(topic string) string {
	return topic + ".dlt"
}

// FailureHandler 把处理失败的消息原样转发到死信 topic。
type FailureHandler struct {
	dltWriter MessageWriter
}

func NewFailureHandler(dltWriter MessageWriter) *FailureHandler {
	return &FailureHandler{dltWriter: dltWriter}
}

// Handle 转发失败消息。转发本身失败时只记录日志，由调用方决定是否继续提交 offset。
func (h *FailureHandler) Handle(ctx context.Context, msg kafka.Message, cause error) error {
	headers := make([]kafka.Header, 0, len(msg.Headers)+6)
	headers = append(headers, msg.Headers...)
	dlt := kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
		Headers: append(headers,
			kafka.Header{Key: HeaderOriginalTopic, Value: []byte(msg.Topic)},
			kafka.Header{Key: HeaderOriginalPartition, Value: []byte(strconv.Itoa(msg.Partition))},
			kafka.Header{Key: HeaderOriginalOffset, Value: []byte(strconv.FormatInt(msg.Offset, 10))},
			kafka.Header{Key: HeaderErrorType, Value: []byte(fmt.Sprintf("%T", cause))},
			kafka.Header{Key: HeaderErrorMessage, Value: []byte(cause.Error())},
			kafka.Header{Key: HeaderFailedAt, Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		),
	}

	if err := h.dltWriter.WriteMessages(ctx, dlt); err != nil {
		logger.Ctx(ctx).Error().Err(err).
			Str("original_topic", msg.Topic).
			Int64("original_offset", msg.Offset).
			Msg("CRITICAL: failed to forward message to dead letter topic")
		return err
	}

	logger.Ctx(ctx).Warn().Err(cause).
		Str("original_topic", msg.Topic).
		Int64("original_offset", msg.Offset).
		Msg("Message forwarded to dead letter topic")
	return nil
}
