package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"nexuspos/internal/pkg/logger"
	"nexuspos/internal/pkg/metrics"
	"nexuspos/internal/pkg/mq"
	"nexuspos/internal/service/report/domain"
	saledomain "nexuspos/internal/service/sale/domain"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// 投影结果标签
const (
	ResultApplied   = "applied"
	ResultDuplicate = "duplicate"
	ResultInvalid   = "invalid"
	ResultFailed    = "failed"
)

// ErrPoisonMessage 表示消息本身无法处理，重试没有意义
var ErrPoisonMessage = errors.New("poison message")

// MessageReader 是 *kafka.Reader 中消费循环用到的部分
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// DeadLetterer 接收处理失败的消息，mq.FailureHandler 实现了它
type DeadLetterer interface {
	Handle(ctx context.Context, msg kafka.Message, cause error) error
}

// Broadcaster 把实时更新推给看板
type Broadcaster interface {
	Broadcast(payload []byte)
}

// Projector 消费 SaleCompleted 事件，累加当天实时汇总并推送给看板。
type Projector struct {
	projection  domain.LiveProjection
	hub         Broadcaster // 可为 nil
	deadLetters DeadLetterer
	tracer      trace.Tracer
	loc         *time.Location

	maxAttempts int
	backoff     time.Duration
}

func NewProjector(projection domain.LiveProjection, deadLetters DeadLetterer, tracer trace.Tracer, loc *time.Location) *Projector {
	if loc == nil {
		loc = time.UTC
	}
	return &Projector{
		projection:  projection,
		deadLetters: deadLetters,
		tracer:      tracer,
		loc:         loc,
		maxAttempts: 3,
		backoff:     200 * time.Millisecond,
	}
}

func (p *Projector) WithBroadcaster(b Broadcaster) *Projector {
	p.hub = b
	return p
}

// WithRetry 设置投影失败时的重试次数和间隔
func (p *Projector) WithRetry(attempts int, backoff time.Duration) *Projector {
	if attempts < 1 {
		attempts = 1
	}
	p.maxAttempts = attempts
	p.backoff = backoff
	return p
}

// Run 循环消费直到 ctx 结束。
// 每条消息处理完（成功、重复或转入死信）才提交 offset；死信也写不进去时停止消费，交给重启后重放。
func (p *Projector) Run(ctx context.Context, reader MessageReader) error {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Ctx(ctx).Error().Err(err).Msg("could not fetch message")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(p.backoff):
			}
			continue
		}

		if err := p.process(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Ctx(ctx).Error().Err(err).Int64("offset", msg.Offset).Msg("failed to commit offset")
		}
	}
}

func (p *Projector) process(ctx context.Context, msg kafka.Message) error {
	var err error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err = p.Handle(ctx, msg); err == nil || errors.Is(err, ErrPoisonMessage) {
			break
		}
		if attempt < p.maxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.backoff * time.Duration(attempt)):
			}
		}
	}
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrPoisonMessage) {
		metrics.ProjectionEvents.WithLabelValues(ResultInvalid).Inc()
	} else {
		metrics.ProjectionEvents.WithLabelValues(ResultFailed).Inc()
	}
	if dlErr := p.deadLetters.Handle(ctx, msg, err); dlErr != nil {
		return fmt.Errorf("dead letter for offset %d: %w", msg.Offset, dlErr)
	}
	return nil
}

// Handle 处理一条消息。解码失败返回 ErrPoisonMessage。
func (p *Projector) Handle(ctx context.Context, msg kafka.Message) error {
	ctx = mq.ExtractTraceContext(ctx, msg.Headers)
	ctx, span := p.tracer.Start(ctx, "report.ProjectSale",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
			attribute.Int("messaging.kafka.partition", msg.Partition),
			attribute.Int64("messaging.kafka.message.offset", msg.Offset),
			attribute.String("messaging.kafka.message.key", string(msg.Key)),
		),
	)
	defer span.End()

	var ev saledomain.SaleCompleted
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		err = fmt.Errorf("%w: %v", ErrPoisonMessage, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		return err
	}
	if ev.SaleID == "" {
		err := fmt.Errorf("%w: missing sale_id", ErrPoisonMessage)
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		return err
	}
	span.SetAttributes(attribute.String("sale.id", ev.SaleID))

	applied, err := p.projection.Apply(ctx, &ev)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "projection failed")
		logger.Ctx(ctx).Warn().Err(err).Str("sale", ev.SaleID).Msg("Failed to apply sale to live projection")
		return err
	}
	if !applied {
		metrics.ProjectionEvents.WithLabelValues(ResultDuplicate).Inc()
		span.AddEvent("Duplicate sale event ignored.")
		logger.Ctx(ctx).Debug().Str("sale", ev.SaleID).Msg("Duplicate sale event ignored")
		return nil
	}
	metrics.ProjectionEvents.WithLabelValues(ResultApplied).Inc()
	span.AddEvent("Sale applied to live projection.")

	p.broadcast(ctx, &ev)
	return nil
}

// broadcast 推送失败不影响投影结果
func (p *Projector) broadcast(ctx context.Context, ev *saledomain.SaleCompleted) {
	if p.hub == nil {
		return
	}
	date := ev.OccurredAt.In(p.loc).Format(domain.DateLayout)
	today, err := p.projection.Snapshot(ctx, date)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("date", date).Msg("Failed to read live snapshot for broadcast")
		today = nil
	}
	payload, err := json.Marshal(domain.NewLiveUpdate(ev, today))
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("sale", ev.SaleID).Msg("Failed to encode live update")
		return
	}
	p.hub.Broadcast(payload)
}
