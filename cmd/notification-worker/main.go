// cmd/notification-worker/main.go
package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"orderflow/internal/pkg/bootstrap"
	"orderflow/internal/pkg/logger"
	"orderflow/internal/pkg/mq"
	"orderflow/internal/pkg/tracing"
	"orderflow/internal/service/approval/domain"
)

const (
	serviceName     = "notification-worker"
	consumerGroupID = "notification-worker-group"
)

var tracer = otel.Tracer(serviceName)

// notification-worker 消费审批流产生的通知事件并投递给用户。
// 投递是 best-effort 的：单条失败只记日志，不中断消费循环。
func main() {
	logger.Init(serviceName)

	cfg, err := bootstrap.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Ctx(context.Background()).Fatal().Err(err).Msg("failed to load config")
	}

	tp, err := tracing.InitTracerProvider(serviceName, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		logger.Ctx(context.Background()).Fatal().Err(err).Msg("failed to initialize tracer provider")
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Ctx(context.Background()).Error().Err(err).Msg("error shutting down tracer provider")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reader := mq.NewKafkaReader(
		strings.Split(cfg.Infra.Kafka.Brokers, ","),
		cfg.Infra.Kafka.NotificationTopic,
		consumerGroupID,
	)
	defer reader.Close()

	logger.Ctx(ctx).Info().
		Str("topic", cfg.Infra.Kafka.NotificationTopic).
		Msg("notification worker started")

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Ctx(ctx).Info().Msg("notification worker shutting down")
				return
			}
			logger.Ctx(ctx).Error().Err(err).Msg("could not read message")
			continue
		}
		processNotification(msg)
	}
}

// processNotification 处理单条通知事件，追踪上下文从消息头恢复，
// 使投递动作链接到上游审批操作的追踪链路。
func processNotification(msg kafka.Message) {
	ctx := mq.ExtractTraceContext(context.Background(), msg.Headers)

	ctx, span := tracer.Start(ctx, "notification.Deliver",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
			attribute.Int("messaging.kafka.partition", msg.Partition),
			attribute.Int64("messaging.kafka.message.offset", msg.Offset),
		),
	)
	defer span.End()

	var event domain.NotificationEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("failed to unmarshal notification event")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetAttributes(
		attribute.String("order.id", event.OrderID),
		attribute.String("notification.kind", string(event.Kind)),
	)

	// TODO: 接入真实的推送渠道（邮件/短信），当前仅落日志
	logger.Ctx(ctx).Info().
		Str("event_id", event.EventID).
		Str("order_id", event.OrderID).
		Str("owner_id", event.OwnerID).
		Str("kind", string(event.Kind)).
		Str("message", event.Message).
		Msg("notification delivered")
	span.AddEvent("Notification delivered.")
}
