package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"orderflow/internal/pkg/mq"
	"orderflow/internal/service/approval/domain"
)

// NotificationKafkaAdapter 实现了 port.NotificationProducer 接口。
// 通知网关的真正投递（邮件/站内信）由下游消费者完成，这里只负责把
// 领域事件可靠地发到通知主题。
type NotificationKafkaAdapter struct {
	writer *kafka.Writer
}

// NewNotificationKafkaAdapter 创建一个新的通知生产者适配器。
func NewNotificationKafkaAdapter(writer *kafka.Writer) *NotificationKafkaAdapter {
	return &NotificationKafkaAdapter{writer: writer}
}

// NotifyOrderSubmitted 发送订单提交成功的通知。
func (a *NotificationKafkaAdapter) NotifyOrderSubmitted(ctx context.Context, order *domain.Order) error {
	message := fmt.Sprintf("Your order %s (total %.2f) has been submitted and is awaiting review.", order.ID, order.Total)
	return a.send(ctx, domain.NotificationOrderSubmitted, order, message, "")
}

// NotifyApproved 发送审批通过的通知，备注取自裁决记录。
func (a *NotificationKafkaAdapter) NotifyApproved(ctx context.Context, order *domain.Order) error {
	message := fmt.Sprintf("Your order %s has been approved. You can now proceed to payment.", order.ID)
	return a.send(ctx, domain.NotificationOrderApproved, order, message, decisionRemarks(order))
}

// NotifyRejected 发送审批拒绝的通知，备注取自裁决记录。
func (a *NotificationKafkaAdapter) NotifyRejected(ctx context.Context, order *domain.Order) error {
	message := fmt.Sprintf("Your order %s has been rejected.", order.ID)
	return a.send(ctx, domain.NotificationOrderRejected, order, message, decisionRemarks(order))
}

func (a *NotificationKafkaAdapter) send(ctx context.Context, kind domain.NotificationKind,
	order *domain.Order, message, remarks string) error {
	event := domain.NotificationEvent{
		EventID: uuid.New().String(),
		Kind:    kind,
		OrderID: order.ID,
		OwnerID: order.OwnerID,
		Message: message,
		Remarks: remarks,
		At:      time.Now().UTC(),
	}
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal notification event: %w", err)
	}
	// 以 OwnerID 为 key，同一用户的通知保持分区内有序；追踪上下文随消息头注入
	return mq.ProduceMessage(ctx, a.writer, []byte(order.OwnerID), eventBytes)
}

func decisionRemarks(order *domain.Order) string {
	if order.Decision == nil {
		return ""
	}
	return order.Decision.Remarks
}

// Close 关闭底层的 Kafka writer。
func (a *NotificationKafkaAdapter) Close() error {
	return a.writer.Close()
}
