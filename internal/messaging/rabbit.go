// internal/messaging/rabbit.go
package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"tenantcore/internal/metrics"
	"tenantcore/internal/model"
)

// InvitationQueue is the durable queue the mail worker consumes. The core
// only emits invitation records; formatting and delivery happen elsewhere.
const InvitationQueue = "tenant_invitation_emails"

// invitationRecord is the wire shape handed to the mail worker.
type invitationRecord struct {
	Token      string    `json:"token"`
	Email      string    `json:"email"`
	TenantName string    `json:"tenant_name"`
	Role       string    `json:"role"`
	Message    string    `json:"message,omitempty"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type Notifier struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	log     *zap.Logger
}

func NewNotifier(url string, log *zap.Logger) (*Notifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	if _, err := ch.QueueDeclare(
		InvitationQueue,
		true, false, false, false,
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare invitation queue: %w", err)
	}

	return &Notifier{conn: conn, channel: ch, log: log}, nil
}

// PublishInvitation emits an invitation record for the mail worker.
func (n *Notifier) PublishInvitation(inv *model.Invitation, tenantName string) error {
	body, err := json.Marshal(invitationRecord{
		Token:      inv.Token,
		Email:      inv.Email,
		TenantName: tenantName,
		Role:       string(inv.Role),
		Message:    inv.Message,
		ExpiresAt:  inv.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("encode invitation record: %w", err)
	}

	err = n.channel.Publish(
		"",              // default exchange
		InvitationQueue, // routing key (queue name)
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish invitation record: %w", err)
	}
	return nil
}

// UpdateQueueDepth refreshes the notifier queue depth gauge.
func (n *Notifier) UpdateQueueDepth() {
	q, err := n.channel.QueueInspect(InvitationQueue)
	if err != nil {
		n.log.Warn("failed to inspect invitation queue", zap.Error(err))
		return
	}
	metrics.NotifierQueueDepth.Set(float64(q.Messages))
}

// Close cleans up connection and channel
func (n *Notifier) Close() error {
	if err := n.channel.Close(); err != nil {
		return err
	}
	if err := n.conn.Close(); err != nil {
		return err
	}
	return nil
}
