// Package messaging publishes vault domain events durably, combining
// the teacher's outbox model (order/infrastructure/messaging) with
// actual delivery over pkg/mq's Kafka producer instead of the
// teacher's own stubbed "send" in ProcessOutboxMessages.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	vaultdomain "github.com/wyfcoding/vaultengine/internal/vault/domain"
	"github.com/wyfcoding/vaultengine/pkg/mq"
)

const topic = "vault-events"

// OutboxMessage is a durably-written, at-least-once delivery record for
// a single vault event.
type OutboxMessage struct {
	ID        string    `gorm:"type:varchar(36);primary_key"`
	EventID   string    `gorm:"type:varchar(36);index"`
	EventType string    `gorm:"type:varchar(64);index"`
	Vault     string    `gorm:"type:varchar(40);index"`
	Payload   string    `gorm:"type:text"`
	Status    string    `gorm:"type:varchar(20);index;default:'pending'"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// TableName matches the rest of the vault schema's snake_case naming.
func (OutboxMessage) TableName() string {
	return "vault_outbox_messages"
}

// Publisher writes every event to the outbox table first, then
// publishes it to Kafka and marks it sent. A crash between the two
// leaves the event "pending" for Flush to retry, giving at-least-once
// delivery without a two-phase commit.
type Publisher struct {
	db       *gorm.DB
	producer *mq.KafkaProducer
}

// New returns an outbox-backed publisher over db and producer.
func New(db *gorm.DB, producer *mq.KafkaProducer) *Publisher {
	return &Publisher{db: db, producer: producer}
}

// Publish records and sends a single vault event.
func (p *Publisher) Publish(ctx context.Context, event vaultdomain.Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	message := OutboxMessage{
		ID:        uuid.NewString(),
		EventID:   uuid.NewString(),
		EventType: event.Type,
		Vault:     fmt.Sprintf("%x", event.Vault),
		Payload:   string(payload),
		Status:    "pending",
	}
	if err := p.db.WithContext(ctx).Create(&message).Error; err != nil {
		return fmt.Errorf("write outbox message: %w", err)
	}

	if err := p.send(ctx, message); err != nil {
		// Left pending; Flush retries it later.
		return nil
	}
	return nil
}

func (p *Publisher) send(ctx context.Context, message OutboxMessage) error {
	err := p.producer.SendMessage(ctx, topic, message.Vault, message)
	if err != nil {
		return err
	}
	return p.db.WithContext(ctx).Model(&OutboxMessage{}).Where("id = ?", message.ID).
		Update("status", "sent").Error
}

// Flush retries delivery of every message still pending, for the
// keeper's background sweep.
func (p *Publisher) Flush(ctx context.Context, batchSize int) error {
	var messages []OutboxMessage
	if err := p.db.WithContext(ctx).Where("status = ?", "pending").Limit(batchSize).Find(&messages).Error; err != nil {
		return fmt.Errorf("list pending outbox messages: %w", err)
	}
	for _, message := range messages {
		if err := p.send(ctx, message); err != nil {
			return fmt.Errorf("resend outbox message %s: %w", message.ID, err)
		}
	}
	return nil
}

// Cleanup removes sent messages older than before, bounding table
// growth the way the teacher's CleanupProcessedMessages does.
func (p *Publisher) Cleanup(ctx context.Context, before time.Time) error {
	return p.db.WithContext(ctx).Where("status = ? AND updated_at < ?", "sent", before).
		Delete(&OutboxMessage{}).Error
}
