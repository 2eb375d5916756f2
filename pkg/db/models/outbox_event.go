package models

import (
	"encoding/json"
	"time"

	"github.com/angelmondragon/storefront-api/pkg/enums"
)

// OutboxEvent is a pending or delivered domain event. Rows are inserted in
// the transaction that made the change and are never edited except by the
// publisher's bookkeeping below.
type OutboxEvent struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index:idx_outbox_events_unpublished"`

	EventType     enums.OutboxEventType     `gorm:"column:event_type;type:text;not null"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;type:text;not null"`
	AggregateID   uint                      `gorm:"column:aggregate_id;not null"`
	Payload       json.RawMessage           `gorm:"column:payload;type:jsonb;not null"`

	// Publisher bookkeeping. A row is due while PublishedAt is nil and
	// AttemptCount is under the configured maximum.
	PublishedAt  *time.Time `gorm:"column:published_at;index:idx_outbox_events_published_at"`
	AttemptCount int        `gorm:"column:attempt_count;not null;default:0"`
	LastError    *string    `gorm:"column:last_error"`
}
