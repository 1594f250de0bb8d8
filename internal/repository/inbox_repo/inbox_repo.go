package inbox_repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"banking/internal/domain"
)

type inboxRepository struct{}

func NewInboxRepository() InboxRepository {
	return &inboxRepository{}
}

// CreateMessageTx returns domain.ErrMessageAlreadyProcessed when the event id
// was recorded before.
func (r *inboxRepository) CreateMessageTx(ctx context.Context, querier domain.Querier, msg *domain.InboxMessage) error {
	query := `
		INSERT INTO inbox_messages (id, topic, payload, status, error, received_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	var processedAt sql.NullTime
	if msg.ProcessedAt != nil {
		processedAt = sql.NullTime{Time: *msg.ProcessedAt, Valid: true}
	}

	_, err := querier.ExecContext(ctx, query,
		msg.ID,
		msg.Topic,
		string(msg.Payload),
		msg.Status,
		msg.Error,
		msg.ReceivedAt,
		processedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("inbox message %s: %w", msg.ID, domain.ErrMessageAlreadyProcessed)
		}
		return fmt.Errorf("failed to create inbox message: %w", err)
	}
	return nil
}

func (r *inboxRepository) UpdateStatusTx(ctx context.Context, querier domain.Querier, id string, status domain.InboxMessageStatus, reason string) error {
	query := `
		UPDATE inbox_messages
		SET status = $1, error = $2, processed_at = $3
		WHERE id = $4
	`
	res, err := querier.ExecContext(ctx, query, status, reason, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update inbox message status %s: %w", id, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for inbox message update: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("inbox message with id %s not found for status update", id)
	}
	return nil
}
