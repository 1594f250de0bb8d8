package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"banking/internal/domain"
	"banking/internal/domain/event"
	"banking/internal/util"
)

// NewLedgerEntryCompletedMessage builds the outbox row announcing a completed
// ledger entry. The reference code is both aggregate id and partition key.
func NewLedgerEntryCompletedMessage(txn *domain.Transaction, currency, topic string) (*domain.OutboxMessage, error) {
	if txn.CompletedAt == nil {
		return nil, fmt.Errorf("ledger entry %s is not completed", txn.ReferenceNumber)
	}
	evt := event.LedgerEntryCompletedEvent{
		EventID:           util.GenerateUUID(),
		ReferenceNumber:   txn.ReferenceNumber,
		Type:              string(txn.Type),
		FromAccountNumber: txn.FromAccountNumber,
		ToAccountNumber:   txn.ToAccountNumber,
		Amount:            txn.Amount,
		Currency:          currency,
		CompletedAt:       *txn.CompletedAt,
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ledger event %s: %w", txn.ReferenceNumber, err)
	}
	return &domain.OutboxMessage{
		ID:            evt.EventID,
		AggregateID:   txn.ReferenceNumber,
		AggregateType: domain.AggregateTypeLedgerEntry,
		MessageType:   event.TypeLedgerEntryCompleted,
		Topic:         topic,
		Key:           txn.ReferenceNumber,
		Payload:       payload,
		Status:        domain.OutboxStatusPending,
		CreatedAt:     time.Now().UTC(),
	}, nil
}
