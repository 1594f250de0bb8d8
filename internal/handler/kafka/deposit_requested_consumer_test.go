package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"banking/internal/app/banking"
	"banking/internal/domain/event"
)

type recordingService struct {
	banking.BankingService
	calls []event.DepositRequestedEvent
	err   error
}

func (s *recordingService) ProcessDepositRequest(_ context.Context, _ string, evt event.DepositRequestedEvent, _ []byte) error {
	s.calls = append(s.calls, evt)
	return s.err
}

func TestDepositRequestedMessageHandler(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		svcErr    error
		wantCalls int
		wantErr   bool
	}{
		{"valid", `{"event_id":"e1","account_id":3,"amount":"12.50","description":"payroll"}`, nil, 1, false},
		{"malformed", `{not json`, nil, 0, false},
		{"missing event id", `{"account_id":3,"amount":"1"}`, nil, 0, false},
		{"service failure", `{"event_id":"e2","account_id":3,"amount":"1"}`, errors.New("db down"), 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &recordingService{err: tt.svcErr}
			handler := DepositRequestedMessageHandler(svc, zap.NewNop())

			err := handler(context.Background(), kafka.Message{Topic: "deposit_requests", Value: []byte(tt.value)})
			if (err != nil) != tt.wantErr {
				t.Fatalf("handler() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(svc.calls) != tt.wantCalls {
				t.Fatalf("service called %d times, want %d", len(svc.calls), tt.wantCalls)
			}
			if tt.wantCalls == 1 && tt.name == "valid" && svc.calls[0].Amount.StringFixed(2) != "12.50" {
				t.Fatalf("amount = %s", svc.calls[0].Amount)
			}
		})
	}
}
