package banking

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"banking/internal/domain"
)

func (s *bankingService) ListBeneficiaries(ctx context.Context, userID int64) ([]*domain.Beneficiary, error) {
	return s.beneficiaryRepo.ListByUserTx(ctx, s.db, userID)
}

func (s *bankingService) CreateBeneficiary(ctx context.Context, beneficiary *domain.Beneficiary) (*domain.Beneficiary, error) {
	beneficiary.Name = strings.TrimSpace(beneficiary.Name)
	if beneficiary.Name == "" {
		return nil, domain.NewError(domain.ErrInvalidOperation, "beneficiary name is required")
	}
	if !domain.IsValidAccountNumber(beneficiary.AccountNumber) {
		return nil, domain.NewError(domain.ErrInvalidOperation, "account number must be %d digits", domain.AccountNumberLength)
	}
	if strings.TrimSpace(beneficiary.BankName) == "" {
		beneficiary.BankName = domain.DefaultBankName
	}
	beneficiary.CreatedAt = time.Now().UTC()

	if err := s.beneficiaryRepo.CreateTx(ctx, s.db, beneficiary); err != nil {
		s.logFailure("Failed to create beneficiary", err, zap.Int64("user_id", beneficiary.UserID))
		return nil, err
	}
	s.logger.Info("Beneficiary created", zap.Int64("user_id", beneficiary.UserID), zap.Int64("beneficiary_id", beneficiary.ID))
	return beneficiary, nil
}

func (s *bankingService) DeleteBeneficiary(ctx context.Context, userID, beneficiaryID int64) error {
	if err := s.beneficiaryRepo.DeleteTx(ctx, s.db, userID, beneficiaryID); err != nil {
		s.logFailure("Failed to delete beneficiary", err, zap.Int64("beneficiary_id", beneficiaryID))
		return err
	}
	s.logger.Info("Beneficiary deleted", zap.Int64("user_id", userID), zap.Int64("beneficiary_id", beneficiaryID))
	return nil
}
