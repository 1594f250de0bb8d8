package banking_http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"banking/internal/app/banking"
	"banking/internal/domain"
	"banking/internal/statement"
)

type Handler struct {
	service banking.BankingService
	logger  *zap.Logger
	now     func() time.Time
}

func NewHandler(s banking.BankingService, l *zap.Logger) *Handler {
	return &Handler{service: s, logger: l, now: time.Now}
}

func (h *Handler) ListAccountsHandler(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context(), principal(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	resp := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		resp = append(resp, toAccountResponse(a))
	}
	h.respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) OpenAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req OpenAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondValidation(w, "invalid request body", decodeErrorFields(err))
		return
	}
	if fields := req.validate(); len(fields) > 0 {
		h.respondValidation(w, "invalid account request", fields)
		return
	}

	account, err := h.service.OpenAccount(r.Context(), principal(r),
		domain.AccountType(strings.ToUpper(req.AccountType)), strings.ToUpper(req.Currency))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, toAccountResponse(account))
}

func (h *Handler) GetAccountHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.respondValidation(w, "invalid account id", fieldErrors{"id": "must be a positive integer"})
		return
	}
	account, err := h.service.GetAccount(r.Context(), principal(r), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *Handler) UpdateAccountHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.respondValidation(w, "invalid account id", fieldErrors{"id": "must be a positive integer"})
		return
	}
	var req UpdateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondValidation(w, "invalid request body", decodeErrorFields(err))
		return
	}
	if fields := req.validate(); len(fields) > 0 {
		h.respondValidation(w, "invalid account update", fields)
		return
	}

	var update banking.AccountUpdate
	if req.Status != nil {
		status := domain.AccountStatus(strings.ToUpper(*req.Status))
		update.Status = &status
	}
	if req.AccountType != nil {
		accountType := domain.AccountType(strings.ToUpper(*req.AccountType))
		update.AccountType = &accountType
	}

	account, err := h.service.UpdateAccount(r.Context(), principal(r), id, update)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *Handler) GetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.respondValidation(w, "invalid account id", fieldErrors{"id": "must be a positive integer"})
		return
	}
	balance, err := h.service.GetBalance(r.Context(), principal(r), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, BalanceResponse{
		AccountNumber: balance.AccountNumber,
		Balance:       balance.Balance.StringFixed(domain.AmountScale),
		Currency:      balance.Currency,
	})
}

func (h *Handler) StatementHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.respondValidation(w, "invalid account id", fieldErrors{"id": "must be a positive integer"})
		return
	}
	account, entries, err := h.service.Statement(r.Context(), principal(r), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	pdf, err := statement.Render(account, entries, h.now())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+statement.Filename(account)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		h.logger.Error("Failed to write statement", zap.Int64("account_id", id), zap.Error(err))
	}
}

func (h *Handler) DepositHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.respondValidation(w, "invalid account id", fieldErrors{"id": "must be a positive integer"})
		return
	}
	var req DepositRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondValidation(w, "invalid request body", decodeErrorFields(err))
		return
	}
	if fields := req.validate(); len(fields) > 0 {
		h.respondValidation(w, "invalid deposit request", fields)
		return
	}

	if _, err := h.service.GetAccount(r.Context(), principal(r), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	txn, err := h.service.Deposit(r.Context(), id, req.Amount.Decimal, strings.TrimSpace(req.Description))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, toTransactionResponse(txn))
}

func (h *Handler) TransferHandler(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondValidation(w, "invalid request body", decodeErrorFields(err))
		return
	}
	if fields := req.validate(); len(fields) > 0 {
		h.respondValidation(w, "invalid transfer request", fields)
		return
	}

	txn, err := h.service.Transfer(r.Context(), banking.TransferRequest{
		FromAccountID:   req.FromAccountID,
		ToAccountNumber: req.ToAccountNumber,
		Amount:          req.Amount.Decimal,
		Description:     strings.TrimSpace(req.Description),
		UserID:          principal(r),
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, toTransactionResponse(txn))
}

func (h *Handler) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	filter := domain.TransactionFilter{UserID: principal(r)}
	fields := fieldErrors{}

	if raw := r.URL.Query().Get("account_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			fields.add("account_id", "must be a positive integer")
		} else {
			filter.AccountID = &id
		}
	}
	if raw := r.URL.Query().Get("type"); raw != "" {
		filter.Type = domain.TransactionType(strings.ToUpper(raw))
		if !filter.Type.Valid() {
			fields.add("type", "must be one of TRANSFER, DEPOSIT, WITHDRAWAL, PAYMENT")
		}
	}
	if len(fields) > 0 {
		h.respondValidation(w, "invalid transaction filter", fields)
		return
	}

	entries, err := h.service.ListTransactions(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toTransactionResponses(entries))
}

func (h *Handler) RecentTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.RecentTransactions(r.Context(), principal(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toTransactionResponses(entries))
}

func (h *Handler) ListBeneficiariesHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListBeneficiaries(r.Context(), principal(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	resp := make([]BeneficiaryResponse, 0, len(list))
	for _, b := range list {
		resp = append(resp, toBeneficiaryResponse(b))
	}
	h.respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) CreateBeneficiaryHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateBeneficiaryRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondValidation(w, "invalid request body", decodeErrorFields(err))
		return
	}
	if fields := req.validate(); len(fields) > 0 {
		h.respondValidation(w, "invalid beneficiary", fields)
		return
	}

	b, err := h.service.CreateBeneficiary(r.Context(), &domain.Beneficiary{
		UserID:        principal(r),
		Name:          req.Name,
		AccountNumber: req.AccountNumber,
		BankName:      strings.TrimSpace(req.BankName),
		Nickname:      strings.TrimSpace(req.Nickname),
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, toBeneficiaryResponse(b))
}

func (h *Handler) DeleteBeneficiaryHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.respondValidation(w, "invalid beneficiary id", fieldErrors{"id": "must be a positive integer"})
		return
	}
	if err := h.service.DeleteBeneficiary(r.Context(), principal(r), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
