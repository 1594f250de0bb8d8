package banking_http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"banking/internal/domain"
)

const (
	maxBodyBytes      = 1 << 20
	maxDescriptionLen = 255
	maxNameLen        = 100
	maxBankNameLen    = 100
	maxNicknameLen    = 50
)

// fieldErrors collects per-field messages. The first message for a field wins.
type fieldErrors map[string]string

func (f fieldErrors) add(field, format string, args ...any) {
	if _, ok := f[field]; !ok {
		f[field] = fmt.Sprintf(format, args...)
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// decodeErrorFields names the field behind a body that is valid JSON but has
// a value of the wrong type.
func decodeErrorFields(err error) fieldErrors {
	var amountErr *amountDecodeError
	if errors.As(err, &amountErr) {
		return fieldErrors{"amount": "must be a decimal number"}
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return fieldErrors{typeErr.Field: "must be " + jsonTypeName(typeErr.Type)}
	}
	return nil
}

func jsonTypeName(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "an integer"
	case reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.String:
		return "a string"
	case reflect.Bool:
		return "a boolean"
	case reflect.Pointer:
		return jsonTypeName(t.Elem())
	default:
		return "a valid " + t.Kind().String()
	}
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func checkAmount(f fieldErrors, field string, amount decimal.Decimal) {
	if err := domain.ValidateAmount(amount); err != nil {
		f.add(field, "%s", domain.Message(err))
	}
}

func checkLength(f fieldErrors, field, value string, max int) {
	if utf8.RuneCountInString(value) > max {
		f.add(field, "must be at most %d characters", max)
	}
}

func (req TransferRequest) validate() fieldErrors {
	f := fieldErrors{}
	if req.FromAccountID <= 0 {
		f.add("from_account_id", "must be a positive integer")
	}
	if !domain.IsValidAccountNumber(req.ToAccountNumber) {
		f.add("to_account_number", "must be exactly %d digits", domain.AccountNumberLength)
	}
	checkAmount(f, "amount", req.Amount.Decimal)
	checkLength(f, "description", req.Description, maxDescriptionLen)
	return f
}

func (req DepositRequest) validate() fieldErrors {
	f := fieldErrors{}
	checkAmount(f, "amount", req.Amount.Decimal)
	checkLength(f, "description", req.Description, maxDescriptionLen)
	return f
}

func (req OpenAccountRequest) validate() fieldErrors {
	f := fieldErrors{}
	if req.AccountType != "" && !domain.AccountType(strings.ToUpper(req.AccountType)).Valid() {
		f.add("account_type", "must be one of CHECKING, SAVINGS, BUSINESS")
	}
	if req.Currency != "" && !domain.IsValidCurrency(strings.ToUpper(req.Currency)) {
		f.add("currency", "must be a three-letter currency code")
	}
	return f
}

func (req UpdateAccountRequest) validate() fieldErrors {
	f := fieldErrors{}
	if req.Status == nil && req.AccountType == nil {
		f.add("status", "status or account_type is required")
	}
	if req.Status != nil && !domain.AccountStatus(strings.ToUpper(*req.Status)).Valid() {
		f.add("status", "must be one of ACTIVE, FROZEN, CLOSED")
	}
	if req.AccountType != nil && !domain.AccountType(strings.ToUpper(*req.AccountType)).Valid() {
		f.add("account_type", "must be one of CHECKING, SAVINGS, BUSINESS")
	}
	return f
}

func (req CreateBeneficiaryRequest) validate() fieldErrors {
	f := fieldErrors{}
	if strings.TrimSpace(req.Name) == "" {
		f.add("name", "is required")
	}
	checkLength(f, "name", req.Name, maxNameLen)
	if !domain.IsValidAccountNumber(req.AccountNumber) {
		f.add("account_number", "must be exactly %d digits", domain.AccountNumberLength)
	}
	checkLength(f, "bank_name", req.BankName, maxBankNameLen)
	checkLength(f, "nickname", req.Nickname, maxNicknameLen)
	return f
}
