// Package statement renders account statements as PDF documents.
package statement

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"banking/internal/domain"
)

const (
	dateLayout     = "2006-01-02 15:04"
	maxDescription = 28
)

var compressStreams = true

type Direction int

const (
	Outgoing Direction = iota
	Incoming
)

func Classify(entry *domain.Transaction, accountID int64) Direction {
	if entry.IsIncomingFor(accountID) {
		return Incoming
	}
	return Outgoing
}

func SignedAmount(entry *domain.Transaction, accountID int64) string {
	sign := "-"
	if Classify(entry, accountID) == Incoming {
		sign = "+"
	}
	return sign + entry.Amount.StringFixed(domain.AmountScale)
}

func Filename(account *domain.Account) string {
	return fmt.Sprintf("statement_%s.pdf", account.AccountNumber)
}

func counterparty(entry *domain.Transaction, accountID int64) string {
	if Classify(entry, accountID) == Incoming {
		if entry.FromAccountNumber != "" {
			return "from " + entry.FromAccountNumber
		}
		return "-"
	}
	if entry.ToAccountNumber != "" {
		return "to " + entry.ToAccountNumber
	}
	return "-"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

var columns = []struct {
	title string
	width float64
	align string
}{
	{"Date", 30, "L"},
	{"Reference", 34, "L"},
	{"Type", 22, "L"},
	{"Description", 46, "L"},
	{"Counterparty", 34, "L"},
	{"Amount", 24, "R"},
}

func Render(account *domain.Account, entries []*domain.Transaction, generatedAt time.Time) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	// Core fonts are cp1252; UTF-8 text is translated rune by rune.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetCompression(compressStreams)
	pdf.SetTitle("Account statement "+account.AccountNumber, true)
	pdf.SetCreator(domain.DefaultBankName, true)
	pdf.SetCreationDate(generatedAt)
	pdf.SetCatalogSort(true)
	pdf.SetMargins(10, 12, 10)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, domain.DefaultBankName+" - Account Statement", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	details := [][2]string{
		{"Account number", account.AccountNumber},
		{"Account type", string(account.AccountType)},
		{"Status", string(account.Status)},
		{"Currency", account.Currency},
		{"Current balance", account.Balance.StringFixed(domain.AmountScale) + " " + account.Currency},
		{"Generated", generatedAt.UTC().Format(dateLayout) + " UTC"},
	}
	for _, d := range details {
		pdf.CellFormat(40, 6, d[0]+":", "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, tr(d[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for _, c := range columns {
		pdf.CellFormat(c.width, 7, c.title, "1", 0, c.align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	if len(entries) == 0 {
		pdf.CellFormat(0, 7, "No transactions", "1", 1, "C", false, 0, "")
	}
	for _, e := range entries {
		row := []string{
			e.CreatedAt.UTC().Format(dateLayout),
			e.ReferenceNumber,
			strings.ToLower(string(e.Type)),
			tr(truncate(e.Description, maxDescription)),
			counterparty(e, account.ID),
			SignedAmount(e, account.ID),
		}
		for i, c := range columns {
			switch {
			case i != len(columns)-1:
				pdf.SetTextColor(0, 0, 0)
			case Classify(e, account.ID) == Incoming:
				pdf.SetTextColor(0, 110, 0)
			default:
				pdf.SetTextColor(170, 0, 0)
			}
			pdf.CellFormat(c.width, 6, row[i], "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.SetTextColor(0, 0, 0)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render statement for %s: %w", account.AccountNumber, err)
	}
	return buf.Bytes(), nil
}
