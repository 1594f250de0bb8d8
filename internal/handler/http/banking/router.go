package banking_http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"banking/internal/app/banking"
)

func RegisterRoutes(r chi.Router, s banking.BankingService, l *zap.Logger) {
	handler := NewHandler(s, l.With(zap.String("component", "BankingHTTPHandler")))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Banking service is healthy!"))
	})

	r.Group(func(r chi.Router) {
		r.Use(handler.RequirePrincipal)

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", handler.ListAccountsHandler)
			r.Post("/", handler.OpenAccountHandler)
			r.Get("/{id}", handler.GetAccountHandler)
			r.Patch("/{id}", handler.UpdateAccountHandler)
			r.Get("/{id}/balance", handler.GetBalanceHandler)
			r.Get("/{id}/statement", handler.StatementHandler)
			r.Post("/{id}/deposit", handler.DepositHandler)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", handler.ListTransactionsHandler)
			r.Get("/recent", handler.RecentTransactionsHandler)
			r.Post("/transfer", handler.TransferHandler)
		})

		r.Route("/beneficiaries", func(r chi.Router) {
			r.Get("/", handler.ListBeneficiariesHandler)
			r.Post("/", handler.CreateBeneficiaryHandler)
			r.Delete("/{id}", handler.DeleteBeneficiaryHandler)
		})
	})
}
