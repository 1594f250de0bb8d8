package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"strings"

	"banking/internal/gateway/auth"
	"banking/internal/gateway/config"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

const apiPrefix = "/api"

func NewRouter(cfg *config.Config, logger *zap.Logger) (http.Handler, error) {
	bankingURL, err := url.Parse(cfg.BankingServiceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Banking Service URL (%s): %w", cfg.BankingServiceURL, err)
	}
	if bankingURL.Scheme == "" || bankingURL.Host == "" {
		return nil, fmt.Errorf("banking service URL %q must be absolute", cfg.BankingServiceURL)
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.ProxyTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	bankingProxy := createProxy(bankingURL, logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route(apiPrefix, func(r chi.Router) {
		r.Use(auth.Middleware([]byte(cfg.JWTSecret), logger))

		for _, resource := range []string{"/accounts", "/transactions", "/beneficiaries"} {
			r.Handle(resource, bankingProxy)
			r.Handle(resource+"/*", bankingProxy)
		}
	})

	return r, nil
}

func createProxy(target *url.URL, logger *zap.Logger) http.Handler {
	proxy := httputil.NewSingleHostReverseProxy(target)

	proxy.Director = func(req *http.Request) {
		req.URL.Host = target.Host
		req.URL.Scheme = target.Scheme
		req.Host = target.Host
		req.URL.Path = strings.TrimPrefix(req.URL.Path, apiPrefix)
		if req.URL.RawPath != "" {
			req.URL.RawPath = strings.TrimPrefix(req.URL.RawPath, apiPrefix)
		}
		req.RequestURI = req.URL.RequestURI()

		if clientIP, _, err := net.SplitHostPort(req.RemoteAddr); err == nil {
			if prior, ok := req.Header["X-Forwarded-For"]; ok {
				clientIP = strings.Join(prior, ", ") + ", " + clientIP
			}
			req.Header.Set("X-Forwarded-For", clientIP)
		}
	}

	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("Proxy error",
			zap.String("path", r.URL.Path),
			zap.String("target", target.String()),
			zap.Error(err),
		)

		var netErr net.Error
		switch {
		case os.IsTimeout(err):
			renderJSONError(w, "Gateway Timeout", http.StatusGatewayTimeout)
		case errors.As(err, &netErr):
			renderJSONError(w, "Service Unavailable", http.StatusServiceUnavailable)
		default:
			renderJSONError(w, "Bad Gateway", http.StatusBadGateway)
		}
	}

	return proxy
}

func renderJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": message, "code": statusCode})
}
