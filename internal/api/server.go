package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/equitx-labs/xasset/internal/cdp"
	"github.com/equitx-labs/xasset/internal/liquidation"
	"github.com/equitx-labs/xasset/internal/stabilitypool"
	"github.com/equitx-labs/xasset/internal/token"
	"github.com/equitx-labs/xasset/observability"
	"github.com/equitx-labs/xasset/observability/logging"
)

// Server binds the cdp engine, stability pool, liquidation coordinator, and
// synthetic token ledger to HTTP handlers.
type Server struct {
	cdps        *cdp.Engine
	pool        *stabilitypool.Pool
	coordinator *liquidation.Coordinator
	synthetic   *token.Ledger
	logger      *slog.Logger

	adminAuth   func(http.Handler) http.Handler
	rateLimiter *RateLimiter
}

// New constructs a Server. adminAuth and rateLimiter may be nil, in which
// case admin routes and the permissionless routes run unprotected — useful
// for local development and the test suite.
func New(cdps *cdp.Engine, pool *stabilitypool.Pool, coordinator *liquidation.Coordinator, synthetic *token.Ledger, adminAuth func(http.Handler) http.Handler, rateLimiter *RateLimiter) *Server {
	if adminAuth == nil {
		adminAuth = func(h http.Handler) http.Handler { return h }
	}
	return &Server{
		cdps:        cdps,
		pool:        pool,
		coordinator: coordinator,
		synthetic:   synthetic,
		adminAuth:   adminAuth,
		rateLimiter: rateLimiter,
	}
}

// SetLogger wires a structured logger for request failures. A nil logger
// (the default) leaves the server silent, matching the engines' Set* hooks.
func (s *Server) SetLogger(logger *slog.Logger) { s.logger = logger }

// Router builds the chi router exposing every public operation.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.metrics)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/cdp", func(cr chi.Router) {
		cr.Get("/info", s.handleInfo)
		cr.Post("/open", s.borrowerAuth("open_cdp", s.handleOpenCDP))
		cr.Post("/add_collateral", s.borrowerAuth("add_collateral", s.handleAddCollateral))
		cr.Post("/withdraw_collateral", s.borrowerAuth("withdraw_collateral", s.handleWithdrawCollateral))
		cr.Post("/borrow", s.borrowerAuth("borrow_xasset", s.handleBorrow))
		cr.Post("/repay", s.borrowerAuth("repay_debt", s.handleRepay))
		cr.Post("/pay_interest", s.borrowerAuth("pay_interest", s.handlePayInterest))
		cr.Get("/{borrower}", s.handleGetCDP)
		cr.Get("/{borrower}/accrued_interest", s.handleAccruedInterest)
		cr.Get("/{borrower}/liquidations", s.handleListLiquidations)

		permissionless := cr.With()
		if s.rateLimiter != nil {
			permissionless.Use(s.rateLimiter.Middleware)
		}
		permissionless.Post("/{borrower}/freeze", s.handleFreeze)
		permissionless.Post("/{borrower}/liquidate", s.handleLiquidate)
	})

	r.Route("/pool", func(pr chi.Router) {
		pr.Post("/stake", s.borrowerAuth("stake", s.handleStake))
		pr.Post("/withdraw", s.borrowerAuth("withdraw", s.handleWithdraw))
		pr.Post("/claim", s.borrowerAuth("claim", s.handleClaim))
		pr.Get("/{staker}/deposit", s.handleDeposit)
		pr.Get("/total", s.handleTotalXAsset)
	})

	r.Route("/token", func(tr chi.Router) {
		tr.Get("/{address}/balance", s.handleBalance)
		tr.Post("/transfer", s.borrowerAuth("transfer", s.handleTransfer))
		tr.Post("/approve", s.borrowerAuth("approve", s.handleApprove))
		tr.Post("/transfer_from", s.borrowerAuth("transfer_from", s.handleTransferFrom))
	})

	r.Route("/admin", func(ar chi.Router) {
		ar.Use(s.adminAuth)
		ar.Post("/set_min_collat_ratio", s.handleSetMinCollatRatio)
	})

	return r
}

// borrowerContextKey carries the claimed borrower address from borrowerAuth
// into the request context (set before the signature check, so failed
// verifications are logged too), so writeError can attach it to a log line
// without every handler threading it through explicitly.
type borrowerContextKey struct{}

// metrics wraps every request with observability.API()'s request counter,
// error counter, and latency histogram, labeled by the chi route pattern
// rather than the raw path so per-borrower paths don't explode cardinality.
func (s *Server) metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		observability.API().Observe(route, ww.Status(), time.Since(start))
	})
}

// borrowerAuth decodes body into a signedRequest-compatible envelope,
// verifies the signature against the claimed borrower, and only then calls
// next with the verified borrower address threaded through the context.
func (s *Server) borrowerAuth(operation string, next func(http.ResponseWriter, *http.Request, string, json.RawMessage)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var envelope struct {
			signedRequest
			Params json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
			s.writeError(w, r, http.StatusBadRequest, err)
			return
		}
		r = r.WithContext(context.WithValue(r.Context(), borrowerContextKey{}, envelope.Borrower))
		if err := verifyBorrowerSignature(operation, envelope.Borrower, envelope.Nonce, envelope.Params, envelope.Signature); err != nil {
			s.writeError(w, r, http.StatusUnauthorized, err)
			return
		}
		next(w, r, envelope.Borrower, envelope.Params)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the error response and, when a logger is wired, logs
// the failure with the operation (the route pattern), the borrower address
// if one is known for this request, and the error itself.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
	if s.logger == nil {
		return
	}
	operation := chi.RouteContext(r.Context()).RoutePattern()
	if operation == "" {
		operation = r.URL.Path
	}
	borrower := requestBorrower(r)
	s.logger.Error("api request failed",
		"operation", operation,
		logging.MaskField("borrower", borrower),
		"status", status,
		"error", err.Error(),
	)
}

// requestBorrower recovers the address a request is scoped to, whether it
// arrived through borrowerAuth or as a URL parameter on a permissionless or
// read-only route.
func requestBorrower(r *http.Request) string {
	if addr, ok := r.Context().Value(borrowerContextKey{}).(string); ok && addr != "" {
		return addr
	}
	for _, key := range []string{"borrower", "staker", "address"} {
		if addr := chi.URLParam(r, key); addr != "" {
			return addr
		}
	}
	return ""
}

// statusFor maps a domain error to the HTTP status a client should see.
func statusFor(err error) int {
	switch {
	case errors.Is(err, cdp.ErrCDPNotFound), errors.Is(err, liquidation.ErrCDPNotFrozen):
		return http.StatusNotFound
	case errors.Is(err, cdp.ErrCDPAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, cdp.ErrInsufficientCollateral),
		errors.Is(err, cdp.ErrInsufficientBalance),
		errors.Is(err, cdp.ErrAmountExceedsAccruedInterest),
		errors.Is(err, stabilitypool.ErrInsufficientStake),
		errors.Is(err, token.ErrInsufficientBalance),
		errors.Is(err, token.ErrInsufficientAllowance):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

type amountParams struct {
	Amount string `json:"amount"`
}

func parseAmount(raw string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, errors.New("api: invalid amount")
	}
	return amount, nil
}
