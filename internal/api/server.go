// internal/api/server.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/coinfun/internal/authority"
	"github.com/rovshanmuradov/coinfun/internal/curve"
	"github.com/rovshanmuradov/coinfun/internal/ledger"
	"github.com/rovshanmuradov/coinfun/internal/settlement"
	"github.com/rovshanmuradov/coinfun/internal/storage"
)

const (
	defaultTradeLimit = 100
	maxTradeLimit     = 1000
)

// Engine is the settlement surface the API exposes.
type Engine interface {
	Curve(mint solana.PublicKey) (settlement.CurveView, error)
	Curves() ([]settlement.CurveView, error)
	Quote(mint solana.PublicKey, side curve.Side, amount uint64) (settlement.Quote, error)
	Execute(ctx context.Context, order settlement.Order) (settlement.Receipt, error)
}

// Server serves curve state, quotes and signed trades over HTTP.
type Server struct {
	engine  Engine
	history storage.Storage
	logger  *zap.Logger
	router  http.Handler
}

// New builds the router. history may be nil when trade history is disabled.
func New(engine Engine, history storage.Storage, logger *zap.Logger) *Server {
	s := &Server{engine: engine, history: history, logger: logger.Named("api")}
	s.router = s.buildRouter()
	return s
}

// Handler exposes the configured HTTP router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/curves", func(cr chi.Router) {
		cr.Get("/", s.ListCurves)
		cr.Get("/{mint}", s.GetCurve)
		cr.Get("/{mint}/quote", s.GetQuote)
	})

	r.Route("/trades", func(tr chi.Router) {
		tr.Post("/", s.SubmitTrade)
		tr.Get("/", s.ListTrades)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("Request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", chimw.GetReqID(r.Context())))
	})
}

func (s *Server) ListCurves(w http.ResponseWriter, _ *http.Request) {
	views, err := s.engine.Curves()
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]curveResponse, 0, len(views))
	for _, v := range views {
		out = append(out, newCurveResponse(v))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) GetCurve(w http.ResponseWriter, r *http.Request) {
	mint, err := solana.PublicKeyFromBase58(chi.URLParam(r, "mint"))
	if err != nil {
		http.Error(w, "invalid mint", http.StatusBadRequest)
		return
	}
	view, err := s.engine.Curve(mint)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newCurveResponse(view))
}

func (s *Server) GetQuote(w http.ResponseWriter, r *http.Request) {
	mint, err := solana.PublicKeyFromBase58(chi.URLParam(r, "mint"))
	if err != nil {
		http.Error(w, "invalid mint", http.StatusBadRequest)
		return
	}
	side, err := curve.ParseSide(r.URL.Query().Get("side"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	amount, err := strconv.ParseUint(r.URL.Query().Get("amount"), 10, 64)
	if err != nil {
		http.Error(w, "invalid amount", http.StatusBadRequest)
		return
	}

	q, err := s.engine.Quote(mint, side, amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, quoteResponse{
		Mint:          q.Mint.String(),
		Side:          q.Side.String(),
		Amount:        q.Amount,
		NativeAmount:  q.NativeAmount,
		TokenAmount:   q.TokenAmount,
		PlatformFee:   q.PlatformFee,
		ReserveFee:    q.ReserveFee,
		ReserveTokens: q.ReserveTokens,
		SpotPrice:     q.SpotPrice,
		Progress:      q.Progress,
	})
}

func (s *Server) SubmitTrade(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	order, err := req.order()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rcpt, err := s.engine.Execute(r.Context(), order)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, receiptResponse{
		Mint:          rcpt.Mint.String(),
		Trader:        rcpt.Trader.String(),
		Side:          rcpt.Side.String(),
		NativeAmount:  rcpt.NativeAmount,
		TokenAmount:   rcpt.TokenAmount,
		PlatformFee:   rcpt.PlatformFee,
		ReserveFee:    rcpt.ReserveFee,
		ReserveTokens: rcpt.ReserveTokens,
		Graduated:     rcpt.Graduated,
		Curve:         newCurveState(rcpt.State),
	})
}

func (s *Server) ListTrades(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, "trade history is disabled", http.StatusServiceUnavailable)
		return
	}
	limit := defaultTradeLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxTradeLimit)
	}

	trades, err := s.history.ListTrades(r.Context(), storage.TradeFilter{
		Mint:   r.URL.Query().Get("mint"),
		Trader: r.URL.Query().Get("trader"),
		Side:   r.URL.Query().Get("side"),
		Limit:  limit,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]tradeResponse, 0, len(trades))
	for _, t := range trades {
		out = append(out, newTradeResponse(t))
	}
	s.writeJSON(w, http.StatusOK, out)
}

// statusFor maps settlement errors onto HTTP statuses. Integrity faults are
// checked first because they may wrap user-level sentinels.
func statusFor(err error) int {
	var integrity *settlement.IntegrityError
	switch {
	case errors.As(err, &integrity):
		return http.StatusInternalServerError
	case errors.Is(err, curve.ErrZeroAmount), errors.Is(err, curve.ErrSlippageExceeded):
		return http.StatusBadRequest
	case errors.Is(err, authority.ErrUnauthorized), errors.Is(err, authority.ErrInvalidSignature):
		return http.StatusUnauthorized
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrCurveBusy), errors.Is(err, curve.ErrCurveComplete):
		return http.StatusConflict
	case errors.Is(err, curve.ErrArithmeticOverflow), errors.Is(err, curve.ErrArithmeticUnderflow),
		errors.Is(err, ledger.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.Error(err))
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
