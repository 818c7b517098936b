package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"limitswap/internal/domain"
	"limitswap/internal/engine"
	"limitswap/internal/ledger"
	"limitswap/internal/pnl"
	"limitswap/internal/store"
)

// Server serves the order engine HTTP API.
type Server struct {
	engine *engine.Engine
	store  store.Store
	ledger *ledger.Ledger
	prices engine.PriceSource
	pair   domain.Pair
	log    *slog.Logger

	// Wallets the API may trade with, keyed by name. Requests naming any
	// other wallet are rejected.
	wallets map[string]domain.Wallet

	// exportDir is where PnL parquet exports land.
	exportDir string
}

// NewServer creates the API server.
func NewServer(
	eng *engine.Engine,
	st store.Store,
	ldg *ledger.Ledger,
	prices engine.PriceSource,
	pair domain.Pair,
	wallets []domain.Wallet,
	exportDir string,
	log *slog.Logger,
) *Server {
	byName := make(map[string]domain.Wallet, len(wallets))
	for _, w := range wallets {
		byName[w.Name] = w
	}
	return &Server{
		engine:    eng,
		store:     st,
		ledger:    ldg,
		prices:    prices,
		pair:      pair,
		log:       log,
		wallets:   byName,
		exportDir: exportDir,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/price", s.handlePrice)
	mux.HandleFunc("GET /api/orders", s.handleListOrders)
	mux.HandleFunc("POST /api/orders", s.handleCreateOrder)
	mux.HandleFunc("GET /api/orders/{id}", s.handleGetOrder)
	mux.HandleFunc("POST /api/orders/{id}/take-profit", s.handleTakeProfit)
	mux.HandleFunc("POST /api/orders/{id}/cancel", s.handleCancelOrder)
	mux.HandleFunc("GET /api/wallets", s.handleWallets)
	mux.HandleFunc("GET /api/wallets/{name}/balances", s.handleBalances)
	mux.HandleFunc("GET /api/wallets/{name}/pnl", s.handlePnl)
	mux.HandleFunc("POST /api/wallets/{name}/pnl/export", s.handlePnlExport)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// writeEngineError maps engine sentinel errors to HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInsufficientBalance):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrPriceUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func orderID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid order id %q", r.PathValue("id"))
	}
	return id, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	price, err := s.prices.Price(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	pair := fmt.Sprintf("%s/%s", s.pair.Base, s.pair.Quote)
	writeJSON(w, http.StatusOK, PriceResponse{Pair: pair, Price: price})
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	var (
		orders []*domain.Order
		err    error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		switch st := domain.Status(status); st {
		case domain.StatusPending, domain.StatusWaiting, domain.StatusExecuted, domain.StatusCancelled:
			orders, err = s.store.ListByStatus(r.Context(), st)
		default:
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", status))
			return
		}
	} else {
		orders, err = s.store.List(r.Context())
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if wallet := r.URL.Query().Get("wallet"); wallet != "" {
		filtered := orders[:0]
		for _, o := range orders {
			if o.WalletName == wallet {
				filtered = append(filtered, o)
			}
		}
		orders = filtered
	}
	if orders == nil {
		orders = []*domain.Order{}
	}
	writeJSON(w, http.StatusOK, OrdersResponse{Orders: orders})
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	wallet, ok := s.wallets[req.Wallet]
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown wallet %q", req.Wallet))
		return
	}

	o, err := s.engine.Create(r.Context(), engine.CreateRequest{
		Wallet:       wallet,
		Direction:    domain.Direction(req.Direction),
		Amount:       req.Amount,
		TriggerPrice: req.TriggerPrice,
		ProfitTarget: req.ProfitTarget,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := orderID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	o, err := s.store.Get(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleTakeProfit(w http.ResponseWriter, r *http.Request) {
	id, err := orderID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req TakeProfitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	tp, err := s.engine.CreateTakeProfit(r.Context(), id, req.ProfitTarget)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tp)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := orderID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req CancelRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	cancelled, err := s.engine.Cancel(r.Context(), id, req.Reason)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CancelResponse{Cancelled: cancelled})
}

func (s *Server) handleWallets(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.wallets))
	for name := range s.wallets {
		names = append(names, name)
	}
	writeJSON(w, http.StatusOK, WalletsResponse{Wallets: names})
}

// walletFromPath resolves the {name} path segment against configured wallets.
func (s *Server) walletFromPath(w http.ResponseWriter, r *http.Request) (domain.Wallet, bool) {
	name := r.PathValue("name")
	wallet, ok := s.wallets[name]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown wallet %q", name))
	}
	return wallet, ok
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	wallet, ok := s.walletFromPath(w, r)
	if !ok {
		return
	}
	views, err := s.ledger.Views(r.Context(), wallet)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, BalancesResponse{Wallet: wallet.Name, Balances: views})
}

// walletReport recomputes the wallet's realized PnL from the full order
// history. The computation is pure, so there is nothing to cache or persist.
func (s *Server) walletReport(r *http.Request, wallet domain.Wallet) (*pnl.Report, error) {
	orders, err := s.store.List(r.Context())
	if err != nil {
		return nil, err
	}
	return pnl.ComputeWallet(orders, wallet.Name), nil
}

func (s *Server) handlePnl(w http.ResponseWriter, r *http.Request) {
	wallet, ok := s.walletFromPath(w, r)
	if !ok {
		return
	}
	rep, err := s.walletReport(r, wallet)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, PnlResponse{Report: rep})
}

func (s *Server) handlePnlExport(w http.ResponseWriter, r *http.Request) {
	wallet, ok := s.walletFromPath(w, r)
	if !ok {
		return
	}
	rep, err := s.walletReport(r, wallet)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	path, err := pnl.WriteReportParquet(s.exportDir, rep)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.log.Info("pnl export written", "wallet", wallet.Name, "path", path, "trades", len(rep.Trades))
	writeJSON(w, http.StatusOK, ExportResponse{Path: path, Trades: len(rep.Trades)})
}
