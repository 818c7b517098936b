// Package engine owns the order lifecycle: admission, per-tick trigger
// evaluation, swap execution, take-profit activation, and cancellation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"limitswap/internal/domain"
	"limitswap/internal/ledger"
	"limitswap/internal/metrics"
	"limitswap/internal/notify"
	"limitswap/internal/store"
)

// PriceSource resolves the current pair price.
type PriceSource interface {
	Price(ctx context.Context) (float64, error)
}

// Executor swaps an order's input amount and reports the realized output.
type Executor interface {
	Execute(ctx context.Context, o *domain.Order) (*domain.ExecutionResult, error)
}

// Engine coordinates the order lifecycle over a store, a price source, a swap
// executor, and the balance ledger. All state transitions commit through
// store transactions; a per-order mutex serializes evaluation against
// cancellation so a swap in flight can never race a cancel.
type Engine struct {
	store    store.Store
	prices   PriceSource
	exec     Executor
	ledger   *ledger.Ledger
	notifier notify.Notifier
	pair     domain.Pair
	slippage float64
	log      *slog.Logger

	// now is a test hook.
	now func() time.Time

	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex
}

// New wires an Engine with its dependencies.
func New(st store.Store, prices PriceSource, exec Executor, ldg *ledger.Ledger,
	notifier notify.Notifier, pair domain.Pair, slippage float64, log *slog.Logger) *Engine {
	return &Engine{
		store:    st,
		prices:   prices,
		exec:     exec,
		ledger:   ldg,
		notifier: notifier,
		pair:     pair,
		slippage: slippage,
		log:      log,
		now:      time.Now,
		locks:    make(map[int64]*sync.Mutex),
	}
}

// lockFor returns the mutex guarding one order's transitions. Entries are
// created on demand and live for the process lifetime.
func (e *Engine) lockFor(id int64) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()
	mu, ok := e.locks[id]
	if !ok {
		mu = &sync.Mutex{}
		e.locks[id] = mu
	}
	return mu
}

// ---------------------------------------------------------------------------
// Creation
// ---------------------------------------------------------------------------

// Create admits a new order. The wallet must be able to cover the input
// amount on top of its existing commitments. When req.ProfitTarget is
// positive a linked take-profit is created alongside, parked until the
// parent executes.
func (e *Engine) Create(ctx context.Context, req CreateRequest) (*domain.Order, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	price, err := e.prices.Price(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving creation price: %w", err)
	}

	o := &domain.Order{
		WalletName:      req.Wallet.Name,
		WalletAddress:   req.Wallet.Address,
		Direction:       req.Direction,
		Amount:          req.Amount,
		TriggerPrice:    req.TriggerPrice,
		PriceAtCreation: price,
		ExpectedOutput:  expectedOutput(req.Direction, req.Amount, req.TriggerPrice, e.slippage),
		Status:          domain.StatusPending,
		CreatedAt:       e.now(),
	}

	inputAsset := o.InputAsset(e.pair)
	if err := e.checkFunds(ctx, req.Wallet, inputAsset, req.Amount); err != nil {
		return nil, err
	}

	// Validate the take-profit terms before persisting anything, so a bad
	// profit target rejects the whole request.
	if req.ProfitTarget > 0 {
		if _, err := computeTakeProfitTerms(placeholderParent(o), req.ProfitTarget, e.slippage); err != nil {
			return nil, err
		}
	}

	if err := e.store.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("persisting order: %w", err)
	}
	metrics.OrdersCreated.WithLabelValues(string(o.Direction)).Inc()
	e.log.Info("order created",
		"order_id", o.ID, "wallet", o.WalletName, "direction", string(o.Direction),
		"amount", o.Amount, "trigger", o.TriggerPrice, "price", price)
	e.notifier.Notify(ctx, notify.Event{Type: notify.OrderCreated, Order: *o})

	if req.ProfitTarget > 0 {
		if _, err := e.attachTakeProfit(ctx, o, req.ProfitTarget); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// CreateTakeProfit attaches a take-profit to an existing pending order.
func (e *Engine) CreateTakeProfit(ctx context.Context, parentID int64, profitTarget float64) (*domain.Order, error) {
	if profitTarget <= 0 {
		return nil, fmt.Errorf("profit target must be positive, got %v", profitTarget)
	}

	parent, err := e.store.Get(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if parent.Status != domain.StatusPending {
		return nil, fmt.Errorf("%w: cannot attach take-profit to %s order %d",
			domain.ErrInvalidTransition, parent.Status, parentID)
	}

	existing, err := e.store.ListByStatus(ctx, domain.StatusWaiting)
	if err != nil {
		return nil, err
	}
	for _, o := range existing {
		if o.LinkedOrderID == parentID {
			return nil, fmt.Errorf("order %d already has take-profit %d", parentID, o.ID)
		}
	}

	return e.attachTakeProfit(ctx, parent, profitTarget)
}

// attachTakeProfit creates the waiting take-profit order with provisional
// terms derived from the parent's trigger and expected output.
func (e *Engine) attachTakeProfit(ctx context.Context, parent *domain.Order, profitTarget float64) (*domain.Order, error) {
	terms, err := computeTakeProfitTerms(placeholderParent(parent), profitTarget, e.slippage)
	if err != nil {
		return nil, err
	}

	direction := parent.Direction.Inverse()
	tp := &domain.Order{
		WalletName:      parent.WalletName,
		WalletAddress:   parent.WalletAddress,
		Direction:       direction,
		Amount:          terms.Amount,
		TriggerPrice:    terms.TriggerPrice,
		PriceAtCreation: parent.PriceAtCreation,
		ExpectedOutput:  expectedOutput(direction, terms.Amount, terms.TriggerPrice, e.slippage),
		Status:          domain.StatusWaiting,
		LinkedOrderID:   parent.ID,
		ProfitTarget:    profitTarget,
		CreatedAt:       e.now(),
	}
	if err := e.store.Create(ctx, tp); err != nil {
		return nil, fmt.Errorf("persisting take-profit: %w", err)
	}
	e.log.Info("take-profit created",
		"order_id", tp.ID, "parent_id", parent.ID,
		"profit_target", profitTarget, "trigger", tp.TriggerPrice)
	e.notifier.Notify(ctx, notify.Event{Type: notify.OrderCreated, Order: *tp})
	return tp, nil
}

// ---------------------------------------------------------------------------
// Evaluation
// ---------------------------------------------------------------------------

// Run drives the evaluation scheduler until the context ends.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	e.log.Info("evaluation scheduler started", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			e.log.Info("evaluation scheduler stopped")
			return
		case <-ticker.C:
			e.Tick(ctx)
		}
	}
}

// Tick resolves the price once and evaluates every triggered pending order
// against it. Orders execute sequentially: a single wallet's transactions
// must not race each other on the chain nonce.
func (e *Engine) Tick(ctx context.Context) {
	metrics.EvalTicks.Inc()

	price, err := e.prices.Price(ctx)
	if err != nil {
		metrics.PriceUnavailable.Inc()
		e.log.Warn("skipping tick, no usable price", "error", err)
		return
	}
	metrics.PairPrice.Set(price)

	pending, err := e.store.ListByStatus(ctx, domain.StatusPending)
	if err != nil {
		e.log.Error("listing pending orders", "error", err)
		return
	}
	for _, o := range pending {
		if !o.Triggered(price) {
			continue
		}
		if err := e.Evaluate(ctx, o.ID, price); err != nil {
			e.log.Warn("order evaluation failed", "order_id", o.ID, "error", err)
		}
	}
}

// Evaluate executes one order if it is still pending and still triggered at
// the given price. The call is idempotent: re-evaluating an executed or
// cancelled order is a no-op. The swap runs outside any store lock; only the
// order's own mutex is held, which Cancel shares.
func (e *Engine) Evaluate(ctx context.Context, id int64, price float64) error {
	mu := e.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	o, err := e.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if o.Status != domain.StatusPending {
		return nil
	}
	if !o.Triggered(price) {
		return nil
	}

	if err := e.recheckFunds(ctx, o); err != nil {
		e.markAttempt(ctx, id, err)
		return err
	}

	res, err := e.exec.Execute(ctx, o)
	if err != nil {
		if errors.Is(err, domain.ErrSwapFailed) {
			metrics.SwapFailures.Inc()
		}
		e.markAttempt(ctx, id, err)
		return err
	}

	executed, activated, err := e.commitExecution(ctx, id, res)
	if err != nil {
		return err
	}

	metrics.OrdersExecuted.WithLabelValues(res.Route).Inc()
	e.notifier.Notify(ctx, notify.Event{Type: notify.OrderExecuted, Order: *executed})
	if activated != nil {
		e.notifier.Notify(ctx, notify.Event{Type: notify.TakeProfitActivated, Order: *activated})
	}
	return nil
}

// commitExecution records the swap outcome and activates the linked
// take-profit in one transaction.
func (e *Engine) commitExecution(ctx context.Context, id int64, res *domain.ExecutionResult) (*domain.Order, *domain.Order, error) {
	var executed, activated *domain.Order
	now := e.now()

	err := e.store.Mutate(ctx, func(txn store.Txn) error {
		cur, err := txn.Get(id)
		if err != nil {
			return err
		}
		if cur.Status != domain.StatusPending {
			// The swap already moved funds; this is a serious accounting
			// problem, not a silent no-op.
			return fmt.Errorf("%w: order %d is %s after swap %s landed",
				domain.ErrInvalidTransition, id, cur.Status, res.TxRef)
		}

		cur.Status = domain.StatusExecuted
		cur.ExecutedAt = now
		cur.ActualOutput = res.ActualOutput
		cur.ExecutionPrice = executionPrice(cur)
		cur.TxRef = res.TxRef
		cur.RouteUsed = res.Route
		cur.LastAttemptAt = now
		cur.LastError = ""
		if res.UnwrapErr != nil {
			cur.LastError = res.UnwrapErr.Error()
		}
		if err := txn.Put(cur); err != nil {
			return err
		}
		executed = cur

		all, err := txn.All()
		if err != nil {
			return err
		}
		for _, cand := range all {
			if cand.LinkedOrderID != id || cand.Status != domain.StatusWaiting {
				continue
			}
			terms, err := computeTakeProfitTerms(cur, cand.ProfitTarget, e.slippage)
			if err != nil {
				// The parent's realized outcome cannot support the target.
				// Cancel the take-profit instead of failing the execution
				// record; the swap already happened.
				cand.Status = domain.StatusCancelled
				cand.CancelledAt = now
				cand.CancelReason = err.Error()
				if err := txn.Put(cand); err != nil {
					return err
				}
				e.log.Warn("take-profit cancelled at activation",
					"order_id", cand.ID, "parent_id", id, "reason", cand.CancelReason)
				continue
			}
			cand.Amount = terms.Amount
			cand.TriggerPrice = terms.TriggerPrice
			cand.ExpectedOutput = expectedOutput(cand.Direction, terms.Amount, terms.TriggerPrice, e.slippage)
			cand.Status = domain.StatusPending
			if err := txn.Put(cand); err != nil {
				return err
			}
			activated = cand
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	e.log.Info("order executed",
		"order_id", id, "route", res.Route, "output", res.ActualOutput, "tx", res.TxRef)
	return executed, activated, nil
}

// markAttempt records a failed execution attempt on a still-pending order.
func (e *Engine) markAttempt(ctx context.Context, id int64, attemptErr error) {
	err := e.store.Mutate(ctx, func(txn store.Txn) error {
		cur, err := txn.Get(id)
		if err != nil {
			return err
		}
		if cur.Status != domain.StatusPending {
			return nil
		}
		cur.LastError = attemptErr.Error()
		cur.LastAttemptAt = e.now()
		return txn.Put(cur)
	})
	if err != nil {
		e.log.Error("recording failed attempt", "order_id", id, "error", err)
	}
}

// ---------------------------------------------------------------------------
// Cancellation
// ---------------------------------------------------------------------------

// Cancel moves a pending or waiting order to cancelled and cascades to any
// waiting take-profit linked to it, returning every order it cancelled.
// Cancelling a terminal order returns domain.ErrInvalidTransition. The shared
// per-order mutex makes a cancel issued during an in-flight execution wait
// for the outcome instead of racing it.
func (e *Engine) Cancel(ctx context.Context, id int64, reason string) ([]domain.Order, error) {
	mu := e.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	if reason == "" {
		reason = "cancelled by user"
	}
	now := e.now()

	var cancelled []domain.Order
	err := e.store.Mutate(ctx, func(txn store.Txn) error {
		cancelled = cancelled[:0]

		cur, err := txn.Get(id)
		if err != nil {
			return err
		}
		if cur.Status != domain.StatusPending && cur.Status != domain.StatusWaiting {
			return fmt.Errorf("%w: cannot cancel %s order %d",
				domain.ErrInvalidTransition, cur.Status, id)
		}
		cur.Status = domain.StatusCancelled
		cur.CancelledAt = now
		cur.CancelReason = reason
		if err := txn.Put(cur); err != nil {
			return err
		}
		cancelled = append(cancelled, *cur)

		all, err := txn.All()
		if err != nil {
			return err
		}
		for _, cand := range all {
			if cand.LinkedOrderID != id || cand.Status != domain.StatusWaiting {
				continue
			}
			cand.Status = domain.StatusCancelled
			cand.CancelledAt = now
			cand.CancelReason = "parent order cancelled"
			if err := txn.Put(cand); err != nil {
				return err
			}
			cancelled = append(cancelled, *cand)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, o := range cancelled {
		metrics.OrdersCancelled.Inc()
		e.log.Info("order cancelled", "order_id", o.ID, "reason", o.CancelReason)
		e.notifier.Notify(ctx, notify.Event{Type: notify.OrderCancelled, Order: o})
	}
	return cancelled, nil
}
