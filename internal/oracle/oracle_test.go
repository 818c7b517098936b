package oracle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"limitswap/internal/domain"
)

type fakeSource struct {
	name  string
	price float64
	err   error
	calls int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Price(_ context.Context) (float64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.price, nil
}

func newTestOracle(sources ...Source) (*Oracle, *time.Time) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	o := New(sources, 10*time.Second, 10*time.Second, 0, log)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	o.now = func() time.Time { return now }
	return o, &now
}

func TestOraclePrimarySource(t *testing.T) {
	primary := &fakeSource{name: "chain", price: 900}
	secondary := &fakeSource{name: "chainlink", price: 901}
	o, _ := newTestOracle(primary, secondary)

	got, err := o.Price(context.Background())
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if got != 900 {
		t.Errorf("Price = %v, want 900 (primary)", got)
	}
	if secondary.calls != 0 {
		t.Errorf("secondary queried %d times, want 0", secondary.calls)
	}
}

func TestOracleFallsBackInOrder(t *testing.T) {
	primary := &fakeSource{name: "chain", err: errors.New("rpc down")}
	secondary := &fakeSource{name: "chainlink", price: 902}
	o, _ := newTestOracle(primary, secondary)

	got, err := o.Price(context.Background())
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if got != 902 {
		t.Errorf("Price = %v, want 902 (secondary)", got)
	}
	if primary.calls != 1 {
		t.Errorf("primary queried %d times, want 1", primary.calls)
	}
}

func TestOracleCacheHit(t *testing.T) {
	src := &fakeSource{name: "chain", price: 900}
	o, now := newTestOracle(src)
	ctx := context.Background()

	if _, err := o.Price(ctx); err != nil {
		t.Fatalf("first Price: %v", err)
	}

	// Within TTL: source must not be queried again, even if it would fail.
	src.err = errors.New("rpc down")
	*now = now.Add(5 * time.Second)

	got, err := o.Price(ctx)
	if err != nil {
		t.Fatalf("cached Price: %v", err)
	}
	if got != 900 {
		t.Errorf("cached Price = %v, want 900", got)
	}
	if src.calls != 1 {
		t.Errorf("source queried %d times, want 1", src.calls)
	}
}

func TestOracleServesStaleWithinWindow(t *testing.T) {
	src := &fakeSource{name: "chain", price: 900}
	o, now := newTestOracle(src)
	ctx := context.Background()

	if _, err := o.Price(ctx); err != nil {
		t.Fatalf("first Price: %v", err)
	}

	// Past TTL but within the staleness window, with the source down.
	src.err = errors.New("rpc down")
	*now = now.Add(10 * time.Second)

	got, err := o.Price(ctx)
	if err != nil {
		t.Fatalf("stale Price: %v", err)
	}
	if got != 900 {
		t.Errorf("stale Price = %v, want 900", got)
	}
}

func TestOracleUnavailablePastStaleWindow(t *testing.T) {
	src := &fakeSource{name: "chain", price: 900}
	o, now := newTestOracle(src)
	ctx := context.Background()

	if _, err := o.Price(ctx); err != nil {
		t.Fatalf("first Price: %v", err)
	}

	// 15s later with the source down: cache is past the 10s window.
	src.err = errors.New("rpc down")
	*now = now.Add(15 * time.Second)

	_, err := o.Price(ctx)
	if !errors.Is(err, domain.ErrPriceUnavailable) {
		t.Fatalf("Price error = %v, want ErrPriceUnavailable", err)
	}
}

func TestOracleUnavailableNoCache(t *testing.T) {
	o, _ := newTestOracle(&fakeSource{name: "chain", err: errors.New("rpc down")})

	_, err := o.Price(context.Background())
	if !errors.Is(err, domain.ErrPriceUnavailable) {
		t.Fatalf("Price error = %v, want ErrPriceUnavailable", err)
	}
}
