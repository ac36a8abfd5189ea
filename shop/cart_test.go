package shop

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// Both implementations must behave identically; run the same scenario
// against each.
func cartImpls(t *testing.T) map[string]CartStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]CartStore{
		"memory": NewMemoryCart(),
		"redis":  NewRedisCart(client),
	}
}

func TestCartStoreScenario(t *testing.T) {
	for name, cart := range cartImpls(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			lines, err := cart.Lines(ctx)
			if err != nil {
				t.Fatalf("lines: %v", err)
			}
			if len(lines) != 0 {
				t.Fatalf("new cart not empty: %+v", lines)
			}

			if qty, err := cart.Add(ctx, 2, 1); err != nil || qty != 1 {
				t.Fatalf("add: qty=%d err=%v", qty, err)
			}
			if qty, err := cart.Add(ctx, 2, 2); err != nil || qty != 3 {
				t.Fatalf("add accumulates: qty=%d err=%v", qty, err)
			}
			if _, err := cart.Add(ctx, 1, 5); err != nil {
				t.Fatalf("add second product: %v", err)
			}

			lines, err = cart.Lines(ctx)
			if err != nil {
				t.Fatalf("lines: %v", err)
			}
			if len(lines) != 2 || lines[0].ProductID != 1 || lines[1].ProductID != 2 {
				t.Fatalf("expected lines sorted by product id, got %+v", lines)
			}
			if lines[1].Qty != 3 {
				t.Fatalf("expected qty 3 for product 2, got %d", lines[1].Qty)
			}

			if ok, err := cart.Set(ctx, 2, 7); err != nil || !ok {
				t.Fatalf("set existing: ok=%v err=%v", ok, err)
			}
			if ok, err := cart.Set(ctx, 42, 1); err != nil || ok {
				t.Fatalf("set absent should report false: ok=%v err=%v", ok, err)
			}

			if ok, err := cart.Remove(ctx, 1); err != nil || !ok {
				t.Fatalf("remove existing: ok=%v err=%v", ok, err)
			}
			if ok, err := cart.Remove(ctx, 1); err != nil || ok {
				t.Fatalf("remove absent should report false: ok=%v err=%v", ok, err)
			}

			if err := cart.Clear(ctx); err != nil {
				t.Fatalf("clear: %v", err)
			}
			lines, err = cart.Lines(ctx)
			if err != nil {
				t.Fatalf("lines after clear: %v", err)
			}
			if len(lines) != 0 {
				t.Fatalf("cart not cleared: %+v", lines)
			}
		})
	}
}
