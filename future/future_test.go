package future

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestFuture(t *testing.T) {
	t.Parallel()
	t.Run("Resolve", func(t *testing.T) {
		t.Parallel()
		f := New[int]()
		if _, err := f.Result(); !errors.Is(err, ErrPending) {
			t.Fatalf("expected ErrPending, got %v", err)
		}
		if !f.Resolve(1) {
			t.Fatal("expected first Resolve to settle")
		}
		got, err := f.Await(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if got != 1 {
			t.Errorf("expected 1, got %d", got)
		}
	})
	t.Run("Reject", func(t *testing.T) {
		t.Parallel()
		want := errors.New("boom")
		f := Rejected[int](want)
		_, err := f.Await(context.Background())
		if !errors.Is(err, want) {
			t.Errorf("expected %v, got %v", want, err)
		}
	})
	t.Run("Settles once", func(t *testing.T) {
		t.Parallel()
		f := New[string]()
		f.Resolve("first")
		if f.Resolve("second") {
			t.Error("expected second Resolve to be ignored")
		}
		if f.Reject(errors.New("late")) {
			t.Error("expected Reject after Resolve to be ignored")
		}
		got, err := f.Result()
		if err != nil || got != "first" {
			t.Errorf("expected first, got %q %v", got, err)
		}
	})
	t.Run("Reject with nil", func(t *testing.T) {
		t.Parallel()
		_, err := Rejected[int](nil).Await(context.Background())
		if !errors.Is(err, ErrNilRejection) {
			t.Errorf("expected ErrNilRejection, got %v", err)
		}
	})
	t.Run("Settled wins over done context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		f := Resolved(3)
		for range 100 {
			got, err := f.Await(ctx)
			if err != nil || got != 3 {
				t.Fatalf("expected 3, got %d %v", got, err)
			}
		}
	})
	t.Run("Await respects context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err := New[int]().Await(ctx)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected DeadlineExceeded, got %v", err)
		}
	})
}

func TestAll(t *testing.T) {
	t.Parallel()
	t.Run("Keeps input order", func(t *testing.T) {
		t.Parallel()
		f1, f2 := New[string](), New[string]()
		joined := All(context.Background(), f1, f2)
		f2.Resolve("R2")
		time.Sleep(10 * time.Millisecond)
		f1.Resolve("R1")
		got, err := joined.Await(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"R1", "R2"}, got); diff != "" {
			t.Errorf("unexpected result (-want +got):\n%s", diff)
		}
	})
	t.Run("Short-circuits on first rejection", func(t *testing.T) {
		t.Parallel()
		want := errors.New("E")
		pending := New[int]()
		rejected := New[int]()
		joined := All(context.Background(), pending, rejected, New[int]())
		rejected.Reject(want)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_, err := joined.Await(ctx)
		if !errors.Is(err, want) {
			t.Fatalf("expected %v, got %v", want, err)
		}
		if _, err := pending.Result(); !errors.Is(err, ErrPending) {
			t.Error("expected sibling input to stay pending")
		}
		if !pending.Resolve(1) {
			t.Error("expected sibling input to remain settleable")
		}
	})
	t.Run("Empty", func(t *testing.T) {
		t.Parallel()
		got, err := All[int](context.Background()).Await(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 0 {
			t.Errorf("expected empty result, got %v", got)
		}
	})
	t.Run("Settled inputs with cancelled context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		for range 100 {
			got, err := All(ctx, Resolved(1), Resolved(2)).Await(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff([]int{1, 2}, got); diff != "" {
				t.Fatalf("unexpected result (-want +got):\n%s", diff)
			}
		}
	})
	t.Run("Context cancelled", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		joined := All(ctx, New[int]())
		cancel()
		_, err := joined.Await(context.Background())
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected Canceled, got %v", err)
		}
	})
}

func TestObservable(t *testing.T) {
	t.Parallel()
	t.Run("Emits value then completes", func(t *testing.T) {
		t.Parallel()
		o := Observe(Resolved([]int{1, 2}))
		var got [][]int
		completed := false
		o.Subscribe(context.Background(),
			func(v []int) { got = append(got, v) },
			func(err error) { t.Errorf("unexpected error: %v", err) },
			func() { completed = true },
		)
		if diff := cmp.Diff([][]int{{1, 2}}, got); diff != "" {
			t.Errorf("unexpected emissions (-want +got):\n%s", diff)
		}
		if !completed {
			t.Error("expected completion")
		}
	})
	t.Run("Emits error as terminal failure", func(t *testing.T) {
		t.Parallel()
		want := errors.New("failed")
		o := Observe(Rejected[int](want))
		var got error
		o.Subscribe(context.Background(),
			func(int) { t.Error("unexpected value") },
			func(err error) { got = err },
			func() { t.Error("unexpected completion") },
		)
		if !errors.Is(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})
	t.Run("Consumed once", func(t *testing.T) {
		t.Parallel()
		o := Observe(Resolved(1))
		n := 0
		for v, err := range o.Seq(context.Background()) {
			if err != nil {
				t.Fatal(err)
			}
			if v != 1 {
				t.Errorf("expected 1, got %d", v)
			}
			n++
		}
		if n != 1 {
			t.Errorf("expected 1 emission, got %d", n)
		}
		for _, err := range o.Seq(context.Background()) {
			if !errors.Is(err, ErrConsumed) {
				t.Errorf("expected ErrConsumed, got %v", err)
			}
		}
	})
	t.Run("Lazy until ranged", func(t *testing.T) {
		t.Parallel()
		f := New[int]()
		seq := Observe(f).Seq(context.Background())
		f.Resolve(7)
		for v, err := range seq {
			if err != nil || v != 7 {
				t.Errorf("expected 7, got %d %v", v, err)
			}
		}
	})
}
