package models

import (
	"context"
	"errors"
	"testing"

	"github.com/HatiCode/arimacast/pkg/arima"
)

func TestAutoModel_TrainPredict(t *testing.T) {
	series := make([]float64, 50)
	for i := range series {
		series[i] = 3*float64(i) + 7
	}

	m := NewAutoModel(arima.DefaultConfig(), quietLogger())
	if m.Name() != "auto-arima" {
		t.Errorf("Name() = %q, want auto-arima", m.Name())
	}
	if err := m.Train(context.Background(), series); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	sel, fallback := m.Selection()
	if fallback {
		t.Fatal("did not expect fallback on a clean linear series")
	}
	if sel.Evaluated+sel.Skipped != 18 {
		t.Errorf("evaluated+skipped = %d, want 18", sel.Evaluated+sel.Skipped)
	}

	res, err := m.Predict(context.Background(), 3)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if res.Fallback {
		t.Error("Fallback = true, want false")
	}
	if res.Order != sel.Order {
		t.Errorf("Order = %v, want %v", res.Order, sel.Order)
	}
	for i, f := range res.Forecast {
		want := 3*float64(50+i) + 7
		if d := f - want; d > 0.5 || d < -0.5 {
			t.Errorf("step %d: forecast %v, want %v", i, f, want)
		}
	}
}

func TestAutoModel_Fallback(t *testing.T) {
	m := NewAutoModel(arima.DefaultConfig(), quietLogger())
	if err := m.Train(context.Background(), []float64{1, 2, 3}); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	sel, fallback := m.Selection()
	if !fallback {
		t.Fatal("expected fallback when no candidate can be validated")
	}
	if sel.Order != FallbackOrder {
		t.Errorf("Order = %v, want %v", sel.Order, FallbackOrder)
	}

	res, err := m.Predict(context.Background(), 2)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if !res.Fallback {
		t.Error("Fallback = false, want true")
	}
	want := []float64{4, 5}
	for i := range want {
		if d := res.Forecast[i] - want[i]; d > 1e-9 || d < -1e-9 {
			t.Errorf("Forecast[%d] = %v, want %v", i, res.Forecast[i], want[i])
		}
	}
}

func TestAutoModel_Errors(t *testing.T) {
	m := NewAutoModel(arima.DefaultConfig(), quietLogger())

	if _, err := m.Predict(context.Background(), 1); !errors.Is(err, ErrNotTrained) {
		t.Errorf("Predict() before Train error = %v, want ErrNotTrained", err)
	}
	if err := m.Train(context.Background(), []float64{1}); !errors.Is(err, arima.ErrInsufficientData) {
		t.Errorf("Train() error = %v, want ErrInsufficientData", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Train(ctx, make([]float64, 40)); !errors.Is(err, context.Canceled) {
		t.Errorf("Train() error = %v, want context.Canceled", err)
	}
}

func TestModelInterface(t *testing.T) {
	var _ Model = (*ARIMAModel)(nil)
	var _ Model = (*AutoModel)(nil)
}
