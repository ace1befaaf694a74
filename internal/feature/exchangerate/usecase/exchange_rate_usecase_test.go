package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"folio_backend/internal/feature/exchangerate/usecase"
)

// mockRateSource はRateSourceインターフェースのモック実装です。
type mockRateSource struct {
	rates map[string]float64
	calls int
}

func (m *mockRateSource) GetRate(ctx context.Context, currency string, date time.Time) (float64, error) {
	m.calls++
	if currency == "EUR" {
		return 1, nil
	}
	r, ok := m.rates[currency]
	if !ok {
		return 0, errors.New("exchange rate not found")
	}
	return r, nil
}

func TestExchangeRateUsecase_ToCurrencyAtDate(t *testing.T) {
	t.Parallel()

	date := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		value     float64
		from, to  string
		want      float64
		wantCalls int
	}{
		{name: "same currency", value: 100, from: "USD", to: "USD", want: 100},
		{name: "zero value", value: 0, from: "USD", to: "CHF", want: 0},
		{name: "EUR to USD", value: 100, from: "EUR", to: "USD", want: 125, wantCalls: 2},
		{name: "USD to CHF via EUR", value: 125, from: "USD", to: "CHF", want: 100, wantCalls: 2},
		{name: "pence to pounds", value: 250, from: "GBp", to: "GBP", want: 2.5},
		{name: "pence to USD", value: 8000, from: "GBp", to: "USD", want: 100, wantCalls: 2},
		{name: "missing rate returns value unconverted", value: 42, from: "XYZ", to: "USD", want: 42, wantCalls: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &mockRateSource{rates: map[string]float64{"USD": 1.25, "CHF": 1.0, "GBP": 1.0}}
			uc := usecase.NewExchangeRateUsecase(src)
			got := uc.ToCurrencyAtDate(context.Background(), tt.value, tt.from, tt.to, date)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.Equal(t, tt.wantCalls, src.calls)
		})
	}
}

func TestExchangeRateUsecase_ToCurrency(t *testing.T) {
	t.Parallel()

	uc := usecase.NewExchangeRateUsecase(&mockRateSource{rates: map[string]float64{"USD": 2}})
	assert.InDelta(t, 20.0, uc.ToCurrency(context.Background(), 10, "EUR", "USD"), 1e-9)
}
