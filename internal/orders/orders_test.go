package orders

import (
	"math"
	"math/rand/v2"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	orders := Generate(50, now, rand.New(rand.NewPCG(1, 2)))
	require.Len(t, orders, 50)

	earliest := now.AddDate(0, 0, -30)
	for i, o := range orders {
		assert.Equal(t, "ORD-"+strconv.Itoa(1000+i), o.ID)
		assert.Equal(t, "Customer "+strconv.Itoa(i+1), o.Customer)
		assert.Contains(t, Products, o.Product)
		assert.GreaterOrEqual(t, o.Quantity, 1)
		assert.LessOrEqual(t, o.Quantity, 5)
		assert.GreaterOrEqual(t, o.UnitPrice, 50.0)
		assert.LessOrEqual(t, o.UnitPrice, 1000.0)
		assert.False(t, o.Date.Before(earliest), "date %s before window", o.Date)
		assert.False(t, o.Date.After(now), "date %s after now", o.Date)
		assert.True(t, isCents(o.UnitPrice), "unit price %v", o.UnitPrice)
		assert.True(t, isCents(o.Total), "total %v", o.Total)
		assert.InDelta(t, float64(o.Quantity)*o.UnitPrice, o.Total, 0.005)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	now := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	a := Generate(10, now, rand.New(rand.NewPCG(7, 7)))
	b := Generate(10, now, rand.New(rand.NewPCG(7, 7)))
	assert.Equal(t, a, b)
}

func TestGenerateDefaultCount(t *testing.T) {
	assert.Len(t, Generate(0, time.Now(), nil), DefaultCount)
}

func TestRows(t *testing.T) {
	order := Order{
		Date:      time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		ID:        "ORD-1000",
		Customer:  "Customer 1",
		Product:   "Mouse",
		Quantity:  2,
		UnitPrice: 19.99,
		Total:     39.98,
	}

	rows := Rows([]Order{order})
	require.Len(t, rows, 2)
	assert.Equal(t, []any{"Date", "Order ID", "Customer", "Product", "Quantity", "Unit Price", "Total"}, rows[0])
	assert.Equal(t, []any{"2026-10-01", "ORD-1000", "Customer 1", "Mouse", 2, 19.99, 39.98}, rows[1])
}

func TestRange(t *testing.T) {
	assert.Equal(t, "Orders!A1:G51", Range(51))
	assert.Equal(t, "A", columnLetter(1))
	assert.Equal(t, "Z", columnLetter(26))
	assert.Equal(t, "AA", columnLetter(27))
}

func isCents(v float64) bool {
	return math.Abs(v*100-math.Round(v*100)) < 1e-6
}
