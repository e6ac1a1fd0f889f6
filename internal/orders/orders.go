package orders

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// SheetName is the tab the orders live in.
const SheetName = "Orders"

// DefaultCount is the number of orders seeded when none is given.
const DefaultCount = 50

// DateLayout formats order dates.
const DateLayout = "2006-01-02"

// Headers are the column names of the orders sheet, in order.
var Headers = []string{"Date", "Order ID", "Customer", "Product", "Quantity", "Unit Price", "Total"}

// Products are the catalogue orders are drawn from.
var Products = []string{"Laptop", "Phone", "Tablet", "Headphones", "Mouse", "Keyboard"}

const (
	firstOrderNumber = 1000
	windowDays       = 30
	minQuantity      = 1
	maxQuantity      = 5
	minUnitPrice     = 50.0
	maxUnitPrice     = 1000.0
)

// Order is one row of the orders sheet.
type Order struct {
	Date      time.Time
	ID        string
	Customer  string
	Product   string
	Quantity  int
	UnitPrice float64
	Total     float64
}

// Row renders the order as sheet cell values.
func (o Order) Row() []any {
	return []any{
		o.Date.Format(DateLayout),
		o.ID,
		o.Customer,
		o.Product,
		o.Quantity,
		o.UnitPrice,
		o.Total,
	}
}

// Generate returns n orders dated within the windowDays days before now.
// A nil rng uses a time-seeded source.
func Generate(n int, now time.Time, rng *rand.Rand) []Order {
	if n <= 0 {
		n = DefaultCount
	}
	if rng == nil {
		seed := uint64(now.UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}

	base := now.AddDate(0, 0, -windowDays)
	orders := make([]Order, 0, n)
	for i := range n {
		quantity := minQuantity + rng.IntN(maxQuantity-minQuantity+1)
		unitPrice := roundCents(minUnitPrice + rng.Float64()*(maxUnitPrice-minUnitPrice))
		orders = append(orders, Order{
			Date:      base.AddDate(0, 0, rng.IntN(windowDays+1)),
			ID:        fmt.Sprintf("ORD-%d", firstOrderNumber+i),
			Customer:  fmt.Sprintf("Customer %d", i+1),
			Product:   Products[rng.IntN(len(Products))],
			Quantity:  quantity,
			UnitPrice: unitPrice,
			Total:     roundCents(float64(quantity) * unitPrice),
		})
	}
	return orders
}

// Rows renders the header row followed by one row per order.
func Rows(orders []Order) [][]any {
	rows := make([][]any, 0, len(orders)+1)
	header := make([]any, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	rows = append(rows, header)
	for _, o := range orders {
		rows = append(rows, o.Row())
	}
	return rows
}

// Range returns the A1 range covering rows rows of the orders sheet.
func Range(rows int) string {
	return fmt.Sprintf("%s!A1:%s%d", SheetName, columnLetter(len(Headers)), rows)
}

func columnLetter(n int) string {
	var out []byte
	for n > 0 {
		n--
		out = append([]byte{byte('A' + n%26)}, out...)
		n /= 26
	}
	return string(out)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
