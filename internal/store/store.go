// Package store persists observed product prices so later analyses have a
// temporal baseline for MRP and timer checks.
package store

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/sells-group/trustlens/internal/model"
)

// SaveResult reports the outcome of PriceStore.Save.
type SaveResult struct {
	ProductID string `json:"product_id"`
	Saved     bool   `json:"saved"`
}

// PriceStore is the append-only price history store.
type PriceStore interface {
	// Save appends one sample for url. A nil or non-positive price is not
	// recorded and yields Saved=false.
	Save(ctx context.Context, url string, price *decimal.Decimal, mrp *decimal.Decimal) (*SaveResult, error)
	// History returns every sample for url, oldest first. Unknown products
	// yield an empty history.
	History(ctx context.Context, url string) (*model.HistoryResult, error)

	Migrate(ctx context.Context) error
	Close() error
}

func recordable(price *decimal.Decimal) bool {
	return price != nil && price.IsPositive()
}

func decimalPtr(s *string) (*decimal.Decimal, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func decimalArg(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}
