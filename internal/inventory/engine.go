package inventory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/inkforge/studio-fulfillment/internal/orders"
)

// MaterialRequirement maps a product to the per-unit quantity it
// consumes of an inventory item. Read-only lookup data.
type MaterialRequirement struct {
	ProductID       string
	InventoryItemID string
	QuantityPerUnit decimal.Decimal
}

type ItemStatus string

const (
	ItemReserved     ItemStatus = "reserved"
	ItemInsufficient ItemStatus = "insufficient_stock"
	ItemFailed       ItemStatus = "failed"
)

type ItemOutcome struct {
	InventoryItemID string
	Name            string
	Status          ItemStatus
	Requested       decimal.Decimal
	Available       decimal.Decimal // set when insufficient
	Remaining       decimal.Decimal // set when reserved
	Err             error
}

type Result struct {
	NothingToDo bool // no material requirements for the purchased products
	Items       []ItemOutcome
}

func (r Result) AllReserved() bool {
	if r.NothingToDo {
		return true
	}
	for _, it := range r.Items {
		if it.Status != ItemReserved {
			return false
		}
	}
	return true
}

func (r Result) ShortItems() []ItemOutcome {
	var out []ItemOutcome
	for _, it := range r.Items {
		if it.Status == ItemInsufficient {
			out = append(out, it)
		}
	}
	return out
}

type Store interface {
	RequirementsForProducts(ctx context.Context, productIDs []string) ([]MaterialRequirement, error)
	// DecrementStock atomically takes needed from the item's stock,
	// guarded on quantity >= needed. ok reports whether a row matched.
	DecrementStock(ctx context.Context, itemID string, needed decimal.Decimal) (name string, remaining decimal.Decimal, ok bool, err error)
	ItemStock(ctx context.Context, itemID string) (name string, quantity decimal.Decimal, err error)
}

// Engine resolves the bill of materials for an order and decrements
// stock per inventory item, collecting one outcome per item.
type Engine struct {
	Store Store
}

func (e *Engine) Reserve(ctx context.Context, agg *orders.Aggregate) (Result, error) {
	reqs, err := e.Store.RequirementsForProducts(ctx, agg.ProductIDs())
	if err != nil {
		return Result{}, fmt.Errorf("load material requirements: %w", err)
	}
	if len(reqs) == 0 {
		return Result{NothingToDo: true}, nil
	}

	qtyByProduct := make(map[string]int, len(agg.Items))
	for _, it := range agg.Items {
		qtyByProduct[it.ProductID] += it.Quantity
	}

	// Requirements for the same inventory item sum across products.
	// Iteration order stays first-seen for a deterministic report.
	needed := make(map[string]decimal.Decimal, len(reqs))
	var itemOrder []string
	for _, req := range reqs {
		qty := qtyByProduct[req.ProductID]
		if qty <= 0 {
			continue
		}
		n := req.QuantityPerUnit.Mul(decimal.NewFromInt(int64(qty)))
		if cur, seen := needed[req.InventoryItemID]; seen {
			needed[req.InventoryItemID] = cur.Add(n)
		} else {
			needed[req.InventoryItemID] = n
			itemOrder = append(itemOrder, req.InventoryItemID)
		}
	}
	if len(itemOrder) == 0 {
		return Result{NothingToDo: true}, nil
	}

	var res Result
	for _, itemID := range itemOrder {
		res.Items = append(res.Items, e.reserveItem(ctx, itemID, needed[itemID]))
	}
	return res, nil
}

// reserveItem never aborts the run: one item's failure must not block
// reservation of the others.
func (e *Engine) reserveItem(ctx context.Context, itemID string, needed decimal.Decimal) ItemOutcome {
	out := ItemOutcome{InventoryItemID: itemID, Requested: needed}

	name, remaining, ok, err := e.Store.DecrementStock(ctx, itemID, needed)
	if err != nil {
		out.Status = ItemFailed
		out.Err = err
		return out
	}
	if ok {
		out.Status = ItemReserved
		out.Name = name
		out.Remaining = remaining
		return out
	}

	// The guarded update matched nothing: the item is short or gone.
	name, available, err := e.Store.ItemStock(ctx, itemID)
	if err != nil {
		out.Status = ItemFailed
		out.Err = err
		return out
	}
	out.Status = ItemInsufficient
	out.Name = name
	out.Available = available
	return out
}
