package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-apotek/internal/common"
	"github.com/noah-isme/backend-apotek/internal/events"
	"github.com/noah-isme/backend-apotek/internal/obs"
)

// StockStore persists stock mutations. ApplyStock performs the mutation as a
// single conditional statement and reports applied=false when no row qualified
// (unknown id, or not enough stock for a subtract). Each applied mutation is
// recorded in the movement ledger by the same statement.
type StockStore interface {
	ApplyStock(ctx context.Context, m StockMutation) (StockLevel, bool, error)
	GetStock(ctx context.Context, medicineID string) (StockLevel, error)
}

// Adjuster is the only writer of stock quantities.
type Adjuster struct {
	Store  StockStore
	Events events.Emitter
	Logger zerolog.Logger
}

// LowStockPayload is published on events.TopicStockLow.
type LowStockPayload struct {
	MedicineID  string `json:"medicineId"`
	Name        string `json:"name"`
	BatchNumber string `json:"batchNumber"`
	Current     int    `json:"current"`
	Minimum     int    `json:"minimum"`
	StockStatus string `json:"stockStatus"`
}

// Add increases stock by qty.
func (a *Adjuster) Add(ctx context.Context, medicineID string, qty int, actor, reference string) (StockLevel, error) {
	return a.Apply(ctx, StockMutation{MedicineID: medicineID, Kind: StockAdd, Quantity: qty, Actor: actor, Reference: reference})
}

// Subtract decreases stock by qty, failing with INSUFFICIENT_STOCK rather than
// going negative.
func (a *Adjuster) Subtract(ctx context.Context, medicineID string, qty int, actor, reference string) (StockLevel, error) {
	return a.Apply(ctx, StockMutation{MedicineID: medicineID, Kind: StockSubtract, Quantity: qty, Actor: actor, Reference: reference})
}

// Set replaces the current stock with qty.
func (a *Adjuster) Set(ctx context.Context, medicineID string, qty int, actor, reference string) (StockLevel, error) {
	return a.Apply(ctx, StockMutation{MedicineID: medicineID, Kind: StockSet, Quantity: qty, Actor: actor, Reference: reference})
}

// Apply runs a stock mutation of any kind.
func (a *Adjuster) Apply(ctx context.Context, m StockMutation) (StockLevel, error) {
	if a == nil || a.Store == nil {
		return StockLevel{}, errors.New("stock adjuster not configured")
	}
	if _, ok := ParseStockKind(string(m.Kind)); !ok {
		a.count(m.Kind, "invalid")
		return StockLevel{}, common.ValidationError(`Invalid operation. Use "add", "subtract", or "set"`, nil)
	}
	m.MedicineID = strings.TrimSpace(m.MedicineID)
	if m.MedicineID == "" {
		a.count(m.Kind, "invalid")
		return StockLevel{}, common.ValidationError("medicine id is required", nil)
	}
	if m.Quantity < 0 {
		a.count(m.Kind, "invalid")
		return StockLevel{}, common.ValidationError("Quantity must be a positive number", map[string]any{"quantity": m.Quantity})
	}

	level, applied, err := a.Store.ApplyStock(ctx, m)
	if err != nil {
		a.count(m.Kind, "error")
		return StockLevel{}, fmt.Errorf("apply stock %s: %w", m.Kind, err)
	}
	if !applied {
		return StockLevel{}, a.rejected(ctx, m)
	}
	a.count(m.Kind, "ok")
	level.StockStatus = level.Stock.Status()
	if m.Kind == StockSubtract && level.StockStatus != StockStatusIn {
		a.lowStock(ctx, level)
	}
	return level, nil
}

// rejected explains why a conditional mutation touched no row.
func (a *Adjuster) rejected(ctx context.Context, m StockMutation) error {
	current, err := a.Store.GetStock(ctx, m.MedicineID)
	if err != nil {
		if common.HasCode(err, common.CodeNotFound) {
			a.count(m.Kind, "not_found")
			return err
		}
		a.count(m.Kind, "error")
		return fmt.Errorf("read stock: %w", err)
	}
	if m.Kind != StockSubtract {
		// add/set only miss when the row vanished between statements
		a.count(m.Kind, "not_found")
		return common.NotFoundError("Medicine")
	}
	a.count(m.Kind, "insufficient")
	return common.InsufficientStockError(common.StockShortage{
		MedicineID:   current.MedicineID,
		MedicineName: current.Name,
		Available:    current.Stock.Current,
		Requested:    m.Quantity,
	})
}

func (a *Adjuster) lowStock(ctx context.Context, level StockLevel) {
	a.Logger.Warn().
		Str("medicine_id", level.MedicineID).
		Str("medicine", level.Name).
		Str("batch", level.BatchNumber).
		Int("current", level.Stock.Current).
		Int("minimum", level.Stock.Minimum).
		Msg("medicine stock at or below minimum")
	if a.Events == nil {
		return
	}
	payload := LowStockPayload{
		MedicineID:  level.MedicineID,
		Name:        level.Name,
		BatchNumber: level.BatchNumber,
		Current:     level.Stock.Current,
		Minimum:     level.Stock.Minimum,
		StockStatus: level.StockStatus,
	}
	if _, err := a.Events.Emit(ctx, events.TopicStockLow, level.MedicineID, payload); err != nil {
		a.Logger.Warn().Err(err).Str("medicine_id", level.MedicineID).Msg("emit stock.low failed")
	}
}

func (a *Adjuster) count(kind StockKind, result string) {
	obs.StockAdjustmentsTotal.WithLabelValues(string(kind), result).Inc()
}
