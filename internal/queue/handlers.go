package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-apotek/internal/billing"
	"github.com/noah-isme/backend-apotek/internal/inventory"
	"github.com/noah-isme/backend-apotek/internal/obs"
	"github.com/noah-isme/backend-apotek/internal/prescription"
)

// Handlers processes notification tasks. Delivery is a structured log line;
// there is no outbound channel yet.
type Handlers struct {
	Logger zerolog.Logger
}

// NewMux registers every notification handler.
func NewMux(h *Handlers) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeStockLow, h.HandleStockLow)
	mux.HandleFunc(TypeBillCreated, h.HandleBillCreated)
	mux.HandleFunc(TypePrescriptionDispense, h.HandlePrescriptionDispensed)
	return mux
}

// HandleStockLow reports a medicine at or below its minimum stock.
func (h *Handlers) HandleStockLow(_ context.Context, t *asynq.Task) error {
	var p inventory.LowStockPayload
	if err := decode(t, &p); err != nil {
		return err
	}
	status := p.StockStatus
	if status == "" {
		status = inventory.Stock{Current: p.Current, Minimum: p.Minimum}.Status()
	}
	h.Logger.Warn().
		Str("medicine_id", p.MedicineID).
		Str("medicine", p.Name).
		Str("batch", p.BatchNumber).
		Int("current", p.Current).
		Int("minimum", p.Minimum).
		Str("stock_status", status).
		Msg("low stock notification")
	obs.LowStockNotificationsTotal.WithLabelValues(status).Inc()
	obs.TasksProcessedTotal.WithLabelValues(t.Type(), "ok").Inc()
	return nil
}

// HandleBillCreated records a finalized sale.
func (h *Handlers) HandleBillCreated(_ context.Context, t *asynq.Task) error {
	var p billing.EventPayload
	if err := decode(t, &p); err != nil {
		return err
	}
	h.Logger.Info().
		Str("bill_id", p.ID).
		Str("bill_reference", p.BillReference).
		Float64("grand_total", p.GrandTotal).
		Str("payment_method", string(p.PaymentMethod)).
		Str("payment_status", string(p.PaymentStatus)).
		Str("customer", p.CustomerName).
		Msg("bill created notification")
	obs.TasksProcessedTotal.WithLabelValues(t.Type(), "ok").Inc()
	return nil
}

// HandlePrescriptionDispensed records a prescription closed out by a sale.
func (h *Handlers) HandlePrescriptionDispensed(_ context.Context, t *asynq.Task) error {
	var p prescription.DispensedPayload
	if err := decode(t, &p); err != nil {
		return err
	}
	h.Logger.Info().
		Str("prescription_id", p.PrescriptionID).
		Str("dispensed_by", p.DispensedBy).
		Time("dispensed_at", p.DispensedAt).
		Msg("prescription dispensed notification")
	obs.TasksProcessedTotal.WithLabelValues(t.Type(), "ok").Inc()
	return nil
}

// decode rejects malformed payloads without retrying them.
func decode(t *asynq.Task, dst any) error {
	if err := json.Unmarshal(t.Payload(), dst); err != nil {
		obs.TasksProcessedTotal.WithLabelValues(t.Type(), "invalid").Inc()
		return fmt.Errorf("queue: decode %s: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	return nil
}

// Logger adapts zerolog to asynq's logger interface.
type Logger struct {
	L zerolog.Logger
}

func (l Logger) Debug(args ...any) { l.L.Debug().Msg(fmt.Sprint(args...)) }
func (l Logger) Info(args ...any)  { l.L.Info().Msg(fmt.Sprint(args...)) }
func (l Logger) Warn(args ...any)  { l.L.Warn().Msg(fmt.Sprint(args...)) }
func (l Logger) Error(args ...any) { l.L.Error().Msg(fmt.Sprint(args...)) }
func (l Logger) Fatal(args ...any) { l.L.Fatal().Msg(fmt.Sprint(args...)) }
