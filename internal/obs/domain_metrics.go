package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// BillsCreatedTotal counts finalized bills by payment method.
	BillsCreatedTotal *prometheus.CounterVec
	// BillCancellationsTotal counts bill cancellations.
	BillCancellationsTotal prometheus.Counter
	// BillGrandTotal observes bill grand totals.
	BillGrandTotal prometheus.Histogram
	// StockAdjustmentsTotal counts stock mutations by kind and result.
	StockAdjustmentsTotal *prometheus.CounterVec
	// PrescriptionLinkFailuresTotal counts prescriptions that could not be marked dispensed after billing.
	PrescriptionLinkFailuresTotal prometheus.Counter
	// LowStockNotificationsTotal counts low-stock notifications handled by the worker.
	LowStockNotificationsTotal *prometheus.CounterVec
	// DBQueryDuration observes statement latency in milliseconds by SQL operation.
	DBQueryDuration *prometheus.HistogramVec

	// TasksEnqueuedTotal counts notification enqueues by task type and result (ok, duplicate, error).
	TasksEnqueuedTotal *prometheus.CounterVec
	// TasksProcessedTotal counts worker outcomes by task type.
	TasksProcessedTotal *prometheus.CounterVec
	// DeadTasks is the archived task count last seen per queue.
	DeadTasks *prometheus.GaugeVec
)

func init() {
	// Unregistered defaults keep packages usable in tests and tools that never call MustRegisterDomainMetrics.
	BillsCreatedTotal = newBillsCreated("")
	BillCancellationsTotal = newBillCancellations("")
	BillGrandTotal = newBillGrandTotal("")
	StockAdjustmentsTotal = newStockAdjustments("")
	PrescriptionLinkFailuresTotal = newLinkFailures("")
	LowStockNotificationsTotal = newLowStockNotifications("")
	DBQueryDuration = newDBQueryDuration("")
	TasksEnqueuedTotal, TasksProcessedTotal, DeadTasks = newTaskCollectors("")
}

// MustRegisterDomainMetrics builds the domain collectors under namespace and
// registers them with reg (the default registerer when nil). Only the first
// call has an effect.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		BillsCreatedTotal = register(reg, newBillsCreated(namespace))
		BillCancellationsTotal = register(reg, newBillCancellations(namespace))
		BillGrandTotal = register(reg, newBillGrandTotal(namespace))
		StockAdjustmentsTotal = register(reg, newStockAdjustments(namespace))
		PrescriptionLinkFailuresTotal = register(reg, newLinkFailures(namespace))
		LowStockNotificationsTotal = register(reg, newLowStockNotifications(namespace))
		DBQueryDuration = register(reg, newDBQueryDuration(namespace))
		enq, proc, dead := newTaskCollectors(namespace)
		TasksEnqueuedTotal = register(reg, enq)
		TasksProcessedTotal = register(reg, proc)
		DeadTasks = register(reg, dead)
	})
}

func newBillsCreated(namespace string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bills_created_total",
		Help:      "Count of finalized bills by payment method.",
	}, []string{"payment_method"})
}

func newBillCancellations(namespace string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bill_cancellations_total",
		Help:      "Count of cancelled bills.",
	})
}

func newBillGrandTotal(namespace string) prometheus.Histogram {
	return prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "bill_grand_total",
		Help:      "Distribution of bill grand totals.",
		Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 25000},
	})
}

func newStockAdjustments(namespace string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stock_adjustments_total",
		Help:      "Count of stock mutations by kind and outcome.",
	}, []string{"kind", "result"})
}

func newLinkFailures(namespace string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "prescription_link_failures_total",
		Help:      "Count of prescriptions that could not be marked dispensed after billing.",
	})
}

func newLowStockNotifications(namespace string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "low_stock_notifications_total",
		Help:      "Count of low-stock notifications processed by the worker.",
	}, []string{"stock_status"})
}

func newDBQueryDuration(namespace string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "db_query_duration_ms",
		Help:      "Postgres statement latency in milliseconds.",
		Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 1000},
	}, []string{"operation"})
}

func newTaskCollectors(namespace string) (*prometheus.CounterVec, *prometheus.CounterVec, *prometheus.GaugeVec) {
	enqueued := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_enqueued_total",
		Help:      "Notification tasks handed to the queue by outcome.",
	}, []string{"type", "result"})
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_processed_total",
		Help:      "Notification tasks processed by the worker by status.",
	}, []string{"type", "status"})
	dead := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tasks_archived",
		Help:      "Tasks that exhausted their retries, per queue.",
	}, []string{"queue"})
	return enqueued, processed, dead
}
