package events

// Topics written to domain_events. Only some of them are also queued for
// the notification worker.
const (
	TopicBillCreated           = "bill.created"
	TopicBillUpdated           = "bill.updated"
	TopicBillCancelled         = "bill.cancelled"
	TopicPrescriptionDispensed = "prescription.dispensed"
	TopicStockLow              = "stock.low"
)
