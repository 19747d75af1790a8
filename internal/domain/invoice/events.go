package invoice

import (
	"time"

	"github.com/example/marketflow/internal/domain/model"
)

const (
	EventInvoiceGenerated     = "InvoiceGenerated"
	EventInvoiceStatusChanged = "InvoiceStatusChanged"
)

type InvoiceGenerated struct {
	Invoice model.Invoice `json:"invoice"`
}

type InvoiceStatusChanged struct {
	InvoiceID     string              `json:"invoice_id"`
	InvoiceNumber string              `json:"invoice_number"`
	OrderID       string              `json:"order_id"`
	From          model.InvoiceStatus `json:"from"`
	To            model.InvoiceStatus `json:"to"`
	ChangedAt     time.Time           `json:"changed_at"`
}
