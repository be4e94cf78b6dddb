package orders

import (
	"fmt"
	"time"
)

// InvoiceNumber derives the invoice number from the creation month and the
// order sequence number, e.g. INV-202610-000042.
func InvoiceNumber(createdAt time.Time, number int64) string {
	return fmt.Sprintf("INV-%s-%06d", createdAt.Format("200601"), number)
}
