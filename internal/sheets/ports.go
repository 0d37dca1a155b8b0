package sheets

import (
	"context"

	"fintrack/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionExporter writes a month's visible transactions to an
	// external spreadsheet and returns a reference to what it wrote.
	TransactionExporter interface {
		ExportTransactions(ctx context.Context, userID string, month core.Month, txns []core.Transaction) (ref string, err error)
	}
)

// TabName is the sheet tab a month is exported to.
func TabName(m core.Month) string {
	return "transactions_" + m.String()
}
