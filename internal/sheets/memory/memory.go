// Package memory keeps exported spreadsheets in process, for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/csvcodec"
	ports "fintrack/internal/sheets"
)

type Exporter struct {
	mu   sync.Mutex
	tabs map[string][][]string // key: user/tab
}

func New() *Exporter {
	return &Exporter{tabs: make(map[string][][]string)}
}

// ExportTransactions replaces the stored tab for user and month.
func (e *Exporter) ExportTransactions(_ context.Context, userID string, month core.Month, txns []core.Transaction) (string, error) {
	tab := ports.TabName(month)
	rows := csvcodec.Rows(txns)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.tabs[userID+"/"+tab] = rows
	return fmt.Sprintf("mem:%s/%s:%d", userID, tab, len(rows)), nil
}

// Tab returns a copy of what was last exported for user and month.
func (e *Exporter) Tab(userID string, month core.Month) [][]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	rows := e.tabs[userID+"/"+ports.TabName(month)]
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

var _ ports.TransactionExporter = (*Exporter)(nil)
