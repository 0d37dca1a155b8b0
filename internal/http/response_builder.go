package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

type transactionJSON struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Amount    string `json:"amount"`
	Tag       string `json:"tag"`
	Note      string `json:"note"`
	Date      string `json:"date"`
	Recurring bool   `json:"recurring"`
}

type budgetJSON struct {
	Tag     string `json:"tag"`
	Limit   string `json:"limit"`
	Spent   string `json:"spent"`
	Percent int64  `json:"percent"`
	Bar     int64  `json:"bar"`
	Over    bool   `json:"over"`
}

type goalJSON struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Target  string `json:"target"`
	Percent int64  `json:"percent"`
}

type categoryJSON struct {
	Tag    string `json:"tag"`
	Amount string `json:"amount"`
	Share  int64  `json:"share"`
}

type summaryJSON struct {
	Income       string            `json:"income"`
	Expense      string            `json:"expense"`
	Net          string            `json:"net"`
	NetDisplay   string            `json:"net_display"`
	ByTag        map[string]string `json:"by_tag"`
	Ranking      []categoryJSON    `json:"ranking"`
	SavingsSpent string            `json:"savings_spent"`
}

type statusJSON struct {
	Available bool      `json:"available"`
	Error     string    `json:"error,omitempty"`
	Since     time.Time `json:"since"`
}

type filterJSON struct {
	Type string `json:"type,omitempty"`
	Tag  string `json:"tag,omitempty"`
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
	Q    string `json:"q,omitempty"`
}

type dashboardJSON struct {
	Month        string            `json:"month"`
	Filter       filterJSON        `json:"filter"`
	Transactions []transactionJSON `json:"transactions"`
	Summary      summaryJSON       `json:"summary"`
	Budgets      []budgetJSON      `json:"budgets"`
	Goals        []goalJSON        `json:"goals"`
	Tags         []string          `json:"tags"`
	Status       statusJSON        `json:"status"`
	Version      uint64            `json:"version"`
	LoadedAt     time.Time         `json:"loaded_at"`
}

type errorJSON struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func newTransactionJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:        t.ID,
		Type:      string(t.Type),
		Amount:    t.Amount.String(),
		Tag:       string(t.Tag),
		Note:      t.Note,
		Date:      t.Date.String(),
		Recurring: t.Recurring,
	}
}

func newGoalJSON(g core.Goal, percent int64) goalJSON {
	return goalJSON{ID: g.ID, Name: g.Name, Target: g.Target.String(), Percent: percent}
}

// newDashboardJSON flattens a dashboard. Slices are never null.
func newDashboardJSON(d services.Dashboard, currency string) dashboardJSON {
	out := dashboardJSON{
		Month: d.Month.String(),
		Filter: filterJSON{
			Type: d.Filter.Type,
			Tag:  d.Filter.Tag,
			From: d.Filter.From.String(),
			To:   d.Filter.To.String(),
			Q:    d.Filter.Q,
		},
		Transactions: make([]transactionJSON, 0, len(d.Visible)),
		Budgets:      make([]budgetJSON, 0, len(d.Summary.Budgets)),
		Goals:        make([]goalJSON, 0, len(d.Summary.Goals)),
		Tags:         make([]string, 0, len(core.ExpenseTags())),
		Status:       statusJSON{Available: d.Status.Available, Since: d.Status.Since},
		Version:      d.Version,
		LoadedAt:     d.LoadedAt,
	}
	if d.Status.Err != nil {
		out.Status.Error = d.Status.Err.Error()
	}

	for _, t := range d.Visible {
		out.Transactions = append(out.Transactions, newTransactionJSON(t))
	}

	s := d.Summary
	out.Summary = summaryJSON{
		Income:       s.Income.String(),
		Expense:      s.Expense.String(),
		Net:          s.Net.String(),
		NetDisplay:   s.Net.Display(currency),
		ByTag:        make(map[string]string, len(s.ByTag)),
		Ranking:      make([]categoryJSON, 0, len(s.Ranking)),
		SavingsSpent: s.SavingsSpent.String(),
	}
	for tag, amount := range s.ByTag {
		out.Summary.ByTag[string(tag)] = amount.String()
	}
	for _, c := range s.Ranking {
		out.Summary.Ranking = append(out.Summary.Ranking, categoryJSON{Tag: string(c.Tag), Amount: c.Amount.String(), Share: c.Share})
	}
	for _, b := range s.Budgets {
		out.Budgets = append(out.Budgets, budgetJSON{
			Tag:     string(b.Tag),
			Limit:   b.Limit.String(),
			Spent:   b.Spent.String(),
			Percent: b.Percent,
			Bar:     b.Bar,
			Over:    b.Over,
		})
	}
	for _, g := range s.Goals {
		out.Goals = append(out.Goals, newGoalJSON(g.Goal, g.Percent))
	}
	for _, t := range core.ExpenseTags() {
		out.Tags = append(out.Tags, string(t))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps ledger and validation errors to HTTP status codes.
// Not-found is checked first because rejected writes wrap it.
func statusFor(err error) (int, string) {
	var (
		bad    *badRequestError
		export *exportError
	)
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest, ""
	case errors.As(err, &export):
		return http.StatusBadGateway, applog.ErrorTypeRejected
	case errors.Is(err, errMissingIdentity):
		return http.StatusUnauthorized, applog.ErrorTypeAuth
	case core.IsValidation(err):
		return http.StatusUnprocessableEntity, applog.ErrorTypeValidation
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound, applog.ErrorTypeNotFound
	case errors.Is(err, ledger.ErrStoreUnavailable), errors.Is(err, services.ErrSessionClosed):
		return http.StatusServiceUnavailable, applog.ErrorTypeUnavailable
	case ledger.IsWriteRejected(err):
		return http.StatusBadGateway, applog.ErrorTypeRejected
	default:
		return http.StatusInternalServerError, applog.ErrorTypeInternal
	}
}

// writeError logs err on the request logger and sends it as JSON.
// Internal errors are not echoed to the caller.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, errType := statusFor(err)
	body := errorJSON{Error: err.Error()}
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		body.Field = ve.Field
	}
	if status == http.StatusInternalServerError {
		body.Error = http.StatusText(status)
	}

	logger := applog.FromContext(r.Context())
	fields := applog.NewFields().WithError(err, errType).ToSlice()
	if status >= 500 {
		logger.ErrorContext(r.Context(), "Request failed", fields...)
	} else {
		logger.InfoContext(r.Context(), "Request rejected", fields...)
	}
	writeJSON(w, status, body)
}
