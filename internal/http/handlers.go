package http

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

// exportError wraps a failed spreadsheet export.
type exportError struct{ err error }

func (e *exportError) Error() string { return "sheets export failed: " + e.err.Error() }
func (e *exportError) Unwrap() error { return e.err }

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.live.Ping(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "sessions": s.sessions.size()})
}

// handleDashboard optionally switches month, then applies the query filter
// and returns the recomputed view.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, id Identity) {
	q := r.URL.Query()
	filter, err := services.ParseFilter(q)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var view services.Dashboard
	err = s.sessions.with(r.Context(), id.UserID, func(sess *services.Session) error {
		if m := strings.TrimSpace(q.Get("month")); m != "" {
			if err := s.switchMonth(r.Context(), sess, m); err != nil {
				return err
			}
		}
		sess.SetFilter(filter)
		view = sess.View()
		return nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newDashboardJSON(view, s.currency))
}

func (s *Server) handleSetMonth(w http.ResponseWriter, r *http.Request, id Identity) {
	var req monthRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var view services.Dashboard
	err := s.sessions.with(r.Context(), id.UserID, func(sess *services.Session) error {
		if err := s.switchMonth(r.Context(), sess, req.Month); err != nil {
			return err
		}
		view = sess.View()
		return nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newDashboardJSON(view, s.currency))
}

func (s *Server) switchMonth(ctx context.Context, sess *services.Session, raw string) error {
	month, err := core.ParseMonth(raw)
	if err != nil {
		return err
	}
	changed := month != sess.Month()
	if err := sess.SetMonth(ctx, month); err != nil {
		return err
	}
	if !changed {
		return nil
	}
	// Recurring copies land asynchronously; read them back before replying.
	return sess.Refresh(ctx)
}

// afterWrite brings the caller's session up to date so the next read sees
// the write. Failure only means the live reload will catch up later.
func (s *Server) afterWrite(ctx context.Context, userID string) {
	err := s.sessions.with(ctx, userID, func(sess *services.Session) error {
		return sess.Refresh(ctx)
	})
	if err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Session refresh after write failed", "error", err)
	}
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, id Identity) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	n, err := req.toNew()
	if err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := s.ledger.AddTransaction(r.Context(), id.UserID, n)
	if err != nil {
		writeError(w, r, err)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Transaction created",
		applog.NewFields().
			WithOperation(applog.OpCreate).
			WithTransaction(tx.ID, string(tx.Type), tx.Amount.String(), string(tx.Tag)).
			ToSlice()...)
	s.afterWrite(r.Context(), id.UserID)
	writeJSON(w, http.StatusCreated, newTransactionJSON(tx))
}

func (s *Server) handleEditTransaction(w http.ResponseWriter, r *http.Request, id Identity) {
	var req transactionPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := req.toPatch()
	if err != nil {
		writeError(w, r, err)
		return
	}
	txID := r.PathValue("id")
	if err := s.ledger.EditTransaction(r.Context(), id.UserID, txID, p); err != nil {
		writeError(w, r, err)
		return
	}
	s.afterWrite(r.Context(), id.UserID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, id Identity) {
	if err := s.ledger.DeleteTransaction(r.Context(), id.UserID, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	s.afterWrite(r.Context(), id.UserID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpsertBudget(w http.ResponseWriter, r *http.Request, id Identity) {
	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := core.ParseAmount(req.Limit.String())
	if err != nil {
		writeError(w, r, &core.ValidationError{Field: "limit", Err: core.ErrInvalidAmount})
		return
	}
	b := core.Budget{Tag: core.Tag(sanitizeInput(r.PathValue("tag"))), Limit: limit}
	if err := s.ledger.UpsertBudget(r.Context(), id.UserID, b); err != nil {
		writeError(w, r, err)
		return
	}
	s.afterWrite(r.Context(), id.UserID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request, id Identity) {
	tag := core.Tag(sanitizeInput(r.PathValue("tag")))
	if err := s.ledger.DeleteBudget(r.Context(), id.UserID, tag); err != nil {
		writeError(w, r, err)
		return
	}
	s.afterWrite(r.Context(), id.UserID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request, id Identity) {
	var req goalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	g, err := req.toGoal()
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.ledger.AddGoal(r.Context(), id.UserID, g)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.afterWrite(r.Context(), id.UserID)
	writeJSON(w, http.StatusCreated, newGoalJSON(created, 0))
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request, id Identity) {
	var req goalPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := req.toPatch()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.UpdateGoal(r.Context(), id.UserID, r.PathValue("id"), p); err != nil {
		writeError(w, r, err)
		return
	}
	s.afterWrite(r.Context(), id.UserID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request, id Identity) {
	if err := s.ledger.DeleteGoal(r.Context(), id.UserID, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	s.afterWrite(r.Context(), id.UserID)
	w.WriteHeader(http.StatusNoContent)
}

// handleExport downloads the visible set as CSV.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, id Identity) {
	var body, filename string
	err := s.sessions.with(r.Context(), id.UserID, func(sess *services.Session) error {
		body, filename = sess.Export()
		return nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q; filename*=UTF-8''%s", filename, url.PathEscape(filename)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request, id Identity) {
	text, err := readImportBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := s.ledger.ImportCSV(r.Context(), id.UserID, text)
	if report.Imported > 0 {
		s.afterWrite(r.Context(), id.UserID)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "import complete",
		"imported": report.Imported,
		"skipped":  report.Skipped,
	})
}

// handleExportSheets pushes the visible set to the month's spreadsheet tab.
func (s *Server) handleExportSheets(w http.ResponseWriter, r *http.Request, id Identity) {
	if s.exporter == nil {
		writeJSON(w, http.StatusNotImplemented, errorJSON{Error: "sheets export is not configured"})
		return
	}

	var view services.Dashboard
	err := s.sessions.with(r.Context(), id.UserID, func(sess *services.Session) error {
		view = sess.View()
		return nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	ref, err := s.exporter.ExportTransactions(r.Context(), id.UserID, view.Month, view.Visible)
	if err != nil {
		writeError(w, r, &exportError{err: err})
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Sheets export complete",
		applog.NewFields().WithOperation(applog.OpExport).WithMonth(view.Month.String()).ToSlice()...)
	writeJSON(w, http.StatusOK, map[string]any{
		"ref":  ref,
		"rows": len(view.Visible),
	})
}
