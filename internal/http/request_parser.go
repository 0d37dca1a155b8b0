// Package http serves the ledger as a JSON API.
//
// This file decodes request bodies into core requests. Field-level problems
// surface as core.ValidationError so they map to 422; malformed JSON maps to 400.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"fintrack/internal/core"
)

const (
	maxJSONBody   = 64 << 10
	maxImportBody = 5 << 20

	headerUserID    = "X-User-ID"
	headerUserName  = "X-User-Name"
	headerUserEmail = "X-User-Email"
)

var (
	errMissingIdentity = errors.New("missing X-User-ID header")
)

// badRequestError marks a body that could not be decoded at all.
type badRequestError struct{ err error }

func (e *badRequestError) Error() string { return "malformed request: " + e.err.Error() }
func (e *badRequestError) Unwrap() error { return e.err }

// Identity is the caller as asserted by the fronting proxy.
type Identity struct {
	UserID string
	Name   string
	Email  string
}

// parseIdentity reads the identity headers. Only the user id is required.
func parseIdentity(r *http.Request) (Identity, error) {
	id := Identity{
		UserID: sanitizeInput(r.Header.Get(headerUserID)),
		Name:   sanitizeInput(r.Header.Get(headerUserName)),
		Email:  sanitizeInput(r.Header.Get(headerUserEmail)),
	}
	if id.UserID == "" {
		return Identity{}, errMissingIdentity
	}
	return id, nil
}

// decodeJSON reads a single JSON object into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &badRequestError{err: err}
	}
	if dec.More() {
		return &badRequestError{err: errors.New("unexpected data after JSON object")}
	}
	return nil
}

type transactionRequest struct {
	Type      string      `json:"type"`
	Amount    json.Number `json:"amount"`
	Tag       string      `json:"tag"`
	Note      string      `json:"note"`
	Date      string      `json:"date"`
	Recurring bool        `json:"recurring"`
}

// toNew builds a quick-add request. An empty date is left zero so the
// service fills in today.
func (t transactionRequest) toNew() (core.NewTransaction, error) {
	amount, err := core.ParseAmount(t.Amount.String())
	if err != nil {
		return core.NewTransaction{}, err
	}
	date, err := optionalDate(t.Date)
	if err != nil {
		return core.NewTransaction{}, err
	}
	return core.NewTransaction{
		Type:      core.TxType(strings.ToLower(strings.TrimSpace(t.Type))),
		Amount:    amount,
		Tag:       core.Tag(sanitizeInput(t.Tag)),
		Note:      sanitizeInput(t.Note),
		Date:      date,
		Recurring: t.Recurring,
	}, nil
}

type transactionPatchRequest struct {
	Amount json.Number `json:"amount"`
	Tag    string      `json:"tag"`
	Note   string      `json:"note"`
	Date   string      `json:"date"`
}

func (t transactionPatchRequest) toPatch() (core.TransactionPatch, error) {
	amount, err := core.ParseAmount(t.Amount.String())
	if err != nil {
		return core.TransactionPatch{}, err
	}
	date, err := optionalDate(t.Date)
	if err != nil {
		return core.TransactionPatch{}, err
	}
	return core.TransactionPatch{
		Amount: amount,
		Tag:    core.Tag(sanitizeInput(t.Tag)),
		Note:   sanitizeInput(t.Note),
		Date:   date,
	}, nil
}

type budgetRequest struct {
	Limit json.Number `json:"limit"`
}

type goalRequest struct {
	Name   string      `json:"name"`
	Target json.Number `json:"target"`
}

func (g goalRequest) toGoal() (core.Goal, error) {
	target, err := core.ParseAmount(g.Target.String())
	if err != nil {
		return core.Goal{}, &core.ValidationError{Field: "target", Err: core.ErrInvalidAmount}
	}
	return core.Goal{Name: sanitizeInput(g.Name), Target: target}, nil
}

// goalPatchRequest uses pointers so absent fields stay untouched.
type goalPatchRequest struct {
	Name   *string      `json:"name"`
	Target *json.Number `json:"target"`
}

func (g goalPatchRequest) toPatch() (core.GoalPatch, error) {
	var p core.GoalPatch
	if g.Name != nil {
		name := sanitizeInput(*g.Name)
		p.Name = &name
	}
	if g.Target != nil {
		target, err := core.ParseAmount(g.Target.String())
		if err != nil {
			return core.GoalPatch{}, &core.ValidationError{Field: "target", Err: core.ErrInvalidAmount}
		}
		p.Target = &target
	}
	return p, nil
}

type monthRequest struct {
	Month string `json:"month"`
}

func optionalDate(s string) (core.Date, error) {
	if strings.TrimSpace(s) == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(s)
}

// readImportBody returns the raw CSV text of an import request.
func readImportBody(r *http.Request) (string, error) {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxImportBody+1))
	if err != nil {
		return "", &badRequestError{err: err}
	}
	if len(b) > maxImportBody {
		return "", &badRequestError{err: fmt.Errorf("import body exceeds %d bytes", maxImportBody)}
	}
	return string(b), nil
}

// sanitizeInput trims whitespace and drops control characters other than
// tab and line breaks.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
