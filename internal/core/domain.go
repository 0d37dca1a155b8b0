package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Expense TxType = "expense"
	Income  TxType = "income"
)

// Canonical tags. Expense rows may also carry a user-edited tag outside this set.
const (
	TagGroceries     Tag = "Groceries"
	TagTransport     Tag = "Transport"
	TagBills         Tag = "Bills"
	TagEntertainment Tag = "Entertainment"
	TagEatingOut     Tag = "Eating Out"
	TagShopping      Tag = "Shopping"
	TagHealth        Tag = "Health"
	TagRent          Tag = "Rent"
	TagSavings       Tag = "Savings"
	TagOther         Tag = "Other"
	TagIncome        Tag = "Income"
)

const isoDate = "2006-01-02"

type (
	TxType string

	Tag string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Transaction struct {
		ID        string
		Type      TxType
		Amount    Money
		Tag       Tag
		Note      string
		Date      Date
		Recurring bool
		CreatedAt time.Time // store-assigned, tie-break only
	}

	// NewTransaction is a creation request; the store assigns ID and CreatedAt.
	NewTransaction struct {
		Type      TxType
		Amount    Money
		Tag       Tag
		Note      string
		Date      Date
		Recurring bool
	}

	// TransactionPatch holds the mutable fields of a transaction.
	// Type and Recurring are fixed at creation.
	TransactionPatch struct {
		Amount Money
		Note   string
		Date   Date
		Tag    Tag
	}

	Budget struct {
		Tag   Tag
		Limit Money
	}

	Goal struct {
		ID        string
		Name      string
		Target    Money
		CreatedAt time.Time
	}

	GoalPatch struct {
		Name   *string
		Target *Money
	}
)

var (
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	ErrInvalidType   = errors.New("type must be expense or income")
	ErrInvalidDate   = errors.New("invalid date")
	ErrEmptyTag      = errors.New("empty tag")
	ErrNegativeLimit = errors.New("limit cannot be negative")
	ErrEmptyName     = errors.New("empty name")
)

var canonicalTags = []Tag{
	TagGroceries, TagTransport, TagBills, TagEntertainment, TagEatingOut,
	TagShopping, TagHealth, TagRent, TagSavings, TagOther,
}

// ValidationError reports a rejected input field. It is raised before any
// store call is made.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// ExpenseTags returns the canonical expense categories in display order.
func ExpenseTags() []Tag {
	return append([]Tag(nil), canonicalTags...)
}

// IsCanonical reports whether t belongs to the fixed category set (Income included).
func (t Tag) IsCanonical() bool {
	if t == TagIncome {
		return true
	}
	for _, c := range canonicalTags {
		if c == t {
			return true
		}
	}
	return false
}

func (t Tag) String() string { return string(t) }

func (t TxType) Valid() bool {
	return t == Expense || t == Income
}

// ParseDate parses an ISO YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	parsed, err := time.Parse(isoDate, strings.TrimSpace(s))
	if err != nil {
		return Date{}, invalid("date", ErrInvalidDate)
	}
	return Date{Time: parsed}, nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current calendar date in UTC.
func Today() Date {
	y, m, d := time.Now().UTC().Date()
	return NewDate(y, int(m), d)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return invalid("date", ErrInvalidDate)
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(isoDate)
}

// Before and After compare calendar days.
func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool  { return d.Time.Equal(o.Time) }

// Validate checks a quick-add request. Import requests skip it on purpose.
func (n NewTransaction) Validate() error {
	if !n.Type.Valid() {
		return invalid("type", ErrInvalidType)
	}
	if err := n.Amount.Validate(); err != nil {
		return err
	}
	if err := n.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(string(n.Tag)) == "" {
		return invalid("tag", ErrEmptyTag)
	}
	return nil
}

func (p TransactionPatch) Validate() error {
	if err := p.Amount.Validate(); err != nil {
		return err
	}
	return p.Date.Validate()
}

// Apply returns t with the patch applied.
func (p TransactionPatch) Apply(t Transaction) Transaction {
	t.Amount = p.Amount
	t.Note = p.Note
	t.Date = p.Date
	t.Tag = p.Tag
	return t
}

func (b Budget) Validate() error {
	if strings.TrimSpace(string(b.Tag)) == "" {
		return invalid("tag", ErrEmptyTag)
	}
	if b.Limit.Cents < 0 {
		return invalid("limit", ErrNegativeLimit)
	}
	return nil
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return invalid("name", ErrEmptyName)
	}
	if g.Target.Cents <= 0 {
		return invalid("target", ErrInvalidAmount)
	}
	return nil
}

func (p GoalPatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return invalid("name", ErrEmptyName)
	}
	if p.Target != nil && p.Target.Cents <= 0 {
		return invalid("target", ErrInvalidAmount)
	}
	return nil
}

// Apply returns g with the set fields of the patch applied.
func (p GoalPatch) Apply(g Goal) Goal {
	if p.Name != nil {
		g.Name = strings.TrimSpace(*p.Name)
	}
	if p.Target != nil {
		g.Target = *p.Target
	}
	return g
}
