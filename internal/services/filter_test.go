package services

import (
	"net/url"
	"testing"

	"fintrack/internal/core"
)

func sampleMonth() []core.Transaction {
	return []core.Transaction{
		{ID: "1", Type: core.Expense, Amount: core.Money{Cents: 4250}, Tag: core.TagGroceries, Note: "Weekly shop", Date: core.NewDate(2024, 3, 14)},
		{ID: "2", Type: core.Income, Amount: core.Money{Cents: 300000}, Tag: core.TagIncome, Note: "Salary", Date: core.NewDate(2024, 3, 1)},
		{ID: "3", Type: core.Expense, Amount: core.Money{Cents: 1200}, Tag: core.TagTransport, Note: "", Date: core.NewDate(2024, 3, 20)},
		{ID: "4", Type: core.Expense, Amount: core.Money{Cents: 800}, Tag: core.TagEatingOut, Note: "pizza", Date: core.NewDate(2024, 3, 10)},
	}
}

func ids(txns []core.Transaction) string {
	s := ""
	for _, t := range txns {
		s += t.ID
	}
	return s
}

func TestFilterApply(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   string
	}{
		{"zero filter keeps order", Filter{}, "1234"},
		{"all is unconstrained", Filter{Type: "all", Tag: "all"}, "1234"},
		{"type", Filter{Type: "expense"}, "134"},
		{"tag", Filter{Tag: "Income"}, "2"},
		{"from inclusive", Filter{From: core.NewDate(2024, 3, 14)}, "13"},
		{"to inclusive", Filter{To: core.NewDate(2024, 3, 10)}, "24"},
		{"q matches note case-insensitively", Filter{Q: "SHOP"}, "1"},
		{"q matches tag", Filter{Q: "transp"}, "3"},
		{"q spans note and tag", Filter{Q: "pizza eat"}, "4"},
		{"predicates are ANDed", Filter{Type: "expense", Q: "salary"}, ""},
		{"unknown tag", Filter{Tag: "Nope"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ids(tt.filter.Apply(sampleMonth())); got != tt.want {
				t.Errorf("Apply() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFilterIsSubsetOfInput(t *testing.T) {
	in := sampleMonth()
	out := Filter{Type: "expense", From: core.NewDate(2024, 3, 5)}.Apply(in)
	if len(out) > len(in) {
		t.Fatalf("filter grew the set")
	}
	for _, o := range out {
		found := false
		for _, i := range in {
			if i.ID == o.ID {
				found = true
			}
		}
		if !found {
			t.Fatalf("%s not in input", o.ID)
		}
	}
}

func TestParseFilter(t *testing.T) {
	v := url.Values{"type": {"income"}, "tag": {"all"}, "from": {"2024-03-01"}, "to": {"2024-03-31"}, "q": {"Sal"}}
	f, err := ParseFilter(v)
	if err != nil {
		t.Fatalf("ParseFilter: %v", err)
	}
	if f.Type != "income" || f.From.String() != "2024-03-01" || f.To.String() != "2024-03-31" || f.Q != "Sal" {
		t.Fatalf("unexpected filter %+v", f)
	}

	if _, err := ParseFilter(url.Values{"from": {"03/01/2024"}}); !core.IsValidation(err) {
		t.Fatalf("bad from should be a validation error, got %v", err)
	}
}
