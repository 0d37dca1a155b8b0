package csvcodec

import (
	"strings"
	"testing"
	"time"

	"fintrack/internal/core"
)

func TestExportFormat(t *testing.T) {
	txns := []core.Transaction{
		{ID: "a1", Type: core.Expense, Amount: core.Money{Cents: 4250}, Tag: core.TagGroceries, Note: "milk, eggs", Date: core.NewDate(2024, 3, 14), Recurring: true},
		{ID: "b2", Type: core.Income, Amount: core.Money{Cents: 300000}, Tag: core.TagIncome, Date: core.NewDate(2024, 3, 1)},
	}
	want := "id,date,type,tag,note,amount,recurring\n" +
		"a1,2024-03-14,expense,Groceries,milk  eggs,42.5,1\n" +
		"b2,2024-03-01,income,Income,,3000,0"
	if got := Export(txns); got != want {
		t.Fatalf("Export() =\n%s\nwant\n%s", got, want)
	}
}

func TestExportEmptyIsHeaderOnly(t *testing.T) {
	if got := Export(nil); got != "id,date,type,tag,note,amount,recurring" {
		t.Fatalf("Export(nil) = %q", got)
	}
}

func TestFilename(t *testing.T) {
	if got := Filename(core.Month{Year: 2024, Month: time.March}); got != "transactions_2024-03.csv" {
		t.Fatalf("Filename = %q", got)
	}
}

func TestImportLeniency(t *testing.T) {
	text := "id,date,type,tag,note,amount,recurring\r\n" +
		"x,2024-03-05,expense,,coffee,abc,\r\n" +
		"y,2024-03-06,income,,salary,2500,TRUE\n" +
		",2024-03-07,expense,Custom,,-12.5,yes\n" +
		"z,,expense,Other,,10,1\n" +
		"w,2024-13-40,expense,Other,,10,1\n" +
		"v,2024-03-08,expense,Rent,,,1\n"

	res := Import(text)
	if len(res.Requests) != 3 {
		t.Fatalf("requests = %d, want 3 (%+v)", len(res.Requests), res.Requests)
	}
	if len(res.Skipped) != 3 {
		t.Fatalf("skipped = %+v", res.Skipped)
	}

	coffee := res.Requests[0]
	if coffee.Tag != core.TagOther || coffee.Amount.Cents != 0 || coffee.Recurring {
		t.Fatalf("coffee = %+v", coffee)
	}
	salary := res.Requests[1]
	if salary.Tag != core.TagIncome || salary.Amount.Cents != 250000 || !salary.Recurring {
		t.Fatalf("salary = %+v", salary)
	}
	custom := res.Requests[2]
	if custom.Tag != "Custom" || custom.Amount.Cents != -1250 || custom.Recurring {
		t.Fatalf("custom = %+v", custom)
	}
	if res.Skipped[0].Line != 5 {
		t.Fatalf("first skipped line = %d, want 5", res.Skipped[0].Line)
	}
	if bad := res.Skipped[1]; bad.Line != 6 || !strings.Contains(bad.Reason, "invalid date") {
		t.Fatalf("malformed date line = %+v, want line 6 with invalid date reason", bad)
	}
}

func TestImportOutOfRangeAmountIsZero(t *testing.T) {
	res := Import("h\nid,2024-01-01,expense,Other,,100000000000000000000,0")
	if len(res.Requests) != 1 || res.Requests[0].Amount.Cents != 0 {
		t.Fatalf("requests = %+v", res.Requests)
	}
}

func TestImportRecurringFlag(t *testing.T) {
	cases := map[string]bool{"1": true, "true": true, "TRUE": true, " 1 ": true, "True": false, "0": false, "yes": false, "": false}
	for in, want := range cases {
		res := Import("h\nid,2024-01-01,expense,Other,,1," + in)
		if len(res.Requests) != 1 {
			t.Fatalf("%q: no request", in)
		}
		if got := res.Requests[0].Recurring; got != want {
			t.Errorf("recurring(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestImportEmptyAndHeaderOnly(t *testing.T) {
	for _, in := range []string{"", "   \n", "id,date,type,tag,note,amount,recurring\n"} {
		if res := Import(in); len(res.Requests) != 0 || len(res.Skipped) != 0 {
			t.Fatalf("Import(%q) = %+v", in, res)
		}
	}
}

func TestRoundTripPreservesFields(t *testing.T) {
	in := []core.Transaction{
		{ID: "1", Type: core.Expense, Amount: core.Money{Cents: 1999}, Tag: core.TagHealth, Note: "pharmacy", Date: core.NewDate(2024, 2, 29), Recurring: true},
		{ID: "2", Type: core.Income, Amount: core.Money{Cents: 5}, Tag: core.TagIncome, Note: "interest", Date: core.NewDate(2024, 2, 1)},
	}
	res := Import(Export(in))
	if len(res.Requests) != len(in) {
		t.Fatalf("round trip lost rows: %+v", res)
	}
	for i, r := range res.Requests {
		w := in[i]
		if r.Type != w.Type || r.Amount != w.Amount || r.Tag != w.Tag || r.Note != w.Note || !r.Date.Equal(w.Date) || r.Recurring != w.Recurring {
			t.Errorf("row %d = %+v, want %+v", i, r, w)
		}
	}
}
