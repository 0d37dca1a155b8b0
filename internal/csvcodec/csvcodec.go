// Package csvcodec converts transactions to and from the ledger's flat CSV
// format.
//
// The format is deliberately not RFC 4180: fields are never quoted, so a comma
// or line break inside a note is replaced by a space on export. Import is
// lenient and mirrors that.
package csvcodec

import (
	"fmt"
	"regexp"
	"strings"

	"fintrack/internal/core"
)

// Header is the first line of every export.
var Header = []string{"id", "date", "type", "tag", "note", "amount", "recurring"}

var (
	lineBreak = regexp.MustCompile(`\r?\n`)
	noteClean = strings.NewReplacer(",", " ", "\r", " ", "\n", " ")
)

// Rows returns the header followed by one row per transaction, in order.
func Rows(txns []core.Transaction) [][]string {
	out := make([][]string, 0, len(txns)+1)
	out = append(out, append([]string(nil), Header...))
	for _, t := range txns {
		recurring := "0"
		if t.Recurring {
			recurring = "1"
		}
		out = append(out, []string{
			t.ID,
			t.Date.String(),
			string(t.Type),
			string(t.Tag),
			noteClean.Replace(t.Note),
			t.Amount.String(),
			recurring,
		})
	}
	return out
}

// Export renders txns as CSV text. Lines are joined with "\n" and there is no
// trailing newline.
func Export(txns []core.Transaction) string {
	rows := Rows(txns)
	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = strings.Join(r, ",")
	}
	return strings.Join(lines, "\n")
}

// Filename is the download name for a month's export.
func Filename(m core.Month) string {
	return fmt.Sprintf("transactions_%s.csv", m)
}

// SkippedLine records an input line that produced no request.
type SkippedLine struct {
	Line   int // 1-based, header is line 1
	Reason string
}

// Result is the outcome of decoding an import.
type Result struct {
	Requests []core.NewTransaction
	Skipped  []SkippedLine
}

// Import decodes CSV text into creation requests. The id column is ignored,
// so re-importing an export duplicates rather than updates.
//
// A line is skipped when its date, type or amount is empty, and also when
// the date is present but not a valid YYYY-MM-DD date, since every request
// carries a calendar date. Skipped counts therefore include malformed dates
// that a looser importer would have stored as-is. An amount that is not a
// number, or is out of range, imports as 0.
func Import(text string) Result {
	var res Result
	text = strings.TrimSpace(text)
	if text == "" {
		return res
	}

	lines := lineBreak.Split(text, -1)
	for i, line := range lines[1:] {
		lineNo := i + 2
		fields := strings.Split(line, ",")
		get := func(idx int) string {
			if idx < len(fields) {
				return fields[idx]
			}
			return ""
		}

		date := strings.TrimSpace(get(1))
		typ := strings.TrimSpace(get(2))
		amount := strings.TrimSpace(get(5))
		if date == "" || typ == "" || amount == "" {
			res.Skipped = append(res.Skipped, SkippedLine{Line: lineNo, Reason: "missing date, type or amount"})
			continue
		}
		d, err := core.ParseDate(date)
		if err != nil {
			res.Skipped = append(res.Skipped, SkippedLine{Line: lineNo, Reason: fmt.Sprintf("invalid date %q", date)})
			continue
		}

		tag := core.Tag(strings.TrimSpace(get(3)))
		if tag == "" {
			tag = core.TagOther
			if core.TxType(typ) == core.Income {
				tag = core.TagIncome
			}
		}

		res.Requests = append(res.Requests, core.NewTransaction{
			Type:      core.TxType(typ),
			Amount:    core.ParseAmountLenient(amount),
			Tag:       tag,
			Note:      get(4),
			Date:      d,
			Recurring: isTrue(get(6)),
		})
	}
	return res
}

func isTrue(s string) bool {
	switch strings.TrimSpace(s) {
	case "1", "true", "TRUE":
		return true
	}
	return false
}
