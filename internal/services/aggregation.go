package services

import (
	"sort"

	"fintrack/internal/core"
)

var oneUnit = core.Money{Cents: 100}

// Aggregate derives every dashboard figure from its inputs.
//
// visible drives income, expense, per-tag spend, ranking and budget usage.
// ledger is the user's all-time set and only feeds savings and goals.
func Aggregate(visible []core.Transaction, budgets []core.Budget, goals []core.Goal, ledger []core.Transaction) core.Summary {
	s := core.Summary{ByTag: make(map[core.Tag]core.Money)}

	for _, t := range visible {
		if t.Type == core.Income {
			s.Income = s.Income.Add(t.Amount)
			continue
		}
		s.Expense = s.Expense.Add(t.Amount)
		s.ByTag[t.Tag] = s.ByTag[t.Tag].Add(t.Amount)
	}
	s.Net = s.Income.Sub(s.Expense)

	s.Ranking = rankTags(s.ByTag, s.Expense)
	s.Budgets = budgetUsage(budgets, s.ByTag)

	for _, t := range ledger {
		if t.Type != core.Income && t.Tag == core.TagSavings {
			s.SavingsSpent = s.SavingsSpent.Add(t.Amount)
		}
	}
	s.Goals = goalProgress(goals, s.SavingsSpent)
	return s
}

func rankTags(byTag map[core.Tag]core.Money, total core.Money) []core.CategoryAmount {
	denom := total
	if denom.Cents < oneUnit.Cents {
		denom = oneUnit
	}
	out := make([]core.CategoryAmount, 0, len(byTag))
	for tag, amt := range byTag {
		out = append(out, core.CategoryAmount{
			Tag:    tag,
			Amount: amt,
			Share:  core.CappedPercent(amt, denom),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}

func budgetUsage(budgets []core.Budget, byTag map[core.Tag]core.Money) []core.BudgetUsage {
	out := make([]core.BudgetUsage, 0, len(budgets))
	for _, b := range budgets {
		spent := byTag[b.Tag]
		pct := core.Percent(spent, b.Limit)
		bar := pct
		if bar > 100 {
			bar = 100
		}
		out = append(out, core.BudgetUsage{
			Tag:     b.Tag,
			Limit:   b.Limit,
			Spent:   spent,
			Percent: pct,
			Bar:     bar,
			Over:    pct > 100,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out
}

func goalProgress(goals []core.Goal, savings core.Money) []core.GoalProgress {
	out := make([]core.GoalProgress, 0, len(goals))
	for _, g := range goals {
		target := g.Target
		if target.Cents <= 0 {
			target = oneUnit
		}
		out = append(out, core.GoalProgress{Goal: g, Percent: core.CappedPercent(savings, target)})
	}
	return out
}
