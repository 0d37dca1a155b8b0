package core

// CategoryAmount represents an amount aggregated by tag.
type CategoryAmount struct {
	Tag    Tag
	Amount Money
	Share  int64 // percent of total expense, 0-100
}

// BudgetUsage is the utilization of one budget against visible spend.
type BudgetUsage struct {
	Tag     Tag
	Limit   Money
	Spent   Money
	Percent int64 // uncapped, may exceed 100
	Bar     int64 // Percent capped at 100
	Over    bool
}

// GoalProgress is one goal measured against the shared savings figure.
type GoalProgress struct {
	Goal    Goal
	Percent int64
}

// Summary holds every figure derived from the visible set, the budgets,
// the goals and the all-time ledger.
type Summary struct {
	Income       Money
	Expense      Money
	Net          Money
	ByTag        map[Tag]Money
	Ranking      []CategoryAmount
	Budgets      []BudgetUsage
	SavingsSpent Money
	Goals        []GoalProgress
}
