package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian/lending-engine/ledger"
	ledgerstore "github.com/meridian/lending-engine/ledger/store"
	"github.com/meridian/lending-engine/money"
)

const testOrg = "org-1"

var frozenNow = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store  *ledgerstore.Memory
	rules  *ledger.RuleRegistry
	poster *ledger.Poster
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := ledgerstore.NewMemory()
	rules := ledger.NewRuleRegistry(store)
	poster := ledger.NewPoster(store, rules, func() time.Time { return frozenNow })

	ctx := context.Background()
	accounts := []ledger.Account{
		{ID: "cash", OrgID: testOrg, Code: "1010", Name: "Cash", Type: ledger.TypeAsset, Active: true, AllowManual: true},
		{ID: "loans", OrgID: testOrg, Code: "1200", Name: "Loans Receivable", Type: ledger.TypeAsset, Active: true},
		{ID: "interest", OrgID: testOrg, Code: "4010", Name: "Interest Income", Type: ledger.TypeIncome, Active: true},
		{ID: "fees", OrgID: testOrg, Code: "4020", Name: "Fee Income", Type: ledger.TypeIncome, Active: true},
		{ID: "penalties", OrgID: testOrg, Code: "4030", Name: "Penalty Income", Type: ledger.TypeIncome, Active: true},
		{ID: "expenses", OrgID: testOrg, Code: "5010", Name: "Operating Expenses", Type: ledger.TypeExpense, Active: true, AllowManual: true},
		{ID: "dormant", OrgID: testOrg, Code: "1999", Name: "Dormant", Type: ledger.TypeAsset, Active: false},
	}
	for _, a := range accounts {
		require.NoError(t, store.SaveAccount(ctx, a))
	}

	require.NoError(t, rules.Upsert(ctx, ledger.Rule{
		ID: "r-disburse", OrgID: testOrg, EventType: ledger.EventLoanDisbursement,
		Lines: []ledger.RuleLine{
			{Side: ledger.Debit, AccountID: "loans", Component: ledger.ComponentPrincipal},
			{Side: ledger.Credit, AccountID: "cash", Component: ledger.ComponentPrincipal},
		},
	}))
	require.NoError(t, rules.Upsert(ctx, ledger.Rule{
		ID: "r-repay", OrgID: testOrg, EventType: ledger.EventLoanRepayment,
		Lines: []ledger.RuleLine{
			{Side: ledger.Debit, AccountID: "cash", Component: ledger.ComponentTotal},
			{Side: ledger.Credit, AccountID: "loans", Component: ledger.ComponentPrincipal},
			{Side: ledger.Credit, AccountID: "interest", Component: ledger.ComponentInterest},
			{Side: ledger.Credit, AccountID: "fees", Component: ledger.ComponentFee},
			{Side: ledger.Credit, AccountID: "penalties", Component: ledger.ComponentPenalty},
		},
	}))

	return &fixture{store: store, rules: rules, poster: poster}
}

func (f *fixture) balance(t *testing.T, accountID string) string {
	t.Helper()
	a, err := f.store.Account(context.Background(), testOrg, accountID)
	require.NoError(t, err)
	return a.Balance.StringFixed()
}

func TestPost_DisbursementMovesPrincipal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.poster.Post(ctx, ledger.Event{
		OrgID: testOrg, Type: ledger.EventLoanDisbursement, Reference: "loan-1", ActorID: "officer-1",
		Amounts: map[ledger.Component]money.Money{
			ledger.ComponentPrincipal: money.MustParse("100000"),
		},
	})
	require.NoError(t, err)
	require.Len(t, entry.Lines, 2)
	assert.Equal(t, frozenNow, entry.PostedAt)
	assert.True(t, entry.TotalDebits().Equal(entry.TotalCredits()))

	// Loans receivable grows on its normal (debit) side; cash shrinks.
	assert.Equal(t, "100000.00", f.balance(t, "loans"))
	assert.Equal(t, "-100000.00", f.balance(t, "cash"))
}

func TestPost_RepaymentSplitsComponentsAndDropsZeroLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// No fee and no penalty in this payment: their rule lines vanish.
	entry, err := f.poster.Post(ctx, ledger.Event{
		OrgID: testOrg, Type: ledger.EventLoanRepayment, Reference: "loan-1",
		Amounts: map[ledger.Component]money.Money{
			ledger.ComponentPrincipal: money.MustParse("80"),
			ledger.ComponentInterest:  money.MustParse("20"),
		},
	})
	require.NoError(t, err)
	require.Len(t, entry.Lines, 3)
	assert.Equal(t, "100.00", entry.TotalDebits().StringFixed())

	assert.Equal(t, "100.00", f.balance(t, "cash"))
	assert.Equal(t, "-80.00", f.balance(t, "loans"))
	assert.Equal(t, "20.00", f.balance(t, "interest"))
	assert.Equal(t, "0.00", f.balance(t, "fees"))
}

func TestPost_MissingRule(t *testing.T) {
	f := newFixture(t)

	_, err := f.poster.Post(context.Background(), ledger.Event{
		OrgID: testOrg, Type: ledger.EventSavingsDeposit,
		Amounts: map[ledger.Component]money.Money{ledger.ComponentTotal: money.MustParse("10")},
	})
	require.ErrorIs(t, err, ledger.ErrRuleNotFound)
	assert.True(t, ledger.IsClientError(err))
}

func TestPost_AllComponentsZeroRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.poster.Post(context.Background(), ledger.Event{
		OrgID: testOrg, Type: ledger.EventLoanRepayment,
		Amounts: map[ledger.Component]money.Money{},
	})
	require.ErrorIs(t, err, ledger.ErrEmptyEntry)
}

func TestPost_InactiveAccountRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.rules.Upsert(ctx, ledger.Rule{
		ID: "r-bad", OrgID: testOrg, EventType: ledger.EventSavingsDeposit,
		Lines: []ledger.RuleLine{
			{Side: ledger.Debit, AccountID: "dormant", Component: ledger.ComponentTotal},
			{Side: ledger.Credit, AccountID: "cash", Component: ledger.ComponentTotal},
		},
	}))

	_, err := f.poster.Post(ctx, ledger.Event{
		OrgID: testOrg, Type: ledger.EventSavingsDeposit,
		Amounts: map[ledger.Component]money.Money{ledger.ComponentTotal: money.MustParse("10")},
	})
	require.ErrorIs(t, err, ledger.ErrUnknownAccount)

	// Nothing landed: the rejection happened before any write.
	entries, err := f.store.Entries(ctx, testOrg, ledger.EntryFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPost_OrgScoping(t *testing.T) {
	f := newFixture(t)

	// org-2 has no chart and no rules; org-1's configuration must not leak.
	_, err := f.poster.Post(context.Background(), ledger.Event{
		OrgID: "org-2", Type: ledger.EventLoanDisbursement,
		Amounts: map[ledger.Component]money.Money{ledger.ComponentPrincipal: money.MustParse("10")},
	})
	require.ErrorIs(t, err, ledger.ErrRuleNotFound)
}

// =============================================================================
// MANUAL ENTRIES
// =============================================================================

func TestPostManual_BalancedEntryLands(t *testing.T) {
	f := newFixture(t)

	entry, err := f.poster.PostManual(context.Background(), ledger.ManualEntry{
		OrgID: testOrg, Memo: "office rent", ActorID: "accountant-1",
		Lines: []ledger.ManualLine{
			{AccountID: "expenses", Side: ledger.Debit, Amount: money.MustParse("500")},
			{AccountID: "cash", Side: ledger.Credit, Amount: money.MustParse("500")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, ledger.EventManual, entry.EventType)
	assert.Equal(t, "500.00", f.balance(t, "expenses"))
	assert.Equal(t, "-500.00", f.balance(t, "cash"))
}

func TestPostManual_UnbalancedRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.poster.PostManual(context.Background(), ledger.ManualEntry{
		OrgID: testOrg,
		Lines: []ledger.ManualLine{
			{AccountID: "expenses", Side: ledger.Debit, Amount: money.MustParse("500")},
			{AccountID: "cash", Side: ledger.Credit, Amount: money.MustParse("499.99")},
		},
	})
	require.ErrorIs(t, err, ledger.ErrUnbalancedEntry)
	assert.Equal(t, "0.00", f.balance(t, "cash"))
}

func TestPostManual_ProtectedAccountRejected(t *testing.T) {
	f := newFixture(t)

	// "loans" does not allow manual entries.
	_, err := f.poster.PostManual(context.Background(), ledger.ManualEntry{
		OrgID: testOrg,
		Lines: []ledger.ManualLine{
			{AccountID: "loans", Side: ledger.Debit, Amount: money.MustParse("10")},
			{AccountID: "cash", Side: ledger.Credit, Amount: money.MustParse("10")},
		},
	})
	require.ErrorIs(t, err, ledger.ErrManualEntryNotAllowed)
}

// =============================================================================
// REVERSALS
// =============================================================================

func TestReverse_NetsToZeroAndIsOnceOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	original, err := f.poster.Post(ctx, ledger.Event{
		OrgID: testOrg, Type: ledger.EventLoanDisbursement, Reference: "loan-1",
		Amounts: map[ledger.Component]money.Money{ledger.ComponentPrincipal: money.MustParse("1000")},
	})
	require.NoError(t, err)
	assert.Equal(t, "1000.00", f.balance(t, "loans"))

	reversal, err := f.poster.Reverse(ctx, testOrg, original.ID, "supervisor-1", "posted to wrong loan")
	require.NoError(t, err)
	assert.Equal(t, original.ID, reversal.ReversalOf)
	assert.True(t, reversal.IsReversal())

	// Balances net to zero while both entries remain in the ledger.
	assert.Equal(t, "0.00", f.balance(t, "loans"))
	assert.Equal(t, "0.00", f.balance(t, "cash"))
	entries, err := f.store.Entries(ctx, testOrg, ledger.EntryFilter{})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	_, err = f.poster.Reverse(ctx, testOrg, original.ID, "supervisor-1", "again")
	require.ErrorIs(t, err, ledger.ErrAlreadyReversed)
}

func TestReverse_UnknownEntry(t *testing.T) {
	f := newFixture(t)

	_, err := f.poster.Reverse(context.Background(), testOrg, "nope", "actor", "memo")
	require.ErrorIs(t, err, ledger.ErrEntryNotFound)
}

// =============================================================================
// TRIAL BALANCE
// =============================================================================

func TestTrialBalance_ColumnsAgreeAfterActivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.poster.Post(ctx, ledger.Event{
		OrgID: testOrg, Type: ledger.EventLoanDisbursement, Reference: "loan-1",
		Amounts: map[ledger.Component]money.Money{ledger.ComponentPrincipal: money.MustParse("100000")},
	})
	require.NoError(t, err)
	_, err = f.poster.Post(ctx, ledger.Event{
		OrgID: testOrg, Type: ledger.EventLoanRepayment, Reference: "loan-1",
		Amounts: map[ledger.Component]money.Money{
			ledger.ComponentPrincipal: money.MustParse("8000"),
			ledger.ComponentInterest:  money.MustParse("2000"),
			ledger.ComponentPenalty:   money.MustParse("15.50"),
		},
	})
	require.NoError(t, err)

	report, err := ledger.TrialBalance(ctx, f.store, testOrg)
	require.NoError(t, err)
	assert.True(t, report.Balanced(), "debits %s credits %s", report.TotalDebits, report.TotalCredits)
	assert.Len(t, report.Rows, 7)

	// Rows come back in chart-code order.
	for i := 1; i < len(report.Rows); i++ {
		assert.LessOrEqual(t, report.Rows[i-1].Code, report.Rows[i].Code)
	}

	// Cash paid out 100,000 and took in 10,015.50: a credit-column balance
	// for a debit-normal account.
	var cash ledger.TrialBalanceRow
	for _, row := range report.Rows {
		if row.AccountID == "cash" {
			cash = row
		}
	}
	assert.Equal(t, "89984.50", cash.Credit.StringFixed())
	assert.True(t, cash.Debit.IsZero())
}

// =============================================================================
// RULE VALIDATION
// =============================================================================

func TestRuleValidate(t *testing.T) {
	valid := ledger.Rule{
		ID: "r", OrgID: testOrg, EventType: ledger.EventLoanRepayment,
		Lines: []ledger.RuleLine{
			{Side: ledger.Debit, AccountID: "cash", Component: ledger.ComponentTotal},
			{Side: ledger.Credit, AccountID: "loans", Component: ledger.ComponentPrincipal},
		},
	}
	require.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		mutate func(*ledger.Rule)
	}{
		{"missing org", func(r *ledger.Rule) { r.OrgID = "" }},
		{"unknown event", func(r *ledger.Rule) { r.EventType = "LOAN_WRITE_OFF" }},
		{"single line", func(r *ledger.Rule) { r.Lines = r.Lines[:1] }},
		{"one-sided", func(r *ledger.Rule) { r.Lines[1].Side = ledger.Debit }},
		{"duplicate line", func(r *ledger.Rule) { r.Lines[1] = r.Lines[0] }},
		{"bad component", func(r *ledger.Rule) { r.Lines[0].Component = "SURCHARGE" }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rule := valid
			rule.Lines = append([]ledger.RuleLine{}, valid.Lines...)
			c.mutate(&rule)
			require.ErrorIs(t, rule.Validate(), ledger.ErrInvalidRule)
		})
	}
}

func TestRegistry_UpsertRejectsInvalid(t *testing.T) {
	f := newFixture(t)

	err := f.rules.Upsert(context.Background(), ledger.Rule{OrgID: testOrg, EventType: ledger.EventLoanRepayment})
	require.ErrorIs(t, err, ledger.ErrInvalidRule)
}
