/*
rule.go - Accounting rules

PURPOSE:
  Rules are the bridge between lending events and journal entries. Each
  organization configures, per event type, which accounts to debit and
  credit for each money component of the event. Posting code never names
  accounts directly; it hands the poster an event and the org's rule decides
  where the money goes.

EXAMPLE:
  LOAN_REPAYMENT for org X might expand as:
    DEBIT  cash            TOTAL
    CREDIT loans-receivable PRINCIPAL
    CREDIT interest-income  INTEREST
    CREDIT fee-income       FEE
    CREDIT penalty-income   PENALTY
  Components the event doesn't carry are treated as zero and their lines
  are dropped before balancing.

SEE ALSO:
  - registry.go: Rule storage and lookup
  - poster.go: Expansion and validation
*/
package ledger

// =============================================================================
// EVENTS AND COMPONENTS
// =============================================================================

type EventType string

const (
	EventLoanDisbursement  EventType = "LOAN_DISBURSEMENT"
	EventLoanRepayment     EventType = "LOAN_REPAYMENT"
	EventSavingsDeposit    EventType = "SAVINGS_DEPOSIT"
	EventSavingsWithdrawal EventType = "SAVINGS_WITHDRAWAL"

	// EventManual marks hand-written journal entries. No rule exists for
	// it; manual entries carry explicit lines.
	EventManual EventType = "MANUAL"
)

func (t EventType) Valid() bool {
	switch t {
	case EventLoanDisbursement, EventLoanRepayment, EventSavingsDeposit, EventSavingsWithdrawal:
		return true
	}
	return false
}

// Component names a money component of an event. TOTAL is the sum of the
// other four and lets a rule post the full amount to one side while
// splitting the other.
type Component string

const (
	ComponentPrincipal Component = "PRINCIPAL"
	ComponentInterest  Component = "INTEREST"
	ComponentFee       Component = "FEE"
	ComponentPenalty   Component = "PENALTY"
	ComponentTotal     Component = "TOTAL"
)

func (c Component) Valid() bool {
	switch c {
	case ComponentPrincipal, ComponentInterest, ComponentFee, ComponentPenalty, ComponentTotal:
		return true
	}
	return false
}

// =============================================================================
// RULES
// =============================================================================

// RuleLine maps one component of the event onto one account and side.
type RuleLine struct {
	Side      Side
	AccountID string
	Component Component
}

// Rule is one organization's posting recipe for one event type.
type Rule struct {
	ID        string
	OrgID     string
	EventType EventType
	Lines     []RuleLine
}

// Validate checks the rule's shape. It does not verify that the referenced
// accounts exist; the poster does that at posting time against the live
// chart.
func (r Rule) Validate() error {
	if r.OrgID == "" {
		return &InvalidRuleError{RuleID: r.ID, Reason: "missing organization"}
	}
	if !r.EventType.Valid() {
		return &InvalidRuleError{RuleID: r.ID, Reason: "unknown event type " + string(r.EventType)}
	}
	if len(r.Lines) < 2 {
		return &InvalidRuleError{RuleID: r.ID, Reason: "a rule needs at least one debit and one credit line"}
	}

	seen := make(map[string]bool, len(r.Lines))
	hasDebit, hasCredit := false, false
	for _, l := range r.Lines {
		if !l.Side.Valid() {
			return &InvalidRuleError{RuleID: r.ID, Reason: "unknown side " + string(l.Side)}
		}
		if !l.Component.Valid() {
			return &InvalidRuleError{RuleID: r.ID, Reason: "unknown component " + string(l.Component)}
		}
		if l.AccountID == "" {
			return &InvalidRuleError{RuleID: r.ID, Reason: "line missing account"}
		}
		key := string(l.Side) + ":" + l.AccountID + ":" + string(l.Component)
		if seen[key] {
			return &InvalidRuleError{RuleID: r.ID, Reason: "duplicate line " + key}
		}
		seen[key] = true
		hasDebit = hasDebit || l.Side == Debit
		hasCredit = hasCredit || l.Side == Credit
	}
	if !hasDebit || !hasCredit {
		return &InvalidRuleError{RuleID: r.ID, Reason: "rule must touch both sides"}
	}
	return nil
}
