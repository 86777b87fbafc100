/*
poster.go - Journal entry posting

PURPOSE:
  The poster is the single gate through which money reaches the ledger.
  It expands business events through the org's accounting rules, enforces
  the balancing invariant, and lands the entry plus its account balance
  movements in one transaction.

POSTING PIPELINE:
  1. Load the org's rule for the event type.
  2. Expand each rule line with the event's component amount.
  3. Drop zero-amount lines (a repayment with no penalty simply produces
     no penalty line).
  4. Require at least one debit and one credit, all amounts positive.
  5. Require sum(debits) == sum(credits) at minor-unit precision.
  6. Resolve every account: it must exist, be active, and belong to the org.
  7. In one transaction: save the entry, adjust each account's balance by
     the normal-side-signed amount.

CORRECTIONS:
  Reverse() posts a new entry with every side flipped, referencing the
  original. Entries are never edited or deleted, and an entry can only be
  reversed once.
*/
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/meridian/lending-engine/money"
)

// =============================================================================
// EVENTS
// =============================================================================

// Event is a business occurrence to be journalized. Amounts carries the
// money components; missing components are zero.
type Event struct {
	OrgID     string
	Type      EventType
	Reference string
	Memo      string
	ActorID   string
	Amounts   map[Component]money.Money
}

// Amount returns the event's value for a component. TOTAL is derived from
// the other four unless explicitly supplied.
func (e Event) Amount(c Component) money.Money {
	if v, ok := e.Amounts[c]; ok {
		return v
	}
	if c == ComponentTotal {
		return money.Sum(
			e.Amounts[ComponentPrincipal],
			e.Amounts[ComponentInterest],
			e.Amounts[ComponentFee],
			e.Amounts[ComponentPenalty],
		)
	}
	return money.Zero
}

// ManualLine is one leg of a hand-written journal entry.
type ManualLine struct {
	AccountID string
	Side      Side
	Amount    money.Money
}

// ManualEntry is a hand-written journal entry awaiting posting.
type ManualEntry struct {
	OrgID   string
	Memo    string
	ActorID string
	Lines   []ManualLine
}

// =============================================================================
// POSTER
// =============================================================================

type Poster struct {
	store Store
	rules *RuleRegistry
	now   func() time.Time
}

func NewPoster(store Store, rules *RuleRegistry, now func() time.Time) *Poster {
	if now == nil {
		now = time.Now
	}
	return &Poster{store: store, rules: rules, now: now}
}

// Post journalizes a business event through the org's accounting rule.
// Nothing is persisted unless the whole entry lands.
func (p *Poster) Post(ctx context.Context, event Event) (Entry, error) {
	rule, err := p.rules.Get(ctx, event.OrgID, event.Type)
	if err != nil {
		return Entry{}, err
	}

	lines := make([]Line, 0, len(rule.Lines))
	for _, rl := range rule.Lines {
		amount := event.Amount(rl.Component).Round()
		if amount.IsZero() {
			continue
		}
		lines = append(lines, Line{
			AccountID: rl.AccountID,
			Side:      rl.Side,
			Amount:    amount,
			Component: rl.Component,
		})
	}

	entry := Entry{
		ID:        uuid.NewString(),
		OrgID:     event.OrgID,
		EventType: event.Type,
		Reference: event.Reference,
		Memo:      event.Memo,
		Lines:     lines,
		ActorID:   event.ActorID,
		PostedAt:  p.now().UTC(),
	}
	return p.post(ctx, entry, false)
}

// PostManual journalizes a hand-written entry. Every touched account must
// have manual entries enabled.
func (p *Poster) PostManual(ctx context.Context, manual ManualEntry) (Entry, error) {
	lines := make([]Line, 0, len(manual.Lines))
	for _, ml := range manual.Lines {
		amount := ml.Amount.Round()
		if amount.IsZero() {
			continue
		}
		lines = append(lines, Line{AccountID: ml.AccountID, Side: ml.Side, Amount: amount})
	}

	entry := Entry{
		ID:        uuid.NewString(),
		OrgID:     manual.OrgID,
		EventType: EventManual,
		Memo:      manual.Memo,
		Lines:     lines,
		ActorID:   manual.ActorID,
		PostedAt:  p.now().UTC(),
	}
	return p.post(ctx, entry, true)
}

// Reverse posts the flipped-side mirror of an existing entry. The original
// stays in the ledger untouched; the pair nets to zero.
func (p *Poster) Reverse(ctx context.Context, orgID, entryID, actorID, memo string) (Entry, error) {
	original, err := p.store.Entry(ctx, orgID, entryID)
	if err != nil {
		return Entry{}, err
	}
	if _, exists, err := p.store.FindReversal(ctx, orgID, entryID); err != nil {
		return Entry{}, err
	} else if exists {
		return Entry{}, ErrAlreadyReversed
	}

	lines := make([]Line, len(original.Lines))
	for i, l := range original.Lines {
		lines[i] = Line{
			AccountID: l.AccountID,
			Side:      l.Side.Flip(),
			Amount:    l.Amount,
			Component: l.Component,
		}
	}

	reversal := Entry{
		ID:         uuid.NewString(),
		OrgID:      orgID,
		EventType:  original.EventType,
		Reference:  original.Reference,
		Memo:       memo,
		Lines:      lines,
		ReversalOf: original.ID,
		ActorID:    actorID,
		PostedAt:   p.now().UTC(),
	}
	// Manual reversals still need manual-entry permission on the accounts.
	return p.post(ctx, reversal, original.EventType == EventManual)
}

// post validates the assembled entry and lands it atomically.
func (p *Poster) post(ctx context.Context, entry Entry, manual bool) (Entry, error) {
	if err := p.validate(ctx, entry, manual); err != nil {
		return Entry{}, err
	}

	err := p.store.WithTx(ctx, func(tx Store) error {
		if err := tx.SaveEntry(ctx, entry); err != nil {
			return err
		}
		for _, line := range entry.Lines {
			account, err := tx.Account(ctx, entry.OrgID, line.AccountID)
			if err != nil {
				return err
			}
			delta := account.SignedDelta(line.Side, line.Amount)
			if err := tx.AdjustBalance(ctx, entry.OrgID, line.AccountID, delta); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func (p *Poster) validate(ctx context.Context, entry Entry, manual bool) error {
	hasDebit, hasCredit := false, false
	for _, line := range entry.Lines {
		if !line.Amount.IsPositive() {
			return &UnbalancedEntryError{Debits: entry.TotalDebits().StringFixed(), Credits: entry.TotalCredits().StringFixed()}
		}
		hasDebit = hasDebit || line.Side == Debit
		hasCredit = hasCredit || line.Side == Credit
	}
	if len(entry.Lines) < 2 || !hasDebit || !hasCredit {
		return ErrEmptyEntry
	}

	debits, credits := entry.TotalDebits().Round(), entry.TotalCredits().Round()
	if !debits.Equal(credits) {
		return &UnbalancedEntryError{Debits: debits.StringFixed(), Credits: credits.StringFixed()}
	}

	for _, line := range entry.Lines {
		account, err := p.store.Account(ctx, entry.OrgID, line.AccountID)
		if err != nil {
			return err
		}
		if !account.Active {
			return &UnknownAccountError{AccountID: line.AccountID, OrgID: entry.OrgID, Reason: "account is deactivated"}
		}
		if manual && !account.AllowManual {
			return &ManualEntryNotAllowedError{AccountID: line.AccountID}
		}
	}
	return nil
}
