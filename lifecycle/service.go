/*
service.go - Lending operations

PURPOSE:
  The Service drives loans and savings accounts through their lifecycles.
  Each operation follows the same shape:

    1. Load and check state (pure validation, nothing written).
    2. Run the engine computation (schedule, allocation, penalty).
    3. Post the accounting event; the poster lands the journal entry and
       balance movements atomically.
    4. Persist the domain state through a named atomic store operation.
    5. Publish the outbound event, best-effort.

  A failure in steps 1-3 leaves everything untouched. The poster is the
  gate for money, the store for state; neither is written until validation
  has fully passed.

OVERPAYMENT:
  A repayment larger than the loan's total outstanding is rejected with
  OverpaymentError before anything is posted. Routing surplus to savings or
  a suspense account changes financial meaning, so it stays an explicit
  caller decision.
*/
package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/meridian/lending-engine/engine"
	"github.com/meridian/lending-engine/events"
	"github.com/meridian/lending-engine/ledger"
	"github.com/meridian/lending-engine/money"
)

type Service struct {
	store  Store
	poster *ledger.Poster
	bus    events.Publisher
	log    zerolog.Logger
	now    func() time.Time
}

// NewService wires the lifecycle service. A nil publisher disables events;
// a nil clock uses wall time.
func NewService(store Store, poster *ledger.Poster, bus events.Publisher, log zerolog.Logger, now func() time.Time) *Service {
	if bus == nil {
		bus = events.Noop{}
	}
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, poster: poster, bus: bus, log: log, now: now}
}

// =============================================================================
// LOAN ORIGINATION
// =============================================================================

// SubmitLoanInput carries everything needed to open an application.
type SubmitLoanInput struct {
	OrgID      string
	BorrowerID string
	ProductID  string
	Terms      engine.LoanTerms
	Penalty    engine.PenaltyPolicy
}

// SubmitLoan validates the terms and records the application as SUBMITTED.
// The schedule is previewed, not persisted: it is regenerated at
// disbursement from the same frozen terms.
func (s *Service) SubmitLoan(ctx context.Context, input SubmitLoanInput) (Loan, error) {
	if err := input.Terms.Validate(); err != nil {
		return Loan{}, err
	}

	loan := Loan{
		ID:          uuid.NewString(),
		OrgID:       input.OrgID,
		BorrowerID:  input.BorrowerID,
		ProductID:   input.ProductID,
		Terms:       input.Terms,
		Penalty:     input.Penalty,
		Status:      LoanSubmitted,
		SubmittedAt: s.now().UTC(),
	}
	if err := s.store.SaveLoan(ctx, loan); err != nil {
		return Loan{}, err
	}

	s.log.Info().Str("loan_id", loan.ID).Str("org_id", loan.OrgID).
		Str("principal", loan.Terms.Principal.StringFixed()).
		Msg("loan submitted")
	s.publish(ctx, events.LoanSubmitted, loan.OrgID, loan.ID, "", nil)
	return loan, nil
}

// ApproveLoan moves SUBMITTED -> APPROVED.
func (s *Service) ApproveLoan(ctx context.Context, orgID, loanID, actorID string) (Loan, error) {
	loan, err := s.store.Loan(ctx, orgID, loanID)
	if err != nil {
		return Loan{}, err
	}
	if err := loan.transition(LoanApproved, s.now().UTC()); err != nil {
		return Loan{}, err
	}
	loan.ApprovedBy = actorID
	if err := s.store.SaveLoan(ctx, loan); err != nil {
		return Loan{}, err
	}

	s.log.Info().Str("loan_id", loan.ID).Str("actor_id", actorID).Msg("loan approved")
	s.publish(ctx, events.LoanApproved, orgID, loanID, actorID, nil)
	return loan, nil
}

// RejectLoan moves SUBMITTED -> REJECTED. Terminal.
func (s *Service) RejectLoan(ctx context.Context, orgID, loanID, actorID string) (Loan, error) {
	loan, err := s.store.Loan(ctx, orgID, loanID)
	if err != nil {
		return Loan{}, err
	}
	if err := loan.transition(LoanRejected, s.now().UTC()); err != nil {
		return Loan{}, err
	}
	if err := s.store.SaveLoan(ctx, loan); err != nil {
		return Loan{}, err
	}

	s.log.Info().Str("loan_id", loan.ID).Str("actor_id", actorID).Msg("loan rejected")
	s.publish(ctx, events.LoanRejected, orgID, loanID, actorID, nil)
	return loan, nil
}

// =============================================================================
// DISBURSEMENT
// =============================================================================

// DisburseLoan moves APPROVED -> DISBURSED: generates the schedule, posts
// the disbursement entry, and activates the loan with its schedule in one
// store operation.
func (s *Service) DisburseLoan(ctx context.Context, orgID, loanID, actorID string) (Loan, []engine.Installment, error) {
	loan, err := s.store.Loan(ctx, orgID, loanID)
	if err != nil {
		return Loan{}, nil, err
	}
	if err := loan.transition(LoanDisbursed, s.now().UTC()); err != nil {
		return Loan{}, nil, err
	}

	schedule, err := engine.GenerateSchedule(loan.Terms)
	if err != nil {
		return Loan{}, nil, err
	}

	entry, err := s.poster.Post(ctx, ledger.Event{
		OrgID:     orgID,
		Type:      ledger.EventLoanDisbursement,
		Reference: loan.ID,
		ActorID:   actorID,
		Amounts: map[ledger.Component]money.Money{
			ledger.ComponentPrincipal: loan.Terms.Principal,
		},
	})
	if err != nil {
		return Loan{}, nil, err
	}

	if err := s.store.ActivateLoan(ctx, loan, schedule); err != nil {
		return Loan{}, nil, err
	}

	s.log.Info().Str("loan_id", loan.ID).Str("entry_id", entry.ID).
		Int("installments", len(schedule)).Msg("loan disbursed")
	s.publish(ctx, events.LoanDisbursed, orgID, loanID, actorID, map[string]any{
		"entry_id":  entry.ID,
		"principal": loan.Terms.Principal.StringFixed(),
	})
	return loan, schedule, nil
}

// =============================================================================
// REPAYMENT
// =============================================================================

// RepayLoan applies a payment to a DISBURSED loan. The waterfall runs over
// the schedule, the component split is journalized, and the loan closes
// automatically when the last installment settles. An amount exceeding the
// total outstanding fails with OverpaymentError and persists nothing.
func (s *Service) RepayLoan(ctx context.Context, orgID, loanID string, amount money.Money, actorID string) (Repayment, error) {
	loan, err := s.store.Loan(ctx, orgID, loanID)
	if err != nil {
		return Repayment{}, err
	}
	if !loan.Status.Active() {
		return Repayment{}, &StateError{LoanID: loan.ID, From: loan.Status, To: loan.Status}
	}

	schedule, err := s.store.Installments(ctx, orgID, loanID)
	if err != nil {
		return Repayment{}, err
	}
	if len(schedule) == 0 {
		return Repayment{}, ErrNoOpenInstallments
	}

	result, err := engine.Allocate(schedule, amount)
	if err != nil {
		return Repayment{}, err
	}
	if result.Leftover.IsPositive() {
		return Repayment{}, &OverpaymentError{LoanID: loan.ID, Leftover: result.Leftover}
	}

	entry, err := s.poster.Post(ctx, ledger.Event{
		OrgID:     orgID,
		Type:      ledger.EventLoanRepayment,
		Reference: loan.ID,
		ActorID:   actorID,
		Amounts: map[ledger.Component]money.Money{
			ledger.ComponentPrincipal: result.PrincipalApplied,
			ledger.ComponentInterest:  result.InterestApplied,
			ledger.ComponentFee:       result.FeesApplied,
			ledger.ComponentPenalty:   result.PenaltiesApplied,
		},
	})
	if err != nil {
		return Repayment{}, err
	}

	if result.LoanFullyPaid {
		if err := loan.transition(LoanClosed, s.now().UTC()); err != nil {
			return Repayment{}, err
		}
	}

	repayment := Repayment{
		ID:         uuid.NewString(),
		OrgID:      orgID,
		LoanID:     loan.ID,
		Amount:     amount,
		Principal:  result.PrincipalApplied,
		Interest:   result.InterestApplied,
		Fees:       result.FeesApplied,
		Penalties:  result.PenaltiesApplied,
		EntryID:    entry.ID,
		ActorID:    actorID,
		ReceivedAt: s.now().UTC(),
	}
	if err := s.store.ApplyRepayment(ctx, loan, result.Installments, repayment); err != nil {
		return Repayment{}, err
	}

	s.log.Info().Str("loan_id", loan.ID).Str("amount", amount.StringFixed()).
		Bool("closed", result.LoanFullyPaid).Msg("repayment applied")
	s.publish(ctx, events.LoanRepaid, orgID, loanID, actorID, map[string]any{
		"entry_id": entry.ID,
		"amount":   amount.StringFixed(),
	})
	if result.LoanFullyPaid {
		s.publish(ctx, events.LoanClosed, orgID, loanID, actorID, nil)
	}
	return repayment, nil
}

// =============================================================================
// RESCHEDULE
// =============================================================================

// RescheduleInput carries the new deal for the open remainder of a loan.
type RescheduleInput struct {
	AnnualRate   *string          // decimal fraction, nil keeps the current rate
	Frequency    engine.Frequency // empty keeps the current cadence
	RepeatEvery  int              // zero keeps the current multiplier
	Installments int
	FirstDueDate time.Time
}

// RescheduleLoan cancels the open tail of a DISBURSED loan's schedule and
// regenerates it over the outstanding principal under the new terms. Paid
// history is untouched and no accounting event fires: the receivable
// balance is unchanged, only its timing moves.
func (s *Service) RescheduleLoan(ctx context.Context, orgID, loanID string, input RescheduleInput, actorID string) (Loan, []engine.Installment, error) {
	loan, err := s.store.Loan(ctx, orgID, loanID)
	if err != nil {
		return Loan{}, nil, err
	}
	if !loan.Status.Active() {
		return Loan{}, nil, &StateError{LoanID: loan.ID, From: loan.Status, To: loan.Status}
	}

	schedule, err := s.store.Installments(ctx, orgID, loanID)
	if err != nil {
		return Loan{}, nil, err
	}

	// Outstanding principal across open rows becomes the new principal.
	outstanding := money.Zero
	kept := make([]engine.Installment, 0, len(schedule))
	for _, inst := range schedule {
		if inst.Open() {
			outstanding = outstanding.Add(inst.PrincipalOutstanding())
			inst.Status = engine.StatusCancelled
		}
		kept = append(kept, inst)
	}
	if !outstanding.IsPositive() {
		return Loan{}, nil, ErrNoOpenInstallments
	}

	newTerms := loan.Terms
	newTerms.Principal = outstanding
	newTerms.Installments = input.Installments
	if input.Frequency != "" {
		newTerms.Frequency = input.Frequency
	}
	if input.RepeatEvery > 0 {
		newTerms.RepeatEvery = input.RepeatEvery
	}
	newTerms.FirstDueDate = input.FirstDueDate
	newTerms.PrincipalGrace = 0
	newTerms.InterestGrace = 0
	if input.AnnualRate != nil {
		rate, err := decimal.NewFromString(*input.AnnualRate)
		if err != nil {
			return Loan{}, nil, &engine.InvalidTermsError{Field: "annual_rate", Reason: "not a number"}
		}
		newTerms.AnnualRate = rate
	}

	tail, err := engine.GenerateSchedule(newTerms)
	if err != nil {
		return Loan{}, nil, err
	}
	for i := range tail {
		tail[i].Number = len(kept) + i + 1
	}

	loan.Terms = newTerms
	full := append(kept, tail...)
	if err := s.store.ReplaceSchedule(ctx, loan, full); err != nil {
		return Loan{}, nil, err
	}

	s.log.Info().Str("loan_id", loan.ID).Str("outstanding", outstanding.StringFixed()).
		Int("new_installments", len(tail)).Msg("loan rescheduled")
	return loan, full, nil
}

// =============================================================================
// LISTINGS
// =============================================================================

func (s *Service) Loan(ctx context.Context, orgID, loanID string) (Loan, error) {
	return s.store.Loan(ctx, orgID, loanID)
}

func (s *Service) Loans(ctx context.Context, orgID string, filter LoanFilter) ([]Loan, error) {
	return s.store.Loans(ctx, orgID, filter)
}

func (s *Service) Schedule(ctx context.Context, orgID, loanID string) ([]engine.Installment, error) {
	return s.store.Installments(ctx, orgID, loanID)
}

func (s *Service) Repayments(ctx context.Context, orgID, loanID string) ([]Repayment, error) {
	return s.store.Repayments(ctx, orgID, loanID)
}

// =============================================================================
// SAVINGS
// =============================================================================

// OpenSavings opens an empty active account.
func (s *Service) OpenSavings(ctx context.Context, orgID, customerID string) (SavingsAccount, error) {
	account := SavingsAccount{
		ID:         uuid.NewString(),
		OrgID:      orgID,
		CustomerID: customerID,
		Balance:    money.Zero,
		Status:     SavingsActive,
		OpenedAt:   s.now().UTC(),
	}
	if err := s.store.SaveSavingsAccount(ctx, account); err != nil {
		return SavingsAccount{}, err
	}
	return account, nil
}

// Deposit credits the account and journalizes the cash movement.
func (s *Service) Deposit(ctx context.Context, orgID, accountID string, amount money.Money, actorID string) (SavingsTransaction, error) {
	return s.savingsMove(ctx, orgID, accountID, amount, actorID, SavingsDeposit)
}

// Withdraw debits the account; the balance can never go negative.
func (s *Service) Withdraw(ctx context.Context, orgID, accountID string, amount money.Money, actorID string) (SavingsTransaction, error) {
	return s.savingsMove(ctx, orgID, accountID, amount, actorID, SavingsWithdrawal)
}

func (s *Service) savingsMove(ctx context.Context, orgID, accountID string, amount money.Money, actorID string, kind SavingsTxKind) (SavingsTransaction, error) {
	if !amount.IsPositive() {
		return SavingsTransaction{}, &engine.InvalidAmountError{What: "savings amount", Value: amount.String()}
	}

	account, err := s.store.SavingsAccount(ctx, orgID, accountID)
	if err != nil {
		return SavingsTransaction{}, err
	}

	event := ledger.EventSavingsDeposit
	balance := account.Balance.Add(amount)
	if kind == SavingsWithdrawal {
		event = ledger.EventSavingsWithdrawal
		balance = account.Balance.Sub(amount)
		if balance.IsNegative() {
			return SavingsTransaction{}, ErrInsufficientFunds
		}
	}

	entry, err := s.poster.Post(ctx, ledger.Event{
		OrgID:     orgID,
		Type:      event,
		Reference: account.ID,
		ActorID:   actorID,
		Amounts:   map[ledger.Component]money.Money{ledger.ComponentTotal: amount},
	})
	if err != nil {
		return SavingsTransaction{}, err
	}

	account.Balance = balance
	tx := SavingsTransaction{
		ID:           uuid.NewString(),
		OrgID:        orgID,
		AccountID:    account.ID,
		Kind:         kind,
		Amount:       amount,
		BalanceAfter: balance,
		EntryID:      entry.ID,
		ActorID:      actorID,
		OccurredAt:   s.now().UTC(),
	}
	if err := s.store.ApplySavingsTransaction(ctx, account, tx); err != nil {
		return SavingsTransaction{}, err
	}

	s.publish(ctx, events.SavingsTransaction, orgID, account.ID, actorID, map[string]any{
		"kind":   string(kind),
		"amount": amount.StringFixed(),
	})
	return tx, nil
}

func (s *Service) SavingsAccounts(ctx context.Context, orgID string) ([]SavingsAccount, error) {
	return s.store.SavingsAccounts(ctx, orgID)
}

func (s *Service) SavingsPassbook(ctx context.Context, orgID, accountID string) ([]SavingsTransaction, error) {
	return s.store.SavingsTransactions(ctx, orgID, accountID)
}

// =============================================================================
// EVENTS
// =============================================================================

// publish is best-effort: a broker outage is logged, never surfaced.
func (s *Service) publish(ctx context.Context, kind events.EventType, orgID, ref, actorID string, payload map[string]any) {
	err := s.bus.Publish(ctx, events.Event{
		Type:       kind,
		OrgID:      orgID,
		Reference:  ref,
		ActorID:    actorID,
		OccurredAt: s.now().UTC(),
		Payload:    payload,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("event", string(kind)).Str("reference", ref).Msg("event publish failed")
	}
}
