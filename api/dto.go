/*
dto.go - Request and response shapes for the HTTP API

PURPOSE:
  Keeps wire formats separate from domain types. Money travels as fixed
  two-decimal strings, rates as decimal-fraction strings ("0.24" is 24%),
  times as RFC 3339. Zero times are omitted.

SEE ALSO:
  - handlers.go: Where these are produced and consumed
*/
package api

import (
	"time"

	"github.com/meridian/lending-engine/engine"
	"github.com/meridian/lending-engine/factory"
	"github.com/meridian/lending-engine/ledger"
	"github.com/meridian/lending-engine/lifecycle"
)

// =============================================================================
// REQUESTS
// =============================================================================

// TermsRequest spells out loan terms inline, bypassing products.
type TermsRequest struct {
	Principal      string `json:"principal"`
	AnnualRate     string `json:"annual_rate"`
	InterestMethod string `json:"interest_method"`
	Frequency      string `json:"frequency"`
	RepeatEvery    int    `json:"repeat_every,omitempty"`
	Installments   int    `json:"installments"`
	FirstDueDate   string `json:"first_due_date"`
	PrincipalGrace int    `json:"principal_grace,omitempty"`
	InterestGrace  int    `json:"interest_grace,omitempty"`
}

// PenaltyRequest configures late-payment pricing for a loan.
type PenaltyRequest struct {
	Type       string `json:"type"`
	FlatAmount string `json:"flat_amount,omitempty"`
	AnnualRate string `json:"annual_rate,omitempty"`
}

// SubmitLoanRequest opens a loan application. Either product_id plus
// principal and first_due_date, or a full inline terms block.
type SubmitLoanRequest struct {
	BorrowerID   string          `json:"borrower_id"`
	ProductID    string          `json:"product_id,omitempty"`
	Principal    string          `json:"principal,omitempty"`
	FirstDueDate string          `json:"first_due_date,omitempty"`
	Terms        *TermsRequest   `json:"terms,omitempty"`
	Penalty      *PenaltyRequest `json:"penalty,omitempty"`
}

type RepayRequest struct {
	Amount string `json:"amount"`
}

type RescheduleRequest struct {
	AnnualRate   *string `json:"annual_rate,omitempty"`
	Installments int     `json:"installments"`
	Frequency    string  `json:"frequency,omitempty"`
	RepeatEvery  int     `json:"repeat_every,omitempty"`
	FirstDueDate string  `json:"first_due_date"`
}

type AccountRequest struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	AllowManual bool   `json:"allow_manual,omitempty"`
}

type RuleLineRequest struct {
	Side      string `json:"side"`
	AccountID string `json:"account_id"`
	Component string `json:"component"`
}

type RuleRequest struct {
	EventType string            `json:"event_type"`
	Lines     []RuleLineRequest `json:"lines"`
}

type ManualLineRequest struct {
	AccountID string `json:"account_id"`
	Side      string `json:"side"`
	Amount    string `json:"amount"`
}

type ManualEntryRequest struct {
	Memo  string              `json:"memo,omitempty"`
	Lines []ManualLineRequest `json:"lines"`
}

type ReverseRequest struct {
	Memo string `json:"memo,omitempty"`
}

type OpenSavingsRequest struct {
	CustomerID string `json:"customer_id"`
}

type SavingsMoveRequest struct {
	Amount string `json:"amount"`
}

type AssessOverdueRequest struct {
	AsOf string `json:"as_of,omitempty"` // RFC 3339, defaults to now
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// RESPONSES
// =============================================================================

type LoanDTO struct {
	ID          string          `json:"id"`
	BorrowerID  string          `json:"borrower_id"`
	ProductID   string          `json:"product_id,omitempty"`
	Status      string          `json:"status"`
	Terms       TermsDTO        `json:"terms"`
	Penalty     *PenaltyRequest `json:"penalty,omitempty"`
	SubmittedAt time.Time       `json:"submitted_at"`
	ApprovedAt  *time.Time      `json:"approved_at,omitempty"`
	ApprovedBy  string          `json:"approved_by,omitempty"`
	DisbursedAt *time.Time      `json:"disbursed_at,omitempty"`
	ClosedAt    *time.Time      `json:"closed_at,omitempty"`
}

type TermsDTO struct {
	Principal      string    `json:"principal"`
	AnnualRate     string    `json:"annual_rate"`
	InterestMethod string    `json:"interest_method"`
	Frequency      string    `json:"frequency"`
	RepeatEvery    int       `json:"repeat_every,omitempty"`
	Installments   int       `json:"installments"`
	FirstDueDate   time.Time `json:"first_due_date"`
	PrincipalGrace int       `json:"principal_grace,omitempty"`
	InterestGrace  int       `json:"interest_grace,omitempty"`
}

type InstallmentDTO struct {
	Number        int       `json:"number"`
	DueDate       time.Time `json:"due_date"`
	Status        string    `json:"status"`
	PrincipalDue  string    `json:"principal_due"`
	InterestDue   string    `json:"interest_due"`
	FeeDue        string    `json:"fee_due"`
	PenaltyDue    string    `json:"penalty_due"`
	PrincipalPaid string    `json:"principal_paid"`
	InterestPaid  string    `json:"interest_paid"`
	FeePaid       string    `json:"fee_paid"`
	PenaltyPaid   string    `json:"penalty_paid"`
	Outstanding   string    `json:"outstanding"`
}

type RepaymentDTO struct {
	ID         string    `json:"id"`
	LoanID     string    `json:"loan_id"`
	Amount     string    `json:"amount"`
	Principal  string    `json:"principal"`
	Interest   string    `json:"interest"`
	Fees       string    `json:"fees"`
	Penalties  string    `json:"penalties"`
	EntryID    string    `json:"entry_id"`
	ReceivedAt time.Time `json:"received_at"`
}

type AccountDTO struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Balance     string `json:"balance"`
	Active      bool   `json:"active"`
	AllowManual bool   `json:"allow_manual"`
}

type RuleDTO struct {
	ID        string            `json:"id"`
	EventType string            `json:"event_type"`
	Lines     []RuleLineRequest `json:"lines"`
}

type LineDTO struct {
	AccountID string `json:"account_id"`
	Side      string `json:"side"`
	Amount    string `json:"amount"`
	Component string `json:"component,omitempty"`
}

type EntryDTO struct {
	ID         string    `json:"id"`
	EventType  string    `json:"event_type"`
	Reference  string    `json:"reference,omitempty"`
	Memo       string    `json:"memo,omitempty"`
	ReversalOf string    `json:"reversal_of,omitempty"`
	Lines      []LineDTO `json:"lines"`
	PostedAt   time.Time `json:"posted_at"`
}

type TrialBalanceRowDTO struct {
	AccountID string `json:"account_id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Debit     string `json:"debit"`
	Credit    string `json:"credit"`
}

type TrialBalanceDTO struct {
	Rows         []TrialBalanceRowDTO `json:"rows"`
	TotalDebits  string               `json:"total_debits"`
	TotalCredits string               `json:"total_credits"`
	Balanced     bool                 `json:"balanced"`
}

type SavingsDTO struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customer_id"`
	Balance    string    `json:"balance"`
	Status     string    `json:"status"`
	OpenedAt   time.Time `json:"opened_at"`
}

type SavingsTransactionDTO struct {
	ID           string    `json:"id"`
	AccountID    string    `json:"account_id"`
	Kind         string    `json:"kind"`
	Amount       string    `json:"amount"`
	BalanceAfter string    `json:"balance_after"`
	EntryID      string    `json:"entry_id"`
	OccurredAt   time.Time `json:"occurred_at"`
}

type OverdueSummaryDTO struct {
	AsOf              time.Time `json:"as_of"`
	LoansScanned      int       `json:"loans_scanned"`
	LoansOverdue      int       `json:"loans_overdue"`
	InstallmentsLate  int       `json:"installments_late"`
	PenaltiesAssessed string    `json:"penalties_assessed"`
}

type ProductDTO struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	InterestMethod string `json:"interest_method"`
	AnnualRate     string `json:"annual_rate"`
	Frequency      string `json:"frequency"`
	Installments   int    `json:"installments"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func optTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func toLoanDTO(loan lifecycle.Loan) LoanDTO {
	dto := LoanDTO{
		ID:         loan.ID,
		BorrowerID: loan.BorrowerID,
		ProductID:  loan.ProductID,
		Status:     string(loan.Status),
		Terms: TermsDTO{
			Principal:      loan.Terms.Principal.StringFixed(),
			AnnualRate:     loan.Terms.AnnualRate.String(),
			InterestMethod: string(loan.Terms.Method),
			Frequency:      string(loan.Terms.Frequency),
			RepeatEvery:    loan.Terms.RepeatEvery,
			Installments:   loan.Terms.Installments,
			FirstDueDate:   loan.Terms.FirstDueDate,
			PrincipalGrace: loan.Terms.PrincipalGrace,
			InterestGrace:  loan.Terms.InterestGrace,
		},
		SubmittedAt: loan.SubmittedAt,
		ApprovedAt:  optTime(loan.ApprovedAt),
		ApprovedBy:  loan.ApprovedBy,
		DisbursedAt: optTime(loan.DisbursedAt),
		ClosedAt:    optTime(loan.ClosedAt),
	}
	if loan.Penalty.Type != "" {
		dto.Penalty = &PenaltyRequest{
			Type:       string(loan.Penalty.Type),
			FlatAmount: loan.Penalty.FlatAmount.StringFixed(),
			AnnualRate: loan.Penalty.AnnualRate.String(),
		}
	}
	return dto
}

func toInstallmentDTO(inst engine.Installment) InstallmentDTO {
	return InstallmentDTO{
		Number:        inst.Number,
		DueDate:       inst.DueDate,
		Status:        string(inst.Status),
		PrincipalDue:  inst.PrincipalDue.StringFixed(),
		InterestDue:   inst.InterestDue.StringFixed(),
		FeeDue:        inst.FeeDue.StringFixed(),
		PenaltyDue:    inst.PenaltyDue.StringFixed(),
		PrincipalPaid: inst.PrincipalPaid.StringFixed(),
		InterestPaid:  inst.InterestPaid.StringFixed(),
		FeePaid:       inst.FeePaid.StringFixed(),
		PenaltyPaid:   inst.PenaltyPaid.StringFixed(),
		Outstanding:   inst.TotalOutstanding().StringFixed(),
	}
}

func toInstallmentDTOs(schedule []engine.Installment) []InstallmentDTO {
	result := make([]InstallmentDTO, 0, len(schedule))
	for _, inst := range schedule {
		result = append(result, toInstallmentDTO(inst))
	}
	return result
}

func toRepaymentDTO(r lifecycle.Repayment) RepaymentDTO {
	return RepaymentDTO{
		ID:         r.ID,
		LoanID:     r.LoanID,
		Amount:     r.Amount.StringFixed(),
		Principal:  r.Principal.StringFixed(),
		Interest:   r.Interest.StringFixed(),
		Fees:       r.Fees.StringFixed(),
		Penalties:  r.Penalties.StringFixed(),
		EntryID:    r.EntryID,
		ReceivedAt: r.ReceivedAt,
	}
}

func toAccountDTO(a ledger.Account) AccountDTO {
	return AccountDTO{
		ID:          a.ID,
		Code:        a.Code,
		Name:        a.Name,
		Type:        string(a.Type),
		Balance:     a.Balance.StringFixed(),
		Active:      a.Active,
		AllowManual: a.AllowManual,
	}
}

func toRuleDTO(rule ledger.Rule) RuleDTO {
	dto := RuleDTO{ID: rule.ID, EventType: string(rule.EventType)}
	for _, line := range rule.Lines {
		dto.Lines = append(dto.Lines, RuleLineRequest{
			Side:      string(line.Side),
			AccountID: line.AccountID,
			Component: string(line.Component),
		})
	}
	return dto
}

func toEntryDTO(entry ledger.Entry) EntryDTO {
	dto := EntryDTO{
		ID:         entry.ID,
		EventType:  string(entry.EventType),
		Reference:  entry.Reference,
		Memo:       entry.Memo,
		ReversalOf: entry.ReversalOf,
		PostedAt:   entry.PostedAt,
	}
	for _, line := range entry.Lines {
		dto.Lines = append(dto.Lines, LineDTO{
			AccountID: line.AccountID,
			Side:      string(line.Side),
			Amount:    line.Amount.StringFixed(),
			Component: string(line.Component),
		})
	}
	return dto
}

func toTrialBalanceDTO(report ledger.TrialBalanceReport) TrialBalanceDTO {
	dto := TrialBalanceDTO{
		TotalDebits:  report.TotalDebits.StringFixed(),
		TotalCredits: report.TotalCredits.StringFixed(),
		Balanced:     report.Balanced(),
		Rows:         make([]TrialBalanceRowDTO, 0, len(report.Rows)),
	}
	for _, row := range report.Rows {
		dto.Rows = append(dto.Rows, TrialBalanceRowDTO{
			AccountID: row.AccountID,
			Code:      row.Code,
			Name:      row.Name,
			Type:      string(row.Type),
			Debit:     row.Debit.StringFixed(),
			Credit:    row.Credit.StringFixed(),
		})
	}
	return dto
}

func toSavingsDTO(a lifecycle.SavingsAccount) SavingsDTO {
	return SavingsDTO{
		ID:         a.ID,
		CustomerID: a.CustomerID,
		Balance:    a.Balance.StringFixed(),
		Status:     string(a.Status),
		OpenedAt:   a.OpenedAt,
	}
}

func toSavingsTransactionDTO(tx lifecycle.SavingsTransaction) SavingsTransactionDTO {
	return SavingsTransactionDTO{
		ID:           tx.ID,
		AccountID:    tx.AccountID,
		Kind:         string(tx.Kind),
		Amount:       tx.Amount.StringFixed(),
		BalanceAfter: tx.BalanceAfter.StringFixed(),
		EntryID:      tx.EntryID,
		OccurredAt:   tx.OccurredAt,
	}
}

func toProductDTO(p factory.Product) ProductDTO {
	return ProductDTO{
		ID:             p.ID,
		Name:           p.Name,
		InterestMethod: string(p.Method),
		AnnualRate:     p.AnnualRate.String(),
		Frequency:      string(p.Frequency),
		Installments:   p.Installments,
	}
}
