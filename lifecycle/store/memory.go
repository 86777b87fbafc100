// Package store provides lifecycle.Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/meridian/lending-engine/engine"
	"github.com/meridian/lending-engine/lifecycle"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type key struct {
	OrgID string
	ID    string
}

type Memory struct {
	mu           sync.RWMutex
	loans        map[key]lifecycle.Loan
	schedules    map[key][]engine.Installment
	repayments   map[key][]lifecycle.Repayment
	savings      map[key]lifecycle.SavingsAccount
	transactions map[key][]lifecycle.SavingsTransaction
}

func NewMemory() *Memory {
	return &Memory{
		loans:        make(map[key]lifecycle.Loan),
		schedules:    make(map[key][]engine.Installment),
		repayments:   make(map[key][]lifecycle.Repayment),
		savings:      make(map[key]lifecycle.SavingsAccount),
		transactions: make(map[key][]lifecycle.SavingsTransaction),
	}
}

// -----------------------------------------------------------------------------
// Loans
// -----------------------------------------------------------------------------

func (m *Memory) SaveLoan(_ context.Context, loan lifecycle.Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loans[key{loan.OrgID, loan.ID}] = loan
	return nil
}

func (m *Memory) Loan(_ context.Context, orgID, loanID string) (lifecycle.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	loan, ok := m.loans[key{orgID, loanID}]
	if !ok {
		return lifecycle.Loan{}, lifecycle.ErrLoanNotFound
	}
	return loan, nil
}

func (m *Memory) Loans(_ context.Context, orgID string, filter lifecycle.LoanFilter) ([]lifecycle.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []lifecycle.Loan
	for k, loan := range m.loans {
		if k.OrgID != orgID {
			continue
		}
		if filter.Status != "" && loan.Status != filter.Status {
			continue
		}
		if filter.BorrowerID != "" && loan.BorrowerID != filter.BorrowerID {
			continue
		}
		result = append(result, loan)
	}
	return result, nil
}

func (m *Memory) Installments(_ context.Context, orgID, loanID string) ([]engine.Installment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	schedule := m.schedules[key{orgID, loanID}]
	result := make([]engine.Installment, len(schedule))
	copy(result, schedule)
	return result, nil
}

func (m *Memory) ActivateLoan(_ context.Context, loan lifecycle.Loan, schedule []engine.Installment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{loan.OrgID, loan.ID}
	m.loans[k] = loan
	m.schedules[k] = append([]engine.Installment{}, schedule...)
	return nil
}

func (m *Memory) ApplyRepayment(_ context.Context, loan lifecycle.Loan, schedule []engine.Installment, repayment lifecycle.Repayment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{loan.OrgID, loan.ID}
	m.loans[k] = loan
	m.schedules[k] = append([]engine.Installment{}, schedule...)
	m.repayments[k] = append(m.repayments[k], repayment)
	return nil
}

func (m *Memory) ReplaceSchedule(_ context.Context, loan lifecycle.Loan, schedule []engine.Installment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{loan.OrgID, loan.ID}
	m.loans[k] = loan
	m.schedules[k] = append([]engine.Installment{}, schedule...)
	return nil
}

func (m *Memory) Repayments(_ context.Context, orgID, loanID string) ([]lifecycle.Repayment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	k := key{orgID, loanID}
	result := make([]lifecycle.Repayment, len(m.repayments[k]))
	copy(result, m.repayments[k])
	return result, nil
}

// -----------------------------------------------------------------------------
// Savings
// -----------------------------------------------------------------------------

func (m *Memory) SaveSavingsAccount(_ context.Context, account lifecycle.SavingsAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.savings[key{account.OrgID, account.ID}] = account
	return nil
}

func (m *Memory) SavingsAccount(_ context.Context, orgID, accountID string) (lifecycle.SavingsAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	account, ok := m.savings[key{orgID, accountID}]
	if !ok {
		return lifecycle.SavingsAccount{}, lifecycle.ErrSavingsNotFound
	}
	return account, nil
}

func (m *Memory) SavingsAccounts(_ context.Context, orgID string) ([]lifecycle.SavingsAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []lifecycle.SavingsAccount
	for k, a := range m.savings {
		if k.OrgID == orgID {
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *Memory) ApplySavingsTransaction(_ context.Context, account lifecycle.SavingsAccount, tx lifecycle.SavingsTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{account.OrgID, account.ID}
	m.savings[k] = account
	m.transactions[k] = append(m.transactions[k], tx)
	return nil
}

func (m *Memory) SavingsTransactions(_ context.Context, orgID, accountID string) ([]lifecycle.SavingsTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	k := key{orgID, accountID}
	result := make([]lifecycle.SavingsTransaction, len(m.transactions[k]))
	copy(result, m.transactions[k])
	return result, nil
}
