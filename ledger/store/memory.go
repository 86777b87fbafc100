// Package store provides ledger.Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/meridian/lending-engine/ledger"
	"github.com/meridian/lending-engine/money"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type accountKey struct {
	OrgID string
	ID    string
}

type codeKey struct {
	OrgID string
	Code  string
}

type ruleKey struct {
	OrgID string
	Event ledger.EventType
}

type Memory struct {
	mu       sync.RWMutex
	accounts map[accountKey]ledger.Account
	byCode   map[codeKey]string
	rules    map[ruleKey]ledger.Rule
	entries  map[string][]ledger.Entry // orgID -> entries in posting order
}

func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[accountKey]ledger.Account),
		byCode:   make(map[codeKey]string),
		rules:    make(map[ruleKey]ledger.Rule),
		entries:  make(map[string][]ledger.Entry),
	}
}

// -----------------------------------------------------------------------------
// Accounts
// -----------------------------------------------------------------------------

func (m *Memory) SaveAccount(_ context.Context, account ledger.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveAccountLocked(account)
	return nil
}

func (m *Memory) saveAccountLocked(account ledger.Account) {
	m.accounts[accountKey{account.OrgID, account.ID}] = account
	m.byCode[codeKey{account.OrgID, account.Code}] = account.ID
}

func (m *Memory) Account(_ context.Context, orgID, accountID string) (ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accountLocked(orgID, accountID)
}

func (m *Memory) accountLocked(orgID, accountID string) (ledger.Account, error) {
	a, ok := m.accounts[accountKey{orgID, accountID}]
	if !ok {
		return ledger.Account{}, &ledger.UnknownAccountError{AccountID: accountID, OrgID: orgID, Reason: "not found"}
	}
	return a, nil
}

func (m *Memory) AccountByCode(_ context.Context, orgID, code string) (ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byCode[codeKey{orgID, code}]
	if !ok {
		return ledger.Account{}, &ledger.UnknownAccountError{AccountID: code, OrgID: orgID, Reason: "no account with that code"}
	}
	return m.accountLocked(orgID, id)
}

func (m *Memory) Accounts(_ context.Context, orgID string) ([]ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []ledger.Account
	for k, a := range m.accounts {
		if k.OrgID == orgID {
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *Memory) AdjustBalance(_ context.Context, orgID, accountID string, delta money.Money) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.adjustBalanceLocked(orgID, accountID, delta)
}

func (m *Memory) adjustBalanceLocked(orgID, accountID string, delta money.Money) error {
	k := accountKey{orgID, accountID}
	a, ok := m.accounts[k]
	if !ok {
		return &ledger.UnknownAccountError{AccountID: accountID, OrgID: orgID, Reason: "not found"}
	}
	a.Balance = a.Balance.Add(delta)
	m.accounts[k] = a
	return nil
}

// -----------------------------------------------------------------------------
// Rules
// -----------------------------------------------------------------------------

func (m *Memory) SaveRule(_ context.Context, rule ledger.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[ruleKey{rule.OrgID, rule.EventType}] = rule
	return nil
}

func (m *Memory) Rule(_ context.Context, orgID string, event ledger.EventType) (ledger.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rules[ruleKey{orgID, event}]
	if !ok {
		return ledger.Rule{}, &ledger.RuleNotFoundError{OrgID: orgID, EventType: event}
	}
	return r, nil
}

func (m *Memory) Rules(_ context.Context, orgID string) ([]ledger.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []ledger.Rule
	for k, r := range m.rules {
		if k.OrgID == orgID {
			result = append(result, r)
		}
	}
	return result, nil
}

// -----------------------------------------------------------------------------
// Entries (append-only)
// -----------------------------------------------------------------------------

func (m *Memory) SaveEntry(_ context.Context, entry ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveEntryLocked(entry)
	return nil
}

func (m *Memory) saveEntryLocked(entry ledger.Entry) {
	m.entries[entry.OrgID] = append(m.entries[entry.OrgID], entry)
}

func (m *Memory) Entry(_ context.Context, orgID, entryID string) (ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entryLocked(orgID, entryID)
}

func (m *Memory) entryLocked(orgID, entryID string) (ledger.Entry, error) {
	for _, e := range m.entries[orgID] {
		if e.ID == entryID {
			return e, nil
		}
	}
	return ledger.Entry{}, ledger.ErrEntryNotFound
}

func (m *Memory) Entries(_ context.Context, orgID string, filter ledger.EntryFilter) ([]ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []ledger.Entry
	for _, e := range m.entries[orgID] {
		if filter.EventType != "" && e.EventType != filter.EventType {
			continue
		}
		if filter.Reference != "" && e.Reference != filter.Reference {
			continue
		}
		if !filter.From.IsZero() && e.PostedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && e.PostedAt.After(filter.To) {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

func (m *Memory) FindReversal(_ context.Context, orgID, entryID string) (ledger.Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findReversalLocked(orgID, entryID)
}

func (m *Memory) findReversalLocked(orgID, entryID string) (ledger.Entry, bool, error) {
	for _, e := range m.entries[orgID] {
		if e.ReversalOf == entryID {
			return e, true, nil
		}
	}
	return ledger.Entry{}, false, nil
}

// -----------------------------------------------------------------------------
// Transactions
// -----------------------------------------------------------------------------

// WithTx simulates a transaction with a snapshot + rollback on error.
func (m *Memory) WithTx(_ context.Context, fn func(ledger.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshot()
	view := &memoryView{parent: m}
	if err := fn(view); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	accounts map[accountKey]ledger.Account
	byCode   map[codeKey]string
	rules    map[ruleKey]ledger.Rule
	entries  map[string][]ledger.Entry
}

func (m *Memory) snapshot() memorySnapshot {
	s := memorySnapshot{
		accounts: make(map[accountKey]ledger.Account, len(m.accounts)),
		byCode:   make(map[codeKey]string, len(m.byCode)),
		rules:    make(map[ruleKey]ledger.Rule, len(m.rules)),
		entries:  make(map[string][]ledger.Entry, len(m.entries)),
	}
	for k, v := range m.accounts {
		s.accounts[k] = v
	}
	for k, v := range m.byCode {
		s.byCode[k] = v
	}
	for k, v := range m.rules {
		s.rules[k] = v
	}
	for k, v := range m.entries {
		s.entries[k] = append([]ledger.Entry{}, v...)
	}
	return s
}

func (m *Memory) restore(s memorySnapshot) {
	m.accounts = s.accounts
	m.byCode = s.byCode
	m.rules = s.rules
	m.entries = s.entries
}

// memoryView operates on the parent's maps without re-locking; the parent
// holds the write lock for the duration of WithTx.
type memoryView struct {
	parent *Memory
}

func (v *memoryView) SaveAccount(_ context.Context, account ledger.Account) error {
	v.parent.saveAccountLocked(account)
	return nil
}

func (v *memoryView) Account(_ context.Context, orgID, accountID string) (ledger.Account, error) {
	return v.parent.accountLocked(orgID, accountID)
}

func (v *memoryView) AccountByCode(_ context.Context, orgID, code string) (ledger.Account, error) {
	id, ok := v.parent.byCode[codeKey{orgID, code}]
	if !ok {
		return ledger.Account{}, &ledger.UnknownAccountError{AccountID: code, OrgID: orgID, Reason: "no account with that code"}
	}
	return v.parent.accountLocked(orgID, id)
}

func (v *memoryView) Accounts(_ context.Context, orgID string) ([]ledger.Account, error) {
	var result []ledger.Account
	for k, a := range v.parent.accounts {
		if k.OrgID == orgID {
			result = append(result, a)
		}
	}
	return result, nil
}

func (v *memoryView) AdjustBalance(_ context.Context, orgID, accountID string, delta money.Money) error {
	return v.parent.adjustBalanceLocked(orgID, accountID, delta)
}

func (v *memoryView) SaveRule(_ context.Context, rule ledger.Rule) error {
	v.parent.rules[ruleKey{rule.OrgID, rule.EventType}] = rule
	return nil
}

func (v *memoryView) Rule(_ context.Context, orgID string, event ledger.EventType) (ledger.Rule, error) {
	r, ok := v.parent.rules[ruleKey{orgID, event}]
	if !ok {
		return ledger.Rule{}, &ledger.RuleNotFoundError{OrgID: orgID, EventType: event}
	}
	return r, nil
}

func (v *memoryView) Rules(_ context.Context, orgID string) ([]ledger.Rule, error) {
	var result []ledger.Rule
	for k, r := range v.parent.rules {
		if k.OrgID == orgID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (v *memoryView) SaveEntry(_ context.Context, entry ledger.Entry) error {
	v.parent.saveEntryLocked(entry)
	return nil
}

func (v *memoryView) Entry(_ context.Context, orgID, entryID string) (ledger.Entry, error) {
	return v.parent.entryLocked(orgID, entryID)
}

func (v *memoryView) Entries(ctx context.Context, orgID string, filter ledger.EntryFilter) ([]ledger.Entry, error) {
	var result []ledger.Entry
	for _, e := range v.parent.entries[orgID] {
		if filter.EventType != "" && e.EventType != filter.EventType {
			continue
		}
		if filter.Reference != "" && e.Reference != filter.Reference {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

func (v *memoryView) FindReversal(_ context.Context, orgID, entryID string) (ledger.Entry, bool, error) {
	return v.parent.findReversalLocked(orgID, entryID)
}

// WithTx on a view joins the surrounding transaction.
func (v *memoryView) WithTx(_ context.Context, fn func(ledger.Store) error) error {
	return fn(v)
}
