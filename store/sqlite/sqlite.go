/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements ledger.Store and lifecycle.Store using SQLite. The same
  patterns apply to PostgreSQL - only minor SQL dialect differences (see
  store/postgres).

APPEND-ONLY ENFORCEMENT:
  journal_entries and journal_lines never see an UPDATE or DELETE.
  Corrections go through reversal entries only.

BALANCES:
  Account balances are stored as integer minor units (cents) and moved
  with "UPDATE ... SET balance_cents = balance_cents + ?" so concurrent
  postings can never lose a movement to a read-modify-write race.

KEY TABLES:
  accounts:             Chart of accounts with running balances
  accounting_rules:     Per-org posting recipes (lines as JSON)
  journal_entries:      Immutable entry headers
  journal_lines:        Immutable entry legs
  loans:                Loan aggregates (terms as JSON)
  installments:         Repayment schedules
  repayments:           Payment audit records
  savings_accounts:     Passbook accounts
  savings_transactions: Passbook lines

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so readers don't block
  the single writer.

USAGE:
  store, err := sqlite.New("./data/lending.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - ledger/store.go, lifecycle/store.go: Interface definitions
  - store/postgres: Server-backed implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/meridian/lending-engine/engine"
	"github.com/meridian/lending-engine/ledger"
	"github.com/meridian/lending-engine/lifecycle"
	"github.com/meridian/lending-engine/money"
)

// Store implements ledger.Store and lifecycle.Store using SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Chart of accounts
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT NOT NULL,
		org_id TEXT NOT NULL,
		code TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		balance_cents INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1,
		allow_manual INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		PRIMARY KEY (org_id, id)
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_org_code
		ON accounts(org_id, code);

	-- Accounting rules, one per org + event type
	CREATE TABLE IF NOT EXISTS accounting_rules (
		org_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		id TEXT NOT NULL,
		lines_json TEXT NOT NULL,
		PRIMARY KEY (org_id, event_type)
	);

	-- Journal entries (append-only: no UPDATE, no DELETE)
	CREATE TABLE IF NOT EXISTS journal_entries (
		id TEXT NOT NULL,
		org_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		reference TEXT NOT NULL DEFAULT '',
		memo TEXT NOT NULL DEFAULT '',
		reversal_of TEXT NOT NULL DEFAULT '',
		actor_id TEXT NOT NULL DEFAULT '',
		posted_at TEXT NOT NULL,
		PRIMARY KEY (org_id, id)
	);
	CREATE INDEX IF NOT EXISTS idx_entries_reference
		ON journal_entries(org_id, reference);
	CREATE INDEX IF NOT EXISTS idx_entries_reversal
		ON journal_entries(org_id, reversal_of) WHERE reversal_of != '';
	CREATE INDEX IF NOT EXISTS idx_entries_posted_at
		ON journal_entries(org_id, posted_at);

	CREATE TABLE IF NOT EXISTS journal_lines (
		org_id TEXT NOT NULL,
		entry_id TEXT NOT NULL,
		line_no INTEGER NOT NULL,
		account_id TEXT NOT NULL,
		side TEXT NOT NULL,
		amount TEXT NOT NULL,
		component TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (org_id, entry_id, line_no)
	);
	CREATE INDEX IF NOT EXISTS idx_lines_account
		ON journal_lines(org_id, account_id);

	-- Loans
	CREATE TABLE IF NOT EXISTS loans (
		id TEXT NOT NULL,
		org_id TEXT NOT NULL,
		borrower_id TEXT NOT NULL,
		product_id TEXT NOT NULL DEFAULT '',
		terms_json TEXT NOT NULL,
		penalty_json TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		submitted_at TEXT NOT NULL,
		approved_at TEXT NOT NULL DEFAULT '',
		approved_by TEXT NOT NULL DEFAULT '',
		disbursed_at TEXT NOT NULL DEFAULT '',
		closed_at TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (org_id, id)
	);
	CREATE INDEX IF NOT EXISTS idx_loans_status
		ON loans(org_id, status);
	CREATE INDEX IF NOT EXISTS idx_loans_borrower
		ON loans(org_id, borrower_id);

	-- Repayment schedules
	CREATE TABLE IF NOT EXISTS installments (
		org_id TEXT NOT NULL,
		loan_id TEXT NOT NULL,
		number INTEGER NOT NULL,
		due_date TEXT NOT NULL,
		principal_due TEXT NOT NULL,
		interest_due TEXT NOT NULL,
		fee_due TEXT NOT NULL,
		penalty_due TEXT NOT NULL,
		principal_paid TEXT NOT NULL,
		interest_paid TEXT NOT NULL,
		fee_paid TEXT NOT NULL,
		penalty_paid TEXT NOT NULL,
		status TEXT NOT NULL,
		PRIMARY KEY (org_id, loan_id, number)
	);

	-- Payment audit records
	CREATE TABLE IF NOT EXISTS repayments (
		id TEXT NOT NULL,
		org_id TEXT NOT NULL,
		loan_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		principal TEXT NOT NULL,
		interest TEXT NOT NULL,
		fees TEXT NOT NULL,
		penalties TEXT NOT NULL,
		entry_id TEXT NOT NULL,
		actor_id TEXT NOT NULL DEFAULT '',
		received_at TEXT NOT NULL,
		PRIMARY KEY (org_id, id)
	);
	CREATE INDEX IF NOT EXISTS idx_repayments_loan
		ON repayments(org_id, loan_id);

	-- Savings
	CREATE TABLE IF NOT EXISTS savings_accounts (
		id TEXT NOT NULL,
		org_id TEXT NOT NULL,
		customer_id TEXT NOT NULL,
		balance TEXT NOT NULL,
		status TEXT NOT NULL,
		opened_at TEXT NOT NULL,
		PRIMARY KEY (org_id, id)
	);
	CREATE TABLE IF NOT EXISTS savings_transactions (
		id TEXT NOT NULL,
		org_id TEXT NOT NULL,
		account_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		amount TEXT NOT NULL,
		balance_after TEXT NOT NULL,
		entry_id TEXT NOT NULL,
		actor_id TEXT NOT NULL DEFAULT '',
		occurred_at TEXT NOT NULL,
		PRIMARY KEY (org_id, id)
	);
	CREATE INDEX IF NOT EXISTS idx_savings_tx_account
		ON savings_transactions(org_id, account_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

// dbtx abstracts *sql.DB and *sql.Tx so the query helpers run in both.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseMoney(s string) money.Money {
	m, err := money.Parse(s)
	if err != nil {
		return money.Zero
	}
	return m
}

func toCents(m money.Money) int64 {
	return m.Round().Value.Shift(int32(money.Places)).IntPart()
}

func fromCents(cents int64) money.Money {
	return money.New(decimal.New(cents, -money.Places))
}

// =============================================================================
// LEDGER: ACCOUNTS
// =============================================================================

func saveAccount(ctx context.Context, db dbtx, a ledger.Account) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO accounts (id, org_id, code, name, type, balance_cents, active, allow_manual, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (org_id, id) DO UPDATE SET
			code = excluded.code,
			name = excluded.name,
			type = excluded.type,
			active = excluded.active,
			allow_manual = excluded.allow_manual`,
		a.ID, a.OrgID, a.Code, a.Name, string(a.Type), toCents(a.Balance), a.Active, a.AllowManual, fmtTime(a.CreatedAt))
	return err
}

const accountColumns = `id, org_id, code, name, type, balance_cents, active, allow_manual, created_at`

func scanAccount(row interface{ Scan(...any) error }) (ledger.Account, error) {
	var a ledger.Account
	var accountType, createdAt string
	var cents int64
	err := row.Scan(&a.ID, &a.OrgID, &a.Code, &a.Name, &accountType, &cents, &a.Active, &a.AllowManual, &createdAt)
	if err != nil {
		return ledger.Account{}, err
	}
	a.Type = ledger.AccountType(accountType)
	a.Balance = fromCents(cents)
	a.CreatedAt = parseTime(createdAt)
	return a, nil
}

func getAccount(ctx context.Context, db dbtx, orgID, accountID string) (ledger.Account, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE org_id = ? AND id = ?`, orgID, accountID)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return ledger.Account{}, &ledger.UnknownAccountError{AccountID: accountID, OrgID: orgID, Reason: "not found"}
	}
	return a, err
}

func getAccountByCode(ctx context.Context, db dbtx, orgID, code string) (ledger.Account, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE org_id = ? AND code = ?`, orgID, code)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return ledger.Account{}, &ledger.UnknownAccountError{AccountID: code, OrgID: orgID, Reason: "no account with that code"}
	}
	return a, err
}

func listAccounts(ctx context.Context, db dbtx, orgID string) ([]ledger.Account, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE org_id = ? ORDER BY code`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ledger.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func adjustBalance(ctx context.Context, db dbtx, orgID, accountID string, delta money.Money) error {
	res, err := db.ExecContext(ctx,
		`UPDATE accounts SET balance_cents = balance_cents + ? WHERE org_id = ? AND id = ?`,
		toCents(delta), orgID, accountID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &ledger.UnknownAccountError{AccountID: accountID, OrgID: orgID, Reason: "not found"}
	}
	return nil
}

// =============================================================================
// LEDGER: RULES
// =============================================================================

func saveRule(ctx context.Context, db dbtx, rule ledger.Rule) error {
	lines, err := json.Marshal(rule.Lines)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO accounting_rules (org_id, event_type, id, lines_json)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (org_id, event_type) DO UPDATE SET
			id = excluded.id,
			lines_json = excluded.lines_json`,
		rule.OrgID, string(rule.EventType), rule.ID, string(lines))
	return err
}

func getRule(ctx context.Context, db dbtx, orgID string, event ledger.EventType) (ledger.Rule, error) {
	var rule ledger.Rule
	var linesJSON string
	err := db.QueryRowContext(ctx,
		`SELECT id, lines_json FROM accounting_rules WHERE org_id = ? AND event_type = ?`,
		orgID, string(event)).Scan(&rule.ID, &linesJSON)
	if err == sql.ErrNoRows {
		return ledger.Rule{}, &ledger.RuleNotFoundError{OrgID: orgID, EventType: event}
	}
	if err != nil {
		return ledger.Rule{}, err
	}
	rule.OrgID = orgID
	rule.EventType = event
	if err := json.Unmarshal([]byte(linesJSON), &rule.Lines); err != nil {
		return ledger.Rule{}, fmt.Errorf("corrupt rule %s/%s: %w", orgID, event, err)
	}
	return rule, nil
}

func listRules(ctx context.Context, db dbtx, orgID string) ([]ledger.Rule, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT event_type, id, lines_json FROM accounting_rules WHERE org_id = ? ORDER BY event_type`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ledger.Rule
	for rows.Next() {
		var rule ledger.Rule
		var eventType, linesJSON string
		if err := rows.Scan(&eventType, &rule.ID, &linesJSON); err != nil {
			return nil, err
		}
		rule.OrgID = orgID
		rule.EventType = ledger.EventType(eventType)
		if err := json.Unmarshal([]byte(linesJSON), &rule.Lines); err != nil {
			return nil, err
		}
		result = append(result, rule)
	}
	return result, rows.Err()
}

// =============================================================================
// LEDGER: ENTRIES (append-only)
// =============================================================================

func saveEntry(ctx context.Context, db dbtx, entry ledger.Entry) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO journal_entries (id, org_id, event_type, reference, memo, reversal_of, actor_id, posted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.OrgID, string(entry.EventType), entry.Reference, entry.Memo,
		entry.ReversalOf, entry.ActorID, fmtTime(entry.PostedAt))
	if err != nil {
		return err
	}
	for i, line := range entry.Lines {
		_, err := db.ExecContext(ctx, `
			INSERT INTO journal_lines (org_id, entry_id, line_no, account_id, side, amount, component)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			entry.OrgID, entry.ID, i+1, line.AccountID, string(line.Side),
			line.Amount.StringFixed(), string(line.Component))
		if err != nil {
			return err
		}
	}
	return nil
}

func loadLines(ctx context.Context, db dbtx, orgID, entryID string) ([]ledger.Line, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT account_id, side, amount, component FROM journal_lines
		WHERE org_id = ? AND entry_id = ? ORDER BY line_no`, orgID, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []ledger.Line
	for rows.Next() {
		var line ledger.Line
		var side, amount, component string
		if err := rows.Scan(&line.AccountID, &side, &amount, &component); err != nil {
			return nil, err
		}
		line.Side = ledger.Side(side)
		line.Amount = parseMoney(amount)
		line.Component = ledger.Component(component)
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func scanEntryHeader(row interface{ Scan(...any) error }) (ledger.Entry, error) {
	var e ledger.Entry
	var eventType, postedAt string
	err := row.Scan(&e.ID, &e.OrgID, &eventType, &e.Reference, &e.Memo, &e.ReversalOf, &e.ActorID, &postedAt)
	if err != nil {
		return ledger.Entry{}, err
	}
	e.EventType = ledger.EventType(eventType)
	e.PostedAt = parseTime(postedAt)
	return e, nil
}

const entryColumns = `id, org_id, event_type, reference, memo, reversal_of, actor_id, posted_at`

func getEntry(ctx context.Context, db dbtx, orgID, entryID string) (ledger.Entry, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM journal_entries WHERE org_id = ? AND id = ?`, orgID, entryID)
	entry, err := scanEntryHeader(row)
	if err == sql.ErrNoRows {
		return ledger.Entry{}, ledger.ErrEntryNotFound
	}
	if err != nil {
		return ledger.Entry{}, err
	}
	entry.Lines, err = loadLines(ctx, db, orgID, entryID)
	return entry, err
}

func listEntries(ctx context.Context, db dbtx, orgID string, filter ledger.EntryFilter) ([]ledger.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE org_id = ?`
	args := []any{orgID}
	if filter.EventType != "" {
		query += ` AND event_type = ?`
		args = append(args, string(filter.EventType))
	}
	if filter.Reference != "" {
		query += ` AND reference = ?`
		args = append(args, filter.Reference)
	}
	if !filter.From.IsZero() {
		query += ` AND posted_at >= ?`
		args = append(args, fmtTime(filter.From))
	}
	if !filter.To.IsZero() {
		query += ` AND posted_at <= ?`
		args = append(args, fmtTime(filter.To))
	}
	query += ` ORDER BY posted_at`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ledger.Entry
	for rows.Next() {
		entry, err := scanEntryHeader(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range result {
		result[i].Lines, err = loadLines(ctx, db, orgID, result[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func findReversal(ctx context.Context, db dbtx, orgID, entryID string) (ledger.Entry, bool, error) {
	var id string
	err := db.QueryRowContext(ctx,
		`SELECT id FROM journal_entries WHERE org_id = ? AND reversal_of = ?`, orgID, entryID).Scan(&id)
	if err == sql.ErrNoRows {
		return ledger.Entry{}, false, nil
	}
	if err != nil {
		return ledger.Entry{}, false, err
	}
	entry, err := getEntry(ctx, db, orgID, id)
	return entry, err == nil, err
}

// =============================================================================
// LEDGER.STORE IMPLEMENTATION
// =============================================================================

func (s *Store) SaveAccount(ctx context.Context, a ledger.Account) error {
	return saveAccount(ctx, s.db, a)
}

func (s *Store) Account(ctx context.Context, orgID, accountID string) (ledger.Account, error) {
	return getAccount(ctx, s.db, orgID, accountID)
}

func (s *Store) AccountByCode(ctx context.Context, orgID, code string) (ledger.Account, error) {
	return getAccountByCode(ctx, s.db, orgID, code)
}

func (s *Store) Accounts(ctx context.Context, orgID string) ([]ledger.Account, error) {
	return listAccounts(ctx, s.db, orgID)
}

func (s *Store) AdjustBalance(ctx context.Context, orgID, accountID string, delta money.Money) error {
	return adjustBalance(ctx, s.db, orgID, accountID, delta)
}

func (s *Store) SaveRule(ctx context.Context, rule ledger.Rule) error {
	return saveRule(ctx, s.db, rule)
}

func (s *Store) Rule(ctx context.Context, orgID string, event ledger.EventType) (ledger.Rule, error) {
	return getRule(ctx, s.db, orgID, event)
}

func (s *Store) Rules(ctx context.Context, orgID string) ([]ledger.Rule, error) {
	return listRules(ctx, s.db, orgID)
}

func (s *Store) SaveEntry(ctx context.Context, entry ledger.Entry) error {
	return saveEntry(ctx, s.db, entry)
}

func (s *Store) Entry(ctx context.Context, orgID, entryID string) (ledger.Entry, error) {
	return getEntry(ctx, s.db, orgID, entryID)
}

func (s *Store) Entries(ctx context.Context, orgID string, filter ledger.EntryFilter) ([]ledger.Entry, error) {
	return listEntries(ctx, s.db, orgID, filter)
}

func (s *Store) FindReversal(ctx context.Context, orgID, entryID string) (ledger.Entry, bool, error) {
	return findReversal(ctx, s.db, orgID, entryID)
}

// WithTx runs fn against a transactional view. fn's error rolls back.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(&txView{tx: tx}); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// txView is the in-transaction ledger.Store.
type txView struct {
	tx *sql.Tx
}

func (v *txView) SaveAccount(ctx context.Context, a ledger.Account) error {
	return saveAccount(ctx, v.tx, a)
}

func (v *txView) Account(ctx context.Context, orgID, accountID string) (ledger.Account, error) {
	return getAccount(ctx, v.tx, orgID, accountID)
}

func (v *txView) AccountByCode(ctx context.Context, orgID, code string) (ledger.Account, error) {
	return getAccountByCode(ctx, v.tx, orgID, code)
}

func (v *txView) Accounts(ctx context.Context, orgID string) ([]ledger.Account, error) {
	return listAccounts(ctx, v.tx, orgID)
}

func (v *txView) AdjustBalance(ctx context.Context, orgID, accountID string, delta money.Money) error {
	return adjustBalance(ctx, v.tx, orgID, accountID, delta)
}

func (v *txView) SaveRule(ctx context.Context, rule ledger.Rule) error {
	return saveRule(ctx, v.tx, rule)
}

func (v *txView) Rule(ctx context.Context, orgID string, event ledger.EventType) (ledger.Rule, error) {
	return getRule(ctx, v.tx, orgID, event)
}

func (v *txView) Rules(ctx context.Context, orgID string) ([]ledger.Rule, error) {
	return listRules(ctx, v.tx, orgID)
}

func (v *txView) SaveEntry(ctx context.Context, entry ledger.Entry) error {
	return saveEntry(ctx, v.tx, entry)
}

func (v *txView) Entry(ctx context.Context, orgID, entryID string) (ledger.Entry, error) {
	return getEntry(ctx, v.tx, orgID, entryID)
}

func (v *txView) Entries(ctx context.Context, orgID string, filter ledger.EntryFilter) ([]ledger.Entry, error) {
	return listEntries(ctx, v.tx, orgID, filter)
}

func (v *txView) FindReversal(ctx context.Context, orgID, entryID string) (ledger.Entry, bool, error) {
	return findReversal(ctx, v.tx, orgID, entryID)
}

// WithTx on a view joins the surrounding transaction.
func (v *txView) WithTx(_ context.Context, fn func(ledger.Store) error) error {
	return fn(v)
}

// =============================================================================
// LIFECYCLE: LOANS
// =============================================================================

func saveLoan(ctx context.Context, db dbtx, loan lifecycle.Loan) error {
	terms, err := json.Marshal(loan.Terms)
	if err != nil {
		return err
	}
	penalty, err := json.Marshal(loan.Penalty)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO loans (id, org_id, borrower_id, product_id, terms_json, penalty_json, status,
			submitted_at, approved_at, approved_by, disbursed_at, closed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (org_id, id) DO UPDATE SET
			terms_json = excluded.terms_json,
			penalty_json = excluded.penalty_json,
			status = excluded.status,
			approved_at = excluded.approved_at,
			approved_by = excluded.approved_by,
			disbursed_at = excluded.disbursed_at,
			closed_at = excluded.closed_at`,
		loan.ID, loan.OrgID, loan.BorrowerID, loan.ProductID, string(terms), string(penalty),
		string(loan.Status), fmtTime(loan.SubmittedAt), fmtTime(loan.ApprovedAt), loan.ApprovedBy,
		fmtTime(loan.DisbursedAt), fmtTime(loan.ClosedAt))
	return err
}

const loanColumns = `id, org_id, borrower_id, product_id, terms_json, penalty_json, status,
	submitted_at, approved_at, approved_by, disbursed_at, closed_at`

func scanLoan(row interface{ Scan(...any) error }) (lifecycle.Loan, error) {
	var loan lifecycle.Loan
	var terms, penalty, status, submitted, approved, disbursed, closed string
	err := row.Scan(&loan.ID, &loan.OrgID, &loan.BorrowerID, &loan.ProductID, &terms, &penalty,
		&status, &submitted, &approved, &loan.ApprovedBy, &disbursed, &closed)
	if err != nil {
		return lifecycle.Loan{}, err
	}
	if err := json.Unmarshal([]byte(terms), &loan.Terms); err != nil {
		return lifecycle.Loan{}, fmt.Errorf("corrupt loan terms %s: %w", loan.ID, err)
	}
	if penalty != "" {
		if err := json.Unmarshal([]byte(penalty), &loan.Penalty); err != nil {
			return lifecycle.Loan{}, fmt.Errorf("corrupt loan penalty %s: %w", loan.ID, err)
		}
	}
	loan.Status = lifecycle.LoanStatus(status)
	loan.SubmittedAt = parseTime(submitted)
	loan.ApprovedAt = parseTime(approved)
	loan.DisbursedAt = parseTime(disbursed)
	loan.ClosedAt = parseTime(closed)
	return loan, nil
}

func (s *Store) SaveLoan(ctx context.Context, loan lifecycle.Loan) error {
	return saveLoan(ctx, s.db, loan)
}

func (s *Store) Loan(ctx context.Context, orgID, loanID string) (lifecycle.Loan, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE org_id = ? AND id = ?`, orgID, loanID)
	loan, err := scanLoan(row)
	if err == sql.ErrNoRows {
		return lifecycle.Loan{}, lifecycle.ErrLoanNotFound
	}
	return loan, err
}

func (s *Store) Loans(ctx context.Context, orgID string, filter lifecycle.LoanFilter) ([]lifecycle.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE org_id = ?`
	args := []any{orgID}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.BorrowerID != "" {
		query += ` AND borrower_id = ?`
		args = append(args, filter.BorrowerID)
	}
	query += ` ORDER BY submitted_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []lifecycle.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, loan)
	}
	return result, rows.Err()
}

// =============================================================================
// LIFECYCLE: INSTALLMENTS
// =============================================================================

func insertInstallments(ctx context.Context, db dbtx, orgID, loanID string, schedule []engine.Installment) error {
	for _, inst := range schedule {
		_, err := db.ExecContext(ctx, `
			INSERT INTO installments (org_id, loan_id, number, due_date,
				principal_due, interest_due, fee_due, penalty_due,
				principal_paid, interest_paid, fee_paid, penalty_paid, status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			orgID, loanID, inst.Number, fmtTime(inst.DueDate),
			inst.PrincipalDue.StringFixed(), inst.InterestDue.StringFixed(),
			inst.FeeDue.StringFixed(), inst.PenaltyDue.StringFixed(),
			inst.PrincipalPaid.StringFixed(), inst.InterestPaid.StringFixed(),
			inst.FeePaid.StringFixed(), inst.PenaltyPaid.StringFixed(),
			string(inst.Status))
		if err != nil {
			return err
		}
	}
	return nil
}

func replaceInstallments(ctx context.Context, db dbtx, orgID, loanID string, schedule []engine.Installment) error {
	if _, err := db.ExecContext(ctx,
		`DELETE FROM installments WHERE org_id = ? AND loan_id = ?`, orgID, loanID); err != nil {
		return err
	}
	return insertInstallments(ctx, db, orgID, loanID, schedule)
}

func (s *Store) Installments(ctx context.Context, orgID, loanID string) ([]engine.Installment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT number, due_date, principal_due, interest_due, fee_due, penalty_due,
			principal_paid, interest_paid, fee_paid, penalty_paid, status
		FROM installments WHERE org_id = ? AND loan_id = ? ORDER BY number`, orgID, loanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []engine.Installment
	for rows.Next() {
		var inst engine.Installment
		var dueDate, pd, id_, fd, pend, pp, ip, fp, penp, status string
		if err := rows.Scan(&inst.Number, &dueDate, &pd, &id_, &fd, &pend, &pp, &ip, &fp, &penp, &status); err != nil {
			return nil, err
		}
		inst.DueDate = parseTime(dueDate)
		inst.PrincipalDue = parseMoney(pd)
		inst.InterestDue = parseMoney(id_)
		inst.FeeDue = parseMoney(fd)
		inst.PenaltyDue = parseMoney(pend)
		inst.PrincipalPaid = parseMoney(pp)
		inst.InterestPaid = parseMoney(ip)
		inst.FeePaid = parseMoney(fp)
		inst.PenaltyPaid = parseMoney(penp)
		inst.Status = engine.InstallmentStatus(status)
		result = append(result, inst)
	}
	return result, rows.Err()
}

// =============================================================================
// LIFECYCLE: ATOMIC OPERATIONS
// =============================================================================

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Store) ActivateLoan(ctx context.Context, loan lifecycle.Loan, schedule []engine.Installment) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := saveLoan(ctx, tx, loan); err != nil {
			return err
		}
		return insertInstallments(ctx, tx, loan.OrgID, loan.ID, schedule)
	})
}

func (s *Store) ApplyRepayment(ctx context.Context, loan lifecycle.Loan, schedule []engine.Installment, repayment lifecycle.Repayment) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := saveLoan(ctx, tx, loan); err != nil {
			return err
		}
		if err := replaceInstallments(ctx, tx, loan.OrgID, loan.ID, schedule); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO repayments (id, org_id, loan_id, amount, principal, interest, fees, penalties,
				entry_id, actor_id, received_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			repayment.ID, repayment.OrgID, repayment.LoanID,
			repayment.Amount.StringFixed(), repayment.Principal.StringFixed(),
			repayment.Interest.StringFixed(), repayment.Fees.StringFixed(),
			repayment.Penalties.StringFixed(), repayment.EntryID, repayment.ActorID,
			fmtTime(repayment.ReceivedAt))
		return err
	})
}

func (s *Store) ReplaceSchedule(ctx context.Context, loan lifecycle.Loan, schedule []engine.Installment) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := saveLoan(ctx, tx, loan); err != nil {
			return err
		}
		return replaceInstallments(ctx, tx, loan.OrgID, loan.ID, schedule)
	})
}

func (s *Store) Repayments(ctx context.Context, orgID, loanID string) ([]lifecycle.Repayment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, org_id, loan_id, amount, principal, interest, fees, penalties, entry_id, actor_id, received_at
		FROM repayments WHERE org_id = ? AND loan_id = ? ORDER BY received_at`, orgID, loanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []lifecycle.Repayment
	for rows.Next() {
		var r lifecycle.Repayment
		var amount, principal, interest, fees, penalties, receivedAt string
		if err := rows.Scan(&r.ID, &r.OrgID, &r.LoanID, &amount, &principal, &interest,
			&fees, &penalties, &r.EntryID, &r.ActorID, &receivedAt); err != nil {
			return nil, err
		}
		r.Amount = parseMoney(amount)
		r.Principal = parseMoney(principal)
		r.Interest = parseMoney(interest)
		r.Fees = parseMoney(fees)
		r.Penalties = parseMoney(penalties)
		r.ReceivedAt = parseTime(receivedAt)
		result = append(result, r)
	}
	return result, rows.Err()
}

// =============================================================================
// LIFECYCLE: SAVINGS
// =============================================================================

func saveSavingsAccount(ctx context.Context, db dbtx, account lifecycle.SavingsAccount) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO savings_accounts (id, org_id, customer_id, balance, status, opened_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (org_id, id) DO UPDATE SET
			balance = excluded.balance,
			status = excluded.status`,
		account.ID, account.OrgID, account.CustomerID, account.Balance.StringFixed(),
		string(account.Status), fmtTime(account.OpenedAt))
	return err
}

func (s *Store) SaveSavingsAccount(ctx context.Context, account lifecycle.SavingsAccount) error {
	return saveSavingsAccount(ctx, s.db, account)
}

func (s *Store) SavingsAccount(ctx context.Context, orgID, accountID string) (lifecycle.SavingsAccount, error) {
	var a lifecycle.SavingsAccount
	var balance, status, openedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, org_id, customer_id, balance, status, opened_at
		FROM savings_accounts WHERE org_id = ? AND id = ?`, orgID, accountID).
		Scan(&a.ID, &a.OrgID, &a.CustomerID, &balance, &status, &openedAt)
	if err == sql.ErrNoRows {
		return lifecycle.SavingsAccount{}, lifecycle.ErrSavingsNotFound
	}
	if err != nil {
		return lifecycle.SavingsAccount{}, err
	}
	a.Balance = parseMoney(balance)
	a.Status = lifecycle.SavingsStatus(status)
	a.OpenedAt = parseTime(openedAt)
	return a, nil
}

func (s *Store) SavingsAccounts(ctx context.Context, orgID string) ([]lifecycle.SavingsAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, org_id, customer_id, balance, status, opened_at
		FROM savings_accounts WHERE org_id = ? ORDER BY opened_at`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []lifecycle.SavingsAccount
	for rows.Next() {
		var a lifecycle.SavingsAccount
		var balance, status, openedAt string
		if err := rows.Scan(&a.ID, &a.OrgID, &a.CustomerID, &balance, &status, &openedAt); err != nil {
			return nil, err
		}
		a.Balance = parseMoney(balance)
		a.Status = lifecycle.SavingsStatus(status)
		a.OpenedAt = parseTime(openedAt)
		result = append(result, a)
	}
	return result, rows.Err()
}

func (s *Store) ApplySavingsTransaction(ctx context.Context, account lifecycle.SavingsAccount, stx lifecycle.SavingsTransaction) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := saveSavingsAccount(ctx, tx, account); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO savings_transactions (id, org_id, account_id, kind, amount, balance_after,
				entry_id, actor_id, occurred_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			stx.ID, stx.OrgID, stx.AccountID, string(stx.Kind), stx.Amount.StringFixed(),
			stx.BalanceAfter.StringFixed(), stx.EntryID, stx.ActorID, fmtTime(stx.OccurredAt))
		return err
	})
}

func (s *Store) SavingsTransactions(ctx context.Context, orgID, accountID string) ([]lifecycle.SavingsTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, org_id, account_id, kind, amount, balance_after, entry_id, actor_id, occurred_at
		FROM savings_transactions WHERE org_id = ? AND account_id = ? ORDER BY occurred_at`, orgID, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []lifecycle.SavingsTransaction
	for rows.Next() {
		var stx lifecycle.SavingsTransaction
		var kind, amount, balanceAfter, occurredAt string
		if err := rows.Scan(&stx.ID, &stx.OrgID, &stx.AccountID, &kind, &amount, &balanceAfter,
			&stx.EntryID, &stx.ActorID, &occurredAt); err != nil {
			return nil, err
		}
		stx.Kind = lifecycle.SavingsTxKind(kind)
		stx.Amount = parseMoney(amount)
		stx.BalanceAfter = parseMoney(balanceAfter)
		stx.OccurredAt = parseTime(occurredAt)
		result = append(result, stx)
	}
	return result, rows.Err()
}
