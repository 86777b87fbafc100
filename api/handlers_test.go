package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian/lending-engine/api"
	"github.com/meridian/lending-engine/ledger"
	ledgerstore "github.com/meridian/lending-engine/ledger/store"
	"github.com/meridian/lending-engine/lifecycle"
	lifecyclestore "github.com/meridian/lending-engine/lifecycle/store"
)

const demoOrg = "mfi-demo"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	books := ledgerstore.NewMemory()
	registry := ledger.NewRuleRegistry(books)
	poster := ledger.NewPoster(books, registry, nil)
	service := lifecycle.NewService(lifecyclestore.NewMemory(), poster, nil, zerolog.Nop(), nil)
	handler := api.NewHandler(service, poster, registry, books, zerolog.Nop())

	server := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(server.Close)

	status, _ := do(t, server, http.MethodPost, "/api/admin/seed", "", nil, nil)
	require.Equal(t, http.StatusOK, status)
	return server
}

// do sends a request and decodes the JSON response into out (when non-nil).
func do(t *testing.T, server *httptest.Server, method, path, org string, body, out any) (int, string) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(method, server.URL+path, reader)
	require.NoError(t, err)
	if org != "" {
		req.Header.Set("X-Org-ID", org)
	}
	req.Header.Set("X-Actor-ID", "tester")
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil && len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, out), "body: %s", raw)
	}
	return resp.StatusCode, string(raw)
}

func submitLoan(t *testing.T, server *httptest.Server) api.LoanDTO {
	t.Helper()
	var loan api.LoanDTO
	status, body := do(t, server, http.MethodPost, "/api/loans", demoOrg, map[string]any{
		"borrower_id":    "cust-1",
		"product_id":     "micro-flat",
		"principal":      "1200",
		"first_due_date": "2025-02-10",
	}, &loan)
	require.Equal(t, http.StatusCreated, status, body)
	return loan
}

func disburseLoan(t *testing.T, server *httptest.Server, loanID string) {
	t.Helper()
	status, body := do(t, server, http.MethodPost, "/api/loans/"+loanID+"/approve", demoOrg, nil, nil)
	require.Equal(t, http.StatusOK, status, body)
	status, body = do(t, server, http.MethodPost, "/api/loans/"+loanID+"/disburse", demoOrg, nil, nil)
	require.Equal(t, http.StatusOK, status, body)
}

func accountByCode(t *testing.T, server *httptest.Server, code string) api.AccountDTO {
	t.Helper()
	var accounts []api.AccountDTO
	status, _ := do(t, server, http.MethodGet, "/api/accounting/accounts", demoOrg, nil, &accounts)
	require.Equal(t, http.StatusOK, status)
	for _, a := range accounts {
		if a.Code == code {
			return a
		}
	}
	t.Fatalf("no account with code %s", code)
	return api.AccountDTO{}
}

func TestLoanLifecycleOverHTTP(t *testing.T) {
	server := newTestServer(t)

	loan := submitLoan(t, server)
	assert.Equal(t, "SUBMITTED", loan.Status)
	assert.Equal(t, "1200.00", loan.Terms.Principal)

	disburseLoan(t, server, loan.ID)

	var schedule []api.InstallmentDTO
	status, _ := do(t, server, http.MethodGet, "/api/loans/"+loan.ID+"/schedule", demoOrg, nil, &schedule)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, schedule, 12)
	assert.Equal(t, "100.00", schedule[0].PrincipalDue)
	assert.Equal(t, "24.00", schedule[0].InterestDue)

	// Disbursement moved principal from cash into the receivable.
	assert.Equal(t, "1200.00", accountByCode(t, server, "1200").Balance)
	assert.Equal(t, "-1200.00", accountByCode(t, server, "1010").Balance)

	var repayment api.RepaymentDTO
	status, body := do(t, server, http.MethodPost, "/api/loans/"+loan.ID+"/repayments", demoOrg,
		api.RepayRequest{Amount: "124.00"}, &repayment)
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "100.00", repayment.Principal)
	assert.Equal(t, "24.00", repayment.Interest)
	assert.NotEmpty(t, repayment.EntryID)

	var fetched api.LoanDTO
	status, _ = do(t, server, http.MethodGet, "/api/loans/"+loan.ID, demoOrg, nil, &fetched)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "DISBURSED", fetched.Status)

	var trial api.TrialBalanceDTO
	status, _ = do(t, server, http.MethodGet, "/api/accounting/trial-balance", demoOrg, nil, &trial)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, trial.Balanced)
	assert.Equal(t, trial.TotalDebits, trial.TotalCredits)
}

func TestLoanErrorsOverHTTP(t *testing.T) {
	server := newTestServer(t)

	// Tenancy header is mandatory.
	status, _ := do(t, server, http.MethodGet, "/api/loans", "", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	// Unknown loan.
	status, _ = do(t, server, http.MethodGet, "/api/loans/nope", demoOrg, nil, nil)
	assert.Equal(t, http.StatusNotFound, status)

	// Unknown product.
	status, _ = do(t, server, http.MethodPost, "/api/loans", demoOrg, map[string]any{
		"borrower_id": "cust-1", "product_id": "nope", "principal": "100", "first_due_date": "2025-02-10",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	loan := submitLoan(t, server)
	disburseLoan(t, server, loan.ID)

	// Disbursing twice is an illegal transition.
	status, _ = do(t, server, http.MethodPost, "/api/loans/"+loan.ID+"/disburse", demoOrg, nil, nil)
	assert.Equal(t, http.StatusConflict, status)

	// Overpayment is rejected, not silently kept.
	status, body := do(t, server, http.MethodPost, "/api/loans/"+loan.ID+"/repayments", demoOrg,
		api.RepayRequest{Amount: "99999"}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "unallocated")
}

func TestInlineTermsAndReschedule(t *testing.T) {
	server := newTestServer(t)

	var loan api.LoanDTO
	status, body := do(t, server, http.MethodPost, "/api/loans", demoOrg, map[string]any{
		"borrower_id": "cust-2",
		"terms": map[string]any{
			"principal":       "1000",
			"annual_rate":     "0.12",
			"interest_method": "DECLINING_BALANCE_EQUAL_PRINCIPAL",
			"frequency":       "MONTHLY",
			"installments":    10,
			"first_due_date":  "2025-03-01",
		},
	}, &loan)
	require.Equal(t, http.StatusCreated, status, body)
	disburseLoan(t, server, loan.ID)

	var result struct {
		Loan     api.LoanDTO          `json:"loan"`
		Schedule []api.InstallmentDTO `json:"schedule"`
	}
	status, body = do(t, server, http.MethodPost, "/api/loans/"+loan.ID+"/reschedule", demoOrg,
		api.RescheduleRequest{Installments: 20, FirstDueDate: "2025-04-01"}, &result)
	require.Equal(t, http.StatusOK, status, body)

	// 10 cancelled originals plus the regenerated tail.
	require.Len(t, result.Schedule, 30)
	assert.Equal(t, "CANCELLED", result.Schedule[0].Status)
	assert.Equal(t, "PENDING", result.Schedule[10].Status)
	assert.Equal(t, 11, result.Schedule[10].Number)
}

func TestSavingsOverHTTP(t *testing.T) {
	server := newTestServer(t)

	var account api.SavingsDTO
	status, body := do(t, server, http.MethodPost, "/api/savings", demoOrg,
		api.OpenSavingsRequest{CustomerID: "cust-9"}, &account)
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "0.00", account.Balance)

	status, _ = do(t, server, http.MethodPost, "/api/savings/"+account.ID+"/deposits", demoOrg,
		api.SavingsMoveRequest{Amount: "500"}, nil)
	require.Equal(t, http.StatusCreated, status)

	status, _ = do(t, server, http.MethodPost, "/api/savings/"+account.ID+"/withdrawals", demoOrg,
		api.SavingsMoveRequest{Amount: "200"}, nil)
	require.Equal(t, http.StatusCreated, status)

	// Overdrawing is refused.
	status, _ = do(t, server, http.MethodPost, "/api/savings/"+account.ID+"/withdrawals", demoOrg,
		api.SavingsMoveRequest{Amount: "300.01"}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	var passbook []api.SavingsTransactionDTO
	status, _ = do(t, server, http.MethodGet, "/api/savings/"+account.ID+"/transactions", demoOrg, nil, &passbook)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, passbook, 2)
	assert.Equal(t, "300.00", passbook[1].BalanceAfter)

	// The ledger mirrors the liability.
	assert.Equal(t, "300.00", accountByCode(t, server, "2100").Balance)
}

func TestManualEntryAndReversalOverHTTP(t *testing.T) {
	server := newTestServer(t)

	cash := accountByCode(t, server, "1010")
	expenses := accountByCode(t, server, "5010")
	receivable := accountByCode(t, server, "1200")

	var entry api.EntryDTO
	status, body := do(t, server, http.MethodPost, "/api/accounting/journal-entries", demoOrg,
		api.ManualEntryRequest{
			Memo: "office rent",
			Lines: []api.ManualLineRequest{
				{AccountID: expenses.ID, Side: "DEBIT", Amount: "50.00"},
				{AccountID: cash.ID, Side: "CREDIT", Amount: "50.00"},
			},
		}, &entry)
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "50.00", accountByCode(t, server, "5010").Balance)

	// Unbalanced entries are refused.
	status, _ = do(t, server, http.MethodPost, "/api/accounting/journal-entries", demoOrg,
		api.ManualEntryRequest{Lines: []api.ManualLineRequest{
			{AccountID: expenses.ID, Side: "DEBIT", Amount: "50.00"},
			{AccountID: cash.ID, Side: "CREDIT", Amount: "49.00"},
		}}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	// The receivable account does not allow manual postings.
	status, _ = do(t, server, http.MethodPost, "/api/accounting/journal-entries", demoOrg,
		api.ManualEntryRequest{Lines: []api.ManualLineRequest{
			{AccountID: receivable.ID, Side: "DEBIT", Amount: "10.00"},
			{AccountID: cash.ID, Side: "CREDIT", Amount: "10.00"},
		}}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, server, http.MethodPost, "/api/accounting/journal-entries/"+entry.ID+"/reverse", demoOrg,
		api.ReverseRequest{Memo: "booked twice"}, nil)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "0.00", accountByCode(t, server, "5010").Balance)

	// Only once.
	status, _ = do(t, server, http.MethodPost, "/api/accounting/journal-entries/"+entry.ID+"/reverse", demoOrg,
		api.ReverseRequest{}, nil)
	assert.Equal(t, http.StatusConflict, status)
}

func TestAssessOverdueOverHTTP(t *testing.T) {
	server := newTestServer(t)

	loan := submitLoan(t, server)
	disburseLoan(t, server, loan.ID)

	var summary api.OverdueSummaryDTO
	status, body := do(t, server, http.MethodPost, "/api/admin/assess-overdue", demoOrg,
		api.AssessOverdueRequest{AsOf: "2025-03-15"}, &summary)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, 1, summary.LoansOverdue)
	assert.Equal(t, 2, summary.InstallmentsLate)

	var schedule []api.InstallmentDTO
	status, _ = do(t, server, http.MethodGet, "/api/loans/"+loan.ID+"/schedule", demoOrg, nil, &schedule)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OVERDUE", schedule[0].Status)
	assert.NotEqual(t, "0.00", schedule[0].PenaltyDue)
}
