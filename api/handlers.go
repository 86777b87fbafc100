/*
handlers.go - HTTP handler implementations

PURPOSE:
  Translates HTTP requests into service calls and domain results into
  DTOs. Handlers hold no business logic: validation of money movements
  lives in the engine, posting rules in the ledger, state transitions in
  the lifecycle service.

TENANCY:
  Every request carries the organization in the X-Org-ID header and the
  acting user in X-Actor-ID. There is no authentication layer here;
  deployments put one in front.

ERROR MAPPING:
  Not-found sentinels        -> 404
  Illegal state transitions  -> 409
  Other client errors        -> 400
  Everything else            -> 500

SEE ALSO:
  - server.go: Route wiring
  - dto.go: Wire formats
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/meridian/lending-engine/engine"
	"github.com/meridian/lending-engine/factory"
	"github.com/meridian/lending-engine/ledger"
	"github.com/meridian/lending-engine/lifecycle"
	"github.com/meridian/lending-engine/money"
)

const (
	headerOrg   = "X-Org-ID"
	headerActor = "X-Actor-ID"
)

// Handler carries the wired application services.
type Handler struct {
	Service  *lifecycle.Service
	Poster   *ledger.Poster
	Registry *ledger.RuleRegistry
	Ledger   ledger.Store
	Setup    *factory.SetupFactory
	Log      zerolog.Logger

	// Scheduler, when set, learns about orgs as setups are applied so the
	// overdue sweep covers them.
	Scheduler *OverdueScheduler

	mu       sync.RWMutex
	products map[string]map[string]factory.Product // orgID -> productID
}

func NewHandler(service *lifecycle.Service, poster *ledger.Poster, registry *ledger.RuleRegistry, store ledger.Store, log zerolog.Logger) *Handler {
	return &Handler{
		Service:  service,
		Poster:   poster,
		Registry: registry,
		Ledger:   store,
		Setup:    factory.NewSetupFactory(),
		Log:      log,
		products: make(map[string]map[string]factory.Product),
	}
}

// =============================================================================
// PLUMBING
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "internal"

	switch {
	case errors.Is(err, lifecycle.ErrLoanNotFound),
		errors.Is(err, lifecycle.ErrSavingsNotFound),
		errors.Is(err, ledger.ErrEntryNotFound),
		errors.Is(err, ledger.ErrRuleNotFound),
		errors.Is(err, ledger.ErrUnknownAccount):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, ledger.ErrAlreadyReversed):
		status, code = http.StatusConflict, "conflict"
	case lifecycle.IsClientError(err):
		status, code = http.StatusBadRequest, "bad_request"
	default:
		h.Log.Error().Err(err).Msg("request failed")
	}

	writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: code})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg, Code: "bad_request"})
}

func orgID(r *http.Request) string {
	return r.Header.Get(headerOrg)
}

func actorID(r *http.Request) string {
	return r.Header.Get(headerActor)
}

// requireOrg rejects requests without a tenant header.
func (h *Handler) requireOrg(w http.ResponseWriter, r *http.Request) (string, bool) {
	org := orgID(r)
	if org == "" {
		badRequest(w, "missing "+headerOrg+" header")
		return "", false
	}
	return org, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func (h *Handler) product(org, productID string) (factory.Product, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.products[org][productID]
	return p, ok
}

func (h *Handler) cacheProducts(org string, products []factory.Product) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.products[org] == nil {
		h.products[org] = make(map[string]factory.Product)
	}
	for _, p := range products {
		h.products[org][p.ID] = p
	}
}

// =============================================================================
// SETUP AND PRODUCTS
// =============================================================================

// ApplySetup provisions an org from a setup document: chart of accounts,
// posting rules, and loan products. Re-running is safe.
func (h *Handler) ApplySetup(w http.ResponseWriter, r *http.Request) {
	body := json.RawMessage{}
	if !decode(w, r, &body) {
		return
	}
	setup, err := h.Setup.Parse(string(body))
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	products, err := h.Setup.Apply(r.Context(), setup, h.Ledger, h.Registry)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.cacheProducts(setup.OrgID, products)
	if h.Scheduler != nil {
		h.Scheduler.RegisterOrg(setup.OrgID)
	}

	dtos := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		dtos = append(dtos, toProductDTO(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"org_id": setup.OrgID, "products": dtos})
}

// Seed provisions the bundled demo organization.
func (h *Handler) Seed(ctx context.Context) (string, error) {
	setup, err := h.Setup.Parse(demoSetupJSON)
	if err != nil {
		return "", err
	}
	products, err := h.Setup.Apply(ctx, setup, h.Ledger, h.Registry)
	if err != nil {
		return "", err
	}
	h.cacheProducts(setup.OrgID, products)
	if h.Scheduler != nil {
		h.Scheduler.RegisterOrg(setup.OrgID)
	}

	// One sample client with a passbook, so the demo has a liability side.
	// Re-seeding must not mint another account.
	existing, err := h.Service.SavingsAccounts(ctx, setup.OrgID)
	if err != nil {
		return "", err
	}
	if len(existing) == 0 {
		if _, err := h.Service.OpenSavings(ctx, setup.OrgID, "client-rose"); err != nil {
			return "", err
		}
	}
	return setup.OrgID, nil
}

// SeedDemo loads the bundled demo organization over HTTP.
func (h *Handler) SeedDemo(w http.ResponseWriter, r *http.Request) {
	org, err := h.Seed(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"org_id": org})
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	org, ok := h.requireOrg(w, r)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	dtos := make([]ProductDTO, 0, len(h.products[org]))
	for _, p := range h.products[org] {
		dtos = append(dtos, toProductDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// LOANS
// =============================================================================

func (h *Handler) termsFromRequest(org string, req SubmitLoanRequest) (engine.LoanTerms, engine.PenaltyPolicy, string, error) {
	var penalty engine.PenaltyPolicy
	if req.Penalty != nil {
		penalty.Type = engine.PenaltyPolicyType(req.Penalty.Type)
		if req.Penalty.FlatAmount != "" {
			amount, err := money.Parse(req.Penalty.FlatAmount)
			if err != nil {
				return engine.LoanTerms{}, penalty, "", errors.New("invalid penalty flat_amount")
			}
			penalty.FlatAmount = amount
		}
		if req.Penalty.AnnualRate != "" {
			rate, err := decimal.NewFromString(req.Penalty.AnnualRate)
			if err != nil {
				return engine.LoanTerms{}, penalty, "", errors.New("invalid penalty annual_rate")
			}
			penalty.AnnualRate = rate
		}
	}

	if req.ProductID != "" {
		product, ok := h.product(org, req.ProductID)
		if !ok {
			return engine.LoanTerms{}, penalty, "", errors.New("unknown product " + req.ProductID)
		}
		principal, err := money.Parse(req.Principal)
		if err != nil {
			return engine.LoanTerms{}, penalty, "", errors.New("invalid principal")
		}
		firstDue, err := parseDate(req.FirstDueDate)
		if err != nil {
			return engine.LoanTerms{}, penalty, "", errors.New("invalid first_due_date")
		}
		if req.Penalty == nil {
			penalty = product.Penalty
		}
		return product.Terms(principal, firstDue), penalty, product.ID, nil
	}

	if req.Terms == nil {
		return engine.LoanTerms{}, penalty, "", errors.New("either product_id or terms is required")
	}
	principal, err := money.Parse(req.Terms.Principal)
	if err != nil {
		return engine.LoanTerms{}, penalty, "", errors.New("invalid principal")
	}
	rate, err := decimal.NewFromString(req.Terms.AnnualRate)
	if err != nil {
		return engine.LoanTerms{}, penalty, "", errors.New("invalid annual_rate")
	}
	firstDue, err := parseDate(req.Terms.FirstDueDate)
	if err != nil {
		return engine.LoanTerms{}, penalty, "", errors.New("invalid first_due_date")
	}
	terms := engine.LoanTerms{
		Principal:      principal,
		AnnualRate:     rate,
		Method:         engine.InterestMethod(req.Terms.InterestMethod),
		Frequency:      engine.Frequency(req.Terms.Frequency),
		RepeatEvery:    req.Terms.RepeatEvery,
		Installments:   req.Terms.Installments,
		FirstDueDate:   firstDue,
		PrincipalGrace: req.Terms.PrincipalGrace,
		InterestGrace:  req.Terms.InterestGrace,
	}
	return terms, penalty, "", nil
}

func (h *Handler) SubmitLoan(w http.ResponseWriter, r *http.Request) {
	org, ok := h.requireOrg(w, r)
	if !ok {
		return
	}
	var req SubmitLoanRequest
	if !decode(w, r, &req) {
		return
	}
	if req.BorrowerID == "" {
		badRequest(w, "borrower_id is required")
		return
	}

	terms, penalty, productID, err := h.termsFromRequest(org, req)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	loan, err := h.Service.SubmitLoan(r.Context(), lifecycle.SubmitLoanInput{
		OrgID:      org,
		BorrowerID: req.BorrowerID,
		ProductID:  productID,
		Terms:      terms,
		Penalty:    penalty,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLoanDTO(loan))
}

func (h *Handler) ListLoans(w http.ResponseWriter, r *http.Request) {
	org, ok := h.requireOrg(w, r)
	if !ok {
		return
	}
	filter := lifecycle.LoanFilter{
		Status:     lifecycle.LoanStatus(r.URL.Query().Get("status")),
		BorrowerID: r.URL.Query().Get("borrower_id"),
	}
	loans, err := h.Service.Loans(r.Context(), org, filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	dtos := make([]LoanDTO, 0, len(loans))
	for _, loan := range loans {
		dtos = append(dtos, toLoanDTO(loan))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetLoan(w http.ResponseWriter, r *http.Request) {
	org, ok := h.requireOrg(w, r)
	if !ok {
		return
	}
	loan, err := h.Service.Loan(r.Context(), org, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoanDTO(loan))
}

func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	org, ok := h.requireOrg(w, r)
	if !ok {
		return
	}
	schedule, err := h.Service.Schedule(r.Context(), org, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInstallmentDTOs(schedule))
}

func (h *Handler) ListRepayments(w http.ResponseWriter, r *http.Request) {
	org, ok := h.requireOrg(w, r)
	if !ok {
		return
	}
	repayments, err := h.Service.Repayments(r.Context(), org, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	dtos := make([]RepaymentDTO, 0, len(repayments))
	for _, rep := range repayments {
		dtos = append(dtos, toRepaymentDTO(rep))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) ApproveLoan(w http.ResponseWriter, r *http.Request) {
	org, ok := h.requireOrg(w, r)
	if !ok {
		return
	}
	loan, err := h.Service.ApproveLoan(r.Context(), org, chi.URLParam(r, "id"), actorID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoanDTO(loan))
}

func (h *Handler) RejectLoan(w http.ResponseWriter, r *http.Request) {
	org, ok := h.requireOrg(w, r)
	if !ok {
		return
	}
	loan, err := h.Service.RejectLoan(r.Context(), org, chi.URLParam(r, "id"), actorID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoanDTO(loan))
}

func (h *Handler) DisburseLoan(w http.ResponseWriter, r *http.Request) {
	org, ok := h.requireOrg(w, r)
	if !ok {
		return
	}
	loan, schedule, err := h.Service.DisburseLoan(r.Context(), org, chi.URLParam(r, "id"), actorID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"loan":     toLoanDTO(loan),
		"schedule": toInstallmentDTOs(schedule),
	})
}

func (h *Handler) RepayLoan(w http.ResponseWriter, r *http.Request) {
	org, ok := h.requireOrg(w, r)
	if !ok {
		return
	}
	var req RepayRequest
	if !decode(w, r, &req) {
		return
	}
	amount, err := money.Parse(req.Amount)
	if err != nil {
		badRequest(w, "invalid amount")
		return
	}
	repayment, err := h.Service.RepayLoan(r.Context(), org, chi.URLParam(r, "id"), amount, actorID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRepaymentDTO(repayment))
}

func (h *Handler) RescheduleLoan(w http.ResponseWriter, r *http.Request) {
	org, ok := h.requireOrg(w, r)
	if !ok {
		return
	}
	var req RescheduleRequest
	if !decode(w, r, &req) {
		return
	}
	firstDue, err := parseDate(req.FirstDueDate)
	if err != nil {
		badRequest(w, "invalid first_due_date")
		return
	}
	input := lifecycle.RescheduleInput{
		AnnualRate:   req.AnnualRate,
		Installments: req.Installments,
		Frequency:    engine.Frequency(req.Frequency),
		RepeatEvery:  req.RepeatEvery,
		FirstDueDate: firstDue,
	}
	loan, schedule, err := h.Service.RescheduleLoan(r.Context(), org, chi.URLParam(r, "id"), input, actorID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"loan":     toLoanDTO(loan),
		"schedule": toInstallmentDTOs(schedule),
	})
}

// =============================================================================
// SAVINGS
// =============================================================================

func (h *Handler) OpenSavings(w http.ResponseWriter, r *http.Request) {
	org, ok := h.requireOrg(w, r)
	if !ok {
		return
	}
	var req OpenSavingsRequest
	if !decode(w, r, &req) {
		return
	}
	if req.CustomerID == "" {
		badRequest(w, "customer_id is required")
		return
	}
	account, err := h.Service.OpenSavings(r.Context(), org, req.CustomerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSavingsDTO(account))
}

func (h *Handler) ListSavings(w http.ResponseWriter, r *http.Request) {
	org, ok := h.requireOrg(w, r)
	if !ok {
		return
	}
	accounts, err := h.Service.SavingsAccounts(r.Context(), org)
	if err != nil {
		h.writeError(w, err)
		return
	}
	dtos := make([]SavingsDTO, 0, len(accounts))
	for _, a := range accounts {
		dtos = append(dtos, toSavingsDTO(a))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) savingsMove(w http.ResponseWriter, r *http.Request,
	move func(req *http.Request, org, id string, amount money.Money) (lifecycle.SavingsTransaction, error)) {
	org, ok := h.requireOrg(w, r)
	if !ok {
		return
	}
	var req SavingsMoveRequest
	if !decode(w, r, &req) {
		return
	}
	amount, err := money.Parse(req.Amount)
	if err != nil {
		badRequest(w, "invalid amount")
		return
	}
	tx, err := move(r, org, chi.URLParam(r, "id"), amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSavingsTransactionDTO(tx))
}

func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.savingsMove(w, r, func(req *http.Request, org, id string, amount money.Money) (lifecycle.SavingsTransaction, error) {
		return h.Service.Deposit(req.Context(), org, id, amount, actorID(req))
	})
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.savingsMove(w, r, func(req *http.Request, org, id string, amount money.Money) (lifecycle.SavingsTransaction, error) {
		return h.Service.Withdraw(req.Context(), org, id, amount, actorID(req))
	})
}

func (h *Handler) SavingsPassbook(w http.ResponseWriter, r *http.Request) {
	org, ok := h.requireOrg(w, r)
	if !ok {
		return
	}
	txs, err := h.Service.SavingsPassbook(r.Context(), org, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	dtos := make([]SavingsTransactionDTO, 0, len(txs))
	for _, tx := range txs {
		dtos = append(dtos, toSavingsTransactionDTO(tx))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ACCOUNTING
// =============================================================================

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	org, ok := h.requireOrg(w, r)
	if !ok {
		return
	}
	accounts, err := h.Ledger.Accounts(r.Context(), org)
	if err != nil {
		h.writeError(w, err)
		return
	}
	dtos := make([]AccountDTO, 0, len(accounts))
	for _, a := range accounts {
		dtos = append(dtos, toAccountDTO(a))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	org, ok := h.requireOrg(w, r)
	if !ok {
		return
	}
	var req AccountRequest
	if !decode(w, r, &req) {
		return
	}
	accountType := ledger.AccountType(req.Type)
	if !accountType.Valid() {
		badRequest(w, "unknown account type "+req.Type)
		return
	}
	if req.Code == "" || req.Name == "" {
		badRequest(w, "code and name are required")
		return
	}
	account := ledger.Account{
		ID:          uuid.NewString(),
		OrgID:       org,
		Code:        req.Code,
		Name:        req.Name,
		Type:        accountType,
		Balance:     money.Zero,
		Active:      true,
		AllowManual: req.AllowManual,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.Ledger.SaveAccount(r.Context(), account); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountDTO(account))
}

func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	org, ok := h.requireOrg(w, r)
	if !ok {
		return
	}
	rules, err := h.Registry.List(r.Context(), org)
	if err != nil {
		h.writeError(w, err)
		return
	}
	dtos := make([]RuleDTO, 0, len(rules))
	for _, rule := range rules {
		dtos = append(dtos, toRuleDTO(rule))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) UpsertRule(w http.ResponseWriter, r *http.Request) {
	org, ok := h.requireOrg(w, r)
	if !ok {
		return
	}
	var req RuleRequest
	if !decode(w, r, &req) {
		return
	}
	rule := ledger.Rule{
		ID:        uuid.NewString(),
		OrgID:     org,
		EventType: ledger.EventType(req.EventType),
	}
	for _, line := range req.Lines {
		rule.Lines = append(rule.Lines, ledger.RuleLine{
			Side:      ledger.Side(line.Side),
			AccountID: line.AccountID,
			Component: ledger.Component(line.Component),
		})
	}
	if err := h.Registry.Upsert(r.Context(), rule); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRuleDTO(rule))
}

func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	org, ok := h.requireOrg(w, r)
	if !ok {
		return
	}
	filter := ledger.EntryFilter{
		EventType: ledger.EventType(r.URL.Query().Get("event_type")),
		Reference: r.URL.Query().Get("reference"),
	}
	if from := r.URL.Query().Get("from"); from != "" {
		t, err := parseDate(from)
		if err != nil {
			badRequest(w, "invalid from date")
			return
		}
		filter.From = t
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := parseDate(to)
		if err != nil {
			badRequest(w, "invalid to date")
			return
		}
		filter.To = t
	}
	entries, err := h.Ledger.Entries(r.Context(), org, filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	dtos := make([]EntryDTO, 0, len(entries))
	for _, entry := range entries {
		dtos = append(dtos, toEntryDTO(entry))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	org, ok := h.requireOrg(w, r)
	if !ok {
		return
	}
	entry, err := h.Ledger.Entry(r.Context(), org, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(entry))
}

func (h *Handler) PostManualEntry(w http.ResponseWriter, r *http.Request) {
	org, ok := h.requireOrg(w, r)
	if !ok {
		return
	}
	var req ManualEntryRequest
	if !decode(w, r, &req) {
		return
	}
	manual := ledger.ManualEntry{OrgID: org, Memo: req.Memo, ActorID: actorID(r)}
	for _, line := range req.Lines {
		amount, err := money.Parse(line.Amount)
		if err != nil {
			badRequest(w, "invalid line amount "+line.Amount)
			return
		}
		manual.Lines = append(manual.Lines, ledger.ManualLine{
			AccountID: line.AccountID,
			Side:      ledger.Side(line.Side),
			Amount:    amount,
		})
	}
	entry, err := h.Poster.PostManual(r.Context(), manual)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(entry))
}

func (h *Handler) ReverseEntry(w http.ResponseWriter, r *http.Request) {
	org, ok := h.requireOrg(w, r)
	if !ok {
		return
	}
	var req ReverseRequest
	if !decode(w, r, &req) {
		return
	}
	entry, err := h.Poster.Reverse(r.Context(), org, chi.URLParam(r, "id"), actorID(r), req.Memo)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(entry))
}

func (h *Handler) GetTrialBalance(w http.ResponseWriter, r *http.Request) {
	org, ok := h.requireOrg(w, r)
	if !ok {
		return
	}
	report, err := ledger.TrialBalance(r.Context(), h.Ledger, org)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrialBalanceDTO(report))
}

// =============================================================================
// ADMIN
// =============================================================================

func (h *Handler) AssessOverdue(w http.ResponseWriter, r *http.Request) {
	org, ok := h.requireOrg(w, r)
	if !ok {
		return
	}
	var req AssessOverdueRequest
	if r.ContentLength > 0 && !decode(w, r, &req) {
		return
	}
	asOf := time.Now().UTC()
	if req.AsOf != "" {
		t, err := parseDate(req.AsOf)
		if err != nil {
			badRequest(w, "invalid as_of date")
			return
		}
		asOf = t
	}
	summary, err := h.Service.AssessOverdue(r.Context(), org, asOf)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, OverdueSummaryDTO{
		AsOf:              summary.AsOf,
		LoansScanned:      summary.LoansScanned,
		LoansOverdue:      summary.LoansOverdue,
		InstallmentsLate:  summary.InstallmentsLate,
		PenaltiesAssessed: summary.PenaltiesAssessed.StringFixed(),
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
