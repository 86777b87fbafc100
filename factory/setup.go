/*
Package factory provides JSON to Go configuration conversion.

PURPOSE:
  Converts JSON organization setups into chart-of-accounts entries,
  accounting rules, and loan products. This enables configuration without
  code changes - an operations team defines the org's accounting in JSON,
  and the factory creates the proper Go structs and resolves account
  references.

JSON SCHEMA:
  {
    "org_id": "mfi-demo",
    "accounts": [
      {"code": "1010", "name": "Cash", "type": "ASSET", "allow_manual": true},
      {"code": "1200", "name": "Loans Receivable", "type": "ASSET"}
    ],
    "rules": [
      {
        "event_type": "LOAN_REPAYMENT",
        "lines": [
          {"side": "DEBIT", "account_code": "1010", "component": "TOTAL"},
          {"side": "CREDIT", "account_code": "1200", "component": "PRINCIPAL"}
        ]
      }
    ],
    "products": [
      {
        "id": "micro-basic",
        "name": "Micro Loan",
        "interest_method": "FLAT",
        "annual_rate": "0.24",
        "frequency": "MONTHLY",
        "repeat_every": 1,
        "installments": 12,
        "penalty": {"type": "PERCENTAGE_OF_AMOUNT", "annual_rate": "0.10"}
      }
    ]
  }

KEY FEATURES:
  - Rule lines reference accounts by chart code, resolved to IDs on apply
  - Validates rules before saving
  - Products carry the terms template a loan is submitted against

SEE ALSO:
  - ledger/rule.go: Rule validation
  - api/seed.go: Demo setups built on this factory
*/
package factory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian/lending-engine/engine"
	"github.com/meridian/lending-engine/ledger"
	"github.com/meridian/lending-engine/money"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// SetupJSON is the JSON representation of one organization's configuration.
type SetupJSON struct {
	OrgID    string        `json:"org_id"`
	Accounts []AccountJSON `json:"accounts"`
	Rules    []RuleJSON    `json:"rules"`
	Products []ProductJSON `json:"products,omitempty"`
}

// AccountJSON declares one chart-of-accounts entry.
type AccountJSON struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	AllowManual bool   `json:"allow_manual,omitempty"`
}

// RuleJSON declares one accounting rule, lines referencing accounts by code.
type RuleJSON struct {
	EventType string         `json:"event_type"`
	Lines     []RuleLineJSON `json:"lines"`
}

type RuleLineJSON struct {
	Side        string `json:"side"`
	AccountCode string `json:"account_code"`
	Component   string `json:"component"`
}

// ProductJSON declares a loan product: the terms template an application
// is opened against.
type ProductJSON struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	InterestMethod string       `json:"interest_method"`
	AnnualRate     string       `json:"annual_rate"`
	Frequency      string       `json:"frequency"`
	RepeatEvery    int          `json:"repeat_every,omitempty"`
	Installments   int          `json:"installments"`
	PrincipalGrace int          `json:"principal_grace,omitempty"`
	InterestGrace  int          `json:"interest_grace,omitempty"`
	Penalty        *PenaltyJSON `json:"penalty,omitempty"`
}

type PenaltyJSON struct {
	Type       string `json:"type"`
	FlatAmount string `json:"flat_amount,omitempty"`
	AnnualRate string `json:"annual_rate,omitempty"`
}

// =============================================================================
// PRODUCT
// =============================================================================

// Product is a parsed loan product ready to stamp out terms.
type Product struct {
	ID             string
	OrgID          string
	Name           string
	Method         engine.InterestMethod
	AnnualRate     decimal.Decimal
	Frequency      engine.Frequency
	RepeatEvery    int
	Installments   int
	PrincipalGrace int
	InterestGrace  int
	Penalty        engine.PenaltyPolicy
}

// Terms builds the frozen terms for one loan under this product.
func (p Product) Terms(principal money.Money, firstDueDate time.Time) engine.LoanTerms {
	return engine.LoanTerms{
		Principal:      principal,
		AnnualRate:     p.AnnualRate,
		Method:         p.Method,
		Frequency:      p.Frequency,
		RepeatEvery:    p.RepeatEvery,
		Installments:   p.Installments,
		FirstDueDate:   firstDueDate,
		PrincipalGrace: p.PrincipalGrace,
		InterestGrace:  p.InterestGrace,
	}
}

// =============================================================================
// SETUP FACTORY
// =============================================================================

// SetupFactory converts JSON setups into live configuration.
type SetupFactory struct{}

func NewSetupFactory() *SetupFactory {
	return &SetupFactory{}
}

// Parse decodes a setup document.
func (f *SetupFactory) Parse(jsonStr string) (SetupJSON, error) {
	var setup SetupJSON
	if err := json.Unmarshal([]byte(jsonStr), &setup); err != nil {
		return SetupJSON{}, fmt.Errorf("failed to parse setup JSON: %w", err)
	}
	if setup.OrgID == "" {
		return SetupJSON{}, fmt.Errorf("setup missing org_id")
	}
	return setup, nil
}

// Apply creates the accounts, saves the rules with account codes resolved
// to IDs, and returns the parsed products. Safe to re-run: accounts are
// matched by code, rules replaced per event type.
func (f *SetupFactory) Apply(ctx context.Context, setup SetupJSON, store ledger.Store, registry *ledger.RuleRegistry) ([]Product, error) {
	codeToID := make(map[string]string, len(setup.Accounts))

	for _, aj := range setup.Accounts {
		accountType := ledger.AccountType(aj.Type)
		if !accountType.Valid() {
			return nil, fmt.Errorf("account %s: unknown type %q", aj.Code, aj.Type)
		}

		// Re-applying a setup keeps existing accounts and their balances.
		if existing, err := store.AccountByCode(ctx, setup.OrgID, aj.Code); err == nil {
			codeToID[aj.Code] = existing.ID
			continue
		}

		account := ledger.Account{
			ID:          uuid.NewString(),
			OrgID:       setup.OrgID,
			Code:        aj.Code,
			Name:        aj.Name,
			Type:        accountType,
			Balance:     money.Zero,
			Active:      true,
			AllowManual: aj.AllowManual,
			CreatedAt:   time.Now().UTC(),
		}
		if err := store.SaveAccount(ctx, account); err != nil {
			return nil, err
		}
		codeToID[aj.Code] = account.ID
	}

	for _, rj := range setup.Rules {
		lines := make([]ledger.RuleLine, 0, len(rj.Lines))
		for _, lj := range rj.Lines {
			accountID, ok := codeToID[lj.AccountCode]
			if !ok {
				return nil, fmt.Errorf("rule %s: line references unknown account code %q", rj.EventType, lj.AccountCode)
			}
			lines = append(lines, ledger.RuleLine{
				Side:      ledger.Side(lj.Side),
				AccountID: accountID,
				Component: ledger.Component(lj.Component),
			})
		}
		rule := ledger.Rule{
			ID:        uuid.NewString(),
			OrgID:     setup.OrgID,
			EventType: ledger.EventType(rj.EventType),
			Lines:     lines,
		}
		if err := registry.Upsert(ctx, rule); err != nil {
			return nil, fmt.Errorf("rule %s: %w", rj.EventType, err)
		}
	}

	products := make([]Product, 0, len(setup.Products))
	for _, pj := range setup.Products {
		product, err := f.parseProduct(setup.OrgID, pj)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, nil
}

func (f *SetupFactory) parseProduct(orgID string, pj ProductJSON) (Product, error) {
	rate, err := decimal.NewFromString(pj.AnnualRate)
	if err != nil {
		return Product{}, fmt.Errorf("product %s: bad annual_rate %q", pj.ID, pj.AnnualRate)
	}

	method := engine.InterestMethod(pj.InterestMethod)
	if !method.Valid() {
		return Product{}, fmt.Errorf("product %s: unknown interest_method %q", pj.ID, pj.InterestMethod)
	}
	frequency := engine.Frequency(pj.Frequency)
	if !frequency.Valid() {
		return Product{}, fmt.Errorf("product %s: unknown frequency %q", pj.ID, pj.Frequency)
	}

	every := pj.RepeatEvery
	if every < 1 {
		every = 1
	}

	product := Product{
		ID:             pj.ID,
		OrgID:          orgID,
		Name:           pj.Name,
		Method:         method,
		AnnualRate:     rate,
		Frequency:      frequency,
		RepeatEvery:    every,
		Installments:   pj.Installments,
		PrincipalGrace: pj.PrincipalGrace,
		InterestGrace:  pj.InterestGrace,
	}

	if pj.Penalty != nil {
		policy := engine.PenaltyPolicy{Type: engine.PenaltyPolicyType(pj.Penalty.Type)}
		switch policy.Type {
		case engine.PenaltyFlatFee:
			amount, err := money.Parse(pj.Penalty.FlatAmount)
			if err != nil {
				return Product{}, fmt.Errorf("product %s: bad penalty flat_amount %q", pj.ID, pj.Penalty.FlatAmount)
			}
			policy.FlatAmount = amount
		case engine.PenaltyPercentageOfAmount:
			prate, err := decimal.NewFromString(pj.Penalty.AnnualRate)
			if err != nil {
				return Product{}, fmt.Errorf("product %s: bad penalty annual_rate %q", pj.ID, pj.Penalty.AnnualRate)
			}
			policy.AnnualRate = prate
		default:
			return Product{}, fmt.Errorf("product %s: unknown penalty type %q", pj.ID, pj.Penalty.Type)
		}
		product.Penalty = policy
	}
	return product, nil
}
