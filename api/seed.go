/*
seed.go - Bundled demo organization

PURPOSE:
  A ready-made setup document so a fresh server can be exercised without
  writing a chart of accounts by hand. Loaded via POST /api/admin/seed.

SEE ALSO:
  - factory/setup.go: The document format
*/
package api

const demoSetupJSON = `{
  "org_id": "mfi-demo",
  "accounts": [
    {"code": "1010", "name": "Cash on Hand", "type": "ASSET", "allow_manual": true},
    {"code": "1200", "name": "Loans Receivable", "type": "ASSET"},
    {"code": "2100", "name": "Customer Deposits", "type": "LIABILITY"},
    {"code": "3010", "name": "Owner Equity", "type": "EQUITY", "allow_manual": true},
    {"code": "4010", "name": "Interest Income", "type": "INCOME"},
    {"code": "4020", "name": "Fee Income", "type": "INCOME"},
    {"code": "4030", "name": "Penalty Income", "type": "INCOME"},
    {"code": "5010", "name": "Operating Expenses", "type": "EXPENSE", "allow_manual": true}
  ],
  "rules": [
    {
      "event_type": "LOAN_DISBURSEMENT",
      "lines": [
        {"side": "DEBIT", "account_code": "1200", "component": "PRINCIPAL"},
        {"side": "CREDIT", "account_code": "1010", "component": "PRINCIPAL"}
      ]
    },
    {
      "event_type": "LOAN_REPAYMENT",
      "lines": [
        {"side": "DEBIT", "account_code": "1010", "component": "TOTAL"},
        {"side": "CREDIT", "account_code": "1200", "component": "PRINCIPAL"},
        {"side": "CREDIT", "account_code": "4010", "component": "INTEREST"},
        {"side": "CREDIT", "account_code": "4020", "component": "FEE"},
        {"side": "CREDIT", "account_code": "4030", "component": "PENALTY"}
      ]
    },
    {
      "event_type": "SAVINGS_DEPOSIT",
      "lines": [
        {"side": "DEBIT", "account_code": "1010", "component": "TOTAL"},
        {"side": "CREDIT", "account_code": "2100", "component": "TOTAL"}
      ]
    },
    {
      "event_type": "SAVINGS_WITHDRAWAL",
      "lines": [
        {"side": "DEBIT", "account_code": "2100", "component": "TOTAL"},
        {"side": "CREDIT", "account_code": "1010", "component": "TOTAL"}
      ]
    }
  ],
  "products": [
    {
      "id": "micro-flat",
      "name": "Micro Loan (Flat)",
      "interest_method": "FLAT",
      "annual_rate": "0.24",
      "frequency": "MONTHLY",
      "installments": 12,
      "penalty": {"type": "PERCENTAGE_OF_AMOUNT", "annual_rate": "0.10"}
    },
    {
      "id": "sme-declining",
      "name": "SME Loan (Declining Balance)",
      "interest_method": "DECLINING_BALANCE_EQUAL_INSTALLMENT",
      "annual_rate": "0.18",
      "frequency": "MONTHLY",
      "installments": 24,
      "penalty": {"type": "FLAT_FEE", "flat_amount": "5.00"}
    },
    {
      "id": "agri-seasonal",
      "name": "Agricultural Loan (Seasonal)",
      "interest_method": "DECLINING_BALANCE_EQUAL_PRINCIPAL",
      "annual_rate": "0.15",
      "frequency": "QUARTERLY",
      "installments": 4,
      "principal_grace": 1
    }
  ]
}`
