/*
registry.go - Rule registry

PURPOSE:
  Org-scoped lookup and management of accounting rules. The registry
  validates rules on the way in so the poster can trust the shape of
  whatever it loads.
*/
package ledger

import "context"

type RuleRegistry struct {
	store RuleStore
}

func NewRuleRegistry(store RuleStore) *RuleRegistry {
	return &RuleRegistry{store: store}
}

// Get returns the org's rule for an event type.
func (r *RuleRegistry) Get(ctx context.Context, orgID string, event EventType) (Rule, error) {
	return r.store.Rule(ctx, orgID, event)
}

// Upsert validates and saves a rule, replacing any existing rule for the
// same org and event type.
func (r *RuleRegistry) Upsert(ctx context.Context, rule Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	return r.store.SaveRule(ctx, rule)
}

// List returns all rules configured for the org.
func (r *RuleRegistry) List(ctx context.Context, orgID string) ([]Rule, error) {
	return r.store.Rules(ctx, orgID)
}
