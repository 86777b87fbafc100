/*
publisher.go - Outbound event publishing

PURPOSE:
  Downstream systems (reporting, notifications, the data warehouse) follow
  the lending book by consuming events rather than polling the database.
  The Publisher interface keeps the lifecycle service ignorant of the
  transport; production wires Kafka, tests wire Noop or a recorder.

DELIVERY:
  Publishing happens after the database transaction commits and is
  best-effort: a broker outage must never fail a repayment. Failures are
  logged by the caller, not returned to the borrower.
*/
package events

import (
	"context"
	"time"
)

// =============================================================================
// EVENT MODEL
// =============================================================================

type EventType string

const (
	LoanSubmitted       EventType = "loan.submitted"
	LoanApproved        EventType = "loan.approved"
	LoanRejected        EventType = "loan.rejected"
	LoanDisbursed       EventType = "loan.disbursed"
	LoanRepaid          EventType = "loan.repaid"
	LoanClosed          EventType = "loan.closed"
	LoanOverdue         EventType = "loan.overdue"
	JournalEntryPosted  EventType = "journal_entry.posted"
	SavingsTransaction  EventType = "savings.transaction"
)

// Event is the envelope published to the bus. Payload carries type-specific
// fields; keys are stable snake_case names.
type Event struct {
	Type       EventType      `json:"type"`
	OrgID      string         `json:"org_id"`
	Reference  string         `json:"reference"`
	ActorID    string         `json:"actor_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// =============================================================================
// PUBLISHER
// =============================================================================

type Publisher interface {
	Publish(ctx context.Context, event Event) error

	// Close flushes and releases the transport.
	Close() error
}

// Noop discards every event. Default for tests and single-process setups.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }
