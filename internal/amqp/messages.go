package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"spendwise/internal/core"
)

// RoutingKey is the routing key of expense change events.
const RoutingKey = "expense.changed"

// ExpenseEvent carries a committed expense change. The full row is
// included so that consumers can act on deletions as well.
type ExpenseEvent struct {
	Kind        core.ChangeKind `json:"kind"`
	ExpenseID   int64           `json:"expense_id"`
	UserID      int64           `json:"user_id"`
	CategoryID  int64           `json:"category_id"`
	CurrencyID  int64           `json:"currency_id"`
	Amount      core.Money      `json:"amount"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Description string          `json:"description"`
	Previous    *PriorExpense   `json:"previous,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

// PriorExpense is the part of an updated row that decides which budgets it
// counted against before the update.
type PriorExpense struct {
	CategoryID int64      `json:"category_id"`
	CurrencyID int64      `json:"currency_id"`
	Amount     core.Money `json:"amount"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// NewExpenseEvent builds the event for change.
func NewExpenseEvent(change core.ExpenseChange) *ExpenseEvent {
	ts := change.At
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	e := change.Expense
	event := &ExpenseEvent{
		Kind:        change.Kind,
		ExpenseID:   e.ID,
		UserID:      e.UserID,
		CategoryID:  e.CategoryID,
		CurrencyID:  e.CurrencyID,
		Amount:      e.Amount,
		OccurredAt:  e.OccurredAt,
		Description: e.Description,
		Timestamp:   ts,
	}
	if p := change.Previous; p != nil {
		event.Previous = &PriorExpense{
			CategoryID: p.CategoryID,
			CurrencyID: p.CurrencyID,
			Amount:     p.Amount,
			OccurredAt: p.OccurredAt,
		}
	}
	return event
}

// Change converts the event back to the domain change it describes.
func (m *ExpenseEvent) Change() core.ExpenseChange {
	change := core.ExpenseChange{
		Kind: m.Kind,
		Expense: core.Expense{
			ID:          m.ExpenseID,
			UserID:      m.UserID,
			CategoryID:  m.CategoryID,
			CurrencyID:  m.CurrencyID,
			Amount:      m.Amount,
			OccurredAt:  m.OccurredAt,
			Description: m.Description,
		},
		At: m.Timestamp,
	}
	if p := m.Previous; p != nil {
		change.Previous = &core.Expense{
			ID:         m.ExpenseID,
			UserID:     m.UserID,
			CategoryID: p.CategoryID,
			CurrencyID: p.CurrencyID,
			Amount:     p.Amount,
			OccurredAt: p.OccurredAt,
		}
	}
	return change
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventFromJSON decodes and checks a message body.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Kind {
	case core.ChangeCreated, core.ChangeUpdated, core.ChangeDeleted:
	default:
		return nil, fmt.Errorf("unknown change kind %q", msg.Kind)
	}
	if msg.ExpenseID <= 0 {
		return nil, fmt.Errorf("invalid expense id %d", msg.ExpenseID)
	}
	return &msg, nil
}
