package http

import (
	"context"
	"net/http"

	"spendwise/internal/core"
	"spendwise/internal/log"
)

type expenseRequest struct {
	UserID      int64      `json:"user_id"`
	CategoryID  int64      `json:"category_id"`
	CurrencyID  int64      `json:"currency_id"`
	Amount      core.Money `json:"amount"`
	OccurredAt  Date       `json:"occurred_at"`
	Description string     `json:"description"`
}

// expenseUpdateRequest has no owner field; an expense keeps its user.
type expenseUpdateRequest struct {
	CategoryID  int64      `json:"category_id"`
	CurrencyID  int64      `json:"currency_id"`
	Amount      core.Money `json:"amount"`
	OccurredAt  Date       `json:"occurred_at"`
	Description string     `json:"description"`
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	serve(s, w, r, core.EntityExpense, log.OpList, s.rules.Expenses.List)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	serveByID(s, w, r, "id", core.EntityExpense, log.OpRead, s.rules.Expenses.GetByID)
}

func (s *Server) handleExpensesByUser(w http.ResponseWriter, r *http.Request) {
	serveByID(s, w, r, "userID", core.EntityExpense, log.OpList, s.rules.Expenses.GetByUser)
}

func (s *Server) handleExpensesByCategory(w http.ResponseWriter, r *http.Request) {
	serveByID(s, w, r, "categoryID", core.EntityExpense, log.OpList, s.rules.Expenses.GetByCategory)
}

func (s *Server) handleTotalsByUser(w http.ResponseWriter, r *http.Request) {
	serveByID(s, w, r, "userID", core.EntityExpense, log.OpList, s.rules.Expenses.TotalsByUser)
}

func (s *Server) handleTotalsByCategory(w http.ResponseWriter, r *http.Request) {
	serveByID(s, w, r, "categoryID", core.EntityExpense, log.OpList, s.rules.Expenses.TotalsByCategory)
}

// handleExpensesInRange serves ?start=&end=, both inclusive. A bare end date
// covers the whole day.
func (s *Server) handleExpensesInRange(w http.ResponseWriter, r *http.Request) {
	start, err := requiredQueryDate(r, "start")
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	end, err := requiredQueryDate(r, "end")
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	serve(s, w, r, core.EntityExpense, log.OpList, func(ctx context.Context) ([]core.Expense, error) {
		return s.rules.Expenses.GetByDateRange(ctx, start.Time, end.EndOfDay())
	})
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	serveCreated(s, w, r, core.EntityExpense, func(ctx context.Context) (core.Expense, error) {
		return s.rules.Expenses.Create(ctx, core.Expense{
			UserID:      req.UserID,
			CategoryID:  req.CategoryID,
			CurrencyID:  req.CurrencyID,
			Amount:      req.Amount,
			OccurredAt:  req.OccurredAt.Time,
			Description: sanitizeInput(req.Description),
		})
	})
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	var req expenseUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	s.serveNoContent(w, r, core.EntityExpense, log.OpUpdate, func(ctx context.Context) error {
		return s.rules.Expenses.Update(ctx, id, core.ExpenseUpdate{
			CategoryID:  req.CategoryID,
			CurrencyID:  req.CurrencyID,
			Amount:      req.Amount,
			OccurredAt:  req.OccurredAt.Time,
			Description: sanitizeInput(req.Description),
		})
	})
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, core.EntityExpense, s.rules.Expenses.Delete)
}
