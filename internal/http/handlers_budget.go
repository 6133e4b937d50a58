package http

import (
	"context"
	"net/http"

	"spendwise/internal/core"
	"spendwise/internal/log"
)

type budgetRequest struct {
	UserID     int64      `json:"user_id"`
	CategoryID int64      `json:"category_id"`
	CurrencyID int64      `json:"currency_id"`
	Limit      core.Money `json:"limit"`
	StartDate  Date       `json:"start_date"`
	EndDate    Date       `json:"end_date"`
}

type budgetUpdateRequest struct {
	CategoryID int64      `json:"category_id"`
	CurrencyID int64      `json:"currency_id"`
	Limit      core.Money `json:"limit"`
	StartDate  Date       `json:"start_date"`
	EndDate    Date       `json:"end_date"`
}

type overLimitResponse struct {
	BudgetID  int64 `json:"budget_id"`
	OverLimit bool  `json:"over_limit"`
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	serve(s, w, r, core.EntityBudget, log.OpList, s.rules.Budgets.List)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	serveByID(s, w, r, "id", core.EntityBudget, log.OpRead, s.rules.Budgets.GetByID)
}

func (s *Server) handleBudgetsByUser(w http.ResponseWriter, r *http.Request) {
	serveByID(s, w, r, "userID", core.EntityBudget, log.OpList, s.rules.Budgets.GetByUser)
}

func (s *Server) handleBudgetsByCategory(w http.ResponseWriter, r *http.Request) {
	serveByID(s, w, r, "categoryID", core.EntityBudget, log.OpList, s.rules.Budgets.GetByCategory)
}

// handleActiveBudgets serves budgets active at ?at=, or now when omitted.
func (s *Server) handleActiveBudgets(w http.ResponseWriter, r *http.Request) {
	at, ok, err := queryDate(r, "at")
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	serve(s, w, r, core.EntityBudget, log.OpList, func(ctx context.Context) ([]core.Budget, error) {
		if !ok {
			return s.rules.Budgets.GetActive(ctx)
		}
		return s.rules.Budgets.GetActiveAt(ctx, at.Time)
	})
}

func (s *Server) handleBudgetUsage(w http.ResponseWriter, r *http.Request) {
	serveByID(s, w, r, "id", core.EntityBudget, log.OpEvaluate, s.rules.Budgets.Usage)
}

func (s *Server) handleBudgetOverLimit(w http.ResponseWriter, r *http.Request) {
	serveByID(s, w, r, "id", core.EntityBudget, log.OpEvaluate, func(ctx context.Context, id int64) (overLimitResponse, error) {
		over, err := s.rules.Budgets.IsOverLimit(ctx, id)
		return overLimitResponse{BudgetID: id, OverLimit: over}, err
	})
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	serveCreated(s, w, r, core.EntityBudget, func(ctx context.Context) (core.Budget, error) {
		return s.rules.Budgets.Create(ctx, core.Budget{
			UserID:     req.UserID,
			CategoryID: req.CategoryID,
			CurrencyID: req.CurrencyID,
			Limit:      req.Limit,
			StartDate:  req.StartDate.Time,
			EndDate:    req.EndDate.EndOfDay(),
		})
	})
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	var req budgetUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	s.serveNoContent(w, r, core.EntityBudget, log.OpUpdate, func(ctx context.Context) error {
		return s.rules.Budgets.Update(ctx, id, core.BudgetUpdate{
			CategoryID: req.CategoryID,
			CurrencyID: req.CurrencyID,
			Limit:      req.Limit,
			StartDate:  req.StartDate.Time,
			EndDate:    req.EndDate.EndOfDay(),
		})
	})
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, core.EntityBudget, s.rules.Budgets.Delete)
}
