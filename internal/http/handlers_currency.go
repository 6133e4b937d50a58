package http

import (
	"context"
	"net/http"

	"spendwise/internal/core"
	"spendwise/internal/log"
)

type currencyRequest struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

func (s *Server) handleListCurrencies(w http.ResponseWriter, r *http.Request) {
	serve(s, w, r, core.EntityCurrency, log.OpList, s.rules.Currencies.List)
}

func (s *Server) handleGetCurrency(w http.ResponseWriter, r *http.Request) {
	serveByID(s, w, r, "id", core.EntityCurrency, log.OpRead, s.rules.Currencies.GetByID)
}

func (s *Server) handleGetCurrencyByCode(w http.ResponseWriter, r *http.Request) {
	code, err := pathString(r, "code")
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	serve(s, w, r, core.EntityCurrency, log.OpRead, func(ctx context.Context) (core.Currency, error) {
		return s.rules.Currencies.GetByCode(ctx, code)
	})
}

func (s *Server) handleCreateCurrency(w http.ResponseWriter, r *http.Request) {
	var req currencyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	serveCreated(s, w, r, core.EntityCurrency, func(ctx context.Context) (core.Currency, error) {
		return s.rules.Currencies.Create(ctx, core.Currency{
			Code:   req.Code,
			Name:   sanitizeInput(req.Name),
			Symbol: sanitizeInput(req.Symbol),
		})
	})
}

func (s *Server) handleUpdateCurrency(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	var req currencyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	s.serveNoContent(w, r, core.EntityCurrency, log.OpUpdate, func(ctx context.Context) error {
		return s.rules.Currencies.Update(ctx, id, core.CurrencyUpdate{
			Code:   req.Code,
			Name:   sanitizeInput(req.Name),
			Symbol: sanitizeInput(req.Symbol),
		})
	})
}

func (s *Server) handleDeleteCurrency(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, core.EntityCurrency, s.rules.Currencies.Delete)
}
