package http

import (
	"context"
	"net/http"

	"spendwise/internal/core"
	"spendwise/internal/log"
)

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	serve(s, w, r, core.EntityCategory, log.OpList, s.rules.Categories.List)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	serveByID(s, w, r, "id", core.EntityCategory, log.OpRead, s.rules.Categories.GetByID)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	serveCreated(s, w, r, core.EntityCategory, func(ctx context.Context) (core.Category, error) {
		return s.rules.Categories.Create(ctx, core.Category{
			Name:        sanitizeInput(req.Name),
			Description: sanitizeInput(req.Description),
		})
	})
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	s.serveNoContent(w, r, core.EntityCategory, log.OpUpdate, func(ctx context.Context) error {
		return s.rules.Categories.Update(ctx, id, core.CategoryUpdate{
			Name:        sanitizeInput(req.Name),
			Description: sanitizeInput(req.Description),
		})
	})
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, core.EntityCategory, s.rules.Categories.Delete)
}
