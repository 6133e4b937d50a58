package http

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"spendwise/internal/core"
	"spendwise/internal/log"
)

// userRequest carries a plaintext password that never leaves this layer.
type userRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// hashPassword turns a plaintext password into the opaque hash the rule
// engine stores.
func (s *Server) hashPassword(password string) (string, error) {
	if password == "" {
		return "", core.Invalid("password", "", "must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", core.Invalid("password", "<redacted>", "must be at most 72 bytes")
	}
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	serve(s, w, r, core.EntityUser, log.OpList, s.rules.Users.List)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	serveByID(s, w, r, "id", core.EntityUser, log.OpRead, s.rules.Users.GetByID)
}

func (s *Server) handleGetUserByEmail(w http.ResponseWriter, r *http.Request) {
	email, err := pathString(r, "email")
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	serve(s, w, r, core.EntityUser, log.OpRead, func(ctx context.Context) (core.User, error) {
		return s.rules.Users.GetByEmail(ctx, email)
	})
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	hash, err := s.hashPassword(req.Password)
	if err != nil {
		s.observe(core.EntityUser, log.OpCreate, err)
		writeError(w, r, log.OpCreate, err)
		return
	}

	serveCreated(s, w, r, core.EntityUser, func(ctx context.Context) (core.User, error) {
		return s.rules.Users.Create(ctx, core.User{
			Name:         sanitizeInput(req.Name),
			Email:        sanitizeInput(req.Email),
			PasswordHash: hash,
		})
	})
}

// handleUpdateUser replaces name and email; an omitted or empty password
// keeps the stored hash.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	var req userRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}

	update := core.UserUpdate{Name: sanitizeInput(req.Name), Email: sanitizeInput(req.Email)}
	if req.Password != "" {
		hash, err := s.hashPassword(req.Password)
		if err != nil {
			s.observe(core.EntityUser, log.OpUpdate, err)
			writeError(w, r, log.OpUpdate, err)
			return
		}
		update.PasswordHash = &hash
	}

	s.serveNoContent(w, r, core.EntityUser, log.OpUpdate, func(ctx context.Context) error {
		return s.rules.Users.Update(ctx, id, update)
	})
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, core.EntityUser, s.rules.Users.Delete)
}
