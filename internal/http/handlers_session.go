package http

import (
	"errors"
	"net/http"

	"savings/internal/ledger"
	"savings/internal/log"
	"savings/internal/session"
)

type loginResponse struct {
	Token   string          `json:"token"`
	Session session.Session `json:"session"`
	State   ledger.State    `json:"state"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	credential := p.Get("access_token")
	if credential == "" {
		UnprocessableEntityError("access_token is required").Write(w)
		return
	}
	verified, err := s.verifier.Verify(r.Context(), credential)
	if err != nil {
		s.logger.WarnContext(r.Context(), "Sign in rejected", log.FieldOperation, log.OpLogin, log.FieldError, err)
		UnauthorizedError("invalid access token").Write(w)
		return
	}
	userID := verified.UserID

	notes := &ledger.Recorder{}
	ctx := ledger.ContextWithNotifier(r.Context(), notes)
	sess, ws, err := s.workspaces.signIn(ctx, verified)
	if err != nil {
		s.logger.ErrorContext(ctx, "Sign in failed", log.FieldUserID, userID, log.FieldError, err)
		InternalServerError("could not create session").Write(w)
		return
	}
	s.metrics.logins.Add(1)
	s.logger.InfoContext(ctx, "User signed in",
		log.FieldUserID, userID,
		log.FieldOperation, log.OpLogin,
		log.FieldCount, len(ws.Ledger.Transactions()))

	NewResponse().
		Status(http.StatusCreated).
		JSON(loginResponse{Token: sess.Token, Session: sess, State: ws.Ledger.State()}).
		NotifyAll(notes).
		Write(w)
}

func (s *Server) handleSession(w http.ResponseWriter, r *request) {
	NewResponse().JSON(r.session).Write(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *request) {
	err := s.workspaces.signOut(r.Context(), r.session.Token)
	if err != nil && !errors.Is(err, session.ErrSessionNotFound) {
		s.logger.ErrorContext(r.Context(), "Sign out failed", log.FieldUserID, r.session.UserID, log.FieldError, err)
		InternalServerError("could not end session").Write(w)
		return
	}
	s.logger.InfoContext(r.Context(), "User signed out",
		log.FieldUserID, r.session.UserID,
		log.FieldOperation, log.OpLogout)
	NewResponse().Status(http.StatusNoContent).Write(w)
}
