package http

import (
	"net/http"

	"savings/internal/core"
	"savings/internal/ledger"
)

type transactionsView struct {
	Transactions []core.Transaction `json:"transactions"`
	State        ledger.State       `json:"state"`
	Loading      bool               `json:"loading"`
}

func ledgerView(l *ledger.Ledger, query string) transactionsView {
	return transactionsView{
		Transactions: l.Search(query),
		State:        l.State(),
		Loading:      l.Loading(),
	}
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *request) {
	NewResponse().
		JSON(ledgerView(r.workspace.Ledger, r.URL.Query().Get("q"))).
		NotifyAll(r.notes).
		Write(w)
}

func (s *Server) handleReload(w http.ResponseWriter, r *request) {
	if err := r.workspace.Ledger.Load(r.Context(), r.session.UserID); err != nil {
		s.fail(w, r, err)
		return
	}
	r.workspace.syncBoard()
	NewResponse().
		JSON(ledgerView(r.workspace.Ledger, "")).
		TriggerLedgerChanged().
		NotifyAll(r.notes).
		Write(w)
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *request) {
	p := NewRequestBodyParser(r.Request)
	if err := p.Parse(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	t, err := parseTransaction(p)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	created, err := r.workspace.Ledger.Add(r.Context(), t)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	r.workspace.syncBoard()
	s.metrics.added.Add(1)

	NewResponse().
		Status(http.StatusCreated).
		JSON(created).
		TriggerLedgerChanged().
		NotifyAll(r.notes).
		Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *request) {
	p := NewRequestBodyParser(r.Request)
	if err := p.Parse(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	patch, err := parsePatch(p)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	updated, err := r.workspace.Ledger.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	r.workspace.syncBoard()
	s.metrics.updated.Add(1)

	NewResponse().
		JSON(updated).
		TriggerLedgerChanged().
		NotifyAll(r.notes).
		Write(w)
}

func (s *Server) handleRemoveTransaction(w http.ResponseWriter, r *request) {
	if err := r.workspace.Ledger.Remove(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	r.workspace.syncBoard()
	s.metrics.removed.Add(1)

	NewResponse().
		Status(http.StatusNoContent).
		TriggerLedgerChanged().
		NotifyAll(r.notes).
		Write(w)
}
