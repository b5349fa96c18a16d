package http

import (
	"fmt"
	"net/http"
	"strconv"

	"savings/internal/board"
	"savings/internal/ledger"
)

type boardView struct {
	Columns []board.ColumnView `json:"columns"`
}

type moveView struct {
	Move    board.Move         `json:"move"`
	Columns []board.ColumnView `json:"columns"`
}

func (s *Server) handleBoard(w http.ResponseWriter, r *request) {
	r.workspace.syncBoard()
	NewResponse().JSON(boardView{Columns: r.workspace.Board.Columns()}).NotifyAll(r.notes).Write(w)
}

func (s *Server) handleBoardMove(w http.ResponseWriter, r *request) {
	p := NewRequestBodyParser(r.Request)
	if err := p.Parse(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	to, err := board.ParseColumn(p.Get("column"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	index := 0
	if v := p.Get("index"); v != "" {
		if index, err = strconv.Atoi(v); err != nil {
			UnprocessableEntityError("index must be an integer").Write(w)
			return
		}
	}

	r.workspace.syncBoard()
	m, err := r.workspace.Board.Move(p.Get("id"), to, index)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if m.Changed() {
		r.notes.Notify(r.Context(), ledger.Notification{
			Kind:    ledger.KindSuccess,
			Title:   "Bill status updated",
			Message: fmt.Sprintf("%q moved to %q", m.Card.Description, m.To.Name()),
		})
	}
	NewResponse().
		JSON(moveView{Move: m, Columns: r.workspace.Board.Columns()}).
		NotifyAll(r.notes).
		Write(w)
}
