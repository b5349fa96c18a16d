package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"savings/internal/core"
	"savings/internal/log"
)

type balanceView struct {
	Balance decimal.Decimal `json:"balance"`
}

type breakdownView struct {
	Categories []core.CategoryTotal `json:"categories"`
}

type categoriesView struct {
	Categories []string `json:"categories"`
}

func (s *Server) handleBalance(w http.ResponseWriter, r *request) {
	NewResponse().JSON(balanceView{Balance: r.workspace.Ledger.Balance()}).NotifyAll(r.notes).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *request) {
	year, month, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	NewResponse().JSON(r.workspace.Ledger.MonthlySummary(year, month)).NotifyAll(r.notes).Write(w)
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *request) {
	NewResponse().JSON(breakdownView{Categories: r.workspace.Ledger.CategoryBreakdown()}).NotifyAll(r.notes).Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *request) {
	NewResponse().JSON(categoriesView{Categories: r.workspace.Ledger.Categories()}).NotifyAll(r.notes).Write(w)
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *request) {
	p := NewRequestBodyParser(r.Request)
	if err := p.Parse(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := r.workspace.Ledger.AddCategory(p.Get("name")); err != nil {
		s.fail(w, r, err)
		return
	}
	NewResponse().
		Status(http.StatusCreated).
		JSON(categoriesView{Categories: r.workspace.Ledger.Categories()}).
		Write(w)
}

func (s *Server) handleMarket(w http.ResponseWriter, r *request) {
	snap, err := s.market.Snapshot(r.Context())
	if err != nil {
		s.logger.WarnContext(r.Context(), "Market snapshot failed", log.FieldError, err)
		BadGatewayError("market data unavailable").Write(w)
		return
	}
	NewResponse().JSON(snap).Write(w)
}
