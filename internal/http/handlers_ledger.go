package http

import (
	"net/http"

	"budget/internal/log"
	"budget/internal/services"
)

// writeSession answers a successful month write and drops the cached copy.
func (s *Server) writeSession(w http.ResponseWriter, status int, session services.Session) {
	s.invalidate(session.Key)
	NewResponse().Status(status).Data(session).Write(w)
}

func (s *Server) handleAddRow(w http.ResponseWriter, r *http.Request) {
	ledger, err := pathLedger(r)
	if err != nil {
		NotFoundError(err.Error()).Write(w)
		return
	}
	raw, err := NewRequestBodyParser(w, r).Object()
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	session, err := s.budget.AddRow(r.Context(), r.PathValue("key"), ledger, raw)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	s.writeSession(w, http.StatusCreated, session)
}

func (s *Server) handleUpdateRow(w http.ResponseWriter, r *http.Request) {
	ledger, err := pathLedger(r)
	if err != nil {
		NotFoundError(err.Error()).Write(w)
		return
	}
	index, err := pathIndex(r)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	raw, err := NewRequestBodyParser(w, r).Object()
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	session, err := s.budget.UpdateRow(r.Context(), r.PathValue("key"), ledger, index, raw)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	s.writeSession(w, http.StatusOK, session)
}

func (s *Server) handleDeleteRow(w http.ResponseWriter, r *http.Request) {
	ledger, err := pathLedger(r)
	if err != nil {
		NotFoundError(err.Error()).Write(w)
		return
	}
	index, err := pathIndex(r)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	session, err := s.budget.DeleteRow(r.Context(), r.PathValue("key"), ledger, index)
	if err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	s.writeSession(w, http.StatusOK, session)
}

func (s *Server) handleTogglePaid(w http.ResponseWriter, r *http.Request) {
	ledger, err := pathLedger(r)
	if err != nil {
		NotFoundError(err.Error()).Write(w)
		return
	}
	index, err := pathIndex(r)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	session, err := s.budget.TogglePaid(r.Context(), r.PathValue("key"), ledger, index)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	s.writeSession(w, http.StatusOK, session)
}

// handleSetCell stores the expression typed into a weekly cell. The body
// carries "expression", with or without the leading "=".
func (s *Server) handleSetCell(w http.ResponseWriter, r *http.Request) {
	week, err := pathWeek(r)
	if err != nil {
		NotFoundError(err.Error()).Write(w)
		return
	}
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	session, err := s.budget.SetCellExpression(r.Context(), r.PathValue("key"), week, r.PathValue("category"), p.Get("expression"))
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	s.writeSession(w, http.StatusOK, session)
}

// handleSetPaymentsDue stores user-edited payments-due text. Empty text
// returns the week to generated text on the next recompute.
func (s *Server) handleSetPaymentsDue(w http.ResponseWriter, r *http.Request) {
	week, err := pathWeek(r)
	if err != nil {
		NotFoundError(err.Error()).Write(w)
		return
	}
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	session, err := s.budget.SetPaymentsDue(r.Context(), r.PathValue("key"), week, p.Get("text"))
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	s.writeSession(w, http.StatusOK, session)
}
