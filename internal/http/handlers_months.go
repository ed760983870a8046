package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"

	"budget/internal/core"
	"budget/internal/log"
)

func (s *Server) handleListMonths(w http.ResponseWriter, r *http.Request) {
	months, err := s.budget.ListMonths(r.Context())
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	NewResponse().Data(months).Write(w)
}

// handleCreateMonth starts an empty month. Year and month default to today.
func (s *Server) handleCreateMonth(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	params, err := ParseMonthParams(p.Get, time.Now())
	if err != nil {
		s.fail(w, r, log.OpValidate, err)
		return
	}

	session, err := s.budget.CreateMonth(r.Context(), params.Year, params.Month)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	s.invalidate(session.Key)
	NewResponse().Status(http.StatusCreated).
		Header("Location", "/api/months/"+session.Key).
		Data(session).
		Write(w)
}

func (s *Server) handleGetMonth(w http.ResponseWriter, r *http.Request) {
	session, err := s.session(r.Context(), r.PathValue("key"))
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewResponse().Data(session).Write(w)
}

func (s *Server) handleDeleteMonth(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if err := s.budget.DeleteMonth(r.Context(), key); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	s.invalidate(key)
	NewResponse().Data(map[string]string{"key": key}).Write(w)
}

// handleCopyMonth creates the month named in the body from the planning
// ledgers of {key}.
func (s *Server) handleCopyMonth(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	year, err := p.GetInt("year", 0)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	month, err := p.GetInt("month", 0)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	if target := p.Get("target"); target != "" {
		if year, month, err = core.ParseMonthKey(target); err != nil {
			UnprocessableEntityError(err.Error()).Write(w)
			return
		}
	}

	session, err := s.budget.CopyFromMonth(r.Context(), r.PathValue("key"), year, month)
	if err != nil {
		s.fail(w, r, log.OpCopy, err)
		return
	}
	s.invalidate(session.Key)
	NewResponse().Status(http.StatusCreated).
		Header("Location", "/api/months/"+session.Key).
		Data(session).
		Write(w)
}

// handleRecompute re-derives the month. With force, user-edited
// payments-due text is regenerated too.
func (s *Server) handleRecompute(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	force := p.GetBool("force")
	if q := r.URL.Query().Get("force"); q != "" {
		force, _ = strconv.ParseBool(q)
	}

	key := r.PathValue("key")
	session, err := s.budget.Recompute(r.Context(), key, force)
	if err != nil {
		s.fail(w, r, log.OpRecompute, err)
		return
	}
	s.invalidate(key)
	NewResponse().Data(session).Write(w)
}

// handleImport saves a month from a legacy JSON document.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	overwrite, _ := strconv.ParseBool(r.URL.Query().Get("overwrite"))

	session, err := s.budget.ImportLegacy(r.Context(), p.GetRaw(), overwrite)
	if err != nil {
		s.fail(w, r, log.OpImport, err)
		return
	}
	s.invalidate(session.Key)
	NewResponse().Status(http.StatusCreated).Data(session).Write(w)
}

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	doc, err := s.budget.ExportLegacy(r.Context(), key)
	if err != nil {
		s.fail(w, r, log.OpExport, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="budget-%s.json"`, key))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// weeklyCSVRow is one week and category of the weekly breakdown.
type weeklyCSVRow struct {
	Week        int    `csv:"week"`
	Dates       string `csv:"dates"`
	Category    string `csv:"category"`
	Estimate    string `csv:"estimate"`
	Expression  string `csv:"expression"`
	Actual      string `csv:"actual"`
	PaymentsDue string `csv:"payments_due"`
}

func weeklyCSVRows(rec core.MonthRecord) []*weeklyCSVRow {
	categories := core.WeeklyCategories(rec.VariableCosts)
	var rows []*weeklyCSVRow
	for i, wk := range rec.WeeklyBreakdown {
		byCategory := make(map[string]core.CategoryCell, len(wk.Cells))
		for _, c := range wk.Cells {
			byCategory[c.Category] = c
		}
		for _, c := range categories {
			cell := byCategory[c]
			rows = append(rows, &weeklyCSVRow{
				Week:        i + 1,
				Dates:       wk.DateRange,
				Category:    c,
				Estimate:    cell.Estimate.StringFixed(2),
				Expression:  cell.Expression,
				Actual:      cell.Value.StringFixed(2),
				PaymentsDue: wk.PaymentsDue,
			})
		}
	}
	return rows
}

// handleExportCSV writes the weekly breakdown as CSV, one line per week
// and weekly category.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	session, err := s.session(r.Context(), key)
	if err != nil {
		s.fail(w, r, log.OpExport, err)
		return
	}

	rows := weeklyCSVRows(session.Record)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="budget-%s-weekly.csv"`, key))
	w.WriteHeader(http.StatusOK)
	if len(rows) == 0 {
		_, _ = w.Write([]byte("week,dates,category,estimate,expression,actual,payments_due\n"))
		return
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		s.logger.ErrorContext(r.Context(), "CSV export failed", log.FieldError, err, log.FieldMonthKey, key)
	}
}
