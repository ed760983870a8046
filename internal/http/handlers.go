package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/services"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	health := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(health)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.pinger == nil {
		checks["store"] = "ok"
	} else if err := s.pinger.Ping(ctx); err != nil {
		checks["store"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	checks["cache"] = map[string]any{
		"month_entries": s.sessions.Size(),
		"status":        "ok",
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	response := map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}

	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(response)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	mutations := atomic.LoadInt64(&s.appMetrics.mutations)
	cacheHits := atomic.LoadInt64(&s.appMetrics.cacheHits)
	cacheMisses := atomic.LoadInt64(&s.appMetrics.cacheMisses)
	uptime := time.Since(s.appMetrics.uptime)

	w.WriteHeader(http.StatusOK)

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_errors_total", "counter", "HTTP requests answered with a 5xx status", traceMetrics.TotalErrors)
	metric("http_response_time_avg_microseconds", "gauge", "Average response time", traceMetrics.AverageResponseTime)
	metric("month_mutations_total", "counter", "Month writes served by the API", mutations)
	metric("cache_hits_total", "counter", "Total cache hits", cacheHits)
	metric("cache_misses_total", "counter", "Total cache misses", cacheMisses)
	metric("cache_entries", "gauge", "Current cached months", s.sessions.Size())
	metric("rate_limit_hits_total", "counter", "Total rate limit hits", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", fmt.Sprintf("%.0f", uptime.Seconds()))
}

func (s *Server) renderTemplate(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			log.FieldComponent, log.ComponentTemplate,
			log.FieldErrorType, log.ErrorTypeConfiguration)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err,
			log.FieldComponent, log.ComponentTemplate,
			"template", name)
	}
}

// handleIndex lists saved months with a form to start a new one.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	months, err := s.budget.ListMonths(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Month list error", log.FieldError, err)
	}

	now := time.Now()
	data := struct {
		Months []services.MonthListing
		Year   int
		Month  int
		Error  string
	}{
		Months: months,
		Year:   now.Year(),
		Month:  int(now.Month()),
	}
	if err != nil {
		data.Error = "Could not load saved months"
	}
	s.renderTemplate(w, r, "index.html", data)
}

// weekView is one row of the weekly table on the month page.
type weekView struct {
	Number      int
	Week        core.WeekCell
	Cells       []core.CategoryCell
	PaymentsDue string
}

// handleMonthPage renders one month: summary, ledgers and weekly table.
func (s *Server) handleMonthPage(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	session, err := s.session(r.Context(), key)
	if err != nil {
		status := ErrorFromService(err).StatusCode()
		if status >= http.StatusInternalServerError {
			s.logger.ErrorContext(r.Context(), "Month page error", log.FieldError, err, log.FieldMonthKey, key)
		}
		msg := "Month not found"
		if !errors.Is(err, core.ErrMonthNotFound) {
			msg = http.StatusText(status)
		}
		http.Error(w, msg, status)
		return
	}

	categories := core.WeeklyCategories(session.Record.VariableCosts)
	weeks := make([]weekView, 0, len(session.Record.WeeklyBreakdown))
	for i, wk := range session.Record.WeeklyBreakdown {
		byCategory := make(map[string]core.CategoryCell, len(wk.Cells))
		for _, c := range wk.Cells {
			byCategory[c.Category] = c
		}
		view := weekView{Number: i + 1, Week: wk, PaymentsDue: wk.PaymentsDue}
		for _, c := range categories {
			cell, ok := byCategory[c]
			if !ok {
				cell = core.CategoryCell{Category: c}
			}
			view.Cells = append(view.Cells, cell)
		}
		weeks = append(weeks, view)
	}

	data := struct {
		services.Session
		Categories []string
		Weeks      []weekView
	}{
		Session:    session,
		Categories: categories,
		Weeks:      weeks,
	}
	s.renderTemplate(w, r, "month.html", data)
}
