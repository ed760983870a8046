package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/sheets"
)

// Session is one caller's working copy of a month: the record after
// recompute and the totals it produced. Callers own it; the service keeps no
// current month between calls.
type Session struct {
	Key     string           `json:"key"`
	Record  core.MonthRecord `json:"record"`
	Summary core.Summary     `json:"summary"`
}

// MonthListing is one row of the saved-months overview.
type MonthListing struct {
	Key          string      `json:"key"`
	Year         int         `json:"year"`
	Month        int         `json:"month"`
	MonthName    string      `json:"monthName"`
	GrandSavings core.Totals `json:"grandSavings"`
}

// BudgetService runs every month operation as load, mutate, recompute, save.
// Writes to the same month are serialized.
type BudgetService struct {
	store  sheets.MonthStore
	logger *log.Logger

	mu    sync.Mutex
	locks map[string]*keyLock
}

// keyLock is dropped from BudgetService.locks when its last holder or
// waiter releases it.
type keyLock struct {
	sync.Mutex
	refs int
}

func NewBudgetService(store sheets.MonthStore, logger *log.Logger) *BudgetService {
	if logger == nil {
		logger = log.Discard()
	}
	return &BudgetService{
		store:  store,
		logger: logger.WithComponent(log.ComponentBudget),
		locks:  make(map[string]*keyLock),
	}
}

func (s *BudgetService) lock(key string) func() {
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &keyLock{}
		s.locks[key] = l
	}
	l.refs++
	s.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}

func newSession(rec core.MonthRecord) Session {
	summary := core.Recompute(&rec)
	return Session{Key: rec.Key(), Record: rec, Summary: summary}
}

func (s *BudgetService) exists(ctx context.Context, key string) (bool, error) {
	_, err := s.store.GetMonth(ctx, key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, core.ErrMonthNotFound):
		return false, nil
	}
	return false, err
}

func (s *BudgetService) save(ctx context.Context, op string, session Session) error {
	if err := s.store.SaveMonth(ctx, session.Key, session.Record); err != nil {
		return fmt.Errorf("save month %s: %w", session.Key, err)
	}
	s.logger.InfoContext(ctx, "Month saved",
		log.FieldMonthKey, session.Key,
		log.FieldOperation, op,
		log.FieldSavings, session.Summary.GrandSavings.Actual.StringFixed(2))
	return nil
}

// CreateMonth saves an empty month with its weeks generated.
func (s *BudgetService) CreateMonth(ctx context.Context, year, month int) (Session, error) {
	rec, err := core.NewMonthRecord(year, month)
	if err != nil {
		return Session{}, err
	}
	key := rec.Key()
	defer s.lock(key)()

	found, err := s.exists(ctx, key)
	if err != nil {
		return Session{}, err
	}
	if found {
		return Session{}, fmt.Errorf("%w: %s", core.ErrMonthExists, key)
	}
	session := newSession(rec)
	if err := s.save(ctx, log.OpCreate, session); err != nil {
		return Session{}, err
	}
	return session, nil
}

// OpenMonth loads a month and recomputes it without saving.
func (s *BudgetService) OpenMonth(ctx context.Context, key string) (Session, error) {
	if _, _, err := core.ParseMonthKey(key); err != nil {
		return Session{}, err
	}
	rec, err := s.store.GetMonth(ctx, key)
	if err != nil {
		return Session{}, err
	}
	return newSession(rec), nil
}

// ListMonths returns every saved month in key order with its savings.
func (s *BudgetService) ListMonths(ctx context.Context) ([]MonthListing, error) {
	recs, err := s.store.GetAllMonths(ctx)
	if err != nil {
		return nil, fmt.Errorf("list months: %w", err)
	}
	out := make([]MonthListing, 0, len(recs))
	for _, rec := range recs {
		session := newSession(rec)
		out = append(out, MonthListing{
			Key:          session.Key,
			Year:         rec.Year,
			Month:        rec.Month,
			MonthName:    rec.MonthName,
			GrandSavings: session.Summary.GrandSavings,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// DeleteMonth removes a saved month.
func (s *BudgetService) DeleteMonth(ctx context.Context, key string) error {
	if _, _, err := core.ParseMonthKey(key); err != nil {
		return err
	}
	defer s.lock(key)()
	if err := s.store.DeleteMonth(ctx, key); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Month deleted", log.FieldMonthKey, key)
	return nil
}

// CopyFromMonth starts year/month from the planning ledgers of srcKey. The
// target month must not exist yet.
func (s *BudgetService) CopyFromMonth(ctx context.Context, srcKey string, year, month int) (Session, error) {
	src, err := s.OpenMonth(ctx, srcKey)
	if err != nil {
		return Session{}, err
	}
	rec, err := core.CopyPlan(src.Record, year, month)
	if err != nil {
		return Session{}, err
	}
	key := rec.Key()
	defer s.lock(key)()

	found, err := s.exists(ctx, key)
	if err != nil {
		return Session{}, err
	}
	if found {
		return Session{}, fmt.Errorf("%w: %s", core.ErrMonthExists, key)
	}
	session := newSession(rec)
	if err := s.save(ctx, log.OpCopy, session); err != nil {
		return Session{}, err
	}
	return session, nil
}

// mutate loads key, applies fn, recomputes and saves. Nothing is saved
// when fn fails.
func (s *BudgetService) mutate(ctx context.Context, key, op string, fn func(*core.MonthRecord) error) (Session, error) {
	if _, _, err := core.ParseMonthKey(key); err != nil {
		return Session{}, err
	}
	defer s.lock(key)()

	rec, err := s.store.GetMonth(ctx, key)
	if err != nil {
		return Session{}, err
	}
	if err := fn(&rec); err != nil {
		return Session{}, err
	}
	session := newSession(rec)
	if err := s.save(ctx, op, session); err != nil {
		return Session{}, err
	}
	return session, nil
}

// AddRow appends a row decoded from raw to ledger l.
func (s *BudgetService) AddRow(ctx context.Context, key string, l core.Ledger, raw json.RawMessage) (Session, error) {
	return s.mutate(ctx, key, log.OpCreate, func(rec *core.MonthRecord) error {
		return rec.AddRow(l, raw)
	})
}

// UpdateRow replaces row index of ledger l.
func (s *BudgetService) UpdateRow(ctx context.Context, key string, l core.Ledger, index int, raw json.RawMessage) (Session, error) {
	return s.mutate(ctx, key, log.OpUpdate, func(rec *core.MonthRecord) error {
		return rec.UpdateRow(l, index, raw)
	})
}

// DeleteRow removes row index of ledger l.
func (s *BudgetService) DeleteRow(ctx context.Context, key string, l core.Ledger, index int) (Session, error) {
	return s.mutate(ctx, key, log.OpDelete, func(rec *core.MonthRecord) error {
		return rec.DeleteRow(l, index)
	})
}

// TogglePaid flips the paid flag of a fixed cost or unplanned expense.
func (s *BudgetService) TogglePaid(ctx context.Context, key string, l core.Ledger, index int) (Session, error) {
	return s.mutate(ctx, key, log.OpUpdate, func(rec *core.MonthRecord) error {
		_, err := rec.TogglePaid(l, index)
		return err
	})
}

// SetCellExpression stores what was typed into a weekly category cell.
func (s *BudgetService) SetCellExpression(ctx context.Context, key string, week int, category, expression string) (Session, error) {
	return s.mutate(ctx, key, log.OpUpdate, func(rec *core.MonthRecord) error {
		return rec.SetCellExpression(week, category, expression)
	})
}

// SetPaymentsDue stores edited payments-due text for a week.
func (s *BudgetService) SetPaymentsDue(ctx context.Context, key string, week int, text string) (Session, error) {
	return s.mutate(ctx, key, log.OpUpdate, func(rec *core.MonthRecord) error {
		return rec.SetPaymentsDue(week, text)
	})
}

// Recompute re-derives and saves a month. With force, custom payments-due
// text is regenerated too.
func (s *BudgetService) Recompute(ctx context.Context, key string, force bool) (Session, error) {
	return s.mutate(ctx, key, log.OpRecompute, func(rec *core.MonthRecord) error {
		if force {
			core.RecomputeForce(rec)
		}
		return nil
	})
}

// ImportLegacy saves a month from a legacy document. An existing month is
// replaced only when overwrite is set.
func (s *BudgetService) ImportLegacy(ctx context.Context, data []byte, overwrite bool) (Session, error) {
	rec, err := core.DecodeLegacyMonth(data)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %w", core.ErrInvalidRow, err)
	}
	key := rec.Key()
	defer s.lock(key)()

	if !overwrite {
		found, err := s.exists(ctx, key)
		if err != nil {
			return Session{}, err
		}
		if found {
			return Session{}, fmt.Errorf("%w: %s", core.ErrMonthExists, key)
		}
	}
	session := newSession(rec)
	if err := s.save(ctx, log.OpImport, session); err != nil {
		return Session{}, err
	}
	return session, nil
}

// ExportLegacy returns a month in the legacy document shape.
func (s *BudgetService) ExportLegacy(ctx context.Context, key string) ([]byte, error) {
	session, err := s.OpenMonth(ctx, key)
	if err != nil {
		return nil, err
	}
	return core.EncodeLegacyMonth(session.Record)
}
