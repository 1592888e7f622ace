package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rosterhq/attendance/internal/domain"
	"github.com/rosterhq/attendance/internal/store"
	"github.com/rosterhq/attendance/pkg/idx"
	"github.com/rosterhq/attendance/pkg/slogx"
)

var (
	ErrAlreadyCheckedIn  = errors.New("already_checked_in")
	ErrNotCheckedIn      = errors.New("not_checked_in")
	ErrAlreadyCheckedOut = errors.New("already_checked_out")
	ErrNotFound          = errors.New("not_found")
)

// halfDayThreshold is the minimum worked duration for a full day. Shorter
// days are recorded as half_day on check-out.
const halfDayThreshold = 7 * time.Hour

type AttendanceService struct {
	Store store.Store

	Now func() time.Time
}

func (s *AttendanceService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// CheckIn opens today's attendance record for the user. A second check-in
// on the same day is rejected.
func (s *AttendanceService) CheckIn(ctx context.Context, userID, notes string) (*domain.Attendance, error) {
	l := slogx.FromContext(ctx)
	now := s.now().UTC()

	rec := &domain.Attendance{
		ID:        idx.New().String(),
		UserID:    userID,
		Date:      now.Format(domain.DateLayout),
		CheckIn:   now,
		Status:    domain.AttendancePresent,
		Notes:     notes,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.Store.Attendance().Create(ctx, rec); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, ErrAlreadyCheckedIn
		}
		return nil, err
	}

	l.Info("checked in", "user_id", userID, "date", rec.Date)
	return rec, nil
}

// CheckOut closes today's record. Days shorter than the half-day threshold
// are downgraded to half_day.
func (s *AttendanceService) CheckOut(ctx context.Context, userID string) (*domain.Attendance, error) {
	l := slogx.FromContext(ctx)
	now := s.now().UTC()

	rec, err := s.Store.Attendance().GetForUserByDate(ctx, userID, now.Format(domain.DateLayout))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotCheckedIn
		}
		return nil, err
	}
	if rec.CheckOut != nil {
		return nil, ErrAlreadyCheckedOut
	}

	rec.CheckOut = &now
	rec.UpdatedAt = now
	if now.Sub(rec.CheckIn) < halfDayThreshold {
		rec.Status = domain.AttendanceHalfDay
	} else {
		rec.Status = domain.AttendancePresent
	}

	if err := s.Store.Attendance().Update(ctx, rec); err != nil {
		return nil, err
	}

	l.Info("checked out", "user_id", userID, "date", rec.Date, "status", string(rec.Status))
	return rec, nil
}

// Today returns the user's record for the current day, or ErrNotFound if
// they have not checked in.
func (s *AttendanceService) Today(ctx context.Context, userID string) (*domain.Attendance, error) {
	rec, err := s.Store.Attendance().GetForUserByDate(ctx, userID, s.now().UTC().Format(domain.DateLayout))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// HistoryPage is one page of a user's attendance listing.
type HistoryPage struct {
	Records []*domain.Attendance
	Total   int
	Page    int
	Limit   int
}

// History lists the user's records newest first, optionally bounded by an
// inclusive date range.
func (s *AttendanceService) History(ctx context.Context, userID, from, to string, page, limit int) (*HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 30
	}

	f := store.AttendanceFilter{
		From:   from,
		To:     to,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}

	records, err := s.Store.Attendance().ListForUser(ctx, userID, f)
	if err != nil {
		return nil, err
	}
	total, err := s.Store.Attendance().CountForUser(ctx, userID, store.AttendanceFilter{From: from, To: to})
	if err != nil {
		return nil, err
	}

	return &HistoryPage{Records: records, Total: total, Page: page, Limit: limit}, nil
}

// Stats aggregates the user's records for one calendar month. Zero month
// or year default to the current month.
func (s *AttendanceService) Stats(ctx context.Context, userID string, month, year int) (*domain.AttendanceStats, error) {
	now := s.now().UTC()
	if month == 0 {
		month = int(now.Month())
	}
	if year == 0 {
		year = now.Year()
	}
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: month out of range", ErrValidation)
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	return s.Store.Attendance().StatsForUser(ctx, userID,
		first.Format(domain.DateLayout), last.Format(domain.DateLayout))
}

// ListAll lists records across users for managers and admins, optionally
// limited to one date.
func (s *AttendanceService) ListAll(ctx context.Context, date string, page, limit int) (*HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 30
	}

	f := store.AttendanceFilter{
		From:   date,
		To:     date,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}

	records, err := s.Store.Attendance().ListAll(ctx, f)
	if err != nil {
		return nil, err
	}
	total, err := s.Store.Attendance().CountForUser(ctx, "", store.AttendanceFilter{From: date, To: date})
	if err != nil {
		return nil, err
	}

	return &HistoryPage{Records: records, Total: total, Page: page, Limit: limit}, nil
}
