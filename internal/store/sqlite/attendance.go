package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/rosterhq/attendance/internal/domain"
	"github.com/rosterhq/attendance/internal/store"
)

type attendanceRepo struct {
	db dbtx
}

const attendanceColumns = `id, user_id, date, check_in, check_out, status, notes, created_at, updated_at`

func (r *attendanceRepo) Create(ctx context.Context, a *domain.Attendance) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance (id, user_id, date, check_in, check_out, status, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Date, a.CheckIn, mapOptionalTime(a.CheckOut),
		string(a.Status), a.Notes, a.CreatedAt, a.UpdatedAt,
	)
	return mapConstraint(err)
}

func scanAttendance(row interface{ Scan(...any) error }) (*domain.Attendance, error) {
	var a domain.Attendance
	var status string
	var checkOut sql.NullTime
	err := row.Scan(&a.ID, &a.UserID, &a.Date, &a.CheckIn, &checkOut,
		&status, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	a.Status = domain.AttendanceStatus(status)
	a.CheckOut = mapNullTimePtr(checkOut)
	return &a, nil
}

func (r *attendanceRepo) GetForUserByDate(ctx context.Context, userID, date string) (*domain.Attendance, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+attendanceColumns+` FROM attendance WHERE user_id = ? AND date = ?`,
		userID, date,
	)
	return scanAttendance(row)
}

func (r *attendanceRepo) Update(ctx context.Context, a *domain.Attendance) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE attendance
		SET check_out = ?, status = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		mapOptionalTime(a.CheckOut), string(a.Status), a.Notes, a.UpdatedAt, a.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// attendanceWhere builds the WHERE clause for a filter. The userID argument
// is optional; empty means all users.
func attendanceWhere(userID string, f store.AttendanceFilter) (string, []any) {
	var conds []string
	var args []any

	if userID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, userID)
	}
	if f.From != "" {
		conds = append(conds, "date >= ?")
		args = append(args, f.From)
	}
	if f.To != "" {
		conds = append(conds, "date <= ?")
		args = append(args, f.To)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func limitOffset(limit, offset int) (string, []any) {
	if limit <= 0 {
		return "", nil
	}
	return " LIMIT ? OFFSET ?", []any{limit, offset}
}

func (r *attendanceRepo) list(ctx context.Context, userID string, f store.AttendanceFilter) ([]*domain.Attendance, error) {
	where, args := attendanceWhere(userID, f)
	lo, loArgs := limitOffset(f.Limit, f.Offset)
	args = append(args, loArgs...)

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+attendanceColumns+` FROM attendance`+where+` ORDER BY date DESC`+lo, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.Attendance
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, a)
	}
	return records, rows.Err()
}

func (r *attendanceRepo) ListForUser(ctx context.Context, userID string, f store.AttendanceFilter) ([]*domain.Attendance, error) {
	return r.list(ctx, userID, f)
}

func (r *attendanceRepo) ListAll(ctx context.Context, f store.AttendanceFilter) ([]*domain.Attendance, error) {
	return r.list(ctx, "", f)
}

func (r *attendanceRepo) CountForUser(ctx context.Context, userID string, f store.AttendanceFilter) (int, error) {
	where, args := attendanceWhere(userID, f)
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attendance`+where, args...).Scan(&n)
	return n, err
}

func (r *attendanceRepo) StatsForUser(ctx context.Context, userID string, from, to string) (*domain.AttendanceStats, error) {
	where, args := attendanceWhere(userID, store.AttendanceFilter{From: from, To: to})

	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM attendance`+where+` GROUP BY status`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats domain.AttendanceStats
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.TotalDays += count
		switch domain.AttendanceStatus(status) {
		case domain.AttendancePresent:
			stats.PresentDays = count
		case domain.AttendanceAbsent:
			stats.AbsentDays = count
		case domain.AttendanceHalfDay:
			stats.HalfDays = count
		case domain.AttendanceLeave:
			stats.LeaveDays = count
		}
	}
	return &stats, rows.Err()
}
