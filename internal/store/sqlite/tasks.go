package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/rosterhq/attendance/internal/domain"
	"github.com/rosterhq/attendance/internal/store"
)

type tasksRepo struct {
	db dbtx
}

const taskColumns = `id, title, description, assigned_to, created_by, priority, status, due_date, completed_at, created_at, updated_at`

func (r *tasksRepo) Create(ctx context.Context, t *domain.Task) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (id, title, description, assigned_to, created_by, priority, status, due_date, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Description, t.AssignedTo, t.CreatedBy,
		string(t.Priority), string(t.Status),
		mapOptionalTime(t.DueDate), mapOptionalTime(t.CompletedAt),
		t.CreatedAt, t.UpdatedAt,
	)
	return mapConstraint(err)
}

func scanTask(row interface{ Scan(...any) error }) (*domain.Task, error) {
	var t domain.Task
	var priority, status string
	var dueDate, completedAt sql.NullTime
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.AssignedTo, &t.CreatedBy,
		&priority, &status, &dueDate, &completedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	t.Priority = domain.TaskPriority(priority)
	t.Status = domain.TaskStatus(status)
	t.DueDate = mapNullTimePtr(dueDate)
	t.CompletedAt = mapNullTimePtr(completedAt)
	return &t, nil
}

func (r *tasksRepo) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	return scanTask(row)
}

func (r *tasksRepo) Update(ctx context.Context, t *domain.Task) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, assigned_to = ?, priority = ?, status = ?,
		    due_date = ?, completed_at = ?, updated_at = ?
		WHERE id = ?`,
		t.Title, t.Description, t.AssignedTo, string(t.Priority), string(t.Status),
		mapOptionalTime(t.DueDate), mapOptionalTime(t.CompletedAt), t.UpdatedAt, t.ID,
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

func (r *tasksRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
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

func taskWhere(f store.TaskFilter) (string, []any) {
	var conds []string
	var args []any

	if f.AssignedTo != "" {
		conds = append(conds, "assigned_to = ?")
		args = append(args, f.AssignedTo)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Priority != "" {
		conds = append(conds, "priority = ?")
		args = append(args, string(f.Priority))
	}
	if f.Search != "" {
		conds = append(conds, "(title LIKE ? OR description LIKE ?)")
		like := "%" + f.Search + "%"
		args = append(args, like, like)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// taskOrder sorts most urgent first, then newest.
const taskOrder = ` ORDER BY CASE priority
	WHEN 'critical' THEN 1
	WHEN 'high' THEN 2
	WHEN 'medium' THEN 3
	WHEN 'low' THEN 4
	ELSE 5 END, created_at DESC`

func (r *tasksRepo) List(ctx context.Context, f store.TaskFilter) ([]*domain.Task, error) {
	where, args := taskWhere(f)
	lo, loArgs := limitOffset(f.Limit, f.Offset)
	args = append(args, loArgs...)

	rows, err := r.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks`+where+taskOrder+lo, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *tasksRepo) Count(ctx context.Context, f store.TaskFilter) (int, error) {
	where, args := taskWhere(f)
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`+where, args...).Scan(&n)
	return n, err
}
