package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/redmonkez12/go-task-api/internal/database"
)

// Repository handles task persistence
type Repository struct {
	db bun.IDB
}

func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db}
}

// List returns every task ordered by id
func (r *Repository) List(ctx context.Context) ([]Task, error) {
	var rows []database.Task
	if err := r.db.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	tasks := make([]Task, 0, len(rows))
	for i := range rows {
		tasks = append(tasks, *mapDBTaskToModel(&rows[i]))
	}
	return tasks, nil
}

// Get retrieves a task by ID
func (r *Repository) Get(ctx context.Context, id int64) (*Task, error) {
	row := new(database.Task)
	err := r.db.NewSelect().
		Model(row).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return mapDBTaskToModel(row), nil
}

// Create inserts a task; the store assigns its id
func (r *Repository) Create(ctx context.Context, t *Task) (*Task, error) {
	row := &database.Task{
		Name:        t.Name,
		Description: t.Description,
		IsCompleted: t.IsCompleted,
	}

	if _, err := r.db.NewInsert().Model(row).Returning("*").Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return mapDBTaskToModel(row), nil
}

// Update overwrites the task with the given id. It reports false when no
// such task exists.
func (r *Repository) Update(ctx context.Context, id int64, t *Task) (bool, error) {
	row := &database.Task{
		ID:          id,
		Name:        t.Name,
		Description: t.Description,
		IsCompleted: t.IsCompleted,
	}

	res, err := r.db.NewUpdate().
		Model(row).
		Column("name", "description", "is_completed").
		WherePK().
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to update task: %w", err)
	}

	return affected(res)
}

// Delete removes the task with the given id. It reports false when no such
// task exists.
func (r *Repository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.NewDelete().
		Model((*database.Task)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to delete task: %w", err)
	}

	return affected(res)
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

func mapDBTaskToModel(row *database.Task) *Task {
	return &Task{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		IsCompleted: row.IsCompleted,
	}
}
