package task

import (
	"context"
	"errors"
)

// ErrIDMismatch is returned by Update when the body id is missing or names a
// different task than the path.
var ErrIDMismatch = errors.New("task id does not match path id")

// Store is the persistence the service passes through to.
type Store interface {
	List(ctx context.Context) ([]Task, error)
	Get(ctx context.Context, id int64) (*Task, error)
	Create(ctx context.Context, t *Task) (*Task, error)
	Update(ctx context.Context, id int64, t *Task) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// Service validates tasks and hands them to the store unchanged.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) List(ctx context.Context) ([]Task, error) {
	return s.store.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (*Task, error) {
	return s.store.Get(ctx, id)
}

// Create ignores any client-supplied id.
func (s *Service) Create(ctx context.Context, t *Task) (*Task, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	t.ID = 0
	return s.store.Create(ctx, t)
}

// Update replaces task id with t. t.ID must equal id.
func (s *Service) Update(ctx context.Context, id int64, t *Task) (bool, error) {
	if t.ID != id {
		return false, ErrIDMismatch
	}
	if err := t.Validate(); err != nil {
		return false, err
	}
	return s.store.Update(ctx, id, t)
}

func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	return s.store.Delete(ctx, id)
}
