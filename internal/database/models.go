package database

import (
	"time"

	"github.com/uptrace/bun"
)

// User is the persisted credential record.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int64     `bun:"id,pk,autoincrement"`
	Email        string    `bun:"email,notnull,unique"`
	PasswordHash string    `bun:"password_hash,notnull"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type Task struct {
	bun.BaseModel `bun:"table:tasks,alias:t"`

	ID          int64  `bun:"id,pk,autoincrement"`
	Name        string `bun:"name,notnull"`
	Description string `bun:"description,notnull"`
	IsCompleted bool   `bun:"is_completed,notnull"`
}
