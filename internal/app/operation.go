package app

import (
	"context"
	"fmt"
	"time"

	"pm-go/internal/database"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Operation tracks a CLI operation in the operations table. Operations are
// created in memory with ID=0; commands that change stored state persist
// them, which gives them an auto-increment ID from the database.
type Operation struct {
	ID        int64
	Operation string
	UserID    string
	Status    string // "success" or "error"
	StartedAt time.Time
}

// NewOperation creates a new in-memory operation.
func NewOperation(operation string, startedAt time.Time) *Operation {
	return &Operation{
		Operation: operation,
		Status:    StatusSuccess,
		StartedAt: startedAt,
	}
}

// Persisted returns true if this operation has been saved to the database.
func (op *Operation) Persisted() bool {
	return op.ID != 0
}

// Fail marks the operation as failed.
func (op *Operation) Fail() {
	op.Status = StatusError
}

// persist records the operation start. The user is filled in by finish, so
// deleting a user's history never removes the operation that deleted it.
func (op *Operation) persist(ctx context.Context, db *database.SQLiteDatabase) error {
	if op.Persisted() {
		return nil
	}
	id, err := db.CreateOperation(ctx, op.Operation, "", op.StartedAt)
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	op.ID = id
	return nil
}

func (op *Operation) finish(ctx context.Context, db *database.SQLiteDatabase, finishedAt time.Time) error {
	if !op.Persisted() {
		return nil
	}
	if err := db.FinishOperation(ctx, op.ID, op.UserID, op.Status, finishedAt); err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	return nil
}
