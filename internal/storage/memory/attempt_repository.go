package memory

import (
	"context"

	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"
	"github.com/zeladoria/portal-gateway/internal/attempt"
)

// attemptRecord mirrors attempt.Attempt with a string ID as go-memdb indexes strings
type attemptRecord struct {
	ID         string
	Identifier string
	Success    bool
	RemoteAddr string
	CreatedAt  int64
}

// AttemptRepository implements the attempt.Repository interface using go-memdb
type AttemptRepository struct {
	db *memdb.MemDB
}

var _ attempt.Repository = (*AttemptRepository)(nil)

// Get retrieves multiple login attempts, newest first, and the total amount of stored ones
func (repo *AttemptRepository) Get(_ context.Context, offset, limit uint64) ([]*attempt.Attempt, uint64, error) {
	txn := repo.db.Txn(false)

	it, err := txn.GetReverse("login_attempts", "createdAt")
	if err != nil {
		return nil, 0, err
	}

	var total uint64
	attempts := []*attempt.Attempt{}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		if total >= offset && uint64(len(attempts)) < limit {
			record := obj.(*attemptRecord)
			id, err := uuid.Parse(record.ID)
			if err != nil {
				return nil, 0, err
			}
			attempts = append(attempts, &attempt.Attempt{
				ID:         id,
				Identifier: record.Identifier,
				Success:    record.Success,
				RemoteAddr: record.RemoteAddr,
				CreatedAt:  record.CreatedAt,
			})
		}
		total++
	}

	return attempts, total, nil
}

// Create records a new login attempt
func (repo *AttemptRepository) Create(_ context.Context, create *attempt.Attempt) error {
	record := &attemptRecord{
		ID:         create.ID.String(),
		Identifier: create.Identifier,
		Success:    create.Success,
		RemoteAddr: create.RemoteAddr,
		CreatedAt:  create.CreatedAt,
	}

	txn := repo.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert("login_attempts", record); err != nil {
		return err
	}
	txn.Commit()
	return nil
}
