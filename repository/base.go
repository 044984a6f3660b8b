// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// BaseRepository provides common repository functionality with transaction support
type BaseRepository[T any, F any] struct {
	DB *gorm.DB
}

// NewBaseRepository creates a new base repository instance
func NewBaseRepository[T any, F any](db *gorm.DB) *BaseRepository[T, F] {
	return &BaseRepository[T, F]{
		DB: db,
	}
}

// getDB returns the appropriate database connection (with or without transaction)
func (r *BaseRepository[T, F]) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.DB.WithContext(ctx)
}

// getDBForWrite returns database connection with transaction for write operations
func (r *BaseRepository[T, F]) getDBForWrite(ctx context.Context) (*gorm.DB, bool, error) {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return tx, false, nil // Transaction already exists, don't commit
	}

	tx := r.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	return tx, true, nil
}

// finish commits or rolls back a transaction opened by getDBForWrite
func finish(db *gorm.DB, shouldCommit bool, err error) error {
	if !shouldCommit {
		return err
	}
	if err != nil {
		db.Rollback()
		return err
	}
	if cErr := db.Commit().Error; cErr != nil {
		return fmt.Errorf("failed to commit transaction: %w", cErr)
	}
	return nil
}

// ByID retrieves an entity by its human-readable ID
func (r *BaseRepository[T, F]) ByID(ctx context.Context, id string) (*T, error) {
	db := r.getDB(ctx)

	var entity T
	err := db.Where("id = ?", id).Take(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find entity by ID %s: %w", id, err)
	}

	return &entity, nil
}

// Save inserts a new entity
func (r *BaseRepository[T, F]) Save(ctx context.Context, entity *T) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if err = db.Create(entity).Error; err != nil {
		err = fmt.Errorf("failed to save entity: %w", err)
	}
	return finish(db, shouldCommit, err)
}

// SaveBatch inserts multiple entities in a single transaction
func (r *BaseRepository[T, F]) SaveBatch(ctx context.Context, entities []*T) error {
	if len(entities) == 0 {
		return nil
	}

	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if err = db.CreateInBatches(entities, 100).Error; err != nil {
		err = fmt.Errorf("failed to save batch entities: %w", err)
	}
	return finish(db, shouldCommit, err)
}

// Update writes every column of an existing entity
func (r *BaseRepository[T, F]) Update(ctx context.Context, entity *T) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if err = db.Save(entity).Error; err != nil {
		err = fmt.Errorf("failed to update entity: %w", err)
	}
	return finish(db, shouldCommit, err)
}

// Delete soft-deletes the entity with the given ID. Models without a DeletedAt column are removed.
func (r *BaseRepository[T, F]) Delete(ctx context.Context, id string) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	var entity T
	res := db.Where("id = ?", id).Delete(&entity)
	switch {
	case res.Error != nil:
		err = fmt.Errorf("failed to delete entity %s: %w", id, res.Error)
	case res.RowsAffected == 0:
		err = ErrNotFound
	}
	return finish(db, shouldCommit, err)
}

// WithTransaction executes a function within a database transaction
func WithTransaction(ctx context.Context, db *gorm.DB, fn func(context.Context) error) error {
	return WithTransactionOptions(ctx, db, nil, fn)
}

// WithTransactionOptions executes fn within a transaction opened with opts.
// The transaction is bound to ctx: cancelling ctx aborts it.
func WithTransactionOptions(ctx context.Context, db *gorm.DB, opts *sql.TxOptions, fn func(context.Context) error) (err error) {
	var tx *gorm.DB
	if opts != nil {
		tx = db.WithContext(ctx).Begin(opts)
	} else {
		tx = db.WithContext(ctx).Begin()
	}
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			err = fmt.Errorf("panic in transaction: %v", r)
		}
	}()

	ctx = context.WithValue(ctx, TxContextKey, tx)

	if err := fn(ctx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GormTransactor opens transactions on a gorm connection
type GormTransactor struct {
	DB *gorm.DB
}

// NewTransactor creates a transactor backed by db
func NewTransactor(db *gorm.DB) *GormTransactor {
	return &GormTransactor{DB: db}
}

// Within runs fn in a transaction at the driver's default isolation level
func (t *GormTransactor) Within(ctx context.Context, fn func(context.Context) error) error {
	return WithTransaction(ctx, t.DB, fn)
}

// WithinSerializable runs fn in a SERIALIZABLE transaction
func (t *GormTransactor) WithinSerializable(ctx context.Context, fn func(context.Context) error) error {
	return WithTransactionOptions(ctx, t.DB, &sql.TxOptions{Isolation: sql.LevelSerializable}, fn)
}
