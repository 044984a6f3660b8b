package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		serialization bool
		unique        bool
		foreignKey    bool
	}{
		{name: "nil", err: nil},
		{name: "plain error", err: errors.New("boom")},
		{name: "pgx serialization failure", err: &pgconn.PgError{Code: "40001"}, serialization: true},
		{name: "pgx deadlock", err: &pgconn.PgError{Code: "40P01"}, serialization: true},
		{name: "wrapped pgx serialization failure", err: fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40001"}), serialization: true},
		{name: "pq serialization failure", err: &pq.Error{Code: "40001"}, serialization: true},
		{name: "pq deadlock", err: fmt.Errorf("exec: %w", &pq.Error{Code: "40P01"}), serialization: true},
		{name: "sqlite busy", err: errors.New("database is locked"), serialization: true},
		{name: "pgx unique violation", err: &pgconn.PgError{Code: "23505"}, unique: true},
		{name: "pq unique violation", err: &pq.Error{Code: "23505"}, unique: true},
		{name: "gorm duplicated key", err: fmt.Errorf("save: %w", gorm.ErrDuplicatedKey), unique: true},
		{name: "sqlite unique", err: errors.New("UNIQUE constraint failed: landlords.email"), unique: true},
		{name: "pgx foreign key", err: &pgconn.PgError{Code: "23503"}, foreignKey: true},
		{name: "gorm foreign key", err: gorm.ErrForeignKeyViolated, foreignKey: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.serialization, IsSerializationFailure(tt.err))
			assert.Equal(t, tt.unique, IsUniqueViolation(tt.err))
			assert.Equal(t, tt.foreignKey, IsForeignKeyViolation(tt.err))
		})
	}
}

func TestIsUniqueViolationOn(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "pgx email index", err: &pgconn.PgError{Code: "23505", ConstraintName: "idx_landlords_email"}, want: true},
		{name: "pgx primary key", err: &pgconn.PgError{Code: "23505", ConstraintName: "landlords_pkey"}},
		{name: "pgx uuid index", err: &pgconn.PgError{Code: "23505", ConstraintName: "idx_landlords_uuid"}},
		{name: "pgx other code on email", err: &pgconn.PgError{Code: "23503", ConstraintName: "idx_landlords_email"}},
		{name: "pq email index", err: fmt.Errorf("save: %w", &pq.Error{Code: "23505", Constraint: "idx_tenants_email"}), want: true},
		{name: "pq primary key", err: &pq.Error{Code: "23505", Constraint: "tenants_pkey"}},
		{name: "sqlite email", err: errors.New("UNIQUE constraint failed: landlords.email"), want: true},
		{name: "sqlite primary key", err: errors.New("UNIQUE constraint failed: landlords.id")},
		{name: "sqlite composite", err: errors.New("UNIQUE constraint failed: sequence_counters.entity_type, sequence_counters.year_month")},
		{name: "translated error has no constraint", err: gorm.ErrDuplicatedKey},
		{name: "nil", err: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUniqueViolationOn(tt.err, "email"))
		})
	}
}
