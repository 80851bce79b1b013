package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kirinyoku/park-go/internal/repository"
)

func TestTranslateDBErr(t *testing.T) {
	if err := translateDBErr(nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}

	if err := translateDBErr(pgx.ErrNoRows); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	unique := &pgconn.PgError{Code: "23505"}
	if err := translateDBErr(fmt.Errorf("insert: %w", unique)); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	plain := errors.New("boom")
	if err := translateDBErr(plain); !errors.Is(err, plain) {
		t.Fatalf("expected passthrough, got %v", err)
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(&pgconn.PgError{Code: "40001"}) {
		t.Fatalf("expected serialization failure to be retryable")
	}
	if !IsRetryable(&pgconn.PgError{Code: "40P01"}) {
		t.Fatalf("expected deadlock to be retryable")
	}
	if IsRetryable(&pgconn.PgError{Code: "23505"}) {
		t.Fatalf("expected unique violation to be non-retryable")
	}
	if IsRetryable(errors.New("boom")) {
		t.Fatalf("expected plain error to be non-retryable")
	}
}

func TestRunRetryable(t *testing.T) {
	ctx := context.Background()

	// serialization failures are retried until fn succeeds
	calls := 0
	err := runRetryable(ctx, 3, func(context.Context) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("tx: %w", &pgconn.PgError{Code: "40001"})
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}

	// non-retryable errors fail on the first attempt
	calls = 0
	unique := &pgconn.PgError{Code: "23505"}
	err = runRetryable(ctx, 3, func(context.Context) error {
		calls++
		return unique
	})
	if !errors.Is(err, unique) || calls != 1 {
		t.Fatalf("expected single failing attempt, got %d calls, err %v", calls, err)
	}

	// attempts are bounded and the last error surfaces
	calls = 0
	err = runRetryable(ctx, 2, func(context.Context) error {
		calls++
		return &pgconn.PgError{Code: "40P01"}
	})
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
	if !IsRetryable(err) {
		t.Fatalf("expected last retryable error to surface, got %v", err)
	}
}

func TestWrapDBErr(t *testing.T) {
	if err := wrapDBErr("repo.Get", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}

	err := wrapDBErr("repo.Get", pgx.ErrNoRows)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
