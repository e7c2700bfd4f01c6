package db

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestWrapError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantNil    bool
		wantTarget error
		wantMsg    string
	}{
		{name: "nil stays nil", err: nil, wantNil: true},
		{
			name:       "no rows maps to not found",
			err:        pgx.ErrNoRows,
			wantTarget: ErrNotFound,
			wantMsg:    "get cached video: record not found",
		},
		{
			name:       "check violation",
			err:        &pgconn.PgError{Code: "23514", ConstraintName: "youtube_video_cache_stats_complete"},
			wantTarget: ErrConstraintViolation,
			wantMsg:    "get cached video: constraint violation (constraint: youtube_video_cache_stats_complete)",
		},
		{
			name:       "server shutting down",
			err:        &pgconn.PgError{Code: "57P01", Message: "terminating connection"},
			wantTarget: ErrUnavailable,
		},
		{
			name:    "other postgres error keeps code",
			err:     &pgconn.PgError{Severity: "ERROR", Code: "42P01", Message: "relation does not exist"},
			wantMsg: "get cached video: database error [42P01]: ERROR: relation does not exist (SQLSTATE 42P01)",
		},
		{
			name:    "plain error is wrapped",
			err:     errors.New("boom"),
			wantMsg: "get cached video: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WrapError(tt.err, "get cached video")
			if tt.wantNil {
				assert.NoError(t, got)
				return
			}
			if tt.wantTarget != nil {
				assert.ErrorIs(t, got, tt.wantTarget)
			}
			if tt.wantMsg != "" {
				assert.EqualError(t, got, tt.wantMsg)
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(WrapError(pgx.ErrNoRows, "op")))
	assert.False(t, IsNotFound(errors.New("other")))
	assert.True(t, IsConstraintViolation(WrapError(&pgconn.PgError{Code: "23502"}, "op")))
}
