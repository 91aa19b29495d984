package common_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-apotek/internal/common"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgerrcode.UniqueViolation})
	require.True(t, common.IsUniqueViolation(dup))
	require.False(t, common.IsUniqueViolation(&pgconn.PgError{Code: pgerrcode.CheckViolation}))
	require.False(t, common.IsUniqueViolation(errors.New("boom")))
}

func TestMissingAs(t *testing.T) {
	require.NoError(t, common.MissingAs(nil, "Bill"))

	err := common.MissingAs(pgx.ErrNoRows, "Bill")
	require.True(t, common.HasCode(err, common.CodeNotFound))

	err = common.MissingAs(&pgconn.PgError{Code: pgerrcode.InvalidTextRepresentation}, "Medicine")
	require.True(t, common.HasCode(err, common.CodeNotFound))

	boom := errors.New("connection reset")
	require.ErrorIs(t, common.MissingAs(boom, "Bill"), boom)
}
