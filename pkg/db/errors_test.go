package db

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	pgErr := errors.New(`ERROR: duplicate key value violates unique constraint "ux_orders_txid" (SQLSTATE 23505)`)
	sqliteErr := errors.New("UNIQUE constraint failed: coupons.code")

	assert.True(t, IsUniqueViolation(pgErr, ""))
	assert.True(t, IsUniqueViolation(sqliteErr, ""))
	assert.True(t, IsUniqueViolation(pgErr, "ux_orders_txid"))
	assert.False(t, IsUniqueViolation(pgErr, "ux_coupons_code"))
	assert.True(t, IsUniqueViolation(sqliteErr, "ux_coupons_code"),
		"sqlite never reports the constraint name, only table.column")
	assert.False(t, IsUniqueViolation(errors.New("connection refused"), "ux_orders_txid"))
	assert.False(t, IsUniqueViolation(errors.New("connection refused"), ""))
	assert.False(t, IsUniqueViolation(nil, ""))
}
