package postgres

import (
	"database/sql"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/adherence-api/pkg/errors"
)

type affected struct {
	n   int64
	err error
}

func (a affected) LastInsertId() (int64, error) { return 0, nil }
func (a affected) RowsAffected() (int64, error) { return a.n, a.err }

func TestNotFound(t *testing.T) {
	err := notFound(fmt.Errorf("scan: %w", sql.ErrNoRows), "client")
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	err = notFound(stderrors.New("connection reset"), "client")
	assert.False(t, errors.Is(err, errors.ErrNotFound))
	assert.EqualError(t, err, "failed to get client: connection reset")
}

func TestConflict(t *testing.T) {
	dup := &pq.Error{Code: uniqueViolation, Constraint: "uq_dose_records_slot"}
	err := conflict(dup, "a dose is already recorded at this time", "create dose record")
	assert.True(t, errors.Is(err, errors.ErrConflict))
	assert.ErrorIs(t, err, dup)

	fk := &pq.Error{Code: "23503"}
	err = conflict(fk, "a dose is already recorded at this time", "create dose record")
	assert.False(t, errors.Is(err, errors.ErrConflict))
	assert.ErrorIs(t, err, fk)
}

func TestMustAffect(t *testing.T) {
	assert.NoError(t, mustAffect(affected{n: 1}, "account"))
	assert.True(t, errors.Is(mustAffect(affected{}, "account"), errors.ErrNotFound))
	assert.Error(t, mustAffect(affected{err: stderrors.New("driver")}, "account"))
}
