package tx

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithTxIgnoresNil(t *testing.T) {
	ctx := WithTx(context.Background(), nil)
	_, ok := From(ctx)
	assert.False(t, ok)
}

func TestConnFallsBackToDB(t *testing.T) {
	db := &sql.DB{}
	assert.Same(t, db, Conn(context.Background(), db))

	sqlTx := &sql.Tx{}
	ctx := WithTx(context.Background(), sqlTx)
	assert.Same(t, sqlTx, Conn(ctx, db))
}

func TestRunReusesOuterTransaction(t *testing.T) {
	outer := &sql.Tx{}
	ctx := WithTx(context.Background(), outer)

	called := false
	err := Run(ctx, nil, func(ctx context.Context) error {
		called = true
		got, ok := From(ctx)
		assert.True(t, ok)
		assert.Same(t, outer, got)
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, called)
}
