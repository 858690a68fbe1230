package tx

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "attestor/pkg/domain-errors"
)

func TestFromWithoutTx(t *testing.T) {
	tx, ok := From(context.Background())
	assert.False(t, ok)
	assert.Nil(t, tx)
}

func TestWithNilTxLeavesContextUntouched(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, WithTx(ctx, nil))
}

func TestRunRejectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := Run(ctx, (*sql.DB)(nil), 0, func(context.Context) error {
		called = true
		return nil
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
	assert.False(t, called)
}
