package mysql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tbetl/internal/config"
	"tbetl/internal/storage"
)

func TestNewRepository_RejectsBadDSN(t *testing.T) {
	t.Parallel()

	_, err := storage.New(context.Background(), config.Storage{Kind: "mysql", DSN: "not-a-dsn"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mysql dsn")
}
