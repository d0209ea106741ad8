// Package datasource abstracts where raw CSV bytes come from.
package datasource

import (
	"context"
	"io"
)

// Source opens a raw export for reading. Name identifies it in logs.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	Name() string
}
