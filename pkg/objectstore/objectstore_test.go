package objectstore

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportKeyIsContentAddressed(t *testing.T) {
	a := ReportKey("p1", []byte("HLA-A*02:01"))
	b := ReportKey("p1", []byte("HLA-A*02:01"))
	c := ReportKey("p1", []byte("HLA-A*24:02"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "hla-reports/p1/"))
	assert.Len(t, strings.TrimPrefix(a, "hla-reports/p1/"), 64)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	data := []byte("report")
	require.NoError(t, s.Put(ctx, "k", data, "application/pdf"))
	data[0] = 'X'

	got, ct, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "report", string(got))
	assert.Equal(t, "application/pdf", ct)

	_, _, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}
