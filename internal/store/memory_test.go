package store

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/prod-golang-projects/transplantflow/pkg/metrics"
)

type record struct {
	ID   string   `json:"id"`
	Tags []string `json:"tags"`
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var empty []record
	require.NoError(t, s.ReadAll(ctx, CollectionPatients, &empty))
	assert.Nil(t, empty, "unwritten collection leaves dst alone")

	in := []record{{ID: "p1", Tags: []string{"a"}}}
	require.NoError(t, s.WriteAll(ctx, CollectionPatients, in))

	in[0].Tags[0] = "mutated"

	var out []record
	require.NoError(t, s.ReadAll(ctx, CollectionPatients, &out))
	assert.Equal(t, []record{{ID: "p1", Tags: []string{"a"}}}, out)
}

func TestMemoryStoreCollectionsAreIndependent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.WriteAll(ctx, CollectionPairs, []record{{ID: "pair1"}}))

	var patients []record
	require.NoError(t, s.ReadAll(ctx, CollectionPatients, &patients))
	assert.Empty(t, patients)
}

func TestMemoryStoreRejectsUnknownCollection(t *testing.T) {
	s := NewMemoryStore()
	err := s.WriteAll(context.Background(), Collection("users"), []record{})
	assert.ErrorIs(t, err, ErrUnknownCollection)
}

func TestInstrumentObservesLatency(t *testing.T) {
	m := metrics.NewCollector("test", prometheus.NewRegistry())
	s := Instrument(NewMemoryStore(), m)

	require.NoError(t, s.WriteAll(context.Background(), CollectionWorkflows, map[string]string{}))
	var out map[string]string
	require.NoError(t, s.ReadAll(context.Background(), CollectionWorkflows, &out))

	assert.Equal(t, 2, testutil.CollectAndCount(m.StoreOpDuration))
}
