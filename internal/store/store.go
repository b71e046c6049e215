// Package store persists whole collections as single documents. Each
// WriteAll replaces one collection atomically; there is no transaction
// spanning collections.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/dmehra2102/prod-golang-projects/transplantflow/pkg/metrics"
)

type Collection string

const (
	CollectionPatients  Collection = "patients"
	CollectionPairs     Collection = "pairs"
	CollectionWorkflows Collection = "workflows"
)

func (c Collection) IsValid() bool {
	switch c {
	case CollectionPatients, CollectionPairs, CollectionWorkflows:
		return true
	}
	return false
}

var ErrUnknownCollection = errors.New("unknown collection")

type Store interface {
	// ReadAll decodes the collection into dst. dst is left untouched when the
	// collection has never been written.
	ReadAll(ctx context.Context, c Collection, dst any) error

	// WriteAll replaces the collection with v.
	WriteAll(ctx context.Context, c Collection, v any) error
}

type instrumented struct {
	next    Store
	metrics *metrics.Collector
}

// Instrument records the latency of every store call.
func Instrument(s Store, m *metrics.Collector) Store {
	if m == nil {
		return s
	}
	return &instrumented{next: s, metrics: m}
}

func (s *instrumented) ReadAll(ctx context.Context, c Collection, dst any) error {
	start := time.Now()
	err := s.next.ReadAll(ctx, c, dst)
	s.metrics.StoreOpDuration.WithLabelValues("read", string(c)).Observe(time.Since(start).Seconds())
	return err
}

func (s *instrumented) WriteAll(ctx context.Context, c Collection, v any) error {
	start := time.Now()
	err := s.next.WriteAll(ctx, c, v)
	s.metrics.StoreOpDuration.WithLabelValues("write", string(c)).Observe(time.Since(start).Seconds())
	return err
}
