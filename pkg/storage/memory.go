package storage

import (
	"context"
	"sync"

	"github.com/absmach/flotilla/round"
)

type memoryStore struct {
	sync.Mutex

	records []round.MetricsRecord
}

// NewMemoryStore returns an ephemeral in-process metrics store, used in
// tests and for runs that do not need a durable history.
func NewMemoryStore() MetricsStore {
	return &memoryStore{}
}

func (s *memoryStore) Append(_ context.Context, rec round.MetricsRecord) error {
	s.Lock()
	defer s.Unlock()

	s.records = append(s.records, rec)

	return nil
}

func (s *memoryStore) List(_ context.Context, offset, limit uint64) (round.MetricsPage, error) {
	s.Lock()
	defer s.Unlock()

	return pageRecords(s.records, offset, limit), nil
}

// pageRecords slices an ordered history into a page, shared by the memory
// and file backends.
func pageRecords(records []round.MetricsRecord, offset, limit uint64) round.MetricsPage {
	total := uint64(len(records))
	page := round.MetricsPage{
		Offset: offset,
		Limit:  limit,
		Total:  total,
	}
	if offset >= total {
		return page
	}

	end := offset + limit
	if end > total {
		end = total
	}
	page.Metrics = make([]round.MetricsRecord, end-offset)
	copy(page.Metrics, records[offset:end])

	return page
}
