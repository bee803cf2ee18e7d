package services

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/tbourn/agritrade-gateway/internal/domain"
	"github.com/tbourn/agritrade-gateway/internal/logging"
)

// ReferenceSource loads shared reference data.
type ReferenceSource interface {
	ListCrops(ctx context.Context) ([]domain.Crop, error)
	ListContacts(ctx context.Context) ([]domain.Contact, error)
	ListSeasons(ctx context.Context) ([]domain.Season, error)
}

// Reference is one consistent snapshot of the reference data.
type Reference struct {
	Crops    []domain.Crop    `json:"crops"`
	Contacts []domain.Contact `json:"contacts"`
	Seasons  []domain.Season  `json:"seasons"`
	LoadedAt time.Time        `json:"loaded_at"`
}

// ReferenceData is a read-through cache of crops, contacts and seasons with
// an explicit Refresh. Construct one per process and pass it by pointer.
type ReferenceData struct {
	src ReferenceSource
	ttl time.Duration
	now func() time.Time

	refreshMu sync.Mutex

	mu   sync.RWMutex
	snap *Reference
}

// NewReferenceData returns an empty cache over src. ttl <= 0 keeps a loaded
// snapshot until the next explicit Refresh.
func NewReferenceData(src ReferenceSource, ttl time.Duration) *ReferenceData {
	return &ReferenceData{src: src, ttl: ttl, now: time.Now}
}

// Get returns the current snapshot, loading it on first use or when stale.
// If a reload fails and an older snapshot exists, the older snapshot is
// served and the failure is logged.
func (r *ReferenceData) Get(ctx context.Context) (Reference, error) {
	if snap, ok := r.current(); ok {
		return snap, nil
	}
	snap, err := r.Refresh(ctx)
	if err != nil {
		r.mu.RLock()
		prev := r.snap
		r.mu.RUnlock()
		if prev != nil {
			logging.FromContext(ctx).Warn().Err(err).Msg("reference refresh failed; serving previous snapshot")
			return *prev, nil
		}
		return Reference{}, err
	}
	return snap, nil
}

func (r *ReferenceData) current() (Reference, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.snap == nil {
		return Reference{}, false
	}
	if r.ttl > 0 && r.now().Sub(r.snap.LoadedAt) >= r.ttl {
		return Reference{}, false
	}
	return *r.snap, true
}

// Refresh reloads every list from the source and swaps the snapshot in one
// step. On error the previous snapshot is kept. Concurrent refreshes are
// serialized.
func (r *ReferenceData) Refresh(ctx context.Context) (Reference, error) {
	ctx, span := otel.Tracer("services/ReferenceData").Start(ctx, "Refresh")
	defer span.End()

	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	crops, err := r.src.ListCrops(ctx)
	if err != nil {
		return Reference{}, err
	}
	contacts, err := r.src.ListContacts(ctx)
	if err != nil {
		return Reference{}, err
	}
	seasons, err := r.src.ListSeasons(ctx)
	if err != nil {
		return Reference{}, err
	}
	snap := &Reference{
		Crops:    nonNil(crops),
		Contacts: nonNil(contacts),
		Seasons:  nonNil(seasons),
		LoadedAt: r.now().UTC(),
	}
	r.mu.Lock()
	r.snap = snap
	r.mu.Unlock()
	return *snap, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
