package matching

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/drug-interaction/backend/internal/storage/models"
	"github.com/drug-interaction/backend/pkg/logger"
)

// CatalogIndex is an immutable snapshot of every catalog name. It is safe for
// concurrent readers; rebuilding produces a new instance.
type CatalogIndex struct {
	version uint64
	builtAt time.Time

	byKey   map[string]*models.DrugRecord
	display map[string]string
	byID    map[int64]*models.DrugRecord
	keys    []string
	tfidf   *tfidfModel
}

// BuildIndex snapshots drugs. When two drugs claim the same normalized name
// the lower id keeps it.
func BuildIndex(drugs []models.DrugRecord, version uint64) *CatalogIndex {
	sorted := make([]models.DrugRecord, len(drugs))
	copy(sorted, drugs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	idx := &CatalogIndex{
		version: version,
		builtAt: time.Now(),
		byKey:   make(map[string]*models.DrugRecord),
		display: make(map[string]string),
		byID:    make(map[int64]*models.DrugRecord, len(sorted)),
	}

	for i := range sorted {
		rec := sorted[i]
		rec.BrandNames = append([]string(nil), rec.BrandNames...)
		r := &rec
		idx.byID[r.ID] = r

		for _, name := range r.Names() {
			key := indexKey(name)
			if key == "" {
				continue
			}
			if _, taken := idx.byKey[key]; taken {
				continue
			}
			idx.byKey[key] = r
			idx.display[key] = name
			idx.keys = append(idx.keys, key)
		}
	}

	sort.Strings(idx.keys)
	idx.tfidf = fitTFIDF(idx.keys)
	return idx
}

func indexKey(name string) string {
	if key, err := Normalize(name); err == nil {
		return key
	}
	return strings.ToLower(strings.TrimSpace(name))
}

func (idx *CatalogIndex) Version() uint64 { return idx.version }

func (idx *CatalogIndex) BuiltAt() time.Time { return idx.builtAt }

// Lookup resolves a normalized name to its owning drug.
func (idx *CatalogIndex) Lookup(key string) (*models.DrugRecord, bool) {
	r, ok := idx.byKey[key]
	return r, ok
}

// LookupName normalizes a catalog or user supplied name before lookup.
func (idx *CatalogIndex) LookupName(name string) (*models.DrugRecord, bool) {
	return idx.Lookup(indexKey(name))
}

func (idx *CatalogIndex) Drug(id int64) (*models.DrugRecord, bool) {
	r, ok := idx.byID[id]
	return r, ok
}

// DisplayName returns the catalog spelling of a key.
func (idx *CatalogIndex) DisplayName(key string) string {
	if n, ok := idx.display[key]; ok {
		return n
	}
	return key
}

// Names returns the sorted distinct normalized names. Callers must not modify it.
func (idx *CatalogIndex) Names() []string { return idx.keys }

func (idx *CatalogIndex) DrugCount() int { return len(idx.byID) }

// Drugs returns copies of the indexed records ordered by id.
func (idx *CatalogIndex) Drugs() []models.DrugRecord {
	out := make([]models.DrugRecord, 0, len(idx.byID))
	for _, r := range idx.byID {
		rec := *r
		rec.BrandNames = append([]string(nil), r.BrandNames...)
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type DrugLister interface {
	ListAllDrugs(ctx context.Context) ([]models.DrugRecord, error)
}

// IndexHolder publishes the current index. Rebuild swaps in a new snapshot;
// in-flight readers keep the one they loaded.
type IndexHolder struct {
	current atomic.Pointer[CatalogIndex]
	mu      sync.Mutex
}

func NewIndexHolder() *IndexHolder {
	return &IndexHolder{}
}

// Current returns nil before the first successful Rebuild or Store.
func (h *IndexHolder) Current() *CatalogIndex {
	return h.current.Load()
}

func (h *IndexHolder) Store(idx *CatalogIndex) {
	h.current.Store(idx)
}

func (h *IndexHolder) Rebuild(ctx context.Context, catalog DrugLister) (*CatalogIndex, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	drugs, err := catalog.ListAllDrugs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog for index: %w", err)
	}

	var version uint64 = 1
	if prev := h.current.Load(); prev != nil {
		version = prev.version + 1
	}

	start := time.Now()
	idx := BuildIndex(drugs, version)
	h.current.Store(idx)

	logger.Info("Catalog index built",
		zap.Uint64("version", version),
		zap.Int("drugs", idx.DrugCount()),
		zap.Int("names", len(idx.keys)),
		zap.Duration("took", time.Since(start)),
	)
	return idx, nil
}
