package display

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"maps"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/brewq/internal/models"
	"github.com/desertthunder/brewq/internal/shared"
)

// Reconciler owns the map of rendered orders and is the only writer to its [Renderer].
type Reconciler struct {
	renderer Renderer
	logger   *log.Logger

	mu         sync.Mutex
	tracked    map[int64]models.Order
	stableHash string
}

// NewReconciler creates a Reconciler that renders to r.
func NewReconciler(r Renderer, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Reconciler{renderer: r, logger: logger, tracked: make(map[int64]models.Order)}
}

// Apply renders p and returns the changeset that was applied.
//
// A snapshot whose stable hash matches the last one only refreshes wait times.
func (r *Reconciler) Apply(p models.OrdersPayload) (Changeset, error) {
	if r.renderer == nil {
		return Changeset{}, shared.ErrRenderTarget
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if p.Counts != nil {
		r.renderer.UpdateCounts(*p.Counts)
	}

	if len(p.Orders) == 0 {
		removed := slices.Sorted(maps.Keys(r.tracked))
		clear(r.tracked)
		r.stableHash = ""
		r.renderer.ShowEmpty()
		return Changeset{Removed: removed}, nil
	}

	hash, err := StableHash(p.Orders)
	if err != nil {
		return Changeset{}, err
	}

	if hash == r.stableHash {
		r.refreshWaitTimes(p.Orders)
		return Changeset{Unchanged: p.Orders}, nil
	}
	r.stableHash = hash

	cs := Diff(r.tracked, p.Orders)
	if !cs.Structural() {
		for _, o := range cs.Unchanged {
			r.tracked[o.ID] = o
		}
		r.refreshWaitTimes(p.Orders)
		return cs, nil
	}

	for _, id := range cs.Removed {
		delete(r.tracked, id)
		r.renderer.Remove(id)
	}
	for _, o := range cs.Added {
		r.tracked[o.ID] = o
		r.renderer.Insert(o)
	}
	for _, o := range cs.Updated {
		r.tracked[o.ID] = o
		r.renderer.Replace(o)
	}
	for _, o := range cs.Unchanged {
		r.tracked[o.ID] = o
		r.renderer.UpdateWaitTime(o.ID, o.WaitTimeMinutes)
	}
	r.renderer.Reorder(r.orderedIDs())

	r.logger.Debug("board reconciled", "changes", cs.String())
	return cs, nil
}

func (r *Reconciler) refreshWaitTimes(orders []models.Order) {
	for _, o := range orders {
		if _, ok := r.tracked[o.ID]; ok {
			r.renderer.UpdateWaitTime(o.ID, o.WaitTimeMinutes)
		}
	}
}

func (r *Reconciler) orderedIDs() []int64 {
	orders := slices.Collect(maps.Values(r.tracked))
	slices.SortFunc(orders, CompareOrders)

	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	return ids
}

// Tracked returns the currently rendered orders in board order.
func (r *Reconciler) Tracked() []models.Order {
	r.mu.Lock()
	defer r.mu.Unlock()

	orders := slices.Collect(maps.Values(r.tracked))
	slices.SortFunc(orders, CompareOrders)
	return orders
}

// Reset forgets every rendered order and shows the placeholder.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.tracked)
	r.stableHash = ""
	if r.renderer != nil {
		r.renderer.ShowEmpty()
	}
}

// StableHash hashes orders with their wait times cleared.
func StableHash(orders []models.Order) (string, error) {
	stable := make([]models.Order, len(orders))
	for i, o := range orders {
		stable[i] = o.Stable()
	}

	b, err := json.Marshal(stable)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
