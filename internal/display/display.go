package display

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/desertthunder/brewq/internal/models"
)

// Renderer applies board mutations to a display surface.
//
// Replace swaps the whole element for an order; it never mutates one in place.
// ShowEmpty clears every element and shows the placeholder.
type Renderer interface {
	Insert(o models.Order)
	Replace(o models.Order)
	Remove(id int64)
	Reorder(ids []int64)
	UpdateWaitTime(id int64, minutes float64)
	ShowEmpty()
	UpdateCounts(c models.Counts)
}

// Changeset is the difference between the rendered orders and a new snapshot.
type Changeset struct {
	Added     []models.Order
	Updated   []models.Order
	Removed   []int64
	Unchanged []models.Order
}

// Structural reports whether any element has to be inserted, replaced or removed.
func (c Changeset) Structural() bool {
	return len(c.Added) > 0 || len(c.Updated) > 0 || len(c.Removed) > 0
}

func (c Changeset) String() string {
	return fmt.Sprintf("added=%d updated=%d removed=%d unchanged=%d",
		len(c.Added), len(c.Updated), len(c.Removed), len(c.Unchanged))
}

// Diff compares orders against the previously rendered snapshot keyed by id.
// Added, Updated and Unchanged keep the order of orders; Removed is sorted by id.
func Diff(prev map[int64]models.Order, orders []models.Order) Changeset {
	var cs Changeset
	seen := make(map[int64]struct{}, len(orders))

	for _, o := range orders {
		seen[o.ID] = struct{}{}
		old, ok := prev[o.ID]
		switch {
		case !ok:
			cs.Added = append(cs.Added, o)
		case old.Differs(o):
			cs.Updated = append(cs.Updated, o)
		default:
			cs.Unchanged = append(cs.Unchanged, o)
		}
	}

	for id := range prev {
		if _, ok := seen[id]; !ok {
			cs.Removed = append(cs.Removed, id)
		}
	}
	slices.Sort(cs.Removed)
	return cs
}

// CompareOrders sorts by status rank, then creation time oldest first, then id.
func CompareOrders(a, b models.Order) int {
	if c := cmp.Compare(a.Status.Rank(), b.Status.Rank()); c != 0 {
		return c
	}
	if c := a.CreatedTime().Compare(b.CreatedTime()); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// WaitText formats a wait time for display. It is empty when minutes is not positive.
func WaitText(minutes float64) string {
	if minutes <= 0 {
		return ""
	}
	return fmt.Sprintf("Wait: %.0fm", math.Round(minutes))
}
