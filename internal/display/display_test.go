package display

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"testing"

	"github.com/desertthunder/brewq/internal/models"
	"github.com/desertthunder/brewq/internal/shared"
	"github.com/shopspring/decimal"
)

type op struct {
	kind string
	id   int64
	ids  []int64
}

// recordingRenderer logs every call so tests can assert on churn.
type recordingRenderer struct {
	ops    []op
	counts []models.Counts
	waits  map[int64]float64
}

func newRecordingRenderer() *recordingRenderer {
	return &recordingRenderer{waits: map[int64]float64{}}
}

func (r *recordingRenderer) Insert(o models.Order)  { r.ops = append(r.ops, op{kind: "insert", id: o.ID}) }
func (r *recordingRenderer) Replace(o models.Order) { r.ops = append(r.ops, op{kind: "replace", id: o.ID}) }
func (r *recordingRenderer) Remove(id int64)        { r.ops = append(r.ops, op{kind: "remove", id: id}) }
func (r *recordingRenderer) Reorder(ids []int64) {
	r.ops = append(r.ops, op{kind: "reorder", ids: slices.Clone(ids)})
}
func (r *recordingRenderer) UpdateWaitTime(id int64, minutes float64) { r.waits[id] = minutes }
func (r *recordingRenderer) ShowEmpty()                               { r.ops = append(r.ops, op{kind: "empty"}) }
func (r *recordingRenderer) UpdateCounts(c models.Counts)             { r.counts = append(r.counts, c) }

func (r *recordingRenderer) kinds() []string {
	var kinds []string
	for _, o := range r.ops {
		kinds = append(kinds, o.kind)
	}
	return kinds
}

func (r *recordingRenderer) reset() { r.ops = nil }

func order(id int64, status models.Status, created string) models.Order {
	return models.Order{
		ID:           id,
		Status:       status,
		CustomerName: fmt.Sprintf("Customer %d", id),
		Drink:        "Latte",
		Milk:         "Oat",
		Temperature:  "Hot",
		Price:        decimal.RequireFromString("4.50"),
		CreatedAt:    created,
	}
}

func payload(orders ...models.Order) models.OrdersPayload {
	return models.OrdersPayload{Orders: orders}
}

func ids(orders []models.Order) []int64 {
	var out []int64
	for _, o := range orders {
		out = append(out, o.ID)
	}
	return out
}

func TestDiff(t *testing.T) {
	prev := map[int64]models.Order{
		1: order(1, models.StatusPending, "2025-01-01 08:00:00"),
		2: order(2, models.StatusPending, "2025-01-01 08:01:00"),
		3: order(3, models.StatusPending, "2025-01-01 08:02:00"),
	}

	t.Run("added and removed", func(t *testing.T) {
		next := []models.Order{prev[2], prev[3], order(4, models.StatusPending, "2025-01-01 08:03:00")}
		cs := Diff(prev, next)

		if !slices.Equal(ids(cs.Added), []int64{4}) {
			t.Errorf("expected added [4], got %v", ids(cs.Added))
		}
		if !slices.Equal(cs.Removed, []int64{1}) {
			t.Errorf("expected removed [1], got %v", cs.Removed)
		}
		if len(cs.Updated) != 0 {
			t.Errorf("expected no updates, got %v", ids(cs.Updated))
		}
		if !slices.Equal(ids(cs.Unchanged), []int64{2, 3}) {
			t.Errorf("expected unchanged [2 3], got %v", ids(cs.Unchanged))
		}
	})

	t.Run("updated iff a compared field differs", func(t *testing.T) {
		two := prev[2]
		two.WaitTimeMinutes = 9
		three := prev[3]
		three.Status = models.StatusInProgress
		cs := Diff(prev, []models.Order{two, three, order(4, models.StatusPending, "")})

		if !slices.Equal(ids(cs.Updated), []int64{3}) {
			t.Errorf("expected updated [3], got %v", ids(cs.Updated))
		}
		if !slices.Equal(ids(cs.Unchanged), []int64{2}) {
			t.Errorf("expected unchanged [2], got %v", ids(cs.Unchanged))
		}
	})

	t.Run("empty previous", func(t *testing.T) {
		cs := Diff(nil, []models.Order{prev[1]})
		if len(cs.Added) != 1 || len(cs.Removed) != 0 {
			t.Errorf("unexpected changeset %s", cs)
		}
	})
}

func TestCompareOrders(t *testing.T) {
	orders := []models.Order{
		order(5, models.StatusInProgress, "2025-01-01 07:00:00"),
		order(4, models.StatusPending, "2025-01-01 09:00:00"),
		order(3, models.StatusPending, "2025-01-01 08:00:00"),
		order(2, models.StatusPending, "2025-01-01 08:00:00"),
		order(1, models.StatusCompleted, "2025-01-01 06:00:00"),
	}
	slices.SortFunc(orders, CompareOrders)

	if got := ids(orders); !slices.Equal(got, []int64{2, 3, 4, 5, 1}) {
		t.Errorf("unexpected order %v", got)
	}
}

func TestWaitText(t *testing.T) {
	tt := []struct {
		in   float64
		want string
	}{
		{0, ""},
		{-1, ""},
		{0.4, "Wait: 0m"},
		{4.6, "Wait: 5m"},
		{12, "Wait: 12m"},
	}
	for _, tc := range tt {
		if got := WaitText(tc.in); got != tc.want {
			t.Errorf("WaitText(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestReconciler(t *testing.T) {
	logger := shared.NewLogger(io.Discard)
	o1 := order(1, models.StatusPending, "2025-01-01 08:00:00")
	o2 := order(2, models.StatusPending, "2025-01-01 08:01:00")
	o3 := order(3, models.StatusInProgress, "2025-01-01 07:00:00")

	t.Run("first snapshot inserts and orders", func(t *testing.T) {
		r := newRecordingRenderer()
		rec := NewReconciler(r, logger)

		cs, err := rec.Apply(payload(o3, o2, o1))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cs.Added) != 3 {
			t.Errorf("expected 3 added, got %s", cs)
		}
		last := r.ops[len(r.ops)-1]
		if last.kind != "reorder" || !slices.Equal(last.ids, []int64{1, 2, 3}) {
			t.Errorf("expected reorder [1 2 3], got %+v", last)
		}
	})

	t.Run("wait-time only changes never recreate elements", func(t *testing.T) {
		r := newRecordingRenderer()
		rec := NewReconciler(r, logger)
		rec.Apply(payload(o1, o2))
		r.reset()

		w1, w2 := o1, o2
		w1.WaitTimeMinutes = 3
		w2.WaitTimeMinutes = 7.6
		cs, err := rec.Apply(payload(w1, w2))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(r.ops) != 0 {
			t.Errorf("expected no structural operations, got %v", r.kinds())
		}
		if cs.Structural() {
			t.Errorf("expected empty changeset, got %s", cs)
		}
		if r.waits[1] != 3 || r.waits[2] != 7.6 {
			t.Errorf("expected wait times refreshed, got %v", r.waits)
		}
	})

	t.Run("changes apply removals then additions then updates then reorder", func(t *testing.T) {
		r := newRecordingRenderer()
		rec := NewReconciler(r, logger)
		rec.Apply(payload(o1, o2, o3))
		r.reset()

		changed := o2
		changed.Notes = "extra hot"
		o4 := order(4, models.StatusPending, "2025-01-01 06:00:00")
		cs, err := rec.Apply(payload(changed, o3, o4))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{"remove", "insert", "replace", "reorder"}
		if !slices.Equal(r.kinds(), want) {
			t.Errorf("expected %v, got %v", want, r.kinds())
		}
		if !slices.Equal(cs.Removed, []int64{1}) || !slices.Equal(ids(cs.Added), []int64{4}) ||
			!slices.Equal(ids(cs.Updated), []int64{2}) {
			t.Errorf("unexpected changeset %s", cs)
		}
		if last := r.ops[len(r.ops)-1]; !slices.Equal(last.ids, []int64{4, 2, 3}) {
			t.Errorf("expected reorder [4 2 3], got %v", last.ids)
		}
	})

	t.Run("empty snapshot clears and resets hash", func(t *testing.T) {
		r := newRecordingRenderer()
		rec := NewReconciler(r, logger)
		rec.Apply(payload(o1, o2))

		cs, err := rec.Apply(payload())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(cs.Removed, []int64{1, 2}) {
			t.Errorf("expected removed [1 2], got %v", cs.Removed)
		}
		if len(rec.Tracked()) != 0 {
			t.Errorf("expected tracked map cleared")
		}
		if r.ops[len(r.ops)-1].kind != "empty" {
			t.Errorf("expected placeholder, got %v", r.kinds())
		}

		r.reset()
		rec.Apply(payload(o1, o2))
		if got := r.kinds(); !slices.Equal(got, []string{"insert", "insert", "reorder"}) {
			t.Errorf("expected the same set to render again after empty, got %v", got)
		}
	})

	t.Run("hash change without field change only refreshes wait times", func(t *testing.T) {
		r := newRecordingRenderer()
		rec := NewReconciler(r, logger)
		rec.Apply(payload(o1, o2))
		r.reset()

		cs, err := rec.Apply(payload(o2, o1))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cs.Structural() || len(r.ops) != 0 {
			t.Errorf("expected no structural change, got %v", r.kinds())
		}
	})

	t.Run("counts are forwarded", func(t *testing.T) {
		r := newRecordingRenderer()
		rec := NewReconciler(r, logger)
		p := payload(o1)
		p.Counts = &models.Counts{Pending: 1, Total: 1}
		rec.Apply(p)
		rec.Apply(p)

		if len(r.counts) != 2 || r.counts[0].Pending != 1 {
			t.Errorf("expected counts forwarded on each apply, got %v", r.counts)
		}
	})

	t.Run("missing render target", func(t *testing.T) {
		rec := NewReconciler(nil, logger)
		if _, err := rec.Apply(payload(o1)); err != shared.ErrRenderTarget {
			t.Errorf("expected ErrRenderTarget, got %v", err)
		}
	})
}

func TestStableHash(t *testing.T) {
	a := order(1, models.StatusPending, "2025-01-01 08:00:00")
	b := a
	b.WaitTimeMinutes = 42

	ha, err := StableHash([]models.Order{a})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hb, _ := StableHash([]models.Order{b})
	if ha != hb {
		t.Error("expected wait time to be excluded from the hash")
	}

	b.Notes = "decaf"
	hc, _ := StableHash([]models.Order{b})
	if ha == hc {
		t.Error("expected notes to change the hash")
	}
}

func TestMarkupRenderer(t *testing.T) {
	logger := shared.NewLogger(io.Discard)

	t.Run("escapes user supplied text", func(t *testing.T) {
		m := NewMarkupRenderer(models.DefaultThresholds())
		o := order(1, models.StatusPending, "2025-01-01 08:00:00")
		o.CustomerName = `<script>alert("x")</script>`
		o.Notes = `<img src=x onerror=alert(1)>`
		m.Insert(o)

		out, err := m.HTML()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(out, "<script>") || strings.Contains(out, "<img") {
			t.Errorf("markup injected into board: %s", out)
		}
		if !strings.Contains(out, "&lt;script&gt;") {
			t.Errorf("expected escaped name in output: %s", out)
		}
	})

	t.Run("wait classes and text", func(t *testing.T) {
		m := NewMarkupRenderer(models.Thresholds{Yellow: 5, Red: 10})
		rec := NewReconciler(m, logger)

		warn := order(1, models.StatusPending, "2025-01-01 08:00:00")
		warn.WaitTimeMinutes = 6.2
		urgent := order(2, models.StatusInProgress, "2025-01-01 08:01:00")
		urgent.WaitTimeMinutes = 11
		rec.Apply(payload(warn, urgent))

		out, _ := m.HTML()
		for _, want := range []string{"wait-time-warning", "wait-time-urgent", "Wait: 6m", "Wait: 11m", "border-warning", "border-info", "Price: $4.50"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output", want)
			}
		}
	})

	t.Run("wait-time refresh keeps revision", func(t *testing.T) {
		m := NewMarkupRenderer(models.DefaultThresholds())
		rec := NewReconciler(m, logger)
		o := order(1, models.StatusPending, "2025-01-01 08:00:00")
		rec.Apply(payload(o))

		o.WaitTimeMinutes = 4
		rec.Apply(payload(o))
		if m.Revision(1) != 1 {
			t.Errorf("expected element to survive wait-time refresh, revision %d", m.Revision(1))
		}
		out, _ := m.HTML()
		if !strings.Contains(out, "Wait: 4m") {
			t.Errorf("expected refreshed wait text: %s", out)
		}

		o.Status = models.StatusInProgress
		rec.Apply(payload(o))
		if m.Revision(1) != 2 {
			t.Errorf("expected replacement on status change, revision %d", m.Revision(1))
		}
	})

	t.Run("empty placeholder", func(t *testing.T) {
		m := NewMarkupRenderer(models.DefaultThresholds())
		rec := NewReconciler(m, logger)
		rec.Apply(payload(order(1, models.StatusPending, "")))
		rec.Apply(payload())

		out, _ := m.HTML()
		if !strings.Contains(out, "No orders in progress") {
			t.Errorf("expected placeholder: %s", out)
		}
		if len(m.IDs()) != 0 {
			t.Errorf("expected no rendered ids, got %v", m.IDs())
		}
	})

	t.Run("reorder ignores unknown ids", func(t *testing.T) {
		m := NewMarkupRenderer(models.DefaultThresholds())
		m.Insert(order(1, models.StatusPending, ""))
		m.Insert(order(2, models.StatusPending, ""))
		m.Reorder([]int64{2, 9, 1})

		if got := m.IDs(); !slices.Equal(got, []int64{2, 1}) {
			t.Errorf("expected [2 1], got %v", got)
		}
	})

	t.Run("page shows active count", func(t *testing.T) {
		m := NewMarkupRenderer(models.DefaultThresholds())
		m.UpdateCounts(models.Counts{Pending: 2, InProgress: 1})

		var b strings.Builder
		if err := m.WritePage(&b, 5); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(b.String(), "Orders (3)") || !strings.Contains(b.String(), `content="5"`) {
			t.Errorf("unexpected page: %s", b.String())
		}
	})
}

func TestDecodeOrders(t *testing.T) {
	body := `{"orders": [{"id": 1, "status": "pending", "price": "3.00"}], "timestamp": 12.5}`
	raw, err := models.NewPayload(OrdersSource, []byte(body))
	if err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	raw.Hash = "etag-hash"

	t.Run("transform", func(t *testing.T) {
		v, err := DecodeOrders(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		p := v.(models.OrdersPayload)
		if len(p.Orders) != 1 || p.Hash != "etag-hash" || p.Timestamp != 12.5 {
			t.Errorf("unexpected payload: %+v", p)
		}
	})

	t.Run("fallback from raw", func(t *testing.T) {
		p, err := OrdersFrom(raw, raw)
		if err != nil || len(p.Orders) != 1 {
			t.Errorf("expected decoded fallback, got %+v (%v)", p, err)
		}
	})

	t.Run("invalid body", func(t *testing.T) {
		_, err := OrdersFrom(nil, models.Payload{Body: []byte(`[]`)})
		if !errors.Is(err, shared.ErrInvalidPayload) {
			t.Errorf("expected ErrInvalidPayload, got %v", err)
		}
	})
}
