// package models defines the data model for the order board
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Rank orders statuses on the board. Unknown statuses sort after completed.
func (s Status) Rank() int {
	switch s {
	case StatusPending:
		return 1
	case StatusInProgress:
		return 2
	case StatusCompleted:
		return 3
	default:
		return 4
	}
}

func (s Status) Valid() bool { return s.Rank() < 4 }

// Label is the human readable form used on the board.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusInProgress:
		return "In Progress"
	case StatusCompleted:
		return "Completed"
	default:
		return string(s)
	}
}

// ParseStatus accepts the wire form or a dashed alias ("in-progress").
func ParseStatus(s string) (Status, error) {
	switch s {
	case "pending":
		return StatusPending, nil
	case "in_progress", "in-progress", "progress", "start":
		return StatusInProgress, nil
	case "completed", "complete", "done":
		return StatusCompleted, nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

// CreatedAtLayout is the timestamp format the order server emits.
const CreatedAtLayout = "2006-01-02 15:04:05"

// Order is a single drink order as served by /api/orders/pending.
type Order struct {
	ID              int64           `json:"id"`
	Status          Status          `json:"status"`
	CustomerName    string          `json:"customer_name"`
	Drink           string          `json:"drink"`
	Milk            string          `json:"milk"`
	Syrup           string          `json:"syrup"`
	Foam            string          `json:"foam"`
	Temperature     string          `json:"temperature"`
	ExtraShot       bool            `json:"extra_shot"`
	Notes           string          `json:"notes"`
	Price           decimal.Decimal `json:"price"`
	CreatedAt       string          `json:"created_at"`
	WaitTimeMinutes float64         `json:"wait_time_minutes"`
}

// CreatedTime parses CreatedAt. Unparseable values yield the zero time so they sort first.
func (o Order) CreatedTime() time.Time {
	for _, layout := range []string{CreatedAtLayout, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, o.CreatedAt); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Differs reports whether any displayed field other than the wait time changed.
func (o Order) Differs(other Order) bool {
	return o.Status != other.Status ||
		o.CustomerName != other.CustomerName ||
		o.Drink != other.Drink ||
		o.Milk != other.Milk ||
		o.Syrup != other.Syrup ||
		o.Foam != other.Foam ||
		o.Temperature != other.Temperature ||
		o.ExtraShot != other.ExtraShot ||
		o.Notes != other.Notes ||
		!o.Price.Equal(other.Price)
}

// Stable returns a copy with the volatile wait time cleared, used for content hashing.
func (o Order) Stable() Order {
	o.WaitTimeMinutes = 0
	return o
}

// Counts holds per-status totals from /api/order-count or the orders feed.
type Counts struct {
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Total      int `json:"total"`
}

// Active is the number of orders still on the board.
func (c Counts) Active() int { return c.Pending + c.InProgress }

// DecodeCounts reads counts from a body that either nests them under "counts" or is the counts object itself.
func DecodeCounts(body []byte) (Counts, error) {
	var wrapped struct {
		Counts *Counts `json:"counts"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return Counts{}, err
	}
	if wrapped.Counts != nil {
		return *wrapped.Counts, nil
	}

	var c Counts
	if err := json.Unmarshal(body, &c); err != nil {
		return Counts{}, err
	}
	return c, nil
}

// OrdersPayload is the decoded body of the pending-orders feed.
type OrdersPayload struct {
	Orders    []Order   `json:"orders"`
	Counts    *Counts   `json:"counts,omitempty"`
	Hash      string    `json:"hash,omitempty"`
	Timestamp Timestamp `json:"timestamp"`
}

// Default wait-time thresholds in minutes.
const (
	DefaultYellowThreshold = 5
	DefaultRedThreshold    = 10
)

// Thresholds colour an order by how long it has waited.
type Thresholds struct {
	Yellow int `json:"yellow"`
	Red    int `json:"red"`
}

// WaitLevel classifies a wait time against [Thresholds].
type WaitLevel int

const (
	WaitNormal WaitLevel = iota
	WaitWarning
	WaitCritical
)

func (l WaitLevel) String() string {
	switch l {
	case WaitWarning:
		return "warning"
	case WaitCritical:
		return "critical"
	default:
		return "normal"
	}
}

func DefaultThresholds() Thresholds {
	return Thresholds{Yellow: DefaultYellowThreshold, Red: DefaultRedThreshold}
}

// Valid mirrors the server's rules: both positive and yellow strictly below red.
func (t Thresholds) Valid() bool {
	return t.Yellow > 0 && t.Red > 0 && t.Yellow < t.Red
}

// Level returns the wait level for minutes.
func (t Thresholds) Level(minutes float64) WaitLevel {
	switch {
	case minutes >= float64(t.Red):
		return WaitCritical
	case minutes >= float64(t.Yellow):
		return WaitWarning
	default:
		return WaitNormal
	}
}

// Timestamp is a server timestamp in fractional unix seconds. It also accepts a quoted number.
type Timestamp float64

func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*ts = 0
		return nil
	}
	s := string(b)
	if len(s) >= 2 && s[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	*ts = Timestamp(f)
	return nil
}

// Time converts to [time.Time]. Zero stays zero.
func (ts Timestamp) Time() time.Time {
	if ts == 0 {
		return time.Time{}
	}
	sec := int64(ts)
	nsec := int64((float64(ts) - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

// String renders the value the way the server expects it back in the since parameter.
func (ts Timestamp) String() string {
	return strconv.FormatFloat(float64(ts), 'f', -1, 64)
}

// TimestampOf converts t to a [Timestamp].
func TimestampOf(t time.Time) Timestamp {
	return Timestamp(float64(t.UnixNano()) / 1e9)
}

// Payload is the raw body of one poll together with its change-detection metadata.
//
// An empty Hash means the server did not supply one; such payloads always count as changed.
type Payload struct {
	Source    string          `json:"source,omitempty"`
	Hash      string          `json:"hash,omitempty"`
	Timestamp Timestamp       `json:"timestamp"`
	Body      json.RawMessage `json:"body"`
}

// HasHash reports whether the server supplied a content hash.
func (p Payload) HasHash() bool { return p.Hash != "" }

// Decode unmarshals the body into v.
func (p Payload) Decode(v any) error {
	if len(p.Body) == 0 {
		return fmt.Errorf("empty payload body")
	}
	return json.Unmarshal(p.Body, v)
}

// NewPayload reads the hash and timestamp envelope fields out of body.
func NewPayload(source string, body []byte) (Payload, error) {
	var envelope struct {
		Hash      json.RawMessage `json:"hash"`
		Timestamp Timestamp       `json:"timestamp"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return Payload{}, err
	}

	p := Payload{Source: source, Timestamp: envelope.Timestamp, Body: json.RawMessage(body)}
	if len(envelope.Hash) > 0 && string(envelope.Hash) != "null" {
		var s string
		if err := json.Unmarshal(envelope.Hash, &s); err == nil {
			p.Hash = s
		} else {
			p.Hash = string(envelope.Hash)
		}
	}
	return p, nil
}
