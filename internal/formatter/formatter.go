// package formatter renders order snapshots as plain text, CSV, Markdown or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/brewq/internal/display"
	"github.com/desertthunder/brewq/internal/models"
	"github.com/desertthunder/brewq/internal/shared"
)

// Format selects an output encoding.
type Format string

const (
	FormatText     Format = "text"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// Formats lists every supported format, in help order.
var Formats = []Format{FormatText, FormatCSV, FormatMarkdown, FormatJSON}

// ParseFormat accepts a format name or a common alias (txt, md).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text", "txt", "table":
		return FormatText, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
}

// Details joins the drink modifiers shown under the drink name.
func Details(o models.Order) string {
	parts := []string{}
	for _, p := range []string{o.Temperature, o.Milk, o.Syrup, o.Foam} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if o.ExtraShot {
		parts = append(parts, "extra shot")
	}
	return strings.Join(parts, ", ")
}

// Sorted returns the orders in board order without touching the input.
func Sorted(orders []models.Order) []models.Order {
	out := append([]models.Order(nil), orders...)
	slices.SortStableFunc(out, display.CompareOrders)
	return out
}

var csvHeaders = []string{"ID", "Status", "Customer", "Drink", "Details", "Notes", "Price", "Created", "Wait"}

func record(o models.Order) []string {
	return []string{
		strconv.FormatInt(o.ID, 10),
		string(o.Status),
		o.CustomerName,
		o.Drink,
		Details(o),
		o.Notes,
		o.Price.StringFixed(2),
		o.CreatedAt,
		strconv.FormatFloat(o.WaitTimeMinutes, 'f', 1, 64),
	}
}

// OrdersToCSV converts orders to CSV with columns: ID, Status, Customer, Drink, Details, Notes, Price, Created, Wait
func OrdersToCSV(p models.OrdersPayload) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(csvHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, o := range Sorted(p.Orders) {
		if err := writer.Write(record(o)); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// OrdersToMarkdown converts orders to a Markdown document grouped by status.
func OrdersToMarkdown(p models.OrdersPayload) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Orders (%d)\n\n", len(p.Orders)))
	if p.Counts != nil {
		buf.WriteString(fmt.Sprintf("**Pending**: %d\n", p.Counts.Pending))
		buf.WriteString(fmt.Sprintf("**In Progress**: %d\n", p.Counts.InProgress))
		buf.WriteString(fmt.Sprintf("**Completed**: %d\n\n", p.Counts.Completed))
	}

	if len(p.Orders) == 0 {
		buf.WriteString("_No orders in progress_\n")
		return buf.Bytes(), nil
	}

	var current models.Status
	for _, o := range Sorted(p.Orders) {
		if o.Status != current {
			current = o.Status
			buf.WriteString(fmt.Sprintf("## %s\n\n", current.Label()))
		}
		line := fmt.Sprintf("- **#%d %s**: %s", o.ID, markdownEscape(o.CustomerName), markdownEscape(o.Drink))
		if d := Details(o); d != "" {
			line += fmt.Sprintf(" (%s)", markdownEscape(d))
		}
		if w := display.WaitText(o.WaitTimeMinutes); w != "" {
			line += " · " + w
		}
		buf.WriteString(line + "\n")
		if o.Notes != "" {
			buf.WriteString(fmt.Sprintf("  > %s\n", markdownEscape(o.Notes)))
		}
	}
	buf.WriteString("\n")

	return buf.Bytes(), nil
}

var markdownReplacer = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`, "<", "&lt;", ">", "&gt;",
)

func markdownEscape(s string) string { return markdownReplacer.Replace(s) }

// OrdersToText renders orders as a bordered table followed by a summary line.
func OrdersToText(p models.OrdersPayload) ([]byte, error) {
	var buf bytes.Buffer

	if len(p.Orders) == 0 {
		buf.WriteString("No orders in progress\n")
	} else {
		t := table.New().Headers("ID", "Status", "Customer", "Drink", "Details", "Price", "Wait")
		for _, o := range Sorted(p.Orders) {
			t.Row(
				strconv.FormatInt(o.ID, 10),
				o.Status.Label(),
				o.CustomerName,
				o.Drink,
				Details(o),
				o.Price.StringFixed(2),
				display.WaitText(o.WaitTimeMinutes),
			)
		}
		buf.WriteString(t.Render())
		buf.WriteString("\n")
	}

	if p.Counts != nil {
		buf.WriteString(fmt.Sprintf("Pending: %d  In progress: %d  Completed: %d\n",
			p.Counts.Pending, p.Counts.InProgress, p.Counts.Completed))
	}
	return buf.Bytes(), nil
}

// OrdersToJSON converts the payload to indented JSON with orders in board order.
func OrdersToJSON(p models.OrdersPayload) ([]byte, error) {
	p.Orders = Sorted(p.Orders)
	if p.Orders == nil {
		p.Orders = []models.Order{}
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal orders: %w", err)
	}
	return append(data, '\n'), nil
}

// Orders encodes p in format.
func Orders(p models.OrdersPayload, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return OrdersToCSV(p)
	case FormatMarkdown:
		return OrdersToMarkdown(p)
	case FormatJSON:
		return OrdersToJSON(p)
	case FormatText, "":
		return OrdersToText(p)
	}
	return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
}

// WriteOrders encodes p in format and writes it to w.
func WriteOrders(w io.Writer, p models.OrdersPayload, format Format) error {
	data, err := Orders(p, format)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write orders: %w", err)
	}
	return nil
}

// WriteOrdersFile writes p to path in format.
//
// Defaults to orders.<ext> in the working directory when path is empty.
func WriteOrdersFile(p models.OrdersPayload, format Format, path string) (string, error) {
	if path == "" {
		path = "orders" + Extension(format)
	}

	data, err := Orders(p, format)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", format, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", format, err)
	}
	return path, nil
}

// Extension is the conventional file extension for format.
func Extension(format Format) string {
	switch format {
	case FormatCSV:
		return ".csv"
	case FormatMarkdown:
		return ".md"
	case FormatJSON:
		return ".json"
	default:
		return ".txt"
	}
}
