package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/brewq/internal/display"
	"github.com/desertthunder/brewq/internal/models"
	"github.com/desertthunder/brewq/internal/printing"
	"github.com/desertthunder/brewq/internal/realtime"
	"github.com/desertthunder/brewq/internal/shared"
	"github.com/desertthunder/brewq/internal/tasks"
)

// Bus is the part of [realtime.Bus] the board drives.
type Bus interface {
	SetActive(active bool)
	PauseAll()
	ForceRefresh(source string) error
}

// Actions applies operator commands to orders.
type Actions interface {
	Apply(ctx context.Context, action tasks.Action, id int64) error
}

// Printer starts label print jobs.
type Printer interface {
	Print(ctx context.Context, orderID int64) (*printing.Job, error)
}

// Sound toggles the new-order chime.
type Sound interface {
	Enabled() bool
	Toggle() (bool, error)
}

// Options wires a [Model] to its collaborators. Nil collaborators disable the
// matching keys.
type Options struct {
	Bus         Bus
	Actions     Actions
	Printer     Printer
	Sound       Sound
	Thresholds  models.Thresholds
	PauseOnBlur bool
	Logger      *log.Logger
}

// ViewState represents the current view in the TUI.
type ViewState int

const (
	BoardView ViewState = iota
	ConfirmDeleteView
	AlertView
)

const inboxSize = 128

// Model represents the TUI application state.
type Model struct {
	ctx        context.Context
	opts       Options
	logger     *log.Logger
	view       ViewState
	board      *Board
	reconciler *display.Reconciler
	list       list.Model
	inbox      chan Msg
	alerts     []string
	pending    int64 // order awaiting delete confirmation
	status     string
	paused     bool
	width      int
	height     int
	help       help.Model
	keys       keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	board := NewBoard(opts.Thresholds)
	l := list.New(nil, orderDelegate{}, 80, 20)
	l.Title = "Orders"
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.DisableQuitKeybindings()

	return &Model{
		ctx:        ctx,
		opts:       opts,
		logger:     logger,
		view:       BoardView,
		board:      board,
		reconciler: display.NewReconciler(board, logger),
		list:       l,
		inbox:      make(chan Msg, inboxSize),
		help:       help.New(),
		keys:       newKeyMap(),
	}
}

// Board exposes the renderer for inspection.
func (m *Model) Board() *Board { return m.board }

func (m *Model) post(msg Msg) {
	select {
	case m.inbox <- msg:
	case <-m.ctx.Done():
	}
}

// OrdersCallback is the update bus callback for the orders source.
func (m *Model) OrdersCallback() realtime.Callback {
	return func(data any, raw models.Payload) {
		p, err := display.OrdersFrom(data, raw)
		if err != nil {
			m.logger.Warn("ignoring undecodable orders payload", "error", err)
			return
		}
		m.post(ordersMsg(p))
	}
}

// SetCounts forwards order-count totals to the board header.
func (m *Model) SetCounts(c models.Counts) { m.post(countsMsg(c)) }

// SetThresholds recolours wait times.
func (m *Model) SetThresholds(t models.Thresholds) { m.post(thresholdsMsg(t)) }

// Alert implements printing.Alerter and tasks.Alerter with a blocking banner.
func (m *Model) Alert(text string) { m.post(alertMsg(text)) }

// Notify shows a transient message in the status line.
func (m *Model) Notify(text string) { m.post(notifyMsg(text)) }

// Init starts draining the inbox.
func (m *Model) Init() tea.Cmd {
	return m.waitForInbox()
}

func (m *Model) waitForInbox() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-m.inbox:
			return msg
		case <-m.ctx.Done():
			return tea.Quit()
		}
	}
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-2, max(msg.Height-8, 4))
		return m, nil

	case tea.FocusMsg:
		m.paused = false
		if m.opts.Bus != nil {
			m.opts.Bus.SetActive(true)
		}
		return m, nil

	case tea.BlurMsg:
		if m.opts.Bus != nil {
			m.opts.Bus.SetActive(false)
			if m.opts.PauseOnBlur {
				m.opts.Bus.PauseAll()
				m.paused = true
			}
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case AlertView:
			return m.handleAlertKeys(msg)
		case ConfirmDeleteView:
			return m.handleConfirmKeys(msg)
		default:
			return m.handleBoardKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgOrders:
		m.applyOrders(msg.data.(models.OrdersPayload))
		return m, m.waitForInbox()

	case MsgCounts:
		m.board.UpdateCounts(msg.data.(models.Counts))
		return m, m.waitForInbox()

	case MsgThresholds:
		m.board.SetThresholds(msg.data.(models.Thresholds))
		m.syncList()
		return m, m.waitForInbox()

	case MsgAlert:
		m.alerts = append(m.alerts, msg.data.(string))
		m.view = AlertView
		return m, m.waitForInbox()

	case MsgNotify:
		m.status = msg.data.(string)
		return m, m.waitForInbox()

	case MsgActionDone:
		res := msg.data.(tasks.ActionResult)
		if res.Err == nil {
			m.status = fmt.Sprintf("Order #%d: %s done", res.OrderID, res.Action)
		}
		return m, nil

	case MsgPrintDone:
		res := msg.data.(printing.JobResult)
		m.status = printStatus(res)
		return m, nil
	}
	return m, nil
}

func (m *Model) applyOrders(p models.OrdersPayload) {
	if _, err := m.reconciler.Apply(p); err != nil {
		m.logger.Error("failed to apply orders", "error", err)
		return
	}
	m.syncList()
}

// syncList copies the board rows into the list, keeping the selected order selected.
func (m *Model) syncList() {
	selected, hasSelection := m.selectedID()
	m.list.SetItems(m.board.Items())
	if !hasSelection {
		return
	}
	for i, id := range m.board.IDs() {
		if id == selected {
			m.list.Select(i)
			return
		}
	}
}

func (m *Model) selectedID() (int64, bool) {
	it, ok := m.list.SelectedItem().(orderItem)
	if !ok {
		return 0, false
	}
	return it.order.ID, true
}

func (m *Model) handleBoardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.start):
		return m, m.runAction(tasks.ActionStart)
	case key.Matches(msg, m.keys.complete):
		return m, m.runAction(tasks.ActionComplete)
	case key.Matches(msg, m.keys.remove):
		if id, ok := m.selectedID(); ok && m.opts.Actions != nil {
			m.pending = id
			m.view = ConfirmDeleteView
		}
		return m, nil
	case key.Matches(msg, m.keys.print):
		return m, m.printLabel()
	case key.Matches(msg, m.keys.refresh):
		m.refresh()
		return m, nil
	case key.Matches(msg, m.keys.mute):
		m.toggleSound()
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		id := m.pending
		m.view = BoardView
		m.pending = 0
		return m, m.actionCmd(tasks.ActionDelete, id)
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back):
		m.view = BoardView
		m.pending = 0
		return m, nil
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleAlertKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.enter), key.Matches(msg, m.keys.back):
		if len(m.alerts) > 0 {
			m.alerts = m.alerts[1:]
		}
		if len(m.alerts) == 0 {
			m.view = BoardView
		}
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) runAction(action tasks.Action) tea.Cmd {
	id, ok := m.selectedID()
	if !ok || m.opts.Actions == nil {
		return nil
	}
	return m.actionCmd(action, id)
}

func (m *Model) actionCmd(action tasks.Action, id int64) tea.Cmd {
	m.status = fmt.Sprintf("Order #%d: %s...", id, action)
	actions := m.opts.Actions
	return func() tea.Msg {
		err := actions.Apply(m.ctx, action, id)
		return actionDoneMsg(action, id, err)
	}
}

func (m *Model) printLabel() tea.Cmd {
	id, ok := m.selectedID()
	if !ok || m.opts.Printer == nil {
		return nil
	}
	m.status = fmt.Sprintf("Printing label for order #%d...", id)
	printer := m.opts.Printer
	return func() tea.Msg {
		job, err := printer.Print(m.ctx, id)
		if err != nil {
			return printDoneMsg(printing.JobResult{OrderID: id, Outcome: printing.OutcomeBlocked, Err: err})
		}
		res, err := job.Wait(m.ctx)
		if err != nil {
			res = printing.JobResult{OrderID: id, Outcome: printing.OutcomeTimedOut, Err: err}
		}
		return printDoneMsg(res)
	}
}

func (m *Model) refresh() {
	if m.opts.Bus == nil {
		return
	}
	if err := m.opts.Bus.ForceRefresh(display.OrdersSource); err != nil {
		m.status = fmt.Sprintf("Refresh failed: %v", err)
		return
	}
	m.paused = false
	m.status = "Refreshing..."
}

func (m *Model) toggleSound() {
	if m.opts.Sound == nil {
		return
	}
	on, err := m.opts.Sound.Toggle()
	if err != nil {
		m.logger.Warn("failed to save sound preference", "error", err)
	}
	m.status = "Sound " + onOff(on)
}

func printStatus(res printing.JobResult) string {
	switch res.Outcome {
	case printing.OutcomePrinted:
		return fmt.Sprintf("Label for order #%d sent to printer", res.OrderID)
	case printing.OutcomeClosed:
		return fmt.Sprintf("Label for order #%d closed before printing", res.OrderID)
	case printing.OutcomeTimedOut:
		return fmt.Sprintf("Label for order #%d timed out", res.OrderID)
	case printing.OutcomeBlocked:
		if errors.Is(res.Err, context.Canceled) {
			return ""
		}
		return fmt.Sprintf("Could not open label for order #%d", res.OrderID)
	default:
		return fmt.Sprintf("Printing order #%d failed: %v", res.OrderID, res.Err)
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	switch m.view {
	case AlertView:
		b.WriteString(m.renderAlert())
	case ConfirmDeleteView:
		b.WriteString(m.renderConfirm())
	default:
		b.WriteString(m.renderBoard())
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(styles.help.Render(m.status))
	}
	return b.String()
}

func (m *Model) renderHeader() string {
	c := m.board.Counts()
	title := styles.title.UnsetMarginBottom().Render(fmt.Sprintf("Orders (%d)", m.board.Len()))
	summary := fmt.Sprintf("Pending %d · In progress %d · Completed %d", c.Pending, c.InProgress, c.Completed)
	if m.opts.Sound != nil {
		summary += " · Sound " + onOff(m.opts.Sound.Enabled())
	}
	if m.paused {
		summary += " · " + styles.warn.Render("paused")
	}
	return title + "  " + styles.help.Render(summary)
}

func (m *Model) renderBoard() string {
	body := styles.help.Render("No orders in progress")
	if !m.board.Empty() {
		body = m.list.View()
	}
	return fmt.Sprintf("%s\n\n%s", body, m.help.ShortHelpView(m.keys.ShortHelp()))
}

func (m *Model) renderConfirm() string {
	prompt := styles.warn.Render(fmt.Sprintf("Delete order #%d?", m.pending))
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
	return fmt.Sprintf("%s\n\n%s", prompt, helpView)
}

func (m *Model) renderAlert() string {
	text := "⚠ " + clean(m.alerts[0])
	if n := len(m.alerts) - 1; n > 0 {
		text += fmt.Sprintf(" (+%d more)", n)
	}
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter})
	return fmt.Sprintf("%s\n\n%s", styles.banner.Render(text), helpView)
}
