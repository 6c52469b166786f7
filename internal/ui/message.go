package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/brewq/internal/models"
	"github.com/desertthunder/brewq/internal/printing"
	"github.com/desertthunder/brewq/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgOrders MsgKind = iota
	MsgCounts
	MsgAlert
	MsgNotify
	MsgActionDone
	MsgPrintDone
	MsgThresholds
)

// ordersMsg is the constructor for [MsgOrders]
func ordersMsg(p models.OrdersPayload) Msg {
	return Msg{kind: MsgOrders, data: p}
}

// countsMsg is the constructor for [MsgCounts]
func countsMsg(c models.Counts) Msg {
	return Msg{kind: MsgCounts, data: c}
}

// alertMsg is the constructor for [MsgAlert]
func alertMsg(text string) Msg {
	return Msg{kind: MsgAlert, data: text}
}

// notifyMsg is the constructor for [MsgNotify]
func notifyMsg(text string) Msg {
	return Msg{kind: MsgNotify, data: text}
}

// actionDoneMsg is the constructor for [MsgActionDone]
func actionDoneMsg(action tasks.Action, id int64, err error) Msg {
	return Msg{kind: MsgActionDone, data: tasks.ActionResult{OrderID: id, Action: action, Err: err}}
}

// printDoneMsg is the constructor for [MsgPrintDone]
func printDoneMsg(result printing.JobResult) Msg {
	return Msg{kind: MsgPrintDone, data: result}
}

// thresholdsMsg is the constructor for [MsgThresholds]
func thresholdsMsg(t models.Thresholds) Msg {
	return Msg{kind: MsgThresholds, data: t}
}
