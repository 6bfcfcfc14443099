package services

import (
	"budgetlog/internal/core"
	"budgetlog/internal/view"
)

// CommandKind names one user action.
type CommandKind int

const (
	CmdView CommandKind = iota
	CmdSubmit
	CmdBeginEdit
	CmdCancelEdit
	CmdDelete
	CmdFilter
)

func (k CommandKind) String() string {
	switch k {
	case CmdView:
		return "view"
	case CmdSubmit:
		return "submit"
	case CmdBeginEdit:
		return "begin_edit"
	case CmdCancelEdit:
		return "cancel_edit"
	case CmdDelete:
		return "delete"
	case CmdFilter:
		return "filter"
	default:
		return "unknown"
	}
}

// Command is one user action. ID is used by BeginEdit and Delete, Input by
// Submit, Category by Filter.
type Command struct {
	Kind     CommandKind
	ID       int64
	Input    core.Input
	Category string
}

func View() Command                { return Command{Kind: CmdView} }
func Submit(in core.Input) Command { return Command{Kind: CmdSubmit, Input: in} }
func BeginEdit(id int64) Command   { return Command{Kind: CmdBeginEdit, ID: id} }
func CancelEdit() Command          { return Command{Kind: CmdCancelEdit} }
func Delete(id int64) Command      { return Command{Kind: CmdDelete, ID: id} }
func Filter(category string) Command {
	return Command{Kind: CmdFilter, Category: category}
}

// Result is what a command leaves behind: the re-rendered page, an optional
// notice for the toast, and the error the command hit, if any. Errors here
// are already handled; they are exposed for status codes and tests.
type Result struct {
	Page   view.Page
	Notice *core.Notification
	Err    error
}

const (
	EventAdded         = "transaction.added"
	EventUpdated       = "transaction.updated"
	EventDeleted       = "transaction.deleted"
	EventMissing       = "transaction.missing"
	EventPersistFailed = "storage.failed"

	MsgAdded         = "Transaction added!"
	MsgUpdated       = "Transaction updated!"
	MsgDeleted       = "Transaction deleted."
	MsgMissing       = "That transaction no longer exists."
	MsgPersistFailed = "Could not save to this device. Changes are kept for this session only."
)
