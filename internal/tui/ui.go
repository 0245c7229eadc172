// Package tui renders the live monitor view: a table of target processes
// refreshed on every snapshot.
package tui

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/Paintersrp/reap/internal/supervise"
)

const tableTitle = "Target processes"

// UI coordinates the interactive monitor interface backed by tview.
type UI struct {
	app   *tview.Application
	table *tview.Table
	snaps chan supervise.Snapshot

	stopOnce sync.Once
	done     chan struct{}
}

// New constructs the monitor UI.
func New() *UI {
	app := tview.NewApplication()
	table := tview.NewTable().SetFixed(1, 0).SetSelectable(true, false)
	table.SetBorder(true).SetTitle(tableTitle)

	ui := &UI{
		app:   app,
		table: table,
		snaps: make(chan supervise.Snapshot, 8),
		done:  make(chan struct{}),
	}

	app.SetRoot(table, true)
	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch {
		case event.Key() == tcell.KeyCtrlC:
			ui.Stop()
			return nil
		case event.Key() == tcell.KeyRune && (event.Rune() == 'q' || event.Rune() == 'Q'):
			ui.Stop()
			return nil
		}
		return event
	})

	ui.render(supervise.Snapshot{})
	return ui
}

// SnapshotSink exposes the channel where monitor snapshots should be
// delivered.
func (u *UI) SnapshotSink() chan<- supervise.Snapshot {
	return u.snaps
}

// Run drives the UI until Stop is called or the context is cancelled.
func (u *UI) Run(ctx context.Context) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				u.Stop()
				return
			case <-u.done:
				return
			case snap := <-u.snaps:
				u.app.QueueUpdateDraw(func() {
					u.render(snap)
				})
			}
		}
	}()
	defer u.Stop()
	return u.app.Run()
}

// Stop terminates the UI event loop. Safe to call multiple times.
func (u *UI) Stop() {
	u.stopOnce.Do(func() {
		close(u.done)
		u.app.Stop()
	})
}

func (u *UI) render(snap supervise.Snapshot) {
	u.table.Clear()
	headers := []string{"PID", "PPID", "STARTED", "COMMAND"}
	for col, header := range headers {
		cell := tview.NewTableCell(header).
			SetTextColor(tcell.ColorYellow).
			SetSelectable(false).
			SetAttributes(tcell.AttrBold)
		u.table.SetCell(0, col, cell)
	}

	for row, rec := range snap.Targets {
		started := "-"
		if !rec.StartedAt.IsZero() {
			started = rec.StartedAt.Format(time.DateTime)
		}
		u.table.SetCell(row+1, 0, tview.NewTableCell(fmt.Sprintf("%d", rec.PID)))
		u.table.SetCell(row+1, 1, tview.NewTableCell(fmt.Sprintf("%d", rec.ParentPID)))
		u.table.SetCell(row+1, 2, tview.NewTableCell(started))
		u.table.SetCell(row+1, 3, tview.NewTableCell(rec.Command).SetExpansion(1))
	}

	title := tableTitle
	if !snap.Taken.IsZero() {
		title = fmt.Sprintf("%s (%d) at %s", tableTitle, len(snap.Targets), snap.Taken.Format(time.TimeOnly))
	}
	u.table.SetTitle(title)
}
