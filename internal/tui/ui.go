package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/Paintersrp/procsup/internal/api"
	"github.com/Paintersrp/procsup/internal/cliutil"
)

const (
	tableTitle          = "Processes"
	detailTitle         = "Detail"
	filterPageName      = "filter"
	defaultPollInterval = time.Second
	killTimeout         = 10 * time.Second
)

// Source supplies process snapshots and accepts kill requests.
type Source interface {
	List(ctx context.Context) (*api.ProcessList, error)
	Kill(ctx context.Context, id uint64, timeout time.Duration) (*api.ExitReport, error)
}

// Option configures UI behaviour.
type Option func(*UI)

// WithPollInterval sets how often the process list is refreshed.
func WithPollInterval(d time.Duration) Option {
	return func(u *UI) {
		if d > 0 {
			u.interval = d
		}
	}
}

// UI coordinates the interactive process table backed by tview.
type UI struct {
	app    *tview.Application
	pages  *tview.Pages
	table  *tview.Table
	detail *tview.TextView
	source Source

	processes map[uint64]api.ProcessStatus
	lastErr   error

	visible       []uint64
	selected      uint64
	detailPretty  bool
	filter        string
	filterExpr    *regexp.Regexp
	detailFocused bool
	interval      time.Duration

	// Select fires the selection callback synchronously; refreshing marks
	// calls made while mu is already held.
	refreshing bool

	// refreshReq coalesces redraw requests from background goroutines.
	refreshReq chan struct{}

	mu sync.RWMutex

	cancelMu sync.Mutex
	cancel   context.CancelFunc

	wg       sync.WaitGroup
	stopOnce sync.Once
	done     chan struct{}
}

// New constructs a UI polling source.
func New(source Source, opts ...Option) *UI {
	app := tview.NewApplication()
	table := tview.NewTable().SetFixed(1, 1).SetSelectable(true, false)
	table.SetBorder(true).SetTitle(tableTitle)

	detail := tview.NewTextView().SetDynamicColors(false).SetWrap(false)
	detail.SetBorder(true).SetTitle(detailTitle)

	flex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(table, 0, 3, true).
		AddItem(detail, 0, 2, false)

	pages := tview.NewPages().AddPage("main", flex, true, true)

	ui := &UI{
		app:          app,
		pages:        pages,
		table:        table,
		detail:       detail,
		source:       source,
		processes:    make(map[uint64]api.ProcessStatus),
		detailPretty: true,
		interval:     defaultPollInterval,
		refreshReq:   make(chan struct{}, 1),
		done:         make(chan struct{}),
	}

	for _, opt := range opts {
		opt(ui)
	}

	table.SetSelectionChangedFunc(func(row, column int) {
		if ui.refreshing {
			return
		}
		ui.mu.Lock()
		defer ui.mu.Unlock()
		ui.syncSelection(row)
		ui.renderDetailLocked()
	})

	app.SetRoot(pages, true)
	app.SetInputCapture(ui.handleKey)

	ui.mu.Lock()
	ui.refreshTableLocked()
	ui.mu.Unlock()

	return ui
}

// Done returns a channel that is closed when the UI stops.
func (u *UI) Done() <-chan struct{} {
	return u.done
}

// Run starts the tview application and polls the source until Stop is invoked
// or the provided context is cancelled.
func (u *UI) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	u.cancelMu.Lock()
	u.cancel = cancel
	u.cancelMu.Unlock()

	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		u.poll(ctx)
	}()

	go u.pumpRefresh(ctx)

	go func() {
		<-ctx.Done()
		u.Stop()
	}()

	err := u.app.Run()

	u.cancelMu.Lock()
	cancel = u.cancel
	u.cancel = nil
	u.cancelMu.Unlock()
	if cancel != nil {
		cancel()
	}

	u.wg.Wait()
	u.Stop()

	return err
}

// Stop terminates the application loop and releases resources.
func (u *UI) Stop() {
	u.stopOnce.Do(func() {
		u.cancelMu.Lock()
		cancel := u.cancel
		u.cancel = nil
		u.cancelMu.Unlock()
		if cancel != nil {
			cancel()
		}
		u.app.Stop()
		close(u.done)
	})
}

func (u *UI) poll(ctx context.Context) {
	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	for {
		u.fetch(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (u *UI) fetch(ctx context.Context) {
	list, err := u.source.List(ctx)
	if ctx.Err() != nil {
		return
	}
	u.mu.Lock()
	u.applySnapshotLocked(list, err)
	u.mu.Unlock()
	u.queueRefresh()
}

func (u *UI) applySnapshotLocked(list *api.ProcessList, err error) {
	u.lastErr = err
	if err != nil || list == nil {
		return
	}
	next := make(map[uint64]api.ProcessStatus, len(list.Processes))
	for _, p := range list.Processes {
		next[p.ID] = p
	}
	u.processes = next
}

func (u *UI) handleKey(event *tcell.EventKey) *tcell.EventKey {
	focus := u.app.GetFocus()
	if focus != u.table && focus != u.detail {
		return event
	}
	switch event.Key() {
	case tcell.KeyEnter:
		u.toggleFocus()
		return nil
	case tcell.KeyUp, tcell.KeyDown:
		return event
	case tcell.KeyRune:
		switch event.Rune() {
		case 'q', 'Q':
			go u.Stop()
			return nil
		case '/':
			u.showFilterPrompt()
			return nil
		case 'j', 'J':
			u.toggleJSON()
			return nil
		case 'k', 'K':
			u.killSelected()
			return nil
		}
	}
	return event
}

func (u *UI) toggleFocus() {
	if u.detailFocused {
		u.app.SetFocus(u.table)
	} else {
		u.app.SetFocus(u.detail)
	}
	u.detailFocused = !u.detailFocused
}

func (u *UI) toggleJSON() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.detailPretty = !u.detailPretty
	u.renderDetailLocked()
}

func (u *UI) killSelected() {
	u.mu.RLock()
	id := u.selected
	proc, ok := u.processes[id]
	u.mu.RUnlock()
	if !ok || proc.State != "running" {
		return
	}

	u.cancelMu.Lock()
	running := u.cancel != nil
	u.cancelMu.Unlock()
	if !running {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), killTimeout)
		defer cancel()
		if _, err := u.source.Kill(ctx, id, killTimeout); err != nil {
			u.app.QueueUpdateDraw(func() {
				u.showErrorModal(fmt.Sprintf("Kill %d failed: %v", id, err))
			})
			return
		}
		u.fetch(ctx)
	}()
}

func (u *UI) showFilterPrompt() {
	u.mu.RLock()
	current := u.filter
	u.mu.RUnlock()

	input := tview.NewInputField().
		SetLabel("Regex filter: ").
		SetText(current).
		SetFieldWidth(40)

	form := tview.NewForm().
		AddFormItem(input).
		AddButton("Apply", func() {
			u.applyFilter(input.GetText())
			u.pages.RemovePage(filterPageName)
			u.app.SetFocus(u.table)
		}).
		AddButton("Cancel", func() {
			u.pages.RemovePage(filterPageName)
			u.app.SetFocus(u.table)
		})

	form.SetBorder(true).SetTitle("Filter Processes")

	grid := tview.NewGrid().
		SetColumns(0, 60, 0).
		SetRows(0, 7, 0).
		AddItem(form, 1, 1, 1, 1, 0, 0, true)

	u.pages.AddPage(filterPageName, grid, true, true)
	u.app.SetFocus(input)
}

func (u *UI) applyFilter(expr string) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		u.mu.Lock()
		u.filter = ""
		u.filterExpr = nil
		u.refreshLocked()
		u.mu.Unlock()
		return
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		u.showErrorModal(fmt.Sprintf("Invalid filter: %v", err))
		return
	}

	u.mu.Lock()
	u.filter = expr
	u.filterExpr = re
	u.refreshLocked()
	u.mu.Unlock()
}

func (u *UI) showErrorModal(message string) {
	modal := tview.NewModal().
		SetText(message).
		AddButtons([]string{"OK"}).
		SetDoneFunc(func(buttonIndex int, buttonLabel string) {
			u.pages.RemovePage(filterPageName)
			u.app.SetFocus(u.table)
		})

	u.pages.RemovePage(filterPageName)
	u.pages.AddPage(filterPageName, modal, true, true)
}

// queueRefresh asks the event loop to redraw. It never blocks, so it is safe
// from any goroutine; handlers already on the event loop use refreshLocked.
func (u *UI) queueRefresh() {
	select {
	case u.refreshReq <- struct{}{}:
	default:
	}
}

// pumpRefresh forwards redraw requests to the event loop until ctx is done.
// QueueUpdateDraw blocks until the loop runs the update, so it is only
// called from here.
func (u *UI) pumpRefresh(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-u.refreshReq:
		}
		u.app.QueueUpdateDraw(func() {
			u.mu.Lock()
			defer u.mu.Unlock()
			u.refreshLocked()
		})
	}
}

func (u *UI) refreshLocked() {
	u.refreshTableLocked()
	u.renderDetailLocked()
}

func (u *UI) refreshTableLocked() {
	u.table.Clear()

	headers := []string{"ID", "PID", "STATE", "AGE", "OUTCOME", "COMMAND"}
	for col, header := range headers {
		cell := tview.NewTableCell(header).
			SetSelectable(false).
			SetAttributes(tcell.AttrBold)
		u.table.SetCell(0, col, cell)
	}

	ids := make([]uint64, 0, len(u.processes))
	for id, proc := range u.processes {
		if u.filterExpr != nil && !u.filterExpr.MatchString(commandLine(proc.Exec, proc.Args)) {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	u.visible = ids

	title := tableTitle
	if u.filter != "" {
		title = fmt.Sprintf("%s /%s/", tableTitle, u.filter)
	}
	if u.lastErr != nil {
		title = fmt.Sprintf("%s [error: %s]", title, cliutil.RedactSecrets(u.lastErr.Error()))
	}
	u.table.SetTitle(title)

	for row, id := range ids {
		proc := u.processes[id]
		age := "-"
		if !proc.StartedAt.IsZero() {
			end := time.Now()
			if proc.Exit != nil && !proc.Exit.ExitedAt.IsZero() {
				end = proc.Exit.ExitedAt
			}
			age = end.Sub(proc.StartedAt).Truncate(time.Second).String()
		}
		command := cliutil.RedactSecrets(commandLine(proc.Exec, proc.Args))
		if len(command) > 80 {
			command = command[:77] + "..."
		}

		values := []string{
			fmt.Sprintf("%d", proc.ID),
			fmt.Sprintf("%d", proc.PID),
			formatState(proc.State),
			age,
			formatOutcome(proc.Exit),
			command,
		}
		for col, value := range values {
			cell := tview.NewTableCell(value)
			if col == 0 {
				cell = cell.SetReference(id)
			}
			u.table.SetCell(row+1, col, cell)
		}
	}

	u.ensureSelectionLocked()
}

func (u *UI) renderDetailLocked() {
	u.detail.Clear()
	proc, ok := u.processes[u.selected]
	if !ok {
		u.detail.SetTitle(detailTitle)
		return
	}

	u.detail.SetTitle(fmt.Sprintf("%s (%d)", detailTitle, proc.ID))

	var data []byte
	var err error
	if u.detailPretty {
		data, err = json.MarshalIndent(proc, "", "  ")
	} else {
		data, err = json.Marshal(proc)
	}
	if err != nil {
		fmt.Fprintf(u.detail, "{\"error\":\"%v\"}\n", err)
		return
	}
	fmt.Fprintf(u.detail, "%s\n", data)
}

func (u *UI) ensureSelectionLocked() {
	u.refreshing = true
	defer func() { u.refreshing = false }()

	if len(u.visible) == 0 {
		u.selected = 0
		u.table.Select(0, 0)
		return
	}

	idx := -1
	for i, id := range u.visible {
		if id == u.selected {
			idx = i
			break
		}
	}
	if idx < 0 {
		idx = 0
		u.selected = u.visible[0]
	}
	u.table.Select(idx+1, 0)
}

func (u *UI) syncSelection(row int) {
	if row <= 0 || row-1 >= len(u.visible) {
		return
	}
	u.selected = u.visible[row-1]
}

func commandLine(exec string, args []string) string {
	if len(args) == 0 {
		return exec
	}
	return exec + " " + strings.Join(args, " ")
}

func formatState(s string) string {
	if s == "" {
		return "-"
	}
	if len(s) <= 1 {
		return strings.ToUpper(s)
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatOutcome(report *api.ExitReport) string {
	switch {
	case report == nil:
		return "-"
	case report.ExitCode != nil:
		return fmt.Sprintf("exit %d", *report.ExitCode)
	case report.Signal != nil:
		return report.Signal.Name
	case report.Abnormal != "":
		return "abnormal"
	default:
		return "-"
	}
}
