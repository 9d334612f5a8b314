// Package tray shows live action states in the system tray using
// getlantern/systray.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// MenuItem represents a clickable menu item
type MenuItem struct {
	ID       int
	Title    string
	Callback func()
	item     *systray.MenuItem
}

type statusRow struct {
	label string
	text  string
	item  *systray.MenuItem
}

// Tray manages the tray icon, a block of read-only status rows and the
// clickable items below them.
type Tray struct {
	title   string
	tooltip string

	mu     sync.Mutex
	rows   []*statusRow
	items  []*MenuItem
	active bool
	ready  bool

	readyCh chan struct{}
	quitCh  chan struct{}
}

// New creates a new system tray
func New(title, tooltip string) *Tray {
	return &Tray{
		title:   title,
		tooltip: tooltip,
		readyCh: make(chan struct{}),
		quitCh:  make(chan struct{}),
	}
}

// AddStatusRow adds a disabled row that shows "label: text". It must be
// called before Run.
func (t *Tray) AddStatusRow(label string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = append(t.rows, &statusRow{label: label, text: "-"})
	return len(t.rows) - 1
}

// SetStatus updates the text of a status row. Safe from any goroutine.
func (t *Tray) SetStatus(id int, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id < 0 || id >= len(t.rows) {
		return
	}
	row := t.rows[id]
	if row.text == text {
		return
	}
	row.text = text
	if row.item != nil {
		row.item.SetTitle(rowTitle(row.label, text))
	}
}

// Status returns the current text of a status row.
func (t *Tray) Status(id int) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id < 0 || id >= len(t.rows) {
		return ""
	}
	return t.rows[id].text
}

// SetActive switches the icon between the idle and active colors.
func (t *Tray) SetActive(active bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == active {
		return
	}
	t.active = active
	if t.ready {
		systray.SetIcon(icon(active))
	}
}

// AddMenuItem adds a menu item to the tray
func (t *Tray) AddMenuItem(title string, callback func()) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := len(t.items)
	t.items = append(t.items, &MenuItem{ID: id, Title: title, Callback: callback})
	return id
}

// AddSeparator adds a separator to the menu
func (t *Tray) AddSeparator() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = append(t.items, nil) // nil indicates separator
}

// SetItemChecked sets the checked state of a menu item
func (t *Tray) SetItemChecked(id int, checked bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id < 0 || id >= len(t.items) || t.items[id] == nil || t.items[id].item == nil {
		return
	}
	if checked {
		t.items[id].item.Check()
	} else {
		t.items[id].item.Uncheck()
	}
}

// Ready is closed once the menu has been built.
func (t *Tray) Ready() <-chan struct{} {
	return t.readyCh
}

// Done is closed when the tray exits.
func (t *Tray) Done() <-chan struct{} {
	return t.quitCh
}

// Run starts the tray event loop (blocks)
func (t *Tray) Run() {
	systray.Run(t.setupMenu, func() { close(t.quitCh) })
}

// setupMenu is called when systray is ready
func (t *Tray) setupMenu() {
	t.mu.Lock()
	defer t.mu.Unlock()

	systray.SetTitle(t.title)
	systray.SetTooltip(t.tooltip)
	systray.SetIcon(icon(t.active))

	for _, row := range t.rows {
		row.item = systray.AddMenuItem(rowTitle(row.label, row.text), "")
		row.item.Disable()
	}
	if len(t.rows) > 0 && len(t.items) > 0 {
		systray.AddSeparator()
	}

	for _, menuItem := range t.items {
		if menuItem == nil {
			systray.AddSeparator()
			continue
		}
		menuItem.item = systray.AddMenuItem(menuItem.Title, "")
		if menuItem.Callback == nil {
			continue
		}
		go func(mi *MenuItem) {
			for {
				select {
				case <-mi.item.ClickedCh:
					mi.Callback()
				case <-t.quitCh:
					return
				}
			}
		}(menuItem)
	}

	t.ready = true
	close(t.readyCh)
}

// Stop stops the tray
func (t *Tray) Stop() {
	systray.Quit()
}

func rowTitle(label, text string) string {
	return label + ": " + text
}
