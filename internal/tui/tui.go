// Package tui provides the interactive terminal board: categories in a
// sidebar, items and their progress entries in the main pane, and a
// status bar carrying connection state and the current notice.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"taskboard/api"
	"taskboard/internal/board"
	"taskboard/internal/notice"
)

// Ops is the slice of board operations the TUI drives. Every call is
// pessimistic: it hits the backend first and only mutates local state
// on success.
type Ops interface {
	Refresh(ctx context.Context) bool
	AddCategory(ctx context.Context, name, content string) bool
	UpdateCategory(ctx context.Context, c api.Category) bool
	DeleteCategory(ctx context.Context, id int64) bool
	AddItem(ctx context.Context, name, content, itemAt string) bool
	UpdateItem(ctx context.Context, it api.Item) bool
	DeleteItem(ctx context.Context, id int64) bool
	AddProgress(ctx context.Context, itemID int64, name, content, progressAt string) bool
	UpdateProgress(ctx context.Context, p api.Progress) bool
	SetProgressStatus(ctx context.Context, id int64, status api.ProgressStatus) bool
	DeleteProgress(ctx context.Context, id int64) bool
}

// Focus indicates which pane has focus
type Focus int

const (
	FocusCategories Focus = iota
	FocusTasks
)

// Mode indicates the current input mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeAddCategory
	ModeAddItem
	ModeAddProgress
	ModeEdit
	ModeHelp
	ModeConfirmDelete
)

// rowKind distinguishes the flattened rows of the task pane.
type rowKind int

const (
	rowItem rowKind = iota
	rowProgress
)

// row is one visible line of the task pane. Progress rows keep their
// parent item id so actions can resolve the full path.
type row struct {
	kind     rowKind
	item     api.Item
	progress api.Progress
}

// Model represents the TUI state
type Model struct {
	store *board.Store
	ops   Ops
	ctx   context.Context

	// ConnState, when set, is rendered in the status bar.
	connState func() string

	// external events (store changes, notices) funneled into the
	// bubbletea loop
	events chan tea.Msg

	// Selection
	catCursor  int
	taskCursor int
	focus      Focus

	// Mode and input
	mode      Mode
	textInput textinput.Model

	// target of the pending edit or delete
	pendingRow row
	pendingCat api.Category

	// current status-bar notice
	current    notice.Notice
	hasCurrent bool

	// UI dimensions
	width  int
	height int

	// Styles
	catPaneStyle   lipgloss.Style
	taskPaneStyle  lipgloss.Style
	selectedStyle  lipgloss.Style
	doneStyle      lipgloss.Style
	progressStyle  lipgloss.Style
	helpStyle      lipgloss.Style
	dialogStyle    lipgloss.Style
	statusBarStyle lipgloss.Style
	noticeStyles   map[notice.Severity]lipgloss.Style
}

// Message types
type boardChangedMsg struct{}

type noticeMsg struct {
	n notice.Notice
}

type noticeClearedMsg struct{}

type opDoneMsg struct{}

// New creates a new TUI model wired to the board store and operations.
func New(store *board.Store, ops Ops, notices *notice.Queue, connState func() string) *Model {
	ti := textinput.New()
	ti.Placeholder = "Enter text..."
	ti.CharLimit = 256

	m := &Model{
		store:     store,
		ops:       ops,
		ctx:       context.Background(),
		connState: connState,
		events:    make(chan tea.Msg, 32),
		textInput: ti,
		focus:     FocusCategories,
		mode:      ModeNormal,
		catPaneStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		taskPaneStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		selectedStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		doneStyle: lipgloss.NewStyle().
			Strikethrough(true).
			Foreground(lipgloss.Color("240")),
		progressStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),
		helpStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		dialogStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2),
		statusBarStyle: lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1),
		noticeStyles: map[notice.Severity]lipgloss.Style{
			notice.Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
			notice.Success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
			notice.Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
			notice.Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		},
	}

	store.Subscribe(func() {
		select {
		case m.events <- boardChangedMsg{}:
		default:
		}
	})
	if notices != nil {
		notices.Subscribe(func(n notice.Notice) {
			select {
			case m.events <- noticeMsg{n}:
			default:
			}
		})
	}

	return m
}

// Init initializes the TUI
func (m *Model) Init() tea.Cmd {
	m.syncCursors()
	return m.waitEvent()
}

// waitEvent blocks on the external event channel.
func (m *Model) waitEvent() tea.Cmd {
	return func() tea.Msg {
		return <-m.events
	}
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case boardChangedMsg:
		m.syncCursors()
		return m, m.waitEvent()

	case noticeMsg:
		m.current = msg.n
		m.hasCurrent = true
		return m, m.waitEvent()

	case noticeClearedMsg:
		m.hasCurrent = false
		return m, m.waitEvent()

	case opDoneMsg:
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeAddCategory, ModeAddItem, ModeAddProgress:
			return m.handleAddMode(msg)
		case ModeEdit:
			return m.handleEditMode(msg)
		case ModeHelp:
			return m.handleHelpMode(msg)
		case ModeConfirmDelete:
			return m.handleConfirmDeleteMode(msg)
		}
		return m.handleNormalMode(msg)
	}

	if m.mode == ModeAddCategory || m.mode == ModeAddItem || m.mode == ModeAddProgress || m.mode == ModeEdit {
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "tab":
		if m.focus == FocusCategories {
			m.focus = FocusTasks
		} else {
			m.focus = FocusCategories
		}
		return m, nil

	case "up", "k":
		if m.focus == FocusCategories {
			if m.catCursor > 0 {
				m.catCursor--
				m.selectCursorCategory()
			}
		} else if m.taskCursor > 0 {
			m.taskCursor--
		}
		return m, nil

	case "down", "j":
		if m.focus == FocusCategories {
			if m.catCursor < len(m.store.Categories())-1 {
				m.catCursor++
				m.selectCursorCategory()
			}
		} else if m.taskCursor < len(m.visibleRows())-1 {
			m.taskCursor++
		}
		return m, nil

	case "enter", " ":
		if m.focus == FocusCategories {
			if cat, ok := m.cursorCategory(); ok {
				m.store.ToggleCategory(cat.ID)
			}
		} else if r, ok := m.cursorRow(); ok && r.kind == rowItem {
			m.store.ToggleItem(r.item.ID)
		}
		return m, nil

	case "a":
		if m.focus == FocusCategories {
			m.enterInput(ModeAddCategory, "New category name...", "")
		} else {
			m.enterInput(ModeAddItem, "New item name...", "")
		}
		return m, textinput.Blink

	case "p":
		if r, ok := m.cursorRow(); ok && m.focus == FocusTasks {
			m.pendingRow = r
			m.enterInput(ModeAddProgress, "New progress name...", "")
			return m, textinput.Blink
		}
		return m, nil

	case "e":
		if m.focus == FocusCategories {
			if cat, ok := m.cursorCategory(); ok {
				m.pendingCat = cat
				m.mode = ModeEdit
				m.textInput.Reset()
				m.textInput.SetValue(cat.CategoryName)
				m.textInput.Focus()
				return m, textinput.Blink
			}
		} else if r, ok := m.cursorRow(); ok {
			m.pendingRow = r
			m.mode = ModeEdit
			m.textInput.Reset()
			if r.kind == rowItem {
				m.textInput.SetValue(r.item.ItemName)
			} else {
				m.textInput.SetValue(r.progress.ProgressName)
			}
			m.textInput.Focus()
			return m, textinput.Blink
		}
		return m, nil

	case "s":
		if r, ok := m.cursorRow(); ok && r.kind == rowProgress && m.focus == FocusTasks {
			next := nextStatus(r.progress.Status)
			return m, m.runOp(func() bool {
				return m.ops.SetProgressStatus(m.ctx, r.progress.ID, next)
			})
		}
		return m, nil

	case "d":
		if m.focus == FocusCategories {
			if cat, ok := m.cursorCategory(); ok {
				m.pendingCat = cat
				m.pendingRow = row{}
				m.mode = ModeConfirmDelete
			}
		} else if r, ok := m.cursorRow(); ok {
			m.pendingRow = r
			m.pendingCat = api.Category{}
			m.mode = ModeConfirmDelete
		}
		return m, nil

	case "r":
		return m, m.runOp(func() bool { return m.ops.Refresh(m.ctx) })

	case "E":
		m.store.ExpandAll()
		return m, nil

	case "C":
		m.store.CollapseAll()
		return m, nil

	case "?":
		m.mode = ModeHelp
		return m, nil
	}

	return m, nil
}

// enterInput switches to an input mode with the given placeholder and value.
func (m *Model) enterInput(mode Mode, placeholder, value string) {
	m.mode = mode
	m.textInput.Reset()
	m.textInput.Placeholder = placeholder
	m.textInput.SetValue(value)
	m.textInput.Focus()
}

func (m *Model) handleAddMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.Type {
	case tea.KeyEnter:
		value := m.textInput.Value()
		mode := m.mode
		m.mode = ModeNormal
		if value == "" {
			return m, nil
		}
		switch mode {
		case ModeAddCategory:
			return m, m.runOp(func() bool { return m.ops.AddCategory(m.ctx, value, "") })
		case ModeAddItem:
			return m, m.runOp(func() bool { return m.ops.AddItem(m.ctx, value, "", "") })
		case ModeAddProgress:
			itemID := m.pendingRow.item.ID
			if m.pendingRow.kind == rowProgress {
				itemID = m.pendingRow.progress.ItemID
			}
			return m, m.runOp(func() bool {
				return m.ops.AddProgress(m.ctx, itemID, value, "", "")
			})
		}
		return m, nil

	case tea.KeyEsc:
		m.mode = ModeNormal
		return m, nil
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m *Model) handleEditMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.Type {
	case tea.KeyEnter:
		value := m.textInput.Value()
		m.mode = ModeNormal
		if value == "" {
			return m, nil
		}
		if m.pendingCat.ID != 0 {
			cat := m.pendingCat
			cat.CategoryName = value
			m.pendingCat = api.Category{}
			return m, m.runOp(func() bool { return m.ops.UpdateCategory(m.ctx, cat) })
		}
		r := m.pendingRow
		if r.kind == rowItem {
			it := r.item
			it.ItemName = value
			return m, m.runOp(func() bool { return m.ops.UpdateItem(m.ctx, it) })
		}
		p := r.progress
		p.ProgressName = value
		return m, m.runOp(func() bool { return m.ops.UpdateProgress(m.ctx, p) })

	case tea.KeyEsc:
		m.mode = ModeNormal
		m.pendingCat = api.Category{}
		return m, nil
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m *Model) handleHelpMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyEnter:
		m.mode = ModeNormal
		return m, nil
	}
	if msg.String() == "q" {
		m.mode = ModeNormal
		return m, nil
	}
	return m, nil
}

func (m *Model) handleConfirmDeleteMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		m.mode = ModeNormal
		if m.pendingCat.ID != 0 {
			id := m.pendingCat.ID
			m.pendingCat = api.Category{}
			return m, m.runOp(func() bool { return m.ops.DeleteCategory(m.ctx, id) })
		}
		r := m.pendingRow
		if r.kind == rowItem {
			return m, m.runOp(func() bool { return m.ops.DeleteItem(m.ctx, r.item.ID) })
		}
		return m, m.runOp(func() bool { return m.ops.DeleteProgress(m.ctx, r.progress.ID) })

	case "n", "N", "esc":
		m.mode = ModeNormal
		m.pendingCat = api.Category{}
		return m, nil
	}

	if msg.Type == tea.KeyEsc {
		m.mode = ModeNormal
		m.pendingCat = api.Category{}
		return m, nil
	}

	return m, nil
}

// runOp executes a board operation off the update loop. The store
// subscription delivers the resulting re-render.
func (m *Model) runOp(fn func() bool) tea.Cmd {
	return func() tea.Msg {
		fn()
		return opDoneMsg{}
	}
}

func nextStatus(s api.ProgressStatus) api.ProgressStatus {
	switch s {
	case api.StatusNormal:
		return api.StatusCompleted
	case api.StatusCompleted:
		return api.StatusDisabled
	default:
		return api.StatusNormal
	}
}

// syncCursors clamps cursors after the board changed and keeps the
// category cursor aligned with the store's selection.
func (m *Model) syncCursors() {
	cats := m.store.Categories()
	selected := m.store.SelectedID()
	m.catCursor = 0
	for i, c := range cats {
		if c.ID == selected {
			m.catCursor = i
			break
		}
	}
	if rows := m.visibleRows(); m.taskCursor >= len(rows) {
		m.taskCursor = 0
	}
}

func (m *Model) selectCursorCategory() {
	if cat, ok := m.cursorCategory(); ok {
		m.store.SelectCategory(cat.ID)
		m.taskCursor = 0
	}
}

func (m *Model) cursorCategory() (api.Category, bool) {
	cats := m.store.Categories()
	if m.catCursor < 0 || m.catCursor >= len(cats) {
		return api.Category{}, false
	}
	return cats[m.catCursor], true
}

func (m *Model) cursorRow() (row, bool) {
	rows := m.visibleRows()
	if m.taskCursor < 0 || m.taskCursor >= len(rows) {
		return row{}, false
	}
	return rows[m.taskCursor], true
}

// visibleRows flattens the selected category into the task pane rows:
// every item, plus the progress entries of expanded items.
func (m *Model) visibleRows() []row {
	cat, ok := m.store.Selected()
	if !ok {
		return nil
	}
	var rows []row
	for _, it := range cat.Items {
		rows = append(rows, row{kind: rowItem, item: it})
		if !it.Expanded {
			continue
		}
		for _, p := range it.Progresses {
			rows = append(rows, row{kind: rowProgress, item: it, progress: p})
		}
	}
	return rows
}

// View renders the TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		m.width = 80
		m.height = 24
	}

	var b strings.Builder

	catWidth := m.width / 4
	taskWidth := m.width - catWidth - 4

	catContent := m.renderCategoryPane(catWidth - 4)
	catPane := m.catPaneStyle.Width(catWidth).Height(m.height - 4).Render(catContent)

	taskContent := m.renderTaskPane(taskWidth - 4)
	taskPane := m.taskPaneStyle.Width(taskWidth).Height(m.height - 4).Render(taskContent)

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, catPane, taskPane)

	b.WriteString(mainView)
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())

	switch m.mode {
	case ModeAddCategory, ModeAddItem, ModeAddProgress:
		return m.renderInputDialog(m.inputTitle())
	case ModeEdit:
		return m.renderInputDialog("Edit name")
	case ModeHelp:
		return m.renderHelpDialog()
	case ModeConfirmDelete:
		return m.renderConfirmDeleteDialog()
	}

	return b.String()
}

func (m *Model) inputTitle() string {
	switch m.mode {
	case ModeAddCategory:
		return "Add category"
	case ModeAddItem:
		return "Add item"
	case ModeAddProgress:
		return "Add progress"
	}
	return "Input"
}

func (m *Model) renderCategoryPane(width int) string {
	var b strings.Builder
	b.WriteString("Categories\n")
	b.WriteString(strings.Repeat("─", max(width, 1)))
	b.WriteString("\n")

	cats := m.store.Categories()
	if len(cats) == 0 {
		b.WriteString("No categories\n")
		return b.String()
	}

	for i, cat := range cats {
		cursor := " "
		if i == m.catCursor && m.focus == FocusCategories {
			cursor = ">"
		}
		marker := "▸"
		if cat.Expanded {
			marker = "▾"
		}
		name := cat.CategoryName
		if i == m.catCursor && m.focus == FocusCategories {
			name = m.selectedStyle.Render(name)
		}
		b.WriteString(cursor + " " + marker + " " + name + "\n")
	}

	return b.String()
}

func (m *Model) renderTaskPane(width int) string {
	var b strings.Builder

	title := "Items"
	if cat, ok := m.store.Selected(); ok {
		title = cat.CategoryName
	}
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("─", max(width, 1)))
	b.WriteString("\n")

	rows := m.visibleRows()
	if len(rows) == 0 {
		b.WriteString("No items\n")
		return b.String()
	}

	for i, r := range rows {
		cursor := " "
		selected := i == m.taskCursor && m.focus == FocusTasks
		if selected {
			cursor = ">"
		}

		switch r.kind {
		case rowItem:
			marker := "▸"
			if r.item.Expanded {
				marker = "▾"
			}
			name := r.item.ItemName
			if selected {
				name = m.selectedStyle.Render(name)
			}
			line := cursor + " " + marker + " " + name
			if r.item.ItemAt != "" {
				line += m.helpStyle.Render("  " + r.item.ItemAt)
			}
			b.WriteString(line + "\n")

		case rowProgress:
			p := r.progress
			name := p.ProgressName
			if p.Status == api.StatusCompleted {
				name = m.doneStyle.Render(name)
			} else if selected {
				name = m.selectedStyle.Render(name)
			} else {
				name = m.progressStyle.Render(name)
			}
			line := cursor + "   └─" + p.Status.Icon() + " " + name
			if len(p.Notifies) > 0 {
				n := p.Notifies[0]
				badge := "🔔"
				if n.LastExecuted != nil && *n.LastExecuted != "" {
					badge += " " + *n.LastExecuted
				}
				line += m.helpStyle.Render("  " + badge)
			}
			b.WriteString(line + "\n")
		}
	}

	return b.String()
}

func (m *Model) renderStatusBar() string {
	left := ""
	if m.connState != nil {
		left = "push: " + m.connState()
	}
	if m.hasCurrent {
		style, ok := m.noticeStyles[m.current.Severity]
		msg := m.current.Message
		if ok {
			msg = style.Render(msg)
		}
		if left != "" {
			left += "  "
		}
		left += msg
	}

	right := "q:quit  ?:help"

	padding := m.width - lipgloss.Width(left) - len(right) - 2
	if padding < 1 {
		padding = 1
	}

	return m.statusBarStyle.Width(m.width).Render(left + strings.Repeat(" ", padding) + right)
}

func (m *Model) renderInputDialog(title string) string {
	dialog := m.dialogStyle.Render(
		title + "\n\n" +
			m.textInput.View() + "\n\n" +
			m.helpStyle.Render("Enter: confirm  Esc: cancel"),
	)
	return m.centerDialog(dialog)
}

func (m *Model) renderHelpDialog() string {
	help := `Help - Key Bindings

Navigation:
  j/↓    Move down
  k/↑    Move up
  Tab    Switch focus between categories/items
  Enter  Toggle expansion

Actions:
  a      Add category (sidebar) or item (main pane)
  p      Add progress under the selected item
  e      Edit selected name
  s      Cycle progress status
  d      Delete (with confirm)
  r      Reload board from server
  E/C    Expand/collapse everything

General:
  ?      Show this help
  q      Quit

Press any key to close`

	dialog := m.dialogStyle.Render(help)
	return m.centerDialog(dialog)
}

func (m *Model) renderConfirmDeleteDialog() string {
	target := "selected entry"
	if m.pendingCat.ID != 0 {
		target = "category \"" + m.pendingCat.CategoryName + "\" and everything in it"
	} else if m.pendingRow.kind == rowItem {
		target = "item \"" + m.pendingRow.item.ItemName + "\" and its progress entries"
	} else if m.pendingRow.progress.ID != 0 {
		target = "progress \"" + m.pendingRow.progress.ProgressName + "\""
	}

	dialog := m.dialogStyle.Render(
		"Delete " + target + "?\n\n" +
			m.helpStyle.Render("y: yes  n: no"),
	)
	return m.centerDialog(dialog)
}

func (m *Model) centerDialog(dialog string) string {
	lines := strings.Split(dialog, "\n")
	dialogHeight := len(lines)
	dialogWidth := 0
	for _, line := range lines {
		if w := lipgloss.Width(line); w > dialogWidth {
			dialogWidth = w
		}
	}

	topPad := (m.height - dialogHeight) / 2
	leftPad := (m.width - dialogWidth) / 2
	if topPad < 0 {
		topPad = 0
	}
	if leftPad < 0 {
		leftPad = 0
	}

	var b strings.Builder
	for i := 0; i < topPad; i++ {
		b.WriteString("\n")
	}
	for _, line := range lines {
		b.WriteString(strings.Repeat(" ", leftPad))
		b.WriteString(line)
		b.WriteString("\n")
	}

	return b.String()
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
