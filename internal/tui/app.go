package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Bytekeeper/xdccmon/internal/domain"
	"github.com/Bytekeeper/xdccmon/internal/service"
	"github.com/Bytekeeper/xdccmon/internal/store"
)

// Pane identifies a focusable region of the screen
type Pane int

const (
	PaneTransfers Pane = iota
	PaneResults
	PaneLog
)

// Vertical chrome: one footer line
const ChromeHeight = 1

// Model is the main Bubble Tea model for the application
type Model struct {
	// Services
	TransferSvc *service.TransferService
	SearchSvc   *service.SearchService
	EventLog    *service.EventLog
	History     *store.HistoryStore // may be nil

	// Live event stream from the daemon
	Events <-chan domain.LogEvent

	PollInterval time.Duration

	// Data
	Transfers []domain.TransferRecord
	Results   []domain.SearchResult

	// UI state
	Focus          Pane
	TransferCursor int
	ResultCursor   int
	queryInput     textinput.Model
	querying       bool
	filterInput    textinput.Model
	filtering      bool
	filterTyping   bool
	logView        viewport.Model
	ShowHelp       bool

	// Poll scheduling. At most one snapshot fetch runs at a time;
	// requests arriving while one is in flight coalesce into a single
	// follow-up fetch.
	pollInFlight bool
	pollQueued   bool

	// Dimensions
	Width  int
	Height int
	Ready  bool

	StatusMsg   string
	StatusIsErr bool
}

// NewModel creates a new application model
func NewModel(
	transferSvc *service.TransferService,
	searchSvc *service.SearchService,
	eventLog *service.EventLog,
	history *store.HistoryStore,
	events <-chan domain.LogEvent,
	pollInterval time.Duration,
) Model {
	qi := textinput.New()
	qi.Placeholder = "search the catalog"
	qi.CharLimit = 200

	fi := textinput.New()
	fi.Prompt = "/"
	fi.CharLimit = 100

	if pollInterval <= 0 {
		pollInterval = time.Second
	}

	return Model{
		TransferSvc:  transferSvc,
		SearchSvc:    searchSvc,
		EventLog:     eventLog,
		History:      history,
		Events:       events,
		PollInterval: pollInterval,
		queryInput:   qi,
		filterInput:  fi,
		logView:      viewport.New(0, 0),

		// Init issues the first fetch directly
		pollInFlight: true,
	}
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		PollCmd(m.TransferSvc),
		TickCmd(m.PollInterval),
		WaitForLogEventCmd(m.Events),
	)
}

// schedulePoll requests a snapshot fetch, coalescing while one is in flight
func (m *Model) schedulePoll() tea.Cmd {
	if m.pollInFlight {
		m.pollQueued = true
		return nil
	}
	m.pollInFlight = true
	return PollCmd(m.TransferSvc)
}

// finishPoll marks the in-flight fetch done and starts the queued one, if any
func (m *Model) finishPoll() tea.Cmd {
	m.pollInFlight = false
	if m.pollQueued {
		m.pollQueued = false
		return m.schedulePoll()
	}
	return nil
}

// PollPending reports whether a snapshot fetch is running or queued
func (m Model) PollPending() bool {
	return m.pollInFlight || m.pollQueued
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Ready = true
		m.updateLayout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case TickMsg:
		if cmd := m.schedulePoll(); cmd != nil {
			cmds = append(cmds, cmd)
		}
		cmds = append(cmds, TickCmd(m.PollInterval))
		return m, tea.Batch(cmds...)

	case TransfersMsg:
		m.Transfers = msg.Records
		m.clampCursors()
		if cmd := m.finishPoll(); cmd != nil {
			cmds = append(cmds, cmd)
		}
		if cmd := RecordCompletedCmd(m.History, msg.Removed); cmd != nil {
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case PollFailedMsg:
		// Already logged by the service; keep showing the last snapshot
		if cmd := m.finishPoll(); cmd != nil {
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case SearchResultsMsg:
		// A newer query supersedes this response
		if msg.Query != m.SearchSvc.LastQuery() {
			return m, nil
		}
		m.Results = msg.Results
		m.ResultCursor = 0
		m.Focus = PaneResults
		m.StatusMsg = fmt.Sprintf("%d results for %q", len(msg.Results), msg.Query)
		m.StatusIsErr = false
		return m, ClearStatusCmd(3 * time.Second)

	case TransferStartedMsg:
		if msg.Err != nil {
			m.StatusMsg = fmt.Sprintf("Start failed: %v", msg.Err)
			m.StatusIsErr = true
		} else {
			m.StatusMsg = "Requested: " + msg.FileName
			m.StatusIsErr = false
		}
		// Pick up the daemon's new state without waiting for the next tick
		if cmd := m.schedulePoll(); cmd != nil {
			cmds = append(cmds, cmd)
		}
		cmds = append(cmds, ClearStatusCmd(3*time.Second))
		return m, tea.Batch(cmds...)

	case TransferAbortedMsg:
		if msg.Err != nil {
			m.StatusMsg = fmt.Sprintf("Abort failed: %v", msg.Err)
			m.StatusIsErr = true
		} else {
			m.StatusMsg = fmt.Sprintf("Aborted transfer %d", msg.ID)
			m.StatusIsErr = false
		}
		if cmd := m.schedulePoll(); cmd != nil {
			cmds = append(cmds, cmd)
		}
		cmds = append(cmds, ClearStatusCmd(3*time.Second))
		return m, tea.Batch(cmds...)

	case LogEventMsg:
		if !msg.OK {
			// Stream closed; the program is shutting down
			return m, nil
		}
		m.EventLog.Append(msg.Event)
		m.logView.SetContent(m.renderLogContent())
		m.logView.GotoBottom()
		return m, WaitForLogEventCmd(m.Events)

	case ErrMsg:
		m.StatusMsg = msg.Error()
		m.StatusIsErr = true
		return m, ClearStatusCmd(5 * time.Second)

	case StatusMsg:
		m.StatusMsg = msg.Message
		m.StatusIsErr = msg.IsError
		return m, ClearStatusCmd(3 * time.Second)

	case ClearStatusMsg:
		m.StatusMsg = ""
		m.StatusIsErr = false
		return m, nil
	}

	return m, nil
}

// handleKeyMsg handles keyboard input
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.ShowHelp {
		switch msg.String() {
		case "esc", "?", "q":
			m.ShowHelp = false
		}
		return m, nil
	}

	// Query input mode
	if m.querying {
		switch msg.String() {
		case "esc":
			m.querying = false
			m.queryInput.Blur()
			return m, nil
		case "enter":
			query := m.queryInput.Value()
			m.querying = false
			m.queryInput.Blur()
			if query == "" {
				return m, nil
			}
			m.StatusMsg = "Searching: " + query
			m.StatusIsErr = false
			return m, SearchCmd(m.SearchSvc, query)
		}
		var cmd tea.Cmd
		m.queryInput, cmd = m.queryInput.Update(msg)
		return m, cmd
	}

	// Filter typing mode
	if m.filterTyping {
		switch msg.String() {
		case "esc":
			m.filtering = false
			m.filterTyping = false
			m.filterInput.SetValue("")
			m.filterInput.Blur()
			m.TransferCursor = 0
			return m, nil
		case "enter":
			m.filterTyping = false
			m.filterInput.Blur()
			if m.filterInput.Value() == "" {
				m.filtering = false
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.filterInput, cmd = m.filterInput.Update(msg)
		m.TransferCursor = 0
		return m, cmd
	}

	switch {
	case key.Matches(msg, Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, Keys.Help):
		m.ShowHelp = true
		return m, nil

	case key.Matches(msg, Keys.Escape):
		if m.filtering {
			m.filtering = false
			m.filterInput.SetValue("")
			m.TransferCursor = 0
		}
		return m, nil

	case key.Matches(msg, Keys.NextPane):
		m.Focus = (m.Focus + 1) % 3
		return m, nil

	case key.Matches(msg, Keys.Search):
		m.querying = true
		m.queryInput.SetValue("")
		if suggestions := m.SearchSvc.SuggestQueries("", 1); len(suggestions) > 0 {
			m.queryInput.Placeholder = suggestions[0]
		}
		return m, m.queryInput.Focus()

	case key.Matches(msg, Keys.Filter):
		if m.Focus == PaneTransfers {
			m.filtering = true
			m.filterTyping = true
			return m, m.filterInput.Focus()
		}
		return m, nil

	case key.Matches(msg, Keys.Refresh):
		return m, m.schedulePoll()

	case key.Matches(msg, Keys.Abort):
		if m.Focus == PaneTransfers {
			if rec := m.selectedTransfer(); rec != nil {
				return m, AbortTransferCmd(m.TransferSvc, rec.ID)
			}
		}
		return m, nil

	case key.Matches(msg, Keys.Start):
		if m.Focus == PaneResults {
			if res := m.selectedResult(); res != nil {
				return m, StartTransferCmd(m.TransferSvc, res.Request())
			}
		}
		return m, nil

	case key.Matches(msg, Keys.Down):
		m.moveCursor(1)
		return m, nil

	case key.Matches(msg, Keys.Up):
		m.moveCursor(-1)
		return m, nil

	case key.Matches(msg, Keys.Home):
		m.moveCursorTo(0)
		return m, nil

	case key.Matches(msg, Keys.End):
		m.moveCursorTo(1 << 30)
		return m, nil
	}

	// Remaining keys scroll the log pane when focused
	if m.Focus == PaneLog {
		var cmd tea.Cmd
		m.logView, cmd = m.logView.Update(msg)
		return m, cmd
	}

	return m, nil
}

// visibleTransfers returns the transfer set with the inline filter applied
func (m Model) visibleTransfers() []domain.TransferRecord {
	if !m.filtering {
		return m.Transfers
	}
	return filterTransfers(m.Transfers, m.filterInput.Value())
}

func (m Model) selectedTransfer() *domain.TransferRecord {
	visible := m.visibleTransfers()
	if m.TransferCursor < 0 || m.TransferCursor >= len(visible) {
		return nil
	}
	rec := visible[m.TransferCursor]
	return &rec
}

func (m Model) selectedResult() *domain.SearchResult {
	if m.ResultCursor < 0 || m.ResultCursor >= len(m.Results) {
		return nil
	}
	res := m.Results[m.ResultCursor]
	return &res
}

func (m *Model) moveCursor(delta int) {
	switch m.Focus {
	case PaneTransfers:
		m.TransferCursor = clamp(m.TransferCursor+delta, len(m.visibleTransfers()))
	case PaneResults:
		m.ResultCursor = clamp(m.ResultCursor+delta, len(m.Results))
	case PaneLog:
		if delta > 0 {
			m.logView.LineDown(1)
		} else {
			m.logView.LineUp(1)
		}
	}
}

func (m *Model) moveCursorTo(pos int) {
	switch m.Focus {
	case PaneTransfers:
		m.TransferCursor = clamp(pos, len(m.visibleTransfers()))
	case PaneResults:
		m.ResultCursor = clamp(pos, len(m.Results))
	case PaneLog:
		if pos == 0 {
			m.logView.GotoTop()
		} else {
			m.logView.GotoBottom()
		}
	}
}

func (m *Model) clampCursors() {
	m.TransferCursor = clamp(m.TransferCursor, len(m.visibleTransfers()))
	m.ResultCursor = clamp(m.ResultCursor, len(m.Results))
}

func clamp(pos, length int) int {
	if pos >= length {
		pos = length - 1
	}
	if pos < 0 {
		pos = 0
	}
	return pos
}

// updateLayout updates component sizes based on window size
func (m *Model) updateLayout() {
	if m.Width == 0 || m.Height == 0 {
		return
	}

	contentHeight := m.Height - ChromeHeight
	bottomHeight := contentHeight * 2 / 5
	logWidth := m.Width / 2

	// Account for the pane border and title line
	m.logView.Width = maxInt(logWidth-2, 0)
	m.logView.Height = maxInt(bottomHeight-3, 0)
	m.logView.SetContent(m.renderLogContent())
	m.logView.GotoBottom()

	m.queryInput.Width = maxInt(m.Width/2-6, 10)
	m.filterInput.Width = maxInt(m.Width/3, 10)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
