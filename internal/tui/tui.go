package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/lox/blackjack/internal/blackjack"
	"github.com/lox/blackjack/internal/deck"
)

const sidebarMinWidth = 34

// Actions is the set of requests the UI can make of a game server.
type Actions interface {
	CreateGame(playerName, roomName string) error
	JoinGame(gameID, playerName string) error
	LeaveGame() error
	RestartGame() error
	StartGame() error
	Hit() error
	Stand() error
	ListGames() error
	ConnectionID() string
}

// StateMsg carries a game snapshot from the server
type StateMsg struct {
	State blackjack.State
}

// GameListMsg carries the server's list of live games
type GameListMsg struct {
	Games []blackjack.Summary
}

// GameCreatedMsg reports a game created on our behalf
type GameCreatedMsg struct {
	GameID string
}

// GameLeftMsg reports that we left a game
type GameLeftMsg struct {
	GameID string
}

// ServerErrorMsg carries an error reply from the server
type ServerErrorMsg struct {
	Code    string
	Message string
}

// DisconnectedMsg signals that the server connection has gone away
type DisconnectedMsg struct {
	Err error
}

// TUIModel represents the Bubble Tea model for a blackjack table
type TUIModel struct {
	actions    Actions
	playerName string
	logger     *log.Logger

	// UI components
	logViewport viewport.Model
	actionInput textinput.Model

	// State
	gameLog     []string
	state       *blackjack.State
	quitting    bool
	focusedPane int // 0 = log, 1 = input

	// Dimensions
	width  int
	height int
}

// NewTUIModel creates a new TUI model that sends requests through actions
func NewTUIModel(actions Actions, playerName string, logger *log.Logger) *TUIModel {
	vp := viewport.New(10, 5)
	vp.SetContent("")

	ti := textinput.New()
	ti.Placeholder = "/create, /join <id>, /list or /help"
	ti.Focus()
	ti.CharLimit = 100
	ti.Width = 60
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA"))
	ti.Prompt = "> "

	return &TUIModel{
		actions:     actions,
		playerName:  playerName,
		logger:      logger.WithPrefix("tui"),
		logViewport: vp,
		actionInput: ti,
		focusedPane: 1,
	}
}

// Init initializes the TUI model
func (m *TUIModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages in the TUI
func (m *TUIModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case StateMsg:
		m.applyState(msg.State)

	case GameListMsg:
		m.showGames(msg.Games)

	case GameCreatedMsg:
		m.AddLogEntry(SuccessStyle.Render("Created game " + msg.GameID))

	case GameLeftMsg:
		if m.state != nil && m.state.ID == msg.GameID {
			m.state = nil
		}
		m.AddLogEntry(fmt.Sprintf("Left game %s", msg.GameID))

	case ServerErrorMsg:
		m.AddLogEntry(ErrorStyle.Render(fmt.Sprintf("Error: %s (%s)", msg.Message, msg.Code)))

	case DisconnectedMsg:
		if msg.Err != nil {
			m.logger.Error("Disconnected", "error", msg.Err)
		}
		m.quitting = true
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "tab":
			if m.focusedPane == 0 {
				m.focusedPane = 1
				m.actionInput.Focus()
			} else {
				m.focusedPane = 0
				m.actionInput.Blur()
			}
			return m, nil
		case "enter":
			if m.focusedPane == 1 {
				input := strings.TrimSpace(m.actionInput.Value())
				m.actionInput.SetValue("")
				if cmd := m.runCommand(input); cmd != nil {
					return m, cmd
				}
				return m, nil
			}
		}

		// Keys scroll the log only while it has focus
		var cmd tea.Cmd
		if m.focusedPane == 0 {
			m.logViewport, cmd = m.logViewport.Update(msg)
		} else {
			m.actionInput, cmd = m.actionInput.Update(msg)
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.actionInput, cmd = m.actionInput.Update(msg)
	cmds = append(cmds, cmd)
	m.logViewport, cmd = m.logViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// runCommand interprets a line typed into the input box
func (m *TUIModel) runCommand(input string) tea.Cmd {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return nil
	}
	command := strings.TrimPrefix(strings.ToLower(fields[0]), "/")
	args := fields[1:]

	var err error
	switch command {
	case "create", "new":
		err = m.actions.CreateGame(m.playerName, strings.Join(args, " "))
	case "join":
		if len(args) != 1 {
			m.AddLogEntry(WarningStyle.Render("Usage: /join <game id>"))
			return nil
		}
		err = m.actions.JoinGame(args[0], m.playerName)
	case "start", "deal":
		err = m.actions.StartGame()
	case "hit", "h":
		err = m.actions.Hit()
	case "stand", "s":
		err = m.actions.Stand()
	case "restart":
		err = m.actions.RestartGame()
	case "leave":
		err = m.actions.LeaveGame()
	case "list", "games":
		err = m.actions.ListGames()
	case "help", "?":
		m.showHelp()
	case "quit", "exit", "q":
		m.quitting = true
		return tea.Quit
	default:
		m.AddLogEntry(WarningStyle.Render(fmt.Sprintf("Unknown command %q, try /help", fields[0])))
	}

	if err != nil {
		m.logger.Debug("Request failed", "command", command, "error", err)
		m.AddLogEntry(ErrorStyle.Render(fmt.Sprintf("%s: %v", command, err)))
	}
	return nil
}

// applyState stores a snapshot and logs what changed since the last one
func (m *TUIModel) applyState(next blackjack.State) {
	prev := m.state
	m.state = &next

	if prev == nil || prev.ID != next.ID {
		m.AddLogEntry(fmt.Sprintf("Joined %q (%s)", next.Name, next.ID))
	}

	me := m.actions.ConnectionID()
	if prev == nil || prev.Status != next.Status {
		switch next.Status {
		case blackjack.WaitingForPlayers:
			if prev != nil && prev.ID == next.ID {
				m.AddLogEntry("Table reset, waiting for players")
			}
		case blackjack.InProgress:
			m.AddLogEntry(HeaderStyle.Render(" New round "))
		case blackjack.Finished:
			if next.WinnerMessage != "" {
				m.AddLogEntry(SuccessStyle.Render(next.WinnerMessage))
			}
		}
	}

	if next.Status == blackjack.InProgress && next.CurrentTurn != "" &&
		(prev == nil || prev.CurrentTurn != next.CurrentTurn) {
		switch next.CurrentTurn {
		case me:
			m.AddLogEntry(TurnStyle.Render("Your turn: /hit or /stand"))
		case blackjack.DealerID:
			m.AddLogEntry("Dealer plays")
		default:
			if p, ok := next.Player(next.CurrentTurn); ok {
				m.AddLogEntry(fmt.Sprintf("%s to act", p.Name))
			}
		}
	}

	if p, ok := next.Player(me); ok && p.IsBusted {
		if prevMe, seen := prevPlayer(prev, me); !seen || !prevMe.IsBusted {
			m.AddLogEntry(ErrorStyle.Render(fmt.Sprintf("Bust with %d", p.Score)))
		}
	}
}

func prevPlayer(s *blackjack.State, id string) (blackjack.Player, bool) {
	if s == nil {
		return blackjack.Player{}, false
	}
	return s.Player(id)
}

func (m *TUIModel) showGames(games []blackjack.Summary) {
	if len(games) == 0 {
		m.AddLogEntry("No games running, /create one")
		return
	}
	m.AddLogEntry(fmt.Sprintf("%d game(s), /join <id> to sit down:", len(games)))
	m.AddLogEntry(RenderGameList(games))
}

func (m *TUIModel) showHelp() {
	for _, line := range []string{
		"/create [name]   start a new table",
		"/join <id>       sit at a table",
		"/list            list tables",
		"/start           deal a round",
		"/hit, /stand     play your hand",
		"/restart         reset the table",
		"/leave           leave the table",
		"/quit            exit",
	} {
		m.AddLogEntry(InfoStyle.Render(line))
	}
}

// View renders the TUI
func (m *TUIModel) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	actionContent := m.renderActionPane()
	actionStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#04B575")).
		Width(max(m.width-2, 1))
	actionPane := actionStyle.Render(actionContent)

	sidebarWidth := m.sidebarWidth()
	paneHeight := max(m.height-lipgloss.Height(actionPane)-2, 1)

	sidebarPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(sidebarWidth).
		Height(paneHeight).
		Render(m.RenderTable())

	m.logViewport.Width = max(m.width-sidebarWidth-4, 1)
	m.logViewport.Height = paneHeight

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(m.logViewport.Width).
		Height(paneHeight)
	if m.focusedPane == 0 {
		logStyle = logStyle.BorderForeground(lipgloss.Color("#04B575"))
	}
	logPane := logStyle.Render(m.logViewport.View())

	topRow := lipgloss.JoinHorizontal(lipgloss.Top, logPane, sidebarPane)
	return lipgloss.JoinVertical(lipgloss.Top, topRow, actionPane)
}

func (m *TUIModel) sidebarWidth() int {
	w := sidebarMinWidth
	if tw := lipgloss.Width(m.RenderTable()); tw > w {
		w = tw
	}
	return w
}

func (m *TUIModel) resize() {
	m.logViewport.Width = max(m.width-m.sidebarWidth()-4, 1)
	m.logViewport.Height = max(m.height-8, 1)
	m.actionInput.Width = max(m.width-8, 10)
	m.logViewport.GotoBottom()
}

// RenderTable renders the current game for the sidebar
func (m *TUIModel) RenderTable() string {
	if m.state == nil {
		return InfoStyle.Render("Not at a table")
	}
	s := m.state
	me := m.actions.ConnectionID()

	var b strings.Builder
	b.WriteString(HeaderStyle.Render(" " + s.Name + " "))
	b.WriteString("\n")
	b.WriteString(InfoStyle.Render(s.ID))
	b.WriteString("\n")
	b.WriteString(statusLine(s.Status))
	b.WriteString("\n\n")

	for _, p := range s.Players {
		marker := "  "
		if p.ID == s.CurrentTurn {
			marker = TurnStyle.Render("> ")
		}
		name := p.Name
		if p.ID == me {
			name += " (you)"
		}
		b.WriteString(marker + name)
		b.WriteString("\n    ")
		b.WriteString(formatHand(p.Hand))
		if len(p.Hand) > 0 {
			b.WriteString(fmt.Sprintf("  %s", scoreText(p)))
		}
		b.WriteString("\n")
	}

	if s.WinnerMessage != "" {
		b.WriteString("\n")
		b.WriteString(SuccessStyle.Render(s.WinnerMessage))
	}
	return b.String()
}

func statusLine(s blackjack.Status) string {
	switch s {
	case blackjack.WaitingForPlayers:
		return WarningStyle.Render("Waiting for players")
	case blackjack.InProgress:
		return TurnStyle.Render("In progress")
	case blackjack.Finished:
		return InfoStyle.Render("Finished")
	}
	return s.String()
}

// scoreText shows a score only when every card counted toward it is visible
func scoreText(p blackjack.Player) string {
	for _, c := range p.Hand {
		if c.Hidden {
			return InfoStyle.Render("(?)")
		}
	}
	text := fmt.Sprintf("(%d)", p.Score)
	switch {
	case p.IsBusted:
		return ErrorStyle.Render(text + " bust")
	case p.IsStanding:
		return text + " stand"
	}
	return text
}

// formatHand formats cards with colors, hiding face-down cards
func formatHand(cards []deck.Card) string {
	if len(cards) == 0 {
		return InfoStyle.Render("no cards")
	}

	formatted := make([]string, 0, len(cards))
	for _, card := range cards {
		switch {
		case card.Hidden:
			formatted = append(formatted, HiddenCardStyle.Render("??"))
		case card.IsRed():
			formatted = append(formatted, RedCardStyle.Render(card.String()))
		default:
			formatted = append(formatted, BlackCardStyle.Render(card.String()))
		}
	}
	return "[" + strings.Join(formatted, " ") + "]"
}

// renderActionPane renders the action input pane
func (m *TUIModel) renderActionPane() string {
	var content strings.Builder

	switch {
	case m.state == nil:
		m.actionInput.Placeholder = "/create, /join <id>, /list or /help"
	case m.state.Status == blackjack.InProgress && m.state.CurrentTurn == m.actions.ConnectionID():
		content.WriteString(ActionsStyle.Render("Actions: [hit] [stand]"))
		content.WriteString("\n")
		m.actionInput.Placeholder = "hit or stand"
	case m.state.Status == blackjack.InProgress:
		content.WriteString(TurnStyle.Render("Waiting..."))
		content.WriteString("\n")
		m.actionInput.Placeholder = "/help for commands"
	default:
		m.actionInput.Placeholder = "/start to deal, /restart, /leave"
	}

	content.WriteString(m.actionInput.View())
	content.WriteString("\n")

	if m.focusedPane == 0 {
		content.WriteString(InfoStyle.Render("Log focused: ↑↓ scroll, PgUp/PgDn half page, Tab to input"))
	} else {
		content.WriteString(InfoStyle.Render("Tab to scroll log • Enter to submit • Ctrl+C to quit"))
	}
	return content.String()
}

// AddLogEntry adds an entry to the game log
func (m *TUIModel) AddLogEntry(entry string) {
	m.gameLog = append(m.gameLog, entry)
	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))

	// Only call GotoBottom if viewport has valid dimensions
	if m.logViewport.Height > 0 && m.logViewport.Width > 0 {
		m.logViewport.GotoBottom()
	}
}

// Log returns a copy of the game log
func (m *TUIModel) Log() []string {
	return append([]string(nil), m.gameLog...)
}

// State returns the last snapshot received, if any
func (m *TUIModel) State() (blackjack.State, bool) {
	if m.state == nil {
		return blackjack.State{}, false
	}
	return *m.state, true
}
