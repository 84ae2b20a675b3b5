package main

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jwebster45206/word-quest/internal/storage"
	"github.com/jwebster45206/word-quest/pkg/dice"
	"github.com/jwebster45206/word-quest/pkg/glossary"
	"github.com/jwebster45206/word-quest/pkg/player"
	"github.com/jwebster45206/word-quest/pkg/story"
)

const (
	PlaceHolderText = "Type your answer..."
	opTimeout       = 10 * time.Second
	rollFrameDelay  = 120 * time.Millisecond
)

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	game          *game
	session       *player.Session
	parts         []player.Part
	storyViewport viewport.Model
	metaViewport  viewport.Model
	answerInput   textinput.Model
	ready         bool
	width         int
	height        int
	notice        string
	busy          bool

	// World selection state
	showWorldModal bool
	worlds         []storage.World
	selectedWorld  int
	loadingWorlds  bool
	modalNotice    string

	// Quit confirmation state
	showQuitModal bool

	// Open challenge of the active quiz
	quiz *player.QuizResult

	// Dice animation state
	roll      *dice.Outcome
	rollFrame int
}

type worldsLoadedMsg struct {
	worlds  []storage.World
	resumed *player.Session
	err     error
}

type sessionStartedMsg struct {
	session *player.Session
	err     error
}

type quizResultMsg struct {
	result player.QuizResult
	err    error
}

type diceRolledMsg struct {
	outcome dice.Outcome
	err     error
}

type rollTickMsg struct{}

type copiedMsg struct {
	err error
}

var (
	storyPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	headingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	termStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")). // green
			Underline(true)

	itemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	choiceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	lockedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("208")) // orange

	subjectStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("141")) // lavender

	diceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	endingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")) // bright green

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(g *game) ConsoleUI {
	ti := textinput.New()
	ti.Placeholder = PlaceHolderText
	ti.Prompt = promptStyle.Render(":: ")
	ti.CharLimit = 100

	storyVp := viewport.New(50, 20)
	storyVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		game:           g,
		answerInput:    ti,
		storyViewport:  storyVp,
		metaViewport:   metaVp,
		showWorldModal: true,
		loadingWorlds:  true,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return m.loadWorlds(true)
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// The quit modal can be raised over the world modal
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}
	if m.showWorldModal {
		return m.updateWorldModal(msg)
	}

	var (
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.storyViewport, vpCmd = m.storyViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case quizResultMsg:
		m.busy = false
		if msg.err != nil {
			m.notice = errorStyle.Render("Error: " + msg.err.Error())
		} else {
			m.applyQuizResult(msg.result)
		}
		m.refresh()
		return m, nil

	case diceRolledMsg:
		m.busy = false
		if msg.err != nil {
			m.notice = errorStyle.Render("Error: " + msg.err.Error())
			m.refresh()
			return m, nil
		}
		out := msg.outcome
		m.roll = &out
		m.rollFrame = 0
		m.notice = ""
		m.refresh()
		return m, rollTick()

	case rollTickMsg:
		if m.roll == nil {
			return m, nil
		}
		m.rollFrame++
		if m.rollFrame >= len(m.roll.Rolls)-1 {
			m.finishRoll()
			m.refresh()
			return m, nil
		}
		m.refresh()
		return m, rollTick()

	case copiedMsg:
		if msg.err != nil {
			m.notice = errorStyle.Render("Could not copy the story: " + msg.err.Error())
		} else {
			m.notice = successStyle.Render("Story copied to the clipboard.")
		}
		m.refresh()
		return m, nil
	}

	m.storyViewport, vpCmd = m.storyViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)
	return m, tea.Batch(vpCmd, mvCmd)
}

func (m ConsoleUI) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.showQuitModal = true
		return m, nil
	case tea.KeyEsc:
		if m.quiz != nil {
			m.cancelChallenge()
			return m, nil
		}
		m.showQuitModal = true
		return m, nil
	case tea.KeyEnter:
		if m.freeTextOpen() && !m.busy {
			answer := strings.TrimSpace(m.answerInput.Value())
			if answer == "" {
				return m, nil
			}
			m.answerInput.Reset()
			m.busy = true
			return m, m.answer(m.quiz.ChoiceID, answer)
		}
		return m, nil
	}

	if m.freeTextOpen() {
		var cmd tea.Cmd
		m.answerInput, cmd = m.answerInput.Update(msg)
		return m, cmd
	}

	if m.busy || m.roll != nil {
		return m, nil
	}

	switch key := msg.String(); key {
	case "q":
		m.showQuitModal = true
		return m, nil
	case "w":
		m.showWorldModal = true
		m.loadingWorlds = true
		m.modalNotice = ""
		return m, m.loadWorlds(false)
	case "y":
		return m, m.copyTranscript()
	case "c":
		if m.quiz != nil {
			m.cancelChallenge()
		}
		return m, nil
	case "r":
		if m.diceReady() {
			m.busy = true
			return m, m.rollDice()
		}
		return m, nil
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		if cmd := m.pick(int(key[0] - '1')); cmd != nil {
			m.busy = true
			return m, cmd
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.storyViewport, cmd = m.storyViewport.Update(msg)
	return m, cmd
}

// pick answers the open challenge, or selects a choice of the active quiz.
func (m *ConsoleUI) pick(n int) tea.Cmd {
	if m.quiz != nil && m.quiz.Challenge != nil {
		options := m.quiz.Challenge.Options
		if n < 0 || n >= len(options) {
			return nil
		}
		return m.answer(m.quiz.ChoiceID, options[n])
	}

	active, ok := player.ActiveQuiz(m.parts)
	if !ok || n < 0 || n >= len(active.Choices) {
		return nil
	}
	return m.selectChoice(active.QuizIndex, active.Choices[n].ID)
}

func (m *ConsoleUI) applyQuizResult(r player.QuizResult) {
	switch {
	case r.Locked:
		m.quiz = nil
		m.notice = lockedStyle.Render(fmt.Sprintf("🔒 You need the %s to take that path.", r.RequiresItem))
	case r.Phase == player.PhaseChallengeOpen:
		m.quiz = &r
		m.notice = ""
		if len(r.Challenge.Options) == 0 {
			m.answerInput.Reset()
			m.answerInput.Focus()
		}
	case r.Phase == player.PhaseChallengeAnswered:
		m.quiz = &r
		m.notice = errorStyle.Render("Not quite. Try another answer.")
	case r.Phase == player.PhaseResolved:
		m.quiz = nil
		m.answerInput.Blur()
		m.notice = ""
		if r.Correct != nil && *r.Correct {
			m.notice = successStyle.Render("✔ Correct!")
			if r.Explanation != "" {
				m.notice += " " + r.Explanation
			}
		}
		m.sync()
	}
}

func (m *ConsoleUI) cancelChallenge() {
	m.session.CancelChallenge()
	m.quiz = nil
	m.answerInput.Blur()
	m.notice = ""
	m.refresh()
}

func (m *ConsoleUI) finishRoll() {
	out := m.roll
	verdict := errorStyle.Render("not enough this time.")
	if out.Success {
		verdict = successStyle.Render("success!")
	}
	m.notice = diceStyle.Render(fmt.Sprintf("🎲 You rolled %d (needed %d): ", out.Final, out.Target)) + verdict
	m.roll = nil
	m.rollFrame = 0
	m.sync()
}

func (m ConsoleUI) freeTextOpen() bool {
	return m.quiz != nil && m.quiz.Challenge != nil && len(m.quiz.Challenge.Options) == 0
}

func (m ConsoleUI) diceReady() bool {
	if len(m.parts) == 0 {
		return false
	}
	last := m.parts[len(m.parts)-1]
	return last.Kind == player.PartDice && last.Interactive
}

// sync reloads the story parts from the session.
func (m *ConsoleUI) sync() {
	if m.session == nil {
		m.parts = nil
		return
	}
	m.parts = m.session.Parts()
}

func (m *ConsoleUI) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	storyWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - storyWidth - 6

	m.storyViewport.Width = storyWidth - 2
	m.storyViewport.Height = m.height - 7
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.answerInput.Width = storyWidth - 8
	m.ready = true
}

func (m *ConsoleUI) refresh() {
	if m.session == nil {
		return
	}
	m.storyViewport.SetContent(m.writeStoryContent())
	m.storyViewport.GotoBottom()
	m.metaViewport.SetContent(m.writeMetadata())
}

func (m ConsoleUI) worldTitle() string {
	if m.session == nil {
		return ""
	}
	for _, w := range m.worlds {
		if w.ID == m.session.WorldID() {
			return w.Title
		}
	}
	return m.session.Graph().Title
}

func (m ConsoleUI) writeStoryContent() string {
	width := max(m.storyViewport.Width-6, 20)

	var content strings.Builder
	content.WriteString(titleStyle.Render(strings.ToUpper(m.worldTitle())) + "\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", width)) + "\n\n")
	content.WriteString(renderParts(m.parts, m.session.Progress().Inventory, width))

	if m.quiz != nil && m.quiz.Challenge != nil {
		content.WriteString(renderChallenge(m.quiz, width))
	}
	if m.roll != nil {
		content.WriteString(diceStyle.Render(fmt.Sprintf("🎲 Rolling... %d", m.roll.Rolls[m.rollFrame])) + "\n\n")
	}
	if m.notice != "" {
		content.WriteString(wordwrap.String(m.notice, width) + "\n\n")
	}

	if m.roll == nil {
		switch m.session.Status() {
		case player.StatusEnded:
			content.WriteString(promptStyle.Render("Press w to pick another world.") + "\n")
		case player.StatusDeadEnd:
			content.WriteString(lockedStyle.Render("This path goes no further.") + " " +
				promptStyle.Render("Press w to pick a world and try again.") + "\n")
		}
	}
	return content.String()
}

func (m ConsoleUI) writeMetadata() string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("ADVENTURE") + "\n\n")

	content.WriteString("World:\n")
	content.WriteString(m.worldTitle() + "\n\n")

	content.WriteString("Reader:\n")
	content.WriteString(m.game.profileID.String()[:8] + "...\n\n")

	content.WriteString("Status:\n")
	content.WriteString(string(m.session.Status()) + "\n\n")

	content.WriteString("Progress:\n")
	if m.game.store.MemoryOnly() {
		content.WriteString(errorStyle.Render("not saved (storage unavailable)") + "\n\n")
	} else {
		content.WriteString("saved\n\n")
	}

	inventory := m.session.Progress().Inventory
	content.WriteString("Inventory:\n")
	if len(inventory) == 0 {
		content.WriteString("Empty\n")
	}
	for _, item := range inventory {
		content.WriteString("• " + item + "\n")
	}
	content.WriteString("\n")

	if terms := latestTerms(m.parts); len(terms) > 0 {
		content.WriteString("Words to know:\n")
		for _, t := range terms {
			content.WriteString(termStyle.Render(t.Word) + ": " + wordwrap.String(t.Definition, max(m.metaViewport.Width-2, 10)) + "\n")
		}
		content.WriteString("\n")
	}

	content.WriteString("Commands:\n")
	content.WriteString("• 1-9: Choose\n")
	content.WriteString("• r: Roll dice\n")
	content.WriteString("• c: Back out\n")
	content.WriteString("• y: Copy story\n")
	content.WriteString("• w: Worlds\n")
	content.WriteString("• q: Quit\n")

	return content.String()
}

// latestTerms returns the distinct glossary words of the newest passage.
func latestTerms(parts []player.Part) []glossary.Term {
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i].Kind != player.PartText {
			continue
		}
		var terms []glossary.Term
		seen := make(map[string]bool)
		for _, t := range parts[i].Terms {
			key := strings.ToLower(t.Word)
			if seen[key] {
				continue
			}
			seen[key] = true
			terms = append(terms, t)
		}
		return terms
	}
	return nil
}

func renderParts(parts []player.Part, inventory []string, width int) string {
	var b strings.Builder
	for _, p := range parts {
		switch p.Kind {
		case player.PartText:
			if p.Title != "" {
				b.WriteString(headingStyle.Render(p.Title) + "\n")
			}
			b.WriteString(wordwrap.String(highlightTerms(strings.TrimSpace(p.Content), p.Terms), width) + "\n\n")
		case player.PartItems:
			label := "Item acquired"
			if len(p.Items) > 1 {
				label = "Items acquired"
			}
			b.WriteString(itemStyle.Render("✦ "+label+": "+strings.Join(p.Items, ", ")) + "\n\n")
		case player.PartQuiz:
			for i, c := range p.Choices {
				b.WriteString(renderChoice(i, c, p, inventory) + "\n")
			}
			b.WriteString("\n")
		case player.PartDice:
			line := fmt.Sprintf("🎲 %s (d%d, %d or higher, %.0f%% chance)",
				p.Dice.Description, p.Dice.DiceType, p.Dice.TargetNumber, dice.SuccessChance(p.Dice)*100)
			b.WriteString(diceStyle.Render(wordwrap.String(line, width)) + "\n")
			if p.Interactive {
				b.WriteString(promptStyle.Render("Press r to roll.") + "\n")
			}
			b.WriteString("\n")
		case player.PartEnding:
			b.WriteString(endingStyle.Render("✦ THE END ✦") + "\n\n")
		}
	}
	return b.String()
}

func renderChoice(i int, c story.Choice, p player.Part, inventory []string) string {
	label := fmt.Sprintf("%d. %s", i+1, c.Text)
	switch {
	case p.SelectedChoiceID != "":
		if c.ID == p.SelectedChoiceID {
			return selectedStyle.Render("▶ " + label)
		}
		return dimStyle.Render("  " + label)
	case !p.Interactive:
		return dimStyle.Render("  " + label)
	case c.RequiresItem != "" && !slices.Contains(inventory, c.RequiresItem):
		return lockedStyle.Render(fmt.Sprintf("  🔒 %s (requires %s)", label, c.RequiresItem))
	}

	line := choiceStyle.Render("  " + label)
	if c.Challenge != nil {
		line += " " + subjectStyle.Render("["+subjectLabel(c.Challenge.Subject)+"]")
	}
	return line
}

func renderChallenge(r *player.QuizResult, width int) string {
	c := r.Challenge

	var b strings.Builder
	b.WriteString(subjectStyle.Render(strings.ToUpper(subjectLabel(c.Subject))+" CHALLENGE") + "\n")
	b.WriteString(wordwrap.String(c.Question, width) + "\n\n")
	for i, o := range c.Options {
		label := fmt.Sprintf("%d. %s", i+1, o)
		if o == r.Selected {
			b.WriteString(errorStyle.Render("✘ "+label) + "\n")
			continue
		}
		b.WriteString(choiceStyle.Render("  "+label) + "\n")
	}
	if len(c.Options) == 0 {
		b.WriteString(promptStyle.Render("Type your answer and press Enter.") + "\n")
	}
	b.WriteString("\n")

	if r.Correct != nil && !*r.Correct && c.Hint != "" {
		b.WriteString(itemStyle.Render(wordwrap.String("Hint: "+c.Hint, width)) + "\n\n")
	}
	b.WriteString(promptStyle.Render("Press c to choose a different path.") + "\n\n")
	return b.String()
}

// highlightTerms styles the glossary words of a passage.
func highlightTerms(content string, terms []glossary.Term) string {
	var b strings.Builder
	last := 0
	for _, t := range terms {
		end := t.Offset + len(t.Word)
		if t.Offset < last || end > len(content) || content[t.Offset:end] != t.Word {
			continue
		}
		b.WriteString(content[last:t.Offset])
		b.WriteString(termStyle.Render(t.Word))
		last = end
	}
	b.WriteString(content[last:])
	return b.String()
}

func subjectLabel(s story.Subject) string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(s), "-", " "))
}

func (m ConsoleUI) loadWorlds(tryResume bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()

		worlds, err := m.game.worlds(ctx)
		if err != nil {
			return worldsLoadedMsg{err: err}
		}
		msg := worldsLoadedMsg{worlds: worlds}
		if tryResume {
			if s, ok := m.game.resume(ctx); ok {
				msg.resumed = s
			}
		}
		return msg
	}
}

func (m ConsoleUI) startWorld(worldID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		s, err := m.game.start(ctx, worldID)
		return sessionStartedMsg{s, err}
	}
}

func (m ConsoleUI) selectChoice(quizIndex int, choiceID string) tea.Cmd {
	s := m.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		r, err := s.SelectChoice(ctx, quizIndex, choiceID)
		return quizResultMsg{r, err}
	}
}

func (m ConsoleUI) answer(choiceID, option string) tea.Cmd {
	s := m.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		r, err := s.AnswerChallenge(ctx, choiceID, option)
		return quizResultMsg{r, err}
	}
}

func (m ConsoleUI) rollDice() tea.Cmd {
	s := m.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		out, err := s.RollDice(ctx)
		return diceRolledMsg{out, err}
	}
}

func (m ConsoleUI) copyTranscript() tea.Cmd {
	text := player.Transcript(m.parts)
	return func() tea.Msg {
		return copiedMsg{clipboard.WriteAll(text)}
	}
}

func (m ConsoleUI) updateWorldModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()

	case worldsLoadedMsg:
		m.loadingWorlds = false
		if msg.err != nil {
			m.modalNotice = "Failed to load worlds: " + msg.err.Error()
			return m, nil
		}
		m.worlds = msg.worlds
		m.selectedWorld = min(m.selectedWorld, max(len(m.worlds)-1, 0))
		if msg.resumed != nil {
			m.openSession(msg.resumed)
			m.notice = successStyle.Render("Welcome back! Picking up where you left off.")
			m.refresh()
		}

	case sessionStartedMsg:
		m.busy = false
		if msg.err != nil {
			m.modalNotice = "Failed to start world: " + msg.err.Error()
			return m, nil
		}
		m.openSession(msg.session)
		m.refresh()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEsc:
			// back to the current story, if there is one
			if m.session != nil {
				m.showWorldModal = false
				m.refresh()
				return m, nil
			}
			m.showQuitModal = true
			return m, nil
		}

		if m.loadingWorlds || m.busy {
			return m, nil
		}

		switch msg.Type {
		case tea.KeyUp:
			if m.selectedWorld > 0 {
				m.selectedWorld--
			}
			m.modalNotice = ""
		case tea.KeyDown:
			if m.selectedWorld < len(m.worlds)-1 {
				m.selectedWorld++
			}
			m.modalNotice = ""
		case tea.KeyEnter:
			if len(m.worlds) == 0 {
				return m, nil
			}
			w := m.worlds[m.selectedWorld]
			if w.Locked {
				m.modalNotice = w.Title + " is still locked. Check back soon!"
				return m, nil
			}
			m.busy = true
			return m, m.startWorld(w.ID)
		}
	}

	return m, nil
}

func (m *ConsoleUI) openSession(s *player.Session) {
	m.session = s
	m.quiz = nil
	m.roll = nil
	m.notice = ""
	m.modalNotice = ""
	m.showWorldModal = false
	m.answerInput.Blur()
	m.sync()
	m.layout()
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				return m, nil
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Word Quest?"))
	content.WriteString("\n\n")
	content.WriteString("Your progress is saved. You can pick up where you left off next time.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to keep reading"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderWorldModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder

	switch {
	case m.loadingWorlds:
		content.WriteString(modalTitleStyle.Render("Loading Worlds..."))
		content.WriteString("\n\n")
		content.WriteString(itemStyle.Render("Opening the library..."))
	case m.busy:
		content.WriteString(modalTitleStyle.Render("Starting Adventure..."))
		content.WriteString("\n\n")
		content.WriteString(itemStyle.Render("Turning to the first page..."))
	default:
		content.WriteString(modalTitleStyle.Render("Choose a World"))
		content.WriteString("\n\n")

		for i, w := range m.worlds {
			label := strings.TrimSpace(w.Emoji + " " + w.Title)
			if w.Locked {
				label += " 🔒"
			}
			switch {
			case i == m.selectedWorld:
				content.WriteString(modalSelectedItemStyle.Render("▶ " + label))
			case w.Locked:
				content.WriteString(dimStyle.Render("  " + label))
			default:
				content.WriteString(worldStyle(w).Render("  " + label))
			}
			content.WriteString("\n")
		}

		if len(m.worlds) > 0 && m.worlds[m.selectedWorld].Description != "" {
			content.WriteString("\n")
			content.WriteString(wordwrap.String(m.worlds[m.selectedWorld].Description, 54))
			content.WriteString("\n")
		}

		content.WriteString("\n")
		content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Esc to go back"))
	}

	if m.modalNotice != "" {
		content.WriteString("\n\n")
		content.WriteString(errorStyle.Render(wordwrap.String(m.modalNotice, 54)))
	}

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func worldStyle(w storage.World) lipgloss.Style {
	if w.CoverColor == "" {
		return modalItemStyle
	}
	return modalItemStyle.Foreground(lipgloss.Color(w.CoverColor))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if m.showWorldModal {
		return m.renderWorldModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	storyWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - storyWidth - 6

	footer := promptStyle.Render("1-9 choose • r roll • y copy • w worlds • q quit")
	if m.freeTextOpen() {
		footer = m.answerInput.View()
	}

	storyPanel := storyPanelStyle.Width(storyWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.storyViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", storyWidth-4)),
			footer,
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, storyPanel, metaPanel)
}

// rollTick paces the dice animation
func rollTick() tea.Cmd {
	return tea.Tick(rollFrameDelay, func(time.Time) tea.Msg {
		return rollTickMsg{}
	})
}
