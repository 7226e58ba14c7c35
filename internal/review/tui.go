// Package review is the interactive browser for retained results: two panes
// (to apply / applied), a detail view with the oracle's verdict and the
// description rendered as markdown, and lifecycle updates written back to
// the store.
package review

import (
	"fmt"
	"os/exec"
	"runtime"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobwatch/internal/markup"
	"github.com/amishk599/jobwatch/internal/model"
)

// Lines per result in the list view (title + subtitle + blank separator).
const itemHeight = 3

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

const (
	paneTodo = iota
	paneApplied
)

var (
	activeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("39")) // bright blue

	inactiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240")) // dim gray

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	activeHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("39"))

	inactiveHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	titleStyle = lipgloss.NewStyle().
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	selectedTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("24"))

	selectedSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("24"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(16)

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				MarginBottom(1)

	dividerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	bodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	resultStyles = map[string]lipgloss.Style{
		model.ResultNoResponse: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		model.ResultAccepted:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		model.ResultRejected:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

// resultUpdatedMsg is sent when an async store update completes.
type resultUpdatedMsg struct {
	result model.AnalysisResult
	err    error
}

type reviewModel struct {
	store   model.ResultStore
	results []model.AnalysisResult

	todo, applied []int // indexes into results
	leftViewport  viewport.Model
	rightViewport viewport.Model
	activePane    int
	cursors       [2]int
	width, height int
	ready         bool

	view            viewState
	detailID        string
	detailViewport  viewport.Model
	showDescription bool
	statusErr       string
}

func newModel(store model.ResultStore, results []model.AnalysisResult) reviewModel {
	m := reviewModel{store: store, results: results}
	m.regroup()
	return m
}

func (m reviewModel) Init() tea.Cmd {
	return nil
}

func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.view == viewDetail {
			m.detailViewport.Width = m.width - 4
			m.detailViewport.Height = m.height - 4
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, nil

	case resultUpdatedMsg:
		if msg.err != nil {
			m.statusErr = fmt.Sprintf("update failed: %v", msg.err)
		} else {
			m.statusErr = ""
			m.replace(msg.result)
		}
		m.regroup()
		m.recalcContent()
		if m.view == viewDetail {
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, nil

	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetailView(msg)
		}
		return m.updateListView(msg)
	}

	return m, nil
}

func (m reviewModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "tab", "left", "right":
		m.activePane = 1 - m.activePane
		m.recalcContent()
		return m, nil
	case "up", "k":
		m.moveCursor(-1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "enter":
		return m.openDetailView()
	case "a", "r", "o":
		r, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.action(msg.String(), r)
	}

	// Forward other keys (pgup/pgdn/home/end) to the active viewport.
	var cmd tea.Cmd
	if m.activePane == paneTodo {
		m.leftViewport, cmd = m.leftViewport.Update(msg)
	} else {
		m.rightViewport, cmd = m.rightViewport.Update(msg)
	}
	return m, cmd
}

func (m reviewModel) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		return m, nil
	case "d":
		m.showDescription = !m.showDescription
		m.detailViewport.SetContent(m.renderDetail())
		m.detailViewport.SetYOffset(0)
		return m, nil
	case "a", "r", "o":
		r, ok := m.find(m.detailID)
		if !ok {
			return m, nil
		}
		return m, m.action(msg.String(), r)
	}

	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

// action returns the command bound to key for result r.
func (m reviewModel) action(key string, r model.AnalysisResult) tea.Cmd {
	switch key {
	case "a":
		return setAppliedCmd(m.store, r, !r.Applied)
	case "r":
		return setApplicationResultCmd(m.store, r, NextApplicationResult(r.ApplicationResult))
	case "o":
		openURL(r.Link)
	}
	return nil
}

func setAppliedCmd(store model.ResultStore, r model.AnalysisResult, applied bool) tea.Cmd {
	return func() tea.Msg {
		if err := store.SetApplied(r.JobID, applied); err != nil {
			return resultUpdatedMsg{err: err}
		}
		r.Applied = applied
		return resultUpdatedMsg{result: r}
	}
}

func setApplicationResultCmd(store model.ResultStore, r model.AnalysisResult, result string) tea.Cmd {
	return func() tea.Msg {
		if err := store.SetApplicationResult(r.JobID, result); err != nil {
			return resultUpdatedMsg{err: err}
		}
		r.ApplicationResult = result
		return resultUpdatedMsg{result: r}
	}
}

// NextApplicationResult cycles no_response -> accepted -> rejected -> no_response.
func NextApplicationResult(current string) string {
	switch current {
	case model.ResultNoResponse, "":
		return model.ResultAccepted
	case model.ResultAccepted:
		return model.ResultRejected
	default:
		return model.ResultNoResponse
	}
}

func (m *reviewModel) regroup() {
	m.todo, m.applied = m.todo[:0], m.applied[:0]
	for i, r := range m.results {
		if r.Applied {
			m.applied = append(m.applied, i)
		} else {
			m.todo = append(m.todo, i)
		}
	}
	m.cursors[paneTodo] = clamp(m.cursors[paneTodo], 0, max(len(m.todo)-1, 0))
	m.cursors[paneApplied] = clamp(m.cursors[paneApplied], 0, max(len(m.applied)-1, 0))
}

func (m *reviewModel) replace(r model.AnalysisResult) {
	for i := range m.results {
		if m.results[i].JobID == r.JobID {
			m.results[i] = r
			return
		}
	}
}

func (m reviewModel) find(id string) (model.AnalysisResult, bool) {
	for _, r := range m.results {
		if r.JobID == id {
			return r, true
		}
	}
	return model.AnalysisResult{}, false
}

func (m reviewModel) pane(p int) []int {
	if p == paneTodo {
		return m.todo
	}
	return m.applied
}

func (m reviewModel) selected() (model.AnalysisResult, bool) {
	idx := m.pane(m.activePane)
	if len(idx) == 0 {
		return model.AnalysisResult{}, false
	}
	return m.results[idx[m.cursors[m.activePane]]], true
}

func (m *reviewModel) moveCursor(delta int) {
	n := len(m.pane(m.activePane))
	m.cursors[m.activePane] = clamp(m.cursors[m.activePane]+delta, 0, max(n-1, 0))
}

func (m *reviewModel) ensureCursorVisible() {
	vp := &m.leftViewport
	if m.activePane == paneApplied {
		vp = &m.rightViewport
	}

	top := m.cursors[m.activePane] * itemHeight
	bottom := top + itemHeight - 1

	if top < vp.YOffset {
		vp.SetYOffset(top)
	} else if bottom >= vp.YOffset+vp.Height {
		vp.SetYOffset(bottom - vp.Height + 1)
	}
}

func (m reviewModel) openDetailView() (tea.Model, tea.Cmd) {
	r, ok := m.selected()
	if !ok {
		return m, nil
	}
	m.view = viewDetail
	m.detailID = r.JobID
	m.showDescription = false
	m.detailViewport = viewport.New(m.width-4, m.height-4)
	m.detailViewport.SetContent(m.renderDetail())
	return m, nil
}

func (m *reviewModel) recalcLayout() {
	// 2 border chars per pane + 1 gap between panes.
	paneWidth := max((m.width-5)/2, 20)

	// Header (1 line) + border top/bottom (2) + status bar (1) = 4 lines overhead.
	paneHeight := max(m.height-4, 5)

	if !m.ready {
		m.leftViewport = viewport.New(paneWidth, paneHeight)
		m.rightViewport = viewport.New(paneWidth, paneHeight)
		m.ready = true
	} else {
		m.leftViewport.Width = paneWidth
		m.leftViewport.Height = paneHeight
		m.rightViewport.Width = paneWidth
		m.rightViewport.Height = paneHeight
	}

	m.recalcContent()
}

func (m *reviewModel) recalcContent() {
	m.leftViewport.SetContent(m.renderPane(paneTodo))
	m.rightViewport.SetContent(m.renderPane(paneApplied))
}

func (m reviewModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.view == viewDetail {
		return m.viewDetail()
	}
	return m.viewList()
}

func (m reviewModel) viewList() string {
	paneWidth := m.leftViewport.Width

	leftHeader := fmt.Sprintf(" To apply (%d)", len(m.todo))
	rightHeader := fmt.Sprintf(" Applied (%d)", len(m.applied))

	leftHeaderStyle, rightHeaderStyle := activeHeaderStyle, inactiveHeaderStyle
	leftBorder, rightBorder := activeBorderStyle, inactiveBorderStyle
	if m.activePane == paneApplied {
		leftHeaderStyle, rightHeaderStyle = inactiveHeaderStyle, activeHeaderStyle
		leftBorder, rightBorder = inactiveBorderStyle, activeBorderStyle
	}

	headerRow := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(paneWidth+2).Render(leftHeaderStyle.Render(leftHeader)),
		" ",
		lipgloss.NewStyle().Width(paneWidth+2).Render(rightHeaderStyle.Render(rightHeader)),
	)

	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		leftBorder.Width(paneWidth).Render(m.leftViewport.View()),
		" ",
		rightBorder.Width(paneWidth).Render(m.rightViewport.View()),
	)

	statusText := fmt.Sprintf(" %d retained    ←/→/Tab switch  ↑/↓ cursor  Enter detail  a applied  r result  o open  q quit",
		len(m.results))
	if m.statusErr != "" {
		statusText = " " + m.statusErr
	}
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return headerRow + "\n" + panes + "\n" + statusBar
}

func (m reviewModel) viewDetail() string {
	title := detailTitleStyle.Render("Job Details")
	content := activeBorderStyle.Width(m.width - 2).Render(m.detailViewport.View())

	statusText := " a applied  r result  o open  d description  esc back  ↑/↓ scroll  q quit"
	if m.statusErr != "" {
		statusText = " " + m.statusErr
	}
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return title + "\n" + content + "\n" + statusBar
}

func (m reviewModel) renderDetail() string {
	r, ok := m.find(m.detailID)
	if !ok {
		return errorStyle.Render("result no longer available")
	}
	var b strings.Builder

	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(value)
		b.WriteByte('\n')
	}

	addField("Title", r.Title)
	addField("Company", r.Company)
	addField("Location", r.Location)
	addField("Job ID", r.JobID)
	addField("Source", r.Source)
	addField("Analyzed At", r.AnalyzedAt.Local().Format("2006-01-02 15:04 MST"))

	b.WriteByte('\n')
	addField("Applied", yesNo(r.Applied))
	addField("Result", styledResult(r.ApplicationResult))
	addField("Link", r.Link)

	wrapWidth := max(m.width-8, 20)
	divider := func(label string) string {
		fill := strings.Repeat("─", max(wrapWidth-len(label), 3))
		return dividerStyle.Render(label + fill)
	}

	b.WriteByte('\n')
	b.WriteString(divider("── Verdict ") + "\n\n")
	addField("First line", r.Analysis.FirstLine)
	keys := make([]string, 0, len(r.Analysis.Parsed))
	for k := range r.Analysis.Parsed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		addField(k, fmt.Sprint(r.Analysis.Parsed[k]))
	}
	if len(keys) == 0 && r.Analysis.RawOutput != "" {
		b.WriteString(bodyStyle.Render(wordWrap(r.Analysis.RawOutput, wrapWidth)) + "\n")
	}

	if r.DescriptionSnippet != "" {
		b.WriteByte('\n')
		if m.showDescription {
			b.WriteString(divider("── Job Description ") + "\n\n")
			b.WriteString(bodyStyle.Render(markup.Markdown(r.DescriptionSnippet)) + "\n")
		} else {
			b.WriteString(hintStyle.Render("  press d to read job description") + "\n")
		}
	}

	return b.String()
}

func (m reviewModel) renderPane(p int) string {
	idx := m.pane(p)
	if len(idx) == 0 {
		return "  (no jobs)"
	}

	isActive := m.activePane == p
	var b strings.Builder
	for n, i := range idx {
		r := m.results[i]
		isSelected := isActive && n == m.cursors[p]

		tSt, sSt, prefix := titleStyle, subtitleStyle, "  "
		if isSelected {
			tSt, sSt, prefix = selectedTitleStyle, selectedSubtitleStyle, "> "
		}

		b.WriteString(prefix)
		b.WriteString(tSt.Render(r.Title))
		b.WriteByte('\n')

		sub := fmt.Sprintf("%s · %s · %s", r.Company, r.AnalyzedAt.Local().Format("2006-01-02"), r.ApplicationResult)
		b.WriteString(prefix)
		b.WriteString(sSt.Render(sub))
		b.WriteByte('\n')

		if n < len(idx)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func styledResult(s string) string {
	if st, ok := resultStyles[s]; ok {
		return st.Render(s)
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	if url == "" {
		return
	}
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// Run loads every retained result from store and launches the review TUI.
func Run(store model.ResultStore) error {
	results, err := store.List()
	if err != nil {
		return fmt.Errorf("loading results: %w", err)
	}

	p := tea.NewProgram(newModel(store, results), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
