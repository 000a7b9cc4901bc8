package cmd

import (
	"crypto/sha256"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/v2/list"
	"github.com/charmbracelet/bubbles/v2/spinner"
	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"

	"romdis/internal/dis"
	"romdis/internal/romdis/styles"
	"romdis/internal/ui/colorize"
)

type viewMode int

const (
	viewListing viewMode = iota
	viewSymbols
	viewSummary
)

// symbolItem is one row of the symbols list.
type symbolItem struct {
	address    dis.Address
	name       string
	kind       string // "function", "label" or "reference"
	line       int    // index of the symbol's header line in the listing
	filterTerm string
}

func (i symbolItem) Title() string {
	return fmt.Sprintf("%04x  %s", uint32(i.address), i.name)
}

func (i symbolItem) Description() string { return "" }

func (i symbolItem) FilterValue() string { return i.filterTerm }

type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d itemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(symbolItem)
	if !ok {
		return
	}

	var addrStyle lipgloss.Style
	var indicator string
	if index == m.Index() {
		indicator = ">"
		addrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))
	} else {
		indicator = " "
		addrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	}

	kindStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	nameStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	if i.kind == "function" {
		nameStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("81"))
	}

	fmt.Fprintf(w, " %s  %s  %s %s",
		indicator,
		addrStyle.Render(fmt.Sprintf("%04x", uint32(i.address))),
		nameStyle.Render(i.name),
		kindStyle.Render("("+i.kind+")"))
}

type model struct {
	viewport    viewport.Model
	symbolsList list.Model
	summaryView viewport.Model
	spinner     spinner.Model
	mode        viewMode

	res     *result
	lines   []string
	digest  string
	loading bool
	width   int
	height  int
}

type digestMsg struct {
	digest string
}

type listingMsg struct {
	lines []string
}

func calculateDigestCmd(rom []byte) tea.Cmd {
	return func() tea.Msg {
		return digestMsg{digest: fmt.Sprintf("%x", sha256.Sum256(rom))}
	}
}

// renderListingCmd renders and colorizes the listing off the update loop;
// large ROMs produce listings in the tens of thousands of lines.
func renderListingCmd(res *result) tea.Cmd {
	return func() tea.Msg {
		lines := res.Renderer.Listing()
		colored, err := colorize.Listing(strings.Join(lines, "\n"))
		if err == nil {
			lines = strings.Split(colored, "\n")
		}
		return listingMsg{lines: lines}
	}
}

func newModel(res *result) model {
	vp := viewport.New()
	vp.SetWidth(80)
	vp.SetHeight(24)

	symbolsList := list.New([]list.Item{}, itemDelegate{}, 80, 24)
	symbolsList.SetShowStatusBar(false)
	symbolsList.SetFilteringEnabled(true)
	symbolsList.Title = "Symbols"
	symbolsList.Styles.Title = lipgloss.NewStyle().
		Foreground(lipgloss.Color("99")).
		MarginLeft(2)
	symbolsList.SetShowHelp(true)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))

	svp := viewport.New()
	svp.SetWidth(80)
	svp.SetHeight(24)

	m := model{
		viewport:    vp,
		symbolsList: symbolsList,
		summaryView: svp,
		spinner:     s,
		mode:        viewListing,
		res:         res,
		loading:     true,
		width:       80,
		height:      24,
	}
	m.updateSymbolsList()
	m.updateSummary()
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		calculateDigestCmd(m.res.ROM),
		renderListingCmd(m.res),
		m.spinner.Tick,
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case digestMsg:
		m.digest = msg.digest
		m.updateSummary()
		return m, nil

	case listingMsg:
		m.lines = msg.lines
		m.loading = false
		m.viewport.SetContent(strings.Join(m.lines, "\n"))
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.loading {
			return m, cmd
		}
		return m, nil

	case tea.WindowSizeMsg:
		if msg.Width != m.width || msg.Height != m.height {
			m.width = msg.Width
			m.height = msg.Height
			m.viewport.SetWidth(msg.Width)
			m.viewport.SetHeight(msg.Height - 2)
			m.symbolsList.SetWidth(msg.Width)
			m.symbolsList.SetHeight(msg.Height - 2)
			m.summaryView.SetWidth(msg.Width)
			m.summaryView.SetHeight(msg.Height - 2)
			m.updateSummary()
		}

	case tea.KeyMsg:
		if m.mode == viewSymbols && m.symbolsList.FilterState() == list.Filtering {
			switch msg.String() {
			case "ctrl+c":
				return m, tea.Quit
			}
			break
		}

		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "l":
			m.mode = viewListing
			return m, nil
		case "s":
			m.mode = viewSymbols
			return m, nil
		case "i":
			m.mode = viewSummary
			return m, nil
		case "enter":
			if m.mode == viewSymbols {
				if selected := m.symbolsList.SelectedItem(); selected != nil {
					if sym, ok := selected.(symbolItem); ok && !m.loading {
						m.mode = viewListing
						m.viewport.SetYOffset(sym.line)
					}
				}
			}
			return m, nil
		case "tab":
			switch m.mode {
			case viewListing:
				m.mode = viewSymbols
			case viewSymbols:
				m.mode = viewSummary
			case viewSummary:
				m.mode = viewListing
			}
			return m, nil
		case "shift+tab":
			switch m.mode {
			case viewListing:
				m.mode = viewSummary
			case viewSymbols:
				m.mode = viewListing
			case viewSummary:
				m.mode = viewSymbols
			}
			return m, nil
		}
	}

	switch m.mode {
	case viewSymbols:
		m.symbolsList, cmd = m.symbolsList.Update(msg)
	case viewSummary:
		m.summaryView, cmd = m.summaryView.Update(msg)
	default:
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

func (m model) View() string {
	var content string
	switch m.mode {
	case viewSymbols:
		content = m.symbolsList.View()
	case viewSummary:
		content = m.summaryView.View()
	default:
		if m.loading {
			content = fmt.Sprintf("\n  %s Disassembling...", m.spinner.View())
		} else {
			content = m.viewport.View()
		}
	}

	var menu string
	switch m.mode {
	case viewSymbols:
		menu = " Enter: go to symbol • L: listing • I: info • Tab: cycle • Q: quit "
	case viewSummary:
		menu = " L: listing • S: symbols • Tab: cycle • Q: quit "
	default:
		menu = " S: symbols • I: info • Tab: cycle • Q: quit "
	}

	menuStyle := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("252")).
		Padding(0, 1).
		Width(m.width)

	return content + "\n" + menuStyle.Render(menu)
}

// updateSymbolsList fills the symbol browser from the run's tables,
// resolving the line each symbol header occupies in the listing so enter
// can jump straight to it.
func (m *model) updateSymbolsList() {
	// header lines end with ":"; map them back to their symbol names
	lineOf := make(map[string]int)
	for idx, line := range m.res.Renderer.Listing() {
		if strings.HasSuffix(line, ":") && !strings.HasPrefix(line, "\t") {
			lineOf[strings.TrimSuffix(line, ":")] = idx
		}
	}

	syms := m.res.Engine.Symbols
	items := make([]list.Item, 0)
	seen := make(map[dis.Address]bool)
	add := func(table *dis.SymbolTable, kind string) {
		for _, addr := range table.Addresses() {
			if seen[addr] {
				continue
			}
			seen[addr] = true
			name, ok := m.res.Renderer.SymbolName(addr)
			if !ok {
				continue
			}
			items = append(items, symbolItem{
				address:    addr,
				name:       name,
				kind:       kind,
				line:       lineOf[name],
				filterTerm: fmt.Sprintf("%04x %s %s", uint32(addr), name, kind),
			})
		}
	}
	add(syms.Functions, "function")
	add(syms.Labels, "label")
	add(syms.References, "reference")

	m.symbolsList.SetItems(items)
	m.symbolsList.Title = fmt.Sprintf("Symbols (%d total)", len(items))
}

// updateSummary renders the markdown info pane.
func (m *model) updateSummary() {
	var md strings.Builder
	fmt.Fprintf(&md, "# %s\n\n", filepath.Base(m.res.ROMPath))
	fmt.Fprintf(&md, "- Architecture: **%s**\n", m.res.Arch.Name())
	fmt.Fprintf(&md, "- Entry: `$%04x`\n", uint32(m.res.Entry))
	fmt.Fprintf(&md, "- Image: %d bytes\n", len(m.res.ROM))
	fmt.Fprintf(&md, "- Instructions: %d\n", len(m.res.Engine.Disassembly))
	fmt.Fprintf(&md, "- Functions: %d, labels: %d, references: %d\n",
		m.res.Engine.Symbols.Functions.Len(),
		m.res.Engine.Symbols.Labels.Len(),
		m.res.Engine.Symbols.References.Len())
	if m.digest != "" {
		fmt.Fprintf(&md, "\nSHA-256: `%s`\n", m.digest)
	}

	width := m.width
	if width == 0 {
		width = 80
	}
	renderer := styles.GetMarkdownRenderer(width - 2)
	rendered, _ := renderer.Render(md.String())
	m.summaryView.SetContent(strings.TrimSuffix(rendered, "\n"))
}

func runTUI(res *result) error {
	program := tea.NewProgram(
		newModel(res),
		tea.WithAltScreen(),
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}
