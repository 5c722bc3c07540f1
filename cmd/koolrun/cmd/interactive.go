package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wippyai/kool-runtime/runtime"
	"github.com/wippyai/kool-runtime/wasm"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

func newInteractiveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "interactive <file.wasm>",
		Aliases: []string{"i"},
		Short:   "Pick exported functions and call them from a terminal UI",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return fmt.Errorf("interactive mode needs a terminal")
			}
			bin, err := readModule(args[0])
			if err != nil {
				return err
			}
			m := newInteractiveModel(a, args[0], bin)
			defer m.close()
			_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		},
	}
}

type modelState int

const (
	stateSelectFunc modelState = iota
	stateInputArgs
	stateShowResult
)

// interactiveModel keeps one instance alive across calls so heap state
// carries over, the way it would inside a single program run. A call that
// terminates the instance gets a fresh one next time.
type interactiveModel struct {
	err      error
	app      *app
	rt       *runtime.Runtime
	module   *runtime.Module
	instance *runtime.Instance
	output   *bytes.Buffer
	filename string
	bin      []byte
	printed  string
	result   string
	funcs    []runtime.Export
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

type loadedMsg struct {
	err   error
	rt    *runtime.Runtime
	mod   *runtime.Module
	funcs []runtime.Export
}

type callResultMsg struct {
	err     error
	printed string
	result  string
}

func newInteractiveModel(a *app, filename string, bin []byte) *interactiveModel {
	return &interactiveModel{
		app:      a,
		filename: filename,
		bin:      bin,
		output:   &bytes.Buffer{},
		state:    stateSelectFunc,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.load
}

// load runs off the UI goroutine; the output buffer is only touched by
// commands, which bubbletea runs one call at a time here.
func (m *interactiveModel) load() tea.Msg {
	ctx := context.Background()
	rt, err := m.app.newRuntime(ctx, m.output, nil)
	if err != nil {
		return loadedMsg{err: err}
	}
	mod, err := rt.LoadWASM(ctx, m.bin)
	if err != nil {
		_ = rt.Close(ctx)
		return loadedMsg{err: err}
	}
	return loadedMsg{rt: rt, mod: mod, funcs: mod.Exports()}
}

func (m *interactiveModel) close() {
	ctx := context.Background()
	if m.instance != nil {
		_ = m.instance.Close(ctx)
	}
	if m.rt != nil {
		_ = m.rt.Close(ctx)
	}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state != stateInputArgs || msg.String() == "ctrl+c" {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.funcs)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				if len(m.funcs) == 0 {
					return m, nil
				}
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callFunction
				}
				m.state = stateInputArgs
				return m, nil

			case stateInputArgs:
				return m, m.callFunction

			case stateShowResult:
				m.reset()
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectFunc
				m.inputs = nil
			case stateShowResult:
				m.reset()
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.rt = msg.rt
		m.module = msg.mod
		m.funcs = msg.funcs

	case callResultMsg:
		m.printed = msg.printed
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) reset() {
	m.state = stateSelectFunc
	m.printed = ""
	m.result = ""
	m.err = nil
}

func (m *interactiveModel) prepareInputs() {
	f := m.funcs[m.selected]
	m.inputs = make([]textinput.Model, len(f.Type.Params))
	for i, p := range f.Type.Params {
		ti := textinput.New()
		ti.Placeholder = p.String()
		ti.Prompt = fmt.Sprintf("arg%d: ", i)
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) callFunction() tea.Msg {
	ctx := context.Background()

	if m.instance != nil && m.instance.Closed() {
		m.instance = nil
	}
	if m.instance == nil {
		if m.module == nil {
			return callResultMsg{err: fmt.Errorf("module not loaded")}
		}
		inst, err := m.module.Instantiate(ctx)
		if err != nil {
			return callResultMsg{err: err}
		}
		m.instance = inst
	}

	f := m.funcs[m.selected]
	args := make([]int32, len(m.inputs))
	for i, input := range m.inputs {
		if f.Type.Params[i] != wasm.ValI32 {
			return callResultMsg{err: fmt.Errorf("arg%d: only i32 parameters can be passed", i)}
		}
		v, err := strconv.ParseInt(strings.TrimSpace(input.Value()), 0, 32)
		if err != nil {
			return callResultMsg{err: fmt.Errorf("arg%d: %w", i, err)}
		}
		args[i] = int32(v)
	}

	m.output.Reset()
	results, err := m.instance.Call(ctx, f.Name, args...)
	printed := m.output.String()
	if err != nil {
		return callResultMsg{err: err, printed: printed}
	}

	vals := make([]string, len(results))
	for i, r := range results {
		vals[i] = formatValue(f.Type.Results[i], r)
	}
	return callResultMsg{printed: printed, result: strings.Join(vals, ", ")}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.module == nil {
		return "Loading module..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("kool"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		if len(m.funcs) == 0 {
			b.WriteString("The module exports no functions.\n\n")
			b.WriteString(helpStyle.Render("q quit"))
			break
		}
		b.WriteString("Select a function to call:\n\n")
		for i, f := range m.funcs {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + formatExport(f)))
			} else {
				b.WriteString("  " + formatExport(f))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(f.Name)))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(f.Type.Params[i].String()))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(f.Name)))
		if m.printed != "" {
			b.WriteString(m.printed)
			if !strings.HasSuffix(m.printed, "\n") {
				b.WriteString("\n")
			}
			b.WriteString("\n")
		}
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else if m.result != "" {
			b.WriteString(resultStyle.Render("=> " + m.result))
		} else {
			b.WriteString(resultStyle.Render("ok"))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func formatExport(f runtime.Export) string {
	params := make([]string, len(f.Type.Params))
	for i, p := range f.Type.Params {
		params[i] = fmt.Sprintf("arg%d: %s", i, typeStyle.Render(p.String()))
	}
	result := ""
	if len(f.Type.Results) > 0 {
		rs := make([]string, len(f.Type.Results))
		for i, r := range f.Type.Results {
			rs[i] = r.String()
		}
		result = " -> " + typeStyle.Render(strings.Join(rs, ", "))
	}
	return funcStyle.Render(f.Name) + "(" + strings.Join(params, ", ") + ")" + result
}
