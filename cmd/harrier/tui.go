package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/blackcoderx/harrier/pkg/collection"
	"github.com/blackcoderx/harrier/pkg/executor"
	"github.com/blackcoderx/harrier/pkg/loader"
	"github.com/blackcoderx/harrier/pkg/result"
	"github.com/blackcoderx/harrier/pkg/runctx"
)

var tuiWatch bool

func init() {
	rootCmd.AddCommand(tuiCmd)
	tuiCmd.Flags().BoolVar(&tuiWatch, "watch", false, "re-run the collection whenever the collection file changes")
}

var tuiCmd = &cobra.Command{
	Use:   "tui <collection-file>",
	Short: "Run a collection interactively, watching progress live",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		path := args[0]
		c, err := loader.LoadFile(path)
		if err != nil {
			return fmt.Errorf("tui: %w", err)
		}

		envName := cfg.DefaultEnv
		if names, _ := loader.ListEnvironments(cfg.EnvironmentsDir); len(names) > 0 && isInteractive() {
			if err := huh.NewForm(huh.NewGroup(
				huh.NewSelect[string]().
					Title("Environment").
					Options(huh.NewOptions(names...)...).
					Value(&envName),
			)).WithTheme(huh.ThemeDracula()).Run(); err != nil {
				return fmt.Errorf("tui: %w", err)
			}
		}

		m := newRunModel(c, cfg, envName)
		p := tea.NewProgram(m, tea.WithAltScreen())
		runProgram = p

		if tuiWatch {
			go watchCollection(path, p)
		}

		_, err = p.Run()
		return err
	},
}

var runProgram *tea.Program

// requestDoneMsg carries one completed ExecutionResult back to the model.
type requestDoneMsg struct {
	index int
	total int
	r     *result.ExecutionResult
}

type runFinishedMsg struct{ out *result.CollectionExecutionResult }

type animTickMsg time.Time

// reloadMsg is sent by watchCollection (--watch) when the collection file
// on disk changes; the model resets its run state and starts over.
type reloadMsg struct {
	c       *collection.Collection
	envName string
}

type runModel struct {
	c       *collection.Collection
	cfg     Config
	envName string

	viewport viewport.Model
	progress progress.Model
	styles   runStyles

	animSpring harmonica.Spring
	animPos    float64
	animVel    float64
	animTarget float64

	done    int
	total   int
	results []*result.ExecutionResult
	final   *result.CollectionExecutionResult

	width, height int
}

type runStyles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Failure lipgloss.Style
	Muted   lipgloss.Style
}

func defaultRunStyles() runStyles {
	return runStyles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#89DDFF")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1")),
		Failure: lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")),
	}
}

func newRunModel(c *collection.Collection, cfg Config, envName string) runModel {
	vp := viewport.New(80, 20)
	return runModel{
		c:          c,
		cfg:        cfg,
		envName:    envName,
		viewport:   vp,
		progress:   progress.New(progress.WithDefaultGradient()),
		styles:     defaultRunStyles(),
		animSpring: harmonica.NewSpring(harmonica.FPS(30), 5.0, 0.3),
		animTarget: 1.0,
		width:      80,
		height:     20,
	}
}

func (m runModel) Init() tea.Cmd {
	return tea.Batch(animTick(), runCollectionAsync(m.c, m.cfg, m.envName))
}

func animTick() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return animTickMsg(t) })
}

// runCollectionAsync executes every request in the collection sequentially,
// streaming one requestDoneMsg per completed request back to the program so
// the done/total counter and log advance live instead of jumping once at
// the end. The progress bar itself shows the oscillating spring animation,
// not the fraction of requests completed.
func runCollectionAsync(c *collection.Collection, cfg Config, envName string) tea.Cmd {
	return func() tea.Msg {
		rc := runctx.New()
		if envName != "" {
			envPath := filepath.Join(cfg.EnvironmentsDir, envName+".yaml")
			if env, err := loader.LoadEnvironment(envPath); err == nil {
				for k, v := range env {
					rc.Set(runctx.ScopeEnvironment, k, v)
				}
			}
		}
		for _, v := range c.Variables {
			if v.Enabled {
				rc.Set(runctx.ScopeCollection, v.Key, v.Value)
			}
		}

		exec := executor.New()
		defer exec.Dispose()

		nodes := collection.WalkRequests(c)
		var results []*result.ExecutionResult
		for i, n := range nodes {
			for _, f := range n.Ancestors {
				rc.PushFolder(folderVars(f))
			}
			r := exec.ExecuteRequest(context.Background(), n.Request, n.Ancestors, c.Auth, rc, nil, executor.DefaultOptions())
			for range n.Ancestors {
				rc.PopFolder()
			}
			results = append(results, r)
			if runProgram != nil {
				runProgram.Send(requestDoneMsg{index: i + 1, total: len(nodes), r: r})
			}
		}
		out := result.NewCollectionExecutionResult(results)
		return runFinishedMsg{out: out}
	}
}

func folderVars(f *collection.Folder) (map[string]string, map[string]bool) {
	vars := make(map[string]string, len(f.Variables))
	disabled := map[string]bool{}
	for _, v := range f.Variables {
		vars[v.Key] = v.Value
		if !v.Enabled {
			disabled[v.Key] = true
		}
	}
	return vars, disabled
}

func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 6
		m.progress.Width = msg.Width - 4
	case animTickMsg:
		m.animPos, m.animVel = m.animSpring.Update(m.animPos, m.animVel, m.animTarget)
		if m.animTarget > 0.5 && m.animPos > 0.85 {
			m.animTarget = 0.0
		} else if m.animTarget < 0.5 && m.animPos < 0.15 {
			m.animTarget = 1.0
		}
		if m.final == nil {
			return m, animTick()
		}
		return m, nil
	case requestDoneMsg:
		m.done = msg.index
		m.total = msg.total
		m.results = append(m.results, msg.r)
		m.viewport.SetContent(renderLog(m.results, m.styles))
		m.viewport.GotoBottom()
	case runFinishedMsg:
		m.final = msg.out
		m.viewport.SetContent(renderLog(m.results, m.styles))
	case reloadMsg:
		m.c = msg.c
		m.envName = msg.envName
		m.done, m.total, m.results, m.final = 0, 0, nil, nil
		m.viewport.SetContent("")
		return m, runCollectionAsync(m.c, m.cfg, m.envName)
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m runModel) View() string {
	header := m.styles.Header.Render(fmt.Sprintf(" %s ", m.c.Info.Name))

	var status string
	if m.final != nil {
		status = fmt.Sprintf("done — %d ok, %d failed", m.final.Successful, m.final.Failed)
	} else if m.total > 0 {
		status = fmt.Sprintf("%d/%d", m.done, m.total)
	} else {
		status = "starting…"
	}

	bar := m.progress.ViewAs(m.animPos)
	hint := m.styles.Muted.Render("q to quit")

	return header + "\n\n" + bar + "  " + status + "\n\n" + m.viewport.View() + "\n" + hint
}

func renderLog(results []*result.ExecutionResult, styles runStyles) string {
	var out string
	for _, r := range results {
		if r.Success {
			status := ""
			if r.Response != nil {
				status = fmt.Sprintf("%d", r.Response.StatusCode)
			}
			out += styles.Success.Render(fmt.Sprintf("✓ %-40s %s", r.RequestRef, status)) + "\n"
		} else {
			out += styles.Failure.Render(fmt.Sprintf("✗ %-40s %s", r.RequestRef, r.Error)) + "\n"
		}
	}
	return out
}

// watchCollection re-runs the collection whenever its file changes on disk
// (--watch). There is no debouncing: every Write or Create event on the
// file that still loads triggers a reload.
func watchCollection(path string, p *tea.Program) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return
	}
	abs, _ := filepath.Abs(path)

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			evAbs, _ := filepath.Abs(ev.Name)
			if evAbs != abs {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			c, err := loader.LoadFile(path)
			if err != nil {
				continue
			}
			cfg, err := loadConfig()
			if err != nil {
				continue
			}
			envName := cfg.DefaultEnv
			p.Send(reloadMsg{c: c, envName: envName})
		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
		}
	}
}
