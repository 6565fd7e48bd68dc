package main

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/kass/bkd-geo-index/internal/ingest"
	"github.com/kass/bkd-geo-index/pkg/bkd"
	"github.com/kass/bkd-geo-index/pkg/kdb"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF79C6")).
			Background(lipgloss.Color("#282A36")).
			Padding(0, 1).
			MarginTop(1).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#8BE9FD"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#50FA7B"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6272A4"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#BD93F9")).
			Padding(1, 2).
			MarginTop(1).
			MarginBottom(1)

	statStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFB86C"))
)

var tuiCmd = &cobra.Command{
	Use:   "tui <points-file> <queries-file>",
	Short: "Visual walkthrough of load, build, and query phases",
	Args:  cobra.ExactArgs(2),
	RunE:  runTUI,
}

type tuiStage int

const (
	stageLoading tuiStage = iota
	stageLoadComplete
	stageBuilding
	stageBuildComplete
	stageQuerying
	stageDone
)

type loadStatsMsg struct {
	points   int
	duration time.Duration
}

type buildStatsMsg struct {
	trees    int
	duration time.Duration
}

type queryStatsMsg struct {
	queries  int
	hits     int
	duration time.Duration
}

type progressMsg float64
type advanceMsg struct{}

type tuiModel struct {
	stage    tuiStage
	spinner  spinner.Model
	progress progress.Model

	pointsFile  string
	queriesFile string

	load  loadStatsMsg
	build buildStatsMsg
	query queryStatsMsg

	progressPct float64
}

func newTUIModel(pointsFile, queriesFile string) tuiModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF79C6"))

	return tuiModel{
		stage:       stageLoading,
		spinner:     s,
		progress:    progress.New(progress.WithDefaultGradient()),
		pointsFile:  pointsFile,
		queriesFile: queriesFile,
	}
}

func (m tuiModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, runPipeline(m.pointsFile, m.queriesFile))
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.progress.Width = msg.Width - 10
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		m.progress = pm.(progress.Model)
		return m, cmd

	case progressMsg:
		m.progressPct = float64(msg)
		return m, m.progress.SetPercent(float64(msg))

	case loadStatsMsg:
		m.load = msg
		m.stage = stageLoadComplete
		return m, advanceAfter()

	case buildStatsMsg:
		m.build = msg
		m.stage = stageBuildComplete
		return m, advanceAfter()

	case queryStatsMsg:
		m.query = msg
		m.stage = stageDone
		return m, nil

	case advanceMsg:
		m.stage++
		return m, nil
	}

	return m, nil
}

func advanceAfter() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(time.Time) tea.Msg {
		return advanceMsg{}
	})
}

func (m tuiModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("BKD Forest Demo"))
	b.WriteString("\n\n")

	switch m.stage {
	case stageLoading:
		b.WriteString(subtitleStyle.Render("Loading points"))
		b.WriteString("\n\n")
		b.WriteString(m.spinner.View() + " Reading " + m.pointsFile + "...\n\n")
		b.WriteString(m.progress.ViewAs(m.progressPct))

	case stageLoadComplete:
		b.WriteString(boxStyle.Render(successStyle.Render("Load complete!\n\n") + fmt.Sprintf(
			"Points loaded: %s\nLoad time: %s",
			statStyle.Render(fmt.Sprintf("%d", m.load.points)),
			statStyle.Render(m.load.duration.String()),
		)))

	case stageBuilding:
		b.WriteString(subtitleStyle.Render("Building BKD forest"))
		b.WriteString("\n\n")
		b.WriteString(m.spinner.View() + " Sorting and partitioning...\n\n")

	case stageBuildComplete:
		b.WriteString(boxStyle.Render(successStyle.Render("Build complete!\n\n") + fmt.Sprintf(
			"Trees: %s\nBuild time: %s",
			statStyle.Render(fmt.Sprintf("%d", m.build.trees)),
			statStyle.Render(m.build.duration.String()),
		)))

	case stageQuerying:
		b.WriteString(subtitleStyle.Render("Running queries"))
		b.WriteString("\n\n")
		b.WriteString(m.spinner.View() + " Reading " + m.queriesFile + "...\n\n")

	case stageDone:
		b.WriteString(boxStyle.Render(successStyle.Render("Done!\n\n") + fmt.Sprintf(
			"Queries run: %s\nTotal hits: %s\nQuery time: %s",
			statStyle.Render(fmt.Sprintf("%d", m.query.queries)),
			statStyle.Render(fmt.Sprintf("%d", m.query.hits)),
			statStyle.Render(m.query.duration.String()),
		)))
	}

	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("Press 'q' to quit"))
	return b.String()
}

var tuiProgram *tea.Program

func runPipeline(pointsFile, queriesFile string) tea.Cmd {
	return func() tea.Msg {
		go executePipeline(pointsFile, queriesFile)
		return nil
	}
}

func executePipeline(pointsFile, queriesFile string) {
	loadStart := time.Now()
	points, err := ingest.LoadPoints(pointsFile)
	if err != nil {
		return
	}

	var loaded atomic.Int32
	loaded.Store(int32(len(points)))
	tuiProgram.Send(progressMsg(1.0))

	tuiProgram.Send(loadStatsMsg{points: len(points), duration: time.Since(loadStart)})

	time.Sleep(400 * time.Millisecond)

	buildStart := time.Now()
	forest, err := bkd.NewForest(points, defaultMaxDocsPerLeaf)
	if err != nil {
		return
	}
	tuiProgram.Send(buildStatsMsg{trees: forest.NumTrees(), duration: time.Since(buildStart)})

	time.Sleep(400 * time.Millisecond)

	queries, err := ingest.LoadQueries(queriesFile)
	if err != nil {
		return
	}

	queryStart := time.Now()
	hits := 0
	for _, q := range queries {
		c := kdb.NewCollector(0)
		forest.Contains(q.Upper, q.Lower, c)
		hits += c.Len()
	}
	tuiProgram.Send(queryStatsMsg{queries: len(queries), hits: hits, duration: time.Since(queryStart)})
}

func runTUI(cmd *cobra.Command, args []string) error {
	model := newTUIModel(args[0], args[1])
	tuiProgram = tea.NewProgram(model)
	_, err := tuiProgram.Run()
	return err
}
