package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"lifequest/internal/engine"
	"lifequest/internal/ui"
)

type boardModel struct {
	ctx context.Context
	svc *engine.Service

	width  int
	height int

	skills []engine.SkillSnapshot
	ranked []engine.RankedQuest

	selected int
	lastLog  string
	loading  bool
	err      error
}

type loadedMsg struct {
	skills []engine.SkillSnapshot
	ranked []engine.RankedQuest
	err    error
}

type completedMsg struct {
	id  int64
	res *engine.CompleteResult
	err error
}

func newBoardModel(ctx context.Context, svc *engine.Service) boardModel {
	return boardModel{
		ctx:     ctx,
		svc:     svc,
		loading: true,
		lastLog: "Loaded.",
	}
}

func (m boardModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m boardModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		skills, err := m.svc.Skills(m.ctx)
		if err != nil {
			return loadedMsg{err: err}
		}
		ranked, err := m.svc.Today(m.ctx)
		if err != nil {
			return loadedMsg{err: err}
		}
		return loadedMsg{skills: skills, ranked: ranked}
	}
}

func (m boardModel) completeCmd(id int64) tea.Cmd {
	return func() tea.Msg {
		res, err := m.svc.CompleteQuest(m.ctx, engine.CompleteInput{
			QuestID: id,
			Source:  "manual",
		})
		return completedMsg{id: id, res: res, err: err}
	}
}

func (m boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case loadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.err != nil {
			m.lastLog = "Load failed: " + msg.err.Error()
			return m, nil
		}
		m.skills = msg.skills
		m.ranked = msg.ranked
		if m.selected >= len(m.ranked) {
			m.selected = len(m.ranked) - 1
		}
		if m.selected < 0 {
			m.selected = 0
		}
		m.lastLog = fmt.Sprintf("Refreshed at %s.", time.Now().Format("15:04:05"))
		return m, nil
	case completedMsg:
		if msg.err != nil {
			m.lastLog = "Complete failed: " + msg.err.Error()
			return m, nil
		}
		note := fmt.Sprintf("Completed %d: +%d XP", msg.id, msg.res.XPApplied)
		if msg.res.ClipReason != "" {
			note += " (" + msg.res.ClipReason + ")"
		}
		if msg.res.LevelUp {
			note += " " + ui.BadgeLevelUp
		}
		m.lastLog = note
		return m, m.loadCmd()
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			m.loading = true
			m.lastLog = "Refreshing…"
			return m, m.loadCmd()
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
			return m, nil
		case "down", "j":
			if m.selected < len(m.ranked)-1 {
				m.selected++
			}
			return m, nil
		case "c", " ", "enter":
			if m.selected < 0 || m.selected >= len(m.ranked) {
				return m, nil
			}
			q := m.ranked[m.selected].Quest
			m.lastLog = fmt.Sprintf("Completing %d…", q.ID)
			return m, m.completeCmd(q.ID)
		}
	}
	return m, nil
}

func (m boardModel) View() string {
	if m.err != nil {
		return "Error: " + m.err.Error() + "\n\nPress q to quit.\n"
	}

	var b strings.Builder
	b.WriteString(ui.Heading(ui.IconQuest, "Today") + "\n\n")

	if m.loading {
		b.WriteString("Loading…\n")
	} else if len(m.ranked) == 0 {
		b.WriteString(ui.Muted.Render("(no open quests; enjoy the quiet or take a rest day)") + "\n")
	} else {
		for i, rq := range m.ranked {
			cursor := "  "
			if i == m.selected {
				cursor = "> "
			}
			q := rq.Quest
			b.WriteString(fmt.Sprintf("%s%s %s %s %s %s\n",
				cursor,
				ui.TypeIcon(q.QuestType),
				ui.Muted.Render(fmt.Sprintf("#%d", q.ID)),
				q.Title,
				ui.Muted.Render(fmt.Sprintf("%s/%s %d xp", q.Domain, q.Skill, q.XPReward)),
				ui.StatusText(q.Status),
			))
		}
	}

	b.WriteString("\n" + ui.H2.Render("Skills") + "\n")
	for _, sk := range m.skills {
		b.WriteString(fmt.Sprintf("- %-11s L%-2d %s\n", sk.Skill, sk.Level, progressBar(sk.ProgressToNext, 16)))
	}

	b.WriteString("\n" + ui.Muted.Render("j/k move · c/space complete · r refresh · q quit") + "\n")
	b.WriteString(m.lastLog + "\n")
	return b.String()
}

func progressBar(ratio float64, width int) string {
	if width <= 3 {
		width = 3
	}
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	filled := int(ratio * float64(width))
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}
