package root

import (
	"context"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"lifequest/internal/engine"
	"lifequest/internal/ui"
)

func newListCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List quests (open by default, --all for everything)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			quests, err := svc.ListQuests(ctx, all)
			if err != nil {
				return err
			}
			if len(quests) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), ui.Muted.Render("No quests. Try: lq add \"Morning run\" --skill Endurance"))
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleRounded)
			t.AppendHeader(table.Row{"ID", "", "Title", "Skill", "XP", "Due", "Status"})
			for _, q := range quests {
				due := ""
				if q.DueDate != nil {
					due = q.DueDate.Format(engine.DayFormat)
				} else if q.ScheduleDay != nil {
					due = *q.ScheduleDay
				}
				title := q.Title
				if q.ParentID != nil && q.StepNumber != nil {
					title = fmt.Sprintf("  └ %s", title)
				}
				xp := fmt.Sprint(q.XPReward)
				if q.QuestType == string(engine.QuestProject) {
					done, total, err := projectStepCounts(ctx, svc, q.ID)
					if err == nil && total > 0 {
						xp = fmt.Sprintf("%d (%d/%d)", q.XPReward, done, total)
					}
				}
				t.AppendRow(table.Row{q.ID, ui.TypeIcon(q.QuestType), title, q.Skill, xp, due, ui.StatusText(q.Status)})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "include completed, failed and rolled-over quests")
	return cmd
}

func projectStepCounts(ctx context.Context, svc *engine.Service, projectID int64) (done, total int, err error) {
	frac, err := svc.ProjectCompletion(ctx, projectID)
	if err != nil {
		return 0, 0, err
	}
	steps, err := svc.ProjectSteps(ctx, projectID)
	if err != nil {
		return 0, 0, err
	}
	total = len(steps)
	done = int(frac*float64(total) + 0.5)
	return done, total, nil
}

func newTodayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Show today's quests, most pressing first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			ranked, err := svc.Today(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Heading(ui.IconQuest, time.Now().Format("Monday, Jan 2")))
			if len(ranked) == 0 {
				fmt.Fprintln(out, ui.Muted.Render("Nothing on the board. Rest is progress too."))
				return nil
			}
			for i, rq := range ranked {
				q := rq.Quest
				due := ""
				if q.DueDate != nil {
					due = " " + ui.Muted.Render("due "+q.DueDate.Format(engine.DayFormat))
				}
				fmt.Fprintf(out, "%2d. %s %s %s%s\n",
					i+1, ui.TypeIcon(q.QuestType), q.Title,
					ui.Muted.Render(fmt.Sprintf("(+%d XP)", q.XPReward)), due)
			}
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show every skill's level and progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			skills, err := svc.Skills(ctx)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleRounded)
			t.AppendHeader(table.Row{"Domain", "Skill", "Level", "XP", "Next"})
			for _, sk := range skills {
				t.AppendRow(table.Row{sk.Domain, sk.Skill, sk.Level, sk.XP, progressBar(sk.ProgressToNext)})
			}
			t.Render()
			return nil
		},
	}
}

func progressBar(frac float64) string {
	const width = 10
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	filled := int(frac * width)
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return fmt.Sprintf("%s %3.0f%%", bar, frac*100)
}

func newAuditCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the XP ledger: every award, what was requested vs applied, and why clips happened",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			since := time.Now().AddDate(0, 0, -days)
			awards, err := svc.Audit(ctx, since)
			if err != nil {
				return err
			}
			if len(awards) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), ui.Muted.Render("No awards in window."))
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleRounded)
			t.AppendHeader(table.Row{"When", "Skill", "Requested", "Applied", "Source", "Clip"})
			for _, a := range awards {
				t.AppendRow(table.Row{
					a.CreatedAt.Local().Format("Jan 2 15:04"),
					a.Skill, a.Requested, a.Applied, a.Source, a.ClipReason,
				})
			}
			t.Render()
			fmt.Fprintln(cmd.OutOrStdout(), ui.Muted.Render(
				fmt.Sprintf("Ceiling: %d XP per rolling 24h", svc.Config().DailyXPCeiling)))
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "how many days back to show")
	return cmd
}
