package root

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"lifequest/internal/engine"
	"lifequest/internal/ui"
)

func newDoCmd() *cobra.Command {
	var (
		partial float64
		key     string
		source  string
		start   bool
	)

	cmd := &cobra.Command{
		Use:   "do <quest-id>",
		Short: "Complete a quest (or start it with --start)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid quest id: %q", args[0])
			}

			ctx := context.Background()
			svc, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if start {
				if err := svc.StartQuest(ctx, id, source); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ui.Heading(ui.IconBolt, fmt.Sprintf("Quest %d started", id)))
				return nil
			}

			res, err := svc.CompleteQuest(ctx, engine.CompleteInput{
				QuestID:        id,
				Source:         source,
				IdempotencyKey: key,
				PartialCredit:  partial,
			})
			if err != nil {
				return err
			}
			printCompletion(cmd, res)
			return nil
		},
	}

	cmd.Flags().Float64VarP(&partial, "partial", "p", 0, "partial credit in (0,1], 0 means full")
	cmd.Flags().StringVarP(&key, "key", "k", "", "idempotency key (replays are no-ops)")
	cmd.Flags().StringVar(&source, "source", "manual", "completion source: manual|voice|auto")
	cmd.Flags().BoolVar(&start, "start", false, "mark the quest in progress instead of completing it")

	return cmd
}

func printCompletion(cmd *cobra.Command, res *engine.CompleteResult) {
	out := cmd.OutOrStdout()
	if res.Duplicate {
		fmt.Fprintln(out, ui.Muted.Render("Already recorded; nothing changed."))
		return
	}

	fmt.Fprintln(out, ui.Heading(ui.IconDone, fmt.Sprintf("Quest %d completed", res.QuestID)))
	if res.XPApplied != res.XPRequested {
		fmt.Fprintln(out, ui.LabelValue("XP", fmt.Sprintf("+%d (of %d, clipped: %s)", res.XPApplied, res.XPRequested, res.ClipReason)))
	} else if res.XPApplied > 0 {
		fmt.Fprintln(out, ui.LabelValue("XP", fmt.Sprintf("+%d %s", res.XPApplied, ui.Muted.Render(res.Skill))))
	}
	if res.LevelUp {
		fmt.Fprintf(out, "%s %s %s to %s\n", ui.IconTrophy, ui.BadgeLevelUp,
			ui.Muted.Render(fmt.Sprint(res.LevelBefore)), ui.Gold.Render(fmt.Sprint(res.LevelAfter)))
	}
	if res.Streak > 1 {
		line := fmt.Sprintf("%d days", res.Streak)
		if res.StreakMilestone {
			line += " " + ui.Gold.Render("milestone!")
		}
		fmt.Fprintln(out, ui.LabelValue("Streak", line))
	}
	if res.ProjectCompleted {
		fmt.Fprintln(out, ui.Good.Render(ui.IconTrophy+" Project complete!"))
	}
}

func newFailCmd() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "fail <quest-id>",
		Short: "Mark a quest as failed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid quest id: %q", args[0])
			}

			ctx := context.Background()
			svc, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := svc.FailQuest(ctx, id, source); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Warn.Render(fmt.Sprintf("Quest %d marked failed. No XP lost; tomorrow is a new day.", id)))
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "manual", "source: manual|voice|auto")
	return cmd
}
