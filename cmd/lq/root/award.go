package root

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"lifequest/internal/engine"
	"lifequest/internal/ui"
)

func newAwardCmd() *cobra.Command {
	var (
		key    string
		source string
	)

	cmd := &cobra.Command{
		Use:   "award <skill> <amount>",
		Short: "Apply a raw XP adjustment to a skill (positive or negative)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid amount: %q", args[1])
			}

			ctx := context.Background()
			svc, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := svc.AwardXP(ctx, engine.AwardInput{
				Skill:          args[0],
				Amount:         amount,
				Source:         source,
				IdempotencyKey: key,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if res.Duplicate {
				fmt.Fprintln(out, ui.Muted.Render("Already recorded; nothing changed."))
				return nil
			}
			fmt.Fprintln(out, ui.Heading(ui.IconSparkle, fmt.Sprintf("%s %+d XP (applied %+d)", res.Skill, res.Requested, res.Applied)))
			if res.ClipReason != "" {
				fmt.Fprintln(out, ui.Muted.Render("clipped: "+res.ClipReason))
			}
			fmt.Fprintln(out, ui.LabelValue("Total", fmt.Sprintf("%d XP, level %d", res.NewTotal, res.NewLevel)))
			if res.LeveledUp {
				fmt.Fprintln(out, ui.IconTrophy+" "+ui.BadgeLevelUp)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&key, "key", "k", "", "idempotency key (replays are no-ops)")
	cmd.Flags().StringVar(&source, "source", "manual", "award source")
	return cmd
}

func newRestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rest",
		Short: "Log today as a deliberate rest day (earns Recovery XP)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := svc.RestDay(ctx, "manual")
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if res.Duplicate {
				fmt.Fprintln(out, ui.Muted.Render("Rest day already logged for today."))
				return nil
			}
			fmt.Fprintln(out, ui.Heading(ui.IconRest, "Rest day logged"))
			fmt.Fprintln(out, ui.LabelValue("XP", fmt.Sprintf("+%d %s", res.XPApplied, ui.Muted.Render(res.Skill))))
			return nil
		},
	}
}

func newRolloverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollover",
		Short: "Process the day boundary: expire stale quests, record misses, spawn today's quests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := svc.Rollover(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Heading(ui.IconLoop, "Rollover complete"))
			fmt.Fprintln(out, ui.LabelValue("Expired", res.Expired))
			fmt.Fprintln(out, ui.LabelValue("Rolled over", res.RolledOver))
			fmt.Fprintln(out, ui.LabelValue("Failed", res.Failed))
			fmt.Fprintln(out, ui.LabelValue("Instantiated", res.Instantiated))
			if res.StreaksBroken > 0 {
				fmt.Fprintln(out, ui.Warn.Render(fmt.Sprintf("Streaks broken: %d", res.StreaksBroken)))
			}
			return nil
		},
	}
}
