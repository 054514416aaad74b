package root

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"lifequest/internal/engine"
	"lifequest/internal/ui"
)

func newAddCmd() *cobra.Command {
	var (
		questType  string
		skill      string
		difficulty int
		estMinutes int
		due        string
		parentID   int64
		step       int
	)

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a quest (daily, project, habit, challenge) or a project step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			qt, ok := engine.ParseQuestType(questType)
			if !ok {
				return fmt.Errorf("invalid quest type: %q", questType)
			}

			in := engine.CreateQuestInput{
				Title:            args[0],
				QuestType:        qt,
				Skill:            skill,
				Difficulty:       engine.Difficulty(difficulty),
				EstimatedMinutes: estMinutes,
			}
			if due != "" {
				t, err := time.Parse(engine.DayFormat, due)
				if err != nil {
					return fmt.Errorf("due must be YYYY-MM-DD: %w", err)
				}
				in.DueDate = &t
			}
			if parentID > 0 {
				in.ParentID = &parentID
				in.StepNumber = &step
			}

			id, err := svc.CreateQuest(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Heading(ui.IconSparkle, fmt.Sprintf("Quest %d created", id)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&questType, "type", "t", "daily", "quest type: daily|project|habit|challenge")
	cmd.Flags().StringVarP(&skill, "skill", "s", "Focus", "skill the quest trains")
	cmd.Flags().IntVarP(&difficulty, "difficulty", "d", int(engine.DifficultyEasy), "difficulty tier 1-5")
	cmd.Flags().IntVar(&estMinutes, "minutes", 0, "estimated minutes to complete")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().Int64Var(&parentID, "parent", 0, "parent project id (makes this a step)")
	cmd.Flags().IntVar(&step, "step", 1, "step number within the parent project")

	return cmd
}

func newTemplateCmd() *cobra.Command {
	var (
		questType  string
		recurrence string
		skill      string
		difficulty int
		estMinutes int
		rollover   bool
		retire     int64
	)

	cmd := &cobra.Command{
		Use:   "template [title]",
		Short: "Register a recurring quest template, or retire one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if retire > 0 {
				if err := svc.RetireTemplate(ctx, retire); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ui.Heading(ui.IconLoop, fmt.Sprintf("Template %d retired", retire)))
				return nil
			}
			if len(args) != 1 {
				return fmt.Errorf("template title required")
			}

			qt, ok := engine.ParseQuestType(questType)
			if !ok {
				return fmt.Errorf("invalid quest type: %q", questType)
			}
			policy := engine.RolloverFail
			if rollover {
				policy = engine.RolloverRecreate
			}

			id, err := svc.CreateTemplate(ctx, engine.CreateTemplateInput{
				Title:            args[0],
				QuestType:        qt,
				Recurrence:       engine.Recurrence(recurrence),
				Skill:            skill,
				Difficulty:       engine.Difficulty(difficulty),
				EstimatedMinutes: estMinutes,
				RolloverPolicy:   policy,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Heading(ui.IconLoop, fmt.Sprintf("Template %d created", id)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&questType, "type", "t", "habit", "quest type: daily|habit|challenge")
	cmd.Flags().StringVarP(&recurrence, "every", "e", "daily", "recurrence: daily|weekly|monthly|none")
	cmd.Flags().StringVarP(&skill, "skill", "s", "Focus", "skill the quest trains")
	cmd.Flags().IntVarP(&difficulty, "difficulty", "d", int(engine.DifficultyEasy), "difficulty tier 1-5")
	cmd.Flags().IntVar(&estMinutes, "minutes", 0, "estimated minutes to complete")
	cmd.Flags().BoolVar(&rollover, "rollover", false, "re-create instead of failing at day boundary")
	cmd.Flags().Int64Var(&retire, "retire", 0, "retire the template with this id (stops future instantiation)")

	return cmd
}
