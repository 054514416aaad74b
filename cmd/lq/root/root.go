package root

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lifequest/internal/ui"
)

const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:           "lq",
	Short:         "LifeQuest: turn real-world actions into XP without the dark patterns",
	Long:          "LifeQuest converts workouts, reflections, projects and habits into skill XP and quest progress, with built-in anti-burnout limits.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	rootCmd.AddCommand(
		newAddCmd(),
		newTemplateCmd(),
		newDoCmd(),
		newFailCmd(),
		newListCmd(),
		newTodayCmd(),
		newStatusCmd(),
		newAwardCmd(),
		newRestCmd(),
		newRolloverCmd(),
		newAuditCmd(),
		newBoardCmd(),
		newServeCmd(),
		newWatchCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Bad.Render(ui.IconError+" "+err.Error()))
		os.Exit(1)
	}
}
