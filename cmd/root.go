package cmd

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/abhisek/tutorpilot/internal/config"
	"github.com/abhisek/tutorpilot/internal/logging"
	"github.com/abhisek/tutorpilot/internal/ui/theme"
)

// env holds what PersistentPreRunE resolved for the running command.
var env struct {
	cfg    *config.Config
	logger *logging.Logger
}

var rootCmd = &cobra.Command{
	Use:   "tutorpilot",
	Short: "Adaptive tutoring core: query routing and student mastery",
	Long: "tutorpilot routes student messages to a tutoring mode and tracks per-topic mastery,\n" +
		"review schedules and misconceptions to decide how much scaffolding a reply needs.",
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Path to a YAML or JSON config file")
	pf.String("db", "", "Path to SQLite database file (overrides store.path)")
	pf.String("profile", "", "Routing profile: modes or tasks (overrides router.profile)")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.Bool("no-color", false, "Disable styled output")

	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(masteryCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads configuration with flag overrides and builds the logger.
func setup(cmd *cobra.Command, args []string) error {
	overrides := map[string]any{}
	for flag, key := range map[string]string{
		"db":        "store.path",
		"profile":   "router.profile",
		"log-level": "log.level",
	} {
		if v, _ := cmd.Flags().GetString(flag); v != "" {
			overrides[key] = v
		}
	}

	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, overrides)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	env.cfg = cfg
	env.logger = logger

	noColor, _ := cmd.Flags().GetBool("no-color")
	theme.SetPlain(noColor || !isTerminal(os.Stdout))
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if env.logger != nil {
		return env.logger.Close()
	}
	return nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
