package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/tutorpilot/internal/router"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <message...>",
	Short: "Route one student message and print the decision",
	Example: `  tutorpilot classify "where are the lecture slides for week 3"
  tutorpilot classify --profile tasks "solve 2x + 3 = 7"
  tutorpilot classify --after educate "what about dropout"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		after, _ := cmd.Flags().GetString("after")
		previous, _ := cmd.Flags().GetString("previous")

		var history []router.Turn
		if after != "" {
			label := router.Label(after)
			if !label.Valid() {
				return fmt.Errorf("unknown label %q", after)
			}
			if previous != "" {
				history = append(history, router.Turn{Role: router.RoleStudent, Content: previous})
			}
			history = append(history, router.Turn{Role: router.RoleAssistant, Mode: label})
		}

		d, err := buildDeps(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer d.Close()

		decision := d.router.Classify(cmd.Context(), strings.Join(args, " "), history)
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), decisionJSON(decision))
		}
		renderDecision(cmd.OutOrStdout(), decision)
		return nil
	},
}

func init() {
	classifyCmd.Flags().Bool("json", false, "Print the decision as JSON")
	classifyCmd.Flags().String("after", "", "Label of the previous assistant turn, to test follow-ups")
	classifyCmd.Flags().String("previous", "", "Previous student message, used with --after")
}
