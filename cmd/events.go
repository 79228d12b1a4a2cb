package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/tutorpilot/internal/store"
	"github.com/abhisek/tutorpilot/internal/ui/theme"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect routing and mastery events",
}

func queryOpts(cmd *cobra.Command) store.QueryOpts {
	limit, _ := cmd.Flags().GetInt("limit")
	student, _ := cmd.Flags().GetString("student")
	return store.QueryOpts{Limit: limit, StudentID: student}
}

var eventsRoutingCmd = &cobra.Command{
	Use:   "routing",
	Short: "List recent routing decisions",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBackend(cmd.Context())
		if err != nil {
			return err
		}
		defer b.Close()

		events, err := b.Events.QueryRoutingEvents(cmd.Context(), queryOpts(cmd))
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		w := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(w, "No routing events found.")
			return nil
		}

		fmt.Fprintf(w, "%-19s  %-12s  %-7s  %-9s  %5s  %s\n",
			"Timestamp", "Student", "Profile", "Label", "Conf", "Rules")
		rule(w, 96)
		for _, e := range events {
			var flags []string
			if e.ShouldConfirm {
				flags = append(flags, theme.Paint(theme.Confirm, "confirm"))
			}
			if e.Degraded {
				flags = append(flags, theme.Paint(theme.Degraded, "degraded"))
			}
			fmt.Fprintf(w, "%-19s  %-12s  %-7s  %-9s  %5.2f  %s %s\n",
				formatTime(e.Timestamp),
				truncate(e.StudentID, 12),
				e.Profile,
				e.Label,
				e.Confidence,
				strings.Join(e.Rules, ">"),
				strings.Join(flags, " "),
			)
		}
		return nil
	},
}

var eventsMasteryCmd = &cobra.Command{
	Use:   "mastery",
	Short: "List recent mastery updates",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBackend(cmd.Context())
		if err != nil {
			return err
		}
		defer b.Close()

		events, err := b.Events.QueryMasteryEvents(cmd.Context(), queryOpts(cmd))
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		w := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(w, "No mastery events found.")
			return nil
		}

		fmt.Fprintf(w, "%-19s  %-12s  %-20s  %-3s  %-13s  %s\n",
			"Timestamp", "Student", "Topic", "OK", "Mastery", "State")
		rule(w, 96)
		for _, e := range events {
			ok := theme.Paint(theme.Mastered, "✓")
			if !e.Correct {
				ok = theme.Paint(theme.Struggling, "✗")
			}
			state := e.ToState
			if e.FromState != e.ToState {
				state = e.FromState + " -> " + e.ToState
			}
			fmt.Fprintf(w, "%-19s  %-12s  %-20s  %s    %.2f -> %.2f  %s\n",
				formatTime(e.Timestamp),
				truncate(e.StudentID, 12),
				truncate(e.Topic, 20),
				ok,
				e.FromMastery, e.ToMastery,
				state,
			)
		}
		return nil
	},
}

var eventsMisconceptionsCmd = &cobra.Command{
	Use:   "misconceptions <student>",
	Short: "Count detected misconceptions for a student",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBackend(cmd.Context())
		if err != nil {
			return err
		}
		defer b.Close()

		counts, err := b.Events.MisconceptionCounts(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("query misconceptions: %w", err)
		}
		w := cmd.OutOrStdout()
		if len(counts) == 0 {
			fmt.Fprintln(w, "No misconceptions recorded.")
			return nil
		}

		ids := make([]string, 0, len(counts))
		for id := range counts {
			ids = append(ids, id)
		}
		slices.SortFunc(ids, func(a, b string) int {
			if counts[a] != counts[b] {
				return counts[b] - counts[a]
			}
			return strings.Compare(a, b)
		})
		for _, id := range ids {
			fmt.Fprintf(w, "%-32s  %d\n", id, counts[id])
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{eventsRoutingCmd, eventsMasteryCmd} {
		c.Flags().IntP("limit", "n", 20, "Number of events to show")
		c.Flags().StringP("student", "s", "", "Only events for this student")
	}

	eventsCmd.AddCommand(eventsRoutingCmd)
	eventsCmd.AddCommand(eventsMasteryCmd)
	eventsCmd.AddCommand(eventsMisconceptionsCmd)
}
