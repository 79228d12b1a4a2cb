package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/tutorpilot/internal/mastery"
	"github.com/abhisek/tutorpilot/internal/tutor"
	"github.com/abhisek/tutorpilot/internal/ui/theme"
)

var masteryCmd = &cobra.Command{
	Use:   "mastery",
	Short: "Inspect and update a student's mastery model",
}

var masteryShowCmd = &cobra.Command{
	Use:   "show <student>",
	Short: "Show per-topic mastery, state and review schedule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		d, err := buildDeps(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer d.Close()

		sum, err := d.tutor.Summary(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), sum)
		}
		renderSummary(cmd.OutOrStdout(), sum)
		return nil
	},
}

var masteryRecordCmd = &cobra.Command{
	Use:   "record <student> <topic>",
	Short: "Record a graded answer and update mastery",
	Example: `  tutorpilot mastery record ada dfs --correct --confidence 0.8
  tutorpilot mastery record ada dfs --answer "dfs explores breadth-first" --expected "depth-first"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		correct, _ := cmd.Flags().GetBool("correct")
		confidence, _ := cmd.Flags().GetFloat64("confidence")
		hints, _ := cmd.Flags().GetInt("hints")
		question, _ := cmd.Flags().GetString("question")
		answer, _ := cmd.Flags().GetString("answer")
		expected, _ := cmd.Flags().GetString("expected")
		if !cmd.Flags().Changed("confidence") && correct {
			confidence = 1
		}

		d, err := buildDeps(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer d.Close()

		res, err := d.tutor.RecordAnswer(cmd.Context(), args[0], tutor.Answer{
			Topic:         args[1],
			Question:      question,
			StudentAnswer: answer,
			CorrectAnswer: expected,
			Outcome:       mastery.Outcome{Correct: correct, Confidence: confidence, HintLevel: hints},
		})
		if res == nil {
			return err
		}

		w := cmd.OutOrStdout()
		c := res.Change
		field(w, "Topic", c.Topic)
		field(w, "Mastery", fmt.Sprintf("%.2f -> %.2f  %s", c.From, c.To, theme.Bar(c.To, 20)))
		state := styledState(c.ToState)
		if c.StateChanged() {
			state = fmt.Sprintf("%s -> %s", styledState(c.FromState), state)
		}
		field(w, "State", state)
		field(w, "Next level", res.Difficulty)
		if !c.NextReview.IsZero() {
			field(w, "Next review", formatTime(c.NextReview))
		}
		if res.Misconception != nil {
			note := res.Misconception.MisconceptionID + " (" + res.Misconception.Detector + ")"
			if res.NewMisconception {
				note += " " + theme.Paint(theme.Struggling, "new")
			}
			field(w, "Misconception", note)
		}
		return err
	},
}

var masteryReviewCmd = &cobra.Command{
	Use:   "review <student>",
	Short: "List topics due for review, most overdue first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")

		d, err := buildDeps(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer d.Close()

		sum, err := d.tutor.Summary(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		byTopic := make(map[string]tutor.TopicSummary, len(sum.Topics))
		for _, t := range sum.Topics {
			byTopic[t.Topic] = t
		}
		topics := sum.ReviewDue
		if all {
			topics = nil
			for _, t := range sum.Topics {
				if t.NextReview != nil {
					topics = append(topics, t.Topic)
				}
			}
		}
		if len(topics) == 0 {
			fmt.Fprintln(w, "Nothing due for review.")
			return nil
		}

		fmt.Fprintf(w, "%-24s  %-19s  %-10s  %s\n", "Topic", "Next review", "Status", "Mastery")
		rule(w, 70)
		for _, topic := range topics {
			t := byTopic[topic]
			next := "-"
			if t.NextReview != nil {
				next = formatTime(*t.NextReview)
			}
			fmt.Fprintf(w, "%-24s  %-19s  %-10s  %.2f\n", truncate(topic, 24), next, t.ReviewStatus, t.Mastery)
		}
		return nil
	},
}

var masteryDetectCmd = &cobra.Command{
	Use:   "detect <student> <topic> <answer...>",
	Short: "Check a free-text answer for a known misconception",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		expected, _ := cmd.Flags().GetString("expected")

		d, err := buildDeps(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer d.Close()

		det, err := d.tutor.DetectMisconception(cmd.Context(), args[0], args[1], strings.Join(args[2:], " "), expected)
		if det == nil {
			if err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No misconception detected.")
			}
			return err
		}
		w := cmd.OutOrStdout()
		field(w, "Misconception", theme.Paint(theme.Struggling, det.MisconceptionID))
		field(w, "Detector", det.Detector)
		field(w, "Confidence", fmt.Sprintf("%.2f", det.Confidence))
		if det.Reasoning != "" {
			field(w, "Reasoning", det.Reasoning)
		}
		return err
	},
}

func init() {
	masteryShowCmd.Flags().Bool("json", false, "Print the summary as JSON")

	f := masteryRecordCmd.Flags()
	f.Bool("correct", false, "The answer was correct")
	f.Float64("confidence", 0, "Grader confidence in [0,1] (default 1 for correct answers)")
	f.Int("hints", 0, "Hint level used, 0-3")
	f.String("question", "", "Question text, passed to the diagnoser")
	f.String("answer", "", "Student's answer text, checked for misconceptions when wrong")
	f.String("expected", "", "Reference answer")

	masteryReviewCmd.Flags().Bool("all", false, "List every scheduled topic, not only due ones")
	masteryDetectCmd.Flags().String("expected", "", "Reference answer")

	masteryCmd.AddCommand(masteryShowCmd)
	masteryCmd.AddCommand(masteryRecordCmd)
	masteryCmd.AddCommand(masteryReviewCmd)
	masteryCmd.AddCommand(masteryDetectCmd)
}
