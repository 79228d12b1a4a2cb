package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/tutorpilot/internal/mastery"
	"github.com/abhisek/tutorpilot/internal/router"
	"github.com/abhisek/tutorpilot/internal/tutor"
	"github.com/abhisek/tutorpilot/internal/ui/theme"
)

// maxSessionTurns bounds the history kept by the session loop.
const maxSessionTurns = 10

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Plan replies for a stream of student messages read from stdin",
	Long: `Reads one student message per line and prints the reply plan for each.

Lines starting with ':' are commands:
  :answer correct|wrong [answer text]   grade an answer on the current topic
  :summary                              show the student's mastery model
  :quit                                 end the session`,
	RunE: func(cmd *cobra.Command, args []string) error {
		studentID, _ := cmd.Flags().GetString("student")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		d, err := buildDeps(ctx, true)
		if err != nil {
			return err
		}
		defer d.Close()

		if metricsAddr != "" {
			go func() {
				if err := d.metrics.Serve(ctx, metricsAddr); err != nil {
					env.logger.Error("metrics server stopped", "error", err)
				}
			}()
		}
		if env.cfg.Router.Watch && env.cfg.Router.ProfilePath != "" {
			w, err := router.NewProfileWatcher(env.cfg.Router.ProfilePath, d.router,
				router.WithWatchLogger(env.logger.Logger))
			if err != nil {
				return err
			}
			go w.Watch(ctx)
		}

		s := &session{
			ctx:     ctx,
			tutor:   d.tutor,
			student: studentID,
			out:     cmd.OutOrStdout(),
		}
		interactive := isTerminal(os.Stdin)
		return s.run(cmd.InOrStdin(), interactive)
	},
}

func init() {
	sessionCmd.Flags().String("student", "student", "Student id")
	sessionCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
}

type session struct {
	ctx     context.Context
	tutor   *tutor.Service
	student string
	out     io.Writer

	history []router.Turn
	topic   string
}

// readLines scans in on its own goroutine so a blocked read never delays
// cancellation. The error channel receives the scan error once lines closes.
func readLines(in io.Reader, done <-chan struct{}) (<-chan string, <-chan error) {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
				return
			}
		}
		errc <- sc.Err()
	}()
	return lines, errc
}

func (s *session) run(in io.Reader, interactive bool) error {
	done := make(chan struct{})
	defer close(done)
	lines, errc := readLines(in, done)

	for {
		if interactive {
			fmt.Fprint(s.out, theme.Paint(theme.Title, s.student+"> "))
		}
		var line string
		select {
		case <-s.ctx.Done():
			if interactive {
				fmt.Fprintln(s.out)
			}
			return nil
		case l, ok := <-lines:
			if !ok {
				return <-errc
			}
			line = strings.TrimSpace(l)
		}
		if line == "" {
			continue
		}

		var err error
		switch {
		case line == ":quit" || line == ":q":
			return nil
		case line == ":summary":
			err = s.summary()
		case strings.HasPrefix(line, ":answer"):
			err = s.answer(strings.TrimSpace(strings.TrimPrefix(line, ":answer")))
		case strings.HasPrefix(line, ":"):
			err = fmt.Errorf("unknown command %s", line)
		default:
			err = s.respond(line)
		}
		if err != nil {
			fmt.Fprintln(s.out, theme.Paint(theme.Struggling, "error: ")+err.Error())
		}
		fmt.Fprintln(s.out)
	}
}

func (s *session) respond(line string) error {
	plan, err := s.tutor.Respond(s.ctx, s.student, line, s.history)
	if err != nil {
		return err
	}
	renderPlan(s.out, plan)
	if plan.Topic != "" {
		s.topic = plan.Topic
	}

	s.history = append(s.history,
		router.Turn{Role: router.RoleStudent, Content: line},
		router.Turn{
			Role:    router.RoleAssistant,
			Content: fmt.Sprintf("[%s reply on %s]", plan.Scaffolding, plan.Topic),
			Mode:    plan.Decision.Label,
		},
	)
	if n := len(s.history); n > maxSessionTurns {
		s.history = s.history[n-maxSessionTurns:]
	}
	return nil
}

func (s *session) answer(args string) error {
	if s.topic == "" {
		return errors.New("no current topic; ask about one first")
	}
	verdict, text, _ := strings.Cut(args, " ")
	var correct bool
	switch verdict {
	case "correct", "right", "yes":
		correct = true
	case "wrong", "incorrect", "no":
	default:
		return errors.New("usage: :answer correct|wrong [answer text]")
	}

	outcome := mastery.Outcome{Correct: correct}
	if correct {
		outcome.Confidence = 1
	}
	res, err := s.tutor.RecordAnswer(s.ctx, s.student, tutor.Answer{
		Topic:         s.topic,
		StudentAnswer: strings.TrimSpace(text),
		Outcome:       outcome,
	})
	if res == nil {
		return err
	}
	c := res.Change
	field(s.out, "Mastery", fmt.Sprintf("%s %.2f -> %.2f  %s", c.Topic, c.From, c.To, styledState(c.ToState)))
	if res.Misconception != nil {
		field(s.out, "Misconception", res.Misconception.MisconceptionID)
	}
	return err
}

func (s *session) summary() error {
	sum, err := s.tutor.Summary(s.ctx, s.student)
	if err != nil {
		return err
	}
	renderSummary(s.out, sum)
	return nil
}
