package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"medflow/internal/medical"
	"medflow/internal/workflow"
)

var wizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Run the five-stage wizard in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		render, err := markdownRenderer(cmd)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		w := &wizard{
			svc:    a.svc,
			screen: a.screens.Render,
			render: render,
			in:     bufio.NewScanner(os.Stdin),
			out:    os.Stdout,
		}
		return w.run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(wizardCmd)
}

var errQuit = errors.New("quit")

type wizard struct {
	svc    workflow.Service
	screen func(*workflow.Session) string
	render func(string) (string, error)
	in     *bufio.Scanner
	out    io.Writer
}

func (w *wizard) show(s *workflow.Session) {
	text, err := w.render(w.screen(s))
	if err != nil {
		text = w.screen(s)
	}
	fmt.Fprintln(w.out, text)
}

// ask prints prompt and returns the trimmed answer. EOF or "q" quits.
func (w *wizard) ask(prompt string) (string, error) {
	fmt.Fprintf(w.out, "%s: ", prompt)
	if !w.in.Scan() {
		if err := w.in.Err(); err != nil {
			return "", err
		}
		return "", errQuit
	}
	answer := strings.TrimSpace(w.in.Text())
	if answer == "q" {
		return "", errQuit
	}
	return answer, nil
}

func (w *wizard) run(ctx context.Context) error {
	sess, err := w.svc.CreateSession(ctx)
	if err != nil {
		return err
	}
	id := sess.ID
	fmt.Fprintln(w.out, "MedFlow wizard. Enter q at any prompt to quit.")

	for {
		next, err := w.step(ctx, sess)
		if errors.Is(err, errQuit) {
			return nil
		}
		var verr *workflow.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(w.out, "! %s\n", verr.Message)
			if next, err = w.svc.GetSession(ctx, id); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		sess = next
	}
}

func (w *wizard) step(ctx context.Context, sess *workflow.Session) (*workflow.Session, error) {
	switch sess.Stage {
	case workflow.StagePatientInput:
		return w.intake(ctx, sess)
	case workflow.StageSymptomAnalysis:
		return w.runStep(ctx, sess, w.svc.RunSymptomAnalysis)
	case workflow.StageKnowledgeRetrieval:
		return w.runStep(ctx, sess, w.svc.RunKnowledgeRetrieval)
	case workflow.StageSpecialistRouting:
		return w.routing(ctx, sess)
	default:
		w.show(sess)
		answer, err := w.ask("Start a new consultation? [y/N]")
		if err != nil {
			return sess, err
		}
		if !strings.EqualFold(answer, "y") {
			return sess, errQuit
		}
		return w.svc.Reset(ctx, sess.ID)
	}
}

func (w *wizard) intake(ctx context.Context, sess *workflow.Session) (*workflow.Session, error) {
	w.show(sess)

	ageText, err := w.ask("Age")
	if err != nil {
		return sess, err
	}
	var patch workflow.PatientPatch
	if ageText != "" {
		age, err := strconv.Atoi(ageText)
		if err != nil {
			return sess, &workflow.ValidationError{Message: "Age must be a number"}
		}
		patch.Age = &age
	}
	genderText, err := w.ask("Gender (male/female/other)")
	if err != nil {
		return sess, err
	}
	if genderText != "" {
		g := medical.Gender(strings.ToLower(genderText))
		patch.Gender = &g
	}
	history, err := w.ask("Medical history (comma-separated, optional)")
	if err != nil {
		return sess, err
	}
	if history != "" {
		patch.MedicalHistoryText = &history
	}
	if sess, err = w.svc.UpdatePatient(ctx, sess.ID, patch); err != nil {
		return sess, err
	}

	for {
		name, err := w.ask("Symptom (empty to finish)")
		if err != nil {
			return sess, err
		}
		if name == "" {
			break
		}
		in := workflow.SymptomInput{Name: name}
		sevText, err := w.ask(fmt.Sprintf("Severity %d-%d [%d]", medical.MinSeverity, medical.MaxSeverity, medical.DefaultSeverity))
		if err != nil {
			return sess, err
		}
		if sevText != "" {
			if in.Severity, err = strconv.Atoi(sevText); err != nil {
				fmt.Fprintln(w.out, "! Severity must be a number")
				continue
			}
		}
		if in.Duration, err = w.ask("Duration (e.g. 3 days)"); err != nil {
			return sess, err
		}
		if in.Description, err = w.ask("Description (optional)"); err != nil {
			return sess, err
		}
		updated, err := w.svc.AddSymptom(ctx, sess.ID, in)
		var verr *workflow.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(w.out, "! %s\n", verr.Message)
			continue
		}
		if err != nil {
			return sess, err
		}
		sess = updated
	}
	return w.svc.Proceed(ctx, sess.ID)
}

type pipelineRun func(ctx context.Context, id uuid.UUID, events chan<- workflow.StreamEvent) (*workflow.Session, error)

// runStep executes a pipeline step, printing its progress, and advances the
// wizard once it succeeds.
func (w *wizard) runStep(ctx context.Context, sess *workflow.Session, run pipelineRun) (*workflow.Session, error) {
	events := make(chan workflow.StreamEvent)
	type result struct {
		sess *workflow.Session
		err  error
	}
	done := make(chan result, 1)
	go func() {
		defer close(events)
		s, err := run(ctx, sess.ID, events)
		done <- result{s, err}
	}()

	fmt.Fprintf(w.out, "== %s ==\n", sess.Stage.Label())
	for ev := range events {
		label := ev.Status
		if ev.Step != "" {
			label = ev.Step + ": " + ev.Status
		}
		fmt.Fprintf(w.out, "[%3d%%] %s\n", ev.Progress, label)
	}

	res := <-done
	if res.err != nil {
		if latest, err := w.svc.GetSession(ctx, sess.ID); err == nil && latest.Error != "" {
			fmt.Fprintf(w.out, "! %s\n", latest.Error)
		}
		answer, err := w.ask("Retry? [Y/n]")
		if err != nil {
			return sess, err
		}
		if strings.EqualFold(answer, "n") {
			return sess, errQuit
		}
		return w.svc.GetSession(ctx, sess.ID)
	}
	w.show(res.sess)
	return w.svc.Proceed(ctx, sess.ID)
}

func (w *wizard) routing(ctx context.Context, sess *workflow.Session) (*workflow.Session, error) {
	w.show(sess)
	answer, err := w.ask(fmt.Sprintf("Specialist to consult [%s]", sess.SelectedSpecialist))
	if err != nil {
		return sess, err
	}
	if answer != "" {
		if sess, err = w.svc.SelectSpecialist(ctx, sess.ID, medical.SpecialistType(answer)); err != nil {
			return sess, err
		}
	}
	fmt.Fprintf(w.out, "Consulting %s...\n", sess.SelectedSpecialist.Title())
	if sess, err = w.svc.ConsultSpecialist(ctx, sess.ID); err != nil {
		return sess, err
	}
	w.show(sess)

	answer, err = w.ask("Continue to the final diagnosis? [Y/n]")
	if err != nil {
		return sess, err
	}
	if strings.EqualFold(answer, "n") {
		// Stay on routing so another specialist can be consulted.
		return sess, nil
	}
	return w.svc.Proceed(ctx, sess.ID)
}
