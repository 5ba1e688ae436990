// Package cli is the line-oriented review front-end. It drives the
// session engine with blocking reads of user input: Enter reveals the
// answer, then g/a/s grades the card and q ends the session.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/HartreeWorks/skill--mochi-srs/internal/session"
)

type Frontend struct {
	in  *bufio.Reader
	out io.Writer
}

func New(in io.Reader, out io.Writer) *Frontend {
	return &Frontend{in: bufio.NewReader(in), out: out}
}

var rule = strings.Repeat("─", 50)

// Run drives the engine until it reaches a terminal state or input
// runs out.
func (f *Frontend) Run(ctx context.Context, eng *session.Engine) error {
	if eng.Start() == session.NothingDue {
		fmt.Fprintln(f.out, "\nNo cards due for review!")
		return nil
	}

	total := eng.Summary().Total
	fmt.Fprintf(f.out, "\nFound %d card(s) due for review.\n", total)
	fmt.Fprintln(f.out, "Controls: [Enter] reveal | [g]ood | [a]gain | [s]kip | [q]uit")
	fmt.Fprint(f.out, "\nPress Enter to start...")
	if _, err := f.in.ReadString('\n'); err != nil {
		eng.Abort()
		return err
	}

	for eng.State() == session.Presenting {
		view, ok := eng.Current()
		if !ok {
			break
		}
		summary := eng.Summary()
		fmt.Fprintf(f.out, "\n%s\n", rule)
		fmt.Fprintf(f.out, "  Review (%d/%d)  |  Reviewed: %d  Skipped: %d\n",
			view.Position, view.Total, summary.Counts.Reviewed, summary.Counts.Skipped)
		fmt.Fprintf(f.out, "%s\n\n%s\n\n", rule, view.Question)

		fmt.Fprint(f.out, "[Press Enter to reveal answer]")
		if _, err := f.in.ReadString('\n'); err != nil {
			eng.Abort()
			return err
		}

		view, err := eng.Reveal()
		if err != nil {
			return err
		}
		fmt.Fprintf(f.out, "\n%s\n\n%s\n\n%s\n", rule, view.Answer, rule)
		fmt.Fprintln(f.out, "[g] Good  [a] Again  [s] Skip  [q] Quit")

		if err := f.grade(ctx, eng); err != nil {
			return err
		}
	}

	f.printSummary(eng)
	return nil
}

// grade prompts until a valid grading action is read and applies it.
func (f *Frontend) grade(ctx context.Context, eng *session.Engine) error {
	for {
		fmt.Fprint(f.out, "> ")
		line, err := f.in.ReadString('\n')
		if err != nil {
			eng.Abort()
			return err
		}

		var g session.Grade
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "g", "good", "":
			g = session.Good
		case "a", "again":
			g = session.Again
		case "s", "skip":
			g = session.Skip
		case "q", "quit":
			eng.Abort()
			return nil
		default:
			fmt.Fprintln(f.out, "Invalid input. Use [g]ood, [a]gain, [s]kip, or [q]uit")
			continue
		}

		before := len(eng.Summary().Failures)
		if err := eng.Grade(ctx, g); err != nil {
			return err
		}
		if len(eng.Summary().Failures) > before {
			fmt.Fprintln(f.out, "  (Review saved locally, API sync failed)")
		}
		return nil
	}
}

func (f *Frontend) printSummary(eng *session.Engine) {
	summary := eng.Summary()
	fmt.Fprintf(f.out, "\n%s\n", rule)
	if summary.State == session.Complete {
		fmt.Fprintln(f.out, "  Review Complete!")
	} else {
		fmt.Fprintln(f.out, "  Session ended.")
	}
	fmt.Fprintf(f.out, "%s\n\n", rule)
	fmt.Fprintf(f.out, "  Cards reviewed: %d (good: %d, again: %d)\n",
		summary.Counts.Reviewed, summary.Counts.Good, summary.Counts.Again)
	fmt.Fprintf(f.out, "  Cards skipped:  %d\n", summary.Counts.Skipped)
	if len(summary.Failures) > 0 {
		fmt.Fprintf(f.out, "  Failed syncs:   %d\n", len(summary.Failures))
		for _, failure := range summary.Failures {
			fmt.Fprintf(f.out, "    - %s: %v\n", failure.CardID, failure.Err)
		}
	}
	fmt.Fprintln(f.out)
}
