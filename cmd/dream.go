package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bnema/oneiro/internal/adapters/httpapi"
	"github.com/bnema/oneiro/internal/adapters/render/transcript"
	"github.com/bnema/oneiro/internal/application"
	"github.com/bnema/oneiro/internal/domain"
	"github.com/spf13/cobra"
)

func newDreamCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dream",
		Short: "Record and interpret dreams",
	}

	cmd.AddCommand(
		newDreamStartCmd(app),
		newDreamAnswerCmd(app),
		newDreamShowCmd(app),
		newDreamListCmd(app),
		newDreamInterviewCmd(app),
	)

	return cmd
}

func newDreamStartCmd(app *app) *cobra.Command {
	var userID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "start <dream text>",
		Short: "Record a dream and get the first question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result application.TurnResult
			err := runTurn(cmd, asJSON, "Reading your dream...", func(ctx context.Context) error {
				var err error
				result, err = app.registry.Start(ctx, strings.Join(args, " "), domain.UserID(userID))
				return err
			})
			if err != nil {
				return err
			}

			return writeTurn(cmd, app, result, asJSON)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "Dreamer user ID")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON output")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newDreamAnswerCmd(app *app) *cobra.Command {
	var dreamID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "answer <answer text>",
		Short: "Answer the current question of a dream",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result application.TurnResult
			err := runTurn(cmd, asJSON, "Thinking...", func(ctx context.Context) error {
				var err error
				result, err = app.registry.Answer(ctx, domain.DreamID(dreamID), strings.Join(args, " "))
				return err
			})
			if err != nil {
				if domain.IsServiceFailure(err) {
					return fmt.Errorf("%w (run the same command again to retry)", err)
				}
				return err
			}

			return writeTurn(cmd, app, result, asJSON)
		},
	}

	cmd.Flags().StringVar(&dreamID, "dream", "", "Dream ID")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON output")
	_ = cmd.MarkFlagRequired("dream")

	return cmd
}

func newDreamShowCmd(app *app) *cobra.Command {
	var dreamID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the transcript of a dream",
		RunE: func(cmd *cobra.Command, _ []string) error {
			view, err := app.registry.Snapshot(cmd.Context(), domain.DreamID(dreamID))
			if err != nil {
				return err
			}

			return writeTurn(cmd, app, application.TurnResult{Session: view.Session, Degraded: view.Degraded}, asJSON)
		},
	}

	cmd.Flags().StringVar(&dreamID, "dream", "", "Dream ID")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON output")
	_ = cmd.MarkFlagRequired("dream")

	return cmd
}

func newDreamListCmd(app *app) *cobra.Command {
	var userID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the dreams of a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			records, err := app.synchronizer.ListByOwner(cmd.Context(), domain.UserID(userID))
			if err != nil {
				return err
			}

			if asJSON {
				out := make([]httpapi.RecordResponse, 0, len(records))
				for _, record := range records {
					out = append(out, httpapi.NewRecordResponse(record))
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}

			rendered, err := app.renderRecords(records, transcript.RenderOptions{Now: app.now()})
			if err != nil {
				return fmt.Errorf("render dreams: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "Dreamer user ID")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON output")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newDreamInterviewCmd(app *app) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "interview",
		Short: "Tell a dream and answer the follow-up questions interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInterview(cmd, app, domain.UserID(userID))
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "Dreamer user ID")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

// runInterview reads the dream and each answer from stdin, one line each. An
// empty line after a failed turn resubmits the previous answer.
func runInterview(cmd *cobra.Command, app *app, owner domain.UserID) error {
	out := cmd.OutOrStdout()
	lines := bufio.NewScanner(cmd.InOrStdin())

	if !app.online {
		fmt.Fprintln(out, "The assistant is not configured; questions come from the built-in set.")
	}

	fmt.Fprintln(out, "Describe your dream:")
	text, ok := readLine(lines)
	if !ok {
		return lines.Err()
	}

	var result application.TurnResult
	err := runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), "Reading your dream...", func(ctx context.Context) error {
		var err error
		result, err = app.registry.Start(ctx, text, owner)
		return err
	})
	if err != nil {
		return err
	}
	writeWarnings(cmd.ErrOrStderr(), result.Warnings)

	id := result.Session.Dream.ID
	lastAnswer := ""
	for !result.Session.IsComplete {
		if question, ok := result.Session.LastMessage(); ok && question.Sender == domain.SenderAssistant {
			fmt.Fprintf(out, "\n%s\n> ", question.Content)
		} else {
			fmt.Fprint(out, "> ")
		}

		answer, ok := readLine(lines)
		if !ok {
			fmt.Fprintf(out, "\nSaved as %s. Continue with: oneiro dream answer --dream %s <answer>\n", id, id)
			return lines.Err()
		}
		if answer == "" {
			answer = lastAnswer
		}
		lastAnswer = answer

		var next application.TurnResult
		err := runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), "Thinking...", func(ctx context.Context) error {
			var err error
			next, err = app.registry.Answer(ctx, id, answer)
			return err
		})
		switch {
		case err == nil:
			result = next
			writeWarnings(cmd.ErrOrStderr(), result.Warnings)
		case domain.IsServiceFailure(err):
			fmt.Fprintln(out, "The assistant did not answer. Press enter to send the same answer again.")
		case errors.Is(err, domain.ErrEmptyInput):
			fmt.Fprintln(out, "Please type an answer.")
		default:
			return err
		}
	}

	fmt.Fprintln(out)
	return writeTurn(cmd, app, result, false)
}

func readLine(lines *bufio.Scanner) (string, bool) {
	if !lines.Scan() {
		return "", false
	}
	return strings.TrimSpace(lines.Text()), true
}

func runTurn(cmd *cobra.Command, quiet bool, label string, turn func(context.Context) error) error {
	if quiet {
		return turn(cmd.Context())
	}
	return runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), label, turn)
}

func writeTurn(cmd *cobra.Command, app *app, result application.TurnResult, asJSON bool) error {
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), httpapi.NewSessionResponse(result.Session, result.Degraded, result.Warnings))
	}

	rendered, err := app.renderSession(result.Session, transcript.RenderOptions{
		Now:      app.now(),
		Degraded: result.Degraded,
		Warnings: result.Warnings,
	})
	if err != nil {
		return fmt.Errorf("render transcript: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}

func writeWarnings(w io.Writer, warnings []*domain.PersistenceWarning) {
	for _, warning := range warnings {
		fmt.Fprintf(w, "warning: %v\n", warning)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
