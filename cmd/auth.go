package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAuthCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the assistant API key",
	}

	cmd.AddCommand(newAuthSetKeyCmd(app), newAuthRemoveKeyCmd(app))

	return cmd
}

func newAuthSetKeyCmd(app *app) *cobra.Command {
	var value string

	cmd := &cobra.Command{
		Use:   "set-key",
		Short: "Store the API key in the secret store",
		Long:  "Store the API key under assistant.api_key_ref. Without --value the key is read from the first line of stdin.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			key := strings.TrimSpace(value)
			if key == "" {
				lines := bufio.NewScanner(cmd.InOrStdin())
				if lines.Scan() {
					key = strings.TrimSpace(lines.Text())
				}
				if err := lines.Err(); err != nil {
					return fmt.Errorf("read api key: %w", err)
				}
			}
			if key == "" {
				return fmt.Errorf("api key is empty")
			}

			ref := app.cfg.Assistant.APIKeyRef
			if err := app.secretStore.Put(cmd.Context(), ref, key); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Stored API key at %s\n", ref)
			return err
		},
	}

	cmd.Flags().StringVar(&value, "value", "", "API key (read from stdin when empty)")

	return cmd
}

func newAuthRemoveKeyCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-key",
		Short: "Remove the stored API key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.secretStore.Delete(cmd.Context(), app.cfg.Assistant.APIKeyRef)
		},
	}
}
