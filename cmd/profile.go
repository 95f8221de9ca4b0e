package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/oneiro/internal/domain"
	"github.com/spf13/cobra"
)

func newProfileCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage the dreamer profile sent with the first message",
	}

	cmd.AddCommand(newProfileSetCmd(app), newProfileShowCmd(app))

	return cmd
}

func newProfileSetCmd(app *app) *cobra.Command {
	var userID string
	var input domain.Profile

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Create or update a profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			profile, err := app.profiles.GetByUserID(cmd.Context(), domain.UserID(userID))
			if err != nil && !errors.Is(err, domain.ErrProfileNotFound) {
				return err
			}
			profile.UserID = domain.UserID(userID)

			flags := cmd.Flags()
			if flags.Changed("age") {
				if input.Age < 0 {
					return fmt.Errorf("age must not be negative, got %d", input.Age)
				}
				profile.Age = input.Age
			}
			if flags.Changed("gender") {
				profile.Gender = strings.TrimSpace(input.Gender)
			}
			if flags.Changed("marital-status") {
				profile.MaritalStatus = strings.TrimSpace(input.MaritalStatus)
			}
			if flags.Changed("has-kids") {
				profile.HasKids = input.HasKids
			}
			if flags.Changed("has-pets") {
				profile.HasPets = input.HasPets
			}
			if flags.Changed("work-status") {
				profile.WorkStatus = strings.TrimSpace(input.WorkStatus)
			}

			if err := app.profiles.Save(cmd.Context(), profile); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Saved profile for %s\n", userID)
			return err
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User ID")
	cmd.Flags().IntVar(&input.Age, "age", 0, "Age in years")
	cmd.Flags().StringVar(&input.Gender, "gender", "", "Gender")
	cmd.Flags().StringVar(&input.MaritalStatus, "marital-status", "", "Marital status")
	cmd.Flags().BoolVar(&input.HasKids, "has-kids", false, "Has children")
	cmd.Flags().BoolVar(&input.HasPets, "has-pets", false, "Has pets")
	cmd.Flags().StringVar(&input.WorkStatus, "work-status", "", "Work status")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newProfileShowCmd(app *app) *cobra.Command {
	var userID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			profile, err := app.profiles.GetByUserID(cmd.Context(), domain.UserID(userID))
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), profile)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "user: %s\n", profile.UserID)
			fmt.Fprintf(out, "age: %d\n", profile.Age)
			fmt.Fprintf(out, "gender: %s\n", valueOrNA(profile.Gender))
			fmt.Fprintf(out, "marital status: %s\n", valueOrNA(profile.MaritalStatus))
			fmt.Fprintf(out, "kids: %t\n", profile.HasKids)
			fmt.Fprintf(out, "pets: %t\n", profile.HasPets)
			_, err = fmt.Fprintf(out, "work: %s\n", valueOrNA(profile.WorkStatus))
			return err
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User ID")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON output")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func valueOrNA(value string) string {
	if value == "" {
		return "n/a"
	}
	return value
}
