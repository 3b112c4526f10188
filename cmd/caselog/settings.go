package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
}

var passwordFlags struct {
	current string
	new     string
}

var setPasswordCmd = &cobra.Command{
	Use:   "set-password",
	Short: "Change the settings password",
	RunE:  runSetPassword,
}

func init() {
	f := setPasswordCmd.Flags()
	f.StringVar(&passwordFlags.current, "current", "", "Current password (required)")
	f.StringVar(&passwordFlags.new, "new", "", "New password (required)")
	cobra.CheckErr(setPasswordCmd.MarkFlagRequired("current"))
	cobra.CheckErr(setPasswordCmd.MarkFlagRequired("new"))

	settingsCmd.AddCommand(setPasswordCmd)
}

func runSetPassword(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	if err := a.store.EnsurePassword(ctx); err != nil {
		return err
	}
	if err := a.store.VerifyPassword(ctx, passwordFlags.current); err != nil {
		return err
	}
	if err := a.store.UpdatePassword(ctx, passwordFlags.new); err != nil {
		return err
	}

	fmt.Println("Password updated.")
	return nil
}
