package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/altinukshini/gha-triage/internal/api"
	"github.com/altinukshini/gha-triage/internal/ui"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the installed GitHub CLI is recent enough",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := api.CheckGhVersion(cmd.Context())
			if err != nil {
				return fmt.Errorf("GitHub CLI not usable: %w", err)
			}
			out := cmd.OutOrStdout()
			if !v.Supported() {
				fmt.Fprintf(out, "%s gh %s is older than %s\n", ui.StatusIcon("failure"), v.Version, api.MinGhVersion)
				return fmt.Errorf("gh %s or newer is required", api.MinGhVersion)
			}
			fmt.Fprintf(out, "%s gh %s (>= %s)\n", ui.StatusIcon("success"), v.Version, api.MinGhVersion)
			return nil
		},
	}
}
