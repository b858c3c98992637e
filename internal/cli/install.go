package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kamilpajak/visualgate/internal/playwright"
)

func newInstallBrowsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install-browsers",
		Short: "Install the Playwright driver and Chromium",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := playwright.Install(); err != nil {
				return fmt.Errorf("failed to install browsers: %w", err)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "Browsers installed")
			return nil
		},
	}
	skipConfig(cmd)
	return cmd
}
