package cmd

import (
	"fmt"

	"github.com/abdul-hamid-achik/postcheck/packages/core/suite"
	"github.com/abdul-hamid-achik/postcheck/packages/posts"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [suite files or directories...]",
	Short: "Validate YAML suite files without running them",
	Long: `Validate YAML suite files for structural errors without executing them.
With no arguments the built-in posts suite is checked.

Examples:
  postcheck validate checks.yaml
  postcheck validate ./checks/`,
	RunE: validateCommand,
}

func validateCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		if err := suite.Validate(posts.Suite()); err != nil {
			return exitWith(ExitSuiteError, fmt.Errorf("built-in suite: %w", err))
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Valid: built-in posts suite")
		return nil
	}

	files, err := suite.CollectFiles(args)
	if err != nil {
		return exitWith(ExitUsageError, err)
	}
	if len(files) == 0 {
		return exitWith(ExitUsageError, fmt.Errorf("no .yaml or .yml files found"))
	}

	hasErrors := false
	for _, file := range files {
		if _, err := suite.LoadFile(file); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error in %v\n", err)
			hasErrors = true
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s\n", file)
		}
	}

	if hasErrors {
		return exitWith(ExitSuiteError, fmt.Errorf("validation failed"))
	}
	return nil
}
