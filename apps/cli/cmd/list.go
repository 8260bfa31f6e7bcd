package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/abdul-hamid-achik/postcheck/packages/core/suite"
	"github.com/abdul-hamid-achik/postcheck/packages/posts"
	"github.com/spf13/cobra"
)

var listNoBuiltin bool

var listCmd = &cobra.Command{
	Use:   "list [suite files or directories...]",
	Short: "List the scenarios and steps that would run",
	Long: `List the built-in posts scenarios and those of any YAML suites given.

Examples:
  postcheck list
  postcheck list ./checks --no-builtin`,
	RunE: listCommand,
}

func init() {
	listCmd.Flags().BoolVar(&listNoBuiltin, "no-builtin", false, "Omit the built-in posts suite")
}

func listCommand(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if !listNoBuiltin {
		printSuite(out, "built-in", posts.Suite())
	}

	files, err := suite.CollectFiles(args)
	if err != nil {
		return exitWith(ExitUsageError, err)
	}
	if len(args) > 0 && len(files) == 0 {
		return exitWith(ExitUsageError, fmt.Errorf("no .yaml or .yml files found"))
	}

	failed := false
	for _, file := range files {
		s, err := suite.LoadFile(file)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error loading %s: %v\n", file, err)
			failed = true
			continue
		}
		printSuite(out, file, s)
	}
	if failed {
		return exitWith(ExitSuiteError, fmt.Errorf("some suite files could not be loaded"))
	}
	return nil
}

func printSuite(w io.Writer, source string, s *suite.Suite) {
	fmt.Fprintf(w, "\n%s (%s):\n", s.Name, source)
	for _, sc := range s.Scenarios {
		fmt.Fprintf(w, "  - %s\n", sc.Name)
		if len(sc.Tags) > 0 {
			fmt.Fprintf(w, "    tags: %s\n", strings.Join(sc.Tags, ", "))
		}
		if sc.Skip != "" {
			fmt.Fprintf(w, "    skip: %s\n", sc.Skip)
		}
		for _, step := range sc.Steps {
			if step.Name == sc.Name {
				fmt.Fprintf(w, "      %s %s\n", step.Method, step.Path)
				continue
			}
			fmt.Fprintf(w, "      %s: %s %s\n", step.Name, step.Method, step.Path)
		}
	}
}
