package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdul-hamid-achik/postcheck/packages/core/config"
	"github.com/spf13/cobra"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new postcheck project",
	Long: `Initialize a new postcheck project in the current directory.

This creates:
  - postcheck.yaml        - Configuration file with environments
  - .env                  - Variables exported before each run
  - checks/example.yaml   - Example YAML suite

Examples:
  postcheck init
  postcheck init --force`,
	Args: cobra.NoArgs,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
}

const envTemplate = `# Variables exported before each postcheck run.
# Reference them as {{$NAME}} in postcheck.yaml and suite files.
API_TOKEN=
`

const exampleSuite = `name: example
scenarios:
  - name: read back a created post
    tags: [smoke]
    steps:
      - name: create
        method: POST
        path: /posts
        body:
          userId: 1
          title: "{{$loremSentence()}}"
          body: "{{$loremText()}}"
        expect:
          - subject: status
            op: "=="
            value: 201
          - subject: body
            op: echoes
            value: [title, body]
        capture:
          - name: postId
            path: id
      - name: read
        method: GET
        path: /posts/{{postId}}
        expect:
          - subject: status
            op: "=="
            value: 200
          - subject: body.id
            op: "=="
            value: "{{postId}}"
`

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	return writeProject(cmd, cwd)
}

func writeProject(cmd *cobra.Command, dir string) error {
	files := []struct {
		path    string
		content string
	}{
		{filepath.Join(dir, config.ConfigFilenames[0]), config.Template},
		{filepath.Join(dir, ".env"), envTemplate},
		{filepath.Join(dir, "checks", "example.yaml"), exampleSuite},
	}

	if !forceInit {
		for _, f := range files {
			if _, err := os.Stat(f.path); err == nil {
				return exitWith(ExitUsageError, fmt.Errorf("file already exists: %s (use --force to overwrite)", f.path))
			}
		}
	}

	for _, f := range files {
		if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		if err := os.WriteFile(f.path, []byte(f.content), 0o644); err != nil {
			return fmt.Errorf("failed to create %s: %w", filepath.Base(f.path), err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", f.path)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\npostcheck project initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'postcheck mock' in one terminal and 'postcheck run checks' in another.\n")
	return nil
}
