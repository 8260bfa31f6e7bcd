package cmd

import (
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/postcheck/packages/db"
	"github.com/abdul-hamid-achik/postcheck/packages/mock"
	"github.com/abdul-hamid-achik/postcheck/packages/posts"
	"github.com/spf13/cobra"
)

var (
	mockPortFlag    int
	mockDelayFlag   string
	mockVerboseFlag bool
	mockDBFlag      string
	mockTokenFlag   string
	mockSeedFlag    string
	mockNoSeedFlag  bool
)

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Start a fake posts backend",
	Long: `Start an HTTP server that behaves like the posts API postcheck verifies.

The mock server:
- Serves /posts and /posts/{id} for GET, POST, PUT and DELETE
- Serves the same routes under /664, where writes need a bearer token
- Seeds 100 sample posts, or the posts of a JSON fixture file
- Keeps posts in memory, or in SQLite with --db
- Can add artificial delays to simulate network latency

Examples:
  postcheck mock
  postcheck mock --port 3000 --delay 100ms
  postcheck mock --db sqlite://posts.db --token s3cret
  postcheck mock --seed ./fixtures/posts.json --verbose`,
	Args: cobra.NoArgs,
	RunE: mockCommand,
}

func init() {
	mockCmd.Flags().IntVarP(&mockPortFlag, "port", "p", getEnvInt("POSTCHECK_MOCK_PORT", 3000), "Port to run the mock server on (env: POSTCHECK_MOCK_PORT)")
	mockCmd.Flags().StringVarP(&mockDelayFlag, "delay", "d", "0", "Delay to add to all responses (e.g., 100ms, 1s)")
	mockCmd.Flags().BoolVarP(&mockVerboseFlag, "verbose", "v", false, "Log every request")
	mockCmd.Flags().StringVar(&mockDBFlag, "db", getEnvString("POSTCHECK_MOCK_DB", ""), "SQLite connection string (e.g., sqlite://posts.db, sqlite::memory:) (env: POSTCHECK_MOCK_DB)")
	mockCmd.Flags().StringVar(&mockTokenFlag, "token", getEnvString("POSTCHECK_TOKEN", ""), "Bearer token accepted on /664 writes (env: POSTCHECK_TOKEN)")
	mockCmd.Flags().StringVar(&mockSeedFlag, "seed", "", "JSON fixture of posts to seed (default: bundled sample posts)")
	mockCmd.Flags().BoolVar(&mockNoSeedFlag, "no-seed", false, "Start with the existing or an empty store")
}

func mockCommand(cmd *cobra.Command, args []string) error {
	var delay time.Duration
	if mockDelayFlag != "0" {
		var err error
		delay, err = time.ParseDuration(mockDelayFlag)
		if err != nil {
			return exitWith(ExitUsageError, fmt.Errorf("invalid delay value %q: %w", mockDelayFlag, err))
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := log.New(cmd.ErrOrStderr(), "", log.LstdFlags)
	opts := []mock.Option{
		mock.WithPort(mockPortFlag),
		mock.WithDelay(delay),
		mock.WithVerbose(mockVerboseFlag),
		mock.WithToken(mockTokenFlag),
		mock.WithLogger(logger),
	}

	if mockDBFlag != "" {
		store, err := db.OpenPostStore(ctx, mockDBFlag)
		if err != nil {
			return exitWith(ExitConfigError, err)
		}
		defer store.Close()
		opts = append(opts, mock.WithStore(store))
	}

	server := mock.NewServer(opts...)

	if !mockNoSeedFlag {
		list, err := posts.LoadFixture(mockSeedFlag)
		if err != nil {
			return exitWith(ExitConfigError, err)
		}
		if err := server.Seed(ctx, list); err != nil {
			return exitWith(ExitConfigError, fmt.Errorf("failed to seed posts: %w", err))
		}
		logger.Printf("Seeded %d posts", len(list))
	}

	go func() {
		<-ctx.Done()
		logger.Println("Shutting down mock server...")
	}()

	return server.StartWithContext(ctx)
}
