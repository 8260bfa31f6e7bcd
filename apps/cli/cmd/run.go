package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/postcheck/packages/core/config"
	"github.com/abdul-hamid-achik/postcheck/packages/core/env"
	"github.com/abdul-hamid-achik/postcheck/packages/core/runner"
	"github.com/abdul-hamid-achik/postcheck/packages/core/suite"
	"github.com/abdul-hamid-achik/postcheck/packages/harness"
	"github.com/abdul-hamid-achik/postcheck/packages/notify"
	"github.com/abdul-hamid-achik/postcheck/packages/output"
	"github.com/abdul-hamid-achik/postcheck/packages/posts"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [suite files or directories...]",
	Short: "Verify a posts API",
	Long: `Run the built-in posts checks against a backend, followed by any extra
YAML suites given as arguments, with --suite or in the config file.

Examples:
  postcheck run
  postcheck run --base-url http://localhost:3000
  postcheck run ./checks --tags smoke
  postcheck run --env staging --output junit --output-file report.xml
  postcheck run --name "create*" --bail`,
	RunE: runCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond

	// defaultEnvFile is read when present and no --env-file is given
	defaultEnvFile = ".env"
)

// runOptions holds the run flags. Zero values fall back to the config file.
type runOptions struct {
	baseURL      string
	env          string
	envFile      string
	configPath   string
	suites       []string
	noBuiltin    bool
	name         string
	tags         string
	output       string
	outputFile   string
	bail         bool
	timeout      string
	rate         float64
	parallel     bool
	concurrency  int
	token        string
	insecure     bool
	proxy        string
	waitFor      string
	waitTimeout  string
	notify       string
	notifyOn     string
	slackWebhook string
	slackChannel string
	watch        bool
	verbose      bool
	noColor      bool
}

var runOpts runOptions

func init() {
	f := runCmd.Flags()

	// Target flags
	f.StringVarP(&runOpts.baseURL, "base-url", "u", getEnvString("POSTCHECK_BASE_URL", ""), "Base URL of the posts API (env: POSTCHECK_BASE_URL)")
	f.StringVarP(&runOpts.env, "env", "e", getEnvString("POSTCHECK_ENV", ""), "Environment from the config file (env: POSTCHECK_ENV)")
	f.StringVar(&runOpts.envFile, "env-file", getEnvString("POSTCHECK_ENV_FILE", ""), "Path to .env file exported before the run (env: POSTCHECK_ENV_FILE)")
	f.StringVar(&runOpts.configPath, "config", getEnvString("POSTCHECK_CONFIG", ""), "Path to config file (env: POSTCHECK_CONFIG)")
	f.StringVar(&runOpts.token, "token", getEnvString("POSTCHECK_TOKEN", ""), "Bearer token sent with every request (env: POSTCHECK_TOKEN)")

	// Selection flags
	f.StringSliceVar(&runOpts.suites, "suite", nil, "Extra YAML suite file or directory (repeatable)")
	f.BoolVar(&runOpts.noBuiltin, "no-builtin", getEnvBool("POSTCHECK_NO_BUILTIN", false), "Skip the built-in posts suite (env: POSTCHECK_NO_BUILTIN)")
	f.StringVarP(&runOpts.name, "name", "n", "", "Run only scenarios matching name pattern")
	f.StringVarP(&runOpts.tags, "tags", "t", getEnvString("POSTCHECK_TAGS", ""), "Run only scenarios with specified tags (comma-separated) (env: POSTCHECK_TAGS)")

	// Output flags
	f.StringVarP(&runOpts.output, "output", "o", getEnvString("POSTCHECK_OUTPUT", ""), "Output format: "+strings.Join(output.Formats, ", ")+" (env: POSTCHECK_OUTPUT)")
	f.StringVar(&runOpts.outputFile, "output-file", getEnvString("POSTCHECK_OUTPUT_FILE", ""), "Write output to file (default: stdout) (env: POSTCHECK_OUTPUT_FILE)")
	f.BoolVarP(&runOpts.verbose, "verbose", "v", getEnvBool("POSTCHECK_VERBOSE", false), "Show request and response details (env: POSTCHECK_VERBOSE)")
	f.BoolVar(&runOpts.noColor, "no-color", getEnvBool("POSTCHECK_NO_COLOR", false), "Disable colored output (env: POSTCHECK_NO_COLOR)")

	// Execution flags
	f.BoolVar(&runOpts.bail, "bail", getEnvBool("POSTCHECK_BAIL", false), "Stop after the first failing scenario (env: POSTCHECK_BAIL)")
	f.StringVar(&runOpts.timeout, "timeout", getEnvString("POSTCHECK_TIMEOUT", ""), "Request timeout (e.g., 30s, 1m) (env: POSTCHECK_TIMEOUT)")
	f.Float64VarP(&runOpts.rate, "rate", "r", getEnvFloat("POSTCHECK_RATE", 0), "Maximum requests per second, 0 for unlimited (env: POSTCHECK_RATE)")
	f.BoolVarP(&runOpts.parallel, "parallel", "p", getEnvBool("POSTCHECK_PARALLEL", false), "Run scenarios in parallel (env: POSTCHECK_PARALLEL)")
	f.IntVar(&runOpts.concurrency, "concurrency", getEnvInt("POSTCHECK_CONCURRENCY", 0), "Number of scenarios run at once in parallel mode (env: POSTCHECK_CONCURRENCY)")
	f.BoolVarP(&runOpts.watch, "watch", "w", false, "Watch files for changes and re-run")
	f.StringVar(&runOpts.waitFor, "wait-for", getEnvString("POSTCHECK_WAIT_FOR", ""), "URL polled until it answers 200 before the run (env: POSTCHECK_WAIT_FOR)")
	f.StringVar(&runOpts.waitTimeout, "wait-timeout", getEnvString("POSTCHECK_WAIT_TIMEOUT", ""), "How long to poll --wait-for (default 30s) (env: POSTCHECK_WAIT_TIMEOUT)")

	// Network flags
	f.StringVar(&runOpts.proxy, "proxy", getEnvString("POSTCHECK_PROXY", ""), "Proxy URL for HTTP requests (env: POSTCHECK_PROXY)")
	f.BoolVarP(&runOpts.insecure, "insecure", "k", getEnvBool("POSTCHECK_INSECURE", false), "Disable SSL certificate validation (env: POSTCHECK_INSECURE)")

	// Notification flags
	f.StringVar(&runOpts.notify, "notify", getEnvString("POSTCHECK_NOTIFY", ""), "Notification channels (comma-separated): slack (env: POSTCHECK_NOTIFY)")
	f.StringVar(&runOpts.notifyOn, "notify-on", getEnvString("POSTCHECK_NOTIFY_ON", ""), "When to notify: always, failure, success, recovery (env: POSTCHECK_NOTIFY_ON)")
	f.StringVar(&runOpts.slackWebhook, "slack-webhook", getEnvString("POSTCHECK_SLACK_WEBHOOK", ""), "Slack webhook URL (env: POSTCHECK_SLACK_WEBHOOK)")
	f.StringVar(&runOpts.slackChannel, "slack-channel", getEnvString("POSTCHECK_SLACK_CHANNEL", ""), "Slack channel override (env: POSTCHECK_SLACK_CHANNEL)")
}

func runCommand(cmd *cobra.Command, args []string) error {
	opts := runOpts
	opts.suites = append(append([]string{}, args...), opts.suites...)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !opts.watch {
		return executeRun(ctx, &opts, cmd.OutOrStdout())
	}
	return watchRun(ctx, &opts, cmd.OutOrStdout())
}

// runPlan is everything one run needs, resolved from flags, config file,
// dotenv file and environment.
type runPlan struct {
	runner      *runner.Config
	suites      []*suite.Suite
	format      string
	outputFile  string
	formatOpts  output.Options
	notifier    *notify.Manager
	environment string
	watchPaths  []string
}

// executeRun resolves the plan, runs every suite and reports the results.
func executeRun(ctx context.Context, opts *runOptions, stdout io.Writer) error {
	plan, err := buildPlan(opts)
	if err != nil {
		return err
	}
	return runPlanOnce(ctx, plan, stdout)
}

func buildPlan(opts *runOptions) (*runPlan, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadConfig(opts.configPath)
	} else {
		cfg, err = config.FindAndLoadConfig(".")
	}
	if err != nil {
		return nil, exitWith(ExitConfigError, err)
	}

	plan := &runPlan{}
	if opts.configPath != "" {
		plan.watchPaths = append(plan.watchPaths, opts.configPath)
	} else if path := config.FindConfigFile("."); path != "" {
		plan.watchPaths = append(plan.watchPaths, path)
	}

	// dotenv values are exported so {{$NAME}} references see them
	if opts.envFile != "" {
		if _, err := env.LoadAndExportDotEnv(opts.envFile); err != nil {
			return nil, exitWith(ExitConfigError, err)
		}
		plan.watchPaths = append(plan.watchPaths, opts.envFile)
	} else if _, err := env.LoadOptionalDotEnv(defaultEnvFile); err != nil {
		return nil, exitWith(ExitConfigError, err)
	}

	envName := opts.env
	if envName == "" {
		envName = cfg.DefaultEnvironment
	}
	environment, err := env.LoadEnvironment(envName, cfg.Environments)
	if err != nil {
		return nil, exitWith(ExitConfigError, err)
	}
	plan.environment = environment.Name

	baseURL := opts.baseURL
	if baseURL == "" {
		if v, ok := environment.Variables["baseUrl"].(string); ok {
			baseURL = v
		}
	}
	if baseURL == "" {
		baseURL = cfg.BaseURL
	}

	resolver := env.NewResolver()
	resolver.SetVariables(environment.Variables)

	token := opts.token
	if token == "" {
		token = cfg.Token
	}
	if token, err = resolver.ResolveStrict(token); err != nil {
		return nil, exitWith(ExitConfigError, fmt.Errorf("token: %w", err))
	}
	if baseURL, err = resolver.ResolveStrict(baseURL); err != nil {
		return nil, exitWith(ExitConfigError, fmt.Errorf("base URL: %w", err))
	}

	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	if opts.timeout != "" {
		if timeout, err = time.ParseDuration(opts.timeout); err != nil {
			return nil, exitWith(ExitUsageError, fmt.Errorf("invalid timeout: %w", err))
		}
	}

	rate := opts.rate
	if rate == 0 {
		rate = cfg.Rate
	}
	if rate < 0 {
		return nil, exitWith(ExitUsageError, errors.New("rate must not be negative"))
	}

	concurrency := opts.concurrency
	if concurrency == 0 {
		concurrency = cfg.Concurrency
	}

	var tags []string
	if opts.tags != "" {
		for _, tag := range strings.Split(opts.tags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}

	waitFor, err := buildWaitFor(opts, cfg)
	if err != nil {
		return nil, err
	}

	proxy := opts.proxy
	if proxy == "" {
		proxy = cfg.Proxy
	}

	plan.runner = &runner.Config{
		BaseURL:        baseURL,
		Verbose:        opts.verbose || cfg.GetVerbose(),
		Timeout:        timeout,
		FollowRedirect: cfg.GetFollowRedirects(),
		Insecure:       opts.insecure || !cfg.GetValidateSSL(),
		Proxy:          proxy,
		Bail:           opts.bail || cfg.GetBail(),
		NameFilter:     opts.name,
		TagsFilter:     tags,
		Parallel:       opts.parallel || cfg.GetParallel(),
		Concurrency:    concurrency,
		Headers:        cfg.Headers,
		Token:          token,
		RateLimit:      rate,
		Variables:      environment.Variables,
		WaitFor:        waitFor,
	}

	plan.format = opts.output
	if plan.format == "" {
		plan.format = cfg.Output
	}
	plan.outputFile = opts.outputFile
	if plan.outputFile == "" {
		plan.outputFile = cfg.OutputFile
	}
	plan.formatOpts = output.Options{
		Verbose: plan.runner.Verbose,
		NoColor: opts.noColor || cfg.GetNoColor(),
	}
	// reject unknown formats before any request is sent
	if _, err := output.New(plan.format, io.Discard, plan.formatOpts); err != nil {
		return nil, exitWith(ExitUsageError, err)
	}

	if plan.notifier, err = buildNotifier(opts, cfg); err != nil {
		return nil, err
	}

	if !opts.noBuiltin {
		plan.suites = append(plan.suites, posts.Suite())
	}
	paths := append(append([]string{}, opts.suites...), cfg.Suites...)
	if len(paths) > 0 {
		files, err := suite.CollectFiles(paths)
		if err != nil {
			return nil, exitWith(ExitUsageError, err)
		}
		for _, file := range files {
			s, err := suite.LoadFile(file)
			if err != nil {
				return nil, exitWith(ExitSuiteError, err)
			}
			plan.suites = append(plan.suites, s)
		}
		plan.watchPaths = append(plan.watchPaths, paths...)
	}
	if len(plan.suites) == 0 {
		return nil, exitWith(ExitUsageError, errors.New("nothing to run: the built-in suite is disabled and no suite files were given"))
	}

	return plan, nil
}

func buildWaitFor(opts *runOptions, cfg *config.Config) (*runner.WaitFor, error) {
	var waitFor *runner.WaitFor
	if cfg.WaitFor != nil {
		waitFor = &runner.WaitFor{
			URL:     cfg.WaitFor.URL,
			Status:  cfg.WaitFor.Status,
			Timeout: time.Duration(cfg.WaitFor.Timeout) * time.Millisecond,
		}
	}
	if opts.waitFor != "" {
		waitFor = &runner.WaitFor{URL: opts.waitFor}
	}
	if waitFor != nil && opts.waitTimeout != "" {
		d, err := time.ParseDuration(opts.waitTimeout)
		if err != nil {
			return nil, exitWith(ExitUsageError, fmt.Errorf("invalid wait timeout: %w", err))
		}
		waitFor.Timeout = d
	}
	return waitFor, nil
}

func buildNotifier(opts *runOptions, cfg *config.Config) (*notify.Manager, error) {
	var fileCfg config.NotifyConfig
	if cfg.Notify != nil {
		fileCfg = *cfg.Notify
	}

	webhook := opts.slackWebhook
	if webhook == "" {
		webhook = fileCfg.SlackWebhook
	}
	channel := opts.slackChannel
	if channel == "" {
		channel = fileCfg.SlackChannel
	}

	channels := opts.notify
	if channels == "" && webhook != "" {
		channels = "slack"
	}
	if channels == "" {
		return nil, nil
	}

	policy := opts.notifyOn
	if policy == "" {
		policy = fileCfg.On
	}
	if policy == "" {
		policy = string(notify.NotifyFailure)
	}
	notifyOn, err := notify.ParseNotifyOn(policy)
	if err != nil {
		return nil, exitWith(ExitUsageError, err)
	}

	manager := notify.NewManager(notifyOn)
	for _, name := range strings.Split(channels, ",") {
		switch strings.TrimSpace(strings.ToLower(name)) {
		case "slack":
			if webhook == "" {
				return nil, exitWith(ExitUsageError, errors.New("--slack-webhook is required for slack notifications"))
			}
			var slackOpts []notify.SlackOption
			if channel != "" {
				slackOpts = append(slackOpts, notify.WithSlackChannel(channel))
			}
			manager.AddNotifier(notify.NewSlackNotifier(webhook, slackOpts...))
		case "":
		default:
			return nil, exitWith(ExitUsageError, fmt.Errorf("unknown notification channel %q", name))
		}
	}
	return manager, nil
}

// runPlanOnce runs the plan's suites in order and writes the report.
func runPlanOnce(ctx context.Context, plan *runPlan, stdout io.Writer) error {
	w := stdout
	if plan.outputFile != "" {
		f, err := os.Create(plan.outputFile)
		if err != nil {
			return exitWith(ExitConfigError, fmt.Errorf("failed to create output file: %w", err))
		}
		defer f.Close()
		w = f
	}

	formatter, err := output.New(plan.format, w, plan.formatOpts)
	if err != nil {
		return exitWith(ExitUsageError, err)
	}
	formatter.FormatHeader(version)

	start := time.Now()
	r := runner.NewRunner(plan.runner)
	if plan.runner.Verbose {
		r.Resolver().SetWarnFunc(func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, "warning: "+format+"\n", args...)
		})
	}
	var results []*runner.RunResult
	for _, s := range plan.suites {
		result, err := r.RunSuite(ctx, s)
		if err != nil {
			formatter.FormatError(err)
			flush(formatter, time.Since(start))
			switch {
			case errors.Is(err, runner.ErrInvalidBaseURL):
				return exitWith(ExitConfigError, err)
			case errors.Is(err, runner.ErrServiceNotReady):
				return exitWith(ExitNetworkError, err)
			}
			return err
		}
		formatter.FormatResult(result)
		results = append(results, result)
		if ctx.Err() != nil {
			break
		}
	}
	totalDuration := time.Since(start)
	flush(formatter, totalDuration)

	if plan.notifier != nil {
		summary := notify.Summarize(results, totalDuration)
		summary.BaseURL = plan.runner.BaseURL
		summary.Environment = plan.environment
		if err := plan.notifier.Notify(ctx, summary); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: notification failed: %v\n", err)
		}
	}

	if unreachable(results) {
		return exitWith(ExitNetworkError, fmt.Errorf("no response from %s", plan.runner.BaseURL))
	}
	for _, result := range results {
		if !result.Success() {
			return exitWith(ExitTestFailure, errStepsFailed)
		}
	}
	return nil
}

func flush(formatter output.Formatter, d time.Duration) {
	if f, ok := formatter.(output.Flushable); ok {
		if err := f.Flush(d); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to write output: %v\n", err)
		}
	}
}

// unreachable reports whether every executed step failed in transport.
// Steps rejected before sending, such as unresolved references, do not count.
func unreachable(results []*runner.RunResult) bool {
	executed := 0
	for _, result := range results {
		for _, step := range result.Results {
			if step.Skipped {
				continue
			}
			executed++
			var transportErr *harness.TransportError
			if step.Response != nil || !errors.As(step.Error, &transportErr) {
				return false
			}
		}
	}
	return executed > 0
}

// watchRun runs once, then re-runs whenever a watched file is written.
// Config, dotenv and suite files are reloaded on every run.
func watchRun(ctx context.Context, opts *runOptions, stdout io.Writer) error {
	session := &watchSession{opts: opts, stdout: stdout}
	plan, err := session.run(ctx)
	if plan == nil {
		return err
	}
	reportWatchError(err)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	watched := make(map[string]bool)
	for _, path := range plan.watchPaths {
		dir := path
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			dir = filepath.Dir(path)
		}
		if watched[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to watch %s: %v\n", dir, err)
		}
		watched[dir] = true
	}
	if len(watched) == 0 {
		if err := watcher.Add("."); err != nil {
			return fmt.Errorf("failed to watch working directory: %w", err)
		}
	}

	fmt.Fprintf(stdout, "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	rerun := make(chan struct{}, 1)
	var debounceTimer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !isWatchedFile(event.Name) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(WatchDebounceDelay, func() {
				select {
				case rerun <- struct{}{}:
				default:
				}
			})
		case <-rerun:
			fmt.Fprintf(stdout, "\n--- Change detected, re-running ---\n\n")
			_, err := session.run(ctx)
			reportWatchError(err)
			fmt.Fprintf(stdout, "\nWatching for changes... (press Ctrl+C to stop)\n")
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Warning: watcher error: %v\n", err)
		}
	}
}

// watchSession carries state across watch re-runs. The notifier is built
// by the first run and reused so recovery notifications see the previous
// outcome.
type watchSession struct {
	opts     *runOptions
	stdout   io.Writer
	notifier *notify.Manager
	runs     int
}

// run rebuilds the plan from disk and executes it. The plan is nil when it
// could not be built.
func (w *watchSession) run(ctx context.Context) (*runPlan, error) {
	plan, err := buildPlan(w.opts)
	if err != nil {
		return nil, err
	}
	if w.runs == 0 {
		w.notifier = plan.notifier
	} else {
		plan.notifier = w.notifier
	}
	w.runs++
	return plan, runPlanOnce(ctx, plan, w.stdout)
}

func reportWatchError(err error) {
	if err != nil && !errors.Is(err, errStepsFailed) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}

func isWatchedFile(path string) bool {
	base := filepath.Base(path)
	if base == defaultEnvFile || strings.HasSuffix(base, ".env") {
		return true
	}
	for _, name := range config.ConfigFilenames {
		if base == name {
			return true
		}
	}
	return suite.IsSuiteFile(path)
}
