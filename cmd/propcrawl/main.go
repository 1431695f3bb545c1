package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/propcrawl"
	"github.com/fwojciec/propcrawl/fs"
	pchttp "github.com/fwojciec/propcrawl/http"
	"github.com/fwojciec/propcrawl/rod"
	"github.com/fwojciec/propcrawl/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cfg, err := LoadConfig()
	if err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	m := NewMain(cfg)
	err = m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Config is read from the environment. Set before calling Run().
	Config *Config

	// SQLite database used by SQLite service implementations.
	DB *sqlite.DB

	// NewFetcher builds the page fetcher for the crawl command.
	// Defaults to the plain HTTP fetcher, or headless Chrome when browser is set.
	NewFetcher func(browser bool) (propcrawl.Fetcher, error)
}

// NewMain returns a new instance of Main with defaults.
func NewMain(cfg *Config) *Main {
	m := &Main{Config: cfg}
	m.NewFetcher = m.newFetcher
	return m
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
		Config: m.Config,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("propcrawl"),
		kong.Description("Crawl domain.com.au listings into a local SQLite database."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'propcrawl --help' to see available commands")
	}

	cmd := args[0]
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	m.DB = sqlite.NewDB(m.Config.DBPath)
	if err := m.DB.Open(); err != nil {
		fmt.Fprintf(stderr, "Hint: Set PROPCRAWL_DB to use a different database path\n")
		return fmt.Errorf("failed to open database at %q: %w", m.Config.DBPath, err)
	}
	defer m.Close()

	deps.Logger = NewLogger(m.Config, stderr)
	deps.DB = m.DB
	deps.Suburbs = sqlite.NewSuburbService(m.DB)
	deps.Properties = sqlite.NewPropertyService(m.DB)
	deps.Importer = sqlite.NewImportService(m.DB)
	deps.Progress = fs.NewProgressStore(m.Config.ProgressPath)
	deps.NewFetcher = m.NewFetcher

	return kongCtx.Run(deps)
}

func (m *Main) newFetcher(browser bool) (propcrawl.Fetcher, error) {
	if browser {
		var managerOpts []rod.ManagerOption
		if m.Config.UserAgent != "" {
			managerOpts = append(managerOpts, rod.WithUserAgent(m.Config.UserAgent))
		}
		f, err := rod.NewFetcherWithManagerOptions([]rod.Option{rod.WithFetchTimeout(m.Config.FetchTimeout)}, managerOpts)
		if err != nil {
			return nil, fmt.Errorf("failed to start browser (Chrome or Chromium must be installed): %w", err)
		}
		return f, nil
	}
	opts := []pchttp.Option{pchttp.WithTimeout(m.Config.FetchTimeout)}
	if m.Config.UserAgent != "" {
		opts = append(opts, pchttp.WithUserAgent(m.Config.UserAgent))
	}
	return pchttp.NewFetcher(opts...), nil
}
