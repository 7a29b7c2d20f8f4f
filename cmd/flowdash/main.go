package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/processfirst/flowdash/pkg/catalog"
	"github.com/processfirst/flowdash/pkg/config"
	"github.com/processfirst/flowdash/pkg/flow"
	"github.com/processfirst/flowdash/pkg/logging"
	"github.com/processfirst/flowdash/pkg/model"
	"github.com/processfirst/flowdash/pkg/output"
	"github.com/processfirst/flowdash/pkg/report"
	"github.com/processfirst/flowdash/pkg/topology"
	"github.com/processfirst/flowdash/pkg/watcher"
	"github.com/processfirst/flowdash/pkg/web"
	"github.com/spf13/pflag"
)

func main() {
	// Parse command-line flags
	flags := pflag.NewFlagSet("flowdash", pflag.ExitOnError)
	config.RegisterFlags(flags)
	if err := flags.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := setupLogging(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	app, err := newApp(cfg)
	if err != nil {
		logging.Fatal("failed to initialize", "error", err)
	}

	if !cfg.WebMode {
		app.printConsole()
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := app.serve(ctx); err != nil {
		logging.Fatal("server failed", "error", err)
	}
}

func setupLogging(cfg *config.Config) error {
	level, err := logging.ParseLevel(cfg.Verbosity, cfg.VerboseCnt)
	if err != nil {
		return err
	}
	if cfg.LogJSON {
		logging.SetJSONOutput(level)
	} else {
		logging.SetLevel(level)
	}
	return nil
}

// app holds the shared state of one dashboard process
type app struct {
	cfg        *config.Config
	store      *flow.Store
	catalog    *catalog.Catalog
	builder    *report.Builder
	results    *report.Results
	resultsErr error
}

func newApp(cfg *config.Config) (*app, error) {
	a := &app{
		cfg:   cfg,
		store: flow.NewStore(model.Seed()),
	}

	a.catalog = catalog.New()
	if path := cfg.ComponentsPath(); path != "" {
		cat, err := catalog.Load(path)
		if err != nil {
			return nil, fmt.Errorf("loading component catalog: %w", err)
		}
		a.catalog = cat
	}
	logging.Debug("component catalog loaded", "source", a.catalog.Source(), "components", a.catalog.Len())

	// Missing results are surfaced by the analytics and report endpoints
	a.results, a.resultsErr = report.LoadResults(cfg.ResultsPath())
	if a.resultsErr != nil {
		logging.Warn("analytics results unavailable", "path", cfg.ResultsPath(), "error", a.resultsErr)
	}

	a.builder = report.NewBuilder(newGenerator(cfg.Generator))
	return a, nil
}

// newGenerator returns nil when no API key is configured, which disables insights
func newGenerator(g config.GeneratorConfig) report.Generator {
	if !g.Enabled() {
		logging.Info("no generator API key configured, reports will not include insights")
		return nil
	}
	return report.NewCohereClient(report.CohereConfig{
		APIKey:      g.APIKey,
		BaseURL:     g.BaseURL,
		Model:       g.Model,
		MaxTokens:   g.MaxTokens,
		Temperature: g.Temperature,
		Timeout:     g.Timeout,
	})
}

func (a *app) printConsole() {
	g := a.store.Snapshot()
	output.PrintFlowSummary(os.Stdout, g, topology.Analyze(g))

	filter := report.DefaultFilter()
	var results *report.Results
	if a.results != nil {
		results = filter.Apply(a.results)
	}
	output.PrintReportPreview(os.Stdout, filter.Preview(), results)

	page, err := a.catalog.Query(catalog.Query{})
	if err != nil {
		logging.Error("failed to query component catalog", "error", err)
		return
	}
	output.PrintCatalogPage(os.Stdout, page)
}

func (a *app) serve(ctx context.Context) error {
	server := web.NewServer(a.store, a.catalog, a.builder)
	server.SetResults(a.cfg.ResultsPath(), a.results, a.resultsErr)
	if err := server.PublishSnapshot(); err != nil {
		logging.Warn("failed to publish initial snapshot", "error", err)
	}

	if a.cfg.Watch {
		if err := a.watch(ctx, server); err != nil {
			logging.Warn("file watching disabled", "error", err)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(ctx, a.cfg.Port)
	}()

	if a.cfg.OpenBrowser {
		// Wait a moment for server to start
		time.Sleep(500 * time.Millisecond)
		openBrowser(fmt.Sprintf("http://localhost:%d", a.cfg.Port))
	}

	return <-errCh
}

// watch reloads the results file and the catalog whenever they change on disk
func (a *app) watch(ctx context.Context, server *web.Server) error {
	fw, err := watcher.NewFileWatcher(a.cfg.ResultsPath(), a.cfg.ComponentsPath())
	if err != nil {
		return err
	}
	if err := fw.Start(ctx); err != nil {
		return err
	}

	debouncer := watcher.NewDebouncer(fw.Events(), 500*time.Millisecond, 2*time.Second)
	debouncer.Start(ctx)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-debouncer.Output():
				if !ok {
					return
				}
				a.reload(server, watcher.PlanReload(event))
			}
		}
	}()
	return nil
}

func (a *app) reload(server *web.Server, plan *watcher.ReloadPlan) {
	if plan.Empty() {
		return
	}
	logging.Info("data files changed", "files", plan.ChangedFiles)

	if plan.Results {
		path := a.cfg.ResultsPath()
		r, err := report.LoadResults(path)
		server.SetResults(path, r, err)
		publishStatus(server, "results", path, err)
	}
	if plan.Components {
		path := a.cfg.ComponentsPath()
		err := a.catalog.Reload(path)
		publishStatus(server, "components", path, err)
	}
}

func publishStatus(server *web.Server, source, path string, err error) {
	state, message := "reloaded", ""
	if err != nil {
		state, message = "error", err.Error()
		logging.Warn("reload failed, keeping previous data", "source", source, "path", path, "error", err)
	} else {
		logging.Info("reloaded", "source", source, "path", path)
	}
	if err := server.PublishDataStatus(source, path, state, message); err != nil {
		logging.Warn("failed to publish data status", "source", source, "error", err)
	}
}

func openBrowser(url string) {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "linux":
		cmd = "xdg-open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default:
		logging.Warn("cannot open browser on this platform", "os", runtime.GOOS)
		return
	}

	logging.Info("opening browser", "url", url)
	if err := exec.Command(cmd, args...).Start(); err != nil {
		logging.Warn("failed to open browser", "error", err)
	}
}
