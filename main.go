package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/lmittmann/tint"

	"github.com/apiharness/api-contract-tests/apitests"
	"github.com/apiharness/api-contract-tests/config"
	"github.com/apiharness/api-contract-tests/datagen"
	"github.com/apiharness/api-contract-tests/framework"
	"github.com/apiharness/api-contract-tests/loadtest"
	"github.com/apiharness/api-contract-tests/mockservice"
	"github.com/apiharness/api-contract-tests/reporting"
)

func main() {
	var params commandParams
	if !params.Read(os.Args) {
		os.Exit(1)
	}
	os.Exit(run(params))
}

func run(params commandParams) int {
	cfg, err := config.Load(params.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %s\n", err)
		return 1
	}
	if params.allureDir != "" {
		cfg.Reporting.Allure.Enabled = true
		cfg.Reporting.Allure.OutputDir = params.allureDir
	}
	if params.mockPort != 0 {
		cfg.Mock.Port = params.mockPort
	}
	if params.debugAll {
		cfg.Logging.Level = "debug"
	}

	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      cfg.Logging.SlogLevel(),
		TimeFormat: cfg.Logging.TimeFormat,
	})))
	slog.Debug("invoked", "command", invocation(os.Args))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	envName := config.EnvironmentName(params.envName)
	env, err := cfg.Environment(envName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if params.serviceURL != "" {
		env.BaseURL = params.serviceURL
	}

	// An environment with no URL of its own is served by the embedded mock.
	if env.BaseURL == "" {
		svc := mockservice.New(cfg.Mock, slogLogger{})
		if err := svc.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Mock service error: %s\n", err)
			return 1
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = svc.Close(shutdownCtx)
		}()
		env.BaseURL = svc.BaseURL()
	}

	seed := params.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	slog.Info("test run starting", "environment", envName, "url", env.BaseURL, "seed", seed)

	sc := apitests.SuiteConfig{
		Environment: env,
		Settings:    cfg.TestSettings,
		Seed:        seed,
	}

	status := 0
	if groups := params.groups(); len(groups) > 0 {
		if !runSuites(ctx, cfg, params, sc, groups) {
			status = 1
		}
	}
	if params.wantLoadTest() {
		if !runLoadTest(ctx, cfg.TestSettings.Performance, sc) {
			status = 1
		}
	}
	return status
}

func runSuites(
	ctx context.Context,
	cfg *config.Config,
	params commandParams,
	sc apitests.SuiteConfig,
	groups map[string]bool,
) bool {
	fmt.Println()
	framework.DescribeFilters(os.Stdout, params.filters)
	fmt.Println("Running test suite")

	filter := func(id framework.TestID) bool {
		if len(id.Path) > 0 && !groups[id.Path[0]] {
			return false
		}
		return params.filters.AsFilter(id)
	}

	results := apitests.RunTestSuite(ctx, sc, filter, buildTestLogger(cfg, params))
	fmt.Println()
	reporting.PrintResults(os.Stdout, results)
	return results.OK()
}

func buildTestLogger(cfg *config.Config, params commandParams) framework.TestLogger {
	console := &reporting.ConsoleTestLogger{
		DebugOutputOnFailure: params.debug || params.debugAll,
		DebugOutputOnSuccess: params.debugAll,
	}
	if !cfg.Reporting.Allure.Enabled {
		return console
	}
	allure, err := reporting.NewAllureWriter(cfg.Reporting.Allure.OutputDir, slogLogger{})
	if err != nil {
		slog.Warn("Allure reporting disabled", "error", err)
		return console
	}
	slog.Info("writing Allure results", "dir", cfg.Reporting.Allure.OutputDir)
	return reporting.NewMultiTestLogger(console, allure)
}

func runLoadTest(ctx context.Context, perf config.PerformanceSettings, sc apitests.SuiteConfig) bool {
	apiClient := apitests.NewTargetClient(sc, framework.NullLogger())
	runner := loadtest.NewRunner(perf, loadtest.DefaultScenarios(apiClient, datagen.NewStream(sc.Seed, "loadtest")), slogLogger{})
	runner.Seed = sc.Seed

	fmt.Println()
	fmt.Println("Running load test")
	summary, err := runner.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load test aborted: %s\n", err)
		return false
	}
	summary.Print(os.Stdout)

	violations := summary.Violations(perf.Thresholds)
	if len(violations) == 0 {
		fmt.Println(color.GreenString("All thresholds met"))
		return true
	}
	fmt.Println(color.RedString("THRESHOLD VIOLATIONS (%d):", len(violations)))
	for _, v := range violations {
		fmt.Printf("  * %s\n", v)
	}
	return false
}

// slogLogger forwards printf-style debug output from harness components to
// the process logger.
type slogLogger struct{}

func (slogLogger) Printf(message string, args ...any) {
	slog.Info(fmt.Sprintf(message, args...))
}
