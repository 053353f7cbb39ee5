package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/boyter/gocodewalker"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/rlch/broadcaster"
	"github.com/rlch/broadcaster/destination"
	"github.com/rlch/broadcaster/plugin"
	"github.com/rlch/broadcaster/replay"
	"github.com/rlch/broadcaster/reporter"
)

// Replay command errors.
var ErrNoHookLogs = errors.New("no hook logs found")

const hookLogExt = "jsonl"

func replayCommand() *cli.Command {
	return &cli.Command{
		Name:      "replay",
		Usage:     "Replay recorded hook logs into the configured destinations",
		ArgsUsage: "[hook logs or directories...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "collect-report",
				Usage: "write the whole-session JSON report to `FILE`",
			},
			&cli.StringFlag{
				Name:  "collect-log",
				Usage: "stream events as JSON Lines to `FILE`",
			},
			&cli.StringFlag{
				Name:  "webhook",
				Usage: "post the session result to `URL`",
			},
			&cli.StringFlag{
				Name:  "console",
				Usage: "print progress to stderr in `STYLE` (dots or verbose)",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "config file (default: nearest .broadcaster.yaml)",
			},
		},
		Action: runReplay,
	}
}

func runReplay(ctx context.Context, cmd *cli.Command) error {
	logger, err := newLogger(cmd.Bool("debug"))
	if err != nil {
		return err
	}

	defer func() {
		_ = logger.Sync()
	}()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	args := cmd.Args().Slice()
	if len(args) == 0 {
		args = []string{"."}
	}

	logs, err := collectHookLogs(args)
	if err != nil {
		return err
	}

	if len(logs) == 0 {
		return ErrNoHookLogs
	}

	exitStatus := 0

	for _, path := range logs {
		status, err := replayFile(ctx, logger, cfg, path, len(logs) > 1)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		exitStatus = max(exitStatus, status)
	}

	if exitStatus != 0 {
		return cli.Exit("", exitStatus)
	}

	return nil
}

// loadConfig merges the config file, the environment and the flags, in
// increasing order of precedence.
func loadConfig(cmd *cli.Command) (*broadcaster.Config, error) {
	var (
		cfg *broadcaster.Config
		err error
	)

	if path := cmd.String("config"); path != "" {
		cfg, err = broadcaster.LoadConfigFile(path)
	} else {
		cfg, err = broadcaster.LoadConfig(".")
		if errors.Is(err, broadcaster.ErrConfigNotFound) {
			cfg, err = &broadcaster.Config{}, nil
		}
	}

	if err != nil {
		return nil, err
	}

	cfg.ApplyEnv(os.LookupEnv)

	if cmd.IsSet("collect-report") {
		cfg.Report = cmd.String("collect-report")
	}

	if cmd.IsSet("collect-log") {
		cfg.Log = cmd.String("collect-log")
	}

	if url := cmd.String("webhook"); url != "" {
		cfg.Destinations = append(cfg.Destinations, destination.Config{Kind: destination.KindWebhook, URL: url})
	}

	if style := cmd.String("console"); style != "" {
		cfg.Destinations = append(cfg.Destinations, destination.Config{Kind: destination.KindConsole, Style: style})
	}

	return cfg, nil
}

func replayFile(ctx context.Context, logger *zap.Logger, cfg *broadcaster.Config, path string, several bool) (int, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return 0, err
	}
	defer f.Close()

	log, err := replay.Decode(f)
	if err != nil {
		return 0, err
	}

	dests := make([]destination.Destination, 0, len(cfg.Destinations)+2)

	for _, dc := range cfg.AllDestinations() {
		if several && dc.Path != "" {
			dc.Path = perLogPath(dc.Path, path)
		}

		d, err := destination.New(dc)
		if err != nil {
			return 0, err
		}

		dests = append(dests, d)
	}

	opts := log.ReporterOptions()
	if log.Project == nil {
		opts = append(opts, reporter.WithProject(cfg.ProjectInfo()))
	}

	opts = append(opts, reporter.WithPluginVersion(broadcaster.Version))

	p := plugin.New(
		plugin.WithLogger(logger.With(zap.String("log", path))),
		plugin.WithDestination(dests...),
		plugin.WithReporterOptions(opts...),
	)

	if !p.Enabled() {
		logger.Warn("no destinations configured, hook log checked only", zap.String("log", path))
	}

	if err := log.Replay(ctx, p); err != nil {
		return 0, err
	}

	logger.Debug("replayed hook log",
		zap.String("log", path),
		zap.Int("callbacks", log.Len()),
		zap.Int("exit_status", log.ExitStatus),
	)

	return log.ExitStatus, nil
}

// perLogPath names the output of one of several hook logs after the log:
// out/report.json and logs/run1.jsonl give out/report-run1.json.
func perLogPath(out, logPath string) string {
	ext := filepath.Ext(out)
	name := strings.TrimSuffix(filepath.Base(logPath), filepath.Ext(logPath))

	return strings.TrimSuffix(out, ext) + "-" + name + ext
}

// collectHookLogs expands directories into the hook logs they contain,
// respecting .gitignore. Files found in directories that are not hook logs,
// such as event streams written by earlier runs, are skipped. Explicit file
// arguments are always replayed.
func collectHookLogs(args []string) ([]string, error) {
	var logs []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			logs = append(logs, arg)

			continue
		}

		var found []string

		err = walkDir(arg, func(path string) {
			if isHookLog(path) {
				found = append(found, path)
			}
		})
		if err != nil {
			return nil, err
		}

		slices.Sort(found)
		logs = append(logs, found...)
	}

	return logs, nil
}

func isHookLog(path string) bool {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return false
	}
	defer f.Close()

	return replay.IsHookLog(f)
}

// walkDir calls visit for every *.jsonl file below root. The walker is always
// drained before returning.
func walkDir(root string, visit func(path string)) error {
	queue := make(chan *gocodewalker.File, 100)

	walker := gocodewalker.NewFileWalker(root, queue)
	walker.AllowListExtensions = []string{hookLogExt}

	var walkErr error

	walker.SetErrorHandler(func(err error) bool {
		walkErr = errors.Join(walkErr, err)

		return true
	})

	done := make(chan struct{})

	go func() {
		defer close(done)

		for f := range queue {
			visit(f.Location)
		}
	}()

	err := walker.Start()
	<-done

	return errors.Join(err, walkErr)
}
