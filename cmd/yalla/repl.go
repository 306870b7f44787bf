package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/atinylittleshell/yalla/internal/yallaasync"
	"github.com/atinylittleshell/yalla/internal/yallaconfig"
	"github.com/atinylittleshell/yalla/internal/yallacontext"
	"github.com/atinylittleshell/yalla/internal/yallacore"
	"github.com/atinylittleshell/yalla/internal/yallaeval"
	"github.com/atinylittleshell/yalla/internal/yallahistory"
	"github.com/atinylittleshell/yalla/internal/yallainput"
	"github.com/atinylittleshell/yalla/internal/yallalock"
	"github.com/atinylittleshell/yalla/internal/yallarender"
	"github.com/atinylittleshell/yalla/internal/yallasession"
	"github.com/atinylittleshell/yalla/internal/yallasignal"
)

type replFlags struct {
	configPath string
	bootstrap  string
	noHistory  bool
	noColors   bool
	quiet      bool
}

// runRepl wires every component package into a running Session, the
// yalla analogue of cmd/gsh/main.go's runInteractiveShell.
func runRepl(flags replFlags) error {
	logger, err := newLogger()
	if err != nil {
		return exitError(fmt.Errorf("initializing logger: %w", err))
	}
	defer logger.Sync() //nolint:errcheck

	configPath := flags.configPath
	if configPath == "" {
		configPath = defaultConfigPath()
	}

	cfg, err := yallaconfig.NewLoader(logger).Load(configPath)
	if err != nil {
		return exitError(err)
	}
	if flags.noColors {
		cfg.Set("display.colors", false)
	}
	if flags.quiet {
		cfg.Set("display.show_help", false)
		cfg.Set("display.welcome", "")
	}

	ctx := yallacontext.New(cfg)

	var historyMgr *yallahistory.Manager
	if !flags.noHistory && cfg.GetBool("history.enabled", true) {
		historyMgr = yallahistory.New(
			yallaconfig.EnvHistoryFile(cfg),
			cfg.GetInt("history.max_entries", 1000),
			cfg.GetBool("history.ignore_duplicates", true),
		)
	}

	lockMgr, err := yallalock.New(yallacore.LockDir(), 50*time.Millisecond)
	if err != nil {
		logger.Warn("lock manager unavailable", zap.Error(err))
	} else {
		ctx.AttachLocks(lockMgr)
	}
	ctx.AttachAsync(yallaasync.NewExecutor(4))

	sandbox := cfg.GetBool("security.sandbox", false)
	goEvaluator := yallaeval.NewGoEvaluator(sandbox)

	if bashEvaluator, err := yallaeval.NewBashEvaluator(); err != nil {
		logger.Warn("bash evaluator unavailable", zap.Error(err))
	} else {
		ctx.AddEvaluator("bash", bashEvaluator.AsEvaluatorFunc(), 100)
	}

	colorsEnabled := yallaconfig.ColorsEnabled(cfg)
	renderer := yallarender.New(colorsEnabled)

	maxSuggestions := cfg.GetInt("autocomplete.max_suggestions", 10)
	reader := yallainput.New(yallainput.Options{
		History: historyAdapter{historyMgr},
		Complete: func(fragment string) []string {
			if !cfg.GetBool("autocomplete.enabled", true) {
				return nil
			}
			return ctx.CompletionCandidates(fragment, nil, maxSuggestions)
		},
		MaxSuggestions:   maxSuggestions,
		SuggestionPrompt: "",
	})

	sess := yallasession.New(yallasession.Options{
		Context:   ctx,
		History:   historyMgr,
		Input:     reader,
		Renderer:  renderer,
		Signals:   yallasignal.New(),
		Evaluator: goEvaluator,
		Out:       os.Stdout,
		Logger:    logger,
	})

	for _, path := range bootstrapFiles(cfg, flags.bootstrap) {
		if err := runBootstrapFile(sess, path); err != nil {
			logger.Warn("bootstrap file failed", zap.String("path", path), zap.Error(err))
		}
	}

	return sess.Run(context.Background())
}

// defaultConfigPath implements spec.md §6's default config discovery:
// when no --config flag was given, a `repl.config.yaml` in the working
// directory is loaded if present.
func defaultConfigPath() string {
	const name = "repl.config.yaml"
	if _, err := os.Stat(name); err == nil {
		return name
	}
	return ""
}

// bootstrapFiles collects every bootstrap script to run before the
// prompt appears: the config's `bootstrap.file` and `bootstrap.files`
// (spec.md §4.1), followed by the CLI's explicit --bootstrap flag so a
// one-off override always runs last.
func bootstrapFiles(cfg *yallaconfig.Config, flagPath string) []string {
	var files []string
	if f := cfg.GetString("bootstrap.file", ""); f != "" {
		files = append(files, f)
	}
	if list, ok := cfg.Get("bootstrap.files", nil).([]any); ok {
		for _, v := range list {
			if s, ok := v.(string); ok && s != "" {
				files = append(files, s)
			}
		}
	}
	if flagPath != "" {
		files = append(files, flagPath)
	}
	return files
}

// runBootstrapFile replays path's lines through sess as if they'd been
// typed at the prompt, the way `--bootstrap` and `bootstrap.file` are
// documented to behave in spec.md §6.
func runBootstrapFile(sess *yallasession.Session, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening bootstrap file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sess.ExecuteLine(line)
	}
	return scanner.Err()
}

func newLogger() (*zap.Logger, error) {
	if err := os.MkdirAll(yallacore.DataDir(), 0o700); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	cfgLogger := zap.NewProductionConfig()
	cfgLogger.OutputPaths = []string{yallacore.LogFile()}
	if buildVersion == "dev" {
		cfgLogger.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfgLogger.Build()
}

// historyAdapter narrows *yallahistory.Manager to yallainput.History,
// tolerating a nil manager when history is disabled.
type historyAdapter struct {
	mgr *yallahistory.Manager
}

func (h historyAdapter) Previous() string {
	if h.mgr == nil {
		return ""
	}
	return h.mgr.Previous()
}

func (h historyAdapter) Next() string {
	if h.mgr == nil {
		return ""
	}
	return h.mgr.Next()
}

func (h historyAdapter) ResetCursor() {
	if h.mgr != nil {
		h.mgr.ResetCursor()
	}
}
