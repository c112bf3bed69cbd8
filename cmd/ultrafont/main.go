// Package main is the CLI entry point for ultrafont.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/ultrafont/internal/config"
	"github.com/eliteGoblin/ultrafont/internal/daemon"
	"github.com/eliteGoblin/ultrafont/internal/domain"
	"github.com/eliteGoblin/ultrafont/internal/i18n"
	"github.com/eliteGoblin/ultrafont/internal/infra"
	"github.com/eliteGoblin/ultrafont/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ultrafont",
	Short: "Font installer - validate, preview and register font files",
	Long: `ultrafont analyzes font files with an external font tool, renders
previews, and registers fonts with the operating system through a
system-ops script. Directories and .zip archives are expanded.`,
	Version:      Version,
	SilenceUsage: true,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <path>...",
	Short: "Validate and describe font files, folders or .zip archives",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAnalyze,
}

var installCmd = &cobra.Command{
	Use:   "install <path>...",
	Short: "Analyze and install every valid font not yet installed",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runInstall,
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <file-name>",
	Short: "Unregister an installed font by file name",
	Args:  cobra.ExactArgs(1),
	RunE:  runUninstall,
}

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "List font files in the OS font directory",
	RunE:  runLibrary,
}

var catalogCmd = &cobra.Command{
	Use:   "catalog [query]",
	Short: "List downloadable fonts, optionally filtered by family",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCatalog,
}

var downloadCmd = &cobra.Command{
	Use:   "download <family|url>",
	Short: "Download a catalog font (or any URL) into the temp directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runDownload,
}

var previewCmd = &cobra.Command{
	Use:   "preview <font>",
	Short: "Render sample text with a font to a PNG or BMP file",
	Args:  cobra.ExactArgs(1),
	RunE:  runPreview,
}

var locateCmd = &cobra.Command{
	Use:   "locate <family>",
	Short: "Find the font file for an installed family",
	Args:  cobra.ExactArgs(1),
	RunE:  runLocate,
}

var restartShellCmd = &cobra.Command{
	Use:   "restart-shell",
	Short: "Restart the desktop shell to refresh the font cache",
	RunE:  runRestartShell,
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change persisted settings",
}

var settingsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print current settings",
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting (theme, auto_restart, language, animated_bg, transparency)",
	Args:  cobra.ExactArgs(2),
	RunE:  runSettingsSet,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent install and uninstall attempts",
	RunE:  runHistory,
}

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Watch a drop folder and analyze new fonts as they appear",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

var (
	verbose      bool
	dataDir      string
	fontsDir     string
	fontToolPath string
	scriptPath   string

	jsonOutput      bool
	downloadInstall bool
	previewText     string
	previewSize     float64
	previewOut      string
	previewWidth    int
	previewHeight   int
	previewDark     bool
	restartWait     time.Duration
	historyLimit    int
	watchInterval   time.Duration
	watchAutoInst   bool
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "Log to stderr at debug level")
	pf.StringVar(&dataDir, "data-dir", "", "Settings, journal and log directory")
	pf.StringVar(&fontsDir, "fonts-dir", "", "OS font directory")
	pf.StringVar(&fontToolPath, "font-tool", "", "Path to the font validation tool")
	pf.StringVar(&scriptPath, "script", "", "Path to the system-ops script")

	downloadCmd.Flags().BoolVar(&downloadInstall, "install", false, "Install the font once downloaded")
	previewCmd.Flags().StringVar(&previewText, "text", domain.DefaultPreviewText, "Sample text")
	previewCmd.Flags().Float64Var(&previewSize, "size", domain.DefaultPreviewSize, "Pixel size")
	previewCmd.Flags().IntVar(&previewWidth, "width", domain.DefaultPreviewWidth, "Canvas width")
	previewCmd.Flags().IntVar(&previewHeight, "height", domain.DefaultPreviewHeight, "Canvas height")
	previewCmd.Flags().StringVarP(&previewOut, "out", "o", "preview.png", "Output file (.png or .bmp)")
	previewCmd.Flags().BoolVar(&previewDark, "dark", false, "Draw white text (dark theme)")
	restartShellCmd.Flags().DurationVar(&restartWait, "wait", 0, "Wait up to this long for the shell process to come back")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 5*time.Second, "Rescan interval")
	watchCmd.Flags().BoolVar(&watchAutoInst, "auto-install", false, "Install new fonts as soon as they are analyzed")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd)
	rootCmd.AddCommand(analyzeCmd, installCmd, uninstallCmd, libraryCmd, catalogCmd,
		downloadCmd, previewCmd, locateCmd, restartShellCmd, settingsCmd,
		historyCmd, watchCmd, versionCmd)
}

// app is the wired object graph shared by commands.
type app struct {
	cfg      config.AppConfig
	logger   *zap.Logger
	settings *config.Manager
	tr       *i18n.Translator
	runner   *infra.ExecRunner
	tool     *infra.FontTool
	ops      *infra.SystemOps
	renderer *infra.PreviewRenderer
	fs       domain.FileSystemManager
	journal  *infra.Journal
	expander *infra.ZipExpander
	pipeline *usecase.Pipeline
	session  *usecase.Session
}

func newApp() (*app, error) {
	cfg := config.DefaultAppConfig()
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if fontsDir != "" {
		cfg.FontsDir = fontsDir
	}
	if fontToolPath != "" {
		cfg.FontToolPath = fontToolPath
	}
	if scriptPath != "" {
		cfg.ScriptPath = scriptPath
	}

	logger := createLogger(cfg)

	settings, err := config.NewManager(config.NewJSONStore(cfg.SettingsPath()))
	if err != nil {
		logger.Warn("Failed to load settings, using defaults", zap.Error(err))
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		settings: settings,
		tr:       i18n.New(settings.Get().Language),
		runner:   infra.NewExecRunner(cfg.ScriptTimeout),
		fs:       infra.NewFileSystemManager(),
	}
	a.tool = infra.NewFontTool(cfg.FontToolPath, cfg.ToolTimeout, logger)
	a.ops = infra.NewSystemOps(infra.SystemOpsConfig{
		FontsDir:    cfg.FontsDir,
		Shell:       cfg.ScriptShell,
		ShellArgs:   cfg.ScriptShellArgs,
		ScriptPath:  cfg.ScriptPath,
		PreValidate: cfg.PreValidate,
	}, a.runner, a.tool, logger)

	if a.renderer, err = infra.NewPreviewRenderer(logger); err != nil {
		return nil, fmt.Errorf("failed to init preview renderer: %w", err)
	}

	var key []byte
	if cfg.JournalKey != "" {
		key = []byte(cfg.JournalKey)
	}
	if a.journal, err = infra.NewJournal(cfg.JournalPath(), key); err != nil {
		logger.Warn("Install journal unavailable", zap.String("path", cfg.JournalPath()), zap.Error(err))
		a.journal = nil
	}

	deps := usecase.PipelineDeps{
		Inspector:  a.tool,
		Registry:   a.ops,
		Renderer:   a.renderer,
		Downloader: infra.NewHTTPDownloader(cfg.DownloadTimeout, logger),
		FS:         a.fs,
		Settings:   settings,
		TempDir:    cfg.TempDir,
	}
	if a.journal != nil {
		deps.Journal = a.journal
	}
	a.pipeline = usecase.NewPipeline(deps, logger)
	a.expander = infra.NewZipExpander(cfg.TempDir)
	a.session = usecase.NewSession(a.pipeline, a.fs, a.expander, a.ops, settings, logger)

	if !a.tool.ToolAvailable() {
		logger.Debug("Font tool not found, using extension checks", zap.String("path", cfg.FontToolPath))
	}
	return a, nil
}

func (a *app) Close() {
	if a.journal != nil {
		_ = a.journal.Close()
	}
	if a.expander != nil {
		if err := a.expander.Cleanup(); err != nil {
			a.logger.Warn("Failed to remove extracted archives", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

func createLogger(cfg config.AppConfig) *zap.Logger {
	if verbose {
		logger, _ := zap.NewDevelopment()
		return logger
	}

	logPath := cfg.LogPath()
	_ = os.MkdirAll(filepath.Dir(logPath), 0o755)

	zcfg := zap.NewProductionConfig()
	zcfg.OutputPaths = []string{logPath}
	zcfg.ErrorOutputPaths = []string{logPath}
	zcfg.EncoderConfig.TimeKey = "time"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zcfg.Build()
	if err != nil {
		// Fallback to stderr if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}

// signalContext is canceled on SIGINT/SIGTERM so running tasks wind down
// and still deliver their final event.
func signalContext(logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			logger.Info("received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}

// warnIfNotElevated prints a warning before operations that write the OS
// font store.
func (a *app) warnIfNotElevated(ctx context.Context) {
	priv := infra.NewPrivilegeDetector(a.runner).Detect(ctx)
	a.logger.Debug("privilege detected", zap.String("privilege", priv.String()))
	if priv != infra.PrivilegeAdmin {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", a.tr.T(i18n.KeyNotElevated))
	}
}

// analyzeInputs submits inputs to the session and prints each record.
func (a *app) analyzeInputs(ctx context.Context, inputs []string, printer *eventPrinter) error {
	for i, in := range inputs {
		inputs[i] = a.fs.ExpandHome(in)
	}
	task, err := a.session.Submit(ctx, inputs)
	if err != nil {
		return err
	}
	if state := a.session.Drain(ctx, task, printer.Print); state == usecase.StateCancelled {
		return context.Canceled
	}
	return nil
}

// installRecords installs records and prints the localized summary.
func (a *app) installRecords(ctx context.Context, records []domain.FontRecord, printer *eventPrinter) error {
	a.warnIfNotElevated(ctx)

	task, err := a.session.Install(ctx, records)
	if err != nil {
		return fmt.Errorf("failed to start install: %w", err)
	}
	restarted := false
	for ev := range task.Events() {
		if a.session.Apply(ctx, ev) {
			restarted = true
		}
		printer.Print(ev)
	}

	printInstallSummary(os.Stdout, a.tr, task.Count(), restarted)
	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	ctx, cancel := signalContext(a.logger)
	defer cancel()

	printer := newEventPrinter(os.Stdout, a.tr)
	if err := a.analyzeInputs(ctx, args, printer); err != nil {
		if errors.Is(err, usecase.ErrNoNewFiles) {
			fmt.Println(a.tr.T(i18n.KeyNoFonts))
			return nil
		}
		return err
	}
	fmt.Printf("\n%d font(s) analyzed\n", a.session.Len())
	return nil
}

func runInstall(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	ctx, cancel := signalContext(a.logger)
	defer cancel()

	printer := newEventPrinter(os.Stdout, a.tr)
	if err := a.analyzeInputs(ctx, args, printer); err != nil {
		if errors.Is(err, usecase.ErrNoNewFiles) {
			fmt.Println(a.tr.T(i18n.KeyNoFonts))
			return nil
		}
		return err
	}
	fmt.Println()
	return a.installRecords(ctx, a.session.Records(), printer)
}

func runUninstall(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	ctx, cancel := signalContext(a.logger)
	defer cancel()

	a.warnIfNotElevated(ctx)

	fileName := args[0]
	ok, err := a.ops.Uninstall(ctx, fileName)
	if a.journal != nil {
		if jerr := a.journal.Record(domain.JournalEntry{Action: domain.ActionUninstall, Path: fileName, Succeeded: ok}); jerr != nil {
			a.logger.Warn("Failed to write journal", zap.String("path", fileName), zap.Error(jerr))
		}
	}
	if !ok {
		if err == nil {
			err = errors.New("script reported failure")
		}
		return fmt.Errorf("failed to uninstall %s: %w", fileName, err)
	}
	fmt.Println(a.tr.T(i18n.KeyUninstallSuccess, fileName))
	return nil
}

func runLibrary(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	ctx, cancel := signalContext(a.logger)
	defer cancel()

	task, err := a.pipeline.StartLoadLibrary(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\n=== Installed fonts (%s) ===\n", a.ops.FontsDir())
	printer := newEventPrinter(os.Stdout, a.tr)
	for ev := range task.Events() {
		printer.Print(ev)
	}
	fmt.Printf("\n%d font file(s)\n", task.Count())
	return nil
}

func runCatalog(cmd *cobra.Command, args []string) error {
	catalog := infra.NewGoogleFontsCatalog()
	entries := catalog.All()
	if len(args) == 1 {
		entries = catalog.Search(args[0])
	}
	if len(entries) == 0 {
		fmt.Println("No matching fonts.")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("  %-20s %s\n", e.Family, e.URL)
	}
	return nil
}

// downloadJobFor maps a catalog family or a URL to a download job.
func downloadJobFor(arg string) (domain.DownloadJob, error) {
	if strings.Contains(arg, "://") {
		return domain.DownloadJob{URL: arg}, nil
	}
	entry, ok := infra.NewGoogleFontsCatalog().Find(arg)
	if !ok {
		return domain.DownloadJob{}, fmt.Errorf("unknown font family %q (see 'ultrafont catalog')", arg)
	}
	return domain.DownloadJob{URL: entry.URL, Filename: infra.FilenameFor(entry.Family)}, nil
}

func runDownload(cmd *cobra.Command, args []string) error {
	job, err := downloadJobFor(args[0])
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	ctx, cancel := signalContext(a.logger)
	defer cancel()

	fmt.Println(a.tr.T(i18n.KeyDownloading, args[0]))
	task, err := a.pipeline.StartDownload(ctx, job)
	if err != nil {
		return err
	}

	printer := newEventPrinter(os.Stdout, a.tr)
	var local string
	for ev := range task.Events() {
		if ev.Type == usecase.EventDownloaded && ev.Download != nil {
			local = ev.Download.LocalPath
		}
		printer.Print(ev)
	}
	if local == "" {
		return fmt.Errorf("failed to download %s", job.URL)
	}
	if !downloadInstall {
		return nil
	}

	if err := a.analyzeInputs(ctx, []string{local}, printer); err != nil {
		return err
	}
	return a.installRecords(ctx, a.session.Records(), printer)
}

func runPreview(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	req := domain.DefaultPreviewRequest(a.fs.ExpandHome(args[0]), previewDark)
	req.Text = previewText
	req.PixelSize = previewSize
	req.Width = previewWidth
	req.Height = previewHeight

	img, err := a.renderer.Render(req)
	if err != nil {
		return fmt.Errorf("failed to render preview: %w", err)
	}

	f, err := os.Create(previewOut)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", previewOut, err)
	}
	if err := infra.EncodeImage(f, img, previewOut); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("Preview written to %s\n", previewOut)
	return nil
}

func runLocate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	path, ok := a.ops.Locate(args[0])
	if !ok {
		return fmt.Errorf("no font file found for %q", args[0])
	}
	fmt.Println(path)
	return nil
}

func runRestartShell(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	ctx, cancel := signalContext(a.logger)
	defer cancel()

	fmt.Println(a.tr.T(i18n.KeyRestartDesc))
	if err := a.ops.RestartShell(ctx); err != nil {
		return fmt.Errorf("failed to restart shell: %w", err)
	}
	if restartWait <= 0 {
		return nil
	}

	pids, err := infra.WaitForProcess(ctx, infra.NewProcessManager(), a.cfg.ShellProcess, 500*time.Millisecond, restartWait)
	if err != nil {
		return fmt.Errorf("%s did not come back: %w", a.cfg.ShellProcess, err)
	}
	fmt.Printf("%s running (pid %d)\n", a.cfg.ShellProcess, pids[0])
	return nil
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	s := a.settings.Get()
	fmt.Printf("theme:        %s\n", s.Theme)
	fmt.Printf("auto_restart: %t\n", s.AutoRestart)
	fmt.Printf("language:     %s (%s)\n", s.Language, a.tr.Tag())
	fmt.Printf("animated_bg:  %t\n", s.AnimatedBG)
	fmt.Printf("transparency: %s\n", s.Transparency)
	fmt.Printf("\nfile: %s\n", a.cfg.SettingsPath())
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var applyErr error
	if err := a.settings.Update(func(s *domain.Settings) {
		applyErr = applySetting(s, args[0], args[1])
	}); err != nil {
		return err
	}
	if applyErr != nil {
		return applyErr
	}
	fmt.Printf("%s = %s\n", args[0], args[1])
	return nil
}

// applySetting parses value for key into s.
func applySetting(s *domain.Settings, key, value string) error {
	switch key {
	case "theme":
		switch value {
		case domain.ThemeSystem, domain.ThemeLight, domain.ThemeDark:
			s.Theme = value
		default:
			return fmt.Errorf("invalid theme %q (System, Light, Dark)", value)
		}
	case "language":
		switch value {
		case domain.LanguageSystem, "en", "fr":
			s.Language = value
		default:
			return fmt.Errorf("invalid language %q (System, en, fr)", value)
		}
	case "auto_restart", "animated_bg":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean %q for %s", value, key)
		}
		if key == "auto_restart" {
			s.AutoRestart = b
		} else {
			s.AnimatedBG = b
		}
	case "transparency":
		s.Transparency = value
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if a.journal == nil {
		return fmt.Errorf("install journal unavailable at %s", a.cfg.JournalPath())
	}
	entries, err := a.journal.Recent(historyLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println(a.tr.T(i18n.KeyNoHistory))
		return nil
	}
	for _, e := range entries {
		status := a.tr.T(i18n.KeyInstalled)
		switch {
		case !e.Succeeded:
			status = a.tr.T(i18n.KeyFailed)
		case e.Action == domain.ActionUninstall:
			status = "uninstalled"
		}
		fmt.Printf("  %s  %-9s %-40s %s\n", e.At.Format(time.DateTime), e.Action, filepath.Base(e.Path), status)
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	ctx, cancel := signalContext(a.logger)
	defer cancel()

	dir := a.fs.ExpandHome(args[0])
	if !a.fs.IsDir(dir) {
		return fmt.Errorf("%s is not a directory", dir)
	}

	cfg := daemon.DefaultWatcherConfig(dir)
	cfg.ScanInterval = watchInterval
	cfg.AutoInstall = watchAutoInst
	if watchAutoInst {
		a.warnIfNotElevated(ctx)
	}

	fmt.Printf("Watching %s (Ctrl+C to stop)\n", dir)
	printer := newEventPrinter(os.Stdout, a.tr)
	err = daemon.NewWatcher(cfg, a.session, printer.Print, a.logger).Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("ultrafont %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
