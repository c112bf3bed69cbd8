//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/ultrafont/internal/config"
	"github.com/eliteGoblin/ultrafont/internal/daemon"
	"github.com/eliteGoblin/ultrafont/internal/domain"
	"github.com/eliteGoblin/ultrafont/internal/infra"
	"github.com/eliteGoblin/ultrafont/internal/usecase"
	"github.com/eliteGoblin/ultrafont/test/fixtures"
)

var _ = Describe("Font pipeline", func() {
	var (
		ctx      context.Context
		tmpDir   string
		dropDir  string
		tools    *fixtures.FakeToolchain
		settings *config.Manager
		ops      *infra.SystemOps
		journal  *infra.Journal
		pipeline *usecase.Pipeline
		session  *usecase.Session
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		tmpDir, err = os.MkdirTemp("", "ultrafont-integration-*")
		Expect(err).NotTo(HaveOccurred())

		tools = fixtures.NewFakeToolchain(tmpDir)
		Expect(tools.Create()).To(Succeed())

		dropDir = filepath.Join(tmpDir, "drop")
		_, err = fixtures.WriteFonts(dropDir, "good.ttf", "bad.otf", "notes.txt")
		Expect(err).NotTo(HaveOccurred())

		settings, err = config.NewManager(config.NewJSONStore(filepath.Join(tmpDir, "settings.json")))
		Expect(err).NotTo(HaveOccurred())

		journal, err = infra.NewJournal(filepath.Join(tmpDir, "journal.db"), nil)
		Expect(err).NotTo(HaveOccurred())

		logger := zap.NewNop()
		runner := infra.NewExecRunner(10 * time.Second)
		tool := infra.NewFontTool(tools.FontToolPath(), 10*time.Second, logger)
		ops = infra.NewSystemOps(infra.SystemOpsConfig{
			FontsDir:    tools.FontsDir,
			Shell:       "sh",
			ScriptPath:  tools.ScriptPath(),
			PreValidate: true,
		}, runner, tool, logger)
		renderer, err := infra.NewPreviewRenderer(logger)
		Expect(err).NotTo(HaveOccurred())
		fs := infra.NewFileSystemManager()

		pipeline = usecase.NewPipeline(usecase.PipelineDeps{
			Inspector:  tool,
			Registry:   ops,
			Renderer:   renderer,
			Downloader: infra.NewHTTPDownloader(10*time.Second, logger),
			FS:         fs,
			Journal:    journal,
			Settings:   settings,
			TempDir:    tmpDir,
		}, logger)
		session = usecase.NewSession(pipeline, fs, infra.NewZipExpander(tmpDir), ops, settings, logger)
	})

	AfterEach(func() {
		journal.Close()
		os.RemoveAll(tmpDir)
	})

	analyzeDrop := func() {
		task, err := session.Submit(ctx, []string{dropDir})
		Expect(err).NotTo(HaveOccurred())
		Expect(session.Drain(ctx, task, nil)).To(Equal(usecase.StateCompleted))
	}

	Describe("Analyze", func() {
		It("should describe every font file and skip other files", func() {
			analyzeDrop()

			records := session.Records()
			Expect(records).To(HaveLen(2))

			byName := map[string]domain.FontRecord{}
			for _, r := range records {
				byName[filepath.Base(r.Path)] = r
			}
			Expect(byName["good.ttf"].Valid).To(BeTrue())
			Expect(byName["good.ttf"].Metadata.Family).To(Equal("good"))
			Expect(byName["good.ttf"].Installed).To(BeFalse())
			Expect(byName["good.ttf"].Preview).NotTo(BeNil())

			Expect(byName["bad.otf"].Valid).To(BeFalse())
			Expect(byName["bad.otf"].Metadata.Name).To(Equal("bad.otf"))
			Expect(byName["bad.otf"].Metadata.Error).To(Equal("Analysis Error"))
		})

		It("should not analyze the same folder twice", func() {
			analyzeDrop()

			_, err := session.Submit(ctx, []string{dropDir})
			Expect(err).To(MatchError(usecase.ErrNoNewFiles))
			Expect(session.Len()).To(Equal(2))
		})
	})

	Describe("Install", func() {
		It("should register only valid fonts and journal the outcome", func() {
			analyzeDrop()

			task, err := session.InstallAll(ctx)
			Expect(err).NotTo(HaveOccurred())

			var progress []usecase.Progress
			session.Drain(ctx, task, func(ev usecase.Event) {
				if ev.Type == usecase.EventProgress {
					progress = append(progress, *ev.Progress)
				}
			})

			Expect(task.Count()).To(Equal(1))
			Expect(progress).To(Equal([]usecase.Progress{{Index: 0, Total: 1, FileName: "good.ttf"}}))
			Expect(tools.Installed("good.ttf")).To(BeTrue())
			Expect(tools.Installed("bad.otf")).To(BeFalse())

			entries, err := journal.Recent(10)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Action).To(Equal(domain.ActionInstall))
			Expect(entries[0].Succeeded).To(BeTrue())
		})

		It("should see installed fonts on a fresh analysis", func() {
			analyzeDrop()
			task, err := session.InstallAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			session.Drain(ctx, task, nil)

			session.Clear()
			analyzeDrop()

			for _, r := range session.Records() {
				if filepath.Base(r.Path) == "good.ttf" {
					Expect(r.Installed).To(BeTrue())
				}
			}
		})

		It("should restart the shell when auto restart is on", func() {
			Expect(settings.Update(func(s *domain.Settings) { s.AutoRestart = true })).To(Succeed())
			analyzeDrop()

			task, err := session.InstallAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			session.Drain(ctx, task, nil)

			Eventually(func() bool {
				_, err := os.Stat(tools.RestartMarker())
				return err == nil
			}, 5*time.Second, 50*time.Millisecond).Should(BeTrue())
		})
	})

	Describe("Library", func() {
		It("should list what is in the fonts directory", func() {
			_, err := fixtures.WriteFonts(tools.FontsDir, "Inter.ttf", "Mono.otf", "desktop.ini")
			Expect(err).NotTo(HaveOccurred())

			task, err := pipeline.StartLoadLibrary(ctx)
			Expect(err).NotTo(HaveOccurred())

			var found []string
			for ev := range task.Events() {
				if ev.Type == usecase.EventFound {
					found = append(found, filepath.Base(ev.Path))
				}
			}
			Expect(found).To(ConsistOf("Inter.ttf", "Mono.otf"))
		})
	})

	Describe("Uninstall and Locate", func() {
		It("should locate and then remove an installed font", func() {
			_, err := fixtures.WriteFonts(tools.FontsDir, "OpenSans-Regular.ttf")
			Expect(err).NotTo(HaveOccurred())

			path, ok := ops.Locate("Open Sans")
			Expect(ok).To(BeTrue())
			Expect(filepath.Base(path)).To(Equal("OpenSans-Regular.ttf"))

			ok, err = ops.Uninstall(ctx, "OpenSans-Regular.ttf")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(tools.Installed("OpenSans-Regular.ttf")).To(BeFalse())

			ok, err = ops.Uninstall(ctx, "OpenSans-Regular.ttf")
			Expect(ok).To(BeFalse())
			Expect(domain.KindOf(err)).To(Equal(domain.KindMarkerMissing))
		})
	})

	Describe("Drop-folder watcher", func() {
		It("should pick up new files and install them", func() {
			watcher := daemon.NewWatcher(daemon.WatcherConfig{
				Dir:          dropDir,
				ScanInterval: time.Hour,
				AutoInstall:  true,
			}, session, nil, zap.NewNop())

			first := watcher.Scan(ctx)
			Expect(first).To(Equal(daemon.ScanResult{Analyzed: 2, Installed: 1}))

			Expect(watcher.Scan(ctx)).To(Equal(daemon.ScanResult{}))

			_, err := fixtures.WriteFonts(dropDir, "later.woff")
			Expect(err).NotTo(HaveOccurred())
			Expect(watcher.Scan(ctx)).To(Equal(daemon.ScanResult{Analyzed: 1, Installed: 1}))
			Expect(tools.Installed("later.woff")).To(BeTrue())
		})
	})
})
