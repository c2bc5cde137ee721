package config_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/adaptiveopslab/coachrelay/pkg/config"
)

var _ = Describe("Watcher", func() {
	var (
		tmpDir string
		path   string
		cfger  *config.Configer
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "watcher-test-*")
		Expect(err).NotTo(HaveOccurred())

		path = filepath.Join(tmpDir, "config.toml")
		Expect(os.WriteFile(path, []byte("[upstream]\nmodel = \"gpt-4o-mini\"\n"), 0o600)).To(Succeed())

		cfger, err = config.NewConfiger(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("requires a resolved config file", func() {
		_, err := config.NewWatcher(nil, zap.NewNop())
		Expect(err).To(MatchError(ContainSubstring("no config file")))
	})

	It("invokes the callback when the file changes", func() {
		w, err := config.NewWatcher(cfger, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		defer w.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		reloaded := make(chan *config.Config, 1)
		go func() {
			_ = w.Watch(ctx, func(cfg *config.Config) {
				select {
				case reloaded <- cfg:
				default:
				}
			})
		}()

		// Give the watch loop a moment to start before writing.
		time.Sleep(50 * time.Millisecond)
		Expect(os.WriteFile(path, []byte("[upstream]\nmodel = \"gpt-4o\"\n"), 0o600)).To(Succeed())

		var cfg *config.Config
		Eventually(reloaded, 3*time.Second).Should(Receive(&cfg))
		Expect(cfg.Upstream.Model).To(Equal("gpt-4o"))
	})
})
