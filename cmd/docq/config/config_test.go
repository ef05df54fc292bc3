package configcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	configcmder "github.com/papercomputeco/docq/cmd/docq/config"
)

var _ = Describe("NewConfigCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := configcmder.NewConfigCmd()
		Expect(cmd.Use).To(Equal("config"))
	})

	It("has set, get, and list subcommands", func() {
		cmd := configcmder.NewConfigCmd()
		cmds := cmd.Commands()
		subcommands := make([]string, 0, len(cmds))
		for _, sub := range cmds {
			subcommands = append(subcommands, sub.Name())
		}
		Expect(subcommands).To(ContainElements("set", "get", "list"))
	})
})

var _ = Describe("Config command execution", func() {
	var (
		tmpDir  string
		origDir string
		out     *bytes.Buffer
	)

	execute := func(args ...string) error {
		cmd := configcmder.NewConfigCmd()
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "docq-config-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		// Create a local .docq dir so the manager picks it up
		Expect(os.MkdirAll(filepath.Join(tmpDir, ".docq"), 0o755)).To(Succeed())
		Expect(os.Chdir(tmpDir)).To(Succeed())

		out = &bytes.Buffer{}
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
		os.RemoveAll(tmpDir)
	})

	Describe("set subcommand", func() {
		It("sets a config value successfully", func() {
			Expect(execute("set", "query.distinct", "ordered")).To(Succeed())

			data, err := os.ReadFile(filepath.Join(tmpDir, ".docq", "config.toml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`distinct = "ordered"`))
		})

		It("rejects unknown keys", func() {
			err := execute("set", "invalid_key", "value")
			Expect(err).To(MatchError(ContainSubstring("unknown config key")))
		})

		It("requires exactly two arguments", func() {
			Expect(execute("set", "query.distinct")).NotTo(Succeed())
		})

		It("rejects invalid uint values", func() {
			Expect(execute("set", "api.max_item_count", "not-a-number")).NotTo(Succeed())
		})

		It("rejects invalid bool values", func() {
			Expect(execute("set", "ingest.async", "maybe")).NotTo(Succeed())
		})

		It("rejects unknown distinct modes", func() {
			Expect(execute("set", "query.distinct", "sorted")).NotTo(Succeed())
		})
	})

	Describe("get subcommand", func() {
		It("gets a previously set value", func() {
			Expect(execute("set", "api.listen", ":9999")).To(Succeed())

			out.Reset()
			Expect(execute("get", "api.listen")).To(Succeed())
			Expect(out.String()).To(ContainSubstring(":9999"))
		})

		It("reports defaults for unset keys", func() {
			Expect(execute("get", "query.distinct")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("unordered"))
		})

		It("reports empty keys as not set", func() {
			Expect(execute("get", "storage.postgres_dsn")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("<not set>"))
		})

		It("rejects unknown keys", func() {
			Expect(execute("get", "invalid_key")).NotTo(Succeed())
		})
	})

	Describe("list subcommand", func() {
		It("lists every key", func() {
			Expect(execute("list")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("api.listen"))
			Expect(out.String()).To(ContainSubstring("ingest.queue_size"))
		})

		It("rejects any arguments", func() {
			Expect(execute("list", "extra")).NotTo(Succeed())
		})
	})
})
