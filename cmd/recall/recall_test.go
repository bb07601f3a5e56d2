package recallcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	recallcmder "github.com/papercomputeco/recall/cmd/recall"
	"github.com/papercomputeco/recall/pkg/dotdir"
)

var _ = Describe("NewRecallCmd", func() {
	It("registers every subcommand", func() {
		cmd := recallcmder.NewRecallCmd()
		names := make([]string, 0, len(cmd.Commands()))
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements(
			"serve", "reconcile", "use", "auth",
			"remember", "search", "forget", "list", "stats", "history", "chat",
			"config", "init", "version",
		))
	})

	It("has persistent debug and config-dir flags", func() {
		cmd := recallcmder.NewRecallCmd()
		Expect(cmd.PersistentFlags().Lookup("debug")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
	})

	It("passes --config-dir through to subcommands", func() {
		dir, err := os.MkdirTemp("", "recall-root-test-*")
		Expect(err).NotTo(HaveOccurred())
		defer os.RemoveAll(dir)
		target := filepath.Join(dir, "custom")

		cmd := recallcmder.NewRecallCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{"use", "alice", "--config-dir", target})
		Expect(cmd.Execute()).To(Succeed())

		session, err := dotdir.NewManager().LoadSession(target)
		Expect(err).NotTo(HaveOccurred())
		Expect(session.OwnerID).To(Equal("alice"))
	})

	It("prints the version", func() {
		var out bytes.Buffer
		cmd := recallcmder.NewRecallCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"version"})
		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("dev"))
	})
})
