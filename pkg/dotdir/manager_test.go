package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/dotdir"
)

var _ = Describe("dotdir", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dotdir-test-*")
		Expect(err).NotTo(HaveOccurred())

		// Resolve symlinks so paths match filepath.Abs results
		// (e.g. on macOS /var -> /private/var).
		tmpDir, err = filepath.EvalSymlinks(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		m = dotdir.NewManager()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("NewManager", func() {
		It("creates a new manager", func() {
			Expect(m).ToNot(BeNil())
		})
	})

	Describe("Target", func() {
		It("creates the directory if it doesn't exist", func() {
			dir := filepath.Join(tmpDir, "newdir")
			result, err := m.Target(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(dir))

			info, err := os.Stat(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
		})

		It("returns existing directory without error", func() {
			result, err := m.Target(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(tmpDir))
		})

		It("returns the override dir even when a local .recall dir exists", func() {
			// Create a local .recall dir in the tmpDir
			localRecall := filepath.Join(tmpDir, ".recall")
			Expect(os.Mkdir(localRecall, 0o755)).To(Succeed())

			// Change to tmpDir so the local dir is discoverable
			origDir, err := os.Getwd()
			Expect(err).NotTo(HaveOccurred())
			Expect(os.Chdir(tmpDir)).To(Succeed())
			DeferCleanup(func() { os.Chdir(origDir) })

			overrideDir := filepath.Join(tmpDir, "override")
			result, err := m.Target(overrideDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(overrideDir))
		})

		It("returns the local .recall dir when it exists and no override is provided", func() {
			// Create a local .recall dir in the tmpDir
			localRecall := filepath.Join(tmpDir, ".recall")
			Expect(os.Mkdir(localRecall, 0o755)).To(Succeed())

			// Change to tmpDir so the local dir is discoverable
			origDir, err := os.Getwd()
			Expect(err).NotTo(HaveOccurred())
			Expect(os.Chdir(tmpDir)).To(Succeed())
			DeferCleanup(func() { os.Chdir(origDir) })

			result, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(localRecall))
		})

		It("falls back to creating ~/.recall when no local dir exists and no override is provided", func() {
			// Ensure we're in a directory without a .recall subdir
			emptyDir := filepath.Join(tmpDir, "empty")
			Expect(os.Mkdir(emptyDir, 0o755)).To(Succeed())

			origDir, err := os.Getwd()
			Expect(err).NotTo(HaveOccurred())
			Expect(os.Chdir(emptyDir)).To(Succeed())
			DeferCleanup(func() { os.Chdir(origDir) })

			// Override HOME so that ~/.recall from the real home dir is not found.
			origHome := os.Getenv("HOME")
			Expect(os.Setenv("HOME", emptyDir)).To(Succeed())
			DeferCleanup(func() { os.Setenv("HOME", origHome) })

			result, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(filepath.Join(emptyDir, ".recall")))

			info, err := os.Stat(result)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
		})
	})

	Describe("Session", func() {
		It("returns nil when no session was saved", func() {
			state, err := m.LoadSession(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(BeNil())
		})

		It("round trips a session", func() {
			Expect(m.SaveSession(&dotdir.Session{OwnerID: "alice", ConversationID: "conv-1"}, tmpDir)).To(Succeed())

			state, err := m.LoadSession(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state.OwnerID).To(Equal("alice"))
			Expect(state.ConversationID).To(Equal("conv-1"))
		})

		It("refuses to save a nil session", func() {
			Expect(m.SaveSession(nil, tmpDir)).NotTo(Succeed())
		})

		It("clears a saved session and tolerates clearing twice", func() {
			Expect(m.SaveSession(&dotdir.Session{OwnerID: "alice"}, tmpDir)).To(Succeed())
			Expect(m.ClearSession(tmpDir)).To(Succeed())
			Expect(m.ClearSession(tmpDir)).To(Succeed())

			state, err := m.LoadSession(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(BeNil())
		})
	})
})
