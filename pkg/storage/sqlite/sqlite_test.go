package sqlite_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/storage"
	"github.com/papercomputeco/recall/pkg/storage/sqlite"
	"github.com/papercomputeco/recall/pkg/storage/storagetest"
)

var _ = Describe("Driver", func() {
	storagetest.DescribeDriver(func() storage.Driver {
		d, err := sqlite.NewDriver(context.Background(), ":memory:")
		Expect(err).NotTo(HaveOccurred())
		return d
	})

	Describe("NewDriver", func() {
		It("creates a driver with file database", func() {
			tmpDir := GinkgoT().TempDir()
			dbPath := filepath.Join(tmpDir, "test.db")

			s, err := sqlite.NewDriver(context.Background(), dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()

			// Verify file was created
			_, err = os.Stat(dbPath)
			Expect(err).NotTo(HaveOccurred())
		})

		It("persists records across reopen", func() {
			ctx := context.Background()
			dbPath := filepath.Join(GinkgoT().TempDir(), "reopen.db")

			s, err := sqlite.NewDriver(ctx, dbPath)
			Expect(err).NotTo(HaveOccurred())
			m := storagetest.NewMemory("m1", "alice", "Prefers dark mode", memory.CategoryPreferences, 0)
			Expect(s.Save(ctx, m)).To(Succeed())
			Expect(s.Retire(ctx, "m1", "alice", storage.RetireOptions{Reason: "user request"})).To(Succeed())
			Expect(s.Close()).To(Succeed())

			s, err = sqlite.NewDriver(ctx, dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()

			events, err := s.RetirementEvents(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))
			Expect(events[0].Reason).To(Equal("user request"))

			owners, err := s.Owners(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(owners).To(ConsistOf("alice"))
		})

		It("returns an error for an unwritable path", func() {
			_, err := sqlite.NewDriver(context.Background(), "/nonexistent/dir/test.db")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Save", func() {
		It("rejects another owner's write to an existing id", func() {
			ctx := context.Background()
			s, err := sqlite.NewDriver(ctx, ":memory:")
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()

			Expect(s.Save(ctx, storagetest.NewMemory("m1", "alice", "Likes tea", memory.CategoryPreferences, 0))).To(Succeed())
			err = s.Save(ctx, storagetest.NewMemory("m1", "bob", "Likes coffee", memory.CategoryPreferences, 0))
			var storageErr *memory.StorageError
			Expect(errors.As(err, &storageErr)).To(BeTrue())
			Expect(storageErr.Op).To(Equal("save"))

			got, err := s.Get(ctx, "m1", "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Content).To(Equal("Likes tea"))
		})
	})
})
