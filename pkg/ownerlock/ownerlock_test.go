package ownerlock_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/ownerlock"
)

var _ = Describe("Local", func() {
	var (
		ctx    context.Context
		locker *ownerlock.Local
	)

	BeforeEach(func() {
		ctx = context.Background()
		locker = ownerlock.NewLocal()
	})

	It("serializes holders of the same owner", func() {
		var inside, maxInside int32
		var wg sync.WaitGroup

		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()

				unlock, err := locker.Lock(ctx, "alice")
				Expect(err).NotTo(HaveOccurred())
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxInside)
					if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				unlock()
			}()
		}
		wg.Wait()

		Expect(atomic.LoadInt32(&maxInside)).To(Equal(int32(1)))
		Expect(locker.Len()).To(Equal(0))
	})

	It("does not block other owners", func() {
		unlock, err := locker.Lock(ctx, "alice")
		Expect(err).NotTo(HaveOccurred())
		defer unlock()

		other, err := locker.Lock(ctx, "bob")
		Expect(err).NotTo(HaveOccurred())
		other()
	})

	It("gives up when the context ends", func() {
		unlock, err := locker.Lock(ctx, "alice")
		Expect(err).NotTo(HaveOccurred())
		defer unlock()

		short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()

		_, err = locker.Lock(short, "alice")
		Expect(err).To(MatchError(context.DeadlineExceeded))
	})

	It("tolerates a double unlock", func() {
		unlock, err := locker.Lock(ctx, "alice")
		Expect(err).NotTo(HaveOccurred())
		unlock()
		unlock()

		again, err := locker.Lock(ctx, "alice")
		Expect(err).NotTo(HaveOccurred())
		again()
	})
})

var _ = Describe("Nop", func() {
	It("never blocks", func() {
		var l ownerlock.Locker = ownerlock.Nop{}
		u1, err := l.Lock(context.Background(), "alice")
		Expect(err).NotTo(HaveOccurred())
		u2, err := l.Lock(context.Background(), "alice")
		Expect(err).NotTo(HaveOccurred())
		u1()
		u2()
	})
})
