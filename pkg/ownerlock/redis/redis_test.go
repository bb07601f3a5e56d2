package redis_test

import (
	"context"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	goredis "github.com/redis/go-redis/v9"

	redislock "github.com/papercomputeco/recall/pkg/ownerlock/redis"
)

var _ = Describe("Locker", func() {
	var (
		ctx    context.Context
		mr     *miniredis.Miniredis
		client *goredis.Client
		locker *redislock.Locker
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		mr, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())

		client, err = redislock.NewClient(ctx, mr.Addr())
		Expect(err).NotTo(HaveOccurred())

		locker = redislock.New(client, redislock.Config{
			TTL:           time.Minute,
			RetryDelay:    time.Millisecond,
			MaxRetryDelay: 5 * time.Millisecond,
		}, nil)
	})

	AfterEach(func() {
		_ = client.Close()
		mr.Close()
	})

	It("stores a lease with a TTL while held", func() {
		unlock, err := locker.Lock(ctx, "alice")
		Expect(err).NotTo(HaveOccurred())

		Expect(mr.Exists("recall:ownerlock:alice")).To(BeTrue())
		Expect(mr.TTL("recall:ownerlock:alice")).To(Equal(time.Minute))

		unlock()
		Expect(mr.Exists("recall:ownerlock:alice")).To(BeFalse())
	})

	It("blocks a second holder until release", func() {
		unlock, err := locker.Lock(ctx, "alice")
		Expect(err).NotTo(HaveOccurred())

		acquired := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			second, err := locker.Lock(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			close(acquired)
			second()
		}()

		Consistently(acquired, 50*time.Millisecond).ShouldNot(BeClosed())
		unlock()
		Eventually(acquired).Should(BeClosed())
	})

	It("does not release a lease taken over by someone else", func() {
		unlock, err := locker.Lock(ctx, "alice")
		Expect(err).NotTo(HaveOccurred())

		// Simulate expiry and a new holder.
		Expect(mr.Set("recall:ownerlock:alice", "someone-else")).To(Succeed())
		unlock()

		v, err := mr.Get("recall:ownerlock:alice")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal("someone-else"))
	})

	It("gives up when the context ends", func() {
		unlock, err := locker.Lock(ctx, "alice")
		Expect(err).NotTo(HaveOccurred())
		defer unlock()

		short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()

		_, err = locker.Lock(short, "alice")
		Expect(err).To(MatchError(ContainSubstring("owner lock")))
	})

	It("fails to connect to a dead server", func() {
		addr := mr.Addr()
		mr.Close()

		_, err := redislock.NewClient(ctx, addr)
		Expect(err).To(HaveOccurred())

		mr, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())
	})
})
