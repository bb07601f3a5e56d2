package metrics_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/papercomputeco/recall/pkg/metrics"
)

var _ = Describe("Collectors", func() {
	It("are registered with the default registry", func() {
		families, err := prometheus.DefaultGatherer.Gather()
		Expect(err).NotTo(HaveOccurred())

		metrics.StaleHitsDroppedTotal.Add(0)
		names := map[string]bool{}
		for _, f := range families {
			names[f.GetName()] = true
		}
		Expect(names).To(HaveKey("recall_stale_hits_dropped_total"))
		Expect(names).To(HaveKey("recall_fallback_decisions_total"))
	})

	It("counts by label", func() {
		before := testutil.ToFloat64(metrics.IngestTotal.WithLabelValues("ADD"))
		metrics.IngestTotal.WithLabelValues("ADD").Inc()
		Expect(testutil.ToFloat64(metrics.IngestTotal.WithLabelValues("ADD"))).To(Equal(before + 1))
	})
})
