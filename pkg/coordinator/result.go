package coordinator

import (
	"fmt"

	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/vector"
)

// IngestResult reports the outcome of ProcessMessage.
type IngestResult struct {
	Success        bool             `json:"success"`
	ExtractedCount int              `json:"extracted_count"`
	Records        []*memory.Memory `json:"records"`
	ElapsedSeconds float64          `json:"elapsed_seconds"`

	Action memory.Action `json:"action"`

	// RetiredID is the record superseded by an UPDATE, if one was found.
	RetiredID string `json:"retired_id,omitempty"`

	// Fallback is set when the decision was replaced by the fallback ADD.
	Fallback bool `json:"fallback,omitempty"`
}

// SearchResult reports the outcome of SearchMemories.
type SearchResult struct {
	Success        bool                   `json:"success"`
	Records        []*memory.ScoredMemory `json:"records"`
	Response       string                 `json:"response"`
	ElapsedSeconds float64                `json:"elapsed_seconds"`
	TotalFound     int                    `json:"total_found"`

	// StaleDropped counts index hits that no longer hydrate.
	StaleDropped int `json:"stale_dropped"`
}

// DeleteResult reports the outcome of DeleteByContent.
type DeleteResult struct {
	Success        bool   `json:"success"`
	DeletedID      string `json:"deleted_id"`
	DeletedContent string `json:"deleted_content"`
	Reason         string `json:"reason"`
}

// ListResult reports the outcome of ListMemories.
type ListResult struct {
	Records []*memory.Memory `json:"records"`
	Count   int              `json:"count"`
}

// StatsResult extends the store aggregate with index agreement.
type StatsResult struct {
	Count         int                     `json:"count"`
	PerCategory   map[memory.Category]int `json:"per_category"`
	AvgConfidence float64                 `json:"avg_confidence"`
	IndexCount    int                     `json:"index_count"`
	InSync        bool                    `json:"in_sync"`

	// Drift is set whenever InSync is false. It is informational.
	Drift *memory.DriftWarning `json:"-"`
}

// HealthStatus is the overall health verdict.
type HealthStatus string

const (
	HealthHealthy HealthStatus = "healthy"
	HealthPartial HealthStatus = "partial"
	HealthFailed  HealthStatus = "failed"
)

// Dependency names reported by HealthCheck.
const (
	DependencyStore         = "structured_store"
	DependencyIndex         = "similarity_index"
	DependencyUnderstanding = "language_understanding"
)

// HealthReport is the result of HealthCheck.
type HealthReport struct {
	Dependencies map[string]bool `json:"dependencies"`
	Overall      HealthStatus    `json:"overall"`

	// IndexStats sizes the similarity index. Nil when the index is down.
	IndexStats *vector.Stats `json:"index_stats,omitempty"`
}

// ChatResult reports the outcome of Chat.
type ChatResult struct {
	Intent         memory.Intent          `json:"intent"`
	Response       string                 `json:"response"`
	Records        []*memory.ScoredMemory `json:"records,omitempty"`
	ExtractedCount int                    `json:"extracted_count"`
}

// ReconcileReport summarizes one owner's index repair.
type ReconcileReport struct {
	OwnerID string `json:"owner_id"`

	// Reindexed counts active records that were missing from the index.
	Reindexed int `json:"reindexed"`

	// Removed counts index entries of retired records that were deleted.
	Removed int `json:"removed"`

	// Failed counts records that could not be embedded or indexed.
	Failed int `json:"failed"`
}

// SearchError reports that a query could not be embedded or run against
// the similarity index.
type SearchError struct {
	Query string
	Err   error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search failed: %v", e.Err)
}

func (e *SearchError) Unwrap() error {
	return e.Err
}
