package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/recall/pkg/memory"
)

var (
	searchToolName    = "memory_search"
	searchDescription = "Search the user's long-term memories by meaning. Returns the most relevant facts with similarity scores and a short answer phrased from them."

	rememberToolName    = "memory_remember"
	rememberDescription = "Offer a message to the user's long-term memory. The engine decides whether it holds a durable fact, stores it, and supersedes any older fact it replaces."

	forgetToolName    = "memory_forget"
	forgetDescription = "Forget the stored fact that best matches the given text. The fact is retired, not erased, and stays in the audit history."

	listToolName    = "memory_list"
	listDescription = "List the user's active memories, newest first, optionally filtered by category."

	statsToolName    = "memory_stats"
	statsDescription = "Summarize the user's memories: count, per-category breakdown, average confidence and whether the search index is in sync."
)

// SearchInput represents the input arguments for the memory_search tool.
type SearchInput struct {
	OwnerID string `json:"owner_id" jsonschema:"the user whose memories to search"`
	Query   string `json:"query" jsonschema:"the search query text"`
	Limit   int    `json:"limit,omitempty" jsonschema:"number of results to return (default: 5, max: 20)"`
}

// SearchOutput represents the output of the memory_search tool.
type SearchOutput struct {
	Query    string       `json:"query"`
	Response string       `json:"response"`
	Results  []MemoryItem `json:"results"`
	Count    int          `json:"count"`
}

// RememberInput represents the input arguments for the memory_remember tool.
type RememberInput struct {
	OwnerID        string `json:"owner_id" jsonschema:"the user the message is about"`
	Text           string `json:"text" jsonschema:"the message that may contain a fact worth remembering"`
	ConversationID string `json:"conversation_id,omitempty" jsonschema:"optional conversation the message came from"`
}

// RememberOutput represents the output of the memory_remember tool.
type RememberOutput struct {
	Action    string       `json:"action"`
	Stored    []MemoryItem `json:"stored"`
	RetiredID string       `json:"retired_id,omitempty"`
}

// ForgetInput represents the input arguments for the memory_forget tool.
type ForgetInput struct {
	OwnerID string `json:"owner_id" jsonschema:"the user whose memory to forget"`
	Text    string `json:"text" jsonschema:"text describing the fact to forget"`
	Reason  string `json:"reason,omitempty" jsonschema:"why the fact is being forgotten"`
}

// ForgetOutput represents the output of the memory_forget tool.
type ForgetOutput struct {
	DeletedID      string `json:"deleted_id"`
	DeletedContent string `json:"deleted_content"`
	Reason         string `json:"reason"`
}

// ListInput represents the input arguments for the memory_list tool.
type ListInput struct {
	OwnerID  string `json:"owner_id" jsonschema:"the user whose memories to list"`
	Category string `json:"category,omitempty" jsonschema:"optional category filter"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum number of memories (default: all)"`
}

// ListOutput represents the output of the memory_list tool.
type ListOutput struct {
	Memories []MemoryItem `json:"memories"`
	Count    int          `json:"count"`
}

// StatsInput represents the input arguments for the memory_stats tool.
type StatsInput struct {
	OwnerID string `json:"owner_id" jsonschema:"the user whose memories to summarize"`
}

// StatsOutput represents the output of the memory_stats tool.
type StatsOutput struct {
	Count         int            `json:"count"`
	PerCategory   map[string]int `json:"per_category"`
	AvgConfidence float64        `json:"avg_confidence"`
	IndexCount    int            `json:"index_count"`
	InSync        bool           `json:"in_sync"`
}

// MemoryItem is a flattened memory for tool output.
type MemoryItem struct {
	ID         string   `json:"id"`
	Content    string   `json:"content"`
	Category   string   `json:"category"`
	Confidence float64  `json:"confidence"`
	Tags       []string `json:"tags,omitempty"`
	CreatedAt  string   `json:"created_at"`
	Similarity float64  `json:"similarity,omitempty"`
}

func newMemoryItem(m *memory.Memory, similarity float64) MemoryItem {
	return MemoryItem{
		ID:         m.ID,
		Content:    m.Content,
		Category:   string(m.Category),
		Confidence: m.Confidence,
		Tags:       m.Tags,
		CreatedAt:  m.CreatedAt.Format(time.RFC3339),
		Similarity: similarity,
	}
}

// handleSearch processes a memory_search request.
func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	s.config.Logger.Debug("MCP memory search request",
		"owner_id", input.OwnerID,
		"limit", input.Limit,
	)

	res, err := s.config.Coordinator.SearchMemories(ctx, input.OwnerID, input.Query, input.Limit)
	if err != nil {
		return toolError("Search failed: %v", err), SearchOutput{}, nil
	}

	output := SearchOutput{
		Query:    input.Query,
		Response: res.Response,
		Results:  make([]MemoryItem, 0, len(res.Records)),
		Count:    res.TotalFound,
	}
	for _, r := range res.Records {
		output.Results = append(output.Results, newMemoryItem(r.Memory, r.Similarity))
	}

	return toolResult(output)
}

// handleRemember processes a memory_remember request.
func (s *Server) handleRemember(ctx context.Context, _ *mcp.CallToolRequest, input RememberInput) (*mcp.CallToolResult, RememberOutput, error) {
	res, err := s.config.Coordinator.ProcessMessage(ctx, input.OwnerID, input.Text, input.ConversationID)
	if err != nil {
		return toolError("Remember failed: %v", err), RememberOutput{}, nil
	}

	output := RememberOutput{
		Action:    string(res.Action),
		Stored:    make([]MemoryItem, 0, len(res.Records)),
		RetiredID: res.RetiredID,
	}
	for _, m := range res.Records {
		output.Stored = append(output.Stored, newMemoryItem(m, 0))
	}

	return toolResult(output)
}

// handleForget processes a memory_forget request.
func (s *Server) handleForget(ctx context.Context, _ *mcp.CallToolRequest, input ForgetInput) (*mcp.CallToolResult, ForgetOutput, error) {
	res, err := s.config.Coordinator.DeleteByContent(ctx, input.OwnerID, input.Text, input.Reason)
	if err != nil {
		if memory.IsNotFound(err) {
			return toolError("No memory matches %q", input.Text), ForgetOutput{}, nil
		}
		return toolError("Forget failed: %v", err), ForgetOutput{}, nil
	}

	return toolResult(ForgetOutput{
		DeletedID:      res.DeletedID,
		DeletedContent: res.DeletedContent,
		Reason:         res.Reason,
	})
}

// handleList processes a memory_list request.
func (s *Server) handleList(ctx context.Context, _ *mcp.CallToolRequest, input ListInput) (*mcp.CallToolResult, ListOutput, error) {
	if input.OwnerID == "" {
		return toolError("owner_id is required"), ListOutput{}, nil
	}

	res, err := s.config.Coordinator.ListMemories(ctx, input.OwnerID, input.Category, input.Limit)
	if err != nil {
		return toolError("List failed: %v", err), ListOutput{}, nil
	}

	output := ListOutput{
		Memories: make([]MemoryItem, 0, len(res.Records)),
		Count:    res.Count,
	}
	for _, m := range res.Records {
		output.Memories = append(output.Memories, newMemoryItem(m, 0))
	}

	return toolResult(output)
}

// handleStats processes a memory_stats request.
func (s *Server) handleStats(ctx context.Context, _ *mcp.CallToolRequest, input StatsInput) (*mcp.CallToolResult, StatsOutput, error) {
	if input.OwnerID == "" {
		return toolError("owner_id is required"), StatsOutput{}, nil
	}

	res, err := s.config.Coordinator.Stats(ctx, input.OwnerID)
	if err != nil {
		return toolError("Stats failed: %v", err), StatsOutput{}, nil
	}

	perCategory := make(map[string]int, len(res.PerCategory))
	for c, n := range res.PerCategory {
		perCategory[string(c)] = n
	}

	return toolResult(StatsOutput{
		Count:         res.Count,
		PerCategory:   perCategory,
		AvgConfidence: res.AvgConfidence,
		IndexCount:    res.IndexCount,
		InSync:        res.InSync,
	})
}

func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
	}
}

// toolResult returns output both as structured content and as JSON text.
func toolResult[T any](output T) (*mcp.CallToolResult, T, error) {
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		var zero T
		return toolError("Failed to serialize results: %v", err), zero, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}
