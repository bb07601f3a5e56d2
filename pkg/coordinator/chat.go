package coordinator

import (
	"context"
	"strings"

	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/understanding"
)

const (
	rememberedPrefix  = "Got it, I'll remember that: "
	nothingToRemember = "Thanks for sharing! I didn't find anything new to remember."
)

// Chat classifies text and routes it: questions about the owner are
// answered from memory, shared facts are ingested, and anything else gets
// a conversational reply.
func (c *Coordinator) Chat(ctx context.Context, owner, text, conversationID string) (*ChatResult, error) {
	timer := observe("chat")
	defer timer.ObserveDuration()

	if strings.TrimSpace(owner) == "" {
		return nil, &memory.ValidationError{Field: "owner_id", Message: "owner is required"}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &memory.ValidationError{Field: "text", Message: "text is empty"}
	}

	intent, err := c.understand.ClassifyIntent(ctx, text)
	if err != nil {
		intent = memory.IntentMemoryQuestion
	}
	c.logger.Debug("chat intent classified", "owner_id", owner, "intent", string(intent))

	switch intent {
	case memory.IntentMemorySharing:
		res, err := c.ProcessMessage(ctx, owner, text, conversationID)
		if err != nil {
			return nil, err
		}
		return &ChatResult{
			Intent:         intent,
			Response:       acknowledge(res),
			ExtractedCount: res.ExtractedCount,
		}, nil

	case memory.IntentGeneralChat:
		response, err := c.understand.GeneralResponse(ctx, text)
		if err != nil || strings.TrimSpace(response) == "" {
			c.logger.Warn("general response unavailable, using fallback", "owner_id", owner, "error", err)
			response = understanding.FallbackGeneralResponse(text)
		}
		return &ChatResult{Intent: intent, Response: response}, nil

	default:
		res, err := c.SearchMemories(ctx, owner, text, 0)
		if err != nil {
			return nil, err
		}
		return &ChatResult{
			Intent:   memory.IntentMemoryQuestion,
			Response: res.Response,
			Records:  res.Records,
		}, nil
	}
}

func acknowledge(res *IngestResult) string {
	if res.ExtractedCount == 0 || len(res.Records) == 0 {
		return nothingToRemember
	}
	return rememberedPrefix + res.Records[0].Content
}
