package anthropic_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/llm"
	"github.com/papercomputeco/recall/pkg/llm/anthropic"
)

var _ = Describe("Completer", func() {
	var (
		server   *httptest.Server
		lastBody map[string]any
		blocks   []map[string]any
		status   int
	)

	BeforeEach(func() {
		lastBody = nil
		status = http.StatusOK
		blocks = []map[string]any{
			{"type": "text", "text": "You use "},
			{"type": "text", "text": "Obsidian."},
		}
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if status != http.StatusOK {
				w.WriteHeader(status)
				_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
				return
			}

			switch r.URL.Path {
			case "/v1/models":
				_, _ = w.Write([]byte(`{"data":[],"has_more":false,"first_id":null,"last_id":null}`))
			case "/v1/messages":
				Expect(r.Header.Get("X-Api-Key")).To(Equal("test-key"))
				Expect(json.NewDecoder(r.Body).Decode(&lastBody)).To(Succeed())
				_ = json.NewEncoder(w).Encode(map[string]any{
					"id":            "msg_1",
					"type":          "message",
					"role":          "assistant",
					"model":         "claude-3-5-haiku-latest",
					"content":       blocks,
					"stop_reason":   "end_turn",
					"stop_sequence": nil,
					"usage":         map[string]int{"input_tokens": 9, "output_tokens": 4},
				})
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	newCompleter := func() *anthropic.Completer {
		return anthropic.New(anthropic.Config{BaseURL: server.URL, APIKey: "test-key", MaxRetries: 0})
	}

	It("joins text blocks and maps usage", func() {
		resp, err := newCompleter().Complete(context.Background(), llm.NewPrompt("be brief", "What tools do I use?", 0.3, 200))
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Text()).To(Equal("You use Obsidian."))
		Expect(resp.StopReason).To(Equal("end_turn"))
		Expect(resp.Usage.TotalTokens).To(Equal(13))

		Expect(lastBody["model"]).To(Equal(anthropic.DefaultModel))
		Expect(lastBody["max_tokens"]).To(BeNumerically("==", 200))
		system := lastBody["system"].([]any)
		Expect(system[0].(map[string]any)["text"]).To(Equal("be brief"))
		msgs := lastBody["messages"].([]any)
		Expect(msgs).To(HaveLen(1))
		Expect(msgs[0].(map[string]any)["role"]).To(Equal("user"))
	})

	It("defaults max tokens when the request leaves it unset", func() {
		_, err := newCompleter().Complete(context.Background(), &llm.ChatRequest{
			Messages: []llm.Message{llm.NewTextMessage(llm.RoleUser, "hi")},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(lastBody["max_tokens"]).To(BeNumerically("==", 1024))
		Expect(lastBody).NotTo(HaveKey("system"))
	})

	It("returns ErrEmptyCompletion without text blocks", func() {
		blocks = []map[string]any{}
		_, err := newCompleter().Complete(context.Background(), llm.NewPrompt("", "hi", 0, 5))
		Expect(errors.Is(err, llm.ErrEmptyCompletion)).To(BeTrue())
	})

	It("wraps API errors", func() {
		status = http.StatusUnauthorized
		_, err := newCompleter().Complete(context.Background(), llm.NewPrompt("", "hi", 0, 5))
		Expect(errors.Is(err, llm.ErrCompletion)).To(BeTrue())
	})

	It("pings by listing models", func() {
		Expect(newCompleter().Ping(context.Background())).To(Succeed())
	})
})
