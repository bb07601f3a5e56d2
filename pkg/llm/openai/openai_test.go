package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/llm"
	"github.com/papercomputeco/recall/pkg/llm/openai"
)

var _ = Describe("Completer", func() {
	var (
		server   *httptest.Server
		lastBody map[string]any
		content  string
		status   int
	)

	BeforeEach(func() {
		lastBody = nil
		content = "Your name is Sarah."
		status = http.StatusOK
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if status != http.StatusOK {
				w.WriteHeader(status)
				_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
				return
			}

			switch r.URL.Path {
			case "/models":
				_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
			case "/chat/completions":
				Expect(json.NewDecoder(r.Body).Decode(&lastBody)).To(Succeed())
				_ = json.NewEncoder(w).Encode(map[string]any{
					"id":      "chatcmpl-1",
					"object":  "chat.completion",
					"created": 1700000000,
					"model":   "gpt-4o-mini",
					"choices": []any{map[string]any{
						"index":         0,
						"finish_reason": "stop",
						"message":       map[string]any{"role": "assistant", "content": content},
					}},
					"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17},
				})
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	newCompleter := func() *openai.Completer {
		return openai.New(openai.Config{BaseURL: server.URL, APIKey: "sk-test", MaxRetries: 0})
	}

	It("completes a prompt", func() {
		resp, err := newCompleter().Complete(context.Background(), llm.NewPrompt("sys", "What is my name?", 0.3, 200))
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Text()).To(Equal("Your name is Sarah."))
		Expect(resp.StopReason).To(Equal("stop"))
		Expect(resp.Usage.TotalTokens).To(Equal(17))

		Expect(lastBody["model"]).To(Equal(openai.DefaultModel))
		Expect(lastBody["temperature"]).To(BeNumerically("~", 0.3))
		msgs := lastBody["messages"].([]any)
		Expect(msgs).To(HaveLen(2))
		Expect(msgs[0].(map[string]any)["role"]).To(Equal("system"))
		Expect(msgs[1].(map[string]any)["role"]).To(Equal("user"))
	})

	It("returns ErrEmptyCompletion when the reply has no content", func() {
		content = ""
		_, err := newCompleter().Complete(context.Background(), llm.NewPrompt("", "hi", 0, 5))
		Expect(errors.Is(err, llm.ErrEmptyCompletion)).To(BeTrue())
	})

	It("wraps API errors", func() {
		status = http.StatusUnauthorized
		_, err := newCompleter().Complete(context.Background(), llm.NewPrompt("", "hi", 0, 5))
		Expect(errors.Is(err, llm.ErrCompletion)).To(BeTrue())
		Expect(errors.Is(newCompleter().Ping(context.Background()), llm.ErrCompletion)).To(BeTrue())
	})

	It("pings by listing models", func() {
		Expect(newCompleter().Ping(context.Background())).To(Succeed())
	})
})
