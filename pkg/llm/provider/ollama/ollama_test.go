package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/paideialabs/paideia/pkg/llm"
	"github.com/paideialabs/paideia/pkg/llm/provider/ollama"
)

func TestOllamaCompleter(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Ollama Completer Suite")
}

var _ = Describe("Completer", func() {
	It("sends the system prompt as a leading system message", func() {
		var captured map[string]any

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/api/chat"))
			Expect(json.NewDecoder(r.Body).Decode(&captured)).To(Succeed())

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"model":   "llama3.1",
				"message": map[string]string{"role": "assistant", "content": "a slice is a view into an array"},
				"done":    true,
			})
		}))
		defer server.Close()

		completer, err := ollama.NewCompleter(ollama.Config{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		resp, err := completer.Complete(context.Background(), &llm.ChatRequest{
			System:   "You are Socrates.",
			Messages: []llm.Message{llm.NewTextMessage("user", "what is a slice?")},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Message.GetText()).To(Equal("a slice is a view into an array"))

		messages := captured["messages"].([]any)
		Expect(messages).To(HaveLen(2))
		first := messages[0].(map[string]any)
		Expect(first["role"]).To(Equal("system"))
		Expect(captured["stream"]).To(Equal(false))
	})

	It("retries once on a transient failure", func() {
		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if attempts.Add(1) == 1 {
				http.Error(w, "overloaded", http.StatusServiceUnavailable)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"model":   "llama3.1",
				"message": map[string]string{"role": "assistant", "content": "ok"},
				"done":    true,
			})
		}))
		defer server.Close()

		completer, err := ollama.NewCompleter(ollama.Config{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		resp, err := completer.Complete(context.Background(), &llm.ChatRequest{
			Messages: []llm.Message{llm.NewTextMessage("user", "hi")},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Message.GetText()).To(Equal("ok"))
		Expect(attempts.Load()).To(Equal(int32(2)))
	})

	It("fails after the retry is exhausted", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		completer, err := ollama.NewCompleter(ollama.Config{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		_, err = completer.Complete(context.Background(), &llm.ChatRequest{
			Messages: []llm.Message{llm.NewTextMessage("user", "hi")},
		})
		Expect(err).To(MatchError(llm.ErrCompletion))
	})

	It("returns ErrEmptyResponse when the model produced nothing", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"model":   "llama3.1",
				"message": map[string]string{"role": "assistant", "content": ""},
				"done":    true,
			})
		}))
		defer server.Close()

		completer, err := ollama.NewCompleter(ollama.Config{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		_, err = completer.Complete(context.Background(), &llm.ChatRequest{
			Messages: []llm.Message{llm.NewTextMessage("user", "hi")},
		})
		Expect(err).To(MatchError(llm.ErrEmptyResponse))
	})
})
