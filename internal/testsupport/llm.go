package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// Reply is one canned chat completion. A non-zero Status returns that HTTP
// status with Content as the body.
type Reply struct {
	Status  int
	Content string
}

// LLMServer is an OpenAI-compatible chat completion endpoint for tests.
type LLMServer struct {
	*httptest.Server
	calls atomic.Int64
}

// Calls returns the number of completion requests received.
func (s *LLMServer) Calls() int {
	return int(s.calls.Load())
}

// NewLLMServer starts a server that answers each completion with respond.
// respond receives the decoded request body and the 1-based call number.
func NewLLMServer(t testing.TB, respond func(body map[string]any, call int) Reply) *LLMServer {
	t.Helper()

	srv := &LLMServer{}
	srv.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := int(srv.calls.Add(1))
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		reply := respond(body, call)
		if reply.Status != 0 && reply.Status != http.StatusOK {
			http.Error(w, reply.Content, reply.Status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"message":       map[string]any{"role": "assistant", "content": reply.Content},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}
