package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

const maxRequestBodySize = 1 << 20 // 1MB

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

func handleChat(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "No message provided")
			return
		}

		answer, ok := answerQuestion(w, r, deps, req.Message)
		if !ok {
			return
		}
		writeJSON(w, chatResponse{Response: answer})
	}
}

func handleQueryDocuments(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("query")
		if strings.TrimSpace(query) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "No query provided")
			return
		}
		answer, ok := answerQuestion(w, r, deps, query)
		if !ok {
			return
		}
		writeJSON(w, map[string]string{"answer": answer})
	}
}

func handleSearchDocuments(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("query")
		if strings.TrimSpace(query) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "No query provided")
			return
		}
		limit := parseIntParam(r, "limit", deps.topK(), 50)

		chunks, err := deps.Retriever.Retrieve(r.Context(), query, limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "search failed: %v", err)
			return
		}
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		writeJSON(w, map[string][]string{"documents": texts})
	}
}

// answerQuestion retrieves context and composes an answer, writing the
// error response itself on failure.
func answerQuestion(w http.ResponseWriter, r *http.Request, deps Deps, question string) (string, bool) {
	chunks, err := deps.Retriever.Retrieve(r.Context(), question, deps.topK())
	if err != nil {
		deps.logger().Error("retrieval failed", "error", err)
		httpError(w, http.StatusInternalServerError, "api_error", "retrieval failed: %v", err)
		return "", false
	}
	deps.logger().Debug("context retrieved", "chunks", len(chunks))

	answer, err := deps.Answerer.Answer(r.Context(), question, chunks)
	if err != nil {
		deps.logger().Error("answer generation failed", "error", err)
		httpError(w, http.StatusBadGateway, "api_error", "failed to generate answer: %v", err)
		return "", false
	}
	return answer, true
}
