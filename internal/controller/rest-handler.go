package controller

import (
	"encoding/json"
	"net/http"
)

type askAssistantRequest struct {
	Prompt            string `json:"prompt" validate:"required,max=8000"`
	SystemInstruction string `json:"systemInstruction" validate:"max=16000"`
}

type askAssistantResponse struct {
	Text string `json:"text"`
}

// askAssistant proxies a completion request upstream. The client supplies
// its own prompt and system instruction; key selection and retries happen
// server-side so API keys never reach the browser.
func (c controller) askAssistant(w http.ResponseWriter, r *http.Request) {
	var req askAssistantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": err.Error()})
		return
	}

	if validationErrors, ok := c.validate.Validate(req); !ok {
		c.writeJSON(w, http.StatusBadRequest, map[string]any{"errors": validationErrors})
		return
	}

	text, err := c.assistant.Ask(r.Context(), req.Prompt, req.SystemInstruction)
	if err != nil {
		c.logger.WarnContext(r.Context(), "assistant proxy failed", "error", err)
		c.writeJSON(w, http.StatusBadGateway, map[string]any{"error": "upstream unavailable"})
		return
	}

	c.writeJSON(w, http.StatusOK, askAssistantResponse{Text: text})
}

func (c controller) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		c.logger.Debug("failed to encode response", "error", err)
	}
}
