package generate

import (
	"codeberg.org/sajtmaskin/server/internal/v0"
)

// request payload for site generation
type GenerateRequest struct {
	Prompt  string    `json:"prompt" binding:"required,max=10000"`
	Quality string    `json:"quality,omitempty" binding:"omitempty,oneof=fast premium"`
	Files   []v0.File `json:"files,omitempty" binding:"max=20"`
}

// submission status values
const (
	StatusCompleted  = "completed"
	StatusInProgress = "in_progress"
	StatusDuplicate  = "duplicate"
)

// response payload for site generation
type GenerateResponse struct {
	Status          string `json:"status"`
	Success         bool   `json:"success,omitempty"`
	Intent          string `json:"intent,omitempty"`
	ChatID          string `json:"chat_id,omitempty"`
	DemoURL         string `json:"demo_url,omitempty"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	ClarifyQuestion string `json:"clarify_question,omitempty"`
	Credits         *int   `json:"credits,omitempty"`
	Reconciled      bool   `json:"reconciled,omitempty"`
	Applied         bool   `json:"applied"`
}

// maps a finished generation onto the response payload
func completedResponse(result *v0.Result) GenerateResponse {
	return GenerateResponse{
		Status:          StatusCompleted,
		Success:         result.Success,
		Intent:          string(result.Intent),
		ChatID:          result.ChatID,
		DemoURL:         result.DemoURL,
		Code:            result.Code,
		Message:         result.Message,
		ClarifyQuestion: result.ClarifyQuestion,
		Credits:         result.Credits,
		Reconciled:      result.Reconciled,
		Applied:         result.Applied,
	}
}
