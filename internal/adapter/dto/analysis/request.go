package analysis

import (
	"github.com/johnquangdev/persona-panel/internal/domain/entities"
)

// TargetRequest is the ad or landing page under review
type TargetRequest struct {
	URL            string `json:"url" validate:"omitempty,url"`
	ImageBase64    string `json:"image_base64,omitempty"`
	ImageMediaType string `json:"image_media_type,omitempty" validate:"omitempty,oneof=image/png image/jpeg image/gif image/webp"`
}

// StartAnalysisRequest represents the request to start an analysis job
type StartAnalysisRequest struct {
	Personas              []entities.Persona `json:"personas" validate:"required,min=1,dive"`
	QuestionSet           string             `json:"question_set"`
	Target                TargetRequest      `json:"target"`
	DemoMode              bool               `json:"demo_mode"`
	Resume                string             `json:"resume" validate:"omitempty,oneof=always never"`
	DemoOnCredentialError bool               `json:"demo_on_credential_error"`
	Preflight             bool               `json:"preflight"`
}
