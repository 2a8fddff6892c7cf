// Package translator provides whole-page translation services. A page's full
// text is translated in one call so the result reads coherently; fragment
// alignment happens downstream.
package translator

import (
	"context"
	"time"
)

// ServiceConfig carries per-service settings resolved from configuration.
type ServiceConfig struct {
	Credentials string        `mapstructure:"credentials" json:"credentials"`
	APIKey      string        `mapstructure:"api_key" json:"api_key"`
	Model       string        `mapstructure:"model" json:"model"`
	BaseURL     string        `mapstructure:"base_url" json:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout"`
	ProjectID   string        `mapstructure:"project_id" json:"project_id"`
}

// PageRequest asks for a translation of one page's full text.
type PageRequest struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

// PageResult is the outcome of a single page translation call.
type PageResult struct {
	ServiceName    string            `json:"service_name"`
	TranslatedText string            `json:"translated_text"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	Latency        time.Duration     `json:"latency"`
	Error          string            `json:"error,omitempty"`
}

// PageService translates whole pages. Implementations must be safe for
// concurrent use; the scheduler shares one instance across page workers.
type PageService interface {
	Name() string
	TranslatePage(ctx context.Context, cfg ServiceConfig, req PageRequest) (*PageResult, error)
	IsAvailable(ctx context.Context) error
}
