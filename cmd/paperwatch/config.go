// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/viper"

	"github.com/pdiddy/paperwatch/pkg/types"
)

// defaultCategories are the feed categories watched when the config names
// none.
var defaultCategories = []string{"hep-th", "gr-qc", "astro-ph.CO", "physics.comp-ph"}

// pipelineConfig assembles the run configuration from viper and the
// secrets directory. Stage defaults for zero values are applied by the
// stages themselves; only cross-cutting defaults live here.
func pipelineConfig() types.PipelineConfig {
	cfg := types.PipelineConfig{
		Feed: types.FeedConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("feed.timeout"),
				UserAgent: userAgent(),
			},
			Categories:   viper.GetStringSlice("feed.categories"),
			PageSize:     viper.GetInt("feed.page_size"),
			RequestDelay: viper.GetDuration("feed.request_delay"),
			MaxRetries:   viper.GetInt("feed.max_retries"),
			APIKey:       secretDefault("feed-api-key", viper.GetString("feed.api_key")),
		},
		Content: types.ContentConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("content.timeout"),
				UserAgent: userAgent(),
			},
			MaxPayloadBytes: viper.GetInt64("content.max_payload_bytes"),
			MaxTextRunes:    viper.GetInt("content.max_text_runes"),
		},
		Analysis: types.AnalysisConfig{
			AIConfig: types.AIConfig{
				Model:  viper.GetString("analysis.model"),
				APIKey: secretDefault("anthropic-api-key", viper.GetString("analysis.api_key")),
			},
			BatchSize:   viper.GetInt("analysis.batch_size"),
			CallTimeout: viper.GetDuration("analysis.call_timeout"),
			QuotaLimit:  viper.GetInt("analysis.quota_limit"),
			QuotaWindow: viper.GetDuration("analysis.quota_window"),
			QuotaWait:   viper.GetDuration("analysis.quota_wait"),
			RetryDelay:  viper.GetDuration("analysis.retry_delay"),
		},
		Relevance: types.RelevanceConfig{
			Threshold:          viper.GetFloat64("relevance.threshold"),
			TextWeight:         viper.GetFloat64("relevance.text_weight"),
			CollaboratorWeight: viper.GetFloat64("relevance.collaborator_weight"),
			AIWeight:           viper.GetFloat64("relevance.ai_weight"),
			CollaboratorBoost:  viper.GetFloat64("relevance.collaborator_boost"),
			NameMatchThreshold: viper.GetFloat64("relevance.name_match_threshold"),
		},
		Store: types.StoreConfig{
			Path:        viper.GetString("store.path"),
			MaxAttempts: viper.GetInt("store.max_attempts"),
		},
		Scheduler: types.SchedulerConfig{
			Workers:     viper.GetInt("scheduler.workers"),
			MaxBatch:    viper.GetInt("scheduler.max_batch"),
			RunDeadline: viper.GetDuration("scheduler.run_deadline"),
		},
		Notify: types.NotifyConfig{
			Destination:    viper.GetString("notify.destination"),
			Transport:      viper.GetString("notify.transport"),
			SMTPHost:       viper.GetString("notify.smtp_host"),
			SMTPPort:       viper.GetInt("notify.smtp_port"),
			SMTPUser:       viper.GetString("notify.smtp_user"),
			SMTPPassword:   secretDefault("smtp-password", viper.GetString("notify.smtp_password")),
			From:           viper.GetString("notify.from"),
			RequestTimeout: viper.GetDuration("notify.request_timeout"),
		},
		ProfilePath: viper.GetString("profile_path"),
	}

	if len(cfg.Feed.Categories) == 0 {
		cfg.Feed.Categories = defaultCategories
	}
	if cfg.ProfilePath == "" {
		cfg.ProfilePath = "profile.yaml"
	}
	return cfg
}

func userAgent() string {
	if ua := viper.GetString("user_agent"); ua != "" {
		return ua
	}
	return "paperwatch/" + version
}
