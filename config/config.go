// Package config provides configuration for the marketplace core.
// Configuration is loaded from a YAML file layered over defaults; every bound
// the components enforce (price limits, text lengths, timeouts, caps, scoring
// weights) lives here rather than being hardcoded.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all marketplace configuration.
type Config struct {
	// Reputation settings.
	Reputation ReputationConfig `yaml:"reputation" json:"reputation"`

	// Listing bounds enforced at publish time.
	Listing ListingConfig `yaml:"listing" json:"listing"`

	// Transparency commit/reveal settings.
	Transparency TransparencyConfig `yaml:"transparency" json:"transparency"`

	// Memory retention and search settings.
	Memory MemoryConfig `yaml:"memory" json:"memory"`

	// Recommendation scoring weights and thresholds.
	Recommend RecommendConfig `yaml:"recommend" json:"recommend"`

	// Retry policy for best-effort collaborators.
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Development enables verbose error detail in Failure envelopes.
	Development bool `yaml:"development" json:"development"`
}

// ReputationConfig bounds the reputation and rating scales.
type ReputationConfig struct {
	// Default is the reputation assigned at registration.
	Default int `yaml:"default" json:"default"`
	// Max caps the reputation range; recomputed values are clamped to [0, Max].
	Max int `yaml:"max" json:"max"`
	// MaxRating is the top of the per-transaction rating scale.
	MaxRating int `yaml:"max_rating" json:"max_rating"`
}

// ListingConfig bounds listing fields at publish time.
type ListingConfig struct {
	MinPrice       float64 `yaml:"min_price" json:"min_price"`
	MaxPrice       float64 `yaml:"max_price" json:"max_price"`
	MaxTitleLen    int     `yaml:"max_title_len" json:"max_title_len"`
	MaxDescription int     `yaml:"max_description_len" json:"max_description_len"`
}

// TransparencyConfig controls the commit/reveal state machine.
type TransparencyConfig struct {
	// CommitTimeout is the window within which a commit must be revealed
	// before it expires.
	CommitTimeout time.Duration `yaml:"commit_timeout" json:"commit_timeout"`
	// LateRevealFraction is the fraction of the timeout window past which a
	// reveal is considered late for trust scoring.
	LateRevealFraction float64 `yaml:"late_reveal_fraction" json:"late_reveal_fraction"`
}

// MemoryConfig controls per-agent memory retention.
type MemoryConfig struct {
	// RetentionCap is the maximum number of records kept per agent; the
	// oldest records are evicted beyond it.
	RetentionCap int `yaml:"retention_cap" json:"retention_cap"`
	// SearchCap is the maximum number of results a memory search returns.
	SearchCap int `yaml:"search_cap" json:"search_cap"`
}

// RecommendConfig carries the multi-factor scoring weights and thresholds.
type RecommendConfig struct {
	SpecializationWeight float64 `yaml:"specialization_weight" json:"specialization_weight"`
	QualityWeight        float64 `yaml:"quality_weight" json:"quality_weight"`
	PreferenceWeight     float64 `yaml:"preference_weight" json:"preference_weight"`
	TrendingWeight       float64 `yaml:"trending_weight" json:"trending_weight"`
	// PersonalizedThreshold is the total score above which a recommendation
	// counts as personalized.
	PersonalizedThreshold float64 `yaml:"personalized_threshold" json:"personalized_threshold"`
	// TrendingSalesThreshold is the sales count a listing must cross before
	// the trending sub-score contributes.
	TrendingSalesThreshold int `yaml:"trending_sales_threshold" json:"trending_sales_threshold"`
	// MaterialityBar is the minimum sub-score that earns a human-readable
	// reason entry.
	MaterialityBar float64 `yaml:"materiality_bar" json:"materiality_bar"`
}

// RetryConfig bounds the failure policy's backoff loop.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
}

// Default returns the baseline configuration all loads start from.
func Default() *Config {
	return &Config{
		Reputation: ReputationConfig{
			Default:   100,
			Max:       1000,
			MaxRating: 5,
		},
		Listing: ListingConfig{
			MinPrice:       0,
			MaxPrice:       1000,
			MaxTitleLen:    200,
			MaxDescription: 2000,
		},
		Transparency: TransparencyConfig{
			CommitTimeout:      5 * time.Minute,
			LateRevealFraction: 0.8,
		},
		Memory: MemoryConfig{
			RetentionCap: 50,
			SearchCap:    100,
		},
		Recommend: RecommendConfig{
			SpecializationWeight:   0.4,
			QualityWeight:          0.3,
			PreferenceWeight:       0.2,
			TrendingWeight:         0.1,
			PersonalizedThreshold:  0.3,
			TrendingSalesThreshold: 5,
			MaterialityBar:         0.1,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   100 * time.Millisecond,
			MaxDelay:    2 * time.Second,
		},
	}
}

// Load reads a YAML file and layers it over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks internal consistency of the configuration.
func (c *Config) Validate() error {
	if c.Reputation.Max <= 0 {
		return fmt.Errorf("reputation.max must be positive, got %d", c.Reputation.Max)
	}
	if c.Reputation.Default < 0 || c.Reputation.Default > c.Reputation.Max {
		return fmt.Errorf("reputation.default %d outside [0, %d]", c.Reputation.Default, c.Reputation.Max)
	}
	if c.Reputation.MaxRating < 1 {
		return fmt.Errorf("reputation.max_rating must be at least 1, got %d", c.Reputation.MaxRating)
	}
	if c.Listing.MaxPrice <= c.Listing.MinPrice {
		return fmt.Errorf("listing.max_price %v must exceed listing.min_price %v", c.Listing.MaxPrice, c.Listing.MinPrice)
	}
	if c.Transparency.CommitTimeout <= 0 {
		return fmt.Errorf("transparency.commit_timeout must be positive, got %v", c.Transparency.CommitTimeout)
	}
	if c.Transparency.LateRevealFraction <= 0 || c.Transparency.LateRevealFraction > 1 {
		return fmt.Errorf("transparency.late_reveal_fraction %v outside (0, 1]", c.Transparency.LateRevealFraction)
	}
	if c.Memory.RetentionCap < 1 {
		return fmt.Errorf("memory.retention_cap must be at least 1, got %d", c.Memory.RetentionCap)
	}
	if c.Memory.SearchCap < 1 {
		return fmt.Errorf("memory.search_cap must be at least 1, got %d", c.Memory.SearchCap)
	}
	sum := c.Recommend.SpecializationWeight + c.Recommend.QualityWeight + c.Recommend.PreferenceWeight + c.Recommend.TrendingWeight
	if sum <= 0 || sum > 1.0001 {
		return fmt.Errorf("recommend weights must sum to (0, 1], got %v", sum)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	return nil
}
