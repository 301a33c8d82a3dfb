package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("FISH_API_KEY", "secret")
	t.Setenv("FISH_API_BASE_URL", "")
	t.Setenv("PREFETCH_STAGGER_MS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.FishAPI.BaseURL != "http://localhost:5001" {
		t.Fatalf("unexpected base url: %s", cfg.FishAPI.BaseURL)
	}
	if cfg.Prefetch.TierSize != 3 {
		t.Fatalf("expected tier size 3, got %d", cfg.Prefetch.TierSize)
	}
	if cfg.Prefetch.TierStagger != 500*time.Millisecond {
		t.Fatalf("expected 500ms stagger, got %v", cfg.Prefetch.TierStagger)
	}
	if cfg.Prefetch.Residency != 10*time.Second {
		t.Fatalf("expected 10s residency, got %v", cfg.Prefetch.Residency)
	}
	if cfg.Reveal.BatchSize != 6 || cfg.Reveal.InitialCount != 6 {
		t.Fatalf("unexpected reveal config: %+v", cfg.Reveal)
	}
	if cfg.Reveal.Delay != 300*time.Millisecond {
		t.Fatalf("expected 300ms reveal delay, got %v", cfg.Reveal.Delay)
	}
}

func TestLoadReadsOverrides(t *testing.T) {
	t.Setenv("FISH_API_KEY", "secret")
	t.Setenv("FISH_API_BASE_URL", "https://fish.example.com/")
	t.Setenv("PREFETCH_STAGGER_MS", "750")
	t.Setenv("REVEAL_BATCH", "4")
	t.Setenv("REDIS_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.FishAPI.BaseURL != "https://fish.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %s", cfg.FishAPI.BaseURL)
	}
	if cfg.Prefetch.TierStagger != 750*time.Millisecond {
		t.Fatalf("expected 750ms stagger, got %v", cfg.Prefetch.TierStagger)
	}
	if cfg.Reveal.BatchSize != 4 {
		t.Fatalf("expected batch 4, got %d", cfg.Reveal.BatchSize)
	}
	if !cfg.Redis.Enabled {
		t.Fatalf("expected redis enabled")
	}
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("FISH_API_KEY", "")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !strings.Contains(err.Error(), "FISH_API_KEY") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsNonPositiveBatch(t *testing.T) {
	t.Setenv("FISH_API_KEY", "secret")
	t.Setenv("REVEAL_BATCH", "0")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "REVEAL_BATCH") {
		t.Fatalf("expected REVEAL_BATCH error, got %v", err)
	}
}
