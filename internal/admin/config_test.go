package admin

import (
	"testing"

	"github.com/playmatatu/tombola/internal/config"
	"github.com/playmatatu/tombola/internal/models"
)

func TestApplyRuntimeConfig(t *testing.T) {
	cfg := &config.Config{SpinDurationMs: 3000, WinnerWaitMs: 1000, FrameIntervalMs: 16}

	applyRuntimeConfig([]models.RuntimeConfig{
		{Key: "spin_duration_ms", Value: "5000", ValueType: "int"},
		{Key: "winner_wait_ms", Value: "abc", ValueType: "int"},
		{Key: "frame_interval_ms", Value: "0", ValueType: "int"},
		{Key: "unknown", Value: "1", ValueType: "int"},
	}, cfg)

	if cfg.SpinDurationMs != 5000 {
		t.Errorf("spin duration = %d, want 5000", cfg.SpinDurationMs)
	}
	if cfg.WinnerWaitMs != 1000 {
		t.Errorf("invalid override applied: winner wait = %d", cfg.WinnerWaitMs)
	}
	if cfg.FrameIntervalMs != 16 {
		t.Errorf("non-positive override applied: frame interval = %d", cfg.FrameIntervalMs)
	}
}

func TestValidateValue(t *testing.T) {
	cases := []struct {
		typ, value string
		ok         bool
	}{
		{"int", "3000", true},
		{"int", "-1", false},
		{"int", "1.5", false},
		{"bool", "true", true},
		{"bool", "yes", false},
		{"string", "anything", true},
	}
	for _, tc := range cases {
		err := ValidateValue(tc.typ, tc.value)
		if (err == nil) != tc.ok {
			t.Errorf("ValidateValue(%q, %q) err=%v, want ok=%v", tc.typ, tc.value, err, tc.ok)
		}
	}
}

func TestTokenHashing(t *testing.T) {
	hash, err := HashToken("s3cret")
	if err != nil {
		t.Fatalf("HashToken: %v", err)
	}
	if !VerifyToken(hash, "s3cret") {
		t.Error("expected token to verify")
	}
	if VerifyToken(hash, "wrong") {
		t.Error("wrong token verified")
	}
}

func TestIPAllowed(t *testing.T) {
	if !IPAllowed(nil, "10.0.0.1") {
		t.Error("empty allow list should allow any ip")
	}
	if !IPAllowed([]string{"10.0.0.1"}, "10.0.0.1") {
		t.Error("listed ip rejected")
	}
	if IPAllowed([]string{"10.0.0.1"}, "10.0.0.2") {
		t.Error("unlisted ip allowed")
	}
}
