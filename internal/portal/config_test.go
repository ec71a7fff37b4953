package portal

import (
	"testing"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestValidate_RejectsBrokenConfig(t *testing.T) {
	cfg := Default()
	cfg.PortalURL = "not a url"
	if err := cfg.Validate(); err == nil {
		t.Error("invalid portal URL should fail validation")
	}

	cfg = Default()
	cfg.Report.StageMarkers = cfg.Report.StageMarkers[:3]
	if err := cfg.Validate(); err == nil {
		t.Error("missing stage markers should fail validation")
	}

	cfg = Default()
	cfg.LoginAttempts = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero login attempts should fail validation")
	}
}

func TestResolveURL(t *testing.T) {
	cfg := Default()
	cfg.PortalURL = "https://portal.test/"

	tests := []struct {
		path string
		want string
	}{
		{"/Auth/Messages", "https://portal.test/Auth/Messages"},
		{"Auth/Messages", "https://portal.test/Auth/Messages"},
		{"https://elsewhere.test/x", "https://elsewhere.test/x"},
	}
	for _, tt := range tests {
		if got := cfg.ResolveURL(tt.path); got != tt.want {
			t.Errorf("ResolveURL(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestMatchAny(t *testing.T) {
	if got := matchAny("Too Many Requests", []string{"rate limit", "too many"}); got != "too many" {
		t.Errorf("matchAny = %q, want %q", got, "too many")
	}
	if got := matchAny("all good", []string{"rate limit"}); got != "" {
		t.Errorf("matchAny = %q, want empty", got)
	}
	if containsAny("PageNotFound", []string{"pagenotfound"}) != true {
		t.Error("containsAny must be case-insensitive")
	}
}
