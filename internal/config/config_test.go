package config

import (
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		App:   AppConfig{Env: "local", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "softphone", SSLMode: ""},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret"},
		Provider: ProviderConfig{
			Name:               ProviderAmazonConnect,
			ConnectInstanceURL: "https://example.my.connect.aws",
		},
		Softphone: SoftphoneConfig{WorkspaceID: "ws-1", AgentID: "agent-1"},
	}
}

func TestLoad_ReportsMissingRequired(t *testing.T) {
	// Ensure a clean env by not setting anything and calling validation directly.
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := validConfig()
	c.App.Env = "production"
	c.Auth.JWTIssuer = "issuer"
	c.Auth.JWTAudience = "aud"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
}

func TestValidate_LocalDefaultsSSLMode(t *testing.T) {
	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
}

func TestValidate_ProviderSelection(t *testing.T) {
	c := validConfig()
	c.Provider = ProviderConfig{Name: "carrier_pigeon"}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for unknown provider")
	}

	c = validConfig()
	c.Provider = ProviderConfig{Name: ProviderTwilioFlex}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for twilio_flex without FLEX_WORKSPACE_SID")
	}

	c.Provider.FlexWorkspaceSID = "WS123"
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidate_RequiresAgentIdentity(t *testing.T) {
	c := validConfig()
	c.Softphone.AgentID = ""
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for missing AGENT_ID")
	}
}

func TestValidate_SoftphoneDefaults(t *testing.T) {
	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Softphone.LineLeaseTTL != 2*time.Minute {
		t.Fatalf("expected line lease default, got %v", c.Softphone.LineLeaseTTL)
	}
	if c.Auth.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("expected access ttl default, got %v", c.Auth.AccessTokenTTL)
	}
}
