package dashboard

import (
	"fmt"
	"strings"
	"time"
)

const (
	defaultListenAddr         = ":9090"
	defaultAllowedOrigin      = "http://localhost:8000"
	defaultFraudCheckInterval = 30 * time.Second
	defaultHoldSweepInterval  = 60 * time.Second
	defaultRPCTimeout         = 15 * time.Second

	heliusRPCTemplate = "https://mainnet.helius-rpc.com/?api-key=%s"
)

// Config aggregates runtime settings for the dashboard API.
type Config struct {
	ListenAddr         string
	AllowedOrigins     []string
	RPCUpstream        string
	RPCTimeout         time.Duration
	FraudCheckInterval time.Duration
	HoldSweepInterval  time.Duration
}

// Validate ensures the configuration contains sane values.
func (cfg *Config) Validate() error {
	cfg.ListenAddr = defaultIfEmpty(cfg.ListenAddr, defaultListenAddr)
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{defaultAllowedOrigin}
	}
	if cfg.RPCTimeout <= 0 {
		cfg.RPCTimeout = defaultRPCTimeout
	}
	if cfg.FraudCheckInterval <= 0 {
		cfg.FraudCheckInterval = defaultFraudCheckInterval
	}
	if cfg.HoldSweepInterval <= 0 {
		cfg.HoldSweepInterval = defaultHoldSweepInterval
	}
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return fmt.Errorf("listen addr is required")
	}
	return nil
}

func defaultIfEmpty(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// ParseAllowedOrigins splits comma-delimited origins into a slice.
func ParseAllowedOrigins(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	normalized := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			normalized = append(normalized, trimmed)
		}
	}
	return normalized
}

// ResolveRPCUpstream accepts either a full node URL or a bare provider API
// key, which is expanded into the hosted RPC endpoint.
func ResolveRPCUpstream(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return trimmed
	}
	return fmt.Sprintf(heliusRPCTemplate, trimmed)
}
