package dashboard

import (
	"reflect"
	"testing"
	"time"
)

func TestConfigValidateAppliesDefaults(test *testing.T) {
	test.Parallel()

	cfg := Config{}
	if err := cfg.Validate(); err != nil {
		test.Fatalf("validate empty config: %v", err)
	}
	if cfg.ListenAddr != ":9090" {
		test.Fatalf("listen addr = %q", cfg.ListenAddr)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://localhost:8000" {
		test.Fatalf("allowed origins = %v", cfg.AllowedOrigins)
	}
	if cfg.FraudCheckInterval != 30*time.Second {
		test.Fatalf("fraud check interval = %s", cfg.FraudCheckInterval)
	}
	if cfg.HoldSweepInterval != 60*time.Second {
		test.Fatalf("hold sweep interval = %s", cfg.HoldSweepInterval)
	}
	if cfg.RPCTimeout != 15*time.Second {
		test.Fatalf("rpc timeout = %s", cfg.RPCTimeout)
	}
}

func TestConfigValidateKeepsExplicitValues(test *testing.T) {
	test.Parallel()

	cfg := Config{
		ListenAddr:         ":7000",
		AllowedOrigins:     []string{"https://dash.example.com"},
		FraudCheckInterval: 5 * time.Second,
		HoldSweepInterval:  10 * time.Second,
		RPCTimeout:         2 * time.Second,
	}
	if err := cfg.Validate(); err != nil {
		test.Fatalf("validate: %v", err)
	}
	if cfg.ListenAddr != ":7000" || cfg.FraudCheckInterval != 5*time.Second {
		test.Fatalf("explicit values overridden: %+v", cfg)
	}
}

func TestParseAllowedOrigins(test *testing.T) {
	test.Parallel()

	testCases := []struct {
		name     string
		raw      string
		expected []string
	}{
		{name: "empty", raw: "", expected: []string{}},
		{name: "single", raw: "http://localhost:8000", expected: []string{"http://localhost:8000"}},
		{name: "multiple with spaces", raw: "http://a.test, http://b.test ,http://c.test", expected: []string{"http://a.test", "http://b.test", "http://c.test"}},
		{name: "skips blanks", raw: "http://a.test,,  ,http://b.test", expected: []string{"http://a.test", "http://b.test"}},
	}

	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			parsed := ParseAllowedOrigins(testCase.raw)
			if !reflect.DeepEqual(parsed, testCase.expected) {
				test.Fatalf("parsed = %v, want %v", parsed, testCase.expected)
			}
		})
	}
}

func TestResolveRPCUpstream(test *testing.T) {
	test.Parallel()

	testCases := []struct {
		name     string
		raw      string
		expected string
	}{
		{name: "empty", raw: "", expected: ""},
		{name: "blank", raw: "   ", expected: ""},
		{name: "full url passthrough", raw: "https://rpc.example.com/node", expected: "https://rpc.example.com/node"},
		{name: "http passthrough", raw: "http://localhost:8899", expected: "http://localhost:8899"},
		{name: "bare api key", raw: "abc123", expected: "https://mainnet.helius-rpc.com/?api-key=abc123"},
	}

	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			resolved := ResolveRPCUpstream(testCase.raw)
			if resolved != testCase.expected {
				test.Fatalf("resolved = %q, want %q", resolved, testCase.expected)
			}
		})
	}
}
