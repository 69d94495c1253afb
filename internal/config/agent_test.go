package config

import "testing"

func TestLoadAgentDefaults(t *testing.T) {
	cfg, err := LoadAgent()
	if err != nil {
		t.Fatalf("LoadAgent() error = %v", err)
	}
	if cfg.TabURLFilter != "console.aws.amazon.com" {
		t.Fatalf("TabURLFilter = %q", cfg.TabURLFilter)
	}
	if cfg.DestinationHost != "console.aws.amazon.com" {
		t.Fatalf("DestinationHost = %q", cfg.DestinationHost)
	}
	if cfg.AgentCDPURL() != "http://127.0.0.1:9222" {
		t.Fatalf("AgentCDPURL() = %q", cfg.AgentCDPURL())
	}
	if cfg.TableMaxAttempts < 1 {
		t.Fatalf("TableMaxAttempts = %d", cfg.TableMaxAttempts)
	}
}

func TestLoadAgentClampsIntervals(t *testing.T) {
	t.Setenv("AGENT_EVAL_TIMEOUT_MS", "10")
	t.Setenv("AGENT_NAV_POLL_INTERVAL_MS", "5")
	t.Setenv("AGENT_TABLE_POLL_INTERVAL_MS", "0")
	t.Setenv("AGENT_TABLE_MAX_ATTEMPTS", "-3")

	cfg, err := LoadAgent()
	if err != nil {
		t.Fatalf("LoadAgent() error = %v", err)
	}
	if cfg.EvalTimeoutMS != 1000 {
		t.Fatalf("EvalTimeoutMS = %d, want 1000", cfg.EvalTimeoutMS)
	}
	if cfg.NavPollIntervalMS != 100 || cfg.TablePollIntervalMS != 100 {
		t.Fatalf("poll intervals = %d/%d, want 100/100", cfg.NavPollIntervalMS, cfg.TablePollIntervalMS)
	}
	if cfg.TableMaxAttempts != 1 {
		t.Fatalf("TableMaxAttempts = %d, want 1", cfg.TableMaxAttempts)
	}
}

func TestPortCandidatesParsing(t *testing.T) {
	t.Setenv("AGENT_PORT_CANDIDATES", "127.0.0.1:9001, 127.0.0.1:9002 ,")

	cfg, err := LoadAgent()
	if err != nil {
		t.Fatalf("LoadAgent() error = %v", err)
	}
	if len(cfg.PortCandidates) != 2 || cfg.PortCandidates[1] != "127.0.0.1:9002" {
		t.Fatalf("PortCandidates = %v", cfg.PortCandidates)
	}
}
