package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// DeploymentConfig represents deployments.json.
type DeploymentConfig struct {
	ChainID   int64 `json:"chainId"`
	Contracts struct {
		AtlasCipher string `json:"AtlasCipher"`
	} `json:"contracts"`
}

// AppConfig ties together deployment info and environment overrides.
type AppConfig struct {
	Deployment DeploymentConfig
	Chain      ChainConfig
	Pipeline   PipelineConfig
}

type ChainConfig struct {
	RPCURL     string
	PrivateKey string
}

type PipelineConfig struct {
	ReceiptPollInterval time.Duration
	// MetricsAddr, when set, exposes the prometheus registry over HTTP.
	MetricsAddr string
}

const defaultDeploymentsPath = "deployments.json"

// Load aggregates configuration from disk and environment. A missing
// deployments file is not fatal: the demo binary runs against the in-memory
// backend without one.
func Load() (*AppConfig, error) {
	deploymentsPath := envOr("DEPLOYMENTS_PATH", defaultDeploymentsPath)

	deployCfg, err := loadDeployments(deploymentsPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load deployments: %w", err)
		}
		deployCfg = &DeploymentConfig{}
	}

	chainCfg := ChainConfig{
		RPCURL:     envOr("CHAIN_RPC_URL", ""),
		PrivateKey: envOr("CHAIN_PRIVATE_KEY", ""),
	}

	pipelineCfg := PipelineConfig{
		ReceiptPollInterval: time.Duration(envOrInt("RECEIPT_POLL_INTERVAL_MS", 2000)) * time.Millisecond,
		MetricsAddr:         envOr("METRICS_ADDR", ""),
	}

	return &AppConfig{
		Deployment: *deployCfg,
		Chain:      chainCfg,
		Pipeline:   pipelineCfg,
	}, nil
}

func loadDeployments(path string) (*DeploymentConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg DeploymentConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envOr(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
	}
	return fallback
}
