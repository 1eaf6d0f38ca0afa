package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/MoonChainX/atlas-cipher/internal/chain"
	"github.com/MoonChainX/atlas-cipher/internal/config"
	"github.com/MoonChainX/atlas-cipher/internal/fhe"
	"github.com/MoonChainX/atlas-cipher/internal/history"
	"github.com/MoonChainX/atlas-cipher/internal/settlement"
)

// backend is the full set of chain capabilities the pipeline needs.
type backend interface {
	chain.WalletProvider
	chain.ContractCaller
	chain.ReceiptSource
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	var be backend = chain.NewFakeBackend()
	if cfg.Chain.PrivateKey != "" {
		eth, err := chain.NewEthBackend(context.Background(), chain.EthBackendConfig{
			RPCURL:           cfg.Chain.RPCURL,
			PrivateKeyHex:    cfg.Chain.PrivateKey,
			ContractAddress:  cfg.Deployment.Contracts.AtlasCipher,
			SupportedChainID: cfg.Deployment.ChainID,
		})
		if err != nil {
			log.Fatalf("chain backend error: %v", err)
		}
		be = eth
	} else {
		logger.Info("no private key configured, using in-memory backend")
	}

	metrics := settlement.NewMetrics()
	if cfg.Pipeline.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			if err := http.ListenAndServe(cfg.Pipeline.MetricsAddr, mux); err != nil {
				logger.Error("metrics listener stopped", "err", err)
			}
		}()
	}

	submitter := settlement.NewSubmitter(be, fhe.FieldCodec{}, metrics, logger)
	tracker := settlement.NewTracker(be, cfg.Pipeline.ReceiptPollInterval)
	records := history.NewMemoryStore()
	workflow := settlement.NewWorkflow(be, submitter, tracker, records, logger)

	if err := runSession(workflow, logger); err != nil {
		log.Fatalf("settlement session: %v", err)
	}
}

// runSession walks one settlement through the full flow: connect, enter
// details, confirm, await the receipt, print the history.
func runSession(workflow *settlement.Workflow, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := workflow.Connect(ctx); err != nil {
		return err
	}

	workflow.SetDetails(func(r *settlement.Request) {
		r.RecipientName = "Acme Exports Ltd"
		r.RecipientAddress = "0x742d35Cc6BF44a52e4F6E0E6fA2A5A5A5A5A5A5A"
		r.Amount = "1000.00"
		r.Currency = settlement.CurrencyUSDT
		r.Memo = "invoice 2026-081"
	})

	req := workflow.Request()
	logger.Info("settlement details entered",
		"amount", req.Amount,
		"network_fee", req.NetworkFee(),
		"total", req.TotalAmount())

	if err := workflow.Continue(); err != nil {
		return err
	}
	if err := workflow.ConfirmAndSend(ctx); err != nil {
		return err
	}
	if err := workflow.WaitForOutcome(ctx); err != nil {
		return err
	}
	if err := workflow.Err(); err != nil {
		return err
	}

	logger.Info("workflow finished", "step", workflow.Step().String())
	for _, entry := range workflow.History() {
		logger.Info("settled",
			"recipient", entry.RecipientName,
			"total", entry.Total,
			"currency", entry.Currency,
			"tx", entry.TxHash)
	}
	return nil
}
