package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	clog "cosmossdk.io/log"
	"cosmossdk.io/math"
	"github.com/spf13/cobra"

	"github.com/guru-fund/fundd/api"
	"github.com/guru-fund/fundd/offchain/signer"
)

// NewRootCmd creates the root command for fundd
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fundd",
		Short: "Pooled fund engine",
		Long: `fundd runs the pooled fund engine: a share ledger with
cooldown-locked tranches, signed-payload authorization, and an HTTP/WebSocket
API for deposits, withdrawals and fund state.`,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newSignerCmd(),
	)

	return rootCmd
}

func newServeCmd() *cobra.Command {
	var (
		host             string
		port             int
		disableRateLimit bool

		bootstrapOperator  string
		bootstrapSigner    string
		bootstrapSupplied  string
		bootstrapValue     string
		minDepositValue    string
		minDepositCooldown int64
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the fund API server with an in-memory keeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := &api.Config{
				Host:                   host,
				Port:                   port,
				ReadTimeout:            30 * time.Second,
				WriteTimeout:           30 * time.Second,
				DisableRateLimit:       disableRateLimit,
				ValueBroadcastInterval: 2 * time.Second,
			}

			service, err := api.NewKeeperService(clog.NewLogger(os.Stderr))
			if err != nil {
				return fmt.Errorf("failed to create fund service: %w", err)
			}

			if bootstrapOperator != "" {
				signerKey, err := hex.DecodeString(bootstrapSigner)
				if err != nil || len(signerKey) == 0 {
					return fmt.Errorf("--signer-pubkey must be a hex secp256k1 public key")
				}
				supplied, ok := math.NewIntFromString(bootstrapSupplied)
				if !ok {
					return fmt.Errorf("invalid --bootstrap-supplied %q", bootstrapSupplied)
				}
				declaredValue, ok := math.NewIntFromString(bootstrapValue)
				if !ok {
					return fmt.Errorf("invalid --bootstrap-value %q", bootstrapValue)
				}
				minValue, ok := math.NewIntFromString(minDepositValue)
				if !ok {
					return fmt.Errorf("invalid --min-deposit-value %q", minDepositValue)
				}

				if err := service.Bootstrap(
					bootstrapOperator,
					signerKey,
					supplied,
					declaredValue,
					minValue,
					minDepositCooldown,
				); err != nil {
					return fmt.Errorf("failed to bootstrap fund: %w", err)
				}
				log.Printf("Fund bootstrapped: operator=%s supplied=%s value=%s",
					bootstrapOperator, supplied, declaredValue)
			}

			server := api.NewServerWithService(config, service)

			go func() {
				if err := server.Start(); err != nil {
					log.Printf("Server error: %v", err)
				}
			}()

			log.Printf("Fund API server started on %s:%d", host, port)
			log.Printf("WebSocket endpoint: ws://%s:%d/ws", host, port)
			log.Printf("Health check: http://%s:%d/health", host, port)
			log.Printf("Metrics: http://%s:%d/metrics", host, port)

			waitForInterrupt()

			log.Println("Shutting down server...")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Stop(ctx); err != nil {
				log.Printf("Server shutdown error: %v", err)
			}
			log.Println("Server exited")
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "Server host")
	cmd.Flags().IntVar(&port, "port", 8080, "Server port")
	cmd.Flags().BoolVar(&disableRateLimit, "no-rate-limit", false, "Disable rate limiting (for testing)")
	cmd.Flags().StringVar(&bootstrapOperator, "bootstrap-operator", "", "Initialize the fund for this operator account")
	cmd.Flags().StringVar(&bootstrapSigner, "signer-pubkey", "", "Hex secp256k1 public key authorized to sign payloads (required with --bootstrap-operator)")
	cmd.Flags().StringVar(&bootstrapSupplied, "bootstrap-supplied", "0", "Base asset supplied at initialization")
	cmd.Flags().StringVar(&bootstrapValue, "bootstrap-value", "0", "Declared fund value at initialization")
	cmd.Flags().StringVar(&minDepositValue, "min-deposit-value", "0", "Minimum user deposit value")
	cmd.Flags().Int64Var(&minDepositCooldown, "min-deposit-cooldown", 0, "Seconds newly minted shares stay locked after a deposit")

	return cmd
}

func newSignerCmd() *cobra.Command {
	var (
		apiURL        string
		batchSize     int
		batchInterval time.Duration
		expiryWindow  int64
	)

	cmd := &cobra.Command{
		Use:   "signer",
		Short: "Run the off-chain payload signer",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := &signer.Config{
				BatchSize:     batchSize,
				BatchInterval: batchInterval,
				APIBaseURL:    apiURL,
				ExpiryWindow:  expiryWindow,
			}

			submitterConfig := signer.DefaultHTTPSubmitterConfig()
			submitterConfig.BaseURL = apiURL
			svc := signer.NewSignerService(config, signer.NewHTTPSubmitter(submitterConfig))

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			if err := svc.Start(ctx); err != nil {
				return fmt.Errorf("failed to start signer: %w", err)
			}

			log.Printf("Signer public key: %x", svc.PublicKey())
			log.Printf("Register this key as the fund's authorized signer")

			waitForInterrupt()

			return svc.Stop()
		},
	}

	cmd.Flags().StringVar(&apiURL, "api-url", "http://localhost:8080", "Fund API base URL")
	cmd.Flags().IntVar(&batchSize, "batch-size", 50, "Maximum payloads per batch")
	cmd.Flags().DurationVar(&batchInterval, "batch-interval", 500*time.Millisecond, "Batch submission interval")
	cmd.Flags().Int64Var(&expiryWindow, "expiry-window", 100, "Blocks a signed payload stays valid")

	return cmd
}

func waitForInterrupt() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
}
