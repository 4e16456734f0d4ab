package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/SwineCoder101/spl-playground/internal/config"
	"github.com/SwineCoder101/spl-playground/internal/keys"
	"github.com/SwineCoder101/spl-playground/internal/ledger"
	"github.com/SwineCoder101/spl-playground/internal/pipeline"
	"github.com/SwineCoder101/spl-playground/internal/token"
	"github.com/SwineCoder101/spl-playground/internal/venue"
)

// Exit codes: 0 full success, 1 halted with no ledger side effects, 2 halted
// with partial side effects (operator must inspect or resume).
const (
	exitOK      = 0
	exitClean   = 1
	exitPartial = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath  = flag.String("config", "config.json", "path to config file")
		supply      = flag.String("supply", "", "total supply to mint (display units)")
		name        = flag.String("name", "", "token display name")
		symbol      = flag.String("symbol", "", "ticker symbol")
		imageURI    = flag.String("image-uri", "", "token image URI")
		venueKind   = flag.String("venue", "pool", "venue kind: pool or order-book")
		decimals    = flag.Uint("decimals", 9, "decimal precision of the new mint")
		seedAmount  = flag.String("seed", "", "liquidity seed amount (display units, defaults to supply)")
		slippagePct = flag.Float64("slippage", 5, "slippage tolerance percent")
	)
	flag.Parse()

	logger, err := newLogger(os.Getenv("LOG_LEVEL"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		return exitClean
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return exitClean
	}

	supplyDec, err := decimal.NewFromString(*supply)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid supply %q\n", *supply)
		return exitClean
	}
	seedDec := decimal.Zero
	if *seedAmount != "" {
		if seedDec, err = decimal.NewFromString(*seedAmount); err != nil {
			fmt.Fprintf(os.Stderr, "invalid seed amount %q\n", *seedAmount)
			return exitClean
		}
	}
	kind, err := venue.ParseKind(*venueKind)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitClean
	}
	precision, err := parseDecimals(*decimals)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitClean
	}

	wallet, err := keys.Load(cfg.Wallet.KeypairPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitClean
	}

	client, err := ledger.NewRPCClient(cfg.Ledger, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitClean
	}

	svc, err := buildService(cfg, client, wallet, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitClean
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := svc.Launch(ctx, pipeline.Request{
		Name:        *name,
		Symbol:      *symbol,
		ImageURI:    *imageURI,
		Supply:      supplyDec,
		Decimals:    precision,
		VenueKind:   kind,
		SeedAmount:  seedDec,
		SlippagePct: *slippagePct,
	})

	printReport(result, *name, *symbol, *imageURI, err)

	return exitCode(result, err)
}

// parseDecimals validates the flag value before it is narrowed to uint8, so an
// out-of-range precision is rejected rather than wrapped to a smaller one.
func parseDecimals(raw uint) (uint8, error) {
	if raw > token.MaxDecimals {
		return 0, ledger.Errorf(ledger.KindInvalidParameter, "launchpad.parseDecimals",
			"decimals %d exceeds ledger maximum %d", raw, token.MaxDecimals)
	}
	return uint8(raw), nil
}

// exitCode maps a launch outcome to the process exit code: 0 when liquidity
// was seeded, 1 when the run halted before touching the ledger, 2 when it
// halted after partial side effects.
func exitCode(result *pipeline.Result, err error) int {
	switch {
	case err == nil:
		return exitOK
	case result != nil && result.HasSideEffects():
		return exitPartial
	default:
		return exitClean
	}
}

func buildService(cfg *config.Config, client ledger.Client, wallet *keys.KeyPair, logger *zap.Logger) (*pipeline.Service, error) {
	issuer := token.NewIssuer(client, wallet, cfg.Retry, cfg.Pipeline.ConfirmTimeout, logger)
	provisioner := token.NewProvisioner(client, wallet, cfg.Retry, cfg.Pipeline.ConfirmTimeout, logger)
	allocator := token.NewAllocator(client, cfg.Retry, cfg.Pipeline.ConfirmTimeout, cfg.Pipeline.IntentWindow, logger)

	seeders := make(map[venue.Kind]venue.Seeder)
	if cfg.Venue.PoolAddress != "" {
		poolCfg := cfg.Venue
		poolCfg.Kind = venue.KindPool
		seeder, err := venue.New(poolCfg, client, wallet, cfg.Retry, logger)
		if err != nil {
			return nil, err
		}
		seeders[venue.KindPool] = seeder
	}
	if cfg.Venue.MarketAddress != "" {
		marketCfg := cfg.Venue
		marketCfg.Kind = venue.KindOrderBook
		seeder, err := venue.New(marketCfg, client, wallet, cfg.Retry, logger)
		if err != nil {
			return nil, err
		}
		seeders[venue.KindOrderBook] = seeder
	}

	return pipeline.NewService(
		pipeline.NewMemoryStore(),
		issuer, provisioner, allocator, seeders,
		wallet.Address(),
		pipeline.NewMetrics(nil),
		logger,
	), nil
}

func printReport(result *pipeline.Result, name, symbol, imageURI string, runErr error) {
	if result == nil {
		if runErr != nil {
			fmt.Println("Launch failed:", runErr)
		}
		return
	}

	if runErr == nil {
		fmt.Println("Token created successfully:")
	} else {
		fmt.Printf("Launch halted (%s): %v\n", result.Status, runErr)
	}

	for _, step := range result.Steps {
		switch step.State {
		case pipeline.StepSucceeded:
			fmt.Printf("  %-20s %s\n", step.Step, step.Identifier)
		case pipeline.StepFailed:
			fmt.Printf("  %-20s FAILED (%s): %s\n", step.Step, step.Kind, step.Cause)
		case pipeline.StepSkipped:
			fmt.Printf("  %-20s skipped\n", step.Step)
		}
	}

	if runErr == nil {
		fmt.Println("Name:", name)
		fmt.Println("Symbol:", symbol)
		if imageURI != "" {
			fmt.Println("Image URI:", imageURI)
		}
	}
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
