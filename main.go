package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	chatservice "delivery-hub/cmd/chat_service"
	trackingservice "delivery-hub/cmd/tracking_service"
	"delivery-hub/internal/cli"
	"delivery-hub/internal/general/config"
)

func main() {
	if len(os.Args) == 2 && (os.Args[1] == "--help" || os.Args[1] == "-h") {
		cli.PrintUsage(os.Stdout)
		os.Exit(0)
	}

	mode, svcArgs, err := cli.ParseMode(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cli.PrintUsage(os.Stderr)
		os.Exit(2)
	}

	// cancelled on SIGINT/SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch mode {
	case cli.ModeTracking:
		configPath, maxConc := serviceFlags(mode, svcArgs, 500)
		if err := trackingservice.Run(ctx, configPath, maxConc); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}

	case cli.ModeChat:
		configPath, maxConc := serviceFlags(mode, svcArgs, 200)
		if err := chatservice.Run(ctx, configPath, maxConc); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}

	case cli.ModeToken:
		fs := flag.NewFlagSet(mode, flag.ContinueOnError)
		userID := fs.String("user-id", "", "User id (token subject)")
		role := fs.String("role", "CUSTOMER", "User role: CUSTOMER | MERCHANT | DRIVER | ADMIN")
		secret := fs.String("secret", os.Getenv(config.EnvJWTSecret), "JWT HMAC secret (HS256)")
		ttl := fs.Duration("ttl", 2*time.Hour, "Token lifetime")
		cli.AttachUsage(fs, mode)
		parseOrExit(fs, svcArgs)

		if *userID == "" || *secret == "" {
			fs.Usage()
			os.Exit(2)
		}
		token, claims, err := cli.GenerateUserToken(*secret, *userID, *role, *ttl)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		cli.PrintToken(os.Stdout, token, claims)

	default:
		// ParseMode only returns known modes
		fmt.Fprintln(os.Stderr, "Error: unknown mode")
		os.Exit(2)
	}
}

// serviceFlags parses the flags shared by both services.
func serviceFlags(mode string, args []string, defaultConc int) (string, int) {
	fs := flag.NewFlagSet(mode, flag.ContinueOnError)
	configPath := fs.String("config", cli.DefaultConfigPath, "Path to the YAML config")
	maxConc := fs.Int("max-concurrent", defaultConc, "Maximum number of concurrent HTTP requests and sockets")
	cli.AttachUsage(fs, mode)
	parseOrExit(fs, args)

	if *maxConc < 1 {
		fmt.Fprintln(os.Stderr, "Error: --max-concurrent must be >= 1")
		fs.Usage()
		os.Exit(2)
	}
	return *configPath, *maxConc
}

func parseOrExit(fs *flag.FlagSet, args []string) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}
}
