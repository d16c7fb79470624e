package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

const (
	ModeTracking = "tracking-service"
	ModeChat     = "chat-service"
	ModeToken    = "token"
)

// DefaultConfigPath is where services look for their YAML config.
const DefaultConfigPath = "config/config.yaml"

// isKnownMode checks if the provided mode name is known.
func isKnownMode(s string) (string, bool) {
	switch s {
	case ModeTracking, "tracking", "t":
		return ModeTracking, true
	case ModeChat, "chat", "c":
		return ModeChat, true
	case ModeToken, "tokens", "key":
		return ModeToken, true
	default:
		return "", false
	}
}

// ParseMode supports:
//
//	--mode=<value>
//	<value> (subcommand shorthand), e.g., `chat-service --max-concurrent=50`
func ParseMode(args []string) (string, []string, error) {
	var mode string
	var out []string

	for _, arg := range args {
		if after, ok := strings.CutPrefix(arg, "--mode="); ok {
			mode = after
			continue
		}
		if mode == "" {
			if m, ok := isKnownMode(arg); ok {
				mode = m
				continue
			}
		}
		out = append(out, arg)
	}

	if mode == "" {
		return "", out, errors.New("no mode specified: use --mode=<service>")
	}

	m, ok := isKnownMode(mode)
	if !ok {
		return "", out, fmt.Errorf("unknown mode %q", mode)
	}
	return m, out, nil
}

// PrintUsage prints the usage information with examples.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, "\033[36m") // cyan

	fmt.Fprintln(w, `Usage:
  ./delivery-hub --mode=<service> [flags]

Services (modes):
  tracking-service     Driver position broadcast and customer live tracking
  chat-service         Per-order chat threads, read receipts and the change feed
  token                Mint a development JWT

Examples:
  ./delivery-hub --mode=tracking-service --max-concurrent=500
  ./delivery-hub --mode=chat-service --config=config/config.yaml
  ./delivery-hub --mode=token --user-id=drv-1 --role=DRIVER --secret='<secret>'`)

	fmt.Fprint(w, "\033[0m") // reset
}

// AttachUsage wires a concise per-mode usage to a FlagSet.
func AttachUsage(fs *flag.FlagSet, mode string) {
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: ./delivery-hub --mode=%s [flags]\n", mode)
		fs.PrintDefaults()
	}
}
