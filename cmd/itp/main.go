package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/progrium/itp-go/config"
	itpquic "github.com/progrium/itp-go/x/quic"
	"github.com/spf13/cobra"
)

var (
	configPath string
	insecure   bool

	cfg config.Config
	log *slog.Logger
)

// flags that override config keys of a different name
var flagKeys = map[string]string{
	"addr": "address",
}

// configFlags are the flags that map onto config keys.
var configFlags = []string{
	"transport", "addr", "poll-timeout", "max-attempts", "deadline",
	"strict-acks", "log-level", "baud", "max-size", "raw", "announce", "discover",
}

func main() {
	root := &cobra.Command{
		Use:           "itp",
		Short:         "send and receive buffers with the image transfer protocol",
		Long:          `itp moves a file between two endpoints using a stop-and-wait ARQ over a serial line, TCP, WebSocket, QUIC or stdio`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd)
		},
	}

	d := config.Default()
	pf := root.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "YAML config file")
	pf.StringP("transport", "t", d.Transport, "transport: tcp, unix, ws, quic, serial or stdio")
	pf.StringP("addr", "a", d.Address, "address to dial or listen on, or serial device[@baud]")
	pf.Duration("poll-timeout", d.PollTimeout, "how long to wait for a frame before retrying")
	pf.Int("max-attempts", d.MaxAttempts, "attempts per chunk before giving up (0 for unlimited)")
	pf.Duration("deadline", d.Deadline, "bound on the whole transfer (0 for none)")
	pf.Bool("strict-acks", d.StrictAcks, "only accept acks naming the chunk just sent")
	pf.String("log-level", d.LogLevel, "debug, info, warn or error")
	pf.Int("baud", d.Baud, "serial line rate when the address has none")
	pf.BoolVar(&insecure, "insecure", false, "skip QUIC certificate verification")

	root.AddCommand(sendCmd())
	root.AddCommand(receiveCmd())
	root.AddCommand(checkCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := fang.Execute(ctx, root); err != nil {
		os.Exit(1)
	}
}

// setup loads the config file and environment, then applies any flags
// given on the command line.
func setup(cmd *cobra.Command) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}

	raw := map[string]interface{}{}
	for _, name := range configFlags {
		f := cmd.Flags().Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		key, ok := flagKeys[name]
		if !ok {
			key = strings.ReplaceAll(name, "-", "_")
		}
		raw[key] = f.Value.String()
	}
	if err := config.Decode(raw, &cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := cfg.Level()
	log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	itpquic.ClientTLSConfig.InsecureSkipVerify = insecure
	log.Debug("config loaded", "path", configPath, "transport", cfg.Transport, "addr", cfg.DialAddr())
	return nil
}

func humanize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1fMB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1fKB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%dB", n)
	}
}
