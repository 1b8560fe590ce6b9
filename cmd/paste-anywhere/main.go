package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pasteanywhere/internal/clipboard"
	"pasteanywhere/internal/config"
	"pasteanywhere/internal/node"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		port         int
		maxPeers     int
		pingInterval time.Duration
		pollInterval time.Duration
		verbose      bool
	)

	cmd := &cobra.Command{
		Use:   "paste-anywhere <local-ip> [<bootstrap-peer>...]",
		Short: "Synchronize the clipboard across machines over a peer-to-peer overlay",
		Long: `paste-anywhere joins (or starts) a coordinator-free peer-to-peer overlay
and keeps the OS clipboard in sync across all participating machines.
Bootstrap peers are given as ip:port; with none, the node starts isolated
and waits for others to connect. The assigned listen port is printed on
startup so other instances can use this node as a bootstrap peer.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			seeds, err := config.ParseSeeds(args[1:])
			if err != nil {
				return err
			}

			cfg := config.Default()
			cfg.LocalIP = args[0]
			cfg.Port = port
			cfg.Seeds = seeds
			cfg.MaxPeers = maxPeers
			cfg.PingInterval = pingInterval
			cfg.PollInterval = pollInterval

			logger, err := buildLogger(verbose)
			if err != nil {
				return err
			}
			defer logger.Sync()

			provider, err := clipboard.NewSystemProvider()
			if err != nil {
				return err
			}

			n, err := node.New(cfg, provider, logger)
			if err != nil {
				return err
			}
			if err := n.Start(); err != nil {
				return err
			}
			fmt.Printf("%d\n", n.Port())

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			<-sig

			n.Stop()
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (0 picks an ephemeral one)")
	cmd.Flags().IntVar(&maxPeers, "max-peers", config.Default().MaxPeers, "maximum overlay degree")
	cmd.Flags().DurationVar(&pingInterval, "ping-interval", config.Default().PingInterval, "peer liveness probe period")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", config.Default().PollInterval, "clipboard poll period")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	return cmd
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"} // stdout is reserved for the port line
	return cfg.Build()
}
