// Command tftpserver serves a root directory over TFTP, picking up
// root/mode changes from its config file on write without restarting.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GiacomoTortora/commons-net/internal/applog"
	"github.com/GiacomoTortora/commons-net/internal/config"
	"github.com/GiacomoTortora/commons-net/internal/tftp"
)

func main() {
	var cfgFile string
	var listenAddr string
	var root string
	var mode string

	rootCmd := &cobra.Command{
		Use:   "tftpserver",
		Short: "Serve a directory over TFTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfgFile, listenAddr, root, mode)
		},
	}
	rootCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "config file (optional; when given, its tftp section replaces --listen, --root and --mode)")
	rootCmd.Flags().StringVar(&listenAddr, "listen", ":6969", "address to listen on")
	rootCmd.Flags().StringVar(&root, "root", ".", "root directory to serve")
	rootCmd.Flags().StringVar(&mode, "mode", "GET_AND_PUT", "GET_ONLY, PUT_ONLY or GET_AND_PUT")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgFile, listenAddr, root, mode string) error {
	log := applog.Setup(nil, false)
	tc := config.TFTPConfig{ListenAddr: listenAddr, Root: root, Mode: mode}

	var cfg *config.Config
	if cfgFile != "" {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
		tc = loaded.TFTP
		if len(loaded.Loggers) > 0 {
			log = applog.Setup(loaded.Loggers, false)
		}
	}

	srv, err := newServer(tc, log)
	if err != nil {
		return err
	}

	if cfg != nil && cfg.HotReload {
		stop, err := config.Watch(cfg, cfgFile, log, func(next *config.Config) {
			accessMode, err := next.TFTP.AccessMode()
			if err != nil {
				log.Error("failed to apply reloaded tftp config", "err", err)
				return
			}
			srv.SetRoot(next.TFTP.Root)
			srv.SetMode(accessMode)
			log.Info("applied reloaded tftp config", "root", next.TFTP.Root)
		})
		if err != nil {
			log.Warn("failed to start config watcher", "err", err)
		} else {
			defer stop()
		}
	}

	log.Info("starting tftp server", "listen", tc.ListenAddr, "root", tc.Root, "mode", tc.Mode)
	return srv.ListenAndServe(ctx, tc.ListenAddr)
}

func newServer(tc config.TFTPConfig, log *slog.Logger) (*tftp.Server, error) {
	accessMode, err := tc.AccessMode()
	if err != nil {
		return nil, err
	}
	srv := tftp.NewServer(tc.Root, accessMode)
	srv.Log = log
	return srv, nil
}
