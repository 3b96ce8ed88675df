// Command tftpget fetches a file from a TFTP server, the way the
// original's org.apache.commons.net.examples.tftp.TFTPExample does for a
// "get" operation.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/GiacomoTortora/commons-net/internal/tftp"
)

func main() {
	var netascii bool
	var timeout time.Duration

	root := &cobra.Command{
		Use:   "tftpget <server> <remote-file> <local-file>",
		Short: "Download a file from a TFTP server",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			server, remote, local := args[0], args[1], args[2]

			out, err := os.Create(local)
			if err != nil {
				return fmt.Errorf("create %s: %w", local, err)
			}
			defer out.Close()

			client := tftp.NewClient()
			client.Timeout = timeout
			interactive := term.IsTerminal(int(os.Stderr.Fd()))
			if interactive {
				width, _, err := term.GetSize(int(os.Stderr.Fd()))
				if err != nil || width <= 0 {
					width = 80
				}
				client.OnProgress = func(total int64) {
					line := fmt.Sprintf("%d bytes", total)
					if len(line) > width {
						line = line[:width]
					}
					fmt.Fprintf(os.Stderr, "\r%-*s", width, line)
				}
			}

			mode := tftp.ModeOctet
			if netascii {
				mode = tftp.ModeNetASCII
			}

			n, err := client.Receive(cmd.Context(), server, remote, mode, out)
			if interactive {
				fmt.Fprintln(os.Stderr)
			}
			if err != nil {
				return fmt.Errorf("receive %s from %s: %w", remote, server, err)
			}
			fmt.Printf("received %d bytes\n", n)
			return nil
		},
	}
	root.Flags().BoolVar(&netascii, "netascii", false, "transfer in netascii mode instead of octet")
	root.Flags().DurationVarP(&timeout, "timeout", "t", 5*time.Second, "per-packet retry timeout")

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
