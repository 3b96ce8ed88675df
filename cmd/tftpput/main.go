// Command tftpput uploads a file to a TFTP server, the "put" half of the
// original's org.apache.commons.net.examples.tftp.TFTPExample.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/GiacomoTortora/commons-net/internal/tftp"
)

func main() {
	var netascii bool
	var timeout time.Duration

	root := &cobra.Command{
		Use:   "tftpput <local-file> <server> <remote-file>",
		Short: "Upload a file to a TFTP server",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			local, server, remote := args[0], args[1], args[2]

			in, err := os.Open(local)
			if err != nil {
				return fmt.Errorf("open %s: %w", local, err)
			}
			defer in.Close()

			client := tftp.NewClient()
			client.Timeout = timeout

			mode := tftp.ModeOctet
			if netascii {
				mode = tftp.ModeNetASCII
			}

			n, err := client.Send(cmd.Context(), server, remote, mode, in)
			if err != nil {
				return fmt.Errorf("send %s to %s: %w", local, server, err)
			}
			fmt.Printf("sent %d bytes\n", n)
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
