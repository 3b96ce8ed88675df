// Command ntpquery queries an NTP server and prints the resulting delay,
// offset and any diagnostic comments, the way the original's
// org.apache.commons.net.examples.ntp.NTPClientExample does.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/GiacomoTortora/commons-net/internal/ntp"
)

func main() {
	var timeout time.Duration

	root := &cobra.Command{
		Use:   "ntpquery <server>",
		Short: "Query an NTP server and print delay/offset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := ntp.NewClient()
			client.Timeout = timeout

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout+time.Second)
			defer cancel()

			info, err := client.Query(ctx, args[0])
			if err != nil {
				return fmt.Errorf("query %s: %w", args[0], err)
			}

			fmt.Printf("server:   %s\n", args[0])
			if delay, ok := info.Delay(); ok {
				fmt.Printf("delay:    %d ms\n", delay)
			}
			if offset, ok := info.Offset(); ok {
				fmt.Printf("offset:   %d ms\n", offset)
			}
			for _, c := range info.Comments() {
				fmt.Printf("comment:  %s\n", c)
			}
			return nil
		},
	}
	root.Flags().DurationVarP(&timeout, "timeout", "t", 5*time.Second, "reply timeout")

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
