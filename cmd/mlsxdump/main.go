// Command mlsxdump parses RFC 3659 MLSx fact-list lines from stdin (one
// per line, as an FTP MLSD/MLST response body would contain) and prints
// each parsed entry, the way the original's MLSxEntryParser is exercised
// by org.apache.commons.net.examples.ftp.FTPClientExample's -usemlsd flag.
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/GiacomoTortora/commons-net/internal/mlsx"
)

func typeName(t mlsx.EntryType) string {
	switch t {
	case mlsx.TypeFile:
		return "file"
	case mlsx.TypeDir:
		return "dir"
	default:
		return "unknown"
	}
}

func main() {
	root := &cobra.Command{
		Use:   "mlsxdump",
		Short: "Parse MLSx fact-list lines from stdin and print them",
		RunE: func(cmd *cobra.Command, args []string) error {
			scanner := bufio.NewScanner(os.Stdin)
			exitCode := 0
			for scanner.Scan() {
				line := scanner.Text()
				if line == "" {
					continue
				}
				entry, err := mlsx.ParseEntry(line)
				if err != nil {
					fmt.Fprintf(os.Stderr, "error: %v: %q\n", err, line)
					exitCode = 1
					continue
				}
				fmt.Printf("%-5s %10d  %s\n", typeName(entry.Type), entry.Size, entry.Name)
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
			if exitCode != 0 {
				os.Exit(exitCode)
			}
			return nil
		},
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
