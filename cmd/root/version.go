package root

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mynitor/mynitor-go/pkg/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Args:  cobra.NoArgs,
		Run:   runVersionCommand,
	}
}

func runVersionCommand(*cobra.Command, []string) {
	fmt.Printf("mynitor version %s\n", version.Version)
	fmt.Printf("Commit: %s\n", version.Commit)
}
