package root

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mynitor/mynitor-go/pkg/mynitor"
)

type rootFlags struct {
	debugMode bool
}

func NewRootCmd() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "mynitor",
		Short: "mynitor - MyNitor telemetry diagnostics",
		Long:  "mynitor verifies credentials and connectivity for the MyNitor telemetry SDK",
		Example: `  mynitor doctor
  mynitor ping
  mynitor mock`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Diagnostic output goes to stdout; keep slog quiet unless
			// asked so SDK-internal logging does not interleave with it.
			level := slog.LevelWarn
			if flags.debugMode {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: level,
			})))
		},
	}

	cmd.PersistentFlags().BoolVar(&flags.debugMode, "debug", false, "Enable debug logging")

	cmd.AddCommand(
		newDoctorCmd(),
		newPingCmd(),
		newMockCmd(),
		newVersionCmd(),
	)

	return cmd
}

// requireMonitor initializes the SDK and insists on a credential. The SDK
// itself tolerates a missing key by dropping events, but a diagnostic run
// without one can only fail, so say so up front.
func requireMonitor() (*mynitor.Monitor, error) {
	m := mynitor.Init(mynitor.Config{})
	if m.Config().APIKey == "" {
		fmt.Printf("❌ Error: %s environment variable is not set.\n", mynitor.EnvAPIKey)
		return nil, errors.New("missing API key")
	}
	return m, nil
}

// statusEndpoint derives the onboarding status URL from the configured
// events endpoint.
func statusEndpoint(endpoint string) string {
	base := strings.TrimSuffix(endpoint, "/api/v1/events")
	return strings.TrimSuffix(base, "/") + "/api/v1/onboarding/status"
}
