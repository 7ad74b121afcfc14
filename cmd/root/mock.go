package root

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mynitor/mynitor-go/pkg/telemetry"
)

func newMockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mock",
		Short: "Send a mock OpenAI event to populate the dashboard",
		Args:  cobra.NoArgs,
		RunE:  runMockCommand,
	}
}

func runMockCommand(*cobra.Command, []string) error {
	m, err := requireMonitor()
	if err != nil {
		return err
	}

	fmt.Println("🎭 MyNitor: Sending mock OpenAI event to Cloud API...")
	err = sendDiagnosticEvent(m, telemetry.Outcome{
		Provider: "openai",
		Model:    "gpt-4o",
		Usage:    telemetry.Usage{InputTokens: 150, OutputTokens: 450},
		Latency:  1200 * time.Millisecond,
		Workflow: "diagnostic-mock",
	})
	if err != nil {
		fmt.Printf("❌ Failed: %v\n", err)
		return nil
	}

	fmt.Println("✅ Mock event sent successfully!")
	fmt.Println("✨ Check your dashboard /events page to see the generated data.")
	return nil
}
