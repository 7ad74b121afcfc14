package root

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/mynitor/mynitor-go/pkg/mynitor"
	"github.com/mynitor/mynitor-go/pkg/telemetry"
)

func newPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Send a verification event to MyNitor Cloud",
		Args:  cobra.NoArgs,
		RunE:  runPingCommand,
	}
}

func runPingCommand(*cobra.Command, []string) error {
	m, err := requireMonitor()
	if err != nil {
		return err
	}

	fmt.Println("🚀 MyNitor: Sending verification signal to Cloud API...")
	if err := sendDiagnosticEvent(m, telemetry.Outcome{
		Model:    "ping-test",
		Workflow: "onboarding-ping",
	}); err != nil {
		fmt.Println("❌ Network Error: Could not reach MyNitor Cloud.")
		fmt.Println(err)
		return err
	}

	fmt.Println("✅ Connection verified! Event sent to MyNitor Cloud.")
	fmt.Println("✨ Check your onboarding dashboard for the green checkmark.")
	return nil
}

// sendDiagnosticEvent ships one event synchronously. The dispatcher drops
// failures silently on purpose, so the drop hook is borrowed to turn a
// drop back into an error the command can report.
func sendDiagnosticEvent(m *mynitor.Monitor, out telemetry.Outcome) error {
	c := m.Telemetry()

	var mu sync.Mutex
	var dropErr error
	c.SetDropHook(func(_ telemetry.Event, err error) {
		mu.Lock()
		dropErr = err
		mu.Unlock()
	})
	defer c.SetDropHook(nil)

	c.Dispatch(telemetry.NewEvent(telemetry.Settings{
		Agent:       "mynitor-go-cli",
		Environment: m.Config().Environment,
	}, out))

	if remaining := c.Flush(30 * time.Second); remaining > 0 {
		return errors.New("timed out waiting for delivery")
	}

	mu.Lock()
	defer mu.Unlock()
	return dropErr
}
