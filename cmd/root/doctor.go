package root

import (
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/mynitor/mynitor-go/pkg/httpclient"
	"github.com/mynitor/mynitor-go/pkg/mynitor"
	"github.com/mynitor/mynitor-go/pkg/version"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check credentials and connectivity to MyNitor Cloud",
		Args:  cobra.NoArgs,
		RunE:  runDoctorCommand,
	}
}

func runDoctorCommand(*cobra.Command, []string) error {
	m, err := requireMonitor()
	if err != nil {
		return err
	}
	cfg := m.Config()

	fmt.Printf("🩺 MyNitor Doctor (v%s)\n", version.Version)
	fmt.Println("---------------------------")
	fmt.Printf("✅ API Key: Detected (%s)\n", maskKey(cfg.APIKey))

	fmt.Println("📡 Testing Connection...")
	checkConnection(cfg)
	return nil
}

func checkConnection(cfg mynitor.Config) {
	req, err := http.NewRequest(http.MethodGet, statusEndpoint(cfg.Endpoint), nil)
	if err != nil {
		fmt.Println("❌ Connection: An unexpected error occurred")
		fmt.Printf("   Error: %v\n", err)
		return
	}
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	resp, err := httpclient.New().Do(req)
	if err != nil {
		var certErr *tls.CertificateVerificationError
		var netErr net.Error
		switch {
		case errors.As(err, &certErr):
			fmt.Println("❌ Connection: SSL Certificate Verification Failed")
			fmt.Printf("   Error details: %v\n", err)
			fmt.Println("   💡 Suggestion: This looks like an SSL issue. Check your certificate store or proxy.")
		case errors.As(err, &netErr):
			fmt.Println("❌ Connection: Failed to reach MyNitor Cloud")
			fmt.Printf("   Error details: %v\n", err)
			fmt.Println("   💡 Suggestion: Check your internet connection or DNS settings.")
		default:
			fmt.Println("❌ Connection: An unexpected error occurred")
			fmt.Printf("   Error: %v\n", err)
		}
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("❌ Connection: API returned %d (%s)\n", resp.StatusCode, http.StatusText(resp.StatusCode))
		return
	}

	fmt.Println("✅ Connection: MyNitor Cloud is reachable")
	var status struct {
		OrgID string `json:"orgId"`
	}
	org := "Verified"
	if err := json.NewDecoder(resp.Body).Decode(&status); err == nil && status.OrgID != "" {
		org = status.OrgID
	}
	fmt.Printf("✅ Organization: %s\n", org)
}

// maskKey shows enough of the credential to recognize it without leaking
// it into terminal history.
func maskKey(key string) string {
	if len(key) < 12 {
		return "****"
	}
	return key[:8] + "..." + key[len(key)-4:]
}
