// Command archivectl is the admin CLI for legal hold, retention, and
// audit-chain operations, talking to a running Core instance over its
// HTTP surface — the same client-side pattern coreclient uses for the
// edge agent, reused here for an operator tool instead of a daemon.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

var (
	coreURL string
	apiKey  string
)

func main() {
	root := &cobra.Command{
		Use:   "archivectl",
		Short: "Administer legal holds, retention, and audit verification against a Core instance",
	}
	root.PersistentFlags().StringVar(&coreURL, "core-url", "http://localhost:8080", "Core API base URL")
	root.PersistentFlags().StringVar(&apiKey, "api-key", os.Getenv("CORE_API_KEY"), "Core API key")

	root.AddCommand(holdCmd(), auditCmd(), retentionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func holdCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "hold", Short: "Manage legal holds"}

	var orgID int64
	var name, reason, from, to, q string

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a legal hold, optionally auto-populated by criteria",
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{
				"org_id": orgID,
				"name":   name,
				"reason": reason,
				"filter_criteria": map[string]string{
					"from": from, "to": to, "q": q,
				},
			}
			return postJSON("/admin/holds", body)
		},
	}
	create.Flags().Int64Var(&orgID, "org", 0, "organization id")
	create.Flags().StringVar(&name, "name", "", "hold name")
	create.Flags().StringVar(&reason, "reason", "", "hold reason")
	create.Flags().StringVar(&from, "from", "", "criteria: sender address")
	create.Flags().StringVar(&to, "to", "", "criteria: recipient address")
	create.Flags().StringVar(&q, "q", "", "criteria: free-text substring")

	var holdID string
	get := &cobra.Command{
		Use:   "get",
		Short: "Show a hold and its items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return getJSON(fmt.Sprintf("/admin/holds/%s?org_id=%d", holdID, orgID))
		},
	}
	get.Flags().StringVar(&holdID, "id", "", "hold public id")
	get.Flags().Int64Var(&orgID, "org", 0, "organization id")

	release := &cobra.Command{
		Use:   "release",
		Short: "Release an active hold",
		RunE: func(cmd *cobra.Command, args []string) error {
			return postJSON(fmt.Sprintf("/admin/holds/%s/release", holdID), map[string]any{"org_id": orgID})
		},
	}
	release.Flags().StringVar(&holdID, "id", "", "hold public id")
	release.Flags().Int64Var(&orgID, "org", 0, "organization id")

	cmd.AddCommand(create, get, release)
	return cmd
}

func auditCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "audit", Short: "Audit chain operations"}

	var orgID int64
	verify := &cobra.Command{
		Use:   "verify",
		Short: "Recompute and verify an organization's audit hash chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			return getJSON(fmt.Sprintf("/admin/audit-logs/verify?org_id=%d", orgID))
		},
	}
	verify.Flags().Int64Var(&orgID, "org", 0, "organization id")

	cmd.AddCommand(verify)
	return cmd
}

func retentionCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "retention", Short: "Retention sweep operations"}

	sweep := &cobra.Command{
		Use:   "sweep",
		Short: "Run the retention sweep now instead of waiting for the 24h loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return postJSON("/admin/retention/sweep", map[string]any{})
		},
	}
	cmd.AddCommand(sweep)
	return cmd
}

func getJSON(path string) error {
	req, err := http.NewRequest(http.MethodGet, coreURL+path, nil)
	if err != nil {
		return err
	}
	return do(req)
}

func postJSON(path string, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, coreURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return do(req)
}

func do(req *http.Request) error {
	req.Header.Set("X-API-Key", apiKey)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("core returned %d: %s", resp.StatusCode, out)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, out, "", "  "); err != nil {
		fmt.Println(string(out))
		return nil
	}
	fmt.Println(pretty.String())
	return nil
}
