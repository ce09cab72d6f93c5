package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// webhooksCmd manages subscriptions against a running server over its
// management API.
func webhooksCmd() *cobra.Command {
	var baseURL string

	cmd := &cobra.Command{
		Use:   "webhooks",
		Short: "Manage webhook subscriptions on a running server",
	}
	cmd.PersistentFlags().StringVar(&baseURL, "server", "http://localhost:3000", "base URL of the dinewire server")

	var url, secret string
	var eventNames []string
	register := &cobra.Command{
		Use:   "register",
		Short: "Register a subscription",
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{"url": url, "secret": secret, "events": eventNames}
			return call(http.MethodPost, baseURL+"/webhooks", body)
		},
	}
	register.Flags().StringVar(&url, "url", "", "target URL")
	register.Flags().StringVar(&secret, "secret", "", "shared secret for HMAC signing")
	register.Flags().StringSliceVar(&eventNames, "events", nil, "event names to subscribe to")
	_ = register.MarkFlagRequired("url")
	_ = register.MarkFlagRequired("secret")
	_ = register.MarkFlagRequired("events")

	list := &cobra.Command{
		Use:   "list",
		Short: "List subscriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodGet, baseURL+"/webhooks", nil)
		},
	}

	remove := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodDelete, baseURL+"/webhooks/"+args[0], nil)
		},
	}

	var testEvent string
	test := &cobra.Command{
		Use:   "test <id>",
		Short: "Send a test delivery to a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{"event": testEvent}
			return call(http.MethodPost, baseURL+"/webhooks/"+args[0]+"/test", body)
		},
	}
	test.Flags().StringVar(&testEvent, "event", "", "event name for the test delivery")

	cmd.AddCommand(register, list, remove, test)
	return cmd
}

func call(method, url string, body any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	out, _ := io.ReadAll(resp.Body)
	if len(out) > 0 {
		_, _ = os.Stdout.Write(append(bytes.TrimRight(out, "\n"), '\n'))
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}
