package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Twirlie/discordbot/internal/eventbus"
)

var (
	emitURL      string
	emitInput    eventbus.EventInput
	emitTestItem bool
)

var emitCmd = &cobra.Command{
	Use:   "emit",
	Short: "Record a feed item on a running server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		emitInput.Synthetic = emitTestItem
		body, err := json.Marshal(emitInput)
		if err != nil {
			return err
		}
		endpoint := strings.TrimSuffix(emitURL, "/") + "/api/feed"
		req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		client := &http.Client{Timeout: 10 * time.Second}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("post %s: %w", endpoint, err)
		}
		defer resp.Body.Close()
		data, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusCreated {
			return fmt.Errorf("emit failed (%s): %s", resp.Status, strings.TrimSpace(string(data)))
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

func defaultServerURL() string {
	if s := os.Getenv("FEED_URL"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

func init() {
	emitCmd.Flags().StringVar(&emitURL, "url", defaultServerURL(), "feed server base URL")
	emitCmd.Flags().StringVar(&emitInput.ActorID, "author-id", "0", "author id")
	emitCmd.Flags().StringVar(&emitInput.ActorName, "author", "feedd", "author display name")
	emitCmd.Flags().StringVar(&emitInput.Kind, "command", "", "command name (required)")
	emitCmd.Flags().StringVar(&emitInput.Payload, "output", "", "command output text")
	emitCmd.Flags().BoolVar(&emitTestItem, "test", true, "mark the item as a test item")
	_ = emitCmd.MarkFlagRequired("command")
}
