package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/harunnryd/polaris/internal/chat"
	"github.com/harunnryd/polaris/internal/config"
	"github.com/harunnryd/polaris/internal/daemon"
	"github.com/harunnryd/polaris/internal/daemon/components"

	"github.com/spf13/cobra"
)

const remoteChatTimeout = 3 * time.Minute

var chatCmd = &cobra.Command{
	Use:   "chat [message...]",
	Short: "Run one assistant turn",
	Long: `Send one message to the assistant and print its reply.

By default the turn runs in-process against the configured LLM and CMS. With
--server the message is posted to a running 'polaris serve' instance, which
keeps the conversation for --session across calls.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}

		sessionID, _ := cmd.Flags().GetString("session")
		server, _ := cmd.Flags().GetString("server")
		asJSON, _ := cmd.Flags().GetBool("json")

		req := chat.Request{SessionID: sessionID, Message: strings.Join(args, " ")}

		sig := NewSignalHandler(cmd.Context(), cmd.ErrOrStderr())
		sig.Start()
		defer sig.Stop()

		var (
			resp *chat.Response
			err  error
		)
		if server != "" {
			resp, err = runRemoteTurn(sig.Context(), server, req)
		} else {
			resp, err = runLocalTurn(sig.Context(), cfg, req)
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		}
		fmt.Fprint(out, newFormatter().FormatReply(resp))
		return nil
	},
}

// runLocalTurn initializes the chat components without the HTTP server and
// runs a single turn.
func runLocalTurn(ctx context.Context, c *config.Config, req chat.Request) (*chat.Response, error) {
	sessionsComp := components.NewSessionStoreComponent(&c.Sessions)
	activityComp := components.NewActivityLogComponent(&c.Activity)
	chatComp := components.NewChatComponent(c, sessionsComp, activityComp)

	for _, comp := range []daemon.Component{sessionsComp, activityComp, chatComp} {
		if err := comp.Init(ctx); err != nil {
			return nil, fmt.Errorf("init %s: %w", comp.Name(), err)
		}
	}

	return chatComp.Service().HandleTurn(ctx, req)
}

func runRemoteTurn(ctx context.Context, server string, req chat.Request) (*chat.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimSuffix(server, "/") + "/api/polaris"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: remoteChatTimeout}
	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", endpoint, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return nil, errors.New(apiErr.Error)
		}
		return nil, fmt.Errorf("server returned %d: %s", httpResp.StatusCode, strings.TrimSpace(string(data)))
	}

	var resp chat.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringP("session", "s", "", "Session id to continue")
	chatCmd.Flags().String("server", "", "Base URL of a running polaris server, e.g. http://localhost:8080")
	chatCmd.Flags().Bool("json", false, "Print the raw JSON response")
}
