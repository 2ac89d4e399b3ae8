package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/and161185/sorryboard/internal/config"
	"github.com/and161185/sorryboard/internal/cooldown"
	"github.com/and161185/sorryboard/internal/model"
	"github.com/and161185/sorryboard/internal/security"
	"github.com/and161185/sorryboard/internal/validation"
)

const submitPath = "/api/messages/submit"

// errCooldown is returned when the local cooldown has not elapsed.
var errCooldown = errors.New("please wait before submitting again")

type submitPayload struct {
	Recipient string  `json:"recipient"`
	Sender    *string `json:"sender,omitempty"`
	Message   string  `json:"message"`
	Honeypot  string  `json:"honeypot"`
}

type submitReply struct {
	Success bool           `json:"success"`
	Data    *model.Message `json:"data"`
	Error   string         `json:"error"`
}

// rejectedError is a non-2xx answer from the server.
type rejectedError struct {
	Status     int
	Message    string
	RetryAfter string
}

func (e *rejectedError) Error() string {
	msg := fmt.Sprintf("server rejected submission (%d): %s", e.Status, e.Message)
	if e.RetryAfter != "" {
		msg += ", retry after " + e.RetryAfter + "s"
	}
	return msg
}

// apiClient posts submissions to a running board server.
type apiClient struct {
	base string
	http *http.Client
}

func (c *apiClient) submit(ctx context.Context, p submitPayload) (*model.Message, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.base, "/")+submitPath, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var reply submitReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !reply.Success {
		return nil, &rejectedError{
			Status:     resp.StatusCode,
			Message:    reply.Error,
			RetryAfter: resp.Header.Get("Retry-After"),
		}
	}
	return reply.Data, nil
}

func newSubmitCmd(g *globals) *cobra.Command {
	var (
		api       string
		recipient string
		sender    string
		message   string
		window    time.Duration
		statePath string
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit an apology to a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sec := security.NewLogger(g.logger(cmd))
			event := func(name string, fields ...zap.Field) {
				fp := security.ClientFingerprint("sorryboard-cli/"+version, os.Getenv("LANG"), time.Now())
				sec.Log(name, append([]zap.Field{zap.String("fingerprint", fp)}, fields...)...)
			}

			cd := cooldown.New(statePath, window)
			if left, ok := cd.Check(time.Now()); !ok {
				event(security.EventRateLimit, zap.Duration("cooldown", window))
				return fmt.Errorf("%w (%s left)", errCooldown, left.Round(time.Second))
			}

			in := validation.Input{Recipient: recipient, Message: message}
			if cmd.Flags().Changed("from") {
				in.Sender = &sender
			}
			cfg, err := config.Parse(g.configArgs())
			if err != nil {
				return err
			}
			rules, err := cfg.Rules()
			if err != nil {
				return err
			}
			res := validation.New(rules).Validate(in)
			if !res.Valid {
				event(security.EventValidation, zap.Strings("reasons", res.Errors))
				return errors.New(res.Errors[0])
			}
			p := submitPayload{Recipient: res.Sanitized.Recipient, Message: res.Sanitized.Message}
			if res.Sanitized.Sender != "" {
				p.Sender = &res.Sanitized.Sender
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), g.timeout)
			defer cancel()
			c := &apiClient{base: api, http: &http.Client{Timeout: g.timeout}}
			m, err := c.submit(ctx, p)
			var rej *rejectedError
			if errors.As(err, &rej) {
				event(security.EventRejected, zap.Int("status", rej.Status))
			}
			if err != nil {
				return err
			}
			if err := cd.Mark(time.Now()); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: could not save cooldown: %v\n", err)
			}
			printJSON(cmd.OutOrStdout(), m)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&api, "api", "http://localhost:8080", "board server base URL")
	f.StringVarP(&recipient, "to", "t", "", "recipient name")
	f.StringVarP(&sender, "from", "f", "", "sender name (optional)")
	f.StringVarP(&message, "message", "m", "", "apology text")
	f.DurationVar(&window, "cooldown", time.Minute, "local cooldown between submissions")
	f.StringVar(&statePath, "state", "", "cooldown state file (default in the user config dir)")
	return cmd
}
