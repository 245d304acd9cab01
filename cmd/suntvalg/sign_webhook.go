package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/suntvalg/suntvalg-server/internal/config"
	"github.com/suntvalg/suntvalg-server/internal/webhook"
)

var (
	signSecret string
	signID     string
	signFile   string
	signURL    string
)

var signWebhookCmd = &cobra.Command{
	Use:   "sign-webhook",
	Short: "Sign a webhook payload for local testing",
	Long: `Reads a JSON payload from --file or stdin and prints svix signature headers.
With --url the signed payload is posted to a running server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := signSecret
		if secret == "" {
			cfg, err := config.Defaults()
			if err != nil {
				return err
			}
			if err := config.Load(configPathFlag); err == nil {
				cfg = config.Get()
			}
			secret = cfg.Webhook.Secret
		}
		if secret == "" {
			return fmt.Errorf("no secret: pass --secret or set webhook.secret")
		}

		var (
			payload []byte
			err     error
		)
		if signFile != "" {
			payload, err = os.ReadFile(signFile)
		} else {
			payload, err = io.ReadAll(cmd.InOrStdin())
		}
		if err != nil {
			return fmt.Errorf("failed to read payload: %w", err)
		}

		id := signID
		if id == "" {
			id = "msg_" + uuid.NewString()
		}
		headers, err := webhook.SignedHeaders(secret, id, time.Now(), payload)
		if err != nil {
			return err
		}

		if signURL == "" {
			keys := make([]string, 0, len(headers))
			for k := range headers {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Printf("%s: %s\n", k, headers.Get(k))
			}
			return nil
		}

		req := resty.New().SetTimeout(30 * time.Second).R().
			SetContext(cmd.Context()).
			SetHeader("Content-Type", "application/json").
			SetBody(payload)
		for k := range headers {
			req.SetHeader(k, headers.Get(k))
		}
		resp, err := req.Post(signURL)
		if err != nil {
			return fmt.Errorf("failed to post webhook: %w", err)
		}
		fmt.Printf("%s\n%s\n", resp.Status(), resp.String())
		return nil
	},
}

func init() {
	signWebhookCmd.Flags().StringVar(&signSecret, "secret", "", "Signing secret (defaults to webhook.secret)")
	signWebhookCmd.Flags().StringVar(&signID, "id", "", "svix-id header value")
	signWebhookCmd.Flags().StringVarP(&signFile, "file", "f", "", "Payload file (defaults to stdin)")
	signWebhookCmd.Flags().StringVar(&signURL, "url", "", "Post the signed payload to this URL")
}
