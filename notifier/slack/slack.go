package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/liweiyi88/syncto/result"
)

type Slack struct {
	IncomingWebhook string
	client          *http.Client
}

func New(incomingWebhook string) *Slack {
	return &Slack{
		IncomingWebhook: incomingWebhook,
		client:          &http.Client{Timeout: 10 * time.Second},
	}
}

type SlackMessage struct {
	Blocks []Block `json:"blocks"`
}

type Block struct {
	Type string `json:"type"`
	Text Text   `json:"text"`
}

type Text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (slack *Slack) Notify(ctx context.Context, results []*result.Result) error {
	if len(results) == 0 {
		return nil
	}

	blocks := make([]Block, 0, len(results)+1)
	title := Text{
		Type: "mrkdwn",
		Text: "*Sync Results*",
	}

	blocks = append(blocks, Block{
		Type: "section",
		Text: title,
	})

	for _, result := range results {
		text := Text{
			Type: "mrkdwn",
			Text: result.ToSlackText(),
		}

		blocks = append(blocks, Block{
			Type: "section",
			Text: text,
		})
	}

	message := SlackMessage{
		Blocks: blocks,
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal slack message, err: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, slack.IncomingWebhook, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("slack notification failed: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")

	client := slack.client
	if client == nil {
		client = http.DefaultClient
	}

	res, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("slack notification failed: %v", err)
	}

	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Error("fail to close slack response body", slog.Any("error", err))
		}
	}()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)

		return fmt.Errorf("slack notification failed: %v", string(body))
	}

	return nil
}
