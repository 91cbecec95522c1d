/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package alerts

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

	"github.com/carverauto/upswatch/pkg/models"
)

const (
	defaultTelegramAPI     = "https://api.telegram.org"
	defaultTelegramTimeout = 10 * time.Second
)

var errTelegramStatus = errors.New("telegram returned non-2xx status")

// TelegramConfig holds bot credentials. Sending is disabled when either is empty.
type TelegramConfig struct {
	BotToken string          `json:"bot_token" yaml:"bot_token"`
	ChatID   string          `json:"chat_id" yaml:"chat_id"`
	APIURL   string          `json:"api_url,omitempty" yaml:"api_url,omitempty"`
	Timeout  models.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Enabled reports whether both credentials are set.
func (c *TelegramConfig) Enabled() bool {
	return c.BotToken != "" && c.ChatID != ""
}

// TelegramSender posts messages through the Telegram Bot API.
type TelegramSender struct {
	endpoint string
	chatID   string
	client   *http.Client
}

type telegramMessage struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// NewTelegramSender returns a NopSender when credentials are unset.
func NewTelegramSender(cfg *TelegramConfig) Sender {
	if cfg == nil || !cfg.Enabled() {
		return NopSender{}
	}

	api := cfg.APIURL
	if api == "" {
		api = defaultTelegramAPI
	}

	return &TelegramSender{
		endpoint: fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(api, "/"), cfg.BotToken),
		chatID:   cfg.ChatID,
		client:   &http.Client{Timeout: cfg.Timeout.OrDefault(defaultTelegramTimeout)},
	}
}

func (t *TelegramSender) Send(ctx context.Context, message string) error {
	body, err := json.Marshal(telegramMessage{ChatID: t.chatID, Text: message})
	if err != nil {
		return fmt.Errorf("failed to marshal telegram message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create telegram request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return fmt.Errorf("%w: %d %s", errTelegramStatus, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	return nil
}
