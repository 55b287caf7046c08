package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/phillip/club-events-go/config"
)

// email request payload for ZeptoMail API
type emailRequest struct {
	From     emailAddress  `json:"from"`
	To       []toRecipient `json:"to"`
	Subject  string        `json:"subject"`
	HtmlBody string        `json:"htmlbody"`
}

type emailAddress struct {
	Address string `json:"address"`
}

type toRecipient struct {
	Email emailWithName `json:"email_address"`
}

type emailWithName struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// ZeptoMailer sends HTML mail through the ZeptoMail HTTP API.
type ZeptoMailer struct {
	apiURL string // e.g. https://api.zeptomail.com/v1.1/email
	apiKey string // e.g. Zoho-enczapikey xxxxx
	from   string
	client *http.Client
	log    *zerolog.Logger
}

func NewZeptoMailer(cfg *config.Config, log *zerolog.Logger) (*ZeptoMailer, error) {
	if cfg.ZeptoAPIURL == "" || cfg.ZeptoAPIKey == "" || cfg.EmailFrom == "" {
		return nil, fmt.Errorf("missing ZEPTO_API_URL, ZEPTO_API_KEY, or EMAIL_FROM")
	}
	return &ZeptoMailer{
		apiURL: cfg.ZeptoAPIURL,
		apiKey: cfg.ZeptoAPIKey,
		from:   cfg.EmailFrom,
		client: &http.Client{Timeout: 15 * time.Second},
		log:    log,
	}, nil
}

func (m *ZeptoMailer) Send(ctx context.Context, to, name, subject, htmlBody string) error {
	payload := emailRequest{
		From: emailAddress{Address: m.from},
		To: []toRecipient{
			{Email: emailWithName{Address: to, Name: name}},
		},
		Subject:  subject,
		HtmlBody: htmlBody,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("create email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("zeptomail API error: %s", resp.Status)
	}

	m.log.Debug().Str("to", to).Msg("email sent")
	return nil
}
