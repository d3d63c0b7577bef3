package sms

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sms-planner/internal/phone"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

type twilioMessage struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// TwilioSender sends SMS through the Twilio Messages API.
type TwilioSender struct {
	httpClient *resty.Client
	accountSID string
	from       string
	log        zerolog.Logger
}

// NewTwilioSender creates a sender. Sends are not retried.
func NewTwilioSender(baseURL, accountSID, authToken, from string, log zerolog.Logger) *TwilioSender {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(15*time.Second).
		SetBasicAuth(accountSID, authToken).
		SetHeader("Accept", "application/json")

	return &TwilioSender{
		httpClient: client,
		accountSID: accountSID,
		from:       from,
		log:        log,
	}
}

// Send delivers body to a canonical phone key.
func (t *TwilioSender) Send(ctx context.Context, to, body string) error {
	if t.accountSID == "" || t.from == "" {
		return errors.New("twilio sender not configured")
	}

	var (
		msg    twilioMessage
		apiErr twilioError
	)
	form := map[string]string{"To": phone.E164(to), "From": t.from, "Body": body}
	resp, err := t.httpClient.R().
		SetContext(ctx).
		SetFormData(form).
		SetResult(&msg).
		SetError(&apiErr).
		Post(fmt.Sprintf("/2010-04-01/Accounts/%s/Messages.json", t.accountSID))
	if err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("twilio returned %d: %s (code %d)", resp.StatusCode(), apiErr.Message, apiErr.Code)
	}

	t.log.Debug().Str("to", to).Str("sid", msg.SID).Str("status", msg.Status).Msg("SMS sent")
	return nil
}
