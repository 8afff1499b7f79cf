package messaging

import (
	"context"
	"errors"
	"strings"

	"barberflow-backend/models"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioSender delivers over Twilio's WhatsApp channel from one shared
// sender number. Shops do not need their own instance.
type TwilioSender struct {
	client *twilio.RestClient
	from   string
}

func NewTwilioSender(accountSID, authToken, fromNumber string) *TwilioSender {
	s := &TwilioSender{from: strings.TrimPrefix(strings.TrimSpace(fromNumber), "whatsapp:")}
	if accountSID != "" && authToken != "" {
		s.client = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		})
	}
	return s
}

func (s *TwilioSender) IsEnabled(_ *models.Shop) bool {
	return s.client != nil && s.from != ""
}

func (s *TwilioSender) SendText(ctx context.Context, shop *models.Shop, phone, text string) error {
	if !s.IsEnabled(shop) {
		return ErrNotConfigured
	}
	if phone == "" {
		return errors.New("messaging: empty destination number")
	}
	// The Twilio client takes no context; honour cancellation up front.
	if err := ctx.Err(); err != nil {
		return &TransportError{Op: "twilio_send", Err: err}
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo("whatsapp:+" + strings.TrimPrefix(phone, "+"))
	params.SetFrom("whatsapp:" + s.from)
	params.SetBody(text)

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		return &TransportError{Op: "twilio_send", Err: err}
	}
	if resp.Sid == nil {
		return &ProtocolError{Op: "twilio_send", Message: "no message SID returned"}
	}
	return nil
}
