// Package messaging talks to the outbound messaging provider: provisioning
// a shop's WhatsApp instance and sending text messages through it.
package messaging

import (
	"context"
	"fmt"

	"barberflow-backend/models"
)

// Messenger is the send capability the notification pipeline depends on.
// Phones are expected in normalized international digits.
type Messenger interface {
	IsEnabled(shop *models.Shop) bool
	SendText(ctx context.Context, shop *models.Shop, phone, text string) error
}

// NewMessenger picks the outbound channel. "evolution" sends through the
// shop's own instance; "twilio" uses one shared sender number.
func NewMessenger(provider string, evo EvolutionConfig, twilioSID, twilioToken, twilioFrom string) (Messenger, error) {
	switch provider {
	case "", "evolution":
		return NewEvolutionSender(evo), nil
	case "twilio":
		return NewTwilioSender(twilioSID, twilioToken, twilioFrom), nil
	}
	return nil, fmt.Errorf("unknown messaging provider %q", provider)
}
