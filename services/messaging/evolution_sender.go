package messaging

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"barberflow-backend/models"
)

// EvolutionSender sends through the shop's own Evolution instance.
type EvolutionSender struct {
	client *evolutionClient
}

func NewEvolutionSender(cfg EvolutionConfig) *EvolutionSender {
	return &EvolutionSender{client: newEvolutionClient(cfg)}
}

func (s *EvolutionSender) IsEnabled(shop *models.Shop) bool {
	return s.client.baseURL != "" && shop.InstanceName() != ""
}

func (s *EvolutionSender) SendText(ctx context.Context, shop *models.Shop, phone, text string) error {
	if !s.IsEnabled(shop) {
		return ErrNotConfigured
	}
	if phone == "" {
		return errors.New("messaging: empty destination number")
	}

	path := "/message/sendText/" + url.PathEscape(shop.InstanceName())
	resp, err := s.client.call(ctx, "send_text", http.MethodPost, path, shop.InstanceAPIKey(), map[string]string{
		"number": phone,
		"text":   text,
	}, sendTimeout)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &ProtocolError{Op: "send_text", Status: resp.Status, Message: providerMessage(resp.Body, "message not accepted")}
	}
	return nil
}
