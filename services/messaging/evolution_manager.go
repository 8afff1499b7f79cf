package messaging

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"barberflow-backend/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const (
	StateOpen       = "open"
	StateClose      = "close"
	StateConnecting = "connecting"

	instancePrefix = "barberflow-"
)

type CreateResult struct {
	InstanceName string `json:"instanceName"`
	APIKey       string `json:"-"`
	QRCode       string `json:"qrcode"`
}

type ConnectionStatus struct {
	State       string `json:"state"`
	Owner       string `json:"owner,omitempty"`
	ProfileName string `json:"profileName,omitempty"`
	Error       string `json:"error,omitempty"`
}

// ChannelManager provisions and inspects shop instances on the Evolution
// API and stores the instance identity on the shop.
type ChannelManager struct {
	db     *gorm.DB
	client *evolutionClient
	log    zerolog.Logger
}

func NewChannelManager(db *gorm.DB, cfg EvolutionConfig, logger zerolog.Logger) *ChannelManager {
	return &ChannelManager{
		db:     db,
		client: newEvolutionClient(cfg),
		log:    logger.With().Str("component", "channel_manager").Logger(),
	}
}

func (m *ChannelManager) IsConfigured() bool {
	return m.client.configured()
}

func InstanceNameFor(shopID uuid.UUID) string {
	return instancePrefix + shopID.String()
}

// CreateInstance provisions the shop's instance and returns its pairing
// code. A shop that already has an instance gets ErrConflict without any
// request being made.
func (m *ChannelManager) CreateInstance(ctx context.Context, shop *models.Shop) (*CreateResult, error) {
	if shop.InstanceName() != "" {
		return nil, ErrConflict
	}
	if !m.IsConfigured() {
		return nil, ErrNotConfigured
	}

	name := InstanceNameFor(shop.ID)
	resp, err := m.client.call(ctx, "instance_create", http.MethodPost, "/instance/create", "", map[string]any{
		"instanceName": name,
		"integration":  "WHATSAPP-BAILEYS",
		"qrcode":       true,
	}, createTimeout)
	if err != nil {
		m.log.Error().Err(err).Str("shop", shop.ID.String()).Msg("create instance failed")
		return nil, err
	}
	if !resp.OK() {
		return nil, &ProtocolError{Op: "instance_create", Status: resp.Status, Message: providerMessage(resp.Body, "failed to create instance")}
	}
	if resp.Body == nil {
		return nil, &ProtocolError{Op: "instance_create", Status: resp.Status, Message: "response is not JSON"}
	}

	result := &CreateResult{
		InstanceName: name,
		APIKey:       firstString(resp.Body, []any{"hash", "apikey"}, []any{"hash"}, []any{"instance", "apikey"}),
		QRCode:       firstString(resp.Body, []any{"qrcode", "base64"}, []any{"qrcode", "code"}, []any{"code"}),
	}
	if result.QRCode == "" {
		qr, err := m.fetchQRCode(ctx, name, result.APIKey)
		if err != nil {
			m.log.Warn().Err(err).Str("instance", name).Msg("pairing code not available after create")
		}
		result.QRCode = qr
	}

	if err := m.saveIdentity(ctx, shop, result); err != nil {
		return nil, err
	}

	m.log.Info().Str("shop", shop.ID.String()).Str("instance", name).Msg("instance created")
	return result, nil
}

// saveIdentity writes the instance name only if none is set yet, so a
// concurrent create cannot overwrite it.
func (m *ChannelManager) saveIdentity(ctx context.Context, shop *models.Shop, result *CreateResult) error {
	updates := map[string]any{"evolution_instance_name": result.InstanceName}
	if result.APIKey != "" {
		updates["evolution_instance_api_key"] = result.APIKey
	}

	res := m.db.WithContext(ctx).Model(&models.Shop{}).
		Where("id = ? AND evolution_instance_name IS NULL", shop.ID).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("save instance identity: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}

	name := result.InstanceName
	shop.EvolutionInstanceName = &name
	if result.APIKey != "" {
		key := result.APIKey
		shop.EvolutionInstanceAPIKey = &key
	}
	return nil
}

// FetchQRCode returns the current pairing code of the shop's instance.
func (m *ChannelManager) FetchQRCode(ctx context.Context, shop *models.Shop) (string, error) {
	name := shop.InstanceName()
	if name == "" || !m.IsConfigured() {
		return "", ErrNotConfigured
	}
	return m.fetchQRCode(ctx, name, shop.InstanceAPIKey())
}

func (m *ChannelManager) fetchQRCode(ctx context.Context, name, apiKey string) (string, error) {
	resp, err := m.client.call(ctx, "instance_connect", http.MethodGet, "/instance/connect/"+url.PathEscape(name), apiKey, nil, qrTimeout)
	if err != nil {
		return "", err
	}
	if !resp.OK() {
		return "", &ProtocolError{Op: "instance_connect", Status: resp.Status, Message: providerMessage(resp.Body, "failed to fetch pairing code")}
	}
	return firstString(resp.Body, []any{"base64"}, []any{"qrcode", "base64"}, []any{"code"}, []any{"qrcode", "code"}), nil
}

// ConnectionState never returns an error value: failures are reported in
// the Error field with the state forced to close.
func (m *ChannelManager) ConnectionState(ctx context.Context, shop *models.Shop) ConnectionStatus {
	name := shop.InstanceName()
	if name == "" || !m.IsConfigured() {
		return ConnectionStatus{State: StateClose}
	}

	apiKey := shop.InstanceAPIKey()
	resp, err := m.client.call(ctx, "connection_state", http.MethodGet, "/instance/connectionState/"+url.PathEscape(name), apiKey, nil, stateTimeout)
	if err != nil {
		m.log.Warn().Err(err).Str("instance", name).Msg("connection state failed")
		return ConnectionStatus{State: StateClose, Error: err.Error()}
	}
	if !resp.OK() {
		perr := &ProtocolError{Op: "connection_state", Status: resp.Status, Message: providerMessage(resp.Body, "unexpected status")}
		return ConnectionStatus{State: StateClose, Error: perr.Error()}
	}

	status := ConnectionStatus{State: firstString(resp.Body, []any{"state"}, []any{"instance", "state"})}
	if status.State == "" {
		status.State = StateClose
	}
	if status.State != StateOpen {
		return status
	}

	if info, ok := m.instanceInfo(ctx, name, apiKey); ok {
		status.Owner = info.Owner
		status.ProfileName = info.ProfileName
	}
	return status
}
