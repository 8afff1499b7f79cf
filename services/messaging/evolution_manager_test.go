package messaging

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"barberflow-backend/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedShop(t *testing.T, db *gorm.DB, instance string) *models.Shop {
	t.Helper()
	shop := &models.Shop{OwnerID: uuid.New(), Name: "Barbearia Centro", Slug: "centro-" + uuid.NewString()[:8], Phone: "11988887777"}
	if instance != "" {
		shop.EvolutionInstanceName = &instance
	}
	if err := db.Create(shop).Error; err != nil {
		t.Fatalf("seed shop: %v", err)
	}
	return shop
}

// fakeEvolution records every request and answers from routes keyed by
// path. Unknown paths get 404.
type fakeEvolution struct {
	mu     sync.Mutex
	calls  []string
	keys   map[string]string
	routes map[string]func(w http.ResponseWriter, r *http.Request)
}

func newFakeEvolution(t *testing.T) (*fakeEvolution, *httptest.Server) {
	f := &fakeEvolution{keys: map[string]string{}, routes: map[string]func(http.ResponseWriter, *http.Request){}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls = append(f.calls, r.URL.Path)
		f.keys[r.URL.Path] = r.Header.Get("apikey")
		h := f.routes[r.URL.Path]
		f.mu.Unlock()
		if h == nil {
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeEvolution) on(path string, status int, body string) {
	f.routes[path] = func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}
}

func (f *fakeEvolution) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == path {
			n++
		}
	}
	return n
}

func (f *fakeEvolution) key(path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.keys[path]
}

func (f *fakeEvolution) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestCreateInstanceConflictMakesNoRequest(t *testing.T) {
	db := newTestDB(t)
	fake, srv := newFakeEvolution(t)
	m := NewChannelManager(db, EvolutionConfig{BaseURL: srv.URL, APIKey: "global"}, zerolog.Nop())

	shop := seedShop(t, db, "barberflow-existing")
	_, err := m.CreateInstance(context.Background(), shop)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if fake.total() != 0 {
		t.Fatalf("expected no provider calls, got %d", fake.total())
	}
}

func TestCreateInstanceNotConfigured(t *testing.T) {
	db := newTestDB(t)
	m := NewChannelManager(db, EvolutionConfig{}, zerolog.Nop())

	shop := seedShop(t, db, "")
	if _, err := m.CreateInstance(context.Background(), shop); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := m.FetchQRCode(context.Background(), shop); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured from FetchQRCode, got %v", err)
	}
}

func TestCreateInstancePersistsIdentityAndFetchesQRCode(t *testing.T) {
	db := newTestDB(t)
	fake, srv := newFakeEvolution(t)
	m := NewChannelManager(db, EvolutionConfig{BaseURL: srv.URL, APIKey: "global"}, zerolog.Nop())

	shop := seedShop(t, db, "")
	name := InstanceNameFor(shop.ID)
	fake.on("/instance/create", http.StatusCreated, `{"instance":{"instanceName":"`+name+`","status":"created"},"hash":{"apikey":"inst-key"}}`)
	fake.on("/instance/connect/"+name, http.StatusOK, `{"base64":"data:image/png;base64,QR"}`)

	res, err := m.CreateInstance(context.Background(), shop)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.InstanceName != name || res.APIKey != "inst-key" || res.QRCode != "data:image/png;base64,QR" {
		t.Fatalf("unexpected result %+v", res)
	}
	if k := fake.key("/instance/create"); k != "global" {
		t.Fatalf("create should use the global key, got %q", k)
	}
	if k := fake.key("/instance/connect/" + name); k != "inst-key" {
		t.Fatalf("connect should use the instance key, got %q", k)
	}

	var stored models.Shop
	if err := db.First(&stored, "id = ?", shop.ID).Error; err != nil {
		t.Fatalf("reload shop: %v", err)
	}
	if stored.InstanceName() != name || stored.InstanceAPIKey() != "inst-key" {
		t.Fatalf("identity not stored: %q %q", stored.InstanceName(), stored.InstanceAPIKey())
	}

	if _, err := m.CreateInstance(context.Background(), &stored); !errors.Is(err, ErrConflict) {
		t.Fatalf("second create: expected ErrConflict, got %v", err)
	}
	if fake.count("/instance/create") != 1 {
		t.Fatalf("create called %d times", fake.count("/instance/create"))
	}
}

func TestCreateInstanceProviderError(t *testing.T) {
	db := newTestDB(t)
	fake, srv := newFakeEvolution(t)
	m := NewChannelManager(db, EvolutionConfig{BaseURL: srv.URL, APIKey: "global"}, zerolog.Nop())
	fake.on("/instance/create", http.StatusForbidden, `{"status":403,"response":{"message":["This name is already in use."]}}`)

	shop := seedShop(t, db, "")
	_, err := m.CreateInstance(context.Background(), shop)
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
	if perr.Status != http.StatusForbidden || !strings.Contains(perr.Message, "already in use") {
		t.Fatalf("unexpected protocol error %+v", perr)
	}

	var stored models.Shop
	db.First(&stored, "id = ?", shop.ID)
	if stored.InstanceName() != "" {
		t.Fatalf("identity must not be stored on failure")
	}
}

func TestCreateInstanceTransportError(t *testing.T) {
	db := newTestDB(t)
	_, srv := newFakeEvolution(t)
	url := srv.URL
	srv.Close()

	m := NewChannelManager(db, EvolutionConfig{BaseURL: url, APIKey: "global"}, zerolog.Nop())
	_, err := m.CreateInstance(context.Background(), seedShop(t, db, ""))
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestConnectionStateFallsBackAfterMalformedPrimary(t *testing.T) {
	db := newTestDB(t)
	fake, srv := newFakeEvolution(t)
	m := NewChannelManager(db, EvolutionConfig{BaseURL: srv.URL, APIKey: "global"}, zerolog.Nop())

	name := "barberflow-test"
	shop := seedShop(t, db, name)
	fake.on("/instance/connectionState/"+name, http.StatusOK, `{"instance":{"instanceName":"barberflow-test","state":"open"}}`)
	fake.on("/instance/fetchInstances", http.StatusOK, `{}`)
	fake.on("/instance/info/"+name, http.StatusOK, `{"response":[{"instance":{"ownerJid":"5511999999999@s.whatsapp.net","profileName":"Barbearia Centro"}}]}`)
	fake.on("/instance/getInformation/"+name, http.StatusOK, `{"owner":"wrong@s.whatsapp.net"}`)

	status := m.ConnectionState(context.Background(), shop)
	if status.State != StateOpen {
		t.Fatalf("state = %q", status.State)
	}
	if status.Owner != "5511999999999" || status.ProfileName != "Barbearia Centro" {
		t.Fatalf("unexpected status %+v", status)
	}
	if fake.count("/instance/getInformation/"+name) != 0 {
		t.Fatalf("chain should stop at the first valid extraction")
	}
}

func TestConnectionStateClosedSkipsInfoLookup(t *testing.T) {
	db := newTestDB(t)
	fake, srv := newFakeEvolution(t)
	m := NewChannelManager(db, EvolutionConfig{BaseURL: srv.URL, APIKey: "global"}, zerolog.Nop())

	name := "barberflow-closed"
	shop := seedShop(t, db, name)
	fake.on("/instance/connectionState/"+name, http.StatusOK, `{"state":"connecting"}`)

	status := m.ConnectionState(context.Background(), shop)
	if status.State != StateConnecting || status.Owner != "" {
		t.Fatalf("unexpected status %+v", status)
	}
	if fake.total() != 1 {
		t.Fatalf("expected only the state call, got %d", fake.total())
	}
}

func TestConnectionStateReportsProviderFailure(t *testing.T) {
	db := newTestDB(t)
	fake, srv := newFakeEvolution(t)
	m := NewChannelManager(db, EvolutionConfig{BaseURL: srv.URL, APIKey: "global"}, zerolog.Nop())

	name := "barberflow-missing"
	fake.on("/instance/connectionState/"+name, http.StatusNotFound, `{"message":"instance not found"}`)

	status := m.ConnectionState(context.Background(), seedShop(t, db, name))
	if status.State != StateClose || !strings.Contains(status.Error, "instance not found") {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestEvolutionSenderSendsText(t *testing.T) {
	fake, srv := newFakeEvolution(t)
	payloads := make(chan string, 1)
	fake.routes["/message/sendText/barberflow-x"] = func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		payloads <- string(raw)
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"key":{"id":"1"}}`)
	}

	name, key := "barberflow-x", "inst-key"
	shop := &models.Shop{EvolutionInstanceName: &name, EvolutionInstanceAPIKey: &key}
	s := NewEvolutionSender(EvolutionConfig{BaseURL: srv.URL, APIKey: "global"})
	if !s.IsEnabled(shop) {
		t.Fatalf("sender should be enabled")
	}
	if err := s.SendText(context.Background(), shop, "5511999999999", "oi"); err != nil {
		t.Fatalf("send: %v", err)
	}
	got := <-payloads
	if !strings.Contains(got, `"number":"5511999999999"`) || !strings.Contains(got, `"text":"oi"`) {
		t.Fatalf("unexpected payload %s", got)
	}
	if fake.key("/message/sendText/barberflow-x") != "inst-key" {
		t.Fatalf("send should prefer the instance key")
	}

	if s.IsEnabled(&models.Shop{}) {
		t.Fatalf("shop without instance must be disabled")
	}
}
