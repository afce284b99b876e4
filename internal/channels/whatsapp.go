package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/coopco/wishbot/internal/bus"
	"github.com/coopco/wishbot/internal/identity"
)

func init() {
	Register("whatsapp", newWhatsAppChannel)
}

const defaultGraphAPI = "https://graph.facebook.com/v21.0"

type whatsAppConfig struct {
	AccessToken   string `json:"access_token"`
	PhoneNumberID string `json:"phone_number_id"`
	VerifyToken   string `json:"verify_token"`
	WebhookAddr   string `json:"webhook_addr"`
	APIBase       string `json:"api_base"`
}

// WhatsAppChannel implements Channel for WhatsApp via the Cloud API: a
// webhook receives messages and the Graph API sends them.
type WhatsAppChannel struct {
	accessToken   string
	phoneNumberID string
	verifyToken   string
	apiBase       string
	bus           *bus.MessageBus
	client        *http.Client
	server        *http.Server
}

func newWhatsAppChannel(cfg json.RawMessage, msgBus *bus.MessageBus) (Channel, error) {
	var c whatsAppConfig
	if err := json.Unmarshal(cfg, &c); err != nil {
		return nil, fmt.Errorf("failed to parse whatsapp config: %w", err)
	}
	if c.PhoneNumberID == "" || c.AccessToken == "" {
		return nil, errors.New("whatsapp: access_token and phone_number_id are required")
	}
	if c.WebhookAddr == "" {
		c.WebhookAddr = ":9005"
	}
	if c.APIBase == "" {
		c.APIBase = defaultGraphAPI
	}
	ch := &WhatsAppChannel{
		accessToken:   c.AccessToken,
		phoneNumberID: c.PhoneNumberID,
		verifyToken:   c.VerifyToken,
		apiBase:       c.APIBase,
		bus:           msgBus,
		client:        &http.Client{Timeout: 30 * time.Second},
	}
	ch.server = &http.Server{
		Addr:              c.WebhookAddr,
		Handler:           ch.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return ch, nil
}

func (c *WhatsAppChannel) Name() string { return "whatsapp" }

// Handler serves the webhook verification and delivery endpoints.
func (c *WhatsAppChannel) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/webhook", c.verify)
	r.Post("/webhook", c.receive)
	return r
}

func (c *WhatsAppChannel) Start(ctx context.Context) error {
	go func() {
		if err := c.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("whatsapp: server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		c.Stop()
	}()

	return nil
}

func (c *WhatsAppChannel) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.server.Shutdown(ctx)
}

func (c *WhatsAppChannel) verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") != "subscribe" || c.verifyToken == "" || q.Get("hub.verify_token") != c.verifyToken {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, q.Get("hub.challenge"))
}

func (c *WhatsAppChannel) receive(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}
	if !gjson.ValidBytes(data) {
		http.Error(w, "parse error", http.StatusBadRequest)
		return
	}

	for _, msg := range gjson.GetBytes(data, "entry.#.changes.#.value.messages|@flatten|@flatten").Array() {
		if msg.Get("type").String() != "text" {
			continue
		}
		from := msg.Get("from").String()
		if from == "" {
			continue
		}
		received := time.Now()
		if ts := msg.Get("timestamp").Int(); ts > 0 {
			received = time.Unix(ts, 0)
		}
		c.bus.PublishInbound(bus.InboundMessage{
			Channel:    "whatsapp",
			Sender:     identity.Format(from),
			Text:       msg.Get("text.body").String(),
			MessageID:  msg.Get("id").String(),
			ReceivedAt: received,
		})
	}
	w.WriteHeader(http.StatusOK)
}

// sendPayload builds the Graph API body for a plain text message.
func sendPayload(to, text string) ([]byte, error) {
	body, err := sjson.SetBytes([]byte(`{}`), "messaging_product", "whatsapp")
	if err != nil {
		return nil, err
	}
	for _, kv := range []struct {
		path  string
		value any
	}{
		{"recipient_type", "individual"},
		{"to", to},
		{"type", "text"},
		{"text.body", text},
		{"text.preview_url", false},
	} {
		if body, err = sjson.SetBytes(body, kv.path, kv.value); err != nil {
			return nil, err
		}
	}
	return body, nil
}

func (c *WhatsAppChannel) Send(ctx context.Context, address, text string) error {
	a := identity.Parse(address)
	if a.Kind != identity.KindPhone {
		return fmt.Errorf("whatsapp: cannot send to %s address %q", a.Kind, address)
	}
	to := a.Key()
	if to == "" {
		return fmt.Errorf("whatsapp: no phone number in %q", address)
	}
	body, err := sendPayload(to, text)
	if err != nil {
		return fmt.Errorf("whatsapp: build payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.apiBase, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp: send message: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= 300 {
		if msg := gjson.GetBytes(respBody, "error.message"); msg.Exists() {
			return fmt.Errorf("whatsapp: send message status %d: %s", resp.StatusCode, msg.String())
		}
		return fmt.Errorf("whatsapp: send message status %d: %s", resp.StatusCode, respBody)
	}
	slog.Debug("whatsapp: message sent", "to", to, "message_id", gjson.GetBytes(respBody, "messages.0.id").String())
	return nil
}
