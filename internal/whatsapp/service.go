// Package whatsapp is an alternate messaging channel: inbound WhatsApp
// text goes through the router like an SMS and replies go back over
// WhatsApp.
package whatsapp

import (
	"context"
	"fmt"
	"strings"

	"sms-planner/internal/phone"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

// InboundHandler receives one message and returns the reply text.
type InboundHandler func(ctx context.Context, from, body string) string

type Config struct {
	DataDir string
}

type Service struct {
	client  *whatsmeow.Client
	cfg     *Config
	log     zerolog.Logger
	inbound InboundHandler
}

// NewService opens the device store and creates the client.
func NewService(ctx context.Context, cfg *Config, log zerolog.Logger) (*Service, error) {
	container, err := sqlstore.New(ctx, "sqlite3", fmt.Sprintf("file:%s/whatsmeow.db?_foreign_keys=on", cfg.DataDir), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create device store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	service := &Service{
		client: whatsmeow.NewClient(deviceStore, nil),
		cfg:    cfg,
		log:    log,
	}
	service.client.AddEventHandler(service.eventHandler)
	return service, nil
}

// SetInboundHandler sets where incoming text is delivered.
func (s *Service) SetInboundHandler(h InboundHandler) {
	s.inbound = h
}

// Connect connects to WhatsApp, printing a pairing QR code on first run.
func (s *Service) Connect(ctx context.Context) error {
	if s.client.Store.ID != nil {
		if err := s.client.Connect(); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		return nil
	}

	qrChan, _ := s.client.GetQRChannel(ctx)
	if err := s.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	for evt := range qrChan {
		if evt.Event != "code" {
			s.log.Info().Str("event", evt.Event).Msg("Login event")
			continue
		}
		q, err := qrcode.New(evt.Code, qrcode.Medium)
		if err != nil {
			fmt.Printf("QR Code: %s\n", evt.Code)
			continue
		}
		fmt.Println("\n" + q.ToSmallString(false))
		fmt.Println("📱 Scan the QR code above with WhatsApp (Settings > Linked Devices > Link a Device)")
	}
	return nil
}

// Disconnect disconnects from WhatsApp
func (s *Service) Disconnect() {
	s.client.Disconnect()
}

// Send delivers body to a canonical phone key. It satisfies the router's
// Sender.
func (s *Service) Send(ctx context.Context, to, body string) error {
	number := strings.TrimPrefix(phone.E164(to), "+")

	resp, err := s.client.IsOnWhatsApp(ctx, []string{"+" + number})
	if err != nil {
		return fmt.Errorf("failed to verify number on WhatsApp: %w", err)
	}
	if len(resp) == 0 || !resp[0].IsIn {
		return fmt.Errorf("number %s is not registered on WhatsApp", number)
	}
	return s.sendTo(ctx, resp[0].JID, body)
}

func (s *Service) sendTo(ctx context.Context, jid types.JID, body string) error {
	s.log.Debug().Str("jid", jid.String()).Msg("Sending message")
	sent, err := s.client.SendMessage(ctx, jid, &waE2E.Message{Conversation: &body})
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	s.log.Debug().Str("id", sent.ID).Msg("Message sent")
	return nil
}

func (s *Service) eventHandler(evt interface{}) {
	switch evt := evt.(type) {
	case *events.Message:
		s.handleMessage(evt)
	case *events.Connected:
		s.log.Info().Msg("Connected to WhatsApp")
	case *events.Disconnected:
		s.log.Info().Msg("Disconnected from WhatsApp")
	case *events.LoggedOut:
		s.log.Info().Msg("Logged out from WhatsApp")
	}
}

func (s *Service) handleMessage(msg *events.Message) {
	if msg.Info.IsFromMe || msg.Info.IsGroup || msg.Message == nil {
		return
	}
	text := messageText(msg.Message)
	if text == "" {
		return
	}
	if s.inbound == nil {
		s.log.Warn().Str("sender", msg.Info.Sender.String()).Msg("No inbound handler set, dropping message")
		return
	}

	ctx := context.Background()
	reply := s.inbound(ctx, phone.Normalize(msg.Info.Sender.User), text)
	if reply == "" {
		return
	}
	if err := s.sendTo(ctx, msg.Info.Chat, reply); err != nil {
		s.log.Error().Err(err).Msg("Failed to send reply")
	}
}

func messageText(m *waE2E.Message) string {
	if t := m.GetConversation(); t != "" {
		return t
	}
	return m.GetExtendedTextMessage().GetText()
}
