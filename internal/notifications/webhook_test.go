package notifications

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSend_NoWebhook(t *testing.T) {
	s := NewSender("", "TestMarket")
	if s.Enabled() {
		t.Fatal("should not be enabled with empty URL")
	}
	// Should log to console without error
	s.Send(context.Background(), "hello from test")
	t.Log("Send with no webhook: OK (console only)")
}

func TestTradeCreated_SlackFormat(t *testing.T) {
	var received map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSender(srv.URL, "TestMarket")
	if !s.Enabled() {
		t.Fatal("should be enabled")
	}

	s.TradeCreated(context.Background(), "energy-trade-1700000000000", "Morning Solar Surplus", 25, "0xabc")

	if received["username"] != "TestMarket" {
		t.Fatalf("username: got %s", received["username"])
	}
	text := received["text"]
	if !strings.Contains(text, "Morning Solar Surplus") || !strings.Contains(text, "$25/kWh") {
		t.Fatalf("unexpected text: %s", text)
	}
	t.Logf("Slack payload: %+v", received)
}

func TestTradeVerified_DiscordFormat(t *testing.T) {
	var received map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// URL containing "discord" triggers Discord format
	s := NewSender(srv.URL+"/discord/webhook", "GridMarket")
	s.TradeVerified(context.Background(), "energy-trade-1", "0x00000000000000000000000000000000000000a1")

	if !strings.Contains(received["content"], "energy-trade-1 verified on-chain") {
		t.Fatalf("unexpected content: %s", received["content"])
	}
	if received["username"] != "GridMarket" {
		t.Fatalf("username: got %s", received["username"])
	}
	if _, hasText := received["text"]; hasText {
		t.Fatal("Discord payload should not have 'text' field")
	}
	t.Logf("Discord payload: %+v", received)
}

func TestSend_WebhookError(t *testing.T) {
	s := NewSender("http://localhost:1/bogus", "TestMarket")
	s.retry.BaseDelay = 0
	// Should not panic, just log the error
	s.Send(context.Background(), "this will fail gracefully")
	t.Log("Webhook error handled gracefully")
}

func TestDefaultAppName(t *testing.T) {
	s := NewSender("", "")
	if s.appName != "EnergyMarket" {
		t.Fatalf("expected default app name, got %s", s.appName)
	}
}
