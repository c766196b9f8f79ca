package service

import (
	"context"
	"testing"
	"time"

	"github.com/CMIS-TAMU/cmis-events-sub000/internal/config"
	sdomain "github.com/CMIS-TAMU/cmis-events-sub000/internal/settings/domain"
)

type mockSettings struct{ vals map[string]string }

func (m mockSettings) GetString(ctx context.Context, key string, def string) (string, error) {
	if v, ok := m.vals[key]; ok {
		return v, nil
	}
	return def, nil
}
func (m mockSettings) GetDuration(ctx context.Context, key string, def time.Duration) (time.Duration, error) {
	return def, nil
}
func (m mockSettings) GetInt(ctx context.Context, key string, def int) (int, error) {
	return def, nil
}

var _ sdomain.Service = (*mockSettings)(nil)

type captureSender struct {
	called                    bool
	lastTo, lastSub, lastBody string
}

func (c *captureSender) Send(ctx context.Context, to, subject, body string) error {
	c.called = true
	c.lastTo, c.lastSub, c.lastBody = to, subject, body
	return nil
}

func TestRouter_SelectsSMTP(t *testing.T) {
	cfg, _ := config.Load()
	ms := mockSettings{vals: map[string]string{sdomain.KeyEmailProvider: "smtp"}}
	r := NewRouter(ms, cfg)
	// swap implementations with captures so we don't hit network
	smtpCap := &captureSender{}
	brevoCap := &captureSender{}
	r.smtp = smtpCap
	r.brevo = brevoCap

	if err := r.Send(context.Background(), "a@b.com", "sub", "<p>body</p>"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if !smtpCap.called || brevoCap.called {
		t.Fatalf("expected smtp called, brevo not called")
	}
}

func TestRouter_SelectsBrevo(t *testing.T) {
	cfg, _ := config.Load()
	ms := mockSettings{vals: map[string]string{sdomain.KeyEmailProvider: "brevo"}}
	r := NewRouter(ms, cfg)
	smtpCap := &captureSender{}
	brevoCap := &captureSender{}
	r.smtp = smtpCap
	r.brevo = brevoCap

	if err := r.Send(context.Background(), "a@b.com", "sub", "<p>body</p>"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if !brevoCap.called || smtpCap.called {
		t.Fatalf("expected brevo called, smtp not called")
	}
}

func TestBrevo_NotConfigured(t *testing.T) {
	cfg, _ := config.Load()
	cfg.BrevoAPIKey = ""
	b := NewBrevo(mockSettings{vals: map[string]string{}}, cfg)
	if err := b.Send(context.Background(), "a@b.com", "sub", "body"); err == nil {
		t.Fatalf("expected configuration error")
	}
}
