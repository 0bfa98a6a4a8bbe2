package alert

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/rampart/internal/config"
	"grimm.is/rampart/internal/netfilter"
)

func TestShouldSend(t *testing.T) {
	assert.True(t, shouldSend(LevelCritical, LevelWarning))
	assert.True(t, shouldSend(LevelWarning, LevelWarning))
	assert.False(t, shouldSend(LevelInfo, LevelWarning))
	assert.True(t, shouldSend(LevelInfo, ""))
}

func TestSendEmail(t *testing.T) {
	mail := new(netfilter.MockCommandRunner)
	mail.On("RunInput",
		"From: rampart@localhost\nTo: ops@example.com\nSubject: test alert\n\nbody text",
		"/usr/sbin/sendmail", "-t", "-f", "rampart@localhost").Return(nil)

	cfg := &config.NotificationsConfig{
		Enabled: true,
		Channels: []config.NotificationChannel{
			{Name: "mail", Type: "email", Enabled: true, To: []string{"ops@example.com"}},
		},
	}
	d := NewDispatcher(cfg, mail, nil)
	d.Send(context.Background(), Notification{Title: "test alert", Message: "body text", Level: LevelCritical})

	mail.AssertExpectations(t)
}

func TestSendWebhook(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		got = string(buf)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := &config.NotificationsConfig{
		Enabled: true,
		Channels: []config.NotificationChannel{
			{Name: "hook", Type: "webhook", Enabled: true, WebhookURL: srv.URL},
		},
	}
	d := NewDispatcher(cfg, nil, nil)
	d.Send(context.Background(), Notification{Title: "drift alert", Message: "details", Level: LevelWarning})

	assert.Contains(t, got, "drift alert")
}

func TestSendNtfyHeaders(t *testing.T) {
	var gotPriority, gotTitle string
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPriority = r.Header.Get("Priority")
		gotTitle = r.Header.Get("Title")
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := &config.NotificationsConfig{
		Enabled: true,
		Channels: []config.NotificationChannel{
			{Name: "push", Type: "ntfy", Enabled: true, Server: srv.URL, Topic: "firewall"},
		},
	}
	d := NewDispatcher(cfg, nil, nil)
	d.Send(context.Background(), Notification{Title: "flush undone", Message: "m", Level: LevelCritical})

	assert.Equal(t, "high", gotPriority)
	assert.Equal(t, "flush undone", gotTitle)
	assert.Equal(t, "/firewall", gotPath)
}

func TestDisabledConfigSendsNothing(t *testing.T) {
	mail := new(netfilter.MockCommandRunner)
	cfg := &config.NotificationsConfig{
		Enabled: false,
		Channels: []config.NotificationChannel{
			{Name: "mail", Type: "email", Enabled: true, To: []string{"ops@example.com"}},
		},
	}
	d := NewDispatcher(cfg, mail, nil)
	d.Send(context.Background(), Notification{Title: "x", Message: "y", Level: LevelCritical})

	mail.AssertNotCalled(t, "RunInput")
}

func TestLevelFiltering(t *testing.T) {
	srvHits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srvHits++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := &config.NotificationsConfig{
		Enabled: true,
		Channels: []config.NotificationChannel{
			{Name: "hook", Type: "webhook", Enabled: true, Level: LevelCritical, WebhookURL: srv.URL},
		},
	}
	d := NewDispatcher(cfg, nil, nil)
	d.Send(context.Background(), Notification{Title: "minor", Message: "m", Level: LevelWarning})
	require.Equal(t, 0, srvHits)

	d.Send(context.Background(), Notification{Title: "major", Message: "m", Level: LevelCritical})
	assert.Equal(t, 1, srvHits)
}

func TestChannelLevelIsCaseInsensitive(t *testing.T) {
	assert.True(t, shouldSend("CRITICAL", "warning"))
	assert.True(t, shouldSend(strings.ToUpper(LevelWarning), "Warning"))
}
