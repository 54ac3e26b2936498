package main

import (
	"context"
	"log/slog"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigPrecedence(t *testing.T) {
	cases := []struct {
		name     string
		args     []string
		envs     map[string]string
		expected string
	}{
		{
			name:     "default value",
			args:     []string{},
			envs:     map[string]string{},
			expected: "config.yaml",
		},
		{
			name:     "env var precedence",
			args:     []string{},
			envs:     map[string]string{"CONFIG_FILE": "/etc/gateway/config.yaml"},
			expected: "/etc/gateway/config.yaml",
		},
		{
			name:     "flag precedence over env",
			args:     []string{"--config", "./local.yaml"},
			envs:     map[string]string{"CONFIG_FILE": "/etc/gateway/config.yaml"},
			expected: "./local.yaml",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.envs {
				t.Setenv(k, v)
			}
			cfg, err := loadConfig(tc.args)
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, cfg.ConfigFile)
		})
	}
}

func TestLoadConfig_RejectsBadLogFormat(t *testing.T) {
	_, err := loadConfig([]string{"--log-format", "xml"})
	assert.Error(t, err)
}

func TestGracefulShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := make(chan os.Signal, 1)
	go func() {
		time.Sleep(100 * time.Millisecond)
		stop <- syscall.SIGTERM
	}()
	select {
	case <-stop:
		cancel()
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for signal")
	}
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestLogFormatSelection(t *testing.T) {
	cases := []struct {
		format string
		isJSON bool
	}{
		{"json", true},
		{"text", false},
	}
	for _, tc := range cases {
		t.Run(tc.format, func(t *testing.T) {
			handler := setupLogger(tc.format)
			_, ok := handler.Handler().(*slog.JSONHandler)
			assert.Equal(t, tc.isJSON, ok)
		})
	}
}
