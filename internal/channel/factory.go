package channel

import (
	"fmt"
	"log/slog"

	"github.com/abbank/notification-gateway/internal/config"
)

// BuildEmailAdapters creates the enabled email adapters in config priority
// order. Providers that are enabled but missing credentials are skipped with
// a warning; unknown provider names are errors.
func BuildEmailAdapters(cfgs []config.ProviderConfig, logger *slog.Logger) ([]Adapter, error) {
	adapters := make([]Adapter, 0, len(cfgs))
	for _, cfg := range cfgs {
		if !cfg.Enabled {
			continue
		}
		var adapter Adapter
		switch cfg.Name {
		case "sendgrid":
			adapter = NewSendGridAdapter(cfg.APIKey, cfg.From, cfg.ReplyTo)
		case "postmark":
			adapter = NewPostmarkAdapter(cfg.ServerToken, cfg.From, cfg.MessageStream)
		case "mailersend":
			adapter = NewMailerSendAdapter(cfg.APIKey, cfg.From)
		default:
			return nil, fmt.Errorf("unknown email provider: %q", cfg.Name)
		}
		if !adapter.Configured() {
			logger.Warn("email adapter enabled but missing credentials, skipping", "provider", cfg.Name)
			adapter.Close()
			continue
		}
		adapters = append(adapters, adapter)
		logger.Info("email adapter ready", "provider", cfg.Name)
	}
	if len(adapters) == 0 {
		logger.Warn("no email adapters are configured and operational, email notifications will be skipped")
	}
	return adapters, nil
}

// BuildSMSAdapters creates the enabled SMS adapters in config priority order.
func BuildSMSAdapters(cfgs []config.ProviderConfig, logger *slog.Logger) ([]Adapter, error) {
	adapters := make([]Adapter, 0, len(cfgs))
	for _, cfg := range cfgs {
		if !cfg.Enabled {
			continue
		}
		var adapter Adapter
		switch cfg.Name {
		case "twilio":
			adapter = NewTwilioAdapter(cfg.AccountSID, cfg.AuthToken, cfg.FromNumber)
		case "termii":
			adapter = NewTermiiAdapter(cfg.APIKey, cfg.SenderID, cfg.Channel)
		case "africas-talking":
			adapter = NewAfricasTalkingAdapter(cfg.APIKey, cfg.Username, cfg.SenderID, cfg.Sandbox)
		default:
			return nil, fmt.Errorf("unknown SMS provider: %q", cfg.Name)
		}
		if !adapter.Configured() {
			logger.Warn("SMS adapter enabled but missing credentials, skipping", "provider", cfg.Name)
			adapter.Close()
			continue
		}
		adapters = append(adapters, adapter)
		logger.Info("SMS adapter ready", "provider", cfg.Name)
	}
	if len(adapters) == 0 {
		logger.Warn("no SMS adapters are configured and operational, SMS notifications will be skipped")
	}
	return adapters, nil
}
