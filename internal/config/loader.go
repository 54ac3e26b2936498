package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Known provider names per channel, used to reject typos at load time.
var (
	emailProviderNames = map[string]struct{}{
		"sendgrid": {}, "postmark": {}, "mailersend": {},
	}
	smsProviderNames = map[string]struct{}{
		"twilio": {}, "termii": {}, "africas-talking": {},
	}
	severityNames = map[string]struct{}{
		"LOW": {}, "MEDIUM": {}, "HIGH": {}, "CRITICAL": {},
	}
)

// Defaults returns the built-in configuration used when the file omits a
// section. The topic set mirrors the upstream producer's five streams.
func Defaults() Config {
	return Config{
		Kafka: KafkaConfig{
			Bootstrap:           []string{"localhost:9092"},
			GroupID:             "notification-gateway",
			AutoOffsetReset:     "earliest",
			MaxPollRecords:      500,
			SessionTimeoutMs:    30000,
			HeartbeatIntervalMs: 3000,
			Topics: []string{
				"notifications.fraud-alerts",
				"notifications.high-value-alerts",
				"notifications.balance-updates",
				"notifications.dormancy-alerts",
				"notifications.daily-spend-summaries",
			},
		},
		Routing: RoutingConfig{
			ForceBothOnSeverity: []string{"HIGH", "CRITICAL"},
		},
		Resolver: ResolverConfig{
			Type: "mock",
			HTTP: HTTPResolverConfig{TimeoutMs: 2000},
		},
		Retry: RetryConfig{
			MaxAttempts:    3,
			InitialDelayMs: 500,
			BackoffFactor:  2.0,
			MaxDelayMs:     10000,
			OnExhausted:    "log",
		},
		Health: HealthConfig{Port: 8090},
	}
}

// Load reads and parses the YAML configuration file at path.
// If path does not exist or is empty, it returns the defaults with no errors.
// If the YAML is malformed or the config is structurally unusable (e.g.
// onExhausted=kafka without a DLQ topic), it returns a nil config with errors.
// For recoverable validation problems it returns a usable config with invalid
// entries stripped or reset, plus errors describing what was changed.
//
// ${ENV_VAR} references in the file are expanded from the environment before
// parsing so credentials never need to live in the file itself.
func Load(path string) (*Config, []error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &cfg, nil
		}
		return nil, []error{fmt.Errorf("failed to read config file: %w", err)}
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return &cfg, nil
	}

	expanded := os.Expand(string(data), func(name string) string {
		return os.Getenv(name)
	})

	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, []error{fmt.Errorf("failed to parse config YAML: %w", err)}
	}

	var validationErrors []error

	validationErrors = append(validationErrors, validateKafka(&cfg.Kafka)...)
	validationErrors = append(validationErrors,
		validateProviders(&cfg.Channels.Email, "channels.email", emailProviderNames)...)
	validationErrors = append(validationErrors,
		validateProviders(&cfg.Channels.SMS, "channels.sms", smsProviderNames)...)
	validationErrors = append(validationErrors, validateRouting(&cfg.Routing)...)
	validationErrors = append(validationErrors, validateRetry(&cfg.Retry)...)

	switch cfg.Resolver.Type {
	case "mock", "http":
	default:
		return nil, append(validationErrors,
			fmt.Errorf("resolver.type: unknown type %q (must be \"mock\" or \"http\")", cfg.Resolver.Type))
	}
	if cfg.Resolver.Type == "http" && strings.TrimSpace(cfg.Resolver.HTTP.BaseURL) == "" {
		return nil, append(validationErrors,
			errors.New("resolver.http.baseUrl: required when resolver.type is \"http\""))
	}
	if cfg.Resolver.HTTP.TimeoutMs <= 0 {
		cfg.Resolver.HTTP.TimeoutMs = 2000
	}

	// onExhausted=kafka without a topic to publish to is a startup error,
	// not a validation warning.
	if cfg.Retry.OnExhausted == "kafka" && strings.TrimSpace(cfg.Retry.DLQTopic) == "" {
		return nil, append(validationErrors,
			errors.New("retry.dlqTopic: required when retry.onExhausted is \"kafka\""))
	}

	if cfg.Health.Port <= 0 || cfg.Health.Port > 65535 {
		validationErrors = append(validationErrors,
			fmt.Errorf("health.port: invalid port %d, using default 8090", cfg.Health.Port))
		cfg.Health.Port = 8090
	}

	return &cfg, validationErrors
}

func validateKafka(k *KafkaConfig) []error {
	var errs []error
	if len(k.Bootstrap) == 0 {
		k.Bootstrap = []string{"localhost:9092"}
	}
	if strings.TrimSpace(k.GroupID) == "" {
		errs = append(errs, errors.New("kafka.groupId: required field missing, using default"))
		k.GroupID = "notification-gateway"
	}
	switch k.AutoOffsetReset {
	case "earliest", "latest":
	case "":
		k.AutoOffsetReset = "earliest"
	default:
		errs = append(errs, fmt.Errorf("kafka.autoOffsetReset: must be \"earliest\" or \"latest\", got %q", k.AutoOffsetReset))
		k.AutoOffsetReset = "earliest"
	}
	if k.MaxPollRecords <= 0 {
		k.MaxPollRecords = 500
	}
	if k.SessionTimeoutMs <= 0 {
		k.SessionTimeoutMs = 30000
	}
	if k.HeartbeatIntervalMs <= 0 {
		k.HeartbeatIntervalMs = 3000
	}
	validTopics := make([]string, 0, len(k.Topics))
	for i, t := range k.Topics {
		if strings.TrimSpace(t) == "" {
			errs = append(errs, fmt.Errorf("kafka.topics[%d]: empty topic name", i))
			continue
		}
		validTopics = append(validTopics, t)
	}
	k.Topics = validTopics
	if len(k.Topics) == 0 {
		errs = append(errs, errors.New("kafka.topics: no valid topics, using defaults"))
		k.Topics = Defaults().Kafka.Topics
	}
	return errs
}

func validateProviders(ch *ChannelConfig, prefix string, known map[string]struct{}) []error {
	var errs []error
	valid := make([]ProviderConfig, 0, len(ch.Providers))
	seen := make(map[string]struct{}, len(ch.Providers))
	for i, p := range ch.Providers {
		name := strings.ToLower(strings.TrimSpace(p.Name))
		if name == "" {
			errs = append(errs, fmt.Errorf("%s.providers[%d].name: required field missing", prefix, i))
			continue
		}
		if _, ok := known[name]; !ok {
			errs = append(errs, fmt.Errorf("%s.providers[%d].name: unknown provider %q", prefix, i, p.Name))
			continue
		}
		if _, dup := seen[name]; dup {
			errs = append(errs, fmt.Errorf("%s.providers[%d].name: duplicate provider %q", prefix, i, name))
			continue
		}
		seen[name] = struct{}{}
		p.Name = name
		valid = append(valid, p)
	}
	ch.Providers = valid
	return errs
}

func validateRouting(r *RoutingConfig) []error {
	var errs []error
	valid := make([]string, 0, len(r.ForceBothOnSeverity))
	for i, s := range r.ForceBothOnSeverity {
		name := strings.ToUpper(strings.TrimSpace(s))
		if _, ok := severityNames[name]; !ok {
			errs = append(errs, fmt.Errorf("routing.forceBothOnSeverity[%d]: unknown severity %q", i, s))
			continue
		}
		valid = append(valid, name)
	}
	r.ForceBothOnSeverity = valid
	return errs
}

func validateRetry(r *RetryConfig) []error {
	var errs []error
	if r.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("retry.maxAttempts: must be >= 1, got %d, using 3", r.MaxAttempts))
		r.MaxAttempts = 3
	}
	if r.InitialDelayMs < 0 {
		errs = append(errs, fmt.Errorf("retry.initialDelayMs: must be >= 0, got %d, using 500", r.InitialDelayMs))
		r.InitialDelayMs = 500
	}
	if r.BackoffFactor < 1.0 {
		errs = append(errs, fmt.Errorf("retry.backoffFactor: must be >= 1.0, got %v, using 2.0", r.BackoffFactor))
		r.BackoffFactor = 2.0
	}
	if r.MaxDelayMs < r.InitialDelayMs {
		errs = append(errs, fmt.Errorf("retry.maxDelayMs: must be >= initialDelayMs, got %d, using %d",
			r.MaxDelayMs, r.InitialDelayMs*20))
		r.MaxDelayMs = r.InitialDelayMs * 20
	}
	switch r.OnExhausted {
	case "log", "kafka":
	case "":
		r.OnExhausted = "log"
	default:
		errs = append(errs, fmt.Errorf("retry.onExhausted: must be \"log\" or \"kafka\", got %q, using \"log\"", r.OnExhausted))
		r.OnExhausted = "log"
	}
	return errs
}
