package config

// Config is the top-level configuration parsed from the YAML config file.
type Config struct {
	Kafka    KafkaConfig    `yaml:"kafka"    json:"kafka"`
	Channels ChannelsConfig `yaml:"channels" json:"channels"`
	Routing  RoutingConfig  `yaml:"routing"  json:"routing"`
	Resolver ResolverConfig `yaml:"resolver" json:"resolver"`
	Retry    RetryConfig    `yaml:"retry"    json:"retry"`
	Health   HealthConfig   `yaml:"health"   json:"health"`
}

// KafkaConfig tunes the bus client. Values are forwarded to the consumer
// unchanged; the gateway itself only interprets Topics.
type KafkaConfig struct {
	Bootstrap           []string `yaml:"bootstrap"           json:"bootstrap"`
	GroupID             string   `yaml:"groupId"             json:"groupId"`
	AutoOffsetReset     string   `yaml:"autoOffsetReset"     json:"autoOffsetReset"`
	MaxPollRecords      int      `yaml:"maxPollRecords"      json:"maxPollRecords"`
	SessionTimeoutMs    int      `yaml:"sessionTimeoutMs"    json:"sessionTimeoutMs"`
	HeartbeatIntervalMs int      `yaml:"heartbeatIntervalMs" json:"heartbeatIntervalMs"`
	Topics              []string `yaml:"topics"              json:"topics"`
}

// ChannelsConfig declares the provider chains per channel, in priority order.
type ChannelsConfig struct {
	Email ChannelConfig `yaml:"email" json:"email"`
	SMS   ChannelConfig `yaml:"sms"   json:"sms"`
}

// ChannelConfig is the ordered provider list for one channel.
type ChannelConfig struct {
	Providers []ProviderConfig `yaml:"providers" json:"providers"`
}

// ProviderConfig holds one provider entry. Credential fields support
// ${ENV_VAR} substitution at load time; which fields a provider reads
// depends on its name (see internal/channel).
type ProviderConfig struct {
	Name    string `yaml:"name"    json:"name"`
	Enabled bool   `yaml:"enabled" json:"enabled"`

	// Email providers
	APIKey        string `yaml:"apiKey"        json:"apiKey,omitempty"`
	From          string `yaml:"from"          json:"from,omitempty"`
	ReplyTo       string `yaml:"replyTo"       json:"replyTo,omitempty"`
	ServerToken   string `yaml:"serverToken"   json:"serverToken,omitempty"`
	MessageStream string `yaml:"messageStream" json:"messageStream,omitempty"`

	// SMS providers
	AccountSID string `yaml:"accountSid" json:"accountSid,omitempty"`
	AuthToken  string `yaml:"authToken"  json:"authToken,omitempty"`
	FromNumber string `yaml:"fromNumber" json:"fromNumber,omitempty"`
	Username   string `yaml:"username"   json:"username,omitempty"`
	SenderID   string `yaml:"senderId"   json:"senderId,omitempty"`
	Channel    string `yaml:"channel"    json:"channel,omitempty"`
	Sandbox    bool   `yaml:"sandbox"    json:"sandbox,omitempty"`
}

// RoutingConfig controls channel selection.
type RoutingConfig struct {
	// ForceBothOnSeverity upgrades an event to EMAIL+SMS when its severity
	// is in this set, regardless of the event's channel hint.
	ForceBothOnSeverity []string `yaml:"forceBothOnSeverity" json:"forceBothOnSeverity"`
}

// ResolverConfig selects and tunes the customer profile lookup.
type ResolverConfig struct {
	Type string             `yaml:"type" json:"type"` // "mock" or "http"
	HTTP HTTPResolverConfig `yaml:"http" json:"http"`
}

// HTTPResolverConfig tunes the HTTP customer resolver.
type HTTPResolverConfig struct {
	BaseURL   string `yaml:"baseUrl"   json:"baseUrl"`
	TimeoutMs int    `yaml:"timeoutMs" json:"timeoutMs"`
}

// RetryConfig tunes the retry executor and the exhausted-delivery policy.
type RetryConfig struct {
	MaxAttempts    int     `yaml:"maxAttempts"    json:"maxAttempts"`
	InitialDelayMs int     `yaml:"initialDelayMs" json:"initialDelayMs"`
	BackoffFactor  float64 `yaml:"backoffFactor"  json:"backoffFactor"`
	MaxDelayMs     int     `yaml:"maxDelayMs"     json:"maxDelayMs"`
	OnExhausted    string  `yaml:"onExhausted"    json:"onExhausted"` // "log" or "kafka"
	DLQTopic       string  `yaml:"dlqTopic"       json:"dlqTopic"`
}

// HealthConfig controls the health HTTP endpoint.
type HealthConfig struct {
	Port int `yaml:"port" json:"port"`
}
