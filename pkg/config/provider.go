package config

import "fmt"

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Scoring     ScoringData      `json:"scoring"`
	Credentials CredentialsData  `json:"credentials"`
	Coach       CoachData        `json:"coach"`
	Events      EventsData       `json:"events,omitempty"`
	Controllers []ControllerData `json:"controllers,omitempty"`
}

// ScoringData holds the knobs of the scoring engine. Seeds are configuration
// rather than constants so tests and operators can vary them deliberately.
type ScoringData struct {
	Seed            uint64  `json:"seed"`
	BaselineDays    int     `json:"baseline_days"`
	Trees           int     `json:"trees"`
	Contamination   float64 `json:"contamination"`
	MaxSamples      int     `json:"max_samples"`
	ScrollSeed      uint64  `json:"scroll_seed"`
	ScrollDuration  int     `json:"scroll_duration"`
	DefaultAge      int     `json:"default_age"`
	DefaultSwitches float64 `json:"default_app_switch_rate"`
	DefaultPickups  float64 `json:"default_pickup_count"`
}

// CredentialsData selects and configures the credential store backend
type CredentialsData struct {
	Backend     string `json:"backend"` // memory, sqlite or postgres
	SQLitePath  string `json:"sqlite_path,omitempty"`
	PostgresDSN string `json:"postgres_dsn,omitempty"`
}

// CoachData configures the generative-text coaching client
type CoachData struct {
	APIKey         string `json:"-"`
	Model          string `json:"model,omitempty"`
	APIEndpoint    string `json:"api_endpoint,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
	HistoryTurns   int    `json:"history_turns,omitempty"`
	MaxTurnChars   int    `json:"max_turn_chars,omitempty"`
}

// EventsData configures optional sinks for saved daily stats
type EventsData struct {
	Kafka *KafkaData `json:"kafka,omitempty"`
}

type KafkaData struct {
	Brokers []string `json:"brokers"`
	Topic   string   `json:"topic"`
}

// ControllerData holds the configuration for the network controllers
type ControllerData struct {
	Type       string          `json:"type,omitempty"`
	RESTServer *RESTServerData `json:"rest,omitempty"`
	GRPC       *GRPCData       `json:"grpc,omitempty"`
}

type RESTServerData struct {
	Cert       string `json:"cert,omitempty"`
	Key        string `json:"key,omitempty"`
	Port       int    `json:"port,omitempty"`
	ListenAddr string `json:"listen_addr,omitempty"`
	EnableCORS bool   `json:"enable_cors,omitempty"`
}

type GRPCData struct {
	Cert       string `json:"cert,omitempty"`
	Key        string `json:"key,omitempty"`
	ListenAddr string `json:"listen_addr,omitempty"`
	Port       int    `json:"port,omitempty"`
}

// Defaults used when a value is left unset
const (
	DefaultSeed           uint64 = 42
	DefaultBaselineDays          = 30
	DefaultTrees                 = 100
	DefaultContamination         = 0.1
	DefaultMaxSamples            = 256
	DefaultScrollDuration        = 60
	DefaultAge                   = 25
	DefaultAppSwitchRate         = 40
	DefaultPickupCount           = 80

	DefaultCoachModel    = "gemini-2.5-flash-lite"
	DefaultCoachEndpoint = "https://generativelanguage.googleapis.com/v1beta"
	DefaultCoachTimeout  = 30
	DefaultHistoryTurns  = 10
	DefaultMaxTurnChars  = 2000

	DefaultRESTPort = 8080
	DefaultGRPCPort = 50051
)

// ApplyDefaults fills in every unset value. Seeds of zero are treated as
// unset since a zero seed is never written on purpose in a config file.
func (c *ConfigData) ApplyDefaults() {
	s := &c.Scoring
	if s.Seed == 0 {
		s.Seed = DefaultSeed
	}
	if s.ScrollSeed == 0 {
		s.ScrollSeed = DefaultSeed
	}
	if s.BaselineDays == 0 {
		s.BaselineDays = DefaultBaselineDays
	}
	if s.Trees == 0 {
		s.Trees = DefaultTrees
	}
	if s.Contamination == 0 {
		s.Contamination = DefaultContamination
	}
	if s.MaxSamples == 0 {
		s.MaxSamples = DefaultMaxSamples
	}
	if s.ScrollDuration == 0 {
		s.ScrollDuration = DefaultScrollDuration
	}
	if s.DefaultAge == 0 {
		s.DefaultAge = DefaultAge
	}
	if s.DefaultSwitches == 0 {
		s.DefaultSwitches = DefaultAppSwitchRate
	}
	if s.DefaultPickups == 0 {
		s.DefaultPickups = DefaultPickupCount
	}

	if c.Credentials.Backend == "" {
		c.Credentials.Backend = "memory"
	}

	co := &c.Coach
	if co.Model == "" {
		co.Model = DefaultCoachModel
	}
	if co.APIEndpoint == "" {
		co.APIEndpoint = DefaultCoachEndpoint
	}
	if co.TimeoutSeconds == 0 {
		co.TimeoutSeconds = DefaultCoachTimeout
	}
	if co.HistoryTurns == 0 {
		co.HistoryTurns = DefaultHistoryTurns
	}
	if co.MaxTurnChars == 0 {
		co.MaxTurnChars = DefaultMaxTurnChars
	}

	for i := range c.Controllers {
		ctl := &c.Controllers[i]
		if ctl.RESTServer != nil {
			if ctl.RESTServer.ListenAddr == "" {
				ctl.RESTServer.ListenAddr = "0.0.0.0"
			}
			if ctl.RESTServer.Port == 0 {
				ctl.RESTServer.Port = DefaultRESTPort
			}
		}
		if ctl.GRPC != nil {
			if ctl.GRPC.ListenAddr == "" {
				ctl.GRPC.ListenAddr = "0.0.0.0"
			}
			if ctl.GRPC.Port == 0 {
				ctl.GRPC.Port = DefaultGRPCPort
			}
		}
	}
}

// Validate checks values that have no sensible default
func (c *ConfigData) Validate() error {
	switch c.Credentials.Backend {
	case "memory":
	case "sqlite":
		if c.Credentials.SQLitePath == "" {
			return fmt.Errorf("credentials.sqlite-path is required for the sqlite backend")
		}
	case "postgres":
		if c.Credentials.PostgresDSN == "" {
			return fmt.Errorf("credentials.postgres-dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unsupported credentials backend: %s", c.Credentials.Backend)
	}

	if c.Scoring.BaselineDays < 0 {
		return fmt.Errorf("scoring.baseline-days must be positive, got %d", c.Scoring.BaselineDays)
	}

	if k := c.Events.Kafka; k != nil {
		if len(k.Brokers) == 0 || k.Topic == "" {
			return fmt.Errorf("events.kafka needs at least one broker and a topic")
		}
	}

	for _, ctl := range c.Controllers {
		switch ctl.Type {
		case "rest":
			if ctl.RESTServer == nil {
				return fmt.Errorf("rest controller is missing its rest section")
			}
		case "grpc":
			if ctl.GRPC == nil {
				return fmt.Errorf("grpc controller is missing its grpc section")
			}
		default:
			return fmt.Errorf("unknown controller type: %s", ctl.Type)
		}
	}
	return nil
}
