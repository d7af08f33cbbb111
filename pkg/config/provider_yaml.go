package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}
	return parseYAML(cfgFile)
}

func parseYAML(raw []byte) (*ConfigData, error) {
	// Load into temporary struct with YAML tags
	var yamlConfig struct {
		Scoring     ScoringYAML      `yaml:"scoring,omitempty"`
		Credentials CredentialsYAML  `yaml:"credentials,omitempty"`
		Coach       CoachYAML        `yaml:"coach,omitempty"`
		Events      EventsYAML       `yaml:"events,omitempty"`
		Controllers []ControllerYAML `yaml:"controllers,omitempty"`
	}

	if err := yaml.Unmarshal(raw, &yamlConfig); err != nil {
		return nil, err
	}

	// Convert to our internal format
	config := &ConfigData{
		Scoring: ScoringData{
			Seed:            yamlConfig.Scoring.Seed,
			BaselineDays:    yamlConfig.Scoring.BaselineDays,
			Trees:           yamlConfig.Scoring.Trees,
			Contamination:   yamlConfig.Scoring.Contamination,
			MaxSamples:      yamlConfig.Scoring.MaxSamples,
			ScrollSeed:      yamlConfig.Scoring.ScrollSeed,
			ScrollDuration:  yamlConfig.Scoring.ScrollDuration,
			DefaultAge:      yamlConfig.Scoring.DefaultAge,
			DefaultSwitches: yamlConfig.Scoring.DefaultSwitches,
			DefaultPickups:  yamlConfig.Scoring.DefaultPickups,
		},
		Credentials: CredentialsData{
			Backend:     yamlConfig.Credentials.Backend,
			SQLitePath:  yamlConfig.Credentials.SQLitePath,
			PostgresDSN: yamlConfig.Credentials.PostgresDSN,
		},
		Coach: CoachData{
			APIKey:         yamlConfig.Coach.APIKey,
			Model:          yamlConfig.Coach.Model,
			APIEndpoint:    yamlConfig.Coach.APIEndpoint,
			TimeoutSeconds: yamlConfig.Coach.TimeoutSeconds,
			HistoryTurns:   yamlConfig.Coach.HistoryTurns,
			MaxTurnChars:   yamlConfig.Coach.MaxTurnChars,
		},
		Controllers: make([]ControllerData, len(yamlConfig.Controllers)),
	}

	if yamlConfig.Events.Kafka != nil {
		config.Events.Kafka = &KafkaData{
			Brokers: yamlConfig.Events.Kafka.Brokers,
			Topic:   yamlConfig.Events.Kafka.Topic,
		}
	}

	// Convert controllers
	for i, controller := range yamlConfig.Controllers {
		config.Controllers[i] = ControllerData{
			Type: controller.Type,
		}

		if controller.RESTServer != nil {
			config.Controllers[i].RESTServer = &RESTServerData{
				Cert:       controller.RESTServer.Cert,
				Key:        controller.RESTServer.Key,
				Port:       controller.RESTServer.Port,
				ListenAddr: controller.RESTServer.ListenAddr,
				EnableCORS: controller.RESTServer.EnableCORS,
			}
		}

		if controller.GRPC != nil {
			config.Controllers[i].GRPC = &GRPCData{
				Cert:       controller.GRPC.Cert,
				Key:        controller.GRPC.Key,
				ListenAddr: controller.GRPC.ListenAddr,
				Port:       controller.GRPC.Port,
			}
		}
	}

	return config, nil
}

// IsReadOnly returns true since YAML files are read-only in this implementation
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

// YAML-specific structs with YAML tags
type ScoringYAML struct {
	Seed            uint64  `yaml:"seed,omitempty"`
	BaselineDays    int     `yaml:"baseline-days,omitempty"`
	Trees           int     `yaml:"trees,omitempty"`
	Contamination   float64 `yaml:"contamination,omitempty"`
	MaxSamples      int     `yaml:"max-samples,omitempty"`
	ScrollSeed      uint64  `yaml:"scroll-seed,omitempty"`
	ScrollDuration  int     `yaml:"scroll-duration,omitempty"`
	DefaultAge      int     `yaml:"default-age,omitempty"`
	DefaultSwitches float64 `yaml:"default-app-switch-rate,omitempty"`
	DefaultPickups  float64 `yaml:"default-pickup-count,omitempty"`
}

type CredentialsYAML struct {
	Backend     string `yaml:"backend,omitempty"`
	SQLitePath  string `yaml:"sqlite-path,omitempty"`
	PostgresDSN string `yaml:"postgres-dsn,omitempty"`
}

type CoachYAML struct {
	APIKey         string `yaml:"api-key,omitempty"`
	Model          string `yaml:"model,omitempty"`
	APIEndpoint    string `yaml:"api-endpoint,omitempty"`
	TimeoutSeconds int    `yaml:"timeout-seconds,omitempty"`
	HistoryTurns   int    `yaml:"history-turns,omitempty"`
	MaxTurnChars   int    `yaml:"max-turn-chars,omitempty"`
}

type EventsYAML struct {
	Kafka *KafkaYAML `yaml:"kafka,omitempty"`
}

type KafkaYAML struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type ControllerYAML struct {
	Type       string          `yaml:"type,omitempty"`
	RESTServer *RESTServerYAML `yaml:"rest,omitempty"`
	GRPC       *GRPCYAML       `yaml:"grpc,omitempty"`
}

type RESTServerYAML struct {
	Cert       string `yaml:"cert,omitempty"`
	Key        string `yaml:"key,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	ListenAddr string `yaml:"listen-addr,omitempty"`
	EnableCORS bool   `yaml:"enable-cors,omitempty"`
}

type GRPCYAML struct {
	Cert       string `yaml:"cert,omitempty"`
	Key        string `yaml:"key,omitempty"`
	ListenAddr string `yaml:"listen-addr,omitempty"`
	Port       int    `yaml:"port,omitempty"`
}
