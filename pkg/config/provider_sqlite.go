package config

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteProvider implements ConfigProvider for SQLite database configuration.
//
// Scalar settings live in a (section, key, value) table; controllers have a
// table of their own.
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS settings (
	section TEXT NOT NULL,
	key     TEXT NOT NULL,
	value   TEXT NOT NULL,
	PRIMARY KEY (section, key)
);
CREATE TABLE IF NOT EXISTS controllers (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	type        TEXT NOT NULL,
	listen_addr TEXT NOT NULL DEFAULT '',
	port        INTEGER NOT NULL DEFAULT 0,
	cert        TEXT NOT NULL DEFAULT '',
	key         TEXT NOT NULL DEFAULT '',
	enable_cors INTEGER NOT NULL DEFAULT 0
);`

// NewSQLiteProvider creates a new SQLite configuration provider
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize configuration schema: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// SetSetting stores a single scalar setting
func (s *SQLiteProvider) SetSetting(section, key, value string) error {
	_, err := s.db.Exec(`INSERT INTO settings (section, key, value) VALUES (?, ?, ?)
		ON CONFLICT(section, key) DO UPDATE SET value = excluded.value`, section, key, value)
	if err != nil {
		return fmt.Errorf("failed to store setting %s.%s: %w", section, key, err)
	}
	return nil
}

// AddController stores a controller definition
func (s *SQLiteProvider) AddController(c ControllerData) error {
	var listenAddr, cert, key string
	var port int
	var cors bool

	switch {
	case c.RESTServer != nil:
		listenAddr, port, cert, key, cors = c.RESTServer.ListenAddr, c.RESTServer.Port, c.RESTServer.Cert, c.RESTServer.Key, c.RESTServer.EnableCORS
	case c.GRPC != nil:
		listenAddr, port, cert, key = c.GRPC.ListenAddr, c.GRPC.Port, c.GRPC.Cert, c.GRPC.Key
	}

	_, err := s.db.Exec(`INSERT INTO controllers (type, listen_addr, port, cert, key, enable_cors) VALUES (?, ?, ?, ?, ?, ?)`,
		c.Type, listenAddr, port, cert, key, cors)
	if err != nil {
		return fmt.Errorf("failed to store controller: %w", err)
	}
	return nil
}

// SaveConfig writes every non-empty setting and controller of cfg. It is
// the inverse of LoadConfig and is used to convert YAML configurations.
func (s *SQLiteProvider) SaveConfig(cfg *ConfigData) error {
	sc, cr, co := cfg.Scoring, cfg.Credentials, cfg.Coach
	settings := []struct {
		section, key, value string
	}{
		{"scoring", "seed", formatUint(sc.Seed)},
		{"scoring", "baseline-days", formatInt(sc.BaselineDays)},
		{"scoring", "trees", formatInt(sc.Trees)},
		{"scoring", "contamination", formatFloat(sc.Contamination)},
		{"scoring", "max-samples", formatInt(sc.MaxSamples)},
		{"scoring", "scroll-seed", formatUint(sc.ScrollSeed)},
		{"scoring", "scroll-duration", formatInt(sc.ScrollDuration)},
		{"scoring", "default-age", formatInt(sc.DefaultAge)},
		{"scoring", "default-app-switch-rate", formatFloat(sc.DefaultSwitches)},
		{"scoring", "default-pickup-count", formatFloat(sc.DefaultPickups)},
		{"credentials", "backend", cr.Backend},
		{"credentials", "sqlite-path", cr.SQLitePath},
		{"credentials", "postgres-dsn", cr.PostgresDSN},
		{"coach", "api-key", co.APIKey},
		{"coach", "model", co.Model},
		{"coach", "api-endpoint", co.APIEndpoint},
		{"coach", "timeout-seconds", formatInt(co.TimeoutSeconds)},
		{"coach", "history-turns", formatInt(co.HistoryTurns)},
		{"coach", "max-turn-chars", formatInt(co.MaxTurnChars)},
	}
	if k := cfg.Events.Kafka; k != nil {
		settings = append(settings,
			struct{ section, key, value string }{"kafka", "brokers", strings.Join(k.Brokers, ",")},
			struct{ section, key, value string }{"kafka", "topic", k.Topic},
		)
	}

	for _, st := range settings {
		if st.value == "" {
			continue
		}
		if err := s.SetSetting(st.section, st.key, st.value); err != nil {
			return err
		}
	}

	for _, c := range cfg.Controllers {
		if err := s.AddController(c); err != nil {
			return err
		}
	}
	return nil
}

func formatInt(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

func formatUint(v uint64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatUint(v, 10)
}

func formatFloat(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// LoadConfig loads the complete configuration from SQLite database
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	settings, err := s.loadSettings()
	if err != nil {
		return nil, err
	}

	config := &ConfigData{}
	p := settingParser{settings: settings}

	config.Scoring = ScoringData{
		Seed:            p.getUint("scoring", "seed"),
		BaselineDays:    p.getInt("scoring", "baseline-days"),
		Trees:           p.getInt("scoring", "trees"),
		Contamination:   p.getFloat("scoring", "contamination"),
		MaxSamples:      p.getInt("scoring", "max-samples"),
		ScrollSeed:      p.getUint("scoring", "scroll-seed"),
		ScrollDuration:  p.getInt("scoring", "scroll-duration"),
		DefaultAge:      p.getInt("scoring", "default-age"),
		DefaultSwitches: p.getFloat("scoring", "default-app-switch-rate"),
		DefaultPickups:  p.getFloat("scoring", "default-pickup-count"),
	}
	config.Credentials = CredentialsData{
		Backend:     p.getString("credentials", "backend"),
		SQLitePath:  p.getString("credentials", "sqlite-path"),
		PostgresDSN: p.getString("credentials", "postgres-dsn"),
	}
	config.Coach = CoachData{
		APIKey:         p.getString("coach", "api-key"),
		Model:          p.getString("coach", "model"),
		APIEndpoint:    p.getString("coach", "api-endpoint"),
		TimeoutSeconds: p.getInt("coach", "timeout-seconds"),
		HistoryTurns:   p.getInt("coach", "history-turns"),
		MaxTurnChars:   p.getInt("coach", "max-turn-chars"),
	}
	if brokers := p.getString("kafka", "brokers"); brokers != "" {
		config.Events.Kafka = &KafkaData{
			Brokers: strings.Split(brokers, ","),
			Topic:   p.getString("kafka", "topic"),
		}
	}
	if p.err != nil {
		return nil, p.err
	}

	config.Controllers, err = s.loadControllers()
	if err != nil {
		return nil, err
	}

	return config, nil
}

func (s *SQLiteProvider) loadSettings() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT section, key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var section, key, value string
		if err := rows.Scan(&section, &key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings[section+"."+key] = value
	}
	return settings, rows.Err()
}

func (s *SQLiteProvider) loadControllers() ([]ControllerData, error) {
	rows, err := s.db.Query(`SELECT type, listen_addr, port, cert, key, enable_cors FROM controllers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query controllers: %w", err)
	}
	defer rows.Close()

	var controllers []ControllerData
	for rows.Next() {
		var typ, listenAddr, cert, key string
		var port int
		var cors bool
		if err := rows.Scan(&typ, &listenAddr, &port, &cert, &key, &cors); err != nil {
			return nil, fmt.Errorf("failed to scan controller: %w", err)
		}

		c := ControllerData{Type: typ}
		switch typ {
		case "rest":
			c.RESTServer = &RESTServerData{ListenAddr: listenAddr, Port: port, Cert: cert, Key: key, EnableCORS: cors}
		case "grpc":
			c.GRPC = &GRPCData{ListenAddr: listenAddr, Port: port, Cert: cert, Key: key}
		}
		controllers = append(controllers, c)
	}
	return controllers, rows.Err()
}

// IsReadOnly returns false since SQLite supports writes
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// settingParser converts string settings and remembers the first failure
type settingParser struct {
	settings map[string]string
	err      error
}

func (p *settingParser) getString(section, key string) string {
	return p.settings[section+"."+key]
}

func (p *settingParser) getInt(section, key string) int {
	v := p.getString(section, key)
	if v == "" || p.err != nil {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.err = fmt.Errorf("setting %s.%s: %w", section, key, err)
	}
	return n
}

func (p *settingParser) getUint(section, key string) uint64 {
	v := p.getString(section, key)
	if v == "" || p.err != nil {
		return 0
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		p.err = fmt.Errorf("setting %s.%s: %w", section, key, err)
	}
	return n
}

func (p *settingParser) getFloat(section, key string) float64 {
	v := p.getString(section, key)
	if v == "" || p.err != nil {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.err = fmt.Errorf("setting %s.%s: %w", section, key, err)
	}
	return f
}
