package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// FileName is the default connection file name, resolved against the working directory.
	FileName = "connection.json"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	PasswordEnvVar   = "RISKVIEW_PASSWORD"
	StageTokenEnvVar = "RISKVIEW_STAGE_TOKEN"

	defaultScoredTable      = "CREDIT_RISK_PREPARED_BALANCED_TRAIN_SCORED_XGB"
	defaultApplicationTable = "APPLICATION_RECORD"
	defaultLabelColumn      = "TARGET"
	defaultPredictionColumn = "PREDICTION"
	defaultEducationColumn  = "NAME_EDUCATION_TYPE"
	defaultModelFile        = "xgb_model.json"
	defaultPostgresPort     = 5432
	defaultSSLMode          = "require"

	dirMode  = 0700
	fileMode = 0600
)

// Tables names the warehouse tables the dashboard reads.
type Tables struct {
	Scored       string `json:"scored" yaml:"scored"`
	Applications string `json:"applications" yaml:"applications"`
}

// Columns names the well-known columns of those tables.
type Columns struct {
	Label      string `json:"label" yaml:"label"`
	Prediction string `json:"prediction" yaml:"prediction"`
	Education  string `json:"education" yaml:"education"`
}

// Stage is the remote location holding the model artifact.
type Stage struct {
	URL   string `json:"url" yaml:"url"`
	Token string `json:"token,omitempty" yaml:"token"`
	Model string `json:"model" yaml:"model"`
}

// Connection holds the warehouse connection parameters and the names of
// everything the dashboard reads through it.
type Connection struct {
	Driver     string  `json:"driver" yaml:"driver"`
	Host       string  `json:"host,omitempty" yaml:"host"`
	Port       int     `json:"port,omitempty" yaml:"port"`
	User       string  `json:"user,omitempty" yaml:"user"`
	Password   string  `json:"password,omitempty" yaml:"password"`
	Role       string  `json:"role,omitempty" yaml:"role"`
	Database   string  `json:"database,omitempty" yaml:"database"`
	Schema     string  `json:"schema,omitempty" yaml:"schema"`
	SSLMode    string  `json:"sslmode,omitempty" yaml:"sslmode"`
	Path       string  `json:"path,omitempty" yaml:"path"`
	Tables     Tables  `json:"tables" yaml:"tables"`
	Columns    Columns `json:"columns" yaml:"columns"`
	Stage      Stage   `json:"stage" yaml:"stage"`
	ScratchDir string  `json:"scratch_dir,omitempty" yaml:"scratch_dir"`
}

// Default returns a connection to a local postgres warehouse with all names defaulted.
func Default() *Connection {
	c := &Connection{
		Driver:   DriverPostgres,
		Host:     "localhost",
		User:     "riskview",
		Database: "credit",
		Stage: Stage{
			URL: "https://storage.example.com/ml_models",
		},
	}
	c.applyDefaults()
	return c
}

// SQLite returns a connection to the sqlite file at path with the model
// artifact staged at stage.
func SQLite(path, stage string) *Connection {
	c := &Connection{
		Driver: DriverSQLite,
		Path:   path,
		Stage: Stage{
			URL: stage,
		},
	}
	c.applyDefaults()
	return c
}

func (c *Connection) applyDefaults() {
	if c.Driver == "" {
		c.Driver = DriverPostgres
	}
	if c.Driver == DriverPostgres {
		if c.Port == 0 {
			c.Port = defaultPostgresPort
		}
		if c.SSLMode == "" {
			c.SSLMode = defaultSSLMode
		}
	}
	if c.Tables.Scored == "" {
		c.Tables.Scored = defaultScoredTable
	}
	if c.Tables.Applications == "" {
		c.Tables.Applications = defaultApplicationTable
	}
	if c.Columns.Label == "" {
		c.Columns.Label = defaultLabelColumn
	}
	if c.Columns.Prediction == "" {
		c.Columns.Prediction = defaultPredictionColumn
	}
	if c.Columns.Education == "" {
		c.Columns.Education = defaultEducationColumn
	}
	if c.Stage.Model == "" {
		c.Stage.Model = defaultModelFile
	}
	if c.ScratchDir == "" {
		c.ScratchDir = filepath.Join(os.TempDir(), "riskview")
	}
}

// Validate checks that the connection has what its driver needs.
func (c *Connection) Validate() error {
	if c == nil {
		return errors.New("connection required")
	}
	switch c.Driver {
	case DriverPostgres:
		if c.Host == "" || c.User == "" || c.Database == "" {
			return errors.New("postgres connection requires host, user and database")
		}
	case DriverSQLite:
		if c.Path == "" {
			return errors.New("sqlite connection requires path")
		}
	default:
		return fmt.Errorf("unsupported driver: %q (expected %s or %s)", c.Driver, DriverPostgres, DriverSQLite)
	}
	if c.Stage.URL == "" {
		return errors.New("stage url required")
	}
	return nil
}

// DSN returns the data source name for the configured driver.
func (c *Connection) DSN() (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}

	if c.Driver == DriverSQLite {
		return c.Path, nil
	}

	parts := []string{
		"host=" + pqValue(c.Host),
		"port=" + strconv.Itoa(c.Port),
		"user=" + pqValue(c.User),
		"dbname=" + pqValue(c.Database),
		"sslmode=" + pqValue(c.SSLMode),
	}
	if c.Password != "" {
		parts = append(parts, "password="+pqValue(c.Password))
	}
	if c.Schema != "" {
		parts = append(parts, "search_path="+pqValue(c.Schema))
	}
	if c.Role != "" {
		parts = append(parts, "role="+pqValue(c.Role))
	}
	return strings.Join(parts, " "), nil
}

// pqValue quotes a key=value DSN value when it is empty or holds spaces or quotes.
func pqValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// Save writes the connection as indented JSON to path.
func Save(path string, c *Connection) error {
	if path == "" {
		return errors.New("config path required")
	}
	if c == nil {
		return errors.New("config required")
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, dirMode); err != nil {
			return fmt.Errorf("failed to create dir %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, append(b, '\n'), fileMode); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// GetOrCreateHomeDir returns the app directory under the user home.
// The created flag is set to true if the directory was created.
func GetOrCreateHomeDir(name string) (path string, created bool, err error) {
	if name == "" {
		return "", false, errors.New("name cannot be empty")
	}

	if !strings.HasPrefix(name, ".") {
		name = "." + name
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("failed to get user home dir: %w", err)
	}
	slog.Debug("home dir", "path", home)

	dir := filepath.Join(home, name)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating dir", "path", dir)
		if err := os.Mkdir(dir, dirMode); err != nil {
			return "", false, fmt.Errorf("failed to create dir %s: %w", dir, err)
		}
		created = true
	}
	return dir, created, nil
}
