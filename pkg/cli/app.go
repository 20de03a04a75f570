package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/mchmarny/riskview/pkg/auth"
	"github.com/mchmarny/riskview/pkg/config"
	"github.com/mchmarny/riskview/pkg/logging"
	urfave "github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	appName        = "riskview"
	dirMode        = 0700
	keyringService = "riskview"

	formatJSON  = "json"
	formatYAML  = "yaml"
	formatTable = "table"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""

	debugFlag = &urfave.BoolFlag{
		Name:  "debug",
		Usage: "Prints verbose logs (optional, default: false)",
	}

	configFlag = &urfave.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to the warehouse connection file (JSON or YAML)",
		Value:   config.FileName,
		Sources: urfave.EnvVars("RISKVIEW_CONFIG"),
	}

	formatFlag = &urfave.StringFlag{
		Name:  "format",
		Usage: "Output format [json, yaml, table]",
		Value: formatTable,
	}
)

// Execute creates and runs the CLI application.
func Execute() {
	initLogging(false)

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func newApp() *urfave.Command {
	return &urfave.Command{
		Name:                  appName,
		Version:               fmt.Sprintf("%s (%s - %s)", version, commit, date),
		EnableShellCompletion: true,
		HideHelpCommand:       true,
		Usage:                 "Dashboard for a credit-risk model and the data it was scored on",
		Flags: []urfave.Flag{
			debugFlag,
			configFlag,
			formatFlag,
		},
		Commands: []*urfave.Command{
			serverCmd,
			featuresCmd,
			edaCmd,
			authCmd,
			initCmd,
			seedCmd,
		},
		Before: func(ctx context.Context, cmd *urfave.Command) (context.Context, error) {
			initLogging(cmd.Bool(debugFlag.Name))

			if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
				slog.Warn("error loading .env file", "error", err)
			}
			return ctx, nil
		},
	}
}

func initLogging(debug bool) {
	level := "info"
	if debug {
		level = "debug"
	}
	slog.SetDefault(logging.NewCLILogger(level))
}

func getHomeDir() string {
	dir, _, err := config.GetOrCreateHomeDir(appName)
	if err != nil {
		slog.Debug("error getting home dir, using current dir instead", "error", err)
		return "."
	}
	return dir
}

func secretStore() *auth.Store {
	return auth.NewStore(keyringService, getHomeDir())
}

// loadConnection reads the connection file and fills in secrets that are not
// in it from the keychain.
func loadConnection(cmd *urfave.Command) (*config.Connection, error) {
	path := cmd.String(configFlag.Name)
	conn, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading connection: %w", err)
	}

	store := secretStore()
	if conn.Password == "" && conn.Driver == config.DriverPostgres {
		conn.Password = lookupSecret(store, auth.KeyPassword)
	}
	if conn.Stage.Token == "" {
		conn.Stage.Token = lookupSecret(store, auth.KeyStageToken)
	}

	if !filepath.IsAbs(conn.Path) && conn.Path != "" {
		conn.Path = filepath.Join(filepath.Dir(path), conn.Path)
	}
	return conn, nil
}

func lookupSecret(s *auth.Store, key string) string {
	v, err := s.Get(key)
	if err != nil {
		if !errors.Is(err, auth.ErrSecretNotFound) {
			slog.Warn("error reading secret", "key", key, "error", err)
		}
		return ""
	}
	return v
}

func writer(cmd *urfave.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

// tabular is implemented by results that can print as a table.
type tabular interface {
	header() table.Row
	rows() []table.Row
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case formatYAML, "yml":
		return yaml.NewEncoder(w).Encode(v)
	case formatTable:
		if t, ok := v.(tabular); ok {
			renderTable(w, t)
			return nil
		}
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(v)
}

func renderTable(w io.Writer, v tabular) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(v.header())
	t.AppendRows(v.rows())
	t.Render()
}
