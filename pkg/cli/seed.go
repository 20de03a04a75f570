package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mchmarny/riskview/pkg/config"
	"github.com/mchmarny/riskview/pkg/model"
	"github.com/mchmarny/riskview/pkg/warehouse"
	urfave "github.com/urfave/cli/v3"
)

const (
	seedDBDefault    = "riskview.db"
	seedStageDefault = "stage"
	seedAlgorithm    = "xgboost"
)

// demoImportances are the importances of the demo model, keyed by the
// scored table feature columns.
var demoImportances = map[string]float64{
	"AMT_INCOME_TOTAL":   0.182,
	"DAYS_BIRTH":         0.164,
	"DAYS_EMPLOYED":      0.151,
	"MONTHS_BALANCE_MIN": 0.127,
	"CNT_FAM_MEMBERS":    0.074,
	"FLAG_OWN_REALTY":    0.061,
	"CODE_GENDER_M":      0.058,
	"FLAG_OWN_CAR":       0.052,
	"CNT_CHILDREN":       0.041,
	"FLAG_PHONE":         0.038,
	"FLAG_WORK_PHONE":    0.031,
	"FLAG_EMAIL":         0.021,
}

var (
	seedDBFlag = &urfave.StringFlag{
		Name:  "db",
		Usage: "Path of the sqlite warehouse file to create",
		Value: seedDBDefault,
	}

	seedStageFlag = &urfave.StringFlag{
		Name:  "stage",
		Usage: "Directory to stage the demo model artifact in",
		Value: seedStageDefault,
	}

	seedCmd = &urfave.Command{
		Name:            "seed",
		HideHelpCommand: true,
		Usage:           "Create a local demo warehouse, model artifact and connection file",
		Action:          cmdSeed,
		Flags: []urfave.Flag{
			seedDBFlag,
			seedStageFlag,
			forceFlag,
		},
	}
)

func cmdSeed(ctx context.Context, cmd *urfave.Command) error {
	dbPath, err := filepath.Abs(cmd.String(seedDBFlag.Name))
	if err != nil {
		return fmt.Errorf("resolving db path: %w", err)
	}
	stageDir, err := filepath.Abs(cmd.String(seedStageFlag.Name))
	if err != nil {
		return fmt.Errorf("resolving stage dir: %w", err)
	}
	confPath := cmd.String(configFlag.Name)

	if !cmd.Bool(forceFlag.Name) {
		for _, p := range []string{dbPath, confPath} {
			if _, err := os.Stat(p); err == nil {
				return fmt.Errorf("%s already exists, use --%s to overwrite", p, forceFlag.Name)
			} else if !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("checking %s: %w", p, err)
			}
		}
	}

	conn := config.SQLite(dbPath, "file://"+filepath.ToSlash(stageDir))

	if err := seedDemo(ctx, conn, stageDir); err != nil {
		return err
	}

	if err := config.Save(confPath, conn); err != nil {
		return err
	}

	fmt.Fprintf(writer(cmd), "Demo warehouse: %s\nModel artifact: %s\nConnection file: %s\n",
		dbPath, filepath.Join(stageDir, conn.Stage.Model), confPath)
	return nil
}

// seedDemo creates the demo tables in the warehouse of conn and stages a
// model artifact whose feature names follow the scored table columns.
func seedDemo(ctx context.Context, conn *config.Connection, stageDir string) error {
	if err := os.MkdirAll(filepath.Dir(conn.Path), dirMode); err != nil {
		return fmt.Errorf("creating dir for %s: %w", conn.Path, err)
	}

	dsn, err := conn.DSN()
	if err != nil {
		return err
	}

	s, err := warehouse.Open(ctx, conn.Driver, dsn)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := warehouse.Seed(ctx, s); err != nil {
		return err
	}

	tbl, err := warehouse.LoadTable(ctx, s, conn.Tables.Scored)
	if err != nil {
		return err
	}

	a := &model.Artifact{
		Algorithm: seedAlgorithm,
		Version:   version,
	}
	for _, f := range tbl.FeatureColumns(conn.Columns.Label, conn.Columns.Prediction) {
		a.FeatureNames = append(a.FeatureNames, f)
		a.FeatureImportances = append(a.FeatureImportances, demoImportances[f])
	}

	if err := os.MkdirAll(stageDir, dirMode); err != nil {
		return fmt.Errorf("creating stage dir %s: %w", stageDir, err)
	}

	p := filepath.Join(stageDir, conn.Stage.Model)
	if err := model.WriteFile(p, a); err != nil {
		return err
	}

	slog.Debug("demo seeded", "db", conn.Path, "artifact", p, "features", len(a.FeatureNames))
	return nil
}
