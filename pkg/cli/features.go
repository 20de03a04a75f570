package cli

import (
	"context"
	"fmt"

	"github.com/mchmarny/riskview/pkg/model"
	urfave "github.com/urfave/cli/v3"
)

var (
	featureFlag = &urfave.StringSliceFlag{
		Name:    "feature",
		Aliases: []string{"f"},
		Usage:   "Feature to include, repeat for more (default: top ranked features)",
	}

	topFlag = &urfave.IntFlag{
		Name:  "top",
		Usage: "Number of top ranked features to show when none are selected",
		Value: model.DefaultTopN,
	}

	featuresCmd = &urfave.Command{
		Name:            "features",
		Aliases:         []string{"f"},
		HideHelpCommand: true,
		Usage:           "Rank the scored table features by model importance",
		Action:          cmdFeatures,
		Flags: []urfave.Flag{
			featureFlag,
			topFlag,
		},
	}

	edaCmd = &urfave.Command{
		Name:            "eda",
		HideHelpCommand: true,
		Usage:           "Count loan applications by education type",
		Action:          cmdEDA,
	}
)

func cmdFeatures(ctx context.Context, cmd *urfave.Command) error {
	conn, err := loadConnection(cmd)
	if err != nil {
		return err
	}

	d := newDashboard(ctx, conn, false)
	defer d.close()

	v, err := d.featureImportance(ctx, cmd.StringSlice(featureFlag.Name), int(cmd.Int(topFlag.Name)))
	if err != nil {
		return fmt.Errorf("ranking features: %w", err)
	}

	return encode(writer(cmd), cmd.String(formatFlag.Name), v)
}

func cmdEDA(ctx context.Context, cmd *urfave.Command) error {
	conn, err := loadConnection(cmd)
	if err != nil {
		return err
	}

	d := newDashboard(ctx, conn, false)
	defer d.close()

	v, err := d.education(ctx)
	if err != nil {
		return fmt.Errorf("counting education types: %w", err)
	}

	return encode(writer(cmd), cmd.String(formatFlag.Name), v)
}
