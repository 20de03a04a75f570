package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mchmarny/riskview/pkg/config"
	urfave "github.com/urfave/cli/v3"
)

var (
	forceFlag = &urfave.BoolFlag{
		Name:  "force",
		Usage: "Overwrite existing files",
	}

	initCmd = &urfave.Command{
		Name:            "init",
		HideHelpCommand: true,
		Usage:           "Write a connection file with default settings",
		Action:          cmdInit,
		Flags: []urfave.Flag{
			forceFlag,
		},
	}
)

func cmdInit(_ context.Context, cmd *urfave.Command) error {
	path := cmd.String(configFlag.Name)

	if _, err := os.Stat(path); err == nil && !cmd.Bool(forceFlag.Name) {
		return fmt.Errorf("connection file %s already exists, use --%s to overwrite", path, forceFlag.Name)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", path, err)
	}

	if err := config.Save(path, config.Default()); err != nil {
		return err
	}

	fmt.Fprintf(writer(cmd), "Connection file written to %s\n", path)
	return nil
}
