package main

import (
	"transfertrack/internal/db"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var migrateCommand = &cli.Command{
	Name:  "migrate",
	Usage: "Run database migrations to the latest version",
	Action: func(cCtx *cli.Context) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}

		if err := db.Migrate(cCtx.Context, config.DatabaseURL); err != nil {
			return err
		}

		logrus.Info("migrations applied")
		return nil
	},
}
