package main

import (
	"transfertrack/internal/db"
	"transfertrack/internal/seed"
	"transfertrack/internal/store"

	"github.com/k0kubun/pp"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Upsert the fixture location and admin accounts",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Dump the seeded rows",
		},
	},
	Action: func(cCtx *cli.Context) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}

		pool, err := db.Connect(cCtx.Context, config)
		if err != nil {
			return err
		}
		defer pool.Close()

		users, err := seed.SeedUsers(cCtx.Context, store.NewUserRepository(pool))
		if err != nil {
			return err
		}

		if cCtx.Bool("verbose") {
			pp.Println(users)
		}

		logrus.WithField("count", len(users)).Info("seeded users")
		return nil
	},
}
