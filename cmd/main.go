package main

import (
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	_ "nftmarket/docs"
	"nftmarket/pkg/config"
	"nftmarket/pkg/db"
	"nftmarket/pkg/logging"
)

// @title           NFT Market API
// @version         1.0
// @description     Fixed-price NFT marketplace: escrowed listings, royalty-aware sales and listing fees

// @BasePath  /
// @schemes   http https

// @securityDefinitions.basic  BasicAuth

func main() {
	if err := newApp().Run(os.Args); err != nil {
		zap.L().With(zap.Error(err)).Fatal("nftmarket exited")
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "nftmarket",
		Usage: "fixed-price NFT marketplace",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug", Usage: "enable debug logging", EnvVars: []string{"DEBUG"}},
			&cli.StringFlag{Name: "log-file", Usage: "append JSON logs to this file", EnvVars: []string{"LOG_FILE"}},
		},
		Before: func(c *cli.Context) error {
			if err := logging.NewLogger(c.String("log-file"), c.Bool("debug")); err != nil {
				return err
			}
			config.Load()
			return nil
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "apply the database schema and exit",
				Action: migrate,
			},
		},
	}
}

func migrate(c *cli.Context) error {
	cfg := config.Get()
	cfg.Database.ApplySchemaOnStart = true

	pool, err := db.Connect(c.Context, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	zap.L().Info("Schema applied")
	return nil
}
