package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nftbiennial/auctionhouse"
	"github.com/nftbiennial/auctionhouse/common"
	"github.com/nftbiennial/auctionhouse/config"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name: "auctionhouse",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db_dir", Value: "./data/bolt", Usage: "bolt db dir path", EnvVars: []string{"DB_DIR"}},
			&cli.StringFlag{Name: "mysql", Value: "root@tcp(127.0.0.1:3306)/auctionhouse?charset=utf8mb4&parseTime=True&loc=Local", Usage: "mysql dsn", EnvVars: []string{"MYSQL"}},
			&cli.StringFlag{Name: "sqlite_dir", Value: "./data/sqlite", Usage: "sqlite db dir path", EnvVars: []string{"SQLITE_DIR"}},
			&cli.BoolFlag{Name: "use_sqlite", Value: false, Usage: "run with sqlite instead of mysql", EnvVars: []string{"USE_SQLITE"}},
			&cli.BoolFlag{Name: "s3_flag", Value: false, Usage: "run with s3 store", EnvVars: []string{"S3_FLAG"}},
			&cli.StringFlag{Name: "s3_acc_key", Value: "", Usage: "s3 access key", EnvVars: []string{"S3_ACC_KEY"}},
			&cli.StringFlag{Name: "s3_secret_key", Value: "", Usage: "s3 secret key", EnvVars: []string{"S3_SECRET_KEY"}},
			&cli.StringFlag{Name: "s3_prefix", Value: "auctionhouse", Usage: "s3 bucket name prefix", EnvVars: []string{"S3_PREFIX"}},
			&cli.StringFlag{Name: "s3_region", Value: "ap-northeast-1", Usage: "s3 bucket region", EnvVars: []string{"S3_REGION"}},
			&cli.StringFlag{Name: "s3_endpoint", Value: "", Usage: "s3 endpoint", EnvVars: []string{"S3_ENDPOINT"}},

			&cli.StringFlag{Name: "custody", Value: "http://127.0.0.1:8091", Usage: "asset custody service url", EnvVars: []string{"CUSTODY"}},
			&cli.StringFlag{Name: "ledger", Value: "http://127.0.0.1:8092", Usage: "native currency ledger url", EnvVars: []string{"LEDGER"}},
			&cli.StringFlag{Name: "kafka", Value: "", Usage: "kafka uri, empty disables events", EnvVars: []string{"KAFKA"}},

			&cli.StringFlag{Name: "escrow", Value: "ah_escrow", Usage: "escrow account", EnvVars: []string{"ESCROW"}},
			&cli.StringFlag{Name: "fee_recipient", Value: "", Usage: "platform fee recipient account", EnvVars: []string{"FEE_RECIPIENT"}},
			&cli.StringFlag{Name: "operator", Value: "", Usage: "auto settle caller account", EnvVars: []string{"OPERATOR"}},
			&cli.StringFlag{Name: "mods", Value: "", Usage: "comma separated initial moderators", EnvVars: []string{"MODS"}},
			&cli.BoolFlag{Name: "snapshot_fee", Value: false, Usage: "freeze platform fee into each auction at creation", EnvVars: []string{"SNAPSHOT_FEE"}},
			&cli.BoolFlag{Name: "auto_settle", Value: false, Usage: "settle ended auctions automatically", EnvVars: []string{"AUTO_SETTLE"}},
			&cli.IntFlag{Name: "rate_limit", Value: 0, Usage: "requests per minute per ip, 0 disables", EnvVars: []string{"RATE_LIMIT"}},

			&cli.StringFlag{Name: "port", Value: ":8080", EnvVars: []string{"PORT"}},
		},
		Action: run,
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	mods := make([]string, 0)
	for _, m := range strings.Split(c.String("mods"), ",") {
		if m = strings.TrimSpace(m); m != "" {
			mods = append(mods, m)
		}
	}

	cfg := config.New(
		c.String("escrow"), c.String("fee_recipient"), c.String("operator"),
		c.Bool("snapshot_fee"), c.Bool("auto_settle"), c.Int("rate_limit"),
	)

	s := auctionhouse.New(
		c.String("db_dir"), c.String("mysql"), c.String("sqlite_dir"), c.Bool("use_sqlite"),
		c.Bool("s3_flag"), c.String("s3_acc_key"), c.String("s3_secret_key"), c.String("s3_prefix"), c.String("s3_region"), c.String("s3_endpoint"),
		c.String("custody"), c.String("ledger"), c.String("kafka"),
		mods, cfg,
	)
	common.NewMetricServer()
	s.Run(c.String("port"))

	<-signals
	s.Close()

	return nil
}
