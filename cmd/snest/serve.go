package main

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/polynest/nester/internal/api"
	"github.com/polynest/nester/internal/config"
	"github.com/polynest/nester/internal/extract"
	"github.com/polynest/nester/internal/history"
	"github.com/polynest/nester/internal/logging"
	"github.com/polynest/nester/internal/metrics"
)

func newServeCmd() *cobra.Command {
	var (
		port       string
		assetRoot  string
		jwtSecret  string
		redisAddr  string
		historyDSN string
		rateRPS    float64
		rateBurst  int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP nesting API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if port == "" {
				port = cfg.Server.Port
			}
			if jwtSecret == "" {
				return fmt.Errorf("serve: --jwt-secret is required")
			}

			logger := logging.New(cfg.Server.LogLevel)
			extractor, err := extract.NewImageExtractor()
			if err != nil {
				return err
			}

			srv := &api.Server{
				Extractor: extractor,
				Jobs:      api.NewJobStore(),
				Logger:    logger,
				AssetRoot: assetRoot,
				JWTSecret: []byte(jwtSecret),
				RateRPS:   rateRPS,
				RateBurst: rateBurst,
				Metrics:   metrics.New(),
			}

			if redisAddr != "" {
				client := redis.NewClient(&redis.Options{Addr: redisAddr})
				if err := client.Ping(cmd.Context()).Err(); err != nil {
					return fmt.Errorf("serve: connecting to redis at %s: %w", redisAddr, err)
				}
				srv.Progress = api.NewRedisProgressPublisher(client)
			}

			if historyDSN != "" {
				store, err := history.Open(cmd.Context(), history.Config{DSN: historyDSN})
				if err != nil {
					return err
				}
				srv.History = store
			}

			logger.Info("starting snest API server", "port", port)
			return srv.Router().Run(":" + port)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "HTTP port (defaults to config)")
	cmd.Flags().StringVar(&assetRoot, "asset-root", ".", "directory requested shape paths must resolve within")
	cmd.Flags().StringVar(&jwtSecret, "jwt-secret", "", "HMAC secret for bearer token validation (required)")
	cmd.Flags().StringVar(&redisAddr, "redis-addr", "", "Redis address for progress pub/sub (optional)")
	cmd.Flags().StringVar(&historyDSN, "history-dsn", "", "Postgres DSN for run history (optional)")
	cmd.Flags().Float64Var(&rateRPS, "rate-rps", 5, "requests/sec allowed per client")
	cmd.Flags().IntVar(&rateBurst, "rate-burst", 10, "burst size per client")

	return cmd
}
