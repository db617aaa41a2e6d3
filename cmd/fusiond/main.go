package main

import (
	"context"
	"flag"
	"io/ioutil"
	"log"
	"net/http"
	"os"
	"path"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/waxfusion/fusiond/src/common"
	"github.com/waxfusion/fusiond/src/fusiond"
	"github.com/waxfusion/fusiond/src/postgres"
)

func main() {
	pwd, _ := os.Getwd()
	fullPath := path.Join(pwd, "config.yaml")
	log.Printf("loading config @ `%s`", fullPath)
	rawCfg, err := ioutil.ReadFile(fullPath)
	if err != nil {
		log.Printf("config file not found: %s", err)
		os.Exit(1)
	}
	cfg := fusiond.Config{}
	if err := yaml.Unmarshal(rawCfg, &cfg); err != nil {
		log.Printf("failed parsing config file: %s", err)
		os.Exit(1)
	}

	flag.StringVar(&cfg.PromPort, "prom", cfg.PromPort, "address to serve prom stats, default `:2112`")
	flag.StringVar(&cfg.APIPort, "api", cfg.APIPort, `address to serve the read-only status api, default ""`)
	flag.StringVar(&cfg.LogLevel, "loglevel", cfg.LogLevel, `zap log level, default "info"`)
	flag.StringVar(&cfg.HealthCheckPort, "hcp", cfg.HealthCheckPort, `(rarely used) if defined will expose a health check on /readyz, default ""`)
	flag.StringVar(&cfg.PostgresConfig, "pg", cfg.PostgresConfig, `config string for the postgres connection"`)
	flag.StringVar(&cfg.RedisAddress, "redis", cfg.RedisAddress, `address of the redis instance for the rate feed"`)
	flag.StringVar(&cfg.Chain.SignerAddress, "signer", cfg.Chain.SignerAddress, `address of the action signing sidecar"`)
	flag.StringVar(&cfg.Chain.ChainAPI, "chain", cfg.Chain.ChainAPI, `address of the chain api"`)
	flag.BoolVar(&cfg.Chain.Mock, "mock", cfg.Chain.Mock, `use the in-memory mock chain"`)
	flag.Uint64Var(&cfg.GenesisTime, "genesis", cfg.GenesisTime, `epoch grid anchor for a fresh database"`)

	flag.Parse()

	log.Println("----------------------------------")
	log.Printf("initializing fusiond")
	log.Printf("\tchain api:     %s", cfg.Chain.ChainAPI)
	log.Printf("\tsigner:        %s", cfg.Chain.SignerAddress)
	log.Printf("\tprom:          %s", cfg.PromPort)
	log.Printf("\tapi:           %s", cfg.APIPort)
	log.Printf("\thealth check:  %s", cfg.HealthCheckPort)
	log.Printf("\tredis:         %s", cfg.RedisAddress)
	log.Printf("\tmock:  		 %t", cfg.Chain.Mock)
	log.Printf("\tprotocol:      %s", cfg.Protocol.ProtocolAccount)
	log.Println("----------------------------------")

	logger := common.ConfigureZap(common.ParseLogLevel(cfg.LogLevel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc, err := fusiond.NewService(ctx, cfg, logger)
	if err != nil {
		panic(err)
	}

	if cfg.PromPort != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.PromPort, nil); err != nil {
				logger.Error("prom server stopped", zap.Error(err))
			}
		}()
	}
	if cfg.APIPort != "" {
		go func() {
			if err := svc.StartAPI(cfg.APIPort); err != nil {
				logger.Error("status api stopped", zap.Error(err))
			}
		}()
	}
	if cfg.HealthCheckPort != "" {
		go beginReadyzHandler(cfg)
	}

	svc.StartPipelines(ctx)
}

func beginReadyzHandler(cfg fusiond.Config) {
	http.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		pg, err := postgres.GetConnection(r.Context())
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(errors.Wrap(err, "failed pinging postgres").Error()))
			return
		}
		defer pg.Close(r.Context())
		if err := pg.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(errors.Wrap(err, "failed pinging postgres").Error()))
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	go http.ListenAndServe(cfg.HealthCheckPort, nil)
}
