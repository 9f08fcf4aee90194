package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"fieldcore/config"
	"fieldcore/engine"
	"fieldcore/ledger"
	"fieldcore/messaging"
	"fieldcore/store"
	"fieldcore/www"
)

var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "fieldcore.yaml", "path to config file")
	flag.Parse()

	if *showVersion {
		fmt.Println("fieldcore", version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("main: load config: %v", err)
	}

	db, err := store.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("main: open database: %v", err)
	}
	defer db.Close()
	log.Printf("main: database ready (%s)", db.Driver())

	// Redis is an accelerator, not a requirement. A dead Redis means SQL-only
	// reads, not a dead service.
	var cache *ledger.RedisCache
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Printf("main: redis unavailable at %s, running without cache: %v", cfg.Redis.Address, err)
	} else {
		cache = ledger.NewRedisCache(rdb)
		log.Printf("main: redis connected at %s", cfg.Redis.Address)
	}
	cancel()

	mgr := ledger.NewManager(db, cache)
	if cache != nil {
		if err := mgr.SyncRedisFromSQL(); err != nil {
			log.Printf("main: sync redis from sql: %v", err)
		}
	}

	msgClient := messaging.NewClient(&cfg.Messaging)
	if err := msgClient.Connect(); err != nil {
		log.Printf("main: messaging connect (%s): %v", cfg.Messaging.Backend, err)
	}
	defer msgClient.Close()

	eng := engine.New(engine.Config{
		AppConfig: cfg,
		DB:        db,
		Ledger:    mgr,
		MsgClient: msgClient,
	})
	eng.Start()
	defer eng.Stop()

	drainer := messaging.NewOutboxDrainer(db, msgClient, cfg.Messaging.OutboxDrainInterval.Std())
	drainer.Start()
	defer drainer.Stop()

	router, stopRouter := www.NewRouter(eng)
	defer stopRouter()

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	server := &http.Server{Addr: addr, Handler: router}
	go func() {
		log.Printf("main: fieldcore %s listening on %s", version, addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("main: http server: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Printf("main: shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("main: http shutdown: %v", err)
	}
}
