package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

import (
	"github.com/gorilla/mux"
)

import (
	"github.com/nanjiek/pixiu-urcu"
	"github.com/nanjiek/pixiu-urcu/internal/api"
	"github.com/nanjiek/pixiu-urcu/internal/config"
	"github.com/nanjiek/pixiu-urcu/internal/repo"
	"github.com/nanjiek/pixiu-urcu/internal/rules"
)

func main() {
	// 解析命令行参数
	confPath := flag.String("c", "configs/rules.yaml", "path to config file")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(*confPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	// 可选的后台回收器：被替换的快照在它的 goroutine 上销毁
	var rec *urcu.Reclaimer
	if cfg.Reclaim.Enabled {
		rec = urcu.NewReclaimer(cfg.Reclaim.WaitForStart, cfg.Reclaim.Interval())
		defer rec.Close()
	}

	// 初始化 Redis 连接
	rdb, err := repo.NewRedis(cfg, slog.Default())
	if err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	// Init rule store
	store := rules.NewStore(cfg, rdb, rec, slog.Default())
	if err := store.Bootstrap(rootCtx); err != nil {
		log.Fatalf("failed to bootstrap rules: %v", err)
	}
	go store.StartWatcher(rootCtx)

	// 初始化HTTP服务（只负责注册路由）
	httpServer := api.NewServer(cfg.Server, store)

	r := mux.NewRouter()
	httpServer.RegisterRoutes(r)

	// 原生 http.Server，方便优雅退出
	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: r,
	}

	go func() {
		log.Printf("server is running on %s (PID: %d)", cfg.Server.HTTPAddr, os.Getpid())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	// 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down server...")
	cancelRoot()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server shutdown failed: %v", err)
	}
	log.Println("server exited properly")
}
