// cmd/server/main.go

// 本服務為攤位收銀的本機後端：畫面端（瀏覽器或桌面殼層）透過 HTTP 呼叫。
// 此檔案負責讀取設定、建立 logger、初始化資料目錄（storage）與收銀 Session（register），
// 並啟動 HTTP 伺服器；收到 SIGINT/SIGTERM 時優雅關閉。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"pointsale/internal/config"
	"pointsale/internal/logging"
	"pointsale/internal/register"
	"pointsale/internal/server"
	"pointsale/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to config file (toml, yaml or json)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer log.Sync()

	// 資料目錄：設定檔與紀錄檔共用；缺少的設定檔會以預設值建立
	store, err := storage.NewStore(cfg.DataDir, log.Named("store"))
	if err != nil {
		return err
	}
	ledger, err := storage.NewLedger(cfg.DataDir, log.Named("ledger"))
	if err != nil {
		return err
	}
	sess, err := register.Open(store, ledger, register.WithLogger(log.Named("register")))
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}

	s := server.NewServer(sess, log.Named("http"), cfg.CORS.AllowedOrigins...)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("pointsale server running", zap.String("addr", cfg.Listen), zap.String("data_dir", cfg.DataDir))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	// 每次變更都已同步寫入檔案，關閉時只需等待進行中的請求完成
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
