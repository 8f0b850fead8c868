package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"headwatch/internal/history"
	"headwatch/internal/metrics"
	"headwatch/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the headwatch HTTP server",
	Run: func(cmd *cobra.Command, args []string) {
		runServe(cmd)
	},
}

func runServe(cmd *cobra.Command) {
	conf := loadConfig(cmd)

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	m := metrics.New()
	a := newApp(ctx, conf, m)
	defer a.Close()

	store, err := history.Open(conf.HistoryDir(), logrus.WithField("component", "history"))
	if err != nil {
		logrus.Fatal("failed to open history", err)
	}
	defer store.Close()

	// nobody renders the visual alert in server mode, so log it
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-a.visual.Signals():
				logrus.Warnf("visual alert: %d heads", sig.HeadCount)
			}
		}
	}()

	srv := server.NewServer(ctx, conf, a.analyzer, a.catalog, store, m)
	go srv.Start()

	termChan := make(chan os.Signal, 1)
	signal.Notify(termChan, syscall.SIGINT, syscall.SIGTERM)

	<-termChan
	logrus.Infof("server is shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("server shutdown error: %v", err)
	}
}
