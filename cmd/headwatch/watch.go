package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"headwatch/internal/consumer"
	"headwatch/internal/report"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print report events published to NSQ",
	Run: func(cmd *cobra.Command, args []string) {
		conf := loadConfig(cmd)
		if conf.NSQ.NSQDAddr == "" {
			logrus.Fatal("nsq.nsqdAddr is not configured")
		}

		c, err := consumer.NewConsumer(conf.NSQ, printEvent)
		if err != nil {
			logrus.Fatalf("Failed to create consumer: %v", err)
		}
		if err := c.Start(); err != nil {
			logrus.Fatalf("Failed to start consumer: %v", err)
		}

		termChan := make(chan os.Signal, 1)
		signal.Notify(termChan, syscall.SIGINT, syscall.SIGTERM)

		<-termChan
		logrus.Infof("consumer is shutting down...")
		c.Stop()
	},
}

func printEvent(ctx context.Context, ev *report.Event) error {
	ts := time.Unix(0, ev.Timestamp).Format(time.DateTime)
	fmt.Printf("%s [%s] %s: %s\n", ts, ev.Decision, ev.Source, ev.Message)
	for _, o := range ev.Outcomes {
		fmt.Printf("  %-15s %s %s\n", o.Channel, o.Status, o.Detail)
	}
	if ev.EvidencePath != "" {
		fmt.Printf("  evidence: %s\n", ev.EvidencePath)
	}
	return nil
}
