package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"headwatch/internal/config"
	"headwatch/internal/detector"
	"headwatch/internal/server"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Tools for headwatch",
	Long:  `Various tools and utilities for the headwatch application.`,
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of the config file",
	Run: func(cmd *cobra.Command, args []string) {
		data, err := config.Schema()
		if err != nil {
			logrus.Fatalf("marshal schema: %v", err)
		}
		fmt.Println(string(data))
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check that the Triton server and the detection model are ready",
	Run: func(cmd *cobra.Command, args []string) {
		conf := loadConfig(cmd)
		backend, err := detector.NewTritonBackend(conf.Detector)
		if err != nil {
			logrus.Fatalf("Failed to create Triton client: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := backend.Ready(ctx); err != nil {
			logrus.Errorf("model %s on %s is not ready: %v", conf.Detector.ModelName, conf.Detector.ServerAddr, err)
			cancel()
			os.Exit(1)
		}
		fmt.Printf("model %s on %s is ready\n", conf.Detector.ModelName, conf.Detector.ServerAddr)
	},
}

var (
	tokenOperator string
	tokenTTL      time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API token signed with server.jwtSecret",
	Run: func(cmd *cobra.Command, args []string) {
		conf := loadConfig(cmd)
		token, err := server.GenToken(conf.Server.JwtSecret, tokenOperator, tokenTTL)
		if err != nil {
			logrus.Fatalf("generate token: %v", err)
		}
		fmt.Println(token)
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenOperator, "operator", "admin", "Operator name stored in the token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")

	toolsCmd.AddCommand(schemaCmd)
	toolsCmd.AddCommand(probeCmd)
	toolsCmd.AddCommand(tokenCmd)
}
