package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stagedoor-labs/kiosk-payments/config"
)

var rootCmd = &cobra.Command{
	Use:   "kiosk-payments",
	Short: "Theatrical kiosk payments service",
	Long:  "Payment creation, gateway feedback handling, status reconciliation and booking side effects for the theatrical kiosk.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func configureLogging(cfg *config.Config) error {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.JSONFormatter{})
	return nil
}
