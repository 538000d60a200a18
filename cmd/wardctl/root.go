package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:           "wardctl",
	Short:         "Operations CLI for the Ward allocation service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("server", "http://localhost:8080", "Ward server base URL")
	rootCmd.PersistentFlags().String("base-path", "/api", "API base path on the server")

	viper.SetEnvPrefix("WARDCTL")
	viper.AutomaticEnv()
	viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	viper.BindPFlag("base_path", rootCmd.PersistentFlags().Lookup("base-path"))

	rootCmd.AddCommand(
		newSubmitCmd(),
		newRequestsCmd(),
		newRunsCmd(),
		newResourcesCmd(),
	)
}
