package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/killallgit/strand/pkg/config"
	"github.com/killallgit/strand/pkg/logger"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "strand",
	Short: "Streaming chat client",
	Long:  `Terminal client for a streaming AI chat backend with inline tool call placement.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		if err := config.EnsureSettingsDir(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if err := logger.Init(); err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Close()

		app, err := NewApp(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer app.Cleanup()

		ctx := context.Background()
		prompt := viper.GetString("prompt")

		if prompt != "" {
			err = app.RunPrompt(ctx, prompt)
		} else {
			err = app.RunInteractive(ctx)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", ".strand/settings.yaml", "config file (default is .strand/settings.yaml)")

	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level")
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.PersistentFlags().StringP("prompt", "p", "", "send a single prompt and exit")
	viper.BindPFlag("prompt", rootCmd.PersistentFlags().Lookup("prompt"))

	rootCmd.PersistentFlags().Bool("continue", false, "restore the cached transcript before chatting")
	viper.BindPFlag("continue", rootCmd.PersistentFlags().Lookup("continue"))

	rootCmd.PersistentFlags().String("server", "", "backend base URL")
	viper.BindPFlag("backend.url", rootCmd.PersistentFlags().Lookup("server"))

	rootCmd.PersistentFlags().String("token", "", "backend auth token")
	viper.BindPFlag("backend.token", rootCmd.PersistentFlags().Lookup("token"))

	rootCmd.PersistentFlags().String("agent", "", "agent id to converse with")
	viper.BindPFlag("agent_id", rootCmd.PersistentFlags().Lookup("agent"))

	viper.SetDefault("backend.url", "http://localhost:8080")
	viper.SetDefault("backend.timeout", "90s")

	viper.SetDefault("reconcile.delay", "500ms")
	viper.SetDefault("reconcile.attempts", 3)
	viper.SetDefault("reconcile.fetch_limit", 50)

	viper.SetDefault("history.enabled", true)
	viper.SetDefault("history.path", "./.strand/history.db")

	viper.SetDefault("logging.log_file", "./.strand/system.log")
	viper.SetDefault("logging.preserve", true)
	viper.SetDefault("logging.level", "info")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("./.strand")
		viper.SetConfigType("yaml")
		viper.SetConfigName("settings")
	}

	viper.SetEnvPrefix("STRAND")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}
