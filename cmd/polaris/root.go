package main

import (
	"fmt"
	"os"

	"github.com/harunnryd/polaris/internal/config"
	"github.com/harunnryd/polaris/internal/logger"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:          "polaris",
	Short:        "Polaris CMS assistant",
	Long:         `Polaris is the chat assistant of a headless CMS dashboard. It answers editors through an LLM that can read and write Contentstack content types and entries.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cmd)
		if err != nil {
			return err
		}

		logger.Setup(cfg.Server.LogLevel)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.polaris/config.yaml)")
	rootCmd.PersistentFlags().String("server.log_level", config.DefaultServerLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Int("server.port", config.DefaultServerPort, "server port")
	rootCmd.PersistentFlags().String("llm.provider", config.DefaultLLMProvider, "LLM provider (openai, anthropic, gemini)")
	rootCmd.PersistentFlags().String("llm.model", config.DefaultLLMModel, "LLM model")
}
