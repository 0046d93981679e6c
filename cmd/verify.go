package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-ranker/internal/logger"
	"github.com/spigell/resume-ranker/internal/secrets"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check an API key against the configured analysis provider",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		verify(cmd)
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().String("key-file", "", "file with the API key to check")
	verifyCmd.Flags().String("key-env", "", "environment variable with the API key to check")
}

func verify(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	keyFile, _ := cmd.Flags().GetString("key-file")
	keyEnv, _ := cmd.Flags().GetString("key-env")

	key, err := secrets.Load(secrets.Source{Name: "api key", File: keyFile, Env: keyEnv})
	if err != nil {
		logger.Fatal("loading the api key", zap.Error(err), zap.String("hint", "use --key-file or --key-env"))
	}

	service, err := newVerifier(config.AI, logger)
	if err != nil {
		logger.Fatal("creating the analysis service", zap.Error(err))
	}

	result, err := service.VerifyCredentials(ctx, key)
	if err != nil {
		logger.Fatal("verifying the api key", zap.Error(err))
	}

	logger.Info("verification finished",
		zap.Bool("success", result.Success),
		zap.String("api_key", secrets.Mask(key)),
	)
	fmt.Println(result.Message)

	if !result.Success {
		os.Exit(1)
	}
}
