package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/one39/enrollment/pkg/client"
)

const configDirName = ".enroll"

var (
	cfgFile      string
	outputFormat string
	serverURL    string
)

func init() {
	cobra.OnInitialize(initConfig)
}

// Execute runs the enroll CLI
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enroll",
		Short: "Operator tools for the coaching program enrollment service",
		Long: `enroll inspects the plan catalog, previews billing schedules and
reads the CRM board through a running enrollment API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.enroll/config.yaml)")
	cmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json, yaml")
	cmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (overrides config)")

	_ = viper.BindPFlag("server_url", cmd.PersistentFlags().Lookup("server"))

	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newPlansCmd())
	cmd.AddCommand(newScheduleCmd())
	cmd.AddCommand(newBoardCmd())

	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if dir, err := configDir(); err == nil {
		viper.AddConfigPath(dir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("ENROLL")
	viper.AutomaticEnv()

	viper.SetDefault("server_url", "http://localhost:8080")
	viper.SetDefault("output", "table")
	viper.SetDefault("billing.clamp_ceiling", true)

	_ = viper.ReadInConfig()
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, configDirName), nil
}

func newAPIClient() *client.Client {
	url := viper.GetString("server_url")
	if serverURL != "" {
		url = serverURL
	}
	return client.NewClient(client.Config{BaseURL: url})
}

func getOutputFormat() string {
	if outputFormat != "" && outputFormat != "table" {
		return outputFormat
	}
	return viper.GetString("output")
}
