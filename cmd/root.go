package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shehryarbajwa/tabtrace/internal/config"
)

var version = "dev"

type app struct {
	v          *viper.Viper
	cfg        config.Config
	httpClient *http.Client
}

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:          "tabtrace",
		Short:        "tabtrace: per-tab browsing activity tracker",
		Long:         "tabtrace records how long each page stays active in each browser tab, submits finished sessions to an activity store, and serves that store.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("server-url", "", "activity store base URL")
	flags.String("agent-url", "", "tracker agent base URL")
	flags.String("env-file", ".env", "dotenv file to load before reading the environment")

	rootCmd.AddCommand(
		newVersionCmd(),
		newServeCmd(a),
		newTrackCmd(a),
		newPauseCmd(a),
		newResumeCmd(a),
		newStatusCmd(a),
		newActivitiesCmd(a),
		newDashboardCmd(a),
	)

	return rootCmd
}

// load resolves configuration once: .env, then TABTRACE_* variables, then changed flags
func (a *app) load(cmd *cobra.Command) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}

	v, err := config.New()
	if err != nil {
		return fmt.Errorf("wire config: %w", err)
	}

	bindings := map[string]string{
		"server-url": config.KeyServerURL,
		"agent-url":  config.KeyAgentURL,
		"db":         config.KeyStoreDBPath,
		"state":      config.KeyAgentStatePath,
	}
	for flag, key := range bindings {
		if !cmd.Flags().Changed(flag) {
			continue
		}
		value, err := cmd.Flags().GetString(flag)
		if err != nil {
			return err
		}
		v.Set(key, value)
	}

	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	a.v = v
	a.cfg = cfg
	a.httpClient = &http.Client{Timeout: cfg.SubmitTimeout}
	return nil
}

// listenAddr returns the --addr flag when set, otherwise fallback
func listenAddr(cmd *cobra.Command, fallback string) string {
	if cmd.Flags().Changed("addr") {
		addr, _ := cmd.Flags().GetString("addr")
		return addr
	}
	return fallback
}

const shutdownTimeout = 10 * time.Second
