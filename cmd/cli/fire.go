package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"castflow/internal/config"
	"castflow/internal/services"
	"castflow/pkg/notify"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	fireParams string
	fireReal   bool
	fireBy     string
)

// fireCmd fires a trigger against the configured database. Test mode by
// default; --real performs actual delivery.
var fireCmd = &cobra.Command{
	Use:   "fire <trigger>",
	Short: "Fire an automation trigger with a JSON parameter bag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()

		params := map[string]interface{}{}
		if fireParams != "" {
			if err := json.Unmarshal([]byte(fireParams), &params); err != nil {
				return fmt.Errorf("invalid --params JSON: %w", err)
			}
		}

		appLogger := logrus.StandardLogger()
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
			cfg.Database.Host, cfg.Database.User, cfg.Database.Password, cfg.Database.Name, cfg.Database.Port)
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}

		notifyCfg := notify.Config{
			SlackWebhookURL: cfg.Notify.SlackWebhookURL,
			EmailRelayURL:   cfg.Notify.EmailRelayURL,
			EmailRelayKey:   cfg.Notify.EmailRelayKey,
			Timeout:         cfg.Notify.Timeout,
		}
		svc := services.NewAutomationService(db, appLogger,
			services.DefaultExecutors(
				notify.NewSlackClient(notifyCfg, appLogger),
				notify.NewEmailClient(notifyCfg, appLogger),
				notify.NewWebhookClient(notifyCfg, appLogger),
			),
			services.EngineOptions{
				InvocationTimeout: cfg.Automation.InvocationTimeout,
				ActionTimeout:     cfg.Automation.ActionTimeout,
				MaxLogLimit:       cfg.Automation.MaxLogLimit,
			})

		triggerName := args[0]
		if fireReal {
			if err := svc.Trigger(context.Background(), triggerName, params, services.TriggerOptions{ExecutedBy: fireBy}); err != nil {
				if errors.Is(err, services.ErrUnknownTrigger) {
					return err
				}
				return fmt.Errorf("trigger failed: %w", err)
			}
			fmt.Println("fired")
			return nil
		}

		result, err := svc.TestRun(context.Background(), triggerName, params, fireBy)
		if err != nil {
			return err
		}
		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Fprintln(os.Stdout, string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fireCmd)
	fireCmd.Flags().StringVar(&fireParams, "params", "", "JSON parameter bag for the event")
	fireCmd.Flags().BoolVar(&fireReal, "real", false, "perform actual delivery instead of a test run")
	fireCmd.Flags().StringVar(&fireBy, "by", "cli", "identity recorded in the execution log")
}
