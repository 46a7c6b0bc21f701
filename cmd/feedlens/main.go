package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/feedlens/internal/logging"
	"github.com/hrygo/feedlens/internal/profile"
	"github.com/hrygo/feedlens/internal/version"
	"github.com/hrygo/feedlens/server"
	"github.com/hrygo/feedlens/store"
	"github.com/hrygo/feedlens/store/db"
)

var (
	rootCmd = &cobra.Command{
		Use:   "feedlens",
		Short: `A customer feedback service with AI sentiment classification and summaries.`,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			// Under systemd the environment comes from the unit file.
			if !isRunningAsSystemdService() {
				_ = godotenv.Load()
			}
			return nil
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			instanceProfile := &profile.Profile{
				Mode:    viper.GetString("mode"),
				Addr:    viper.GetString("addr"),
				Port:    viper.GetInt("port"),
				Data:    viper.GetString("data"),
				Driver:  viper.GetString("driver"),
				DSN:     viper.GetString("dsn"),
				Version: version.GetCurrentVersion(viper.GetString("mode")),
			}
			instanceProfile.FromEnv()
			if err := instanceProfile.Validate(); err != nil {
				return err
			}
			logging.Setup(instanceProfile.Mode, instanceProfile.LogLevel)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			dbDriver, err := db.NewDBDriver(instanceProfile)
			if err != nil {
				printDatabaseError(err, instanceProfile)
				slog.Error("failed to create db driver", "error", err)
				return err
			}

			storeInstance := store.New(dbDriver, instanceProfile)
			if err := storeInstance.Migrate(ctx); err != nil {
				slog.Error("failed to migrate", "error", err)
				return err
			}

			s, err := server.NewServer(ctx, instanceProfile, storeInstance)
			if err != nil {
				slog.Error("failed to create server", "error", err)
				return err
			}

			c := make(chan os.Signal, 1)
			signal.Notify(c, shutdownSignals...)

			if err := s.Start(ctx); err != nil {
				slog.Error("failed to start server", "error", err)
				return err
			}

			printGreetings(instanceProfile)

			go func() {
				<-c
				s.Shutdown(ctx)
				cancel()
			}()

			// Wait for CTRL-C.
			<-ctx.Done()
			return nil
		},
	}
)

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 8000)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8000, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver (sqlite, postgres)")
	rootCmd.PersistentFlags().String("dsn", "", "database source name(aka. DSN)")

	for _, name := range []string{"mode", "addr", "port", "data", "driver", "dsn"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("feedlens")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func printGreetings(profile *profile.Profile) {
	fmt.Printf("feedlens %s started successfully!\n", profile.Version)

	if profile.IsDev() {
		fmt.Fprint(os.Stderr, "Development mode is enabled\n")
		if profile.DSN != "" && profile.Driver == "sqlite" {
			fmt.Fprintf(os.Stderr, "Database: %s\n", profile.DSN)
		}
	}

	fmt.Printf("Data directory: %s\n", profile.Data)
	fmt.Printf("Database driver: %s\n", profile.Driver)
	fmt.Printf("Mode: %s\n", profile.Mode)
	if profile.IsAIEnabled() {
		fmt.Printf("LLM: %s (%s)\n", profile.LLMProvider, profile.LLMModel)
	} else {
		fmt.Println("LLM: disabled, sentiment uses keyword classification")
	}

	if len(profile.Addr) == 0 {
		fmt.Printf("Server running on port %d\n", profile.Port)
		fmt.Printf("Access feedlens at: http://localhost:%d\n", profile.Port)
	} else {
		fmt.Printf("Server running on %s:%d\n", profile.Addr, profile.Port)
		fmt.Printf("Access feedlens at: http://%s:%d\n", profile.Addr, profile.Port)
	}
}

// isRunningAsSystemdService detects if the process is running under systemd
func isRunningAsSystemdService() bool {
	return os.Getenv("INVOCATION_ID") != "" || os.Getenv("WATCHDOG_USEC") != ""
}

// printDatabaseError prints a hint for the most common connection failures.
func printDatabaseError(err error, profile *profile.Profile) {
	fmt.Fprintln(os.Stderr, "\nDatabase connection failed")

	errMsg := err.Error()
	switch {
	case strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "no such host"):
		fmt.Fprintln(os.Stderr, "PostgreSQL is not reachable. Check FEEDLENS_DSN or use --driver=sqlite.")
	case strings.Contains(errMsg, "SSL is not enabled") || strings.Contains(errMsg, "sslmode"):
		fmt.Fprintln(os.Stderr, "Add ?sslmode=disable to your DSN.")
	case strings.Contains(errMsg, "password authentication failed"):
		fmt.Fprintln(os.Stderr, "PostgreSQL authentication failed. Check the credentials in the DSN.")
	case strings.Contains(errMsg, "unable to open database file") || strings.Contains(errMsg, "permission denied"):
		fmt.Fprintf(os.Stderr, "Cannot open %s. Check that --data points to a writable directory.\n", profile.DSN)
	default:
		fmt.Fprintln(os.Stderr, "Error:", errMsg)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
