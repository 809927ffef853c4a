package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"dbsnap/internal/config"
	"dbsnap/internal/logging"
)

var cfgFile string

// CLI flag variables
var (
	// Database connection overrides
	dbHost     string
	dbPort     int
	dbUsername string
	dbPassword string
	dbDatabase string

	// Operation flags
	verbose bool
	quiet   bool
	logFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dbsnap",
	Short: "Backup and restore engine for MySQL databases",
	Long: `dbsnap creates, validates and restores MySQL database backups.

Backups are produced as logical SQL dumps, compressed and optionally
encrypted, then written to a local directory or an S3, GCS or Azure
bucket. Every backup is tracked in a ledger so restores can verify the
artifact's size and checksum before touching the database.

Examples:
  # Take a full backup using the config file in the working directory
  dbsnap backup --type full

  # Incremental backup against an explicit server
  dbsnap backup --type incremental --db-host db.internal --db-user backup --db-name shop

  # Validate and restore a backup by id
  dbsnap validate 6a1f0c9e-6f6e-4d7a-9a3b-2f1d8c0b4e21
  dbsnap restore 6a1f0c9e-6f6e-4d7a-9a3b-2f1d8c0b4e21

  # Run the HTTP API with the cron scheduler
  dbsnap serve --config /etc/dbsnap/config.yaml

  # Reclaim expired backups
  dbsnap cleanup`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./dbsnap.yaml or $HOME/.dbsnap.yaml)")

	rootCmd.PersistentFlags().StringVar(&dbHost, "db-host", "", "database host")
	rootCmd.PersistentFlags().IntVar(&dbPort, "db-port", 0, "database port (default 3306)")
	rootCmd.PersistentFlags().StringVar(&dbUsername, "db-user", "", "database username")
	rootCmd.PersistentFlags().StringVar(&dbPassword, "db-password", "", "database password")
	rootCmd.PersistentFlags().StringVar(&dbDatabase, "db-name", "", "database name")

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to file as well as stdout")

	viper.BindPFlag("database.host", rootCmd.PersistentFlags().Lookup("db-host"))
	viper.BindPFlag("database.port", rootCmd.PersistentFlags().Lookup("db-port"))
	viper.BindPFlag("database.username", rootCmd.PersistentFlags().Lookup("db-user"))
	viper.BindPFlag("database.password", rootCmd.PersistentFlags().Lookup("db-password"))
	viper.BindPFlag("database.database", rootCmd.PersistentFlags().Lookup("db-name"))
	viper.BindPFlag("logging.log_file", rootCmd.PersistentFlags().Lookup("log-file"))

	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	rootCmd.AddCommand(createVersionCommand())
	rootCmd.AddCommand(createConfigCommand())
}

// initConfig locates the config file and wires DBSNAP_* environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName("dbsnap")
	}

	viper.SetEnvPrefix("DBSNAP")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		cfgFile = viper.ConfigFileUsed()
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", cfgFile)
		}
	}
}

// loadConfig builds the effective configuration from the config file,
// environment variables and CLI flag overrides.
func loadConfig() (*config.Config, error) {
	return config.NewLoader(cfgFile).LoadWithOverrides(func(cfg *config.Config) {
		if dbHost != "" {
			cfg.Database.Host = dbHost
		}
		if dbPort != 0 {
			cfg.Database.Port = dbPort
		}
		if dbUsername != "" {
			cfg.Database.Username = dbUsername
		}
		if dbPassword != "" {
			cfg.Database.Password = dbPassword
		}
		if dbDatabase != "" {
			cfg.Database.Database = dbDatabase
		}
		if logFile != "" {
			cfg.Logging.LogFile = logFile
		}
		if verbose {
			cfg.Logging.Level = logging.LogLevelVerbose
		}
		if quiet {
			cfg.Logging.Level = logging.LogLevelQuiet
		}
	})
}

// Version information (set by main package)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
	goVersion = "unknown"
)

// SetVersionInfo sets the version information from build flags
func SetVersionInfo(v, bt, gc, gv string) {
	version = v
	buildTime = bt
	gitCommit = gc
	goVersion = gv
}

// createVersionCommand creates the version subcommand
func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dbsnap version %s\n", version)
			fmt.Printf("Built: %s\n", buildTime)
			fmt.Printf("Commit: %s\n", gitCommit)
			fmt.Printf("Go version: %s\n", goVersion)
		},
	}
}

// createConfigCommand creates the config subcommand for generating a sample config
func createConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print a sample configuration file",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Print(sampleConfig)
		},
	}
}

const sampleConfig = `# dbsnap configuration
database:
  host: localhost
  port: 3306
  username: backup
  password: secret
  database: shop
  timeout: 30m

# exec shells out to mysqldump/mysql, sql dumps through a live connection
driver: exec

ledger:
  dsn: dbsnap.db

storage:
  provider: local          # local, s3, gcs, azure
  local:
    base_path: ./backups

backup:
  staging_dir: ""          # defaults to the OS temp directory
  compression: gzip        # none, gzip, zstd, lz4
  retention_days: 30

server:
  listen_addr: ":8080"
  shutdown_timeout: 10s

logging:
  level: normal            # quiet, normal, verbose, debug
  format: text             # text or json

# encryption:
#   enabled: true
#   key_source: env
#   key_env_var: DBSNAP_ENCRYPTION_KEY

schedules:
  - id: nightly-full
    name: Nightly full backup
    type: full
    cron: "0 2 * * *"
    active: true
    retention_days: 30
`
