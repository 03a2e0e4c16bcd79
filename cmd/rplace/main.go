// Package main is the rplace entrypoint.
package main

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/JosticeMan/RPlace/internal/config"
	"github.com/JosticeMan/RPlace/internal/log"
)

// CLI command definitions.
var (
	logger logrus.FieldLogger = logrus.StandardLogger()

	env     config.Env
	envFile string

	rootCmd = &cobra.Command{
		Use:               "rplace",
		Short:             "A shared canvas where every user recolours one tile at a time.",
		PersistentPreRunE: loadEnv,
		SilenceErrors:     true,
	}

	serverCmd = &cobra.Command{
		Use:   "server <port> <dim>",
		Short: "Starts a place server hosting a dim x dim board.",
		Args:  serverArgs,
		RunE:  runServer,
	}

	clientCmd = &cobra.Command{
		Use:   "client <host> <port> <username>",
		Short: "Connects to a place server from the console.",
		Args:  clientArgs,
		RunE:  runClient,
	}

	schemaCmd = &cobra.Command{
		Use:   "schema",
		Short: "Prints the JSON schema of every protocol message.",
		Args:  cobra.NoArgs,
		RunE:  runSchema,
	}
)

// loadEnv runs after the arguments have been validated, so from here on a
// failure is not a usage problem.
func loadEnv(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true
	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	var err error
	env, err = config.Load(files...)
	if err != nil {
		return errors.Wrap(err, "load config failed")
	}
	log.SetLogger(env.LogLevel)
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "path of a .env file (default .env)")
	schemaCmd.Flags().StringVar(&schemaOut, "out", "", "write the schema to this path instead of stdout")

	rootCmd.AddCommand(
		serverCmd,
		clientCmd,
		schemaCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Fatal(errors.Wrap(err, "execute root command failed"))
	}
}
