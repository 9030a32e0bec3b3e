package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/angeloszaimis/string-search/internal/search"
)

var configFlag string

var rootCmd = &cobra.Command{
	Use:   "stringsearch",
	Short: "Exact-line string lookup over TCP",
	Long: `stringsearch answers whether a query string exists as a full line in a
dataset file. Clients open a connection, send one query and receive
"STRING EXISTS" or "STRING NOT EXIST" before the server closes the connection.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "",
		"Path to the YAML config file (default: ./config/config.yaml or ./config.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func createAlgorithm(logger *slog.Logger, name string) search.Algorithm {
	alg, err := search.New(name)
	if err != nil {
		logger.Warn("Unknown search algorithm, defaulting to linear", slog.String("requested", name))
		return search.NewLinearSearch()
	}
	return alg
}
