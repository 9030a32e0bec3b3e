package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/angeloszaimis/string-search/internal/client"
)

var queryFlags clientFlags

var queryCmd = &cobra.Command{
	Use:   "query [lines...]",
	Short: "Send queries to a running server",
	Long: `Send each argument as a separate query. Without arguments, read queries
from stdin one line at a time until EOF or "exit".

Examples:
  stringsearch query apple banana
  stringsearch query --tls --ca certs/server.crt
  cat queries.txt | stringsearch query`,
	RunE: runQuery,
}

func init() {
	queryFlags.register(queryCmd)
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	c, err := queryFlags.client()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if len(args) > 0 {
		for _, line := range args {
			if err := queryOne(cmd, c, line, out); err != nil {
				return err
			}
		}
		return nil
	}

	return queryLoop(cmd, c, cmd.InOrStdin(), out)
}

func queryLoop(cmd *cobra.Command, c *client.Client, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := scanner.Text()
		switch strings.TrimSpace(line) {
		case "exit", "quit":
			return nil
		}

		if err := queryOne(cmd, c, line, out); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
		}
	}
}

func queryOne(cmd *cobra.Command, c *client.Client, line string, out io.Writer) error {
	reply, err := c.Query(cmd.Context(), line)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, reply)
	return nil
}
