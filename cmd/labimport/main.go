package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/otcheredev/clinic-console/internal/apiclient"
	"github.com/otcheredev/clinic-console/internal/config"
	"github.com/otcheredev/clinic-console/internal/labimport"
	"github.com/otcheredev/clinic-console/pkg/logger"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "labimport",
		Short: "Bulk import lab results into patient records",
	}
	rootCmd.PersistentFlags().String("api", "", "Clinical API base URL (default API_BASE_URL)")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level")

	rootCmd.AddCommand(previewCmd())
	rootCmd.AddCommand(runCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openSheet(path string) (*labimport.Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return labimport.Parse(path, f)
}

func previewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview FILE",
		Short: "Show the columns and leading rows of a results file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, _ := cmd.Flags().GetInt("rows")
			sheet, err := openSheet(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d rows\n", sheet.Name, len(sheet.Rows))
			fmt.Fprintln(out, strings.Join(sheet.Headers, "\t"))
			for _, row := range sheet.Preview(rows) {
				cells := make([]string, len(sheet.Headers))
				for i, h := range sheet.Headers {
					cells[i] = row[h]
				}
				fmt.Fprintln(out, strings.Join(cells, "\t"))
			}
			return nil
		},
	}
	cmd.Flags().Int("rows", 10, "Number of rows to show")
	return cmd
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Attach every row of a results file to its patient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, _ := cmd.Flags().GetString("log-level")
			logger.InitWriter(level, "console", os.Stderr)

			client, err := authenticate(cmd)
			if err != nil {
				return err
			}
			sheet, err := openSheet(args[0])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			p, err := labimport.NewImporter(client).Run(ctx, sheet.Rows, func(p labimport.Progress, res labimport.RowResult) {
				status := "ok"
				if res.Err != nil {
					status = res.Err.Error()
				}
				fmt.Fprintf(out, "[%d/%d] row %d %s: %s\n", p.Current, p.Total, res.Index+1, res.Key, status)
			})
			fmt.Fprintf(out, "Import finished: %d succeeded, %d failed of %d\n", p.Success, p.Fail, p.Total)
			if errors.Is(err, context.Canceled) {
				return errors.New("import interrupted")
			}
			return err
		},
	}
	cmd.Flags().String("token", "", "Bearer token (default CLINIC_TOKEN)")
	cmd.Flags().String("username", "", "Log in with this username instead of a token")
	cmd.Flags().String("password", "", "Password for --username (default CLINIC_PASSWORD)")
	return cmd
}

// authenticate builds a client from --token, or logs in with --username.
func authenticate(cmd *cobra.Command) (*apiclient.Client, error) {
	base, _ := cmd.Flags().GetString("api")
	if base == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		base = cfg.API.BaseURL
	}
	client := apiclient.New(apiclient.Config{BaseURL: strings.TrimRight(base, "/")})

	token, _ := cmd.Flags().GetString("token")
	if token == "" {
		token = os.Getenv("CLINIC_TOKEN")
	}
	username, _ := cmd.Flags().GetString("username")
	if username != "" {
		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			password = os.Getenv("CLINIC_PASSWORD")
		}
		var err error
		token, err = client.Login(cmd.Context(), username, password)
		if err != nil {
			return nil, fmt.Errorf("login failed: %s", apiclient.Message(err, err.Error()))
		}
		log.Info().Str("user", username).Msg("Logged in")
	}
	if token == "" {
		return nil, errors.New("a token or --username is required")
	}
	return client.WithToken(token), nil
}
