package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/clive/kiosk-go/internal/config"
	"github.com/clive/kiosk-go/internal/directory"
	"github.com/clive/kiosk-go/internal/logging"
)

func newDirectoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "directory",
		Short: "Student directory service",
		Long:  "Serve and manage the local student directory the kiosk looks school numbers up in.",
	}

	cmd.AddCommand(newDirectoryServeCmd())
	cmd.AddCommand(newDirectoryImportCmd())
	cmd.AddCommand(newDirectoryListCmd())
	return cmd
}

func newDirectoryServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve GET /api/students/{id}",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Directory.Port = port
			}
			return runDirectoryServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to kiosk config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default from config, 3131)")
	return cmd
}

func runDirectoryServe(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := logging.New(os.Stdout, cfg.Log.Level)

	db, err := directory.Open(cfg.Directory.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return err
	}
	defer db.Close()

	students := directory.NewStudentStore(db)
	if n, err := students.Count(); err == nil {
		logger.Info("directory loaded", "students", n, "db", cfg.Directory.DBPath)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	router := directory.NewRouter(students, cfg.Directory, logger)
	return directory.Serve(ctx, cfg.Directory.Port, router, logger)
}

func newDirectoryImportCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "import <roster.yaml>",
		Short: "Upsert students from a YAML roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open roster: %w", err)
			}
			defer f.Close()

			recs, err := directory.LoadRoster(f)
			if err != nil {
				return err
			}

			db, err := directory.Open(cfg.Directory.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := directory.NewStudentStore(db).Upsert(recs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d students into %s\n", n, cfg.Directory.DBPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to kiosk config file")
	return cmd
}

func newDirectoryListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List students in the directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			db, err := directory.Open(cfg.Directory.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			students, err := directory.NewStudentStore(db).List()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "OKUL NO\tAD SOYAD\tSINIF")
			for _, s := range students {
				fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, s.FullName(), s.ClassName)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to kiosk config file")
	return cmd
}
