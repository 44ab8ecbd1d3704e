package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/roster/internal/config"
	"github.com/JonMunkholm/roster/internal/core"
	"github.com/JonMunkholm/roster/internal/logging"
	"github.com/JonMunkholm/roster/internal/store"
)

// app holds what the store-backed commands share.
type app struct {
	envFile    string
	service    *core.Service
	closeStore func()
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "rosterctl",
		Short:         "Manage the student roster",
		Long:          "rosterctl imports, adds, lists and deletes student records using the same\nconfiguration as the roster server (environment variables or a .env file).",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.closeStore != nil {
				a.closeStore()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file to load if present")

	root.AddCommand(
		a.importCommand(),
		a.addCommand(),
		a.listCommand(),
		a.deleteCommand(),
		deriveIDCommand(),
	)
	return root
}

// open loads configuration and connects to the store.
func (a *app) open(cmd *cobra.Command) error {
	if _, err := os.Stat(a.envFile); err == nil {
		if err := godotenv.Load(a.envFile); err != nil {
			return fmt.Errorf("load %s: %w", a.envFile, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.SetupWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)

	st, closeStore, err := store.Open(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	a.closeStore = closeStore

	a.service, err = core.NewService(st, core.Options{
		BatchSize:         cfg.Store.BatchSize,
		RequireDepartment: cfg.Ingest.RequireDepartment,
		NamePrefix:        cfg.Ingest.NamePrefix,
	})
	return err
}

func (a *app) importCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Ingest one or more tabular files as a single request",
		Long: `Import reads every FILE as one tabular source (.csv, .tsv or .xlsx) and
writes all valid rows in one ingestion. A missing required column in any
file aborts the whole import with nothing written.`,
		Example: `  rosterctl import cse.csv ece.xlsx`,
		Args:    cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error { return a.open(cmd) },
		RunE: func(cmd *cobra.Command, args []string) error {
			sources := make([]core.Source, 0, len(args))
			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()
				sources = append(sources, core.Source{Name: filepath.Base(path), Format: format, Reader: f})
			}

			result, err := a.service.Ingest(cmd.Context(), sources)
			if err != nil {
				return err
			}
			printIngestResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "force a format for every file ("+strings.Join(core.FormatKeys(), ", ")+")")
	return cmd
}

func printIngestResult(w io.Writer, result *core.IngestResult) {
	fmt.Fprintf(w, "ingest %s: %d accepted, %d written, %d duplicates, %d rejected\n",
		result.IngestID, result.Accepted, result.Written, result.Duplicates, result.Rejected)
	for _, rr := range result.RejectedRows {
		fmt.Fprintf(w, "  rejected %s line %d: %s\n", rr.Source, rr.Line, rr.Reason)
	}
}

func (a *app) addCommand() *cobra.Command {
	fields := map[string]*string{}
	flagFor := map[string]string{
		core.FieldStudentID:    "id",
		core.FieldRollNumber:   "roll",
		core.FieldName:         "name",
		core.FieldBranch:       "branch",
		core.FieldSection:      "section",
		core.FieldAcademicYear: "year",
		core.FieldDepartment:   "department",
	}

	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Add or replace a single student record",
		Example: `  rosterctl add --roll 7 --branch CS --section A --year 2024`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error { return a.open(cmd) },
		RunE: func(cmd *cobra.Command, args []string) error {
			obj := make(map[string]any, len(fields))
			for field, v := range fields {
				if *v != "" {
					obj[field] = *v
				}
			}

			id, err := a.service.AddOne(cmd.Context(), core.NormalizeObject(obj))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	for field, flag := range flagFor {
		fields[field] = cmd.Flags().String(flag, "", field)
	}
	return cmd
}

func (a *app) listCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List every stored student record",
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error { return a.open(cmd) },
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := a.service.ListAll(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STUDENT ID\tROLL\tNAME\tBRANCH\tSECTION\tYEAR")
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					r.StudentID, r.RollNumber, r.Name, r.Branch, r.Section, r.AcademicYear)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")
	return cmd
}

func (a *app) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete STUDENT_ID",
		Short:   "Delete a student record (missing ids succeed)",
		Args:    cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error { return a.open(cmd) },
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.service.DeleteOne(cmd.Context(), args[0])
		},
	}
}

func deriveIDCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "derive-id BRANCH SECTION YEAR ROLL",
		Short:   "Print the studentId derived from the identifying fields",
		Example: `  rosterctl derive-id CS A 2024 7    # cs-a-2024-7`,
		Args:    cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), core.DeriveStudentID(args[0], args[1], args[2], args[3]))
			return nil
		},
	}
}
