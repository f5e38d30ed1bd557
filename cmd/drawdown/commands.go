package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/config"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/domain"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/export"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/report"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/repository"
	"github.com/urfave/cli/v2"
)

func catalogCommand() *cli.Command {
	return &cli.Command{
		Name:   "catalog",
		Usage:  "Load the catalog and print its summary",
		Before: initApp,
		After:  closeApp,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "report",
				Usage: "Write a report as CSV instead: general, critical or categories",
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "Output file for --report (default stdout)",
			},
		},
		Action: runCatalog,
		Subcommands: []*cli.Command{
			{
				Name:  "files",
				Usage: "List Drive files of a folder, to find the catalog file id",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "folder-id", Usage: "Drive folder id"},
					&cli.StringFlag{Name: "path", Usage: "Folder path from the Drive root, e.g. estoque/catalogo"},
				},
				Action: runDriveFiles,
			},
		},
	}
}

func runCatalog(c *cli.Context) error {
	inventory := appFrom(c).Inventory

	var table export.Table
	switch c.String("report") {
	case "":
		summary, err := inventory.Summary(c.Context, report.Filter{})
		if err != nil {
			return err
		}
		bundles, err := inventory.Bundles(c.Context)
		if err != nil {
			return err
		}
		return printJSON(c.App.Writer, map[string]interface{}{
			"summary": summary,
			"bundles": len(bundles),
		})
	case "general":
		items, err := inventory.List(c.Context, report.Filter{})
		if err != nil {
			return err
		}
		table = report.InventoryTable(items)
	case "critical":
		critical, err := inventory.Critical(c.Context)
		if err != nil {
			return err
		}
		table = report.CriticalTable(critical)
	case "categories":
		stats, err := inventory.ByCategory(c.Context)
		if err != nil {
			return err
		}
		table = report.CategoryTable(stats)
	default:
		return fmt.Errorf("unknown report %q", c.String("report"))
	}

	return withOutput(c, c.String("out"), func(w io.Writer) error {
		return export.WriteCSV(w, table)
	})
}

func runDriveFiles(c *cli.Context) error {
	d := appFrom(c).Drive
	if d == nil {
		return fmt.Errorf("drive is not configured, set GOOGLE_DRIVE_CREDENTIALS_JSON")
	}

	folderID := c.String("folder-id")
	if path := c.String("path"); path != "" {
		id, err := d.FindFolderByPath(c.Context, path)
		if err != nil {
			return err
		}
		folderID = id
	}

	files, err := d.ListFiles(c.Context, folderID)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, files)
}

func fileFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "file",
		Aliases:  []string{"f"},
		Usage:    "Sales or invoice file (.csv, .xlsx, .xls)",
		Required: true,
	}
}

func readUpload(c *cli.Context) (string, []byte, error) {
	path := c.String("file")
	content, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("read %s: %w", path, err)
	}
	return filepath.Base(path), content, nil
}

func previewCommand() *cli.Command {
	return &cli.Command{
		Name:  "preview",
		Usage: "Reconcile a file against the catalog without changing stock",
		Flags: []cli.Flag{
			fileFlag(),
			&cli.StringFlag{Name: "matched-out", Usage: "Write the matched lines as CSV"},
			&cli.StringFlag{Name: "unmatched-out", Usage: "Write the unmatched lines as CSV"},
		},
		Before: initApp,
		After:  closeApp,
		Action: func(c *cli.Context) error {
			name, content, err := readUpload(c)
			if err != nil {
				return err
			}

			preview, err := appFrom(c).Drawdown.Reconcile(c.Context, name, content)
			if err != nil {
				return err
			}

			if out := c.String("matched-out"); out != "" {
				if err := writeTableFile(out, export.MatchedTable(preview.Result.Matched)); err != nil {
					return err
				}
			}
			if out := c.String("unmatched-out"); out != "" {
				if err := writeTableFile(out, export.UnmatchedTable(preview.Result.Unmatched)); err != nil {
					return err
				}
			}

			return printJSON(c.App.Writer, map[string]interface{}{
				"summary":   preview.Summary,
				"unmatched": preview.Result.Unmatched,
			})
		},
	}
}

func submitCommand() *cli.Command {
	return &cli.Command{
		Name:  "submit",
		Usage: "Reconcile a file and draw its matched lines down (simulated unless --apply)",
		Flags: []cli.Flag{
			fileFlag(),
			newDBURLFlag(),
			&cli.StringFlag{Name: "actor", Usage: "Operator recorded on every mutation", EnvVars: []string{"APP_DEFAULT_ACTOR"}},
			&cli.BoolFlag{Name: "apply", Usage: "Call the stock endpoint instead of simulating"},
			&cli.StringFlag{Name: "out", Usage: "Write the outcomes as CSV (default stdout)"},
		},
		Before: initApp,
		After:  closeApp,
		Action: func(c *cli.Context) error {
			name, content, err := readUpload(c)
			if err != nil {
				return err
			}

			svc := appFrom(c).Drawdown
			preview, err := svc.Reconcile(c.Context, name, content)
			if err != nil {
				return err
			}

			mode := domain.ModeSimulate
			if c.Bool("apply") {
				mode = domain.ModeApply
			}

			result, err := svc.Run(c.Context, preview, c.String("actor"), mode)
			if err != nil {
				return err
			}

			fmt.Fprintf(c.App.ErrWriter, "batch %s (%s): %d ok, %d failed, %d unmatched\n",
				result.BatchID, result.Mode, result.SuccessCount, result.ErrorCount, len(preview.Result.Unmatched))

			if err := withOutput(c, c.String("out"), func(w io.Writer) error {
				return export.WriteCSV(w, export.OutcomesTable(result.Outcomes))
			}); err != nil {
				return err
			}
			if result.Interrupted {
				return cli.Exit(fmt.Sprintf("interrupted after %d of %d lines", len(result.Outcomes), len(preview.Result.Matched)), 130)
			}
			return nil
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List audit entries of past submissions",
		Flags: []cli.Flag{
			newDBURLFlag(),
			&cli.StringFlag{Name: "batch", Usage: "Batch id"},
			&cli.StringSliceFlag{Name: "codigo", Usage: "SKU code, repeatable"},
			&cli.StringFlag{Name: "mode", Usage: "simulate or apply"},
			&cli.DurationFlag{Name: "since", Usage: "Only entries newer than this, e.g. 72h"},
			&cli.IntFlag{Name: "limit", Value: repository.DefaultHistoryLimit},
		},
		Before: initApp,
		After:  closeApp,
		Action: func(c *cli.Context) error {
			if c.String("db-url") == "" && !config.Load().Database.Enabled {
				return fmt.Errorf("history needs --db-url, DATABASE_URL or DB_ENABLED")
			}

			filter := repository.HistoryFilter{
				BatchID: c.String("batch"),
				Codes:   c.StringSlice("codigo"),
				Mode:    domain.SubmitMode(c.String("mode")),
				Limit:   c.Int("limit"),
			}
			if since := c.Duration("since"); since > 0 {
				filter.Since = time.Now().Add(-since)
			}

			entries, err := appFrom(c).Drawdown.History(c.Context, filter)
			if err != nil {
				return err
			}
			return printJSON(c.App.Writer, entries)
		},
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func withOutput(c *cli.Context, path string, fn func(io.Writer) error) error {
	if path == "" {
		return fn(c.App.Writer)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeTableFile(path string, t export.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := export.WriteCSV(f, t); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
