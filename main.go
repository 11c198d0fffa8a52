package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"reportstudio/internal/app"
	"reportstudio/internal/config"
	"reportstudio/internal/tree"
)

var version = "dev"

var (
	rootCmd = &cobra.Command{
		Use:           "reportstudio",
		Short:         "Structured report editor with undo history and an MCP tool surface",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	configPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath(), "Path to the TOML config file")

	serveCmd.Flags().String("document", "", "Document id to open (defaults to the most recent)")
	exportCmd.Flags().StringP("output", "o", "", "Write to this file instead of stdout")

	rootCmd.AddCommand(serveCmd, newCmd, listCmd, showCmd, exportCmd, importCmd)
}

// openApp loads the configuration and opens storage.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, app.Options{})
}

// withApp runs fn against an opened App and shuts it down afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	runErr := fn(ctx, a)

	sctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.Shutdown(sctx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the open report to MCP clients over stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		documentID, _ := cmd.Flags().GetString("document")
		return a.ServeMCP(ctx, documentID, version)
	},
}

var newCmd = &cobra.Command{
	Use:   "new [title]",
	Short: "Create an empty report",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title := ""
		if len(args) > 0 {
			title = args[0]
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			info, err := a.CreateDocument(ctx, title)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), info.ID)
			return nil
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored reports, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			docs, err := a.ListDocuments(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tVERSION\tUPDATED")
			for _, d := range docs {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", d.ID, d.Title, d.Version, d.UpdatedAt.Local().Format(time.DateTime))
			}
			return w.Flush()
		})
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print the outline of a report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			doc, err := a.GetDocument(ctx, args[0])
			if err != nil {
				return err
			}
			sections, blocks := doc.Tree.Counts()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (v%d, %d sections, %d blocks)\n\n", doc.Title, doc.Version, sections, blocks)
			fmt.Fprint(out, tree.Outline(doc.Tree))
			return nil
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export-json <id>",
	Short: "Write a report as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if output == "" {
				return a.ExportJSON(ctx, args[0], cmd.OutOrStdout())
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := a.ExportJSON(ctx, args[0], f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import-json <file>",
	Short: "Store a report from a JSON file (- reads stdin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			info, err := a.ImportJSON(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), info.ID)
			return nil
		})
	},
}
