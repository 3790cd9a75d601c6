package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"siteflow/internal/app"
	"siteflow/internal/config"
	"siteflow/internal/db"
	"siteflow/internal/domain"
	"siteflow/internal/logging"
	"siteflow/internal/mcpserver"
	"siteflow/internal/orchestrator"
	"siteflow/internal/server"
	siteflowsdk "siteflow/sdk/go"
)

var rootCmd = &cobra.Command{
	Use:   "sf",
	Short: "siteflow CLI",
	Long: `siteflow routes plain-language requests to analysis tools and threads their
results through a per-project context.
- Wind farm workflow: terrain analysis -> layout optimization -> wake simulation -> report.
- Petrophysics: wellbore trajectories, porosity and horizon surfaces for a well.
- Projects: each wind farm site is a project; its context remembers the site and
  every completed step so later requests can omit them.
- Config: siteflow.yml in the workspace (sf config init); flags and SITEFLOW_* env vars override.
- Remote mode: --server points every command at a running 'sf serve'.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if viper.GetString("server") != "" {
			return nil
		}
		_, err := db.EnsureWorkspace(viper.GetString("workspace"))
		return err
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("SITEFLOW")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("log-level", "", "log level (overrides config)")
	rootCmd.PersistentFlags().String("server", "", "siteflow API base URL; run against a remote server instead of the workspace")
	rootCmd.PersistentFlags().String("token", "", "bearer token for --server")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	_ = viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
}

func registerCommands() {
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(eventsCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(mcpCmd())
}

func chatCmd() *cobra.Command {
	var project string
	var verbose bool
	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Send a request, e.g. sf chat analyze terrain at 35.067482, -101.395466",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.Join(args, " ")
			var resp domain.Response
			err := dispatch(cmd.Context(),
				func(ctx context.Context, a *app.App) (any, error) {
					return a.Orchestrator.Handle(ctx, orchestrator.Request{Message: message, ProjectName: project}), nil
				},
				func(ctx context.Context, c *siteflowsdk.Client) (any, error) {
					return c.Chat(ctx, message, project)
				},
				&resp)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(resp)
			}
			printResponse(resp, verbose)
			if !resp.Success {
				return errors.New("request failed")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&project, "project", "p", "", "active project")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show thought steps")
	return cmd
}

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Manage project contexts"}
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectShowCmd())
	prj.AddCommand(projectDeleteCmd())
	prj.AddCommand(projectBulkDeleteCmd())
	return prj
}

func projectListCmd() *cobra.Command {
	var pattern string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			var items []domain.ProjectContext
			err := dispatch(cmd.Context(),
				func(ctx context.Context, a *app.App) (any, error) {
					return a.Store.FindByPartialName(ctx, pattern)
				},
				func(ctx context.Context, c *siteflowsdk.Client) (any, error) {
					return c.ListProjects(ctx, pattern)
				},
				&items)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(items)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Project", "Completed", "Next", "Updated"})
			for _, pc := range items {
				tw.AppendRow(table.Row{pc.ProjectName, stepNames(pc.CompletedSteps()), nextStep(pc), pc.UpdatedAt.Format(time.RFC3339)})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&pattern, "pattern", "", "case-insensitive name substring")
	return cmd
}

func projectShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show a project context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pc domain.ProjectContext
			err := dispatch(cmd.Context(),
				func(ctx context.Context, a *app.App) (any, error) {
					return a.Store.Get(ctx, args[0])
				},
				func(ctx context.Context, c *siteflowsdk.Client) (any, error) {
					return c.GetProject(ctx, args[0])
				},
				&pc)
			if err != nil {
				return err
			}
			return printJSON(pc)
		},
	}
	return cmd
}

func projectDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := dispatch(cmd.Context(),
				func(ctx context.Context, a *app.App) (any, error) {
					return nil, a.Orchestrator.DeleteProject(ctx, args[0])
				},
				func(ctx context.Context, c *siteflowsdk.Client) (any, error) {
					return nil, c.DeleteProject(ctx, args[0])
				},
				nil)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"deleted": args[0]})
			}
			fmt.Printf("deleted %s\n", args[0])
			return nil
		},
	}
	return cmd
}

func projectBulkDeleteCmd() *cobra.Command {
	var pattern string
	var confirm bool
	cmd := &cobra.Command{
		Use:   "bulk-delete",
		Short: "Delete every project whose name contains --pattern (dry run unless --confirm)",
		RunE: func(cmd *cobra.Command, args []string) error {
			var res domain.BulkDeleteResult
			err := dispatch(cmd.Context(),
				func(ctx context.Context, a *app.App) (any, error) {
					return a.Orchestrator.BulkDelete(ctx, pattern, confirm), nil
				},
				func(ctx context.Context, c *siteflowsdk.Client) (any, error) {
					return c.BulkDelete(ctx, pattern, confirm)
				},
				&res)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(res)
			}
			fmt.Println(res.Message)
			if len(res.FailedProjects) > 0 {
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Project", "Error"})
				for _, f := range res.FailedProjects {
					tw.AppendRow(table.Row{f.Name, f.Error})
				}
				tw.Render()
			}
			if !res.Success {
				return errors.New("bulk delete incomplete")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&pattern, "pattern", "", "case-insensitive name substring")
	cmd.Flags().BoolVar(&confirm, "confirm", false, "delete instead of listing matches")
	_ = cmd.MarkFlagRequired("pattern")
	return cmd
}

func eventsCmd() *cobra.Command {
	evt := &cobra.Command{Use: "events", Short: "Inspect the workflow event log"}
	evt.AddCommand(eventsTailCmd())
	return evt
}

func eventsTailCmd() *cobra.Command {
	var n int
	var project string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			var items []domain.Event
			err := dispatch(cmd.Context(),
				func(ctx context.Context, a *app.App) (any, error) {
					return a.Events.Tail(ctx, n, project)
				},
				func(ctx context.Context, c *siteflowsdk.Client) (any, error) {
					return c.Events(ctx, n, project)
				},
				&items)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(items)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"ID", "Time", "Type", "Project", "Payload"})
			for _, e := range items {
				tw.AppendRow(table.Row{e.ID, e.TS.Format(time.RFC3339), e.Type, e.ProjectName, e.Payload})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&project, "project", "", "only events for this project")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect workspace config",
		Long:  "Config lives in siteflow.yml in the workspace: store backend, event publishing, tool mode and endpoints, bulk delete concurrency and logging. Without a file the defaults apply.",
	}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	cfg.AddCommand(configInitCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSON(cfg)
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate siteflow.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := config.LoadOrDefault(viper.GetString("workspace"))
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default siteflow.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App, logger *zap.Logger) error {
				handler, err := server.New(server.Config{
					Orchestrator: a.Orchestrator,
					Events:       a.Events,
					BasePath:     basePath,
					Auth:         server.AuthConfig{JWTSecret: os.Getenv("SITEFLOW_JWT_SECRET")},
					Logger:       logger.Named("http"),
				})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				logger.Info("serving siteflow API",
					zap.String("addr", addr),
					zap.String("base_path", basePath),
					zap.Bool("auth", os.Getenv("SITEFLOW_JWT_SECRET") != ""))
				fmt.Printf("Serving siteflow API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

func mcpCmd() *cobra.Command {
	var transport, addr string
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve siteflow as MCP tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App, logger *zap.Logger) error {
				return mcpserver.Serve(ctx, mcpserver.New(a.Orchestrator), transport, addr, logger.Named("mcp"))
			})
		},
	}
	cmd.Flags().StringVar(&transport, "transport", "stdio", "stdio or http")
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8090", "listen address for the http transport")
	return cmd
}

// --- helpers ---

func withApp(ctx context.Context, fn func(context.Context, *app.App, *zap.Logger) error) error {
	workspace := viper.GetString("workspace")
	cfg, err := config.LoadOrDefault(workspace)
	if err != nil {
		return err
	}
	if lvl := viper.GetString("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()
	a, err := app.Build(ctx, workspace, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a, logger)
}

// dispatch runs local against the workspace, or remote when --server is set,
// and decodes the result into out. Both sides share the API's JSON shapes.
func dispatch(ctx context.Context,
	local func(context.Context, *app.App) (any, error),
	remote func(context.Context, *siteflowsdk.Client) (any, error),
	out any,
) error {
	var (
		res any
		err error
	)
	if base := viper.GetString("server"); base != "" {
		c := siteflowsdk.New(base)
		c.BearerToken = viper.GetString("token")
		res, err = remote(ctx, c)
	} else {
		err = withApp(ctx, func(ctx context.Context, a *app.App, _ *zap.Logger) error {
			var lerr error
			res, lerr = local(ctx, a)
			return lerr
		})
	}
	if err != nil || out == nil {
		return err
	}
	b, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func printResponse(resp domain.Response, verbose bool) {
	fmt.Println(resp.Message)
	for _, w := range resp.Warnings {
		fmt.Println("warning:", w)
	}
	if verbose && len(resp.ThoughtSteps) > 0 {
		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(table.Row{"Step", "Status", "Summary"})
		for _, s := range resp.ThoughtSteps {
			tw.AppendRow(table.Row{s.Title, s.Status, s.Summary})
		}
		tw.Render()
	}
	for _, a := range resp.Artifacts {
		if len(a.Actions) == 0 {
			continue
		}
		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.SetTitle(a.Title)
		tw.AppendHeader(table.Row{"", "Action", "Query"})
		for _, b := range a.Actions {
			mark := ""
			if b.Primary {
				mark = "*"
			}
			tw.AppendRow(table.Row{mark, b.Label, b.Query})
		}
		tw.Render()
	}
}

func stepNames(steps []domain.Step) string {
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

func nextStep(pc domain.ProjectContext) string {
	if s := pc.NextStep(); s != "" {
		return string(s)
	}
	return "done"
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
