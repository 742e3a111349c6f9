package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	damsdk "github.com/aubreyosenda/dam-sdk-go"
	"github.com/aubreyosenda/dam-sdk-go/internal/app"
	"github.com/aubreyosenda/dam-sdk-go/internal/config"
	"github.com/aubreyosenda/dam-sdk-go/internal/logger"
	"github.com/aubreyosenda/dam-sdk-go/internal/progress"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "damctl",
	Short: "Manage assets in a DAM service",
	Long:  `A command line client for the DAM API with concurrent, resumable batch uploads, S3 imports, and asset management.`,
}

var uploadCmd = &cobra.Command{
	Use:   "upload [paths...]",
	Short: "Upload local files and directories",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runUpload,
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import every object under an S3 prefix",
	RunE:  runImport,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List files",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var statCmd = &cobra.Command{
	Use:   "stat <file-id>",
	Short: "Show one file's details",
	Args:  cobra.ExactArgs(1),
	RunE:  runStat,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <file-id>...",
	Short: "Delete one or more files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDelete,
}

var urlCmd = &cobra.Command{
	Use:   "url <file-id>",
	Short: "Print the delivery URL for a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runURL,
}

var downloadCmd = &cobra.Command{
	Use:   "download <file-id> <dest>",
	Short: "Download a file, optionally transformed",
	Args:  cobra.ExactArgs(2),
	RunE:  runDownload,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show library statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ./config.yaml)")

	// API flags
	rootCmd.PersistentFlags().String("api-url", "", "DAM API base URL")
	rootCmd.PersistentFlags().String("key-id", "", "API key ID (or DAM_KEY_ID)")
	rootCmd.PersistentFlags().String("key-secret", "", "API key secret (or DAM_KEY_SECRET)")
	rootCmd.PersistentFlags().Int("timeout-ms", 300000, "Request timeout in milliseconds")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug/info/warn/error)")

	addUploadFlags(uploadCmd)
	addUploadFlags(importCmd)

	// Import source flags
	importCmd.Flags().String("src-endpoint", "", "S3 source endpoint")
	importCmd.Flags().String("src-access-key", "", "S3 source access key")
	importCmd.Flags().String("src-secret-key", "", "S3 source secret key")
	importCmd.Flags().Bool("src-secure", false, "Use HTTPS for the source")
	importCmd.Flags().String("src-bucket", "", "Source bucket name")
	importCmd.Flags().String("src-prefix", "", "Source object prefix filter")
	importCmd.Flags().String("src-object", "", "Import a single object by key")

	// List flags
	listCmd.Flags().String("folder-id", "", "Filter by folder")
	listCmd.Flags().String("mime-type", "", "Filter by MIME type")
	listCmd.Flags().String("search", "", "Filename search term")
	listCmd.Flags().Int("limit", 50, "Page size")
	listCmd.Flags().Int("offset", 0, "Page offset")
	listCmd.Flags().String("sort", "", "Sort field")
	listCmd.Flags().String("order", "", "Sort order (asc/desc)")
	listCmd.Flags().Bool("json", false, "Print raw JSON")

	statCmd.Flags().Bool("json", false, "Print raw JSON")
	statsCmd.Flags().Bool("json", false, "Print raw JSON")

	urlCmd.Flags().Int("thumbnail", 0, "Print the thumbnail URL at this edge size instead")
	addTransformFlags(urlCmd)
	addTransformFlags(downloadCmd)

	rootCmd.AddCommand(uploadCmd, importCmd, listCmd, statCmd, deleteCmd, urlCmd, downloadCmd, statsCmd)
}

func addUploadFlags(cmd *cobra.Command) {
	cmd.Flags().String("folder-id", "", "Target folder ID")
	cmd.Flags().StringArray("meta", nil, "Metadata to attach, key=value (repeatable)")
	cmd.Flags().Int("concurrency", 4, "Number of concurrent uploads")
	cmd.Flags().Int("retries", 3, "Maximum retry attempts per file")
	cmd.Flags().Int("retry-backoff-ms", 500, "Initial retry backoff in milliseconds")
	cmd.Flags().Int("max-backoff-ms", 30000, "Retry backoff ceiling in milliseconds")
	cmd.Flags().Bool("dry-run", false, "List files without uploading")
	cmd.Flags().String("checkpoint", "./checkpoint.db", "Checkpoint database file")
	cmd.Flags().Bool("skip-existing", true, "Skip files the checkpoint marks completed")
	cmd.Flags().Bool("resume", false, "Resume from checkpoint")
	cmd.Flags().Bool("show-progress", true, "Show progress display")
	cmd.Flags().String("metrics-addr", "", "Prometheus listen address, e.g. :8080 (disabled when empty)")
}

func addTransformFlags(cmd *cobra.Command) {
	cmd.Flags().Int("width", 0, "Resize width in pixels")
	cmd.Flags().Int("height", 0, "Resize height in pixels")
	cmd.Flags().String("fit", "", "Resize fit (cover/contain/fill/inside/outside)")
	cmd.Flags().String("format", "", "Output format (jpeg/png/webp/avif/gif)")
	cmd.Flags().Int("quality", 0, "Output quality 1-100")
	cmd.Flags().Int("blur", 0, "Blur sigma")
	cmd.Flags().Bool("grayscale", false, "Convert to grayscale")
	cmd.Flags().Int("rotate", 0, "Rotation in degrees")
}

func runUpload(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	runner, err := app.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create runner: %w", err)
	}

	ctx, cancel := signalContext(log)
	defer cancel()

	err = runner.RunLocal(ctx, args)

	if closeErr := runner.Close(); closeErr != nil {
		log.Error("Error closing runner", zap.Error(closeErr))
	}

	return err
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	runner, err := app.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create runner: %w", err)
	}

	ctx, cancel := signalContext(log)
	defer cancel()

	err = runner.RunImport(ctx)

	if closeErr := runner.Close(); closeErr != nil {
		log.Error("Error closing runner", zap.Error(closeErr))
	}

	return err
}

func runList(cmd *cobra.Command, args []string) error {
	client, log, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	opts := &damsdk.ListOptions{}
	opts.FolderID, _ = cmd.Flags().GetString("folder-id")
	opts.MimeType, _ = cmd.Flags().GetString("mime-type")
	opts.Search, _ = cmd.Flags().GetString("search")
	opts.Limit, _ = cmd.Flags().GetInt("limit")
	opts.Offset, _ = cmd.Flags().GetInt("offset")
	opts.Sort, _ = cmd.Flags().GetString("sort")
	opts.Order, _ = cmd.Flags().GetString("order")

	ctx, cancel := signalContext(log)
	defer cancel()

	list, err := client.ListFiles(ctx, opts)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(list)
	}

	fmt.Printf("%-36s  %10s  %-24s  %s\n", "ID", "SIZE", "MIME TYPE", "FILENAME")
	for _, f := range list.Files {
		fmt.Printf("%-36s  %10s  %-24s  %s\n", f.ID, progress.FormatBytes(f.Size), f.MimeType, f.Filename)
	}
	fmt.Printf("\n%d of %d files (offset %d)\n", len(list.Files), list.Pagination.Total, list.Pagination.Offset)
	return nil
}

func runStat(cmd *cobra.Command, args []string) error {
	client, log, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := signalContext(log)
	defer cancel()

	file, err := client.GetFile(ctx, args[0])
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(file)
	}

	fmt.Printf("ID:        %s\n", file.ID)
	fmt.Printf("Filename:  %s\n", file.Filename)
	fmt.Printf("MIME type: %s\n", file.MimeType)
	fmt.Printf("Size:      %s\n", progress.FormatBytes(file.Size))
	if file.FolderID != "" {
		fmt.Printf("Folder:    %s\n", file.FolderID)
	}
	if !file.CreatedAt.IsZero() {
		fmt.Printf("Created:   %s\n", file.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	client, log, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := signalContext(log)
	defer cancel()

	if len(args) == 1 {
		if err := client.DeleteFile(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	}

	result, err := client.BatchDelete(ctx, args)
	if err != nil {
		return err
	}

	fmt.Printf("Deleted %d of %d files\n", len(result.Deleted), len(args))
	for _, failure := range result.Failed {
		fmt.Printf("  failed %s: %s\n", failure.ID, failure.Reason)
	}
	if len(result.Failed) > 0 {
		return fmt.Errorf("%d deletions failed", len(result.Failed))
	}
	return nil
}

func runURL(cmd *cobra.Command, args []string) error {
	client, log, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	if size, _ := cmd.Flags().GetInt("thumbnail"); size > 0 {
		fmt.Println(client.ThumbnailURL(args[0], size))
		return nil
	}

	transform := transformFromFlags(cmd)
	if transform != nil {
		if err := transform.Validate(); err != nil {
			return err
		}
	}
	fmt.Println(client.FileURL(args[0], transform))
	return nil
}

func runDownload(cmd *cobra.Command, args []string) error {
	client, log, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := signalContext(log)
	defer cancel()

	if err := client.DownloadFile(ctx, args[0], args[1], transformFromFlags(cmd)); err != nil {
		return err
	}
	fmt.Printf("Downloaded %s to %s\n", args[0], args[1])
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	client, log, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := signalContext(log)
	defer cancel()

	snap, err := client.Stats(ctx)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(snap)
	}

	fmt.Printf("Files:   %d\n", snap.Dashboard.Overview.FileCount)
	fmt.Printf("Folders: %d\n", snap.Dashboard.Overview.FolderCount)
	fmt.Printf("Storage: %s\n", progress.FormatBytes(snap.Storage.TotalSize))

	if len(snap.Storage.ByMimeType) > 0 {
		fmt.Println("\nBy MIME type:")
		types := make([]string, 0, len(snap.Storage.ByMimeType))
		for mimeType := range snap.Storage.ByMimeType {
			types = append(types, mimeType)
		}
		sort.Strings(types)
		for _, mimeType := range types {
			fmt.Printf("  %-24s %s\n", mimeType, progress.FormatBytes(snap.Storage.ByMimeType[mimeType]))
		}
	}
	return nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, log, nil
}

func newClient(cmd *cobra.Command) (*damsdk.Client, *zap.Logger, error) {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	opts := []damsdk.Option{damsdk.WithLogger(log)}
	if cfg.API.TimeoutMs > 0 {
		opts = append(opts, damsdk.WithTimeout(time.Duration(cfg.API.TimeoutMs)*time.Millisecond))
	}

	client, err := damsdk.New(cfg.API.URL, cfg.API.KeyID, cfg.API.KeySecret, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create DAM client: %w", err)
	}

	return client, log, nil
}

func transformFromFlags(cmd *cobra.Command) *damsdk.Transform {
	t := &damsdk.Transform{}
	t.Width, _ = cmd.Flags().GetInt("width")
	t.Height, _ = cmd.Flags().GetInt("height")
	t.Fit, _ = cmd.Flags().GetString("fit")
	t.Format, _ = cmd.Flags().GetString("format")
	t.Quality, _ = cmd.Flags().GetInt("quality")
	t.Blur, _ = cmd.Flags().GetInt("blur")
	t.Grayscale, _ = cmd.Flags().GetBool("grayscale")
	t.Rotate, _ = cmd.Flags().GetInt("rotate")

	if *t == (damsdk.Transform{}) {
		return nil
	}
	return t
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// signalContext returns a context cancelled by SIGINT or SIGTERM
func signalContext(log *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("Received shutdown signal, gracefully stopping...")
		cancel()
	}()

	return ctx, cancel
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
