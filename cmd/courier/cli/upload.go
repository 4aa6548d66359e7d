package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meigma/courier"
)

// Upload command flags
var (
	uploadContentType string
	uploadField       string
	uploadFormFields  []string
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file> <url>",
	Short: "Upload a file with progress",
	Long: `Upload sends a local file as the request body and reports progress
as the body is written to the connection.

By default the file is sent as the raw body. With --field the file is sent
as a multipart/form-data part under that field name, together with any
--form fields.

Examples:
  courier upload ./backup.tar https://example.com/backups/latest
  courier upload ./photo.jpg https://example.com/upload --method POST --field photo
  courier upload ./logs.txt https://example.com/ingest --compression zstd`,
	GroupID:           "core",
	Args:              cobra.ExactArgs(2),
	RunE:              runUpload,
	ValidArgsFunction: completeUploadArgs,
}

func init() {
	f := uploadCmd.Flags()
	f.StringP("method", "X", "PUT", "HTTP method")
	f.String("compression", "none", "Content-Encoding to apply (none, gzip, zstd)")
	f.Int("chunk-size", 64*1024, "Maximum bytes per write (controls progress resolution)")
	f.Bool("digest", false, "Send a Content-Digest header")
	f.StringVar(&uploadContentType, "content-type", "", "Content type (detected from the file when empty)")
	f.StringVar(&uploadField, "field", "", "Send as multipart/form-data under this field name")
	f.StringArrayVarP(&uploadFormFields, "form", "F", nil, "Extra multipart field in key=value form (requires --field)")

	for flag, key := range map[string]string{
		"method":      "upload.method",
		"compression": "upload.compression",
		"chunk-size":  "upload.chunk-size",
		"digest":      "upload.digest",
	} {
		//nolint:errcheck // flag names are static
		viper.BindPFlag(key, f.Lookup(flag))
	}

	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	path, target := args[0], args[1]

	cfg, err := currentConfig()
	if err != nil {
		return err
	}

	body, err := uploadBody(path)
	if err != nil {
		return err
	}
	compression, err := parseCompression(cfg.Upload.Compression)
	if err != nil {
		return err
	}
	if compression != nil {
		body = courier.Compress(body, compression)
	}
	body = courier.Chunked(body, cfg.Upload.ChunkSize)

	client, err := newClient(cfg, courier.WithStatusCheck(true))
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cfg)
	defer cancel()

	tracker := newUploadProgress(cmd.ErrOrStderr())
	req := courier.NewRequest(strings.ToUpper(cfg.Upload.Method), target).
		Body(body).
		OnUploadProgress(tracker).
		ContentDigest(cfg.Upload.Digest)
	if err := applyHeaders(req, headers); err != nil {
		return err
	}

	start := time.Now()
	resp, err := client.Do(ctx, req)
	tracker.Finish()
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	elapsed := time.Since(start)

	sent := tracker.Transferred()
	fmt.Fprintf(cmd.ErrOrStderr(), "Uploaded %s in %s (%s/s), server responded %s\n",
		humanize.Bytes(uint64(sent)), elapsed.Round(time.Millisecond), humanize.Bytes(rate(sent, elapsed)), resp.Status)

	_, err = io.Copy(cmd.OutOrStdout(), resp.Body)
	return err
}

// uploadBody creates the raw or multipart payload for path.
func uploadBody(path string) (courier.Payload, error) {
	if uploadField == "" {
		if len(uploadFormFields) > 0 {
			return nil, errors.New("--form requires --field")
		}
		return courier.File(path, uploadContentType)
	}

	mp := courier.NewMultipart()
	for _, field := range uploadFormFields {
		key, value, ok := strings.Cut(field, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid form field %q (expected key=value)", field)
		}
		mp.Field(key, value)
	}
	if err := mp.File(uploadField, path); err != nil {
		return nil, err
	}
	return mp, nil
}

// parseCompression maps a compression name to an encoder. "none" yields nil.
func parseCompression(name string) (courier.Compression, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return nil, nil
	case "gzip":
		return courier.GzipCompression(), nil
	case "gzip-fast":
		return courier.NewGzip(gzip.BestSpeed), nil
	case "zstd":
		return courier.ZstdCompression(), nil
	case "zstd-fast":
		return courier.NewZstd(zstd.SpeedFastest), nil
	default:
		return nil, fmt.Errorf("unknown compression %q (expected none, gzip, gzip-fast, zstd, zstd-fast)", name)
	}
}

// rate returns bytes per second.
func rate(n int64, elapsed time.Duration) uint64 {
	if n <= 0 || elapsed <= 0 {
		return 0
	}
	return uint64(float64(n) / elapsed.Seconds())
}
