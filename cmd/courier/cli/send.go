package cli

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/meigma/courier"
)

// Send command flags
var (
	sendData        string
	sendDataFile    string
	sendForm        []string
	sendContentType string
	sendOutput      string
	sendFail        bool
)

var sendCmd = &cobra.Command{
	Use:   "send <method> <url>",
	Short: "Send an HTTP request",
	Long: `Send issues a single HTTP request and writes the response body to
stdout, or to a file with --output.

A body can be given inline with --data, read from a file with --data-file,
or built from urlencoded --form fields. Upload progress is shown for
--data-file bodies and download progress for --output.

Examples:
  courier send GET https://example.com/status
  courier send POST https://example.com/api/items --data 'hello' --content-type text/plain
  courier send POST https://example.com/login --form user=alice --form lang=en
  courier send GET https://example.com/big.iso --output big.iso`,
	GroupID:           "core",
	Args:              cobra.ExactArgs(2),
	RunE:              runSend,
	ValidArgsFunction: completeSendArgs,
}

func init() {
	f := sendCmd.Flags()
	f.StringVarP(&sendData, "data", "d", "", "Inline request body")
	f.StringVar(&sendDataFile, "data-file", "", "Read the request body from a file")
	f.StringArrayVarP(&sendForm, "form", "f", nil, "Urlencoded form field in key=value form (repeatable)")
	f.StringVar(&sendContentType, "content-type", "", "Content type of the body")
	f.StringVarP(&sendOutput, "output", "o", "", "Write the response body to a file")
	f.BoolVar(&sendFail, "fail", true, "Exit with an error on non-2xx responses")
	sendCmd.MarkFlagsMutuallyExclusive("data", "data-file", "form")
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	method, target := strings.ToUpper(args[0]), args[1]

	cfg, err := currentConfig()
	if err != nil {
		return err
	}

	body, err := sendBody()
	if err != nil {
		return err
	}

	client, err := newClient(cfg, courier.WithStatusCheck(sendFail))
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cfg)
	defer cancel()

	req := courier.NewRequest(method, target).Body(body)
	if err := applyHeaders(req, headers); err != nil {
		return err
	}

	upload := newUploadProgress(cmd.ErrOrStderr())
	if sendDataFile != "" {
		req.OnUploadProgress(upload)
	}
	download := newDownloadProgress(cmd.ErrOrStderr())
	if sendOutput != "" {
		req.OnDownloadProgress(download)
	}

	resp, err := client.Do(ctx, req)
	upload.Finish()
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if sendOutput == "" {
		_, err = io.Copy(cmd.OutOrStdout(), resp.Body)
		return err
	}

	n, err := writeOutput(sendOutput, resp.Body)
	download.Finish()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Saved %s to %s\n", humanize.Bytes(uint64(n)), sendOutput)
	return nil
}

// sendBody builds the payload from the body flags, or nil for no body.
func sendBody() (courier.Payload, error) {
	switch {
	case sendDataFile != "":
		return courier.File(sendDataFile, sendContentType)
	case len(sendForm) > 0:
		values := url.Values{}
		for _, field := range sendForm {
			key, value, ok := strings.Cut(field, "=")
			if !ok || key == "" {
				return nil, fmt.Errorf("invalid form field %q (expected key=value)", field)
			}
			values.Add(key, value)
		}
		return courier.Form(values), nil
	case sendData != "":
		ct := sendContentType
		if ct == "" {
			ct = "text/plain; charset=utf-8"
		}
		return courier.String(ct, sendData), nil
	default:
		return nil, nil
	}
}

// writeOutput copies r into a new file at path.
func writeOutput(path string, r io.Reader) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	return n, errors.Join(copyErr, closeErr)
}
