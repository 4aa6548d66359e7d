package cli

import (
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

// completeUploadArgs provides completion for the upload command arguments:
// - First arg: local file (filesystem completion)
// - Second arg: target URL (no completion - user must type it)
func completeUploadArgs(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	switch len(args) {
	case 0:
		return nil, cobra.ShellCompDirectiveDefault
	default:
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
}

// completeSendArgs completes HTTP methods for the first argument.
func completeSendArgs(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	methods := []string{
		http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions,
	}
	var completions []string
	for _, m := range methods {
		if strings.HasPrefix(m, strings.ToUpper(toComplete)) {
			completions = append(completions, m)
		}
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}
