package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vidfriends/linkresolver/internal/logging"
	"github.com/vidfriends/linkresolver/internal/resolver"
)

type resolveOptions struct {
	dryRun bool
	method string
	proxy  bool
}

func newResolveCommand() *cobra.Command {
	var opts resolveOptions

	cmd := &cobra.Command{
		Use:   "resolve <video-url>",
		Short: "Resolve one video URL and print the download link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			provider := cfg.Provider
			if cmd.Flags().Changed("method") {
				method, err := resolver.ParseMethod(opts.method)
				if err != nil {
					return err
				}
				provider.Method = method
			}
			if cmd.Flags().Changed("proxy") {
				provider.UseProxy = opts.proxy
			}

			if opts.dryRun {
				return printDryRun(cmd.OutOrStdout(), args[0], provider)
			}

			ctx := logging.WithLogger(cmd.Context(), logging.New(os.Stderr, cfg.LogLevel))
			r := resolver.New(
				resolver.NewHTTPTransport(cfg.HTTPTimeout),
				resolver.WithNormalizer(resolver.NewNormalizer(resolver.WithFuzzyExtensions(cfg.FuzzyExtensions...))),
			)
			res, err := r.ResolveResult(ctx, args[0], provider)
			if err != nil {
				return fmt.Errorf("%s: %w", resolver.UserMessage(err), err)
			}
			return writeJSON(cmd.OutOrStdout(), struct {
				resolver.ResolvedMedia
				Strategy string `json:"strategy"`
			}{res.Media, res.Strategy})
		},
	}

	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print the provider request instead of sending it")
	cmd.Flags().StringVar(&opts.method, "method", "", "Override the provider method (GET or POST)")
	cmd.Flags().BoolVar(&opts.proxy, "proxy", false, "Route the request through the CORS relay")
	return cmd
}

// printDryRun shows the request Build would send, with the API key masked.
func printDryRun(w io.Writer, videoURL string, provider resolver.ProviderConfig) error {
	if err := provider.Validate(); err != nil {
		return err
	}
	req := resolver.Build(videoURL, provider)
	if _, ok := req.Headers[resolver.HeaderAPIKey]; ok {
		req.Headers[resolver.HeaderAPIKey] = provider.Masked().APIKey
	}

	return writeJSON(w, struct {
		Method  resolver.Method   `json:"method"`
		URL     string            `json:"url"`
		Headers map[string]string `json:"headers"`
		Body    string            `json:"body,omitempty"`
	}{req.Method, req.URL, req.Headers, req.Body.OrEmpty()})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
