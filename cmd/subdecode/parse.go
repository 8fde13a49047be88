package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Resinat/subdecode/internal/config"
	"github.com/Resinat/subdecode/internal/service"
	"github.com/Resinat/subdecode/internal/subscription"
)

// Output formats accepted by --output.
const (
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// ParseConfig holds the configuration for the parse command
type ParseConfig struct {
	URL          string
	File         string
	ReadStdin    bool
	Decoded      bool
	Output       string
	Method       string
	Headers      []string
	Body         string
	UserAgent    string
	Timeout      time.Duration
	ShowRejected bool
}

// ParseCommand encapsulates the parse command functionality
type ParseCommand struct {
	config *ParseConfig
	stdin  io.Reader
}

// NewParseCommand creates a new instance of the parse command
func NewParseCommand() *cobra.Command {
	pc := &ParseCommand{
		config: &ParseConfig{},
		stdin:  os.Stdin,
	}
	return pc.createCommand()
}

// createCommand creates and configures the cobra command
func (pc *ParseCommand) createCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Decode a subscription from a url, a file or STDIN",
		Long: "Decode a subscription and print its nodes. Fetch settings not given as flags\n" +
			"fall back to the SUBDECODE_* environment variables used by serve.",
		Args: cobra.NoArgs,
		RunE: pc.runCommand,
	}

	pc.addFlags(cmd)
	return cmd
}

// addFlags adds command-line flags to the command
func (pc *ParseCommand) addFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.StringVarP(&pc.config.URL, "url", "u", "", "The subscription url")
	flags.StringVarP(&pc.config.File, "file", "f", "", "Read the subscription document from a file")
	flags.BoolVarP(&pc.config.ReadStdin, "stdin", "i", false, "Read the subscription document from STDIN")
	flags.BoolVar(&pc.config.Decoded, "decoded", false, "The file or STDIN document is plain text, not base64 (not valid with --url)")
	flags.StringVarP(&pc.config.Output, "output", "o", OutputJSON, "Output format: json or yaml")
	flags.StringVarP(&pc.config.Method, "method", "m", "GET", "Http method to be used")
	flags.StringArrayVarP(&pc.config.Headers, "header", "H", nil, `Extra request header as "Name: value" (repeatable)`)
	flags.StringVar(&pc.config.Body, "body", "", "Request body sent with POST")
	flags.StringVarP(&pc.config.UserAgent, "useragent", "x", "", "Useragent to be used")
	flags.DurationVarP(&pc.config.Timeout, "timeout", "t", 0, "Fetch timeout (0 uses SUBDECODE_FETCH_TIMEOUT)")
	flags.BoolVar(&pc.config.ShowRejected, "show-rejected", false, "List lines that failed to parse")

	cmd.MarkFlagsMutuallyExclusive("url", "file", "stdin")
	cmd.MarkFlagsMutuallyExclusive("url", "decoded")
}

// parseOutput is what gets written to stdout.
type parseOutput struct {
	URL     string               `json:"url,omitempty" yaml:"url,omitempty"`
	Nodes   *subscription.Result `json:"nodes" yaml:"nodes"`
	Summary subscription.Summary `json:"summary" yaml:"summary"`
}

// runCommand executes the parse command logic
func (pc *ParseCommand) runCommand(cmd *cobra.Command, args []string) error {
	cfg := pc.config
	if cfg.URL == "" && cfg.File == "" && !cfg.ReadStdin {
		return errors.New("one of --url, --file or --stdin is required")
	}
	if cfg.Output != OutputJSON && cfg.Output != OutputYAML {
		return fmt.Errorf("invalid --output %q (allowed: %s, %s)", cfg.Output, OutputJSON, OutputYAML)
	}

	envCfg, err := config.LoadEnvConfig()
	if err != nil {
		return err
	}
	logger := envCfg.NewLogger()
	logger.SetOutput(cmd.ErrOrStderr())

	svc, closeSvc := newSubscriptionService(envCfg, logger, nil)
	defer closeSvc()

	res, err := pc.resolve(cmd, svc)
	if err != nil {
		return err
	}

	out := parseOutput{URL: res.URL, Nodes: res.Nodes, Summary: res.Summary}
	if err := writeOutput(cmd.OutOrStdout(), cfg.Output, out); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	pc.printSummary(cmd.ErrOrStderr(), res)
	return nil
}

func (pc *ParseCommand) resolve(cmd *cobra.Command, svc *service.SubscriptionService) (*service.FetchResult, error) {
	cfg := pc.config
	if cfg.URL != "" {
		headers, err := parseHeaderFlags(cfg.Headers)
		if err != nil {
			return nil, err
		}
		return svc.FetchAndParse(cmd.Context(), service.FetchRequest{
			URL:       cfg.URL,
			Method:    cfg.Method,
			Headers:   headers,
			Body:      cfg.Body,
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.Timeout,
		})
	}

	var (
		content []byte
		err     error
	)
	if cfg.ReadStdin {
		content, err = io.ReadAll(pc.stdin)
	} else {
		content, err = os.ReadFile(cfg.File)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read subscription document: %w", err)
	}
	return svc.ParseContent(string(content), !cfg.Decoded)
}

// parseHeaderFlags turns repeated "Name: value" flags into a header map.
// A later flag for the same name wins.
func parseHeaderFlags(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --header %q: want \"Name: value\"", h)
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}

func writeOutput(w io.Writer, format string, out parseOutput) error {
	if format == OutputYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func (pc *ParseCommand) printSummary(w io.Writer, res *service.FetchResult) {
	s := res.Summary
	ok := color.New(color.FgGreen, color.Bold)
	bad := color.New(color.FgRed)

	ok.Fprintf(w, "%d nodes decoded", s.Total)
	fmt.Fprintf(w, " (ss: %d, trojan: %d, vmess: %d)", s.SS, s.Trojan, s.Vmess)
	if s.Rejected > 0 {
		bad.Fprintf(w, ", %d rejected", s.Rejected)
	}
	fmt.Fprintln(w)

	if !pc.config.ShowRejected {
		return
	}
	for _, r := range res.Nodes.Rejected {
		bad.Fprintf(w, "  line %d (%s): %v\n", r.Line, r.Protocol, r.Err)
	}
}
