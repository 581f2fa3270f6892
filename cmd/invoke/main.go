// Command invoke runs one action envelope through the dispatcher, the same
// way the agent framework would, and prints the response envelope.
//
//	invoke -event event.json
//	cat event.json | invoke
//	invoke -schema
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"healthcost-actions/internal/action"
	"healthcost-actions/internal/config"
	"healthcost-actions/internal/observability"

	"go.uber.org/zap"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "invoke:", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("invoke", flag.ContinueOnError)
	eventPath := fs.String("event", "", "Path to the event JSON (default: stdin)")
	configPath := fs.String("config", "", "Path to config.yaml (optional)")
	schema := fs.Bool("schema", false, "Print the action group's OpenAPI document as JSON and exit")
	verbose := fs.Bool("v", false, "Log the invocation to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *schema {
		doc, err := action.OpenAPIJSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, string(doc))
		return err
	}

	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger := zap.NewNop()
	if *verbose {
		logger, err = zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer logger.Sync()
	}

	raw, err := readEvent(*eventPath, stdin)
	if err != nil {
		return err
	}

	d := action.NewDispatcher(logger, action.Options{
		VerboseErrors: cfg.Dispatch.VerboseErrors,
		LenientJSON:   cfg.Dispatch.LenientJSON,
	})

	ctx := observability.ContextWithRequestID(context.Background(), observability.NewRequestID())
	resp := d.Handle(ctx, raw)

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(resp)
}

func readEvent(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return raw, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read event: %w", err)
	}
	return raw, nil
}
