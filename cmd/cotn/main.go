// Command cotn decodes one COTN file and prints the resulting document.
//
// Usage:
//
//	cotn [--format json|yaml] [--log-level LEVEL] FILE
package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/cotn-lang/go-cotn"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logger.Errorw("cotn failed", "error", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "cotn",
		Usage:     "decode a COTN document and print it",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   formatJSON,
				Usage:   "output format: json or yaml",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: levelInfo,
				Usage: "one of debug, info, warn, error, fatal",
			},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	setLevel(c.String("log-level"))

	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one FILE argument, got %d", c.NArg())
	}
	path := c.Args().First()

	format := c.String("format")
	if format != formatJSON && format != formatYAML {
		return fmt.Errorf("unknown format %q", format)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	logger.Debugw("read document", "path", path, "bytes", len(raw))

	doc, err := cotn.Parse(raw)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	if doc.Root == nil {
		logger.Warnw("document holds no value", "path", path)
	}

	out, err := render(doc, format)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(c.App.Writer, string(out))
	return err
}

// render formats doc for printing.
func render(doc *cotn.Document, format string) ([]byte, error) {
	if format == formatYAML {
		b, err := yaml.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("rendering yaml: %w", err)
		}
		// yaml.Marshal ends with a newline; Fprintln adds one.
		return bytes.TrimSuffix(b, []byte("\n")), nil
	}

	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("rendering json: %w", err)
	}
	return b, nil
}
