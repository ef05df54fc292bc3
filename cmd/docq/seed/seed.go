// Package seedcmder provides the seed command that uploads documents to a
// docq API server.
package seedcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/docq/pkg/cliui"
	"github.com/papercomputeco/docq/pkg/client"
	"github.com/papercomputeco/docq/pkg/config"
	"github.com/papercomputeco/docq/pkg/element"
)

const seedLongDesc string = `Upload documents to a docq API server.

Without --file a small demo collection of addresses is uploaded. With --file,
every non-blank line of the file must be one JSON document; use "-" to read
from stdin.

Examples:
  docq seed
  docq seed --collection people --file people.jsonl
  cat docs.jsonl | docq seed --collection docs --file -`

const seedShortDesc string = "Upload demo or JSON-lines documents"

// DefaultCollection receives the demo documents.
const DefaultCollection = "addresses"

const defaultBatchSize = 500

// DemoDocuments are uploaded when no file is given. Several cities repeat so
// distinct queries have something to suppress.
var DemoDocuments = []string{
	`{"id":1,"name":"Ada","city":"Seattle","tags":["admin","ops"]}`,
	`{"id":2,"name":"Grace","city":"Austin","tags":["dev"]}`,
	`{"id":3,"name":"Linus","city":"Seattle","tags":["dev"]}`,
	`{"id":4,"name":"Barbara","city":"Boston"}`,
	`{"id":5,"name":"Ken","city":"Austin","tags":["ops"]}`,
	`{"id":6,"name":"Dennis","city":null,"tags":["dev"]}`,
	`{"id":7,"name":"Margaret","city":"Seattle","tags":["admin","ops"]}`,
	`{"id":8,"name":"Edsger"}`,
	`{"id":9,"name":"Frances","city":"Boston","tags":["dev"]}`,
	`{"id":10,"name":"Donald","city":"Palo Alto","tags":[]}`,
}

type seedCommander struct {
	v *viper.Viper

	apiTarget  string
	collection string
	file       string
	batchSize  int

	in  io.Reader
	out io.Writer
}

func NewSeedCmd() *cobra.Command {
	cmder := &seedCommander{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: seedShortDesc,
		Long:  seedLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagAPITarget})
			cmder.v = v
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().StringVar(&cmder.collection, "collection", DefaultCollection, "Collection to upload into")
	cmd.Flags().StringVarP(&cmder.file, "file", "f", "", `JSON-lines file to upload ("-" for stdin)`)
	cmd.Flags().IntVar(&cmder.batchSize, "batch-size", defaultBatchSize, "Documents per upload request")

	return cmd
}

func (c *seedCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.v != nil {
		c.apiTarget = c.v.GetString("client.api_target")
	}
	if c.batchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.batchSize)
	}

	docs, err := c.readDocuments()
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no documents to upload")
	}

	cl, err := client.New(c.apiTarget)
	if err != nil {
		return err
	}

	accepted := 0
	msg := fmt.Sprintf("Uploading %d documents", len(docs))
	if err := cliui.Step(c.out, msg, func() error {
		for start := 0; start < len(docs); start += c.batchSize {
			end := min(start+c.batchSize, len(docs))
			resp, err := cl.PutDocuments(ctx, c.collection, docs[start:end])
			if err != nil {
				return err
			}
			accepted += resp.Accepted
		}
		return nil
	}); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s Uploaded %s documents into %s %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(strconv.Itoa(accepted)),
		cliui.NameStyle.Render(c.collection),
		cliui.DimStyle.Render("("+c.apiTarget+")"),
	)

	info, err := cl.Collection(ctx, c.collection)
	if err != nil {
		return fmt.Errorf("reading collection size: %w", err)
	}
	fmt.Fprintf(c.out, "  %s now holds %d documents\n\n", c.collection, info.Count)
	return nil
}

func (c *seedCommander) readDocuments() ([]element.Value, error) {
	if c.file == "" {
		return parseLines(strings.NewReader(strings.Join(DemoDocuments, "\n")))
	}

	if c.file == "-" {
		return parseLines(c.in)
	}

	f, err := os.Open(c.file)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", c.file, err)
	}
	defer f.Close()

	return parseLines(f)
}

// parseLines reads one JSON document per non-blank line.
func parseLines(r io.Reader) ([]element.Value, error) {
	var docs []element.Value

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		v, err := element.Parse([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		docs = append(docs, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading documents: %w", err)
	}

	return docs, nil
}
