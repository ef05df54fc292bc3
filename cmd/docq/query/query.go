// Package querycmder provides the query command that runs distinct queries
// against a docq API server.
package querycmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/papercomputeco/docq/pkg/cliui"
	"github.com/papercomputeco/docq/pkg/client"
	"github.com/papercomputeco/docq/pkg/config"
	"github.com/papercomputeco/docq/pkg/distinct"
	"github.com/papercomputeco/docq/pkg/element"
	"github.com/papercomputeco/docq/pkg/logger"
	"github.com/papercomputeco/docq/pkg/utils"
	"github.com/papercomputeco/docq/pkg/wire"
)

type queryCommander struct {
	v *viper.Viper

	collection   string
	path         string
	distinct     string
	maxItemCount uint
	continuation string
	apiTarget    string
	compute      bool
	singlePage   bool
	truncate     int

	out    io.Writer
	debug  bool
	logger *zap.Logger
	start  time.Time
}

const queryLongDesc string = `Run SELECT DISTINCT VALUE c.<path> over a collection.

By default the server returns raw pages and deduplication happens here, in
the client. Use --compute to have the server deduplicate and hand back a
continuation token that resumes the distinct query.

Ordered queries may be resumed with --continuation. Unordered client-side
queries cannot be resumed and always read every page.

Examples:
  docq query addresses --path city
  docq query addresses --path city --distinct ordered --single-page
  docq query addresses --path city --distinct ordered --continuation <token>
  docq query addresses --path city --compute -n 10`

const queryShortDesc string = "Run a distinct query"

var queryFlags = []string{
	config.FlagAPITarget,
	config.FlagDistinct,
	config.FlagQueryMaxItemCount,
}

func NewQueryCmd() *cobra.Command {
	cmder := &queryCommander{}

	cmd := &cobra.Command{
		Use:   "query <collection>",
		Short: queryShortDesc,
		Long:  queryLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, queryFlags)
			cmder.v = v
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.collection = args[0]
			cmder.out = cmd.OutOrStdout()

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &cmder.apiTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagDistinct, &cmder.distinct)
	config.AddUintFlag(cmd, config.Flags, config.FlagQueryMaxItemCount, &cmder.maxItemCount)
	cmd.Flags().StringVarP(&cmder.path, "path", "p", "", "Dotted property path to project (default: whole document)")
	cmd.Flags().StringVarP(&cmder.continuation, "continuation", "c", "", "Continuation token of a previous page")
	cmd.Flags().BoolVar(&cmder.compute, "compute", false, "Deduplicate on the server")
	cmd.Flags().BoolVar(&cmder.singlePage, "single-page", false, "Read one page and print its continuation token")
	cmd.Flags().IntVar(&cmder.truncate, "truncate", 0, "Truncate printed values to this many bytes (0 disables)")

	return cmd
}

func (c *queryCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if c.v != nil {
		c.apiTarget = c.v.GetString("client.api_target")
		c.distinct = c.v.GetString("query.distinct")
		c.maxItemCount = c.v.GetUint("query.max_item_count")
	}

	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	queryType, err := distinct.ParseQueryType(c.distinct)
	if err != nil {
		return err
	}
	if queryType == distinct.QueryTypeNone {
		queryType = distinct.QueryTypeUnordered
	}

	cl, err := client.New(c.apiTarget, client.WithLogger(c.logger))
	if err != nil {
		return err
	}

	var token *string
	if c.continuation != "" {
		token = &c.continuation
	}

	c.start = time.Now()
	if c.compute {
		err = c.runCompute(ctx, cl, queryType, token)
	} else {
		err = c.runClient(ctx, cl, queryType, token)
	}
	if err != nil {
		fmt.Fprintf(c.out, "\n%s %s\n", cliui.Mark(err),
			cliui.DimStyle.Render("query failed after "+cliui.FormatDuration(time.Since(c.start))))
	}
	return err
}

func (c *queryCommander) runClient(ctx context.Context, cl *client.Client, queryType distinct.QueryType, token *string) error {
	it, err := cl.QueryDistinct(ctx, client.QueryOptions{
		Collection:        c.collection,
		Path:              c.path,
		Distinct:          queryType,
		MaxItemCount:      int(c.maxItemCount),
		ContinuationToken: token,
	})
	if err != nil {
		return err
	}

	for it.HasMoreResults() {
		page, err := it.ReadNext(ctx)
		if errors.Is(err, client.ErrNoMoreResults) {
			break
		}
		if err != nil {
			return err
		}

		c.printValues(page.Documents)

		if c.singlePage {
			switch {
			case page.ContinuationToken != nil:
				c.printContinuation(*page.ContinuationToken)
			case page.DisallowContinuationTokenMessage != "":
				fmt.Fprintf(c.out, "\n%s\n", cliui.DimStyle.Render(page.DisallowContinuationTokenMessage))
			}
			return nil
		}
	}

	stats := it.Stats()
	c.printSummary(stats.Returned, stats.Suppressed())
	return nil
}

func (c *queryCommander) runCompute(ctx context.Context, cl *client.Client, queryType distinct.QueryType, token *string) error {
	var returned, suppressed int
	for {
		resp, err := cl.DistinctCompute(ctx, c.collection, wire.DistinctRequest{
			Path:         c.path,
			Distinct:     queryType.String(),
			MaxItemCount: int(c.maxItemCount),
			Continuation: token,
		})
		if err != nil {
			return err
		}

		c.printValues(wire.Values(resp.Documents))
		returned += len(resp.Documents)
		suppressed += resp.Suppressed

		if resp.Continuation == nil {
			break
		}
		if c.singlePage {
			c.printContinuation(*resp.Continuation)
			return nil
		}
		token = resp.Continuation
	}

	c.printSummary(returned, suppressed)
	return nil
}

func (c *queryCommander) printValues(values []element.Value) {
	for _, v := range values {
		s := element.Stringify(v)
		if c.truncate > 0 {
			s = utils.Truncate(s, c.truncate)
		}
		fmt.Fprintln(c.out, s)
	}
}

func (c *queryCommander) printContinuation(token string) {
	fmt.Fprintf(c.out, "\n%s %s\n", cliui.KeyStyle.Render("continuation:"), cliui.ValueStyle.Render(token))
}

func (c *queryCommander) printSummary(returned, suppressed int) {
	fmt.Fprintf(c.out, "\n%s %s\n", cliui.Mark(nil), cliui.DimStyle.Render(
		fmt.Sprintf("%d distinct values, %d duplicates suppressed in %s",
			returned, suppressed, cliui.FormatDuration(time.Since(c.start))),
	))
}
