package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/docq/pkg/distinct"
	"github.com/papercomputeco/docq/pkg/element"
	"github.com/papercomputeco/docq/pkg/query"
)

var (
	distinctToolName    = "distinct_query"
	distinctDescription = "Run SELECT DISTINCT VALUE c.<path> over a collection. Returns one page of first-seen values " +
		"and a continuation token; pass the token back to read the next page."

	collectionsToolName    = "list_collections"
	collectionsDescription = "List the stored document collections with their document counts."
)

// DistinctInput represents the input arguments for the distinct_query tool.
type DistinctInput struct {
	Collection   string `json:"collection" jsonschema:"the collection to query"`
	Path         string `json:"path,omitempty" jsonschema:"dotted property path to project, e.g. address.city (default: whole document)"`
	Distinct     string `json:"distinct,omitempty" jsonschema:"ordered or unordered (default: unordered)"`
	MaxItemCount int    `json:"max_item_count,omitempty" jsonschema:"documents scanned per page (default: server page size)"`
	Continuation string `json:"continuation,omitempty" jsonschema:"continuation token returned by a previous call"`
}

// DistinctOutput represents one page of the distinct_query tool.
type DistinctOutput struct {
	Values       []any  `json:"values"`
	Count        int    `json:"count"`
	Scanned      int    `json:"scanned"`
	Suppressed   int    `json:"suppressed"`
	Done         bool   `json:"done"`
	Continuation string `json:"continuation,omitempty"`
}

// CollectionsInput represents the input arguments for the list_collections tool.
type CollectionsInput struct{}

// CollectionInfo is one entry of CollectionsOutput.
type CollectionInfo struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// CollectionsOutput represents the output of the list_collections tool.
type CollectionsOutput struct {
	Collections []CollectionInfo `json:"collections"`
}

// handleDistinct processes a distinct_query request.
func (s *Server) handleDistinct(ctx context.Context, _ *mcp.CallToolRequest, input DistinctInput) (*mcp.CallToolResult, DistinctOutput, error) {
	logger := s.config.Logger

	if input.Collection == "" {
		return errorResult("collection is required"), DistinctOutput{}, nil
	}

	mode := input.Distinct
	if mode == "" {
		mode = distinct.QueryTypeUnordered.String()
	}
	queryType, err := distinct.ParseQueryType(mode)
	if err == nil && !queryType.IsDistinct() {
		err = fmt.Errorf("%w: %q", distinct.ErrInvalidQueryType, mode)
	}
	if err != nil {
		return errorResult(fmt.Sprintf("Invalid distinct mode: %v", err)), DistinctOutput{}, nil
	}

	req := query.DistinctRequest{
		Collection:   input.Collection,
		Path:         input.Path,
		QueryType:    queryType,
		MaxItemCount: input.MaxItemCount,
	}
	if input.Continuation != "" {
		req.Continuation = &input.Continuation
	}

	logger.Debug("MCP distinct request",
		zap.String("collection", input.Collection),
		zap.String("path", input.Path),
		zap.String("distinct", mode),
	)

	result, err := s.config.Query.Distinct(ctx, req)
	if err != nil {
		logger.Error("failed to run distinct query", zap.Error(err))
		return errorResult(fmt.Sprintf("Failed to run distinct query: %v", err)), DistinctOutput{}, nil
	}

	values, err := plainValues(result.Documents)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to serialize values: %v", err)), DistinctOutput{}, nil
	}

	output := DistinctOutput{
		Values:     values,
		Count:      len(values),
		Scanned:    result.Scanned,
		Suppressed: result.Suppressed,
		Done:       result.Done,
	}
	if result.Continuation != nil {
		output.Continuation = *result.Continuation
	}

	return textResult(output)
}

// handleCollections processes a list_collections request.
func (s *Server) handleCollections(ctx context.Context, _ *mcp.CallToolRequest, _ CollectionsInput) (*mcp.CallToolResult, CollectionsOutput, error) {
	infos, err := s.config.Query.Collections(ctx)
	if err != nil {
		s.config.Logger.Error("failed to list collections", zap.Error(err))
		return errorResult(fmt.Sprintf("Failed to list collections: %v", err)), CollectionsOutput{}, nil
	}

	output := CollectionsOutput{Collections: make([]CollectionInfo, 0, len(infos))}
	for _, info := range infos {
		output.Collections = append(output.Collections, CollectionInfo{Name: info.Name, Count: info.Count})
	}

	return textResult(output)
}

// plainValues converts values into their JSON data model so they fit the
// tool's structured output.
func plainValues(values []element.Value) ([]any, error) {
	out := make([]any, 0, len(values))
	for _, v := range values {
		raw, err := element.Marshal(v)
		if err != nil {
			return nil, err
		}
		var plain any
		if err := json.Unmarshal(raw, &plain); err != nil {
			return nil, err
		}
		out = append(out, plain)
	}
	return out, nil
}

// textResult mirrors structured output as serialized JSON in a TextContent
// block for clients without structured content support.
func textResult[T any](output T) (*mcp.CallToolResult, T, error) {
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		var zero T
		return errorResult(fmt.Sprintf("Failed to serialize results: %v", err)), zero, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}
