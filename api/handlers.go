package api

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/docq/pkg/distinct"
	"github.com/papercomputeco/docq/pkg/element"
	"github.com/papercomputeco/docq/pkg/ingest"
	"github.com/papercomputeco/docq/pkg/query"
	"github.com/papercomputeco/docq/pkg/storage"
	"github.com/papercomputeco/docq/pkg/wire"
)

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleListCollections returns every collection with its document count.
func (s *Server) handleListCollections(c *fiber.Ctx) error {
	infos, err := s.query.Collections(c.Context())
	if err != nil {
		s.logger.Error("failed to list collections", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(wire.ErrorResponse{Error: "failed to list collections"})
	}

	resp := wire.CollectionsResponse{Collections: make([]wire.Collection, 0, len(infos))}
	for _, info := range infos {
		resp.Collections = append(resp.Collections, wire.Collection{Name: info.Name, Count: info.Count})
	}
	return c.JSON(resp)
}

// handleGetCollection returns the document count of one collection.
func (s *Server) handleGetCollection(c *fiber.Ctx) error {
	name := c.Params("name")
	count, err := s.query.Count(c.Context(), name)
	if err != nil {
		return s.queryError(c, err)
	}
	return c.JSON(wire.Collection{Name: name, Count: count})
}

// handleGetDocument returns one document by sequence number.
func (s *Server) handleGetDocument(c *fiber.Ctx) error {
	seq, err := strconv.ParseInt(c.Params("seq"), 10, 64)
	if err != nil || seq <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(wire.ErrorResponse{
			Error: "seq must be a positive integer",
		})
	}

	record, err := s.query.Document(c.Context(), c.Params("name"), seq)
	if err != nil {
		return s.queryError(c, err)
	}

	return c.JSON(wire.Document{
		Seq:      record.Seq,
		Document: element.Raw{Value: record.Document},
	})
}

// handleGetDocuments handles GET /v1/collections/:name/documents requests.
// Query parameters:
//   - path (optional): dotted property path to project
//   - max_item_count (optional): documents scanned for the page
//   - continuation (optional): token from the previous page
func (s *Server) handleGetDocuments(c *fiber.Ctx) error {
	maxItemCount, err := parseMaxItemCount(c.Query(wire.ParamMaxItemCount))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(wire.ErrorResponse{Error: err.Error()})
	}

	req := query.DocumentsRequest{
		Collection:   c.Params("name"),
		Path:         c.Query(wire.ParamPath),
		MaxItemCount: maxItemCount,
	}
	if token := c.Query(wire.ParamContinuation); token != "" {
		req.Continuation = &token
	}

	page, err := s.query.Documents(c.Context(), req)
	if err != nil {
		return s.queryError(c, err)
	}

	return c.JSON(wire.DocumentsPage{
		Documents:    wire.Raws(page.Documents),
		Continuation: page.ContinuationToken,
	})
}

// handlePutDocuments stores the uploaded documents. With an ingest pool the
// documents are queued and the response is 202 Accepted; otherwise they are
// written before responding with their sequence numbers.
func (s *Server) handlePutDocuments(c *fiber.Ctx) error {
	var body wire.PutDocumentsRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(wire.ErrorResponse{
			Error: "invalid request body",
		})
	}

	if len(body.Documents) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(wire.ErrorResponse{
			Error: "documents are required",
		})
	}

	job := ingest.Job{
		Collection: c.Params("name"),
		Documents:  wire.Values(body.Documents),
	}
	for _, doc := range job.Documents {
		if element.IsUndefined(doc) {
			return c.Status(fiber.StatusBadRequest).JSON(wire.ErrorResponse{
				Error: "documents must not be empty",
			})
		}
	}

	if s.config.IngestPool != nil {
		if !s.config.IngestPool.Enqueue(job) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(wire.ErrorResponse{
				Error: "ingest queue is full",
			})
		}
		return c.Status(fiber.StatusAccepted).JSON(wire.PutDocumentsResponse{Accepted: len(job.Documents)})
	}

	seqs, err := ingest.Store(c.Context(), s.driver, s.publisher, s.logger, job)
	if err != nil {
		s.logger.Error("failed to store documents",
			zap.String("collection", job.Collection),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(wire.ErrorResponse{
			Error: "failed to store documents",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(wire.PutDocumentsResponse{
		Accepted: len(seqs),
		Seqs:     seqs,
	})
}

// handleDistinct runs one page of a distinct query in the compute
// environment. The continuation token is composed by the server and is
// absent from the final page.
func (s *Server) handleDistinct(c *fiber.Ctx) error {
	var body wire.DistinctRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(wire.ErrorResponse{
			Error: "invalid request body",
		})
	}

	if body.MaxItemCount < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(wire.ErrorResponse{
			Error: "max_item_count must be a positive integer",
		})
	}

	mode := body.Distinct
	if mode == "" {
		mode = distinct.QueryTypeUnordered.String()
	}
	queryType, err := distinct.ParseQueryType(mode)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(wire.ErrorResponse{Error: err.Error()})
	}

	result, err := s.query.Distinct(c.Context(), query.DistinctRequest{
		Collection:   c.Params("name"),
		Path:         body.Path,
		QueryType:    queryType,
		MaxItemCount: body.MaxItemCount,
		Continuation: body.Continuation,
	})
	if err != nil {
		return s.queryError(c, err)
	}

	return c.JSON(wire.DistinctResponse{
		Documents:    wire.Raws(result.Documents),
		Continuation: result.Continuation,
		Scanned:      result.Scanned,
		Suppressed:   result.Suppressed,
	})
}

// queryError maps query failures onto status codes.
func (s *Server) queryError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, distinct.ErrMalformedToken), errors.Is(err, distinct.ErrInvalidQueryType):
		return c.Status(fiber.StatusBadRequest).JSON(wire.ErrorResponse{Error: err.Error()})
	case errors.As(err, &storage.NotFoundError{}):
		return c.Status(fiber.StatusNotFound).JSON(wire.ErrorResponse{Error: err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return c.Status(fiber.StatusRequestTimeout).JSON(wire.ErrorResponse{Error: "query cancelled"})
	default:
		s.logger.Error("query failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(wire.ErrorResponse{Error: "query failed"})
	}
}

func parseMaxItemCount(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New("max_item_count must be a positive integer")
	}
	return n, nil
}
