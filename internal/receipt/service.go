package receipt

import (
	"fmt"
	"log/slog"
)

// Request is one of ProcessRequest or PointsRequest
type Request interface {
	request()
}

// ProcessRequest asks for a receipt to be validated, scored and stored
type ProcessRequest struct {
	Receipt *RawReceipt
}

// PointsRequest asks for the points stored under an id
type PointsRequest struct {
	ID string
}

func (ProcessRequest) request() {}
func (PointsRequest) request() {}

// ProcessResponse is the result of a ProcessRequest
type ProcessResponse struct {
	ID string `json:"id"`
}

// PointsResponse is the result of a PointsRequest
type PointsResponse struct {
	Points int `json:"points"`
}

// Service handles receipt operations
type Service struct {
	db      DB
	metrics *Metrics
}

// NewService creates a new Service. metrics may be nil.
func NewService(db DB, metrics *Metrics) *Service {
	return &Service{
		db:      db,
		metrics: metrics,
	}
}

// Handle dispatches a request to the matching operation
func (s *Service) Handle(req Request) (any, error) {
	switch req := req.(type) {
	case ProcessRequest:
		id, err := s.ProcessReceipt(req.Receipt)
		if err != nil {
			return nil, err
		}
		return ProcessResponse{ID: id}, nil
	case PointsRequest:
		points, err := s.GetPoints(req.ID)
		if err != nil {
			return nil, err
		}
		return PointsResponse{Points: points}, nil
	default:
		return nil, fmt.Errorf("unsupported request type %T", req)
	}
}

// ProcessReceipt validates and scores a receipt, then stores the score
// under a new id. Nothing is stored for an invalid receipt.
func (s *Service) ProcessReceipt(raw *RawReceipt) (string, error) {
	receipt, err := Validate(raw)
	if err != nil {
		slog.Info("Receipt rejected", "reason", err)
		s.metrics.recordProcessed(outcomeRejected, 0)
		return "", err
	}

	points := Points(receipt)

	id, err := s.db.Create(points)
	if err != nil {
		s.metrics.recordProcessed(outcomeError, 0)
		return "", fmt.Errorf("saving points: %w", err)
	}

	slog.Info("Receipt processed", "id", id, "retailer", receipt.Retailer, "points", points)
	s.metrics.recordProcessed(outcomeAccepted, points)
	return id, nil
}

// GetPoints returns the points stored under id, or ErrReceiptNotFound
func (s *Service) GetPoints(id string) (int, error) {
	points, found, err := s.db.Lookup(id)
	if err != nil {
		s.metrics.recordLookup(outcomeError)
		return 0, fmt.Errorf("getting points: %w", err)
	}
	if !found {
		s.metrics.recordLookup(outcomeNotFound)
		return 0, ErrReceiptNotFound
	}
	s.metrics.recordLookup(outcomeFound)
	return points, nil
}
