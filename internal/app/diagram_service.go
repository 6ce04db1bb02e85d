package app

import (
	"context"
	"fmt"
	"time"

	"bpmnstudio/internal/domain"

	"github.com/rs/zerolog"
)

// DiagramService encapsulates diagram use cases. Every call is scoped to the
// user id passed in; nothing is read from ambient state.
type DiagramService struct {
	repo domain.DiagramRepository
	log  zerolog.Logger
	now  func() time.Time
}

// NewDiagramService creates a DiagramService backed by the given repository.
func NewDiagramService(repo domain.DiagramRepository, log zerolog.Logger) *DiagramService {
	return &DiagramService{
		repo: repo,
		log:  log.With().Str("component", "diagrams").Logger(),
		now:  time.Now,
	}
}

// Save creates or updates a diagram. Identity resolution and commit are
// separate steps: a save that names an id never falls back to a create.
func (s *DiagramService) Save(ctx context.Context, userID int64, req domain.SaveRequest) (domain.SaveResult, error) {
	target := req.Target()
	now := s.now()

	switch {
	case target != nil && req.Mode == domain.SaveModeSave:
		return s.update(ctx, userID, *target, req, now)
	case target == nil:
		id, err := s.repo.CreateDiagram(ctx, userID, req.Name, req.XML, now)
		if err != nil {
			return domain.SaveResult{}, fmt.Errorf("save diagram: %w", err)
		}
		diagramSaves.WithLabelValues("created").Inc()
		s.log.Debug().Int64("user_id", userID).Int64("diagram_id", id).Str("mode", string(req.Mode)).Msg("diagram created")
		return domain.SaveResult{ID: id, Created: true}, nil
	}

	s.log.Error().Int64("user_id", userID).Str("mode", string(req.Mode)).Msg("save resolved to no action")
	return domain.SaveResult{}, domain.ErrUnexpectedState
}

func (s *DiagramService) update(ctx context.Context, userID, id int64, req domain.SaveRequest, now time.Time) (domain.SaveResult, error) {
	owned, err := s.repo.OwnsDiagram(ctx, userID, id)
	if err != nil {
		return domain.SaveResult{}, fmt.Errorf("save diagram %d: %w", id, err)
	}
	if !owned {
		return domain.SaveResult{}, s.rejectForeign(ctx, userID, id)
	}

	n, err := s.repo.UpdateDiagram(ctx, userID, id, req.Name, req.XML, now)
	if err != nil {
		return domain.SaveResult{}, fmt.Errorf("save diagram %d: %w", id, err)
	}
	if n == 0 {
		// some drivers report zero rows for an unchanged row
		still, err := s.repo.OwnsDiagram(ctx, userID, id)
		if err != nil {
			return domain.SaveResult{}, fmt.Errorf("save diagram %d: %w", id, err)
		}
		if !still {
			return domain.SaveResult{}, s.rejectForeign(ctx, userID, id)
		}
	}

	diagramSaves.WithLabelValues("updated").Inc()
	s.log.Debug().Int64("user_id", userID).Int64("diagram_id", id).Msg("diagram updated")
	return domain.SaveResult{ID: id, Created: false}, nil
}

func (s *DiagramService) rejectForeign(ctx context.Context, userID, id int64) error {
	exists, err := s.repo.DiagramExists(ctx, id)
	if err != nil {
		s.log.Warn().Err(err).Int64("diagram_id", id).Msg("ownership diagnostics lookup failed")
	}
	diagramSaves.WithLabelValues("rejected").Inc()
	s.log.Warn().
		Int64("user_id", userID).
		Int64("diagram_id", id).
		Bool("owned_by_other", exists).
		Msg("save targeted a diagram the caller does not own")
	return &domain.DiagramOwnershipError{ID: id, OwnedByOther: exists}
}

// List returns the caller's diagrams, most recently updated first.
func (s *DiagramService) List(ctx context.Context, userID int64) ([]domain.DiagramSummary, error) {
	items, err := s.repo.ListDiagrams(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list diagrams: %w", err)
	}
	if items == nil {
		items = []domain.DiagramSummary{}
	}
	return items, nil
}

// Get returns one owned diagram.
func (s *DiagramService) Get(ctx context.Context, userID, id int64) (*domain.Diagram, error) {
	d, err := s.repo.GetDiagram(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get diagram %d: %w", id, err)
	}
	if d == nil {
		return nil, domain.ErrDiagramNotFound
	}
	return d, nil
}

// Rename changes the name of an owned diagram.
func (s *DiagramService) Rename(ctx context.Context, userID, id int64, name string) error {
	n, err := s.repo.RenameDiagram(ctx, userID, id, name, s.now())
	if err != nil {
		return fmt.Errorf("rename diagram %d: %w", id, err)
	}
	if n == 0 {
		return domain.ErrDiagramNotFound
	}
	return nil
}

// Delete removes an owned diagram.
func (s *DiagramService) Delete(ctx context.Context, userID, id int64) error {
	n, err := s.repo.DeleteDiagram(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("delete diagram %d: %w", id, err)
	}
	if n == 0 {
		return domain.ErrDiagramNotFound
	}
	s.log.Debug().Int64("user_id", userID).Int64("diagram_id", id).Msg("diagram deleted")
	return nil
}
