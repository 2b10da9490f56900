package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/waterworks/backend/internal/domain/billing"
	"github.com/waterworks/backend/internal/domain/shared"
)

// TariffService handles tariff schedule and range-set operations
type TariffService struct {
	tariffRepo     billing.TariffRepository
	eventPublisher shared.EventPublisher
}

// NewTariffService creates a new TariffService
func NewTariffService(tariffRepo billing.TariffRepository) *TariffService {
	return &TariffService{
		tariffRepo: tariffRepo,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *TariffService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create creates a new tariff schedule
func (s *TariffService) Create(ctx context.Context, req CreateTariffRequest) (*TariffResponse, error) {
	tariff, err := billing.NewTariff(req.Name, req.StartsOn, req.EndsOn)
	if err != nil {
		return nil, err
	}

	if err := s.tariffRepo.Save(ctx, tariff); err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, tariff)

	response := ToTariffResponse(tariff)
	return &response, nil
}

// GetByID retrieves a tariff with its range set
func (s *TariffService) GetByID(ctx context.Context, tariffID uuid.UUID) (*TariffResponse, error) {
	tariff, err := s.tariffRepo.FindByIDWithRanges(ctx, tariffID)
	if err != nil {
		return nil, err
	}

	response := ToTariffResponse(tariff)
	return &response, nil
}

// List retrieves tariffs with pagination
func (s *TariffService) List(ctx context.Context, filter shared.Filter) ([]TariffListResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	page, err := s.tariffRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	return ToTariffListResponses(page.Items), page.Total, nil
}

// Update updates a tariff's name and validity window
func (s *TariffService) Update(ctx context.Context, tariffID uuid.UUID, req UpdateTariffRequest) (*TariffResponse, error) {
	tariff, err := s.tariffRepo.FindByIDWithRanges(ctx, tariffID)
	if err != nil {
		return nil, err
	}

	name := tariff.Name
	if req.Name != nil {
		name = *req.Name
	}
	startsOn := tariff.StartsOn
	if req.StartsOn != nil {
		startsOn = *req.StartsOn
	}
	endsOn := tariff.EndsOn
	if req.EndsOn != nil {
		endsOn = req.EndsOn
	}

	if err := tariff.Update(name, startsOn, endsOn); err != nil {
		return nil, err
	}

	if err := s.tariffRepo.Save(ctx, tariff); err != nil {
		return nil, err
	}

	response := ToTariffResponse(tariff)
	return &response, nil
}

// RegisterRanges validates a complete candidate tier set and inserts every
// tier. The whole batch is checked before anything is written; a rejected
// batch persists nothing.
func (s *TariffService) RegisterRanges(ctx context.Context, tariffID uuid.UUID, req RegisterRangesRequest) (*RangesProcessedResponse, error) {
	tariff, err := s.tariffRepo.FindByID(ctx, tariffID)
	if err != nil {
		return nil, err
	}

	candidates := make([]billing.TariffRange, 0, len(req.Ranges))
	for _, input := range req.Ranges {
		if err := input.validate(); err != nil {
			return nil, err
		}
		r, err := billing.NewTariffRange(tariff.ID, *input.MinM3, *input.MaxM3, *input.PricePerM3)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, *r)
	}

	if err := tariff.ReplaceRanges(candidates); err != nil {
		return nil, err
	}

	processed, err := s.tariffRepo.SaveRanges(ctx, tariff.ID, tariff.Ranges)
	if err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, tariff)

	return &RangesProcessedResponse{TariffID: tariff.ID, Processed: processed}, nil
}

// ModifyRanges validates a complete candidate tier set and persists it:
// tiers carrying the id of an existing tier are updated in place, the
// rest are inserted. Validation covers the whole batch before any write.
func (s *TariffService) ModifyRanges(ctx context.Context, tariffID uuid.UUID, req RegisterRangesRequest) (*RangesProcessedResponse, error) {
	tariff, err := s.tariffRepo.FindByIDWithRanges(ctx, tariffID)
	if err != nil {
		return nil, err
	}

	existing := make(map[uuid.UUID]billing.TariffRange, len(tariff.Ranges))
	for _, r := range tariff.Ranges {
		existing[r.ID] = r
	}

	candidates := make([]billing.TariffRange, 0, len(req.Ranges))
	for _, input := range req.Ranges {
		if err := input.validate(); err != nil {
			return nil, err
		}
		if input.ID != nil {
			current, ok := existing[*input.ID]
			if !ok {
				return nil, shared.NewNotFoundError("range %s not found on tariff %s", *input.ID, tariff.ID)
			}
			if err := current.UpdateBounds(*input.MinM3, *input.MaxM3, *input.PricePerM3); err != nil {
				return nil, err
			}
			candidates = append(candidates, current)
			continue
		}

		r, err := billing.NewTariffRange(tariff.ID, *input.MinM3, *input.MaxM3, *input.PricePerM3)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, *r)
	}

	if err := tariff.ReplaceRanges(candidates); err != nil {
		return nil, err
	}

	processed, err := s.tariffRepo.SaveRanges(ctx, tariff.ID, tariff.Ranges)
	if err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, tariff)

	return &RangesProcessedResponse{TariffID: tariff.ID, Processed: processed}, nil
}

// publishDomainEvents publishes all domain events from the tariff
func (s *TariffService) publishDomainEvents(ctx context.Context, tariff *billing.Tariff) {
	if s.eventPublisher == nil {
		return
	}
	events := tariff.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	// Publish events (errors are logged by the event bus, not propagated)
	_ = s.eventPublisher.Publish(ctx, events...)
	tariff.ClearDomainEvents()
}
