package services

import (
	"context"

	"github.com/eventhub/apiserver/types"
)

// ReferenceService serves the lookup collections.
type ReferenceService struct {
	eventTypes EventTypeRepository
	skills     SkillRepository
}

func NewReferenceService(eventTypes EventTypeRepository, skills SkillRepository) *ReferenceService {
	return &ReferenceService{eventTypes: eventTypes, skills: skills}
}

// EventTypes returns every event type alphabetically by name.
func (s *ReferenceService) EventTypes(ctx context.Context) ([]types.EventType, error) {
	return s.eventTypes.List(ctx)
}

// Skills returns every skill alphabetically by name.
func (s *ReferenceService) Skills(ctx context.Context) ([]types.Skill, error) {
	return s.skills.List(ctx)
}
