package store

import (
	"time"

	"github.com/eventhub/apiserver/internal/docstore"
	"github.com/eventhub/apiserver/types"
)

// Field names shared by the decoders and the write paths.
const (
	fieldName        = "name"
	fieldDescription = "description"
	fieldStartTime   = "startTime"
	fieldEventType   = "eventType"
	fieldImage       = "image"
	fieldIsPublished = "isPublished"
	fieldOwner       = "owner"

	fieldUsername     = "username"
	fieldPhotoURL     = "photoURL"
	fieldSkills       = "skills"
	fieldSocials      = "socials"
	fieldCreatedAt    = "createdAt"
	fieldLastLoginAt  = "lastLoginAt"
	fieldLoginCount   = "loginCount"
	fieldProviderData = "providerData"

	fieldEvent = "event"
	fieldUser  = "user"
	fieldRole  = "role"

	fieldUserID       = "userId"
	fieldPasswordHash = "passwordHash"
	fieldProvider     = "provider"
)

func decodeEvent(rec docstore.Record) types.Event {
	event := types.Event{
		ID:          rec.ID(),
		Name:        rec.String(fieldName),
		Description: rec.String(fieldDescription),
		StartTime:   rec.Time(fieldStartTime),
		EventType:   rec.String(fieldEventType),
		Image:       rec.String(fieldImage),
		OwnerID:     rec.String(fieldOwner),
	}
	if published, ok := rec.Bool(fieldIsPublished); ok {
		event.IsPublished = &published
	}
	return event
}

func encodeEvent(event types.Event) map[string]any {
	fields := map[string]any{
		fieldName:        event.Name,
		fieldDescription: event.Description,
		fieldStartTime:   event.StartTime.UTC(),
		fieldEventType:   event.EventType,
		fieldImage:       event.Image,
		fieldOwner:       event.OwnerID,
	}
	if event.IsPublished != nil {
		fields[fieldIsPublished] = *event.IsPublished
	}
	return fields
}

func decodeEvents(recs []docstore.Record) []types.Event {
	out := make([]types.Event, 0, len(recs))
	for _, rec := range recs {
		out = append(out, decodeEvent(rec))
	}
	return out
}

func decodeUser(rec docstore.Record) types.User {
	return types.User{
		ID:       rec.ID(),
		Name:     rec.String(fieldName),
		Username: rec.String(fieldUsername),
		PhotoURL: rec.String(fieldPhotoURL),
		Skills:   rec.IntMap(fieldSkills),
		Socials:  types.SocialHandlesFromMap(rec.StringMap(fieldSocials)),
	}
}

func decodeUsers(recs []docstore.Record) []types.User {
	out := make([]types.User, 0, len(recs))
	for _, rec := range recs {
		out = append(out, decodeUser(rec))
	}
	return out
}

func skillsValue(skills map[string]int) map[string]any {
	out := make(map[string]any, len(skills))
	for key, rating := range skills {
		out[key] = rating
	}
	return out
}

func socialsValue(s types.SocialHandles) map[string]any {
	out := make(map[string]any)
	for key, handle := range s.Map() {
		out[key] = handle
	}
	return out
}

func decodeRoleAssignment(rec docstore.Record) types.RoleAssignment {
	return types.RoleAssignment{
		ID:      rec.ID(),
		EventID: rec.String(fieldEvent),
		UserID:  rec.String(fieldUser),
		Role:    types.Role(rec.String(fieldRole)),
	}
}

func decodeAccount(rec docstore.Record) types.Account {
	return types.Account{
		Email:        rec.ID(),
		UserID:       rec.String(fieldUserID),
		PasswordHash: rec.String(fieldPasswordHash),
		Provider:     rec.String(fieldProvider),
	}
}

func utcNow() time.Time {
	return time.Now().UTC()
}
