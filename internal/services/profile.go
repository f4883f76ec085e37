package services

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"github.com/eventhub/apiserver/internal/mq"
	"github.com/eventhub/apiserver/internal/session"
	"github.com/eventhub/apiserver/pkg/logger"
	"github.com/eventhub/apiserver/types"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._]{2,29}$`)

// CanonicalUsername folds case and validates the username policy: 3 to 30
// characters of a-z, 0-9, dot and underscore, not starting with a symbol.
func CanonicalUsername(input string) (string, error) {
	canonical := cases.Fold().String(strings.TrimPrefix(strings.TrimSpace(input), "@"))
	if canonical == "" {
		return "", fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if !usernamePattern.MatchString(canonical) {
		return "", fmt.Errorf("%w: username %q does not match the required format", ErrInvalidInput, input)
	}
	return canonical, nil
}

// ProfileService encapsulates profile reads and edits.
type ProfileService struct {
	users     UserRepository
	skills    SkillRepository
	images    ImageStore
	publisher ChangePublisher
	log       logger.Logger
}

func NewProfileService(users UserRepository, skills SkillRepository, images ImageStore, publisher ChangePublisher, log logger.Logger) *ProfileService {
	if log == nil {
		log = logger.Nop()
	}
	return &ProfileService{
		users:     users,
		skills:    skills,
		images:    images,
		publisher: publisher,
		log:       log,
	}
}

// Get returns the user, or nil when it does not exist.
func (s *ProfileService) Get(ctx context.Context, userID string) (*types.User, error) {
	return s.users.Get(ctx, userID)
}

// UpdateProfile applies a partial profile edit for the session user.
//
// Username uniqueness is a pre-check query followed by the write. Two
// concurrent edits claiming the same username can both pass the check.
func (s *ProfileService) UpdateProfile(ctx context.Context, sess *session.Session, u types.UserUpdate) (*types.User, error) {
	userID := sess.CurrentUserID()
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		u.Name = &name
	}
	if u.Username != nil {
		username, err := CanonicalUsername(*u.Username)
		if err != nil {
			return nil, err
		}
		holder, err := s.users.FindByUsername(ctx, username)
		if err != nil {
			return nil, fmt.Errorf("check username: %w", err)
		}
		if holder != nil && holder.ID != userID {
			return nil, ErrUsernameTaken
		}
		u.Username = &username
	}
	if u.Skills != nil {
		if err := s.checkSkills(ctx, u.Skills); err != nil {
			return nil, err
		}
	}
	if u.Socials != nil {
		socials := trimSocials(*u.Socials)
		u.Socials = &socials
	}
	// Photos only change through UploadPhoto.
	u.PhotoURL = nil

	if err := s.users.Update(ctx, userID, u); err != nil {
		return nil, mapStoreErr(err)
	}
	return s.refresh(ctx, sess, userID)
}

// UploadPhoto stores a new profile photo for the session user.
func (s *ProfileService) UploadPhoto(ctx context.Context, sess *session.Session, r io.Reader, size int64, contentType string) (*types.User, error) {
	userID := sess.CurrentUserID()
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if s.images == nil {
		return nil, ErrStorageDisabled
	}

	current, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrNotFound
	}

	key, err := s.images.PutProfilePhoto(ctx, userID, r, size, contentType)
	if err != nil {
		return nil, wrapUploadErr(err)
	}
	if err := s.users.Update(ctx, userID, types.UserUpdate{PhotoURL: &key}); err != nil {
		return nil, mapStoreErr(err)
	}
	discardImage(ctx, s.images, s.log, current.PhotoURL)
	return s.refresh(ctx, sess, userID)
}

// refresh reloads the user, updates the session record and announces the edit.
func (s *ProfileService) refresh(ctx context.Context, sess *session.Session, userID string) (*types.User, error) {
	rec, err := s.users.GetRecord(ctx, userID)
	if err != nil {
		return nil, err
	}
	sess.SetUserData(rec)

	if s.publisher != nil {
		if err := s.publisher.PublishChange(ctx, mq.Change{Kind: mq.ProfileEdited, UserID: userID, ActorID: userID}); err != nil {
			s.log.Warn(ctx, "publish change failed", logger.String("user_id", userID), logger.Error(err))
		}
	}
	return s.users.Get(ctx, userID)
}

func (s *ProfileService) checkSkills(ctx context.Context, ratings map[string]int) error {
	known, err := s.skills.List(ctx)
	if err != nil {
		return fmt.Errorf("list skills: %w", err)
	}
	keys := make(map[string]struct{}, len(known))
	for _, skill := range known {
		keys[skill.Key] = struct{}{}
	}
	for key, rating := range ratings {
		if _, ok := keys[key]; !ok {
			return fmt.Errorf("%w: unknown skill %q", ErrInvalidInput, key)
		}
		if rating < types.MinSkillRating || rating > types.MaxSkillRating {
			return fmt.Errorf("%w: rating %d for %q outside %d..%d", ErrInvalidInput, rating, key, types.MinSkillRating, types.MaxSkillRating)
		}
	}
	return nil
}

func trimSocials(s types.SocialHandles) types.SocialHandles {
	m := s.Map()
	for key, value := range m {
		m[key] = strings.TrimSpace(value)
	}
	return types.SocialHandlesFromMap(m)
}
