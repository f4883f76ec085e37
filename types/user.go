package types

// Skill ratings are bounded integers.
const (
	MinSkillRating = 0
	MaxSkillRating = 100
)

// User represents an account in the system.
// Server-internal bookkeeping (creation time, login counters, provider
// metadata) lives on the stored document but never reaches this struct.
type User struct {
	// ID is the unique identifier of the user.
	ID string `json:"id"`

	// Name is the user's display name.
	Name string `json:"name"`

	// Username is the globally unique handle chosen by the user.
	Username string `json:"username"`

	// PhotoURL references the profile photo in object storage.
	PhotoURL string `json:"photoURL,omitempty"`

	// Skills maps a skill key to the user's rating for it.
	Skills map[string]int `json:"skills,omitempty"`

	// Socials holds optional social-network handles.
	Socials SocialHandles `json:"socials"`
}

// SocialHandles are optional handles on external networks. Empty means unset.
type SocialHandles struct {
	Instagram string `json:"instagram,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	Facebook  string `json:"facebook,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
	TikTok    string `json:"tiktok,omitempty"`
	YouTube   string `json:"youtube,omitempty"`
	Twitch    string `json:"twitch,omitempty"`
	Website   string `json:"website,omitempty"`
}

// Map returns the non-empty handles keyed by network name.
func (s SocialHandles) Map() map[string]string {
	out := make(map[string]string)
	for key, value := range map[string]string{
		"instagram": s.Instagram,
		"twitter":   s.Twitter,
		"facebook":  s.Facebook,
		"linkedin":  s.LinkedIn,
		"tiktok":    s.TikTok,
		"youtube":   s.YouTube,
		"twitch":    s.Twitch,
		"website":   s.Website,
	} {
		if value != "" {
			out[key] = value
		}
	}
	return out
}

// SocialHandlesFromMap is the inverse of SocialHandles.Map. Unknown keys are ignored.
func SocialHandlesFromMap(m map[string]string) SocialHandles {
	return SocialHandles{
		Instagram: m["instagram"],
		Twitter:   m["twitter"],
		Facebook:  m["facebook"],
		LinkedIn:  m["linkedin"],
		TikTok:    m["tiktok"],
		YouTube:   m["youtube"],
		Twitch:    m["twitch"],
		Website:   m["website"],
	}
}

// Account is the credential record the auth provider keeps for a user.
type Account struct {
	// Email is the canonical (lowercased) sign-in address and the record key.
	Email string `json:"email"`

	// UserID links the account to its users document.
	UserID string `json:"userId"`

	// PasswordHash stores the bcrypt hash of the password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-"`

	// Provider names the sign-in method, e.g. "password".
	Provider string `json:"provider"`
}
