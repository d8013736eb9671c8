package domain

import "time"

// Post kinds. Bubbles are the current product surface; audio posts are the
// legacy shape kept for the old /api/audio endpoints. Both live in the same
// store (see the unified posts table in internal/sqlite).
const (
	KindBubble = "bubble"
	KindAudio  = "audio"
)

// Post represents one ephemeral audio clip. A post is live while ExpiryAt is
// in the future; once expired it is never served again and the reaper
// eventually deletes it.
type Post struct {
	// ID is assigned at creation and never changes.
	ID string `json:"id"`

	// Kind tags which product surface created the post (bubble or audio).
	Kind string `json:"kind"`

	// AudioURL points at the externally hosted binary.
	AudioURL string `json:"audioUrl"`

	// AnonymousID is the opaque per-device identifier of the author.
	AnonymousID string `json:"anonymousId"`

	// Username is only set on legacy audio posts; defaults to "anonymous".
	Username string `json:"username,omitempty"`

	// Avatar is an optional display decoration reference.
	Avatar string `json:"avatar,omitempty"`

	// Duration is the clip length in seconds, clamped at upload time.
	Duration float64 `json:"duration,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	ExpiryAt  time.Time `json:"expiryAt"`

	Impressions int64 `json:"impressions"`
	Likes       int64 `json:"likes"`
}

// Live reports whether the post should still be visible at the given instant.
func (p *Post) Live(now time.Time) bool {
	return p.ExpiryAt.After(now)
}
