package schema

import (
	"encoding/json"
	"time"
)

// Entity is a tracked ranked item with its descriptive metadata.
// Every sighting overwrites all fields.
type Entity struct {
	ID                    string `json:"id"`
	ShortID               string `json:"short_id"`
	Name                  string `json:"name"`
	Domain                string `json:"domain"`
	HomeURL               string `json:"home_url"`
	IconURL               string `json:"icon_url"`
	ImageURL              string `json:"image_url"`
	SplashImageURL        string `json:"splash_image_url"`
	SplashBackgroundColor string `json:"splash_background_color"`
	ButtonTitle           string `json:"button_title"`
	SupportsNotifications bool   `json:"supports_notifications"`
	PrimaryCategory       string `json:"primary_category"`
	AuthorFID             int64  `json:"author_fid"`
	AuthorUsername        string `json:"author_username"`
	AuthorDisplayName     string `json:"author_display_name"`
	AuthorFollowerCount   int64  `json:"author_follower_count"`
	AuthorFollowingCount  int64  `json:"author_following_count"`
}

// RankEntry is one element of the fetched ranking, in upstream order.
type RankEntry struct {
	Entity Entity
	Rank   int
	Raw    json.RawMessage // verbatim upstream element, archived in the snapshot
}

// RankFact is the rank an entity held on a calendar date.
type RankFact struct {
	EntityID string    `json:"entity_id"`
	Date     time.Time `json:"date"`
	Rank     int       `json:"rank"`
}

// Snapshot is the raw payload archived for a calendar date.
type Snapshot struct {
	Date        time.Time       `json:"date"`
	EntityCount int             `json:"entity_count"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// RunInfo identifies a single pipeline invocation.
type RunInfo struct {
	ID   string
	Date time.Time
}
