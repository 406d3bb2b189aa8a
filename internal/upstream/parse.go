package upstream

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/huangsam/apprank/schema"
	"github.com/tidwall/gjson"
)

// Known envelope paths. The service wraps the page in "result" on some deployments.
const (
	wrappedListPath   = "result.miniApps"
	wrappedCursorPath = "result.next.cursor"
	flatListPath      = "miniApps"
	flatCursorPath    = "next.cursor"
)

// ErrUnknownEnvelope is returned when a page matches neither known envelope.
var ErrUnknownEnvelope = errors.New("unrecognized response envelope: expected result.miniApps or miniApps array")

// ParsePage decodes one page body into entries and the next cursor ("" when exhausted).
func ParsePage(body []byte) ([]schema.RankEntry, string, error) {
	if !gjson.ValidBytes(body) {
		return nil, "", errors.New("response is not valid JSON")
	}

	var list, cursor gjson.Result
	if r := gjson.GetBytes(body, wrappedListPath); r.IsArray() {
		list, cursor = r, gjson.GetBytes(body, wrappedCursorPath)
	} else if r := gjson.GetBytes(body, flatListPath); r.IsArray() {
		list, cursor = r, gjson.GetBytes(body, flatCursorPath)
	} else {
		return nil, "", ErrUnknownEnvelope
	}

	items := list.Array()
	entries := make([]schema.RankEntry, 0, len(items))
	for i, item := range items {
		entry, err := parseEntry(item)
		if err != nil {
			return nil, "", fmt.Errorf("entry %d: %w", i, err)
		}
		entries = append(entries, entry)
	}

	next := ""
	if cursor.Type == gjson.String || cursor.Type == gjson.Number {
		next = cursor.String()
	}
	return entries, next, nil
}

func parseEntry(item gjson.Result) (schema.RankEntry, error) {
	app := item.Get("miniApp")
	if !app.IsObject() {
		return schema.RankEntry{}, errors.New("missing miniApp object")
	}
	id := app.Get("id").String()
	if id == "" {
		return schema.RankEntry{}, errors.New("miniApp.id is empty")
	}
	rank := item.Get("rank")
	if rank.Type != gjson.Number || rank.Int() < 1 || rank.Num != float64(rank.Int()) {
		return schema.RankEntry{}, fmt.Errorf("miniApp %s has invalid rank %q", id, rank.Raw)
	}

	author := app.Get("author")
	entity := schema.Entity{
		ID:                    id,
		ShortID:               app.Get("shortId").String(),
		Name:                  app.Get("name").String(),
		Domain:                app.Get("domain").String(),
		HomeURL:               app.Get("homeUrl").String(),
		IconURL:               app.Get("iconUrl").String(),
		ImageURL:              app.Get("imageUrl").String(),
		SplashImageURL:        app.Get("splashImageUrl").String(),
		SplashBackgroundColor: app.Get("splashBackgroundColor").String(),
		ButtonTitle:           app.Get("buttonTitle").String(),
		SupportsNotifications: app.Get("supportsNotifications").Bool(),
		PrimaryCategory:       app.Get("primaryCategory").String(),
		AuthorFID:             author.Get("fid").Int(),
		AuthorUsername:        author.Get("username").String(),
		AuthorDisplayName:     author.Get("displayName").String(),
		AuthorFollowerCount:   author.Get("followerCount").Int(),
		AuthorFollowingCount:  author.Get("followingCount").Int(),
	}

	return schema.RankEntry{
		Entity: entity,
		Rank:   int(rank.Int()),
		Raw:    json.RawMessage(item.Raw),
	}, nil
}

// EncodePayload joins raw entries into the JSON array archived as the snapshot payload.
func EncodePayload(entries []schema.RankEntry) (json.RawMessage, error) {
	raws := make([]json.RawMessage, len(entries))
	for i, e := range entries {
		raw, err := RawEntry(e)
		if err != nil {
			return nil, err
		}
		raws[i] = raw
	}
	return json.Marshal(raws)
}

// RawEntry returns the verbatim upstream element, or encodes the parsed fields
// when the entry has no raw form.
func RawEntry(e schema.RankEntry) (json.RawMessage, error) {
	if len(e.Raw) > 0 {
		return e.Raw, nil
	}
	return json.Marshal(struct {
		MiniApp schema.Entity `json:"miniApp"`
		Rank    int           `json:"rank"`
	}{e.Entity, e.Rank})
}
