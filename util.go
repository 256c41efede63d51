package bytrofront

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// UtilApi groups the content and utility endpoints.
type UtilApi struct {
	client *Client

	// contentItems is written once per explicit LoadContentItems call and
	// read thereafter; loads are not expected to race each other.
	contentItems json.RawMessage
}

func newUtilApi(c *Client) *UtilApi {
	return &UtilApi{client: c}
}

// GetContentItems fetches the game's content catalog (units, upgrades,
// ranks, awards, ...) for a language.
func (u *UtilApi) GetContentItems(ctx context.Context, lang string) (*ApiResult, error) {
	start := time.Now()

	data := NewPayload().
		Set("locale", lang).
		Set("units", 1).
		Set("upgrades", 1).
		Set("ranks", 1).
		Set("awards", 1).
		Set("mods", 1).
		Set("premiums", 1).
		Set("scenarios", 1).
		Set("title", 1).
		Set("researches", 1).
		Set("item_packs", 1)

	result, err := u.client.SendRequest(ctx, "getContentItems", data)
	if err != nil {
		return nil, err
	}
	result.ElapsedTime = elapsedSince(start)
	return result, nil
}

// GetCompleteContentItems fetches the content catalog through a live game:
// search one scenario-8 game for the language, then read its item state.
// The per-game items are more complete and already organized.
func (u *UtilApi) GetCompleteContentItems(ctx context.Context, lang string) (*ApiResult, error) {
	start := time.Now()

	scenario := 8
	gameList, err := u.client.Games.Search(ctx, 5, 0, lang, "", &scenario)
	if err != nil {
		return nil, err
	}

	var listing struct {
		Games []struct {
			Properties struct {
				GameID int64 `json:"gameID"`
			} `json:"properties"`
		} `json:"games"`
	}
	if err := gameList.DecodeResult(&listing); err != nil {
		return nil, errors.Wrap(err, "decoding game list")
	}
	if len(listing.Games) == 0 {
		return ErrorResult("game not found"), nil
	}

	result, err := u.client.Games.GetItems(ctx, listing.Games[0].Properties.GameID)
	if err != nil {
		return nil, err
	}
	result.ElapsedTime = elapsedSince(start)
	return result, nil
}

// LoadContentItems fetches the complete content catalog and keeps it on the
// facade for later reads through ContentItems.
func (u *UtilApi) LoadContentItems(ctx context.Context, lang string) (json.RawMessage, error) {
	result, err := u.GetCompleteContentItems(ctx, lang)
	if err != nil {
		return nil, err
	}
	if !result.OK() {
		return nil, errors.Errorf("loading content items: %s", result.ResultMessage)
	}
	u.contentItems = result.Result
	return u.contentItems, nil
}

// ContentItems returns the catalog loaded by LoadContentItems, or nil.
func (u *UtilApi) ContentItems() json.RawMessage {
	return u.contentItems
}
