package bytrofront

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// AllianceApi groups the alliance endpoints.
type AllianceApi struct {
	client *Client
}

func newAllianceApi(c *Client) *AllianceApi {
	return &AllianceApi{client: c}
}

// GetDetails fetches an alliance, optionally with its member list.
func (a *AllianceApi) GetDetails(ctx context.Context, allianceID int64, members bool) (*ApiResult, error) {
	start := time.Now()

	data := NewPayload().
		Set("allianceID", allianceID).
		Set("members", members).
		Set("invites", 0)

	result, err := a.client.SendRequest(ctx, "getAlliance", data)
	if err != nil {
		return nil, err
	}
	result.ElapsedTime = elapsedSince(start)
	return result, nil
}

// GetBattles fetches an alliance's battle statistics.
func (a *AllianceApi) GetBattles(ctx context.Context, allianceID int64) (*ApiResult, error) {
	start := time.Now()

	data := NewPayload().Set("allianceID", allianceID)
	result, err := a.client.SendRequest(ctx, "getAllianceBattleStats", data)
	if err != nil {
		return nil, err
	}
	result.ElapsedTime = elapsedSince(start)
	return result, nil
}

// Search looks alliances up by name. With exactResult only a
// case-insensitive exact name match is kept; an empty result list always
// collapses to a "not found" result.
func (a *AllianceApi) Search(ctx context.Context, name string, exactResult bool) (*ApiResult, error) {
	start := time.Now()

	data := NewPayload().Set("name", name)
	result, err := a.client.SendRequest(ctx, "searchAlliance", data)
	if err != nil {
		return nil, err
	}

	if result.OK() {
		var entries []json.RawMessage
		if err := result.DecodeResult(&entries); err != nil {
			return nil, errors.Wrap(err, "decoding alliance search result")
		}

		if exactResult {
			match := json.RawMessage(nil)
			for _, entry := range entries {
				var row struct {
					Properties struct {
						Name string `json:"name"`
					} `json:"properties"`
				}
				if err := json.Unmarshal(entry, &row); err != nil {
					continue
				}
				if strings.EqualFold(row.Properties.Name, name) {
					match = entry
					break
				}
			}
			if match != nil {
				entries = []json.RawMessage{match}
				collapsed, err := json.Marshal(entries)
				if err != nil {
					return nil, errors.Wrap(err, "encoding alliance search result")
				}
				result.Result = collapsed
			} else {
				result.ResultCode = -1
				result.ResultMessage = "not found"
			}
		}

		if len(entries) == 0 {
			result.ResultCode = -1
			result.ResultMessage = "not found"
		}
	}

	result.ElapsedTime = elapsedSince(start)
	return result, nil
}

// GetRanking fetches a page of the alliance ranking. numEntries outside
// 10..50 only logs a warning, the caller's value is sent unmodified.
func (a *AllianceApi) GetRanking(ctx context.Context, page, numEntries int) (*ApiResult, error) {
	start := time.Now()

	if numEntries > 50 {
		logrus.Warn("the maximum number of entries allowed is 50")
	} else if numEntries < 10 {
		logrus.Warn("the minimum number of entries allowed is 10")
	}

	data := NewPayload().
		Set("page", page).
		Set("numEntries", numEntries)

	result, err := a.client.SendRequest(ctx, "getAllianceRanking", data)
	if err != nil {
		return nil, err
	}
	result.ElapsedTime = elapsedSince(start)
	return result, nil
}

// GetOpenAlliances lists alliances that still have open slots. The backend
// returns around 30 entries and offers no further filtering.
func (a *AllianceApi) GetOpenAlliances(ctx context.Context) (*ApiResult, error) {
	start := time.Now()

	result, err := a.client.SendRequest(ctx, "getAlliances", NewPayload())
	if err != nil {
		return nil, err
	}
	result.ElapsedTime = elapsedSince(start)
	return result, nil
}
