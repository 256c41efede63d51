package bytrofront

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okJSON(result interface{}) map[string]interface{} {
	return map[string]interface{}{
		"resultCode":    0,
		"resultMessage": "ok",
		"result":        result,
		"version":       "4831_live",
	}
}

func failJSON(message string) map[string]interface{} {
	return map[string]interface{}{
		"resultCode":    -1,
		"resultMessage": message,
		"result":        nil,
		"version":       "4831_live",
	}
}

func tokenJSON(gs string) map[string]interface{} {
	return okJSON(map[string]interface{}{
		"token": map[string]interface{}{
			"gs":         gs,
			"rights":     "chat",
			"authHash":   "tokenhash",
			"authTstamp": "1982337111",
		},
	})
}

func TestGetTokenFailureBecomesGameNotFound(t *testing.T) {
	defer gock.Off()

	gock.New("https://example.test").
		Post("/index.php").
		MatchParam("action", "getGameToken").
		Reply(200).
		JSON(failJSON("token error"))

	client := NewWithConfig(openConfig())
	result, err := client.Games.GetToken(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, -1, result.ResultCode)
	assert.Equal(t, "game not found", result.ResultMessage)
	assert.NotEmpty(t, result.ResultMessageLarge)
	assert.Equal(t, apiBuildVersion, result.Version)
}

func TestGetAdvancedDetailsShortCircuitsOnTokenFailure(t *testing.T) {
	defer gock.Off()

	// Only the token call is mocked: reaching the game server would fail
	// the test with an unmatched request.
	gock.New("https://example.test").
		Post("/index.php").
		MatchParam("action", "getGameToken").
		Reply(200).
		JSON(failJSON("token error"))

	client := NewWithConfig(openConfig())
	result, err := client.Games.GetAdvancedDetails(context.Background(), 42, StatePlayers, nil)
	require.NoError(t, err)
	assert.Equal(t, "game not found", result.ResultMessage)
	assert.False(t, gock.HasUnmatchedRequest())
	assert.True(t, gock.IsDone())
}

func TestGetAdvancedDetails(t *testing.T) {
	defer gock.Off()

	gock.New("https://example.test").
		Post("/index.php").
		MatchParam("action", "getGameToken").
		Reply(200).
		JSON(tokenJSON("gs1.example.test"))
	gock.New("https://gs1.example.test").
		Post("/").
		Reply(200).
		JSON(okJSON(map[string]interface{}{"day": 7}))

	client := NewWithConfig(openConfig())
	result, err := client.Games.GetDetails(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, result.OK())
	assert.True(t, gock.IsDone())
}

func TestGetOverviewMergesRealParticipants(t *testing.T) {
	defer gock.Off()

	gock.New("https://example.test").
		Post("/index.php").
		MatchParam("action", "getGames").
		Reply(200).
		JSON(okJSON([]interface{}{
			map[string]interface{}{
				"properties": map[string]interface{}{"gameID": 42, "name": "Test Game"},
			},
		}))
	gock.New("https://example.test").
		Post("/index.php").
		MatchParam("action", "getGameToken").
		Reply(200).
		JSON(tokenJSON("gs1.example.test"))
	gock.New("https://gs1.example.test").
		Post("/").
		Reply(200).
		JSON(okJSON(map[string]interface{}{
			"players": map[string]interface{}{
				// Two system slots and three real participants.
				"1": map[string]interface{}{"siteUserID": 0, "playerID": 1, "userName": "AI"},
				"2": map[string]interface{}{"siteUserID": 1, "playerID": 2, "userName": "system"},
				"3": map[string]interface{}{"siteUserID": 30, "playerID": 3, "userName": "carol", "nationName": "France", "teamID": 1},
				"4": map[string]interface{}{"siteUserID": 10, "playerID": 4, "userName": "alice", "nationName": "Italy", "teamID": 2},
				"5": map[string]interface{}{"siteUserID": 20, "playerID": 5, "userName": "bob", "nationName": "Spain", "teamID": 1},
			},
		}))
	for _, id := range []int{10, 20, 30} {
		gock.New("https://example.test").
			Post("/index.php").
			MatchParam("action", "getUserDetails").
			Reply(200).
			JSON(okJSON(map[string]interface{}{"id": id, "username": "user"}))
	}

	client := NewWithConfig(openConfig())
	result, err := client.Games.GetOverview(context.Background(), 42)
	require.NoError(t, err)
	require.True(t, result.OK())
	assert.True(t, gock.IsDone())

	var overview Overview
	require.NoError(t, result.DecodeResult(&overview))
	assert.NotEmpty(t, overview.Properties)
	require.Len(t, overview.Logins, 3)

	// Merged entries are ordered by site user ID and carry both the
	// match-role fields and a profile.
	assert.Equal(t, int64(10), overview.Logins[0].SiteUserID)
	assert.Equal(t, int64(20), overview.Logins[1].SiteUserID)
	assert.Equal(t, int64(30), overview.Logins[2].SiteUserID)
	for _, login := range overview.Logins {
		assert.NotEmpty(t, login.Login)
		assert.NotEmpty(t, login.Nation)
		require.NotNil(t, login.Profile)

		var profile struct {
			ID json.Number `json:"id"`
		}
		require.NoError(t, json.Unmarshal(login.Profile, &profile))
		id, err := profile.ID.Int64()
		require.NoError(t, err)
		assert.Equal(t, login.SiteUserID, id)
	}
}

func TestGetOverviewMissingPropertiesIsGameNotFound(t *testing.T) {
	defer gock.Off()

	gock.New("https://example.test").
		Post("/index.php").
		MatchParam("action", "getGames").
		Reply(200).
		JSON(okJSON([]interface{}{}))
	gock.New("https://example.test").
		Post("/index.php").
		MatchParam("action", "getGameToken").
		Reply(200).
		JSON(failJSON("token error"))

	client := NewWithConfig(openConfig())
	result, err := client.Games.GetOverview(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, -1, result.ResultCode)
	assert.Equal(t, "game not found", result.ResultMessage)
}

func TestGetAllNewspapers(t *testing.T) {
	defer gock.Off()

	// Token cache keeps this to a single token fetch; the game server
	// answers the probe and every per-day fetch with the same state.
	gock.New("https://example.test").
		Post("/index.php").
		MatchParam("action", "getGameToken").
		Times(1).
		Reply(200).
		JSON(tokenJSON("gs1.example.test"))
	gock.New("https://gs1.example.test").
		Post("/").
		Persist().
		Reply(200).
		JSON(okJSON(map[string]interface{}{"day": 2, "headline": "war"}))

	client := NewWithConfig(openConfig(), WithTokenCache(4))
	result, err := client.Games.GetAllNewspapers(context.Background(), 42)
	require.NoError(t, err)
	require.True(t, result.OK())

	var days []json.RawMessage
	require.NoError(t, result.DecodeResult(&days))
	assert.Len(t, days, 3)
}

func TestTokenCacheServesSecondLookup(t *testing.T) {
	defer gock.Off()

	gock.New("https://example.test").
		Post("/index.php").
		MatchParam("action", "getGameToken").
		Times(1).
		Reply(200).
		JSON(tokenJSON("gs1.example.test"))

	client := NewWithConfig(openConfig(), WithTokenCache(4))

	first, err := client.Games.GetToken(context.Background(), 42)
	require.NoError(t, err)
	require.True(t, first.OK())
	assert.True(t, gock.IsDone())

	second, err := client.Games.GetToken(context.Background(), 42)
	require.NoError(t, err)
	require.True(t, second.OK())

	token, err := decodeToken(second)
	require.NoError(t, err)
	assert.Equal(t, "gs1.example.test", token.GS)
	assert.False(t, gock.HasUnmatchedRequest())
}

func TestGameSearchFallsBackToEnglish(t *testing.T) {
	defer gock.Off()

	var captured string
	mock := gock.New("https://example.test").
		Post("/index.php").
		MatchParam("action", "getGames")
	mock.AddMatcher(capturePayload(&captured))
	mock.Reply(200).JSON(okJSON(map[string]interface{}{"games": []interface{}{}}))

	client := NewWithConfig(openConfig())
	result, err := client.Games.Search(context.Background(), 10, 0, "xx", "", nil)
	require.NoError(t, err)
	assert.True(t, result.OK())
	assert.Contains(t, captured, "lang=en")
	assert.NotContains(t, captured, "lang=xx")
}
