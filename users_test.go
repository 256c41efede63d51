package bytrofront

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/h2non/gock"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRankingIncorrectOptionIsRejectedLocally(t *testing.T) {
	// No mocks registered: any network attempt would fail the call.
	defer gock.Off()

	client := NewWithConfig(openConfig())
	result, err := client.Users.GetRanking(context.Background(), "bogus", 0, 10)
	require.NoError(t, err)

	assert.Equal(t, -1, result.ResultCode)
	assert.Equal(t, "incorrect option", result.ResultMessage)

	var detail string
	require.NoError(t, result.DecodeResult(&detail))
	assert.Equal(t, "The bogus type does not exist.", detail)

	var received struct {
		Type       string `json:"type"`
		Page       int    `json:"page"`
		NumEntries int    `json:"numEntries"`
	}
	require.NoError(t, json.Unmarshal(result.ReceivedData, &received))
	assert.Equal(t, "bogus", received.Type)
	assert.Equal(t, 10, received.NumEntries)
}

func TestGetRankingPaginationIsAdvisoryOnly(t *testing.T) {
	defer gock.Off()

	hook := test.NewGlobal()
	defer hook.Reset()

	var captured string
	mock := gock.New("https://example.test").
		Post("/index.php").
		MatchParam("action", "getRankingFirefly")
	mock.AddMatcher(capturePayload(&captured))
	mock.Reply(200).JSON(okJSON([]interface{}{}))

	client := NewWithConfig(openConfig())
	result, err := client.Users.GetRanking(context.Background(), "globalRank", 0, 99)
	require.NoError(t, err)
	assert.True(t, result.OK())

	// The request still carries the caller's value unmodified.
	assert.Contains(t, captured, "numEntries=99")
	require.NotEmpty(t, hook.Entries)
	assert.Contains(t, hook.LastEntry().Message, "maximum number of entries")
}

func TestGetDetailsSkipsUnknownOptions(t *testing.T) {
	defer gock.Off()

	hook := test.NewGlobal()
	defer hook.Reset()

	var captured string
	mock := gock.New("https://example.test").
		Post("/index.php").
		MatchParam("action", "getUserDetails")
	mock.AddMatcher(capturePayload(&captured))
	mock.Reply(200).JSON(okJSON(map[string]interface{}{"id": 5, "username": "bob"}))

	client := NewWithConfig(openConfig())
	result, err := client.Users.GetDetails(context.Background(), 5, "username", "bogusOption")
	require.NoError(t, err)
	assert.True(t, result.OK())

	assert.Contains(t, captured, "userID=5")
	assert.Contains(t, captured, "username=1")
	assert.NotContains(t, captured, "bogusOption")
	require.NotEmpty(t, hook.Entries)
	assert.Contains(t, hook.LastEntry().Message, "bogusOption")
}

func TestUserSearchExactMatchCollapses(t *testing.T) {
	defer gock.Off()

	gock.New("https://example.test").
		Post("/index.php").
		MatchParam("action", "searchUser").
		Reply(200).
		JSON(okJSON([]interface{}{
			map[string]interface{}{"id": 1, "username": "Bobby"},
			map[string]interface{}{"id": 2, "username": "BOB"},
		}))

	client := NewWithConfig(openConfig())
	result, err := client.Users.Search(context.Background(), "bob", true)
	require.NoError(t, err)
	require.True(t, result.OK())

	var entries []struct {
		ID       int    `json:"id"`
		Username string `json:"username"`
	}
	require.NoError(t, result.DecodeResult(&entries))
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].ID)
}

func TestUserSearchExactMatchNotFound(t *testing.T) {
	defer gock.Off()

	gock.New("https://example.test").
		Post("/index.php").
		MatchParam("action", "searchUser").
		Reply(200).
		JSON(okJSON([]interface{}{
			map[string]interface{}{"id": 1, "username": "other"},
		}))

	client := NewWithConfig(openConfig())
	result, err := client.Users.Search(context.Background(), "nonexistent", true)
	require.NoError(t, err)
	assert.Equal(t, -1, result.ResultCode)
	assert.Equal(t, "not found", result.ResultMessage)
}

func TestSendMail(t *testing.T) {
	defer gock.Off()

	var captured string
	mock := gock.New("https://example.test").
		Post("/index.php").
		MatchParam("action", "sendMessage")
	mock.AddMatcher(capturePayload(&captured))
	mock.Reply(200).JSON(okJSON(nil))

	client := NewWithConfig(openConfig())
	result, err := client.Users.SendMail(context.Background(), 7, "hello", "how are you")
	require.NoError(t, err)
	assert.True(t, result.OK())
	assert.Contains(t, captured, "receiverID=7")
	assert.Contains(t, captured, "mode=pm")
}
