package bytrofront

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// UserApi groups the user endpoints.
type UserApi struct {
	client         *Client
	defaultOptions []string
	allOptions     []string
	rankingOptions []string
}

func newUserApi(c *Client) *UserApi {
	return &UserApi{
		client: c,
		defaultOptions: []string{
			"username", "avatarURL", "regTstamp", "alliance", "rankProgress", "gameStats",
		},
		allOptions: []string{
			"acl", "alliance", "allianceInvites", "allianceMemberShip", "askForEmail",
			"askForPassword", "avatarURL", "country", "deletionStatus", "email",
			"emailChangeRequest", "inventory", "isPaying", "battlePassProgress",
			"lastOfferPurchaseTimeSeconds", "links", "minModVersion", "notifications",
			"pushNotificationPreferences", "rank", "rankProgress", "referrer",
			"regTstamp", "shopPlatform", "showSocialMediaButtons",
			"isAllowedToShowStoreLinks", "sources", "subscriptions", "unreadMessages",
			"useFastPaypalCheckout", "username", "useShop2017", "canAdjustEmail",
			"shouldDisableInGameUserRegistration", "canUseInventorySystem",
			"publisherID", "qualityMatchAdsSupport", "useFirefly",
			"mayUseGgsShopWithoutPaymentMethods", "stats", "scenarioStats",
			"awardProgress", "gameStats",
		},
		rankingOptions: []string{
			"monthRank", "weekRank", "globalRank", "highestMonthRank",
			"highestWeekRank", "lastMonthRank", "lastWeekRank",
		},
	}
}

// GetDetails fetches a user by ID. When no options are given a default
// property set is requested; unknown options are warned about and skipped,
// the request still proceeds.
func (u *UserApi) GetDetails(ctx context.Context, userID int64, options ...string) (*ApiResult, error) {
	start := time.Now()

	if len(options) == 0 {
		options = u.defaultOptions
	}

	data := NewPayload().Set("userID", userID)
	for _, option := range options {
		if slices.Contains(u.allOptions, option) {
			data.Set(option, 1)
		} else {
			logrus.Warnf("the %q user option does not exist", option)
		}
	}

	result, err := u.client.SendRequest(ctx, "getUserDetails", data)
	if err != nil {
		return nil, err
	}
	result.ElapsedTime = elapsedSince(start)
	return result, nil
}

// Search looks a user up by name. With exactResult only a case-insensitive
// exact match is returned; no match yields a "not found" result.
func (u *UserApi) Search(ctx context.Context, username string, exactResult bool) (*ApiResult, error) {
	start := time.Now()

	data := NewPayload().Set("username", username)
	result, err := u.client.SendRequest(ctx, "searchUser", data)
	if err != nil {
		return nil, err
	}

	if exactResult && result.OK() {
		var entries []json.RawMessage
		if err := result.DecodeResult(&entries); err != nil {
			return nil, errors.Wrap(err, "decoding user search result")
		}

		match := json.RawMessage(nil)
		for _, entry := range entries {
			var row struct {
				Username string `json:"username"`
			}
			if err := json.Unmarshal(entry, &row); err != nil {
				continue
			}
			if strings.EqualFold(row.Username, username) {
				match = entry
				break
			}
		}

		if match != nil {
			collapsed, err := json.Marshal([]json.RawMessage{match})
			if err != nil {
				return nil, errors.Wrap(err, "encoding user search result")
			}
			result.Result = collapsed
		} else {
			result.ResultCode = -1
			result.ResultMessage = "not found"
		}
	}

	result.ElapsedTime = elapsedSince(start)
	return result, nil
}

// SendMail sends a private message to a user.
func (u *UserApi) SendMail(ctx context.Context, targetUserID int64, subject, body string) (*ApiResult, error) {
	start := time.Now()

	data := NewPayload().
		Set("receiverID", targetUserID).
		Set("subject", subject).
		Set("body", body).
		Set("mode", "pm")

	result, err := u.client.SendRequest(ctx, "sendMessage", data)
	if err != nil {
		return nil, err
	}
	result.ElapsedTime = elapsedSince(start)
	return result, nil
}

// GetRanking fetches a page of the user ranking. rankingType must be one of
// the known ranking lists ("globalRank", "weekRank", ...); an unknown type
// is rejected locally with an "incorrect option" result and no request is
// issued. numEntries outside 5..50 only logs a warning, the caller's value
// is sent unmodified.
func (u *UserApi) GetRanking(ctx context.Context, rankingType string, page, numEntries int) (*ApiResult, error) {
	start := time.Now()

	if numEntries > 50 {
		logrus.Warn("the maximum number of entries allowed is 50")
	} else if numEntries < 5 {
		logrus.Warn("the minimum number of entries allowed is 5")
	}

	data := NewPayload().
		Set("type", rankingType).
		Set("page", page).
		Set("numEntries", numEntries)

	if !slices.Contains(u.rankingOptions, rankingType) {
		received, err := json.Marshal(data)
		if err != nil {
			return nil, errors.Wrap(err, "encoding received data")
		}
		detail, err := json.Marshal(fmt.Sprintf("The %s type does not exist.", rankingType))
		if err != nil {
			return nil, errors.Wrap(err, "encoding ranking error")
		}
		return &ApiResult{
			ResultCode:    -1,
			ResultMessage: "incorrect option",
			Result:        detail,
			ElapsedTime:   elapsedSince(start),
			ReceivedData:  received,
		}, nil
	}

	result, err := u.client.SendRequest(ctx, "getRankingFirefly", data)
	if err != nil {
		return nil, err
	}
	result.ElapsedTime = elapsedSince(start)
	return result, nil
}
