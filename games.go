package bytrofront

import (
	"context"
	"encoding/json"
	"slices"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Game server state types.
const (
	StateDetails    = 0
	StatePlayers    = 1
	StateNewspaper  = 2
	StateProvinces  = 3
	StateMarket     = 4
	StateRelations  = 5
	StateItems      = 11
	StateConfig     = 12
	StateStatistics = 30
)

// maxConcurrentLookups bounds the fan-out of composed calls (per-user
// profile fetches, per-day newspaper fetches).
const maxConcurrentLookups = 5

// GameApi groups the game endpoints, including the composed overview that
// the backend does not offer as a single call.
type GameApi struct {
	client          *Client
	serverLanguages []string
	tokenCache      *lru.Cache[int64, GameToken]
}

func newGameApi(c *Client, cacheSize int) *GameApi {
	g := &GameApi{
		client: c,
		serverLanguages: []string{
			"cs", "de", "el", "en", "es", "fr", "id", "it", "ja", "nl", "pl", "pt", "ru", "tr",
		},
	}
	if cacheSize > 0 {
		// lru.New only fails on a non-positive size.
		g.tokenCache, _ = lru.New[int64, GameToken](cacheSize)
	}
	return g
}

// GetToken obtains the capability token for a game. A backend failure comes
// back as the structured "game not found" result, not as an error.
func (g *GameApi) GetToken(ctx context.Context, gameID int64) (*ApiResult, error) {
	start := time.Now()

	if g.tokenCache != nil {
		if token, ok := g.tokenCache.Get(gameID); ok {
			payload, err := json.Marshal(gameTokenResult{Token: token})
			if err != nil {
				return nil, errors.Wrap(err, "encoding cached token")
			}
			return &ApiResult{
				ResultCode:    0,
				ResultMessage: "ok",
				Result:        payload,
				Version:       apiBuildVersion,
				ElapsedTime:   elapsedSince(start),
			}, nil
		}
	}

	data := NewPayload().Set("gameID", gameID)
	result, err := g.client.SendRequest(ctx, "getGameToken", data)
	if err != nil {
		return nil, err
	}

	if !result.OK() {
		result = ErrorResult("game not found")
	} else if g.tokenCache != nil {
		if token, err := decodeToken(result); err == nil {
			g.tokenCache.Add(gameID, *token)
		}
	}

	result.ElapsedTime = elapsedSince(start)
	return result, nil
}

func decodeToken(result *ApiResult) (*GameToken, error) {
	var payload gameTokenResult
	if err := result.DecodeResult(&payload); err != nil {
		return nil, errors.Wrap(err, "decoding game token")
	}
	return &payload.Token, nil
}

// Search pages through the public game list. A language outside the server
// list falls back to "en" with a warning; numEntries outside 5..50 warns
// but is sent unmodified.
func (g *GameApi) Search(ctx context.Context, numEntries, page int, lang, filter string, scenarioID *int) (*ApiResult, error) {
	start := time.Now()

	if !slices.Contains(g.serverLanguages, lang) {
		logrus.Warnf("language %q does not exist, falling back to en", lang)
		lang = "en"
	}
	if numEntries > 50 {
		logrus.Warn("the maximum number of entries allowed is 50")
	} else if numEntries < 5 {
		logrus.Warn("the minimum number of entries allowed is 5")
	}

	var search interface{}
	if filter != "" {
		search = filter
	}
	var scenario interface{}
	if scenarioID != nil {
		scenario = *scenarioID
	}

	data := NewPayload().
		Set("numEntriesPerPage", numEntries).
		Set("page", page).
		Set("lang", lang).
		Set("isFilterSearch", filter != "").
		Set("search", search).
		Set("global", 1).
		Set("loadUserLoginData", 1).
		Set("scenarioID", scenario)

	result, err := g.client.SendRequest(ctx, "getGames", data)
	if err != nil {
		return nil, err
	}
	result.ElapsedTime = elapsedSince(start)
	return result, nil
}

// GetAdvancedDetails fetches one state slice of a game from its game
// server, acquiring the capability token first. A failed token lookup
// yields the "game not found" result without touching the game server.
func (g *GameApi) GetAdvancedDetails(ctx context.Context, gameID int64, stateID int, option *int) (*ApiResult, error) {
	start := time.Now()

	tokenResult, err := g.GetToken(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if !tokenResult.OK() {
		return ErrorResult("game not found"), nil
	}

	token, err := decodeToken(tokenResult)
	if err != nil {
		return nil, err
	}

	result, err := g.client.SendGameRequest(ctx, gameID, GameRequest{
		GameServer: token.GS,
		StateID:    stateID,
		Option:     option,
		Rights:     token.Rights,
		UserAuth:   token.AuthHash,
		Tstamp:     token.AuthTstamp,
	})
	if err != nil {
		return nil, err
	}
	result.ElapsedTime = elapsedSince(start)
	return result, nil
}

// GetDetails fetches the game's base state.
func (g *GameApi) GetDetails(ctx context.Context, gameID int64) (*ApiResult, error) {
	return g.stateShortcut(ctx, gameID, StateDetails)
}

// GetPlayers fetches the game's player list.
func (g *GameApi) GetPlayers(ctx context.Context, gameID int64) (*ApiResult, error) {
	return g.stateShortcut(ctx, gameID, StatePlayers)
}

// GetNewspaper fetches one day of the game's newspaper.
func (g *GameApi) GetNewspaper(ctx context.Context, gameID int64, day int) (*ApiResult, error) {
	start := time.Now()
	result, err := g.GetAdvancedDetails(ctx, gameID, StateNewspaper, &day)
	if err != nil {
		return nil, err
	}
	result.ElapsedTime = elapsedSince(start)
	return result, nil
}

// GetProvinces fetches the game's province map.
func (g *GameApi) GetProvinces(ctx context.Context, gameID int64) (*ApiResult, error) {
	return g.stateShortcut(ctx, gameID, StateProvinces)
}

// GetMarket fetches the game's market state.
func (g *GameApi) GetMarket(ctx context.Context, gameID int64) (*ApiResult, error) {
	return g.stateShortcut(ctx, gameID, StateMarket)
}

// GetRelations fetches the game's diplomatic relations.
func (g *GameApi) GetRelations(ctx context.Context, gameID int64) (*ApiResult, error) {
	return g.stateShortcut(ctx, gameID, StateRelations)
}

// GetItems fetches the game's content items.
func (g *GameApi) GetItems(ctx context.Context, gameID int64) (*ApiResult, error) {
	return g.stateShortcut(ctx, gameID, StateItems)
}

// GetConfig fetches the game's scenario configuration.
func (g *GameApi) GetConfig(ctx context.Context, gameID int64) (*ApiResult, error) {
	return g.stateShortcut(ctx, gameID, StateConfig)
}

// GetStatistics fetches the game's statistics state.
func (g *GameApi) GetStatistics(ctx context.Context, gameID int64) (*ApiResult, error) {
	return g.stateShortcut(ctx, gameID, StateStatistics)
}

func (g *GameApi) stateShortcut(ctx context.Context, gameID int64, stateID int) (*ApiResult, error) {
	start := time.Now()
	result, err := g.GetAdvancedDetails(ctx, gameID, stateID, nil)
	if err != nil {
		return nil, err
	}
	result.ElapsedTime = elapsedSince(start)
	return result, nil
}

// GetOverviewOld fetches the full game object in one call. The backend has
// to resolve every player server-side, which makes this excessively slow;
// prefer GetOverview.
func (g *GameApi) GetOverviewOld(ctx context.Context, gameID int64) (*ApiResult, error) {
	start := time.Now()
	result, err := g.client.SendRequest(ctx, "getGame", NewPayload().Set("gameID", gameID))
	if err != nil {
		return nil, err
	}
	result.ElapsedTime = elapsedSince(start)
	return result, nil
}

// gamePlayer is the per-participant slice of the game server's player
// state.
type gamePlayer struct {
	SiteUserID int64  `json:"siteUserID"`
	PlayerID   int64  `json:"playerID"`
	UserName   string `json:"userName"`
	NationName string `json:"nationName"`
	TeamID     int64  `json:"teamID"`
}

// GetOverview produces a consolidated view of a game that no single
// backend call offers: the game's properties plus every real participant
// merged with their site profile.
//
// The composition is properties -> token -> player state -> per-user
// profile fan-out -> merge. Missing properties or an unreadable player
// state yield the "game not found" result; a failing profile lookup fails
// the whole composite and cancels the remaining lookups.
func (g *GameApi) GetOverview(ctx context.Context, gameID int64) (*ApiResult, error) {
	start := time.Now()

	propsResult, err := g.client.SendRequest(ctx, "getGames", NewPayload().Set("gameID", gameID))
	if err != nil {
		return nil, err
	}
	var propEntries []struct {
		Properties json.RawMessage `json:"properties"`
	}
	var properties json.RawMessage
	if propsResult.OK() {
		if err := propsResult.DecodeResult(&propEntries); err == nil && len(propEntries) > 0 {
			properties = propEntries[0].Properties
		}
	}

	playersResult, err := g.GetAdvancedDetails(ctx, gameID, StatePlayers, nil)
	if err != nil {
		return nil, err
	}

	var state struct {
		Players map[string]gamePlayer `json:"players"`
	}
	if properties == nil || !playersResult.OK() || playersResult.DecodeResult(&state) != nil {
		return ErrorResult("game not found"), nil
	}

	// System entries (siteUserID <= 1) are AI and placeholder slots.
	logins := make([]OverviewLogin, 0, len(state.Players))
	index := make(map[int64]int)
	for _, player := range state.Players {
		if player.SiteUserID <= 1 {
			continue
		}
		if _, ok := index[player.SiteUserID]; ok {
			continue
		}
		index[player.SiteUserID] = len(logins)
		logins = append(logins, OverviewLogin{
			SiteUserID: player.SiteUserID,
			PlayerID:   player.PlayerID,
			Login:      player.UserName,
			Nation:     player.NationName,
			TeamID:     player.TeamID,
		})
	}
	sort.Slice(logins, func(i, j int) bool { return logins[i].SiteUserID < logins[j].SiteUserID })
	for i, login := range logins {
		index[login.SiteUserID] = i
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrentLookups)
	profiles := make([]*ApiResult, len(logins))
	for i, login := range logins {
		i, login := i, login
		group.Go(func() error {
			profile, err := g.client.Users.GetDetails(groupCtx, login.SiteUserID)
			if err != nil {
				return err
			}
			profiles[i] = profile
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	for _, profile := range profiles {
		var row struct {
			ID json.Number `json:"id"`
		}
		if profile == nil || profile.DecodeResult(&row) != nil {
			continue
		}
		id, err := row.ID.Int64()
		if err != nil {
			continue
		}
		if i, ok := index[id]; ok {
			logins[i].Profile = profile.Result
		}
	}

	payload, err := json.Marshal(Overview{Logins: logins, Properties: properties})
	if err != nil {
		return nil, errors.Wrap(err, "encoding game overview")
	}

	return &ApiResult{
		ResultCode:    0,
		ResultMessage: "ok",
		Result:        payload,
		Version:       apiBuildVersion,
		ElapsedTime:   elapsedSince(start),
	}, nil
}

// GetAllNewspapers fetches every newspaper day of a game: a probe for the
// current day followed by a bounded per-day fan-out. The result is the
// list of day payloads ordered by day.
func (g *GameApi) GetAllNewspapers(ctx context.Context, gameID int64) (*ApiResult, error) {
	start := time.Now()

	lastResult, err := g.GetAdvancedDetails(ctx, gameID, StateNewspaper, nil)
	if err != nil {
		return nil, err
	}
	var probe struct {
		Day int `json:"day"`
	}
	if err := lastResult.DecodeResult(&probe); err != nil {
		return nil, errors.Wrap(err, "decoding newspaper day probe")
	}

	days := make([]json.RawMessage, probe.Day+1)
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrentLookups)
	for day := range days {
		day := day
		group.Go(func() error {
			paper, err := g.GetNewspaper(groupCtx, gameID, day)
			if err != nil {
				return err
			}
			days[day] = paper.Result
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(days)
	if err != nil {
		return nil, errors.Wrap(err, "encoding newspapers")
	}

	return &ApiResult{
		ResultCode:    0,
		ResultMessage: "ok",
		Result:        payload,
		Version:       apiBuildVersion,
		ElapsedTime:   elapsedSince(start),
	}, nil
}
