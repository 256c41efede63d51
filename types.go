package bytrofront

import "encoding/json"

// OpenKey is the unauthenticated API key mode. Requests signed with it carry
// no user or session fields.
const OpenKey = "open"

// apiBuildVersion is the build identifier stamped onto locally synthesized
// results, matching the version string the live backend reports.
const apiBuildVersion = "4831_live"

// Config holds the session configuration the signed API depends on. It is
// the blob the game client exposes after login; numeric fields stay
// json.Number because the backend is inconsistent about string-vs-number
// and signing only ever concatenates them.
type Config struct {
	WebAPI         WebAPIConfig `json:"webapi"`
	Uber           UberConfig   `json:"uber"`
	UserID         json.Number  `json:"userId"`
	TrackingSource string       `json:"trackingSource"`
	WebsiteURL     string       `json:"websiteURL"`
}

// WebAPIConfig identifies the API key mode and protocol version.
type WebAPIConfig struct {
	Key     string      `json:"key"`
	Version json.Number `json:"version"`
}

// UberConfig carries the per-session authentication material. AuthHash acts
// as the signing secret in authenticated mode.
type UberConfig struct {
	AuthTstamp json.Number `json:"authTstamp"`
	AuthHash   string      `json:"authHash"`
}

// IsOpen reports whether the configuration uses the unauthenticated key mode.
func (c *Config) IsOpen() bool {
	return c.WebAPI.Key == OpenKey
}

// PreparedRequest is a fully assembled, single-use signed request.
type PreparedRequest struct {
	URL    string
	Body   string
	Method string
}

// ApiResult is the envelope every backend call returns. ResultCode 0 means
// success; by convention -1 means failure with ResultMessage carrying a
// short machine-checkable reason. ElapsedTime is stamped by the endpoint
// facades after the call completes.
type ApiResult struct {
	ResultCode         int             `json:"resultCode"`
	ResultMessage      string          `json:"resultMessage"`
	ResultMessageLarge string          `json:"resultMessageLarge,omitempty"`
	Result             json.RawMessage `json:"result"`
	Version            string          `json:"version,omitempty"`
	ElapsedTime        int64           `json:"elapsedTime,omitempty"`
	ReceivedData       json.RawMessage `json:"receivedData,omitempty"`
}

// OK reports whether the call succeeded at the business level.
func (r *ApiResult) OK() bool {
	return r.ResultCode == 0
}

// DecodeResult unmarshals the result payload into v.
func (r *ApiResult) DecodeResult(v any) error {
	if len(r.Result) == 0 {
		return ErrEmptyResult
	}
	return json.Unmarshal(r.Result, v)
}

// GameToken is the per-game capability returned by getGameToken. It names
// the game server host and the credentials required for any call to it.
// Tokens have no lifecycle of their own; the games facade may cache them
// as an opt-in convenience.
type GameToken struct {
	GS         string      `json:"gs"`
	Rights     string      `json:"rights"`
	AuthHash   string      `json:"authHash"`
	AuthTstamp json.Number `json:"authTstamp"`
}

// gameTokenResult is the result payload wrapping a GameToken.
type gameTokenResult struct {
	Token GameToken `json:"token"`
}

// GameRequest carries the parameters of one game-server call.
type GameRequest struct {
	GameServer string
	StateID    int
	Option     *int
	Rights     string
	UserAuth   string
	Tstamp     json.Number
}

// OverviewLogin is one merged participant entry in a game overview: the
// match-role fields from the game server joined with the user's profile
// from the signed API.
type OverviewLogin struct {
	SiteUserID int64           `json:"siteUserID"`
	PlayerID   int64           `json:"playerID"`
	Login      string          `json:"login"`
	Nation     string          `json:"nation"`
	TeamID     int64           `json:"teamID"`
	Profile    json.RawMessage `json:"profile,omitempty"`
}

// Overview is the consolidated game view produced by GameApi.GetOverview.
type Overview struct {
	Logins     []OverviewLogin `json:"logins"`
	Properties json.RawMessage `json:"properties"`
}
