package auth

// Known OAuth scopes used by the tracker API.
const (
	ScopeEmissionsWrite  = "emissions:write"
	ScopeEmissionsRead   = "emissions:read"
	ScopeLeaderboardRead = "leaderboard:read"
)
