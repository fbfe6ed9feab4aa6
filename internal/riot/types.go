package riot

// FeaturedGames is the spectator-v5 featured-games payload.
type FeaturedGames struct {
	GameList              []FeaturedGame `json:"gameList"`
	ClientRefreshInterval int64          `json:"clientRefreshInterval"`
}

type FeaturedGame struct {
	GameID       int64         `json:"gameId"`
	GameMode     string        `json:"gameMode"`
	GameType     string        `json:"gameType"`
	MapID        int64         `json:"mapId"`
	PlatformID   string        `json:"platformId"`
	GameLength   int64         `json:"gameLength"`
	Participants []Participant `json:"participants"`
}

type Participant struct {
	SummonerName string `json:"summonerName"`
	RiotID       string `json:"riotId"`
	ChampionID   int64  `json:"championId"`
	TeamID       int64  `json:"teamId"`
	Bot          bool   `json:"bot"`
}

// Summoner is the summoner-v4 record.
type Summoner struct {
	ID            string `json:"id"`
	AccountID     string `json:"accountId"`
	PUUID         string `json:"puuid"`
	Name          string `json:"name"`
	ProfileIconID int    `json:"profileIconId"`
	RevisionDate  int64  `json:"revisionDate"`
	SummonerLevel int64  `json:"summonerLevel"`
}
