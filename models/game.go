package models

// GameKind 游戏类型
type GameKind string

const (
	FakeArtistKind GameKind = "fake_artist" // 假画家投票
	PoliticalKind  GameKind = "political"   // 隐藏身份政治游戏
	OneNightKind   GameKind = "one_night"   // 一夜换牌
)

// Phase 游戏阶段
type Phase string

const (
	PhaseLobby  Phase = "lobby"  // 等待玩家加入
	PhaseActive Phase = "active" // 对局进行中
	PhaseEnded  Phase = "ended"  // 对局已结束
)

// Policy 政治游戏中的政策牌
type Policy string

const (
	PolicyProgressive Policy = "progressive"
	PolicyReactionary Policy = "reactionary"
)

// Topic 假画家游戏的题目
type Topic struct {
	Category string `json:"category"`
	Item     string `json:"item"`
}

// GameStatus 游戏状态快照
type GameStatus struct {
	Kind    GameKind `json:"kind"`
	Channel string   `json:"channel"`
	Phase   Phase    `json:"phase"`
	RoundID string   `json:"round_id,omitempty"`
	Members []string `json:"members"`
	Waiting []string `json:"waiting"` // 尚未回答当前问题的玩家
}
