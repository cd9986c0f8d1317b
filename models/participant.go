package models

// Channel 消息通道，公共频道和私聊都实现该接口
type Channel interface {
	Send(text string) error
}

// Participant 玩家身份
type Participant interface {
	// ID 在所属传输层内唯一
	ID() string
	Name() string
	// Simulated 为 true 时表示测试用的模拟玩家
	Simulated() bool
	OpenPrivateChannel() (Channel, error)
}
