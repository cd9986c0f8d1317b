// Package gateway 把 websocket 和 Discord 消息接入游戏调度器
package gateway

import (
	"errors"

	"github.com/qianlnk/deducebot/models"
)

var ErrNotConnected = errors.New("player is not connected")

// MessageHandler 接收频道消息和私聊消息，由 services.Supervisor 实现
type MessageHandler interface {
	HandleChannelMessage(author models.Participant, channel models.Channel, channelName, text string)
	HandleDirectMessage(author models.Participant, text string)
}

// StatusProvider 游戏状态查询，由 services.Supervisor 实现
type StatusProvider interface {
	Statuses() []models.GameStatus
	Status(channelName string) (models.GameStatus, error)
}
