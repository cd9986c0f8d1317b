package services

import (
	"strings"

	"github.com/qianlnk/deducebot/models"
)

// labeledChannel 模拟玩家的私聊通道，消息带上玩家名后转发到公共频道
type labeledChannel struct {
	label string
	base  models.Channel
}

func (c *labeledChannel) Send(text string) error {
	return c.base.Send("---" + c.label + "---\n" + text)
}

// SimulatedParticipant 测试用的模拟玩家
type SimulatedParticipant struct {
	name    string
	channel *labeledChannel
}

// NewSimulatedParticipant 创建模拟玩家，私聊内容发往 base
func NewSimulatedParticipant(name string, base models.Channel) *SimulatedParticipant {
	return &SimulatedParticipant{
		name:    name,
		channel: &labeledChannel{label: name, base: base},
	}
}

func (s *SimulatedParticipant) ID() string { return "sim:" + strings.ToLower(s.name) }

func (s *SimulatedParticipant) Name() string { return s.name }

func (s *SimulatedParticipant) Simulated() bool { return true }

func (s *SimulatedParticipant) OpenPrivateChannel() (models.Channel, error) {
	return s.channel, nil
}
