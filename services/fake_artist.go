package services

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/qianlnk/deducebot/models"
	"go.uber.org/zap"
)

// TopicSource 题库
type TopicSource interface {
	Random(r *rand.Rand) (models.Topic, bool)
}

// FakeArtistGame 假画家：一名玩家只知道类别，其他人知道具体题目，最后投票找出假画家
type FakeArtistGame struct {
	*Game
	topics TopicSource
	topic  models.Topic
	tally  *VoteTally
}

func NewFakeArtistGame(channelName string, topics TopicSource, logger *zap.Logger, rng *rand.Rand) *FakeArtistGame {
	return &FakeArtistGame{
		Game:   newGame(models.FakeArtistKind, channelName, logger, rng),
		topics: topics,
	}
}

// Topic 本局题目
func (f *FakeArtistGame) Topic() models.Topic { return f.topic }

// Tally 最近一次投票结果，投票未完成时为 nil
func (f *FakeArtistGame) Tally() *VoteTally { return f.tally }

func (f *FakeArtistGame) Start() error {
	n := len(f.members)
	if n < 1 {
		return fmt.Errorf("%w: need at least 1 player", ErrWrongPlayerCount)
	}
	topic, ok := f.topics.Random(f.rng)
	if !ok {
		return ErrNoTopics
	}

	f.begin()
	f.topic = topic
	f.tally = nil

	roles := make([]models.RoleSet, 0, n)
	for i := 0; i < n-1; i++ {
		roles = append(roles, models.NewRoleSet(models.RolePlain))
	}
	roles = append(roles, models.NewRoleSet(models.RoleFaker))
	if err := f.AssignRoles(roles); err != nil {
		return err
	}
	f.Logger().Debug("假画家已分配", zap.Strings("faker", f.MemberNamesInRole(models.RoleFaker)))

	f.SendMessageToRole(models.RolePlain, fmt.Sprintf("Category: %s\nItem: %s", topic.Category, topic.Item))
	f.SendMessageToRole(models.RoleFaker, fmt.Sprintf("You are the faker!\nCategory: %s\nItem: ???", topic.Category))

	names := f.MemberNames()
	shuffle(f.rng, names)
	f.SendMessage("Turn Order:\n" + strings.Join(names, "\n"))
	return nil
}

func (f *FakeArtistGame) End() error {
	f.StartMemberVote(func(t *VoteTally) {
		f.tally = t
		f.SendMessage(t.Report())
	})
	return nil
}
