package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/qianlnk/deducebot/models"
	"go.uber.org/zap"
)

// quicksetup 最多创建的模拟玩家数
const maxQuickPlayers = 20

var ErrGameNotFound = errors.New("game not found")

// Supervisor 持有所有游戏，所有消息在同一把锁内串行处理
type Supervisor struct {
	mu             sync.Mutex
	games          []Engine
	simulated      map[string]*SimulatedParticipant
	allowSimulated bool
	logger         *zap.Logger
}

// NewSupervisor 创建调度器
func NewSupervisor(logger *zap.Logger, allowSimulated bool, games ...Engine) *Supervisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supervisor{
		games:          games,
		simulated:      make(map[string]*SimulatedParticipant),
		allowSimulated: allowSimulated,
		logger:         logger.Named("supervisor"),
	}
}

// HandleChannelMessage 处理公共频道消息
func (s *Supervisor) HandleChannelMessage(author models.Participant, channel models.Channel, channelName, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.recoverPanic(author)

	if s.allowSimulated && s.simulationCommand(channel, channelName, text) {
		return
	}
	s.channelMessage(author, channel, channelName, text)
}

// HandleDirectMessage 处理私聊消息
func (s *Supervisor) HandleDirectMessage(author models.Participant, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.recoverPanic(author)

	s.directMessage(author, text)
}

func (s *Supervisor) recoverPanic(author models.Participant) {
	if r := recover(); r != nil {
		s.logger.Error("处理消息时发生panic",
			zap.String("author", author.Name()),
			zap.Any("panic", r),
			zap.Stack("stack"))
	}
}

// simulationCommand 处理模拟玩家的测试命令，返回是否已处理
func (s *Supervisor) simulationCommand(channel models.Channel, channelName, text string) bool {
	words := strings.Fields(text)
	if len(words) < 2 {
		return false
	}
	rest := strings.Join(words[2:], " ")

	switch strings.ToLower(words[0]) {
	case "fakesay":
		s.channelMessage(s.simulatedFor(words[1], channel), channel, channelName, rest)
	case "fakedm":
		s.directMessage(s.simulatedFor(words[1], channel), rest)
	case "quicksetup":
		n, ok := s.quickCount(words[1])
		if !ok {
			return true
		}
		for i := 1; i <= n; i++ {
			s.channelMessage(s.simulatedFor("p"+strconv.Itoa(i), channel), channel, channelName, "join")
		}
	case "quickdm":
		n, ok := s.quickCount(words[1])
		if !ok {
			return true
		}
		for i := 1; i <= n; i++ {
			s.directMessage(s.simulatedFor("p"+strconv.Itoa(i), channel), rest)
		}
	default:
		return false
	}
	return true
}

func (s *Supervisor) quickCount(arg string) (int, bool) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		s.logger.Debug("无效的模拟玩家数量", zap.String("arg", arg))
		return 0, false
	}
	return min(n, maxQuickPlayers), true
}

// simulatedFor 按名字复用模拟玩家
func (s *Supervisor) simulatedFor(name string, base models.Channel) *SimulatedParticipant {
	key := strings.ToLower(name)
	if p, ok := s.simulated[key]; ok {
		return p
	}
	p := NewSimulatedParticipant(name, base)
	s.simulated[key] = p
	return p
}

func (s *Supervisor) channelMessage(author models.Participant, channel models.Channel, channelName, text string) {
	for _, e := range s.games {
		if e.Base().ChannelName() != channelName {
			continue
		}
		e.Base().Bind(channel)
		s.lobbyCommand(e, author, text)
	}
}

// directMessage 先找任一游戏中待回答的问题，再找已回答的问题，否则作为该玩家所在游戏的大厅命令
func (s *Supervisor) directMessage(author models.Participant, text string) {
	var answered *Prompt
	var answeredIn *Game
	for _, e := range s.games {
		g := e.Base()
		p := g.PromptFor(author)
		if p == nil {
			continue
		}
		if p.Pending() {
			s.answer(g, p, author, text)
			return
		}
		if answered == nil {
			answered, answeredIn = p, g
		}
	}
	if answered != nil {
		s.answer(answeredIn, answered, author, text)
		return
	}
	for _, e := range s.games {
		g := e.Base()
		if g.ActiveBarrier() == nil && g.Channel() != nil && g.IsMember(author) && s.lobbyCommand(e, author, text) {
			return
		}
	}
	s.logger.Debug("私聊消息无人处理", zap.String("author", author.Name()))
}

func (s *Supervisor) answer(g *Game, p *Prompt, author models.Participant, text string) {
	if err := g.Answer(p, text); err != nil {
		g.Logger().Debug("回答被拒绝", zap.String("author", author.Name()), zap.Error(err))
	}
}

// lobbyCommand 执行 join/leave/start/end，返回文本是否是命令
func (s *Supervisor) lobbyCommand(e Engine, author models.Participant, text string) bool {
	g := e.Base()
	cmd := strings.ToLower(strings.TrimSpace(text))

	var err error
	switch cmd {
	case "join":
		if err = g.Join(author); err == nil {
			g.SendQueue()
		}
	case "leave", "leaf":
		cmd = "leave"
		if err = g.Leave(author); err == nil {
			g.SendQueue()
		}
	case "start":
		err = StartGame(e)
	case "end":
		err = EndGame(e)
	default:
		return false
	}

	if err != nil {
		g.Logger().Info("命令执行失败", zap.String("command", cmd), zap.String("author", author.Name()), zap.Error(err))
		g.SendToChannel(fmt.Sprintf("Cannot %s: %v", cmd, err))
	}
	return true
}

// Statuses 所有游戏的状态快照
func (s *Supervisor) Statuses() []models.GameStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.GameStatus, 0, len(s.games))
	for _, e := range s.games {
		out = append(out, e.Base().Status())
	}
	return out
}

// Status 指定频道的游戏状态
func (s *Supervisor) Status(channelName string) (models.GameStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.games {
		if e.Base().ChannelName() == channelName {
			return e.Base().Status(), nil
		}
	}
	return models.GameStatus{}, ErrGameNotFound
}
