package services

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/qianlnk/deducebot/models"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	ErrGameNotStarted   = errors.New("the game has not started")
	ErrGameInProgress   = errors.New("the game is already in progress")
	ErrGameAlreadyEnded = errors.New("the game has already ended")
	ErrMembershipLocked = errors.New("players cannot join or leave while the game is running")
	ErrAlreadyMember    = errors.New("already in the queue")
	ErrNotMember        = errors.New("not in the queue")
	ErrWrongPlayerCount = errors.New("wrong amount of players")
	ErrNoTopics         = errors.New("no topics loaded")
	ErrWrongRoleCount   = errors.New("role count does not match player count")
)

// Engine 具体规则引擎
type Engine interface {
	Base() *Game
	// Start 校验人数等前置条件并开始新一局，失败时不能修改状态
	Start() error
	// End 处理结束命令，返回后阶段变为 Ended
	End() error
}

// Game 所有规则引擎共享的基础状态
type Game struct {
	kind        models.GameKind
	channelName string
	channel     models.Channel
	members     []models.Participant
	roles       map[string]models.RoleSet
	phase       models.Phase
	roundID     string

	barriers    map[barrierID]*PromptsBarrier
	active      *PromptsBarrier
	nextBarrier barrierID

	rng    *rand.Rand
	logger *zap.Logger
	round  *zap.Logger
}

func newGame(kind models.GameKind, channelName string, logger *zap.Logger, rng *rand.Rand) *Game {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	logger = logger.With(zap.String("game", string(kind)), zap.String("channel", channelName))
	return &Game{
		kind:        kind,
		channelName: channelName,
		roles:       make(map[string]models.RoleSet),
		phase:       models.PhaseLobby,
		barriers:    make(map[barrierID]*PromptsBarrier),
		rng:         rng,
		logger:      logger,
		round:       logger,
	}
}

func (g *Game) Base() *Game { return g }

func (g *Game) Kind() models.GameKind { return g.kind }

func (g *Game) ChannelName() string { return g.channelName }

func (g *Game) Phase() models.Phase { return g.phase }

// Channel 绑定的公共频道，尚未收到任何大厅命令时为 nil
func (g *Game) Channel() models.Channel { return g.channel }

// Bind 绑定公共频道
func (g *Game) Bind(ch models.Channel) { g.channel = ch }

// Logger 带当前对局ID的日志
func (g *Game) Logger() *zap.Logger { return g.round }

// begin 开始新一局：清空角色，作废旧屏障，生成新的对局ID
func (g *Game) begin() {
	g.CancelActive()
	g.roles = make(map[string]models.RoleSet)
	g.phase = models.PhaseActive
	g.roundID = uuid.NewString()
	g.round = g.logger.With(zap.String("round_id", g.roundID))
	g.round.Info("对局开始", zap.Strings("members", g.MemberNames()))
}

// reset 结束后回到大厅
func (g *Game) reset() {
	g.CancelActive()
	g.roles = make(map[string]models.RoleSet)
	g.phase = models.PhaseLobby
	g.roundID = ""
	g.round = g.logger
}

// finish 标记对局结束
func (g *Game) finish() {
	g.phase = models.PhaseEnded
	g.round.Info("对局结束")
}

// Join 加入队列
func (g *Game) Join(p models.Participant) error {
	if err := g.unlockMembership(); err != nil {
		return err
	}
	if g.IsMember(p) {
		return ErrAlreadyMember
	}
	g.members = append(g.members, p)
	return nil
}

// Leave 离开队列
func (g *Game) Leave(p models.Participant) error {
	if err := g.unlockMembership(); err != nil {
		return err
	}
	idx := g.indexOf(p)
	if idx < 0 {
		return ErrNotMember
	}
	g.members = append(g.members[:idx], g.members[idx+1:]...)
	return nil
}

// unlockMembership 进行中或最终投票未完成时不能改变成员，已结束的对局先回到大厅
func (g *Game) unlockMembership() error {
	if g.phase == models.PhaseActive || g.active != nil {
		return ErrMembershipLocked
	}
	if g.phase == models.PhaseEnded {
		g.reset()
	}
	return nil
}

func (g *Game) indexOf(p models.Participant) int {
	for i, m := range g.members {
		if m.ID() == p.ID() {
			return i
		}
	}
	return -1
}

func (g *Game) IsMember(p models.Participant) bool { return g.indexOf(p) >= 0 }

// Members 按加入顺序返回成员
func (g *Game) Members() []models.Participant {
	return append([]models.Participant(nil), g.members...)
}

// MemberByName 按名字查找成员，忽略大小写
func (g *Game) MemberByName(name string) models.Participant {
	for _, m := range g.members {
		if strings.EqualFold(m.Name(), name) {
			return m
		}
	}
	return nil
}

func (g *Game) MemberNames() []string {
	names := make([]string, 0, len(g.members))
	for _, m := range g.members {
		names = append(names, m.Name())
	}
	return names
}

// MembersInRole 持有 role 的成员，按加入顺序
func (g *Game) MembersInRole(role models.Role) []models.Participant {
	var out []models.Participant
	for _, m := range g.members {
		if g.roles[m.ID()].Has(role) {
			out = append(out, m)
		}
	}
	return out
}

func (g *Game) MemberNamesInRole(role models.Role) []string {
	var names []string
	for _, m := range g.MembersInRole(role) {
		names = append(names, m.Name())
	}
	return names
}

// RolesOf 返回成员角色的副本
func (g *Game) RolesOf(p models.Participant) models.RoleSet {
	return g.roles[p.ID()].Clone()
}

func (g *Game) HasRole(p models.Participant, role models.Role) bool {
	return g.roles[p.ID()].Has(role)
}

// AssignRoles 打乱角色列表后按加入顺序分配给成员
func (g *Game) AssignRoles(roleSets []models.RoleSet) error {
	if len(roleSets) != len(g.members) {
		return fmt.Errorf("%w: %d roles for %d players", ErrWrongRoleCount, len(roleSets), len(g.members))
	}
	shuffled := append([]models.RoleSet(nil), roleSets...)
	shuffle(g.rng, shuffled)

	g.roles = make(map[string]models.RoleSet, len(g.members))
	for i, m := range g.members {
		g.roles[m.ID()] = shuffled[i].Clone()
	}
	return nil
}

// SendToChannel 只发送到公共频道
func (g *Game) SendToChannel(text string) {
	if g.channel == nil {
		g.round.Warn("未绑定频道，消息被丢弃", zap.String("text", text))
		return
	}
	if err := g.channel.Send(text); err != nil {
		g.round.Error("发送频道消息失败", zap.Error(err))
	}
}

// SendMessage 发送到公共频道，并私聊每个真实玩家
func (g *Game) SendMessage(text string) {
	g.SendToChannel(text)

	var errs error
	for _, m := range g.members {
		if m.Simulated() {
			continue
		}
		errs = multierr.Append(errs, g.dm(m, text))
	}
	if errs != nil {
		g.round.Error("广播私聊失败", zap.Errors("errors", multierr.Errors(errs)))
	}
}

// SendMessageToRole 私聊持有 role 的成员
func (g *Game) SendMessageToRole(role models.Role, text string) {
	var errs error
	for _, m := range g.MembersInRole(role) {
		errs = multierr.Append(errs, g.dm(m, text))
	}
	if errs != nil {
		g.round.Error("角色私聊失败", zap.String("role", string(role)), zap.Errors("errors", multierr.Errors(errs)))
	}
}

// SendDM 私聊单个玩家
func (g *Game) SendDM(p models.Participant, text string) {
	if err := g.dm(p, text); err != nil {
		g.round.Error("私聊失败", zap.Error(err))
	}
}

func (g *Game) dm(p models.Participant, text string) error {
	ch, err := p.OpenPrivateChannel()
	if err != nil {
		return fmt.Errorf("open private channel for %s: %w", p.Name(), err)
	}
	if err := ch.Send(text); err != nil {
		return fmt.Errorf("send to %s: %w", p.Name(), err)
	}
	return nil
}

// SendQueue 在频道中显示当前队列
func (g *Game) SendQueue() {
	var sb strings.Builder
	sb.WriteString("Queue:")
	for _, name := range g.MemberNames() {
		sb.WriteString("\n - " + name)
	}
	g.SendToChannel(sb.String())
}

// Status 当前状态快照
func (g *Game) Status() models.GameStatus {
	status := models.GameStatus{
		Kind:    g.kind,
		Channel: g.channelName,
		Phase:   g.phase,
		RoundID: g.roundID,
		Members: g.MemberNames(),
		Waiting: []string{},
	}
	if g.active != nil {
		for _, p := range g.active.prompts {
			if p.Pending() {
				status.Waiting = append(status.Waiting, p.target.Name())
			}
		}
	}
	return status
}

// StartGame 处理开始命令
func StartGame(e Engine) error {
	if e.Base().phase == models.PhaseActive {
		return ErrGameInProgress
	}
	return e.Start()
}

// EndGame 处理结束命令
func EndGame(e Engine) error {
	g := e.Base()
	switch g.phase {
	case models.PhaseLobby:
		return ErrGameNotStarted
	case models.PhaseEnded:
		return ErrGameAlreadyEnded
	}
	if err := e.End(); err != nil {
		return err
	}
	g.finish()
	return nil
}

func shuffle[T any](r *rand.Rand, s []T) {
	r.Shuffle(len(s), func(i, j int) {
		s[i], s[j] = s[j], s[i]
	})
}

// displayName 角色、位置等标签的展示名
func displayName(tag string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(tag, "_", " "))
}

func zapBarrier(b *PromptsBarrier) zap.Field {
	return zap.Uint64("barrier", uint64(b.id))
}
