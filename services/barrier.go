package services

import (
	"errors"

	"github.com/qianlnk/deducebot/models"
)

var (
	ErrBarrierTriggered = errors.New("barrier already triggered")
	ErrNoActiveBarrier  = errors.New("no active barrier")
)

// barrierID 游戏内屏障表的索引
type barrierID uint64

// PromptsBarrier 一组问题的汇合点，全部回答后触发一次完成回调
type PromptsBarrier struct {
	id        barrierID
	prompts   []*Prompt
	remaining int
	onDone    func()
	triggered bool
	done      bool
}

// AddPrompt 为 target 复制一份模板问题加入屏障，只能在触发前调用
func (b *PromptsBarrier) AddPrompt(target models.Participant, template *Prompt) error {
	if b.triggered {
		return ErrBarrierTriggered
	}
	b.attach(template.forTarget(target))
	return nil
}

func (b *PromptsBarrier) attach(p *Prompt) {
	p.barrier = b.id
	b.prompts = append(b.prompts, p)
	b.remaining++
}

// Remaining 尚未回答的问题数
func (b *PromptsBarrier) Remaining() int { return b.remaining }

func (b *PromptsBarrier) Done() bool { return b.done }

func (b *PromptsBarrier) Prompts() []*Prompt { return b.prompts }

// pendingFor 返回 target 第一个待回答的问题，没有则返回最后一个已回答的问题
func (b *PromptsBarrier) pendingFor(target models.Participant) *Prompt {
	var last *Prompt
	for _, p := range b.prompts {
		if p.target == nil || p.target.ID() != target.ID() {
			continue
		}
		if p.state == promptPending {
			return p
		}
		if p.state != promptCancelled {
			last = p
		}
	}
	return last
}

// cancel 作废所有待回答的问题，之后的回答会被拒绝
func (b *PromptsBarrier) cancel() {
	for _, p := range b.prompts {
		if p.state == promptPending {
			p.state = promptCancelled
		}
	}
}

// NewBarrier 创建新屏障，全部回答后调用 onDone
func (g *Game) NewBarrier(onDone func()) *PromptsBarrier {
	g.nextBarrier++
	return &PromptsBarrier{id: g.nextBarrier, onDone: onDone}
}

// Trigger 激活屏障并按加入顺序发送所有问题
//
// 旧的活动屏障会被作废，其完成回调不再触发。
func (g *Game) Trigger(b *PromptsBarrier) {
	if g.active != nil && g.active != b {
		g.supersede(g.active)
	}
	b.triggered = true
	g.barriers[b.id] = b
	g.active = b

	for _, p := range b.prompts {
		g.deliver(p)
	}
	if b.remaining == 0 {
		g.complete(b)
	}
}

// SendPromptTo 单独向一名玩家提问，完成回调为空
func (g *Game) SendPromptTo(target models.Participant, template *Prompt) {
	b := g.NewBarrier(nil)
	_ = b.AddPrompt(target, template)
	g.Trigger(b)
}

// SendPromptToAll 向所有玩家提问，全部回答后调用 onDone
func (g *Game) SendPromptToAll(template *Prompt, onDone func()) {
	b := g.NewBarrier(onDone)
	for _, m := range g.members {
		_ = b.AddPrompt(m, template)
	}
	g.Trigger(b)
}

// SendPromptToAllWithRole 只向持有 role 的玩家提问
func (g *Game) SendPromptToAllWithRole(role models.Role, template *Prompt, onDone func()) {
	b := g.NewBarrier(onDone)
	for _, m := range g.MembersInRole(role) {
		_ = b.AddPrompt(m, template)
	}
	g.Trigger(b)
}

// SendParasitePrompt 在进行中的屏障上追加一个问题并立即发送
func (g *Game) SendParasitePrompt(target models.Participant, template *Prompt) error {
	if g.active == nil {
		return ErrNoActiveBarrier
	}
	p := template.forTarget(target)
	g.active.attach(p)
	g.deliver(p)
	return nil
}

// ActiveBarrier 当前活动屏障，可能为 nil
func (g *Game) ActiveBarrier() *PromptsBarrier { return g.active }

// PromptFor 查找玩家在活动屏障中的问题
func (g *Game) PromptFor(target models.Participant) *Prompt {
	if g.active == nil {
		return nil
	}
	return g.active.pendingFor(target)
}

// CancelActive 作废当前活动屏障
func (g *Game) CancelActive() {
	if g.active != nil {
		g.supersede(g.active)
	}
}

func (g *Game) supersede(b *PromptsBarrier) {
	b.cancel()
	delete(g.barriers, b.id)
	if g.active == b {
		g.active = nil
	}
	g.Logger().Debug("屏障被替换", zapBarrier(b))
}

// promptAnswered 问题回答完成后递减计数，归零时触发完成回调
func (g *Game) promptAnswered(id barrierID) {
	b, ok := g.barriers[id]
	if !ok {
		return
	}
	if b.remaining > 0 {
		b.remaining--
	}
	if b.remaining == 0 {
		g.complete(b)
	}
}

func (g *Game) complete(b *PromptsBarrier) {
	if b.done {
		return
	}
	b.done = true
	delete(g.barriers, b.id)
	if g.active == b {
		g.active = nil
	}
	if b.onDone != nil {
		b.onDone()
	}
}

// Answer 处理玩家对问题的回答
func (g *Game) Answer(p *Prompt, raw string) error {
	switch p.state {
	case promptResolving, promptAnswered:
		g.SendDM(p.target, msgAlreadyAnswered)
		return ErrAlreadyAnswered
	case promptCancelled:
		return ErrPromptClosed
	}

	answer, ok := p.normalize(raw)
	if !ok {
		g.SendDM(p.target, msgInvalidChoice)
		return ErrInvalidChoice
	}

	g.SendDM(p.target, msgAnswerReceived)
	p.state = promptResolving
	if p.onAnswer != nil {
		p.onAnswer(p.target.Name(), answer)
	}
	p.state = promptAnswered
	g.promptAnswered(p.barrier)
	return nil
}

func (g *Game) deliver(p *Prompt) {
	g.SendDM(p.target, p.Text())
}
