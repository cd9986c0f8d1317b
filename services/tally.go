package services

import (
	"fmt"
	"strings"

	"github.com/qianlnk/deducebot/models"
	"go.uber.org/zap"
)

// VoteTally 按首次得票顺序记录的计票表
type VoteTally struct {
	order  []string
	counts map[string]int
}

func NewVoteTally() *VoteTally {
	return &VoteTally{counts: make(map[string]int)}
}

// Add 为 name 记一票
func (t *VoteTally) Add(name string) {
	if _, ok := t.counts[name]; !ok {
		t.order = append(t.order, name)
	}
	t.counts[name]++
}

func (t *VoteTally) Count(name string) int { return t.counts[name] }

// Candidates 得票者，按首次得票顺序
func (t *VoteTally) Candidates() []string {
	return append([]string(nil), t.order...)
}

// Lines 每个候选人一行结果
func (t *VoteTally) Lines() []string {
	lines := make([]string, 0, len(t.order))
	for _, name := range t.order {
		lines = append(lines, fmt.Sprintf("%s has %d votes!", name, t.counts[name]))
	}
	return lines
}

func (t *VoteTally) Report() string {
	if len(t.order) == 0 {
		return "No votes were cast"
	}
	return strings.Join(t.Lines(), "\n")
}

// StartMemberVote 所有成员投票选出一名玩家，全部投完后调用 done
func (g *Game) StartMemberVote(done func(*VoteTally)) {
	tally := NewVoteTally()
	q := "Please vote for one of the following: " + strings.Join(g.MemberNames(), ", ") + " by replying with the name"
	record := func(_, voted string) {
		if m := g.MemberByName(voted); m != nil {
			voted = m.Name()
		}
		tally.Add(voted)
	}
	g.SendPromptToAll(g.NewMemberPrompt(nil, q, record), func() {
		g.round.Info("投票结束", zap.Strings("result", tally.Lines()))
		done(tally)
	})
}

// NewMemberPrompt 以成员名字为选项的问题
func (g *Game) NewMemberPrompt(exclude []string, question string, fn AnswerFunc) *Prompt {
	return NewChoicePrompt(question, g.MemberNames(), exclude, fn)
}

// NewMemberInRolePrompt 以持有 role 的成员名字为选项的问题
func (g *Game) NewMemberInRolePrompt(role models.Role, exclude []string, question string, fn AnswerFunc) *Prompt {
	return NewChoicePrompt(question, g.MemberNamesInRole(role), exclude, fn)
}
