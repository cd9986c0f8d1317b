package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/qianlnk/deducebot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestPolitical(t *testing.T, n int) (*PoliticalGame, *recordingChannel, []*testParticipant) {
	t.Helper()
	p := NewPoliticalGame("hidden-leader", zap.NewNop(), newTestRand())
	ch := &recordingChannel{}
	p.Bind(ch)
	players := seat(t, p.Game, playerNames(n)...)
	return p, ch, players
}

func startPolitical(t *testing.T, n int) (*PoliticalGame, *recordingChannel, []*testParticipant) {
	t.Helper()
	p, ch, players := newTestPolitical(t, n)
	require.NoError(t, StartGame(p))
	return p, ch, players
}

func leaderOf(t *testing.T, p *PoliticalGame) models.Participant {
	t.Helper()
	leaders := p.MembersInRole(models.RoleLeader)
	require.Len(t, leaders, 1)
	return leaders[0]
}

// presideAsNonLeader 让不是领袖的玩家成为总统并重新提名
func presideAsNonLeader(t *testing.T, p *PoliticalGame) models.Participant {
	t.Helper()
	leader := leaderOf(t, p)
	for i, m := range p.turnOrder {
		if m.ID() != leader.ID() {
			p.placard = i
			p.nominate()
			return m
		}
	}
	t.Fatal("no non-leader player")
	return nil
}

// electNonLeader 总统提名一名非领袖玩家，全体投赞成票
func electNonLeader(t *testing.T, p *PoliticalGame) models.Participant {
	t.Helper()
	leader := leaderOf(t, p)
	for _, c := range choicesFor(t, p.Game, p.President()) {
		if !strings.EqualFold(c, leader.Name()) {
			answer(t, p.Game, p.President(), c)
			voteAll(t, p, "yes")
			require.NotNil(t, p.Chancellor())
			return p.Chancellor()
		}
	}
	t.Fatal("no electable chancellor")
	return nil
}

func voteAll(t *testing.T, p *PoliticalGame, vote string) {
	t.Helper()
	for _, m := range p.MembersInRole(models.RoleAlive) {
		answer(t, p.Game, m, vote)
	}
}

func stackDeck(p *PoliticalGame, top ...models.Policy) {
	p.deck = append(append([]models.Policy(nil), top...), p.deck...)
}

func TestPoliticalWrongPlayerCount(t *testing.T) {
	for _, n := range []int{0, 4, 11} {
		p, _, _ := newTestPolitical(t, n)
		err := StartGame(p)
		require.ErrorIs(t, err, ErrWrongPlayerCount, "players=%d", n)
		assert.Equal(t, models.PhaseLobby, p.Phase())
		assert.Nil(t, p.ActiveBarrier())
	}
}

func TestPoliticalRoleBrackets(t *testing.T) {
	cases := []struct {
		players      int
		progressives int
		reactionary  int
		leaderKnows  bool
	}{
		{5, 3, 1, true},
		{6, 4, 1, true},
		{7, 4, 2, false},
		{8, 5, 2, false},
		{9, 5, 3, false},
		{10, 6, 3, false},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d players", tc.players), func(t *testing.T) {
			p, _, _ := startPolitical(t, tc.players)

			assert.Len(t, p.MembersInRole(models.RoleProgressive), tc.progressives)
			assert.Len(t, p.MembersInRole(models.RoleReactionary), tc.reactionary)
			assert.Len(t, p.MembersInRole(models.RoleAlive), tc.players)
			leader := leaderOf(t, p)

			inbox := leader.(*testParticipant).inbox
			assert.Equal(t, tc.leaderKnows, strings.Contains(inbox.messages[0], "--REACTIONARIES--"))

			deck, discard := p.DeckSize()
			assert.Equal(t, 17, deck)
			assert.Zero(t, discard)
			assert.NotNil(t, p.PromptFor(p.President()))
		})
	}
}

func TestReactionariesKnowTheirTeam(t *testing.T) {
	p, _, _ := startPolitical(t, 7)
	leader := leaderOf(t, p)

	for _, m := range p.MembersInRole(models.RoleReactionary) {
		msg := m.(*testParticipant).inbox.messages[0]
		assert.True(t, strings.HasPrefix(msg, "You are a reactionary\n"))
		assert.Contains(t, msg, "--HIDDEN LEADER--\n"+leader.Name())
	}
}

func TestTermLimits(t *testing.T) {
	cases := []struct {
		name      string
		players   int
		alive     int
		wantPrev  bool
		wantCount int
	}{
		{"five players", 5, 5, false, 2},
		{"six players", 6, 6, true, 3},
		{"six players with one dead", 6, 5, false, 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, _, _ := startPolitical(t, tc.players)
			p.turnOrder = p.turnOrder[:tc.alive]
			p.placard = 0
			p.lastPresident = p.turnOrder[1]
			p.lastChancellor = p.turnOrder[2]

			excluded := p.NonNominable()
			assert.Len(t, excluded, tc.wantCount)
			assert.Contains(t, excluded, p.turnOrder[0].Name())
			assert.Contains(t, excluded, p.turnOrder[2].Name())
			if tc.wantPrev {
				assert.Contains(t, excluded, p.turnOrder[1].Name())
			} else {
				assert.NotContains(t, excluded, p.turnOrder[1].Name())
			}

			p.nominate()
			choices := choicesFor(t, p.Game, p.President())
			for _, name := range excluded {
				assert.NotContains(t, choices, strings.ToLower(name))
			}
		})
	}
}

func TestThreeFailedVotesForcePolicy(t *testing.T) {
	p, ch, _ := startPolitical(t, 5)

	var top models.Policy
	for round := 1; round <= 3; round++ {
		if round == 3 {
			top = p.deck[0]
		}
		pres := p.President()
		answer(t, p.Game, pres, choicesFor(t, p.Game, pres)[0])
		voteAll(t, p, "no")
		if round < 3 {
			assert.Equal(t, round, p.FailedVotes())
		}
	}

	assert.True(t, ch.contains("Vote tracker is at 2"))
	assert.True(t, ch.contains("The populace is angry and riot to play an agenda of their own"))

	prog, reac := p.PolicyCounts()
	if top == models.PolicyProgressive {
		assert.Equal(t, 1, prog)
		assert.Zero(t, reac)
	} else {
		assert.Zero(t, prog)
		assert.Equal(t, 1, reac)
	}

	lastPres, lastChan := p.TermLimits()
	assert.Nil(t, lastPres)
	assert.Nil(t, lastChan)
	assert.Zero(t, p.FailedVotes())
	deck, _ := p.DeckSize()
	assert.Equal(t, 16, deck)
	assert.Equal(t, models.PhaseActive, p.Phase())
	assert.NotNil(t, p.PromptFor(p.President()))
}

func TestPassedVoteRecordsTermLimits(t *testing.T) {
	p, ch, _ := startPolitical(t, 5)
	pres := p.President()

	chancellor := electNonLeader(t, p)

	lastPres, lastChan := p.TermLimits()
	assert.Equal(t, pres.ID(), lastPres.ID())
	assert.Equal(t, chancellor.ID(), lastChan.ID())
	assert.True(t, ch.contains("Vote passed! There were 5 votes for yes and 0 votes for no."))
	assert.Len(t, p.hand, 3)
}

func TestElectingLeaderAfterThreeReactionaryPolicies(t *testing.T) {
	p, ch, _ := startPolitical(t, 5)
	leader := leaderOf(t, p)
	p.reactionary = 3

	pres := presideAsNonLeader(t, p)
	answer(t, p.Game, pres, leader.Name())
	voteAll(t, p, "yes")

	assert.Equal(t, models.PhaseEnded, p.Phase())
	assert.True(t, ch.contains("You have elected the hidden leader "+leader.Name()+" as chancellor, reactionaries win!"))
	assert.True(t, strings.HasPrefix(ch.last(), "--ROLES--\n"))
	assert.Contains(t, ch.last(), leader.Name()+": Hidden Leader")
}

func TestFifthProgressivePolicyWins(t *testing.T) {
	p, ch, _ := startPolitical(t, 5)
	p.progressive = 4
	stackDeck(p, models.PolicyProgressive, models.PolicyProgressive, models.PolicyProgressive)

	pres := p.President()
	chancellor := electNonLeader(t, p)
	assert.Equal(t, []string{"progressive"}, choicesFor(t, p.Game, pres))
	answer(t, p.Game, pres, "progressive")
	answer(t, p.Game, chancellor, "p")

	prog, _ := p.PolicyCounts()
	assert.Equal(t, 5, prog)
	assert.Equal(t, models.PhaseEnded, p.Phase())
	assert.True(t, ch.contains("Progressives have won the game!"))
}

func TestSixthReactionaryPolicyWins(t *testing.T) {
	p, ch, _ := startPolitical(t, 5)
	p.reactionary = 5
	stackDeck(p, models.PolicyReactionary, models.PolicyReactionary, models.PolicyReactionary)

	pres := p.President()
	chancellor := electNonLeader(t, p)
	answer(t, p.Game, pres, "r")
	assert.Equal(t, []string{"reactionary", "veto"}, choicesFor(t, p.Game, chancellor))
	answer(t, p.Game, chancellor, "r")

	_, reac := p.PolicyCounts()
	assert.Equal(t, 6, reac)
	assert.Equal(t, models.PhaseEnded, p.Phase())
	assert.True(t, ch.contains("Reactionaries have won the game!"))
}

func TestVeto(t *testing.T) {
	cases := []struct {
		name   string
		accept string
	}{
		{"accepted", "yes"},
		{"rejected", "no"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, ch, _ := startPolitical(t, 5)
			p.reactionary = 5
			stackDeck(p, models.PolicyReactionary, models.PolicyProgressive, models.PolicyProgressive)

			pres := p.President()
			chancellor := electNonLeader(t, p)
			answer(t, p.Game, pres, "reactionary")
			assert.Equal(t, []string{"progressive", "veto"}, choicesFor(t, p.Game, chancellor))
			answer(t, p.Game, chancellor, "veto")
			assert.True(t, ch.contains(chancellor.Name()+" has requested a veto"))
			answer(t, p.Game, pres, tc.accept)

			if tc.accept == "yes" {
				_, discard := p.DeckSize()
				assert.Equal(t, 3, discard)
				assert.NotEqual(t, pres.ID(), p.President().ID())
				assert.Empty(t, p.hand)
				return
			}
			assert.True(t, ch.contains("The veto was rejected"))
			assert.Equal(t, []string{"progressive"}, choicesFor(t, p.Game, chancellor))
		})
	}
}

func TestExecutivePowerFor(t *testing.T) {
	cases := []struct {
		players     int
		reactionary int
		want        executivePower
	}{
		{5, 1, powerNone},
		{5, 2, powerNone},
		{5, 3, powerPeek},
		{6, 4, powerAssassinate},
		{6, 5, powerAssassinate},
		{7, 1, powerNone},
		{7, 2, powerInvestigate},
		{8, 3, powerSpecialElection},
		{8, 4, powerAssassinate},
		{9, 1, powerInvestigate},
		{10, 2, powerInvestigate},
		{10, 3, powerSpecialElection},
		{10, 5, powerAssassinate},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, executivePowerFor(tc.players, tc.reactionary), "players=%d reactionary=%d", tc.players, tc.reactionary)
	}
}

func TestPolicyPeek(t *testing.T) {
	p, ch, _ := startPolitical(t, 5)
	p.reactionary = 3
	stackDeck(p, models.PolicyReactionary, models.PolicyProgressive, models.PolicyReactionary)
	pres := p.President()

	p.usePower()

	assert.True(t, ch.contains("The president gets to investigate the top three agendas of the deck!"))
	assert.Contains(t, pres.(*testParticipant).inbox.messages, "The top of the deck has 2 reactionary agendas and 1 progressive agendas.")
	assert.NotEqual(t, pres.ID(), p.President().ID())
}

func TestAssassinatingLeaderEndsGame(t *testing.T) {
	p, ch, _ := startPolitical(t, 5)
	leader := leaderOf(t, p)
	p.reactionary = 4
	pres := presideAsNonLeader(t, p)
	p.CancelActive()

	p.usePower()
	assert.NotContains(t, choicesFor(t, p.Game, pres), strings.ToLower(pres.Name()))
	answer(t, p.Game, pres, leader.Name())

	assert.Equal(t, models.PhaseEnded, p.Phase())
	assert.True(t, ch.contains(leader.Name()+" who was just killed was the hidden leader so progressives win!"))
}

func TestAssassinationRemovesPlayer(t *testing.T) {
	p, ch, _ := startPolitical(t, 6)
	leader := leaderOf(t, p)
	p.reactionary = 4
	pres := presideAsNonLeader(t, p)
	p.CancelActive()

	var target models.Participant
	for _, m := range p.turnOrder {
		if m.ID() != leader.ID() && m.ID() != pres.ID() {
			target = m
			break
		}
	}
	require.NotNil(t, target)

	p.usePower()
	answer(t, p.Game, pres, target.Name())

	assert.Len(t, p.TurnOrder(), 5)
	assert.False(t, p.HasRole(target, models.RoleAlive))
	assert.True(t, p.IsMember(target))
	assert.True(t, ch.contains("Updated Turn Order:"))
	assert.Equal(t, models.PhaseActive, p.Phase())

	next := p.President()
	assert.NotEqual(t, target.ID(), next.ID())
	assert.NotContains(t, choicesFor(t, p.Game, next), strings.ToLower(target.Name()))
}

func TestInvestigation(t *testing.T) {
	p, ch, _ := startPolitical(t, 7)
	p.reactionary = 2
	pres := p.President()

	p.usePower()
	choices := choicesFor(t, p.Game, pres)
	target := p.MemberByName(choices[0])
	require.NotNil(t, target)
	answer(t, p.Game, pres, choices[0])

	party := "progressive"
	if !p.HasRole(target, models.RoleProgressive) {
		party = "reactionary"
	}
	assert.Contains(t, pres.(*testParticipant).inbox.messages, target.Name()+" is a member of the "+party+" party")
	assert.True(t, ch.contains("The president has investigated "+target.Name()))

	// 同一玩家不能被调查两次
	p.usePower()
	assert.NotContains(t, choicesFor(t, p.Game, p.President()), strings.ToLower(target.Name()))
}

func TestSpecialElection(t *testing.T) {
	p, _, _ := startPolitical(t, 7)
	p.reactionary = 3
	p.placard = 2
	caller := p.President()

	p.usePower()
	chosen := p.turnOrder[5]
	answer(t, p.Game, caller, chosen.Name())
	assert.Equal(t, chosen.ID(), p.President().ID())

	// 特别选举的总统任期结束后回到发起人的下一位
	answer(t, p.Game, chosen, choicesFor(t, p.Game, chosen)[0])
	voteAll(t, p, "no")
	assert.Equal(t, p.turnOrder[3].ID(), p.President().ID())
}

func TestPoliticalEndEarly(t *testing.T) {
	p, ch, _ := startPolitical(t, 5)

	require.NoError(t, EndGame(p))
	assert.Equal(t, models.PhaseEnded, p.Phase())
	assert.Nil(t, p.ActiveBarrier())
	assert.True(t, ch.contains("The game has been ended early"))
	assert.True(t, strings.HasPrefix(ch.last(), "--ROLES--"))
}
