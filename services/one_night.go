package services

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/qianlnk/deducebot/models"
	"go.uber.org/zap"
)

const (
	oneNightMinPlayers = 3
	middleCards        = 3
)

var middlePositions = []string{"Left", "Middle", "Right"}

// nightActions 夜晚阶段收集到的技能选择，天亮时统一结算
type nightActions struct {
	seer       models.Participant
	seerPlayer string
	seerFirst  string
	seerSecond string

	robber       models.Participant
	robberTarget string

	troublemaker models.Participant
	swapFirst    string
	swapSecond   string
}

// OneNightGame 一夜换牌
//
// deck 的前 len(players) 张依次属于 players，最后三张是中间牌。
// roles 记录发牌时的身份，deck 记录换牌后的当前身份。
type OneNightGame struct {
	*Game
	deck    []models.Role
	players []models.Participant
	night   nightActions
	nightOK bool
	tally   *VoteTally
}

func NewOneNightGame(channelName string, logger *zap.Logger, rng *rand.Rand) *OneNightGame {
	return &OneNightGame{
		Game: newGame(models.OneNightKind, channelName, logger, rng),
	}
}

// Deck 当前牌堆的副本
func (o *OneNightGame) Deck() []models.Role {
	return append([]models.Role(nil), o.deck...)
}

// CardOf 玩家当前手里的身份
func (o *OneNightGame) CardOf(p models.Participant) (models.Role, bool) {
	for i, m := range o.players {
		if m.ID() == p.ID() {
			return o.deck[i], true
		}
	}
	return "", false
}

// NightFinished 夜晚行动是否已结算
func (o *OneNightGame) NightFinished() bool { return o.nightOK }

func (o *OneNightGame) Tally() *VoteTally { return o.tally }

// buildDeck 基础牌组为两张狼人和预言家、强盗、捣蛋鬼、村民各一张，不足时补村民
func buildDeck(size int) []models.Role {
	deck := []models.Role{
		models.RoleWerewolf, models.RoleWerewolf,
		models.RoleSeer, models.RoleRobber, models.RoleTroublemaker, models.RoleVillager,
	}
	for len(deck) < size {
		deck = append(deck, models.RoleVillager)
	}
	return deck
}

func (o *OneNightGame) Start() error {
	n := len(o.members)
	if n < oneNightMinPlayers {
		return fmt.Errorf("%w: need at least %d players, have %d", ErrWrongPlayerCount, oneNightMinPlayers, n)
	}

	o.begin()
	o.players = o.Members()
	o.deck = buildDeck(n + middleCards)
	shuffle(o.rng, o.deck)
	o.night = nightActions{}
	o.nightOK = false
	o.tally = nil

	for i, m := range o.players {
		o.roles[m.ID()] = models.NewRoleSet(o.deck[i])
	}
	o.startNight()
	return nil
}

func (o *OneNightGame) startNight() {
	wolves := "--WEREWOLVES--\n" + strings.Join(o.MemberNamesInRole(models.RoleWerewolf), "\n")
	o.SendMessageToRole(models.RoleWerewolf, wolves)

	b := o.NewBarrier(o.finishNight)
	for _, m := range o.players {
		if p := o.nightPrompt(m); p != nil {
			_ = b.AddPrompt(m, p)
		}
	}
	o.Trigger(b)
}

func (o *OneNightGame) nightPrompt(m models.Participant) *Prompt {
	nothing := []string{"Nothing"}
	switch {
	case o.HasRole(m, models.RoleVillager):
		return NewChoicePrompt("You are a villager, what would you like to do during the night phase?", nothing, nil, nil)
	case o.HasRole(m, models.RoleWerewolf):
		return NewChoicePrompt("You are a werewolf, what would you like to do during the night phase?", nothing, nil, nil)
	case o.HasRole(m, models.RoleSeer):
		return NewChoicePrompt("You are the seer, would you like to look at a player card, look at two middle cards, or do nothing?",
			[]string{"Player", "Middle", "Nothing"}, nil, o.seerChose)
	case o.HasRole(m, models.RoleRobber):
		return NewChoicePrompt("You are the robber, would you like to steal a card or do nothing?",
			[]string{"Steal", "Nothing"}, nil, o.robberChose)
	case o.HasRole(m, models.RoleTroublemaker):
		return NewChoicePrompt("You are the troublemaker, would you like to swap cards or do nothing?",
			[]string{"Swap", "Nothing"}, nil, o.troublemakerChose)
	}
	return nil
}

func (o *OneNightGame) seerChose(voter, voted string) {
	seer := o.MemberByName(voter)
	o.night.seer = seer
	switch voted {
	case "player":
		o.parasite(seer, o.NewMemberPrompt([]string{voter}, "Whose card would you like to see?", func(_, target string) {
			o.night.seerPlayer = target
		}))
	case "middle":
		o.parasite(seer, NewChoicePrompt("Which middle card would you like to see first?", middlePositions, nil, func(_, first string) {
			o.night.seerFirst = first
			o.parasite(seer, NewChoicePrompt("Which middle card would you like to see second?", middlePositions, []string{first}, func(_, second string) {
				o.night.seerSecond = second
			}))
		}))
	}
}

func (o *OneNightGame) robberChose(voter, voted string) {
	if voted != "steal" {
		return
	}
	robber := o.MemberByName(voter)
	o.night.robber = robber
	o.parasite(robber, o.NewMemberPrompt([]string{voter}, "Whose card would you like to steal?", func(_, target string) {
		o.night.robberTarget = target
	}))
}

func (o *OneNightGame) troublemakerChose(voter, voted string) {
	if voted != "swap" {
		return
	}
	tm := o.MemberByName(voter)
	o.night.troublemaker = tm
	o.parasite(tm, o.NewMemberPrompt([]string{voter}, "Whose card would you like to swap first?", func(_, first string) {
		o.night.swapFirst = first
		o.parasite(tm, o.NewMemberPrompt([]string{voter, first}, "Whose card would you like to swap it with?", func(_, second string) {
			o.night.swapSecond = second
		}))
	}))
}

func (o *OneNightGame) parasite(target models.Participant, p *Prompt) {
	if err := o.SendParasitePrompt(target, p); err != nil {
		o.Logger().Error("追加夜晚问题失败", zap.Error(err))
	}
}

// finishNight 按预言家、强盗、捣蛋鬼的顺序结算
func (o *OneNightGame) finishNight() {
	a := o.night
	if a.seer != nil {
		switch {
		case a.seerPlayer != "":
			if i := o.playerIndex(a.seerPlayer); i >= 0 {
				o.SendDM(a.seer, fmt.Sprintf("%s had the %s role!", o.players[i].Name(), displayName(string(o.deck[i]))))
			}
		case a.seerFirst != "" && a.seerSecond != "":
			o.SendDM(a.seer, fmt.Sprintf("%s had the %s role and %s had the %s role!",
				displayName(a.seerFirst), displayName(string(o.deck[o.middleIndex(a.seerFirst)])),
				displayName(a.seerSecond), displayName(string(o.deck[o.middleIndex(a.seerSecond)]))))
		}
	}

	if a.robber != nil && a.robberTarget != "" {
		robbed, self := o.playerIndex(a.robberTarget), o.playerIndex(a.robber.Name())
		if robbed >= 0 && self >= 0 {
			o.swap(robbed, self)
			o.SendDM(a.robber, fmt.Sprintf("You robbed the %s role from %s!", displayName(string(o.deck[self])), o.players[robbed].Name()))
		}
	}

	if a.troublemaker != nil && a.swapFirst != "" && a.swapSecond != "" {
		i, j := o.playerIndex(a.swapFirst), o.playerIndex(a.swapSecond)
		if i >= 0 && j >= 0 {
			o.swap(i, j)
			o.SendDM(a.troublemaker, fmt.Sprintf("You swapped cards between %s and %s!", o.players[i].Name(), o.players[j].Name()))
		}
	}

	o.nightOK = true
	o.SendMessage("The Night Phase has been finished")
}

func (o *OneNightGame) swap(i, j int) {
	o.deck[i], o.deck[j] = o.deck[j], o.deck[i]
}

func (o *OneNightGame) playerIndex(name string) int {
	for i, m := range o.players {
		if strings.EqualFold(m.Name(), name) {
			return i
		}
	}
	return -1
}

func (o *OneNightGame) middleIndex(pos string) int {
	for i, p := range middlePositions {
		if strings.EqualFold(p, pos) {
			return len(o.players) + i
		}
	}
	return len(o.deck) - 1
}

func (o *OneNightGame) End() error {
	o.StartMemberVote(func(t *VoteTally) {
		o.tally = t
		o.SendMessage(t.Report())
		o.printDeck()
	})
	return nil
}

func (o *OneNightGame) printDeck() {
	var sb strings.Builder
	sb.WriteString("--PLAYER CARDS--\n")
	for i, m := range o.players {
		fmt.Fprintf(&sb, "%s: %s\n", m.Name(), displayName(string(o.deck[i])))
	}
	sb.WriteString("--MIDDLE CARDS--")
	for i, pos := range middlePositions {
		fmt.Fprintf(&sb, "\n%s: %s", pos, displayName(string(o.deck[len(o.players)+i])))
	}
	o.SendMessage(sb.String())
}
