package services

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/qianlnk/deducebot/models"
	"go.uber.org/zap"
)

const (
	politicalMinPlayers = 5
	politicalMaxPlayers = 10

	progressiveToWin = 5
	reactionaryToWin = 6
	vetoThreshold    = 5
	leaderThreshold  = 3
	maxFailedVotes   = 3
)

// executivePower 总统在颁布反动政策后获得的权力
type executivePower int

const (
	powerNone executivePower = iota
	powerPeek
	powerInvestigate
	powerSpecialElection
	powerAssassinate
)

// executivePowerFor 根据开局人数和已颁布的反动政策数决定总统权力
func executivePowerFor(playerCount, reactionary int) executivePower {
	if reactionary == 4 || reactionary == 5 {
		return powerAssassinate
	}
	switch {
	case playerCount <= 6:
		if reactionary == 3 {
			return powerPeek
		}
	case playerCount <= 8:
		switch reactionary {
		case 2:
			return powerInvestigate
		case 3:
			return powerSpecialElection
		}
	default:
		switch reactionary {
		case 1, 2:
			return powerInvestigate
		case 3:
			return powerSpecialElection
		}
	}
	return powerNone
}

// PoliticalGame 隐藏身份政治游戏
type PoliticalGame struct {
	*Game

	playerCount int
	deck        []models.Policy
	discard     []models.Policy
	hand        []models.Policy

	turnOrder []models.Participant
	placard   int
	// 特别选举后从 resumeIndex 的下一位继续轮换
	special     bool
	resumeIndex int

	chancellor     models.Participant
	lastPresident  models.Participant
	lastChancellor models.Participant
	failedVotes    int
	yes, no        []string

	progressive  int
	reactionary  int
	investigated map[string]bool
}

func NewPoliticalGame(channelName string, logger *zap.Logger, rng *rand.Rand) *PoliticalGame {
	return &PoliticalGame{
		Game: newGame(models.PoliticalKind, channelName, logger, rng),
	}
}

// President 当前总统候选人
func (p *PoliticalGame) President() models.Participant {
	if len(p.turnOrder) == 0 {
		return nil
	}
	return p.turnOrder[p.placard]
}

func (p *PoliticalGame) Chancellor() models.Participant { return p.chancellor }

// TermLimits 上一任总统和总理，没有时为 nil
func (p *PoliticalGame) TermLimits() (president, chancellor models.Participant) {
	return p.lastPresident, p.lastChancellor
}

// PolicyCounts 已颁布的进步和反动政策数
func (p *PoliticalGame) PolicyCounts() (progressive, reactionary int) {
	return p.progressive, p.reactionary
}

func (p *PoliticalGame) FailedVotes() int { return p.failedVotes }

// TurnOrder 存活玩家的轮换顺序
func (p *PoliticalGame) TurnOrder() []models.Participant {
	return append([]models.Participant(nil), p.turnOrder...)
}

// DeckSize 牌堆和弃牌堆的张数
func (p *PoliticalGame) DeckSize() (deck, discard int) { return len(p.deck), len(p.discard) }

func (p *PoliticalGame) Start() error {
	n := len(p.members)
	if n < politicalMinPlayers || n > politicalMaxPlayers {
		return fmt.Errorf("%w: need %d to %d players, have %d", ErrWrongPlayerCount, politicalMinPlayers, politicalMaxPlayers, n)
	}

	p.begin()
	p.playerCount = n
	p.deck = make([]models.Policy, 0, 17)
	for i := 0; i < 11; i++ {
		p.deck = append(p.deck, models.PolicyReactionary)
	}
	for i := 0; i < 6; i++ {
		p.deck = append(p.deck, models.PolicyProgressive)
	}
	shuffle(p.rng, p.deck)
	p.discard, p.hand = nil, nil
	p.chancellor, p.lastPresident, p.lastChancellor = nil, nil, nil
	p.failedVotes, p.progressive, p.reactionary = 0, 0, 0
	p.special, p.resumeIndex = false, 0
	p.investigated = make(map[string]bool)

	reactionaries, informLeader := 1, true
	switch {
	case n >= 9:
		reactionaries, informLeader = 3, false
	case n >= 7:
		reactionaries, informLeader = 2, false
	}
	roles := make([]models.RoleSet, 0, n)
	for i := 0; i < n-reactionaries-1; i++ {
		roles = append(roles, models.NewRoleSet(models.RoleProgressive, models.RoleAlive))
	}
	for i := 0; i < reactionaries; i++ {
		roles = append(roles, models.NewRoleSet(models.RoleReactionary, models.RoleAlive))
	}
	roles = append(roles, models.NewRoleSet(models.RoleLeader, models.RoleAlive))
	if err := p.AssignRoles(roles); err != nil {
		return err
	}

	p.SendMessageToRole(models.RoleProgressive, "You are a progressive")
	info := "--REACTIONARIES--\n" + strings.Join(p.MemberNamesInRole(models.RoleReactionary), "\n") +
		"\n--HIDDEN LEADER--\n" + strings.Join(p.MemberNamesInRole(models.RoleLeader), "\n")
	p.SendMessageToRole(models.RoleReactionary, "You are a reactionary\n"+info)
	if informLeader {
		p.SendMessageToRole(models.RoleLeader, "You are the hidden leader\n"+info)
	} else {
		p.SendMessageToRole(models.RoleLeader, "You are the hidden leader")
	}

	p.turnOrder = p.Members()
	shuffle(p.rng, p.turnOrder)
	p.SendMessage("Turn Order:\n" + strings.Join(names(p.turnOrder), "\n"))
	p.placard = 0
	p.nominate()
	return nil
}

// End 提前结束并公布身份
func (p *PoliticalGame) End() error {
	p.CancelActive()
	p.SendMessage("The game has been ended early")
	p.revealRoles()
	return nil
}

// termLimited 不能被提名为总理的玩家，只剩5人及以下时只限制上一任总理
func (p *PoliticalGame) termLimited() []string {
	var out []string
	if p.lastChancellor != nil {
		out = append(out, p.lastChancellor.Name())
	}
	if len(p.turnOrder) > 5 && p.lastPresident != nil {
		out = append(out, p.lastPresident.Name())
	}
	return out
}

// NonNominable 当前不能被提名为总理的玩家，包括总统本人
func (p *PoliticalGame) NonNominable() []string {
	out := p.termLimited()
	if pres := p.President(); pres != nil {
		out = append(out, pres.Name())
	}
	return out
}

func (p *PoliticalGame) nominate() {
	p.SendPromptTo(p.President(), p.NewMemberInRolePrompt(models.RoleAlive, p.NonNominable(),
		"Who would you like to nominate as chancellor?", p.nominated))
}

func (p *PoliticalGame) passPlacard() {
	if p.special {
		p.placard = (p.resumeIndex + 1) % len(p.turnOrder)
		p.special = false
	} else {
		p.placard = (p.placard + 1) % len(p.turnOrder)
	}
	p.nominate()
}

func (p *PoliticalGame) nominated(_, voted string) {
	c := p.MemberByName(voted)
	if c == nil {
		p.Logger().Warn("提名了不存在的玩家", zap.String("name", voted))
		p.nominate()
		return
	}
	p.chancellor = c
	p.SendMessage(c.Name() + " was nominated for Chancellor!")
	p.yes, p.no = nil, nil
	p.SendPromptToAllWithRole(models.RoleAlive,
		NewYesNoPrompt("Do you accept the nomination of "+c.Name()+" for chancellor?", p.castVote),
		p.countVotes)
}

func (p *PoliticalGame) castVote(voter, voted string) {
	if voted == "yes" {
		p.yes = append(p.yes, voter)
	} else {
		p.no = append(p.no, voter)
	}
}

func (p *PoliticalGame) countVotes() {
	// 打乱顺序，不暴露投票先后
	shuffle(p.rng, p.yes)
	shuffle(p.rng, p.no)
	yesVotes := len(p.yes)
	noVotes := len(p.turnOrder) - yesVotes
	voteData := "Yes: " + strings.Join(p.yes, ", ") + "\nNo: " + strings.Join(p.no, ", ")

	if yesVotes > len(p.turnOrder)/2 {
		p.lastPresident = p.President()
		p.lastChancellor = p.chancellor
		p.failedVotes = 0
		p.SendMessage(fmt.Sprintf("Vote passed! There were %d votes for yes and %d votes for no.\n%s", yesVotes, noVotes, voteData))
		if p.reactionary >= leaderThreshold {
			if p.HasRole(p.chancellor, models.RoleLeader) {
				p.win(fmt.Sprintf("You have elected the hidden leader %s as chancellor, reactionaries win!", p.chancellor.Name()))
				return
			}
			p.SendMessage(p.chancellor.Name() + " is not the hidden leader.")
		}
		p.drawForPresident()
		return
	}

	p.failedVotes++
	p.SendMessage(fmt.Sprintf("Vote failed! There were %d votes for yes and %d votes for no.\n%s", yesVotes, noVotes, voteData))
	if p.failedVotes >= maxFailedVotes {
		p.forcePolicy()
		return
	}
	p.SendMessage(fmt.Sprintf("Vote tracker is at %d", p.failedVotes))
	p.passPlacard()
}

// forcePolicy 连续三次投票失败，直接颁布牌堆顶的政策
func (p *PoliticalGame) forcePolicy() {
	p.lastPresident, p.lastChancellor = nil, nil
	p.failedVotes = 0
	if len(p.deck) < 1 {
		p.refillDeck()
	}
	top := p.deck[0]
	p.deck = p.deck[1:]
	p.SendMessage("The populace is angry and riot to play an agenda of their own")
	if p.enact(top) {
		return
	}
	p.passPlacard()
}

func (p *PoliticalGame) refillDeck() {
	p.SendMessage("Not enough cards, reshuffling in discard pile")
	p.deck = append(p.deck, p.discard...)
	p.discard = nil
	shuffle(p.rng, p.deck)
}

func (p *PoliticalGame) drawForPresident() {
	if len(p.deck) < 3 {
		p.refillDeck()
	}
	p.hand = append([]models.Policy(nil), p.deck[:3]...)
	p.deck = p.deck[3:]
	prog, reac := countPolicies(p.hand)
	text := fmt.Sprintf("You drew %d reactionary agendas and %d progressive agendas. What would you like to discard?", reac, prog)
	p.SendPromptTo(p.President(), NewChoicePrompt(text, handChoices(p.hand, false), nil, p.presidentDiscarded))
}

func (p *PoliticalGame) presidentDiscarded(_, voted string) {
	p.discardFromHand(models.Policy(voted))
	p.offerChancellor(p.reactionary >= vetoThreshold)
}

func (p *PoliticalGame) offerChancellor(canVeto bool) {
	prog, reac := countPolicies(p.hand)
	text := fmt.Sprintf("You were given %d reactionary agendas and %d progressive agendas. What would you like to discard?", reac, prog)
	p.SendPromptTo(p.chancellor, NewChoicePrompt(text, handChoices(p.hand, canVeto), nil, p.chancellorDiscarded))
}

func (p *PoliticalGame) chancellorDiscarded(_, voted string) {
	if voted == "veto" {
		p.SendMessage(p.chancellor.Name() + " has requested a veto")
		p.SendPromptTo(p.President(), NewYesNoPrompt("Would you like to accept the veto?", p.vetoAnswered))
		return
	}
	p.discardFromHand(models.Policy(voted))
	enacted := p.hand[0]
	p.hand = nil
	if p.enact(enacted) {
		return
	}
	if enacted == models.PolicyReactionary {
		p.usePower()
		return
	}
	p.passPlacard()
}

func (p *PoliticalGame) vetoAnswered(_, voted string) {
	if voted == "yes" {
		p.discard = append(p.discard, p.hand...)
		p.hand = nil
		p.SendMessage("The veto was accepted, both agendas were discarded")
		p.passPlacard()
		return
	}
	p.SendMessage("The veto was rejected")
	p.offerChancellor(false)
}

func (p *PoliticalGame) discardFromHand(policy models.Policy) {
	for i, c := range p.hand {
		if c == policy {
			p.hand = append(p.hand[:i], p.hand[i+1:]...)
			p.discard = append(p.discard, c)
			return
		}
	}
	p.Logger().Warn("手牌中没有该政策", zap.String("policy", string(policy)))
}

// enact 颁布政策，返回对局是否因此结束
func (p *PoliticalGame) enact(policy models.Policy) bool {
	if policy == models.PolicyProgressive {
		p.progressive++
	} else {
		p.reactionary++
	}
	p.SendMessage(fmt.Sprintf("A %s policy has been played", policy))
	p.SendMessage(fmt.Sprintf("So far %d progressive policies have been passed and %d reactionary policies have been passed.", p.progressive, p.reactionary))

	switch {
	case p.progressive >= progressiveToWin:
		p.win("Progressives have won the game!")
		return true
	case p.reactionary >= reactionaryToWin:
		p.win("Reactionaries have won the game!")
		return true
	}
	if policy == models.PolicyReactionary && p.reactionary == vetoThreshold {
		p.SendMessage("Veto power has been unlocked")
	}
	return false
}

func (p *PoliticalGame) usePower() {
	switch executivePowerFor(p.playerCount, p.reactionary) {
	case powerPeek:
		p.peek()
	case powerInvestigate:
		p.investigate()
	case powerSpecialElection:
		p.specialElection()
	case powerAssassinate:
		p.SendPromptTo(p.President(), p.NewMemberInRolePrompt(models.RoleAlive, []string{p.President().Name()},
			"Who do you want to assassinate?", p.assassinate))
	default:
		p.passPlacard()
	}
}

func (p *PoliticalGame) peek() {
	p.SendMessage("The president gets to investigate the top three agendas of the deck!")
	if len(p.deck) < 3 {
		p.refillDeck()
	}
	prog, reac := countPolicies(p.deck[:3])
	p.SendDM(p.President(), fmt.Sprintf("The top of the deck has %d reactionary agendas and %d progressive agendas.", reac, prog))
	p.passPlacard()
}

func (p *PoliticalGame) investigate() {
	p.SendMessage("The president gets to investigate the party membership of a player!")
	exclude := []string{p.President().Name()}
	for _, m := range p.members {
		if p.investigated[m.ID()] {
			exclude = append(exclude, m.Name())
		}
	}
	p.SendPromptTo(p.President(), p.NewMemberInRolePrompt(models.RoleAlive, exclude,
		"Whose party membership would you like to investigate?", p.investigatedPlayer))
}

func (p *PoliticalGame) investigatedPlayer(_, voted string) {
	target := p.MemberByName(voted)
	if target == nil {
		p.passPlacard()
		return
	}
	p.investigated[target.ID()] = true
	party := models.PolicyProgressive
	if !p.HasRole(target, models.RoleProgressive) {
		party = models.PolicyReactionary
	}
	p.SendDM(p.President(), fmt.Sprintf("%s is a member of the %s party", target.Name(), party))
	p.SendMessage("The president has investigated " + target.Name())
	p.passPlacard()
}

func (p *PoliticalGame) specialElection() {
	p.SendMessage("The president gets to choose the next presidential candidate!")
	p.SendPromptTo(p.President(), p.NewMemberInRolePrompt(models.RoleAlive, []string{p.President().Name()},
		"Who should be the next presidential candidate?", p.chooseNextPresident))
}

func (p *PoliticalGame) chooseNextPresident(_, voted string) {
	idx := p.turnIndex(voted)
	if idx < 0 {
		p.passPlacard()
		return
	}
	p.special = true
	p.resumeIndex = p.placard
	p.placard = idx
	p.SendMessage(p.turnOrder[idx].Name() + " has been chosen as the next presidential candidate")
	p.nominate()
}

func (p *PoliticalGame) assassinate(_, voted string) {
	idx := p.turnIndex(voted)
	if idx < 0 {
		p.passPlacard()
		return
	}
	target := p.turnOrder[idx]
	p.SendMessage("The president has assassinated " + target.Name())
	if p.HasRole(target, models.RoleLeader) {
		p.win(target.Name() + " who was just killed was the hidden leader so progressives win!")
		return
	}

	p.roles[target.ID()].Remove(models.RoleAlive)
	p.turnOrder = append(p.turnOrder[:idx], p.turnOrder[idx+1:]...)
	if p.placard > idx {
		p.placard--
	}
	if p.special && p.resumeIndex >= idx {
		p.resumeIndex--
	}
	p.SendMessage("Updated Turn Order:\n" + strings.Join(names(p.turnOrder), "\n"))
	p.passPlacard()
}

func (p *PoliticalGame) turnIndex(name string) int {
	for i, m := range p.turnOrder {
		if strings.EqualFold(m.Name(), name) {
			return i
		}
	}
	return -1
}

func (p *PoliticalGame) win(text string) {
	p.SendMessage(text)
	p.finish()
	p.revealRoles()
}

func (p *PoliticalGame) revealRoles() {
	lines := make([]string, 0, len(p.members))
	for _, m := range p.members {
		role := "Unknown"
		for _, r := range []models.Role{models.RoleProgressive, models.RoleReactionary, models.RoleLeader} {
			if p.HasRole(m, r) {
				role = displayName(string(r))
			}
		}
		lines = append(lines, m.Name()+": "+role)
	}
	p.SendMessage("--ROLES--\n" + strings.Join(lines, "\n"))
}

func countPolicies(cards []models.Policy) (progressive, reactionary int) {
	for _, c := range cards {
		if c == models.PolicyProgressive {
			progressive++
		} else {
			reactionary++
		}
	}
	return progressive, reactionary
}

// handChoices 手牌对应的弃牌选项
func handChoices(hand []models.Policy, canVeto bool) []string {
	prog, reac := countPolicies(hand)
	var choices []string
	if reac > 0 {
		choices = append(choices, string(models.PolicyReactionary))
	}
	if prog > 0 {
		choices = append(choices, string(models.PolicyProgressive))
	}
	if canVeto {
		choices = append(choices, "veto")
	}
	return choices
}

func names(ps []models.Participant) []string {
	out := make([]string, 0, len(ps))
	for _, m := range ps {
		out = append(out, m.Name())
	}
	return out
}
