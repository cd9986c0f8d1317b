package services

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/qianlnk/deducebot/models"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingChannel struct {
	messages []string
}

func (c *recordingChannel) Send(text string) error {
	c.messages = append(c.messages, text)
	return nil
}

func (c *recordingChannel) last() string {
	if len(c.messages) == 0 {
		return ""
	}
	return c.messages[len(c.messages)-1]
}

func (c *recordingChannel) contains(sub string) bool {
	for _, m := range c.messages {
		if strings.Contains(m, sub) {
			return true
		}
	}
	return false
}

type testParticipant struct {
	name  string
	inbox *recordingChannel
}

func newPlayer(name string) *testParticipant {
	return &testParticipant{name: name, inbox: &recordingChannel{}}
}

func (p *testParticipant) ID() string      { return "test:" + p.name }
func (p *testParticipant) Name() string    { return p.name }
func (p *testParticipant) Simulated() bool { return false }

func (p *testParticipant) OpenPrivateChannel() (models.Channel, error) {
	return p.inbox, nil
}

func newTestRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func newTestGame(t *testing.T) (*Game, *recordingChannel) {
	t.Helper()
	g := newGame(models.FakeArtistKind, "test", zap.NewNop(), newTestRand())
	ch := &recordingChannel{}
	g.Bind(ch)
	return g, ch
}

// seat 让玩家依次加入
func seat(t *testing.T, g *Game, names ...string) []*testParticipant {
	t.Helper()
	players := make([]*testParticipant, 0, len(names))
	for _, n := range names {
		p := newPlayer(n)
		require.NoError(t, g.Join(p))
		players = append(players, p)
	}
	return players
}

func playerNames(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "Player" + string(rune('A'+i))
	}
	return out
}

// answer 回答玩家当前待回答的问题
func answer(t *testing.T, g *Game, p models.Participant, text string) {
	t.Helper()
	pr := g.PromptFor(p)
	require.NotNil(t, pr, "no prompt for %s", p.Name())
	require.True(t, pr.Pending(), "prompt for %s already answered", p.Name())
	require.NoError(t, g.Answer(pr, text))
}

func choicesFor(t *testing.T, g *Game, p models.Participant) []string {
	t.Helper()
	pr := g.PromptFor(p)
	require.NotNil(t, pr, "no prompt for %s", p.Name())
	return pr.Choices()
}
