package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/qianlnk/deducebot/models"
	"go.uber.org/zap"
)

// discordAPI Discord 会话中用到的 REST 接口
type discordAPI interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// Discord 机器人网关，服务器频道消息按频道名路由，私聊作为回答或大厅命令
type Discord struct {
	session *discordgo.Session
	api     discordAPI
	handler MessageHandler
	logger  *zap.Logger

	mu           sync.Mutex
	participants map[string]*discordParticipant
	channelNames map[string]string
}

// NewDiscord 创建机器人会话，Run 之前不会连接
func NewDiscord(token string, handler MessageHandler, logger *zap.Logger) (*Discord, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	d := newDiscord(session, handler, logger)
	d.session = session
	session.AddHandler(d.onMessageCreate)
	return d, nil
}

func newDiscord(api discordAPI, handler MessageHandler, logger *zap.Logger) *Discord {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discord{
		api:          api,
		handler:      handler,
		logger:       logger.Named("discord"),
		participants: make(map[string]*discordParticipant),
		channelNames: make(map[string]string),
	}
}

// Run 连接 Discord 并阻塞到 ctx 结束
func (d *Discord) Run(ctx context.Context) error {
	if err := d.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	d.logger.Info("已连接到 Discord", zap.String("user", d.session.State.User.Username))

	<-ctx.Done()
	return d.session.Close()
}

func (d *Discord) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	selfID := ""
	if s.State != nil && s.State.User != nil {
		selfID = s.State.User.ID
	}
	d.dispatch(selfID, m.Message)
}

// dispatch 忽略机器人自己的消息，没有 GuildID 的是私聊
func (d *Discord) dispatch(selfID string, m *discordgo.Message) {
	if m.Author == nil || m.Author.ID == selfID || m.Author.Bot {
		return
	}
	author := d.participant(m.Author)

	if m.GuildID == "" {
		d.handler.HandleDirectMessage(author, m.Content)
		return
	}

	name, err := d.channelName(m.ChannelID)
	if err != nil {
		d.logger.Warn("获取频道信息失败", zap.String("channel_id", m.ChannelID), zap.Error(err))
		return
	}
	d.handler.HandleChannelMessage(author, &textChannel{api: d.api, id: m.ChannelID}, name, m.Content)
}

func (d *Discord) channelName(id string) (string, error) {
	d.mu.Lock()
	name, ok := d.channelNames[id]
	d.mu.Unlock()
	if ok {
		return name, nil
	}

	ch, err := d.api.Channel(id)
	if err != nil {
		return "", err
	}
	d.mu.Lock()
	d.channelNames[id] = ch.Name
	d.mu.Unlock()
	return ch.Name, nil
}

// participant 按用户 ID 复用玩家身份
func (d *Discord) participant(u *discordgo.User) *discordParticipant {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.participants[u.ID]; ok {
		return p
	}
	p := &discordParticipant{api: d.api, id: u.ID, name: u.Username}
	d.participants[u.ID] = p
	return p
}

type discordParticipant struct {
	api  discordAPI
	id   string
	name string
}

func (p *discordParticipant) ID() string      { return "discord:" + p.id }
func (p *discordParticipant) Name() string    { return p.name }
func (p *discordParticipant) Simulated() bool { return false }

func (p *discordParticipant) OpenPrivateChannel() (models.Channel, error) {
	ch, err := p.api.UserChannelCreate(p.id)
	if err != nil {
		return nil, err
	}
	return &textChannel{api: p.api, id: ch.ID}, nil
}

type textChannel struct {
	api discordAPI
	id  string
}

func (c *textChannel) Send(text string) error {
	_, err := c.api.ChannelMessageSend(c.id, text)
	return err
}
