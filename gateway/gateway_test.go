package gateway

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/qianlnk/deducebot/models"
	"github.com/qianlnk/deducebot/services"
	"github.com/stretchr/testify/require"
)

// recordingHandler 记录收到的消息，可以在回调里回复
type recordingHandler struct {
	mu       sync.Mutex
	channel  []string
	direct   []string
	onSay    func(author models.Participant, ch models.Channel, text string)
	received chan struct{}
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{received: make(chan struct{}, 16)}
}

func (h *recordingHandler) HandleChannelMessage(author models.Participant, ch models.Channel, channelName, text string) {
	h.mu.Lock()
	h.channel = append(h.channel, author.Name()+"@"+channelName+":"+text)
	onSay := h.onSay
	h.mu.Unlock()
	if onSay != nil {
		onSay(author, ch, text)
	}
	h.received <- struct{}{}
}

func (h *recordingHandler) HandleDirectMessage(author models.Participant, text string) {
	h.mu.Lock()
	h.direct = append(h.direct, author.Name()+":"+text)
	h.mu.Unlock()
	h.received <- struct{}{}
}

func (h *recordingHandler) snapshot() (channel, direct []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.channel...), append([]string(nil), h.direct...)
}

type fakeStatuses struct {
	games []models.GameStatus
}

func (f fakeStatuses) Statuses() []models.GameStatus { return f.games }

func (f fakeStatuses) Status(name string) (models.GameStatus, error) {
	for _, g := range f.games {
		if g.Channel == name {
			return g, nil
		}
	}
	return models.GameStatus{}, services.ErrGameNotFound
}

func newTestServer(t *testing.T, handler MessageHandler, games StatusProvider) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(handler, nil)
	srv := httptest.NewServer(NewRouter(hub, games, nil))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv
}

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?" + query
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}
