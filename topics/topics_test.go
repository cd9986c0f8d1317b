package topics

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/qianlnk/deducebot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestParse(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		want    []models.Topic
		wantErr bool
	}{
		{
			name:  "plain rows",
			input: "Animal,Otter\nFood,Soup\n",
			want:  []models.Topic{{Category: "Animal", Item: "Otter"}, {Category: "Food", Item: "Soup"}},
		},
		{
			name:  "quoted comma",
			input: "|Food, hot|,|Soup, tomato|",
			want:  []models.Topic{{Category: "Food, hot", Item: "Soup, tomato"}},
		},
		{
			name:  "escaped quote and blank lines",
			input: "\nSign,|Pipe || char|\n\n",
			want:  []models.Topic{{Category: "Sign", Item: "Pipe | char"}},
		},
		{
			name:  "extra fields ignored",
			input: "Place, Beach ,sandy",
			want:  []models.Topic{{Category: "Place", Item: "Beach"}},
		},
		{name: "missing item", input: "Animal\n", wantErr: true},
		{name: "unterminated quote", input: "|Animal,Otter", wantErr: true},
		{name: "empty", input: "\n\n", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(strings.NewReader(tc.input))
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestStoreLoad(t *testing.T) {
	s := NewStore(zaptest.NewLogger(t))
	assert.Equal(t, len(Defaults), s.Len())

	path := filepath.Join(t.TempDir(), "words.csv")
	require.NoError(t, os.WriteFile(path, []byte("Animal,Otter\n"), 0o600))
	require.NoError(t, s.Load(path))

	topic, ok := s.Random(rand.New(rand.NewPCG(1, 2)))
	require.True(t, ok)
	assert.Equal(t, models.Topic{Category: "Animal", Item: "Otter"}, topic)

	// 解析失败时保留原来的题目
	require.NoError(t, os.WriteFile(path, []byte("broken\n"), 0o600))
	assert.Error(t, s.Load(path))
	assert.Equal(t, 1, s.Len())

	assert.Error(t, s.Load(filepath.Join(t.TempDir(), "missing.csv")))
}

func TestRandomOnEmptyStore(t *testing.T) {
	s := NewStore(nil)
	s.Replace(nil)

	_, ok := s.Random(rand.New(rand.NewPCG(1, 2)))
	assert.False(t, ok)
}

func TestWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.csv")
	require.NoError(t, os.WriteFile(path, []byte("Animal,Otter\n"), 0o600))

	s := NewStore(zaptest.NewLogger(t))
	require.NoError(t, s.Load(path))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx, path) }()

	assert.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("Animal,Otter\nFood,Soup\n"), 0o600)
		return s.Len() == 2
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
