// Package topics 管理假画家的题目列表
package topics

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/qianlnk/deducebot/models"
	"go.uber.org/zap"
)

// quote 题目文件的引号字符，字段里可以包含逗号
const quote = '|'

var ErrEmpty = errors.New("topic file has no entries")

// Defaults 没有题目文件时使用的内置题目
var Defaults = []models.Topic{
	{Category: "Animal", Item: "Giraffe"},
	{Category: "Animal", Item: "Octopus"},
	{Category: "Food", Item: "Pizza"},
	{Category: "Food", Item: "Pancakes"},
	{Category: "Place", Item: "Lighthouse"},
	{Category: "Place", Item: "Volcano"},
	{Category: "Object", Item: "Umbrella"},
	{Category: "Object", Item: "Bicycle"},
	{Category: "Sport", Item: "Surfing"},
	{Category: "Profession", Item: "Astronaut"},
}

// Store 可并发读取的题目列表，支持热加载
type Store struct {
	mu     sync.RWMutex
	topics []models.Topic
	logger *zap.Logger
}

// NewStore 创建使用内置题目的 Store
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		topics: append([]models.Topic(nil), Defaults...),
		logger: logger.Named("topics"),
	}
}

// Random 随机取一个题目
func (s *Store) Random(r *rand.Rand) (models.Topic, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.topics) == 0 {
		return models.Topic{}, false
	}
	return s.topics[r.IntN(len(s.topics))], true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.topics)
}

// Topics 当前题目的副本
func (s *Store) Topics() []models.Topic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Topic(nil), s.topics...)
}

// Replace 替换全部题目
func (s *Store) Replace(topics []models.Topic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics = append([]models.Topic(nil), topics...)
}

// Load 读取题目文件，失败时保留原来的题目
func (s *Store) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	topics, err := Parse(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	s.Replace(topics)
	s.logger.Info("题目已加载", zap.String("path", path), zap.Int("count", len(topics)))
	return nil
}

// Parse 解析 "category,item" 格式的题目，每行一个，字段可以用 | 包起来
func Parse(r io.Reader) ([]models.Topic, error) {
	var topics []models.Topic
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		fields, err := splitRecord(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: expected category and item, got %d fields", line, len(fields))
		}
		topics = append(topics, models.Topic{
			Category: strings.TrimSpace(fields[0]),
			Item:     strings.TrimSpace(fields[1]),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(topics) == 0 {
		return nil, ErrEmpty
	}
	return topics, nil
}

// splitRecord 按逗号切分一行，引号内的逗号不切分，连续两个引号表示引号本身
func splitRecord(text string) ([]string, error) {
	var (
		fields []string
		field  strings.Builder
		quoted bool
	)
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == quote && quoted && i+1 < len(runes) && runes[i+1] == quote:
			field.WriteRune(quote)
			i++
		case c == quote:
			quoted = !quoted
		case c == ',' && !quoted:
			fields = append(fields, field.String())
			field.Reset()
		default:
			field.WriteRune(c)
		}
	}
	if quoted {
		return nil, errors.New("unterminated quoted field")
	}
	return append(fields, field.String()), nil
}

// Watch 监听题目文件的变化并重新加载，直到 ctx 结束
//
// 监听的是所在目录，编辑器用重命名方式保存时也能收到事件。
func (s *Store) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	s.logger.Info("开始监听题目文件", zap.String("path", abs))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := s.Load(abs); err != nil {
				s.logger.Warn("重新加载题目失败", zap.Error(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("监听题目文件出错", zap.Error(err))
		}
	}
}
