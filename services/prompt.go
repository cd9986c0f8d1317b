package services

import (
	"errors"
	"strings"

	"github.com/qianlnk/deducebot/models"
)

var (
	ErrAlreadyAnswered = errors.New("prompt already answered")
	ErrInvalidChoice   = errors.New("answer is not a valid choice")
	ErrPromptClosed    = errors.New("prompt is closed")
)

const (
	msgAlreadyAnswered = "You have already answered"
	msgAnswerReceived  = "Answer received"
	msgInvalidChoice   = "Your answer was not a valid choice"
)

type promptState int

const (
	promptPending promptState = iota
	promptResolving
	promptAnswered
	promptCancelled
)

// AnswerFunc 回答回调，参数为回答者名字和校验后的答案
type AnswerFunc func(responder, answer string)

// Prompt 发给单个玩家的问题
//
// choices 为 nil 时是自由回答，否则答案必须匹配其中一项。
type Prompt struct {
	question string
	choices  []string
	onAnswer AnswerFunc
	target   models.Participant
	state    promptState
	barrier  barrierID
}

// NewTextPrompt 创建自由回答的问题
func NewTextPrompt(question string, fn AnswerFunc) *Prompt {
	return &Prompt{question: question, onAnswer: fn}
}

// NewChoicePrompt 创建选择题，选项统一转成小写，exclude 中的选项会被剔除
func NewChoicePrompt(question string, choices, exclude []string, fn AnswerFunc) *Prompt {
	skip := make(map[string]struct{}, len(exclude))
	for _, e := range exclude {
		skip[strings.ToLower(e)] = struct{}{}
	}

	valid := make([]string, 0, len(choices))
	for _, c := range choices {
		c = strings.ToLower(c)
		if _, ok := skip[c]; ok {
			continue
		}
		valid = append(valid, c)
	}

	return &Prompt{question: question, choices: valid, onAnswer: fn}
}

// NewYesNoPrompt 创建是/否问题
func NewYesNoPrompt(question string, fn AnswerFunc) *Prompt {
	return NewChoicePrompt(question, []string{"No", "Yes"}, nil, fn)
}

func (p *Prompt) Question() string { return p.question }

// Choices 返回有效选项，自由回答时为 nil
func (p *Prompt) Choices() []string { return p.choices }

func (p *Prompt) Target() models.Participant { return p.target }

func (p *Prompt) Answered() bool { return p.state == promptAnswered }

// Pending 是否仍在等待回答
func (p *Prompt) Pending() bool { return p.state == promptPending }

// Text 发送给玩家的完整文本
func (p *Prompt) Text() string {
	if p.choices == nil {
		return p.question
	}
	return p.question + "\n--CHOICES--\n" + strings.Join(p.choices, "\n")
}

// forTarget 复制模板并绑定目标玩家，回调和选项与模板共享
func (p *Prompt) forTarget(target models.Participant) *Prompt {
	c := *p
	c.target = target
	c.state = promptPending
	return &c
}

// normalize 校验原始输入并返回规范化后的答案
func (p *Prompt) normalize(raw string) (string, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", false
	}
	if p.choices == nil {
		return text, true
	}
	return MatchChoice(strings.ToLower(text), p.choices)
}

// MatchChoice 模糊匹配选项
//
// 完全相等的选项直接命中；否则 input 必须是唯一一个更长选项的前缀。
func MatchChoice(input string, choices []string) (string, bool) {
	var best string
	count := 0
	for _, c := range choices {
		if input == c {
			return c, true
		}
		if len(input) < len(c) && strings.HasPrefix(c, input) {
			best = c
			count++
		}
	}
	if count != 1 {
		return "", false
	}
	return best, true
}
