// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package openai adapts the OpenAI API to the bot's language tasks.

Architecture:

  - Code extraction: Pulls the login code out of free-form user text.
  - Summaries: Condenses one channel, then the whole digest.
  - Speech: Renders the digest script as MP3.

Prompts ship embedded and may be replaced by files in a resources directory.
*/
package openai

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/sashabaranov/go-openai"
)

// Completion and speech parameters.
const (
	maxTokens   = 8192
	temperature = 0.4
	speechSpeed = 1.3
)

//go:embed prompts/*.txt
var embedded embed.FS

// ErrEmptyCompletion is returned when the model answers with no content.
var ErrEmptyCompletion = errors.New("openai: empty completion")

// ErrNoCode is returned when no digits can be found in the user's text.
var ErrNoCode = errors.New("openai: no login code in message")

// api is the subset of *openai.Client used here.
type api interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateSpeech(ctx context.Context, request openai.CreateSpeechRequest) (openai.RawResponse, error)
}

// # Prompts

// Prompts are the system roles of the three completion tasks.
type Prompts struct {
	Code    string
	Channel string
	Digest  string
}

// overrides maps prompt files in a resources directory onto embedded prompts.
var overrides = map[string]string{
	"system_role_3.txt": "code.txt",
	"system_role.txt":   "channel.txt",
	"system_role_2.txt": "digest.txt",
}

// LoadPrompts reads the embedded prompts, replaced by any system_role*.txt file
// present in dir. An empty dir uses the embedded prompts only.
func LoadPrompts(dir string) (Prompts, error) {
	texts := make(map[string]string, len(overrides))

	for override, name := range overrides {
		data, err := fs.ReadFile(embedded, "prompts/"+name)
		if err != nil {
			return Prompts{}, fmt.Errorf("openai: read embedded prompt %s: %w", name, err)
		}

		if dir != "" {
			custom, err := os.ReadFile(filepath.Join(dir, override))
			switch {
			case err == nil:
				data = custom
			case !errors.Is(err, fs.ErrNotExist):
				return Prompts{}, fmt.Errorf("openai: read prompt %s: %w", override, err)
			}
		}

		texts[name] = strings.TrimSpace(string(data))
	}

	return Prompts{
		Code:    texts["code.txt"],
		Channel: texts["channel.txt"],
		Digest:  texts["digest.txt"],
	}, nil
}

// # Client

// Client performs the bot's completion and speech requests.
type Client struct {
	api     api
	model   string
	prompts Prompts
}

// New creates a client for the given API key and chat model.
func New(apiKey, model string, prompts Prompts) *Client {
	return newClient(openai.NewClient(apiKey), model, prompts)
}

func newClient(api api, model string, prompts Prompts) *Client {
	return &Client{api: api, model: model, prompts: prompts}
}

func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

// ExtractCode implements auth.CodeExtractor. The model's answer is reduced to
// its digits.
func (c *Client) ExtractCode(ctx context.Context, text string) (string, error) {
	answer, err := c.complete(ctx, c.prompts.Code, text)
	if err != nil {
		return "", err
	}

	code := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, answer)
	if code == "" {
		return "", ErrNoCode
	}
	return code, nil
}

// SummarizeChannel condenses the posts of one channel.
func (c *Client) SummarizeChannel(ctx context.Context, posts string) (string, error) {
	return c.complete(ctx, c.prompts.Channel, posts)
}

// SummarizeDigest turns the channel summaries into the podcast script.
func (c *Client) SummarizeDigest(ctx context.Context, updates string) (string, error) {
	return c.complete(ctx, c.prompts.Digest, updates)
}

// Synthesize renders text as MP3 into w.
func (c *Client) Synthesize(ctx context.Context, text string, w io.Writer) error {
	resp, err := c.api.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.TTSModel1HD,
		Input:          text,
		Voice:          openai.VoiceOnyx,
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          speechSpeed,
	})
	if err != nil {
		return fmt.Errorf("openai: create speech: %w", err)
	}
	defer resp.Close()

	if _, err := io.Copy(w, resp); err != nil {
		return fmt.Errorf("openai: read speech: %w", err)
	}
	return nil
}
