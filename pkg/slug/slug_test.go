// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package slug_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/newswizard/pkg/slug"
)

func TestFileName(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"spaces", "World News", "World_News"},
		{"slashes", "Tech/Science Daily", "Tech_Science_Daily"},
		{"cyrillic", "Новости дня", "Новости_дня"},
		{"hidden_file", "..secret", "secret"},
		{"only_symbols", "!!! ???", "channel-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, slug.FileName(tt.title, "channel-1"))
		})
	}
}

func TestFileName_Truncates(t *testing.T) {
	name := slug.FileName(strings.Repeat("a", 300), "x")
	assert.Len(t, []rune(name), 96)
}
