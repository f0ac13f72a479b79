package format

import (
	"regexp"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ParseResult contains plain text and message entities
type ParseResult struct {
	Text     string
	Entities []tgbotapi.MessageEntity
}

// UTF16Len is the length of s in UTF-16 code units, the unit Telegram uses
// for entity offsets.
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

var headerRe = regexp.MustCompile(`(?m)^#{1,6}\s+(.+?)$`)

var markers = []struct {
	open, close string
	entity      string
}{
	{"**", "**", "bold"},
	{"`", "`", "code"},
}

// ParseMarkdown turns the small markdown subset the bot writes into plain
// text plus Telegram entities:
//   - **bold**
//   - `code`
//   - # Header (rendered bold)
//
// Unclosed markers are kept as literal text.
func ParseMarkdown(text string) ParseResult {
	text = headerRe.ReplaceAllString(text, "**$1**")

	var (
		out      strings.Builder
		entities []tgbotapi.MessageEntity
		offset   int
	)
	for len(text) > 0 {
		matched := false
		for _, m := range markers {
			if !strings.HasPrefix(text, m.open) {
				continue
			}
			rest := text[len(m.open):]
			end := strings.Index(rest, m.close)
			if end <= 0 || strings.Contains(rest[:end], "\n") {
				continue
			}
			inner := rest[:end]
			entities = append(entities, tgbotapi.MessageEntity{
				Type:   m.entity,
				Offset: offset,
				Length: UTF16Len(inner),
			})
			out.WriteString(inner)
			offset += UTF16Len(inner)
			text = rest[end+len(m.close):]
			matched = true
			break
		}
		if matched {
			continue
		}

		r, size := utf8.DecodeRuneInString(text)
		out.WriteString(text[:size])
		offset += utf16.RuneLen(r)
		text = text[size:]
	}

	return ParseResult{
		Text:     strings.TrimRight(out.String(), " \n"),
		Entities: entities,
	}
}
