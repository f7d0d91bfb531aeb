package guild

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	transcriptTimeFormat = "2006-01-02 15:04:05 MST"
	emptyMessage         = `¯\\_(ツ)_/¯`
)

// transcript collects a ticket's history in the order it is fed.
type transcript struct {
	loc     *time.Location
	entries []string
}

func newTranscript(loc *time.Location) *transcript {
	if loc == nil {
		loc = time.UTC
	}
	return &transcript{loc: loc}
}

func (t *transcript) add(m *discordgo.Message) {
	name, id := "Unknown User", ""
	if m.Author != nil {
		name, id = m.Author.Username, m.Author.ID
	}
	t.entries = append(t.entries, fmt.Sprintf("%s (%s) at %s\n%s",
		name, id, m.Timestamp.In(t.loc).Format(transcriptTimeFormat), transcriptContent(m)))
}

// close appends the summary line and returns the file body.
func (t *transcript) close(closer *discordgo.User) []byte {
	t.entries = append(t.entries, fmt.Sprintf("%d messages, closed by %s", len(t.entries), closer.Username))
	return []byte(strings.Join(t.entries, "\n\n"))
}

// transcriptContent flattens a message's text, embeds, attachments and stickers.
func transcriptContent(m *discordgo.Message) string {
	var b strings.Builder
	b.WriteString(m.ContentWithMentionsReplaced())
	for _, embed := range m.Embeds {
		if embed.Description != "" {
			b.WriteString("\n" + embed.Description)
		}
		for _, field := range embed.Fields {
			fmt.Fprintf(&b, "\n%s | %s", field.Name, field.Value)
		}
	}
	for _, attachment := range m.Attachments {
		b.WriteString("\n" + attachment.ProxyURL)
	}
	if len(m.StickerItems) > 0 {
		names := make([]string, 0, len(m.StickerItems))
		for _, sticker := range m.StickerItems {
			names = append(names, sticker.Name)
		}
		b.WriteString("\nStickers: " + strings.Join(names, ","))
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return emptyMessage
	}
	return text
}
