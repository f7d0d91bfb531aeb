package utils

import (
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// maxFieldLength is Discord's limit for an embed field value.
const maxFieldLength = 1024

type LogLevel string

const (
	Info  LogLevel = "INFO"
	Warn  LogLevel = "WARN"
	Error LogLevel = "ERROR"
)

// EmbedSender is the part of *discordgo.Session the operator log needs.
type EmbedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// OpsLog posts coloured embeds to the operator log channel and mirrors every
// entry to zap. An empty channel ID only logs locally.
type OpsLog struct {
	sender    EmbedSender
	channelID string
	logger    *zap.Logger
}

func NewOpsLog(sender EmbedSender, channelID string, logger *zap.Logger) *OpsLog {
	return &OpsLog{sender: sender, channelID: channelID, logger: logger.Named("opslog")}
}

func getColor(level LogLevel) int {
	switch level {
	case Info:
		return 3066993 // Green
	case Warn:
		return 15105570 // Orange
	case Error:
		return 15158332 // Red
	default:
		return 3447003 // Blue
	}
}

func (l *OpsLog) send(level LogLevel, module, operation, extraInfo string) {
	fields := []zap.Field{zap.String("module", module), zap.String("operation", operation), zap.String("details", extraInfo)}
	switch level {
	case Error:
		l.logger.Error("Operator log", fields...)
	case Warn:
		l.logger.Warn("Operator log", fields...)
	default:
		l.logger.Info("Operator log", fields...)
	}

	if l.channelID == "" || l.sender == nil {
		return
	}
	if extraInfo == "" {
		extraInfo = "-"
	}
	if r := []rune(extraInfo); len(r) > maxFieldLength {
		extraInfo = string(r[:maxFieldLength-1]) + "…"
	}
	embed := &discordgo.MessageEmbed{
		Title: string(level) + " Log",
		Color: getColor(level),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "模块", Value: module},
			{Name: "操作", Value: operation},
			{Name: "附加信息", Value: extraInfo},
		},
	}
	if _, err := l.sender.ChannelMessageSendEmbed(l.channelID, embed); err != nil {
		l.logger.Warn("Failed to send log to discord", zap.String("channel_id", l.channelID), zap.Error(err))
	}
}

func (l *OpsLog) Info(module, operation, extraInfo string) {
	l.send(Info, module, operation, extraInfo)
}

func (l *OpsLog) Warn(module, operation, extraInfo string) {
	l.send(Warn, module, operation, extraInfo)
}

func (l *OpsLog) Error(module, operation, extraInfo string) {
	l.send(Error, module, operation, extraInfo)
}
