package bot

import (
	"fmt"
	"runtime"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

// SystemStats is a snapshot of the host and the bot process.
type SystemStats struct {
	Platform      string
	KernelVersion string
	CPUCount      int
	CPUPercent    float64
	MemPercent    float64
	MemUsedMB     uint64
	MemTotalMB    uint64
	HostUptime    time.Duration
	Goroutines    int
	Guilds        int
	Latency       time.Duration
	Uptime        time.Duration
}

// CollectStats gathers the snapshot. Fields gopsutil cannot read stay zero.
func (b *Bot) CollectStats() SystemStats {
	stats := SystemStats{
		Goroutines: runtime.NumGoroutine(),
		Guilds:     len(b.Supervisor.Guilds()),
		Latency:    b.Session.HeartbeatLatency(),
	}
	if !b.startedAt.IsZero() {
		stats.Uptime = time.Since(b.startedAt)
	}
	if n, err := cpu.Counts(true); err == nil {
		stats.CPUCount = n
	}
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		stats.CPUPercent = pct[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		stats.MemPercent = vm.UsedPercent
		stats.MemUsedMB = vm.Used / 1024 / 1024
		stats.MemTotalMB = vm.Total / 1024 / 1024
	}
	if info, err := host.Info(); err == nil {
		stats.Platform = fmt.Sprintf("%s %s", info.Platform, info.PlatformVersion)
		stats.KernelVersion = info.KernelVersion
		stats.HostUptime = time.Duration(info.Uptime) * time.Second
	}
	return stats
}

func (b *Bot) logStats() {
	st := b.CollectStats()
	b.Logger.Info("Runtime stats",
		zap.Int("guilds", st.Guilds),
		zap.Int("goroutines", st.Goroutines),
		zap.Float64("cpu_percent", st.CPUPercent),
		zap.Float64("mem_percent", st.MemPercent),
		zap.Duration("latency", st.Latency),
		zap.Duration("uptime", st.Uptime))
}

// Embed renders the snapshot for the stats command.
func (st SystemStats) Embed(at time.Time) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "系统信息",
		Color: 0x5865F2, // Discord Blurple
		Fields: []*discordgo.MessageEmbedField{
			{Name: "💻 OS 版本", Value: orDash(st.Platform), Inline: true},
			{Name: "🔧 内核版本", Value: orDash(st.KernelVersion), Inline: true},
			{Name: "🐹 Go 版本", Value: runtime.Version(), Inline: true},
			{Name: "🔼 CPU 数量", Value: fmt.Sprintf("%d", st.CPUCount), Inline: true},
			{Name: "🔥 CPU 使用率", Value: fmt.Sprintf("%.1f%%", st.CPUPercent), Inline: true},
			{Name: "🧠 系统内存", Value: fmt.Sprintf("%.1f%% (%d MB / %d MB)", st.MemPercent, st.MemUsedMB, st.MemTotalMB), Inline: true},
			{Name: "⏱️ WebSocket 延迟", Value: st.Latency.String(), Inline: true},
			{Name: "🚀 Goroutines", Value: fmt.Sprintf("%d", st.Goroutines), Inline: true},
			{Name: "🌍 服务器数", Value: fmt.Sprintf("%d", st.Guilds), Inline: true},
			{Name: "⌛ 运行时间", Value: st.Uptime.Truncate(time.Second).String(), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("系统监控・今天%s", at.Format("15:04")),
		},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
