package guild

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// OptionKind says how an operator supplied option value is parsed.
type OptionKind int

const (
	OptionChannel OptionKind = iota
	OptionRole
	OptionNumber
	OptionText
	OptionTimezone
)

// Option is a per-guild setting operators may change from chat.
type Option struct {
	Key         string
	Kind        OptionKind
	Description string
}

var options = map[string]Option{
	keyModerationLog:     {keyModerationLog, OptionChannel, "Channel for moderation action logs"},
	keyActionLog:         {keyActionLog, OptionChannel, "Channel for other action logs"},
	keyMuteRole:          {keyMuteRole, OptionRole, "Role given to muted members"},
	keyTicketParent:      {keyTicketParent, OptionChannel, "Category new tickets are created in"},
	keyTicketLimit:       {keyTicketLimit, OptionNumber, "Open tickets allowed per member"},
	keyTicketName:        {keyTicketName, OptionText, "Ticket channel name template"},
	keyTicketDescription: {keyTicketDescription, OptionText, "Text shown in the ticket opener"},
	keyTicketAlert:       {keyTicketAlert, OptionRole, "Role pinged when a ticket opens"},
	keyTicketLogs:        {keyTicketLogs, OptionChannel, "Channel that receives ticket transcripts"},
	keyTimezone:          {keyTimezone, OptionTimezone, "Timezone used in transcripts"},
}

var (
	mention = regexp.MustCompile(`^<(?:#|@&)(\d{15,21})>$`)
	bareID  = regexp.MustCompile(`^\d{15,21}$`)
)

// ConfigOptions lists the configurable settings sorted by key.
func ConfigOptions() []Option {
	out := make([]Option, 0, len(options))
	for _, o := range options {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// LookupOption finds a configurable setting by key.
func LookupOption(key string) (Option, bool) {
	o, ok := options[key]
	return o, ok
}

// Parse converts raw into the value stored for the option. Channel and role
// options accept a mention or a bare ID.
func (o Option) Parse(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch o.Kind {
	case OptionChannel, OptionRole:
		if m := mention.FindStringSubmatch(raw); m != nil {
			return m[1], nil
		}
		if bareID.MatchString(raw) {
			return raw, nil
		}
		return nil, fmt.Errorf("%q is not a channel or role", raw)
	case OptionNumber:
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%q is not a positive number", raw)
		}
		return n, nil
	case OptionTimezone:
		if _, err := time.LoadLocation(raw); err != nil {
			return nil, fmt.Errorf("unknown timezone %q", raw)
		}
		return raw, nil
	default:
		if raw == "" {
			return nil, fmt.Errorf("value is empty")
		}
		return raw, nil
	}
}
