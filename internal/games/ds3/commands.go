package ds3

import (
	"fmt"
	"strconv"
	"strings"

	"soulslink.ai/internal/core"
	"soulslink.ai/internal/protocol"
)

// maxEventFlag is the largest flag id the game's flag layout can address.
const maxEventFlag = 999_999_999

// HandleCommand adds !getevent and, with debug enabled, !setevent.
func (u *Updater) HandleCommand(live *core.Live[SlotData], name, arg string) bool {
	switch name {
	case "!getevent":
		flag, err := strconv.ParseUint(arg, 10, 32)
		if err != nil {
			live.Log(core.UsageError(name, "!getevent EVENT_FLAG"))
			return true
		}
		if !validFlag(flag) {
			live.Log(protocol.Colored(fmt.Sprintf("Invalid event ID: %d", flag), protocol.ColorRed))
			return true
		}
		value, err := u.game.EventFlag(uint32(flag))
		if err != nil {
			live.Log(protocol.Colored("Event flags not loaded", protocol.ColorRed))
			return true
		}
		live.Log(protocol.Join(
			protocol.Text("Event "),
			protocol.Colored(strconv.FormatUint(flag, 10), protocol.ColorBlue),
			protocol.Text(": "),
			boolPrint(value),
		))
		return true

	case "!setevent":
		if !live.Config().Debug {
			return false
		}
		fields := strings.Fields(arg)
		var (
			flag  uint64
			value bool
			err   error
		)
		if len(fields) == 2 {
			if flag, err = strconv.ParseUint(fields[0], 10, 32); err == nil {
				value, err = strconv.ParseBool(fields[1])
			}
		}
		if len(fields) != 2 || err != nil {
			live.Log(core.UsageError(name, "!setevent EVENT_FLAG BOOL"))
			return true
		}
		if !validFlag(flag) {
			live.Log(protocol.Colored(fmt.Sprintf("Invalid event ID: %d", flag), protocol.ColorRed))
			return true
		}
		if err := u.game.SetEventFlag(uint32(flag), value); err != nil {
			live.Log(protocol.Colored("Event flags not loaded", protocol.ColorRed))
			return true
		}
		live.Log(protocol.Join(
			protocol.Text("Set event "),
			protocol.Colored(strconv.FormatUint(flag, 10), protocol.ColorBlue),
			protocol.Text(" to "),
			boolPrint(value),
		))
		return true
	}
	return false
}

func validFlag(flag uint64) bool { return flag > 0 && flag <= maxEventFlag }

func boolPrint(v bool) protocol.Print {
	if v {
		return protocol.Colored("true", protocol.ColorGreen)
	}
	return protocol.Colored("false", protocol.ColorRed)
}

var _ core.CommandHandler[SlotData] = (*Updater)(nil)
