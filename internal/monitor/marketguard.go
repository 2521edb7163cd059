package monitor

import (
	"time"

	"github.com/atlas-desktop/scalper-engine/internal/markethours"
	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

// ApplyMarketGuard pauses or un-pauses bot in response to its symbol's
// market status, remembering the bot's pre-guard status in
// ScalperParams.MarketGuard so it can be reversed when the market reopens
// without ever overriding a longer-standing manual pause set by the
// operator.
func ApplyMarketGuard(bot *types.Bot, status markethours.Status, now time.Time) (changed bool) {
	if !status.Open {
		if bot.Status == types.BotStatusActive {
			bot.ScalperParams.MarketGuard.Was = bot.Status
			bot.Status = types.BotStatusPaused
			return true
		}
		return false
	}

	if bot.ScalperParams.MarketGuard.Was == types.BotStatusActive && bot.Status == types.BotStatusPaused {
		bot.Status = types.BotStatusActive
		bot.ScalperParams.MarketGuard.Was = ""
		return true
	}
	return false
}
