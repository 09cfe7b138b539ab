package reconcile

import (
	"fmt"
	"time"

	"soulslink.ai/internal/game"
	"soulslink.ai/internal/persistence/journal"
	"soulslink.ai/internal/protocol"
	"soulslink.ai/internal/save"
	"soulslink.ai/internal/slotdata"
)

// DeathLinkGrace is the quiet period after any death-link transition, sent
// or received, during which no other transition happens.
const DeathLinkGrace = 30 * time.Second

// DeathLink sends and receives linked deaths. Both directions share one
// timestamp so a received death never echoes back as a sent one.
type DeathLink struct {
	Env *Env

	last time.Time
}

// NewDeathLink starts the grace period at now.
func NewDeathLink(env *Env, now time.Time) *DeathLink {
	return &DeathLink{Env: env, last: now}
}

// Last is the time of the last transition.
func (d *DeathLink) Last() time.Time { return d.last }

func (d *DeathLink) ready(now time.Time, mode slotdata.DeathLinkMode) bool {
	return mode != slotdata.DeathLinkOff && now.Sub(d.last) >= DeathLinkGrace
}

// Receive applies an inbound death. self is this slot's player name; deaths
// it sent itself are ignored, as are deaths stamped at or within the grace
// period after the last transition. It reports whether the player was
// killed.
func (d *DeathLink) Receive(now time.Time, ev protocol.DeathLink, mode slotdata.DeathLinkMode, self string, p game.Player) (bool, error) {
	if !d.ready(now, mode) || ev.Source == self {
		return false, nil
	}
	since := ev.Time.Sub(d.last)
	if since < 0 {
		d.Env.logf("ignoring death link from %s stamped before the last transition", ev.Source)
		return false, nil
	}
	if since < DeathLinkGrace {
		d.Env.logf("ignoring death link from %s %s after the last transition", ev.Source, since)
		return false, nil
	}
	if err := p.KillPlayer(); err != nil {
		return false, err
	}
	d.last = now
	d.Env.logf("killed by death link from %s", ev.Source)
	d.Env.record(journal.Entry{At: now, Kind: journal.KindDeathRecv, Source: ev.Source})
	return true, nil
}

// Send reports the player's own death once hit points reach zero. Deaths
// accumulate in the save until they reach the amnesty threshold. In lost
// souls mode a death only counts if the previous bloodstain was still on the
// ground. It reports whether a death link went out.
func (d *DeathLink) Send(now time.Time, opts slotdata.Options, self string, p game.Player, sd *save.Data, c DeathLinker) (bool, error) {
	if sd == nil || !d.ready(now, opts.DeathLink) {
		return false, nil
	}
	hp, err := p.PlayerHP()
	if err != nil || hp != 0 {
		return false, err
	}
	counts := true
	if opts.DeathLink == slotdata.DeathLinkLostSouls {
		if counts, err = p.BloodstainExists(); err != nil {
			return false, err
		}
	}
	d.last = now
	if !counts {
		return false, nil
	}

	deaths := sd.AddDeath()
	if deaths < opts.DeathLinkAmnesty {
		remaining := opts.DeathLinkAmnesty - deaths
		msg := fmt.Sprintf("You have been granted death link amnesty. %d deaths remain.", remaining)
		if remaining == 1 {
			msg = "You have been granted death link amnesty. 1 death remains."
		}
		d.Env.print(protocol.Text(msg))
		return false, nil
	}
	if err := c.DeathLink(protocol.DeathLinkData{Source: self, Time: protocol.DeathLinkSeconds(now)}); err != nil {
		return false, err
	}
	sd.ResetDeaths()
	d.Env.print(protocol.Text("You have sent a death link to your teammates."))
	d.Env.record(journal.Entry{At: now, Kind: journal.KindDeathSent, SaveID: sd.SaveID, Source: self})
	return true, nil
}
