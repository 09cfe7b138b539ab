package reconcile

import (
	"testing"
	"time"

	"soulslink.ai/internal/protocol"
	"soulslink.ai/internal/protocol/prototest"
	"soulslink.ai/internal/save"
	"soulslink.ai/internal/slotdata"
)

type printSink struct{ lines []string }

func (p *printSink) env() *Env {
	return &Env{Log: Discard.Log, Print: func(pr protocol.Print) { p.lines = append(p.lines, pr.String()) }}
}

func TestDeathLinkReceive_GraceAndEcho(t *testing.T) {
	g := loadedGame()
	d := NewDeathLink(Discard, t0)
	mode := slotdata.DeathLinkAnyDeath

	// Too soon after the last transition.
	if ok, _ := d.Receive(t0.Add(10*time.Second), protocol.DeathLink{Source: "a", Time: t0.Add(10 * time.Second)}, mode, "me", g); ok {
		t.Fatalf("death inside local grace applied")
	}
	// Stamped within the grace after the last transition.
	if ok, _ := d.Receive(t0.Add(time.Minute), protocol.DeathLink{Source: "a", Time: t0.Add(10 * time.Second)}, mode, "me", g); ok {
		t.Fatalf("death stamped inside grace applied")
	}
	// Stamped before the last transition.
	if ok, _ := d.Receive(t0.Add(time.Minute), protocol.DeathLink{Source: "a", Time: t0.Add(-time.Hour)}, mode, "me", g); ok {
		t.Fatalf("stale death applied")
	}
	// Our own echo.
	if ok, _ := d.Receive(t0.Add(time.Minute), protocol.DeathLink{Source: "me", Time: t0.Add(time.Minute)}, mode, "me", g); ok {
		t.Fatalf("own death applied")
	}
	if g.Deaths() != 0 {
		t.Fatalf("player died %d times", g.Deaths())
	}

	now := t0.Add(time.Minute)
	ok, err := d.Receive(now, protocol.DeathLink{Source: "a", Time: now}, mode, "me", g)
	if !ok || err != nil {
		t.Fatalf("valid death rejected: %v %v", ok, err)
	}
	if g.Deaths() != 1 || !d.Last().Equal(now) {
		t.Fatalf("kill not applied or timestamp not updated")
	}
}

func TestDeathLinkReceive_OffIgnores(t *testing.T) {
	g := loadedGame()
	d := NewDeathLink(Discard, t0.Add(-time.Hour))
	if ok, _ := d.Receive(t0, protocol.DeathLink{Source: "a", Time: t0}, slotdata.DeathLinkOff, "me", g); ok {
		t.Fatalf("death link off still killed")
	}
}

func TestDeathLinkSend_Amnesty(t *testing.T) {
	g := loadedGame()
	sd := save.NewData("s1")
	cl := &prototest.Client[struct{}]{}
	sink := &printSink{}
	d := NewDeathLink(sink.env(), t0)
	opts := slotdata.Options{DeathLink: slotdata.DeathLinkAnyDeath, DeathLinkAmnesty: 3}

	now := t0
	var counts []uint8
	for i := 0; i < 3; i++ {
		now = now.Add(DeathLinkGrace)
		g.Die()
		if _, err := d.Send(now, opts, "me", g, sd, cl); err != nil {
			t.Fatalf("send: %v", err)
		}
		// Still dead on the next tick: inside the grace, not counted again.
		_, _ = d.Send(now.Add(time.Second), opts, "me", g, sd, cl)
		counts = append(counts, sd.Deaths)
		g.Respawn()
	}
	if counts[0] != 1 || counts[1] != 2 || counts[2] != 0 {
		t.Fatalf("death counters %v, want [1 2 0]", counts)
	}
	links := cl.DeathLinks()
	if len(links) != 1 || links[0].Source != "me" {
		t.Fatalf("expected one death link, got %+v", links)
	}
	want := []string{
		"You have been granted death link amnesty. 2 deaths remain.",
		"You have been granted death link amnesty. 1 death remains.",
		"You have sent a death link to your teammates.",
	}
	if len(sink.lines) != len(want) {
		t.Fatalf("messages %q", sink.lines)
	}
	for i := range want {
		if sink.lines[i] != want[i] {
			t.Fatalf("message %d = %q, want %q", i, sink.lines[i], want[i])
		}
	}
}

func TestDeathLinkSend_LostSouls(t *testing.T) {
	g := loadedGame()
	sd := save.NewData("s1")
	cl := &prototest.Client[struct{}]{}
	d := NewDeathLink(Discard, t0)
	opts := slotdata.Options{DeathLink: slotdata.DeathLinkLostSouls, DeathLinkAmnesty: 1}

	// First death: no earlier bloodstain, souls are recoverable.
	g.Die()
	now := t0.Add(DeathLinkGrace)
	if sent, _ := d.Send(now, opts, "me", g, sd, cl); sent {
		t.Fatalf("recoverable death sent a link")
	}
	g.Respawn()

	// Second death with the bloodstain still down: souls are lost.
	g.Die()
	now = now.Add(DeathLinkGrace)
	if sent, err := d.Send(now, opts, "me", g, sd, cl); !sent || err != nil {
		t.Fatalf("lost souls death did not send: %v %v", sent, err)
	}
	g.Respawn()
	g.RecoverBloodstain()

	g.Die()
	now = now.Add(DeathLinkGrace)
	if sent, _ := d.Send(now, opts, "me", g, sd, cl); sent {
		t.Fatalf("death after recovering souls sent a link")
	}
}

func TestDeathLink_ReceivedDeathDoesNotEcho(t *testing.T) {
	g := loadedGame()
	sd := save.NewData("s1")
	cl := &prototest.Client[struct{}]{}
	d := NewDeathLink(Discard, t0)
	opts := slotdata.Options{DeathLink: slotdata.DeathLinkAnyDeath, DeathLinkAmnesty: 1}

	now := t0.Add(time.Minute)
	if ok, _ := d.Receive(now, protocol.DeathLink{Source: "a", Time: now}, opts.DeathLink, "me", g); !ok {
		t.Fatalf("receive failed")
	}
	if sent, _ := d.Send(now.Add(time.Second), opts, "me", g, sd, cl); sent {
		t.Fatalf("received death echoed back")
	}
	if sd.Deaths != 0 {
		t.Fatalf("received death counted")
	}
}
