package ui

import (
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/Mohsinsiddi/launchpad/internal/launchpad"
)

// Phase names the derived lifecycle phase of a project at now.
func Phase(p *launchpad.Project, now time.Time) string {
	switch {
	case p.Status == launchpad.StatusCancelled:
		return "cancelled"
	case p.Ended(now):
		return "ended"
	default:
		return "active"
	}
}

// PhaseLabel is Phase, colored.
func PhaseLabel(p *launchpad.Project, now time.Time) string {
	switch ph := Phase(p, now); ph {
	case "cancelled":
		return StyleError.Render(ph)
	case "ended":
		return StyleWarning.Render(ph)
	default:
		return StyleSuccess.Render(ph)
	}
}

// EndTime formats a unix end time; zero reads as "immediately".
func EndTime(end uint64) string {
	if end == 0 {
		return "immediately"
	}
	return time.Unix(int64(end), 0).UTC().Format(time.RFC3339)
}

// ProjectTable lists projects one per row.
func ProjectTable(projects []*launchpad.Project, now time.Time) string {
	t := NewTable([]Column{
		{Title: "ID", Width: 4, Right: true},
		{Title: "PHASE", Width: 9},
		{Title: "SALE ASSET", Width: 13},
		{Title: "OWNER", Width: 13},
		{Title: "PRICE", Width: 10, Right: true},
		{Title: "RAISED / CAP", Width: 24, Right: true},
		{Title: "ENDS", Width: 20},
	})
	for _, p := range projects {
		t.AddRow(Row{
			strconv.FormatUint(p.ID, 10),
			Phase(p, now),
			TruncateAddr(p.SaleAsset.Hex()),
			TruncateAddr(p.Owner.Hex()),
			p.TokenPrice.String(),
			p.TotalRaised.String() + " / " + p.MaxCap.String(),
			EndTime(p.EndTime),
		})
	}
	return t.Render()
}

// ProjectBlock renders one project's terms and counters. custody may be
// nil when the balance could not be read.
func ProjectBlock(p *launchpad.Project, now time.Time, custody *big.Int) string {
	held := "unknown"
	if custody != nil {
		held = custody.String()
	}
	withdrawn := "no"
	if p.Withdrawn {
		withdrawn = "yes"
	}
	return KeyValueBlock(fmt.Sprintf("Project #%d", p.ID), [][2]string{
		{"Phase", PhaseLabel(p, now)},
		{"Owner", p.Owner.Hex()},
		{"Sale asset", p.SaleAsset.Hex()},
		{"Token price", p.TokenPrice.String()},
		{"Investment", p.MinInvestment.String() + " – " + p.MaxInvestment.String()},
		{"Max cap", p.MaxCap.String()},
		{"Ends", EndTime(p.EndTime)},
		{"Raised", p.TotalRaised.String()},
		{"Allocated", p.TotalAllocated.String()},
		{"Claimed", p.TotalClaimed.String()},
		{"Required funding", p.RequiredFunding().String()},
		{"Custody holds", held},
		{"Whitelisted", strconv.Itoa(len(p.Whitelist))},
		{"Investors", strconv.Itoa(len(p.Positions))},
		{"Withdrawn", withdrawn},
	})
}

// EventTable lists journal entries.
func EventTable(events []launchpad.Event) string {
	t := NewTable([]Column{
		{Title: "SEQ", Width: 5, Right: true},
		{Title: "TIME", Width: 20},
		{Title: "ACTION", Width: 16},
		{Title: "PROJECT", Width: 7, Right: true},
		{Title: "ACTOR", Width: 13},
		{Title: "DETAILS", Width: 40},
	})
	for _, ev := range events {
		project := "-"
		if ev.ProjectID != 0 {
			project = strconv.FormatUint(ev.ProjectID, 10)
		}
		t.AddRow(Row{
			strconv.FormatUint(ev.Seq, 10),
			ev.At.UTC().Format(time.RFC3339),
			ev.Action,
			project,
			TruncateAddr(ev.Actor.Hex()),
			ev.Details,
		})
	}
	return t.Render()
}
