package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"holdco/internal/game"
	"holdco/internal/round"

	"github.com/fatih/color"
	"golang.org/x/term"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func promptOptional(label string) (string, error) {
	fmt.Printf("%s: ", label)
	text, err := stdinReader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// promptPassword hides input on a terminal and falls back to a plain read when stdin
// is piped.
func promptPassword(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return promptRequired(label)
	}
	for {
		fmt.Printf("%s: ", label)
		raw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		if text := strings.TrimSpace(string(raw)); text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func renderRound(r round.Result) {
	m := r.Metrics
	accent.Printf("\n== ROUND %d ==\n", m.Round)
	fmt.Printf("%s  %s\n", eventTone(r.Event.Type).Sprint(r.Event.Title), r.Event.Description)
	for _, imp := range r.Event.Impacts {
		who := "holdco"
		if i := r.State.BusinessIndex(imp.BusinessID); i >= 0 {
			who = r.State.Businesses[i].Name
		}
		fmt.Printf("  %-24s %-20s %10s -> %-10s\n", truncate(who, 24), imp.Metric, formatImpact(imp.Metric, imp.Before), formatImpact(imp.Metric, imp.After))
	}
	for _, t := range r.Turnarounds {
		fmt.Printf("  turnaround %s on %s: %s\n", t.ProgramID, t.BusinessID, t.Outcome)
	}
	fmt.Printf("Cash %s (%s)  Equity %s  MOIC %s  ROIC %s  Leverage %.2fx  %s\n",
		game.FormatMoney(m.Cash),
		colorizeMoney(r.CashFlow.Net),
		game.FormatMoney(m.EquityValue),
		game.FormatMultiple(m.Moic),
		colorizePercent(m.Roic*100),
		m.NetDebtToEbitda,
		distressTone(m.DistressLevel).Sprint(string(m.DistressLevel)),
	)
}

func renderPortfolio(s game.GameState) {
	fmt.Printf("%-26s %-16s %12s %8s %10s %4s\n", "BUSINESS", "SECTOR", "REVENUE", "MARGIN", "EBITDA", "Q")
	for _, b := range s.Businesses {
		if !b.Active() {
			continue
		}
		fmt.Printf("%-26s %-16s %12s %8s %10s %4d\n",
			truncate(b.Name, 26),
			truncate(b.SectorID, 16),
			game.FormatMoney(b.Revenue),
			game.FormatPercent(b.EbitdaMargin),
			game.FormatMoney(b.Ebitda),
			b.QualityRating,
		)
	}
}

func renderValuation(b game.Business, v game.ExitValuation) {
	accent.Printf("\n== %s ==\n", strings.ToUpper(b.Name))
	rows := []struct {
		label string
		value float64
	}{
		{"growth", v.GrowthPremium},
		{"quality", v.QualityPremium},
		{"platform", v.PlatformPremium},
		{"hold", v.HoldPremium},
		{"improvements", v.ImprovementsPremium},
		{"market", v.MarketModifier},
		{"size tier", v.SizeTierPremium},
		{"de-risking", v.DeRiskingPremium},
		{"rule of 40", v.RuleOf40Premium},
		{"margin expansion", v.MarginExpansionPremium},
		{"merger", v.MergerPremium},
		{"integrated platform", v.IntegratedPlatformPremium},
		{"turnaround", v.TurnaroundPremium},
	}
	fmt.Printf("%-22s %s\n", "base multiple", game.FormatMultiple(v.BaseMultiple))
	for _, row := range rows {
		if row.value == 0 {
			continue
		}
		fmt.Printf("%-22s %s\n", row.label, colorizeMultiple(row.value))
	}
	fmt.Printf("%-22s %s (cap %s, raw %s)\n", "premiums", game.FormatMultiple(v.TotalPremiums), game.FormatMultiple(v.PremiumCap), game.FormatMultiple(v.RawTotalPremiums))
	fmt.Printf("%-22s %.2f\n", "seasoning", v.SeasoningMultiplier)
	fmt.Printf("%-22s %s\n", "exit multiple", accent.Sprint(game.FormatMultiple(v.TotalMultiple)))
	fmt.Printf("%-22s %s\n", "exit price", game.FormatMoney(v.ExitPrice))
	fmt.Printf("%-22s %s\n", "debt payoff", game.FormatMoney(v.DebtPayoff))
	fmt.Printf("%-22s %s\n", "net proceeds", colorizeMoney(v.NetProceeds))
	for _, line := range v.Commentary {
		printInfo("  " + line)
	}
}

func renderLeaderboard(rows []game.LeaderboardRow, title string) {
	accent.Printf("\n== %s ==\n", strings.ToUpper(title))
	if len(rows) == 0 {
		printInfo("No leaderboard rows yet.")
		return
	}
	fmt.Printf("%-6s %-24s %14s %8s %7s\n", "RANK", "PLAYER", "SCORE", "MOIC", "ROUNDS")
	for _, row := range rows {
		fmt.Printf("%-6d %-24s %14s %8s %7d\n",
			row.Rank,
			truncate(row.Username, 24),
			game.FormatMoney(row.Score),
			game.FormatMultiple(row.Moic),
			row.Rounds,
		)
	}
	fmt.Println()
}

func eventTone(t game.EventType) *color.Color {
	switch t {
	case game.EventBullMarket, game.EventInterestCut, game.EventStarJoins, game.EventClientSigns,
		game.EventBreakthrough, game.EventReferralDeal:
		return success
	case game.EventRecession, game.EventInterestHike, game.EventCreditTightening, game.EventTalentLeaves,
		game.EventClientChurns, game.EventComplianceIssue:
		return danger
	case game.EventUnsolicitedOffer, game.EventEquityDemand, game.EventSellerNoteRenego, game.EventManagementBuyout:
		return warn
	default:
		return neutral
	}
}

func distressTone(d game.DistressLevel) *color.Color {
	switch d {
	case game.DistressComfortable:
		return success
	case game.DistressElevated:
		return neutral
	case game.DistressStressed:
		return warn
	default:
		return danger
	}
}

func formatImpact(metric string, v float64) string {
	switch metric {
	case "ebitda_margin", "revenue_growth_rate", "interest_rate":
		return game.FormatPercent(v)
	case "quality_rating":
		return strconv.Itoa(int(v))
	default:
		return game.FormatMoney(int64(v))
	}
}

func decodeInto[T any](in any) (T, error) {
	var out T
	raw, err := json.Marshal(in)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}

// readJSONFile decodes path, or stdin when path is "-".
func readJSONFile[T any](path string) (T, error) {
	var out T
	f := os.Stdin
	if path != "-" {
		opened, err := os.Open(path)
		if err != nil {
			return out, err
		}
		defer opened.Close()
		f = opened
	}
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}

func colorizeMoney(v int64) string {
	text := game.FormatMoney(v)
	switch {
	case v > 0:
		return success.Sprint("+" + text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func colorizeMultiple(v float64) string {
	text := fmt.Sprintf("%+.2fx", v)
	switch {
	case v > 0:
		return success.Sprint(text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func colorizePercent(v float64) string {
	text := fmt.Sprintf("%+.2f%%", v)
	switch {
	case v > 0:
		return success.Sprint(text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
