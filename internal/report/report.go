// Package report renders assessments for terminals and scripts.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/bryanwahyu/trustbrief/internal/domain/assessment"
	"github.com/bryanwahyu/trustbrief/internal/domain/history"
)

// Format enum
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatBrief Format = "brief"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatBrief:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown format %q (want text, json or brief)", s)
	}
}

var rule = strings.Repeat("=", 70)

// Write renders a single assessment in the given format.
func Write(w io.Writer, a *assessment.Assessment, f Format) error {
	switch f {
	case FormatJSON:
		return JSON(w, a)
	case FormatBrief:
		return Brief(w, a)
	default:
		return Text(w, a)
	}
}

func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Text is the full trust brief.
func Text(w io.Writer, a *assessment.Assessment) error {
	p := &printer{w: w}
	e, c, q := a.Entity, a.Classification, a.EvidenceQuality

	p.section("ENTITY")
	p.line("Product:          %s", e.Product)
	p.line("Vendor:           %s", or(e.Vendor, "N/A"))
	p.line("Website:          %s", or(e.Website, "N/A"))
	p.line("Confidence:       %d%%", e.Confidence)
	if e.Reasoning != "" {
		p.line("\nReasoning:\n  %s", e.Reasoning)
	}

	p.section("TAXONOMY")
	p.line("Primary Category: %s", or(c.PrimaryCategory, "Unknown"))
	p.line("Subcategory:      %s", or(c.PrimarySubcategory, "Unknown"))
	for _, s := range c.Secondary {
		p.line("Also:             %s / %s", s.Category, s.Subcategory)
	}
	p.line("Deployment:       %s", or(string(c.DeploymentModel), "unknown"))
	p.line("Data Access:      %s", or(string(c.DataAccess), "unknown"))
	p.line("Confidence:       %d%%", c.Confidence)
	if len(c.KeyFunctions) > 0 {
		p.line("\nKey Functions:")
		for _, f := range c.KeyFunctions {
			p.line("  - %s", f)
		}
	}
	p.line("\nEvidence Basis:   %s", strings.ToUpper(or(string(c.EvidenceBasis), "unknown")))
	if c.Insufficient() && c.Reasoning != "" {
		p.line("  %s", c.Reasoning)
	}

	if !c.Insufficient() && c.PrimarySubcategory != "" {
		rp := assessment.RiskProfileFor(c.PrimarySubcategory)
		p.line("\nTypical Risks (%s sensitivity):", rp.DataSensitivity)
		for _, r := range rp.TypicalRisks {
			p.line("  - %s", r)
		}
	}

	p.section("EVIDENCE QUALITY")
	p.line("Overall Quality:  %s", strings.ToUpper(or(q.Quality, "unknown")))
	p.line("Sources Found:    %d/%d", q.SourcesFound, len(assessment.SourceKinds)+1)
	p.line("Independent:      %d", q.IndependentSources)
	p.line("Vendor-Stated:    %d", q.VendorSources)

	p.section("SOURCES")
	for _, s := range a.Sources {
		p.line("%-18s found  %s [%s]", strings.ToUpper(string(s.Kind)), s.URL, s.Label)
	}
	if len(a.Sources) == 0 {
		p.line("No security-relevant pages found")
	}
	p.line("%-18s %s", "CISA_KEV", kevLine(a.Kev))
	for i, m := range a.Kev.Matches {
		if i == 3 {
			break
		}
		p.line("  - %s: %s", m.CVEID, m.VulnerabilityName)
	}

	s := a.Suggestions
	p.section("SAFER ALTERNATIVES")
	if len(s.Alternatives) == 0 {
		p.line("No alternatives recommended")
		p.line("Note: %s", or(s.Note, or(s.Rationale, "Insufficient evidence")))
	} else {
		p.line("Recommendation Confidence: %d%%", s.RecommendationConfidence)
		if s.Rationale != "" {
			p.line("\nRationale:\n  %s", s.Rationale)
		}
		for i, alt := range s.Alternatives {
			p.line("\n%s", strings.Repeat("-", 70))
			p.line("ALTERNATIVE %d: %s by %s", i+1, alt.Product, or(alt.Vendor, "unknown vendor"))
			p.line("%s", strings.Repeat("-", 70))
			p.line("Confidence:  %d%%", alt.Confidence)
			p.line("Website:     %s", or(alt.Website, "N/A"))
			p.line("\nWhy Safer:\n  %s", or(alt.SecurityAdvantage, alt.Rationale))
			if len(alt.Highlights) > 0 {
				p.line("\nSecurity Highlights:")
				for _, h := range alt.Highlights {
					p.line("  + %s", h)
				}
			}
			if len(alt.TradeOffs) > 0 {
				p.line("\nTrade-offs:")
				for _, t := range alt.TradeOffs {
					p.line("  ! %s", t)
				}
			}
		}
	}
	if s.Recommendation != "" {
		p.line("\nRecommendation: %s", s.Recommendation)
	}

	p.line("\n%s", rule)
	p.line("Assessed at: %s", a.Cache.CreatedAt.UTC().Format(time.RFC3339))
	p.line("Cache key:   %s (%s)", a.Cache.Key, a.Cache.Provenance)
	p.line("%s", rule)
	return p.err
}

// Brief is the one-screen summary.
func Brief(w io.Writer, a *assessment.Assessment) error {
	p := &printer{w: w}
	q := a.EvidenceQuality
	p.line("BRIEF ASSESSMENT SUMMARY")
	p.line("%s", rule)
	p.line("Product:     %s by %s", a.Entity.Product, or(a.Entity.Vendor, "unknown vendor"))
	p.line("Category:    %s", or(a.Classification.PrimarySubcategory, a.Classification.PrimaryCategory))
	p.line("Deployment:  %s", or(string(a.Classification.DeploymentModel), "unknown"))
	p.line("Evidence:    %s (%d sources)", strings.ToUpper(or(q.Quality, "unknown")), q.SourcesFound)

	p.line("\nRISK INDICATORS:")
	switch {
	case a.Kev.Listed():
		p.line("  [!] CISA KEV: %d known exploited vulnerabilities", a.Kev.Count)
	case a.Kev.State == assessment.KevClear:
		p.line("  [ok] CISA KEV: no known exploited vulnerabilities")
	default:
		p.line("  [?] CISA KEV: status unknown")
	}
	mark := "[ok]"
	if q.IndependentSources == 0 {
		mark = "[!]"
	}
	p.line("  %s Independent Evidence: %d sources", mark, q.IndependentSources)

	if alts := a.Suggestions.Alternatives; len(alts) > 0 {
		top := alts[0]
		why := top.SecurityAdvantage
		if len(top.Highlights) > 0 {
			why = top.Highlights[0]
		}
		p.line("\nTOP ALTERNATIVE:")
		p.line("  %s by %s (%d%% confidence)", top.Product, or(top.Vendor, "unknown vendor"), top.Confidence)
		p.line("  Why: %s", or(why, "Better security posture"))
	}
	p.line("%s", rule)
	return p.err
}

// Comparison renders a side-by-side matrix.
func Comparison(w io.Writer, c *assessment.Comparison) error {
	l, r := c.Left, c.Right
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][3]string{
		{"Dimension", clip(l.Input), clip(r.Input)},
		{"Product", clip(l.Entity.Product), clip(r.Entity.Product)},
		{"Vendor", clip(l.Entity.Vendor), clip(r.Entity.Vendor)},
		{"Category", clip(l.Classification.PrimarySubcategory), clip(r.Classification.PrimarySubcategory)},
		{"Deployment", string(l.Classification.DeploymentModel), string(r.Classification.DeploymentModel)},
		{"Data Access", string(l.Classification.DataAccess), string(r.Classification.DataAccess)},
		{"Evidence Quality", strings.ToUpper(l.EvidenceQuality.Quality), strings.ToUpper(r.EvidenceQuality.Quality)},
		{"Independent Sources", fmt.Sprint(l.EvidenceQuality.IndependentSources), fmt.Sprint(r.EvidenceQuality.IndependentSources)},
		{"CISA KEV", kevLine(l.Kev), kevLine(r.Kev)},
		{"Security Page", found(l, assessment.SourceSecurityPage), found(r, assessment.SourceSecurityPage)},
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(tw, "%s\t| %s\t| %s\n", row[0], row[1], row[2]); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%s\n", Verdict(c))
	return err
}

// Verdict picks the side with fewer KEV entries, then better evidence.
func Verdict(c *assessment.Comparison) string {
	l, r := c.Left, c.Right
	switch {
	case l.Kev.Count < r.Kev.Count:
		return fmt.Sprintf("%s appears safer (fewer CISA KEV entries)", l.Entity.Product)
	case r.Kev.Count < l.Kev.Count:
		return fmt.Sprintf("%s appears safer (fewer CISA KEV entries)", r.Entity.Product)
	}
	lq, rq := qualityRank[l.EvidenceQuality.Quality], qualityRank[r.EvidenceQuality.Quality]
	switch {
	case lq > rq:
		return fmt.Sprintf("Both products show similar risk profiles; %s has better evidence quality", l.Entity.Product)
	case rq > lq:
		return fmt.Sprintf("Both products show similar risk profiles; %s has better evidence quality", r.Entity.Product)
	default:
		return "Both products show similar risk profiles"
	}
}

var qualityRank = map[string]int{"insufficient": 0, "limited": 1, "moderate": 2, "good": 3}

// Entries lists cached assessments with their age.
func Entries(w io.Writer, entries []assessment.CacheEntry, now time.Time) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No cached assessments")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PRODUCT\tCATEGORY\tEVIDENCE\tAGE\tKEY")
	for _, e := range entries {
		age := Age(now.Sub(e.CreatedAt))
		if e.Stale {
			age += " (stale)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", or(e.Product, e.Input), or(e.Category, "-"), or(e.Quality, "-"), age, e.Key)
	}
	return tw.Flush()
}

// Runs lists pipeline history.
func Runs(w io.Writer, runs []*history.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tINPUT\tSTATUS\tSTAGE\tDURATION")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%dms\n",
			r.CreatedAt.UTC().Format(time.RFC3339), clip(r.Input), r.Status, or(r.FailedStage, "-"), r.DurationMS)
	}
	return tw.Flush()
}

// Age formats d as days, or hours below one day.
func Age(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if days := int(d.Hours()) / 24; days > 0 {
		return fmt.Sprintf("%dd ago", days)
	}
	return fmt.Sprintf("%dh ago", int(d.Hours()))
}

func kevLine(k assessment.KevStatus) string {
	switch {
	case k.Listed():
		return fmt.Sprintf("LISTED (%d entries)", k.Count)
	case k.State == assessment.KevClear:
		return "CLEAR"
	default:
		return "UNKNOWN"
	}
}

func found(a *assessment.Assessment, kind assessment.SourceKind) string {
	for _, s := range a.Sources {
		if s.Kind == kind && s.Outcome == assessment.OutcomeFound {
			return "found"
		}
	}
	return "not found"
}

func clip(s string) string {
	if r := []rune(s); len(r) > 33 {
		return string(r[:33])
	}
	return s
}

func or(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// printer keeps the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) section(title string) {
	p.line("\n%s\n%s\n%s", rule, title, rule)
}
