package report

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"

	"github.com/hqc-securechain/qrisk/internal/types"
)

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	highStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	mediumStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	lowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// PrintOptions controls terminal rendering.
type PrintOptions struct {
	NoColor bool
	// Snippets prints the source line of each finding, highlighted unless
	// NoColor is set. Source must hold the analysed text.
	Snippets bool
	Source   string
	// SourceName picks the highlighter; defaults to a .sol file.
	SourceName string
}

// Level buckets a score for display: high from 70, medium from 30.
func Level(score int) string {
	switch {
	case score >= 70:
		return "high"
	case score >= 30:
		return "medium"
	default:
		return "low"
	}
}

func styled(s lipgloss.Style, text string, noColor bool) string {
	if noColor {
		return text
	}
	return s.Render(text)
}

func scoreStyle(score int) lipgloss.Style {
	switch Level(score) {
	case "high":
		return highStyle
	case "medium":
		return mediumStyle
	}
	return lowStyle
}

// PrintReport writes a human summary of one analysis.
func PrintReport(w io.Writer, rep types.Report, findings []types.Finding, savedTo string, opts PrintOptions) {
	fmt.Fprintln(w, styled(titleStyle, "Contract: "+rep.Contract, opts.NoColor))
	risk := fmt.Sprintf("%d/100 (%s)", rep.RiskScore, Level(rep.RiskScore))
	fmt.Fprintf(w, "Risk score: %s\n", styled(scoreStyle(rep.RiskScore), risk, opts.NoColor))
	fmt.Fprintf(w, "ecrecover calls: %d   key exposures: %d\n", rep.EcrecoverCount, rep.PublicKeyExposureCount)
	if len(findings) == 0 {
		fmt.Fprintln(w, "No quantum-risk patterns found ✅")
	} else {
		fmt.Fprintf(w, "Findings: %d\n", len(findings))
		for _, f := range findings {
			loc := ""
			if f.Location != nil {
				loc = fmt.Sprintf("line %d", f.Location.Line)
			}
			fmt.Fprintf(w, "  %-8s %s  %s\n", loc, f.Message, styled(dimStyle, "["+f.RuleID+"]", opts.NoColor))
			if opts.Snippets && f.Location != nil {
				if snip := Snippet(opts.Source, f.Location.Line, opts.SourceName, opts.NoColor); snip != "" {
					fmt.Fprintln(w, snip)
				}
			}
		}
	}
	if savedTo != "" {
		fmt.Fprintf(w, "Result saved to: %s\n", savedTo)
	}
}

// PrintStored writes a persisted report. Only the saved fields are
// available, so warnings are listed without locations.
func PrintStored(w io.Writer, rep types.Report, path string, opts PrintOptions) {
	fmt.Fprintln(w, styled(titleStyle, "Contract: "+rep.Contract, opts.NoColor))
	risk := fmt.Sprintf("%d/100 (%s)", rep.RiskScore, Level(rep.RiskScore))
	fmt.Fprintf(w, "Risk score: %s\n", styled(scoreStyle(rep.RiskScore), risk, opts.NoColor))
	fmt.Fprintf(w, "ecrecover calls: %d   key exposures: %d\n", rep.EcrecoverCount, rep.PublicKeyExposureCount)
	if len(rep.Warnings) == 0 {
		fmt.Fprintln(w, "No quantum-risk patterns found ✅")
	}
	for _, msg := range rep.Warnings {
		fmt.Fprintf(w, "  %s\n", msg)
	}
	if path != "" {
		fmt.Fprintf(w, "Report: %s\n", styled(dimStyle, path, opts.NoColor))
	}
}

// Snippet returns the numbered source line, highlighted for a terminal
// unless noColor is set. Out-of-range lines yield "".
func Snippet(src string, line int, name string, noColor bool) string {
	lines := strings.Split(src, "\n")
	if line < 1 || line > len(lines) {
		return ""
	}
	code := strings.TrimRight(lines[line-1], "\r")
	if !noColor {
		code = highlightLine(code, name)
	}
	return fmt.Sprintf("    %s │ %s", styled(dimStyle, strconv.Itoa(line), noColor), code)
}

func highlightLine(code, filename string) string {
	if filename == "" {
		filename = "contract.sol"
	}
	lexer := lexers.Match(filename)
	if lexer == nil {
		lexer = lexers.Match("file" + filepath.Ext(filename))
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}
	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}

// PrintSummary renders a directory summary as a table.
func PrintSummary(w io.Writer, s Summary, opts PrintOptions) error {
	if s.TotalReports == 0 {
		fmt.Fprintln(w, "No analysis reports found")
		return nil
	}
	table := tablewriter.NewWriter(w)
	table.Header("Report", "Contract", "Risk", "ecrecover", "Key exposure")
	for _, r := range s.Reports {
		risk := strconv.Itoa(r.RiskScore)
		if !opts.NoColor {
			risk = scoreStyle(r.RiskScore).Render(risk)
		}
		if err := table.Append([]string{
			r.File, r.Contract, risk, strconv.Itoa(r.EcrecoverCount), strconv.Itoa(r.PublicKeyExposureCount),
		}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintf(w, "Reports: %d   average risk: %.1f   max risk: %d\n", s.TotalReports, s.AvgRisk, s.MaxRisk)
	for _, name := range s.Skipped {
		fmt.Fprintf(w, "skipped unreadable report: %s\n", name)
	}
	return nil
}
