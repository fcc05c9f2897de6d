package report

import (
	"fmt"
	"io"
	"strconv"

	xxhash "github.com/cespare/xxhash/v2"
	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/hqc-securechain/qrisk/internal/rules"
	"github.com/hqc-securechain/qrisk/internal/types"
)

const toolInformationURI = "https://github.com/hqc-securechain/qrisk"

func kindToLevel(k types.Kind) string {
	if k == types.KindEcrecover {
		return "error"
	}
	return "warning"
}

// Fingerprint identifies a finding independently of line numbers so that
// code motion does not make a known finding look new. occurrence is the
// 1-based index among findings sharing rule and entity.
func Fingerprint(contract string, f types.Finding, occurrence int) string {
	sum := xxhash.Sum64String(contract + "|" + f.RuleID + "|" + f.Entity + "|" + strconv.Itoa(occurrence))
	return fmt.Sprintf("%016x", sum)
}

// WriteSARIF writes the findings of one contract as SARIF 2.1.0.
func WriteSARIF(w io.Writer, uri string, rep types.Report, findings []types.Finding, rs []rules.Rule, version string) error {
	doc, err := sarif.New(sarif.Version210)
	if err != nil {
		return fmt.Errorf("create SARIF report: %w", err)
	}
	run := sarif.NewRunWithInformationURI("qrisk", toolInformationURI)
	if version != "" {
		v := version
		run.Tool.Driver.SemanticVersion = &v
	}
	for _, r := range rs {
		run.AddRule(r.ID).
			WithDescription(r.Description).
			WithDefaultConfiguration(&sarif.ReportingConfiguration{Level: kindToLevel(r.Kind)})
	}

	seen := map[string]int{}
	for _, f := range findings {
		key := f.RuleID + "|" + f.Entity
		seen[key]++
		region := sarif.NewRegion()
		if f.Location != nil {
			region.WithStartLine(f.Location.Line)
			if f.Location.Column > 0 {
				region.WithStartColumn(f.Location.Column)
			}
		}
		location := sarif.NewLocation().WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(uri)).
				WithRegion(region),
		)
		result := sarif.NewRuleResult(f.RuleID).
			WithMessage(sarif.NewTextMessage(f.Message)).
			WithLevel(kindToLevel(f.Kind)).
			WithLocations([]*sarif.Location{location})
		result.PropertyBag = *sarif.NewPropertyBag()
		result.Add("kind", string(f.Kind))
		result.Add("fingerprint", Fingerprint(rep.Contract, f, seen[key]))
		run.AddResult(result)
	}
	doc.AddRun(run)
	return doc.PrettyWrite(w)
}
