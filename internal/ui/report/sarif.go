package report

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"pyanalyzer/internal/core/ports"
	"pyanalyzer/internal/shared/version"
)

// SARIF v2.1.0 schema – see https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json

const (
	sarifSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
	sarifVersion = "2.1.0"

	ruleIDSyntax        = "PYA001"
	ruleIDAnalysisError = "PYA002"
)

type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	ShortDescription sarifMessage           `json:"shortDescription"`
	DefaultConfig    sarifRuleDefaultConfig `json:"defaultConfiguration"`
}

type sarifRuleDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI       string `json:"uri"`
	URIBaseID string `json:"uriBaseId"`
}

// Diagnostics carry byte spans, so regions use byte offsets rather than
// line and column.
type sarifRegion struct {
	ByteOffset uint32 `json:"byteOffset"`
	ByteLength uint32 `json:"byteLength"`
}

// GenerateSARIF builds a SARIF v2.1.0 document with one result per syntax
// diagnostic and one per file that could not be analyzed. File URIs are made
// relative to projectRoot.
func GenerateSARIF(projectRoot string, files []ports.FileAnalysis) ([]byte, error) {
	results := make([]sarifResult, 0)
	var sawSyntax, sawFailure bool

	for _, f := range files {
		uri := relativeURI(projectRoot, f.Path)
		if f.Error != "" {
			sawFailure = true
			results = append(results, sarifResult{
				RuleID:    ruleIDAnalysisError,
				Level:     "warning",
				Message:   sarifMessage{Text: fmt.Sprintf("File could not be analyzed: %s", f.Error)},
				Locations: []sarifLocation{fileLocation(uri, nil)},
			})
			continue
		}
		if f.Result == nil {
			continue
		}
		for _, d := range f.Result.Diagnostics {
			sawSyntax = true
			region := &sarifRegion{ByteOffset: d.Span.Start, ByteLength: d.Span.End - d.Span.Start}
			results = append(results, sarifResult{
				RuleID:    ruleIDSyntax,
				Level:     "error",
				Message:   sarifMessage{Text: d.Message},
				Locations: []sarifLocation{fileLocation(uri, region)},
			})
		}
	}

	report := sarifReport{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:    "pyanalyzer",
						Version: version.Version,
						Rules:   buildSARIFRules(sawSyntax, sawFailure),
					},
				},
				Results: results,
			},
		},
	}
	return json.MarshalIndent(report, "", "  ")
}

// buildSARIFRules returns only the rules that are relevant for the given findings.
func buildSARIFRules(syntax, failures bool) []sarifRule {
	rules := make([]sarifRule, 0, 2)
	if syntax {
		rules = append(rules, sarifRule{
			ID:               ruleIDSyntax,
			Name:             "SyntaxError",
			ShortDescription: sarifMessage{Text: "The Python source has a syntax error."},
			DefaultConfig:    sarifRuleDefaultConfig{Level: "error"},
		})
	}
	if failures {
		rules = append(rules, sarifRule{
			ID:               ruleIDAnalysisError,
			Name:             "AnalysisFailed",
			ShortDescription: sarifMessage{Text: "The file could not be read or analyzed."},
			DefaultConfig:    sarifRuleDefaultConfig{Level: "warning"},
		})
	}
	return rules
}

func fileLocation(uri string, region *sarifRegion) sarifLocation {
	return sarifLocation{
		PhysicalLocation: sarifPhysicalLocation{
			ArtifactLocation: sarifArtifactLocation{
				URI:       uri,
				URIBaseID: "%SRCROOT%",
			},
			Region: region,
		},
	}
}

// relativeURI converts an absolute file path to a forward-slash relative URI
// anchored at projectRoot. If the path is already relative or projectRoot is
// empty, the input path (with forward slashes) is returned.
func relativeURI(projectRoot, filePath string) string {
	if projectRoot != "" && filepath.IsAbs(filePath) {
		rel, err := filepath.Rel(projectRoot, filePath)
		if err == nil {
			filePath = rel
		}
	}
	return filepath.ToSlash(filePath)
}
