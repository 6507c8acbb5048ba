package normalize

import (
	"encoding/json"
	"fmt"

	"github.com/user/scanhub/pkg/engine"
)

type trivyReport struct {
	Results []trivyResult `json:"Results"`
}

type trivyResult struct {
	Target          string               `json:"Target"`
	Vulnerabilities []trivyVulnerability `json:"Vulnerabilities"`
}

type trivyVulnerability struct {
	VulnerabilityID string `json:"VulnerabilityID"`
	PkgName         string `json:"PkgName"`
	FixedVersion    string `json:"FixedVersion"`
	Title           string `json:"Title"`
	Description     string `json:"Description"`
	Severity        string `json:"Severity"`
}

const categoryDependency = "Dependency Vulnerability"

func parseTrivy(raw []byte) ([]engine.Finding, error) {
	var report trivyReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, parseError(ToolTrivy, err)
	}

	var findings []engine.Finding
	for _, result := range report.Results {
		target := or(result.Target, "Unknown")
		for _, v := range result.Vulnerabilities {
			sev := engine.ParseSeverity(v.Severity)
			if !sev.Known() {
				log.WithFields(map[string]interface{}{"severity": sev, "id": v.VulnerabilityID}).Debug("Keeping non-standard trivy severity")
			}
			findings = append(findings, engine.Finding{
				Tool:        ToolTrivy,
				Severity:    sev,
				Category:    categoryDependency,
				Description: or(v.Description, or(v.Title, "No description")),
				Location:    fmt.Sprintf("%s - %s", target, or(v.PkgName, "Unknown package")),
				Remediation: or(v.FixedVersion, "No fix available"),
				Reference:   v.VulnerabilityID,
			})
		}
	}
	return findings, nil
}
