package store

import (
	"encoding/json"
	"time"

	"github.com/user/scanhub/pkg/engine"
)

// ScanRecord is the persisted form of a scan job.
type ScanRecord struct {
	Seq           uint      `gorm:"primaryKey"`
	ID            string    `gorm:"uniqueIndex;size:64;not null"`
	ScanType      string    `gorm:"size:16;index"`
	Target        string    `gorm:"size:1024"`
	Status        string    `gorm:"size:16;index"`
	Message       string    `gorm:"type:text"`
	Summary       string    `gorm:"type:text"`
	FindingsCount int       `gorm:"default:0"`
	CreatedAt     time.Time `gorm:"index"`
	UpdatedAt     time.Time

	Findings []FindingRecord `gorm:"foreignKey:ScanID;references:ID;constraint:OnDelete:CASCADE"`
}

// FindingRecord is one persisted finding. Position keeps the tool's order.
type FindingRecord struct {
	ID          uint   `gorm:"primaryKey"`
	ScanID      string `gorm:"size:64;index;not null"`
	Position    int
	Tool        string `gorm:"size:32"`
	Severity    string `gorm:"size:16;index"`
	Category    string `gorm:"size:512"`
	Description string `gorm:"type:text"`
	Location    string `gorm:"size:1024"`
	Solution    string `gorm:"type:text"`
	CVEID       string `gorm:"size:64"`
}

func (r *ScanRecord) toJob() *engine.ScanJob {
	job := &engine.ScanJob{
		ID:        r.ID,
		Category:  engine.Category(r.ScanType),
		Target:    r.Target,
		Status:    engine.Status(r.Status),
		Message:   r.Message,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Summary:   decodeSummary(r.Summary),
	}
	if len(r.Findings) > 0 {
		job.Findings = make([]engine.Finding, len(r.Findings))
		for i, f := range r.Findings {
			job.Findings[i] = f.toFinding()
		}
	}
	return job
}

func (f FindingRecord) toFinding() engine.Finding {
	return engine.Finding{
		Tool:        f.Tool,
		Severity:    engine.Severity(f.Severity),
		Category:    f.Category,
		Description: f.Description,
		Location:    f.Location,
		Remediation: f.Solution,
		Reference:   f.CVEID,
	}
}

func findingRecords(scanID string, findings []engine.Finding) []FindingRecord {
	out := make([]FindingRecord, len(findings))
	for i, f := range findings {
		out[i] = FindingRecord{
			ScanID:      scanID,
			Position:    i,
			Tool:        f.Tool,
			Severity:    string(f.Severity),
			Category:    f.Category,
			Description: f.Description,
			Location:    f.Location,
			Solution:    f.Remediation,
			CVEID:       f.Reference,
		}
	}
	return out
}

func encodeSummary(s engine.Summary) (string, error) {
	data, err := json.Marshal(s.Normalized())
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeSummary(raw string) engine.Summary {
	s := engine.NewSummary()
	if raw == "" {
		return s
	}
	var stored map[engine.Severity]int
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return s
	}
	for k, v := range stored {
		s[k] = v
	}
	return s
}
