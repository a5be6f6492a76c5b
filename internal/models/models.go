package models

import "strings"

// ListSeparator joins sequence fields when a record is flattened for
// index-filterable storage.
const ListSeparator = "\n"

// JobDescription is the structured record extracted from a job-description
// document. The JSON field names are the contract with the structured
// extraction model and with API consumers.
type JobDescription struct {
	JobID            string   `json:"job_id"`
	CompanyID        string   `json:"company_id"`
	Title            string   `json:"title"`
	Location         string   `json:"location,omitempty"`
	Summary          string   `json:"summary,omitempty"`
	ExperienceLevel  string   `json:"experience_level,omitempty"`
	Responsibilities []string `json:"responsibilities"`
	RequiredSkills   []string `json:"required_skills"`
	PreferredSkills  []string `json:"preferred_skills"`
	Qualifications   []string `json:"qualifications"`
	Technologies     []string `json:"technologies"`
	Benefits         []string `json:"benefits"`
}

// EnsureDefaults replaces nil sequence fields with empty slices so that
// omitted categories serialize as [] rather than null.
func (j *JobDescription) EnsureDefaults() {
	if j.Responsibilities == nil {
		j.Responsibilities = []string{}
	}
	if j.RequiredSkills == nil {
		j.RequiredSkills = []string{}
	}
	if j.PreferredSkills == nil {
		j.PreferredSkills = []string{}
	}
	if j.Qualifications == nil {
		j.Qualifications = []string{}
	}
	if j.Technologies == nil {
		j.Technologies = []string{}
	}
	if j.Benefits == nil {
		j.Benefits = []string{}
	}
}

// FlatMetadata converts the record into a flat field->scalar mapping for
// filterable storage. Sequence fields are joined with ListSeparator; absent
// optional fields become empty strings. The transform is lossy and one-way:
// the record itself, not the flattened map, is the source of truth for
// structured consumers.
func (j *JobDescription) FlatMetadata() map[string]string {
	return map[string]string{
		"job_id":           j.JobID,
		"company_id":       j.CompanyID,
		"title":            j.Title,
		"location":         j.Location,
		"summary":          j.Summary,
		"experience_level": j.ExperienceLevel,
		"responsibilities": strings.Join(j.Responsibilities, ListSeparator),
		"required_skills":  strings.Join(j.RequiredSkills, ListSeparator),
		"preferred_skills": strings.Join(j.PreferredSkills, ListSeparator),
		"qualifications":   strings.Join(j.Qualifications, ListSeparator),
		"technologies":     strings.Join(j.Technologies, ListSeparator),
		"benefits":         strings.Join(j.Benefits, ListSeparator),
	}
}
