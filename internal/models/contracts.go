package models

// Data contracts shared with the adjacent resume and interview services.
// They are carried here so API consumers have one schema source; no pipeline
// stages exist for them in this service.

// Skill is a single skill entry from a candidate's resume.
type Skill struct {
	Name              string  `json:"name"`
	Level             string  `json:"level,omitempty"`
	YearsOfExperience float64 `json:"years_of_experience,omitempty"`
}

// ResumeData is the structured record an extraction service produces from a
// candidate's resume.
type ResumeData struct {
	ResumeID       string   `json:"resume_id"`
	Name           string   `json:"name"`
	Email          string   `json:"email,omitempty"`
	Phone          string   `json:"phone,omitempty"`
	Summary        string   `json:"summary,omitempty"`
	Skills         []Skill  `json:"skills"`
	Certifications []string `json:"certifications"`
}

// InterviewSessionInput initiates an interview session against a stored job
// description.
type InterviewSessionInput struct {
	CandidateID     string `json:"candidate_id"`
	JobID           string `json:"job_id"`
	SessionType     string `json:"session_type"` // "live" or "practice"
	InitialQuestion string `json:"initial_question,omitempty"`
}
