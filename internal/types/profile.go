package types

import (
	"fmt"
	"time"
)

// AccountType discriminates the profile union. Unknown tags are rejected at
// the boundary rather than falling back to a default.
type AccountType string

const (
	AccountCandidate    AccountType = "candidate"
	AccountOrganization AccountType = "organization"
)

// ParseAccountType validates a raw account-type tag.
func ParseAccountType(raw string) (AccountType, error) {
	switch AccountType(raw) {
	case AccountCandidate:
		return AccountCandidate, nil
	case AccountOrganization:
		return AccountOrganization, nil
	default:
		return "", fmt.Errorf("unknown account type: %q", raw)
	}
}

// Profile is the application-owned record describing a user beyond bare
// identity. Exactly one variant is populated, selected by Type. A profile
// always shares its ID with the owning credential.
type Profile struct {
	ID            string        `json:"id"`
	Type          AccountType   `json:"type"`
	Email         string        `json:"email"`
	EmailVerified bool          `json:"email_verified"`
	Candidate     *Candidate    `json:"candidate,omitempty"`
	Organization  *Organization `json:"organization,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Candidate is the job-seeker variant of Profile.
type Candidate struct {
	FullName string `json:"full_name"`
}

// Organization is the employer variant of Profile.
type Organization struct {
	CompanyName string `json:"company_name"`
	WebsiteURL  string `json:"website_url,omitempty"`
}

// DisplayName returns the human-readable name for either variant.
func (p *Profile) DisplayName() string {
	switch p.Type {
	case AccountCandidate:
		if p.Candidate != nil {
			return p.Candidate.FullName
		}
	case AccountOrganization:
		if p.Organization != nil {
			return p.Organization.CompanyName
		}
	}
	return ""
}

// Gender mirrors the candidate form's gender options.
type Gender string

const (
	GenderMale           Gender = "male"
	GenderFemale         Gender = "female"
	GenderOther          Gender = "other"
	GenderPreferNotToSay Gender = "prefer_not_to_say"
)

// ContactInfo holds a candidate's reachable contact details. The section
// counts as complete only when both mobile number and country code are set.
type ContactInfo struct {
	MobileNumber    string `json:"mobile_number"`
	CountryCode     string `json:"country_code"`
	FullPhoneNumber string `json:"full_phone_number,omitempty"`
	ContactEmail    string `json:"contact_email,omitempty"`
	LinkedinURL     string `json:"linkedin_url,omitempty"`
	GithubURL       string `json:"github_url,omitempty"`
	PortfolioURL    string `json:"portfolio_url,omitempty"`
}

// Location describes a current or preferred work location.
type Location struct {
	City     string `json:"city"`
	State    string `json:"state,omitempty"`
	Country  string `json:"country"`
	IsRemote bool   `json:"is_remote,omitempty"`
}

// Experience is a single work-history entry.
type Experience struct {
	ID                string     `json:"id"`
	CompanyName       string     `json:"company_name"`
	Position          string     `json:"position"`
	StartDate         time.Time  `json:"start_date"`
	EndDate           *time.Time `json:"end_date,omitempty"`
	IsCurrentPosition bool       `json:"is_current_position"`
	Description       string     `json:"description"`
	Location          string     `json:"location,omitempty"`
	Industry          string     `json:"industry,omitempty"`
	Achievements      []string   `json:"achievements,omitempty"`
	Technologies      []string   `json:"technologies,omitempty"`
}

// Education is a single education-history entry.
type Education struct {
	ID                  string     `json:"id"`
	Institution         string     `json:"institution"`
	Degree              string     `json:"degree"`
	FieldOfStudy        string     `json:"field_of_study"`
	StartDate           time.Time  `json:"start_date"`
	EndDate             *time.Time `json:"end_date,omitempty"`
	IsCurrentlyStudying bool       `json:"is_currently_studying"`
	Grade               string     `json:"grade,omitempty"`
	Description         string     `json:"description,omitempty"`
	Location            string     `json:"location,omitempty"`
}

// Resume is an uploaded resume document reference.
type Resume struct {
	ID         string    `json:"id"`
	FileName   string    `json:"file_name"`
	FileURL    string    `json:"file_url"`
	UploadedAt time.Time `json:"uploaded_at"`
	IsActive   bool      `json:"is_active"`
	FileSize   int64     `json:"file_size"`
	FileType   string    `json:"file_type"`
}

// SalaryPeriod is the cadence a salary figure refers to.
type SalaryPeriod string

const (
	SalaryMonthly SalaryPeriod = "monthly"
	SalaryYearly  SalaryPeriod = "yearly"
)

// SalaryInfo holds current and expected compensation. The section counts as
// complete when both currency and period are set.
type SalaryInfo struct {
	CurrentSalary        int64        `json:"current_salary,omitempty"`
	ExpectedSalary       int64        `json:"expected_salary,omitempty"`
	Currency             string       `json:"currency"`
	IsSalaryNegotiable   bool         `json:"is_salary_negotiable"`
	IsSalaryConfidential bool         `json:"is_salary_confidential"`
	SalaryPeriod         SalaryPeriod `json:"salary_period"`
}

// LanguageProficiency levels for spoken languages.
type LanguageProficiency string

const (
	ProficiencyBasic        LanguageProficiency = "basic"
	ProficiencyIntermediate LanguageProficiency = "intermediate"
	ProficiencyFluent       LanguageProficiency = "fluent"
	ProficiencyNative       LanguageProficiency = "native"
)

// Language pairs a spoken language with a proficiency level.
type Language struct {
	Language    string              `json:"language"`
	Proficiency LanguageProficiency `json:"proficiency"`
}

// CandidateProfile is the nine-section aggregate the completion wizard edits.
// Pointer and slice fields distinguish "never filled in" from zero values so
// completion scoring can tell the difference.
type CandidateProfile struct {
	FullName     string `json:"full_name,omitempty"`
	Gender       Gender `json:"gender,omitempty"`
	ProfileImage string `json:"profile_image,omitempty"`

	ContactInfo *ContactInfo `json:"contact_info,omitempty"`

	CurrentLocation    *Location  `json:"current_location,omitempty"`
	PreferredLocations []Location `json:"preferred_locations,omitempty"`

	TotalWorkExperience *int   `json:"total_work_experience,omitempty"`
	Industry            string `json:"industry,omitempty"`
	NoticePeriod        *int   `json:"notice_period,omitempty"`

	Experiences []Experience `json:"experiences,omitempty"`
	Education   []Education  `json:"education,omitempty"`
	Resumes     []Resume     `json:"resumes,omitempty"`

	SalaryInfo *SalaryInfo `json:"salary_info,omitempty"`

	Skills    []string   `json:"skills,omitempty"`
	Languages []Language `json:"languages,omitempty"`

	ProfileCompletionPercentage int  `json:"profile_completion_percentage"`
	IsProfileComplete           bool `json:"is_profile_complete"`

	CreatedAt    time.Time `json:"created_at,omitzero"`
	UpdatedAt    time.Time `json:"updated_at,omitzero"`
	LastActiveAt time.Time `json:"last_active_at,omitzero"`
}

// ProfileCompletionStatus is a pure projection of CandidateProfile,
// recomputed after every mutation and never persisted on its own.
type ProfileCompletionStatus struct {
	BasicInfo        bool `json:"basic_info"`
	ContactInfo      bool `json:"contact_info"`
	LocationInfo     bool `json:"location_info"`
	ProfessionalInfo bool `json:"professional_info"`
	Experience       bool `json:"experience"`
	Education        bool `json:"education"`
	Resume           bool `json:"resume"`
	SalaryInfo       bool `json:"salary_info"`
	Skills           bool `json:"skills"`
	Overall          bool `json:"overall"`
	Percentage       int  `json:"percentage"`
}
