package profile

import (
	"encoding/json"
	"strings"

	"github.com/rkgupta29/assignment-story-creation-app/internal/types"
)

// Step identifies one of the nine fixed wizard steps, in order.
type Step int

const (
	StepBasicInfo Step = iota
	StepContactInfo
	StepLocationInfo
	StepProfessionalInfo
	StepExperience
	StepEducation
	StepResume
	StepSalaryInfo
	StepSkills

	stepCount
)

// StepCount is the number of wizard steps.
const StepCount = int(stepCount)

func (s Step) String() string {
	switch s {
	case StepBasicInfo:
		return "basic_info"
	case StepContactInfo:
		return "contact_info"
	case StepLocationInfo:
		return "location_info"
	case StepProfessionalInfo:
		return "professional_info"
	case StepExperience:
		return "experience"
	case StepEducation:
		return "education"
	case StepResume:
		return "resume"
	case StepSalaryInfo:
		return "salary_info"
	case StepSkills:
		return "skills"
	default:
		return "unknown"
	}
}

// ParseStep resolves a step name from the HTTP surface.
func ParseStep(name string) (Step, bool) {
	for s := StepBasicInfo; s < stepCount; s++ {
		if s.String() == name {
			return s, true
		}
	}
	return 0, false
}

// StepData is one wizard step's contribution to the profile draft. An empty
// value is a valid skip: it merges nothing and leaves the section incomplete.
type StepData interface {
	apply(p *types.CandidateProfile)
}

// DecodeStepData unmarshals a step payload into that step's data type.
func DecodeStepData(step Step, raw []byte) (StepData, error) {
	decode := func(v StepData) (StepData, error) {
		if len(raw) == 0 {
			return v, nil
		}
		err := json.Unmarshal(raw, v)
		return v, err
	}
	switch step {
	case StepBasicInfo:
		return decode(&BasicInfoData{})
	case StepContactInfo:
		return decode(&ContactInfoData{})
	case StepLocationInfo:
		return decode(&LocationInfoData{})
	case StepProfessionalInfo:
		return decode(&ProfessionalInfoData{})
	case StepExperience:
		return decode(&ExperienceData{})
	case StepEducation:
		return decode(&EducationData{})
	case StepResume:
		return decode(&ResumeData{})
	case StepSalaryInfo:
		return decode(&SalaryInfoData{})
	default:
		return decode(&SkillsData{})
	}
}

// BasicInfoData carries the basic-info step form fields.
type BasicInfoData struct {
	FullName     string       `json:"full_name"`
	Gender       types.Gender `json:"gender,omitempty"`
	ProfileImage string       `json:"profile_image,omitempty"`
}

func (d BasicInfoData) apply(p *types.CandidateProfile) {
	if name := strings.TrimSpace(d.FullName); name != "" {
		p.FullName = name
	}
	if d.Gender != "" {
		p.Gender = d.Gender
	}
	if d.ProfileImage != "" {
		p.ProfileImage = d.ProfileImage
	}
}

// ContactInfoData carries the contact step form fields. The combined phone
// number is derived, never entered directly.
type ContactInfoData struct {
	MobileNumber string `json:"mobile_number"`
	CountryCode  string `json:"country_code"`
	ContactEmail string `json:"contact_email,omitempty"`
	LinkedinURL  string `json:"linkedin_url,omitempty"`
	GithubURL    string `json:"github_url,omitempty"`
	PortfolioURL string `json:"portfolio_url,omitempty"`
}

func (d ContactInfoData) apply(p *types.CandidateProfile) {
	mobile := strings.TrimSpace(d.MobileNumber)
	code := strings.TrimSpace(d.CountryCode)
	if mobile == "" && code == "" {
		return
	}
	info := types.ContactInfo{
		MobileNumber: mobile,
		CountryCode:  code,
		ContactEmail: d.ContactEmail,
		LinkedinURL:  d.LinkedinURL,
		GithubURL:    d.GithubURL,
		PortfolioURL: d.PortfolioURL,
	}
	if mobile != "" && code != "" {
		info.FullPhoneNumber = code + " " + mobile
	}
	p.ContactInfo = &info
}

// LocationInfoData carries the location step form fields.
type LocationInfoData struct {
	Current   types.Location   `json:"current_location"`
	Preferred []types.Location `json:"preferred_locations,omitempty"`
}

func (d LocationInfoData) apply(p *types.CandidateProfile) {
	if d.Current.City != "" || d.Current.Country != "" {
		current := d.Current
		p.CurrentLocation = &current
	}
	if len(d.Preferred) > 0 {
		p.PreferredLocations = d.Preferred
	}
}

// ProfessionalInfoData carries the professional step form fields. Pointers
// distinguish "zero years" and "immediate notice" from "not answered".
type ProfessionalInfoData struct {
	TotalWorkExperience *int   `json:"total_work_experience,omitempty"`
	Industry            string `json:"industry,omitempty"`
	NoticePeriod        *int   `json:"notice_period,omitempty"`
}

func (d ProfessionalInfoData) apply(p *types.CandidateProfile) {
	if d.TotalWorkExperience != nil {
		p.TotalWorkExperience = d.TotalWorkExperience
	}
	if d.Industry != "" {
		p.Industry = strings.TrimSpace(d.Industry)
	}
	if d.NoticePeriod != nil {
		p.NoticePeriod = d.NoticePeriod
	}
}

// ExperienceData replaces the work-history entries.
type ExperienceData struct {
	Experiences []types.Experience `json:"experiences"`
}

func (d ExperienceData) apply(p *types.CandidateProfile) {
	if len(d.Experiences) > 0 {
		p.Experiences = d.Experiences
	}
}

// EducationData replaces the education-history entries.
type EducationData struct {
	Education []types.Education `json:"education"`
}

func (d EducationData) apply(p *types.CandidateProfile) {
	if len(d.Education) > 0 {
		p.Education = d.Education
	}
}

// ResumeData replaces the uploaded resume references.
type ResumeData struct {
	Resumes []types.Resume `json:"resumes"`
}

func (d ResumeData) apply(p *types.CandidateProfile) {
	if len(d.Resumes) > 0 {
		p.Resumes = d.Resumes
	}
}

// SalaryInfoData carries the salary step form fields.
type SalaryInfoData struct {
	SalaryInfo types.SalaryInfo `json:"salary_info"`
}

func (d SalaryInfoData) apply(p *types.CandidateProfile) {
	if d.SalaryInfo.Currency == "" && d.SalaryInfo.SalaryPeriod == "" {
		return
	}
	info := d.SalaryInfo
	p.SalaryInfo = &info
}

// SkillsData carries the skills step form fields. The step is skippable: an
// empty value merges nothing.
type SkillsData struct {
	Skills    []string         `json:"skills,omitempty"`
	Languages []types.Language `json:"languages,omitempty"`
}

func (d SkillsData) apply(p *types.CandidateProfile) {
	skills := make([]string, 0, len(d.Skills))
	for _, s := range d.Skills {
		if s = strings.TrimSpace(s); s != "" {
			skills = append(skills, s)
		}
	}
	if len(skills) > 0 {
		p.Skills = skills
	}
	langs := make([]types.Language, 0, len(d.Languages))
	for _, l := range d.Languages {
		if l.Language != "" && l.Proficiency != "" {
			langs = append(langs, l)
		}
	}
	if len(langs) > 0 {
		p.Languages = langs
	}
}
