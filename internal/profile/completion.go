// Package profile computes candidate profile completion and drives the
// nine-step completion wizard.
package profile

import (
	"math"

	"github.com/rkgupta29/assignment-story-creation-app/internal/types"
)

// Section weights. They sum to 100; work experience counts for the most.
const (
	weightBasicInfo        = 10
	weightContactInfo      = 10
	weightLocationInfo     = 10
	weightProfessionalInfo = 15
	weightExperience       = 20
	weightEducation        = 15
	weightResume           = 10
	weightSalaryInfo       = 5
	weightSkills           = 5
)

// sectionFlags evaluates the per-section completion predicates. A section is
// complete only when its required fields are all set; optional fields never
// count.
func sectionFlags(p *types.CandidateProfile) types.ProfileCompletionStatus {
	return types.ProfileCompletionStatus{
		BasicInfo:   p.FullName != "",
		ContactInfo: p.ContactInfo != nil && p.ContactInfo.MobileNumber != "" && p.ContactInfo.CountryCode != "",
		LocationInfo: p.CurrentLocation != nil &&
			p.CurrentLocation.City != "" && p.CurrentLocation.Country != "",
		ProfessionalInfo: p.TotalWorkExperience != nil && p.Industry != "" && p.NoticePeriod != nil,
		Experience:       len(p.Experiences) > 0,
		Education:        len(p.Education) > 0,
		Resume:           len(p.Resumes) > 0,
		SalaryInfo:       p.SalaryInfo != nil && p.SalaryInfo.Currency != "" && p.SalaryInfo.SalaryPeriod != "",
		Skills:           len(p.Skills) > 0,
	}
}

// WeightedCompletion scores a profile using the section weights. Overall is
// true only at exactly 100 percent.
func WeightedCompletion(p *types.CandidateProfile) types.ProfileCompletionStatus {
	status := sectionFlags(p)

	total := 0
	completed := 0
	for _, s := range []struct {
		done   bool
		weight int
	}{
		{status.BasicInfo, weightBasicInfo},
		{status.ContactInfo, weightContactInfo},
		{status.LocationInfo, weightLocationInfo},
		{status.ProfessionalInfo, weightProfessionalInfo},
		{status.Experience, weightExperience},
		{status.Education, weightEducation},
		{status.Resume, weightResume},
		{status.SalaryInfo, weightSalaryInfo},
		{status.Skills, weightSkills},
	} {
		total += s.weight
		if s.done {
			completed += s.weight
		}
	}

	status.Percentage = int(math.Round(float64(completed) / float64(total) * 100))
	status.Overall = status.Percentage == 100
	return status
}

// UnweightedCompletion scores a profile as the rounded mean of the nine
// section booleans.
func UnweightedCompletion(p *types.CandidateProfile) types.ProfileCompletionStatus {
	status := sectionFlags(p)

	flags := []bool{
		status.BasicInfo, status.ContactInfo, status.LocationInfo,
		status.ProfessionalInfo, status.Experience, status.Education,
		status.Resume, status.SalaryInfo, status.Skills,
	}
	completed := 0
	for _, done := range flags {
		if done {
			completed++
		}
	}

	status.Percentage = int(math.Round(float64(completed) / float64(len(flags)) * 100))
	status.Overall = status.Percentage == 100
	return status
}
