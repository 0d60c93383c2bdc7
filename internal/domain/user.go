package domain

import "time"

// Demographics is the fixed respondent profile captured at registration.
type Demographics struct {
	AgeGroup       string  `json:"ageGroup"`
	Profession     string  `json:"profession"`
	Gender         string  `json:"gender"`
	Background     string  `json:"background"`
	EducationLevel string  `json:"educationLevel"`
	Country        *string `json:"country"`
	Experience     *string `json:"experience"`
}

// Missing lists the names of the required demographic fields that are empty.
func (d Demographics) Missing() []string {
	var missing []string
	required := []struct {
		name  string
		value string
	}{
		{"ageGroup", d.AgeGroup},
		{"profession", d.Profession},
		{"gender", d.Gender},
		{"background", d.Background},
		{"educationLevel", d.EducationLevel},
	}
	for _, f := range required {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// User represents a registered respondent.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Demographics Demographics
	CreatedAt    time.Time
	LastLogin    *time.Time
}

// DemographicGroup is one bucket of the admin demographics breakdown.
type DemographicGroup struct {
	AgeGroup       string
	Profession     string
	Gender         string
	Background     string
	EducationLevel string
	Count          int64
}
