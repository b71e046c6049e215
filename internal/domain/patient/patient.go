package patient

import (
	"math"
	"strings"
	"time"
)

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

func (g Gender) IsValid() bool {
	switch g {
	case GenderMale, GenderFemale:
		return true
	}
	return false
}

// Type is the patient's role in a transplant pair.
type Type string

const (
	TypeDonor     Type = "DONOR"
	TypeRecipient Type = "RECIPIENT"
)

func (t Type) IsValid() bool {
	switch t {
	case TypeDonor, TypeRecipient:
		return true
	}
	return false
}

type BloodGroup string

const (
	BloodGroupAPos  BloodGroup = "A+"
	BloodGroupANeg  BloodGroup = "A-"
	BloodGroupBPos  BloodGroup = "B+"
	BloodGroupBNeg  BloodGroup = "B-"
	BloodGroupABPos BloodGroup = "AB+"
	BloodGroupABNeg BloodGroup = "AB-"
	BloodGroupOPos  BloodGroup = "O+"
	BloodGroupONeg  BloodGroup = "O-"
)

func (b BloodGroup) IsValid() bool {
	switch b {
	case BloodGroupAPos, BloodGroupANeg, BloodGroupBPos, BloodGroupBNeg,
		BloodGroupABPos, BloodGroupABNeg, BloodGroupOPos, BloodGroupONeg:
		return true
	}
	return false
}

// DefaultAge is used for range lookups when the date of birth is unknown.
const DefaultAge = 30

type Patient struct {
	ID             string     `json:"id"`
	MRN            string     `json:"mrn"`
	Name           string     `json:"name"`
	DateOfBirth    time.Time  `json:"date_of_birth"`
	Gender         Gender     `json:"gender"`
	Type           Type       `json:"type"`
	BloodGroup     BloodGroup `json:"blood_group"`
	HeightCm       float64    `json:"height_cm"`
	WeightKg       float64    `json:"weight_kg"`
	BMI            float64    `json:"bmi"`
	Phone          string     `json:"phone,omitempty"`
	Email          string     `json:"email,omitempty"`
	MedicalHistory []string   `json:"medical_history"`
	RegisteredAt   time.Time  `json:"registered_at"`
}

// Age returns completed years at now.
func (p *Patient) Age(now time.Time) int {
	if p.DateOfBirth.IsZero() {
		return DefaultAge
	}
	years := now.Year() - p.DateOfBirth.Year()
	if now.Month() < p.DateOfBirth.Month() ||
		(now.Month() == p.DateOfBirth.Month() && now.Day() < p.DateOfBirth.Day()) {
		years--
	}
	return years
}

// RefreshBMI recomputes BMI from height and weight, rounded to one decimal.
func (p *Patient) RefreshBMI() {
	p.BMI = ComputeBMI(p.HeightCm, p.WeightKg)
}

func ComputeBMI(heightCm, weightKg float64) float64 {
	if heightCm <= 0 || weightKg <= 0 {
		return 0
	}
	m := heightCm / 100
	return math.Round(weightKg/(m*m)*10) / 10
}

func (p *Patient) IsDonor() bool {
	return p.Type == TypeDonor
}

type RegisterCommand struct {
	MRN            string
	Name           string
	DateOfBirth    time.Time
	Gender         Gender
	Type           Type
	BloodGroup     BloodGroup
	HeightCm       float64
	WeightKg       float64
	Phone          string
	Email          string
	MedicalHistory []string
}

// UpdateDemographicsCommand carries partial edits. Nil fields are left untouched.
type UpdateDemographicsCommand struct {
	Name           *string
	DateOfBirth    *time.Time
	Gender         *Gender
	BloodGroup     *BloodGroup
	HeightCm       *float64
	WeightKg       *float64
	Phone          *string
	Email          *string
	MedicalHistory *[]string
}

func (c *UpdateDemographicsCommand) Apply(p *Patient) {
	if c.Name != nil {
		p.Name = strings.TrimSpace(*c.Name)
	}
	if c.DateOfBirth != nil {
		p.DateOfBirth = *c.DateOfBirth
	}
	if c.Gender != nil {
		p.Gender = *c.Gender
	}
	if c.BloodGroup != nil {
		p.BloodGroup = *c.BloodGroup
	}
	if c.HeightCm != nil {
		p.HeightCm = *c.HeightCm
	}
	if c.WeightKg != nil {
		p.WeightKg = *c.WeightKg
	}
	if c.Phone != nil {
		p.Phone = strings.TrimSpace(*c.Phone)
	}
	if c.Email != nil {
		p.Email = strings.ToLower(strings.TrimSpace(*c.Email))
	}
	if c.MedicalHistory != nil {
		p.MedicalHistory = *c.MedicalHistory
	}
	p.RefreshBMI()
}
