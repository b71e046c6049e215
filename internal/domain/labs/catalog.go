package labs

import (
	"github.com/shopspring/decimal"

	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/patient"
)

type ValidationType string

const (
	ValidationNumeric     ValidationType = "numeric"
	ValidationQualitative ValidationType = "qualitative"
	ValidationText        ValidationType = "text"
)

// Subject is the demographic context reference bounds are evaluated against.
type Subject struct {
	Gender patient.Gender
	Age    int
}

// Bound yields a reference limit for a subject.
type Bound func(s Subject) float64

func fixed(v float64) Bound {
	return func(Subject) float64 { return v }
}

func byGender(male, female float64) Bound {
	return func(s Subject) float64 {
		if s.Gender == patient.GenderMale {
			return male
		}
		return female
	}
}

// Eligibility restricts which subjects a test is ordered for. Zero values mean
// no restriction.
type Eligibility struct {
	Gender patient.Gender
	MinAge int
	MaxAge int
}

func (e Eligibility) Allows(s Subject) bool {
	if e.Gender != "" && s.Gender != e.Gender {
		return false
	}
	if e.MinAge > 0 && s.Age < e.MinAge {
		return false
	}
	if e.MaxAge > 0 && s.Age > e.MaxAge {
		return false
	}
	return true
}

type Definition struct {
	Name             string         `json:"name"`
	Unit             string         `json:"unit,omitempty"`
	Category         string         `json:"category"`
	Type             ValidationType `json:"type"`
	RangeDisplay     string         `json:"range_display"`
	Min              Bound          `json:"-"`
	Max              Bound          `json:"-"`
	Expected         []string       `json:"expected,omitempty"`
	AbnormalKeywords []string       `json:"abnormal_keywords,omitempty"`
	Eligibility      Eligibility    `json:"-"`
}

type Category struct {
	Name  string       `json:"name"`
	Tests []Definition `json:"tests"`
}

const (
	CategoryHematology   = "Hematology (CBC)"
	CategoryRenal        = "Renal Profile (RFT)"
	CategoryLiver        = "Liver Function Tests (LFT)"
	CategoryMetabolic    = "Metabolic & Endocrine"
	CategoryLipids       = "Lipids & Coagulation"
	CategoryInfectious   = "Infectious Disease (Virology)"
	CategoryUrine        = "Urine Studies"
	CategoryCardiopulm   = "Cardiopulmonary & Imaging"
	CategoryCancerScreen = "Cancer & Screening"
)

const (
	TestBUN         = "Blood Urea Nitrogen (BUN)"
	TestCreatinine  = "Serum Creatinine (SCr)"
	TestBUNCrRatio  = "BUN/Creatinine Ratio"
	TestEGFR        = "eGFR (CKD-EPI)"
	TestPSA         = "PSA (Total)"
	TestPapSmear    = "Pap Smear"
	TestMammogram   = "Mammogram"
	TestColonoscopy = "Colonoscopy"
	TestPregnancy   = "Pregnancy Test (Beta-HCG)"
)

var (
	negative     = []string{"Non-Reactive", "Negative", "Neg"}
	immuneStatus = []string{"Positive", "Reactive", "Detected", "Pos"}
)

// eGFR declines naturally with age.
func egfrMin(s Subject) float64 {
	switch {
	case s.Age < 30:
		return 90
	case s.Age < 40:
		return 80
	case s.Age < 60:
		return 70
	}
	return 60
}

func psaMax(s Subject) float64 {
	switch {
	case s.Age < 50:
		return 2.5
	case s.Age < 60:
		return 3.5
	case s.Age < 70:
		return 4.5
	}
	return 6.5
}

func numeric(name, unit, display string, min, max Bound) Definition {
	return Definition{Name: name, Unit: unit, Type: ValidationNumeric, RangeDisplay: display, Min: min, Max: max}
}

func qualitative(name, display string, expected ...string) Definition {
	return Definition{Name: name, Type: ValidationQualitative, RangeDisplay: display, Expected: expected}
}

var catalog = []Category{
	{
		Name: CategoryHematology,
		Tests: []Definition{
			numeric("Hemoglobin (Hb)", "g/dL", "M: 13.5-17.5, F: 12.0-15.5", byGender(13.5, 12.0), byGender(17.5, 15.5)),
			numeric("White Blood Cell Count (WBC)", "x10^9/L", "4.5 - 11.0", fixed(4.5), fixed(11.0)),
			numeric("Platelet Count (Plt)", "x10^9/L", "150 - 450", fixed(150), fixed(450)),
			numeric("Hematocrit (Hct)", "%", "M: 41-50, F: 36-48", byGender(41, 36), byGender(50, 48)),
			numeric("Neutrophils (Neu)", "%", "40 - 70%", fixed(40), fixed(70)),
			numeric("Lymphocytes (Lym)", "%", "20 - 40%", fixed(20), fixed(40)),
			numeric("Eosinophils (Eos)", "%", "1 - 6%", fixed(1), fixed(6)),
			numeric("Basophils (Baso)", "%", "0 - 2%", fixed(0), fixed(2)),
			{Name: "Blood Group (ABO/Rh)", Type: ValidationText, RangeDisplay: "N/A"},
		},
	},
	{
		Name: CategoryRenal,
		Tests: []Definition{
			numeric("Sodium (Na+)", "mmol/L", "135 - 145", fixed(135), fixed(145)),
			numeric("Potassium (K+)", "mmol/L", "3.5 - 5.0", fixed(3.5), fixed(5.0)),
			numeric("Chloride (Cl-)", "mmol/L", "98 - 107", fixed(98), fixed(107)),
			numeric("Bicarbonate (HCO3)", "mmol/L", "22 - 29", fixed(22), fixed(29)),
			numeric(TestBUN, "mg/dL", "7 - 20", fixed(7), fixed(20)),
			numeric(TestCreatinine, "mg/dL", "M: 0.7-1.3, F: 0.6-1.1", byGender(0.7, 0.6), byGender(1.3, 1.1)),
			numeric(TestBUNCrRatio, "", "10 - 20", fixed(10), fixed(20)),
			numeric(TestEGFR, "mL/min/1.73m²", "Age Adapted (>60-90)", egfrMin, fixed(200)),
		},
	},
	{
		Name: CategoryLiver,
		Tests: []Definition{
			numeric("Total Bilirubin (T.Bil)", "mg/dL", "0.1 - 1.2", fixed(0.1), fixed(1.2)),
			numeric("Direct Bilirubin (D.Bil)", "mg/dL", "< 0.3", fixed(0), fixed(0.3)),
			numeric("ALT (SGPT)", "U/L", "< 45", fixed(0), fixed(45)),
			numeric("AST (SGOT)", "U/L", "< 40", fixed(0), fixed(40)),
			numeric("Alkaline Phosphatase (ALP)", "U/L", "44 - 147", fixed(44), fixed(147)),
			{Name: "Alk Phos Isoenzymes", Type: ValidationText, RangeDisplay: "Normal Pattern"},
			numeric("Gamma-GT (GGT)", "U/L", "9 - 48", fixed(9), fixed(48)),
			numeric("Total Protein (TP)", "g/dL", "6.0 - 8.3", fixed(6.0), fixed(8.3)),
			numeric("Albumin (Alb)", "g/dL", "3.5 - 5.5", fixed(3.5), fixed(5.5)),
			numeric("Globulin (Glob)", "g/dL", "2.0 - 3.5", fixed(2.0), fixed(3.5)),
		},
	},
	{
		Name: CategoryMetabolic,
		Tests: []Definition{
			numeric("Fasting Blood Sugar (FBS)", "mg/dL", "70 - 99", fixed(70), fixed(99)),
			numeric("HbA1c", "%", "< 5.7", fixed(0), fixed(5.7)),
			numeric("Calcium (Ca)", "mg/dL", "8.5 - 10.5", fixed(8.5), fixed(10.5)),
			numeric("Phosphate (PO4)", "mg/dL", "2.5 - 4.5", fixed(2.5), fixed(4.5)),
			numeric("Magnesium (Mg)", "mg/dL", "1.7 - 2.2", fixed(1.7), fixed(2.2)),
			numeric("Uric Acid (UA)", "mg/dL", "M: 3.4-7.0, F: 2.4-6.0", byGender(3.4, 2.4), byGender(7.0, 6.0)),
			numeric("Parathyroid Hormone (PTH)", "pg/mL", "15 - 65", fixed(15), fixed(65)),
			numeric("Thyroid Stimulating Hormone (TSH)", "mIU/L", "0.4 - 4.0", fixed(0.4), fixed(4.0)),
			numeric("Free Thyroxine (fT4)", "ng/dL", "0.8 - 1.8", fixed(0.8), fixed(1.8)),
			numeric("Vitamin D (25-OH)", "ng/mL", "20 - 80", fixed(20), fixed(80)),
		},
	},
	{
		Name: CategoryLipids,
		Tests: []Definition{
			numeric("Total Cholesterol (TC)", "mg/dL", "< 200", fixed(0), fixed(200)),
			numeric("Triglycerides (TG)", "mg/dL", "< 150", fixed(0), fixed(150)),
			// upper bound catches outliers
			numeric("HDL Cholesterol (HDL)", "mg/dL", "> 40", fixed(40), fixed(200)),
			numeric("LDL Cholesterol (LDL)", "mg/dL", "< 100", fixed(0), fixed(100)),
			numeric("Prothrombin Time (PT)", "sec", "11 - 13.5", fixed(11), fixed(13.5)),
			numeric("INR", "", "0.8 - 1.1", fixed(0.8), fixed(1.1)),
			numeric("APTT", "sec", "30 - 40", fixed(30), fixed(40)),
		},
	},
	{
		Name: CategoryInfectious,
		Tests: []Definition{
			qualitative("HIV 1/2 Screen (HIV)", "Non-Reactive", "Non-Reactive", "Negative", "Neg", "Not Detected"),
			qualitative("Hep B Surface Ag (HBsAg)", "Non-Reactive", negative...),
			{Name: "Hep B Surface Ab (Anti-HBs)", Unit: "mIU/mL", Type: ValidationQualitative, RangeDisplay: "Reactive (>10)", Expected: []string{"Reactive", "Positive", "Pos", ">10"}},
			qualitative("Hep B Core Ab (Anti-HBc)", "Non-Reactive", negative...),
			qualitative("Hep C Antibody (Anti-HCV)", "Non-Reactive", negative...),
			qualitative("Hep D Antibody (Anti-HDV)", "Non-Reactive", negative...),
			qualitative("Hep E Antibody (Anti-HEV)", "Non-Reactive", negative...),
			qualitative("Syphilis (VDRL/RPR)", "Non-Reactive", negative...),
			qualitative("CMV IgG", "Positive (Immune)", immuneStatus...),
			qualitative("EBV IgG", "Positive (Immune)", immuneStatus...),
			qualitative("Varicella Zoster IgG (VZV)", "Positive (Immune)", "Positive", "Pos", "Reactive"),
			qualitative("Measles IgG", "Positive (Immune)", immuneStatus...),
			qualitative("Quantiferon-TB (IGRA)", "Negative", "Negative", "Neg", "Not Detected"),
		},
	},
	{
		Name: CategoryUrine,
		Tests: []Definition{
			qualitative("Urine Protein (Dipstick)", "Negative", "Negative", "Neg", "Trace"),
			qualitative("Urine Blood (Dipstick)", "Negative", "Negative", "Neg"),
			qualitative("Urine Leukocytes (Dipstick)", "Negative", "Negative", "Neg"),
			qualitative("Urine Culture (C/S)", "No Growth", "No Growth", "Sterile", "Negative"),
			numeric("Urine Osmolality", "mOsm/kg", "500 - 800", fixed(50), fixed(1200)),
			numeric("Urine Specific Gravity", "", "1.005 - 1.030", fixed(1.005), fixed(1.030)),
			numeric("Spot Urine Protein/Cr (UPCR)", "mg/mg", "< 0.2", fixed(0), fixed(0.2)),
			numeric("Spot Urine Albumin/Cr (ACR)", "mg/g", "< 30", fixed(0), fixed(30)),
			numeric("24h Urine Volume (Vol)", "mL", "800 - 2500", fixed(800), fixed(3000)),
			numeric("24h Urine Protein (Prot)", "mg/day", "< 150", fixed(0), fixed(150)),
			numeric("24h Urine Urea", "mg/day", "12000 - 24000", fixed(12000), fixed(24000)),
			numeric("24h Urine Creatinine", "mg/day", "M: 1000-2000, F: 800-1800", byGender(1000, 800), byGender(2000, 1800)),
			numeric("24h Creatinine Clearance (CrCl)", "mL/min", "M: 97-137, F: 88-128", byGender(97, 88), byGender(137, 128)),
		},
	},
	{
		Name: CategoryCardiopulm,
		Tests: []Definition{
			qualitative("ECG Rhythm", "Sinus Rhythm", "Sinus Rhythm", "NSR", "Normal"),
			qualitative("ECG Conclusion", "Normal", "Normal"),
			numeric("ECHO LVEF (%)", "%", "55 - 70", fixed(55), fixed(75)),
			numeric("ECHO PA Pressure (PASP)", "mmHg", "< 35", fixed(0), fixed(35)),
			qualitative("Chest X-Ray (CXR)", "Normal", "Normal", "Clear"),
			qualitative("USG Abdomen (Kidneys)", "Normal", "Normal"),
			qualitative("USG Abdomen (Liver)", "Normal", "Normal"),
		},
	},
	{
		Name: CategoryCancerScreen,
		Tests: []Definition{
			withEligibility(
				numeric(TestPSA, "ng/mL", "Age Specific (<2.5 to <6.5)", fixed(0), psaMax),
				Eligibility{Gender: patient.GenderMale, MinAge: 50},
			),
			withEligibility(
				qualitative(TestPapSmear, "Negative / NILM", "Negative", "Normal", "NILM"),
				Eligibility{Gender: patient.GenderFemale},
			),
			withEligibility(
				qualitative(TestMammogram, "BIRADS 1/2", "Normal", "Negative", "BIRADS 1", "BIRADS 2"),
				Eligibility{Gender: patient.GenderFemale, MinAge: 40},
			),
			withEligibility(
				qualitative(TestColonoscopy, "Normal", "Normal", "Negative", "No Polyps"),
				Eligibility{MinAge: 45},
			),
			qualitative("Fecal Occult Blood (FOBT)", "Negative", "Negative", "Neg"),
			withEligibility(
				qualitative(TestPregnancy, "Negative", "Negative", "Neg"),
				Eligibility{Gender: patient.GenderFemale, MaxAge: 55},
			),
		},
	},
}

func withEligibility(d Definition, e Eligibility) Definition {
	d.Eligibility = e
	return d
}

type definitionKey struct {
	category string
	name     string
}

var index = buildIndex()

func buildIndex() map[definitionKey]*Definition {
	idx := make(map[definitionKey]*Definition)
	for ci := range catalog {
		for ti := range catalog[ci].Tests {
			def := &catalog[ci].Tests[ti]
			def.Category = catalog[ci].Name
			idx[definitionKey{category: def.Category, name: def.Name}] = def
		}
	}
	return idx
}

// Catalog returns the reference table in display order. Callers must not
// mutate the result.
func Catalog() []Category {
	return catalog
}

// Lookup finds the definition for a test by category and name.
func Lookup(category, name string) (*Definition, bool) {
	def, ok := index[definitionKey{category: category, name: name}]
	return def, ok
}

// ReferenceRange renders the subject-specific numeric bounds of a definition.
type ReferenceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (d *Definition) RangeFor(s Subject) (ReferenceRange, bool) {
	if d.Type != ValidationNumeric || d.Min == nil || d.Max == nil {
		return ReferenceRange{}, false
	}
	return ReferenceRange{Min: d.Min(s), Max: d.Max(s)}, true
}

// TypicalValue returns a result inside the subject's reference: the midpoint
// of a numeric range, the first expected token of a qualitative test, and
// "Normal" otherwise.
func (d *Definition) TypicalValue(s Subject) string {
	if r, ok := d.RangeFor(s); ok {
		return decimal.NewFromFloat((r.Min + r.Max) / 2).Round(2).String()
	}
	if d.Type == ValidationQualitative && len(d.Expected) > 0 {
		return d.Expected[0]
	}
	return "Normal"
}
