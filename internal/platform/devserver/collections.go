package devserver

// Collection describes one REST resource served by the backend.
type Collection struct {
	Name     string
	Endpoint string
	// ParentField is the JSON field holding the parent id; empty for
	// top-level resources.
	ParentField      string
	ParentSegment    string
	ParentCollection string
	ParentLabel      string
	SearchFields     []string
	Required         []string
	// FileField names the multipart file parts stored as images.
	FileField string
}

// Collections returns the resources of the prenatal follow-up API.
func Collections() []Collection {
	consultationChild := func(name, endpoint string, search ...string) Collection {
		return Collection{
			Name:             name,
			Endpoint:         endpoint,
			ParentField:      "consultationId",
			ParentSegment:    "consultation",
			ParentCollection: "consultations",
			ParentLabel:      "consultation",
			SearchFields:     search,
			Required:         []string{"consultationId"},
		}
	}

	ultrasounds := consultationChild("ultrasounds", "/ultrasounds", "conclusion")
	ultrasounds.FileField = "images"

	treatments := consultationChild("treatments", "/treatments", "medication", "dosage", "instructions")
	treatments.Required = append(treatments.Required, "medication")

	return []Collection{
		{
			Name:         "patients",
			Endpoint:     "/patients",
			SearchFields: []string{"firstName", "lastName", "phone"},
			Required:     []string{"firstName", "lastName"},
		},
		{
			Name:             "pregnancies",
			Endpoint:         "/pregnancies",
			ParentField:      "patientId",
			ParentSegment:    "patient",
			ParentCollection: "patients",
			ParentLabel:      "patient",
			SearchFields:     []string{"status", "riskFactors"},
			Required:         []string{"patientId", "lastMenstrualPeriod"},
		},
		{
			Name:             "consultations",
			Endpoint:         "/consultations",
			ParentField:      "pregnancyId",
			ParentSegment:    "pregnancy",
			ParentCollection: "pregnancies",
			ParentLabel:      "pregnancy",
			SearchFields:     []string{"observation"},
			Required:         []string{"pregnancyId", "date"},
		},
		{
			Name:             "appointments",
			Endpoint:         "/appointments",
			ParentField:      "pregnancyId",
			ParentSegment:    "pregnancy",
			ParentCollection: "pregnancies",
			ParentLabel:      "pregnancy",
			SearchFields:     []string{"reason", "notes"},
			Required:         []string{"pregnancyId", "scheduledAt"},
		},
		consultationChild("clinicalExams", "/clinical-exams", "observation"),
		consultationChild("biologicalExams", "/biological-exams", "observation"),
		ultrasounds,
		treatments,
	}
}
