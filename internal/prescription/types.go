// Package prescription manages prescription records, their date-keyed
// identifiers and status transitions, including the dispensed mark applied
// when a bill is raised against a prescription.
package prescription

import "time"

// Status of a prescription.
type Status string

// Prescription statuses.
const (
	StatusPending            Status = "pending"
	StatusDispensed          Status = "dispensed"
	StatusPartiallyDispensed Status = "partially-dispensed"
	StatusCancelled          Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusDispensed, StatusPartiallyDispensed, StatusCancelled:
		return true
	}
	return false
}

// Patient describes who the prescription is for.
type Patient struct {
	Name      string `json:"name" validate:"required,min=2,max=100"`
	Age       *int   `json:"age,omitempty" validate:"omitempty,min=0,max=150"`
	Gender    string `json:"gender,omitempty" validate:"omitempty,oneof=male female other"`
	Phone     string `json:"phone,omitempty" validate:"omitempty,mobile"`
	Address   string `json:"address,omitempty"`
	PatientID string `json:"patientId,omitempty"`
}

// Doctor describes the prescriber.
type Doctor struct {
	Name               string `json:"name" validate:"required,min=2,max=100"`
	Qualification      string `json:"qualification,omitempty"`
	RegistrationNumber string `json:"registrationNumber,omitempty"`
	Hospital           string `json:"hospital,omitempty"`
	Contact            string `json:"contact,omitempty" validate:"omitempty,mobile"`
}

// Item is one prescribed medicine. MedicineID is set when the name resolves
// to an active inventory record.
type Item struct {
	MedicineID   *string `json:"medicineId"`
	MedicineName string  `json:"medicineName" validate:"required"`
	Dosage       string  `json:"dosage" validate:"required"`
	Frequency    string  `json:"frequency" validate:"required,oneof=once-daily twice-daily thrice-daily four-times-daily as-needed other"`
	Duration     string  `json:"duration" validate:"required"`
	Quantity     int     `json:"quantity" validate:"required,min=1"`
	Instructions string  `json:"instructions,omitempty"`
}

// VitalSigns recorded at consultation.
type VitalSigns struct {
	BloodPressure string `json:"bloodPressure,omitempty"`
	Pulse         string `json:"pulse,omitempty"`
	Temperature   string `json:"temperature,omitempty"`
	Weight        string `json:"weight,omitempty"`
}

// Prescription is the stored record.
type Prescription struct {
	ID               string      `json:"id"`
	PrescriptionID   string      `json:"prescriptionId"`
	Patient          Patient     `json:"patient"`
	Doctor           Doctor      `json:"doctor"`
	Medicines        []Item      `json:"medicines"`
	PrescriptionDate time.Time   `json:"prescriptionDate"`
	Diagnosis        string      `json:"diagnosis,omitempty"`
	Symptoms         []string    `json:"symptoms,omitempty"`
	VitalSigns       *VitalSigns `json:"vitalSigns,omitempty"`
	Allergies        []string    `json:"allergies,omitempty"`
	Notes            string      `json:"notes,omitempty"`
	Status           Status      `json:"status"`
	DispensedBy      *string     `json:"dispensedBy,omitempty"`
	DispensedAt      *time.Time  `json:"dispensedAt,omitempty"`
	CreatedBy        string      `json:"createdBy"`
	UpdatedBy        string      `json:"updatedBy,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// Input is the writable shape accepted on create and update.
type Input struct {
	Patient          Patient     `json:"patient"`
	Doctor           Doctor      `json:"doctor"`
	Medicines        []Item      `json:"medicines" validate:"required,min=1,dive"`
	PrescriptionDate *time.Time  `json:"prescriptionDate"`
	Diagnosis        string      `json:"diagnosis"`
	Symptoms         []string    `json:"symptoms"`
	VitalSigns       *VitalSigns `json:"vitalSigns"`
	Allergies        []string    `json:"allergies"`
	Notes            string      `json:"notes"`
}

// StatusChange is applied atomically by the store.
type StatusChange struct {
	Status      Status
	Actor       string
	At          time.Time
	DispensedBy *string
	DispensedAt *time.Time
}

// ListFilter narrows prescription listings.
type ListFilter struct {
	Search   string
	Status   Status
	From     *time.Time
	To       *time.Time
	SortBy   string
	SortDesc bool
	Page     int
	PerPage  int
}
