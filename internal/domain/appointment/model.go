package appointment

import (
	"encoding/json"
	"strings"
)

// Status is the lifecycle state of an appointment as the backend reports it.
type Status string

const (
	StatusWaiting    Status = "WAITING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
	StatusCancelled  Status = "CANCELLED"
)

var validStatuses = map[Status]bool{
	StatusWaiting:    true,
	StatusInProgress: true,
	StatusDone:       true,
	StatusCancelled:  true,
}

// ParseStatus accepts a status name in any case.
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	return st, validStatuses[st]
}

// Patient is the backend's patient record. Tc is the 11-digit national id.
type Patient struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Tc               string `json:"tc"`
	BasicSymptomsCsv string `json:"basicSymptomsCsv,omitempty"`
	CreatedAt        string `json:"createdAt,omitempty"`
}

// Appointment is a queue entry for the current day.
type Appointment struct {
	ID              int64    `json:"id"`
	QueueNumber     int      `json:"queueNumber"`
	Status          Status   `json:"status"`
	AppointmentDate string   `json:"appointmentDate"`
	Patient         *Patient `json:"patient,omitempty"`
}

// TriageRecord is the nurse's intake for an appointment. SuggestionsJSON is a
// JSON document stored as a string by the backend.
type TriageRecord struct {
	ID               int64    `json:"id"`
	NurseSymptomsCsv string   `json:"nurseSymptomsCsv"`
	Temperature      *float64 `json:"temperature,omitempty"`
	Pulse            *int     `json:"pulse,omitempty"`
	BpHigh           *int     `json:"bpHigh,omitempty"`
	BpLow            *int     `json:"bpLow,omitempty"`
	PainLevel        *int     `json:"painLevel,omitempty"`
	TriageLevel      string   `json:"triageLevel"`
	Notes            string   `json:"notes,omitempty"`
	SuggestionsJSON  string   `json:"suggestionsJson,omitempty"`
	CreatedAt        string   `json:"createdAt,omitempty"`
}

// Suggestion is one dataset match computed at triage time.
type Suggestion struct {
	MatchScore   float64 `json:"match_score"`
	Reasoning    string  `json:"reasoning"`
	UrgencyLevel string  `json:"urgency_level,omitempty"`
}

// Suggestions decodes SuggestionsJSON. Missing or malformed JSON yields an
// empty list rather than an error; suggestions are advisory.
func (t *TriageRecord) Suggestions() []Suggestion {
	if t == nil || strings.TrimSpace(t.SuggestionsJSON) == "" {
		return []Suggestion{}
	}
	var out []Suggestion
	if err := json.Unmarshal([]byte(t.SuggestionsJSON), &out); err != nil || out == nil {
		return []Suggestion{}
	}
	return out
}

// Symptoms splits NurseSymptomsCsv into trimmed, non-empty entries.
func (t *TriageRecord) Symptoms() []string {
	if t == nil {
		return nil
	}
	return SplitCSV(t.NurseSymptomsCsv)
}

// DoctorNote is a stored clinical note. LabOrders is comma separated.
type DoctorNote struct {
	ID                 int64  `json:"id"`
	Diagnosis          string `json:"diagnosis"`
	SecondaryDiagnosis string `json:"secondaryDiagnosis,omitempty"`
	Plan               string `json:"plan"`
	Prescription       string `json:"prescription,omitempty"`
	LabOrders          string `json:"labOrders,omitempty"`
	FollowUpDate       string `json:"followUpDate,omitempty"`
	FollowUpNotes      string `json:"followUpNotes,omitempty"`
	ReferralNeeded     bool   `json:"referralNeeded"`
	ReferralDepartment string `json:"referralDepartment,omitempty"`
	RestDays           *int   `json:"restDays,omitempty"`
	CreatedAt          string `json:"createdAt,omitempty"`
}

// Detail is the doctor-screen view of one appointment. Both lists are
// ordered newest first.
type Detail struct {
	Appointment   *Appointment   `json:"appointment"`
	Patient       *Patient       `json:"patient"`
	TriageRecords []TriageRecord `json:"triageRecords"`
	DoctorNotes   []DoctorNote   `json:"doctorNotes"`
}

// LatestTriage returns the newest triage record, or nil.
func (d *Detail) LatestTriage() *TriageRecord {
	if d == nil || len(d.TriageRecords) == 0 {
		return nil
	}
	return &d.TriageRecords[0]
}

// LatestNote returns the newest doctor note, or nil.
func (d *Detail) LatestNote() *DoctorNote {
	if d == nil || len(d.DoctorNotes) == 0 {
		return nil
	}
	return &d.DoctorNotes[0]
}

// NextWaiting is the answer of the next-in-queue lookup.
type NextWaiting struct {
	HasNext       bool     `json:"hasNext"`
	AppointmentID int64    `json:"appointmentId,omitempty"`
	QueueNumber   int      `json:"queueNumber,omitempty"`
	Patient       *Patient `json:"patient,omitempty"`
}

// StatusChange is the backend's acknowledgement of a status update.
type StatusChange struct {
	AppointmentID int64  `json:"appointmentId"`
	Status        Status `json:"status"`
}

// SplitCSV splits a comma separated list, trimming entries and dropping
// empty ones.
func SplitCSV(csv string) []string {
	var out []string
	for _, s := range strings.Split(csv, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
