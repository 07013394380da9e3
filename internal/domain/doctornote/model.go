package doctornote

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/acil/er-desk/internal/domain/appointment"
)

const (
	MaxRestDays    = 365
	followUpLayout = "2006-01-02"
	labOrderSep    = ", "
)

var (
	ErrDiagnosisRequired   = errors.New("diagnosis is required")
	ErrPlanRequired        = errors.New("plan is required")
	ErrInvalidRestDays     = errors.New("rest days must be a whole number between 0 and 365")
	ErrInvalidFollowUpDate = errors.New("follow-up date must be YYYY-MM-DD")
)

// Form is the doctor's clinical note as it is being edited.
type Form struct {
	Diagnosis          string   `json:"diagnosis"`
	SecondaryDiagnosis string   `json:"secondaryDiagnosis"`
	Plan               string   `json:"plan"`
	Prescription       string   `json:"prescription"`
	LabOrders          string   `json:"labOrders"`
	SelectedLabOrders  []string `json:"selectedLabOrders"`
	FollowUpDate       string   `json:"followUpDate"`
	FollowUpNotes      string   `json:"followUpNotes"`
	ReferralNeeded     bool     `json:"referralNeeded"`
	ReferralDepartment string   `json:"referralDepartment"`
	RestDays           string   `json:"restDays"`
}

// Request is the body of POST /doctor-notes. Optional fields are sent as
// JSON null when empty.
type Request struct {
	AppointmentID      int64   `json:"appointmentId"`
	Diagnosis          string  `json:"diagnosis"`
	SecondaryDiagnosis *string `json:"secondaryDiagnosis"`
	Plan               string  `json:"plan"`
	Prescription       *string `json:"prescription"`
	LabOrders          *string `json:"labOrders"`
	FollowUpDate       *string `json:"followUpDate"`
	FollowUpNotes      *string `json:"followUpNotes"`
	ReferralNeeded     bool    `json:"referralNeeded"`
	ReferralDepartment *string `json:"referralDepartment"`
	RestDays           *int    `json:"restDays"`
}

// FormFromNote prefills a form from a stored note. A nil note gives an
// empty form.
func FormFromNote(n *appointment.DoctorNote) *Form {
	f := &Form{SelectedLabOrders: []string{}}
	if n == nil {
		return f
	}
	f.Diagnosis = n.Diagnosis
	f.SecondaryDiagnosis = n.SecondaryDiagnosis
	f.Plan = n.Plan
	f.Prescription = n.Prescription
	f.LabOrders = n.LabOrders
	if sel := appointment.SplitCSV(n.LabOrders); sel != nil {
		f.SelectedLabOrders = sel
	}
	f.FollowUpDate = n.FollowUpDate
	f.FollowUpNotes = n.FollowUpNotes
	f.ReferralNeeded = n.ReferralNeeded
	f.ReferralDepartment = n.ReferralDepartment
	if n.RestDays != nil {
		f.RestDays = strconv.Itoa(*n.RestDays)
	}
	return f
}

// ToggleLabOrder selects name if it is not selected and deselects it
// otherwise, keeping LabOrders in sync with the selection.
func (f *Form) ToggleLabOrder(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	for i, s := range f.SelectedLabOrders {
		if s == name {
			f.SelectedLabOrders = append(f.SelectedLabOrders[:i:i], f.SelectedLabOrders[i+1:]...)
			f.LabOrders = strings.Join(f.SelectedLabOrders, labOrderSep)
			return
		}
	}
	f.SelectedLabOrders = append(f.SelectedLabOrders, name)
	f.LabOrders = strings.Join(f.SelectedLabOrders, labOrderSep)
}

// Validate checks the required fields and the formats of the optional ones.
func (f *Form) Validate() error {
	if strings.TrimSpace(f.Diagnosis) == "" {
		return ErrDiagnosisRequired
	}
	if strings.TrimSpace(f.Plan) == "" {
		return ErrPlanRequired
	}
	if _, err := f.restDays(); err != nil {
		return err
	}
	if d := strings.TrimSpace(f.FollowUpDate); d != "" {
		if _, err := time.Parse(followUpLayout, d); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidFollowUpDate, d)
		}
	}
	return nil
}

// Request validates the form and maps it to the backend request body.
func (f *Form) Request(appointmentID int64) (*Request, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	rest, _ := f.restDays()

	req := &Request{
		AppointmentID:      appointmentID,
		Diagnosis:          strings.TrimSpace(f.Diagnosis),
		SecondaryDiagnosis: optional(f.SecondaryDiagnosis),
		Plan:               strings.TrimSpace(f.Plan),
		Prescription:       optional(f.Prescription),
		LabOrders:          optional(f.labOrders()),
		FollowUpDate:       optional(f.FollowUpDate),
		FollowUpNotes:      optional(f.FollowUpNotes),
		ReferralNeeded:     f.ReferralNeeded,
		RestDays:           rest,
	}
	if f.ReferralNeeded {
		req.ReferralDepartment = optional(f.ReferralDepartment)
	}
	return req, nil
}

// labOrders prefers the explicit selection over the free-text field.
func (f *Form) labOrders() string {
	if len(f.SelectedLabOrders) > 0 {
		return strings.Join(f.SelectedLabOrders, labOrderSep)
	}
	return f.LabOrders
}

func (f *Form) restDays() (*int, error) {
	s := strings.TrimSpace(f.RestDays)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > MaxRestDays {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRestDays, s)
	}
	return &n, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
