package domain

import (
	"encoding/json"
	"time"
)

type ValidationStatus string

const (
	ValidationPass    ValidationStatus = "pass"
	ValidationFail    ValidationStatus = "fail"
	ValidationWarning ValidationStatus = "warning"
)

type SlipValidation struct {
	Status  ValidationStatus `json:"status"`
	Message string           `json:"message"`
}

type SlipValidationReport struct {
	IsValid     bool             `json:"isValid"`
	Validations []SlipValidation `json:"validations"`
}

type SlipSummary struct {
	DetectedAmount  *float64   `json:"detectedAmount"`
	DetectedDate    *time.Time `json:"detectedDate"`
	AmountMatch     bool       `json:"amountMatch"`
	ValidationScore string     `json:"validationScore"`
	TransRef        string     `json:"transRef,omitempty"`
}

// SlipAnalysis is advisory only; it never changes order or payment state.
type SlipAnalysis struct {
	OrderID        string               `json:"orderId"`
	Summary        SlipSummary          `json:"summary"`
	Validation     SlipValidationReport `json:"validation"`
	EasySlipResult json.RawMessage      `json:"easySlipResult"`
	AnalyzedAt     time.Time            `json:"analyzedAt"`
}
