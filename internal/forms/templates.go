/*
 * This file is part of Paperwork Hub (https://github.com/clerkwell/paperwork-hub).
 * Copyright (C) 2025 Clerkwell Health
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package forms

import (
	"fmt"
	"regexp"
)

// Form types registered by default
const (
	FormTypeDischargeSummary = "discharge_summary"
	FormTypeReferral         = "referral"
	FormTypeRiskAssessment   = "risk_assessment"
)

var nhsNumberPattern = regexp.MustCompile(`^\d{10}$`)

// ValidateNHSNumber rejects values that are not exactly ten digits
func ValidateNHSNumber(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("NHS number must be text")
	}
	if !nhsNumberPattern.MatchString(s) {
		return fmt.Errorf("NHS number must be exactly 10 digits")
	}
	return nil
}

// RegisterBuiltins loads the standard NHS form templates into the registry
func RegisterBuiltins(registry *Registry) error {
	for _, schema := range BuiltinSchemas() {
		if err := registry.Register(schema); err != nil {
			return err
		}
	}
	return nil
}

// BuiltinSchemas returns fresh copies of the standard NHS form templates
func BuiltinSchemas() []*FormSchema {
	return []*FormSchema{
		dischargeSummarySchema(),
		referralSchema(),
		riskAssessmentSchema(),
	}
}

func dischargeSummarySchema() *FormSchema {
	return &FormSchema{
		FormType: FormTypeDischargeSummary,
		Name:     "NHS Discharge Summary",
		Version:  1,
		Fields: []FieldDefinition{
			// Patient demographics
			{ID: "patient_name", Label: "Patient Name", Type: FieldText, Required: true,
				Synonyms: []string{"name", "patient", "full name"}},
			{ID: "nhs_number", Label: "NHS Number", Type: FieldText, Required: true,
				Synonyms: []string{"nhs no", "nhs"}, Validator: ValidateNHSNumber},
			{ID: "date_of_birth", Label: "Date of Birth", Type: FieldDate, Required: true,
				Synonyms: []string{"dob", "birth date", "born"}},
			{ID: "gender", Label: "Gender", Type: FieldEnum,
				Options:  []string{"Male", "Female", "Other", "Prefer not to say"},
				Synonyms: []string{"sex"}},
			{ID: "address", Label: "Address", Type: FieldText,
				Synonyms: []string{"home address", "patient address"}},
			{ID: "gp_name", Label: "GP Name", Type: FieldText,
				Synonyms: []string{"gp", "general practitioner"}},
			{ID: "gp_practice", Label: "GP Practice", Type: FieldText,
				Synonyms: []string{"gp surgery", "surgery"}},

			// Clinical information
			{ID: "admission_date", Label: "Date of Admission", Type: FieldDate, Required: true,
				Synonyms: []string{"admission date", "admitted", "date admitted"}},
			{ID: "discharge_date", Label: "Date of Discharge", Type: FieldDate, Required: true,
				Synonyms: []string{"discharge date", "discharged", "date discharged"}},
			{ID: "ward", Label: "Ward/Department", Type: FieldText,
				Synonyms: []string{"ward", "department"}},
			{ID: "consultant", Label: "Consultant", Type: FieldText, Required: true,
				Synonyms: []string{"consultant name", "responsible consultant"}},
			{ID: "presenting_complaint", Label: "Presenting Complaint", Type: FieldText, Required: true,
				Synonyms: []string{"complaint", "reason for admission"}},
			{ID: "primary_diagnosis", Label: "Primary Diagnosis", Type: FieldText, Required: true,
				Synonyms: []string{"diagnosis", "main diagnosis"}},
			{ID: "secondary_diagnoses", Label: "Secondary Diagnoses", Type: FieldList,
				Synonyms: []string{"other diagnoses", "comorbidities"}},
			{ID: "past_medical_history", Label: "Past Medical History", Type: FieldList,
				Synonyms: []string{"pmh", "medical history"}},
			{ID: "medications_on_admission", Label: "Medications on Admission", Type: FieldList,
				Synonyms: []string{"admission medications", "meds on admission"}},
			{ID: "allergies", Label: "Known Allergies", Type: FieldList,
				Synonyms: []string{"allergies", "drug allergies", "allergy"}},
			{ID: "clinical_summary", Label: "Clinical Summary", Type: FieldText, Required: true,
				Synonyms: []string{"summary", "hospital course"}},
			{ID: "investigation_results", Label: "Investigation Results", Type: FieldList,
				Synonyms: []string{"investigations", "test results", "results"}},
			{ID: "treatment_given", Label: "Treatment Given", Type: FieldText,
				Synonyms: []string{"treatment", "management"}},
			{ID: "discharge_medications", Label: "Discharge Medications", Type: FieldList,
				Synonyms: []string{"medications", "meds", "discharge meds"}},
			{ID: "follow_up_instructions", Label: "Follow-up Instructions", Type: FieldText, Required: true,
				Synonyms: []string{"follow up", "followup", "follow up plan"}},
			{ID: "gp_actions_required", Label: "Actions Required by GP", Type: FieldText,
				Synonyms: []string{"gp actions", "actions for gp"}},
			{ID: "discharge_destination", Label: "Discharge Destination", Type: FieldEnum,
				Options:  []string{"Home", "Care Home", "Another Hospital", "Rehabilitation Unit", "Other"},
				Synonyms: []string{"destination", "discharged to"}},
		},
	}
}

func referralSchema() *FormSchema {
	return &FormSchema{
		FormType: FormTypeReferral,
		Name:     "NHS Referral Form",
		Version:  1,
		Fields: []FieldDefinition{
			// Patient demographics
			{ID: "patient_name", Label: "Patient Name", Type: FieldText, Required: true,
				Synonyms: []string{"name", "patient", "full name"}},
			{ID: "nhs_number", Label: "NHS Number", Type: FieldText, Required: true,
				Synonyms: []string{"nhs no", "nhs"}, Validator: ValidateNHSNumber},
			{ID: "date_of_birth", Label: "Date of Birth", Type: FieldDate, Required: true,
				Synonyms: []string{"dob", "birth date", "born"}},
			{ID: "gender", Label: "Gender", Type: FieldEnum,
				Options:  []string{"Male", "Female", "Other", "Prefer not to say"},
				Synonyms: []string{"sex"}},
			{ID: "address", Label: "Address", Type: FieldText,
				Synonyms: []string{"home address", "patient address"}},
			{ID: "phone_number", Label: "Contact Number", Type: FieldText,
				Synonyms: []string{"phone", "telephone", "phone number", "mobile"}},

			// Referral details
			{ID: "referring_clinician", Label: "Referring Clinician", Type: FieldText, Required: true,
				Synonyms: []string{"referrer", "referred by"}},
			{ID: "referring_department", Label: "Referring Department", Type: FieldText,
				Synonyms: []string{"from department"}},
			{ID: "referral_to", Label: "Referring To (Department/Consultant)", Type: FieldText, Required: true,
				Synonyms: []string{"referral to", "referred to", "refer to", "specialty"}},
			{ID: "referral_urgency", Label: "Urgency", Type: FieldEnum, Required: true,
				Options:  []string{"Routine", "Urgent", "Emergency", "2-week wait"},
				Synonyms: []string{"priority", "urgency level"}},
			{ID: "referral_reason", Label: "Reason for Referral", Type: FieldText, Required: true,
				Synonyms: []string{"reason", "referral reason"}},
			{ID: "clinical_history", Label: "Relevant Clinical History", Type: FieldText, Required: true,
				Synonyms: []string{"clinical history", "history"}},
			{ID: "examination_findings", Label: "Examination Findings", Type: FieldText,
				Synonyms: []string{"examination", "on examination", "findings"}},
			{ID: "investigations_completed", Label: "Investigations Completed", Type: FieldList,
				Synonyms: []string{"investigations", "tests done", "investigations done"}},
			{ID: "current_medications", Label: "Current Medications", Type: FieldList,
				Synonyms: []string{"medications", "meds", "drug history"}},
			{ID: "allergies", Label: "Known Allergies", Type: FieldList,
				Synonyms: []string{"allergies", "drug allergies", "allergy"}},
			{ID: "social_circumstances", Label: "Relevant Social Circumstances", Type: FieldText,
				Synonyms: []string{"social history", "social circumstances", "social situation"}},
		},
	}
}

func riskAssessmentSchema() *FormSchema {
	riskLevels := []string{"Low", "Medium", "High"}

	return &FormSchema{
		FormType: FormTypeRiskAssessment,
		Name:     "NHS Risk Assessment",
		Version:  1,
		Fields: []FieldDefinition{
			// Patient demographics
			{ID: "patient_name", Label: "Patient Name", Type: FieldText, Required: true,
				Synonyms: []string{"name", "patient", "full name"}},
			{ID: "nhs_number", Label: "NHS Number", Type: FieldText, Required: true,
				Synonyms: []string{"nhs no", "nhs"}},
			{ID: "date_of_birth", Label: "Date of Birth", Type: FieldDate, Required: true,
				Synonyms: []string{"dob", "birth date", "born"}},
			{ID: "assessment_date", Label: "Assessment Date", Type: FieldDate, Required: true,
				Synonyms: []string{"date of assessment", "assessed on"}},
			{ID: "assessor_name", Label: "Assessor Name", Type: FieldText, Required: true,
				Synonyms: []string{"assessor", "assessed by", "completed by"}},

			// Risk assessment
			{ID: "falls_risk", Label: "Falls Risk Level", Type: FieldEnum, Required: true,
				Options:  riskLevels,
				Synonyms: []string{"falls risk", "falls", "risk of falls"}},
			{ID: "falls_risk_factors", Label: "Falls Risk Factors", Type: FieldText,
				Synonyms: []string{"falls factors"}},
			{ID: "pressure_ulcer_risk", Label: "Pressure Ulcer Risk Level", Type: FieldEnum, Required: true,
				Options:  riskLevels,
				Synonyms: []string{"pressure ulcer risk", "pressure sore risk", "waterlow risk"}},
			{ID: "pressure_ulcer_factors", Label: "Pressure Ulcer Risk Factors", Type: FieldText,
				Synonyms: []string{"pressure ulcer factors", "pressure sore factors"}},
			{ID: "nutrition_risk", Label: "Nutrition Risk Level", Type: FieldEnum,
				Options:  riskLevels,
				Synonyms: []string{"nutrition risk", "nutritional risk", "malnutrition risk"}},
			{ID: "mental_health_risk", Label: "Mental Health Risk Assessment", Type: FieldText,
				Synonyms: []string{"mental health risk", "mental health", "mental state"}},
			{ID: "self_harm_risk", Label: "Self-harm Risk Level", Type: FieldEnum,
				Options:  riskLevels,
				Synonyms: []string{"self harm risk", "self harm", "suicide risk"}},
			{ID: "mobility_assessment", Label: "Mobility Assessment", Type: FieldText,
				Synonyms: []string{"mobility"}},
			{ID: "cognitive_assessment", Label: "Cognitive Assessment", Type: FieldText,
				Synonyms: []string{"cognition", "cognitive function"}},
			{ID: "risk_mitigation_plan", Label: "Risk Mitigation Plan", Type: FieldText, Required: true,
				Synonyms: []string{"mitigation plan", "care plan", "risk plan"}},
			{ID: "review_date", Label: "Next Review Date", Type: FieldDate, Required: true,
				Synonyms: []string{"review date", "next review", "review"}},
		},
	}
}
