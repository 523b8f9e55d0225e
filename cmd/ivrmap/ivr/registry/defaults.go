package registry

// DefaultFields returns the built-in canonical vocabulary for wound-care
// IVR forms. Deployments can replace or extend it via a registry JSON file.
func DefaultFields() []CanonicalField {
	return []CanonicalField{
		{Name: "patient_name", Aliases: []string{"patient_full_name", "member_name", "subscriber_name", "pt_name"}, Type: TypeText},
		{Name: "patient_first_name", Aliases: []string{"first_name", "member_first_name"}, Type: TypeText},
		{Name: "patient_last_name", Aliases: []string{"last_name", "member_last_name", "surname"}, Type: TypeText},
		{Name: "patient_dob", Aliases: []string{"dob", "date_of_birth", "birth_date", "birthdate", "patient_birth_date"}, Type: TypeDate},
		{Name: "patient_gender", Aliases: []string{"gender", "sex"}, Type: TypeText},
		{Name: "patient_phone", Aliases: []string{"phone", "phone_number", "telephone", "contact_number"}, Type: TypePhone},
		{Name: "patient_email", Aliases: []string{"email", "email_address"}, Type: TypeEmail},
		{Name: "patient_address", Aliases: []string{"address", "street_address", "address_line_1", "addr"}, Type: TypeText},
		{Name: "patient_city", Aliases: []string{"city"}, Type: TypeText},
		{Name: "patient_state", Aliases: []string{"state"}, Type: TypeText},
		{Name: "patient_zip", Aliases: []string{"zip", "zip_code", "postal_code"}, Type: TypeZip},
		{Name: "patient_ssn", Aliases: []string{"ssn", "social_security_number"}, Type: TypeSSN},

		{Name: "member_id", Aliases: []string{"subscriber_id", "policy_number", "insurance_id", "member_number"}, Type: TypeText},
		{Name: "group_number", Aliases: []string{"group_id", "group_no"}, Type: TypeText},
		{Name: "payer_name", Aliases: []string{"insurance_name", "insurance_carrier", "carrier_name", "plan_name", "payer"}, Type: TypeText},
		{Name: "payer_phone", Aliases: []string{"insurance_phone", "carrier_phone"}, Type: TypePhone},

		{Name: "physician_name", Aliases: []string{"provider_name", "doctor_name", "prescriber_name", "treating_physician"}, Type: TypeText},
		{Name: "physician_npi", Aliases: []string{"npi", "provider_npi", "prov_npi", "prescriber_npi", "doctor_npi"}, Type: TypeNPI},
		{Name: "physician_phone", Aliases: []string{"provider_phone", "office_phone"}, Type: TypePhone},
		{Name: "physician_fax", Aliases: []string{"provider_fax", "office_fax", "fax", "fax_number"}, Type: TypePhone},

		{Name: "facility_name", Aliases: []string{"practice_name", "clinic_name", "site_name"}, Type: TypeText},
		{Name: "facility_npi", Aliases: []string{"practice_npi", "site_npi", "group_npi"}, Type: TypeNPI},
		{Name: "facility_address", Aliases: []string{"practice_address", "clinic_address"}, Type: TypeText},

		{Name: "diagnosis_code", Aliases: []string{"icd10", "icd_10_code", "dx_code", "primary_diagnosis"}, Type: TypeText},
		{Name: "procedure_code", Aliases: []string{"cpt", "cpt_code", "hcpcs_code"}, Type: TypeText},
		{Name: "wound_type", Aliases: []string{"ulcer_type", "wound_classification"}, Type: TypeText},
		{Name: "wound_size", Aliases: []string{"wound_dimensions", "wound_area", "wound_measurement"}, Type: TypeText},
		{Name: "wound_location", Aliases: []string{"ulcer_location", "anatomical_location"}, Type: TypeText},

		{Name: "product_name", Aliases: []string{"graft_name", "product"}, Type: TypeText},
		{Name: "product_code", Aliases: []string{"q_code", "product_hcpcs"}, Type: TypeText},

		{Name: "request_date", Aliases: []string{"date_of_request", "submission_date", "order_date"}, Type: TypeDate},
		{Name: "service_date", Aliases: []string{"date_of_service", "anticipated_treatment_date", "procedure_date"}, Type: TypeDate},
		{Name: "signature_date", Aliases: []string{"date_signed", "physician_signature_date"}, Type: TypeDate},
		{Name: "place_of_service", Aliases: []string{"pos", "service_location"}, Type: TypeText},
	}
}
