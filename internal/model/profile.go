package model

// UserProfile describes the business context sent to the external
// classifier alongside each batch.
type UserProfile struct {
	BusinessType    string `json:"businessType,omitempty"`
	Industry        string `json:"industry,omitempty"`
	CountryCode     string `json:"countryCode,omitempty"`
	Profession      string `json:"profession,omitempty"`
	FreeTextContext string `json:"freeTextContext,omitempty"`
}
