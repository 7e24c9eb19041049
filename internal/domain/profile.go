package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// ProfileDefaults is the role-specific payload merged into a new profile.
type ProfileDefaults interface {
	Role() Role
	Validate() error
}

// PatientDefaults seeds a patient profile.
type PatientDefaults struct {
	Village     string `json:"village,omitempty"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
	Gender      string `json:"gender,omitempty"`
	Language    string `json:"language,omitempty"`
}

func (PatientDefaults) Role() Role { return RolePatient }

func (d PatientDefaults) Validate() error {
	if d.DateOfBirth != "" {
		if _, err := time.Parse(time.DateOnly, d.DateOfBirth); err != nil {
			return fmt.Errorf("%w: dateOfBirth must be YYYY-MM-DD", ErrInvalidProfile)
		}
	}
	switch strings.ToUpper(d.Gender) {
	case "", "MALE", "FEMALE", "OTHER":
	default:
		return fmt.Errorf("%w: unknown gender", ErrInvalidProfile)
	}
	return nil
}

// DoctorDefaults seeds a doctor profile.
type DoctorDefaults struct {
	Specialization     string   `json:"specialization,omitempty"`
	RegistrationNumber string   `json:"registrationNumber,omitempty"`
	Languages          []string `json:"languages,omitempty"`
}

func (DoctorDefaults) Role() Role { return RoleDoctor }

func (d DoctorDefaults) Validate() error {
	if len(d.RegistrationNumber) > 64 {
		return fmt.Errorf("%w: registrationNumber too long", ErrInvalidProfile)
	}
	return nil
}

// PharmacyDefaults seeds a pharmacy profile.
type PharmacyDefaults struct {
	Name    string `json:"name,omitempty"`
	License string `json:"license,omitempty"`
	Village string `json:"village,omitempty"`
	Address string `json:"address,omitempty"`
}

func (PharmacyDefaults) Role() Role { return RolePharmacy }

func (d PharmacyDefaults) Validate() error {
	if d.License != "" && strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: licensed pharmacy requires a name", ErrInvalidProfile)
	}
	return nil
}

// AdminDefaults carries no profile data.
type AdminDefaults struct{}

func (AdminDefaults) Role() Role { return RoleAdmin }

func (AdminDefaults) Validate() error { return nil }

// EmptyDefaults returns the zero-valued variant for role.
func EmptyDefaults(role Role) (ProfileDefaults, error) {
	switch role {
	case RolePatient:
		return PatientDefaults{}, nil
	case RoleDoctor:
		return DoctorDefaults{}, nil
	case RolePharmacy:
		return PharmacyDefaults{}, nil
	case RoleAdmin:
		return AdminDefaults{}, nil
	default:
		return nil, ErrInvalidRole
	}
}

// DecodeProfileDefaults decodes raw into the variant that matches role.
// Unknown fields are rejected. An empty payload yields the empty variant.
func DecodeProfileDefaults(role Role, raw []byte) (ProfileDefaults, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return EmptyDefaults(role)
	}

	var target any
	switch role {
	case RolePatient:
		target = &PatientDefaults{}
	case RoleDoctor:
		target = &DoctorDefaults{}
	case RolePharmacy:
		target = &PharmacyDefaults{}
	case RoleAdmin:
		target = &AdminDefaults{}
	default:
		return nil, ErrInvalidRole
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after object", ErrInvalidProfile)
	}

	var defaults ProfileDefaults
	switch v := target.(type) {
	case *PatientDefaults:
		defaults = *v
	case *DoctorDefaults:
		defaults = *v
	case *PharmacyDefaults:
		defaults = *v
	case *AdminDefaults:
		defaults = *v
	}
	if err := defaults.Validate(); err != nil {
		return nil, err
	}
	return defaults, nil
}

// Profile is the role-specific record created alongside an identity.
type Profile struct {
	IdentityID string
	Role       Role
	Defaults   ProfileDefaults
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
