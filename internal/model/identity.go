package model

// IdentityRecord is a student as returned by the identity lookup service
type IdentityRecord struct {
	ID         string // okul_no
	GivenName  string // ad
	FamilyName string // soyad
	ClassName  string // sinif
}

// FullName returns "given family", tolerating either part being empty
func (r IdentityRecord) FullName() string {
	switch {
	case r.GivenName == "":
		return r.FamilyName
	case r.FamilyName == "":
		return r.GivenName
	default:
		return r.GivenName + " " + r.FamilyName
	}
}
