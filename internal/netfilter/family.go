package netfilter

import "fmt"

// Family identifies an address family's ruleset.
type Family string

const (
	FamilyV4 Family = "v4"
	FamilyV6 Family = "v6"
)

// Families lists the address families in the order they are processed.
var Families = []Family{FamilyV4, FamilyV6}

// Valid reports whether f is a known family.
func (f Family) Valid() bool {
	return f == FamilyV4 || f == FamilyV6
}

func (f Family) String() string {
	return string(f)
}

// saveBinary returns the iptables-save binary for the family.
func (f Family) saveBinary() (string, error) {
	switch f {
	case FamilyV4:
		return "iptables-save", nil
	case FamilyV6:
		return "ip6tables-save", nil
	}
	return "", fmt.Errorf("unknown address family %q", f)
}

// restoreBinary returns the iptables-restore binary for the family.
func (f Family) restoreBinary() (string, error) {
	switch f {
	case FamilyV4:
		return "iptables-restore", nil
	case FamilyV6:
		return "ip6tables-restore", nil
	}
	return "", fmt.Errorf("unknown address family %q", f)
}
