package model

// advanceTable lists, per current remote status, which incoming statuses are
// forward progress. A nil current status accepts every actionable status.
var advanceTable = map[StatusCode]map[StatusCode]bool{
	StatusOpen: {
		StatusOpen:       true,
		StatusAuthorized: true,
		StatusSuccess:    true,
		StatusError:      true,
	},
	StatusAuthorized: {
		StatusAuthorized: true,
		StatusSuccess:    true,
		StatusError:      true,
	},
	StatusSuccess: {},
	StatusError:   {},
}

// CanAdvance reports whether incoming is legal forward progress from current.
// Reissuing the current non-terminal status is allowed; callers detect that
// nothing changed and skip persistence.
func CanAdvance(current *StatusCode, incoming StatusCode) bool {
	if !incoming.IsActionable() {
		return false
	}
	if current == nil {
		return true
	}
	return advanceTable[*current][incoming]
}

// IsDuplicate reports whether incoming restates the current status.
func IsDuplicate(current *StatusCode, incoming StatusCode) bool {
	return current != nil && *current == incoming
}

// statusRank orders actionable statuses along the lattice.
var statusRank = map[StatusCode]int{
	StatusOpen:       1,
	StatusAuthorized: 2,
	StatusSuccess:    3,
	StatusError:      3,
}

// Rank returns the lattice height of a status, 0 for none.
func Rank(s *StatusCode) int {
	if s == nil {
		return 0
	}
	return statusRank[*s]
}
