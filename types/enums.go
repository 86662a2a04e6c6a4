package types

import (
	"errors"
	"fmt"
)

// Errors returned when a string tag does not name a known variant.
var (
	ErrUnknownStatus = errors.New("unknown status")
	ErrUnknownTeam   = errors.New("unknown team")
	ErrUnknownReason = errors.New("unknown reason for leaving")
)

// Status is the state of a task, a stage or a whole instance.
type Status int

const (
	StatusUnknown Status = iota
	StatusPending
	StatusInProgress
	StatusCompleted
	StatusOverdue
	StatusBlocked
)

var statusTags = map[Status]string{
	StatusPending:    "pending",
	StatusInProgress: "in_progress",
	StatusCompleted:  "completed",
	StatusOverdue:    "overdue",
	StatusBlocked:    "blocked",
}

// Team is a party responsible for stages and tasks.
type Team int

const (
	TeamUnknown Team = iota
	TeamLineManager
	TeamPeopleOps
	TeamIT
	TeamFacilities
	TeamCorporateDevelopment
	TeamFinance
	TeamHR
)

var teamTags = map[Team]string{
	TeamLineManager:          "line_manager",
	TeamPeopleOps:            "people_ops",
	TeamIT:                   "it",
	TeamFacilities:           "facilities",
	TeamCorporateDevelopment: "corporate_development",
	TeamFinance:              "finance",
	TeamHR:                   "hr",
}

// Reason is the reason an employee is leaving.
type Reason int

const (
	ReasonUnknown Reason = iota
	ReasonTermination
	ReasonResignation
	ReasonNonRenewal
	ReasonMutualAgreement
)

var reasonTags = map[Reason]string{
	ReasonTermination:     "termination",
	ReasonResignation:     "resignation",
	ReasonNonRenewal:      "non_renewal",
	ReasonMutualAgreement: "mutual_agreement",
}

// AllTeams returns every team in declaration order.
func AllTeams() []Team {
	return []Team{
		TeamLineManager, TeamPeopleOps, TeamIT, TeamFacilities,
		TeamCorporateDevelopment, TeamFinance, TeamHR,
	}
}

// ParseStatus resolves a status tag such as "in_progress".
func ParseStatus(s string) (Status, error) {
	return parseTag(statusTags, s, ErrUnknownStatus)
}

// ParseTeam resolves a team tag such as "people_ops".
func ParseTeam(s string) (Team, error) {
	return parseTag(teamTags, s, ErrUnknownTeam)
}

// ParseReason resolves a reason tag such as "resignation".
func ParseReason(s string) (Reason, error) {
	return parseTag(reasonTags, s, ErrUnknownReason)
}

func (s Status) String() string { return tagOf(statusTags, s) }
func (t Team) String() string   { return tagOf(teamTags, t) }
func (r Reason) String() string { return tagOf(reasonTags, r) }

// Valid reports whether s is one of the declared statuses.
func (s Status) Valid() bool {
	_, ok := statusTags[s]
	return ok
}

// Valid reports whether t is one of the declared teams.
func (t Team) Valid() bool {
	_, ok := teamTags[t]
	return ok
}

// Valid reports whether r is one of the declared reasons.
func (r Reason) Valid() bool {
	_, ok := reasonTags[r]
	return ok
}

func (s Status) MarshalText() ([]byte, error) { return marshalTag(statusTags, s, ErrUnknownStatus) }
func (t Team) MarshalText() ([]byte, error)   { return marshalTag(teamTags, t, ErrUnknownTeam) }
func (r Reason) MarshalText() ([]byte, error) { return marshalTag(reasonTags, r, ErrUnknownReason) }

func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (t *Team) UnmarshalText(b []byte) error {
	v, err := ParseTeam(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (r *Reason) UnmarshalText(b []byte) error {
	v, err := ParseReason(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

func tagOf[T comparable](tags map[T]string, v T) string {
	if s, ok := tags[v]; ok {
		return s
	}
	return "unknown"
}

func marshalTag[T comparable](tags map[T]string, v T, errUnknown error) ([]byte, error) {
	s, ok := tags[v]
	if !ok {
		return nil, fmt.Errorf("%w: %v", errUnknown, v)
	}
	return []byte(s), nil
}

func parseTag[T comparable](tags map[T]string, s string, errUnknown error) (T, error) {
	for v, tag := range tags {
		if tag == s {
			return v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%w: %q", errUnknown, s)
}
