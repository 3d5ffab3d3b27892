package geojson

import (
	"fmt"
	"strings"
)

// Reason classifies the outcome of validating one input feature.
type Reason int

const (
	Accepted Reason = iota
	InvalidCoordinates
	InvalidGeometry
	MissingProperties
	Other
)

func (r Reason) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case InvalidCoordinates:
		return "invalidCoordinates"
	case InvalidGeometry:
		return "invalidGeometry"
	case MissingProperties:
		return "missingProperties"
	default:
		return "other"
	}
}

// ErrorTally counts rejected features per reason.
type ErrorTally struct {
	InvalidCoordinates int `json:"invalidCoordinates"`
	InvalidGeometry    int `json:"invalidGeometry"`
	MissingProperties  int `json:"missingProperties"`
	Other              int `json:"other"`
}

func (e ErrorTally) Total() int {
	return e.InvalidCoordinates + e.InvalidGeometry + e.MissingProperties + e.Other
}

// Report is the result of Validate. Rejected always equals Errors.Total().
type Report struct {
	Accepted []Feature  `json:"acceptedFeatures"`
	Rejected int        `json:"rejectedCount"`
	Errors   ErrorTally `json:"errors"`
}

func (r *Report) reject(reason Reason) {
	r.Rejected++
	switch reason {
	case InvalidCoordinates:
		r.Errors.InvalidCoordinates++
	case InvalidGeometry:
		r.Errors.InvalidGeometry++
	case MissingProperties:
		r.Errors.MissingProperties++
	default:
		r.Errors.Other++
	}
}

// Total is the number of features that were examined.
func (r Report) Total() int {
	return len(r.Accepted) + r.Rejected
}

// Summary renders the report as a one-line message for the user, e.g.
// "Imported 1 of 2 points. Discarded 1 (1 with invalid coordinates)".
func (r Report) Summary() string {
	msg := fmt.Sprintf("Imported %d of %d points", len(r.Accepted), r.Total())
	if r.Rejected == 0 {
		return msg
	}

	var details []string
	if r.Errors.InvalidCoordinates > 0 {
		details = append(details, fmt.Sprintf("%d with invalid coordinates", r.Errors.InvalidCoordinates))
	}
	if r.Errors.InvalidGeometry > 0 {
		details = append(details, fmt.Sprintf("%d with invalid geometry", r.Errors.InvalidGeometry))
	}
	if r.Errors.MissingProperties > 0 {
		details = append(details, fmt.Sprintf("%d without properties", r.Errors.MissingProperties))
	}
	if r.Errors.Other > 0 {
		details = append(details, fmt.Sprintf("%d other errors", r.Errors.Other))
	}
	return fmt.Sprintf("%s. Discarded %d (%s)", msg, r.Rejected, strings.Join(details, ", "))
}
