// Package validator applies range, business and security rules to parsed messages.
package validator

import (
	"fmt"

	"github.com/netrixframework/interop/types"
)

// ClearanceWarning is attached to messages carrying the highest classification level
const ClearanceWarning = "classification TOP_SECRET requires additional clearance verification before handling"

// Validator checks parsed messages. The zero value does not run schema rules, use New.
type Validator struct {
	// SchemaValidation enables the per-protocol range and business rules
	SchemaValidation bool
	// MinTrustScore messages whose trust score is lower get a warning
	MinTrustScore float64
}

// Option configures a Validator
type Option func(*Validator)

// WithSchemaValidation toggles the per-protocol rules
func WithSchemaValidation(enabled bool) Option {
	return func(v *Validator) {
		v.SchemaValidation = enabled
	}
}

// WithMinTrustScore sets the trust score below which a warning is raised
func WithMinTrustScore(score float64) Option {
	return func(v *Validator) {
		v.MinTrustScore = score
	}
}

// New returns a validator with schema validation enabled
func New(opts ...Option) *Validator {
	v := &Validator{SchemaValidation: true}
	for _, o := range opts {
		o(v)
	}
	return v
}

type ruleSet func(types.ParsedData, *types.ValidationResult)

var rules = map[types.Protocol]ruleSet{
	types.ProtocolRPC:     func(types.ParsedData, *types.ValidationResult) {},
	types.ProtocolGraphQL: func(types.ParsedData, *types.ValidationResult) {},
	types.ProtocolAIS:     validateAIS,
	types.ProtocolEPIRB:   validateEPIRB,
	types.ProtocolLink16:  validateLink16,
}

// Covers returns true if a rule set exists for the protocol family
func Covers(p types.Protocol) bool {
	_, ok := rules[p]
	return ok
}

// Validate produces the validation result of parsed.
// Warnings never affect the status, only errors do.
func (v *Validator) Validate(parsed *types.ParsedMessage) (result *types.ValidationResult) {
	result = &types.ValidationResult{
		Status:   types.StatusValid,
		Errors:   []string{},
		Warnings: []string{},
	}
	defer func() {
		if r := recover(); r != nil {
			result.Status = types.StatusError
			result.Errors = []string{fmt.Sprintf("validation failed: %v", r)}
		}
	}()
	if parsed == nil {
		result.Status = types.StatusError
		result.Errors = append(result.Errors, "no parsed message to validate")
		return result
	}

	if !parsed.IsValid {
		result.Status = types.StatusInvalid
		result.Errors = append(result.Errors, parsed.Errors...)
		if len(result.Errors) == 0 {
			result.Errors = append(result.Errors, "message failed to parse")
		}
	}

	// Partial data of an invalid parse is not checked
	if parsed.IsValid && v.SchemaValidation && parsed.Data != nil {
		if check, ok := rules[parsed.Data.Protocol()]; ok {
			check(parsed.Data, result)
		}
	}

	if score := parsed.Metadata.TrustScore; score != nil {
		s := *score
		result.TrustScore = &s
		switch {
		case s < 0 || s > 1:
			result.Warnings = append(result.Warnings, fmt.Sprintf("trust score %v outside [0, 1] ignored", s))
		case s < v.MinTrustScore:
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("trust score %v below threshold %v", s, v.MinTrustScore))
		}
	}

	if len(result.Errors) > 0 && result.Status != types.StatusError {
		result.Status = types.StatusInvalid
	}
	return result
}

func checkCoordinates(lat, lon float64, result *types.ValidationResult) {
	if lat < -90 || lat > 90 {
		result.Errors = append(result.Errors, fmt.Sprintf("latitude %v outside [-90, 90]", lat))
	}
	if lon < -180 || lon > 180 {
		result.Errors = append(result.Errors, fmt.Sprintf("longitude %v outside [-180, 180]", lon))
	}
}

func validateAIS(data types.ParsedData, result *types.ValidationResult) {
	pos, ok := data.(*types.AISPosition)
	if !ok {
		return
	}
	checkCoordinates(pos.Latitude, pos.Longitude, result)
}

func validateEPIRB(data types.ParsedData, result *types.ValidationResult) {
	beacon, ok := data.(*types.DistressBeacon)
	if !ok {
		return
	}
	if beacon.Latitude != nil && beacon.Longitude != nil {
		checkCoordinates(*beacon.Latitude, *beacon.Longitude, result)
	}
}

func validateLink16(data types.ParsedData, result *types.ValidationResult) {
	msg, ok := data.(*types.TacticalMessage)
	if !ok || msg.Classification == "" {
		return
	}
	level, ok := types.ParseClassification(msg.Classification)
	if !ok {
		result.Errors = append(result.Errors, fmt.Sprintf("unknown classification level %q", msg.Classification))
		return
	}
	if level == types.TopSecret {
		result.Warnings = append(result.Warnings, ClearanceWarning)
	}
}
