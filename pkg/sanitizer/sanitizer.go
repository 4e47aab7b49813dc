package sanitizer

import (
	"regexp"
	"strings"

	"parkly/pkg/model"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var reRegistrationSeparators = regexp.MustCompile(`[\s\-.]+`)

func trimAndLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func upper(s string) string {
	return strings.ToUpper(s)
}

func stripSeparators(s string) string {
	return reRegistrationSeparators.ReplaceAllString(s, "")
}

func SanitizeVehicleModel(input string) string {
	return TrimAndNormalize(input)
}

func SanitizeVehicleNumber(input string) string {
	p := Pipeline{
		strings.TrimSpace,
		stripSeparators,
		upper,
	}
	return p.Apply(input)
}

func SanitizeEmail(input string) string {
	return trimAndLower(input)
}

func SanitizeName(input string) string {
	return TrimAndNormalize(input)
}

// SanitizeBookingRequest returns a normalized copy of req.
func SanitizeBookingRequest(req model.BookingRequest) model.BookingRequest {
	req.VehicleModel = SanitizeVehicleModel(req.VehicleModel)
	req.VehicleNumber = SanitizeVehicleNumber(req.VehicleNumber)
	return req
}
